// metrics.go — Prometheus HTTP метрики сервиса реликтов.
// Регистрирует метрики: rs_http_requests_total, rs_http_request_duration_seconds.
// Нормализация путей предотвращает взрывной рост кардинальности.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP метрики
var (
	// httpRequestsTotal — общее количество HTTP-запросов.
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rs_http_requests_total",
			Help: "Общее количество HTTP-запросов к сервису реликтов",
		},
		[]string{"method", "path", "status"},
	)

	// httpRequestDuration — гистограмма длительности HTTP-запросов.
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rs_http_request_duration_seconds",
			Help:    "Длительность HTTP-запросов к сервису реликтов в секундах",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// MetricsMiddleware возвращает HTTP middleware для сбора Prometheus метрик.
// Записывает количество запросов и длительность для каждого endpoint.
func MetricsMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Нормализуем путь для лейблов метрик
			// (заменяем идентификаторы на {id} для предотвращения кардинальности)
			normalizedPath := normalizePath(r.URL.Path)

			wrapped := newMetricsResponseWriter(w)
			next.ServeHTTP(wrapped, r)

			duration := time.Since(start).Seconds()
			status := strconv.Itoa(wrapped.statusCode)

			httpRequestsTotal.WithLabelValues(r.Method, normalizedPath, status).Inc()
			httpRequestDuration.WithLabelValues(r.Method, normalizedPath).Observe(duration)
		})
	}
}

// metricsResponseWriter — обёртка для перехвата статус-кода.
type metricsResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func newMetricsResponseWriter(w http.ResponseWriter) *metricsResponseWriter {
	return &metricsResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

func (rw *metricsResponseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Unwrap позволяет http.ResponseController получить доступ к оригинальному ResponseWriter.
func (rw *metricsResponseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// isIDSegment определяет, является ли сегмент пути идентификатором:
// 32-символьный hex ID реликта, UUID комментария или произвольный
// клиентский ключ в позициях, где ожидается идентификатор.
func isIDSegment(seg string) bool {
	if len(seg) == 32 || len(seg) == 36 {
		for _, r := range seg {
			switch {
			case r >= '0' && r <= '9':
			case r >= 'a' && r <= 'f':
			case r == '-':
			default:
				return false
			}
		}
		return true
	}
	return false
}

// normalizePath заменяет идентификаторы в пути на {id} для предотвращения
// взрывного роста кардинальности метрик.
// /api/v1/relics/a1b2...32hex → /api/v1/relics/{id}
// /api/v1/relics/a1b2.../diff/c3d4... → /api/v1/relics/{id}/diff/{id}
func normalizePath(path string) string {
	// Статические пути — возвращаем как есть
	switch path {
	case "/health/live", "/health/ready", "/metrics",
		"/api/v1/relics", "/api/v1/bookmarks", "/api/v1/reports":
		return path
	}

	segments := strings.Split(path, "/")
	changed := false
	for i, seg := range segments {
		if isIDSegment(seg) {
			segments[i] = "{id}"
			changed = true
		}
	}
	if !changed {
		// Пути с клиентскими ключами нормализуются по префиксу
		const bookmarksPrefix = "/api/v1/bookmarks/"
		if strings.HasPrefix(path, bookmarksPrefix) && path != bookmarksPrefix {
			return "/api/v1/bookmarks/{id}"
		}
		const clientsPrefix = "/api/v1/admin/clients/"
		if strings.HasPrefix(path, clientsPrefix) && path != clientsPrefix {
			return "/api/v1/admin/clients/{id}"
		}
		return path
	}
	return strings.Join(segments, "/")
}
