// admin.go — административные обработчики.
// Все маршруты защищены middleware.RequireAdmin.
package handlers

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bigkaa/gorelic/internal/config"
	"github.com/bigkaa/gorelic/internal/repository"
	"github.com/bigkaa/gorelic/internal/service"
)

// AdminHandler — обработчики административных операций.
type AdminHandler struct {
	admin  *service.AdminService
	cfg    *config.Config
	logger *slog.Logger
}

// NewAdminHandler создаёт обработчик административных операций.
func NewAdminHandler(admin *service.AdminService, cfg *config.Config, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		admin:  admin,
		cfg:    cfg,
		logger: logger.With(slog.String("component", "admin_handler")),
	}
}

// Check — GET /api/v1/admin/check. Достижим только через RequireAdmin,
// поэтому сам факт ответа подтверждает права.
func (h *AdminHandler) Check(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"is_admin": true})
}

// Config — GET /api/v1/admin/config. Текущая конфигурация сервиса
// для диагностики. Секреты (пароль БД, ключи S3, список админских
// ключей) наружу не отдаются.
func (h *AdminHandler) Config(w http.ResponseWriter, _ *http.Request) {
	c := h.cfg
	writeJSON(w, http.StatusOK, map[string]any{
		"version":               config.Version,
		"port":                  c.Port,
		"log_level":             c.LogLevel.String(),
		"log_format":            c.LogFormat,
		"storage_backend":       c.StorageBackend,
		"s3_endpoint":           c.S3Endpoint,
		"s3_bucket":             c.S3Bucket,
		"max_upload_size":       c.MaxUploadSize,
		"cache_size":            c.CacheSize,
		"cache_ttl":             c.CacheTTL.String(),
		"expiry_sweep_interval": c.ExpirySweepInterval.String(),
		"expiry_grace_period":   c.ExpiryGracePeriod.String(),
		"admin_key_count":       len(c.AdminClientIDs),
	})
}

// Stats — GET /api/v1/admin/stats. Агрегированная статистика сервиса.
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, rerr := h.admin.Stats(r.Context())
	if rerr != nil {
		writeServiceError(w, rerr)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"total_relics":     stats.TotalRelics,
		"active_relics":    stats.ActiveRelics,
		"deleted_relics":   stats.DeletedRelics,
		"expired_relics":   stats.ExpiredRelics,
		"total_size_bytes": stats.TotalSizeBytes,
		"total_accesses":   stats.TotalAccesses,
		"total_clients":    stats.TotalClients,
		"total_comments":   stats.TotalComments,
		"total_bookmarks":  stats.TotalBookmarks,
		"total_reports":    stats.TotalReports,
	})
}

// Relics — GET /api/v1/admin/relics. Список реликтов, включая удалённые
// и просроченные. Query: client, tag, limit, offset.
func (h *AdminHandler) Relics(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)
	q := r.URL.Query()

	var filters repository.RelicListFilters
	if client := strings.TrimSpace(q.Get("client")); client != "" {
		filters.ClientID = &client
	}
	if tag := strings.ToLower(strings.TrimSpace(q.Get("tag"))); tag != "" {
		filters.Tag = &tag
	}

	relics, total, rerr := h.admin.ListRelics(r.Context(), filters, limit, offset)
	if rerr != nil {
		writeServiceError(w, rerr)
		return
	}

	writeJSON(w, http.StatusOK, listResponse{
		Items:  newRelicResponses(relics),
		Total:  total,
		Limit:  limit,
		Offset: offset,
	})
}

// PurgeRelic — DELETE /api/v1/admin/relics/{id}. Окончательное
// удаление, минуя grace-период корзины.
func (h *AdminHandler) PurgeRelic(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if rerr := h.admin.PurgeRelic(r.Context(), id); rerr != nil {
		writeServiceError(w, rerr)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "purged"})
}

// Clients — GET /api/v1/admin/clients. Клиентские ключи с количеством
// реликтов.
func (h *AdminHandler) Clients(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)

	clients, rerr := h.admin.ListClients(r.Context(), limit, offset)
	if rerr != nil {
		writeServiceError(w, rerr)
		return
	}

	type clientItem struct {
		ClientID   string    `json:"client_id"`
		Name       *string   `json:"name"`
		RelicCount int       `json:"relic_count"`
		CreatedAt  time.Time `json:"created_at"`
	}
	items := make([]clientItem, 0, len(clients))
	for _, c := range clients {
		items = append(items, clientItem{
			ClientID:   c.ID,
			Name:       c.Name,
			RelicCount: c.RelicCount,
			CreatedAt:  c.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "total": len(items)})
}

// DeleteClient — DELETE /api/v1/admin/clients/{client_id}.
// Query delete_relics=true мягко удаляет и реликты клиента;
// без него реликты остаются, но теряют владельца.
func (h *AdminHandler) DeleteClient(w http.ResponseWriter, r *http.Request) {
	clientID := chi.URLParam(r, "client_id")
	deleteRelics := r.URL.Query().Get("delete_relics") == "true"

	if rerr := h.admin.DeleteClient(r.Context(), clientID, deleteRelics); rerr != nil {
		writeServiceError(w, rerr)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// Reports — GET /api/v1/admin/reports. Жалобы, новые первыми.
func (h *AdminHandler) Reports(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)

	reports, rerr := h.admin.ListReports(r.Context(), limit, offset)
	if rerr != nil {
		writeServiceError(w, rerr)
		return
	}

	type reportItem struct {
		ID        string    `json:"id"`
		RelicID   string    `json:"relic_id"`
		Reason    string    `json:"reason"`
		CreatedAt time.Time `json:"created_at"`
	}
	items := make([]reportItem, 0, len(reports))
	for _, rep := range reports {
		items = append(items, reportItem{
			ID:        rep.ID,
			RelicID:   rep.RelicID,
			Reason:    rep.Reason,
			CreatedAt: rep.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "total": len(items)})
}

// ResolveReport — DELETE /api/v1/admin/reports/{report_id}.
// Жалоба удаляется после обработки.
func (h *AdminHandler) ResolveReport(w http.ResponseWriter, r *http.Request) {
	reportID := chi.URLParam(r, "report_id")

	if rerr := h.admin.ResolveReport(r.Context(), reportID); rerr != nil {
		writeServiceError(w, rerr)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "resolved"})
}
