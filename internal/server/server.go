// Пакет server — HTTP-сервер Relic Server с graceful shutdown.
// Без TLS — HTTP внутри кластера, TLS termination на reverse proxy.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"

	"github.com/bigkaa/gorelic/internal/api/handlers"
	"github.com/bigkaa/gorelic/internal/api/middleware"
	"github.com/bigkaa/gorelic/internal/config"
)

// Handlers — набор обработчиков для построения маршрутов.
type Handlers struct {
	Health    *handlers.HealthHandler
	Relics    *handlers.RelicHandler
	Clients   *handlers.ClientHandler
	Comments  *handlers.CommentHandler
	Bookmarks *handlers.BookmarkHandler
	Reports   *handlers.ReportHandler
	Admin     *handlers.AdminHandler
}

// Server — HTTP-сервер Relic Server.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	cfg        *config.Config
}

// New создаёт новый HTTP-сервер с настроенными routes и middleware.
// auth — middleware клиентских ключей, применяется ко всем /api маршрутам.
func New(cfg *config.Config, logger *slog.Logger, h Handlers, auth *middleware.ClientKeyAuth) *Server {
	router := chi.NewRouter()

	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.RequestLogger(logger))

	// Служебные endpoints — без аутентификации
	router.Get("/health/live", h.Health.HealthLive)
	router.Get("/health/ready", h.Health.HealthReady)
	router.Get("/metrics", h.Health.GetMetrics)

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(auth.Middleware())

		// Реликты: чтение доступно анонимно (ID — bearer-токен)
		r.Post("/relics", h.Relics.Create)
		r.Get("/relics", h.Relics.List)
		r.Route("/relics/{id}", func(r chi.Router) {
			r.Get("/", h.Relics.Get)
			r.Patch("/", h.Relics.Update)
			r.Delete("/", h.Relics.Delete)
			r.Get("/raw", h.Relics.Raw)
			r.Get("/preview", h.Relics.Preview)
			r.Post("/edit", h.Relics.Edit)
			r.Post("/fork", h.Relics.Fork)
			r.Get("/chain", h.Relics.Chain)
			r.Get("/forks", h.Relics.Forks)
			r.Get("/diff/{other}", h.Relics.Diff)

			// Комментарии: чтение анонимно, запись — по ключу
			r.Get("/comments", h.Comments.List)
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireClient())
				r.Post("/comments", h.Comments.Add)
				r.Put("/comments/{comment_id}", h.Comments.Update)
				r.Delete("/comments/{comment_id}", h.Comments.Delete)
			})
		})

		// Клиентские операции — требуют X-Client-Key
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireClient())
			r.Post("/client/register", h.Clients.Register)
			r.Put("/client/name", h.Clients.UpdateName)
			r.Get("/client/relics", h.Clients.MyRelics)

			r.Post("/bookmarks", h.Bookmarks.Add)
			r.Get("/bookmarks", h.Bookmarks.List)
			r.Get("/bookmarks/check/{relic_id}", h.Bookmarks.Check)
			r.Delete("/bookmarks/{relic_id}", h.Bookmarks.Remove)
		})

		// Жалобы анонимны
		r.Post("/reports", h.Reports.Create)

		// Административные маршруты
		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireAdmin())
			r.Get("/check", h.Admin.Check)
			r.Get("/config", h.Admin.Config)
			r.Get("/stats", h.Admin.Stats)
			r.Get("/relics", h.Admin.Relics)
			r.Delete("/relics/{id}", h.Admin.PurgeRelic)
			r.Get("/clients", h.Admin.Clients)
			r.Delete("/clients/{client_id}", h.Admin.DeleteClient)
			r.Get("/reports", h.Admin.Reports)
			r.Delete("/reports/{report_id}", h.Admin.ResolveReport)
		})
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	return &Server{
		httpServer: srv,
		logger:     logger,
		cfg:        cfg,
	}
}

// Run запускает сервер и ожидает сигнала завершения (SIGINT, SIGTERM).
// При получении сигнала выполняется graceful shutdown.
func (s *Server) Run() error {
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("HTTP-сервер запущен",
			slog.String("addr", s.httpServer.Addr),
		)

		err := s.httpServer.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		s.logger.Info("Получен сигнал завершения", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("ошибка HTTP-сервера: %w", err)
		}
	}

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	s.logger.Info("Выполняется graceful shutdown...")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("ошибка при graceful shutdown: %w", err)
	}

	s.logger.Info("HTTP-сервер остановлен")
	return nil
}
