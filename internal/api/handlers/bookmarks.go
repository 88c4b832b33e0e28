// bookmarks.go — обработчики закладок клиента.
package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/bigkaa/gorelic/internal/api/errors"
	"github.com/bigkaa/gorelic/internal/api/middleware"
	"github.com/bigkaa/gorelic/internal/service"
)

// BookmarkHandler — обработчики закладок.
type BookmarkHandler struct {
	community *service.CommunityService
	logger    *slog.Logger
}

// NewBookmarkHandler создаёт обработчик закладок.
func NewBookmarkHandler(community *service.CommunityService, logger *slog.Logger) *BookmarkHandler {
	return &BookmarkHandler{
		community: community,
		logger:    logger.With(slog.String("component", "bookmark_handler")),
	}
}

// bookmarkRequest — тело создания закладки.
type bookmarkRequest struct {
	RelicID  string `json:"relic_id"`
	Password string `json:"password"`
}

// Add — POST /api/v1/bookmarks.
func (h *BookmarkHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req bookmarkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "некорректный JSON: "+err.Error())
		return
	}
	if req.RelicID == "" {
		apierrors.ValidationError(w, "relic_id обязателен")
		return
	}

	ctx := r.Context()
	b, rerr := h.community.AddBookmark(ctx, middleware.ClientIDFrom(ctx), req.RelicID, req.Password)
	if rerr != nil {
		writeServiceError(w, rerr)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"id":         b.ID,
		"relic_id":   b.RelicID,
		"created_at": b.CreatedAt,
	})
}

// Remove — DELETE /api/v1/bookmarks/{relic_id}.
func (h *BookmarkHandler) Remove(w http.ResponseWriter, r *http.Request) {
	relicID := chi.URLParam(r, "relic_id")

	ctx := r.Context()
	if rerr := h.community.RemoveBookmark(ctx, middleware.ClientIDFrom(ctx), relicID); rerr != nil {
		writeServiceError(w, rerr)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

// Check — GET /api/v1/bookmarks/check/{relic_id}.
func (h *BookmarkHandler) Check(w http.ResponseWriter, r *http.Request) {
	relicID := chi.URLParam(r, "relic_id")

	ctx := r.Context()
	exists, rerr := h.community.HasBookmark(ctx, middleware.ClientIDFrom(ctx), relicID)
	if rerr != nil {
		writeServiceError(w, rerr)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"bookmarked": exists})
}

// List — GET /api/v1/bookmarks. Реликты из закладок клиента,
// новые первыми. Недоступные реликты пропускаются.
func (h *BookmarkHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)

	ctx := r.Context()
	relics, rerr := h.community.ListBookmarks(ctx, middleware.ClientIDFrom(ctx), limit, offset)
	if rerr != nil {
		writeServiceError(w, rerr)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": newRelicResponses(relics),
		"total": len(relics),
	})
}
