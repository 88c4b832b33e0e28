// comments.go — обработчики комментариев к реликтам.
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

// CommentHandler — обработчики комментариев.
type CommentHandler struct {
	community *service.CommunityService
	logger    *slog.Logger
}

// NewCommentHandler создаёт обработчик комментариев.
func NewCommentHandler(community *service.CommunityService, logger *slog.Logger) *CommentHandler {
	return &CommentHandler{
		community: community,
		logger:    logger.With(slog.String("component", "comment_handler")),
	}
}

// commentRequest — тело создания или обновления комментария.
type commentRequest struct {
	Content    string  `json:"content"`
	LineNumber *int    `json:"line_number"`
	ParentID   *string `json:"parent_id"`
}

// Add — POST /api/v1/relics/{id}/comments.
func (h *CommentHandler) Add(w http.ResponseWriter, r *http.Request) {
	relicID := chi.URLParam(r, "id")

	var req commentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "некорректный JSON: "+err.Error())
		return
	}

	ctx := r.Context()
	c, rerr := h.community.AddComment(ctx, relicID, middleware.ClientIDFrom(ctx),
		r.URL.Query().Get(queryPassword), service.CommentParams{
			Content:    req.Content,
			LineNumber: req.LineNumber,
			ParentID:   req.ParentID,
		})
	if rerr != nil {
		writeServiceError(w, rerr)
		return
	}
	writeJSON(w, http.StatusCreated, newCommentResponse(c))
}

// List — GET /api/v1/relics/{id}/comments.
func (h *CommentHandler) List(w http.ResponseWriter, r *http.Request) {
	relicID := chi.URLParam(r, "id")

	comments, rerr := h.community.ListComments(r.Context(), relicID, r.URL.Query().Get(queryPassword))
	if rerr != nil {
		writeServiceError(w, rerr)
		return
	}

	out := make([]*commentResponse, 0, len(comments))
	for _, c := range comments {
		out = append(out, newCommentResponse(c))
	}
	writeJSON(w, http.StatusOK, out)
}

// Update — PUT /api/v1/relics/{id}/comments/{comment_id}.
// Доступно только автору.
func (h *CommentHandler) Update(w http.ResponseWriter, r *http.Request) {
	commentID := chi.URLParam(r, "comment_id")

	var req commentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "некорректный JSON: "+err.Error())
		return
	}

	ctx := r.Context()
	c, rerr := h.community.UpdateComment(ctx, commentID, middleware.ClientIDFrom(ctx), req.Content)
	if rerr != nil {
		writeServiceError(w, rerr)
		return
	}
	writeJSON(w, http.StatusOK, newCommentResponse(c))
}

// Delete — DELETE /api/v1/relics/{id}/comments/{comment_id}.
// Автор удаляет свой комментарий, администратор — любой.
func (h *CommentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	commentID := chi.URLParam(r, "comment_id")

	ctx := r.Context()
	rerr := h.community.DeleteComment(ctx, commentID, middleware.ClientIDFrom(ctx), middleware.IsAdminFrom(ctx))
	if rerr != nil {
		writeServiceError(w, rerr)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
