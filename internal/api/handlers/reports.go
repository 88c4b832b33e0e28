// reports.go — обработчик анонимных жалоб на содержимое.
package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	apierrors "github.com/bigkaa/gorelic/internal/api/errors"
	"github.com/bigkaa/gorelic/internal/service"
)

// ReportHandler — обработчик жалоб.
type ReportHandler struct {
	community *service.CommunityService
	logger    *slog.Logger
}

// NewReportHandler создаёт обработчик жалоб.
func NewReportHandler(community *service.CommunityService, logger *slog.Logger) *ReportHandler {
	return &ReportHandler{
		community: community,
		logger:    logger.With(slog.String("component", "report_handler")),
	}
}

// reportRequest — тело жалобы.
type reportRequest struct {
	RelicID string `json:"relic_id"`
	Reason  string `json:"reason"`
}

// Create — POST /api/v1/reports. Жалобы анонимны: клиентский ключ
// не требуется и не сохраняется.
func (h *ReportHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req reportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "некорректный JSON: "+err.Error())
		return
	}
	if req.RelicID == "" {
		apierrors.ValidationError(w, "relic_id обязателен")
		return
	}

	rep, rerr := h.community.ReportRelic(r.Context(), req.RelicID, req.Reason)
	if rerr != nil {
		writeServiceError(w, rerr)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"id":         rep.ID,
		"relic_id":   rep.RelicID,
		"created_at": rep.CreatedAt,
	})
}
