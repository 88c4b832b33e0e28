// client.go — обработчики клиентских ключей: регистрация,
// отображаемое имя, реликты клиента.
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	apierrors "github.com/bigkaa/gorelic/internal/api/errors"
	"github.com/bigkaa/gorelic/internal/api/middleware"
	"github.com/bigkaa/gorelic/internal/repository"
	"github.com/bigkaa/gorelic/internal/service"
)

// maxClientNameLength — предел длины отображаемого имени.
const maxClientNameLength = 100

// ClientHandler — обработчики клиентских операций.
type ClientHandler struct {
	clients repository.ClientKeyRepository
	relics  *service.RelicService
	logger  *slog.Logger
}

// NewClientHandler создаёт обработчик клиентских операций.
func NewClientHandler(clients repository.ClientKeyRepository, relics *service.RelicService, logger *slog.Logger) *ClientHandler {
	return &ClientHandler{
		clients: clients,
		relics:  relics,
		logger:  logger.With(slog.String("component", "client_handler")),
	}
}

// clientResponse — представление клиента в API.
type clientResponse struct {
	ClientID   string    `json:"client_id"`
	Name       *string   `json:"name"`
	RelicCount int       `json:"relic_count"`
	CreatedAt  time.Time `json:"created_at"`
	IsAdmin    bool      `json:"is_admin"`
}

// Register — POST /api/v1/client/register. Ключ уже зарегистрирован
// auth-middleware при первом использовании; возвращаем текущее состояние.
func (h *ClientHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	clientID := middleware.ClientIDFrom(ctx)

	client, err := h.clients.GetByID(ctx, clientID)
	if err != nil {
		h.logger.Error("Ошибка загрузки клиента", slog.String("error", err.Error()))
		apierrors.InternalError(w, "ошибка загрузки клиента")
		return
	}

	writeJSON(w, http.StatusOK, clientResponse{
		ClientID:   client.ID,
		Name:       client.Name,
		RelicCount: client.RelicCount,
		CreatedAt:  client.CreatedAt,
		IsAdmin:    middleware.IsAdminFrom(ctx),
	})
}

// updateNameRequest — тело запроса обновления имени.
type updateNameRequest struct {
	Name string `json:"name"`
}

// UpdateName — PUT /api/v1/client/name. Задаёт отображаемое имя
// (используется как подпись автора комментариев).
func (h *ClientHandler) UpdateName(w http.ResponseWriter, r *http.Request) {
	var req updateNameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "некорректный JSON: "+err.Error())
		return
	}

	name := strings.TrimSpace(req.Name)
	if len([]rune(name)) > maxClientNameLength {
		apierrors.ValidationError(w, "имя длиннее 100 символов")
		return
	}

	ctx := r.Context()
	clientID := middleware.ClientIDFrom(ctx)

	var namePtr *string
	if name != "" {
		namePtr = &name
	}
	if err := h.clients.UpdateName(ctx, clientID, namePtr); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			apierrors.NotFound(w, "клиент не найден")
			return
		}
		h.logger.Error("Ошибка обновления имени клиента", slog.String("error", err.Error()))
		apierrors.InternalError(w, "ошибка обновления имени")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"client_id": clientID, "name": namePtr})
}

// MyRelics — GET /api/v1/client/relics. Реликты клиента, включая
// unlisted и private.
func (h *ClientHandler) MyRelics(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	clientID := middleware.ClientIDFrom(ctx)
	limit, offset := parsePagination(r)

	filters := repository.RelicListFilters{ClientID: &clientID}
	relics, total, rerr := h.relics.List(ctx, filters, limit, offset)
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
