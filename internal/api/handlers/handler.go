// handler.go — общие DTO и вспомогательные функции обработчиков API.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	apierrors "github.com/bigkaa/gorelic/internal/api/errors"
	"github.com/bigkaa/gorelic/internal/domain/model"
	"github.com/bigkaa/gorelic/internal/service"
)

// queryPassword — query-параметр с паролем реликта.
const queryPassword = "password"

// writeJSON записывает JSON-ответ с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeServiceError транслирует ошибку сервисного слоя в HTTP-ответ.
func writeServiceError(w http.ResponseWriter, rerr *service.RelicError) {
	apierrors.WriteError(w, rerr.StatusCode, rerr.Code, rerr.Message)
}

// parsePagination извлекает limit и offset из query-параметров.
// Значения за пределами допустимого нормализуются в сервисном слое.
func parsePagination(r *http.Request) (limit, offset int) {
	limit = 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			offset = n
		}
	}
	return limit, offset
}

// relicResponse — представление реликта в API.
type relicResponse struct {
	ID            string     `json:"id"`
	Name          *string    `json:"name"`
	Description   *string    `json:"description"`
	ContentType   string     `json:"content_type"`
	SizeBytes     int64      `json:"size_bytes"`
	Checksum      string     `json:"checksum"`
	LanguageHint  *string    `json:"language_hint"`
	Tags          []string   `json:"tags"`
	AccessLevel   string     `json:"access_level"`
	HasPassword   bool       `json:"has_password"`
	ParentID      *string    `json:"parent_id"`
	ForkOf        *string    `json:"fork_of"`
	RootID        string     `json:"root_id"`
	VersionNumber int        `json:"version_number"`
	AccessCount   int64      `json:"access_count"`
	BookmarkCount int64      `json:"bookmark_count"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	ExpiresAt     *time.Time `json:"expires_at"`
	DeletedAt     *time.Time `json:"deleted_at,omitempty"`
}

// newRelicResponse формирует представление реликта.
// Хэш пароля и ключ блоба наружу не отдаются.
func newRelicResponse(rl *model.Relic) *relicResponse {
	tags := rl.Tags
	if tags == nil {
		tags = []string{}
	}
	return &relicResponse{
		ID:            rl.ID,
		Name:          rl.Name,
		Description:   rl.Description,
		ContentType:   rl.ContentType,
		SizeBytes:     rl.SizeBytes,
		Checksum:      rl.Checksum,
		LanguageHint:  rl.LanguageHint,
		Tags:          tags,
		AccessLevel:   string(rl.AccessLevel),
		HasPassword:   rl.PasswordHash != nil,
		ParentID:      rl.ParentID,
		ForkOf:        rl.ForkOf,
		RootID:        rl.RootID,
		VersionNumber: rl.VersionNumber,
		AccessCount:   rl.AccessCount,
		BookmarkCount: rl.BookmarkCount,
		CreatedAt:     rl.CreatedAt,
		UpdatedAt:     rl.UpdatedAt,
		ExpiresAt:     rl.ExpiresAt,
		DeletedAt:     rl.DeletedAt,
	}
}

// newRelicResponses формирует список представлений.
func newRelicResponses(relics []*model.Relic) []*relicResponse {
	out := make([]*relicResponse, 0, len(relics))
	for _, rl := range relics {
		out = append(out, newRelicResponse(rl))
	}
	return out
}

// createResponse — ответ операций создания (оригинал, правка, форк).
type createResponse struct {
	ID            string  `json:"id"`
	ParentID      *string `json:"parent_id"`
	ForkOf        *string `json:"fork_of"`
	VersionNumber int     `json:"version_number"`
}

// listResponse — страница списка с общим количеством.
type listResponse struct {
	Items  []*relicResponse `json:"items"`
	Total  int              `json:"total"`
	Limit  int              `json:"limit"`
	Offset int              `json:"offset"`
}

// commentResponse — представление комментария в API.
type commentResponse struct {
	ID         string    `json:"id"`
	RelicID    string    `json:"relic_id"`
	ClientID   string    `json:"client_id"`
	AuthorName *string   `json:"author_name"`
	LineNumber *int      `json:"line_number"`
	ParentID   *string   `json:"parent_id"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func newCommentResponse(c *model.Comment) *commentResponse {
	return &commentResponse{
		ID:         c.ID,
		RelicID:    c.RelicID,
		ClientID:   c.ClientID,
		AuthorName: c.AuthorName,
		LineNumber: c.LineNumber,
		ParentID:   c.ParentID,
		Content:    c.Content,
		CreatedAt:  c.CreatedAt,
		UpdatedAt:  c.UpdatedAt,
	}
}
