// relics.go — обработчики жизненного цикла реликтов:
// создание (оригинал, правка, форк), чтение, списки, обновление
// метаданных, удаление, цепочки версий, форки и diff.
package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/bigkaa/gorelic/internal/api/errors"
	"github.com/bigkaa/gorelic/internal/api/middleware"
	"github.com/bigkaa/gorelic/internal/diff"
	"github.com/bigkaa/gorelic/internal/domain/model"
	"github.com/bigkaa/gorelic/internal/processor"
	"github.com/bigkaa/gorelic/internal/repository"
	"github.com/bigkaa/gorelic/internal/service"
)

// RelicHandler — обработчики операций над реликтами.
type RelicHandler struct {
	relics        *service.RelicService
	diffs         *service.DiffService
	maxUploadSize int64
	logger        *slog.Logger
}

// NewRelicHandler создаёт обработчик реликтов.
func NewRelicHandler(
	relics *service.RelicService,
	diffs *service.DiffService,
	maxUploadSize int64,
	logger *slog.Logger,
) *RelicHandler {
	return &RelicHandler{
		relics:        relics,
		diffs:         diffs,
		maxUploadSize: maxUploadSize,
		logger:        logger.With(slog.String("component", "relic_handler")),
	}
}

// createRequest — JSON-тело операций создания.
type createRequest struct {
	// Content — содержимое как строка. Для правки и форка может
	// отсутствовать (metadata-only).
	Content      *string  `json:"content"`
	ContentType  string   `json:"content_type"`
	Name         *string  `json:"name"`
	Description  *string  `json:"description"`
	LanguageHint *string  `json:"language_hint"`
	Tags         []string `json:"tags"`
	AccessLevel  string   `json:"access_level"`
	Password     *string  `json:"password"`
	ExpiresIn    string   `json:"expires_in"`
}

// parseCreateParams разбирает параметры создания из multipart-формы
// (загрузка файла) или JSON-тела.
func (h *RelicHandler) parseCreateParams(r *http.Request) (service.CreateParams, error) {
	var p service.CreateParams

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		return h.parseMultipart(r)
	}

	var req createRequest
	// Тело ограничено: защита от произвольно больших запросов
	body := io.LimitReader(r.Body, h.maxUploadSize*2)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		return p, fmt.Errorf("некорректный JSON: %w", err)
	}

	if req.Content != nil {
		p.Data = []byte(*req.Content)
	}
	p.ContentType = req.ContentType
	p.Name = req.Name
	p.Description = req.Description
	p.LanguageHint = req.LanguageHint
	p.Tags = normalizeTagInput(req.Tags)
	p.AccessLevel = model.AccessLevel(req.AccessLevel)
	p.Password = req.Password
	p.ExpiresIn = req.ExpiresIn
	return p, nil
}

// parseMultipart разбирает multipart-форму с полем file.
func (h *RelicHandler) parseMultipart(r *http.Request) (service.CreateParams, error) {
	var p service.CreateParams

	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		return p, fmt.Errorf("ошибка разбора формы: %w", err)
	}

	file, header, err := r.FormFile("file")
	if err == nil {
		defer file.Close()
		data, rerr := io.ReadAll(io.LimitReader(file, h.maxUploadSize+1))
		if rerr != nil {
			return p, fmt.Errorf("ошибка чтения файла: %w", rerr)
		}
		p.Data = data
		p.ContentType = header.Header.Get("Content-Type")
		if header.Filename != "" {
			name := header.Filename
			p.Name = &name
		}
	}

	form := r.MultipartForm.Value
	if v := formValue(form, "content_type"); v != "" {
		p.ContentType = v
	}
	if v := formValue(form, "name"); v != "" {
		p.Name = &v
	}
	if v := formValue(form, "description"); v != "" {
		p.Description = &v
	}
	if v := formValue(form, "language_hint"); v != "" {
		p.LanguageHint = &v
	}
	if v := formValue(form, "password"); v != "" {
		p.Password = &v
	}
	p.Tags = normalizeTagInput(form["tags"])
	p.AccessLevel = model.AccessLevel(formValue(form, "access_level"))
	p.ExpiresIn = formValue(form, "expires_in")
	return p, nil
}

// formValue возвращает первое значение поля формы.
func formValue(form map[string][]string, key string) string {
	if vals := form[key]; len(vals) > 0 {
		return strings.TrimSpace(vals[0])
	}
	return ""
}

// normalizeTagInput поддерживает как массив тегов, так и одну строку
// с тегами через запятую.
func normalizeTagInput(tags []string) []string {
	var out []string
	for _, t := range tags {
		for _, part := range strings.Split(t, ",") {
			part = strings.ToLower(strings.TrimSpace(part))
			if part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// withOwner подставляет владельца из контекста запроса.
func withOwner(r *http.Request, p *service.CreateParams) {
	if clientID := middleware.ClientIDFrom(r.Context()); clientID != "" {
		p.ClientID = &clientID
	}
}

// Create — POST /api/v1/relics. Создаёт оригинальный реликт.
func (h *RelicHandler) Create(w http.ResponseWriter, r *http.Request) {
	p, err := h.parseCreateParams(r)
	if err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}
	withOwner(r, &p)

	rl, rerr := h.relics.CreateOriginal(r.Context(), p)
	if rerr != nil {
		writeServiceError(w, rerr)
		return
	}

	writeJSON(w, http.StatusCreated, createResponse{
		ID:            rl.ID,
		ParentID:      rl.ParentID,
		ForkOf:        rl.ForkOf,
		VersionNumber: rl.VersionNumber,
	})
}

// Edit — POST /api/v1/relics/{id}/edit. Создаёт правку: новую версию
// в цепочке источника. Содержимое может отсутствовать (metadata-only).
func (h *RelicHandler) Edit(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	p, err := h.parseCreateParams(r)
	if err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}
	withOwner(r, &p)

	rl, rerr := h.relics.CreateEdit(r.Context(), id, p)
	if rerr != nil {
		writeServiceError(w, rerr)
		return
	}

	writeJSON(w, http.StatusCreated, createResponse{
		ID:            rl.ID,
		ParentID:      rl.ParentID,
		ForkOf:        rl.ForkOf,
		VersionNumber: rl.VersionNumber,
	})
}

// Fork — POST /api/v1/relics/{id}/fork. Создаёт форк: независимую
// цепочку с атрибуцией источника.
func (h *RelicHandler) Fork(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	p, err := h.parseCreateParams(r)
	if err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}
	withOwner(r, &p)

	rl, rerr := h.relics.CreateFork(r.Context(), id, p)
	if rerr != nil {
		writeServiceError(w, rerr)
		return
	}

	writeJSON(w, http.StatusCreated, createResponse{
		ID:            rl.ID,
		ParentID:      rl.ParentID,
		ForkOf:        rl.ForkOf,
		VersionNumber: rl.VersionNumber,
	})
}

// Get — GET /api/v1/relics/{id}. Метаданные реликта.
// Пароль — в query-параметре password.
func (h *RelicHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	password := r.URL.Query().Get(queryPassword)

	rl, rerr := h.relics.Get(r.Context(), id, password, true)
	if rerr != nil {
		writeServiceError(w, rerr)
		return
	}
	writeJSON(w, http.StatusOK, newRelicResponse(rl))
}

// Raw — GET /api/v1/relics/{id}/raw. Содержимое реликта как есть.
func (h *RelicHandler) Raw(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	password := r.URL.Query().Get(queryPassword)

	rl, rerr := h.relics.Get(r.Context(), id, password, true)
	if rerr != nil {
		writeServiceError(w, rerr)
		return
	}

	data, rerr := h.relics.GetContent(r.Context(), rl)
	if rerr != nil {
		writeServiceError(w, rerr)
		return
	}

	w.Header().Set("Content-Type", rl.ContentType)
	if rl.Name != nil && *rl.Name != "" {
		w.Header().Set("Content-Disposition",
			mime.FormatMediaType("inline", map[string]string{"filename": *rl.Name}))
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// Preview — GET /api/v1/relics/{id}/preview. Метаданные и превью
// содержимого (текст, код, CSV; бинарные типы — только размер).
func (h *RelicHandler) Preview(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	password := r.URL.Query().Get(queryPassword)

	rl, rerr := h.relics.Get(r.Context(), id, password, false)
	if rerr != nil {
		writeServiceError(w, rerr)
		return
	}

	data, rerr := h.relics.GetContent(r.Context(), rl)
	if rerr != nil {
		writeServiceError(w, rerr)
		return
	}

	writeJSON(w, http.StatusOK, processor.Process(data, rl.ContentType, rl.LanguageHint))
}

// List — GET /api/v1/relics. Публичные реликты с фильтрацией
// по тегу и языку. Query: tag, language, roots, limit, offset.
func (h *RelicHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)
	q := r.URL.Query()

	public := model.AccessPublic
	filters := repository.RelicListFilters{
		AccessLevel: &public,
		OnlyRoots:   q.Get("roots") == "true",
	}
	if tag := strings.ToLower(strings.TrimSpace(q.Get("tag"))); tag != "" {
		filters.Tag = &tag
	}
	if lang := strings.TrimSpace(q.Get("language")); lang != "" {
		filters.LanguageHint = &lang
	}

	relics, total, rerr := h.relics.List(r.Context(), filters, limit, offset)
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

// updateRequest — JSON-тело обновления метаданных.
type updateRequest struct {
	Name         *string  `json:"name"`
	Description  *string  `json:"description"`
	LanguageHint *string  `json:"language_hint"`
	Tags         []string `json:"tags"`
	AccessLevel  *string  `json:"access_level"`
	Password     *string  `json:"password"`
	// RemovePassword — снять парольную защиту.
	RemovePassword bool    `json:"remove_password"`
	ExpiresIn      *string `json:"expires_in"`
}

// Update — PATCH /api/v1/relics/{id}. Обновление метаданных.
// Содержимое неизменяемо — для новых байтов используется правка.
func (h *RelicHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "некорректный JSON: "+err.Error())
		return
	}

	p := service.UpdateParams{
		Name:           req.Name,
		Description:    req.Description,
		LanguageHint:   req.LanguageHint,
		Password:       req.Password,
		RemovePassword: req.RemovePassword,
		ExpiresIn:      req.ExpiresIn,
	}
	if req.Tags != nil {
		p.Tags = normalizeTagInput(req.Tags)
	}
	if req.AccessLevel != nil {
		level := model.AccessLevel(*req.AccessLevel)
		p.AccessLevel = &level
	}

	ctx := r.Context()
	rl, rerr := h.relics.Update(ctx, id, middleware.ClientIDFrom(ctx), middleware.IsAdminFrom(ctx), p)
	if rerr != nil {
		writeServiceError(w, rerr)
		return
	}
	writeJSON(w, http.StatusOK, newRelicResponse(rl))
}

// Delete — DELETE /api/v1/relics/{id}. Мягкое удаление.
func (h *RelicHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	ctx := r.Context()
	if rerr := h.relics.Delete(ctx, id, middleware.ClientIDFrom(ctx), middleware.IsAdminFrom(ctx)); rerr != nil {
		writeServiceError(w, rerr)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// Chain — GET /api/v1/relics/{id}/chain. Полная цепочка версий,
// старые версии первыми.
func (h *RelicHandler) Chain(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	chain, rerr := h.relics.ResolveChain(r.Context(), id)
	if rerr != nil {
		writeServiceError(w, rerr)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"chain": newRelicResponses(chain),
		"total": len(chain),
	})
}

// Forks — GET /api/v1/relics/{id}/forks. Форки реликта, новые первыми.
func (h *RelicHandler) Forks(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	forks, rerr := h.relics.ResolveForks(r.Context(), id)
	if rerr != nil {
		writeServiceError(w, rerr)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"forks": newRelicResponses(forks),
		"total": len(forks),
	})
}

// diffResponse — ответ сравнения с опциональным split-представлением.
type diffResponse struct {
	*service.DiffResult
	// Unified — текстовое представление в формате unified diff
	// (view=unified).
	Unified string `json:"unified,omitempty"`
	// Split — двухколоночное представление по ханкам (view=split).
	Split [][]diff.SplitRow `json:"split,omitempty"`
}

// Diff — GET /api/v1/relics/{id}/diff/{other}. Построчное сравнение
// содержимого двух реликтов. Query: view=unified|split (по умолчанию —
// структурный diff без дополнительных представлений).
func (h *RelicHandler) Diff(w http.ResponseWriter, r *http.Request) {
	oldID := chi.URLParam(r, "id")
	newID := chi.URLParam(r, "other")
	password := r.URL.Query().Get(queryPassword)

	result, rerr := h.diffs.Compare(r.Context(), oldID, newID, password)
	if rerr != nil {
		writeServiceError(w, rerr)
		return
	}

	resp := diffResponse{DiffResult: result}
	if result.Text != nil {
		switch r.URL.Query().Get("view") {
		case "unified":
			resp.Unified = diff.FormatUnified(result.Text)
		case "split":
			rows := make([][]diff.SplitRow, 0, len(result.Text.Hunks))
			for i := range result.Text.Hunks {
				rows = append(rows, diff.SplitRows(&result.Text.Hunks[i]))
			}
			resp.Split = rows
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
