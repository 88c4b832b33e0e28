// community.go — комментарии, закладки и жалобы.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/bigkaa/gorelic/internal/domain/model"
	"github.com/bigkaa/gorelic/internal/repository"
)

// maxCommentLength — предел длины комментария в символах.
const maxCommentLength = 4000

// maxReportReasonLength — предел длины причины жалобы.
const maxReportReasonLength = 1000

// CommunityService — комментарии, закладки и жалобы поверх реликтов.
type CommunityService struct {
	relics    *RelicService
	comments  repository.CommentRepository
	bookmarks repository.BookmarkRepository
	reports   repository.ReportRepository
	relicRepo repository.RelicRepository
	logger    *slog.Logger
}

// NewCommunityService создаёт сервис комментариев, закладок и жалоб.
func NewCommunityService(
	relics *RelicService,
	comments repository.CommentRepository,
	bookmarks repository.BookmarkRepository,
	reports repository.ReportRepository,
	relicRepo repository.RelicRepository,
	logger *slog.Logger,
) *CommunityService {
	return &CommunityService{
		relics:    relics,
		comments:  comments,
		bookmarks: bookmarks,
		reports:   reports,
		relicRepo: relicRepo,
		logger:    logger.With(slog.String("component", "community_service")),
	}
}

// CommentParams — параметры создания комментария.
type CommentParams struct {
	Content string
	// LineNumber — привязка к строке содержимого, nil для общего комментария.
	LineNumber *int
	// ParentID — родительский комментарий для веток, nil для корневого.
	ParentID *string
}

// AddComment добавляет комментарий к реликту.
// password — для реликтов с парольной защитой.
func (s *CommunityService) AddComment(ctx context.Context, relicID, clientID, password string, p CommentParams) (*model.Comment, *RelicError) {
	content := strings.TrimSpace(p.Content)
	if content == "" {
		return nil, errValidation("текст комментария обязателен")
	}
	if len([]rune(content)) > maxCommentLength {
		return nil, errValidation(fmt.Sprintf("комментарий длиннее %d символов", maxCommentLength))
	}
	if p.LineNumber != nil && *p.LineNumber < 1 {
		return nil, errValidation("номер строки должен быть положительным")
	}

	// Реликт должен быть доступен комментатору
	if _, rerr := s.relics.Get(ctx, relicID, password, false); rerr != nil {
		return nil, rerr
	}

	// Родительский комментарий должен принадлежать тому же реликту
	if p.ParentID != nil {
		parent, err := s.comments.GetByID(ctx, *p.ParentID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, errNotFound("родительский комментарий не найден")
			}
			s.logger.Error("Ошибка загрузки родительского комментария", slog.String("error", err.Error()))
			return nil, errInternal("ошибка загрузки родительского комментария")
		}
		if parent.RelicID != relicID {
			return nil, errValidation("родительский комментарий относится к другому реликту")
		}
	}

	c := &model.Comment{
		ID:         uuid.New().String(),
		RelicID:    relicID,
		ClientID:   clientID,
		LineNumber: p.LineNumber,
		ParentID:   p.ParentID,
		Content:    content,
	}
	if err := s.comments.Create(ctx, c); err != nil {
		s.logger.Error("Ошибка создания комментария", slog.String("error", err.Error()))
		return nil, errInternal("ошибка создания комментария")
	}

	s.logger.Info("Комментарий добавлен",
		slog.String("relic_id", relicID),
		slog.String("comment_id", c.ID),
	)
	return c, nil
}

// ListComments возвращает комментарии реликта в порядке создания.
func (s *CommunityService) ListComments(ctx context.Context, relicID, password string) ([]*model.Comment, *RelicError) {
	if _, rerr := s.relics.Get(ctx, relicID, password, false); rerr != nil {
		return nil, rerr
	}

	list, err := s.comments.ListByRelic(ctx, relicID)
	if err != nil {
		s.logger.Error("Ошибка загрузки комментариев", slog.String("error", err.Error()))
		return nil, errInternal("ошибка загрузки комментариев")
	}
	return list, nil
}

// UpdateComment изменяет текст комментария. Доступно только автору.
func (s *CommunityService) UpdateComment(ctx context.Context, commentID, clientID, content string) (*model.Comment, *RelicError) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, errValidation("текст комментария обязателен")
	}
	if len([]rune(content)) > maxCommentLength {
		return nil, errValidation(fmt.Sprintf("комментарий длиннее %d символов", maxCommentLength))
	}

	c, err := s.comments.Update(ctx, commentID, clientID, content)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Либо комментария нет, либо он чужой — наружу одинаково
			return nil, errNotFound("комментарий не найден")
		}
		s.logger.Error("Ошибка обновления комментария", slog.String("error", err.Error()))
		return nil, errInternal("ошибка обновления комментария")
	}
	return c, nil
}

// DeleteComment удаляет комментарий автора. Ответы удаляются каскадно.
// Администратор может удалить любой комментарий.
func (s *CommunityService) DeleteComment(ctx context.Context, commentID, clientID string, isAdmin bool) *RelicError {
	var err error
	if isAdmin {
		err = s.comments.DeleteAny(ctx, commentID)
	} else {
		err = s.comments.Delete(ctx, commentID, clientID)
	}
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return errNotFound("комментарий не найден")
		}
		s.logger.Error("Ошибка удаления комментария", slog.String("error", err.Error()))
		return errInternal("ошибка удаления комментария")
	}
	return nil
}

// AddBookmark добавляет реликт в закладки клиента.
// Повторное добавление — конфликт.
func (s *CommunityService) AddBookmark(ctx context.Context, clientID, relicID, password string) (*model.Bookmark, *RelicError) {
	if _, rerr := s.relics.Get(ctx, relicID, password, false); rerr != nil {
		return nil, rerr
	}

	b := &model.Bookmark{
		ID:       uuid.New().String(),
		ClientID: clientID,
		RelicID:  relicID,
	}
	if err := s.bookmarks.Create(ctx, b); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, errConflict("реликт уже в закладках")
		}
		s.logger.Error("Ошибка создания закладки", slog.String("error", err.Error()))
		return nil, errInternal("ошибка создания закладки")
	}

	// Денормализованный счётчик — best effort
	if err := s.relicRepo.AdjustBookmarkCount(ctx, relicID, 1); err != nil {
		s.logger.Warn("Ошибка инкремента счётчика закладок",
			slog.String("relic_id", relicID),
			slog.String("error", err.Error()),
		)
	}
	return b, nil
}

// HasBookmark проверяет наличие закладки клиента на реликте.
func (s *CommunityService) HasBookmark(ctx context.Context, clientID, relicID string) (bool, *RelicError) {
	exists, err := s.bookmarks.Exists(ctx, clientID, relicID)
	if err != nil {
		s.logger.Error("Ошибка проверки закладки", slog.String("error", err.Error()))
		return false, errInternal("ошибка проверки закладки")
	}
	return exists, nil
}

// RemoveBookmark снимает закладку клиента с реликта.
func (s *CommunityService) RemoveBookmark(ctx context.Context, clientID, relicID string) *RelicError {
	if err := s.bookmarks.Delete(ctx, clientID, relicID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return errNotFound("закладка не найдена")
		}
		s.logger.Error("Ошибка удаления закладки", slog.String("error", err.Error()))
		return errInternal("ошибка удаления закладки")
	}

	if err := s.relicRepo.AdjustBookmarkCount(ctx, relicID, -1); err != nil {
		s.logger.Warn("Ошибка декремента счётчика закладок",
			slog.String("relic_id", relicID),
			slog.String("error", err.Error()),
		)
	}
	return nil
}

// ListBookmarks возвращает реликты из закладок клиента, новые первыми.
// Удалённые и просроченные реликты пропускаются.
func (s *CommunityService) ListBookmarks(ctx context.Context, clientID string, limit, offset int) ([]*model.Relic, *RelicError) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	bookmarks, err := s.bookmarks.ListByClient(ctx, clientID, limit, offset)
	if err != nil {
		s.logger.Error("Ошибка загрузки закладок", slog.String("error", err.Error()))
		return nil, errInternal("ошибка загрузки закладок")
	}

	relics := make([]*model.Relic, 0, len(bookmarks))
	for _, b := range bookmarks {
		rl, rerr := s.relics.Get(ctx, b.RelicID, "", false)
		if rerr != nil {
			// Реликт удалён, просрочен или под паролем — закладка не раскрывает его
			continue
		}
		relics = append(relics, rl)
	}
	return relics, nil
}

// ReportRelic создаёт жалобу на содержимое. Жалобы анонимны.
func (s *CommunityService) ReportRelic(ctx context.Context, relicID, reason string) (*model.Report, *RelicError) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, errValidation("причина жалобы обязательна")
	}
	if len([]rune(reason)) > maxReportReasonLength {
		return nil, errValidation(fmt.Sprintf("причина длиннее %d символов", maxReportReasonLength))
	}

	// Жалоба возможна и на защищённый паролем реликт: проверяем
	// только существование, без проверки доступа
	if _, err := s.relicRepo.GetByID(ctx, relicID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, errNotFound(fmt.Sprintf("реликт %s не найден", relicID))
		}
		s.logger.Error("Ошибка загрузки реликта", slog.String("error", err.Error()))
		return nil, errInternal("ошибка загрузки реликта")
	}

	rep := &model.Report{
		ID:      uuid.New().String(),
		RelicID: relicID,
		Reason:  reason,
	}
	if err := s.reports.Create(ctx, rep); err != nil {
		s.logger.Error("Ошибка создания жалобы", slog.String("error", err.Error()))
		return nil, errInternal("ошибка создания жалобы")
	}

	s.logger.Info("Жалоба создана",
		slog.String("relic_id", relicID),
		slog.String("report_id", rep.ID),
	)
	return rep, nil
}
