// admin.go — административные операции.
// Доступ ограничен клиентскими ключами из RS_ADMIN_CLIENT_IDS.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bigkaa/gorelic/internal/domain/model"
	"github.com/bigkaa/gorelic/internal/repository"
	"github.com/bigkaa/gorelic/internal/storage/blobstore"
)

// AdminService — статистика, управление клиентами и жалобами.
type AdminService struct {
	relics  repository.RelicRepository
	clients repository.ClientKeyRepository
	reports repository.ReportRepository
	blobs   blobstore.Store
	cache   *CacheService
	logger  *slog.Logger
}

// NewAdminService создаёт сервис административных операций.
func NewAdminService(
	relics repository.RelicRepository,
	clients repository.ClientKeyRepository,
	reports repository.ReportRepository,
	blobs blobstore.Store,
	cache *CacheService,
	logger *slog.Logger,
) *AdminService {
	return &AdminService{
		relics:  relics,
		clients: clients,
		reports: reports,
		blobs:   blobs,
		cache:   cache,
		logger:  logger.With(slog.String("component", "admin_service")),
	}
}

// Stats возвращает агрегированную статистику сервиса.
func (s *AdminService) Stats(ctx context.Context) (*repository.RelicStats, *RelicError) {
	stats, err := s.relics.Stats(ctx)
	if err != nil {
		s.logger.Error("Ошибка получения статистики", slog.String("error", err.Error()))
		return nil, errInternal("ошибка получения статистики")
	}
	return stats, nil
}

// ListRelics возвращает реликты для админки, включая удалённые и просроченные.
func (s *AdminService) ListRelics(ctx context.Context, filters repository.RelicListFilters, limit, offset int) ([]*model.Relic, int, *RelicError) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	filters.IncludeDeleted = true
	filters.IncludeExpired = true

	relics, err := s.relics.List(ctx, filters, limit, offset)
	if err != nil {
		s.logger.Error("Ошибка загрузки списка реликтов", slog.String("error", err.Error()))
		return nil, 0, errInternal("ошибка загрузки списка реликтов")
	}
	total, err := s.relics.Count(ctx, filters)
	if err != nil {
		s.logger.Error("Ошибка подсчёта реликтов", slog.String("error", err.Error()))
		return nil, 0, errInternal("ошибка загрузки списка реликтов")
	}
	return relics, total, nil
}

// PurgeRelic окончательно удаляет реликт, минуя grace-период.
// Контент удаляется, если на него не ссылается другой реликт.
func (s *AdminService) PurgeRelic(ctx context.Context, id string) *RelicError {
	rl, err := s.relics.GetAny(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return errNotFound(fmt.Sprintf("реликт %s не найден", id))
		}
		s.logger.Error("Ошибка загрузки реликта", slog.String("error", err.Error()))
		return errInternal("ошибка загрузки реликта")
	}

	// Та же advisory-блокировка ключа контента, что у sweep и создателей:
	// подсчёт ссылок, удаление блоба и строки не гонятся с параллельной
	// вставкой, переиспользующей этот же ключ
	err = s.relics.WithContentKeyLock(ctx, rl.ContentKey, func(ctx context.Context) error {
		refs, err := s.relics.CountByContentKey(ctx, rl.ContentKey, rl.ID)
		if err != nil {
			return fmt.Errorf("подсчёт ссылок на контент: %w", err)
		}
		if refs == 0 {
			if err := s.blobs.Delete(ctx, rl.ContentKey); err != nil {
				return fmt.Errorf("удаление контента: %w", err)
			}
		}
		return s.relics.HardDelete(ctx, id)
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return errNotFound(fmt.Sprintf("реликт %s не найден", id))
		}
		s.logger.Error("Ошибка окончательного удаления",
			slog.String("relic_id", id),
			slog.String("error", err.Error()),
		)
		return errInternal("ошибка окончательного удаления")
	}

	s.cache.Delete(id)
	s.logger.Info("Реликт удалён администратором", slog.String("relic_id", id))
	return nil
}

// ListClients возвращает клиентские ключи с количеством реликтов.
func (s *AdminService) ListClients(ctx context.Context, limit, offset int) ([]*model.ClientKey, *RelicError) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	clients, err := s.clients.List(ctx, limit, offset)
	if err != nil {
		s.logger.Error("Ошибка загрузки списка клиентов", slog.String("error", err.Error()))
		return nil, errInternal("ошибка загрузки списка клиентов")
	}
	return clients, nil
}

// DeleteClient удаляет клиентский ключ вместе с закладками и комментариями.
// deleteRelics=true — реликты клиента мягко удаляются (дальше их подберёт
// sweep); false — остаются, но теряют владельца.
func (s *AdminService) DeleteClient(ctx context.Context, id string, deleteRelics bool) *RelicError {
	var removed []string
	if deleteRelics {
		ids, err := s.relics.MarkDeletedByClient(ctx, id)
		if err != nil {
			s.logger.Error("Ошибка удаления реликтов клиента",
				slog.String("client_id", id),
				slog.String("error", err.Error()),
			)
			return errInternal("ошибка удаления реликтов клиента")
		}
		removed = ids
	}

	if err := s.clients.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return errNotFound(fmt.Sprintf("клиент %s не найден", id))
		}
		s.logger.Error("Ошибка удаления клиента", slog.String("error", err.Error()))
		return errInternal("ошибка удаления клиента")
	}

	// Инвалидация кэша метаданных для удалённых реликтов
	for _, relicID := range removed {
		s.cache.Delete(relicID)
	}

	s.logger.Info("Клиент удалён администратором",
		slog.String("client_id", id),
		slog.Int("relics_deleted", len(removed)),
	)
	return nil
}

// ListReports возвращает жалобы, новые первыми.
func (s *AdminService) ListReports(ctx context.Context, limit, offset int) ([]*model.Report, *RelicError) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	reports, err := s.reports.List(ctx, limit, offset)
	if err != nil {
		s.logger.Error("Ошибка загрузки жалоб", slog.String("error", err.Error()))
		return nil, errInternal("ошибка загрузки жалоб")
	}
	return reports, nil
}

// ResolveReport удаляет обработанную жалобу.
func (s *AdminService) ResolveReport(ctx context.Context, id string) *RelicError {
	if err := s.reports.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return errNotFound(fmt.Sprintf("жалоба %s не найдена", id))
		}
		s.logger.Error("Ошибка удаления жалобы", slog.String("error", err.Error()))
		return errInternal("ошибка удаления жалобы")
	}
	return nil
}
