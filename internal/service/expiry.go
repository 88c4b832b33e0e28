// expiry.go — фоновая очистка просроченных и удалённых реликтов.
//
// Sweep выполняет две задачи:
//  1. Мягко удаляет реликты с истёкшим expires_at (deleted_at = now)
//  2. Окончательно удаляет реликты, мягко удалённые дольше grace-периода:
//     запись метаданных стирается, контент удаляется из хранилища,
//     если на него не ссылается другой реликт (контент-адресуемость
//     допускает разделение блоба между реликтами)
//
// Запускается как горутина с периодическим тикером (RS_EXPIRY_SWEEP_INTERVAL).
package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/gorelic/internal/repository"
	"github.com/bigkaa/gorelic/internal/storage/blobstore"
)

// sweepBatchSize — максимум реликтов, обрабатываемых за один проход фазы.
const sweepBatchSize = 500

// Prometheus метрики sweep.
var (
	sweepRunsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rs_expiry_sweep_runs_total",
		Help: "Общее количество запусков фоновой очистки.",
	})

	sweepExpiredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rs_expiry_relics_expired_total",
		Help: "Общее количество реликтов, мягко удалённых по сроку хранения.",
	})

	sweepPurgedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rs_expiry_relics_purged_total",
		Help: "Общее количество окончательно удалённых реликтов.",
	})

	sweepDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "rs_expiry_sweep_duration_seconds",
		Help:    "Длительность прохода фоновой очистки в секундах.",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
	})
)

// SweepResult — результат одного прохода очистки.
type SweepResult struct {
	// ExpiredCount — количество мягко удалённых по сроку реликтов
	ExpiredCount int
	// PurgedCount — количество окончательно удалённых реликтов
	PurgedCount int
	// Errors — количество ошибок при обработке
	Errors int
	// Duration — длительность прохода
	Duration time.Duration
}

// ExpiryService — сервис фоновой очистки реликтов.
type ExpiryService struct {
	relics   repository.RelicRepository
	blobs    blobstore.Store
	cache    *CacheService
	interval time.Duration
	grace    time.Duration
	logger   *slog.Logger

	mu     sync.Mutex // защита от параллельного запуска RunOnce
	cancel context.CancelFunc
}

// NewExpiryService создаёт сервис очистки.
// grace — срок хранения мягко удалённых реликтов до окончательного удаления.
func NewExpiryService(
	relics repository.RelicRepository,
	blobs blobstore.Store,
	cache *CacheService,
	interval time.Duration,
	grace time.Duration,
	logger *slog.Logger,
) *ExpiryService {
	return &ExpiryService{
		relics:   relics,
		blobs:    blobs,
		cache:    cache,
		interval: interval,
		grace:    grace,
		logger:   logger.With(slog.String("component", "expiry_sweep")),
	}
}

// Start запускает фоновую горутину очистки с периодическим тикером.
// Вызывается один раз при старте приложения.
func (s *ExpiryService) Start(ctx context.Context) {
	sweepCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	go s.run(sweepCtx)

	s.logger.Info("Фоновая очистка запущена",
		slog.String("interval", s.interval.String()),
		slog.String("grace", s.grace.String()),
	)
}

// Stop останавливает фоновый процесс очистки.
func (s *ExpiryService) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.logger.Info("Фоновая очистка остановлена")
}

// run — основной цикл фоновой горутины.
func (s *ExpiryService) run(ctx context.Context) {
	// Первый проход — сразу после старта
	s.RunOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce выполняет один проход очистки.
// Потокобезопасен: mutex защищает от параллельного запуска.
func (s *ExpiryService) RunOnce(ctx context.Context) *SweepResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	result := &SweepResult{}

	s.logger.Debug("Проход очистки начат")

	now := time.Now().UTC()

	// Фаза 1: мягкое удаление просроченных
	expired, errs1 := s.markExpired(ctx, now)
	result.ExpiredCount = expired
	result.Errors += errs1

	// Фаза 2: окончательное удаление после grace-периода
	purged, errs2 := s.purgeDeleted(ctx, now.Add(-s.grace))
	result.PurgedCount = purged
	result.Errors += errs2

	result.Duration = time.Since(start)

	sweepRunsTotal.Inc()
	sweepExpiredTotal.Add(float64(expired))
	sweepPurgedTotal.Add(float64(purged))
	sweepDurationSeconds.Observe(result.Duration.Seconds())

	s.logger.Info("Проход очистки завершён",
		slog.Int("expired", result.ExpiredCount),
		slog.Int("purged", result.PurgedCount),
		slog.Int("errors", result.Errors),
		slog.Duration("duration", result.Duration),
	)

	return result
}

// markExpired мягко удаляет реликты с истёкшим expires_at.
func (s *ExpiryService) markExpired(ctx context.Context, now time.Time) (count, errs int) {
	relics, err := s.relics.ListExpired(ctx, now, sweepBatchSize)
	if err != nil {
		s.logger.Error("Ошибка выборки просроченных реликтов", slog.String("error", err.Error()))
		return 0, 1
	}

	for _, rl := range relics {
		if err := s.relics.MarkDeleted(ctx, rl.ID); err != nil {
			s.logger.Error("Ошибка мягкого удаления просроченного реликта",
				slog.String("relic_id", rl.ID),
				slog.String("error", err.Error()),
			)
			errs++
			continue
		}
		s.cache.Delete(rl.ID)

		s.logger.Debug("Реликт мягко удалён по сроку хранения",
			slog.String("relic_id", rl.ID),
		)
		count++
	}
	return count, errs
}

// purgeDeleted окончательно удаляет реликты, мягко удалённые до cutoff.
// Контент удаляется только когда на ключ не ссылается другой реликт.
func (s *ExpiryService) purgeDeleted(ctx context.Context, cutoff time.Time) (count, errs int) {
	relics, err := s.relics.ListSoftDeletedBefore(ctx, cutoff, sweepBatchSize)
	if err != nil {
		s.logger.Error("Ошибка выборки удалённых реликтов", slog.String("error", err.Error()))
		return 0, 1
	}

	for _, rl := range relics {
		// Подсчёт ссылок, удаление блоба и удаление строки — под
		// advisory-блокировкой ключа контента. Параллельное создание
		// с идентичными байтами (Put — no-op для существующего ключа)
		// держит ту же блокировку на время своей вставки, поэтому
		// блоб не исчезает под ещё не закоммиченной строкой метаданных.
		err := s.relics.WithContentKeyLock(ctx, rl.ContentKey, func(ctx context.Context) error {
			// Контент может разделяться несколькими реликтами (metadata-only
			// правки и дедупликация по хэшу) — удаляем blob только без ссылок
			refs, err := s.relics.CountByContentKey(ctx, rl.ContentKey, rl.ID)
			if err != nil {
				return err
			}
			if refs == 0 {
				if err := s.blobs.Delete(ctx, rl.ContentKey); err != nil {
					// Метаданные не трогаем: повторная попытка на следующем проходе
					return err
				}
			}
			return s.relics.HardDelete(ctx, rl.ID)
		})
		if err != nil {
			s.logger.Error("Ошибка окончательного удаления реликта",
				slog.String("relic_id", rl.ID),
				slog.String("content_key", rl.ContentKey),
				slog.String("error", err.Error()),
			)
			errs++
			continue
		}

		s.logger.Debug("Реликт окончательно удалён",
			slog.String("relic_id", rl.ID),
		)
		count++
	}
	return count, errs
}
