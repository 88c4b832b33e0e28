// diff.go — сервис сравнения реликтов.
//
// Загружает два реликта и их содержимое, строит построчный diff.
// Нетекстовое содержимое не сравнивается построчно — вместо этого
// возвращается сравнение метаданных (размер, тип, равенство байтов).
package service

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/gorelic/internal/diff"
	"github.com/bigkaa/gorelic/internal/domain/model"
)

// Prometheus-метрики diff.
var (
	diffComputationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rs_diff_computations_total",
		Help: "Общее количество вычислений diff по результату.",
	}, []string{"result"})

	diffDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "rs_diff_duration_seconds",
		Help:    "Длительность вычисления diff в секундах.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	})
)

// BinaryComparison — сравнение метаданных для нетекстового содержимого.
type BinaryComparison struct {
	OldSize     int64  `json:"old_size"`
	NewSize     int64  `json:"new_size"`
	OldType     string `json:"old_type"`
	NewType     string `json:"new_type"`
	SameContent bool   `json:"same_content"`
}

// DiffResult — результат сравнения двух реликтов.
// Либо текстовый diff (Text), либо сравнение метаданных (Binary).
type DiffResult struct {
	OldID string `json:"old_id"`
	NewID string `json:"new_id"`
	// Text — построчный diff; nil, если содержимое не текстовое.
	Text *diff.FileDiff `json:"diff,omitempty"`
	// Binary — сравнение метаданных; nil для текстового содержимого.
	Binary *BinaryComparison `json:"binary,omitempty"`
}

// DiffService — сервис сравнения реликтов.
type DiffService struct {
	relics *RelicService
	logger *slog.Logger
}

// NewDiffService создаёт сервис сравнения.
func NewDiffService(relics *RelicService, logger *slog.Logger) *DiffService {
	return &DiffService{
		relics: relics,
		logger: logger.With(slog.String("component", "diff_service")),
	}
}

// Compare сравнивает содержимое двух реликтов.
// password применяется к обоим реликтам при парольной защите.
// Диff — чистое синхронное вычисление: весь I/O (загрузка блобов)
// выполняется здесь, до вызова движка.
func (s *DiffService) Compare(ctx context.Context, oldID, newID, password string) (*DiffResult, *RelicError) {
	oldRelic, rerr := s.relics.Get(ctx, oldID, password, false)
	if rerr != nil {
		return nil, rerr
	}
	newRelic, rerr := s.relics.Get(ctx, newID, password, false)
	if rerr != nil {
		return nil, rerr
	}

	oldData, rerr := s.relics.GetContent(ctx, oldRelic)
	if rerr != nil {
		return nil, rerr
	}
	newData, rerr := s.relics.GetContent(ctx, newRelic)
	if rerr != nil {
		return nil, rerr
	}

	start := time.Now()
	fd, err := diff.Compare(oldData, newData, label(oldRelic), label(newRelic))
	diffDurationSeconds.Observe(time.Since(start).Seconds())

	if err != nil {
		if errors.Is(err, diff.ErrNotDiffable) {
			// Нетекстовое содержимое: сравнение метаданных вместо diff
			diffComputationsTotal.WithLabelValues("binary").Inc()
			return &DiffResult{
				OldID: oldID,
				NewID: newID,
				Binary: &BinaryComparison{
					OldSize:     oldRelic.SizeBytes,
					NewSize:     newRelic.SizeBytes,
					OldType:     oldRelic.ContentType,
					NewType:     newRelic.ContentType,
					SameContent: bytes.Equal(oldData, newData),
				},
			}, nil
		}
		s.logger.Error("Ошибка вычисления diff", slog.String("error", err.Error()))
		diffComputationsTotal.WithLabelValues("error").Inc()
		return nil, errInternal("ошибка вычисления diff")
	}

	diffComputationsTotal.WithLabelValues("text").Inc()
	return &DiffResult{OldID: oldID, NewID: newID, Text: fd}, nil
}

// label возвращает подпись реликта для заголовков diff.
func label(rl *model.Relic) string {
	if rl.Name != nil && *rl.Name != "" {
		return *rl.Name
	}
	return rl.ID
}
