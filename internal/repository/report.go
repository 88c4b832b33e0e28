package repository

import (
	"context"
	"fmt"

	"github.com/bigkaa/gorelic/internal/domain/model"
)

// ReportRepository — интерфейс доступа к таблице relic_report.
type ReportRepository interface {
	// Create сохраняет жалобу.
	Create(ctx context.Context, rep *model.Report) error
	// List возвращает жалобы, новые первыми.
	List(ctx context.Context, limit, offset int) ([]*model.Report, error)
	// Delete удаляет обработанную жалобу.
	Delete(ctx context.Context, id string) error
}

// reportRepo — реализация ReportRepository.
type reportRepo struct {
	db DBTX
}

// NewReportRepository создаёт репозиторий жалоб.
func NewReportRepository(db DBTX) ReportRepository {
	return &reportRepo{db: db}
}

func (r *reportRepo) Create(ctx context.Context, rep *model.Report) error {
	query := `
		INSERT INTO relic_report (id, relic_id, reason)
		VALUES ($1, $2, $3)
		RETURNING created_at`

	err := r.db.QueryRow(ctx, query, rep.ID, rep.RelicID, rep.Reason).Scan(&rep.CreatedAt)
	if err != nil {
		return fmt.Errorf("ошибка создания жалобы: %w", err)
	}
	return nil
}

func (r *reportRepo) List(ctx context.Context, limit, offset int) ([]*model.Report, error) {
	query := `
		SELECT id, relic_id, reason, created_at
		FROM relic_report
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`

	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения жалоб: %w", err)
	}
	defer rows.Close()

	var result []*model.Report
	for rows.Next() {
		rep := &model.Report{}
		if err := rows.Scan(&rep.ID, &rep.RelicID, &rep.Reason, &rep.CreatedAt); err != nil {
			return nil, fmt.Errorf("ошибка сканирования жалобы: %w", err)
		}
		result = append(result, rep)
	}
	return result, rows.Err()
}

func (r *reportRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM relic_report WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("ошибка удаления жалобы: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
