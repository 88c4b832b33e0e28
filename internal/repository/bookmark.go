package repository

import (
	"context"
	"fmt"

	"github.com/bigkaa/gorelic/internal/domain/model"
)

// BookmarkRepository — интерфейс доступа к таблице client_bookmark.
type BookmarkRepository interface {
	// Create добавляет закладку. Дубликат (client_id, relic_id) — ErrConflict.
	Create(ctx context.Context, b *model.Bookmark) error
	// Delete снимает закладку клиента с реликта.
	Delete(ctx context.Context, clientID, relicID string) error
	// Exists проверяет наличие закладки.
	Exists(ctx context.Context, clientID, relicID string) (bool, error)
	// ListByClient возвращает закладки клиента, новые первыми.
	ListByClient(ctx context.Context, clientID string, limit, offset int) ([]*model.Bookmark, error)
}

// bookmarkRepo — реализация BookmarkRepository.
type bookmarkRepo struct {
	db DBTX
}

// NewBookmarkRepository создаёт репозиторий закладок.
func NewBookmarkRepository(db DBTX) BookmarkRepository {
	return &bookmarkRepo{db: db}
}

func (r *bookmarkRepo) Create(ctx context.Context, b *model.Bookmark) error {
	query := `
		INSERT INTO client_bookmark (id, client_id, relic_id)
		VALUES ($1, $2, $3)
		RETURNING created_at`

	err := r.db.QueryRow(ctx, query, b.ID, b.ClientID, b.RelicID).Scan(&b.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: закладка уже существует", ErrConflict)
		}
		return fmt.Errorf("ошибка создания закладки: %w", err)
	}
	return nil
}

func (r *bookmarkRepo) Delete(ctx context.Context, clientID, relicID string) error {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM client_bookmark WHERE client_id = $1 AND relic_id = $2`,
		clientID, relicID)
	if err != nil {
		return fmt.Errorf("ошибка удаления закладки: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *bookmarkRepo) Exists(ctx context.Context, clientID, relicID string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM client_bookmark WHERE client_id = $1 AND relic_id = $2)`,
		clientID, relicID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("ошибка проверки закладки: %w", err)
	}
	return exists, nil
}

func (r *bookmarkRepo) ListByClient(ctx context.Context, clientID string, limit, offset int) ([]*model.Bookmark, error) {
	query := `
		SELECT id, client_id, relic_id, created_at
		FROM client_bookmark
		WHERE client_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.db.Query(ctx, query, clientID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения закладок: %w", err)
	}
	defer rows.Close()

	var result []*model.Bookmark
	for rows.Next() {
		b := &model.Bookmark{}
		if err := rows.Scan(&b.ID, &b.ClientID, &b.RelicID, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("ошибка сканирования закладки: %w", err)
		}
		result = append(result, b)
	}
	return result, rows.Err()
}
