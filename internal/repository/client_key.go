package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/gorelic/internal/domain/model"
)

// ClientKeyRepository — интерфейс доступа к таблице client_key.
type ClientKeyRepository interface {
	// Ensure регистрирует клиентский ключ, если он ещё не известен.
	// Повторный вызов для существующего ключа — no-op.
	Ensure(ctx context.Context, id string) error
	// GetByID возвращает ключ с количеством реликтов клиента.
	GetByID(ctx context.Context, id string) (*model.ClientKey, error)
	// UpdateName задаёт отображаемое имя клиента.
	UpdateName(ctx context.Context, id string, name *string) error
	// List возвращает список клиентов для админки.
	List(ctx context.Context, limit, offset int) ([]*model.ClientKey, error)
	// Delete удаляет ключ клиента вместе с его закладками и комментариями.
	Delete(ctx context.Context, id string) error
}

// clientKeyRepo — реализация ClientKeyRepository.
type clientKeyRepo struct {
	db DBTX
}

// NewClientKeyRepository создаёт репозиторий клиентских ключей.
func NewClientKeyRepository(db DBTX) ClientKeyRepository {
	return &clientKeyRepo{db: db}
}

func (r *clientKeyRepo) Ensure(ctx context.Context, id string) error {
	query := `
		INSERT INTO client_key (id)
		VALUES ($1)
		ON CONFLICT (id) DO NOTHING`

	if _, err := r.db.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("ошибка регистрации клиентского ключа: %w", err)
	}
	return nil
}

func (r *clientKeyRepo) GetByID(ctx context.Context, id string) (*model.ClientKey, error) {
	query := `
		SELECT k.id, k.name, k.created_at,
			(SELECT COUNT(*) FROM relic WHERE client_id = k.id AND deleted_at IS NULL)
		FROM client_key k
		WHERE k.id = $1`

	k := &model.ClientKey{}
	err := r.db.QueryRow(ctx, query, id).Scan(&k.ID, &k.Name, &k.CreatedAt, &k.RelicCount)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения клиентского ключа: %w", err)
	}
	return k, nil
}

func (r *clientKeyRepo) UpdateName(ctx context.Context, id string, name *string) error {
	tag, err := r.db.Exec(ctx, `UPDATE client_key SET name = $2 WHERE id = $1`, id, name)
	if err != nil {
		return fmt.Errorf("ошибка обновления имени клиента: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *clientKeyRepo) List(ctx context.Context, limit, offset int) ([]*model.ClientKey, error) {
	query := `
		SELECT k.id, k.name, k.created_at,
			(SELECT COUNT(*) FROM relic WHERE client_id = k.id AND deleted_at IS NULL)
		FROM client_key k
		ORDER BY k.created_at DESC
		LIMIT $1 OFFSET $2`

	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка клиентов: %w", err)
	}
	defer rows.Close()

	var result []*model.ClientKey
	for rows.Next() {
		k := &model.ClientKey{}
		if err := rows.Scan(&k.ID, &k.Name, &k.CreatedAt, &k.RelicCount); err != nil {
			return nil, fmt.Errorf("ошибка сканирования клиента: %w", err)
		}
		result = append(result, k)
	}
	return result, rows.Err()
}

func (r *clientKeyRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM client_key WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("ошибка удаления клиентского ключа: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
