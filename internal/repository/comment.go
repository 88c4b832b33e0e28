package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/gorelic/internal/domain/model"
)

// CommentRepository — интерфейс доступа к таблице relic_comment.
type CommentRepository interface {
	// Create сохраняет новый комментарий.
	Create(ctx context.Context, c *model.Comment) error
	// GetByID возвращает комментарий по UUID.
	GetByID(ctx context.Context, id string) (*model.Comment, error)
	// ListByRelic возвращает комментарии реликта в порядке создания.
	// Привязанные к строкам и обычные возвращаются вместе.
	ListByRelic(ctx context.Context, relicID string) ([]*model.Comment, error)
	// Update изменяет текст комментария.
	Update(ctx context.Context, id, clientID, content string) (*model.Comment, error)
	// Delete удаляет комментарий автора. Ответы удаляются каскадно.
	Delete(ctx context.Context, id, clientID string) error
	// DeleteAny удаляет комментарий без проверки автора (для админки).
	DeleteAny(ctx context.Context, id string) error
}

// commentRepo — реализация CommentRepository.
type commentRepo struct {
	db DBTX
}

// NewCommentRepository создаёт репозиторий комментариев.
func NewCommentRepository(db DBTX) CommentRepository {
	return &commentRepo{db: db}
}

func (r *commentRepo) Create(ctx context.Context, c *model.Comment) error {
	query := `
		INSERT INTO relic_comment (id, relic_id, client_id, line_number, parent_id, content)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		c.ID, c.RelicID, c.ClientID, c.LineNumber, c.ParentID, c.Content,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: комментарий с таким ID уже существует", ErrConflict)
		}
		return fmt.Errorf("ошибка создания комментария: %w", err)
	}
	return nil
}

func (r *commentRepo) GetByID(ctx context.Context, id string) (*model.Comment, error) {
	query := `
		SELECT c.id, c.relic_id, c.client_id, c.line_number, c.parent_id,
			c.content, c.created_at, c.updated_at, k.name
		FROM relic_comment c
		LEFT JOIN client_key k ON k.id = c.client_id
		WHERE c.id = $1`

	c := &model.Comment{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&c.ID, &c.RelicID, &c.ClientID, &c.LineNumber, &c.ParentID,
		&c.Content, &c.CreatedAt, &c.UpdatedAt, &c.AuthorName,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения комментария: %w", err)
	}
	return c, nil
}

func (r *commentRepo) ListByRelic(ctx context.Context, relicID string) ([]*model.Comment, error) {
	query := `
		SELECT c.id, c.relic_id, c.client_id, c.line_number, c.parent_id,
			c.content, c.created_at, c.updated_at, k.name
		FROM relic_comment c
		LEFT JOIN client_key k ON k.id = c.client_id
		WHERE c.relic_id = $1
		ORDER BY c.created_at`

	rows, err := r.db.Query(ctx, query, relicID)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения комментариев: %w", err)
	}
	defer rows.Close()

	var result []*model.Comment
	for rows.Next() {
		c := &model.Comment{}
		if err := rows.Scan(
			&c.ID, &c.RelicID, &c.ClientID, &c.LineNumber, &c.ParentID,
			&c.Content, &c.CreatedAt, &c.UpdatedAt, &c.AuthorName,
		); err != nil {
			return nil, fmt.Errorf("ошибка сканирования комментария: %w", err)
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

func (r *commentRepo) Update(ctx context.Context, id, clientID, content string) (*model.Comment, error) {
	// Редактировать комментарий может только его автор.
	query := `
		UPDATE relic_comment
		SET content = $3, updated_at = now()
		WHERE id = $1 AND client_id = $2
		RETURNING id, relic_id, client_id, line_number, parent_id, content, created_at, updated_at`

	c := &model.Comment{}
	err := r.db.QueryRow(ctx, query, id, clientID, content).Scan(
		&c.ID, &c.RelicID, &c.ClientID, &c.LineNumber, &c.ParentID,
		&c.Content, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка обновления комментария: %w", err)
	}
	return c, nil
}

func (r *commentRepo) Delete(ctx context.Context, id, clientID string) error {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM relic_comment WHERE id = $1 AND client_id = $2`, id, clientID)
	if err != nil {
		return fmt.Errorf("ошибка удаления комментария: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *commentRepo) DeleteAny(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM relic_comment WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("ошибка удаления комментария: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
