package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/gorelic/internal/domain/model"
)

// relicColumns — полный список колонок таблицы relic в порядке сканирования.
const relicColumns = `id, content_key, content_type, size_bytes, checksum,
	parent_id, fork_of, root_id, version_number,
	name, description, language_hint, tags, access_level, password_hash,
	client_id, access_count, bookmark_count,
	created_at, updated_at, expires_at, deleted_at`

// RelicRepository — интерфейс доступа к таблице relic.
type RelicRepository interface {
	// Create сохраняет новый реликт.
	Create(ctx context.Context, rl *model.Relic) error
	// GetByID возвращает реликт по ID. Удалённые (deleted_at) не возвращаются.
	GetByID(ctx context.Context, id string) (*model.Relic, error)
	// GetAny возвращает реликт по ID, включая мягко удалённые.
	GetAny(ctx context.Context, id string) (*model.Relic, error)
	// ListChildren возвращает прямых потомков (правки) реликта.
	ListChildren(ctx context.Context, parentID string) ([]*model.Relic, error)
	// ListByRoot возвращает все реликты цепочки по root_id,
	// отсортированные по version_number и created_at.
	// Мягко удалённые звенья включаются: обход цепочки не должен
	// терять предков, они помечены deleted_at.
	ListByRoot(ctx context.Context, rootID string) ([]*model.Relic, error)
	// ListForks возвращает форки реликта (fork_of = id).
	ListForks(ctx context.Context, id string) ([]*model.Relic, error)
	// List возвращает список реликтов с фильтрацией и пагинацией.
	List(ctx context.Context, filters RelicListFilters, limit, offset int) ([]*model.Relic, error)
	// Count возвращает количество реликтов с фильтрацией.
	Count(ctx context.Context, filters RelicListFilters) (int, error)
	// UpdateMetadata обновляет изменяемые метаданные реликта.
	// Оптимистичная блокировка: обновление проходит, только если
	// updated_at в базе совпадает с rl.UpdatedAt. Иначе — ErrConflict.
	UpdateMetadata(ctx context.Context, rl *model.Relic) error
	// MarkDeleted выполняет мягкое удаление (deleted_at = now).
	MarkDeleted(ctx context.Context, id string) error
	// MarkDeletedByClient мягко удаляет все живые реликты клиента.
	// Возвращает идентификаторы удалённых реликтов для инвалидации кэша.
	MarkDeletedByClient(ctx context.Context, clientID string) ([]string, error)
	// HardDelete окончательно удаляет запись.
	HardDelete(ctx context.Context, id string) error
	// ListExpired возвращает реликты с истёкшим expires_at, ещё не удалённые.
	ListExpired(ctx context.Context, now time.Time, limit int) ([]*model.Relic, error)
	// ListSoftDeletedBefore возвращает мягко удалённые до cutoff реликты.
	ListSoftDeletedBefore(ctx context.Context, cutoff time.Time, limit int) ([]*model.Relic, error)
	// IncrementAccessCount увеличивает счётчик просмотров.
	IncrementAccessCount(ctx context.Context, id string) error
	// AdjustBookmarkCount изменяет счётчик закладок на delta.
	AdjustBookmarkCount(ctx context.Context, id string, delta int) error
	// CountByContentKey возвращает число живых реликтов, ссылающихся на ключ контента.
	CountByContentKey(ctx context.Context, contentKey string, excludeID string) (int, error)
	// WithContentKeyLock выполняет fn под advisory-блокировкой ключа контента.
	// Сериализует вставку метаданных и окончательное удаление блоба с одним
	// ключом между всеми экземплярами сервера: контент-адресуемая дедупликация
	// делает пары Put/insert и count/delete гонкоопасными без взаимного исключения.
	WithContentKeyLock(ctx context.Context, contentKey string, fn func(ctx context.Context) error) error
	// Stats возвращает агрегированную статистику для админки.
	Stats(ctx context.Context) (*RelicStats, error)
}

// RelicListFilters — фильтры для списка реликтов.
type RelicListFilters struct {
	// ClientID — только реликты указанного клиента.
	ClientID *string
	// Tag — реликты, содержащие тег.
	Tag *string
	// LanguageHint — фильтр по языку подсветки.
	LanguageHint *string
	// AccessLevel — фильтр по уровню доступа.
	AccessLevel *model.AccessLevel
	// OnlyRoots — только корневые реликты (version_number = 1, fork_of IS NULL).
	OnlyRoots bool
	// IncludeDeleted — включать мягко удалённые (для админки).
	IncludeDeleted bool
	// IncludeExpired — включать просроченные (для админки).
	IncludeExpired bool
}

// RelicStats — агрегированная статистика по реликтам.
type RelicStats struct {
	TotalRelics    int64
	ActiveRelics   int64
	DeletedRelics  int64
	ExpiredRelics  int64
	TotalSizeBytes int64
	TotalAccesses  int64
	TotalClients   int64
	TotalComments  int64
	TotalBookmarks int64
	TotalReports   int64
}

// relicRepo — реализация RelicRepository.
type relicRepo struct {
	db DBTX
}

// NewRelicRepository создаёт репозиторий реликтов.
func NewRelicRepository(db DBTX) RelicRepository {
	return &relicRepo{db: db}
}

// scanRelic сканирует строку результата в модель.
func scanRelic(row pgx.Row) (*model.Relic, error) {
	rl := &model.Relic{}
	err := row.Scan(
		&rl.ID, &rl.ContentKey, &rl.ContentType, &rl.SizeBytes, &rl.Checksum,
		&rl.ParentID, &rl.ForkOf, &rl.RootID, &rl.VersionNumber,
		&rl.Name, &rl.Description, &rl.LanguageHint, &rl.Tags, &rl.AccessLevel, &rl.PasswordHash,
		&rl.ClientID, &rl.AccessCount, &rl.BookmarkCount,
		&rl.CreatedAt, &rl.UpdatedAt, &rl.ExpiresAt, &rl.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	return rl, nil
}

func (r *relicRepo) Create(ctx context.Context, rl *model.Relic) error {
	query := `
		INSERT INTO relic (id, content_key, content_type, size_bytes, checksum,
			parent_id, fork_of, root_id, version_number,
			name, description, language_hint, tags, access_level, password_hash,
			client_id, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		rl.ID, rl.ContentKey, rl.ContentType, rl.SizeBytes, rl.Checksum,
		rl.ParentID, rl.ForkOf, rl.RootID, rl.VersionNumber,
		rl.Name, rl.Description, rl.LanguageHint, rl.Tags, rl.AccessLevel, rl.PasswordHash,
		rl.ClientID, rl.ExpiresAt,
	).Scan(&rl.CreatedAt, &rl.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: реликт с таким ID уже существует", ErrConflict)
		}
		return fmt.Errorf("ошибка создания реликта: %w", err)
	}
	return nil
}

func (r *relicRepo) GetByID(ctx context.Context, id string) (*model.Relic, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM relic
		WHERE id = $1 AND deleted_at IS NULL`, relicColumns)

	rl, err := scanRelic(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения реликта: %w", err)
	}
	return rl, nil
}

func (r *relicRepo) GetAny(ctx context.Context, id string) (*model.Relic, error) {
	query := fmt.Sprintf(`SELECT %s FROM relic WHERE id = $1`, relicColumns)

	rl, err := scanRelic(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения реликта: %w", err)
	}
	return rl, nil
}

// queryRelics выполняет запрос и сканирует все строки результата.
func (r *relicRepo) queryRelics(ctx context.Context, query string, args ...any) ([]*model.Relic, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка реликтов: %w", err)
	}
	defer rows.Close()

	var result []*model.Relic
	for rows.Next() {
		rl, err := scanRelic(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования реликта: %w", err)
		}
		result = append(result, rl)
	}
	return result, rows.Err()
}

func (r *relicRepo) ListChildren(ctx context.Context, parentID string) ([]*model.Relic, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM relic
		WHERE parent_id = $1 AND deleted_at IS NULL
		ORDER BY version_number, created_at`, relicColumns)

	return r.queryRelics(ctx, query, parentID)
}

func (r *relicRepo) ListByRoot(ctx context.Context, rootID string) ([]*model.Relic, error) {
	// Удалённые звенья не фильтруются: цепочка версий обязана
	// сохранять удалённых предков с пометкой deleted_at
	query := fmt.Sprintf(`
		SELECT %s FROM relic
		WHERE root_id = $1
		ORDER BY version_number, created_at`, relicColumns)

	return r.queryRelics(ctx, query, rootID)
}

func (r *relicRepo) ListForks(ctx context.Context, id string) ([]*model.Relic, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM relic
		WHERE fork_of = $1 AND deleted_at IS NULL
		ORDER BY created_at DESC`, relicColumns)

	return r.queryRelics(ctx, query, id)
}

// buildRelicWhere строит WHERE-условие и аргументы для фильтрации реликтов.
func buildRelicWhere(filters RelicListFilters, startArg int) (string, []any) {
	var conditions []string
	var args []any
	argNum := startArg

	if !filters.IncludeDeleted {
		conditions = append(conditions, "deleted_at IS NULL")
	}
	if !filters.IncludeExpired {
		conditions = append(conditions, "(expires_at IS NULL OR expires_at > now())")
	}
	if filters.ClientID != nil {
		conditions = append(conditions, fmt.Sprintf("client_id = $%d", argNum))
		args = append(args, *filters.ClientID)
		argNum++
	}
	if filters.Tag != nil {
		conditions = append(conditions, fmt.Sprintf("$%d = ANY(tags)", argNum))
		args = append(args, *filters.Tag)
		argNum++
	}
	if filters.LanguageHint != nil {
		conditions = append(conditions, fmt.Sprintf("language_hint = $%d", argNum))
		args = append(args, *filters.LanguageHint)
		argNum++
	}
	if filters.AccessLevel != nil {
		conditions = append(conditions, fmt.Sprintf("access_level = $%d", argNum))
		args = append(args, *filters.AccessLevel)
	}
	if filters.OnlyRoots {
		conditions = append(conditions, "version_number = 1 AND fork_of IS NULL")
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}
	return where, args
}

func (r *relicRepo) List(ctx context.Context, filters RelicListFilters, limit, offset int) ([]*model.Relic, error) {
	where, args := buildRelicWhere(filters, 1)
	argNum := len(args) + 1

	query := fmt.Sprintf(`
		SELECT %s FROM relic
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`, relicColumns, where, argNum, argNum+1)

	args = append(args, limit, offset)
	return r.queryRelics(ctx, query, args...)
}

func (r *relicRepo) Count(ctx context.Context, filters RelicListFilters) (int, error) {
	where, args := buildRelicWhere(filters, 1)
	query := fmt.Sprintf(`SELECT COUNT(*) FROM relic %s`, where)

	var count int
	if err := r.db.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("ошибка подсчёта реликтов: %w", err)
	}
	return count, nil
}

func (r *relicRepo) UpdateMetadata(ctx context.Context, rl *model.Relic) error {
	// Контент неизменяем: обновляются только метаданные.
	// updated_at в условии WHERE — оптимистичная блокировка.
	query := `
		UPDATE relic
		SET name = $3, description = $4, language_hint = $5, tags = $6,
			access_level = $7, password_hash = $8, expires_at = $9,
			updated_at = now()
		WHERE id = $1 AND updated_at = $2 AND deleted_at IS NULL
		RETURNING updated_at`

	err := r.db.QueryRow(ctx, query,
		rl.ID, rl.UpdatedAt,
		rl.Name, rl.Description, rl.LanguageHint, rl.Tags,
		rl.AccessLevel, rl.PasswordHash, rl.ExpiresAt,
	).Scan(&rl.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			// Либо записи нет, либо её изменили параллельно.
			if _, getErr := r.GetByID(ctx, rl.ID); getErr != nil {
				return ErrNotFound
			}
			return fmt.Errorf("%w: реликт был изменён параллельно", ErrConflict)
		}
		return fmt.Errorf("ошибка обновления реликта: %w", err)
	}
	return nil
}

func (r *relicRepo) MarkDeleted(ctx context.Context, id string) error {
	query := `
		UPDATE relic
		SET deleted_at = now(), updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL`

	tag, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("ошибка удаления реликта: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *relicRepo) MarkDeletedByClient(ctx context.Context, clientID string) ([]string, error) {
	query := `
		UPDATE relic
		SET deleted_at = now(), updated_at = now()
		WHERE client_id = $1 AND deleted_at IS NULL
		RETURNING id`

	rows, err := r.db.Query(ctx, query, clientID)
	if err != nil {
		return nil, fmt.Errorf("ошибка удаления реликтов клиента: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("ошибка сканирования идентификатора: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *relicRepo) HardDelete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM relic WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("ошибка окончательного удаления реликта: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *relicRepo) ListExpired(ctx context.Context, now time.Time, limit int) ([]*model.Relic, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM relic
		WHERE expires_at IS NOT NULL AND expires_at <= $1 AND deleted_at IS NULL
		ORDER BY expires_at
		LIMIT $2`, relicColumns)

	return r.queryRelics(ctx, query, now, limit)
}

func (r *relicRepo) ListSoftDeletedBefore(ctx context.Context, cutoff time.Time, limit int) ([]*model.Relic, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM relic
		WHERE deleted_at IS NOT NULL AND deleted_at <= $1
		ORDER BY deleted_at
		LIMIT $2`, relicColumns)

	return r.queryRelics(ctx, query, cutoff, limit)
}

func (r *relicRepo) IncrementAccessCount(ctx context.Context, id string) error {
	// Счётчик не трогает updated_at, чтобы не ломать оптимистичную блокировку метаданных.
	tag, err := r.db.Exec(ctx,
		`UPDATE relic SET access_count = access_count + 1 WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("ошибка инкремента счётчика просмотров: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *relicRepo) AdjustBookmarkCount(ctx context.Context, id string, delta int) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE relic SET bookmark_count = GREATEST(bookmark_count + $2, 0) WHERE id = $1`,
		id, delta)
	if err != nil {
		return fmt.Errorf("ошибка изменения счётчика закладок: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *relicRepo) CountByContentKey(ctx context.Context, contentKey string, excludeID string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM relic WHERE content_key = $1 AND id != $2`,
		contentKey, excludeID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("ошибка подсчёта ссылок на контент: %w", err)
	}
	return count, nil
}

// WithContentKeyLock держит pg_advisory_xact_lock на весь вызов fn.
// Блокировка транзакционная: снимается при коммите или откате,
// поэтому висящих блокировок при сбое соединения не остаётся.
func (r *relicRepo) WithContentKeyLock(ctx context.Context, contentKey string, fn func(ctx context.Context) error) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ошибка открытия транзакции блокировки: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // откат после коммита — no-op

	// hashtext сворачивает ключ контента в 32-битный ключ advisory-блокировки
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, contentKey); err != nil {
		return fmt.Errorf("ошибка advisory-блокировки ключа контента: %w", err)
	}

	if err := fn(ctx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *relicRepo) Stats(ctx context.Context) (*RelicStats, error) {
	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE deleted_at IS NULL AND (expires_at IS NULL OR expires_at > now())),
			COUNT(*) FILTER (WHERE deleted_at IS NOT NULL),
			COUNT(*) FILTER (WHERE deleted_at IS NULL AND expires_at IS NOT NULL AND expires_at <= now()),
			COALESCE(SUM(size_bytes) FILTER (WHERE deleted_at IS NULL), 0),
			COALESCE(SUM(access_count), 0),
			(SELECT COUNT(*) FROM client_key),
			(SELECT COUNT(*) FROM relic_comment),
			(SELECT COUNT(*) FROM client_bookmark),
			(SELECT COUNT(*) FROM relic_report)
		FROM relic`

	s := &RelicStats{}
	err := r.db.QueryRow(ctx, query).Scan(
		&s.TotalRelics, &s.ActiveRelics, &s.DeletedRelics, &s.ExpiredRelics,
		&s.TotalSizeBytes, &s.TotalAccesses,
		&s.TotalClients, &s.TotalComments, &s.TotalBookmarks, &s.TotalReports,
	)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения статистики: %w", err)
	}
	return s, nil
}
