package repository

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/bigkaa/gorelic/internal/config"
	"github.com/bigkaa/gorelic/internal/database"
	"github.com/bigkaa/gorelic/internal/domain/model"

	"github.com/jackc/pgx/v5/pgxpool"
)

// setupTestDB запускает PostgreSQL контейнер, применяет миграции.
// Возвращает pgxpool.Pool и функцию очистки.
func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()

	if os.Getenv("TEST_INTEGRATION") == "" {
		t.Skip("Пропуск интеграционного теста: TEST_INTEGRATION не установлена")
	}

	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"docker.io/postgres:17-alpine",
		postgres.WithDatabase("gorelic_test"),
		postgres.WithUsername("gorelic"),
		postgres.WithPassword("test-password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("Не удалось запустить PostgreSQL контейнер: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Ошибка остановки контейнера: %v", err)
		}
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Не удалось получить host контейнера: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Не удалось получить port контейнера: %v", err)
	}

	// Настраиваем env для config.Load()
	os.Setenv("RS_DB_HOST", host)
	os.Setenv("RS_DB_PORT", port.Port())
	os.Setenv("RS_DB_NAME", "gorelic_test")
	os.Setenv("RS_DB_USER", "gorelic")
	os.Setenv("RS_DB_PASSWORD", "test-password")
	os.Setenv("RS_DB_SSL_MODE", "disable")
	os.Setenv("RS_STORAGE_BACKEND", "disk")
	os.Setenv("RS_DATA_DIR", t.TempDir())

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Ошибка загрузки конфигурации: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	// Применяем миграции
	if err := database.Migrate(cfg, logger); err != nil {
		t.Fatalf("Ошибка миграций: %v", err)
	}

	// Подключаемся
	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		t.Fatalf("Ошибка подключения: %v", err)
	}
	t.Cleanup(func() { pool.Close() })

	return pool
}

// newRelicID генерирует 32-символьный hex ID для тестов.
func newRelicID(t *testing.T) string {
	t.Helper()
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		t.Fatalf("Ошибка генерации ID: %v", err)
	}
	return hex.EncodeToString(buf)
}

// testRelic создаёт минимальный валидный реликт для вставки.
func testRelic(t *testing.T, id string) *model.Relic {
	t.Helper()
	return &model.Relic{
		ID:            id,
		ContentKey:    "blobs/" + id,
		ContentType:   "text/plain",
		SizeBytes:     42,
		Checksum:      "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		RootID:        id,
		VersionNumber: 1,
		Tags:          []string{},
		AccessLevel:   model.AccessPublic,
	}
}

// --- Тесты RelicRepository ---

func TestRelicCRUD(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	repo := NewRelicRepository(pool)

	id := newRelicID(t)
	rl := testRelic(t, id)
	name := "test.txt"
	rl.Name = &name
	rl.Tags = []string{"go", "test"}

	// Create
	if err := repo.Create(ctx, rl); err != nil {
		t.Fatalf("Create() ошибка: %v", err)
	}
	if rl.CreatedAt.IsZero() {
		t.Error("CreatedAt не установлен")
	}

	// Повторный Create — конфликт
	if err := repo.Create(ctx, testRelic(t, id)); !errors.Is(err, ErrConflict) {
		t.Errorf("повторный Create() = %v, ожидается ErrConflict", err)
	}

	// GetByID
	got, err := repo.GetByID(ctx, id)
	if err != nil {
		t.Fatalf("GetByID() ошибка: %v", err)
	}
	if got.Name == nil || *got.Name != "test.txt" {
		t.Errorf("Name = %v, ожидается test.txt", got.Name)
	}
	if len(got.Tags) != 2 {
		t.Errorf("Tags = %v, ожидается 2 элемента", got.Tags)
	}
	if got.RootID != id {
		t.Errorf("RootID = %q, ожидается %q", got.RootID, id)
	}

	// UpdateMetadata
	desc := "описание"
	got.Description = &desc
	got.Tags = append(got.Tags, "updated")
	if err := repo.UpdateMetadata(ctx, got); err != nil {
		t.Fatalf("UpdateMetadata() ошибка: %v", err)
	}

	// Повторное обновление со старым updated_at — конфликт CAS
	stale := *got
	stale.UpdatedAt = rl.UpdatedAt
	if err := repo.UpdateMetadata(ctx, &stale); !errors.Is(err, ErrConflict) {
		t.Errorf("UpdateMetadata() со старым updated_at = %v, ожидается ErrConflict", err)
	}

	// MarkDeleted
	if err := repo.MarkDeleted(ctx, id); err != nil {
		t.Fatalf("MarkDeleted() ошибка: %v", err)
	}
	if _, err := repo.GetByID(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByID() после MarkDeleted = %v, ожидается ErrNotFound", err)
	}

	// GetAny видит удалённый
	deleted, err := repo.GetAny(ctx, id)
	if err != nil {
		t.Fatalf("GetAny() ошибка: %v", err)
	}
	if deleted.DeletedAt == nil {
		t.Error("DeletedAt не установлен после MarkDeleted")
	}

	// HardDelete
	if err := repo.HardDelete(ctx, id); err != nil {
		t.Fatalf("HardDelete() ошибка: %v", err)
	}
	if _, err := repo.GetAny(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetAny() после HardDelete = %v, ожидается ErrNotFound", err)
	}
}

func TestRelicLineage(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	repo := NewRelicRepository(pool)

	rootID := newRelicID(t)
	root := testRelic(t, rootID)
	if err := repo.Create(ctx, root); err != nil {
		t.Fatalf("Create(root) ошибка: %v", err)
	}

	// Правка (v2)
	editID := newRelicID(t)
	edit := testRelic(t, editID)
	edit.ParentID = &rootID
	edit.RootID = rootID
	edit.VersionNumber = 2
	if err := repo.Create(ctx, edit); err != nil {
		t.Fatalf("Create(edit) ошибка: %v", err)
	}

	// Форк
	forkID := newRelicID(t)
	fork := testRelic(t, forkID)
	fork.ForkOf = &rootID
	fork.RootID = forkID
	if err := repo.Create(ctx, fork); err != nil {
		t.Fatalf("Create(fork) ошибка: %v", err)
	}

	// ListChildren
	children, err := repo.ListChildren(ctx, rootID)
	if err != nil {
		t.Fatalf("ListChildren() ошибка: %v", err)
	}
	if len(children) != 1 || children[0].ID != editID {
		t.Errorf("ListChildren() = %d записей, ожидается правка %s", len(children), editID)
	}

	// ListByRoot возвращает цепочку в порядке версий
	chain, err := repo.ListByRoot(ctx, rootID)
	if err != nil {
		t.Fatalf("ListByRoot() ошибка: %v", err)
	}
	if len(chain) != 2 {
		t.Fatalf("ListByRoot() = %d записей, ожидается 2", len(chain))
	}
	if chain[0].ID != rootID || chain[1].ID != editID {
		t.Errorf("ListByRoot() порядок = [%s, %s], ожидается [root, edit]", chain[0].ID, chain[1].ID)
	}

	// ListForks
	forks, err := repo.ListForks(ctx, rootID)
	if err != nil {
		t.Fatalf("ListForks() ошибка: %v", err)
	}
	if len(forks) != 1 || forks[0].ID != forkID {
		t.Errorf("ListForks() = %d записей, ожидается форк %s", len(forks), forkID)
	}
}

func TestRelicListFilters(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	repo := NewRelicRepository(pool)
	keys := NewClientKeyRepository(pool)

	clientID := uuid.New().String()
	if err := keys.Ensure(ctx, clientID); err != nil {
		t.Fatalf("Ensure() ошибка: %v", err)
	}

	// Публичный реликт клиента с тегом
	id1 := newRelicID(t)
	rl1 := testRelic(t, id1)
	rl1.ClientID = &clientID
	rl1.Tags = []string{"golang"}
	if err := repo.Create(ctx, rl1); err != nil {
		t.Fatalf("Create(rl1) ошибка: %v", err)
	}

	// Приватный реликт без тегов
	id2 := newRelicID(t)
	rl2 := testRelic(t, id2)
	rl2.AccessLevel = model.AccessPrivate
	if err := repo.Create(ctx, rl2); err != nil {
		t.Fatalf("Create(rl2) ошибка: %v", err)
	}

	// Просроченный реликт
	id3 := newRelicID(t)
	rl3 := testRelic(t, id3)
	past := time.Now().Add(-time.Hour)
	rl3.ExpiresAt = &past
	if err := repo.Create(ctx, rl3); err != nil {
		t.Fatalf("Create(rl3) ошибка: %v", err)
	}

	// Фильтр по тегу
	tag := "golang"
	byTag, err := repo.List(ctx, RelicListFilters{Tag: &tag}, 10, 0)
	if err != nil {
		t.Fatalf("List(tag) ошибка: %v", err)
	}
	if len(byTag) != 1 || byTag[0].ID != id1 {
		t.Errorf("List(tag=golang) = %d записей, ожидается 1", len(byTag))
	}

	// Фильтр по клиенту
	byClient, err := repo.List(ctx, RelicListFilters{ClientID: &clientID}, 10, 0)
	if err != nil {
		t.Fatalf("List(client) ошибка: %v", err)
	}
	if len(byClient) != 1 || byClient[0].ID != id1 {
		t.Errorf("List(client) = %d записей, ожидается 1", len(byClient))
	}

	// Просроченные не видны без IncludeExpired
	all, err := repo.List(ctx, RelicListFilters{}, 10, 0)
	if err != nil {
		t.Fatalf("List() ошибка: %v", err)
	}
	for _, rl := range all {
		if rl.ID == id3 {
			t.Error("просроченный реликт виден в списке без IncludeExpired")
		}
	}

	// ListExpired видит просроченный
	expired, err := repo.ListExpired(ctx, time.Now(), 10)
	if err != nil {
		t.Fatalf("ListExpired() ошибка: %v", err)
	}
	found := false
	for _, rl := range expired {
		if rl.ID == id3 {
			found = true
		}
	}
	if !found {
		t.Error("ListExpired() не вернул просроченный реликт")
	}
}

func TestRelicCounters(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	repo := NewRelicRepository(pool)

	id := newRelicID(t)
	if err := repo.Create(ctx, testRelic(t, id)); err != nil {
		t.Fatalf("Create() ошибка: %v", err)
	}

	if err := repo.IncrementAccessCount(ctx, id); err != nil {
		t.Fatalf("IncrementAccessCount() ошибка: %v", err)
	}
	if err := repo.AdjustBookmarkCount(ctx, id, 1); err != nil {
		t.Fatalf("AdjustBookmarkCount(+1) ошибка: %v", err)
	}
	// Счётчик закладок не уходит в минус
	if err := repo.AdjustBookmarkCount(ctx, id, -5); err != nil {
		t.Fatalf("AdjustBookmarkCount(-5) ошибка: %v", err)
	}

	got, err := repo.GetByID(ctx, id)
	if err != nil {
		t.Fatalf("GetByID() ошибка: %v", err)
	}
	if got.AccessCount != 1 {
		t.Errorf("AccessCount = %d, ожидается 1", got.AccessCount)
	}
	if got.BookmarkCount != 0 {
		t.Errorf("BookmarkCount = %d, ожидается 0", got.BookmarkCount)
	}
}

// --- Тесты комментариев и закладок ---

func TestCommentLifecycle(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	relics := NewRelicRepository(pool)
	keys := NewClientKeyRepository(pool)
	comments := NewCommentRepository(pool)

	clientID := uuid.New().String()
	if err := keys.Ensure(ctx, clientID); err != nil {
		t.Fatalf("Ensure() ошибка: %v", err)
	}
	relicID := newRelicID(t)
	if err := relics.Create(ctx, testRelic(t, relicID)); err != nil {
		t.Fatalf("Create(relic) ошибка: %v", err)
	}

	line := 3
	c := &model.Comment{
		ID:         uuid.New().String(),
		RelicID:    relicID,
		ClientID:   clientID,
		LineNumber: &line,
		Content:    "комментарий к строке",
	}
	if err := comments.Create(ctx, c); err != nil {
		t.Fatalf("Create(comment) ошибка: %v", err)
	}

	// Ответ на комментарий
	reply := &model.Comment{
		ID:       uuid.New().String(),
		RelicID:  relicID,
		ClientID: clientID,
		ParentID: &c.ID,
		Content:  "ответ",
	}
	if err := comments.Create(ctx, reply); err != nil {
		t.Fatalf("Create(reply) ошибка: %v", err)
	}

	list, err := comments.ListByRelic(ctx, relicID)
	if err != nil {
		t.Fatalf("ListByRelic() ошибка: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("ListByRelic() = %d записей, ожидается 2", len(list))
	}

	// Обновление чужим клиентом — ErrNotFound
	if _, err := comments.Update(ctx, c.ID, "другой-клиент", "взлом"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Update() чужим клиентом = %v, ожидается ErrNotFound", err)
	}

	// Удаление родителя каскадно удаляет ответ
	if err := comments.Delete(ctx, c.ID, clientID); err != nil {
		t.Fatalf("Delete() ошибка: %v", err)
	}
	list, err = comments.ListByRelic(ctx, relicID)
	if err != nil {
		t.Fatalf("ListByRelic() ошибка: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("после каскадного удаления осталось %d комментариев", len(list))
	}
}

func TestBookmarkUnique(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	relics := NewRelicRepository(pool)
	keys := NewClientKeyRepository(pool)
	bookmarks := NewBookmarkRepository(pool)

	clientID := uuid.New().String()
	if err := keys.Ensure(ctx, clientID); err != nil {
		t.Fatalf("Ensure() ошибка: %v", err)
	}
	relicID := newRelicID(t)
	if err := relics.Create(ctx, testRelic(t, relicID)); err != nil {
		t.Fatalf("Create(relic) ошибка: %v", err)
	}

	b := &model.Bookmark{ID: uuid.New().String(), ClientID: clientID, RelicID: relicID}
	if err := bookmarks.Create(ctx, b); err != nil {
		t.Fatalf("Create(bookmark) ошибка: %v", err)
	}

	// Дубликат — конфликт
	dup := &model.Bookmark{ID: uuid.New().String(), ClientID: clientID, RelicID: relicID}
	if err := bookmarks.Create(ctx, dup); !errors.Is(err, ErrConflict) {
		t.Errorf("повторный Create(bookmark) = %v, ожидается ErrConflict", err)
	}

	exists, err := bookmarks.Exists(ctx, clientID, relicID)
	if err != nil {
		t.Fatalf("Exists() ошибка: %v", err)
	}
	if !exists {
		t.Error("Exists() = false, ожидается true")
	}

	if err := bookmarks.Delete(ctx, clientID, relicID); err != nil {
		t.Fatalf("Delete(bookmark) ошибка: %v", err)
	}
	if err := bookmarks.Delete(ctx, clientID, relicID); !errors.Is(err, ErrNotFound) {
		t.Errorf("повторный Delete(bookmark) = %v, ожидается ErrNotFound", err)
	}
}
