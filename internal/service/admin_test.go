package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/bigkaa/gorelic/internal/domain/model"
	"github.com/bigkaa/gorelic/internal/repository"
)

// fakeClientKeyRepo — клиентские ключи в памяти.
type fakeClientKeyRepo struct {
	mu   sync.Mutex
	keys map[string]*model.ClientKey
}

func newFakeClientKeyRepo() *fakeClientKeyRepo {
	return &fakeClientKeyRepo{keys: make(map[string]*model.ClientKey)}
}

func (f *fakeClientKeyRepo) Ensure(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.keys[id]; !ok {
		f.keys[id] = &model.ClientKey{ID: id, CreatedAt: time.Now()}
	}
	return nil
}

func (f *fakeClientKeyRepo) GetByID(_ context.Context, id string) (*model.ClientKey, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key, ok := f.keys[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *key
	return &cp, nil
}

func (f *fakeClientKeyRepo) UpdateName(_ context.Context, id string, name *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key, ok := f.keys[id]
	if !ok {
		return repository.ErrNotFound
	}
	key.Name = name
	return nil
}

func (f *fakeClientKeyRepo) List(_ context.Context, _, _ int) ([]*model.ClientKey, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []*model.ClientKey
	for _, key := range f.keys {
		cp := *key
		result = append(result, &cp)
	}
	return result, nil
}

func (f *fakeClientKeyRepo) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.keys[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.keys, id)
	return nil
}

// fakeReportRepo — жалобы в памяти.
type fakeReportRepo struct {
	mu      sync.Mutex
	reports map[string]*model.Report
}

func newFakeReportRepo() *fakeReportRepo {
	return &fakeReportRepo{reports: make(map[string]*model.Report)}
}

func (f *fakeReportRepo) Create(_ context.Context, rep *model.Report) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *rep
	f.reports[rep.ID] = &cp
	return nil
}

func (f *fakeReportRepo) List(_ context.Context, _, _ int) ([]*model.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []*model.Report
	for _, rep := range f.reports {
		cp := *rep
		result = append(result, &cp)
	}
	return result, nil
}

func (f *fakeReportRepo) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.reports[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.reports, id)
	return nil
}

func newTestAdminService() (*AdminService, *RelicService, *fakeRelicRepo, *fakeClientKeyRepo, *CacheService) {
	repo := newFakeRelicRepo()
	blobs := newFakeBlobStore()
	clients := newFakeClientKeyRepo()
	cache := NewCacheService(100, time.Minute)
	relicSvc := NewRelicService(testConfig(), repo, blobs, cache, testLogger())
	adminSvc := NewAdminService(repo, clients, newFakeReportRepo(), blobs, cache, testLogger())
	return adminSvc, relicSvc, repo, clients, cache
}

func TestDeleteClient_CascadeRelics(t *testing.T) {
	ctx := context.Background()
	admin, relics, repo, clients, cache := newTestAdminService()

	if err := clients.Ensure(ctx, "client-a"); err != nil {
		t.Fatal(err)
	}
	if err := clients.Ensure(ctx, "client-b"); err != nil {
		t.Fatal(err)
	}

	mine, rerr := relics.CreateOriginal(ctx, CreateParams{
		Data:     []byte("содержимое клиента A"),
		ClientID: strPtr("client-a"),
	})
	if rerr != nil {
		t.Fatalf("CreateOriginal() error = %v", rerr)
	}
	other, rerr := relics.CreateOriginal(ctx, CreateParams{
		Data:     []byte("содержимое клиента B"),
		ClientID: strPtr("client-b"),
	})
	if rerr != nil {
		t.Fatalf("CreateOriginal() error = %v", rerr)
	}

	// Прогреваем кэш метаданных
	if _, rerr := relics.Get(ctx, mine.ID, "", false); rerr != nil {
		t.Fatalf("Get() error = %v", rerr)
	}

	if rerr := admin.DeleteClient(ctx, "client-a", true); rerr != nil {
		t.Fatalf("DeleteClient() error = %v", rerr)
	}

	if _, err := clients.GetByID(ctx, "client-a"); err == nil {
		t.Error("клиент остался после удаления")
	}
	if _, err := repo.GetByID(ctx, mine.ID); err == nil {
		t.Error("реликт клиента не удалён при delete_relics=true")
	}
	stored, err := repo.GetAny(ctx, mine.ID)
	if err != nil || stored.DeletedAt == nil {
		t.Error("реликт клиента должен быть мягко удалён с пометкой deleted_at")
	}
	if _, ok := cache.Get(mine.ID); ok {
		t.Error("кэш метаданных не инвалидирован для удалённого реликта")
	}
	if _, err := repo.GetByID(ctx, other.ID); err != nil {
		t.Error("реликт другого клиента не должен затрагиваться")
	}
}

func TestDeleteClient_KeepsRelics(t *testing.T) {
	ctx := context.Background()
	admin, relics, repo, clients, _ := newTestAdminService()

	if err := clients.Ensure(ctx, "client-a"); err != nil {
		t.Fatal(err)
	}
	rl, rerr := relics.CreateOriginal(ctx, CreateParams{
		Data:     []byte("содержимое"),
		ClientID: strPtr("client-a"),
	})
	if rerr != nil {
		t.Fatalf("CreateOriginal() error = %v", rerr)
	}

	if rerr := admin.DeleteClient(ctx, "client-a", false); rerr != nil {
		t.Fatalf("DeleteClient() error = %v", rerr)
	}

	if _, err := clients.GetByID(ctx, "client-a"); err == nil {
		t.Error("клиент остался после удаления")
	}
	if _, err := repo.GetByID(ctx, rl.ID); err != nil {
		t.Error("реликт должен сохраняться при delete_relics=false")
	}
}

func TestDeleteClient_NotFound(t *testing.T) {
	ctx := context.Background()
	admin, _, _, _, _ := newTestAdminService()

	rerr := admin.DeleteClient(ctx, "нет-такого", false)
	if rerr == nil || rerr.StatusCode != 404 {
		t.Errorf("DeleteClient() = %v, ожидается 404", rerr)
	}
}
