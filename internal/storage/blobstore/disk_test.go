package blobstore

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// TestNewDiskStore_CreatesDirectory проверяет создание директории данных.
func TestNewDiskStore_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")

	if _, err := NewDiskStore(dir); err != nil {
		t.Fatalf("ошибка создания DiskStore: %v", err)
	}

	info, err := os.Stat(dir)
	if err != nil {
		t.Fatalf("директория не создана: %v", err)
	}
	if !info.IsDir() {
		t.Fatal("путь не является директорией")
	}
}

// TestDiskStore_PutGet проверяет запись и чтение объекта.
func TestDiskStore_PutGet(t *testing.T) {
	st, err := NewDiskStore(t.TempDir())
	if err != nil {
		t.Fatalf("ошибка создания DiskStore: %v", err)
	}
	ctx := context.Background()

	content := []byte("Hello, World! Тестовые данные для проверки.")

	key, checksum, err := st.Put(ctx, content)
	if err != nil {
		t.Fatalf("ошибка записи: %v", err)
	}

	// Ключ выводится из SHA-256 хэша
	expectedHash := sha256.Sum256(content)
	expectedChecksum := hex.EncodeToString(expectedHash[:])
	if checksum != expectedChecksum {
		t.Errorf("checksum: ожидалось %s, получено %s", expectedChecksum, checksum)
	}
	if !strings.HasSuffix(key, checksum) {
		t.Errorf("ключ %s не заканчивается хэшем %s", key, checksum)
	}
	if !strings.HasPrefix(key, "blobs/"+checksum[:2]+"/"+checksum[2:4]+"/") {
		t.Errorf("ключ %s не следует схеме шардирования", key)
	}

	got, err := st.Get(ctx, key)
	if err != nil {
		t.Fatalf("ошибка чтения: %v", err)
	}
	if !bytes.Equal(got, content) {
		t.Error("прочитанные данные не совпадают с записанными")
	}
}

// TestDiskStore_PutIdempotent проверяет идемпотентность повторной записи.
func TestDiskStore_PutIdempotent(t *testing.T) {
	st, err := NewDiskStore(t.TempDir())
	if err != nil {
		t.Fatalf("ошибка создания DiskStore: %v", err)
	}
	ctx := context.Background()

	content := []byte("одинаковое содержимое")

	key1, sum1, err := st.Put(ctx, content)
	if err != nil {
		t.Fatalf("ошибка первой записи: %v", err)
	}
	key2, sum2, err := st.Put(ctx, content)
	if err != nil {
		t.Fatalf("ошибка повторной записи: %v", err)
	}

	if key1 != key2 || sum1 != sum2 {
		t.Errorf("повторная запись вернула другой ключ: %s != %s", key1, key2)
	}
}

// TestDiskStore_GetMissing проверяет чтение несуществующего объекта.
func TestDiskStore_GetMissing(t *testing.T) {
	st, err := NewDiskStore(t.TempDir())
	if err != nil {
		t.Fatalf("ошибка создания DiskStore: %v", err)
	}

	_, err = st.Get(context.Background(), "blobs/ab/cd/abcd")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() несуществующего объекта = %v, ожидается ErrNotFound", err)
	}
}

// TestDiskStore_ExistsDelete проверяет Exists и Delete.
func TestDiskStore_ExistsDelete(t *testing.T) {
	st, err := NewDiskStore(t.TempDir())
	if err != nil {
		t.Fatalf("ошибка создания DiskStore: %v", err)
	}
	ctx := context.Background()

	key, _, err := st.Put(ctx, []byte("данные"))
	if err != nil {
		t.Fatalf("ошибка записи: %v", err)
	}

	exists, err := st.Exists(ctx, key)
	if err != nil {
		t.Fatalf("ошибка Exists: %v", err)
	}
	if !exists {
		t.Error("Exists() = false для записанного объекта")
	}

	if err := st.Delete(ctx, key); err != nil {
		t.Fatalf("ошибка удаления: %v", err)
	}

	exists, err = st.Exists(ctx, key)
	if err != nil {
		t.Fatalf("ошибка Exists после удаления: %v", err)
	}
	if exists {
		t.Error("Exists() = true после удаления")
	}

	// Повторное удаление — не ошибка
	if err := st.Delete(ctx, key); err != nil {
		t.Errorf("повторный Delete() = %v, ожидается nil", err)
	}
}

// TestDiskStore_NoTempLeftover проверяет отсутствие temp файлов после записи.
func TestDiskStore_NoTempLeftover(t *testing.T) {
	dir := t.TempDir()
	st, err := NewDiskStore(dir)
	if err != nil {
		t.Fatalf("ошибка создания DiskStore: %v", err)
	}

	if _, _, err := st.Put(context.Background(), []byte("abc")); err != nil {
		t.Fatalf("ошибка записи: %v", err)
	}

	err = filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if strings.HasSuffix(path, ".tmp") {
			t.Errorf("остался временный файл: %s", path)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("ошибка обхода директории: %v", err)
	}
}
