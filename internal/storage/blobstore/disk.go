package blobstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// DiskStore — хранилище на локальном диске.
// Для разработки и небольших инсталляций без MinIO.
type DiskStore struct {
	// dataDir — корневая директория хранения (RS_DATA_DIR)
	dataDir string
}

// NewDiskStore создаёт DiskStore. Проверяет и создаёт директорию
// если она не существует.
func NewDiskStore(dataDir string) (*DiskStore, error) {
	if err := os.MkdirAll(dataDir, 0o750); err != nil {
		return nil, fmt.Errorf("не удалось создать директорию данных %s: %w", dataDir, err)
	}
	return &DiskStore{dataDir: dataDir}, nil
}

// fullPath возвращает абсолютный путь объекта на диске.
func (d *DiskStore) fullPath(key string) string {
	return filepath.Join(d.dataDir, filepath.FromSlash(key))
}

// Put сохраняет данные на диск.
// Паттерн: temp файл → запись → fsync → atomic rename.
// При ошибке temp файл удаляется.
func (d *DiskStore) Put(_ context.Context, data []byte) (string, string, error) {
	checksum := hashBytes(data)
	key := contentKey(checksum)
	fullPath := d.fullPath(key)

	// Объект с таким хэшем уже сохранён
	if _, err := os.Stat(fullPath); err == nil {
		return key, checksum, nil
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0o750); err != nil {
		return "", "", fmt.Errorf("ошибка создания директории объекта: %w", err)
	}

	tmpPath := fullPath + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return "", "", fmt.Errorf("ошибка создания временного файла: %w", err)
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return "", "", fmt.Errorf("ошибка записи данных: %w", err)
	}

	// fsync для гарантии записи на диск
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return "", "", fmt.Errorf("ошибка fsync: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return "", "", fmt.Errorf("ошибка закрытия файла: %w", err)
	}

	// Атомарный rename
	if err := os.Rename(tmpPath, fullPath); err != nil {
		os.Remove(tmpPath)
		return "", "", fmt.Errorf("ошибка атомарного переименования: %w", err)
	}

	return key, checksum, nil
}

func (d *DiskStore) Get(_ context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(d.fullPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка чтения объекта %s: %w", key, err)
	}
	return data, nil
}

func (d *DiskStore) Exists(_ context.Context, key string) (bool, error) {
	_, err := os.Stat(d.fullPath(key))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("ошибка проверки объекта %s: %w", key, err)
}

func (d *DiskStore) Delete(_ context.Context, key string) error {
	err := os.Remove(d.fullPath(key))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("ошибка удаления объекта %s: %w", key, err)
	}
	return nil
}
