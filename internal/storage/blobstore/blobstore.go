// Пакет blobstore — контент-адресуемое хранилище содержимого реликтов.
// Содержимое неизменяемо: ключ объекта выводится из SHA-256 хэша,
// повторная загрузка одинаковых байтов идемпотентна.
// Два бэкенда: S3-совместимое хранилище (MinIO) и локальный диск.
package blobstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
)

// ErrNotFound — объект с таким ключом отсутствует в хранилище.
var ErrNotFound = errors.New("объект не найден в хранилище")

// Store — интерфейс контент-адресуемого хранилища.
type Store interface {
	// Put сохраняет данные и возвращает ключ объекта и SHA-256 хэш.
	// Повторное сохранение тех же байтов возвращает тот же ключ.
	Put(ctx context.Context, data []byte) (key string, checksum string, err error)
	// Get возвращает содержимое объекта по ключу.
	Get(ctx context.Context, key string) ([]byte, error)
	// Exists проверяет наличие объекта.
	Exists(ctx context.Context, key string) (bool, error)
	// Delete удаляет объект. Отсутствующий объект — не ошибка.
	Delete(ctx context.Context, key string) error
}

// contentKey строит ключ объекта из SHA-256 хэша.
// Двухуровневое шардирование по первым байтам хэша,
// чтобы не складывать все объекты в один префикс.
// Пример: blobs/e3/b0/e3b0c44298fc...
func contentKey(checksum string) string {
	return fmt.Sprintf("blobs/%s/%s/%s", checksum[:2], checksum[2:4], checksum)
}

// hashBytes возвращает hex-представление SHA-256 хэша данных.
func hashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
