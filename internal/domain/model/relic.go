package model

import "time"

// AccessLevel — уровень видимости реликта.
// Управляет только обнаруживаемостью (листинг публичных реликтов),
// а не доступом к содержимому: для private реликтов сам ID служит bearer-токеном.
type AccessLevel string

// Допустимые уровни видимости.
const (
	AccessPublic   AccessLevel = "public"
	AccessUnlisted AccessLevel = "unlisted"
	AccessPrivate  AccessLevel = "private"
)

// ValidAccessLevel проверяет, является ли значение допустимым уровнем видимости.
func ValidAccessLevel(l AccessLevel) bool {
	switch l {
	case AccessPublic, AccessUnlisted, AccessPrivate:
		return true
	}
	return false
}

// Relic — неизменяемая единица хранения: запись реликта в таблице relic.
//
// Поля идентичности (ID, ContentKey, ContentType, SizeBytes, Checksum,
// ParentID, ForkOf, RootID, VersionNumber) устанавливаются один раз при
// создании и никогда не меняются. Обновляться могут только метаданные:
// имя, описание, теги, уровень видимости, срок хранения, пароль.
type Relic struct {
	// ID — 32 hex-символа, 128 бит криптографической энтропии
	ID string
	// ContentKey — контент-адресуемый ключ блоба в Content Store
	// (blobs/<h[:2]>/<h[2:4]>/<sha256>)
	ContentKey string
	// ContentType — MIME-тип содержимого
	ContentType string
	// SizeBytes — размер блоба в байтах
	SizeBytes int64
	// Checksum — SHA-256 содержимого
	Checksum string

	// --- Lineage ---

	// ParentID — ссылка на родителя в линейной цепочке версий (edit).
	// nil для оригиналов и форков.
	ParentID *string
	// ForkOf — ссылка на источник форка. Наследуется потомками
	// внутри одной линейной цепочки.
	ForkOf *string
	// RootID — первый реликт текущей линейной цепочки.
	// Для оригиналов и форков равен собственному ID.
	RootID string
	// VersionNumber — позиция в линейной цепочке, начиная с 1
	VersionNumber int

	// --- Изменяемые метаданные ---

	// Name — отображаемое имя (имя файла при загрузке)
	Name *string
	// Description — описание реликта
	Description *string
	// LanguageHint — подсказка языка для подсветки синтаксиса
	LanguageHint *string
	// Tags — нормализованные теги (lowercase)
	Tags []string
	// AccessLevel — уровень видимости
	AccessLevel AccessLevel
	// PasswordHash — SHA-256 пароля (опциональная защита чтения)
	PasswordHash *string

	// --- Владение и статистика ---

	// ClientID — владелец (nil для анонимных реликтов)
	ClientID *string
	// AccessCount — количество просмотров метаданных
	AccessCount int64
	// BookmarkCount — количество закладок
	BookmarkCount int64

	// --- Жизненный цикл ---

	CreatedAt time.Time
	UpdatedAt time.Time
	// ExpiresAt — срок хранения (nil — бессрочно)
	ExpiresAt *time.Time
	// DeletedAt — время soft delete (nil — активен)
	DeletedAt *time.Time
}

// Deleted сообщает, помечен ли реликт как удалённый.
func (r *Relic) Deleted() bool {
	return r.DeletedAt != nil
}

// Expired сообщает, истёк ли срок хранения реликта на момент now.
func (r *Relic) Expired(now time.Time) bool {
	return r.ExpiresAt != nil && now.After(*r.ExpiresAt)
}

// IsRoot сообщает, является ли реликт корнем линейной цепочки.
func (r *Relic) IsRoot() bool {
	return r.ParentID == nil
}
