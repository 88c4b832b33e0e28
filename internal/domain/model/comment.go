package model

import "time"

// Comment — комментарий к реликту. Поддерживает привязку к строке
// содержимого (LineNumber) и ответы на другие комментарии (ParentID).
type Comment struct {
	// ID — UUID комментария
	ID string
	// RelicID — реликт, к которому относится комментарий
	RelicID string
	// ClientID — автор
	ClientID string
	// LineNumber — номер строки содержимого (nil — комментарий ко всему реликту)
	LineNumber *int
	// ParentID — родительский комментарий для тредов (nil — верхний уровень)
	ParentID *string
	// Content — текст комментария
	Content   string
	CreatedAt time.Time
	UpdatedAt time.Time

	// AuthorName — отображаемое имя автора (join с client_key, не хранится)
	AuthorName *string
}
