package model

import "time"

// Bookmark — закладка клиента на реликт.
type Bookmark struct {
	// ID — UUID закладки
	ID string
	// ClientID — владелец закладки
	ClientID string
	// RelicID — реликт
	RelicID   string
	CreatedAt time.Time
}
