package model

import "time"

// Report — жалоба на недопустимое содержимое реликта.
// Создаётся анонимно, обрабатывается администратором.
type Report struct {
	// ID — UUID жалобы
	ID string
	// RelicID — реликт, на который подана жалоба
	RelicID string
	// Reason — причина жалобы
	Reason    string
	CreatedAt time.Time
}
