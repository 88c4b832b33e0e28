package model

import "time"

// ClientKey — клиентский ключ (bearer-идентификация через заголовок X-Client-Key).
// Регистрируется при первом использовании; пароль и учётная запись не требуются.
type ClientKey struct {
	// ID — значение ключа, присланное клиентом
	ID string
	// Name — отображаемое имя (обязательно для комментирования)
	Name *string
	// RelicCount — количество реликтов, принадлежащих клиенту
	RelicCount int
	CreatedAt  time.Time
}
