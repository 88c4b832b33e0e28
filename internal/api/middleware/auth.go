// auth.go — аутентификация по клиентскому ключу X-Client-Key.
//
// Модель bearer-ключа: клиент сам генерирует произвольный ключ и передаёт
// его в заголовке. Ключ регистрируется при первом использовании
// (get-or-create), пароли и сессии отсутствуют. Администраторы — ключи
// из списка RS_ADMIN_CLIENT_IDS.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	apierrors "github.com/bigkaa/gorelic/internal/api/errors"
	"github.com/bigkaa/gorelic/internal/repository"
)

// contextKey — тип для ключей контекста (избегаем коллизий).
type contextKey string

const (
	// ContextKeyClientID — идентификатор клиента в контексте запроса.
	ContextKeyClientID contextKey = "client_id"
	// ContextKeyIsAdmin — признак администратора в контексте запроса.
	ContextKeyIsAdmin contextKey = "is_admin"
)

// HeaderClientKey — заголовок с клиентским ключом.
const HeaderClientKey = "X-Client-Key"

// maxClientKeyLength — предел длины ключа (ширина колонки client_key.id).
const maxClientKeyLength = 64

// ClientKeyAuth — middleware аутентификации по клиентскому ключу.
type ClientKeyAuth struct {
	clients repository.ClientKeyRepository
	// isAdmin — проверка ключа на принадлежность к администраторам
	isAdmin func(string) bool
	logger  *slog.Logger
}

// NewClientKeyAuth создаёт middleware клиентских ключей.
func NewClientKeyAuth(clients repository.ClientKeyRepository, isAdmin func(string) bool, logger *slog.Logger) *ClientKeyAuth {
	return &ClientKeyAuth{
		clients: clients,
		isAdmin: isAdmin,
		logger:  logger.With(slog.String("component", "client_auth")),
	}
}

// validClientKey проверяет формат ключа: непустой, не длиннее 64 символов,
// без пробельных и управляющих символов.
func validClientKey(key string) bool {
	if key == "" || len(key) > maxClientKeyLength {
		return false
	}
	for _, r := range key {
		if r <= ' ' || r == 0x7f {
			return false
		}
	}
	return true
}

// Middleware извлекает X-Client-Key и помещает идентификатор клиента
// в контекст. Ключ регистрируется при первом использовании.
// Запросы без заголовка проходят анонимно — обязательность ключа
// обеспечивает RequireClient на конкретных маршрутах.
func (a *ClientKeyAuth) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := strings.TrimSpace(r.Header.Get(HeaderClientKey))
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}
			if !validClientKey(key) {
				apierrors.ValidationError(w, "недопустимый формат X-Client-Key")
				return
			}

			// Регистрация при первом использовании
			if err := a.clients.Ensure(r.Context(), key); err != nil {
				a.logger.Error("Ошибка регистрации клиентского ключа",
					slog.String("error", err.Error()),
				)
				apierrors.InternalError(w, "ошибка регистрации клиентского ключа")
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyClientID, key)
			ctx = context.WithValue(ctx, ContextKeyIsAdmin, a.isAdmin(key))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireClient возвращает middleware, отклоняющий запросы без
// клиентского ключа. Используется ПОСЛЕ Middleware().
func RequireClient() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if ClientIDFrom(r.Context()) == "" {
				apierrors.Unauthorized(w, "требуется заголовок X-Client-Key")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin возвращает middleware, пропускающий только администраторов.
// Используется ПОСЛЕ Middleware().
func RequireAdmin() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if ClientIDFrom(r.Context()) == "" {
				apierrors.Unauthorized(w, "требуется заголовок X-Client-Key")
				return
			}
			if !IsAdminFrom(r.Context()) {
				apierrors.Forbidden(w, "требуются права администратора")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientIDFrom извлекает идентификатор клиента из контекста.
// Возвращает пустую строку для анонимных запросов.
func ClientIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(ContextKeyClientID).(string)
	return id
}

// IsAdminFrom извлекает признак администратора из контекста.
func IsAdminFrom(ctx context.Context) bool {
	isAdmin, _ := ctx.Value(ContextKeyIsAdmin).(bool)
	return isAdmin
}
