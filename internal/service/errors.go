// errors.go — ошибки бизнес-логики сервисного слоя.
package service

import (
	"fmt"

	apierrors "github.com/bigkaa/gorelic/internal/api/errors"
)

// RelicError — ошибка сервисного слоя с HTTP-кодом.
// Обработчики транслируют её в ответ через api/errors.WriteError.
type RelicError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *RelicError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Конструкторы типовых ошибок.

func errNotFound(message string) *RelicError {
	return &RelicError{StatusCode: 404, Code: apierrors.CodeNotFound, Message: message}
}

func errGone(message string) *RelicError {
	return &RelicError{StatusCode: 410, Code: apierrors.CodeGone, Message: message}
}

func errValidation(message string) *RelicError {
	return &RelicError{StatusCode: 400, Code: apierrors.CodeValidationError, Message: message}
}

func errUnauthorized(message string) *RelicError {
	return &RelicError{StatusCode: 401, Code: apierrors.CodeUnauthorized, Message: message}
}

func errForbidden(message string) *RelicError {
	return &RelicError{StatusCode: 403, Code: apierrors.CodeForbidden, Message: message}
}

func errConflict(message string) *RelicError {
	return &RelicError{StatusCode: 409, Code: apierrors.CodeConflict, Message: message}
}

func errFileTooLarge(message string) *RelicError {
	return &RelicError{StatusCode: 413, Code: apierrors.CodeFileTooLarge, Message: message}
}

// errStorageWrite — хранилище контента отклонило запись.
// Не ретраится автоматически, поднимается вызывающему.
func errStorageWrite(message string) *RelicError {
	return &RelicError{StatusCode: 500, Code: apierrors.CodeStorageWrite, Message: message}
}

// errLineageCorruption — нарушение целостности цепочки версий.
// Защитная проверка, при корректных записях не срабатывает.
func errLineageCorruption(message string) *RelicError {
	return &RelicError{StatusCode: 500, Code: apierrors.CodeLineageCorruption, Message: message}
}

func errInternal(message string) *RelicError {
	return &RelicError{StatusCode: 500, Code: apierrors.CodeInternalError, Message: message}
}
