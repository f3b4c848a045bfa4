package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorCode string

const (
	ErrCodeNotFound      ErrorCode = "NOT_FOUND"
	ErrCodeUnauthorized  ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden     ErrorCode = "FORBIDDEN"
	ErrCodeBadRequest    ErrorCode = "BAD_REQUEST"
	ErrCodeConflict      ErrorCode = "CONFLICT"
	ErrCodeExpired       ErrorCode = "EXPIRED"
	ErrCodeInternal      ErrorCode = "INTERNAL_ERROR"
	ErrCodeValidation    ErrorCode = "VALIDATION_ERROR"
	ErrCodeIntegrity     ErrorCode = "INTEGRITY_ERROR"
	ErrCodeDatabaseError ErrorCode = "DATABASE_ERROR"
)

type AppError struct {
	Code       ErrorCode
	Message    string
	HTTPStatus int
	Cause      error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
	}
}

func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
		Cause:      err,
	}
}

func codeToHTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeForbidden:
		return http.StatusForbidden
	// Исходный API отдаёт 400 и на кулдаун, и на просроченный код,
	// сохраняем совместимость со старыми клиентами.
	case ErrCodeBadRequest, ErrCodeValidation, ErrCodeConflict, ErrCodeExpired:
		return http.StatusBadRequest
	case ErrCodeIntegrity:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func IsNotFound(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == ErrCodeNotFound
}

func IsConflict(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == ErrCodeConflict
}

func IsValidation(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == ErrCodeValidation
}

func IsExpired(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == ErrCodeExpired
}

// Ошибки, видимые клиенту. Тексты повторяют сообщения исходного API.
var (
	ErrAuthCodeNotFound     = New(ErrCodeNotFound, "Code not found")
	ErrAuthCodeExpired      = New(ErrCodeExpired, "Code expired")
	ErrAuthCodeInvalid      = New(ErrCodeValidation, "Code invalid")
	ErrCooldownActive       = New(ErrCodeConflict, "The authentication code was requested less than 30 seconds ago")
	ErrAlreadyActivated     = New(ErrCodeConflict, "Referral code already activated")
	ErrReferralCodeNotFound = New(ErrCodeNotFound, "Referral code not found")
	ErrUserNotFound         = New(ErrCodeNotFound, "user not found")
	ErrDuplicatePhoneNumber = New(ErrCodeIntegrity, "phone number already registered")
	ErrUnauthorized         = New(ErrCodeUnauthorized, "authorization required")
	ErrInvalidRefreshToken  = New(ErrCodeUnauthorized, "invalid refresh token")
)
