package dto

import "github.com/eencoree/ReferralSystem/internal/service"

// CodeCreatedResponse — ответ на выдачу кода. Код возвращается напрямую:
// канала доставки SMS у сервиса нет.
type CodeCreatedResponse struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

// UserAuthenticatedResponse — ответ на успешное подтверждение кода.
type UserAuthenticatedResponse struct {
	Message string             `json:"message"`
	NewUser bool               `json:"new_user"`
	Tokens  *service.TokenPair `json:"tokens"`
}

// TokensResponse — ответ на ротацию токенов.
type TokensResponse struct {
	Tokens *service.TokenPair `json:"tokens"`
}

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// SuccessResponse represents a standard success response
type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}
