package dto

// RequestCodeRequest — запрос кода авторизации по номеру телефона.
type RequestCodeRequest struct {
	PhoneNumber string `json:"phone_number" binding:"required"`
}

// ConfirmCodeRequest — подтверждение кода авторизации.
type ConfirmCodeRequest struct {
	PhoneNumber string `json:"phone_number" binding:"required"`
	Code        string `json:"code" binding:"required"`
}

// RefreshRequest — ротация refresh токена.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// LogoutRequest — завершение сессии.
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// AttachReferralRequest — активация чужого инвайт-кода.
type AttachReferralRequest struct {
	ActivatedCode string `json:"activated_code" binding:"required"`
}
