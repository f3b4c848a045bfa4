package models

import (
	"time"

	"github.com/google/uuid"
)

// User описывает аккаунт, привязанный к номеру телефона.
// Пароля нет: единственный способ аутентификации — код подтверждения.
type User struct {
	ID            uuid.UUID `db:"id" json:"id"`
	PhoneNumber   string    `db:"phone_number" json:"phone_number"`
	InviteCode    string    `db:"invite_code" json:"invite_code"`
	ActivatedCode *string   `db:"activated_code" json:"activated_code"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// Session представляет сохранённую сессию пользователя.
type Session struct {
	ID           uuid.UUID `db:"id" json:"id"`
	UserID       uuid.UUID `db:"user_id" json:"user_id"`
	RefreshToken string    `db:"refresh_token" json:"refresh_token"`
	UserAgent    *string   `db:"user_agent" json:"user_agent,omitempty"`
	IPAddress    *string   `db:"ip_address" json:"ip_address,omitempty"`
	ExpiresAt    time.Time `db:"expires_at" json:"expires_at"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
