package validation

import (
	"fmt"
	"regexp"
)

// Константы валидации
const (
	InviteCodeLength = 6
	AuthCodeLength   = 4
)

var (
	// Номер: от 5 до 14 цифр, опциональный '+' в начале.
	phoneNumberRegex = regexp.MustCompile(`^\+?\d{5,14}$`)
	// Код авторизации: ровно 4 цифры.
	authCodeRegex = regexp.MustCompile(`^\d{4}$`)
	// Инвайт-код: 6 символов, латинские буквы в любом регистре и цифры.
	inviteCodeRegex = regexp.MustCompile(`^[a-zA-Z0-9]{6}$`)
)

// ValidatePhoneNumber проверяет формат номера телефона.
func ValidatePhoneNumber(phone string) error {
	if phone == "" {
		return fmt.Errorf("phone_number is required")
	}
	if !phoneNumberRegex.MatchString(phone) {
		return fmt.Errorf("phone number must contain 5 to 14 digits and may start with '+'")
	}
	return nil
}

// ValidateAuthCode проверяет форму кода подтверждения.
func ValidateAuthCode(code string) error {
	if code == "" {
		return fmt.Errorf("code is required")
	}
	if !authCodeRegex.MatchString(code) {
		return fmt.Errorf("code must be exactly %d digits", AuthCodeLength)
	}
	return nil
}

// ValidateInviteCode проверяет форму инвайт-кода (activated_code в запросе).
func ValidateInviteCode(code string) error {
	if code == "" {
		return fmt.Errorf("activated_code is required")
	}
	if !inviteCodeRegex.MatchString(code) {
		return fmt.Errorf("referral code must be %d alphanumeric characters", InviteCodeLength)
	}
	return nil
}
