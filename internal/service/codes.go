package service

import (
	"crypto/rand"
	"fmt"
)

// Алфавит инвайт-кода: латинские буквы в обоих регистрах и цифры.
const inviteCodeAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// generateAuthCode возвращает четырёхзначный код подтверждения (1000-9999).
func generateAuthCode() string {
	b := make([]byte, 2)
	rand.Read(b)
	n := (int(b[0])<<8 | int(b[1])) % 9000
	return fmt.Sprintf("%04d", 1000+n)
}

// generateInviteCode возвращает случайный шестисимвольный инвайт-код.
// Уникальность гарантирует не генератор, а ограничение БД с повторной
// генерацией при конфликте.
func generateInviteCode() string {
	b := make([]byte, 6)
	rand.Read(b)
	for i := range b {
		b[i] = inviteCodeAlphabet[int(b[i])%len(inviteCodeAlphabet)]
	}
	return string(b)
}
