package models

import "time"

// Сроки жизни кода подтверждения.
const (
	// PhoneCodeCooldown — минимальный интервал между повторными запросами кода.
	PhoneCodeCooldown = 30 * time.Second
	// PhoneCodeTTL — время, в течение которого код можно подтвердить.
	PhoneCodeTTL = time.Hour
)

// PhoneCode — ожидающий подтверждения код авторизации.
// На один номер телефона существует не более одной живой записи:
// повторный запрос обновляет код и created_at той же строки.
type PhoneCode struct {
	ID          int64     `db:"id" json:"id"`
	PhoneNumber string    `db:"phone_number" json:"phone_number"`
	Code        string    `db:"code" json:"code"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// IsExpired сообщает, истёк ли срок действия кода.
// Просроченные записи не удаляются фоном — подтверждение само их отвергает.
func (p *PhoneCode) IsExpired(now time.Time) bool {
	return now.After(p.CreatedAt.Add(PhoneCodeTTL))
}
