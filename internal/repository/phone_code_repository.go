package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/eencoree/ReferralSystem/internal/models"
	"github.com/eencoree/ReferralSystem/internal/repository/common"
)

var (
	// ErrPhoneCodeNotFound возвращается, когда для номера нет живого кода.
	ErrPhoneCodeNotFound = errors.New("phone code not found")
	// ErrCooldown возвращается, когда код запрашивали менее 30 секунд назад.
	ErrCooldown = errors.New("phone code requested too recently")
)

// PhoneCodeRepository отвечает за таблицу phone_codes.
// На номер телефона приходится не более одной строки: конкурентные запросы
// разрешает upsert по уникальному ограничению, а не проверка перед записью.
type PhoneCodeRepository struct {
	db *sqlx.DB
}

// NewPhoneCodeRepository создаёт экземпляр репозитория.
func NewPhoneCodeRepository(db *sqlx.DB) *PhoneCodeRepository {
	return &PhoneCodeRepository{db: db}
}

// Upsert записывает новый код для номера. Существующая строка перезаписывается
// вместе с created_at, но только если прошлый запрос старше кулдауна —
// внутри окна не меняется ничего и возвращается ErrCooldown.
// Один условный оператор закрывает гонку exists-check + insert.
func (r *PhoneCodeRepository) Upsert(ctx context.Context, phone, code string) (*models.PhoneCode, error) {
	query := `
		INSERT INTO phone_codes (phone_number, code)
		VALUES ($1, $2)
		ON CONFLICT (phone_number) DO UPDATE
		SET code = EXCLUDED.code, created_at = NOW()
		WHERE phone_codes.created_at <= NOW() - $3::interval
		RETURNING id, phone_number, code, created_at
	`

	var pc models.PhoneCode
	err := r.db.QueryRowxContext(ctx, query, phone, code, models.PhoneCodeCooldown.String()).
		StructScan(&pc)
	if err != nil {
		// Пустой результат означает, что ON CONFLICT сработал,
		// но условие кулдауна не пропустило обновление.
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCooldown
		}
		return nil, fmt.Errorf("phone code repository: upsert %w", err)
	}

	return &pc, nil
}

// GetByPhone возвращает ожидающий код для номера.
func (r *PhoneCodeRepository) GetByPhone(ctx context.Context, phone string) (*models.PhoneCode, error) {
	return common.GetByField[models.PhoneCode](ctx, r.db, "phone_codes", "phone_number", phone, ErrPhoneCodeNotFound)
}

// DeleteByPhone удаляет код для номера (использованный или более не нужный).
func (r *PhoneCodeRepository) DeleteByPhone(ctx context.Context, phone string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM phone_codes WHERE phone_number = $1`, phone); err != nil {
		return fmt.Errorf("phone code repository: delete %w", err)
	}
	return nil
}
