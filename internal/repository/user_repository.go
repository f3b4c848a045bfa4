package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/eencoree/ReferralSystem/internal/models"
	"github.com/eencoree/ReferralSystem/internal/repository/common"
)

// Ошибки уровня хранилища.
var (
	// ErrUserNotFound возвращается, когда запись пользователя не найдена.
	ErrUserNotFound = errors.New("user not found")
	// ErrDuplicatePhoneNumber возвращается при попытке создать второй аккаунт
	// на тот же номер телефона.
	ErrDuplicatePhoneNumber = errors.New("phone number already taken")
	// ErrDuplicateInviteCode возвращается, когда сгенерированный инвайт-код
	// уже занят. Вызывающий обязан сгенерировать новый и повторить вставку.
	ErrDuplicateInviteCode = errors.New("invite code already taken")
)

// Имена уникальных ограничений из миграций. По ним различаем,
// какое именно ограничение сработало при вставке.
const (
	constraintUserPhone  = "users_phone_number_key"
	constraintInviteCode = "users_invite_code_key"
)

// UserRepository отвечает за работу с таблицей users.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository создаёт экземпляр репозитория.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create вставляет нового пользователя. Уникальность номера и инвайт-кода
// обеспечивается ограничениями БД, а не предварительной проверкой:
// конкурирующие вставки различаются по имени сработавшего ограничения.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (phone_number, invite_code)
		VALUES ($1, $2)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRowxContext(ctx, query, user.PhoneNumber, user.InviteCode).
		Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if common.IsUniqueViolation(err, constraintUserPhone) {
			return ErrDuplicatePhoneNumber
		}
		if common.IsUniqueViolation(err, constraintInviteCode) {
			return ErrDuplicateInviteCode
		}
		return fmt.Errorf("user repository: create %w", err)
	}

	return nil
}

// GetByID возвращает пользователя по идентификатору.
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return common.GetByField[models.User](ctx, r.db, "users", "id", id, ErrUserNotFound)
}

// GetByPhone возвращает пользователя по номеру телефона.
func (r *UserRepository) GetByPhone(ctx context.Context, phone string) (*models.User, error) {
	return common.GetByField[models.User](ctx, r.db, "users", "phone_number", phone, ErrUserNotFound)
}

// GetByInviteCode возвращает владельца инвайт-кода.
func (r *UserRepository) GetByInviteCode(ctx context.Context, code string) (*models.User, error) {
	return common.GetByField[models.User](ctx, r.db, "users", "invite_code", code, ErrUserNotFound)
}

// ListAll возвращает всех пользователей в порядке хранения.
func (r *UserRepository) ListAll(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := r.db.SelectContext(ctx, &users, `SELECT * FROM users ORDER BY created_at`); err != nil {
		return nil, fmt.Errorf("user repository: list all %w", err)
	}
	return users, nil
}

// ListReferralPhones возвращает номера телефонов рефералов: аккаунтов,
// активировавших указанный инвайт-код. Сам владелец кода исключается.
func (r *UserRepository) ListReferralPhones(ctx context.Context, inviteCode, ownerPhone string) ([]string, error) {
	var phones []string
	query := `
		SELECT phone_number FROM users
		WHERE activated_code = $1 AND phone_number <> $2
	`
	if err := r.db.SelectContext(ctx, &phones, query, inviteCode, ownerPhone); err != nil {
		return nil, fmt.Errorf("user repository: list referrals %w", err)
	}
	return phones, nil
}

// ActivateCode проставляет activated_code одним условным UPDATE:
// только если код ещё не активирован и код принадлежит другому аккаунту.
// Возвращает false, если условие не выполнилось — причину выясняет сервис.
func (r *UserRepository) ActivateCode(ctx context.Context, userID uuid.UUID, code string) (bool, error) {
	query := `
		UPDATE users
		SET activated_code = $2, updated_at = NOW()
		WHERE id = $1
		  AND activated_code IS NULL
		  AND EXISTS (
			SELECT 1 FROM users owner
			WHERE owner.invite_code = $2 AND owner.id <> $1
		  )
	`

	res, err := r.db.ExecContext(ctx, query, userID, code)
	if err != nil {
		return false, fmt.Errorf("user repository: activate code %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("user repository: activate code rows affected %w", err)
	}

	return affected > 0, nil
}

// DeleteCascade удаляет аккаунт в одной транзакции: сперва снимает
// activated_code у всех рефералов, затем чистит ожидающий код подтверждения
// и удаляет самого пользователя. Сессии удаляет каскад по внешнему ключу.
// Частичное применение недопустимо: наблюдатель видит либо всё, либо ничего.
func (r *UserRepository) DeleteCascade(ctx context.Context, user *models.User) ([]models.User, error) {
	var released []models.User

	err := common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		releaseQuery := `
			UPDATE users
			SET activated_code = NULL, updated_at = NOW()
			WHERE activated_code = $1 AND phone_number <> $2
			RETURNING id, phone_number
		`
		if err := tx.SelectContext(ctx, &released, releaseQuery, user.InviteCode, user.PhoneNumber); err != nil {
			return fmt.Errorf("release referrals: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM phone_codes WHERE phone_number = $1`, user.PhoneNumber); err != nil {
			return fmt.Errorf("delete phone code: %w", err)
		}

		res, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, user.ID)
		if err != nil {
			return fmt.Errorf("delete user: %w", err)
		}

		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("delete user rows affected: %w", err)
		}
		if affected == 0 {
			return ErrUserNotFound
		}

		return nil
	})
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("user repository: delete cascade %w", err)
	}

	return released, nil
}

// CreateSession сохраняет сессию с refresh токеном.
func (r *UserRepository) CreateSession(ctx context.Context, session *models.Session) error {
	query := `
		INSERT INTO user_sessions (user_id, refresh_token, user_agent, ip_address, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	if err := r.db.QueryRowxContext(
		ctx, query,
		session.UserID, session.RefreshToken, session.UserAgent, session.IPAddress, session.ExpiresAt,
	).Scan(&session.ID, &session.CreatedAt); err != nil {
		return fmt.Errorf("user repository: create session %w", err)
	}

	return nil
}

// CreateSessionConsumeCode атомарно сохраняет сессию и удаляет использованный
// код подтверждения. Код одноразовый: если вставка сессии не удалась,
// запись кода остаётся на месте и подтверждение можно повторить.
func (r *UserRepository) CreateSessionConsumeCode(ctx context.Context, session *models.Session, phone string) error {
	err := common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		query := `
			INSERT INTO user_sessions (user_id, refresh_token, user_agent, ip_address, expires_at)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id, created_at
		`
		if err := tx.QueryRowxContext(
			ctx, query,
			session.UserID, session.RefreshToken, session.UserAgent, session.IPAddress, session.ExpiresAt,
		).Scan(&session.ID, &session.CreatedAt); err != nil {
			return fmt.Errorf("create session: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM phone_codes WHERE phone_number = $1`, phone); err != nil {
			return fmt.Errorf("consume phone code: %w", err)
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("user repository: create session consume code %w", err)
	}

	return nil
}

// DeleteSession удаляет сессию по refresh токену.
func (r *UserRepository) DeleteSession(ctx context.Context, refreshToken string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM user_sessions WHERE refresh_token = $1`, refreshToken); err != nil {
		return fmt.Errorf("user repository: delete session %w", err)
	}
	return nil
}

// GetSessionByToken возвращает сессию по refresh токену.
func (r *UserRepository) GetSessionByToken(ctx context.Context, refreshToken string) (*models.Session, error) {
	var session models.Session
	query := `SELECT * FROM user_sessions WHERE refresh_token = $1`
	if err := r.db.GetContext(ctx, &session, query, refreshToken); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("user repository: get session %w", err)
	}
	return &session, nil
}
