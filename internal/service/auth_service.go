package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/eencoree/ReferralSystem/internal/logger"
	"github.com/eencoree/ReferralSystem/internal/models"
	"github.com/eencoree/ReferralSystem/internal/pkg/apperror"
	"github.com/eencoree/ReferralSystem/internal/repository"
	"github.com/eencoree/ReferralSystem/internal/validation"
)

// Искусственная задержка выдачи кода. Фиксированный минимум времени ответа
// затрудняет перебор номеров; поведение унаследовано от исходного API.
const issueCodeDelay = time.Second

// Ограничение на количество попыток подобрать свободный инвайт-код.
// При 62^6 вариантов конфликт дважды подряд уже статистическая аномалия.
const maxInviteCodeAttempts = 10

// AuthUserRepository описывает зависимости AuthService от хранилища пользователей.
type AuthUserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByPhone(ctx context.Context, phone string) (*models.User, error)
	CreateSession(ctx context.Context, session *models.Session) error
	CreateSessionConsumeCode(ctx context.Context, session *models.Session, phone string) error
	DeleteSession(ctx context.Context, refreshToken string) error
	GetSessionByToken(ctx context.Context, refreshToken string) (*models.Session, error)
}

// PhoneCodeRepository описывает зависимости AuthService от хранилища кодов.
type PhoneCodeRepository interface {
	Upsert(ctx context.Context, phone, code string) (*models.PhoneCode, error)
	GetByPhone(ctx context.Context, phone string) (*models.PhoneCode, error)
	DeleteByPhone(ctx context.Context, phone string) error
}

// AuthService инкапсулирует цикл кода подтверждения: выдачу с кулдауном,
// подтверждение с созданием аккаунта при первом входе и выпуск сессии.
type AuthService struct {
	users        AuthUserRepository
	codes        PhoneCodeRepository
	tokenManager *TokenManager

	// Переопределяются в тестах.
	issueDelay   time.Duration
	generateCode func() string
	now          func() time.Time
}

// IssueCodeResult возвращает итог выдачи кода.
type IssueCodeResult struct {
	PhoneNumber string
	Code        string
}

// ConfirmResult возвращает итог подтверждения кода.
type ConfirmResult struct {
	User      *models.User
	TokenPair *TokenPair
	NewUser   bool
}

// NewAuthService создаёт сервис аутентификации.
func NewAuthService(users AuthUserRepository, codes PhoneCodeRepository, tokenManager *TokenManager) *AuthService {
	return &AuthService{
		users:        users,
		codes:        codes,
		tokenManager: tokenManager,
		issueDelay:   issueCodeDelay,
		generateCode: generateAuthCode,
		now:          time.Now,
	}
}

// RequestCode выдаёт код подтверждения для номера телефона.
// Формат номера проверяется только для незнакомых номеров: существующий
// аккаунт валидировался при создании. Повторный запрос в течение кулдауна
// отклоняется без побочных эффектов.
func (s *AuthService) RequestCode(ctx context.Context, phone string) (*IssueCodeResult, error) {
	if _, err := s.users.GetByPhone(ctx, phone); err != nil {
		if !errors.Is(err, repository.ErrUserNotFound) {
			return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "failed to look up account")
		}
		if err := validation.ValidatePhoneNumber(phone); err != nil {
			return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
		}
	}

	pc, err := s.codes.Upsert(ctx, phone, s.generateCode())
	if err != nil {
		if errors.Is(err, repository.ErrCooldown) {
			return nil, apperror.ErrCooldownActive
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "failed to store verification code")
	}

	if logger.Log != nil {
		logger.Log.WithFields(logrus.Fields{"phone": phone}).Info("auth service: код подтверждения выдан")
	}

	// Выдержка перед ответом, прерываемая отменой запроса.
	select {
	case <-time.After(s.issueDelay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	return &IssueCodeResult{PhoneNumber: pc.PhoneNumber, Code: pc.Code}, nil
}

// ConfirmCode сверяет код с ожидающей записью и открывает сессию.
// При первом успешном подтверждении незнакомого номера создаётся аккаунт.
// Код одноразовый: запись удаляется в одной транзакции с созданием сессии,
// поэтому сбой между ними не сжигает код безвозвратно.
func (s *AuthService) ConfirmCode(ctx context.Context, phone, code string, meta map[string]string) (*ConfirmResult, error) {
	if err := validation.ValidatePhoneNumber(phone); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidateAuthCode(code); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}

	pc, err := s.codes.GetByPhone(ctx, phone)
	if err != nil {
		if errors.Is(err, repository.ErrPhoneCodeNotFound) {
			return nil, apperror.ErrAuthCodeNotFound
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "failed to look up verification code")
	}

	// Просроченная запись остаётся на месте: клиент должен запросить новый
	// код, и переиздание перезапишет её же строку.
	if pc.IsExpired(s.now()) {
		return nil, apperror.ErrAuthCodeExpired
	}

	if pc.Code != code {
		return nil, apperror.ErrAuthCodeInvalid
	}

	newUser := false
	user, err := s.users.GetByPhone(ctx, phone)
	if err != nil {
		if !errors.Is(err, repository.ErrUserNotFound) {
			return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "failed to look up account")
		}
		user, err = s.createAccount(ctx, phone)
		if err != nil {
			return nil, err
		}
		newUser = true
	}

	tokenPair, refreshExp, err := s.tokenManager.GeneratePair(user)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeInternal, "failed to issue tokens")
	}

	session := &models.Session{
		UserID:       user.ID,
		RefreshToken: tokenPair.RefreshToken,
		ExpiresAt:    refreshExp,
	}
	applySessionMeta(session, meta)

	if err := s.users.CreateSessionConsumeCode(ctx, session, phone); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "failed to create session")
	}

	if logger.Log != nil {
		logger.Log.WithFields(logrus.Fields{
			"user_id":  user.ID,
			"new_user": newUser,
		}).Info("auth service: пользователь аутентифицирован")
	}

	return &ConfirmResult{User: user, TokenPair: tokenPair, NewUser: newUser}, nil
}

// Refresh выпускает новую пару токенов, ротируя refresh сессию.
func (s *AuthService) Refresh(ctx context.Context, oldToken string, meta map[string]string) (*TokenPair, error) {
	claims, err := s.tokenManager.ParseRefresh(oldToken)
	if err != nil {
		return nil, apperror.ErrInvalidRefreshToken
	}

	// Токен обязан соответствовать живой сессии: logout и удаление аккаунта
	// инвалидируют refresh независимо от срока подписи.
	if _, err := s.users.GetSessionByToken(ctx, oldToken); err != nil {
		return nil, apperror.ErrInvalidRefreshToken
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, apperror.ErrInvalidRefreshToken
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, apperror.ErrInvalidRefreshToken
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "failed to look up account")
	}

	tokenPair, refreshExp, err := s.tokenManager.GeneratePair(user)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeInternal, "failed to issue tokens")
	}

	if err := s.users.DeleteSession(ctx, oldToken); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "failed to rotate session")
	}

	session := &models.Session{
		UserID:       user.ID,
		RefreshToken: tokenPair.RefreshToken,
		ExpiresAt:    refreshExp,
	}
	applySessionMeta(session, meta)

	if err := s.users.CreateSession(ctx, session); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "failed to create session")
	}

	return tokenPair, nil
}

// Logout удаляет сессию по refresh токену.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if err := s.users.DeleteSession(ctx, refreshToken); err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "failed to delete session")
	}
	return nil
}

// createAccount создаёт аккаунт с уникальным инвайт-кодом.
// Кандидат кода генерируется заново при каждом конфликте уникальности —
// проверка и резервирование атомарны на уровне ограничения БД.
func (s *AuthService) createAccount(ctx context.Context, phone string) (*models.User, error) {
	for attempt := 0; attempt < maxInviteCodeAttempts; attempt++ {
		user := &models.User{
			PhoneNumber: phone,
			InviteCode:  generateInviteCode(),
		}

		err := s.users.Create(ctx, user)
		if err == nil {
			return user, nil
		}

		if errors.Is(err, repository.ErrDuplicateInviteCode) {
			continue
		}

		if errors.Is(err, repository.ErrDuplicatePhoneNumber) {
			// Аккаунт появился между проверкой и вставкой: конкурирующее
			// подтверждение уже создало его. Перечитываем один раз.
			existing, readErr := s.users.GetByPhone(ctx, phone)
			if readErr != nil {
				return nil, apperror.Wrap(readErr, apperror.ErrCodeIntegrity, "failed to resolve concurrent account creation")
			}
			return existing, nil
		}

		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "failed to create account")
	}

	return nil, apperror.New(apperror.ErrCodeIntegrity, fmt.Sprintf("failed to allocate unique invite code in %d attempts", maxInviteCodeAttempts))
}

// applySessionMeta переносит метаданные запроса в сессию.
func applySessionMeta(session *models.Session, meta map[string]string) {
	if meta == nil {
		return
	}
	if ua, ok := meta["user_agent"]; ok && ua != "" {
		session.UserAgent = &ua
	}
	if ip, ok := meta["ip"]; ok && ip != "" {
		session.IPAddress = &ip
	}
}
