package service

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/eencoree/ReferralSystem/internal/logger"
	"github.com/eencoree/ReferralSystem/internal/models"
	"github.com/eencoree/ReferralSystem/internal/pkg/apperror"
	"github.com/eencoree/ReferralSystem/internal/repository"
	"github.com/eencoree/ReferralSystem/internal/validation"
)

// События, рассылаемые по WebSocket.
const (
	EventReferralAttached = "referral_attached"
	EventReferralReleased = "referral_released"
)

// ReferralUserRepository описывает зависимости ReferralService от хранилища.
type ReferralUserRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByInviteCode(ctx context.Context, code string) (*models.User, error)
	ListAll(ctx context.Context) ([]models.User, error)
	ListReferralPhones(ctx context.Context, inviteCode, ownerPhone string) ([]string, error)
	ActivateCode(ctx context.Context, userID uuid.UUID, code string) (bool, error)
	DeleteCascade(ctx context.Context, user *models.User) ([]models.User, error)
}

// EventBroadcaster доставляет события подключённым клиентам пользователя.
type EventBroadcaster interface {
	BroadcastToUser(userID uuid.UUID, event string, data any) error
}

// Profile агрегирует данные профиля с списком рефералов.
type Profile struct {
	PhoneNumber   string   `json:"phone_number"`
	InviteCode    string   `json:"invite_code"`
	ActivatedCode *string  `json:"activated_code"`
	Referrals     []string `json:"referrals"`
}

// ReferralService управляет связью invite_code/activated_code:
// одноразовой активацией чужого кода и каскадным освобождением
// кодов рефералов при удалении аккаунта.
type ReferralService struct {
	users       ReferralUserRepository
	broadcaster EventBroadcaster
}

// NewReferralService создаёт сервис рефералов. Broadcaster опционален.
func NewReferralService(users ReferralUserRepository, broadcaster EventBroadcaster) *ReferralService {
	return &ReferralService{users: users, broadcaster: broadcaster}
}

// GetProfile возвращает профиль пользователя со списком номеров рефералов.
func (s *ReferralService) GetProfile(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, apperror.ErrUserNotFound
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "failed to look up account")
	}

	return s.buildProfile(ctx, user)
}

// ListProfiles возвращает профили всех пользователей.
func (s *ReferralService) ListProfiles(ctx context.Context) ([]Profile, error) {
	users, err := s.users.ListAll(ctx)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "failed to list accounts")
	}

	profiles := make([]Profile, 0, len(users))
	for i := range users {
		profile, err := s.buildProfile(ctx, &users[i])
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, *profile)
	}

	return profiles, nil
}

// AttachReferral активирует чужой инвайт-код для пользователя.
// Активация строго одноразовая, собственный код не принимается.
func (s *ReferralService) AttachReferral(ctx context.Context, userID uuid.UUID, code string) error {
	if err := validation.ValidateInviteCode(code); err != nil {
		return apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return apperror.ErrUserNotFound
		}
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "failed to look up account")
	}

	if user.ActivatedCode != nil {
		return apperror.ErrAlreadyActivated
	}

	ok, err := s.users.ActivateCode(ctx, userID, code)
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "failed to activate referral code")
	}
	if !ok {
		// Условный UPDATE не прошёл. Перечитываем состояние, чтобы отличить
		// проигранную гонку активации от несуществующего или своего кода.
		fresh, readErr := s.users.GetByID(ctx, userID)
		if readErr == nil && fresh.ActivatedCode != nil {
			return apperror.ErrAlreadyActivated
		}
		return apperror.ErrReferralCodeNotFound
	}

	if logger.Log != nil {
		logger.Log.WithFields(logrus.Fields{"user_id": userID, "code": code}).
			Info("referral service: код активирован")
	}

	// Уведомляем владельца кода о новом реферале: доставка best-effort,
	// транзакционное ядро от неё не зависит.
	if owner, err := s.users.GetByInviteCode(ctx, code); err == nil {
		s.notify(owner.ID, EventReferralAttached, map[string]string{
			"referral_phone": user.PhoneNumber,
		})
	}

	return nil
}

// DeleteAccount удаляет аккаунт пользователя. Снятие activated_code у всех
// рефералов, чистка ожидающего кода и удаление строки пользователя
// выполняются в одной транзакции хранилища.
func (s *ReferralService) DeleteAccount(ctx context.Context, userID uuid.UUID) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return apperror.ErrUserNotFound
		}
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "failed to look up account")
	}

	released, err := s.users.DeleteCascade(ctx, user)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return apperror.ErrUserNotFound
		}
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "failed to delete account")
	}

	if logger.Log != nil {
		logger.Log.WithFields(logrus.Fields{
			"user_id":  userID,
			"released": len(released),
		}).Info("referral service: аккаунт удалён")
	}

	for i := range released {
		s.notify(released[i].ID, EventReferralReleased, map[string]string{
			"invite_code": user.InviteCode,
		})
	}

	return nil
}

// buildProfile собирает профиль с номерами рефералов.
func (s *ReferralService) buildProfile(ctx context.Context, user *models.User) (*Profile, error) {
	referrals, err := s.users.ListReferralPhones(ctx, user.InviteCode, user.PhoneNumber)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "failed to list referrals")
	}
	if referrals == nil {
		referrals = []string{}
	}

	return &Profile{
		PhoneNumber:   user.PhoneNumber,
		InviteCode:    user.InviteCode,
		ActivatedCode: user.ActivatedCode,
		Referrals:     referrals,
	}, nil
}

// notify отправляет событие пользователю, не блокируя вызывающий поток.
func (s *ReferralService) notify(userID uuid.UUID, event string, data any) {
	if s.broadcaster == nil {
		return
	}

	go func() {
		defer func() {
			if r := recover(); r != nil {
				fmt.Printf("referral service: notify panic recovered: %v\n%s\n", r, debug.Stack())
			}
		}()
		if err := s.broadcaster.BroadcastToUser(userID, event, data); err != nil && logger.Log != nil {
			logger.Log.WithField("error", err.Error()).Warn("referral service: не удалось отправить событие")
		}
	}()
}
