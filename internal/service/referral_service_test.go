package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/eencoree/ReferralSystem/internal/models"
	"github.com/eencoree/ReferralSystem/internal/pkg/apperror"
	"github.com/eencoree/ReferralSystem/internal/repository"
)

// mockReferralRepo реализует ReferralUserRepository для тестов.
type mockReferralRepo struct {
	users map[uuid.UUID]*models.User
}

func newMockReferralRepo() *mockReferralRepo {
	return &mockReferralRepo{users: make(map[uuid.UUID]*models.User)}
}

func (m *mockReferralRepo) add(phone, inviteCode string) *models.User {
	user := &models.User{
		ID:          uuid.New(),
		PhoneNumber: phone,
		InviteCode:  inviteCode,
		CreatedAt:   time.Now(),
	}
	m.users[user.ID] = user
	return user
}

func (m *mockReferralRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if user, ok := m.users[id]; ok {
		return user, nil
	}
	return nil, repository.ErrUserNotFound
}

func (m *mockReferralRepo) GetByInviteCode(ctx context.Context, code string) (*models.User, error) {
	for _, user := range m.users {
		if user.InviteCode == code {
			return user, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (m *mockReferralRepo) ListAll(ctx context.Context) ([]models.User, error) {
	out := make([]models.User, 0, len(m.users))
	for _, user := range m.users {
		out = append(out, *user)
	}
	return out, nil
}

func (m *mockReferralRepo) ListReferralPhones(ctx context.Context, inviteCode, ownerPhone string) ([]string, error) {
	var phones []string
	for _, user := range m.users {
		if user.ActivatedCode != nil && *user.ActivatedCode == inviteCode && user.PhoneNumber != ownerPhone {
			phones = append(phones, user.PhoneNumber)
		}
	}
	return phones, nil
}

func (m *mockReferralRepo) ActivateCode(ctx context.Context, userID uuid.UUID, code string) (bool, error) {
	target, ok := m.users[userID]
	if !ok || target.ActivatedCode != nil {
		return false, nil
	}
	for _, owner := range m.users {
		if owner.InviteCode == code && owner.ID != userID {
			target.ActivatedCode = &code
			return true, nil
		}
	}
	return false, nil
}

func (m *mockReferralRepo) DeleteCascade(ctx context.Context, user *models.User) ([]models.User, error) {
	if _, ok := m.users[user.ID]; !ok {
		return nil, repository.ErrUserNotFound
	}
	var released []models.User
	for _, u := range m.users {
		if u.ActivatedCode != nil && *u.ActivatedCode == user.InviteCode {
			u.ActivatedCode = nil
			released = append(released, *u)
		}
	}
	delete(m.users, user.ID)
	return released, nil
}

// mockBroadcaster собирает отправленные события.
type mockBroadcaster struct {
	events chan string
}

func newMockBroadcaster() *mockBroadcaster {
	return &mockBroadcaster{events: make(chan string, 8)}
}

func (m *mockBroadcaster) BroadcastToUser(userID uuid.UUID, event string, data any) error {
	m.events <- event
	return nil
}

func (m *mockBroadcaster) wait(t *testing.T) string {
	t.Helper()
	select {
	case event := <-m.events:
		return event
	case <-time.After(time.Second):
		t.Fatalf("событие не пришло за секунду")
		return ""
	}
}

func TestReferralService_AttachReferral(t *testing.T) {
	repo := newMockReferralRepo()
	owner := repo.add("+79990000001", "aB3xY9")
	referee := repo.add("+79990000002", "Qw1Er2")
	broadcaster := newMockBroadcaster()
	svc := NewReferralService(repo, broadcaster)

	ctx := context.Background()
	if err := svc.AttachReferral(ctx, referee.ID, owner.InviteCode); err != nil {
		t.Fatalf("активация вернула ошибку: %v", err)
	}

	if referee.ActivatedCode == nil || *referee.ActivatedCode != owner.InviteCode {
		t.Fatalf("activated_code должен быть установлен")
	}
	if event := broadcaster.wait(t); event != EventReferralAttached {
		t.Fatalf("ожидалось событие %q, получили %q", EventReferralAttached, event)
	}
}

func TestReferralService_AttachReferral_OnlyOnce(t *testing.T) {
	repo := newMockReferralRepo()
	first := repo.add("+79990000001", "aB3xY9")
	second := repo.add("+79990000002", "Qw1Er2")
	referee := repo.add("+79990000003", "Zx9Cv8")
	svc := NewReferralService(repo, nil)

	ctx := context.Background()
	if err := svc.AttachReferral(ctx, referee.ID, first.InviteCode); err != nil {
		t.Fatalf("первая активация вернула ошибку: %v", err)
	}

	// Повторная активация отклоняется, даже с другим кодом.
	err := svc.AttachReferral(ctx, referee.ID, second.InviteCode)
	if !errors.Is(err, apperror.ErrAlreadyActivated) {
		t.Fatalf("ожидалась ошибка повторной активации, получили %v", err)
	}
	if *referee.ActivatedCode != first.InviteCode {
		t.Fatalf("первый активированный код не должен меняться")
	}
}

func TestReferralService_AttachReferral_OwnCode(t *testing.T) {
	repo := newMockReferralRepo()
	user := repo.add("+79990000001", "aB3xY9")
	svc := NewReferralService(repo, nil)

	err := svc.AttachReferral(context.Background(), user.ID, user.InviteCode)
	if !errors.Is(err, apperror.ErrReferralCodeNotFound) {
		t.Fatalf("собственный код не должен активироваться, получили %v", err)
	}
	if user.ActivatedCode != nil {
		t.Fatalf("activated_code должен остаться пустым")
	}
}

func TestReferralService_AttachReferral_UnknownCode(t *testing.T) {
	repo := newMockReferralRepo()
	user := repo.add("+79990000001", "aB3xY9")
	svc := NewReferralService(repo, nil)

	err := svc.AttachReferral(context.Background(), user.ID, "NoSuch1")
	if !apperror.IsValidation(err) {
		// Семисимвольный код отсекается валидацией формата.
		t.Fatalf("ожидалась ошибка валидации, получили %v", err)
	}

	err = svc.AttachReferral(context.Background(), user.ID, "NoSuc1")
	if !errors.Is(err, apperror.ErrReferralCodeNotFound) {
		t.Fatalf("ожидалась ошибка отсутствия кода, получили %v", err)
	}
}

func TestReferralService_GetProfile(t *testing.T) {
	repo := newMockReferralRepo()
	owner := repo.add("+79990000001", "aB3xY9")
	refereeA := repo.add("+79990000002", "Qw1Er2")
	refereeB := repo.add("+79990000003", "Zx9Cv8")
	svc := NewReferralService(repo, nil)

	ctx := context.Background()
	if err := svc.AttachReferral(ctx, refereeA.ID, owner.InviteCode); err != nil {
		t.Fatalf("активация вернула ошибку: %v", err)
	}
	if err := svc.AttachReferral(ctx, refereeB.ID, owner.InviteCode); err != nil {
		t.Fatalf("активация вернула ошибку: %v", err)
	}

	profile, err := svc.GetProfile(ctx, owner.ID)
	if err != nil {
		t.Fatalf("профиль вернул ошибку: %v", err)
	}
	if len(profile.Referrals) != 2 {
		t.Fatalf("ожидалось два реферала, получили %d", len(profile.Referrals))
	}

	// Профиль без рефералов отдаёт пустой список, не null.
	empty, err := svc.GetProfile(ctx, refereeA.ID)
	if err != nil {
		t.Fatalf("профиль вернул ошибку: %v", err)
	}
	if empty.Referrals == nil || len(empty.Referrals) != 0 {
		t.Fatalf("ожидался пустой список рефералов")
	}
}

func TestReferralService_DeleteAccount_ReleasesReferees(t *testing.T) {
	repo := newMockReferralRepo()
	owner := repo.add("+79990000001", "aB3xY9")
	referee := repo.add("+79990000002", "Qw1Er2")
	broadcaster := newMockBroadcaster()
	svc := NewReferralService(repo, broadcaster)

	ctx := context.Background()
	if err := svc.AttachReferral(ctx, referee.ID, owner.InviteCode); err != nil {
		t.Fatalf("активация вернула ошибку: %v", err)
	}
	broadcaster.wait(t)

	if err := svc.DeleteAccount(ctx, owner.ID); err != nil {
		t.Fatalf("удаление вернуло ошибку: %v", err)
	}

	if _, ok := repo.users[owner.ID]; ok {
		t.Fatalf("аккаунт должен быть удалён")
	}
	if referee.ActivatedCode != nil {
		t.Fatalf("activated_code реферала должен быть снят")
	}
	if event := broadcaster.wait(t); event != EventReferralReleased {
		t.Fatalf("ожидалось событие %q, получили %q", EventReferralReleased, event)
	}

	// Освобождённый реферал может активировать другой код.
	if err := svc.AttachReferral(ctx, referee.ID, repo.add("+79990000004", "Mn4Bv5").InviteCode); err != nil {
		t.Fatalf("повторная активация после освобождения: %v", err)
	}

	if err := svc.DeleteAccount(ctx, owner.ID); !errors.Is(err, apperror.ErrUserNotFound) {
		t.Fatalf("повторное удаление должно отвечать ошибкой, получили %v", err)
	}
}
