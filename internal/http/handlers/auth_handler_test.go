package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eencoree/ReferralSystem/internal/http/middleware"
	"github.com/eencoree/ReferralSystem/internal/models"
	"github.com/eencoree/ReferralSystem/internal/repository"
	"github.com/eencoree/ReferralSystem/internal/service"
)

// fakeAuthStore реализует хранилища AuthService в памяти.
type fakeAuthStore struct {
	users    map[string]*models.User
	codes    map[string]*models.PhoneCode
	sessions map[string]*models.Session
}

func newFakeAuthStore() *fakeAuthStore {
	return &fakeAuthStore{
		users:    make(map[string]*models.User),
		codes:    make(map[string]*models.PhoneCode),
		sessions: make(map[string]*models.Session),
	}
}

func (f *fakeAuthStore) Create(ctx context.Context, user *models.User) error {
	if _, ok := f.users[user.PhoneNumber]; ok {
		return repository.ErrDuplicatePhoneNumber
	}
	user.ID = uuid.New()
	f.users[user.PhoneNumber] = user
	return nil
}

func (f *fakeAuthStore) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	for _, user := range f.users {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (f *fakeAuthStore) GetByPhone(ctx context.Context, phone string) (*models.User, error) {
	if user, ok := f.users[phone]; ok {
		return user, nil
	}
	return nil, repository.ErrUserNotFound
}

func (f *fakeAuthStore) CreateSession(ctx context.Context, session *models.Session) error {
	f.sessions[session.RefreshToken] = session
	return nil
}

func (f *fakeAuthStore) CreateSessionConsumeCode(ctx context.Context, session *models.Session, phone string) error {
	f.sessions[session.RefreshToken] = session
	delete(f.codes, phone)
	return nil
}

func (f *fakeAuthStore) DeleteSession(ctx context.Context, refreshToken string) error {
	delete(f.sessions, refreshToken)
	return nil
}

func (f *fakeAuthStore) GetSessionByToken(ctx context.Context, refreshToken string) (*models.Session, error) {
	if session, ok := f.sessions[refreshToken]; ok {
		return session, nil
	}
	return nil, repository.ErrUserNotFound
}

func (f *fakeAuthStore) Upsert(ctx context.Context, phone, code string) (*models.PhoneCode, error) {
	if rec, ok := f.codes[phone]; ok {
		if time.Since(rec.CreatedAt) < models.PhoneCodeCooldown {
			return nil, repository.ErrCooldown
		}
	}
	rec := &models.PhoneCode{PhoneNumber: phone, Code: code, CreatedAt: time.Now()}
	f.codes[phone] = rec
	return rec, nil
}

func (f *fakeAuthStore) GetCodeByPhone(ctx context.Context, phone string) (*models.PhoneCode, error) {
	if rec, ok := f.codes[phone]; ok {
		return rec, nil
	}
	return nil, repository.ErrPhoneCodeNotFound
}

func (f *fakeAuthStore) DeleteByPhone(ctx context.Context, phone string) error {
	delete(f.codes, phone)
	return nil
}

// fakeCodeRepo переименовывает метод под интерфейс PhoneCodeRepository.
type fakeCodeRepo struct{ store *fakeAuthStore }

func (f fakeCodeRepo) Upsert(ctx context.Context, phone, code string) (*models.PhoneCode, error) {
	return f.store.Upsert(ctx, phone, code)
}

func (f fakeCodeRepo) GetByPhone(ctx context.Context, phone string) (*models.PhoneCode, error) {
	return f.store.GetCodeByPhone(ctx, phone)
}

func (f fakeCodeRepo) DeleteByPhone(ctx context.Context, phone string) error {
	return f.store.DeleteByPhone(ctx, phone)
}

func newTestAuthRouter(store *fakeAuthStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	tokens := service.NewTokenManager("access-secret", "refresh-secret", time.Minute, time.Hour)
	handler := NewAuthHandler(service.NewAuthService(store, fakeCodeRepo{store: store}, tokens))

	r := gin.New()
	r.Use(middleware.ErrorHandler())
	r.POST("/referral/auth", handler.RequestCode)
	r.POST("/referral/confirm", handler.ConfirmCode)
	return r
}

func postJSON(t *testing.T, r *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req, _ := http.NewRequest("POST", path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthHandler_RequestCode_MissingBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler := &AuthHandler{auth: nil}
	r.POST("/referral/auth", handler.RequestCode)

	req, _ := http.NewRequest("POST", "/referral/auth", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthHandler_RequestCode_ReturnsCode(t *testing.T) {
	r := newTestAuthRouter(newFakeAuthStore())

	w := postJSON(t, r, "/referral/auth", gin.H{"phone_number": "+79991234567"})

	assert.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Code is created and sent to +79991234567", resp.Message)
	assert.Len(t, resp.Code, 4)
}

func TestAuthHandler_RequestCode_Cooldown(t *testing.T) {
	r := newTestAuthRouter(newFakeAuthStore())

	first := postJSON(t, r, "/referral/auth", gin.H{"phone_number": "+79991234567"})
	require.Equal(t, http.StatusCreated, first.Code)

	second := postJSON(t, r, "/referral/auth", gin.H{"phone_number": "+79991234567"})
	assert.Equal(t, http.StatusBadRequest, second.Code)
	assert.Contains(t, second.Body.String(), "less than 30 seconds ago")
}

func TestAuthHandler_ConfirmCode_FullCycle(t *testing.T) {
	store := newFakeAuthStore()
	r := newTestAuthRouter(store)

	issued := postJSON(t, r, "/referral/auth", gin.H{"phone_number": "+79991234567"})
	require.Equal(t, http.StatusCreated, issued.Code)

	var issuedResp struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(issued.Body.Bytes(), &issuedResp))

	w := postJSON(t, r, "/referral/confirm", gin.H{
		"phone_number": "+79991234567",
		"code":         issuedResp.Code,
	})
	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Message string             `json:"message"`
		NewUser bool               `json:"new_user"`
		Tokens  *service.TokenPair `json:"tokens"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "User authenticated", resp.Message)
	assert.True(t, resp.NewUser)
	require.NotNil(t, resp.Tokens)
	assert.NotEmpty(t, resp.Tokens.AccessToken)

	// Код одноразовый.
	again := postJSON(t, r, "/referral/confirm", gin.H{
		"phone_number": "+79991234567",
		"code":         issuedResp.Code,
	})
	assert.Equal(t, http.StatusNotFound, again.Code)
	assert.Contains(t, again.Body.String(), "Code not found")
}

func TestAuthHandler_ConfirmCode_WrongCode(t *testing.T) {
	store := newFakeAuthStore()
	r := newTestAuthRouter(store)

	issued := postJSON(t, r, "/referral/auth", gin.H{"phone_number": "+79991234567"})
	require.Equal(t, http.StatusCreated, issued.Code)

	store.codes["+79991234567"].Code = "1111"
	w := postJSON(t, r, "/referral/confirm", gin.H{
		"phone_number": "+79991234567",
		"code":         "2222",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Code invalid")
}
