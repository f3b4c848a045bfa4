package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/eencoree/ReferralSystem/internal/dto"
	"github.com/eencoree/ReferralSystem/internal/http/handlers/common"
	"github.com/eencoree/ReferralSystem/internal/service"
)

// AuthHandler предоставляет HTTP слой для авторизации по номеру телефона.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler создаёт хэндлер.
func NewAuthHandler(auth *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// RequestCode обрабатывает POST /referral/auth — выдача кода авторизации.
func (h *AuthHandler) RequestCode(c *gin.Context) {
	var req dto.RequestCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	result, err := h.auth.RequestCode(c.Request.Context(), req.PhoneNumber)
	if err != nil {
		c.Error(err)
		return
	}

	common.RespondJSON(c, http.StatusCreated, dto.CodeCreatedResponse{
		Message: fmt.Sprintf("Code is created and sent to %s", result.PhoneNumber),
		Code:    result.Code,
	})
}

// ConfirmCode обрабатывает POST /referral/confirm — подтверждение кода.
func (h *AuthHandler) ConfirmCode(c *gin.Context) {
	var req dto.ConfirmCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	meta := map[string]string{
		"user_agent": c.GetHeader("User-Agent"),
		"ip":         c.ClientIP(),
	}

	result, err := h.auth.ConfirmCode(c.Request.Context(), req.PhoneNumber, req.Code, meta)
	if err != nil {
		c.Error(err)
		return
	}

	common.RespondJSON(c, http.StatusOK, dto.UserAuthenticatedResponse{
		Message: "User authenticated",
		NewUser: result.NewUser,
		Tokens:  result.TokenPair,
	})
}

// Refresh обрабатывает POST /referral/refresh — ротация пары токенов.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req dto.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	meta := map[string]string{
		"user_agent": c.GetHeader("User-Agent"),
		"ip":         c.ClientIP(),
	}

	tokenPair, err := h.auth.Refresh(c.Request.Context(), req.RefreshToken, meta)
	if err != nil {
		c.Error(err)
		return
	}

	common.RespondJSON(c, http.StatusOK, dto.TokensResponse{Tokens: tokenPair})
}

// Logout обрабатывает POST /referral/logout — завершение сессии.
func (h *AuthHandler) Logout(c *gin.Context) {
	var req dto.LogoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		// Пытаемся получить токен из заголовка
		req.RefreshToken = c.GetHeader("X-Refresh-Token")
		if req.RefreshToken == "" {
			common.RespondBadRequest(c, "refresh_token is required")
			return
		}
	}

	if err := h.auth.Logout(c.Request.Context(), req.RefreshToken); err != nil {
		c.Error(err)
		return
	}

	common.RespondSuccess(c, http.StatusOK, "Logged out", nil)
}
