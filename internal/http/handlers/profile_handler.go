package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/eencoree/ReferralSystem/internal/dto"
	"github.com/eencoree/ReferralSystem/internal/http/handlers/common"
	"github.com/eencoree/ReferralSystem/internal/service"
)

// ProfileHandler предоставляет HTTP слой для профиля и реферальных операций.
type ProfileHandler struct {
	referrals *service.ReferralService
}

// NewProfileHandler создаёт хэндлер.
func NewProfileHandler(referrals *service.ReferralService) *ProfileHandler {
	return &ProfileHandler{referrals: referrals}
}

// GetMe обрабатывает GET /referral/profile — профиль текущего пользователя.
func (h *ProfileHandler) GetMe(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, "")
		return
	}

	profile, err := h.referrals.GetProfile(c.Request.Context(), userID)
	if err != nil {
		c.Error(err)
		return
	}

	common.RespondJSON(c, http.StatusOK, profile)
}

// ListAll обрабатывает GET /referral/users — список всех профилей.
func (h *ProfileHandler) ListAll(c *gin.Context) {
	profiles, err := h.referrals.ListProfiles(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}

	common.RespondJSON(c, http.StatusOK, profiles)
}

// AttachReferral обрабатывает PATCH /referral/code — активация инвайт-кода.
func (h *ProfileHandler) AttachReferral(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, "")
		return
	}

	var req dto.AttachReferralRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	if err := h.referrals.AttachReferral(c.Request.Context(), userID, req.ActivatedCode); err != nil {
		c.Error(err)
		return
	}

	common.RespondSuccess(c, http.StatusOK, "Referral code successfully added", nil)
}

// DeleteMe обрабатывает DELETE /referral/delete — удаление аккаунта.
func (h *ProfileHandler) DeleteMe(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, "")
		return
	}

	if err := h.referrals.DeleteAccount(c.Request.Context(), userID); err != nil {
		c.Error(err)
		return
	}

	common.RespondSuccess(c, http.StatusOK, "User deleted", nil)
}
