package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/eencoree/ReferralSystem/internal/http/middleware"
)

func TestProfileHandler_GetMe_Unauthorized(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler := &ProfileHandler{referrals: nil}
	r.GET("/referral/profile", handler.GetMe)

	req, _ := http.NewRequest("GET", "/referral/profile", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestProfileHandler_AttachReferral_Unauthorized(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler := &ProfileHandler{referrals: nil}
	r.PATCH("/referral/code", handler.AttachReferral)

	req, _ := http.NewRequest("PATCH", "/referral/code", strings.NewReader(`{"activated_code":"aB3xY9"}`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestProfileHandler_AttachReferral_MissingBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler := &ProfileHandler{referrals: nil}
	r.PATCH("/referral/code", func(c *gin.Context) {
		c.Set(middleware.ContextUserIDKey, uuid.New())
		handler.AttachReferral(c)
	})

	req, _ := http.NewRequest("PATCH", "/referral/code", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProfileHandler_DeleteMe_Unauthorized(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler := &ProfileHandler{referrals: nil}
	r.DELETE("/referral/delete", handler.DeleteMe)

	req, _ := http.NewRequest("DELETE", "/referral/delete", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
