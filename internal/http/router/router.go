package router

import (
	"github.com/gin-gonic/gin"

	"github.com/eencoree/ReferralSystem/internal/config"
	"github.com/eencoree/ReferralSystem/internal/http/handlers"
	"github.com/eencoree/ReferralSystem/internal/http/middleware"
	"github.com/eencoree/ReferralSystem/internal/service"
)

func SetupRouter(
	cfg *config.Config,
	authHandler *handlers.AuthHandler,
	profileHandler *handlers.ProfileHandler,
	wsHandler *handlers.WSHandler,
	healthHandler *handlers.HealthHandler,
	tokenManager *service.TokenManager,
) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	r.GET("/health", healthHandler.Health)

	api := r.Group("/api")
	api.GET("/ws", wsHandler.Handle)

	referral := r.Group("/referral")
	referral.GET("/users", profileHandler.ListAll)

	// Публичные маршруты авторизации под rate limit: выдача кода и так
	// ограничена кулдауном, но лимитер дешевле похода в БД.
	public := referral.Group("/")
	public.Use(middleware.RateLimitMiddleware(cfg.RateLimitLimit, cfg.RateLimitPeriod))
	{
		public.POST("/auth", authHandler.RequestCode)
		public.POST("/confirm", authHandler.ConfirmCode)
		public.POST("/refresh", authHandler.Refresh)
	}

	// Защищённые маршруты
	protected := referral.Group("/")
	protected.Use(middleware.AuthMiddleware(tokenManager))
	{
		protected.POST("/logout", authHandler.Logout)
		protected.GET("/profile", profileHandler.GetMe)
		protected.PATCH("/code", profileHandler.AttachReferral)
		protected.DELETE("/delete", profileHandler.DeleteMe)
	}

	return r
}
