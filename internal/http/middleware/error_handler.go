package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/eencoree/ReferralSystem/internal/logger"
	"github.com/eencoree/ReferralSystem/internal/pkg/apperror"
	"github.com/eencoree/ReferralSystem/internal/repository"
)

// ErrorHandler обрабатывает ошибки централизованно.
// Ошибки прикладной таксономии транслируются в свой HTTP статус,
// внутренние ошибки маскируются общим сообщением.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		// Проверяем, не был ли уже отправлен ответ
		if c.Writer.Written() {
			return
		}

		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err

		if logger.Log != nil {
			logger.Log.WithFields(logrus.Fields{
				"error":  err.Error(),
				"path":   c.Request.URL.Path,
				"method": c.Request.Method,
			}).Error("Request error")
		}

		statusCode := http.StatusInternalServerError
		message := "internal server error"

		var appErr *apperror.AppError
		switch {
		case errors.As(err, &appErr):
			statusCode = appErr.HTTPStatus
			message = appErr.Message
		case errors.Is(err, repository.ErrUserNotFound):
			statusCode = http.StatusNotFound
			message = "user not found"
		case errors.Is(err, repository.ErrPhoneCodeNotFound):
			statusCode = http.StatusNotFound
			message = "Code not found"
		}

		c.JSON(statusCode, gin.H{"error": message})
	}
}
