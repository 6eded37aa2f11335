package routes

import (
	"errors"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"serverless-todo/backend/internal/handlers"
	"serverless-todo/backend/internal/models"
	"serverless-todo/backend/internal/repositories"
	"serverless-todo/backend/internal/services"
)

// TokenValidator はベアラートークンを検証して呼び出し元を返します。
type TokenValidator interface {
	ValidateToken(tokenString string) (*models.Identity, error)
}

// AuthMiddleware はJWTトークンを検証し、userId (sub) をコンテキストに設定するミドルウェアです。
func AuthMiddleware(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := c.GetHeader("Authorization")
		if tokenString == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			c.Abort()
			return
		}
		// "Bearer " プレフィックスを削除
		if !strings.HasPrefix(tokenString, "Bearer ") {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token format"})
			c.Abort()
			return
		}
		tokenString = tokenString[len("Bearer "):]

		identity, err := validator.ValidateToken(tokenString)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			c.Abort()
			return
		}

		c.Set(handlers.UserIDKey, identity.UserID)
		c.Set("user_email", identity.Email)
		c.Next()
	}
}

// ErrorMiddleware はハンドラーが c.Error で渡したエラーをステータスコードに変換します。
func ErrorMiddleware(logger *log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err
		status, message := statusFor(err)
		if status >= http.StatusInternalServerError {
			logger.Error("Request failed", "method", c.Request.Method, "path", c.FullPath(), "status", status, "err", err)
		} else {
			logger.Warn("Request rejected", "method", c.Request.Method, "path", c.FullPath(), "status", status, "err", err)
		}
		c.JSON(status, gin.H{"error": message})
	}
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, services.ErrInvalidParameters), errors.Is(err, repositories.ErrInvalidPageKey):
		return http.StatusBadRequest, "Invalid parameters"
	case errors.Is(err, repositories.ErrTodoNotFound):
		return http.StatusNotFound, "Todo not found"
	case errors.Is(err, services.ErrAttachmentsDisabled):
		return http.StatusNotImplemented, "Attachments are not configured"
	case errors.As(err, new(*repositories.ConflictError)):
		return http.StatusConflict, "Conflict"
	case repositories.IsRetryable(err):
		return http.StatusServiceUnavailable, "Service temporarily unavailable"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}
