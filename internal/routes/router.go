// Package routesはroutingを行います。
package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"serverless-todo/backend/internal/config"
	"serverless-todo/backend/internal/handlers"
)

// HealthCheck はストアへの疎通を確認します。nil なら常に ok です。
type HealthCheck func(ctx context.Context) error

// Dependencies はルーターに注入する依存関係です。
type Dependencies struct {
	Config      *config.Config
	TodoHandler *handlers.TodoHandler
	Tokens      TokenValidator
	Logger      *log.Logger
	Health      HealthCheck
}

// SetupRouter はGinルーターをセットアップし、すべてのエンドポイントを登録します。
func SetupRouter(deps Dependencies) *gin.Engine {
	r := gin.Default()

	// CORS対策
	r.Use(cors.New(corsConfig(deps.Config.CORSOrigins)))
	r.Use(ErrorMiddleware(deps.Logger))

	r.GET("/health", healthHandler(deps.Health))

	todoHandler := deps.TodoHandler
	authorized := r.Group("/")
	authorized.Use(AuthMiddleware(deps.Tokens))
	{
		authorized.GET("/todos", todoHandler.GetTodosHandler)
		authorized.GET("/todos/dueDate/:sortby", todoHandler.GetTodosByDueDateHandler)
		authorized.POST("/todos", todoHandler.CreateTodoHandler)
		authorized.PATCH("/todos/:todoId", todoHandler.UpdateTodoHandler)
		authorized.DELETE("/todos/:todoId", todoHandler.DeleteTodoHandler)
		authorized.POST("/todos/:todoId/attachment", todoHandler.CreateAttachmentURLHandler)
	}

	return r
}

func corsConfig(origins []string) cors.Config {
	config := cors.DefaultConfig()
	config.AllowMethods = []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"}
	config.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	config.AllowCredentials = true
	config.MaxAge = 12 * time.Hour
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		// 資格情報付きでは "*" を返せないので、リクエストの Origin をそのまま許可する
		config.AllowOriginFunc = func(origin string) bool { return true }
	} else {
		config.AllowOrigins = origins
	}
	return config
}

func healthHandler(check HealthCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		if check != nil {
			if err := check(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error", "message": "Store connection failed", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
