package main

import (
	"context"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"serverless-todo/backend/internal/config"
	"serverless-todo/backend/internal/database"
	"serverless-todo/backend/internal/handlers"
	"serverless-todo/backend/internal/logging"
	"serverless-todo/backend/internal/repositories"
	"serverless-todo/backend/internal/routes"
	"serverless-todo/backend/internal/services"
	"serverless-todo/backend/internal/storage"
	"serverless-todo/backend/internal/validation"
)

// startupTimeout は起動時のストア初期化にかける時間の上限です。
const startupTimeout = 3 * time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load config", "err", err)
	}
	logger := logging.New(cfg.LogLevel, cfg.LogFormat, "api")
	gin.SetMode(cfg.GinMode)

	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	todoRepo, attachments, err := setupStore(ctx, cfg, logger)
	cancel()
	if err != nil {
		logger.Fatal("failed to initialize store", "driver", cfg.StoreDriver, "err", err)
	}

	jwtService, err := services.NewJWTService(cfg.Auth)
	if err != nil {
		logger.Fatal("failed to initialize token validation", "err", err)
	}
	validator, err := validation.New()
	if err != nil {
		logger.Fatal("failed to compile request schemas", "err", err)
	}

	todoService := services.NewTodoService(todoRepo, attachments)
	todoHandler := handlers.NewTodoHandler(todoService, validator)

	r := routes.SetupRouter(routes.Dependencies{
		Config:      cfg,
		TodoHandler: todoHandler,
		Tokens:      jwtService,
		Logger:      logger,
		Health:      todoRepo.Ping,
	})

	logger.Info("Server listening", "port", cfg.Port, "store", cfg.StoreDriver)
	if err := r.Run(":" + cfg.Port); err != nil {
		logger.Error("server stopped", "err", err)
		os.Exit(1)
	}
}

// setupStore は STORE_DRIVER に応じてリポジトリを作成します。
// 添付ファイル用バケットが設定されていなければ attachments は nil です。
func setupStore(ctx context.Context, cfg *config.Config, logger *log.Logger) (repositories.TodoRepository, services.Attachments, error) {
	var attachments services.Attachments

	switch cfg.StoreDriver {
	case config.DriverMySQL:
		db, err := database.InitDB(cfg.MySQL, logger)
		if err != nil {
			return nil, nil, err
		}
		repo := repositories.NewMySQLTodoRepository(db, logger)
		if err := repo.Migrate(ctx); err != nil {
			return nil, nil, err
		}
		if cfg.Attachment.Bucket != "" {
			awsCfg, err := database.LoadAWSConfig(ctx, cfg.Dynamo)
			if err != nil {
				return nil, nil, err
			}
			attachments = storage.NewS3AttachmentStore(awsCfg, cfg.Attachment.Bucket, cfg.Attachment.URLExpiration)
		}
		return repo, attachments, nil

	default:
		awsCfg, err := database.LoadAWSConfig(ctx, cfg.Dynamo)
		if err != nil {
			return nil, nil, err
		}
		client := database.NewDynamoDBClient(awsCfg, cfg.Dynamo, logger)
		repo := repositories.NewDynamoTodoRepository(client, cfg.Dynamo, logger)
		if cfg.Dynamo.Offline {
			if err := repo.EnsureTable(ctx); err != nil {
				return nil, nil, err
			}
		}
		if cfg.Attachment.Bucket != "" {
			attachments = storage.NewS3AttachmentStore(awsCfg, cfg.Attachment.Bucket, cfg.Attachment.URLExpiration)
		}
		return repo, attachments, nil
	}
}
