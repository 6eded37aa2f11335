// Package testutil はテスト用のフェイクストアとルーターのセットアップを提供します。
package testutil

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/require"

	"serverless-todo/backend/internal/config"
	"serverless-todo/backend/internal/database"
	"serverless-todo/backend/internal/handlers"
	"serverless-todo/backend/internal/logging"
	"serverless-todo/backend/internal/models"
	"serverless-todo/backend/internal/repositories"
	"serverless-todo/backend/internal/routes"
	"serverless-todo/backend/internal/services"
	"serverless-todo/backend/internal/validation"
)

// TestSecret はテスト用トークンの署名に使う共有シークレットです。
const TestSecret = "test-secret"

// TestConfig はテスト用の設定です。
func TestConfig() *config.Config {
	return &config.Config{
		Port:        "8080",
		GinMode:     gin.TestMode,
		StoreDriver: config.DriverDynamoDB,
		CORSOrigins: []string{"http://localhost:3000"},
		Dynamo: config.DynamoConfig{
			Region:         "us-east-1",
			TodosTable:     "Todos",
			CreatedAtIndex: "CreatedAtIndex",
			DueDateIndex:   "DueDateIndex",
		},
		Auth: config.AuthConfig{Secret: TestSecret},
	}
}

// NewFakeDynamoFor は cfg のインデックス名を持つFakeDynamoを作成します。
func NewFakeDynamoFor(cfg config.DynamoConfig) *FakeDynamo {
	return NewFakeDynamo(map[string]string{
		cfg.CreatedAtIndex: "createdAt",
		cfg.DueDateIndex:   "dueDate",
	})
}

// TestEnv はテスト用に組み立てたルーターと依存関係です。
type TestEnv struct {
	Router *gin.Engine
	Store  *FakeDynamo
	Repo   *repositories.DynamoTodoRepository
	JWT    *services.JWTService
}

// SetupTestRouter はFakeDynamoを使うテスト用のGinルーターをセットアップします。
// attachments が nil なら添付ファイルは無効です。
func SetupTestRouter(t *testing.T, attachments services.Attachments) *TestEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := TestConfig()
	logger := logging.Discard()

	// リポジトリ
	store := NewFakeDynamoFor(cfg.Dynamo)
	todoRepo := repositories.NewDynamoTodoRepository(store, cfg.Dynamo, logger)

	// サービス
	todoService := services.NewTodoService(todoRepo, attachments)
	jwtService, err := services.NewJWTService(cfg.Auth)
	require.NoError(t, err)

	// ハンドラー
	todoHandler := handlers.NewTodoHandler(todoService, validation.MustNew())

	r := routes.SetupRouter(routes.Dependencies{
		Config:      cfg,
		TodoHandler: todoHandler,
		Tokens:      jwtService,
		Logger:      logger,
		Health:      todoRepo.Ping,
	})
	return &TestEnv{Router: r, Store: store, Repo: todoRepo, JWT: jwtService}
}

// Token は userID をsubに持つテスト用トークンを返します。
func (e *TestEnv) Token(t *testing.T, userID string) string {
	t.Helper()
	token, err := e.JWT.GenerateToken(userID, userID+"@example.com")
	require.NoError(t, err)
	return token
}

// Do はトークン付きでリクエストを送り、レスポンスを返します。token が空なら Authorization を付けません。
func (e *TestEnv) Do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	e.Router.ServeHTTP(resp, req)
	return resp
}

// CreateTestTodo はAPI経由でTodoを作成し、作成されたTodoを返します。
func (e *TestEnv) CreateTestTodo(t *testing.T, token, name, dueDate string, priority models.Priority) models.TodoItem {
	t.Helper()
	resp := e.Do(t, http.MethodPost, "/todos", token, map[string]any{
		"name":     name,
		"dueDate":  dueDate,
		"priority": priority,
	})
	require.Equal(t, http.StatusCreated, resp.Code, "TODO作成に失敗しました: %s", resp.Body.String())

	var created models.TodoItemResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &created))
	return created.Item
}

// SetupTestDB はテスト用のMySQLに接続し、todos テーブルを空の状態で用意します。
// TEST_DB_HOST が設定されていない場合はテストをスキップします。
func SetupTestDB(t *testing.T) (*sql.DB, *repositories.MySQLTodoRepository) {
	t.Helper()
	_ = godotenv.Load("../../.env")

	if os.Getenv("TEST_DB_HOST") == "" {
		t.Skip("TEST_DB_HOST is not set; skipping MySQL tests")
	}
	cfg := config.MySQLConfig{
		User: os.Getenv("TEST_DB_USER"),
		Pass: os.Getenv("TEST_DB_PASS"),
		Host: os.Getenv("TEST_DB_HOST"),
		Port: os.Getenv("TEST_DB_PORT"),
		Name: os.Getenv("TEST_DB_NAME"),
	}
	if cfg.Port == "" {
		cfg.Port = "3306"
	}

	db, err := database.InitDB(cfg, logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := repositories.NewMySQLTodoRepository(db, logging.Discard())
	require.NoError(t, repo.Migrate(context.Background()))
	// 既存のデータを削除 (テストのたびにクリーンな状態にするため)
	_, err = db.Exec("TRUNCATE TABLE todos")
	require.NoError(t, err)
	return db, repo
}
