package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "testsecret")
	t.Setenv("STORE_DRIVER", "")
	t.Setenv("TODOS_TABLE", "")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, DriverDynamoDB, cfg.StoreDriver)
	assert.Equal(t, "Todos", cfg.Dynamo.TodosTable)
	assert.Equal(t, "CreatedAtIndex", cfg.Dynamo.CreatedAtIndex)
	assert.Equal(t, "DueDateIndex", cfg.Dynamo.DueDateIndex)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.Equal(t, 300*time.Second, cfg.Attachment.URLExpiration)
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "testsecret")
	t.Setenv("TODOS_TABLE", "Todos-dev")
	t.Setenv("IS_OFFLINE", "true")
	t.Setenv("CORS_ORIGINS", "http://localhost:3000, https://example.com")
	t.Setenv("SIGNED_URL_EXPIRATION", "60")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "Todos-dev", cfg.Dynamo.TodosTable)
	assert.True(t, cfg.Dynamo.Offline)
	assert.Equal(t, []string{"http://localhost:3000", "https://example.com"}, cfg.CORSOrigins)
	assert.Equal(t, time.Minute, cfg.Attachment.URLExpiration)
}

func TestFromEnv_RequiresAuth(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("AUTH_CERTIFICATE", "")

	_, err := FromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestFromEnv_MySQLRequiresDatabase(t *testing.T) {
	t.Setenv("JWT_SECRET", "testsecret")
	t.Setenv("STORE_DRIVER", "mysql")
	t.Setenv("DB_USER", "")
	t.Setenv("DB_NAME", "")

	_, err := FromEnv()
	require.Error(t, err)

	t.Setenv("DB_USER", "todo")
	t.Setenv("DB_NAME", "todos")
	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "todo:@tcp(127.0.0.1:3306)/todos?parseTime=true", cfg.MySQL.DSN())
}

func TestFromEnv_UnknownDriver(t *testing.T) {
	t.Setenv("JWT_SECRET", "testsecret")
	t.Setenv("STORE_DRIVER", "postgres")

	_, err := FromEnv()
	require.Error(t, err)
}

func TestLoadClientConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `api_endpoint = "https://abc123.execute-api.us-east-1.amazonaws.com/dev"
id_token = "token-value"
page_size = 10
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := LoadClientConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "https://abc123.execute-api.us-east-1.amazonaws.com/dev", cfg.APIEndpoint)
	assert.Equal(t, "token-value", cfg.IDToken)
	assert.Equal(t, 10, cfg.PageSize)
}

func TestLoadClientConfig_MissingFile(t *testing.T) {
	cfg, err := LoadClientConfig(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080", cfg.APIEndpoint)
	assert.Equal(t, DefaultPageSize, cfg.PageSize)
}
