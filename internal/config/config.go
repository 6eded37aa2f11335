// Package config はサーバーとクライアントの設定を読み込みます。
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverDynamoDB = "dynamodb"
	DriverMySQL    = "mysql"
)

// Config はAPIサーバーの設定です。環境変数 (.env を含む) から読み込みます。
type Config struct {
	Port        string
	GinMode     string
	StoreDriver string
	CORSOrigins []string
	LogLevel    string
	LogFormat   string

	Dynamo     DynamoConfig
	MySQL      MySQLConfig
	Auth       AuthConfig
	Attachment AttachmentConfig
}

// DynamoConfig はテーブル名とインデックス名です。起動後は読み取り専用です。
type DynamoConfig struct {
	Region         string
	TodosTable     string
	CreatedAtIndex string
	DueDateIndex   string
	Offline        bool
	Endpoint       string
}

// MySQLConfig はMySQL接続情報です。
type MySQLConfig struct {
	User string
	Pass string
	Host string
	Port string
	Name string
}

// DSN はMySQL接続文字列 (DSN) を構築します。
func (m MySQLConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true", m.User, m.Pass, m.Host, m.Port, m.Name)
}

// AuthConfig はトークン検証の設定です。Secret (HS256) か Certificate (RS256 PEM) のどちらかが必要です。
type AuthConfig struct {
	Secret      string
	Certificate string
	Issuer      string
	Audience    string
}

// AttachmentConfig は添付ファイル用S3バケットの設定です。Bucket が空なら無効です。
type AttachmentConfig struct {
	Bucket        string
	URLExpiration time.Duration
}

// Load は .env を読み込んだ上で環境変数から Config を作成します。
func Load() (*Config, error) {
	// .env が無くてもエラーにしない (本番では環境変数を直接使う)
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv は現在の環境変数だけから Config を作成します。
func FromEnv() (*Config, error) {
	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		GinMode:     getEnv("GIN_MODE", "debug"),
		StoreDriver: strings.ToLower(getEnv("STORE_DRIVER", DriverDynamoDB)),
		CORSOrigins: splitList(getEnv("CORS_ORIGINS", "*")),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFormat:   getEnv("LOG_FORMAT", "text"),
		Dynamo: DynamoConfig{
			Region:         getEnv("AWS_REGION", "us-east-1"),
			TodosTable:     getEnv("TODOS_TABLE", "Todos"),
			CreatedAtIndex: getEnv("TODOS_CREATED_AT_INDEX", "CreatedAtIndex"),
			DueDateIndex:   getEnv("TODOS_DUE_DATE_INDEX", "DueDateIndex"),
			Offline:        getEnvBool("IS_OFFLINE", false),
			Endpoint:       getEnv("DYNAMODB_ENDPOINT", "http://localhost:8000"),
		},
		MySQL: MySQLConfig{
			User: os.Getenv("DB_USER"),
			Pass: os.Getenv("DB_PASS"),
			Host: getEnv("DB_HOST", "127.0.0.1"),
			Port: getEnv("DB_PORT", "3306"),
			Name: os.Getenv("DB_NAME"),
		},
		Auth: AuthConfig{
			Secret:      os.Getenv("JWT_SECRET"),
			Certificate: os.Getenv("AUTH_CERTIFICATE"),
			Issuer:      os.Getenv("AUTH_ISSUER"),
			Audience:    os.Getenv("AUTH_AUDIENCE"),
		},
		Attachment: AttachmentConfig{
			Bucket:        os.Getenv("ATTACHMENT_S3_BUCKET"),
			URLExpiration: getEnvSeconds("SIGNED_URL_EXPIRATION", 300*time.Second),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate は必須項目と値の組み合わせを確認します。
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case DriverDynamoDB:
		if c.Dynamo.TodosTable == "" || c.Dynamo.CreatedAtIndex == "" || c.Dynamo.DueDateIndex == "" {
			return fmt.Errorf("TODOS_TABLE, TODOS_CREATED_AT_INDEX and TODOS_DUE_DATE_INDEX must be set")
		}
	case DriverMySQL:
		if c.MySQL.User == "" || c.MySQL.Name == "" {
			return fmt.Errorf("DB_USER and DB_NAME must be set when STORE_DRIVER=mysql")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	if c.Auth.Secret == "" && c.Auth.Certificate == "" {
		return fmt.Errorf("JWT_SECRET or AUTH_CERTIFICATE environment variable not set")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}

// getEnvSeconds は秒数 (serverless.yml と同じ形式) か "5m" のような期間を読み取ります。
func getEnvSeconds(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	if n, err := strconv.Atoi(value); err == nil && n > 0 {
		return time.Duration(n) * time.Second
	}
	if d, err := time.ParseDuration(value); err == nil && d > 0 {
		return d
	}
	return fallback
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
