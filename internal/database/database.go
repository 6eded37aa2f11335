// Package database はストアへの接続を初期化します。
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/charmbracelet/log"
	_ "github.com/go-sql-driver/mysql"

	"serverless-todo/backend/internal/config"
)

// LoadAWSConfig はリージョンを指定してAWSの標準設定を読み込みます。
// オフラインモードではローカル用の固定クレデンシャルを使います。
func LoadAWSConfig(ctx context.Context, cfg config.DynamoConfig) (aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{}
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.Offline {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider("local", "local", ""),
		))
	}
	return awsconfig.LoadDefaultConfig(ctx, opts...)
}

// NewDynamoDBClient はDynamoDBクライアントを作成します。
// IS_OFFLINE が有効な場合はローカルのDynamoDB (DYNAMODB_ENDPOINT) に接続します。
func NewDynamoDBClient(awsCfg aws.Config, cfg config.DynamoConfig, logger *log.Logger) *dynamodb.Client {
	if cfg.Offline {
		logger.Info("Creating a local DynamoDB instance", "endpoint", cfg.Endpoint)
		return dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		})
	}
	return dynamodb.NewFromConfig(awsCfg)
}

// InitDB はMySQL接続を初期化します。
func InitDB(cfg config.MySQLConfig, logger *log.Logger) (*sql.DB, error) {
	db, err := sql.Open("mysql", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	logger.Info("Successfully connected to MySQL database!")
	return db, nil
}
