package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// DefaultPageSize はクライアントが1ページで取得する件数です。
const DefaultPageSize = 5

// ClientConfig はターミナルクライアントの設定ファイル (TOML) です。
type ClientConfig struct {
	APIEndpoint string `toml:"api_endpoint"`
	IDToken     string `toml:"id_token"`
	PageSize    int    `toml:"page_size"`
}

// DefaultClientConfigPath は ~/.config/todos/config.toml を返します。
func DefaultClientConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "config.toml"
	}
	return filepath.Join(dir, "todos", "config.toml")
}

// LoadClientConfig は path の TOML を読み込みます。ファイルが無い場合はデフォルト値を返します。
func LoadClientConfig(path string) (*ClientConfig, error) {
	cfg := &ClientConfig{
		APIEndpoint: "http://localhost:8080",
		PageSize:    DefaultPageSize,
	}
	if path == "" {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("parse client config %s: %w", path, err)
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	return cfg, nil
}
