// Package logging はcharmbracelet/logを使ったロガーを提供します。
package logging

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
)

// New は標準エラー出力に書き出すロガーを作成します。
func New(level, format, prefix string) *log.Logger {
	return NewWithWriter(os.Stderr, level, format, prefix)
}

// NewWithWriter は w に書き出すロガーを作成します。
func NewWithWriter(w io.Writer, level, format, prefix string) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		Level:           ParseLevel(level),
		Formatter:       ParseFormatter(format),
		ReportTimestamp: true,
		Prefix:          prefix,
	})
}

// Discard はテスト用に何も出力しないロガーを返します。
func Discard() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.FatalLevel})
}

// ParseLevel は文字列のログレベルを変換します。不明な値は info です。
func ParseLevel(level string) log.Level {
	switch level {
	case "debug":
		return log.DebugLevel
	case "warn", "warning":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

// ParseFormatter は "json" / "logfmt" / "text" を変換します。
func ParseFormatter(format string) log.Formatter {
	switch format {
	case "json":
		return log.JSONFormatter
	case "logfmt":
		return log.LogfmtFormatter
	default:
		return log.TextFormatter
	}
}
