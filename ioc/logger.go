package ioc

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/KNICEX/auto-trader/internal/config"
)

// InitLogger 设置默认 slog, 同时写 stdout 和日志文件; 返回的函数用于关闭文件
func InitLogger(cfg config.LogConfig) (*slog.Logger, func()) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}

	var w io.Writer = os.Stdout
	closeFn := func() {}
	if cfg.Path != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
			panic(err)
		}
		f, err := os.OpenFile(cfg.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			panic(err)
		}
		w = io.MultiWriter(os.Stdout, f)
		closeFn = func() { _ = f.Close() }
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger, closeFn
}
