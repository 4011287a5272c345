package logger

import (
	"log/slog"
	"os"

	"github.com/golang-cz/devslog"

	"github.com/altafino/imap-attachment-downloader/internal/types"
)

// Setup creates a new logger based on configuration
func Setup(cfg *types.Config) *slog.Logger {
	var level slog.Level
	switch cfg.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: cfg.Logging.IncludeCaller,
	}

	var handler slog.Handler
	switch cfg.Logging.Format {
	case "json":
		handler = slog.NewJSONHandler(os.Stdout, opts)
	case "dev":
		handler = devslog.NewHandler(os.Stdout, &devslog.Options{
			HandlerOptions:    opts,
			SortKeys:          true,
			NewLineAfterLog:   true,
			StringerFormatter: true,
		})
	default:
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
