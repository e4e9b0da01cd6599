// Package logging installs the process logger.
package logging

import (
	"context"
	"io"
	"log/slog"

	"github.com/lmittmann/tint"
	slogctx "github.com/veqryn/slog-context"
)

const timeFormat = "15:04:05.000"

// New returns a console logger writing to w. Attributes added to a context
// with slogctx.Append are included in every record logged with it.
func New(w io.Writer, level slog.Level, color bool) *slog.Logger {
	handler := tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: timeFormat,
		AddSource:  level <= slog.LevelDebug,
		NoColor:    !color,
	})
	return slog.New(slogctx.NewHandler(handler, nil))
}

// Setup installs the logger as the slog default and stores it in ctx.
func Setup(ctx context.Context, w io.Writer, level slog.Level, color bool) context.Context {
	logger := New(w, level, color)
	slog.SetDefault(logger)
	return slogctx.NewCtx(ctx, logger)
}
