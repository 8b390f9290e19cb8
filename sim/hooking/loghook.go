package hooking

import (
	"context"
	"log/slog"
)

// A LogHook writes every invocation it receives to a structured logger.
type LogHook struct {
	logger *slog.Logger
	levels map[*HookPos]slog.Level
}

// NewLogHook creates a LogHook. Invocations are logged at Debug level unless
// the position has been given another level with WithLevel.
func NewLogHook(logger *slog.Logger) *LogHook {
	return &LogHook{
		logger: logger,
		levels: make(map[*HookPos]slog.Level),
	}
}

// WithLevel sets the level used for a hook position.
func (h *LogHook) WithLevel(pos *HookPos, level slog.Level) *LogHook {
	h.levels[pos] = level
	return h
}

// Func logs the hook context.
func (h *LogHook) Func(ctx HookCtx) {
	level, ok := h.levels[ctx.Pos]
	if !ok {
		level = slog.LevelDebug
	}

	bg := context.Background()
	if !h.logger.Enabled(bg, level) {
		return
	}

	attrs := []slog.Attr{
		slog.String("where", ctx.Domain.Name()),
		slog.Any("item", ctx.Item),
	}

	if ctx.Detail != nil {
		attrs = append(attrs, slog.Any("detail", ctx.Detail))
	}

	h.logger.LogAttrs(bg, level, ctx.Pos.Name, attrs...)
}
