package parproc

import (
	"context"

	lg "github.com/Andrej220/go-utils/zlog"
	"go.uber.org/zap"
)

// ContextLogger adapts l to the zlog interface processors log through.
func ContextLogger(l *zap.Logger) lg.ZLogger {
	if l == nil {
		return lg.Discard
	}
	return ctxLogger{l: l.WithOptions(zap.AddCallerSkip(1))}
}

// WithLogger attaches l to ctx so that lg.FromContext(ctx) logs through it.
func WithLogger(ctx context.Context, l *zap.Logger) context.Context {
	return lg.Attach(ctx, ContextLogger(l))
}

type ctxLogger struct{ l *zap.Logger }

func (c ctxLogger) Debug(msg string, fields ...lg.Field) { c.l.Debug(msg, fields...) }
func (c ctxLogger) Info(msg string, fields ...lg.Field)  { c.l.Info(msg, fields...) }
func (c ctxLogger) Warn(msg string, fields ...lg.Field)  { c.l.Warn(msg, fields...) }
func (c ctxLogger) Error(msg string, fields ...lg.Field) { c.l.Error(msg, fields...) }
func (c ctxLogger) Sync() error                          { return c.l.Sync() }

func (c ctxLogger) With(fields ...lg.Field) lg.ZLogger {
	return ctxLogger{l: c.l.With(fields...)}
}
