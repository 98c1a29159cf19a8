// Package telemetry turns dashboard, command and import events into structured
// zap log lines.
package telemetry

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Recorder satisfies the Record(ctx, event, payload) contract shared by the
// dashboard service, its commands and the HTTP layer.
type Recorder struct {
	logger *zap.Logger
	level  zapcore.Level
}

// Option customizes a Recorder.
type Option func(*Recorder)

// WithLevel sets the level events are logged at (info by default).
func WithLevel(level zapcore.Level) Option {
	return func(r *Recorder) {
		r.level = level
	}
}

// New wraps logger. A nil logger yields a no-op recorder.
func New(logger *zap.Logger, opts ...Option) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Recorder{
		logger: logger.Named("telemetry"),
		level:  zapcore.InfoLevel,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Record logs the event with payload keys as sorted fields. Events whose name
// ends in "_error" or ".error" are logged at warn level.
func (r *Recorder) Record(ctx context.Context, event string, payload map[string]any) {
	if r == nil {
		return
	}
	level := r.level
	if strings.HasSuffix(event, "_error") || strings.HasSuffix(event, ".error") {
		level = zapcore.WarnLevel
	}
	ce := r.logger.Check(level, event)
	if ce == nil {
		return
	}
	fields := make([]zap.Field, 0, len(payload)+1)
	fields = append(fields, zap.String("event", event))
	for _, key := range sortedKeys(payload) {
		fields = append(fields, zap.Any(key, payload[key]))
	}
	if ctx != nil {
		if err := ctx.Err(); err != nil {
			fields = append(fields, zap.NamedError("ctx_err", err))
		}
	}
	ce.Write(fields...)
}

// NewLogger builds the process logger: JSON production config, or a
// human-readable development config when dev is set.
func NewLogger(level string, dev bool) (*zap.Logger, error) {
	var cfg zap.Config
	if dev {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	if level != "" {
		lvl, err := zapcore.ParseLevel(level)
		if err != nil {
			return nil, err
		}
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}
	return cfg.Build()
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
