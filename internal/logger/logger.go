package logger

import (
	"context"
	"time"

	"github.com/TheZeroSlave/zapsentry"
	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// no-op until Initialize is called, so packages can log from tests without setup
	log          = zap.NewNop()
	sentryClient *sentry.Client
)

// Config holds logger configuration
type Config struct {
	Debug           bool
	SentryDSN       string
	SentryClient    *sentry.Client // takes precedence over SentryDSN
	Environment     string
	BreadcrumbLevel zapcore.Level // zero value means info
	Tags            map[string]string
	// Service names the binary on every log line and sentry event
	Service string
}

// Initialize builds the global logger. Errors are reported to sentry when a
// DSN or client is configured; lower levels become breadcrumbs.
func Initialize(cfg Config) error {
	base, err := newBaseLogger(cfg.Debug)
	if err != nil {
		return err
	}

	client, err := sentryClientFor(cfg)
	if err != nil {
		return err
	}
	if client != nil {
		if base, err = attachSentry(base, client, cfg); err != nil {
			return err
		}
	}

	if cfg.Service != "" {
		base = base.With(zap.String("service", cfg.Service))
	}

	log = base
	sentryClient = client
	return nil
}

func newBaseLogger(debug bool) (*zap.Logger, error) {
	zapConfig := zap.NewProductionConfig()
	zapConfig.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if debug {
		zapConfig = zap.NewDevelopmentConfig()
		zapConfig.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return zapConfig.Build()
}

func sentryClientFor(cfg Config) (*sentry.Client, error) {
	if cfg.SentryClient != nil {
		return cfg.SentryClient, nil
	}
	if cfg.SentryDSN == "" {
		return nil, nil
	}
	return sentry.NewClient(sentry.ClientOptions{
		Dsn:         cfg.SentryDSN,
		Debug:       cfg.Debug,
		Environment: cfg.Environment,
	})
}

func attachSentry(base *zap.Logger, client *sentry.Client, cfg Config) (*zap.Logger, error) {
	breadcrumbLevel := cfg.BreadcrumbLevel
	if breadcrumbLevel == zapcore.InvalidLevel {
		breadcrumbLevel = zapcore.InfoLevel
	}

	tags := make(map[string]string, len(cfg.Tags)+1)
	for k, v := range cfg.Tags {
		tags[k] = v
	}
	if _, ok := tags["service"]; !ok && cfg.Service != "" {
		tags["service"] = cfg.Service
	}

	core, err := zapsentry.NewCore(zapsentry.Configuration{
		Level:             zapcore.ErrorLevel,
		EnableBreadcrumbs: true,
		BreadcrumbLevel:   breadcrumbLevel,
		Tags:              tags,
	}, zapsentry.NewSentryClientFromClient(client))
	if err != nil {
		return nil, err
	}
	return zapsentry.AttachCoreToLogger(core, base), nil
}

// Replace swaps the global logger and returns a func restoring the previous one
func Replace(l *zap.Logger) func() {
	prev := log
	log = l
	return func() {
		log = prev
	}
}

// Flush waits up to timeout for queued sentry events
func Flush(timeout time.Duration) {
	if sentryClient != nil {
		sentryClient.Flush(timeout)
	}
}

// FromContext scopes the logger to the sentry hub carried by ctx
func FromContext(ctx context.Context) *zap.Logger {
	if ctx == nil {
		return log
	}
	return log.With(zapsentry.Context(ctx))
}

func Default() *zap.Logger {
	return log
}

func Info(msg string, fields ...zap.Field) {
	log.Info(msg, fields...)
}

func InfoCtx(ctx context.Context, msg string, fields ...zap.Field) {
	FromContext(ctx).Info(msg, fields...)
}

func Warn(msg string, fields ...zap.Field) {
	log.Warn(msg, fields...)
}

func WarnCtx(ctx context.Context, msg string, fields ...zap.Field) {
	FromContext(ctx).Warn(msg, fields...)
}

func DebugCtx(ctx context.Context, msg string, fields ...zap.Field) {
	FromContext(ctx).Debug(msg, fields...)
}

// Error logs err's text as the message; a nil err still produces an entry
func Error(err error, fields ...zap.Field) {
	log.Error(errorMessage(err), fields...)
}

func ErrorCtx(ctx context.Context, err error, fields ...zap.Field) {
	FromContext(ctx).Error(errorMessage(err), fields...)
}

// FatalCtx logs and exits the process
func FatalCtx(ctx context.Context, msg string, fields ...zap.Field) {
	FromContext(ctx).Fatal(msg, fields...)
}

func errorMessage(err error) string {
	if err == nil {
		return "error occurred"
	}
	return err.Error()
}
