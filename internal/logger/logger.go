// Package logger builds the zap logger used by the portal binaries. Entries
// at error level and above are also sent to Rollbar when a token is set.
package logger

import (
	"os"

	"github.com/rollbar/rollbar-go"
	rollbarerrors "github.com/rollbar/rollbar-go/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options configures New.
type Options struct {
	Env          string
	Level        string
	Debug        bool
	RollbarToken string
	Service      string
}

// New returns a development logger in debug mode and a JSON production
// logger otherwise.
func New(opts Options) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if opts.Level != "" {
		if err := level.Set(opts.Level); err != nil {
			return nil, err
		}
	}

	cfg := zap.NewProductionConfig()
	if opts.Debug {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(level)

	var zopts []zap.Option
	if opts.RollbarToken != "" {
		rollbar.SetToken(opts.RollbarToken)
		rollbar.SetEnvironment(opts.Env)
		rollbar.SetCodeVersion(os.Getenv("BUILD"))
		if host, err := os.Hostname(); err == nil {
			rollbar.SetServerHost(host)
		}
		rollbar.SetStackTracer(rollbarerrors.StackTracer)
		zopts = append(zopts, zap.WrapCore(func(c zapcore.Core) zapcore.Core {
			return zapcore.NewTee(c, NewRollbarCore(zapcore.ErrorLevel, reportToRollbar))
		}))
	}

	l, err := cfg.Build(zopts...)
	if err != nil {
		return nil, err
	}
	if opts.Service != "" {
		l = l.With(zap.String("service", opts.Service))
	}
	return l, nil
}

// Close flushes buffered entries, including pending Rollbar reports.
func Close(l *zap.Logger) {
	_ = l.Sync()
	rollbar.Close()
}

func reportToRollbar(level zapcore.Level, msg string, err error, extras map[string]any) {
	lvl := rollbar.ERR
	if level >= zapcore.DPanicLevel {
		lvl = rollbar.CRIT
	}
	if err != nil {
		rollbar.ErrorWithExtras(lvl, err, withMessage(extras, msg))
		return
	}
	rollbar.MessageWithExtras(lvl, msg, extras)
}

func withMessage(extras map[string]any, msg string) map[string]any {
	if extras == nil {
		extras = map[string]any{}
	}
	extras["message"] = msg
	return extras
}
