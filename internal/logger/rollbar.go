package logger

import (
	"go.uber.org/zap/zapcore"
)

// ReportFunc receives one entry. err is the first error field, if any; the
// other fields are flattened into extras.
type ReportFunc func(level zapcore.Level, msg string, err error, extras map[string]any)

// rollbarCore is a zapcore.Core that hands entries at or above a level to a
// ReportFunc.
type rollbarCore struct {
	zapcore.LevelEnabler
	report ReportFunc
	fields []zapcore.Field
}

// NewRollbarCore returns a core reporting entries enabled by enab.
func NewRollbarCore(enab zapcore.LevelEnabler, report ReportFunc) zapcore.Core {
	return &rollbarCore{LevelEnabler: enab, report: report}
}

func (c *rollbarCore) With(fields []zapcore.Field) zapcore.Core {
	clone := *c
	clone.fields = append(append([]zapcore.Field(nil), c.fields...), fields...)
	return &clone
}

func (c *rollbarCore) Check(e zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(e.Level) {
		return ce.AddCore(e, c)
	}
	return ce
}

func (c *rollbarCore) Write(e zapcore.Entry, fields []zapcore.Field) error {
	enc := zapcore.NewMapObjectEncoder()
	var err error
	for _, f := range append(append([]zapcore.Field(nil), c.fields...), fields...) {
		if f.Type == zapcore.ErrorType && err == nil {
			if fe, ok := f.Interface.(error); ok {
				err = fe
				continue
			}
		}
		f.AddTo(enc)
	}
	if e.Caller.Defined {
		enc.Fields["caller"] = e.Caller.TrimmedPath()
	}
	if e.LoggerName != "" {
		enc.Fields["logger"] = e.LoggerName
	}
	c.report(e.Level, e.Message, err, enc.Fields)
	return nil
}

func (c *rollbarCore) Sync() error { return nil }
