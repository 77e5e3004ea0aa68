package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapLogger adapta zap.SugaredLogger a la interfaz Logger.
type ZapLogger struct {
	s *zap.SugaredLogger
}

func newZap(opts Options) Logger {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.MessageKey = "msg"
	encCfg.EncodeTime = zapcore.RFC3339NanoTimeEncoder

	var enc zapcore.Encoder
	if opts.Format == FormatJSON {
		enc = zapcore.NewJSONEncoder(encCfg)
	} else {
		enc = zapcore.NewConsoleEncoder(encCfg)
	}

	out := zapcore.AddSync(os.Stdout)
	if opts.Output != nil {
		out = zapcore.AddSync(opts.Output)
	}

	core := zapcore.NewCore(enc, out, zapLevel(opts.Level))
	s := zap.New(core).Sugar()
	if app := appFields(opts.App); len(app) > 0 {
		s = s.With("app", app["app"])
	}
	return &ZapLogger{s: s}
}

func NewZapLogger(s *zap.SugaredLogger) *ZapLogger {
	return &ZapLogger{s: s}
}

func zapLevel(l Level) zapcore.Level {
	switch l {
	case Debug:
		return zapcore.DebugLevel
	case Warn:
		return zapcore.WarnLevel
	case Error:
		return zapcore.ErrorLevel
	case Info:
		return zapcore.InfoLevel
	default:
		return zapcore.FatalLevel
	}
}

func (l *ZapLogger) With(fields map[string]any) Logger {
	if len(fields) == 0 {
		return l
	}
	return &ZapLogger{s: l.s.With(keysAndValues(fields)...)}
}

func (l *ZapLogger) Debug(msg string, fields map[string]any) { l.s.Debugw(msg, keysAndValues(fields)...) }
func (l *ZapLogger) Info(msg string, fields map[string]any)  { l.s.Infow(msg, keysAndValues(fields)...) }
func (l *ZapLogger) Warn(msg string, fields map[string]any)  { l.s.Warnw(msg, keysAndValues(fields)...) }
func (l *ZapLogger) Error(msg string, fields map[string]any) { l.s.Errorw(msg, keysAndValues(fields)...) }

func keysAndValues(fields map[string]any) []any {
	merged := mergeFields(nil, fields)
	out := make([]any, 0, len(merged)*2)
	for k, v := range merged {
		out = append(out, k, v)
	}
	return out
}
