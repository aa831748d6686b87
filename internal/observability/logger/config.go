package logger

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config selects how the process logger writes.
type Config struct {
	// Env picks the output format: "prod" emits JSON with stacktraces
	// on errors, anything else a colored console. Default "dev".
	Env string

	// Level is the minimum level to emit: "debug", "info", "warn",
	// "error" or "fatal". Default "info".
	Level string

	// ServiceName and Version ride on every entry when set.
	ServiceName string
	Version     string
}

// build assembles the zap logger. It never fails: if zap rejects the
// derived configuration the process falls back to zap's stock
// production logger instead of dying.
func (c Config) build() *zap.Logger {
	zcfg, opts := c.zapConfig()
	l, err := zcfg.Build(opts...)
	if err != nil {
		l, _ = zap.NewProduction()
		return l
	}
	return l.With(c.baseFields()...)
}

// zapConfig maps Config onto zap's own config plus build options.
func (c Config) zapConfig() (zap.Config, []zap.Option) {
	opts := []zap.Option{zap.AddCaller(), zap.AddCallerSkip(1)}
	level := zap.NewAtomicLevelAt(parseLevel(c.Level))

	if strings.EqualFold(c.Env, "prod") {
		zcfg := zap.NewProductionConfig()
		zcfg.Level = level
		zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		zcfg.EncoderConfig.EncodeCaller = zapcore.ShortCallerEncoder
		return zcfg, append(opts, zap.AddStacktrace(zapcore.ErrorLevel))
	}

	zcfg := zap.NewDevelopmentConfig()
	zcfg.Level = level
	zcfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	zcfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
	zcfg.EncoderConfig.EncodeCaller = zapcore.ShortCallerEncoder
	zcfg.DisableStacktrace = true
	return zcfg, opts
}

func (c Config) baseFields() []zap.Field {
	var fields []zap.Field
	if c.ServiceName != "" {
		fields = append(fields, zap.String("service", c.ServiceName))
	}
	if c.Version != "" {
		fields = append(fields, zap.String("version", c.Version))
	}
	return fields
}

// parseLevel maps a level name onto zapcore's scale; unknown names and
// the empty string mean info.
func parseLevel(lvl string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(lvl)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	case "fatal":
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}
