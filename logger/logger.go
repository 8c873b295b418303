package logger

import (
	"go.uber.org/zap"
)

// Logger is the structured logger handed to every component.
type Logger struct {
	*zap.SugaredLogger
}

func New(debug bool) *Logger {
	var cfg zap.Config
	if debug {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.TimeKey = "time"
	} else {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "timestamp"
		cfg.Encoding = "json"
	}
	cfg.EncoderConfig.LevelKey = "level"
	cfg.EncoderConfig.MessageKey = "msg"
	cfg.EncoderConfig.CallerKey = "caller"

	l, err := cfg.Build(zap.AddCaller())
	if err != nil {
		return Nop()
	}

	return &Logger{l.Sugar()}
}

// Nop returns a logger that discards everything; used when a Config leaves Logger nil.
func Nop() *Logger {
	return &Logger{zap.NewNop().Sugar()}
}

// OrNop returns l, or a no-op logger when l is nil.
func OrNop(l *Logger) *Logger {
	if l == nil {
		return Nop()
	}

	return l
}
