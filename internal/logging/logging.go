// Package logging constructs the process-wide zap logger, writing through a
// rotating lumberjack file sink. This mirrors CharGiway-miniarena's
// server/logger.go, generalized to take its destination and level as
// parameters instead of a hardcoded filename, so it can be constructed once
// in main and handed down explicitly rather than reached through a global.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options controls where and how verbosely the logger writes.
type Options struct {
	FilePath   string
	Level      zapcore.Level
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

func DefaultOptions(filePath string) Options {
	return Options{
		FilePath:   filePath,
		Level:      zapcore.InfoLevel,
		MaxSizeMB:  10,
		MaxBackups: 3,
		MaxAgeDays: 7,
	}
}

// New builds a *zap.SugaredLogger writing to a rotating file, console-encoded
// with caller info, the same shape as the teacher's InitLogger.
func New(opts Options) (*zap.SugaredLogger, func(), error) {
	lj := &lumberjack.Logger{
		Filename:   opts.FilePath,
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
		MaxAge:     opts.MaxAgeDays,
		Compress:   false,
	}

	ws := zapcore.AddSync(lj)
	encCfg := zapcore.EncoderConfig{
		TimeKey:       "ts",
		LevelKey:      "level",
		NameKey:       "logger",
		CallerKey:     "caller",
		MessageKey:    "msg",
		StacktraceKey: "stack",
		LineEnding:    zapcore.DefaultLineEnding,
		EncodeLevel:   zapcore.CapitalLevelEncoder,
		EncodeTime:    zapcore.ISO8601TimeEncoder,
		EncodeCaller:  zapcore.ShortCallerEncoder,
	}
	encoder := zapcore.NewConsoleEncoder(encCfg)
	core := zapcore.NewCore(encoder, ws, opts.Level)

	logger := zap.New(core, zap.AddCaller())
	sugar := logger.Sugar()
	return sugar, func() { _ = sugar.Sync() }, nil
}
