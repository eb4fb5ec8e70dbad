// Package logger builds the zap-backed structured loggers used throughout
// the supervisor, with log rotation via lumberjack. One *zap.SugaredLogger
// is handed out per named component (master, a worker id, the controller)
// so every line carries a "component" field for free.
package logger

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"sockboss/pkg/config"
)

var (
	mu   sync.Mutex
	base *zap.Logger
)

// Configure (re)builds the shared base logger from the resolved log config.
// Safe to call once at startup, before the first Logging call; later calls
// replace the base logger for loggers obtained afterward.
func Configure(cfg config.Log) {
	mu.Lock()
	defer mu.Unlock()
	base = buildBase(cfg)
}

func buildBase(cfg config.Log) *zap.Logger {
	level := zapcore.InfoLevel
	if cfg.Level != "" {
		_ = level.UnmarshalText([]byte(cfg.Level))
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoder := zapcore.NewConsoleEncoder(encoderCfg)

	var cores []zapcore.Core
	cores = append(cores, zapcore.NewCore(encoder, zapcore.Lock(os.Stderr), level))

	if cfg.FileEnabled && cfg.FilePath != "" {
		rotator := &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    orDefault(cfg.FileSize, 10),
			MaxAge:     orDefault(cfg.MaxAge, 7),
			MaxBackups: orDefault(cfg.MaxBackups, 7),
			Compress:   cfg.FileCompress,
		}
		cores = append(cores, zapcore.NewCore(encoder, zapcore.AddSync(rotator), level))
	}

	return zap.New(zapcore.NewTee(cores...), zap.AddCaller())
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// Logging returns a sugared logger tagged with the given component name
// ("master", "worker.3", "controller", ...). Falls back to a bare
// production logger if Configure was never called, so packages that obtain
// a logger before config load (tests, early CLI errors) still get output.
func Logging(component string) *zap.SugaredLogger {
	mu.Lock()
	b := base
	mu.Unlock()

	if b == nil {
		b, _ = zap.NewProduction()
	}
	return b.With(zap.String("component", component)).Sugar()
}
