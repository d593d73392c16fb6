// Package logging builds the process logger and the chi request logger.
package logging

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a logger. development selects the console encoder.
func New(level string, development bool) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}

	cfg := zap.NewProductionConfig()
	if development {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}

// RequestLogger returns chi middleware that logs each request through l.
func RequestLogger(l *zap.Logger) func(http.Handler) http.Handler {
	return middleware.RequestLogger(&formatter{logger: l})
}

type formatter struct {
	logger *zap.Logger
}

func (f *formatter) NewLogEntry(r *http.Request) middleware.LogEntry {
	return &entry{
		logger: f.logger.With(
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("remote", r.RemoteAddr),
		),
	}
}

type entry struct {
	logger *zap.Logger
}

func (e *entry) Write(status, bytes int, _ http.Header, elapsed time.Duration, _ interface{}) {
	fields := []zap.Field{
		zap.Int("status", status),
		zap.Int("bytes", bytes),
		zap.Duration("elapsed", elapsed),
	}
	if status >= http.StatusInternalServerError {
		e.logger.Warn("Request served", fields...)
		return
	}
	e.logger.Info("Request served", fields...)
}

func (e *entry) Panic(v interface{}, stack []byte) {
	e.logger.Error("Request panicked", zap.Any("panic", v), zap.ByteString("stack", stack))
}
