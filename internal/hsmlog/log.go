// Package hsmlog backs the structured debug trace the dispatcher emits from
// SealPIN and UnsealPIN. It exists because retry.Retry (adapted from the
// quantum-go-utils retry package) was written against a sibling "log"
// package that never shipped with that snapshot; this reconstructs the
// same call shape (Info(level, msg, err, kvPairs...)) on top of zap.
package hsmlog

import (
	"os"
	"sync"

	"go.uber.org/zap"
)

type Level string

const (
	DebugLevel Level = "debug"
	InfoLevel  Level = "info"
	WarnLevel  Level = "warn"
	ErrorLevel Level = "error"
)

var (
	once   sync.Once
	logger *zap.Logger
)

func get() *zap.Logger {
	once.Do(func() {
		cfg := zap.NewProductionConfig()
		cfg.DisableCaller = true
		cfg.DisableStacktrace = true
		l, err := cfg.Build()
		if err != nil {
			l = zap.NewNop()
		}
		logger = l
	})
	return logger
}

// Info logs msg at the given level with an optional error and a flat list
// of alternating key/value pairs, e.g. Info(WarnLevel, "retrying", err,
// "numRetries", 3).
func Info(level string, msg string, err error, kvPairs ...interface{}) {
	fields := make([]zap.Field, 0, len(kvPairs)/2+1)
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			continue
		}
		fields = append(fields, zap.Any(key, kvPairs[i+1]))
	}

	l := get()
	switch Level(level) {
	case DebugLevel:
		l.Debug(msg, fields...)
	case WarnLevel:
		l.Warn(msg, fields...)
	case ErrorLevel:
		l.Error(msg, fields...)
	default:
		l.Info(msg, fields...)
	}
}

var (
	debugOnce    sync.Once
	debugEnabled bool
)

// DebugEnabled resolves HSM_DEBUG from the environment exactly once per
// process and caches the result, per the debug-tracing design note.
func DebugEnabled() bool {
	debugOnce.Do(func() {
		v := os.Getenv("HSM_DEBUG")
		debugEnabled = v == "1" || v == "true" || v == "TRUE" || v == "yes"
	})
	return debugEnabled
}

// Trace emits a debug-level structured trace of a dispatcher operation,
// recording the raw backend-native error text (backendCode, e.g. a TPM
// response-code message) alongside the mapped error kind, gated on
// HSM_DEBUG.
func Trace(op string, backendCode string, kind string, err error) {
	if !DebugEnabled() {
		return
	}
	Info(string(DebugLevel), "hsm operation", err,
		"op", op, "backendCode", backendCode, "kind", kind)
}
