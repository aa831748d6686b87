package logger

import (
	"sync"

	"go.uber.org/zap"
)

var (
	setup    sync.Once
	instance *zap.Logger
)

// Init builds the process logger. The first call wins; later calls are
// no-ops, so tests can call it freely without clobbering main's choice.
func Init(cfg Config) {
	setup.Do(func() {
		instance = cfg.build()
	})
}

// L returns the process logger. If Init was never called it comes up
// with the defaults (dev console, info level).
func L() *zap.Logger {
	Init(Config{})
	return instance
}

// Sync flushes buffered entries. Defer it in main.
func Sync() error {
	return L().Sync()
}
