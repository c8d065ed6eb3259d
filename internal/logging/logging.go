// Package logging holds the process-wide zap logger.
package logging

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu     sync.RWMutex
	logger = zap.NewNop()
)

// Init builds a production logger (JSON on stderr) and installs it.
// verbose lowers the level to debug.
func Init(verbose bool) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	if verbose {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}

	l, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	Set(l)
	return l, nil
}

// Set replaces the process logger. nil installs a no-op logger.
func Set(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	mu.Lock()
	logger = l
	mu.Unlock()
}

// Get returns the process logger
func Get() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// Named returns a child of the process logger
func Named(name string) *zap.Logger {
	return Get().Named(name)
}

// Sync flushes buffered entries
func Sync() {
	_ = Get().Sync()
}
