// Package applog constructs the single zap.Logger every component shares,
// wired to the per-user app.log with a 2 MiB rolling truncation. The
// logger is built once at bootstrap and passed by reference; there are no
// ambient logging globals.
package applog

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const maxLogBytes = 2 * 1024 * 1024

// New builds a zap.Logger whose output is duplicated to stderr (for an
// attached console) and to logPath, truncated whenever a write would push
// it past 2 MiB. The log is a write-only diagnostic sink: nothing in the
// engine reads it back, and a failed write never surfaces to a caller.
func New(logPath string, level zapcore.Level) (*zap.Logger, error) {
	sink, err := newRollingFile(logPath)
	if err != nil {
		return nil, err
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	fileCore := zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), sink, level)
	consoleCore := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderCfg), zapcore.Lock(os.Stderr), level)

	return zap.New(zapcore.NewTee(fileCore, consoleCore)), nil
}

// rollingFile is a zapcore.WriteSyncer that truncates its file back to
// empty once a write would push it past maxLogBytes.
type rollingFile struct {
	mu   sync.Mutex
	path string
	f    *os.File
	size int64
}

func newRollingFile(path string) (*rollingFile, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	return &rollingFile{path: path, f: f, size: info.Size()}, nil
}

func (r *rollingFile) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.size+int64(len(p)) > maxLogBytes {
		if err := r.truncateLocked(); err != nil {
			// Drop the write rather than propagate a logging failure
			// into the caller's hot path.
			return len(p), nil
		}
	}
	n, err := r.f.Write(p)
	r.size += int64(n)
	return n, err
}

func (r *rollingFile) truncateLocked() error {
	if err := r.f.Close(); err != nil {
		return err
	}
	f, err := os.OpenFile(r.path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	r.f = f
	r.size = 0
	return nil
}

func (r *rollingFile) Sync() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.f.Sync()
}
