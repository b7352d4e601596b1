package logger

import (
	"io"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configure the process wide log output.
type Options struct {
	Level string `json:"level"`
	// File, when set, receives a copy of every entry and is rotated by size.
	File       string `json:"file"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
	MaxAgeDays int    `json:"max_age_days"`
}

var (
	outMu sync.RWMutex
	extra io.Writer
)

// Setup applies the level and, when File is set, tees every logger created
// afterwards into a rotating file. The returned closer releases the file.
func Setup(o Options) (io.Closer, error) {
	if err := SetLevel(o.Level); err != nil {
		return nil, err
	}
	if o.File == "" {
		return io.NopCloser(nil), nil
	}
	if dir := filepath.Dir(o.File); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	lj := &lumberjack.Logger{
		Filename:   o.File,
		MaxSize:    o.MaxSizeMB,
		MaxBackups: o.MaxBackups,
		MaxAge:     o.MaxAgeDays,
	}
	outMu.Lock()
	extra = lj
	outMu.Unlock()
	return lj, nil
}

// output wraps w with the rotating file configured by Setup, if any.
func output(w io.Writer) io.Writer {
	outMu.RLock()
	defer outMu.RUnlock()
	if extra == nil {
		return w
	}
	return io.MultiWriter(w, extra)
}
