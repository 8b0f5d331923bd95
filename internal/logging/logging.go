// Package logging configures the host logger. stdout carries the wire
// protocol, so logs go to the debug file or stderr, never stdout.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"

	log "github.com/sirupsen/logrus"

	"github.com/gpsio/gpsio-host/internal/config"
)

// New returns a logger for cfg and a closer for its output. With debug on,
// every message is appended to cfg.LogPath; otherwise warnings and errors
// go to stderr, where the browser collects them.
func New(cfg *config.Config) (*log.Logger, io.Closer, error) {
	logger := log.New()
	logger.SetFormatter(&log.TextFormatter{
		FullTimestamp:    true,
		DisableColors:    true,
		DisableQuote:     true,
		QuoteEmptyFields: true,
	})

	if !cfg.Debug {
		logger.SetOutput(os.Stderr)
		logger.SetLevel(log.WarnLevel)
		return logger, nopCloser{}, nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.LogPath), 0755); err != nil {
		return nil, nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(cfg.LogPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}

	logger.SetOutput(f)
	logger.SetLevel(log.DebugLevel)
	logger.WithFields(log.Fields{
		"go":       runtime.Version(),
		"platform": runtime.GOOS + "/" + runtime.GOARCH,
		"args":     os.Args,
	}).Debug("host starting")

	return logger, f, nil
}

// Discard returns a logger that drops everything. Used by tests and by
// commands that run before configuration is loaded.
func Discard() *log.Logger {
	logger := log.New()
	logger.SetOutput(io.Discard)
	return logger
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
