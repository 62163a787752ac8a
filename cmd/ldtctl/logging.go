package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	slogmulti "github.com/samber/slog-multi"
)

// newLogger builds the logger described by cfg. Records go to stderr and,
// when a log file is configured, to that file as well. The returned closer
// releases the file.
func newLogger(cfg logConfig) (*slog.Logger, io.Closer, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		return nil, nil, fmt.Errorf("log level %q: %w", cfg.Level, err)
	}
	opts := &slog.HandlerOptions{Level: level}

	handler := func(w io.Writer) (slog.Handler, error) {
		switch strings.ToLower(cfg.Format) {
		case "", "text":
			return slog.NewTextHandler(w, opts), nil
		case "json":
			return slog.NewJSONHandler(w, opts), nil
		default:
			return nil, fmt.Errorf("log format %q: want text or json", cfg.Format)
		}
	}

	stderr, err := handler(os.Stderr)
	if err != nil {
		return nil, nil, err
	}
	if cfg.File == "" {
		return slog.New(stderr), nopCloser{}, nil
	}

	f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	file, _ := handler(f)
	return slog.New(slogmulti.Fanout(stderr, file)), f, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
