// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging configures the structured logger shared by all components.
//
// Components take a *log.Logger in their options and tag it with
// Component(logger, name). A nil logger means "discard". Component loggers
// stay linked to their root so SetLevel reaches all of them.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// Options controls logger construction.
type Options struct {
	// Level is one of debug, info, warn, error. Empty means info.
	Level string

	// File, when set, receives all output instead of Output. The TUI always
	// logs to a file so the alternate screen is not overwritten.
	File string

	// Output defaults to os.Stderr.
	Output io.Writer
}

// New builds a logger. The returned closer releases the log file, if any.
func New(opts Options) (*log.Logger, io.Closer, error) {
	level, err := parseLevel(opts.Level)
	if err != nil {
		return nil, nil, err
	}

	var (
		out    io.Writer = os.Stderr
		closer io.Closer = nopCloser{}
	)
	if opts.Output != nil {
		out = opts.Output
	}
	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o700); err != nil {
			return nil, nil, fmt.Errorf("logging: create log dir: %w", err)
		}
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return nil, nil, fmt.Errorf("logging: open %s: %w", opts.File, err)
		}
		out, closer = f, f
	}

	logger := log.NewWithOptions(out, log.Options{
		Level:           level,
		Prefix:          "portana",
		ReportTimestamp: true,
		TimeFormat:      time.TimeOnly,
	})
	return logger, closer, nil
}

// Discard returns a logger that drops everything.
func Discard() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.FatalLevel})
}

// OrDiscard returns l, or a discarding logger when l is nil.
func OrDiscard(l *log.Logger) *log.Logger {
	if l == nil {
		return Discard()
	}
	return l
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func parseLevel(s string) (log.Level, error) {
	if s == "" {
		return log.InfoLevel, nil
	}
	level, err := log.ParseLevel(strings.ToLower(s))
	if err != nil {
		return 0, fmt.Errorf("logging: %w", err)
	}
	return level, nil
}

// =============================================================================
// COMPONENT LOGGERS
// =============================================================================

// log.Logger.With copies the level, so children are tracked per root.
var families sync.Map // *log.Logger -> *family

type family struct {
	mu      sync.Mutex
	members []*log.Logger
}

func familyOf(l *log.Logger) *family {
	if f, ok := families.Load(l); ok {
		return f.(*family)
	}
	f, _ := families.LoadOrStore(l, &family{members: []*log.Logger{l}})
	return f.(*family)
}

// Component returns a child of l tagged with component=name.
func Component(l *log.Logger, name string) *log.Logger {
	if l == nil {
		return Discard()
	}
	child := l.With("component", name)
	f := familyOf(l)
	f.mu.Lock()
	f.members = append(f.members, child)
	f.mu.Unlock()
	families.Store(child, f)
	return child
}

// SetLevel changes the level of l, its root and every component logger
// derived from either.
func SetLevel(l *log.Logger, level string) error {
	parsed, err := parseLevel(level)
	if err != nil {
		return err
	}
	f := familyOf(l)
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.members {
		m.SetLevel(parsed)
	}
	return nil
}
