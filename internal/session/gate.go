// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/portana/portana-tui/internal/logging"
	"github.com/portana/portana-tui/internal/storage"
)

const gateKeyPrefix = "portana_gate_"

// Gate tracks commands that may succeed at most once per session.
//
// Flags always live in memory. When a store is supplied they are also
// written through, so a restarted client keeps them.
type Gate struct {
	mu     sync.Mutex
	gated  map[string]bool
	used   map[string]bool
	store  storage.Store
	logger *log.Logger
}

// NewGate gates the given command names (with or without the leading "/").
// store may be nil for process-lifetime flags.
func NewGate(commands []string, store storage.Store, logger *log.Logger) *Gate {
	g := &Gate{
		gated:  make(map[string]bool, len(commands)),
		used:   make(map[string]bool),
		store:  store,
		logger: logging.Component(logger, "gate"),
	}
	for _, c := range commands {
		if name := normalize(c); name != "" {
			g.gated[name] = true
		}
	}
	return g
}

// IsGated reports whether name is subject to the gate.
func (g *Gate) IsGated(name string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.gated[normalize(name)]
}

// Used reports whether a gated command has already succeeded. Ungated
// commands are never used.
func (g *Gate) Used(name string) bool {
	name = normalize(name)

	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.gated[name] {
		return false
	}
	if g.used[name] {
		return true
	}
	if g.store == nil {
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	v, err := g.store.Get(ctx, gateKeyPrefix+name)
	if err != nil {
		return false
	}
	if v == "1" {
		g.used[name] = true
	}
	return g.used[name]
}

// MarkUsed records a successful invocation. No-op for ungated commands.
func (g *Gate) MarkUsed(name string) {
	name = normalize(name)

	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.gated[name] {
		return
	}
	g.used[name] = true
	if g.store == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	if err := g.store.Set(ctx, gateKeyPrefix+name, "1"); err != nil {
		g.logger.Warn("could not persist gate flag", "command", name, "err", err)
	}
}

// Reset clears every flag, including persisted ones.
func (g *Gate) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.used = make(map[string]bool)
	if g.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	for name := range g.gated {
		if err := g.store.Remove(ctx, gateKeyPrefix+name); err != nil {
			g.logger.Warn("could not clear gate flag", "command", name, "err", err)
		}
	}
}

// Commands returns the gated names in no particular order.
func (g *Gate) Commands() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]string, 0, len(g.gated))
	for name := range g.gated {
		out = append(out, name)
	}
	return out
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(name), "/"))
}
