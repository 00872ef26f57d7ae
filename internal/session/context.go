// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"github.com/charmbracelet/log"

	"github.com/portana/portana-tui/internal/storage"
)

// DefaultGated is the gated command set when none is configured.
var DefaultGated = []string{"start"}

// Options configures New.
type Options struct {
	// Gated lists commands limited to one success per session.
	Gated []string

	// PersistGate writes gate flags to the store as well as memory.
	PersistGate bool

	Logger *log.Logger
}

// Context is the session-scoped state handed to the dispatcher.
type Context struct {
	Identity *Provider
	Gate     *Gate
}

// New builds a Context on top of store.
func New(store storage.Store, opts Options) *Context {
	gated := opts.Gated
	if gated == nil {
		gated = DefaultGated
	}
	var gateStore storage.Store
	if opts.PersistGate {
		gateStore = store
	}
	return &Context{
		Identity: NewProvider(store, opts.Logger),
		Gate:     NewGate(gated, gateStore, opts.Logger),
	}
}

// NewInMemory is a Context with nothing persisted, used by tests and the
// one-shot CLI commands.
func NewInMemory() *Context {
	return New(storage.NewMemoryStore(), Options{})
}

// ID is shorthand for Identity.GetOrCreateSessionID.
func (c *Context) ID() string {
	return c.Identity.GetOrCreateSessionID()
}

// Reset clears both the id and the gate flags.
func (c *Context) Reset() error {
	c.Gate.Reset()
	return c.Identity.Reset()
}
