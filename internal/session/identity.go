// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/portana/portana-tui/internal/logging"
	"github.com/portana/portana-tui/internal/storage"
)

// SessionKey is the storage key holding the visitor id.
const SessionKey = "portana_session_id"

const storeTimeout = 2 * time.Second

// Provider hands out the visitor session id.
type Provider struct {
	mu     sync.Mutex
	store  storage.Store
	logger *log.Logger

	// id caches the last known value. When memoryOnly is set the store is
	// no longer consulted.
	id         string
	memoryOnly bool

	now func() time.Time
}

// NewProvider creates a Provider backed by store. A nil store behaves like
// an unavailable one.
func NewProvider(store storage.Store, logger *log.Logger) *Provider {
	return &Provider{
		store:  store,
		logger: logging.Component(logger, "session"),
		now:    time.Now,
	}
}

// GetOrCreateSessionID returns the stored id, creating and persisting one on
// first use. It never fails.
func (p *Provider) GetOrCreateSessionID() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.memoryOnly {
		return p.id
	}
	if p.store == nil {
		return p.degrade(errors.New("no store configured"))
	}

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	stored, err := p.store.Get(ctx, SessionKey)
	switch {
	case err == nil && stored != "":
		p.id = stored
		return stored
	case err != nil && !errors.Is(err, storage.ErrNotFound):
		return p.degrade(err)
	}

	id := NewSessionID(p.now())
	if err := p.store.Set(ctx, SessionKey, id); err != nil {
		p.id = id
		return p.degrade(err)
	}
	p.id = id
	p.logger.Debug("created session id", "id", id)
	return id
}

// Reset forgets the id so the next call generates a fresh one.
func (p *Provider) Reset() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.id = ""
	p.memoryOnly = false
	if p.store == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	if err := p.store.Remove(ctx, SessionKey); err != nil {
		return fmt.Errorf("session: reset: %w", err)
	}
	return nil
}

// Persistent reports whether the id is backed by durable storage.
func (p *Provider) Persistent() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.store != nil && !p.memoryOnly
}

// degrade switches to a process-lifetime id. Caller holds p.mu.
func (p *Provider) degrade(cause error) string {
	if p.id == "" {
		p.id = NewSessionID(p.now())
	}
	p.memoryOnly = true
	p.logger.Warn("session storage unavailable, using in-memory id", "err", cause)
	return p.id
}

// NewSessionID builds "visitor-<base36 millis>-<12 hex>".
func NewSessionID(t time.Time) string {
	random := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	return "visitor-" + strconv.FormatInt(t.UnixMilli(), 36) + "-" + random
}
