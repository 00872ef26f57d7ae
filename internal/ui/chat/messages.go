// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"time"

	"github.com/portana/portana-tui/internal/dispatch"
)

// =============================================================================
// MESSAGES
// =============================================================================

// logChangedMsg says the conversation log changed since the last render.
type logChangedMsg struct{}

// turnDoneMsg is sent when a dispatcher call returns.
type turnDoneMsg struct {
	Outcome dispatch.Outcome
	Err     error
}

// healthMsg carries the result of a backend health probe.
type healthMsg struct {
	Latency time.Duration
	Err     error
}

// healthTickMsg schedules the next probe.
type healthTickMsg struct{}

// savedMsg reports a transcript save.
type savedMsg struct {
	Path string
	Err  error
}

// clearNoticeMsg removes a transient status notice if it is still current.
type clearNoticeMsg struct {
	ID int
}
