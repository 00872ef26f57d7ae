// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"

	"github.com/portana/portana-tui/internal/api"
	"github.com/portana/portana-tui/internal/config"
	"github.com/portana/portana-tui/internal/storage"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	ExitSuccess      = 0
	ExitGeneralError = 1
	// ExitUsageError indicates invalid command usage or arguments
	ExitUsageError  = 2
	ExitConfigError = 3
	ExitAuthError   = 4
	// ExitNetworkError covers unreachable backends and 5xx replies.
	ExitNetworkError  = 5
	ExitNotFoundError = 7
	ExitTimeoutError  = 8
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// UsageError is a bad flag or argument.
type UsageError struct {
	Reason  string
	Example string
}

func (e *UsageError) Error() string {
	if e.Example != "" {
		return fmt.Sprintf("%s (example: %s)", e.Reason, e.Example)
	}
	return e.Reason
}

// NotFoundError means a named resource does not exist.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// errUsage builds a UsageError.
func errUsage(reason, example string) error {
	return &UsageError{Reason: reason, Example: example}
}

// =============================================================================
// EXIT CODE MAPPING
// =============================================================================

// GetExitCode picks the exit code for err.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var (
		usage    *UsageError
		notFound *NotFoundError
		invalid  config.ValidateErrors
		status   *api.StatusError
		netErr   net.Error
	)
	switch {
	case errors.As(err, &usage):
		return ExitUsageError
	case errors.As(err, &notFound),
		errors.Is(err, storage.ErrTranscriptNotFound),
		errors.Is(err, api.ErrNotFound):
		return ExitNotFoundError
	case errors.As(err, &invalid):
		return ExitConfigError
	case errors.Is(err, context.DeadlineExceeded):
		return ExitTimeoutError
	case errors.As(err, &status):
		if status.StatusCode == http.StatusUnauthorized || status.StatusCode == http.StatusForbidden {
			return ExitAuthError
		}
		return ExitNetworkError
	case errors.As(err, &netErr):
		if netErr.Timeout() {
			return ExitTimeoutError
		}
		return ExitNetworkError
	}
	return ExitGeneralError
}

// DisplayError prints err to w, as a JSON envelope when jsonMode is set.
func DisplayError(w io.Writer, command string, err error, jsonMode bool) {
	if jsonMode {
		_ = NewJSONErrorResponse(command, err).Write(w)
		return
	}
	fmt.Fprintln(w, ErrorStyle.Render("Error: ")+err.Error())
	var usage *UsageError
	if errors.As(err, &usage) {
		fmt.Fprintln(w, DimStyle.Render("Run 'portana "+command+" --help' for usage."))
	}
}
