// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package dispatch routes a line of user input to the right backend call
// and records the outcome in the conversation log.
//
// A submission is classified as natural language, a known command or an
// unknown command. Known commands may be gated to one success per session
// and fall back to canned replies when the backend is unreachable. Every
// failure ends as a single assistant entry; nothing is returned to the
// caller except ErrBusy.
//
// One submission runs at a time. A second Submit while the first is in
// flight returns ErrBusy and leaves the log untouched.
package dispatch
