// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session holds the per-visitor state consumed by the dispatcher:
// a stable session identifier and the one-time command gate.
//
// # Key Types
//
//   - Provider: lazily creates and persists the visitor session id
//   - Gate: commands that may succeed at most once per session
//   - Context: the two bundled together, passed to constructors
//
// # Usage
//
//	store, _ := storage.Open(storage.Options{Backend: "file"})
//	sess := session.New(store, session.Options{Gated: []string{"start"}})
//	id := sess.Identity.GetOrCreateSessionID()
//
// Storage failures never surface from the Provider. It logs them and keeps
// an in-memory id for the rest of the process.
package session
