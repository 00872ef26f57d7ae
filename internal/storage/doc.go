// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides the key-value capability used for session state
// and the on-disk transcript store.
//
// # Key Types
//
//   - Store: get/set/remove key-value interface
//   - MemoryStore, FileStore, SQLiteStore, RedisStore: Store backends
//   - TranscriptStore: saved conversations as JSON files
//
// # Usage
//
//	store, err := storage.Open(storage.Options{Backend: "file", Path: path})
//	if err != nil { ... }
//	defer store.Close()
//
//	err = store.Set(ctx, "portana_session_id", id)
//	id, err := store.Get(ctx, "portana_session_id") // ErrNotFound if absent
//
// # Storage Location
//
// File and SQLite backends default to ~/.portana/. Transcripts are stored in
// ~/.portana/transcripts/ as one JSON file each.
package storage
