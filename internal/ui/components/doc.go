// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components holds the stateless pieces of the chat screen: the
// header, the status bar and the command completion popup. Each component
// is configured through setters and rendered with View.
package components
