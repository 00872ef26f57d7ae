// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package render turns conversation entries into styled terminal text.
//
// Assistant text goes through glamour when markdown is enabled. Command
// responses with a known payload shape (projects, stack, experience,
// education, timeline, achievements, summary) get a typed view; any other
// payload is shown as highlighted JSON.
package render
