// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package response models every backend reply as one of three tagged variants.
//
// # Key Types
//
//   - Response: sealed interface implemented by the three variants
//   - TextResponse: free text with optional citations
//   - HybridResponse: free text plus an optional command suggestion
//   - CommandResponse: structured command output with an opaque Data payload
//
// # Usage
//
//	resp := response.Parse(raw)
//	if resp == nil {
//	    // malformed payload, show raw text instead
//	}
//	switch r := resp.(type) {
//	case *response.HybridResponse:
//	    if cmd, ok := r.Suggestion(); ok { ... }
//	}
//
// Parse is pure: it performs no I/O and never panics on bad input.
package response
