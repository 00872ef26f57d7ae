// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api is the HTTP transport to the Portana backend.
//
// # Endpoints
//
//   - GET  /api/commands/{name}  structured command output
//   - POST /api/chat/message     one-shot chat, reply is a JSON string
//   - POST /api/chat/ask         streamed chat, "data: " framed JSON events
//   - GET  /health               liveness
//
// # Usage
//
//	client := api.New(api.Options{BaseURL: "http://localhost:3000"})
//
//	stream, err := client.StreamChat(ctx, api.ChatQuery{Query: "hi"})
//	if err != nil { ... }       // non-2xx arrives here, before any event
//	defer stream.Close()
//	for {
//	    ev, err := stream.Recv()
//	    if err == io.EOF { break }
//	    ...
//	}
//
// Only idempotent GETs are retried. Every request passes through a shared
// client-side rate limiter.
package api
