// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package server is a local mock of the Portana backend, used for demos,
// offline development and end-to-end tests of the client.
//
// Endpoints:
//   - GET  /api/commands/{name} - tagged command reply from the portfolio fixture
//   - POST /api/chat/message    - {"response": "<tagged reply as JSON string>"}
//   - POST /api/chat/ask        - "data: " framed stream of sources, token and done records
//   - GET  /health              - liveness and fixture counts
//   - GET  /stats               - request counters
//
// Middleware covers panic recovery, request logging, security headers, CORS,
// per-IP rate limiting and optional bearer authentication.
package server
