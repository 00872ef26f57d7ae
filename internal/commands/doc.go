// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package commands provides the slash command registry, input
// classification, completion and the offline fallback handler.
//
// # Key Types
//
//   - Descriptor: one slash command with its label and help line
//   - Registry: fixed ordered list of descriptors, unique by command
//   - Classification: result of sorting raw input into command or chat
//   - StaticHandler: canned replies used when the backend is unreachable
//
// # Usage
//
//	reg := commands.DefaultRegistry()
//	c := commands.Classify("  /Stack extra text", reg)
//	// c.Kind == commands.KindCommandExact, c.Name == "stack"
//
//	for _, d := range reg.Complete("/pr") { ... }
package commands
