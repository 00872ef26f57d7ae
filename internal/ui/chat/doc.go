// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat is the Bubble Tea model for the interactive Portana screen.
//
// The model owns no conversation state. It renders the dispatcher's log,
// which it observes through a coalescing channel, and hands each submitted
// line to the dispatcher in a tea.Cmd so the UI never blocks on the network.
//
// # Keys
//
//   - enter: submit the input
//   - tab / shift+tab: cycle command completions
//   - ctrl+s: run the suggested command from the last answer
//   - up / down: input history
//   - pgup / pgdown: scroll the conversation
//   - esc: cancel the turn in flight
//   - ctrl+e: save the transcript
//   - f1: toggle help
//   - ctrl+c: cancel, or quit when idle
package chat
