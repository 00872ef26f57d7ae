// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli is the portana command tree.
//
// Running portana with no subcommand opens the chat TUI. The other
// commands reuse the same wiring (config, session store, api client,
// dispatcher) so a line typed in the REPL or passed to "portana run"
// behaves exactly like one typed into the TUI.
//
//	portana                      open the chat screen
//	portana ask "..."            stream one answer to stdout
//	portana run /projects        run one line through the dispatcher
//	portana repl                 line-editing prompt without the TUI
//	portana commands [query]     list or search commands
//	portana session id|reset     inspect or reset the session
//	portana transcripts ...      list, show, delete saved conversations
//	portana export [id]          export a transcript to a file
//	portana config ...           show, get, set, validate configuration
//	portana health               probe the backend
//	portana serve-mock           run a local mock backend
//
// Every command accepts --json for machine-readable output.
package cli
