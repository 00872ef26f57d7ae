// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the conversation log and its entries.
//
// The Log is append-only. The only mutation allowed after Append is
// UpdateLast, and only while the trailing entry is still streaming.
// Renderers subscribe to changes instead of polling.
//
// # Usage
//
//	log := model.NewLog()
//	unsubscribe := log.Subscribe(func(ev model.Event) { redraw() })
//	defer unsubscribe()
//
//	log.Append(model.NewUserEntry("hi"))
//	log.Append(model.NewStreamingEntry())
//	log.UpdateLast(model.Patch{Delta: "Hel"})
//	log.UpdateLast(model.Patch{Delta: "lo", Done: true})
package model
