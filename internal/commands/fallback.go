// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"strings"
)

// View names the legacy presentational block attached to a fallback reply.
type View string

const (
	ViewNone       View = ""
	ViewProjects   View = "ProjectsView"
	ViewBlog       View = "BlogView"
	ViewStack      View = "StackView"
	ViewExperience View = "ExperienceView"
	ViewTimeline   View = "TimelineView"
	ViewMisc       View = "MiscView"
)

// FallbackResult is a canned reply.
type FallbackResult struct {
	Text string
	View View
}

// StaticHandler answers commands without the backend.
type StaticHandler struct {
	Registry *Registry
}

// NewStaticHandler returns a handler whose /help text lists reg.
func NewStaticHandler(reg *Registry) *StaticHandler {
	return &StaticHandler{Registry: reg}
}

var commandViews = map[string]FallbackResult{
	"projects":   {"Here are my recent projects:", ViewProjects},
	"blog":       {"Check out my latest blog posts:", ViewBlog},
	"stack":      {"My tech stack and specialties:", ViewStack},
	"experience": {"My professional experience:", ViewExperience},
	"timeline":   {"My professional timeline:", ViewTimeline},
	"misc":       {"Miscellaneous tools and experiments:", ViewMisc},
	"start":      {Text: "Welcome! Let me introduce myself:"},
	"theme":      {Text: "Theme toggling feature coming soon! Currently in dark mode."},
}

// Handle returns the canned reply for a command line. The leading "/" is
// optional.
func (h *StaticHandler) Handle(input string) FallbackResult {
	line := strings.ToLower(strings.TrimSpace(input))
	fields := strings.Fields(strings.TrimPrefix(line, Prefix))
	name := ""
	if len(fields) > 0 {
		name = Normalize(fields[0])
	}
	return h.command(name, line)
}

func (h *StaticHandler) command(name, line string) FallbackResult {
	if r, ok := commandViews[name]; ok {
		return r
	}
	switch name {
	case "help":
		return FallbackResult{Text: h.helpText()}
	case "sudo":
		if strings.Contains(line, "rm -rf") {
			return FallbackResult{Text: "Error: Permission denied. Nice try though!"}
		}
		return FallbackResult{Text: "Command not found. Did you mean /help?"}
	}
	return FallbackResult{Text: UnrecognizedText(name)}
}

func (h *StaticHandler) helpText() string {
	var names []string
	if h.Registry != nil {
		for _, d := range h.Registry.All() {
			names = append(names, d.Command)
		}
	}
	if len(names) == 0 {
		return "Ask me anything!"
	}
	return "Available commands: " + strings.Join(names, ", ") + ". Or just ask me anything!"
}

// UnrecognizedText is the reply for a command nobody understood.
func UnrecognizedText(name string) string {
	return "Command /" + name + " not recognized. Type /help for available commands."
}
