// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import "strings"

// SuggestionInfo is the text on a suggested-command button.
type SuggestionInfo struct {
	Label       string
	Description string
}

var suggestionLabels = map[string]SuggestionInfo{
	"projects":     {"View Projects", "See my project portfolio"},
	"stack":        {"Tech Stack", "Explore my technology expertise"},
	"experience":   {"Experience", "Learn about my work history"},
	"education":    {"Education", "Check my educational background"},
	"timeline":     {"Timeline", "View my professional timeline"},
	"summary":      {"About Me", "Read my professional summary"},
	"achievements": {"Achievements", "See awards and recognition"},
}

// SuggestionLabel describes a suggested command. Known suggestions use their
// own wording, then the registry entry, then the bare name.
func SuggestionLabel(name string, reg *Registry) SuggestionInfo {
	name = Normalize(strings.TrimPrefix(strings.TrimSpace(name), Prefix))
	if info, ok := suggestionLabels[name]; ok {
		return info
	}
	if reg != nil {
		if d, ok := reg.Lookup(name); ok {
			return SuggestionInfo{Label: d.Label, Description: d.Description}
		}
	}
	return SuggestionInfo{Label: name}
}
