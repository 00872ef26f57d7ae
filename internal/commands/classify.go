// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"strings"
)

// Kind is the route chosen for a line of input.
type Kind int

const (
	// KindEmpty is blank input; nothing to do.
	KindEmpty Kind = iota
	// KindNaturalLanguage goes to the chat endpoint.
	KindNaturalLanguage
	// KindCommandExact names a registered command.
	KindCommandExact
	// KindCommandUnknown starts with "/" but names no registered command.
	KindCommandUnknown
)

func (k Kind) String() string {
	switch k {
	case KindEmpty:
		return "empty"
	case KindNaturalLanguage:
		return "natural-language"
	case KindCommandExact:
		return "command"
	case KindCommandUnknown:
		return "unknown-command"
	default:
		return "invalid"
	}
}

// Classification is the outcome of Classify.
type Classification struct {
	Kind Kind

	// Name is the normalised candidate command without "/". Empty for
	// natural language.
	Name string

	// Args is whatever followed the command token, trimmed.
	Args string

	// Input is the trimmed input line.
	Input string

	// Descriptor is set for KindCommandExact.
	Descriptor Descriptor
}

// IsCommand reports whether the input started with the command prefix.
func (c Classification) IsCommand() bool {
	return c.Kind == KindCommandExact || c.Kind == KindCommandUnknown
}

// Classify trims input and decides how it should be routed. The candidate
// command runs from after "/" to the first whitespace and is compared
// against reg ignoring case; trailing text goes to Args.
func Classify(input string, reg *Registry) Classification {
	trimmed := strings.TrimSpace(input)
	c := Classification{Input: trimmed}

	switch {
	case trimmed == "":
		c.Kind = KindEmpty
		return c
	case !strings.HasPrefix(trimmed, Prefix):
		c.Kind = KindNaturalLanguage
		return c
	}

	rest := trimmed[len(Prefix):]
	token := rest
	if i := strings.IndexFunc(rest, isSpace); i >= 0 {
		token, c.Args = rest[:i], strings.TrimSpace(rest[i:])
	}
	c.Name = Normalize(token)

	if d, ok := reg.Lookup(c.Name); ok && c.Name != "" {
		c.Kind = KindCommandExact
		c.Descriptor = d
		return c
	}
	c.Kind = KindCommandUnknown
	return c
}
