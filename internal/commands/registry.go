// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"fmt"
	"strings"

	"github.com/sahilm/fuzzy"
)

// =============================================================================
// DESCRIPTOR
// =============================================================================

// Descriptor describes a slash command.
type Descriptor struct {
	// Command always starts with "/", e.g. "/projects".
	Command     string
	Label       string
	Description string
}

// Name returns the command without its leading slash, normalised.
func (d Descriptor) Name() string {
	return Normalize(strings.TrimPrefix(d.Command, Prefix))
}

// Prefix marks a line as a command.
const Prefix = "/"

// =============================================================================
// REGISTRY
// =============================================================================

// Registry is an ordered, immutable set of descriptors.
type Registry struct {
	descs []Descriptor
	index map[string]int
}

// NewRegistry validates descs and returns a registry in the given order.
// Commands must carry the "/" prefix and be unique ignoring case.
func NewRegistry(descs ...Descriptor) (*Registry, error) {
	r := &Registry{
		descs: make([]Descriptor, 0, len(descs)),
		index: make(map[string]int, len(descs)),
	}
	for _, d := range descs {
		if !strings.HasPrefix(d.Command, Prefix) || len(d.Command) == len(Prefix) {
			return nil, fmt.Errorf("commands: invalid command %q", d.Command)
		}
		if strings.ContainsFunc(d.Command, isSpace) {
			return nil, fmt.Errorf("commands: command %q contains whitespace", d.Command)
		}
		name := d.Name()
		if _, dup := r.index[name]; dup {
			return nil, fmt.Errorf("commands: duplicate command %q", d.Command)
		}
		r.index[name] = len(r.descs)
		r.descs = append(r.descs, d)
	}
	return r, nil
}

// MustRegistry is NewRegistry that panics on error. For static tables.
func MustRegistry(descs ...Descriptor) *Registry {
	r, err := NewRegistry(descs...)
	if err != nil {
		panic(err)
	}
	return r
}

// DefaultRegistry returns the portfolio command set.
func DefaultRegistry() *Registry {
	return MustRegistry(
		Descriptor{"/start", "Start", "Introduce yourself"},
		Descriptor{"/about", "About", "Learn about me"},
		Descriptor{"/projects", "Projects", "View all projects"},
		Descriptor{"/blog", "Blog", "Read blog posts"},
		Descriptor{"/stack", "Tech Stack", "Explore technologies"},
		Descriptor{"/timeline", "Timeline", "Career journey"},
		Descriptor{"/experience", "Experience", "Work history"},
		Descriptor{"/resume", "Resume", "Download resume"},
		Descriptor{"/contact", "Contact", "Get in touch"},
		Descriptor{"/misc", "Misc", "Other information"},
		Descriptor{"/help", "Help", "Get help"},
	)
}

// All returns a copy of every descriptor in registry order.
func (r *Registry) All() []Descriptor {
	out := make([]Descriptor, len(r.descs))
	copy(out, r.descs)
	return out
}

// Len returns the number of commands.
func (r *Registry) Len() int { return len(r.descs) }

// Lookup finds a command by name, with or without the "/" and ignoring case.
func (r *Registry) Lookup(name string) (Descriptor, bool) {
	i, ok := r.index[Normalize(strings.TrimPrefix(strings.TrimSpace(name), Prefix))]
	if !ok {
		return Descriptor{}, false
	}
	return r.descs[i], true
}

// Complete returns commands whose name starts with prefix, in registry
// order. prefix may include the "/"; an empty prefix matches everything.
func (r *Registry) Complete(prefix string) []Descriptor {
	p := Normalize(strings.TrimPrefix(strings.TrimSpace(prefix), Prefix))
	var out []Descriptor
	for _, d := range r.descs {
		if strings.HasPrefix(d.Name(), p) {
			out = append(out, d)
		}
	}
	return out
}

// CommonPrefix returns the longest command prefix shared by matches, for
// tab completion. Empty when matches is empty.
func CommonPrefix(matches []Descriptor) string {
	if len(matches) == 0 {
		return ""
	}
	prefix := matches[0].Command
	for _, d := range matches[1:] {
		for !strings.HasPrefix(d.Command, prefix) {
			prefix = prefix[:len(prefix)-1]
		}
	}
	return prefix
}

// Search fuzzy-matches query against command, label and description, best
// match first. An empty query returns all commands in registry order.
func (r *Registry) Search(query string) []Descriptor {
	query = strings.TrimSpace(query)
	if query == "" {
		return r.All()
	}
	matches := fuzzy.FindFrom(query, searchSource(r.descs))
	out := make([]Descriptor, 0, len(matches))
	for _, m := range matches {
		out = append(out, r.descs[m.Index])
	}
	return out
}

type searchSource []Descriptor

func (s searchSource) String(i int) string {
	return s[i].Command + " " + s[i].Label + " " + s[i].Description
}

func (s searchSource) Len() int { return len(s) }
