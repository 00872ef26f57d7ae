// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"

	"github.com/portana/portana-tui/internal/api"
)

// ============================================================================
// PORTFOLIO FIXTURE
// ============================================================================

// Portfolio is the content the mock backend serves. It can be loaded from a
// YAML or JSON file; DefaultPortfolio is used otherwise.
type Portfolio struct {
	Owner     string                    `yaml:"owner" json:"owner"`
	Commands  map[string]CommandFixture `yaml:"commands" json:"commands"`
	Documents []Document                `yaml:"documents" json:"documents"`
}

// CommandFixture is the reply to GET /api/commands/{name}. Data is sent as
// the command payload verbatim.
type CommandFixture struct {
	Content string `yaml:"content" json:"content"`
	Data    any    `yaml:"data,omitempty" json:"data,omitempty"`
}

// Document is a retrievable piece of portfolio content.
type Document struct {
	ID    string   `yaml:"id" json:"id"`
	Type  string   `yaml:"type" json:"type"`
	Title string   `yaml:"title" json:"title"`
	URL   string   `yaml:"url,omitempty" json:"url,omitempty"`
	Tags  []string `yaml:"tags,omitempty" json:"tags,omitempty"`
	Body  string   `yaml:"body" json:"body"`

	// Command is suggested when this document answers a question.
	Command string `yaml:"command,omitempty" json:"command,omitempty"`
}

// LoadPortfolio reads a fixture file. JSON files parse as YAML.
func LoadPortfolio(path string) (*Portfolio, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read portfolio: %w", err)
	}
	var p Portfolio
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse portfolio %s: %w", path, err)
	}
	if len(p.Commands) == 0 && len(p.Documents) == 0 {
		return nil, fmt.Errorf("portfolio %s has no commands or documents", path)
	}
	normalized := make(map[string]CommandFixture, len(p.Commands))
	for name, fx := range p.Commands {
		normalized[strings.ToLower(strings.TrimPrefix(name, "/"))] = fx
	}
	p.Commands = normalized
	return &p, nil
}

// Command returns the fixture for a command name.
func (p *Portfolio) Command(name string) (CommandFixture, bool) {
	fx, ok := p.Commands[strings.ToLower(strings.TrimPrefix(name, "/"))]
	return fx, ok
}

// ============================================================================
// RETRIEVAL
// ============================================================================

// Match is a document scored against a query.
type Match struct {
	Document
	Score float64
}

// Search ranks documents by the share of query terms found in their title,
// tags and body. At most topK matches with a positive score are returned.
func (p *Portfolio) Search(query string, topK int) []Match {
	terms := tokenize(query)
	if len(terms) == 0 {
		return nil
	}
	if topK <= 0 {
		topK = 3
	}

	var matches []Match
	for _, doc := range p.Documents {
		hay := tokenSet(doc.Title + " " + strings.Join(doc.Tags, " ") + " " + doc.Body)
		hits := 0
		for _, t := range terms {
			if hay[t] {
				hits++
			}
		}
		if hits > 0 {
			matches = append(matches, Match{Document: doc, Score: float64(hits) / float64(len(terms))})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches
}

// Answer composes a reply from the best matches. The suggested command is
// the first one attached to a matching document.
func (p *Portfolio) Answer(query string, topK int) (content string, sources []api.Source, suggest string) {
	matches := p.Search(query, topK)
	if len(matches) == 0 {
		return "I don't have anything on that yet. Type /help to see what I can show you.", nil, ""
	}

	var parts []string
	for _, m := range matches {
		parts = append(parts, firstSentence(m.Body))
		sources = append(sources, api.Source{
			ID:             m.ID,
			Type:           m.Type,
			Title:          m.Title,
			URL:            m.URL,
			Tags:           m.Tags,
			RelevanceScore: m.Score,
		})
		if suggest == "" {
			suggest = m.Command
		}
	}
	return strings.Join(parts, " "), sources, suggest
}

var stopwords = map[string]bool{
	"a": true, "an": true, "the": true, "and": true, "or": true, "of": true,
	"to": true, "in": true, "on": true, "is": true, "are": true, "you": true,
	"your": true, "me": true, "my": true, "what": true, "who": true, "how": true,
	"do": true, "did": true, "have": true, "with": true, "about": true, "tell": true,
}

func tokenize(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	seen := make(map[string]bool, len(fields))
	var out []string
	for _, f := range fields {
		f = stem(f)
		if stopwords[f] || seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return out
}

func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, t := range tokenize(s) {
		set[t] = true
	}
	return set
}

// stem drops a plural "s" so "projects" matches "project".
func stem(w string) string {
	if len(w) > 3 && strings.HasSuffix(w, "s") && !strings.HasSuffix(w, "ss") {
		return w[:len(w)-1]
	}
	return w
}

func firstSentence(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, ".!?"); i >= 0 {
		return s[:i+1]
	}
	return s
}

// ============================================================================
// DEFAULT CONTENT
// ============================================================================

// DefaultPortfolio returns the built-in sample portfolio.
func DefaultPortfolio() *Portfolio {
	return &Portfolio{
		Owner: "Alex Rivera",
		Commands: map[string]CommandFixture{
			"start": {Content: "Hi, I'm Alex. I build distributed systems and developer tools. Use /projects, /experience or /stack to dig in."},
			"about": {
				Content: "Backend engineer focused on reliable infrastructure.",
				Data: map[string]any{
					"name":     "Alex Rivera",
					"role":     "Senior Backend Engineer",
					"location": "Lisbon, Portugal",
					"focus":    []string{"distributed systems", "developer tooling", "observability"},
				},
			},
			"projects": {
				Content: "Here are a few things I've built.",
				Data: []map[string]any{
					{
						"title": "Portana", "subtitle": "AI portfolio assistant",
						"description": "A chat interface that answers questions about my work using retrieval over my writing.",
						"tags":        []string{"Go", "RAG", "TUI"}, "url": "https://github.com/example/portana",
					},
					{
						"title": "Tidepool", "subtitle": "Event pipeline",
						"description": "A streaming ingestion service handling 40k events per second with exactly-once delivery.",
						"tags":        []string{"Go", "Kafka", "Postgres"},
					},
					{
						"title": "Lanternfish", "subtitle": "Tracing explorer",
						"description": "A terminal UI for browsing OpenTelemetry traces.",
						"tags":        []string{"Go", "OpenTelemetry", "Bubble Tea"},
					},
				},
			},
			"stack": {
				Content: "The tools I reach for most.",
				Data: []map[string]any{
					{"name": "Languages", "tools": []string{"Go", "TypeScript", "SQL", "Python"}},
					{"name": "Infrastructure", "tools": []string{"Kubernetes", "Terraform", "Redis", "Postgres"}},
					{"name": "Observability", "tools": []string{"Prometheus", "OpenTelemetry", "Grafana"}},
				},
			},
			"experience": {
				Content: "Where I've worked.",
				Data: []map[string]any{
					{
						"title": "Senior Backend Engineer", "company": "Northwind Labs", "duration": "2022 - present",
						"description":  "Lead for the ingestion platform. Cut p99 latency by 60%.",
						"technologies": []string{"Go", "Kafka", "Kubernetes"},
					},
					{
						"title": "Software Engineer", "company": "Bluebird Systems", "duration": "2019 - 2022",
						"description":  "Built internal developer tooling and the deploy pipeline.",
						"technologies": []string{"Go", "TypeScript", "Terraform"},
					},
				},
			},
			"timeline": {
				Content: "My journey so far.",
				Data: []map[string]any{
					{"date": "2019", "title": "First engineering role", "subtitle": "Bluebird Systems"},
					{"date": "2021", "title": "Open-sourced Lanternfish", "description": "Reached 2k stars in the first year."},
					{"date": "2022", "title": "Joined Northwind Labs", "subtitle": "Senior Backend Engineer"},
				},
			},
			"blog": {
				Content: "Recent writing.",
				Data: []map[string]any{
					{"title": "Backpressure in practice", "subtitle": "Medium", "description": "Designing pipelines that degrade gracefully.", "url": "https://medium.com/@example/backpressure"},
					{"title": "Testing TUIs", "subtitle": "Medium", "description": "Golden files for terminal apps.", "url": "https://medium.com/@example/testing-tuis"},
				},
			},
			"resume": {Content: "You can download my resume at https://example.com/alex-rivera-resume.pdf"},
			"contact": {
				Content: "The best ways to reach me:",
				Data: map[string]any{
					"email":    "alex@example.com",
					"github":   "https://github.com/example",
					"linkedin": "https://linkedin.com/in/example",
				},
			},
			"misc": {Content: "Outside work I run, climb and collect mechanical keyboards."},
			"help": {Content: "Commands: /start /about /projects /blog /stack /timeline /experience /resume /contact /misc /help"},
		},
		Documents: []Document{
			{
				ID: "doc-portana", Type: "project", Title: "Portana", Command: "projects",
				Tags: []string{"go", "rag", "ai", "tui"},
				Body: "Portana is an AI portfolio assistant that answers questions with retrieval over my projects and writing. It streams answers token by token to a terminal client.",
			},
			{
				ID: "doc-tidepool", Type: "project", Title: "Tidepool", Command: "projects",
				Tags: []string{"go", "kafka", "streaming", "pipeline"},
				Body: "Tidepool is a streaming ingestion pipeline that handles forty thousand events per second. It uses Kafka and Postgres with exactly-once delivery.",
			},
			{
				ID: "doc-northwind", Type: "experience", Title: "Northwind Labs", Command: "experience",
				Tags: []string{"work", "experience", "backend", "lead"},
				Body: "At Northwind Labs I lead the ingestion platform team and cut p99 latency by sixty percent. Before that I built developer tooling at Bluebird Systems.",
			},
			{
				ID: "doc-stack", Type: "skills", Title: "Tech stack", Command: "stack",
				Tags: []string{"stack", "tech", "languages", "tools", "go", "kubernetes"},
				Body: "I mostly write Go and TypeScript and run services on Kubernetes with Postgres and Redis. Observability comes from Prometheus and OpenTelemetry.",
			},
			{
				ID: "doc-backpressure", Type: "blog", Title: "Backpressure in practice", Command: "blog",
				URL:  "https://medium.com/@example/backpressure",
				Tags: []string{"blog", "article", "pipeline", "streaming"},
				Body: "Backpressure in practice explains how to design pipelines that degrade gracefully under load.",
			},
		},
	}
}
