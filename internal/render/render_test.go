// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/portana/portana-tui/internal/model"
	"github.com/portana/portana-tui/internal/response"
)

func newPlain() *Renderer {
	return New(Options{Width: 60})
}

func TestEntry_User(t *testing.T) {
	out := newPlain().Entry(model.NewUserEntry("/stack"))
	assert.Equal(t, "You\n/stack", out)
}

func TestEntry_Timestamps(t *testing.T) {
	r := New(Options{Timestamps: true})
	e := model.NewUserEntry("hi")
	e.Timestamp = time.Date(2025, 1, 2, 14, 5, 0, 0, time.Local)
	assert.True(t, strings.HasPrefix(r.Entry(e), "You 14:05\n"))
}

func TestEntry_Tones(t *testing.T) {
	r := newPlain()
	out := r.Entry(model.NewNoticeEntry("careful", model.ToneWarning))
	assert.Equal(t, "Portana\ncareful", out)
}

func TestEntry_Streaming(t *testing.T) {
	e := model.NewStreamingEntry()
	e.Content = "Hi"
	out := newPlain().Entry(e)
	assert.True(t, strings.HasSuffix(out, "Hi▌"), out)
}

func TestEntry_LegacyViewAndSources(t *testing.T) {
	e := model.NewAssistantEntry("Here are my recent projects:")
	e.View = "ProjectsView"
	e.Sources = []model.Source{{Title: "Resume", Type: "document", RelevanceScore: 0.91, URL: "https://x/resume"}}

	out := newPlain().Entry(e)
	assert.Contains(t, out, "[ProjectsView: offline]")
	assert.Contains(t, out, "Sources")
	assert.Contains(t, out, "• Resume (document, 91%)")
	assert.Contains(t, out, "https://x/resume")
}

func TestResponse_TextWithCitations(t *testing.T) {
	out := newPlain().Response(&response.TextResponse{
		Content:   "I write Go.",
		Citations: []response.Citation{{Source: "resume.pdf", Snippet: "Go since 2015"}, {Source: "blog"}},
	})
	assert.Contains(t, out, "I write Go.")
	assert.Contains(t, out, "[1] resume.pdf: Go since 2015")
	assert.Contains(t, out, "[2] blog")
}

func TestResponse_HybridSuggestion(t *testing.T) {
	r := New(Options{SuggestionKey: "ctrl+s"})
	out := r.Response(&response.HybridResponse{Content: "I build tools.", Citations: []response.Citation{}, SuggestedCommand: "/projects", ShowSuggestion: true})
	assert.Contains(t, out, "→ /projects View Projects: See my project portfolio  [ctrl+s]")

	hidden := r.Response(&response.HybridResponse{Content: "x", SuggestedCommand: "/projects", ShowSuggestion: false})
	assert.NotContains(t, hidden, "/projects")
}

func TestResponse_CommandTypedView(t *testing.T) {
	data := json.RawMessage(`[{"id":1,"title":"Portana","subtitle":"AI portfolio","description":"Chat with my resume","tags":["Go","RAG"]},"junk"]`)
	out := newPlain().Response(&response.CommandResponse{Command: "projects", Content: "My projects:", Data: data})

	assert.Contains(t, out, "My projects:")
	assert.Contains(t, out, "Portana")
	assert.Contains(t, out, "AI portfolio")
	assert.Contains(t, out, "Go")
	assert.Contains(t, out, "RAG")
}

func TestResponse_CommandUnknownData(t *testing.T) {
	out := newPlain().Response(&response.CommandResponse{Command: "contact", Data: json.RawMessage(`{"email":"me@example.com"}`)})
	assert.Contains(t, out, `"email": "me@example.com"`)
}

func TestResponse_CommandNoData(t *testing.T) {
	out := newPlain().Response(&response.CommandResponse{Command: "misc", Data: json.RawMessage(`{}`)})
	assert.Equal(t, "Data received for: /misc", out)
}

func TestDecodeCommandView(t *testing.T) {
	tests := []struct {
		command string
		data    string
		ok      bool
		want    []string
	}{
		{"stack", `[{"name":"Backend","tools":["Go","Postgres"]}]`, true, []string{"Backend", "Go", "Postgres"}},
		{"experience", `[{"title":"Engineer","company":"Acme","duration":"2020-2024","technologies":["Go"]}]`, true, []string{"Engineer", "Acme", "2020-2024"}},
		{"education", `[{"institution":"MIT","degree":"BSc","field":"CS"}]`, true, []string{"BSc in CS", "MIT"}},
		{"timeline", `[{"date":"2020","title":"Started"},{"date":"2024","title":"Shipped"}]`, true, []string{"● 2020", "Started", "● 2024", "Shipped"}},
		{"achievements", `[{"title":"Award","issuer":"ACM","date":"2023"}]`, true, []string{"★ Award (ACM, 2023)"}},
		{"summary", `{"name":"Aahil","years":7,"skills":["Go"]}`, true, []string{"name: Aahil", "years: 7", `skills: ["Go"]`}},
		{"projects", `{"not":"a list"}`, false, nil},
		{"projects", `[]`, false, nil},
		{"blog", `[{"title":"x"}]`, false, nil},
	}
	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			view, ok := DecodeCommandView(tt.command, json.RawMessage(tt.data))
			require.Equal(t, tt.ok, ok)
			if !ok {
				return
			}
			out := view.Render(newPlain().Theme(), 60)
			for _, w := range tt.want {
				assert.Contains(t, out, w)
			}
		})
	}
}

func TestText_WrapsToWidth(t *testing.T) {
	r := New(Options{Width: 20})
	out := r.Text(strings.Repeat("word ", 20))
	for _, line := range strings.Split(out, "\n") {
		assert.LessOrEqual(t, len(strings.TrimRight(line, " ")), 20)
	}
}

func TestText_Markdown(t *testing.T) {
	r := New(Options{Markdown: true, Width: 40})
	out := r.Text("Some **bold** text")
	assert.Contains(t, out, "bold")
	assert.Contains(t, out, "Some")

	r.SetWidth(50)
	assert.Equal(t, 50, r.Width())
	assert.Contains(t, r.Text("again"), "again")
}

func TestSetWrapLimit_CapsWidth(t *testing.T) {
	r := New(Options{Width: 100, WrapLimit: 60})
	assert.Equal(t, 60, r.Width())

	r.SetWidth(40)
	assert.Equal(t, 40, r.Width())
	r.SetWidth(120)
	assert.Equal(t, 60, r.Width())

	r.SetWrapLimit(30)
	assert.Equal(t, 30, r.Width())
	r.SetWrapLimit(0)
	assert.Equal(t, 120, r.Width())
}

func TestSetMarkdown_Toggles(t *testing.T) {
	r := New(Options{Width: 40})
	assert.False(t, r.Markdown())
	assert.Equal(t, "hello", r.Text("hello"))

	r.SetMarkdown(true)
	assert.True(t, r.Markdown())
	md := r.Text("hello")
	assert.Contains(t, md, "hello")
	assert.NotEqual(t, "hello", md, "glamour adds its document margin")

	r.SetMarkdown(false)
	assert.Equal(t, "hello", r.Text("hello"))
}

func TestEntries_Joined(t *testing.T) {
	out := newPlain().Entries([]model.Entry{model.NewUserEntry("a"), model.NewAssistantEntry("b")})
	assert.Equal(t, "You\na\n\nPortana\nb", out)
}
