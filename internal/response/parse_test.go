// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package response

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Text(t *testing.T) {
	resp := Parse(`{"type":"text","content":"hi"}`)
	require.NotNil(t, resp)

	text, ok := resp.(*TextResponse)
	require.True(t, ok, "expected *TextResponse, got %T", resp)
	assert.Equal(t, "hi", text.Content)
	assert.NotNil(t, text.Citations)
	assert.Empty(t, text.Citations)
	assert.Equal(t, KindText, resp.Kind())
}

func TestParse_TextWithCitations(t *testing.T) {
	resp := Parse(`{"type":"text","content":"x","citations":[{"source":"resume.pdf","snippet":"Go"},{"source":"blog"}]}`)
	text := resp.(*TextResponse)
	require.Len(t, text.Citations, 2)
	assert.Equal(t, Citation{Source: "resume.pdf", Snippet: "Go"}, text.Citations[0])
	assert.Equal(t, "blog", text.Citations[1].Source)
}

func TestParse_Invalid(t *testing.T) {
	tests := []string{
		"not json",
		"",
		"{}",
		"[]",
		"null",
		`"text"`,
		`{"content":"no type"}`,
		`{"type":"video","content":"x"}`,
		`{"type":42}`,
		`{"type":"text"`,
	}
	for _, raw := range tests {
		assert.Nil(t, Parse(raw), "Parse(%q) should be nil", raw)
	}
}

func TestParse_HybridDefaults(t *testing.T) {
	resp := Parse(`{"type":"hybrid","content":"x","suggestedCommand":"projects"}`)
	hybrid, ok := resp.(*HybridResponse)
	require.True(t, ok)
	assert.True(t, hybrid.ShowSuggestion)
	assert.Equal(t, "projects", hybrid.SuggestedCommand)
	assert.Empty(t, hybrid.Citations)

	cmd, ok := hybrid.Suggestion()
	assert.True(t, ok)
	assert.Equal(t, "projects", cmd)
}

func TestParse_HybridShowSuggestion(t *testing.T) {
	tests := []struct {
		raw  string
		want bool
	}{
		{`{"type":"hybrid","showSuggestion":false}`, false},
		{`{"type":"hybrid","showSuggestion":true}`, true},
		{`{"type":"hybrid","showSuggestion":null}`, true},
		{`{"type":"hybrid","showSuggestion":0}`, true},
		{`{"type":"hybrid"}`, true},
	}
	for _, tt := range tests {
		got := Parse(tt.raw).(*HybridResponse)
		assert.Equal(t, tt.want, got.ShowSuggestion, "Parse(%q)", tt.raw)
	}
}

func TestHybridSuggestion_Hidden(t *testing.T) {
	h := &HybridResponse{SuggestedCommand: "stack", ShowSuggestion: false}
	_, ok := h.Suggestion()
	assert.False(t, ok)

	h = &HybridResponse{ShowSuggestion: true}
	_, ok = h.Suggestion()
	assert.False(t, ok)

	h = &HybridResponse{SuggestedCommand: "/stack", ShowSuggestion: true}
	cmd, ok := h.Suggestion()
	assert.True(t, ok)
	assert.Equal(t, "stack", cmd)
}

func TestParse_CommandDefaults(t *testing.T) {
	resp := Parse(`{"type":"command"}`)
	cmd, ok := resp.(*CommandResponse)
	require.True(t, ok)
	assert.Equal(t, "", cmd.Command)
	assert.Equal(t, "", cmd.Content)
	assert.JSONEq(t, `{}`, string(cmd.Data))
	assert.False(t, cmd.HasData())

	resp = Parse(`{"type":"command","command":"contact","content":"Reach me","data":null}`)
	cmd = resp.(*CommandResponse)
	assert.Equal(t, "contact", cmd.Command)
	assert.JSONEq(t, `{}`, string(cmd.Data))
}

func TestParse_CommandDataOpaque(t *testing.T) {
	resp := Parse(`{"type":"command","command":"projects","content":"Projects","data":[{"title":"a","weird":{"n":1}}]}`)
	cmd := resp.(*CommandResponse)
	assert.JSONEq(t, `[{"title":"a","weird":{"n":1}}]`, string(cmd.Data))
	assert.True(t, cmd.HasData())
	assert.Equal(t, "Projects", cmd.Body())
}

func TestParse_WrongFieldTypes(t *testing.T) {
	resp := Parse(`{"type":"text","content":12,"citations":"nope"}`)
	text := resp.(*TextResponse)
	assert.Equal(t, "", text.Content)
	assert.Empty(t, text.Citations)
}

func TestMarshalJSON_RoundTripsTag(t *testing.T) {
	tests := []Response{
		&TextResponse{Content: "a", Citations: []Citation{}},
		&HybridResponse{Content: "b", Citations: []Citation{}, SuggestedCommand: "stack", ShowSuggestion: true},
		&CommandResponse{Command: "help", Content: "c", Data: json.RawMessage(`{"k":"v"}`)},
	}
	for _, want := range tests {
		raw, err := json.Marshal(want)
		require.NoError(t, err)
		got := ParseBytes(raw)
		require.NotNil(t, got, "ParseBytes(%s)", raw)
		assert.Equal(t, want.Kind(), got.Kind())
		assert.Equal(t, want.Body(), got.Body())
	}
}

func TestClone(t *testing.T) {
	assert.Nil(t, Clone(nil))

	orig := Parse(`{"type":"command","command":"about","content":"me","data":{"a":1}}`).(*CommandResponse)
	c := Clone(orig).(*CommandResponse)
	require.NotSame(t, orig, c)
	c.Data[1] = 'b'
	assert.JSONEq(t, `{"a":1}`, string(orig.Data))

	h := &HybridResponse{Content: "x", Citations: []Citation{{Source: "s"}}, ShowSuggestion: true}
	hc := Clone(h).(*HybridResponse)
	hc.Citations[0].Source = "changed"
	assert.Equal(t, "s", h.Citations[0].Source)
	assert.True(t, hc.ShowSuggestion)
}
