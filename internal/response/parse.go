// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package response

import (
	"bytes"
	"encoding/json"
)

var emptyObject = []byte("{}")

// Parse converts a raw backend payload into a Response.
//
// It returns nil when raw is not a JSON object or when its "type" field is
// missing or not one of the known kinds. Missing fields are normalised:
// content and command default to "", citations to an empty slice, data to {}
// and showSuggestion to true unless it is explicitly false.
func Parse(raw string) Response {
	return ParseBytes([]byte(raw))
}

// ParseBytes is Parse for a byte slice.
func ParseBytes(raw []byte) Response {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return nil
	}

	switch Kind(stringField(fields, "type")) {
	case KindText:
		return &TextResponse{
			Content:   stringField(fields, "content"),
			Citations: citationsField(fields),
		}
	case KindHybrid:
		return &HybridResponse{
			Content:          stringField(fields, "content"),
			Citations:        citationsField(fields),
			SuggestedCommand: stringField(fields, "suggestedCommand"),
			ShowSuggestion:   !isFalse(fields["showSuggestion"]),
		}
	case KindCommand:
		return &CommandResponse{
			Command: stringField(fields, "command"),
			Content: stringField(fields, "content"),
			Data:    dataField(fields),
		}
	default:
		return nil
	}
}

// stringField reads key as a string. Any other JSON type counts as absent.
func stringField(fields map[string]json.RawMessage, key string) string {
	raw, ok := fields[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

func citationsField(fields map[string]json.RawMessage) []Citation {
	citations := []Citation{}
	raw, ok := fields["citations"]
	if !ok {
		return citations
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return citations
	}
	for _, item := range items {
		var c Citation
		if err := json.Unmarshal(item, &c); err != nil {
			continue
		}
		citations = append(citations, c)
	}
	return citations
}

// dataField keeps the payload verbatim unless it is absent or falsy.
func dataField(fields map[string]json.RawMessage) json.RawMessage {
	raw := bytes.TrimSpace(fields["data"])
	switch string(raw) {
	case "", "null", "false", "0", `""`:
		return json.RawMessage(append([]byte(nil), emptyObject...))
	}
	return json.RawMessage(append([]byte(nil), raw...))
}

func isFalse(raw json.RawMessage) bool {
	return string(bytes.TrimSpace(raw)) == "false"
}
