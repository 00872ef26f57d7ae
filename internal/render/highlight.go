// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/alecthomas/chroma/v2/quick"

	"github.com/portana/portana-tui/internal/ui/styles"
)

// highlightJSON pretty-prints data and colors it for the terminal. Plain
// themes get the indented text only.
func highlightJSON(data []byte, theme *styles.Theme) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		return string(data)
	}
	pretty := buf.String()
	if theme.IsPlain() {
		return pretty
	}

	style := "monokai"
	if !theme.IsDark {
		style = "github"
	}
	var out strings.Builder
	if err := quick.Highlight(&out, pretty, "json", "terminal256", style); err != nil {
		return pretty
	}
	return strings.TrimRight(out.String(), "\n")
}
