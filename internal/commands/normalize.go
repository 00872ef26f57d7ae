// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

var folder = cases.Fold()

// Normalize canonicalises a command name for comparison: NFKC composition
// then Unicode case folding. "Ｓｔａｃｋ" and "STACK" both become "stack".
func Normalize(name string) string {
	return folder.String(norm.NFKC.String(name))
}

func isSpace(r rune) bool { return unicode.IsSpace(r) }
