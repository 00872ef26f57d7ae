// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import "github.com/charmbracelet/lipgloss"

// =============================================================================
// ACCENT COLORS
// =============================================================================

// Neon - Brand accent, commands, assistant label
var Neon = lipgloss.AdaptiveColor{Light: "#0891B2", Dark: "#00D9FF"}

// NeonDeep - Tag and chip backgrounds
var NeonDeep = lipgloss.AdaptiveColor{Light: "#CFFAFE", Dark: "#1A1F3A"}

// Violet - User label, secondary accent
var Violet = lipgloss.AdaptiveColor{Light: "#7C3AED", Dark: "#A78BFA"}

// =============================================================================
// SEMANTIC COLORS
// =============================================================================

// Rose - Errors
var Rose = lipgloss.AdaptiveColor{Light: "#E11D48", Dark: "#FB7185"}

// Amber - Warnings such as a gated command
var Amber = lipgloss.AdaptiveColor{Light: "#D97706", Dark: "#FBBF24"}

// Emerald - Healthy backend, success
var Emerald = lipgloss.AdaptiveColor{Light: "#059669", Dark: "#34D399"}

// =============================================================================
// SURFACE AND TEXT COLORS
// =============================================================================

// Border - Panel borders and separators
var Border = lipgloss.AdaptiveColor{Light: "#CBD5E1", Dark: "#1E293B"}

// TextPrimary - Main body text
var TextPrimary = lipgloss.AdaptiveColor{Light: "#1F2937", Dark: "#E0E7FF"}

// TextMuted - Descriptions, timestamps, hints
var TextMuted = lipgloss.AdaptiveColor{Light: "#64748B", Dark: "#94A3B8"}
