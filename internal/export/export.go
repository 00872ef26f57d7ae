// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/portana/portana-tui/internal/response"
	"github.com/portana/portana-tui/internal/storage"
	"github.com/portana/portana-tui/internal/util"
)

// =============================================================================
// EXPORT INTERFACE
// =============================================================================

// Exporter defines the interface for transcript exporters.
type Exporter interface {
	// Export converts a transcript to the target format and returns the content.
	Export(t *storage.Transcript) ([]byte, error)

	// FileExtension returns the appropriate file extension (e.g., ".md").
	FileExtension() string

	// MimeType returns the MIME type for the exported format.
	MimeType() string
}

// Validation errors shared by the exporters.
var (
	ErrNilTranscript   = errors.New("transcript is nil")
	ErrEmptyTranscript = errors.New("transcript has no entries")
	ErrUnknownFormat   = errors.New("unknown export format")
)

// =============================================================================
// EXPORT OPTIONS
// =============================================================================

// Options configures export behavior.
type Options struct {
	// OutputDir is the directory where files will be saved.
	OutputDir string

	// OpenAfterExport opens the file in the default application.
	OpenAfterExport bool

	// IncludeMetadata includes the metadata header (session, backend, counts).
	IncludeMetadata bool

	// IncludeTimestamps includes per-entry timestamps.
	IncludeTimestamps bool

	// Theme for HTML export ("light" or "dark").
	Theme string
}

// DefaultOptions returns default export options.
func DefaultOptions() *Options {
	return &Options{
		OutputDir:         ".",
		IncludeMetadata:   true,
		IncludeTimestamps: true,
		Theme:             "dark",
	}
}

// =============================================================================
// FORMAT REGISTRY
// =============================================================================

var constructors = map[string]func(*Options) Exporter{
	"markdown": func(o *Options) Exporter { return NewMarkdownExporter(o) },
	"json":     func(o *Options) Exporter { return NewJSONExporter(o) },
	"jsonl":    func(o *Options) Exporter { return NewJSONLExporter(o) },
	"yaml":     func(o *Options) Exporter { return NewYAMLExporter(o) },
	"html":     func(o *Options) Exporter { return NewHTMLExporter(o) },
}

var aliases = map[string]string{
	"md":  "markdown",
	"yml": "yaml",
	"htm": "html",
}

// New returns the exporter for a format name. Names are case-insensitive
// and accept the common short aliases (md, yml).
func New(format string, opts *Options) (Exporter, error) {
	name := strings.ToLower(strings.TrimSpace(format))
	if alias, ok := aliases[name]; ok {
		name = alias
	}
	ctor, ok := constructors[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %s)", ErrUnknownFormat, format, strings.Join(Formats(), ", "))
	}
	return ctor(opts), nil
}

// Formats lists the supported format names in sorted order.
func Formats() []string {
	names := make([]string, 0, len(constructors))
	for name := range constructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// =============================================================================
// EXPORT FUNCTIONS
// =============================================================================

// ExportToFile exports a transcript to a file using the specified exporter.
// Returns the output file path or an error.
func ExportToFile(t *storage.Transcript, exporter Exporter, opts *Options) (string, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	content, err := exporter.Export(t)
	if err != nil {
		return "", fmt.Errorf("export failed: %w", err)
	}

	timestamp := time.Now().Format("20060102_150405")
	filename := fmt.Sprintf("portana_%s_%s%s",
		sanitizeFilename(t.Summary),
		timestamp,
		exporter.FileExtension(),
	)

	outputDir := opts.OutputDir
	if outputDir == "" {
		outputDir = "."
	}
	outputPath := filepath.Join(outputDir, filename)
	if err := util.AtomicWriteFileWithDir(outputPath, content, 0644, 0755); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}

	if opts.OpenAfterExport {
		// The file exists either way; a viewer failure is reported to the caller.
		if err := openFile(outputPath); err != nil {
			return outputPath, fmt.Errorf("open %s: %w", outputPath, err)
		}
	}

	return outputPath, nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// validate rejects transcripts the document formats cannot render.
func validate(t *storage.Transcript) error {
	if t == nil {
		return ErrNilTranscript
	}
	if len(t.Entries) == 0 {
		return ErrEmptyTranscript
	}
	if t.CreatedAt.IsZero() {
		return errors.New("transcript has invalid creation timestamp")
	}
	return nil
}

// decodeResponse parses the stored typed reply of an entry, or nil.
func decodeResponse(e storage.StoredEntry) response.Response {
	if len(e.Response) == 0 {
		return nil
	}
	return response.ParseBytes(e.Response)
}

// title returns the display title of a transcript.
func title(t *storage.Transcript) string {
	if s := strings.TrimSpace(t.Summary); s != "" {
		return s
	}
	return "Portana conversation"
}

// roleLabel returns the display label for a stored role.
func roleLabel(role string) string {
	switch role {
	case "":
		return "Unknown"
	case "user":
		return "You"
	case "assistant":
		return "Portana"
	default:
		runes := []rune(role)
		return strings.ToUpper(string(runes[0])) + string(runes[1:])
	}
}

// sanitizeFilename removes or replaces characters that are invalid in filenames.
func sanitizeFilename(s string) string {
	const maxLen = 50
	runes := []rune(s)
	if len(runes) > maxLen {
		runes = runes[:maxLen]
	}

	result := make([]rune, 0, len(runes))
	for _, r := range runes {
		switch {
		case strings.ContainsRune(`/\:*?"<>|`, r):
			result = append(result, '-')
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			result = append(result, '_')
		case r < 32 || r == 127:
			result = append(result, '-')
		default:
			result = append(result, r)
		}
	}

	if len(result) == 0 {
		return "conversation"
	}
	return string(result)
}

// openFile opens a file in the default application for the OS.
func openFile(path string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", `""`, path)
	case "darwin":
		cmd = exec.Command("open", path)
	case "linux":
		cmd = exec.Command("xdg-open", path)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}

	return cmd.Start()
}

// formatTimestamp formats a timestamp for display.
func formatTimestamp(t time.Time) string {
	return t.Format("January 2, 2006 at 3:04 PM")
}

// formatShortTimestamp formats a timestamp in short form.
func formatShortTimestamp(t time.Time) string {
	return t.Format("3:04 PM")
}
