// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/jeranaias/patentchat/internal/model"
	"github.com/jeranaias/patentchat/internal/patent"
	"github.com/jeranaias/patentchat/internal/util"
)

// =============================================================================
// TRANSCRIPT
// =============================================================================

// Transcript is the exported form of one conversation.
type Transcript struct {
	SessionID  string          `json:"session_id"`
	Title      string          `json:"title"`
	UpdatedAt  time.Time       `json:"updated_at"`
	ExportedAt time.Time       `json:"exported_at"`
	Messages   []model.Message `json:"messages"`

	// Patents lists the application numbers found in assistant answers,
	// normalized and in order of first appearance.
	Patents []string `json:"patents"`
}

// NewTranscript builds a transcript. An empty summary title falls back to
// the first question.
func NewTranscript(summary model.SessionSummary, messages []model.Message, now time.Time) *Transcript {
	t := &Transcript{
		SessionID:  summary.SessionID,
		Title:      summary.Title,
		UpdatedAt:  summary.UpdatedTime(),
		ExportedAt: now,
		Messages:   model.CloneMessages(messages),
		Patents:    []string{},
	}
	if t.Messages == nil {
		t.Messages = []model.Message{}
	}

	seen := make(map[string]bool)
	for _, m := range messages {
		if t.Title == "" && m.IsUser() {
			t.Title = model.DeriveTitle(util.SingleLine(m.Content))
		}
		if !m.IsAssistant() || m.Error {
			continue
		}
		for _, n := range patent.Numbers(m.Content) {
			if !seen[n] {
				seen[n] = true
				t.Patents = append(t.Patents, n)
			}
		}
	}
	if t.Title == "" {
		t.Title = "conversation"
	}
	return t
}

// ErrEmptyTranscript is returned when there is nothing to export.
var ErrEmptyTranscript = errors.New("conversation has no messages")

// =============================================================================
// EXPORT INTERFACE
// =============================================================================

// Exporter defines the interface for transcript exporters.
type Exporter interface {
	// Export converts a transcript to the target format.
	Export(t *Transcript) ([]byte, error)

	// FileExtension returns the file extension, e.g. ".md".
	FileExtension() string

	// MimeType returns the MIME type of the output.
	MimeType() string
}

// Options configures export behavior.
type Options struct {
	// OutputDir is where files are written.
	// Default: current working directory
	OutputDir string

	// IncludeTimestamps adds per-message times in Markdown.
	IncludeTimestamps bool
}

// DefaultOptions returns default export options.
func DefaultOptions() *Options {
	return &Options{
		OutputDir:         ".",
		IncludeTimestamps: true,
	}
}

// ForFormat returns the exporter for "md"/"markdown" or "json".
func ForFormat(format string, opts *Options) (Exporter, error) {
	switch strings.ToLower(format) {
	case "", "md", "markdown":
		return NewMarkdownExporter(opts), nil
	case "json":
		return NewJSONExporter(opts), nil
	default:
		return nil, fmt.Errorf("unknown export format %q (want md or json)", format)
	}
}

// =============================================================================
// EXPORT FUNCTIONS
// =============================================================================

// ExportToFile writes t to a new file in opts.OutputDir and returns its path.
// The file name is derived from the title and the export time.
func ExportToFile(t *Transcript, exporter Exporter, opts *Options) (string, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	content, err := exporter.Export(t)
	if err != nil {
		return "", fmt.Errorf("export failed: %w", err)
	}

	filename := fmt.Sprintf("patentchat_%s_%s%s",
		sanitizeFilename(t.Title),
		t.ExportedAt.Format("20060102_150405"),
		exporter.FileExtension(),
	)

	dir := opts.OutputDir
	if dir == "" {
		dir = "."
	}
	outputPath := filepath.Join(dir, filename)
	if err := util.AtomicWriteFile(outputPath, content, 0644); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	return outputPath, nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// sanitizeFilename replaces characters that are invalid in file names on
// Windows or Unix. Hangul is kept.
func sanitizeFilename(s string) string {
	s = util.TruncateRunes(s, 50)

	var b strings.Builder
	for _, r := range s {
		switch {
		case strings.ContainsRune(`/\:*?"<>|`, r):
			b.WriteRune('-')
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			b.WriteRune('_')
		case r < 32 || r == 127:
			b.WriteRune('-')
		default:
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "conversation"
	}
	return b.String()
}
