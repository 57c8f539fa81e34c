// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jeranaias/patentchat/internal/model"
)

// =============================================================================
// MARKDOWN EXPORTER
// =============================================================================

// MarkdownExporter exports transcripts to Markdown with YAML front matter.
type MarkdownExporter struct {
	options *Options
}

// NewMarkdownExporter creates a new Markdown exporter.
func NewMarkdownExporter(opts *Options) *MarkdownExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &MarkdownExporter{options: opts}
}

// frontMatter is the metadata block at the top of the document.
type frontMatter struct {
	Title     string   `yaml:"title"`
	Session   string   `yaml:"session,omitempty"`
	Updated   string   `yaml:"updated,omitempty"`
	Exported  string   `yaml:"exported"`
	Messages  int      `yaml:"messages"`
	Patents   []string `yaml:"patents,omitempty"`
	Generator string   `yaml:"generator"`
}

// Export converts a transcript to Markdown.
func (e *MarkdownExporter) Export(t *Transcript) ([]byte, error) {
	if t == nil {
		return nil, fmt.Errorf("transcript is nil")
	}
	if len(t.Messages) == 0 {
		return nil, ErrEmptyTranscript
	}

	meta := frontMatter{
		Title:     t.Title,
		Session:   t.SessionID,
		Exported:  t.ExportedAt.Format(time.RFC3339),
		Messages:  len(t.Messages),
		Patents:   t.Patents,
		Generator: "patentchat",
	}
	if !t.UpdatedAt.IsZero() {
		meta.Updated = t.UpdatedAt.Format(time.RFC3339)
	}
	header, err := yaml.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("encode front matter: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("---\n")
	sb.Write(header)
	sb.WriteString("---\n\n")
	sb.WriteString(fmt.Sprintf("# %s\n\n", escapeMarkdown(t.Title)))

	for i, msg := range t.Messages {
		sb.WriteString("### " + e.roleLabel(msg))
		if ts := msg.Time(); e.options.IncludeTimestamps && !ts.IsZero() {
			sb.WriteString(fmt.Sprintf(" <sub>%s</sub>", ts.Local().Format("2006-01-02 15:04:05")))
		}
		sb.WriteString("\n\n")
		sb.WriteString(strings.TrimSpace(msg.Content))
		sb.WriteString("\n\n")

		if i < len(t.Messages)-1 {
			sb.WriteString("---\n\n")
		}
	}

	if len(t.Patents) > 0 {
		sb.WriteString("## 출원번호\n\n")
		for _, n := range t.Patents {
			sb.WriteString("- " + n + "\n")
		}
		sb.WriteString("\n")
	}
	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for Markdown.
func (e *MarkdownExporter) FileExtension() string {
	return ".md"
}

// MimeType returns the MIME type for Markdown.
func (e *MarkdownExporter) MimeType() string {
	return "text/markdown"
}

// roleLabel names the sender; failed sends are marked.
func (e *MarkdownExporter) roleLabel(msg model.Message) string {
	switch {
	case msg.Error:
		return "[Error]"
	case msg.Role == "":
		return "Unknown"
	default:
		return "[" + msg.Role.DisplayName() + "]"
	}
}

// escapeMarkdown escapes characters that would break a heading.
func escapeMarkdown(s string) string {
	return strings.NewReplacer(
		"#", "\\#",
		"*", "\\*",
		"_", "\\_",
		"[", "\\[",
		"]", "\\]",
	).Replace(s)
}
