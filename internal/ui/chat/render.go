// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"log"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/patentchat/internal/patent"
	"github.com/jeranaias/patentchat/internal/ui/styles"
)

// maxRenderCache bounds the rendered-markdown cache; it is reset when full.
const maxRenderCache = 256

// markdownRenderer renders assistant answers with glamour. Renderers are
// rebuilt when the wrap width changes and output is cached per content.
type markdownRenderer struct {
	style    string
	width    int
	renderer *glamour.TermRenderer
	cache    map[string]string
}

func newMarkdownRenderer(style string) *markdownRenderer {
	return &markdownRenderer{style: style, cache: make(map[string]string)}
}

// render returns content as terminal markdown wrapped at width. On any
// glamour failure the raw content is returned.
func (r *markdownRenderer) render(content string, width int) string {
	if width < 10 {
		width = 10
	}
	if r.renderer == nil || r.width != width {
		tr, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(r.style),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			log.Printf("MARKDOWN_RENDERER_FAILED | style=%s error=%v", r.style, err)
			return content
		}
		r.renderer = tr
		r.width = width
		r.cache = make(map[string]string)
	}
	if out, ok := r.cache[content]; ok {
		return out
	}

	out, err := r.renderer.Render(content)
	if err != nil {
		log.Printf("MARKDOWN_RENDER_FAILED | error=%v", err)
		return content
	}
	out = strings.Trim(out, "\n")
	if len(r.cache) >= maxRenderCache {
		r.cache = make(map[string]string)
	}
	r.cache[content] = out
	return out
}

// wrapPlain wraps text to width without markdown processing.
func wrapPlain(text string, width int) string {
	if width < 10 {
		width = 10
	}
	return lipgloss.NewStyle().Width(width).Render(text)
}

// highlightPatents decorates application numbers in already wrapped text.
func highlightPatents(theme *styles.Theme, text string) string {
	return patent.Highlight(text, func(tok patent.Token) string {
		return theme.Patent.Render(tok.Value)
	})
}
