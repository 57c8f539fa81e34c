// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package patent

import (
	"regexp"
	"sort"
	"strings"
)

// TokenKind distinguishes plain text from a recognized application number.
type TokenKind int

const (
	// KindText is ordinary text.
	KindText TokenKind = iota
	// KindPatent is a Korean patent application number.
	KindPatent
)

// Token is one piece of tokenized text. Normalized is set for KindPatent.
type Token struct {
	Kind       TokenKind
	Value      string
	Normalized string
}

var (
	// 10-2020-1234567, with optional spaces around the hyphens.
	hyphenPattern = regexp.MustCompile(`10\s*-\s*\d{4}\s*-\s*\d{6,7}`)
	// 102020123456 or 1020201234567 as a bare word.
	digitsPattern = regexp.MustCompile(`\b10\d{10,11}\b`)
)

// publicationMarker precedes publication numbers, which share the format but
// are not linked.
const publicationMarker = "공개번호"

// markerWindow is how many characters before a match are searched for the
// marker.
const markerWindow = 20

type span struct {
	start, end int
}

// Normalize strips everything but ASCII digits.
func Normalize(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for i := 0; i < len(raw); i++ {
		if c := raw[i]; c >= '0' && c <= '9' {
			b.WriteByte(c)
		}
	}
	return b.String()
}

// isApplicationNumber reports whether normalized digits have the length of
// an application number.
func isApplicationNumber(digits string) bool {
	return len(digits) == 12 || len(digits) == 13
}

// Tokenize splits text into plain text and application number tokens.
// Concatenating every Value reproduces text.
func Tokenize(text string) []Token {
	if text == "" {
		return []Token{{Kind: KindText}}
	}

	var matches []span
	for _, re := range []*regexp.Regexp{hyphenPattern, digitsPattern} {
		for _, loc := range re.FindAllStringIndex(text, -1) {
			if precededByMarker(text, loc[0]) {
				continue
			}
			matches = append(matches, span{loc[0], loc[1]})
		}
	}
	if len(matches) == 0 {
		return []Token{{Kind: KindText, Value: text}}
	}

	// By start, longer first on ties.
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].start != matches[j].start {
			return matches[i].start < matches[j].start
		}
		return matches[i].end-matches[i].start > matches[j].end-matches[j].start
	})

	merged := make([]span, 0, len(matches))
	for _, m := range matches {
		if n := len(merged); n > 0 && m.start < merged[n-1].end {
			last := merged[n-1]
			if m.end-m.start > last.end-last.start {
				merged[n-1] = m
			}
			continue
		}
		merged = append(merged, m)
	}

	var tokens []Token
	cursor := 0
	for _, m := range merged {
		if m.start > cursor {
			tokens = append(tokens, Token{Kind: KindText, Value: text[cursor:m.start]})
		}
		raw := text[m.start:m.end]
		if digits := Normalize(raw); isApplicationNumber(digits) {
			tokens = append(tokens, Token{Kind: KindPatent, Value: raw, Normalized: digits})
		} else {
			tokens = append(tokens, Token{Kind: KindText, Value: raw})
		}
		cursor = m.end
	}
	if cursor < len(text) {
		tokens = append(tokens, Token{Kind: KindText, Value: text[cursor:]})
	}
	return tokens
}

// precededByMarker reports whether the markerWindow characters before
// offset contain the publication marker.
func precededByMarker(text string, offset int) bool {
	before := []rune(text[:offset])
	if len(before) > markerWindow {
		before = before[len(before)-markerWindow:]
	}
	return strings.Contains(string(before), publicationMarker)
}

// Numbers returns the distinct normalized application numbers in text, in
// order of first appearance.
func Numbers(text string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, t := range Tokenize(text) {
		if t.Kind == KindPatent && !seen[t.Normalized] {
			seen[t.Normalized] = true
			out = append(out, t.Normalized)
		}
	}
	return out
}

// Highlight rebuilds text, passing application numbers through decorate.
func Highlight(text string, decorate func(Token) string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, t := range Tokenize(text) {
		if t.Kind == KindPatent && decorate != nil {
			b.WriteString(decorate(t))
			continue
		}
		b.WriteString(t.Value)
	}
	return b.String()
}
