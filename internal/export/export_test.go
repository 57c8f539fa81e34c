// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/jeranaias/patentchat/internal/model"
)

var exportedAt = time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)

func sampleTranscript() *Transcript {
	msgs := []model.Message{
		{Role: model.RoleUser, Content: "배터리 특허 찾아줘", Timestamp: 1740821400},
		{Role: model.RoleAssistant, Content: "10-2020-1234567 과 1020190054321 이 있습니다.", Timestamp: 1740821405},
		model.NewErrorMessage("요청 시간이 초과되었습니다."),
		{Role: model.RoleAssistant, Content: "다시: 10-2020-1234567"},
	}
	summary := model.SessionSummary{SessionID: "abc", Title: "배터리 특허", UpdatedAt: 1740821405000}
	return NewTranscript(summary, msgs, exportedAt)
}

func TestNewTranscript_CollectsPatents(t *testing.T) {
	tr := sampleTranscript()
	assert.Equal(t, []string{"1020201234567", "1020190054321"}, tr.Patents)
	assert.Equal(t, "배터리 특허", tr.Title)
	assert.Len(t, tr.Messages, 4)
}

func TestNewTranscript_TitleFallback(t *testing.T) {
	tr := NewTranscript(model.SessionSummary{SessionID: "x"},
		[]model.Message{model.NewUserMessage("아주 긴 질문입니다 이것은 스물다섯 글자를 넘어가는 질문입니다")}, exportedAt)
	assert.True(t, strings.HasSuffix(tr.Title, "..."))

	empty := NewTranscript(model.SessionSummary{}, nil, exportedAt)
	assert.Equal(t, "conversation", empty.Title)
	assert.NotNil(t, empty.Messages)
}

func TestMarkdownExporter(t *testing.T) {
	data, err := NewMarkdownExporter(&Options{IncludeTimestamps: false}).Export(sampleTranscript())
	require.NoError(t, err)
	out := string(data)

	require.True(t, strings.HasPrefix(out, "---\n"))
	end := strings.Index(out[4:], "---\n")
	require.Greater(t, end, 0)

	var meta frontMatter
	require.NoError(t, yaml.Unmarshal([]byte(out[4:4+end]), &meta))
	assert.Equal(t, "배터리 특허", meta.Title)
	assert.Equal(t, "abc", meta.Session)
	assert.Equal(t, 4, meta.Messages)
	assert.Equal(t, "patentchat", meta.Generator)

	assert.Contains(t, out, "# 배터리 특허")
	assert.Contains(t, out, "### [You]")
	assert.Contains(t, out, "### [Assistant]")
	assert.Contains(t, out, "### [Error]")
	assert.Contains(t, out, "## 출원번호\n\n- 1020201234567\n- 1020190054321\n")
	assert.NotContains(t, out, "<sub>")
}

func TestMarkdownExporter_EscapesTitle(t *testing.T) {
	tr := NewTranscript(model.SessionSummary{Title: "# a_b"},
		[]model.Message{model.NewUserMessage("q")}, exportedAt)
	data, err := NewMarkdownExporter(nil).Export(tr)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# \\# a\\_b\n")
}

func TestJSONExporter(t *testing.T) {
	data, err := NewJSONExporter(nil).Export(sampleTranscript())
	require.NoError(t, err)

	var got Transcript
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "abc", got.SessionID)
	assert.Len(t, got.Messages, 4)
	assert.True(t, got.Messages[2].Error)
	assert.True(t, got.ExportedAt.Equal(exportedAt))
}

func TestExporters_RejectEmpty(t *testing.T) {
	empty := NewTranscript(model.SessionSummary{}, nil, exportedAt)
	_, err := NewMarkdownExporter(nil).Export(empty)
	assert.ErrorIs(t, err, ErrEmptyTranscript)
	_, err = NewJSONExporter(nil).Export(empty)
	assert.ErrorIs(t, err, ErrEmptyTranscript)
}

func TestForFormat(t *testing.T) {
	e, err := ForFormat("", nil)
	require.NoError(t, err)
	assert.Equal(t, ".md", e.FileExtension())

	e, err = ForFormat("JSON", nil)
	require.NoError(t, err)
	assert.Equal(t, "application/json", e.MimeType())

	_, err = ForFormat("html", nil)
	assert.Error(t, err)
}

func TestExportToFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	path, err := ExportToFile(sampleTranscript(), NewMarkdownExporter(nil), &Options{OutputDir: dir})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "patentchat_배터리_특허_20250301_093000.md"), path)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# 배터리 특허")
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "a-b-c_d", sanitizeFilename("a/b:c d"))
	assert.Equal(t, "conversation", sanitizeFilename(""))
	assert.Equal(t, 50, len([]rune(sanitizeFilename(strings.Repeat("가", 80)))))
}
