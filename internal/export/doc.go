// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes conversation transcripts to files.
//
// # Key Types
//
//   - Transcript: one conversation with its title and the application
//     numbers mentioned in the answers
//   - Exporter: converts a Transcript to bytes (MarkdownExporter, JSONExporter)
//   - Options: output directory and per-message timestamps
//
// # Usage
//
//	t := export.NewTranscript(summary, messages, time.Now())
//	path, err := export.ExportToFile(t, export.NewMarkdownExporter(nil), nil)
package export
