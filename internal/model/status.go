// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

// LoadingStatus is the displayed outcome of the latest history load.
type LoadingStatus string

const (
	StatusIdle    LoadingStatus = "idle"
	StatusLoading LoadingStatus = "loading"
	StatusTimeout LoadingStatus = "timeout"
	StatusError   LoadingStatus = "error"
	StatusSuccess LoadingStatus = "success"
)

// String returns the status name.
func (s LoadingStatus) String() string {
	return string(s)
}

// IsTerminal reports whether the status ends a load cycle. Timeout is not
// terminal: a late response can still move it to success.
func (s LoadingStatus) IsTerminal() bool {
	return s == StatusSuccess || s == StatusError
}
