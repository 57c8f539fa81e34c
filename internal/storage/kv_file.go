// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jeranaias/patentchat/internal/util"
)

// =============================================================================
// FILE BACKEND
// =============================================================================

// FileKV stores one file per key under a directory. Writes are atomic, so a
// second patentchat process reading the same directory never sees a partial
// document.
type FileKV struct {
	// Dir is the directory holding the entries.
	// Default: ~/.patentchat/cache/
	Dir string
}

// NewFileKV creates the directory if needed and returns a store rooted there.
func NewFileKV(dir string) (*FileKV, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}
	return &FileKV{Dir: dir}, nil
}

// Get implements KV.
func (f *FileKV) Get(key string) (string, bool, error) {
	data, err := os.ReadFile(f.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, err
	}
	return string(data), true, nil
}

// Set implements KV.
func (f *FileKV) Set(key, value string) error {
	return util.AtomicWriteFileWithDir(f.path(key), []byte(value), 0600, 0700)
}

// Delete implements KV.
func (f *FileKV) Delete(key string) error {
	if err := os.Remove(f.path(key)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Keys implements KV.
func (f *FileKV) Keys(prefix string) ([]string, error) {
	entries, err := os.ReadDir(f.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var keys []string
	for _, entry := range entries {
		if entry.IsDir() || util.IsTempFile(entry.Name()) {
			continue
		}
		key, ok := decodeFileName(entry.Name())
		if !ok || !strings.HasPrefix(key, prefix) {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys, nil
}

// path returns the file path for a key.
func (f *FileKV) path(key string) string {
	return filepath.Join(f.Dir, encodeFileName(key))
}

// encodeFileName maps a key to a safe file name. Session ids come from the
// server, so separators and a leading dot must not leak into the path.
func encodeFileName(key string) string {
	name := url.PathEscape(key)
	if strings.HasPrefix(name, ".") {
		name = "%2E" + name[1:]
	}
	return name
}

// decodeFileName reverses encodeFileName.
func decodeFileName(name string) (string, bool) {
	key, err := url.PathUnescape(name)
	if err != nil {
		return "", false
	}
	return key, true
}
