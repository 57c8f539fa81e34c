// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package patent recognizes Korean patent application numbers in assistant
// answers so the UI can highlight them.
//
// Both the hyphenated form (10-2020-1234567) and the bare 12 or 13 digit
// form (1020201234567) are recognized. Numbers shortly after "공개번호"
// (publication number) are left as text.
package patent
