// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package dirsig

import (
	"errors"
	"fmt"
)

// ErrUnsupportedVersion is returned when a signature file's version
// token names a format version this package does not implement. The
// reader dispatches on the version token, so new versions slot in as
// new cases without disturbing v1 parsing.
var ErrUnsupportedVersion = errors.New("unsupported signature version")

// ErrFooterMismatch is returned when the digest recorded on the footer
// line does not equal the digest computed over the body. Entries
// streamed before the footer are syntactically valid but the file as a
// whole cannot be trusted.
var ErrFooterMismatch = errors.New("footer digest does not match file content")

// ErrNotFound is returned by navigator lookups for paths absent from
// the signature.
var ErrNotFound = errors.New("path not found in signature")

// FormatError reports a malformed signature file. Line numbers are
// 1-based; the header is line 1.
type FormatError struct {
	Line int
	Err  error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("signature line %d: %v", e.Line, e.Err)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

// formatErrorf builds a FormatError at the given line.
func formatErrorf(line int, format string, args ...any) error {
	return &FormatError{Line: line, Err: fmt.Errorf(format, args...)}
}
