// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import "fmt"

// ExitError signals a non-zero exit code without printing an extra
// error message. The command is expected to have written its own
// output; main checks for the ExitCode method and exits silently.
//
// dirsig uses this for results that are not failures: lookup not
// finding a path (exit 1), verify finding a digest mismatch (exit 2).
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit code %d", e.Code)
}

// ExitCode returns the process exit code to use.
func (e *ExitError) ExitCode() int {
	return e.Code
}
