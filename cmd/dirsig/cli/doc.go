// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli is the small command-tree framework behind the dirsig
// binary: named subcommands with pflag flag sets, structured help
// output, and typo suggestions for unknown commands and flags.
//
// [ExitError] lets a command exit non-zero without an extra error
// line, for outcomes like "lookup found nothing" or "verification
// failed" that are results, not failures.
package cli
