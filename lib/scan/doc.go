// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package scan produces a directory signature from a filesystem tree.
//
// [Scan] walks the tree rooted at a path, hashes file contents block
// by block, and emits the canonical signature through a
// dirsig.Writer. The walk never follows symlinks, includes dotfiles,
// and skips (with a log line) anything that is not a directory,
// regular file, or symlink.
//
// The emitted byte stream is a pure function of the tree's contents:
// directories are globally sorted by path and entries by name under
// unsigned byte order, so enumeration order of the underlying
// filesystem never shows through. With Threads > 1, file hashing is
// spread over a bounded worker pool whose results are re-serialized
// into submission order before emission — the parallel output is
// byte-identical to the single-threaded output.
package scan
