// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package scan

import (
	"fmt"
	"io"
	"time"

	"github.com/bureau-foundation/dirsig/lib/dirsig"
)

// Progress accumulates scan counters and prints a rate-limited status
// line. All callbacks run on the emitting goroutine, so Progress
// needs no locking; a nil *Progress is a no-op on every method, so
// call sites stay unconditional.
type Progress struct {
	out       io.Writer
	dirs      uint64
	files     uint64
	symlinks  uint64
	bytes     uint64
	started   time.Time
	lastPrint time.Time
}

// printInterval limits how often the status line is rewritten.
const printInterval = 100 * time.Millisecond

// NewProgress returns a progress sink printing to out (normally
// stderr, and only when it is a terminal — the line ends with a
// carriage return, not a newline).
func NewProgress(out io.Writer) *Progress {
	now := time.Now()
	return &Progress{out: out, started: now, lastPrint: now}
}

// Dir records an emitted directory.
func (p *Progress) Dir() {
	if p == nil {
		return
	}
	p.dirs++
	p.maybePrint()
}

// File records an emitted file entry and its size.
func (p *Progress) File(size uint64) {
	if p == nil {
		return
	}
	p.files++
	p.bytes += size
	p.maybePrint()
}

// Symlink records an emitted symlink entry.
func (p *Progress) Symlink() {
	if p == nil {
		return
	}
	p.symlinks++
	p.maybePrint()
}

// Finish prints the closing summary with the footer digest.
func (p *Progress) Finish(digest dirsig.Digest) {
	if p == nil {
		return
	}
	fmt.Fprintf(p.out, "Done %.8s. Indexed %d dirs, %d files, %d symlinks in %.3f sec.\n",
		dirsig.FormatDigest(digest), p.dirs, p.files, p.symlinks,
		time.Since(p.started).Seconds())
}

// maybePrint rewrites the status line at most every printInterval.
func (p *Progress) maybePrint() {
	now := time.Now()
	if now.Sub(p.lastPrint) < printInterval {
		return
	}
	p.lastPrint = now
	fmt.Fprintf(p.out, "Indexing... %d dirs, %d files, %d symlinks\r",
		p.dirs, p.files, p.symlinks)
}
