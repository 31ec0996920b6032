// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package scan

import (
	"context"
	"fmt"
	"io"

	"github.com/bureau-foundation/dirsig/lib/dirsig"
)

// opKind discriminates the emission operations of a scan.
type opKind int

const (
	opDir opKind = iota
	opFile
	opSymlink
)

// operation is one line-to-be of the signature, in emission order.
// File operations carry a sequence number so the worker pool can hash
// them out of order while the emitter restores canonical order.
type operation struct {
	kind       opKind
	path       []byte // directory path (opDir only)
	name       []byte // entry name (opFile, opSymlink)
	target     []byte // symlink destination (opSymlink only)
	executable bool
	fsPath     string
	seq        int // file sequence number (opFile only)
}

// Scan walks the tree rooted at root and writes its signature to out,
// returning the footer digest. The output is byte-deterministic:
// scanning an unchanged tree always produces identical bytes,
// regardless of filesystem enumeration order or worker count.
//
// On any error nothing more is written and no footer is emitted, so a
// truncated output never verifies.
func Scan(ctx context.Context, root string, cfg Config, out io.Writer) (dirsig.Digest, error) {
	if err := cfg.Validate(); err != nil {
		return dirsig.Digest{}, err
	}
	cfg = cfg.withDefaults()

	planned, err := plan(root, cfg.Logger)
	if err != nil {
		return dirsig.Digest{}, err
	}

	var ops []operation
	fileCount := 0
	for _, dir := range planned {
		ops = append(ops, operation{kind: opDir, path: dir.path})
		for _, c := range dir.children {
			switch c.kind {
			case childFile:
				ops = append(ops, operation{
					kind:       opFile,
					name:       c.name,
					executable: c.executable,
					fsPath:     c.fsPath,
					seq:        fileCount,
				})
				fileCount++
			case childSymlink:
				ops = append(ops, operation{
					kind:   opSymlink,
					name:   c.name,
					target: c.target,
					fsPath: c.fsPath,
				})
			}
		}
	}

	writer, err := dirsig.NewWriter(out, cfg.Algorithm, cfg.BlockSize, cfg.Extra...)
	if err != nil {
		return dirsig.Digest{}, err
	}

	if cfg.Threads > 1 && fileCount > 1 {
		err = emitParallel(ctx, cfg, ops, writer)
	} else {
		err = emitSequential(ctx, cfg, ops, writer)
	}
	if err != nil {
		return dirsig.Digest{}, err
	}

	digest, err := writer.Finish()
	if err != nil {
		return dirsig.Digest{}, err
	}
	cfg.Progress.Finish(digest)
	return digest, nil
}

// emitSequential hashes and emits on the calling goroutine.
func emitSequential(ctx context.Context, cfg Config, ops []operation, writer *dirsig.Writer) error {
	for _, op := range ops {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("scan canceled: %w", err)
		}
		switch op.kind {
		case opDir:
			if err := writer.BeginDir(op.path); err != nil {
				return err
			}
			cfg.Progress.Dir()
		case opSymlink:
			if err := writer.AddSymlink(op.name, op.target); err != nil {
				return err
			}
			cfg.Progress.Symlink()
		case opFile:
			size, hashes, err := hashFileBlocks(cfg.Algorithm, cfg.BlockSize, op.fsPath)
			if err != nil {
				return err
			}
			if err := writer.AddFile(op.name, op.executable, size, hashes); err != nil {
				return err
			}
			cfg.Progress.File(size)
		}
	}
	return nil
}
