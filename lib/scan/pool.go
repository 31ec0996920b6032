// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package scan

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/bureau-foundation/dirsig/lib/dirsig"
)

// fileWork is one hashing unit: a whole file. Blocks within a file
// are hashed sequentially by one worker; parallelism comes from
// hashing many files at once, which keeps per-unit bookkeeping at one
// result per file instead of one per block.
type fileWork struct {
	seq    int
	fsPath string
}

// fileOutcome is the result of hashing one file.
type fileOutcome struct {
	seq    int
	size   uint64
	hashes dirsig.Hashes
	err    error
	fsPath string
}

// emitParallel runs cfg.Threads hashing workers over the file
// operations while the calling goroutine emits every operation in
// plan order. Workers deliver results out of order; a reorder buffer
// keyed by sequence number restores submission order, so the emitted
// bytes are identical to the sequential path.
//
// The submission and result channels are each bounded at twice the
// worker count. The reorder buffer is not bounded by them: while the
// emitter waits for one file, it parks every later outcome it
// receives, up to all remaining files. On the first error — a worker's
// read failure or the emitter's write failure — the context is
// canceled, everything drains, and the first error is returned; the
// writer never reaches Finish, so no footer is emitted.
func emitParallel(ctx context.Context, cfg Config, ops []operation, writer *dirsig.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	work := make(chan fileWork, 2*cfg.Threads)
	results := make(chan fileOutcome, 2*cfg.Threads)

	group, groupCtx := errgroup.WithContext(ctx)

	// Submitter: feeds file operations to the workers in plan order.
	group.Go(func() error {
		defer close(work)
		for _, op := range ops {
			if op.kind != opFile {
				continue
			}
			select {
			case work <- fileWork{seq: op.seq, fsPath: op.fsPath}:
			case <-groupCtx.Done():
				return groupCtx.Err()
			}
		}
		return nil
	})

	// Workers: hash one file per unit. Failures travel through the
	// outcome so the emitter can report the first error in canonical
	// order; the worker also returns it to cancel the group.
	for i := 0; i < cfg.Threads; i++ {
		group.Go(func() error {
			for unit := range work {
				size, hashes, err := hashFileBlocks(cfg.Algorithm, cfg.BlockSize, unit.fsPath)
				outcome := fileOutcome{
					seq:    unit.seq,
					size:   size,
					hashes: hashes,
					err:    err,
					fsPath: unit.fsPath,
				}
				select {
				case results <- outcome:
				case <-groupCtx.Done():
					return groupCtx.Err()
				}
				if err != nil {
					return err
				}
			}
			return nil
		})
	}

	// Close results once the submitter and all workers are done, so
	// the emitter's receive below can detect pool shutdown.
	waitErr := make(chan error, 1)
	go func() {
		waitErr <- group.Wait()
		close(results)
	}()

	emitErr := emitOrdered(cfg, ops, writer, results)
	if emitErr != nil {
		// Unblock whatever is still running, then wait for it. When a
		// worker failed, its own error reached the group before the
		// emitter noticed the pool stopping; prefer that root cause
		// over the emitter's view of it.
		cancel()
		for range results {
		}
		if groupErr := <-waitErr; groupErr != nil && groupErr != context.Canceled {
			return groupErr
		}
		return emitErr
	}
	return <-waitErr
}

// emitOrdered walks the operations in plan order, pulling each file's
// outcome from the pool. Out-of-order outcomes park in a buffer until
// their turn.
func emitOrdered(cfg Config, ops []operation, writer *dirsig.Writer, results <-chan fileOutcome) error {
	parked := make(map[int]fileOutcome)
	for _, op := range ops {
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
			outcome, found := parked[op.seq]
			for !found {
				received, open := <-results
				if !open {
					return fmt.Errorf("hashing pool stopped before %s was hashed", op.fsPath)
				}
				if received.seq == op.seq {
					outcome = received
					found = true
				} else {
					parked[received.seq] = received
				}
			}
			delete(parked, op.seq)
			if outcome.err != nil {
				return outcome.err
			}
			if err := writer.AddFile(op.name, op.executable, outcome.size, outcome.hashes); err != nil {
				return err
			}
			cfg.Progress.File(outcome.size)
		}
	}
	return nil
}
