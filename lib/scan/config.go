// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package scan

import (
	"fmt"
	"log/slog"
	"runtime"

	"github.com/bureau-foundation/dirsig/lib/dirsig"
)

// DefaultBlockSize is the block size used when the config leaves it
// zero. 32 KiB balances hash granularity for block-level sync against
// index size (one 64-character hash per block).
const DefaultBlockSize = 32768

// Config controls a scan. The zero value scans with sha512/256,
// DefaultBlockSize, one worker per CPU, and the default slog logger.
type Config struct {
	// Algorithm selects the hash for block hashes and the footer.
	// Empty means sha512/256.
	Algorithm dirsig.Algorithm

	// BlockSize is the number of bytes per block hash. Zero means
	// DefaultBlockSize.
	BlockSize uint64

	// Threads is the number of hashing workers. Zero means one per
	// CPU; 1 disables the worker pool entirely and hashes on the
	// calling goroutine.
	Threads int

	// Extra is appended to the header line after block_size.
	Extra []dirsig.HeaderField

	// Logger receives warnings about skipped entries. Nil means
	// slog.Default().
	Logger *slog.Logger

	// Progress, when non-nil, receives per-entry progress callbacks.
	Progress *Progress
}

// withDefaults returns the config with zero fields filled in.
func (c Config) withDefaults() Config {
	if c.Algorithm == "" {
		c.Algorithm = dirsig.SHA512_256
	}
	if c.BlockSize == 0 {
		c.BlockSize = DefaultBlockSize
	}
	if c.Threads == 0 {
		c.Threads = runtime.NumCPU()
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// Validate rejects impossible configurations before any filesystem
// work starts.
func (c Config) Validate() error {
	if c.Algorithm != "" {
		if _, err := dirsig.ParseAlgorithm(string(c.Algorithm)); err != nil {
			return err
		}
	}
	if c.Threads < 0 {
		return fmt.Errorf("threads must not be negative, got %d", c.Threads)
	}
	for _, field := range c.Extra {
		if field.Key == "block_size" {
			return fmt.Errorf("extra header field %q collides with the fixed block_size field", field.Key)
		}
	}
	return nil
}
