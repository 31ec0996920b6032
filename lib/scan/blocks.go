// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package scan

import (
	"fmt"
	"io"
	"os"

	"github.com/bureau-foundation/dirsig/lib/dirsig"
)

// hashFileBlocks opens a file and produces one digest per blockSize
// bytes of its content. The size is taken from the open descriptor,
// so the recorded size and the hashed byte count always agree. A file
// that shrinks between stat and read surfaces as a truncation error,
// never as a silently wrong signature.
func hashFileBlocks(algo dirsig.Algorithm, blockSize uint64, fsPath string) (uint64, dirsig.Hashes, error) {
	file, err := os.Open(fsPath)
	if err != nil {
		return 0, dirsig.Hashes{}, fmt.Errorf("opening file for hashing: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return 0, dirsig.Hashes{}, fmt.Errorf("inspecting %s: %w", fsPath, err)
	}
	size := uint64(info.Size())

	var hashes dirsig.Hashes
	remaining := size
	for remaining > 0 {
		blockLen := min(remaining, blockSize)
		hasher := algo.New()
		copied, err := io.CopyN(hasher, file, int64(blockLen))
		if err == io.EOF || (err == nil && copied < int64(blockLen)) {
			return 0, dirsig.Hashes{}, fmt.Errorf(
				"short read hashing %s: file truncated during scan", fsPath)
		}
		if err != nil {
			return 0, dirsig.Hashes{}, fmt.Errorf("reading %s: %w", fsPath, err)
		}
		var digest dirsig.Digest
		copy(digest[:], hasher.Sum(nil))
		hashes.Append(digest)
		remaining -= blockLen
	}
	return size, hashes, nil
}
