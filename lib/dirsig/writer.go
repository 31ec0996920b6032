// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package dirsig

import (
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"strconv"
)

// Writer emits a v1 signature file to an output stream while feeding
// every emitted byte into the footer hasher. The writer renders lines;
// it does not check that directories and entries arrive in canonical
// order — the scanner owns ordering, and tools that rewrite existing
// signatures rely on being able to emit what they parsed.
//
// Two runs emitting the same sequence of calls produce identical
// bytes, including the footer.
type Writer struct {
	out      io.Writer
	hasher   hash.Hash
	header   Header
	line     []byte
	finished bool
}

// NewWriter validates the configuration and writes the header line.
// The output should be buffered; the writer issues one Write per line.
func NewWriter(out io.Writer, algorithm Algorithm, blockSize uint64, extra ...HeaderField) (*Writer, error) {
	if _, err := ParseAlgorithm(string(algorithm)); err != nil {
		return nil, err
	}
	if blockSize == 0 {
		return nil, fmt.Errorf("block size must be positive")
	}
	w := &Writer{
		out:    out,
		hasher: algorithm.New(),
		header: Header{
			Version:   Version1,
			Algorithm: algorithm,
			BlockSize: blockSize,
			Extra:     extra,
		},
	}
	if err := w.emit(w.header.appendLine(nil)); err != nil {
		return nil, err
	}
	return w, nil
}

// Header returns the header the writer emitted.
func (w *Writer) Header() Header {
	return w.header
}

// BeginDir emits a directory line. The path is raw bytes, absolute
// relative to the scanned root ("/" for the root itself); escaping is
// applied here.
func (w *Writer) BeginDir(path []byte) error {
	w.line = AppendEscaped(w.line[:0], path)
	w.line = append(w.line, '\n')
	return w.emit(w.line)
}

// AddFile emits a file entry line in the current directory. hashes
// must hold exactly one digest per blockSize bytes of the file.
func (w *Writer) AddFile(name []byte, executable bool, size uint64, hashes Hashes) error {
	if want := BlockCount(size, w.header.BlockSize); hashes.Len() != want {
		return fmt.Errorf("file %q is %d bytes: %d block hashes, want %d",
			name, size, hashes.Len(), want)
	}
	w.line = append(w.line[:0], ' ', ' ')
	w.line = AppendEscaped(w.line, name)
	if executable {
		w.line = append(w.line, " x "...)
	} else {
		w.line = append(w.line, " f "...)
	}
	w.line = strconv.AppendUint(w.line, size, 10)
	for i := 0; i < hashes.Len(); i++ {
		digest := hashes.At(i)
		w.line = append(w.line, ' ')
		w.line = appendHexEncode(w.line, digest[:])
	}
	w.line = append(w.line, '\n')
	return w.emit(w.line)
}

// AddSymlink emits a symlink entry line in the current directory. The
// target is recorded verbatim (escaped), never resolved.
func (w *Writer) AddSymlink(name, target []byte) error {
	w.line = append(w.line[:0], ' ', ' ')
	w.line = AppendEscaped(w.line, name)
	w.line = append(w.line, " s "...)
	w.line = AppendEscaped(w.line, target)
	w.line = append(w.line, '\n')
	return w.emit(w.line)
}

// Finish writes the footer line and returns its digest. The footer
// covers every previously emitted byte; the footer line itself is not
// part of the hash. No methods may be called after Finish.
func (w *Writer) Finish() (Digest, error) {
	if w.finished {
		return Digest{}, fmt.Errorf("signature already finished")
	}
	w.finished = true
	digest := digestOf(w.hasher)
	w.line = appendHexEncode(w.line[:0], digest[:])
	w.line = append(w.line, '\n')
	if _, err := w.out.Write(w.line); err != nil {
		return Digest{}, fmt.Errorf("writing signature: %w", err)
	}
	return digest, nil
}

// appendHexEncode appends the hex encoding of src to dst and returns the
// extended buffer, matching encoding/hex.AppendEncode (added in Go 1.22).
func appendHexEncode(dst, src []byte) []byte {
	n := len(dst)
	dst = append(dst, make([]byte, hex.EncodedLen(len(src)))...)
	hex.Encode(dst[n:], src)
	return dst
}

// emit writes one line to the output and the footer hasher.
func (w *Writer) emit(line []byte) error {
	if w.finished {
		return fmt.Errorf("signature already finished")
	}
	if _, err := w.out.Write(line); err != nil {
		return fmt.Errorf("writing signature: %w", err)
	}
	// hash.Hash.Write never returns an error.
	w.hasher.Write(line)
	return nil
}

// BlockCount returns the number of block hashes a file of the given
// size carries: ceil(size / blockSize), zero for an empty file.
func BlockCount(size, blockSize uint64) int {
	return int((size + blockSize - 1) / blockSize)
}
