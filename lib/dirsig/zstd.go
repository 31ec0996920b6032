// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package dirsig

import (
	"bufio"
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
)

// zstdMagic is the zstd frame magic number (RFC 8878). A signature
// file can never begin with these bytes: its first byte is always 'D'.
var zstdMagic = []byte{0x28, 0xB5, 0x2F, 0xFD}

// DecodeSource returns a reader over the uncompressed signature bytes.
// If the stream begins with the zstd frame magic it is decompressed
// transparently; otherwise it is passed through. Compression is a
// storage concern only — the format, and the footer hash, are defined
// over the uncompressed bytes.
func DecodeSource(r io.Reader) (io.Reader, error) {
	buffered := bufio.NewReader(r)
	head, err := buffered.Peek(len(zstdMagic))
	if err != nil || !bytes.Equal(head, zstdMagic) {
		// Too short to be compressed, or plain text: let the parser
		// produce its own error for truncated input.
		return buffered, nil
	}
	decoder, err := zstd.NewReader(buffered)
	if err != nil {
		return nil, fmt.Errorf("initializing zstd decoder: %w", err)
	}
	return decoder.IOReadCloser(), nil
}

// NewCompressingWriter wraps out in a zstd encoder at the default
// level. Close flushes the final frame; the caller must close it
// after Writer.Finish.
func NewCompressingWriter(out io.Writer) (io.WriteCloser, error) {
	encoder, err := zstd.NewWriter(out, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("initializing zstd encoder: %w", err)
	}
	return encoder, nil
}

// isCompressed reports whether a seekable source begins with the zstd
// magic. The seek position is restored to the start.
func isCompressed(src io.ReadSeeker) (bool, error) {
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return false, fmt.Errorf("seeking signature: %w", err)
	}
	var head [4]byte
	n, err := io.ReadFull(src, head[:])
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return false, fmt.Errorf("reading signature: %w", err)
	}
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return false, fmt.Errorf("seeking signature: %w", err)
	}
	return n == 4 && bytes.Equal(head[:], zstdMagic), nil
}
