// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package dirsig

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"sort"

	"github.com/fxamacker/cbor/v2"
)

// Navigator provides random access into a signature file by path. It
// keeps only a table of (directory path, byte offset) pairs in memory;
// entry lines are re-read from the source on demand. Because directory
// lines are globally sorted, a lookup is a binary search over the
// table plus a linear scan of one directory's block.
//
// Navigator needs a seekable, uncompressed source. It does not verify
// the footer; use [Reader] for that.
type Navigator struct {
	src    io.ReadSeeker
	header Header
	footer Digest
	dirs   []dirOffset
}

// dirOffset locates one directory line in the source.
type dirOffset struct {
	path   []byte
	offset int64
}

// OpenNavigator scans the signature once to build the directory offset
// table. The scan parses only line prefixes, so it is considerably
// cheaper than a full parse; malformed lines inside directories
// surface later, from Lookup or IterDir.
func OpenNavigator(src io.ReadSeeker) (*Navigator, error) {
	compressed, err := isCompressed(src)
	if err != nil {
		return nil, err
	}
	if compressed {
		return nil, fmt.Errorf("navigator requires an uncompressed signature (source is zstd-compressed)")
	}

	buffered := bufio.NewReader(src)
	nav := &Navigator{src: src}

	raw, err := buffered.ReadBytes('\n')
	if err != nil {
		return nil, formatErrorf(1, "reading header: %v", err)
	}
	header, err := parseHeader(raw[:len(raw)-1])
	if err != nil {
		return nil, &FormatError{Line: 1, Err: err}
	}
	nav.header = header

	offset := int64(len(raw))
	line := 1
	for {
		raw, err := buffered.ReadBytes('\n')
		line++
		if err != nil {
			return nil, formatErrorf(line, "signature ends without a footer")
		}
		switch {
		case raw[0] == '/':
			path := UnescapeName(raw[:len(raw)-1])
			if n := len(nav.dirs); n > 0 && bytes.Compare(path, nav.dirs[n-1].path) <= 0 {
				return nil, formatErrorf(line, "directory %q out of order", path)
			}
			nav.dirs = append(nav.dirs, dirOffset{path: path, offset: offset})
		case raw[0] == ' ':
			// Entry line: parsed on demand.
		default:
			footer, err := ParseDigest(string(raw[:len(raw)-1]))
			if err != nil {
				return nil, formatErrorf(line, "invalid footer: %v", err)
			}
			nav.footer = footer
			return nav, nil
		}
		offset += int64(len(raw))
	}
}

// Header returns the signature header.
func (n *Navigator) Header() Header {
	return n.header
}

// FooterDigest returns the digest on the footer line (not verified).
func (n *Navigator) FooterDigest() Digest {
	return n.footer
}

// Dirs returns the number of directories in the signature.
func (n *Navigator) Dirs() int {
	return len(n.dirs)
}

// Lookup finds the entry at the given absolute path: a directory, a
// file, or a symlink. Returns [ErrNotFound] when the signature has no
// such path.
func (n *Navigator) Lookup(path []byte) (Entry, error) {
	if len(path) == 0 || path[0] != '/' {
		return nil, fmt.Errorf("lookup path %q is not absolute", path)
	}
	if i, found := n.findDir(path); found {
		return Dir{DirPath: n.dirs[i].path}, nil
	}

	key := fileKey(path)
	i, found := n.findDir(key.Dir)
	if !found {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, path)
	}
	entries, err := n.scanDir(i)
	if err != nil {
		return nil, err
	}
	for _, entry := range entries {
		entryKey := entry.Key()
		switch entryKey.Compare(key) {
		case 0:
			return entry, nil
		case 1:
			// Names are sorted; past the point where it could be.
			return nil, fmt.Errorf("%w: %q", ErrNotFound, path)
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrNotFound, path)
}

// IterDir returns the entries of one directory, in file order. The
// directory line itself is not included. Returns [ErrNotFound] for a
// directory absent from the signature.
func (n *Navigator) IterDir(path []byte) ([]Entry, error) {
	i, found := n.findDir(path)
	if !found {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, path)
	}
	return n.scanDir(i)
}

// findDir binary-searches the offset table.
func (n *Navigator) findDir(path []byte) (int, bool) {
	i := sort.Search(len(n.dirs), func(i int) bool {
		return bytes.Compare(n.dirs[i].path, path) >= 0
	})
	return i, i < len(n.dirs) && bytes.Equal(n.dirs[i].path, path)
}

// scanDir seeks to the i-th directory line and parses its entries.
func (n *Navigator) scanDir(i int) ([]Entry, error) {
	if _, err := n.src.Seek(n.dirs[i].offset, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seeking signature: %w", err)
	}
	// A scoped reader over the directory block. Seeding the current
	// directory as empty makes the block's own directory line pass
	// the monotonicity check regardless of its position in the file.
	sub := &Reader{
		source:     bufio.NewReader(n.src),
		header:     n.header,
		hasher:     n.header.Algorithm.New(),
		sawDir:     true,
		currentDir: []byte{},
	}
	if _, err := sub.Next(); err != nil {
		return nil, err
	}

	var entries []Entry
	for {
		head, err := sub.source.Peek(1)
		if err == io.EOF {
			return nil, formatErrorf(sub.line+1, "signature ends without a footer")
		}
		if err != nil {
			return nil, fmt.Errorf("reading signature: %w", err)
		}
		if head[0] != ' ' {
			// Next directory line, or the footer: end of this block.
			return entries, nil
		}
		entry, err := sub.Next()
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
}

// Offset sidecar: the directory table serialized as deterministic
// CBOR so that repeated lookups against a large signature can skip
// the body scan. The sidecar records the footer digest of the file it
// was built from, and loading verifies that binding.

// sidecarVersion guards the sidecar layout.
const sidecarVersion = 1

type offsetsSidecar struct {
	Version   int          `cbor:"version"`
	Algorithm string       `cbor:"algorithm"`
	BlockSize uint64       `cbor:"block_size"`
	Footer    []byte       `cbor:"footer"`
	Dirs      []sidecarDir `cbor:"dirs"`
}

type sidecarDir struct {
	Path   []byte `cbor:"path"`
	Offset int64  `cbor:"offset"`
}

// sidecarEncMode is the CBOR encoder configured with Core
// Deterministic Encoding: the same table always serializes to
// identical bytes.
var sidecarEncMode cbor.EncMode

func init() {
	var err error
	sidecarEncMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("dirsig: CBOR encoder initialization failed: " + err.Error())
	}
}

// SaveOffsets writes the navigator's directory table as a CBOR
// sidecar.
func (n *Navigator) SaveOffsets(w io.Writer) error {
	sidecar := offsetsSidecar{
		Version:   sidecarVersion,
		Algorithm: n.header.Algorithm.String(),
		BlockSize: n.header.BlockSize,
		Footer:    n.footer[:],
		Dirs:      make([]sidecarDir, 0, len(n.dirs)),
	}
	for _, d := range n.dirs {
		sidecar.Dirs = append(sidecar.Dirs, sidecarDir{Path: d.path, Offset: d.offset})
	}
	encoded, err := sidecarEncMode.Marshal(sidecar)
	if err != nil {
		return fmt.Errorf("encoding offset sidecar: %w", err)
	}
	if _, err := w.Write(encoded); err != nil {
		return fmt.Errorf("writing offset sidecar: %w", err)
	}
	return nil
}

// OpenNavigatorWithOffsets builds a navigator from a previously saved
// sidecar instead of scanning the body. The sidecar's footer digest
// must match the signature's, which proves the offsets were built
// from exactly this file.
func OpenNavigatorWithOffsets(src io.ReadSeeker, sidecar io.Reader) (*Navigator, error) {
	encoded, err := io.ReadAll(sidecar)
	if err != nil {
		return nil, fmt.Errorf("reading offset sidecar: %w", err)
	}
	var decoded offsetsSidecar
	if err := cbor.Unmarshal(encoded, &decoded); err != nil {
		return nil, fmt.Errorf("decoding offset sidecar: %w", err)
	}
	if decoded.Version != sidecarVersion {
		return nil, fmt.Errorf("offset sidecar version %d not supported", decoded.Version)
	}

	algorithm, footer, err := ReadFooterDigest(src)
	if err != nil {
		return nil, err
	}
	if algorithm.String() != decoded.Algorithm || !bytes.Equal(footer[:], decoded.Footer) {
		return nil, fmt.Errorf("offset sidecar does not belong to this signature")
	}

	nav := &Navigator{
		src: src,
		header: Header{
			Version:   Version1,
			Algorithm: algorithm,
			BlockSize: decoded.BlockSize,
		},
		footer: footer,
		dirs:   make([]dirOffset, 0, len(decoded.Dirs)),
	}
	for _, d := range decoded.Dirs {
		nav.dirs = append(nav.dirs, dirOffset{path: d.Path, offset: d.Offset})
	}
	return nav, nil
}
