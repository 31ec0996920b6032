// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package dirsig

import (
	"bufio"
	"bytes"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
)

// Reader incrementally parses a signature file. It holds one line at a
// time, so arbitrarily large signatures parse in constant memory.
//
// The reader feeds every body byte into a hasher mirroring the writer;
// when the footer line is reached the recorded and computed digests
// are compared and a mismatch surfaces as [ErrFooterMismatch]. Entries
// returned before that point are syntactically valid regardless.
type Reader struct {
	source *bufio.Reader
	header Header
	hasher hash.Hash

	line       int // 1-based number of the last line read
	currentDir []byte
	sawDir     bool
	done       bool

	footerRead     Digest
	footerComputed Digest
}

// NewReader parses the header line and returns a reader positioned at
// the first body line. The version token in the header selects the
// parser; only v1 exists, so anything else returns a [FormatError]
// wrapping [ErrUnsupportedVersion].
func NewReader(r io.Reader) (*Reader, error) {
	reader := &Reader{source: bufio.NewReader(r)}

	raw, err := reader.readLine()
	if err != nil {
		return nil, err
	}
	header, err := parseHeader(raw[:len(raw)-1])
	if err != nil {
		return nil, &FormatError{Line: 1, Err: err}
	}
	reader.header = header
	reader.hasher = header.Algorithm.New()
	reader.hasher.Write(raw)
	return reader, nil
}

// Header returns the parsed header.
func (r *Reader) Header() Header {
	return r.header
}

// Next returns the next entry. Directory lines are returned as [Dir]
// entries; the entries that follow are [File] and [Symlink] values
// with paths joined onto that directory. After the footer line has
// been read and verified, Next returns io.EOF; if the footer digest
// does not match the body, it returns [ErrFooterMismatch] instead.
func (r *Reader) Next() (Entry, error) {
	if r.done {
		return nil, io.EOF
	}
	raw, err := r.readLine()
	if err != nil {
		return nil, err
	}

	switch {
	case raw[0] == '/':
		r.hasher.Write(raw)
		return r.parseDirLine(raw[:len(raw)-1])
	case raw[0] == ' ':
		r.hasher.Write(raw)
		return r.parseEntryLine(raw[:len(raw)-1])
	default:
		return nil, r.finishAtFooter(raw[:len(raw)-1])
	}
}

// FooterDigest returns the digest read from the footer line. Valid
// once Next has returned io.EOF or ErrFooterMismatch.
func (r *Reader) FooterDigest() Digest {
	return r.footerRead
}

// ComputedDigest returns the digest computed over the body. Valid once
// Next has returned io.EOF or ErrFooterMismatch.
func (r *Reader) ComputedDigest() Digest {
	return r.footerComputed
}

// CurrentDir returns the directory the reader is positioned in.
func (r *Reader) CurrentDir() []byte {
	return r.currentDir
}

// readLine reads one full line including its newline. A final line
// without a newline, or end of input where a line is required, is a
// format error: the grammar terminates every line, footer included.
func (r *Reader) readLine() ([]byte, error) {
	raw, err := r.source.ReadBytes('\n')
	r.line++
	if err == io.EOF {
		if len(raw) == 0 {
			return nil, formatErrorf(r.line, "unexpected end of file before footer")
		}
		return nil, formatErrorf(r.line, "line does not end with a newline")
	}
	if err != nil {
		return nil, fmt.Errorf("reading signature: %w", err)
	}
	return raw, nil
}

// parseDirLine handles a directory line: the escaped absolute path and
// nothing else.
func (r *Reader) parseDirLine(content []byte) (Entry, error) {
	if bytes.IndexByte(content, ' ') >= 0 {
		return nil, formatErrorf(r.line, "directory line contains a space")
	}
	path := UnescapeName(content)
	if !r.sawDir {
		if !bytes.Equal(path, []byte("/")) {
			return nil, formatErrorf(r.line, "first directory must be /, got %q", path)
		}
	} else if bytes.Compare(path, r.currentDir) <= 0 {
		return nil, formatErrorf(r.line, "directory %q out of order after %q", path, r.currentDir)
	}
	r.sawDir = true
	r.currentDir = path
	return Dir{DirPath: path}, nil
}

// parseEntryLine handles a file or symlink line: two spaces, the
// escaped name, the type token, and the type-specific fields, all
// separated by single spaces.
func (r *Reader) parseEntryLine(content []byte) (Entry, error) {
	if !r.sawDir {
		return nil, formatErrorf(r.line, "entry before any directory line")
	}
	if len(content) < 2 || content[1] != ' ' {
		return nil, formatErrorf(r.line, "malformed entry indentation")
	}
	rest := content[2:]

	name, rest, err := r.nextField(rest)
	if err != nil {
		return nil, err
	}
	kind, rest, err := r.nextField(rest)
	if err != nil {
		return nil, err
	}
	path := JoinPath(r.currentDir, UnescapeName(name))

	switch string(kind) {
	case "f", "x":
		return r.parseFileFields(path, string(kind) == "x", rest)
	case "s":
		target, rest, err := r.nextField(rest)
		if err != nil {
			return nil, err
		}
		if len(rest) != 0 {
			return nil, formatErrorf(r.line, "trailing data after symlink target: %q", rest)
		}
		return Symlink{LinkPath: path, Target: UnescapeName(target)}, nil
	default:
		return nil, formatErrorf(r.line, "unknown entry type %q", kind)
	}
}

// parseFileFields parses the size and the exact block hash count the
// size dictates.
func (r *Reader) parseFileFields(path []byte, executable bool, rest []byte) (Entry, error) {
	sizeField, rest, err := r.nextField(rest)
	if err != nil {
		return nil, err
	}
	size, err := parseUint(sizeField)
	if err != nil {
		return nil, formatErrorf(r.line, "invalid file size %q", sizeField)
	}

	want := BlockCount(size, r.header.BlockSize)
	var hashes Hashes
	for i := 0; i < want; i++ {
		if len(rest) == 0 {
			return nil, formatErrorf(r.line, "expected %d block hashes, found %d", want, i)
		}
		var hexDigest []byte
		hexDigest, rest, err = r.nextField(rest)
		if err != nil {
			return nil, err
		}
		if len(hexDigest) != DigestSize*2 {
			return nil, formatErrorf(r.line, "block hash has length %d, want %d", len(hexDigest), DigestSize*2)
		}
		var digest Digest
		if _, err := hex.Decode(digest[:], hexDigest); err != nil {
			return nil, formatErrorf(r.line, "invalid block hash %q", hexDigest)
		}
		hashes.Append(digest)
	}
	if len(rest) != 0 {
		return nil, formatErrorf(r.line, "trailing data after file entry: %q", rest)
	}
	return File{FilePath: path, Executable: executable, Size: size, Hashes: hashes}, nil
}

// finishAtFooter parses the footer line, checks nothing follows it,
// and compares the recorded digest with the computed one. The footer
// line is the only body line excluded from the footer hash.
func (r *Reader) finishAtFooter(content []byte) error {
	if len(content) != DigestSize*2 {
		return formatErrorf(r.line, "malformed line: not a directory, entry, or footer")
	}
	if _, err := hex.Decode(r.footerRead[:], content); err != nil {
		return formatErrorf(r.line, "invalid footer digest %q", content)
	}
	var probe [1]byte
	switch _, err := io.ReadFull(r.source, probe[:]); err {
	case io.EOF:
	case nil:
		return formatErrorf(r.line+1, "data after the footer line")
	default:
		return fmt.Errorf("reading signature: %w", err)
	}
	r.done = true
	r.footerComputed = digestOf(r.hasher)
	if r.footerComputed != r.footerRead {
		return fmt.Errorf("%w: footer %s, content hashes to %s",
			ErrFooterMismatch,
			FormatDigest(r.footerRead), FormatDigest(r.footerComputed))
	}
	return io.EOF
}

// nextField splits off the next space-separated field. Fields are
// separated by exactly one space; an empty field means the line had
// consecutive spaces, which the grammar forbids.
func (r *Reader) nextField(data []byte) (field, rest []byte, err error) {
	if len(data) == 0 {
		return nil, nil, formatErrorf(r.line, "line is missing a field")
	}
	if data[0] == ' ' {
		return nil, nil, formatErrorf(r.line, "line has consecutive spaces")
	}
	if i := bytes.IndexByte(data, ' '); i >= 0 {
		return data[:i], data[i+1:], nil
	}
	return data, nil, nil
}

// parseUint parses a decimal byte string without the stdlib's sign and
// underscore allowances.
func parseUint(field []byte) (uint64, error) {
	if len(field) == 0 {
		return 0, fmt.Errorf("empty number")
	}
	var value uint64
	for _, b := range field {
		if b < '0' || b > '9' {
			return 0, fmt.Errorf("non-digit byte %q", b)
		}
		digit := uint64(b - '0')
		if value > (^uint64(0)-digit)/10 {
			return 0, fmt.Errorf("number overflows uint64")
		}
		value = value*10 + digit
	}
	return value, nil
}
