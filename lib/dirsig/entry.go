// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package dirsig

import (
	"bytes"
	"fmt"
	"io"
)

// Entry is one parsed line of a signature file body: a directory, a
// regular file, or a symlink. Paths are raw (unescaped) bytes because
// filenames are arbitrary byte strings on Linux.
type Entry interface {
	// Path returns the absolute path of the entry relative to the
	// scanned root, beginning with "/".
	Path() []byte

	// Key returns the entry's position key in the global signature
	// file order.
	Key() EntryKey

	entry()
}

// Dir is a directory line.
type Dir struct {
	// DirPath is the absolute directory path ("/" for the root).
	DirPath []byte
}

func (d Dir) Path() []byte  { return d.DirPath }
func (d Dir) Key() EntryKey { return EntryKey{Dir: d.DirPath} }
func (Dir) entry()          {}

// File is a regular file entry.
type File struct {
	// FilePath is the absolute path: the containing directory joined
	// with the file name.
	FilePath []byte

	// Executable reports whether any owner-execute bit was set.
	Executable bool

	// Size is the file size in bytes.
	Size uint64

	// Hashes holds one digest per block of the file's content.
	Hashes Hashes
}

func (f File) Path() []byte  { return f.FilePath }
func (f File) Key() EntryKey { return fileKey(f.FilePath) }
func (File) entry()          {}

// Symlink is a symbolic link entry. Links are recorded by target and
// never followed.
type Symlink struct {
	// LinkPath is the absolute path of the link itself.
	LinkPath []byte

	// Target is the raw link destination.
	Target []byte
}

func (s Symlink) Path() []byte  { return s.LinkPath }
func (s Symlink) Key() EntryKey { return fileKey(s.LinkPath) }
func (Symlink) entry()          {}

// EntryKey is the position of an entry in the global order of a
// signature file. Directory lines are sorted by path across the whole
// file; file and symlink lines live inside their directory's block,
// sorted by name. A key with an empty Name addresses the directory
// line itself; a key with a Name addresses an entry inside Dir.
type EntryKey struct {
	Dir  []byte
	Name []byte
}

// fileKey splits an absolute file path into its directory and name
// parts. "/a/b/c" becomes {Dir: "/a/b", Name: "c"}; "/c" becomes
// {Dir: "/", Name: "c"}.
func fileKey(path []byte) EntryKey {
	slash := bytes.LastIndexByte(path, '/')
	if slash <= 0 {
		return EntryKey{Dir: []byte("/"), Name: path[slash+1:]}
	}
	return EntryKey{Dir: path[:slash], Name: path[slash+1:]}
}

// JoinPath joins a directory path and an entry name into an absolute
// path. The root directory "/" joins without doubling the separator.
func JoinPath(dir, name []byte) []byte {
	joined := make([]byte, 0, len(dir)+1+len(name))
	joined = append(joined, dir...)
	if len(dir) != 1 || dir[0] != '/' {
		joined = append(joined, '/')
	}
	return append(joined, name...)
}

// Compare orders keys the way their lines appear in a signature file.
// The entries of a directory come directly after its directory line
// and before any later directory line, so a directory key sorts
// before its own entries and entry keys compare (dir, name)
// lexicographically under unsigned byte order.
func (k EntryKey) Compare(other EntryKey) int {
	if c := bytes.Compare(k.Dir, other.Dir); c != 0 {
		return c
	}
	switch {
	case len(k.Name) == 0 && len(other.Name) == 0:
		return 0
	case len(k.Name) == 0:
		return -1
	case len(other.Name) == 0:
		return 1
	}
	return bytes.Compare(k.Name, other.Name)
}

// Path returns the absolute path the key addresses.
func (k EntryKey) Path() []byte {
	if len(k.Name) == 0 {
		return k.Dir
	}
	return JoinPath(k.Dir, k.Name)
}

// Hashes is the packed sequence of block digests of one file entry.
// The zero value is an empty sequence (a zero-byte file).
type Hashes struct {
	packed []byte
}

// NewHashes builds a Hashes from a digest slice.
func NewHashes(digests []Digest) Hashes {
	var h Hashes
	for _, d := range digests {
		h.Append(d)
	}
	return h
}

// Append adds one block digest.
func (h *Hashes) Append(digest Digest) {
	h.packed = append(h.packed, digest[:]...)
}

// Len returns the number of block digests.
func (h Hashes) Len() int {
	return len(h.packed) / DigestSize
}

// At returns the i-th block digest.
func (h Hashes) At(i int) Digest {
	var digest Digest
	copy(digest[:], h.packed[i*DigestSize:])
	return digest
}

// Equal reports whether two hash sequences are identical.
func (h Hashes) Equal(other Hashes) bool {
	return bytes.Equal(h.packed, other.packed)
}

// CheckReader re-hashes the stream block by block under the given
// algorithm and block size and reports whether it matches the recorded
// digests exactly: every block equal, and the stream ending where the
// hashes end.
func (h Hashes) CheckReader(r io.Reader, algo Algorithm, blockSize uint64) (bool, error) {
	if blockSize == 0 {
		return false, fmt.Errorf("check content: block size is zero")
	}
	for i := 0; i < h.Len(); i++ {
		hasher := algo.New()
		n, err := io.Copy(hasher, io.LimitReader(r, int64(blockSize)))
		if err != nil {
			return false, err
		}
		if n == 0 {
			// Stream is shorter than the recorded hashes.
			return false, nil
		}
		if digestOf(hasher) != h.At(i) {
			return false, nil
		}
	}
	// The stream must end exactly where the hashes do.
	var probe [1]byte
	n, err := r.Read(probe[:])
	if n != 0 {
		return false, nil
	}
	if err != nil && err != io.EOF {
		return false, err
	}
	return true, nil
}
