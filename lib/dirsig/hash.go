// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package dirsig

import (
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"

	"github.com/zeebo/blake3"
	"golang.org/x/crypto/blake2b"
)

// DigestSize is the size in bytes of every digest used by the format.
// All supported algorithms produce 256-bit output.
const DigestSize = 32

// Digest is a 32-byte hash digest: one block hash, or the footer hash
// of a whole signature file.
type Digest [DigestSize]byte

// Algorithm names a supported hash algorithm. The string value is the
// exact token written in the signature header.
type Algorithm string

const (
	// SHA512_256 is SHA-512/256 (FIPS 180-4 truncated SHA-512). The
	// default and the only algorithm every implementation must carry.
	SHA512_256 Algorithm = "sha512/256"

	// Blake2b256 is BLAKE2b with 256-bit output.
	Blake2b256 Algorithm = "blake2b/256"

	// Blake3256 is BLAKE3, truncated to its default 256-bit output.
	Blake3256 Algorithm = "blake3/256"
)

// ParseAlgorithm maps a header token to an Algorithm. Unknown tokens
// are rejected here, before any scanning or parsing work happens.
func ParseAlgorithm(name string) (Algorithm, error) {
	switch Algorithm(name) {
	case SHA512_256, Blake2b256, Blake3256:
		return Algorithm(name), nil
	}
	return "", fmt.Errorf("unsupported hash algorithm: %q", name)
}

// String returns the header token for the algorithm.
func (a Algorithm) String() string {
	return string(a)
}

// New returns a fresh streaming hasher for the algorithm. All three
// hashers produce DigestSize-byte sums.
//
// Panics on an unknown algorithm: values are validated at the parse
// boundary, so an invalid Algorithm here is a programming error.
func (a Algorithm) New() hash.Hash {
	switch a {
	case SHA512_256:
		return sha512.New512_256()
	case Blake2b256:
		hasher, err := blake2b.New256(nil)
		if err != nil {
			// New256 only fails for bad key lengths; we pass no key.
			panic("dirsig: BLAKE2b initialization failed: " + err.Error())
		}
		return hasher
	case Blake3256:
		return blake3.New()
	}
	panic("dirsig: unknown hash algorithm: " + string(a))
}

// Sum computes the digest of data in one call.
func (a Algorithm) Sum(data []byte) Digest {
	hasher := a.New()
	hasher.Write(data)
	return digestOf(hasher)
}

// digestOf finalizes a hasher into a Digest.
func digestOf(hasher hash.Hash) Digest {
	var digest Digest
	copy(digest[:], hasher.Sum(nil))
	return digest
}

// FormatDigest returns the lowercase hex encoding of a digest. This is
// the canonical form used on entry lines, the footer, and CLI output.
func FormatDigest(digest Digest) string {
	return hex.EncodeToString(digest[:])
}

// ParseDigest parses a 64-character hex string into a Digest.
func ParseDigest(hexString string) (Digest, error) {
	var digest Digest
	decoded, err := hex.DecodeString(hexString)
	if err != nil {
		return digest, fmt.Errorf("parsing digest: %w", err)
	}
	if len(decoded) != DigestSize {
		return digest, fmt.Errorf("digest is %d bytes, want %d", len(decoded), DigestSize)
	}
	copy(digest[:], decoded)
	return digest, nil
}
