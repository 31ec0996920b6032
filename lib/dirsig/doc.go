// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package dirsig implements the v1 directory signature format: a
// deterministic, streamable text index of a filesystem subtree,
// terminated by a hash of its own content.
//
// A signature file looks like this:
//
//	DIRSIGNATURE.v1 sha512/256 block_size=32768
//	/
//	  hello.txt f 6 a79eef66019bfb9a41f798f2cff2d2d36ed294cc3f96bf53bbfc5192ebe60192
//	  test.txt f 0
//	/subdir
//	  .hidden f 7 6d7f5f9804ee4dbc1ff7e12c7665387e0119e8ea629996c52d38b75c12ad0acf
//	  link s ../hello.txt
//	  script.sh x 10 0119865c765e02554f6fc5a06fa76aa92c590c09225775c092144079f9964899
//	df60f5f2eea46b155e0939b9c0f74cfac38669ddac3550177139262b06c54af0
//
// Directory lines carry the absolute path of a directory relative to
// the scanned root and are globally sorted by unsigned byte order, so
// a directory's position can be found by binary search without reading
// the whole file. Entry lines (two-space indent) list the directory's
// files and symlinks in byte order of their names. Regular files carry
// one content hash per block_size bytes; the last block covers only
// the remaining bytes. The final line is the hex digest, under the
// header's algorithm, of every preceding byte including newlines —
// the index authenticates itself.
//
// [Writer] emits the format and maintains the running footer hash.
// [Reader] parses it as a stream, re-computing the footer for
// verification. [Navigator] provides random access by path over a
// seekable source. [MergedReaders] iterates several signatures in
// lockstep for cross-image comparison.
//
// The package does no filesystem traversal itself; see lib/scan for
// producing a signature from a directory tree.
package dirsig
