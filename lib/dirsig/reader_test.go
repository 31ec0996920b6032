// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package dirsig

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
)

// buildSignature emits a small two-directory signature and returns
// its bytes.
func buildSignature(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := NewWriter(&buf, SHA512_256, 32768)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.BeginDir([]byte("/")); err != nil {
		t.Fatal(err)
	}
	err = w.AddFile([]byte("hello.txt"), false, 6,
		NewHashes([]Digest{SHA512_256.Sum([]byte("hello\n"))}))
	if err != nil {
		t.Fatal(err)
	}
	if err := w.AddFile([]byte("empty"), false, 0, Hashes{}); err != nil {
		t.Fatal(err)
	}
	if err := w.AddSymlink([]byte("link"), []byte("../file1.txt")); err != nil {
		t.Fatal(err)
	}
	if err := w.BeginDir([]byte("/sub")); err != nil {
		t.Fatal(err)
	}
	err = w.AddFile([]byte("script.sh"), true, 10,
		NewHashes([]Digest{SHA512_256.Sum([]byte("#!/bin/sh\n"))}))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Finish(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func readAll(r *Reader) ([]Entry, error) {
	var entries []Entry
	for {
		entry, err := r.Next()
		if err == io.EOF {
			return entries, nil
		}
		if err != nil {
			return entries, err
		}
		entries = append(entries, entry)
	}
}

func TestReaderRoundTrip(t *testing.T) {
	signature := buildSignature(t)
	reader, err := NewReader(bytes.NewReader(signature))
	if err != nil {
		t.Fatal(err)
	}

	header := reader.Header()
	if header.Version != "v1" || header.Algorithm != SHA512_256 || header.BlockSize != 32768 {
		t.Fatalf("unexpected header: %+v", header)
	}

	entries, err := readAll(reader)
	if err != nil {
		t.Fatal(err)
	}

	wantPaths := []string{"/", "/hello.txt", "/empty", "/link", "/sub", "/sub/script.sh"}
	if len(entries) != len(wantPaths) {
		t.Fatalf("got %d entries, want %d", len(entries), len(wantPaths))
	}
	for i, want := range wantPaths {
		if string(entries[i].Path()) != want {
			t.Errorf("entry %d path %q, want %q", i, entries[i].Path(), want)
		}
	}

	file, ok := entries[1].(File)
	if !ok || file.Size != 6 || file.Executable || file.Hashes.Len() != 1 {
		t.Errorf("unexpected file entry: %#v", entries[1])
	}
	if file.Hashes.At(0) != SHA512_256.Sum([]byte("hello\n")) {
		t.Error("file block hash did not round-trip")
	}
	if empty, ok := entries[2].(File); !ok || empty.Size != 0 || empty.Hashes.Len() != 0 {
		t.Errorf("unexpected empty file entry: %#v", entries[2])
	}
	if link, ok := entries[3].(Symlink); !ok || string(link.Target) != "../file1.txt" {
		t.Errorf("unexpected symlink entry: %#v", entries[3])
	}
	if script, ok := entries[5].(File); !ok || !script.Executable || script.Size != 10 {
		t.Errorf("unexpected executable entry: %#v", entries[5])
	}

	if reader.FooterDigest() != reader.ComputedDigest() {
		t.Error("verified reader reports differing digests")
	}
}

func TestReaderFooterMismatch(t *testing.T) {
	signature := buildSignature(t)
	// Corrupt one hex digit of the footer line.
	corrupted := make([]byte, len(signature))
	copy(corrupted, signature)
	i := len(corrupted) - 2
	if corrupted[i] == '0' {
		corrupted[i] = '1'
	} else {
		corrupted[i] = '0'
	}

	reader, err := NewReader(bytes.NewReader(corrupted))
	if err != nil {
		t.Fatal(err)
	}
	entries, err := readAll(reader)
	if !errors.Is(err, ErrFooterMismatch) {
		t.Fatalf("got error %v, want ErrFooterMismatch", err)
	}
	// The body parsed fine; its entries are still usable.
	if len(entries) != 6 {
		t.Errorf("streamed %d entries before the bad footer, want 6", len(entries))
	}
}

func TestReaderBodyCorruption(t *testing.T) {
	signature := buildSignature(t)
	// Flip the executable bit of script.sh: still well-formed, but
	// the body no longer hashes to the footer.
	tampered := bytes.Replace(signature, []byte("  script.sh x 10"), []byte("  script.sh f 10"), 1)

	reader, err := NewReader(bytes.NewReader(tampered))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := readAll(reader); !errors.Is(err, ErrFooterMismatch) {
		t.Fatalf("got error %v, want ErrFooterMismatch", err)
	}
}

func TestReaderHeaderErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty input", ""},
		{"bad magic", "SIGNATURE.v1 sha512/256 block_size=32768\n"},
		{"missing version", "DIRSIGNATURE sha512/256 block_size=32768\n"},
		{"missing algorithm", "DIRSIGNATURE.v1\n"},
		{"unknown algorithm", "DIRSIGNATURE.v1 sha512/25 block_size=32768\n"},
		{"missing block size", "DIRSIGNATURE.v1 sha512/256\n"},
		{"wrong first field", "DIRSIGNATURE.v1 sha512/256 size=2\n"},
		{"bad block size", "DIRSIGNATURE.v1 sha512/256 block_size=dead\n"},
		{"zero block size", "DIRSIGNATURE.v1 sha512/256 block_size=0\n"},
		{"bare extra field", "DIRSIGNATURE.v1 sha512/256 block_size=32768 note\n"},
		{"non-ascii header", "DIRSIGNATURE.v1 sha512/256 block_size=32768 k=\xff\n"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := NewReader(strings.NewReader(test.input))
			if err == nil {
				t.Fatal("NewReader succeeded on malformed header")
			}
			var formatErr *FormatError
			if !errors.As(err, &formatErr) {
				t.Errorf("error %v is not a FormatError", err)
			}
		})
	}
}

func TestReaderUnsupportedVersion(t *testing.T) {
	_, err := NewReader(strings.NewReader("DIRSIGNATURE.v2 sha512/256 block_size=32768\n"))
	if !errors.Is(err, ErrUnsupportedVersion) {
		t.Fatalf("got error %v, want ErrUnsupportedVersion", err)
	}
}

func TestReaderUnknownHeaderFieldsFeedFooter(t *testing.T) {
	// An extra header field unknown to the parser still participates
	// in the footer hash: build the body by hand and hash it the way
	// the writer would.
	body := "DIRSIGNATURE.v1 sha512/256 block_size=32768 future_key=future_value\n/\n"
	footer := FormatDigest(SHA512_256.Sum([]byte(body)))
	reader, err := NewReader(strings.NewReader(body + footer + "\n"))
	if err != nil {
		t.Fatal(err)
	}
	header := reader.Header()
	if len(header.Extra) != 1 || header.Extra[0].Key != "future_key" || header.Extra[0].Value != "future_value" {
		t.Fatalf("extra fields not preserved: %+v", header.Extra)
	}
	if _, err := readAll(reader); err != nil {
		t.Fatalf("signature with unknown header field failed verification: %v", err)
	}
}

func TestReaderBodyErrors(t *testing.T) {
	const header = "DIRSIGNATURE.v1 sha512/256 block_size=32768\n"
	digest64 := strings.Repeat("ab", 32)

	tests := []struct {
		name string
		body string
	}{
		{"entry before directory", header + "  stray f 0\n"},
		{"first directory not root", header + "/sub\n"},
		{"directory order", header + "/\n/b\n/a\n"},
		{"duplicate directory", header + "/\n/a\n/a\n"},
		{"directory with space", header + "/\n/a b\n"},
		{"single space indent", header + "/\n file f 0\n"},
		{"triple space indent", header + "/\n   file f 0\n"},
		{"unknown entry type", header + "/\n  test l ../dest\n"},
		{"double space in entry", header + "/\n  test s  ../dest\n"},
		{"trailing data after symlink", header + "/\n  test s ../dest tail\n"},
		{"bad size", header + "/\n  test f x00\n"},
		{"negative size", header + "/\n  test f -1\n"},
		{"missing hash", header + "/\n  test f 5\n"},
		{"too many hashes", header + "/\n  test f 5 " + digest64 + " " + digest64 + "\n"},
		{"short hash", header + "/\n  test f 5 abcd\n"},
		{"non-hex hash", header + "/\n  test f 5 " + strings.Repeat("xy", 32) + "\n"},
		{"short footer line", header + "/\nabcdef\n"},
		{"line without newline", header + "/"},
		{"missing footer", header + "/\n"},
		{"data after footer", header + "/\n" + digest64 + "\nmore\n"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			reader, err := NewReader(strings.NewReader(test.body))
			if err != nil {
				t.Fatalf("header rejected: %v", err)
			}
			_, err = readAll(reader)
			if err == nil {
				t.Fatal("malformed body parsed without error")
			}
			var formatErr *FormatError
			if !errors.As(err, &formatErr) {
				t.Errorf("error %v is not a FormatError", err)
			}
			if formatErr.Line < 2 {
				t.Errorf("format error line %d, want a body line", formatErr.Line)
			}
		})
	}
}

func TestReaderEmptyTree(t *testing.T) {
	body := "DIRSIGNATURE.v1 sha512/256 block_size=32768\n/\n"
	input := body + FormatDigest(SHA512_256.Sum([]byte(body))) + "\n"

	reader, err := NewReader(strings.NewReader(input))
	if err != nil {
		t.Fatal(err)
	}
	entries, err := readAll(reader)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want the root directory only", len(entries))
	}
	if _, ok := entries[0].(Dir); !ok || string(entries[0].Path()) != "/" {
		t.Errorf("unexpected entry: %#v", entries[0])
	}
}

func TestReaderEscapedNames(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf, SHA512_256, 32768)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.BeginDir([]byte("/")); err != nil {
		t.Fatal(err)
	}
	if err := w.AddFile([]byte("a b\tc"), false, 0, Hashes{}); err != nil {
		t.Fatal(err)
	}
	if err := w.BeginDir([]byte("/dir with\x07bell")); err != nil {
		t.Fatal(err)
	}
	if _, err := w.Finish(); err != nil {
		t.Fatal(err)
	}

	reader, err := NewReader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatal(err)
	}
	entries, err := readAll(reader)
	if err != nil {
		t.Fatal(err)
	}
	if string(entries[1].Path()) != "/a b\tc" {
		t.Errorf("escaped file name did not round-trip: %q", entries[1].Path())
	}
	if string(entries[2].Path()) != "/dir with\x07bell" {
		t.Errorf("escaped directory did not round-trip: %q", entries[2].Path())
	}
}
