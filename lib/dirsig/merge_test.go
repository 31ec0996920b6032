// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package dirsig

import (
	"bytes"
	"io"
	"testing"
)

// emitFixture emits a signature from (path, content) pairs. Files
// only; dirs is the ordered directory list with its files.
type fixtureDir struct {
	path  string
	files []fixtureFile
}

type fixtureFile struct {
	name    string
	content string
}

func emitFixture(t *testing.T, dirs []fixtureDir) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := NewWriter(&buf, SHA512_256, 32768)
	if err != nil {
		t.Fatal(err)
	}
	for _, dir := range dirs {
		if err := w.BeginDir([]byte(dir.path)); err != nil {
			t.Fatal(err)
		}
		for _, file := range dir.files {
			err := w.AddFile([]byte(file.name), false, uint64(len(file.content)),
				NewHashes([]Digest{SHA512_256.Sum([]byte(file.content))}))
			if err != nil {
				t.Fatal(err)
			}
		}
	}
	if _, err := w.Finish(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func newMerged(t *testing.T, signatures ...[]byte) *MergedReaders {
	t.Helper()
	readers := make([]*Reader, 0, len(signatures))
	for _, signature := range signatures {
		reader, err := NewReader(bytes.NewReader(signature))
		if err != nil {
			t.Fatal(err)
		}
		readers = append(readers, reader)
	}
	merged, err := NewMergedReaders(readers...)
	if err != nil {
		t.Fatal(err)
	}
	return merged
}

func TestMergedReadersLockstep(t *testing.T) {
	left := emitFixture(t, []fixtureDir{
		{path: "/", files: []fixtureFile{{"common.txt", "same\n"}, {"only-left", "l\n"}}},
		{path: "/shared", files: []fixtureFile{{"file", "x\n"}}},
	})
	right := emitFixture(t, []fixtureDir{
		{path: "/", files: []fixtureFile{{"common.txt", "same\n"}, {"only-right", "r\n"}}},
		{path: "/shared", files: []fixtureFile{{"file", "y\n"}}},
	})

	merged := newMerged(t, left, right)

	type step struct {
		path    string
		sources []int
	}
	want := []step{
		{"/", []int{0, 1}},
		{"/common.txt", []int{0, 1}},
		{"/only-left", []int{0}},
		{"/only-right", []int{1}},
		{"/shared", []int{0, 1}},
		{"/shared/file", []int{0, 1}},
	}
	for _, expected := range want {
		sightings, err := merged.Next()
		if err != nil {
			t.Fatalf("Next at %s: %v", expected.path, err)
		}
		if len(sightings) != len(expected.sources) {
			t.Fatalf("%s: %d sightings, want %d", expected.path, len(sightings), len(expected.sources))
		}
		for i, sighting := range sightings {
			if string(sighting.Entry.Path()) != expected.path {
				t.Errorf("sighting path %q, want %q", sighting.Entry.Path(), expected.path)
			}
			if sighting.Source != expected.sources[i] {
				t.Errorf("%s: source %d, want %d", expected.path, sighting.Source, expected.sources[i])
			}
		}
	}
	if _, err := merged.Next(); err != io.EOF {
		t.Fatalf("merge did not end with io.EOF: %v", err)
	}

	// The differing /shared/file content shows as differing hashes.
	// (Checked on a fresh merge since the first one is exhausted.)
	merged = newMerged(t, left, right)
	for {
		sightings, err := merged.Next()
		if err != nil {
			t.Fatal(err)
		}
		if string(sightings[0].Entry.Path()) != "/shared/file" {
			continue
		}
		a := sightings[0].Entry.(File)
		b := sightings[1].Entry.(File)
		if a.Hashes.Equal(b.Hashes) {
			t.Error("different contents report equal hashes")
		}
		break
	}
}

func TestMergedReadersAdvance(t *testing.T) {
	left := emitFixture(t, []fixtureDir{
		{path: "/", files: []fixtureFile{{"a", "1\n"}, {"m", "2\n"}, {"z", "3\n"}}},
	})
	right := emitFixture(t, []fixtureDir{
		{path: "/", files: []fixtureFile{{"m", "2\n"}}},
	})

	merged := newMerged(t, left, right)
	sightings, err := merged.Advance(fileKey([]byte("/m")))
	if err != nil {
		t.Fatal(err)
	}
	if len(sightings) != 2 {
		t.Fatalf("Advance(/m) found %d sightings, want 2", len(sightings))
	}

	// Advancing to a path not present returns nothing but leaves
	// later entries reachable.
	sightings, err = merged.Advance(fileKey([]byte("/q")))
	if err != nil {
		t.Fatal(err)
	}
	if len(sightings) != 0 {
		t.Fatalf("Advance(/q) found %d sightings, want 0", len(sightings))
	}

	sightings, err = merged.Next()
	if err != nil {
		t.Fatal(err)
	}
	if len(sightings) != 1 || string(sightings[0].Entry.Path()) != "/z" {
		t.Fatalf("after Advance, Next = %#v, want /z from input 0", sightings)
	}
}

func TestMergedReadersHeaderMismatch(t *testing.T) {
	var small bytes.Buffer
	w, err := NewWriter(&small, SHA512_256, 4096)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.BeginDir([]byte("/")); err != nil {
		t.Fatal(err)
	}
	if _, err := w.Finish(); err != nil {
		t.Fatal(err)
	}
	normal := emitFixture(t, []fixtureDir{{path: "/"}})

	readerSmall, err := NewReader(bytes.NewReader(small.Bytes()))
	if err != nil {
		t.Fatal(err)
	}
	readerNormal, err := NewReader(bytes.NewReader(normal))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := NewMergedReaders(readerSmall, readerNormal); err == nil {
		t.Error("merge accepted inputs with different block sizes")
	}
}
