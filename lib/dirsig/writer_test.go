// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package dirsig

import (
	"bytes"
	"strings"
	"testing"
)

func mustDigest(t *testing.T, hexString string) Digest {
	t.Helper()
	digest, err := ParseDigest(hexString)
	if err != nil {
		t.Fatal(err)
	}
	return digest
}

// Golden output: a known signature whose footer was computed by an
// independent implementation of the format.
func TestWriterGolden(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf, SHA512_256, 32768)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.BeginDir([]byte("/")); err != nil {
		t.Fatal(err)
	}
	err = w.AddFile([]byte("hello.txt"), false, 6, NewHashes([]Digest{
		mustDigest(t, "a79eef66019bfb9a41f798f2cff2d2d36ed294cc3f96bf53bbfc5192ebe60192"),
	}))
	if err != nil {
		t.Fatal(err)
	}
	if err := w.AddFile([]byte("test.txt"), false, 0, Hashes{}); err != nil {
		t.Fatal(err)
	}
	if err := w.BeginDir([]byte("/subdir")); err != nil {
		t.Fatal(err)
	}
	err = w.AddFile([]byte(".hidden"), false, 7, NewHashes([]Digest{
		mustDigest(t, "6d7f5f9804ee4dbc1ff7e12c7665387e0119e8ea629996c52d38b75c12ad0acf"),
	}))
	if err != nil {
		t.Fatal(err)
	}
	err = w.AddFile([]byte("file.txt"), false, 10, NewHashes([]Digest{
		mustDigest(t, "0119865c765e02554f6fc5a06fa76aa92c590c09225775c092144079f9964899"),
	}))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Finish(); err != nil {
		t.Fatal(err)
	}

	want := `DIRSIGNATURE.v1 sha512/256 block_size=32768
/
  hello.txt f 6 a79eef66019bfb9a41f798f2cff2d2d36ed294cc3f96bf53bbfc5192ebe60192
  test.txt f 0
/subdir
  .hidden f 7 6d7f5f9804ee4dbc1ff7e12c7665387e0119e8ea629996c52d38b75c12ad0acf
  file.txt f 10 0119865c765e02554f6fc5a06fa76aa92c590c09225775c092144079f9964899
552ca5730ee95727e890a2155c88609d244624034ff70de264cf88220d11d6df
`
	if buf.String() != want {
		t.Errorf("signature mismatch:\ngot:\n%s\nwant:\n%s", buf.String(), want)
	}
}

func TestWriterFooterSelfAuthenticates(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf, Blake2b256, 4096, HeaderField{Key: "origin", Value: "unit-test"})
	if err != nil {
		t.Fatal(err)
	}
	if err := w.BeginDir([]byte("/")); err != nil {
		t.Fatal(err)
	}
	if err := w.AddSymlink([]byte("link"), []byte("../target")); err != nil {
		t.Fatal(err)
	}
	digest, err := w.Finish()
	if err != nil {
		t.Fatal(err)
	}

	output := buf.String()
	lines := strings.SplitAfter(output, "\n")
	body := strings.Join(lines[:len(lines)-2], "")
	footerLine := lines[len(lines)-2]

	if got := Blake2b256.Sum([]byte(body)); got != digest {
		t.Errorf("footer digest %s does not match body hash %s",
			FormatDigest(digest), FormatDigest(got))
	}
	if footerLine != FormatDigest(digest)+"\n" {
		t.Errorf("footer line %q does not render the returned digest", footerLine)
	}
	if !strings.HasPrefix(output, "DIRSIGNATURE.v1 blake2b/256 block_size=4096 origin=unit-test\n") {
		t.Errorf("unexpected header: %q", lines[0])
	}
}

func TestWriterEscapesNames(t *testing.T) {
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
	if err := w.AddSymlink([]byte("l\x01nk"), []byte("dest\x80")); err != nil {
		t.Fatal(err)
	}
	if _, err := w.Finish(); err != nil {
		t.Fatal(err)
	}

	output := buf.String()
	if !strings.Contains(output, "  a\\x20b\\x09c f 0\n") {
		t.Errorf("file name not escaped:\n%s", output)
	}
	if !strings.Contains(output, "  l\\x01nk s dest\\x80\n") {
		t.Errorf("symlink not escaped:\n%s", output)
	}
}

func TestWriterRejectsWrongHashCount(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf, SHA512_256, 4)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.BeginDir([]byte("/")); err != nil {
		t.Fatal(err)
	}
	// 10 bytes at block size 4 needs 3 hashes, not 1.
	err = w.AddFile([]byte("short"), false, 10, NewHashes([]Digest{SHA512_256.Sum(nil)}))
	if err == nil {
		t.Fatal("AddFile accepted a wrong block hash count")
	}
}

func TestWriterConfigErrors(t *testing.T) {
	var buf bytes.Buffer
	if _, err := NewWriter(&buf, Algorithm("md5"), 32768); err == nil {
		t.Error("NewWriter accepted an unknown algorithm")
	}
	if _, err := NewWriter(&buf, SHA512_256, 0); err == nil {
		t.Error("NewWriter accepted a zero block size")
	}
}

func TestWriterFinishTwice(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf, SHA512_256, 32768)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.BeginDir([]byte("/")); err != nil {
		t.Fatal(err)
	}
	if _, err := w.Finish(); err != nil {
		t.Fatal(err)
	}
	if _, err := w.Finish(); err == nil {
		t.Error("second Finish succeeded")
	}
	if err := w.BeginDir([]byte("/late")); err == nil {
		t.Error("BeginDir after Finish succeeded")
	}
}

func TestBlockCount(t *testing.T) {
	tests := []struct {
		size, blockSize uint64
		want            int
	}{
		{0, 32768, 0},
		{1, 32768, 1},
		{32767, 32768, 1},
		{32768, 32768, 1},
		{32769, 32768, 2},
		{81920, 32768, 3},
	}
	for _, test := range tests {
		if got := BlockCount(test.size, test.blockSize); got != test.want {
			t.Errorf("BlockCount(%d, %d) = %d, want %d",
				test.size, test.blockSize, got, test.want)
		}
	}
}
