// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package dirsig

import (
	"fmt"
	"io"
)

// Sighting is one occurrence of a path in one of the merged
// signatures.
type Sighting struct {
	// Source is the index of the reader the entry came from, in the
	// order the readers were passed to NewMergedReaders.
	Source int

	// Entry is the parsed entry.
	Entry Entry
}

// MergedReaders iterates several signature files in lockstep. Because
// every signature lists entries in the same global order, the merge is
// a streaming k-way walk: each step yields all sightings of the
// smallest unvisited path, so differencing two images or deduplicating
// blocks across image generations never holds more than one entry per
// input in memory.
//
// All inputs must agree on algorithm and block size; comparing block
// hashes across signatures is meaningless otherwise.
type MergedReaders struct {
	readers []*Reader
	heads   []Entry // next unconsumed entry per reader, nil when exhausted
	primed  []bool
}

// NewMergedReaders checks that the readers' headers are compatible.
// The readers must be freshly created (no entries consumed).
func NewMergedReaders(readers ...*Reader) (*MergedReaders, error) {
	if len(readers) == 0 {
		return nil, fmt.Errorf("merge needs at least one signature")
	}
	first := readers[0].Header()
	for _, r := range readers[1:] {
		header := r.Header()
		if header.Algorithm != first.Algorithm {
			return nil, fmt.Errorf("hash algorithm mismatch: %s vs %s",
				first.Algorithm, header.Algorithm)
		}
		if header.BlockSize != first.BlockSize {
			return nil, fmt.Errorf("block size mismatch: %d vs %d",
				first.BlockSize, header.BlockSize)
		}
	}
	return &MergedReaders{
		readers: readers,
		heads:   make([]Entry, len(readers)),
		primed:  make([]bool, len(readers)),
	}, nil
}

// Header returns the shared header values (of the first input).
func (m *MergedReaders) Header() Header {
	return m.readers[0].Header()
}

// Next returns all sightings of the smallest unvisited path across
// the inputs, in input order. Returns io.EOF when every input is
// exhausted. A parse or corruption error in any input aborts the
// merge.
func (m *MergedReaders) Next() ([]Sighting, error) {
	var minKey EntryKey
	haveMin := false
	for i := range m.readers {
		head, err := m.peek(i)
		if err != nil {
			return nil, fmt.Errorf("signature %d: %w", i, err)
		}
		if head == nil {
			continue
		}
		if !haveMin || head.Key().Compare(minKey) < 0 {
			minKey = head.Key()
			haveMin = true
		}
	}
	if !haveMin {
		return nil, io.EOF
	}

	var sightings []Sighting
	for i := range m.readers {
		if m.heads[i] != nil && m.heads[i].Key().Compare(minKey) == 0 {
			sightings = append(sightings, Sighting{Source: i, Entry: m.heads[i]})
			m.heads[i] = nil
			m.primed[i] = false
		}
	}
	return sightings, nil
}

// Advance skips every input forward to the given key and returns the
// sightings found there, if any. Inputs already past the key are left
// untouched.
func (m *MergedReaders) Advance(key EntryKey) ([]Sighting, error) {
	var sightings []Sighting
	for i := range m.readers {
		for {
			head, err := m.peek(i)
			if err != nil {
				return nil, fmt.Errorf("signature %d: %w", i, err)
			}
			if head == nil {
				break
			}
			switch head.Key().Compare(key) {
			case -1:
				m.heads[i] = nil
				m.primed[i] = false
				continue
			case 0:
				sightings = append(sightings, Sighting{Source: i, Entry: head})
				m.heads[i] = nil
				m.primed[i] = false
			}
			break
		}
	}
	return sightings, nil
}

// peek fills and returns the head entry of input i, nil at EOF.
func (m *MergedReaders) peek(i int) (Entry, error) {
	if m.primed[i] {
		return m.heads[i], nil
	}
	entry, err := m.readers[i].Next()
	if err == io.EOF {
		m.heads[i] = nil
		m.primed[i] = true
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	m.heads[i] = entry
	m.primed[i] = true
	return entry, nil
}
