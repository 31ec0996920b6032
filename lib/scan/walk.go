// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package scan

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/bureau-foundation/dirsig/lib/dirsig"
)

// childKind classifies a non-directory child of a directory.
type childKind int

const (
	childFile childKind = iota
	childSymlink
)

// child is one file or symlink inside a planned directory.
type child struct {
	name       []byte
	kind       childKind
	executable bool
	target     []byte // symlink destination, verbatim
	fsPath     string
}

// directory is one directory of the plan with its direct non-directory
// children, sorted by name.
type directory struct {
	path     []byte // absolute path within the signature, "/" for the root
	fsPath   string
	children []child
}

// plan enumerates the tree rooted at root and returns its directories
// in the global signature order: every directory in the tree (not
// grouped under parents), sorted by absolute path under unsigned byte
// order, each with its children sorted by name.
//
// Classification uses lstat: symlinks are recorded by target and
// never followed, a file is executable when any owner-execute bit is
// set, and children that are neither directories, regular files, nor
// symlinks (sockets, fifos, devices) are skipped with a warning.
// Unreadable directories and vanished entries are fatal, reported
// with the offending path.
func plan(root string, logger *slog.Logger) ([]directory, error) {
	info, err := os.Lstat(root)
	if err != nil {
		return nil, fmt.Errorf("opening scan root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("scan root %s is not a directory", root)
	}

	pending := []directory{{path: []byte("/"), fsPath: root}}
	var planned []directory

	for len(pending) > 0 {
		dir := pending[0]
		pending = pending[1:]

		entries, err := os.ReadDir(dir.fsPath)
		if err != nil {
			return nil, fmt.Errorf("listing directory: %w", err)
		}
		for _, entry := range entries {
			name := entry.Name()
			fsPath := filepath.Join(dir.fsPath, name)
			info, err := entry.Info()
			if err != nil {
				return nil, fmt.Errorf("inspecting %s: %w", fsPath, err)
			}
			mode := info.Mode()

			switch {
			case mode.IsDir():
				pending = append(pending, directory{
					path:   dirsig.JoinPath(dir.path, []byte(name)),
					fsPath: fsPath,
				})
			case mode&os.ModeSymlink != 0:
				target, err := os.Readlink(fsPath)
				if err != nil {
					return nil, fmt.Errorf("reading symlink %s: %w", fsPath, err)
				}
				dir.children = append(dir.children, child{
					name:   []byte(name),
					kind:   childSymlink,
					target: []byte(target),
					fsPath: fsPath,
				})
			case mode.IsRegular():
				dir.children = append(dir.children, child{
					name:       []byte(name),
					kind:       childFile,
					executable: mode&0o100 != 0,
					fsPath:     fsPath,
				})
			default:
				logger.Warn("skipping entry with unsupported file type",
					"path", fsPath, "mode", mode.String())
			}
		}

		sort.Slice(dir.children, func(i, j int) bool {
			return bytes.Compare(dir.children[i].name, dir.children[j].name) < 0
		})
		planned = append(planned, dir)
	}

	// The format orders directories by absolute path across the whole
	// tree, not by traversal depth, so that a reader can binary-search
	// directory lines.
	sort.Slice(planned, func(i, j int) bool {
		return bytes.Compare(planned[i].path, planned[j].path) < 0
	})
	return planned, nil
}
