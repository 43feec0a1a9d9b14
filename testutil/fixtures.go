/*
Copyright © 2026 Benny Powers <web@bennypowers.com>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/
// Package testutil provides testing utilities for the resolver packages.
package testutil

import (
	"bytes"
	"flag"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"bennypowers.dev/esresolve/internal/mapfs"
)

// update rewrites golden files with the actual output when set.
var update = flag.Bool("update", false, "update golden files with actual output")

// testdataPath finds rel under the nearest testdata directory. Package tests
// run from their own directory, so the repository root is up to two levels
// above.
func testdataPath(rel string) (string, bool) {
	for _, prefix := range []string{".", "..", filepath.Join("..", "..")} {
		candidate := filepath.Join(prefix, "testdata", rel)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true
		}
	}
	return "", false
}

// NewFixtureFS loads the fixture tree testdata/<fixtureDir> into an
// in-memory filesystem rooted at rootPath.
func NewFixtureFS(t *testing.T, fixtureDir string, rootPath string) *mapfs.MapFileSystem {
	t.Helper()

	fixturePath, ok := testdataPath(fixtureDir)
	if !ok {
		t.Fatalf("Could not find fixtures at %s", fixtureDir)
	}

	mfs := mapfs.New()
	err := filepath.WalkDir(fixturePath, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		relPath, err := filepath.Rel(fixturePath, path)
		if err != nil {
			return err
		}
		mfs.AddFile(filepath.Join(rootPath, relPath), string(content), 0644)
		return nil
	})
	if err != nil {
		t.Fatalf("Failed to load fixtures from %s: %v", fixtureDir, err)
	}

	return mfs
}

// Golden compares actual against testdata/<goldenPath>. With -update the
// golden file is rewritten instead; its parent directory must exist.
func Golden(t *testing.T, goldenPath string, actual []byte) {
	t.Helper()

	if *update {
		dir, ok := testdataPath(filepath.Dir(goldenPath))
		if !ok {
			t.Fatalf("No testdata directory for golden file %s", goldenPath)
		}
		target := filepath.Join(dir, filepath.Base(goldenPath))
		if err := os.WriteFile(target, actual, 0644); err != nil {
			t.Fatalf("Failed to write golden file %s: %v", goldenPath, err)
		}
		t.Logf("Updated golden file: %s", target)
		return
	}

	path, ok := testdataPath(goldenPath)
	if !ok {
		t.Fatalf("Missing golden file %s (run with -update to create it)", goldenPath)
	}
	expected, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read golden file %s: %v", goldenPath, err)
	}
	if !bytes.Equal(expected, actual) {
		t.Errorf("Output does not match %s\n--- expected ---\n%s\n--- actual ---\n%s", goldenPath, expected, actual)
	}
}
