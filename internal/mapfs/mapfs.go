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
// Package mapfs provides an in-memory filesystem implementation for testing.
package mapfs

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"
	"sync"
	"testing/fstest"
	"time"
)

// maxLinkHops bounds symlink expansion so link cycles fail instead of spinning.
const maxLinkHops = 40

// MapFileSystem implements FileSystem using an in-memory fstest.MapFS.
// Symbolic links are kept in a side table and expanded on every lookup.
type MapFileSystem struct {
	mu      sync.RWMutex
	mapFS   fstest.MapFS
	links   map[string]string
	modTime time.Time
}

// New creates a new in-memory filesystem for testing.
func New() *MapFileSystem {
	return &MapFileSystem{
		mapFS:   make(fstest.MapFS),
		links:   make(map[string]string),
		modTime: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// AddFile adds a file to the in-memory filesystem.
func (mfs *MapFileSystem) AddFile(path string, content string, mode fs.FileMode) {
	mfs.mu.Lock()
	defer mfs.mu.Unlock()

	path = mfs.cleanPath(path)
	mfs.mapFS[path] = &fstest.MapFile{
		Data:    []byte(content),
		Mode:    mode,
		ModTime: mfs.modTime,
	}
}

// AddDir adds an empty directory to the in-memory filesystem.
func (mfs *MapFileSystem) AddDir(path string, mode fs.FileMode) {
	mfs.mu.Lock()
	defer mfs.mu.Unlock()

	path = mfs.cleanPath(path)
	mfs.mapFS[path] = &fstest.MapFile{
		Mode:    fs.ModeDir | mode.Perm(),
		ModTime: mfs.modTime,
	}
}

// AddSymlink makes link point at target. A relative target is taken
// relative to the directory containing link, as on a real filesystem.
func (mfs *MapFileSystem) AddSymlink(link, target string) {
	mfs.mu.Lock()
	defer mfs.mu.Unlock()

	link = mfs.cleanPath(link)
	if !path.IsAbs(target) {
		target = path.Join("/", path.Dir(link), target)
	}
	mfs.links[link] = mfs.cleanPath(target)
}

// WriteFile implements FileSystem.
func (mfs *MapFileSystem) WriteFile(name string, data []byte, perm fs.FileMode) error {
	mfs.mu.Lock()
	defer mfs.mu.Unlock()

	name, err := mfs.resolveLocked(mfs.cleanPath(name))
	if err != nil {
		return err
	}

	if err := mfs.ensureParentDirLocked(name); err != nil {
		return err
	}

	mfs.mapFS[name] = &fstest.MapFile{
		Data:    append([]byte(nil), data...),
		Mode:    perm,
		ModTime: mfs.modTime,
	}

	return nil
}

// ReadFile implements FileSystem.
func (mfs *MapFileSystem) ReadFile(name string) ([]byte, error) {
	mfs.mu.RLock()
	defer mfs.mu.RUnlock()

	resolved, err := mfs.resolveLocked(mfs.cleanPath(name))
	if err != nil {
		return nil, err
	}
	return fs.ReadFile(mfs.mapFS, resolved)
}

// Stat implements FileSystem.
func (mfs *MapFileSystem) Stat(name string) (fs.FileInfo, error) {
	mfs.mu.RLock()
	defer mfs.mu.RUnlock()

	resolved, err := mfs.resolveLocked(mfs.cleanPath(name))
	if err != nil {
		return nil, err
	}
	if resolved == "" {
		return fs.Stat(mfs.mapFS, ".")
	}
	return fs.Stat(mfs.mapFS, resolved)
}

// Exists implements FileSystem.
func (mfs *MapFileSystem) Exists(path string) bool {
	mfs.mu.RLock()
	defer mfs.mu.RUnlock()

	resolved, err := mfs.resolveLocked(mfs.cleanPath(path))
	if err != nil {
		return false
	}
	return mfs.existsLocked(resolved)
}

// ReadDir implements FileSystem.
func (mfs *MapFileSystem) ReadDir(name string) ([]fs.DirEntry, error) {
	mfs.mu.RLock()
	defer mfs.mu.RUnlock()

	resolved, err := mfs.resolveLocked(mfs.cleanPath(name))
	if err != nil {
		return nil, err
	}
	if resolved == "" {
		resolved = "."
	}
	return fs.ReadDir(mfs.mapFS, resolved)
}

// EvalSymlinks implements FileSystem.
func (mfs *MapFileSystem) EvalSymlinks(name string) (string, error) {
	mfs.mu.RLock()
	defer mfs.mu.RUnlock()

	resolved, err := mfs.resolveLocked(mfs.cleanPath(name))
	if err != nil {
		return "", err
	}
	if !mfs.existsLocked(resolved) {
		return "", &fs.PathError{Op: "lstat", Path: name, Err: fs.ErrNotExist}
	}
	return "/" + resolved, nil
}

// Open implements FileSystem.
func (mfs *MapFileSystem) Open(name string) (fs.File, error) {
	mfs.mu.RLock()
	defer mfs.mu.RUnlock()

	resolved, err := mfs.resolveLocked(mfs.cleanPath(name))
	if err != nil {
		return nil, err
	}
	if resolved == "" {
		resolved = "."
	}
	return mfs.mapFS.Open(resolved)
}

// ListFiles returns all files in the MapFS for debugging.
func (mfs *MapFileSystem) ListFiles() map[string]string {
	mfs.mu.RLock()
	defer mfs.mu.RUnlock()

	result := make(map[string]string)
	for p, file := range mfs.mapFS {
		if file.Mode.IsDir() {
			result["/"+p] = "directory"
		} else {
			result["/"+p] = fmt.Sprintf("file (%d bytes)", len(file.Data))
		}
	}
	for link, target := range mfs.links {
		result["/"+link] = "symlink -> /" + target
	}
	return result
}

func (mfs *MapFileSystem) existsLocked(p string) bool {
	if p == "" {
		return true
	}
	if _, exists := mfs.mapFS[p]; exists {
		return true
	}

	prefix := p + "/"
	for filePath := range mfs.mapFS {
		if strings.HasPrefix(filePath, prefix) {
			return true
		}
	}

	return false
}

// resolveLocked expands symlinks component by component, restarting after
// every substitution so links inside link targets are honored too.
func (mfs *MapFileSystem) resolveLocked(p string) (string, error) {
	if len(mfs.links) == 0 || p == "" {
		return p, nil
	}

	for hops := 0; hops < maxLinkHops; hops++ {
		parts := strings.Split(p, "/")
		substituted := false
		for i := range parts {
			prefix := strings.Join(parts[:i+1], "/")
			target, ok := mfs.links[prefix]
			if !ok {
				continue
			}
			rest := strings.Join(parts[i+1:], "/")
			p = target
			if rest != "" {
				p = path.Join(target, rest)
			}
			substituted = true
			break
		}
		if !substituted {
			return p, nil
		}
	}

	return "", &fs.PathError{Op: "readlink", Path: "/" + p, Err: errors.New("too many levels of symbolic links")}
}

func (mfs *MapFileSystem) cleanPath(p string) string {
	cleaned := path.Clean(p)
	if !path.IsAbs(cleaned) {
		cleaned = "/" + cleaned
	}
	return strings.TrimPrefix(cleaned, "/")
}

func (mfs *MapFileSystem) ensureParentDirLocked(filePath string) error {
	dir := path.Dir(filePath)
	if dir == "." || dir == "/" || dir == "" {
		return nil
	}

	if file, exists := mfs.mapFS[dir]; exists && !file.Mode.IsDir() {
		return &fs.PathError{Op: "open", Path: filePath, Err: fmt.Errorf("not a directory")}
	}

	return nil
}
