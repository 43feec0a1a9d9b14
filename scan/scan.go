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

// Package scan finds the module references in JavaScript, TypeScript and HTML
// files and resolves each of them.
package scan

import (
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"bennypowers.dev/esresolve/fs"
	"bennypowers.dev/esresolve/resolve"
)

// ResolvedImport is the outcome of resolving one import.
type ResolvedImport struct {
	Specifier string     `json:"specifier"`
	Kind      ImportKind `json:"kind"`
	Line      int        `json:"line"`
	Resolved  string     `json:"resolved,omitempty"`
	Code      string     `json:"code,omitempty"`
	Error     string     `json:"error,omitempty"`
}

// OK reports whether the import resolved.
func (ri ResolvedImport) OK() bool {
	return ri.Error == ""
}

// Result holds the imports of one scanned file.
type Result struct {
	File    string           `json:"file"`
	Imports []ResolvedImport `json:"imports"`
	Error   string           `json:"error,omitempty"`
}

// Failed returns the imports that did not resolve.
func (r *Result) Failed() []ResolvedImport {
	var failed []ResolvedImport
	for _, imp := range r.Imports {
		if !imp.OK() {
			failed = append(failed, imp)
		}
	}
	return failed
}

// Scanner extracts and resolves imports with a shared Resolver.
// It is safe for concurrent use.
type Scanner struct {
	fs       fs.FileSystem
	resolver *resolve.Resolver
	root     string
}

// New creates a Scanner. Root-relative URLs in HTML ("/src/app.js") are
// taken relative to root.
func New(fsys fs.FileSystem, resolver *resolve.Resolver, root string) *Scanner {
	return &Scanner{fs: fsys, resolver: resolver, root: root}
}

// ExtractFile reads a file and lists its imports. HTML files contribute
// module script sources, modulepreload links and inline script imports.
func (s *Scanner) ExtractFile(file string) ([]Import, error) {
	lang, ok := LanguageForPath(file)
	if !ok {
		return nil, fmt.Errorf("%s: unsupported file type", file)
	}

	content, err := s.fs.ReadFile(file)
	if err != nil {
		return nil, err
	}

	if lang != HTML {
		return ExtractImports(content, lang)
	}

	scripts, err := ExtractScripts(content)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", file, err)
	}

	var imports []Import
	for _, script := range scripts {
		if script.Src != "" {
			if !script.IsModule() {
				continue
			}
			if spec, ok := s.urlSpecifier(script.Src); ok {
				imports = append(imports, Import{Specifier: spec, Kind: Static, Line: script.Line})
			}
			continue
		}
		imports = append(imports, script.Imports...)
	}
	return imports, nil
}

// urlSpecifier turns a script URL into a specifier the resolver understands.
// Remote URLs are skipped.
func (s *Scanner) urlSpecifier(src string) (string, bool) {
	if i := strings.IndexAny(src, "?#"); i >= 0 {
		src = src[:i]
	}
	switch {
	case src == "", strings.HasPrefix(src, "//"), strings.Contains(src, "://"):
		return "", false
	case strings.HasPrefix(src, "/"):
		return filepath.Join(s.root, filepath.FromSlash(src)), true
	case strings.HasPrefix(src, "./"), strings.HasPrefix(src, "../"):
		return src, true
	}
	return "./" + path.Clean(src), true
}

// ScanFile extracts the imports of file and resolves each one with file as
// the importer. Resolution failures are reported per import; the error is
// reserved for files that cannot be read or parsed.
func (s *Scanner) ScanFile(file string) (*Result, error) {
	imports, err := s.ExtractFile(file)
	if err != nil {
		return nil, err
	}

	result := &Result{File: file, Imports: make([]ResolvedImport, 0, len(imports))}
	for _, imp := range imports {
		resolved := ResolvedImport{
			Specifier: imp.Specifier,
			Kind:      imp.Kind,
			Line:      imp.Line,
		}
		target, err := s.resolver.Resolve(imp.Specifier, file)
		if err != nil {
			resolved.Error = err.Error()
			var rerr *resolve.Error
			if errors.As(err, &rerr) {
				resolved.Code = rerr.Code()
			}
		} else {
			resolved.Resolved = target
		}
		result.Imports = append(result.Imports, resolved)
	}
	return result, nil
}

// ScanBatch scans files in parallel with the given number of workers
// (runtime.NumCPU() when parallel <= 0). The returned channel yields one
// Result per file in completion order and is closed when all files are done.
// Files that cannot be scanned yield a Result with Error set.
func (s *Scanner) ScanBatch(files []string, parallel int) <-chan Result {
	results := make(chan Result, len(files))

	go func() {
		defer close(results)

		if parallel <= 0 {
			parallel = runtime.NumCPU()
		}

		// Create jobs channel
		jobs := make(chan string, len(files))

		// Start worker goroutines
		var wg sync.WaitGroup
		for range parallel {
			wg.Go(func() {
				for file := range jobs {
					result, err := s.ScanFile(file)
					if err != nil {
						results <- Result{File: file, Error: err.Error()}
						continue
					}
					results <- *result
				}
			})
		}

		// Send jobs
		for _, file := range files {
			jobs <- file
		}
		close(jobs)

		// Wait for workers
		wg.Wait()
	}()

	return results
}
