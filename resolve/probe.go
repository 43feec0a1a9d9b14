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
package resolve

import (
	"path/filepath"
	"strings"

	"bennypowers.dev/esresolve/fs"
	"bennypowers.dev/esresolve/packagejson"
)

// rewrittenExtensions maps an import's written extension to the source
// extensions a TypeScript project may hold instead.
var rewrittenExtensions = map[string][]string{
	".js":  {".ts", ".tsx"},
	".jsx": {".tsx", ".ts"},
	".mjs": {".mts"},
	".cjs": {".cts"},
}

// probePath probes base, the joined form of specifier. A specifier ending
// in a slash or a dot segment names a directory, so file probing is skipped.
func (r *Resolver) probePath(base, specifier string) (string, error) {
	if !directoryOnly(specifier) {
		return r.probe(base)
	}
	if fs.IsDir(r.fs, base) {
		if found, ok := r.loadAsDirectory(base); ok {
			return found, nil
		}
	}
	return "", fail(ErrModuleNotFound, base, nil)
}

func directoryOnly(specifier string) bool {
	switch {
	case specifier == "." || specifier == "..":
		return true
	case strings.HasSuffix(specifier, "/"):
		return true
	default:
		return strings.HasSuffix(specifier, "/.") || strings.HasSuffix(specifier, "/..")
	}
}

// probe resolves a candidate path to a file: the path itself, the path with
// each extension appended, the path with its extension rewritten, and
// finally the path as a directory.
func (r *Resolver) probe(base string) (string, error) {
	if found, ok := r.loadAsFile(base); ok {
		return found, nil
	}
	if fs.IsDir(r.fs, base) {
		if found, ok := r.loadAsDirectory(base); ok {
			return found, nil
		}
	}
	return "", fail(ErrModuleNotFound, base, nil)
}

func (r *Resolver) loadAsFile(base string) (string, bool) {
	if fs.IsFile(r.fs, base) {
		r.debugf("matched %s by exact path", base)
		return base, true
	}

	for _, ext := range r.env.Extensions {
		if candidate := base + ext; fs.IsFile(r.fs, candidate) {
			r.debugf("matched %s by appending %s", candidate, ext)
			return candidate, true
		}
	}

	ext := filepath.Ext(base)
	if rewrites, ok := rewrittenExtensions[ext]; ok {
		stem := strings.TrimSuffix(base, ext)
		for _, rewrite := range rewrites {
			if candidate := stem + rewrite; fs.IsFile(r.fs, candidate) {
				r.debugf("matched %s by rewriting %s to %s", candidate, ext, rewrite)
				return candidate, true
			}
		}
	}

	return "", false
}

// loadAsDirectory tries the directory's package.json entry fields, in
// environment order, then its index file. An unreadable package.json is
// ignored here.
func (r *Resolver) loadAsDirectory(dir string) (string, bool) {
	pkgPath := filepath.Join(dir, "package.json")
	if fs.IsFile(r.fs, pkgPath) {
		pkg, err := packagejson.Load(r.fs, r.packages, fs.Canonicalize(r.fs, pkgPath))
		if err != nil {
			r.warnf("ignoring %s: %v", pkgPath, err)
		} else if found, ok := r.loadMainFields(pkg, dir); ok {
			return found, true
		}
	}
	return r.loadIndex(dir)
}

func (r *Resolver) loadMainFields(pkg *packagejson.PackageJSON, dir string) (string, bool) {
	for _, field := range r.env.MainFields {
		entry, ok := pkg.MainField(field)
		if !ok {
			continue
		}
		target := filepath.Join(dir, entry)
		if found, ok := r.loadAsFile(target); ok {
			r.debugf("entry field %q of %s chose %s", field, dir, found)
			return found, true
		}
		if fs.IsDir(r.fs, target) {
			if found, ok := r.loadIndex(target); ok {
				r.debugf("entry field %q of %s chose %s", field, dir, found)
				return found, true
			}
		}
		r.debugf("entry field %q of %s names missing %s", field, dir, target)
	}
	return "", false
}

func (r *Resolver) loadIndex(dir string) (string, bool) {
	return r.loadAsFile(filepath.Join(dir, "index"))
}
