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

// Package resolve maps module specifiers to the files they refer to.
//
// A Resolver answers one question at a time: given the specifier written in
// an import and the file containing it, which file does it load under a
// target environment. It follows Node.js module resolution, package.json
// exports and imports, and TypeScript baseUrl/paths mapping. All filesystem
// access goes through an injected fs.FileSystem.
package resolve

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"bennypowers.dev/esresolve/fs"
	"bennypowers.dev/esresolve/packagejson"
	"bennypowers.dev/esresolve/tsconfig"
)

// Logger is an interface for logging messages during resolution.
type Logger interface {
	Warning(format string, args ...any)
	Debug(format string, args ...any)
}

// Resolver resolves specifiers against a filesystem under one environment.
// It is safe for concurrent use. Builder methods return modified copies and
// leave the receiver untouched.
type Resolver struct {
	fs          fs.FileSystem
	env         Environment
	logger      Logger
	packages    packagejson.Cache
	tsconfigs   tsconfig.Cache
	useTsConfig bool
}

// New creates a Resolver with its own package.json and tsconfig caches.
func New(fsys fs.FileSystem, env Environment) *Resolver {
	return &Resolver{
		fs:          fsys,
		env:         env,
		packages:    packagejson.NewMemoryCache(),
		tsconfigs:   tsconfig.NewMemoryCache(),
		useTsConfig: true,
	}
}

// Environment returns the environment the resolver runs under.
func (r *Resolver) Environment() Environment {
	return r.env
}

// ForEnvironment returns a Resolver for another environment sharing this
// resolver's caches.
func (r *Resolver) ForEnvironment(env Environment) *Resolver {
	clone := *r
	clone.env = env
	return &clone
}

// WithLogger returns a Resolver that reports decisions to logger.
func (r *Resolver) WithLogger(logger Logger) *Resolver {
	clone := *r
	clone.logger = logger
	return &clone
}

// WithPackageCache returns a Resolver that shares the given package.json cache.
func (r *Resolver) WithPackageCache(c packagejson.Cache) *Resolver {
	clone := *r
	clone.packages = c
	return &clone
}

// WithTsConfigCache returns a Resolver that shares the given tsconfig cache.
func (r *Resolver) WithTsConfigCache(c tsconfig.Cache) *Resolver {
	clone := *r
	clone.tsconfigs = c
	return &clone
}

// WithoutTsConfig returns a Resolver that ignores tsconfig.json and
// jsconfig.json path mapping.
func (r *Resolver) WithoutTsConfig() *Resolver {
	clone := *r
	clone.useTsConfig = false
	return &clone
}

// Resolve returns the canonical path of the file specifier refers to when
// imported from importer, which must be an absolute path. Node core modules
// resolve to "node:" specifiers in environments with Builtins set. Failures
// are *Error values.
func (r *Resolver) Resolve(specifier, importer string) (string, error) {
	if !filepath.IsAbs(importer) {
		rerr := fail(ErrUnsupportedSpecifier, "", fmt.Errorf("importer %q is not an absolute path", importer))
		rerr.Specifier = specifier
		rerr.Importer = importer
		return "", rerr
	}
	importer = fs.Canonicalize(r.fs, importer)
	r.debugf("resolving %q from %s", specifier, importer)

	found, err := r.resolve(specifier, importer)
	if err != nil {
		var rerr *Error
		if !errors.As(err, &rerr) {
			rerr = fail(ErrModuleNotFound, "", err)
		}
		rerr.Specifier = specifier
		rerr.Importer = importer
		return "", rerr
	}

	if strings.HasPrefix(found, "node:") {
		return found, nil
	}
	return fs.Canonicalize(r.fs, found), nil
}

func (r *Resolver) resolve(specifier, importer string) (string, error) {
	kind, err := Classify(specifier)
	if err != nil {
		return "", fail(ErrUnsupportedSpecifier, "", err)
	}
	dir := filepath.Dir(importer)

	switch kind {
	case Relative:
		return r.probePath(filepath.Join(dir, specifier), specifier)

	case Absolute:
		return r.probePath(filepath.Clean(specifier), specifier)

	case InternalImport:
		return r.resolveInternalImport(specifier, dir)
	}

	if builtin, ok := r.env.builtin(specifier); ok {
		return builtin, nil
	}
	if strings.HasPrefix(specifier, "node:") {
		return "", fail(ErrUnsupportedSpecifier, "", errors.New("node: specifiers need an environment with builtins"))
	}

	if found, ok, err := r.resolveTsPaths(specifier, importer); ok || err != nil {
		return found, err
	}
	return r.resolvePackageSpecifier(specifier, dir)
}

func (r *Resolver) debugf(format string, args ...any) {
	if r.logger != nil {
		r.logger.Debug(format, args...)
	}
}

func (r *Resolver) warnf(format string, args ...any) {
	if r.logger != nil {
		r.logger.Warning(format, args...)
	}
}

// ToWebPath converts a filesystem path relative to rootDir into a web path.
// e.g., "node_modules/lit" -> "/node_modules/lit"
func ToWebPath(rootDir, fullPath string) string {
	relPath, err := filepath.Rel(rootDir, fullPath)
	if err != nil {
		return ""
	}
	if relPath == "." {
		return ""
	}
	if strings.HasPrefix(relPath, "..") {
		return ""
	}
	return "/" + filepath.ToSlash(relPath)
}
