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
// Package packagejson provides parsing and entry point resolution for package.json files.
package packagejson

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"slices"
	"strings"

	"bennypowers.dev/esresolve/fs"
)

// ErrNotExported is returned when a subpath is not exported by the package.
var ErrNotExported = errors.New("not exported by package.json")

// ErrInvalid is returned for package.json documents that cannot be parsed
// or whose exports/imports maps are malformed.
var ErrInvalid = errors.New("invalid package.json")

// ErrInvalidName is returned for bare specifiers that do not name a package.
var ErrInvalidName = errors.New("invalid package name")

// DefaultConditions is the default export condition priority for browser environments.
var DefaultConditions = []string{"browser", "import", "default"}

// ResolveOptions configures how conditional exports are resolved.
type ResolveOptions struct {
	// Conditions is the ordered list of conditions to try when resolving exports.
	// If nil, defaults to DefaultConditions.
	Conditions []string
}

func (opts *ResolveOptions) conditions() []string {
	if opts != nil && len(opts.Conditions) > 0 {
		return opts.Conditions
	}
	return DefaultConditions
}

// PackageJSON represents the subset of package.json relevant for module resolution.
// It is immutable once parsed.
type PackageJSON struct {
	Name    string
	Version string

	// exports is nil when the field is absent or null.
	exports SubpathMap
	imports SubpathMap

	// browserMap holds the object form of the "browser" field.
	browserMap map[string]string

	// fields keeps every top-level field so custom main fields can be read.
	fields map[string]json.RawMessage
}

// ExportEntry represents a single export from a package.
type ExportEntry struct {
	Subpath string `json:"subpath"` // The export subpath (e.g., ".", "./button", "./icons/*")
	Target  string `json:"target"`  // The target path (e.g., "./index.js", "./dist/icons/*.js")
}

// Parse parses package.json data.
func Parse(data []byte) (*PackageJSON, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if fields == nil {
		return nil, fmt.Errorf("%w: document is not an object", ErrInvalid)
	}

	pkg := &PackageJSON{fields: fields}
	pkg.Name, _ = pkg.MainField("name")
	pkg.Version, _ = pkg.MainField("version")

	if raw, ok := fields["exports"]; ok && !isNull(raw) {
		var value any
		if err := json.Unmarshal(raw, &value); err != nil {
			return nil, fmt.Errorf("%w: exports: %w", ErrInvalid, err)
		}
		exports, err := parseExports(value)
		if err != nil {
			return nil, err
		}
		pkg.exports = exports
	}

	if raw, ok := fields["imports"]; ok && !isNull(raw) {
		var value any
		if err := json.Unmarshal(raw, &value); err != nil {
			return nil, fmt.Errorf("%w: imports: %w", ErrInvalid, err)
		}
		imports, err := parseImports(value)
		if err != nil {
			return nil, err
		}
		pkg.imports = imports
	}

	if raw, ok := fields["browser"]; ok {
		var browser map[string]any
		if err := json.Unmarshal(raw, &browser); err == nil {
			pkg.browserMap = make(map[string]string, len(browser))
			for from, to := range browser {
				// false entries mean "empty module"; they are not remappings
				if s, ok := to.(string); ok {
					pkg.browserMap[from] = s
				}
			}
		}
	}

	return pkg, nil
}

// ParseFile parses a package.json file.
func ParseFile(fs fs.FileSystem, path string) (*PackageJSON, error) {
	data, err := fs.ReadFile(path)
	if err != nil {
		return nil, err
	}
	pkg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return pkg, nil
}

// MainField returns the string value of a top-level field such as "main",
// "module", "browser" or any custom entry field. The second result is false
// when the field is missing, empty, or not a string.
func (pkg *PackageJSON) MainField(field string) (string, bool) {
	raw, ok := pkg.fields[field]
	if !ok {
		return "", false
	}
	var value string
	if err := json.Unmarshal(raw, &value); err != nil || value == "" {
		return "", false
	}
	return value, true
}

// HasExports reports whether the package declares an "exports" field.
// A declared field makes the export map exhaustive.
func (pkg *PackageJSON) HasExports() bool {
	return pkg.exports != nil
}

// HasImports reports whether the package declares an "imports" field.
func (pkg *PackageJSON) HasImports() bool {
	return pkg.imports != nil
}

// ResolveExport resolves a subpath export to its target.
// The subpath should be "." for the main export or "./subpath" for subpath exports.
// The target is returned as written in package.json, relative to the package
// root and starting with "./", with any pattern capture substituted.
// Pass nil for opts to use DefaultConditions.
func (pkg *PackageJSON) ResolveExport(subpath string, opts *ResolveOptions) (string, error) {
	if pkg.exports == nil {
		// Without exports only the main entry is reachable by name
		if main, ok := pkg.MainField("main"); ok && subpath == "." {
			return "./" + trimDotSlash(main), nil
		}
		return "", fmt.Errorf("%q %w", subpath, ErrNotExported)
	}

	target, err := pkg.exports.resolve(subpath, opts.conditions(), false)
	if err != nil {
		return "", fmt.Errorf("%q %w", subpath, err)
	}
	return target, nil
}

// ResolveImport resolves a "#" internal import specifier through the
// package's "imports" field. Unlike exports, an imports target may be a bare
// package specifier; callers distinguish it by the missing "./" prefix.
// Pass nil for opts to use DefaultConditions.
func (pkg *PackageJSON) ResolveImport(specifier string, opts *ResolveOptions) (string, error) {
	if pkg.imports == nil {
		return "", fmt.Errorf("%q %w", specifier, ErrNotExported)
	}
	target, err := pkg.imports.resolve(specifier, opts.conditions(), true)
	if err != nil {
		return "", fmt.Errorf("%q %w", specifier, err)
	}
	return target, nil
}

// BrowserRemap applies the object form of the "browser" field to a
// package-relative file path such as "./lib/node.js". Keys may omit the
// file extension, so "./lib/node" also matches. It reports whether a
// replacement was found.
func (pkg *PackageJSON) BrowserRemap(relPath string) (string, bool) {
	if len(pkg.browserMap) == 0 {
		return "", false
	}
	bare := trimDotSlash(relPath)
	keys := []string{"./" + bare, bare}
	if ext := path.Ext(bare); ext != "" {
		stem := strings.TrimSuffix(bare, ext)
		keys = append(keys, "./"+stem, stem)
	}
	for _, key := range keys {
		if to, ok := pkg.browserMap[key]; ok {
			return "./" + trimDotSlash(to), true
		}
	}
	return "", false
}

// ExportEntries returns every export entry of the package evaluated under the
// given conditions, sorted by subpath. Pattern entries keep their "*" in both
// subpath and target. Entries excluded for these conditions are omitted.
// Pass nil for opts to use DefaultConditions.
func (pkg *PackageJSON) ExportEntries(opts *ResolveOptions) []ExportEntry {
	var entries []ExportEntry

	if pkg.exports == nil {
		// No exports field - check main
		if main, ok := pkg.MainField("main"); ok {
			entries = append(entries, ExportEntry{
				Subpath: ".",
				Target:  "./" + trimDotSlash(main),
			})
		}
		return entries
	}

	keys := make([]string, 0, len(pkg.exports))
	for key := range pkg.exports {
		keys = append(keys, key)
	}
	slices.Sort(keys)

	for _, key := range keys {
		capture := ""
		if strings.Contains(key, "*") {
			capture = "*"
		}
		target, err := pkg.exports[key].resolve(capture, opts.conditions(), false)
		if err != nil {
			continue
		}
		entries = append(entries, ExportEntry{Subpath: key, Target: target})
	}

	return entries
}

// ParsePackageSpecifier splits a bare specifier into the package name and the
// subpath within it. The subpath is "." for the package root and "./rest"
// otherwise. Scoped names take two segments.
func ParsePackageSpecifier(specifier string) (name, subpath string, err error) {
	if specifier == "" {
		return "", "", fmt.Errorf("%w: empty specifier", ErrInvalidName)
	}

	sep := strings.IndexByte(specifier, '/')
	if specifier[0] == '@' {
		if sep < 0 {
			return "", "", fmt.Errorf("%w: %q is scoped but has no package segment, expected a name like \"@babel/core\"", ErrInvalidName, specifier)
		}
		if sep == 1 || sep == len(specifier)-1 {
			return "", "", fmt.Errorf("%w: %q has an empty scope or package segment", ErrInvalidName, specifier)
		}
		if next := strings.IndexByte(specifier[sep+1:], '/'); next >= 0 {
			sep = sep + 1 + next
		} else {
			sep = -1
		}
	}

	name = specifier
	if sep >= 0 {
		name = specifier[:sep]
	}

	switch {
	case name == "":
		return "", "", fmt.Errorf("%w: %q", ErrInvalidName, specifier)
	case strings.HasPrefix(name, "."):
		return "", "", fmt.Errorf("%w: %q starts with '.'", ErrInvalidName, specifier)
	case strings.ContainsAny(name, "%\\"):
		return "", "", fmt.Errorf("%w: %q contains '%%' or '\\'", ErrInvalidName, specifier)
	}

	return name, "." + specifier[len(name):], nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// trimDotSlash removes a leading "./" from a path.
func trimDotSlash(path string) string {
	return strings.TrimPrefix(path, "./")
}
