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
package importmap

import (
	"cmp"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"bennypowers.dev/esresolve/fs"
	"bennypowers.dev/esresolve/packagejson"
	"bennypowers.dev/esresolve/resolve"
	"bennypowers.dev/esresolve/scan"
)

// Options configures FromResults.
type Options struct {
	// Root is the directory served as the web root.
	Root string
	// Template expands files inside node_modules. When nil, files are
	// served from their path under Root.
	Template *Template
	// FS reads package versions when Template uses {version}.
	FS fs.FileSystem
	// Packages caches those reads. Optional.
	Packages packagejson.Cache
}

// FromResults builds an import map for the bare specifiers in scan results.
// When importers resolve a specifier to different files, the shortest URL
// becomes the top-level mapping and the others are scoped to their
// importer's directory. Failed imports, builtins and files outside Root are
// skipped.
func FromResults(results []scan.Result, opts Options) (*ImportMap, error) {
	if opts.Template != nil && opts.Template.HasVersion() && opts.FS == nil {
		return nil, fmt.Errorf("template %q needs a filesystem to read package versions", opts.Template.Pattern())
	}

	type use struct{ scope, url string }
	uses := make(map[string][]use)

	for _, result := range results {
		scope := resolve.ToWebPath(opts.Root, filepath.Dir(result.File)) + "/"
		for _, imp := range result.Imports {
			if !imp.OK() || strings.HasPrefix(imp.Resolved, "node:") {
				continue
			}
			if kind, err := resolve.Classify(imp.Specifier); err != nil || kind != resolve.Bare {
				continue
			}

			url, err := webURL(imp.Resolved, opts)
			if err != nil {
				return nil, err
			}
			if url != "" {
				uses[imp.Specifier] = append(uses[imp.Specifier], use{scope, url})
			}
		}
	}

	im := &ImportMap{
		Imports: make(map[string]string, len(uses)),
		Scopes:  make(map[string]map[string]string),
	}
	for specifier, list := range uses {
		top := slices.MinFunc(list, func(a, b use) int {
			return cmp.Or(cmp.Compare(len(a.url), len(b.url)), strings.Compare(a.url, b.url))
		})
		im.Imports[specifier] = top.url
		for _, u := range list {
			if u.url == top.url {
				continue
			}
			if im.Scopes[u.scope] == nil {
				im.Scopes[u.scope] = make(map[string]string)
			}
			im.Scopes[u.scope][specifier] = u.url
		}
	}

	return im.Simplify(), nil
}

// webURL maps a resolved file to the URL it is served from. Without a
// template every file keeps its on-disk layout under Root.
func webURL(resolved string, opts Options) (string, error) {
	file, ok := LocatePackageFile(resolved)
	if !ok || opts.Template == nil {
		return resolve.ToWebPath(opts.Root, resolved), nil
	}
	if opts.Template.HasVersion() {
		pkg, err := packagejson.Load(opts.FS, opts.Packages, filepath.Join(file.Dir, "package.json"))
		if err != nil {
			return "", fmt.Errorf("reading version of %s: %w", file.Package, err)
		}
		file.Version = pkg.Version
	}
	return opts.Template.Expand(file), nil
}

// Simplify returns a copy without redundant entries: specifiers already
// covered by a trailing-slash prefix mapping, scope entries equal to the
// top-level mapping, and empty scopes.
func (im *ImportMap) Simplify() *ImportMap {
	if im == nil {
		return nil
	}
	result := im.Clone()
	result.Imports = simplifyImports(result.Imports, nil)
	for scope, imports := range result.Scopes {
		simplified := simplifyImports(imports, result.Imports)
		if len(simplified) == 0 {
			delete(result.Scopes, scope)
			continue
		}
		result.Scopes[scope] = simplified
	}

	if len(result.Imports) == 0 {
		result.Imports = nil
	}
	if len(result.Scopes) == 0 {
		result.Scopes = nil
	}
	return result
}

func simplifyImports(imports, parent map[string]string) map[string]string {
	if imports == nil {
		return nil
	}
	out := make(map[string]string, len(imports))
	for key, value := range imports {
		if parent != nil {
			if parentValue, ok := parent[key]; ok && parentValue == value {
				continue
			}
		}
		if !strings.HasSuffix(key, "/") && coveredByPrefix(key, value, imports) {
			continue
		}
		out[key] = value
	}
	return out
}

// coveredByPrefix reports whether a trailing-slash entry such as
// "lit/" -> "/node_modules/lit/" already maps key to value.
func coveredByPrefix(key, value string, imports map[string]string) bool {
	for prefix, target := range imports {
		if !strings.HasSuffix(prefix, "/") || !strings.HasPrefix(key, prefix) {
			continue
		}
		if target+key[len(prefix):] == value {
			return true
		}
	}
	return false
}

// Format renders the import map as "json" or as an "html" script tag.
// Unknown formats render as JSON.
func (im *ImportMap) Format(format string) string {
	out := im.ToJSON()
	if out == "" {
		out = "{}"
	}
	if format != "html" {
		return out
	}
	indented := strings.ReplaceAll(out, "\n", "\n  ")
	return "<script type=\"importmap\">\n  " + indented + "\n</script>"
}
