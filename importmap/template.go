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
	"fmt"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
)

// Template represents a URL template with variable placeholders.
// Supported variables:
//   - {package} - Full package name (e.g., "@scope/name" or "name")
//   - {name} - Package name without scope
//   - {scope} - Scope without @ prefix (empty for unscoped)
//   - {version} - Installed version from the package's package.json
//   - {path} - Relative path within the package
type Template struct {
	pattern   string
	variables []string
}

var variablePattern = regexp.MustCompile(`\{(\w+)\}`)

var templateVariables = []string{"package", "name", "scope", "version", "path"}

// ParseTemplate parses a URL template pattern.
func ParseTemplate(pattern string) (*Template, error) {
	if pattern == "" {
		return nil, fmt.Errorf("template pattern cannot be empty")
	}

	var variables []string
	for _, match := range variablePattern.FindAllStringSubmatch(pattern, -1) {
		if !slices.Contains(templateVariables, match[1]) {
			return nil, fmt.Errorf("unknown template variable: {%s}", match[1])
		}
		variables = append(variables, match[1])
	}

	return &Template{
		pattern:   pattern,
		variables: variables,
	}, nil
}

// Expand substitutes the variables of the template for one package file.
func (t *Template) Expand(file PackageFile) string {
	name, scope := SplitPackageName(file.Package)
	return strings.NewReplacer(
		"{package}", file.Package,
		"{name}", name,
		"{scope}", scope,
		"{version}", file.Version,
		"{path}", file.Path,
	).Replace(t.pattern)
}

// Pattern returns the original template pattern.
func (t *Template) Pattern() string {
	return t.pattern
}

// Variables returns the list of variables used in the template.
func (t *Template) Variables() []string {
	return t.variables
}

// HasVersion returns true if the template contains a {version} variable.
// Expanding such a template needs the package's package.json.
func (t *Template) HasVersion() bool {
	return slices.Contains(t.variables, "version")
}

// PackageFile locates a resolved file inside an installed package.
type PackageFile struct {
	Package string // Package name, e.g. "@lit/reactive-element"
	Dir     string // Package directory on disk
	Path    string // Slash-separated path within the package
	Version string // Filled in from package.json when a template needs it
}

// LocatePackageFile finds the package owning a resolved path by its last
// node_modules segment. Files outside node_modules report false.
func LocatePackageFile(resolved string) (PackageFile, bool) {
	slashed := filepath.ToSlash(resolved)
	idx := strings.LastIndex(slashed, "/node_modules/")
	if idx < 0 {
		return PackageFile{}, false
	}
	rest := slashed[idx+len("/node_modules/"):]

	segments := strings.SplitN(rest, "/", 3)
	nameLen := 1
	if strings.HasPrefix(rest, "@") {
		nameLen = 2
	}
	if len(segments) <= nameLen {
		return PackageFile{}, false
	}

	pkg := strings.Join(segments[:nameLen], "/")
	return PackageFile{
		Package: pkg,
		Dir:     filepath.FromSlash(slashed[:idx+len("/node_modules/")] + pkg),
		Path:    strings.Join(segments[nameLen:], "/"),
	}, true
}

// SplitPackageName splits a package name into name and scope.
// For "@scope/name" returns ("name", "scope").
// For "name" returns ("name", "").
func SplitPackageName(pkg string) (name, scope string) {
	if strings.HasPrefix(pkg, "@") {
		parts := strings.SplitN(pkg, "/", 2)
		if len(parts) == 2 {
			return parts[1], strings.TrimPrefix(parts[0], "@")
		}
		return pkg, ""
	}
	return pkg, ""
}
