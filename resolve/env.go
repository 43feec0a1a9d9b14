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
	"slices"
	"sort"
	"strings"

	"bennypowers.dev/esresolve/packagejson"
)

// Environment is the policy a resolution runs under: which export
// conditions match, which package.json fields name the entry point, and which
// extensions the probe appends.
type Environment struct {
	Name string
	// Conditions are tried in order when evaluating exports and imports.
	// "default" always matches and is tried last.
	Conditions []string
	// MainFields are the package.json entry fields, highest priority first.
	MainFields []string
	// Extensions are appended to extensionless candidates, in order.
	Extensions []string
	// Builtins enables Node core module resolution to "node:" specifiers.
	Builtins bool
}

var (
	// Browser resolves for bundlers and dev servers targeting the web.
	Browser = Environment{
		Name:       "browser",
		Conditions: []string{"browser", "import", "default"},
		MainFields: []string{"browser", "module", "main"},
		Extensions: []string{".tsx", ".ts", ".jsx", ".js", ".mjs", ".mts", ".cjs", ".cts", ".json", ".css"},
	}

	// Node resolves the way Node.js loads CommonJS modules.
	Node = Environment{
		Name:       "node",
		Conditions: []string{"node", "require", "default"},
		MainFields: []string{"main"},
		Extensions: []string{".tsx", ".ts", ".jsx", ".js", ".mjs", ".mts", ".cjs", ".cts", ".json", ".node"},
		Builtins:   true,
	}
)

var environments = map[string]Environment{
	Browser.Name: Browser,
	Node.Name:    Node,
}

// LookupEnvironment returns a preset environment by name.
func LookupEnvironment(name string) (Environment, bool) {
	env, ok := environments[strings.ToLower(name)]
	return env, ok
}

// EnvironmentNames lists the preset environment names, sorted.
func EnvironmentNames() []string {
	names := make([]string, 0, len(environments))
	for name := range environments {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Merge returns e with every non-empty field of override applied.
func (e Environment) Merge(override Environment) Environment {
	merged := e
	if override.Name != "" {
		merged.Name = override.Name
	}
	if len(override.Conditions) > 0 {
		merged.Conditions = slices.Clone(override.Conditions)
	}
	if len(override.MainFields) > 0 {
		merged.MainFields = slices.Clone(override.MainFields)
	}
	if len(override.Extensions) > 0 {
		merged.Extensions = slices.Clone(override.Extensions)
	}
	merged.Builtins = merged.Builtins || override.Builtins
	return merged
}

func (e Environment) resolveOptions() *packagejson.ResolveOptions {
	return &packagejson.ResolveOptions{Conditions: e.Conditions}
}

func (e Environment) usesBrowserField() bool {
	return slices.Contains(e.MainFields, "browser")
}
