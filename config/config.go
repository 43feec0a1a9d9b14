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

// Package config loads the optional project configuration for esresolve.
package config

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"bennypowers.dev/esresolve/resolve"
)

// Config represents the project configuration.
type Config struct {
	// DefaultEnvironment names the environment used when none is requested.
	DefaultEnvironment string `yaml:"defaultEnvironment" json:"defaultEnvironment"`

	// Environments declares custom environments or overrides presets by name.
	Environments map[string]EnvironmentSpec `yaml:"environments" json:"environments"`

	// TsConfig toggles tsconfig path mapping (default true).
	TsConfig *bool `yaml:"tsconfig" json:"tsconfig"`

	// Files lists glob patterns selecting the files to scan.
	Files []string `yaml:"files" json:"files"`

	// Exclude lists glob patterns, relative to the root, of files never scanned.
	Exclude []string `yaml:"exclude" json:"exclude"`
}

// EnvironmentSpec describes an environment in the config file. Empty lists
// inherit from the base environment.
type EnvironmentSpec struct {
	// Extends names the preset this environment starts from. Defaults to the
	// preset of the same name, or "browser".
	Extends    string   `yaml:"extends" json:"extends"`
	Conditions []string `yaml:"conditions" json:"conditions"`
	MainFields []string `yaml:"mainFields" json:"mainFields"`
	Extensions []string `yaml:"extensions" json:"extensions"`
	Builtins   *bool    `yaml:"builtins" json:"builtins"`
}

// Default returns the configuration used when no config file exists.
func Default() *Config {
	return &Config{DefaultEnvironment: resolve.Browser.Name}
}

// Environment returns the named environment, or the default environment
// when name is empty. Config entries take precedence over presets.
func (c *Config) Environment(name string) (resolve.Environment, error) {
	if name == "" {
		name = c.DefaultEnvironment
	}
	if name == "" {
		name = resolve.Browser.Name
	}

	spec, ok := c.Environments[name]
	if !ok {
		env, found := resolve.LookupEnvironment(name)
		if !found {
			return resolve.Environment{}, fmt.Errorf("unknown environment %q (available: %s)",
				name, strings.Join(c.EnvironmentNames(), ", "))
		}
		return env, nil
	}

	baseName := spec.Extends
	if baseName == "" {
		baseName = name
	}
	base, found := resolve.LookupEnvironment(baseName)
	if !found {
		if spec.Extends != "" {
			return resolve.Environment{}, fmt.Errorf("environment %q extends unknown environment %q", name, spec.Extends)
		}
		base = resolve.Browser
	}

	env := base.Merge(resolve.Environment{
		Name:       name,
		Conditions: spec.Conditions,
		MainFields: spec.MainFields,
		Extensions: spec.Extensions,
	})
	if spec.Builtins != nil {
		env.Builtins = *spec.Builtins
	}
	for _, ext := range env.Extensions {
		if !strings.HasPrefix(ext, ".") {
			return resolve.Environment{}, fmt.Errorf("environment %q: extension %q must start with '.'", name, ext)
		}
	}
	return env, nil
}

// EnvironmentNames lists preset and configured environment names, sorted.
func (c *Config) EnvironmentNames() []string {
	names := resolve.EnvironmentNames()
	for name := range c.Environments {
		if !slices.Contains(names, name) {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}

// UseTsConfig reports whether tsconfig path mapping is enabled.
func (c *Config) UseTsConfig() bool {
	return c.TsConfig == nil || *c.TsConfig
}

// Excluded reports whether path matches one of the Exclude patterns.
// Patterns are matched against the slash-separated path relative to rootDir.
func (c *Config) Excluded(rootDir, path string) bool {
	rel, err := filepath.Rel(rootDir, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return false
	}
	rel = filepath.ToSlash(rel)
	for _, pattern := range c.Exclude {
		if matchDoublestar(pattern, rel) {
			return true
		}
	}
	return false
}

// matchDoublestar provides ** glob matching using the doublestar library.
func matchDoublestar(pattern, path string) bool {
	matched, _ := doublestar.Match(pattern, path)
	return matched
}
