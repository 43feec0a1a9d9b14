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

// Package tsconfig loads TypeScript project configuration for path mapping.
//
// Only the fields that affect module resolution are read: extends,
// compilerOptions.baseUrl and compilerOptions.paths. Files may contain
// comments and trailing commas. Inheritance is resolved per key: the nearest
// config in the extends chain that declares baseUrl or paths supplies that
// value whole.
package tsconfig

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"

	"bennypowers.dev/esresolve/fs"
)

// ErrInvalid is returned for config files that cannot be parsed, or whose
// extends target cannot be found.
var ErrInvalid = errors.New("invalid tsconfig")

// ErrCircularExtends is returned when an extends chain revisits a file.
var ErrCircularExtends = errors.New("circular extends")

// FileNames lists the config file names looked for in each directory, in order.
var FileNames = []string{"tsconfig.json", "jsconfig.json"}

// Config is a single parsed config file.
type Config struct {
	// Path is the file the config was read from.
	Path string
	// Extends is the raw extends reference, empty when absent.
	Extends string
	// BaseURL is the raw compilerOptions.baseUrl, nil when absent.
	BaseURL *string
	// Paths is compilerOptions.paths, nil when absent.
	Paths map[string][]string
}

type rawConfig struct {
	Extends         json.RawMessage `json:"extends"`
	CompilerOptions struct {
		BaseURL *string             `json:"baseUrl"`
		Paths   map[string][]string `json:"paths"`
	} `json:"compilerOptions"`
}

// Parse parses config data read from path.
func Parse(data []byte, path string) (*Config, error) {
	var raw rawConfig
	if err := json.Unmarshal(jsonc.ToJSON(data), &raw); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalid, path, err)
	}

	cfg := &Config{
		Path:    path,
		BaseURL: raw.CompilerOptions.BaseURL,
		Paths:   raw.CompilerOptions.Paths,
	}

	if len(raw.Extends) > 0 && string(raw.Extends) != "null" {
		if err := json.Unmarshal(raw.Extends, &cfg.Extends); err != nil {
			return nil, fmt.Errorf("%w: %s: extends must be a string", ErrInvalid, path)
		}
	}

	for key := range cfg.Paths {
		if strings.Count(key, "*") > 1 {
			return nil, fmt.Errorf("%w: %s: paths pattern %q has more than one '*'", ErrInvalid, path, key)
		}
	}

	return cfg, nil
}

// ParseFile reads and parses the config file at path.
func ParseFile(fsys fs.FileSystem, path string) (*Config, error) {
	data, err := fsys.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return Parse(data, path)
}

// EffectiveConfig is a config with its extends chain applied.
type EffectiveConfig struct {
	// Path is the config the chain starts from.
	Path string
	// Chain lists every file in the extends chain, child first.
	Chain []string
	// BaseURL is the absolute baseUrl directory, empty when none is declared.
	BaseURL string
	// Paths is the inherited paths table, nil when none is declared.
	Paths map[string][]string
	// PathsBase is the directory paths targets are resolved against: BaseURL
	// when set, otherwise the directory of the config declaring paths.
	PathsBase string
}

// Mapping is the result of matching a specifier against a paths table.
type Mapping struct {
	// Pattern is the winning paths key.
	Pattern string
	// Candidates are the absolute paths produced from the key's templates, in order.
	Candidates []string
}

// Match finds the most specific paths key that matches specifier. An exact
// key beats any pattern; among patterns the longest prefix before "*" wins.
// Candidates are produced for the winning key only.
func (c *EffectiveConfig) Match(specifier string) (*Mapping, bool) {
	if c == nil || len(c.Paths) == 0 {
		return nil, false
	}

	if templates, ok := c.Paths[specifier]; ok && !strings.Contains(specifier, "*") {
		return c.mapping(specifier, templates, ""), true
	}

	best, capture := "", ""
	for pattern := range c.Paths {
		prefix, suffix, ok := strings.Cut(pattern, "*")
		if !ok {
			continue
		}
		if len(specifier) < len(prefix)+len(suffix) ||
			!strings.HasPrefix(specifier, prefix) ||
			!strings.HasSuffix(specifier, suffix) {
			continue
		}
		if best != "" && !moreSpecific(pattern, best) {
			continue
		}
		best = pattern
		capture = specifier[len(prefix) : len(specifier)-len(suffix)]
	}

	if best == "" {
		return nil, false
	}
	return c.mapping(best, c.Paths[best], capture), true
}

// moreSpecific orders wildcard keys: longer prefix, then longer key, then
// lexical order so map iteration cannot change the winner.
func moreSpecific(a, b string) bool {
	pa, pb := strings.Index(a, "*"), strings.Index(b, "*")
	if pa != pb {
		return pa > pb
	}
	if len(a) != len(b) {
		return len(a) > len(b)
	}
	return a < b
}

func (c *EffectiveConfig) mapping(pattern string, templates []string, capture string) *Mapping {
	m := &Mapping{Pattern: pattern, Candidates: make([]string, 0, len(templates))}
	for _, template := range templates {
		target := strings.ReplaceAll(template, "*", capture)
		if !filepath.IsAbs(target) {
			target = filepath.Join(c.PathsBase, target)
		}
		m.Candidates = append(m.Candidates, filepath.Clean(target))
	}
	return m
}
