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
package tsconfig

import (
	"fmt"
	"path/filepath"
	"strings"

	"bennypowers.dev/esresolve/cache"
	"bennypowers.dev/esresolve/fs"
)

// Cache memoizes effective configs keyed by the canonical path of the config
// the chain starts from.
type Cache = cache.Cache[*EffectiveConfig]

// NewMemoryCache creates a new in-memory cache for effective configs.
func NewMemoryCache() *cache.MemoryCache[*EffectiveConfig] {
	return cache.NewMemoryCache[*EffectiveConfig]()
}

// Loader finds config files and resolves their extends chains.
type Loader struct {
	fs    fs.FileSystem
	cache Cache
}

// NewLoader creates a loader. A nil cache disables memoization.
func NewLoader(fsys fs.FileSystem, c Cache) *Loader {
	return &Loader{fs: fsys, cache: c}
}

// Find returns the nearest config file at or above dir. In each directory
// tsconfig.json is preferred over jsconfig.json.
func (l *Loader) Find(dir string) (string, bool) {
	dir = filepath.Clean(dir)
	for {
		for _, name := range FileNames {
			candidate := filepath.Join(dir, name)
			if fs.IsFile(l.fs, candidate) {
				return candidate, true
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

// Load returns the effective config for the config file at path.
// Both successful and failed loads are cached.
func (l *Loader) Load(path string) (*EffectiveConfig, error) {
	path = fs.Canonicalize(l.fs, path)
	if l.cache == nil {
		return l.load(path)
	}
	return l.cache.GetOrLoad(path, func() (*EffectiveConfig, error) {
		return l.load(path)
	})
}

func (l *Loader) load(path string) (*EffectiveConfig, error) {
	chain, err := l.chain(path)
	if err != nil {
		return nil, err
	}

	effective := &EffectiveConfig{Path: path}
	var baseURLFrom, pathsFrom *Config
	for _, cfg := range chain {
		effective.Chain = append(effective.Chain, cfg.Path)
		if baseURLFrom == nil && cfg.BaseURL != nil {
			baseURLFrom = cfg
		}
		if pathsFrom == nil && cfg.Paths != nil {
			pathsFrom = cfg
		}
	}

	if baseURLFrom != nil {
		baseURL := *baseURLFrom.BaseURL
		if !filepath.IsAbs(baseURL) {
			baseURL = filepath.Join(filepath.Dir(baseURLFrom.Path), baseURL)
		}
		effective.BaseURL = filepath.Clean(baseURL)
	}

	if pathsFrom != nil {
		effective.Paths = pathsFrom.Paths
		effective.PathsBase = effective.BaseURL
		if effective.PathsBase == "" {
			effective.PathsBase = filepath.Dir(pathsFrom.Path)
		}
	}

	return effective, nil
}

// chain parses path and every config it extends, child first.
func (l *Loader) chain(path string) ([]*Config, error) {
	var chain []*Config
	visited := make(map[string]bool)

	for path != "" {
		if visited[path] {
			return nil, fmt.Errorf("%w: %s", ErrCircularExtends, strings.Join(append(chainPaths(chain), path), " -> "))
		}
		visited[path] = true

		cfg, err := ParseFile(l.fs, path)
		if err != nil {
			return nil, err
		}
		chain = append(chain, cfg)

		if cfg.Extends == "" {
			break
		}
		next, err := l.resolveExtends(cfg)
		if err != nil {
			return nil, err
		}
		path = next
	}

	return chain, nil
}

// resolveExtends locates the file named by cfg.Extends. Relative and
// absolute references are taken as paths; anything else names a file inside
// a package found through node_modules. A missing ".json" is implied.
func (l *Loader) resolveExtends(cfg *Config) (string, error) {
	ref := cfg.Extends
	dir := filepath.Dir(cfg.Path)

	var candidates []string
	if filepath.IsAbs(ref) || strings.HasPrefix(ref, "./") || strings.HasPrefix(ref, "../") {
		base := ref
		if !filepath.IsAbs(base) {
			base = filepath.Join(dir, ref)
		}
		candidates = append(candidates, base, base+".json")
	} else {
		for current := dir; ; {
			nm := filepath.Join(current, "node_modules", ref)
			candidates = append(candidates, nm, nm+".json", filepath.Join(nm, "tsconfig.json"))
			parent := filepath.Dir(current)
			if parent == current {
				break
			}
			current = parent
		}
	}

	for _, candidate := range candidates {
		if fs.IsFile(l.fs, candidate) {
			return fs.Canonicalize(l.fs, candidate), nil
		}
	}
	return "", fmt.Errorf("%w: %s: extends %q not found", ErrInvalid, cfg.Path, ref)
}

func chainPaths(chain []*Config) []string {
	paths := make([]string, len(chain))
	for i, cfg := range chain {
		paths[i] = cfg.Path
	}
	return paths
}
