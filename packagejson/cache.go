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
package packagejson

import (
	"bennypowers.dev/esresolve/cache"
	"bennypowers.dev/esresolve/fs"
)

// Cache provides a caching interface for parsed package.json files, keyed by
// the file's canonical path. Callers share one across resolutions so each
// manifest is read and parsed at most once.
type Cache = cache.Cache[*PackageJSON]

// NewMemoryCache creates a new in-memory cache for package.json files.
func NewMemoryCache() *cache.MemoryCache[*PackageJSON] {
	return cache.NewMemoryCache[*PackageJSON]()
}

// Load parses the package.json at path through c. A nil cache parses directly.
// Parse failures are cached like successes until the path is invalidated.
func Load(fsys fs.FileSystem, c Cache, path string) (*PackageJSON, error) {
	if c == nil {
		return ParseFile(fsys, path)
	}
	return c.GetOrLoad(path, func() (*PackageJSON, error) {
		return ParseFile(fsys, path)
	})
}
