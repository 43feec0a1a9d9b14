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

// Package cache provides read-through memoization for parsed config documents.
//
// Entries are keyed by canonical file path. A cache is owned by whoever
// constructs it and is passed into resolvers explicitly; nothing here is
// process-wide. Entries are never evicted on their own: a long-lived host
// that watches the filesystem calls Invalidate.
package cache

import "sync"

// Cache provides a caching interface for parsed documents of type T.
type Cache[T any] interface {
	// Get retrieves a cached value by its file path.
	// Returns the cached value and true if found, the zero value and false otherwise.
	Get(path string) (T, bool)

	// Set stores a value in the cache, keyed by file path.
	Set(path string, value T)

	// Invalidate removes a cached entry, typically called when a file changes.
	Invalidate(path string)

	// GetOrLoad atomically retrieves from cache or loads using the provided function.
	// Only one goroutine should execute the loader for a given path; others wait.
	GetOrLoad(path string, loader func() (T, error)) (T, error)
}

// entry holds a loaded value and coordinates concurrent loading.
type entry[T any] struct {
	value T
	err   error
	once  sync.Once
}

// MemoryCache is a thread-safe in-memory implementation of Cache.
type MemoryCache[T any] struct {
	mu      sync.RWMutex
	values  map[string]T
	loading sync.Map // map[string]*entry[T] for in-flight and failed loads
}

// NewMemoryCache creates a new in-memory cache.
func NewMemoryCache[T any]() *MemoryCache[T] {
	return &MemoryCache[T]{
		values: make(map[string]T),
	}
}

// Get retrieves a cached value by its file path.
func (c *MemoryCache[T]) Get(path string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	value, ok := c.values[path]
	return value, ok
}

// Set stores a value in the cache.
func (c *MemoryCache[T]) Set(path string, value T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[path] = value
}

// Invalidate removes a cached entry and any in-flight loading state.
func (c *MemoryCache[T]) Invalidate(path string) {
	c.mu.Lock()
	delete(c.values, path)
	c.mu.Unlock()
	c.loading.Delete(path)
}

// Len returns the number of successfully loaded entries.
func (c *MemoryCache[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.values)
}

// GetOrLoad atomically retrieves from cache or loads using the provided function.
// Only one goroutine will execute the loader for a given path; others wait for the result.
// A failed load is remembered as well, so a broken document is parsed once per session.
func (c *MemoryCache[T]) GetOrLoad(path string, loader func() (T, error)) (T, error) {
	// Fast path: check if already cached
	c.mu.RLock()
	if value, ok := c.values[path]; ok {
		c.mu.RUnlock()
		return value, nil
	}
	c.mu.RUnlock()

	// All concurrent goroutines get the same entry for a path
	actual, _ := c.loading.LoadOrStore(path, &entry[T]{})
	e := actual.(*entry[T])

	e.once.Do(func() {
		e.value, e.err = loader()
		if e.err == nil {
			c.mu.Lock()
			c.values[path] = e.value
			c.mu.Unlock()
		}
	})

	// Entries stay in c.loading until Invalidate; deleting here would race
	// with concurrent LoadOrStore calls.
	return e.value, e.err
}
