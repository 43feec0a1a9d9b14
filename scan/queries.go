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
package scan

import (
	"embed"
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"sync"

	ts "github.com/tree-sitter/go-tree-sitter"
	tsTypescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
)

//go:embed queries/*/*.scm
var queryFiles embed.FS

// Language selects the grammar a source file is parsed with.
type Language int

const (
	// TypeScript parses .ts, .mts and .cts sources.
	TypeScript Language = iota
	// TSX parses JSX-capable sources: .tsx, .jsx and plain JavaScript.
	TSX
	// HTML documents are scanned for module scripts.
	HTML
)

func (l Language) String() string {
	switch l {
	case TypeScript:
		return "typescript"
	case TSX:
		return "tsx"
	case HTML:
		return "html"
	}
	return fmt.Sprintf("Language(%d)", int(l))
}

// LanguageForPath picks a Language from a file extension. The second result
// is false for files the scanner does not understand.
func LanguageForPath(p string) (Language, bool) {
	switch strings.ToLower(filepath.Ext(p)) {
	case ".ts", ".mts", ".cts":
		return TypeScript, true
	case ".tsx", ".jsx", ".js", ".mjs", ".cjs":
		return TSX, true
	case ".html", ".htm":
		return HTML, true
	}
	return 0, false
}

// Languages holds pre-initialized tree-sitter language grammars.
var languages = struct {
	typescript *ts.Language
	tsx        *ts.Language
}{
	ts.NewLanguage(tsTypescript.LanguageTypescript()),
	ts.NewLanguage(tsTypescript.LanguageTSX()),
}

func newParserPool(lang *ts.Language, name string) *sync.Pool {
	return &sync.Pool{
		New: func() any {
			parser := ts.NewParser()
			if err := parser.SetLanguage(lang); err != nil {
				panic("failed to set " + name + " language: " + err.Error())
			}
			return parser
		},
	}
}

// Parser pools for reuse.
var (
	tsParserPool  = newParserPool(languages.typescript, "TypeScript")
	tsxParserPool = newParserPool(languages.tsx, "TSX")
)

// getParser retrieves a parser for lang from its pool.
func getParser(lang Language) *ts.Parser {
	if lang == TypeScript {
		return tsParserPool.Get().(*ts.Parser)
	}
	return tsxParserPool.Get().(*ts.Parser)
}

// putParser returns a parser to the pool it came from.
func putParser(lang Language, p *ts.Parser) {
	p.Reset()
	if lang == TypeScript {
		tsParserPool.Put(p)
		return
	}
	tsxParserPool.Put(p)
}

// QueryManager manages tree-sitter queries for the script grammars.
// Both grammars share the query sources under queries/typescript.
type QueryManager struct {
	mu         sync.Mutex
	closed     bool
	typescript map[string]*ts.Query
	tsx        map[string]*ts.Query
}

// NewQueryManager creates a new QueryManager with the specified queries loaded.
func NewQueryManager(queries []string) (*QueryManager, error) {
	qm := &QueryManager{
		typescript: make(map[string]*ts.Query),
		tsx:        make(map[string]*ts.Query),
	}

	for _, name := range queries {
		for _, lang := range []Language{TypeScript, TSX} {
			if err := qm.loadQuery(lang, name); err != nil {
				qm.Close()
				return nil, err
			}
		}
	}

	return qm, nil
}

func (qm *QueryManager) loadQuery(lang Language, name string) error {
	queryPath := path.Join("queries", "typescript", name+".scm")
	data, err := queryFiles.ReadFile(queryPath)
	if err != nil {
		return fmt.Errorf("failed to read query %s: %w", queryPath, err)
	}

	grammar := languages.typescript
	if lang == TSX {
		grammar = languages.tsx
	}

	query, qerr := ts.NewQuery(grammar, string(data))
	if qerr != nil {
		return fmt.Errorf("failed to parse query %s for %s: %w", name, lang, qerr)
	}

	if lang == TSX {
		qm.tsx[name] = query
	} else {
		qm.typescript[name] = query
	}
	return nil
}

// Close releases all query resources. Safe to call multiple times.
func (qm *QueryManager) Close() {
	qm.mu.Lock()
	if qm.closed {
		qm.mu.Unlock()
		return
	}
	qm.closed = true
	tsQueries := qm.typescript
	tsxQueries := qm.tsx
	qm.typescript = nil
	qm.tsx = nil
	qm.mu.Unlock()

	for _, q := range tsQueries {
		q.Close()
	}
	for _, q := range tsxQueries {
		q.Close()
	}
}

// Query returns a query by language and name.
func (qm *QueryManager) Query(lang Language, name string) (*ts.Query, error) {
	var q *ts.Query
	var ok bool
	switch lang {
	case TypeScript:
		q, ok = qm.typescript[name]
	case TSX:
		q, ok = qm.tsx[name]
	}
	if !ok {
		return nil, fmt.Errorf("query not found: %s/%s", lang, name)
	}
	return q, nil
}

// Global query manager singleton
var (
	globalQM     *QueryManager
	globalQMOnce sync.Once
	globalQMErr  error
)

// GetQueryManager returns the global query manager instance.
func GetQueryManager() (*QueryManager, error) {
	globalQMOnce.Do(func() {
		globalQM, globalQMErr = NewQueryManager([]string{"imports"})
	})
	return globalQM, globalQMErr
}
