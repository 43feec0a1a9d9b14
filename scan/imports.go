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
	"cmp"
	"fmt"
	"slices"

	ts "github.com/tree-sitter/go-tree-sitter"
)

// ImportKind tells how a module is referenced.
type ImportKind int

const (
	// Static is an import declaration, including TypeScript import-equals.
	Static ImportKind = iota
	// ReExport is an export declaration with a from clause.
	ReExport
	// Dynamic is an import() call with a string literal argument.
	Dynamic
	// Require is a CommonJS require() call with a string literal argument.
	Require
)

var importKindNames = [...]string{"static", "reexport", "dynamic", "require"}

func (k ImportKind) String() string {
	if int(k) < len(importKindNames) {
		return importKindNames[k]
	}
	return fmt.Sprintf("ImportKind(%d)", int(k))
}

// MarshalText encodes the kind by name.
func (k ImportKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText decodes a kind name.
func (k *ImportKind) UnmarshalText(text []byte) error {
	for i, name := range importKindNames {
		if name == string(text) {
			*k = ImportKind(i)
			return nil
		}
	}
	return fmt.Errorf("unknown import kind %q", text)
}

// Import is one module reference found in a source file.
type Import struct {
	Specifier string     // The specifier as written (e.g., "lit", "./foo.js")
	Kind      ImportKind // How the module is referenced
	Line      int        // 1-indexed line of the specifier
}

// ExtractImports parses JavaScript/TypeScript content and extracts all import
// specifiers in source order. Content with syntax errors is scanned
// best-effort.
func ExtractImports(content []byte, lang Language) ([]Import, error) {
	if lang == HTML {
		return nil, fmt.Errorf("ExtractImports: use ExtractScripts for %s", lang)
	}

	qm, err := GetQueryManager()
	if err != nil {
		return nil, err
	}

	parser := getParser(lang)
	defer putParser(lang, parser)

	tree := parser.Parse(content, nil)
	if tree == nil {
		return nil, fmt.Errorf("failed to parse content")
	}
	defer tree.Close()

	query, err := qm.Query(lang, "imports")
	if err != nil {
		return nil, err
	}

	cursor := ts.NewQueryCursor()
	defer cursor.Close()

	var imports []Import
	matches := cursor.Matches(query, tree.RootNode(), content)
	captureNames := query.CaptureNames()

	for {
		match := matches.Next()
		if match == nil {
			break
		}

		var callee string
		var found *Import
		for _, capture := range match.Captures {
			name := captureNames[capture.Index]
			text := capture.Node.Utf8Text(content)
			line := int(capture.Node.StartPosition().Row) + 1 // 1-indexed

			switch name {
			case "import.spec", "importRequire.spec":
				found = &Import{Specifier: text, Kind: Static, Line: line}
			case "reexport.spec":
				found = &Import{Specifier: text, Kind: ReExport, Line: line}
			case "dynamicImport.spec":
				found = &Import{Specifier: text, Kind: Dynamic, Line: line}
			case "require.fn":
				callee = text
			case "require.spec":
				found = &Import{Specifier: text, Kind: Require, Line: line}
			}
		}

		if found == nil || (found.Kind == Require && callee != "require") {
			continue
		}
		imports = append(imports, *found)
	}

	slices.SortStableFunc(imports, func(a, b Import) int {
		return cmp.Compare(a.Line, b.Line)
	})
	return imports, nil
}
