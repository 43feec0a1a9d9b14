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
	"bytes"
	"errors"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ScriptTag represents a <script> tag or a modulepreload <link> found in HTML.
type ScriptTag struct {
	Type    string   // The type attribute (e.g., "module"), or "modulepreload" for links
	Src     string   // The src attribute, or the href of a preload link
	Inline  bool     // True if script has inline content
	Content string   // The inline script content
	Line    int      // 1-indexed line of the opening tag
	Imports []Import // Imports found in inline content, with document line numbers
}

// IsModule reports whether the tag loads an ES module.
func (s ScriptTag) IsModule() bool {
	return s.Type == "module" || s.Type == "modulepreload"
}

// ExtractScripts tokenizes HTML content and extracts all script tags and
// modulepreload links in document order. Inline module scripts contribute
// every import; classic inline scripts contribute only dynamic imports.
func ExtractScripts(content []byte) ([]ScriptTag, error) {
	z := html.NewTokenizer(bytes.NewReader(content))
	line := 1

	var scripts []ScriptTag
	var open *ScriptTag

	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			if err := z.Err(); !errors.Is(err, io.EOF) {
				return nil, err
			}
			break
		}
		tokenLine := line
		line += bytes.Count(z.Raw(), []byte("\n"))
		tok := z.Token()

		switch tt {
		case html.StartTagToken, html.SelfClosingTagToken:
			switch tok.DataAtom {
			case atom.Script:
				script := ScriptTag{Line: tokenLine}
				script.Type, _ = attr(tok, "type")
				script.Src, _ = attr(tok, "src")
				if tt == html.SelfClosingTagToken {
					scripts = append(scripts, script)
					continue
				}
				open = &script
			case atom.Link:
				if rel, _ := attr(tok, "rel"); !strings.EqualFold(rel, "modulepreload") {
					continue
				}
				if href, ok := attr(tok, "href"); ok && href != "" {
					scripts = append(scripts, ScriptTag{Type: "modulepreload", Src: href, Line: tokenLine})
				}
			}
		case html.TextToken:
			if open == nil || open.Src != "" || strings.TrimSpace(tok.Data) == "" {
				continue
			}
			open.Content = tok.Data
			open.Inline = true
			open.Imports = inlineImports(open, tokenLine)
		case html.EndTagToken:
			if tok.DataAtom == atom.Script && open != nil {
				scripts = append(scripts, *open)
				open = nil
			}
		}
	}

	if open != nil {
		scripts = append(scripts, *open)
	}
	return scripts, nil
}

// inlineImports parses inline script content (best-effort; syntax errors
// are ignored) and shifts line numbers to the document.
func inlineImports(script *ScriptTag, startLine int) []Import {
	imports, _ := ExtractImports([]byte(script.Content), TSX)
	var kept []Import
	for _, imp := range imports {
		// For non-module scripts, only include dynamic imports
		if script.Type != "module" && imp.Kind != Dynamic {
			continue
		}
		imp.Line += startLine - 1
		kept = append(kept, imp)
	}
	return kept
}

func attr(tok html.Token, key string) (string, bool) {
	for _, a := range tok.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}
