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
	"fmt"
	"strings"
)

// Kind categorizes a specifier before any filesystem access.
type Kind int

const (
	// Relative specifiers start with "./" or "../".
	Relative Kind = iota
	// Absolute specifiers are absolute filesystem paths.
	Absolute
	// Bare specifiers name a package, optionally with a subpath.
	Bare
	// InternalImport specifiers start with "#" and resolve through the
	// owning package's imports field.
	InternalImport
)

func (k Kind) String() string {
	switch k {
	case Relative:
		return "relative"
	case Absolute:
		return "absolute"
	case Bare:
		return "bare"
	case InternalImport:
		return "internal"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Classify determines the kind of specifier. Empty specifiers, "#" alone,
// "#/" prefixes and URLs other than "node:" are unsupported.
func Classify(specifier string) (Kind, error) {
	switch {
	case specifier == "":
		return 0, fmt.Errorf("%w: empty specifier", ErrUnsupportedSpecifier)
	case specifier == "." || specifier == "..",
		strings.HasPrefix(specifier, "./"),
		strings.HasPrefix(specifier, "../"):
		return Relative, nil
	case strings.HasPrefix(specifier, "/"), isDriveAbsolute(specifier):
		return Absolute, nil
	case strings.HasPrefix(specifier, "#"):
		if specifier == "#" || strings.HasPrefix(specifier, "#/") {
			return 0, fmt.Errorf("%w: %q is not a valid internal import", ErrUnsupportedSpecifier, specifier)
		}
		return InternalImport, nil
	case hasScheme(specifier) && !strings.HasPrefix(specifier, "node:"):
		return 0, fmt.Errorf("%w: %q is a URL", ErrUnsupportedSpecifier, specifier)
	}
	return Bare, nil
}

// isDriveAbsolute matches Windows drive paths such as "C:\x" and "C:/x".
func isDriveAbsolute(s string) bool {
	if len(s) < 3 || s[1] != ':' || (s[2] != '\\' && s[2] != '/') {
		return false
	}
	c := s[0] | 0x20
	return c >= 'a' && c <= 'z'
}

// hasScheme reports whether s starts with a URL scheme like "https:".
// Single letter schemes are drive letters, not URLs.
func hasScheme(s string) bool {
	colon := strings.IndexByte(s, ':')
	if colon < 2 {
		return false
	}
	for i := range colon {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case i > 0 && (c >= '0' && c <= '9' || c == '+' || c == '-' || c == '.'):
		default:
			return false
		}
	}
	return true
}
