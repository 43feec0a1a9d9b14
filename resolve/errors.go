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
	"errors"
	"fmt"
	"strings"
)

// Failure classes. Every error returned by Resolve is an *Error whose Kind is
// one of these.
var (
	ErrModuleNotFound         = errors.New("module not found")
	ErrPackageNotFound        = errors.New("package not found")
	ErrInvalidPackageJSON     = errors.New("invalid package.json")
	ErrInvalidTsConfig        = errors.New("invalid tsconfig")
	ErrExportsPathNotExported = errors.New("path not exported")
	ErrPathMappingExhausted   = errors.New("path mapping exhausted")
	ErrCircularExtends        = errors.New("circular tsconfig extends")
	ErrUnsupportedSpecifier   = errors.New("unsupported specifier")
)

// Error describes a failed resolution.
type Error struct {
	// Kind is the failure class sentinel.
	Kind error
	// Specifier is the specifier as requested.
	Specifier string
	// Importer is the canonical path of the importing file.
	Importer string
	// Candidate is the last path or directory examined.
	Candidate string
	// Err is the underlying cause, if any.
	Err error
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "cannot resolve %q", e.Specifier)
	if e.Importer != "" {
		fmt.Fprintf(&b, " from %s", e.Importer)
	}
	if e.Err == nil || !errors.Is(e.Err, e.Kind) {
		fmt.Fprintf(&b, ": %v", e.Kind)
	}
	if e.Candidate != "" {
		fmt.Fprintf(&b, " (last tried %s)", e.Candidate)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Unwrap exposes both the failure class and the cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func fail(kind error, candidate string, cause error) *Error {
	return &Error{Kind: kind, Candidate: candidate, Err: cause}
}

var errorCodes = map[error]string{
	ErrModuleNotFound:         "MODULE_NOT_FOUND",
	ErrPackageNotFound:        "PACKAGE_NOT_FOUND",
	ErrInvalidPackageJSON:     "INVALID_PACKAGE_JSON",
	ErrInvalidTsConfig:        "INVALID_TSCONFIG",
	ErrExportsPathNotExported: "PACKAGE_PATH_NOT_EXPORTED",
	ErrPathMappingExhausted:   "PATH_MAPPING_EXHAUSTED",
	ErrCircularExtends:        "CIRCULAR_EXTENDS",
	ErrUnsupportedSpecifier:   "UNSUPPORTED_SPECIFIER",
}

// Code returns a stable machine-readable name for the failure class, such as
// "MODULE_NOT_FOUND".
func (e *Error) Code() string {
	if code, ok := errorCodes[e.Kind]; ok {
		return code
	}
	return "UNKNOWN"
}
