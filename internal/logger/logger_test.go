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
package logger

import (
	"bytes"
	"os"
	"testing"
)

func TestVerbosity(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() {
		SetVerbose(false)
		SetOutput(os.Stderr)
	})

	Debug("hidden %d", 1)
	if buf.Len() != 0 {
		t.Fatalf("Debug wrote without verbose: %q", buf.String())
	}

	SetVerbose(true)
	Resolver{}.Debug("probe hit %s", "/a.js")
	Resolver{}.Warning("bad %s", "package.json")
	Info("scanned %d files", 2)

	want := "debug: probe hit /a.js\nwarning: bad package.json\nscanned 2 files\n"
	if buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}
}
