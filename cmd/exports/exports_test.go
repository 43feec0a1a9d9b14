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
package exports

import (
	"testing"

	"bennypowers.dev/esresolve/testutil"
)

func TestFindPackage(t *testing.T) {
	mfs := testutil.NewFixtureFS(t, "resolve", "/project")

	tests := []struct {
		name    string
		root    string
		arg     string
		want    string
		wantErr bool
	}{
		{"in root node_modules", "/project/packages", "react", "/project/packages/node_modules/react", false},
		{"scoped", "/project/packages/deep/dir1", "@emotion/styled", "/project/packages/node_modules/@emotion/styled", false},
		{"directory argument", "/", "/project/selfref", "/project/selfref", false},
		{"missing", "/project/packages", "left-pad", "", true},
		{"subpath", "/project/packages", "react/jsx-runtime", "", true},
		{"invalid name", "/project/packages", "@scope", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FindPackage(mfs, tt.root, tt.arg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("FindPackage() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("FindPackage() = %q, want %q", got, tt.want)
			}
		})
	}
}
