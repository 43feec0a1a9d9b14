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

// Package output writes command results to stdout or the --output file.
package output

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/spf13/viper"

	"bennypowers.dev/esresolve/fs"
)

// Text writes text followed by a newline. If viper's "output" flag is set,
// writes to that file; otherwise prints to stdout.
func Text(osfs fs.FileSystem, text string) error {
	if outputPath := viper.GetString("output"); outputPath != "" {
		return osfs.WriteFile(outputPath, []byte(text+"\n"), 0644)
	}
	fmt.Println(text)
	return nil
}

// JSON writes v as indented JSON.
func JSON(osfs fs.FileSystem, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	return Text(osfs, string(out))
}

// NDJSON writes each value as one compact JSON line.
func NDJSON[T any](osfs fs.FileSystem, values []T) error {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	for _, v := range values {
		if err := encoder.Encode(v); err != nil {
			return fmt.Errorf("encoding output: %w", err)
		}
	}
	return Text(osfs, string(bytes.TrimSuffix(buf.Bytes(), []byte("\n"))))
}
