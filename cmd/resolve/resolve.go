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

// Package resolve provides the resolve command for esresolve.
package resolve

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"bennypowers.dev/esresolve/fs"
	"bennypowers.dev/esresolve/internal/logger"
	"bennypowers.dev/esresolve/internal/output"
	"bennypowers.dev/esresolve/internal/project"
	"bennypowers.dev/esresolve/resolve"
)

// Cmd is the resolve cobra command that resolves specifiers as if they were
// imported from a given file.
var Cmd = &cobra.Command{
	Use:   "resolve <specifier>...",
	Short: "Resolve module specifiers to files",
	Long: `Resolve module specifiers the way bundlers and Node.js do.

Each specifier is resolved as if imported from the --from file (default:
index.js in the project root), under the selected environment. Relative
and absolute specifiers are probed with extension and index fallback; bare
specifiers go through tsconfig paths, then node_modules and package.json
exports.`,
	Example: `  # Resolve a package entry point
  esresolve resolve lit

  # Resolve from a specific file under the node environment
  esresolve resolve ./utils --from src/app.ts --env node

  # JSON output with error codes
  esresolve resolve react @/components/button --format json`,
	Args: cobra.MinimumNArgs(1),
	RunE: run,
}

func init() {
	Cmd.Flags().String("from", "", "Importing file (default: <root>/index.js)")
	Cmd.Flags().StringP("format", "f", "text", "Output format (text, json)")
	Cmd.Flags().Bool("no-tsconfig", false, "Ignore tsconfig.json path mapping")
}

// Resolution is the JSON form of one resolved specifier.
type Resolution struct {
	Specifier   string `json:"specifier"`
	Importer    string `json:"importer"`
	Environment string `json:"environment"`
	Resolved    string `json:"resolved,omitempty"`
	Code        string `json:"code,omitempty"`
	Error       string `json:"error,omitempty"`
}

func run(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	switch format {
	case "text", "json":
		// valid
	default:
		return fmt.Errorf("invalid format %q: must be one of text, json", format)
	}

	noTsConfig, _ := cmd.Flags().GetBool("no-tsconfig")
	osfs := fs.NewOSFileSystem()
	p, err := project.Load(osfs, project.Options{
		Root:       viper.GetString("root"),
		Explicit:   cmd.Flags().Changed("root"),
		Env:        viper.GetString("env"),
		NoTsConfig: noTsConfig,
	})
	if err != nil {
		return err
	}

	from, _ := cmd.Flags().GetString("from")
	importer := filepath.Join(p.Root, "index.js")
	if from != "" {
		if importer, err = filepath.Abs(from); err != nil {
			return fmt.Errorf("invalid importer %q: %w", from, err)
		}
	}

	results := make([]Resolution, 0, len(args))
	var failed int
	for _, spec := range args {
		res := Resolution{Specifier: spec, Importer: importer, Environment: p.Env.Name}
		resolved, err := p.Resolver.Resolve(spec, importer)
		if err != nil {
			failed++
			res.Error = err.Error()
			var rerr *resolve.Error
			if errors.As(err, &rerr) {
				res.Code = rerr.Code()
			}
		} else {
			res.Resolved = resolved
		}
		results = append(results, res)
	}

	if format == "json" {
		if err := output.JSON(osfs, results); err != nil {
			return err
		}
	} else {
		var lines []string
		for _, res := range results {
			if res.Error != "" {
				logger.Warning("%s", res.Error)
				continue
			}
			if len(results) == 1 {
				lines = append(lines, res.Resolved)
			} else {
				lines = append(lines, res.Specifier+" -> "+res.Resolved)
			}
		}
		if len(lines) > 0 {
			if err := output.Text(osfs, strings.Join(lines, "\n")); err != nil {
				return err
			}
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d specifiers failed to resolve", failed, len(args))
	}
	return nil
}
