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

// Package exports provides the exports command for esresolve.
package exports

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"bennypowers.dev/esresolve/fs"
	"bennypowers.dev/esresolve/internal/output"
	"bennypowers.dev/esresolve/internal/project"
	"bennypowers.dev/esresolve/packagejson"
)

// Cmd is the exports cobra command that lists the entry points a package
// exposes under an environment.
var Cmd = &cobra.Command{
	Use:   "exports <package|directory>",
	Short: "List a package's exports under an environment",
	Long: `List the subpaths a package exports and the files they map to.

The package is found in node_modules above the project root, or given as a
directory containing package.json. Conditional exports are evaluated with
the selected environment's conditions; subpaths excluded for that
environment are omitted. Packages without an exports field list their main
entry.`,
	Example: `  # Browser entry points of lit
  esresolve exports lit

  # Node entry points as JSON
  esresolve exports react --env node --format json`,
	Args: cobra.ExactArgs(1),
	RunE: run,
}

func init() {
	Cmd.Flags().StringP("format", "f", "text", "Output format (text, json)")
}

func run(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	switch format {
	case "text", "json":
		// valid
	default:
		return fmt.Errorf("invalid format %q: must be one of text, json", format)
	}

	osfs := fs.NewOSFileSystem()
	p, err := project.Load(osfs, project.Options{
		Root:     viper.GetString("root"),
		Explicit: cmd.Flags().Changed("root"),
		Env:      viper.GetString("env"),
	})
	if err != nil {
		return err
	}

	pkgDir, err := FindPackage(osfs, p.Root, args[0])
	if err != nil {
		return err
	}

	pkg, err := packagejson.ParseFile(osfs, filepath.Join(pkgDir, "package.json"))
	if err != nil {
		return err
	}

	entries := pkg.ExportEntries(&packagejson.ResolveOptions{Conditions: p.Env.Conditions})
	if format == "json" {
		return output.JSON(osfs, map[string]any{
			"package":     pkg.Name,
			"directory":   pkgDir,
			"environment": p.Env.Name,
			"exports":     entries,
		})
	}

	if len(entries) == 0 {
		return fmt.Errorf("%s exports nothing under the %s environment", args[0], p.Env.Name)
	}
	var b strings.Builder
	for i, entry := range entries {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s -> %s", entry.Subpath, entry.Target)
	}
	return output.Text(osfs, b.String())
}

// FindPackage locates a package directory. A path to a directory holding
// package.json is used as is; otherwise name is looked up in node_modules
// from rootDir upwards.
func FindPackage(fsys fs.FileSystem, rootDir, name string) (string, error) {
	if fs.IsFile(fsys, filepath.Join(name, "package.json")) {
		return filepath.Abs(name)
	}

	pkgName, subpath, err := packagejson.ParsePackageSpecifier(name)
	if err != nil {
		return "", err
	}
	if subpath != "." {
		return "", fmt.Errorf("%q names a subpath; pass the package name %q", name, pkgName)
	}

	dir := rootDir
	for {
		candidate := filepath.Join(dir, "node_modules", pkgName)
		if fs.IsFile(fsys, filepath.Join(candidate, "package.json")) {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("package %q not found in node_modules above %s", pkgName, rootDir)
		}
		dir = parent
	}
}
