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

// Package scan provides the scan command for esresolve.
package scan

import (
	"fmt"
	"path/filepath"
	"slices"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"bennypowers.dev/esresolve/fs"
	"bennypowers.dev/esresolve/importmap"
	"bennypowers.dev/esresolve/internal/logger"
	"bennypowers.dev/esresolve/internal/output"
	"bennypowers.dev/esresolve/internal/project"
	"bennypowers.dev/esresolve/packagejson"
	"bennypowers.dev/esresolve/scan"
)

// Cmd is the scan cobra command that lists and resolves the imports of
// source and HTML files.
var Cmd = &cobra.Command{
	Use:   "scan [file...]",
	Short: "Resolve every import in JS, TS and HTML files",
	Long: `Scan JavaScript, TypeScript and HTML files for imports and resolve each one.

Static imports, re-exports, dynamic import() calls with literal arguments and
require() calls are reported with their line, resolved file or error code.
HTML files contribute module scripts, modulepreload links and inline scripts.

For a single file, outputs one JSON result. For multiple files (via arguments,
--glob, or the files list in .config/esresolve.yaml), outputs NDJSON with one
result per line. --format importmap builds an import map of the bare
specifiers instead.`,
	Example: `  # Scan one file
  esresolve scan src/app.ts

  # Scan a tree in parallel (NDJSON output)
  esresolve scan --glob "src/**/*.{ts,tsx}" -j 8

  # Build an import map for a site
  esresolve scan --glob "_site/**/*.html" --format importmap

  # Serve packages from a CDN
  esresolve scan index.html --format html --template "https://esm.sh/{package}@{version}/{path}"`,
	RunE: run,
}

func init() {
	Cmd.Flags().StringP("format", "f", "json", "Output format (json, importmap, html)")
	Cmd.Flags().String("glob", "", "Glob pattern selecting files (e.g., \"src/**/*.ts\")")
	Cmd.Flags().IntP("jobs", "j", 0, "Number of parallel workers (default: number of CPUs)")
	Cmd.Flags().String("template", "", "URL template for node_modules files in import maps")
	Cmd.Flags().String("base", "", "Import map file merged under the generated one")
	Cmd.Flags().Bool("no-tsconfig", false, "Ignore tsconfig.json path mapping")
}

func run(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	switch format {
	case "json", "importmap", "html":
		// valid
	default:
		return fmt.Errorf("invalid format %q: must be one of json, importmap, html", format)
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

	globPattern, _ := cmd.Flags().GetString("glob")
	files, err := collectFiles(osfs, p, args, globPattern)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no files to scan: provide file arguments, use --glob, or list files in .config/esresolve.yaml")
	}

	parallel, _ := cmd.Flags().GetInt("jobs")
	scanner := scan.New(osfs, p.Resolver, p.Root)

	var results []scan.Result
	var errorCount, importCount, unresolved int
	for result := range scanner.ScanBatch(files, parallel) {
		if result.Error != "" {
			errorCount++
			logger.Warning("%s: %s", result.File, result.Error)
		}
		failed := result.Failed()
		for _, imp := range failed {
			logger.Warning("%s:%d: %s", result.File, imp.Line, imp.Error)
		}
		importCount += len(result.Imports)
		unresolved += len(failed)
		results = append(results, result)
	}
	logger.Info("scanned %d files: %d imports, %d unresolved", len(files), importCount, unresolved)
	// Completion order is nondeterministic
	slices.SortFunc(results, func(a, b scan.Result) int {
		return slices.Index(files, a.File) - slices.Index(files, b.File)
	})

	if errorCount == len(files) {
		return fmt.Errorf("all %d files failed to scan", errorCount)
	}

	switch format {
	case "importmap", "html":
		im, err := buildImportMap(cmd, osfs, p, results)
		if err != nil {
			return err
		}
		return output.Text(osfs, im.Format(format))
	}

	if len(results) == 1 {
		return output.JSON(osfs, results[0])
	}
	return output.NDJSON(osfs, results)
}

// collectFiles gathers files from args, the glob pattern, or the config's
// file list, deduplicating by absolute path. Glob and config matches honor
// the config's exclude patterns; explicit arguments do not.
func collectFiles(osfs fs.FileSystem, p *project.Project, args []string, globPattern string) ([]string, error) {
	seen := make(map[string]struct{})
	var files []string
	add := func(path string, filtered bool) error {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return fmt.Errorf("invalid file path %q: %w", path, err)
		}
		if filtered && p.Config.Excluded(p.Root, absPath) {
			return nil
		}
		if _, exists := seen[absPath]; !exists {
			seen[absPath] = struct{}{}
			files = append(files, absPath)
		}
		return nil
	}

	for _, arg := range args {
		if err := add(arg, false); err != nil {
			return nil, err
		}
	}

	if globPattern != "" {
		matches, err := doublestar.FilepathGlob(globPattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("invalid glob pattern: %w", err)
		}
		for _, match := range matches {
			if err := add(match, true); err != nil {
				return nil, err
			}
		}
	}

	if len(args) == 0 && globPattern == "" {
		matches, err := p.Config.ExpandFiles(osfs, p.Root)
		if err != nil {
			return nil, err
		}
		for _, match := range matches {
			if err := add(match, true); err != nil {
				return nil, err
			}
		}
	}

	return files, nil
}

func buildImportMap(cmd *cobra.Command, osfs fs.FileSystem, p *project.Project, results []scan.Result) (*importmap.ImportMap, error) {
	opts := importmap.Options{
		Root:     p.Root,
		FS:       osfs,
		Packages: packagejson.NewMemoryCache(),
	}
	if pattern, _ := cmd.Flags().GetString("template"); pattern != "" {
		tmpl, err := importmap.ParseTemplate(pattern)
		if err != nil {
			return nil, err
		}
		opts.Template = tmpl
	}

	im, err := importmap.FromResults(results, opts)
	if err != nil {
		return nil, err
	}

	if basePath, _ := cmd.Flags().GetString("base"); basePath != "" {
		data, err := osfs.ReadFile(basePath)
		if err != nil {
			return nil, fmt.Errorf("reading base import map: %w", err)
		}
		base, err := importmap.Parse(data)
		if err != nil {
			return nil, fmt.Errorf("parsing base import map %s: %w", basePath, err)
		}
		im = base.Merge(im)
	}
	return im, nil
}
