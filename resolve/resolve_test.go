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
package resolve_test

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bennypowers.dev/esresolve/internal/mapfs"
	"bennypowers.dev/esresolve/packagejson"
	"bennypowers.dev/esresolve/resolve"
	"bennypowers.dev/esresolve/testutil"
)

const root = "/project"

type resolveCase struct {
	name      string
	specifier string
	importer  string
	env       resolve.Environment
	want      string
}

func newFixture(t *testing.T) *mapfs.MapFileSystem {
	t.Helper()
	return testutil.NewFixtureFS(t, "resolve", root)
}

func runCases(t *testing.T, r *resolve.Resolver, cases []resolveCase) {
	t.Helper()
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			env := tt.env
			if env.Name == "" {
				env = resolve.Browser
			}
			got, err := r.ForEnvironment(env).Resolve(tt.specifier, root+"/"+tt.importer)
			require.NoError(t, err)
			assert.Equal(t, root+"/"+tt.want, got)
		})
	}
}

func requireKind(t *testing.T, err error, kind error) *resolve.Error {
	t.Helper()
	require.Error(t, err)
	assert.ErrorIs(t, err, kind)
	var rerr *resolve.Error
	require.True(t, errors.As(err, &rerr), "expected *resolve.Error, got %T", err)
	return rerr
}

func TestResolveRelative(t *testing.T) {
	r := resolve.New(newFixture(t), resolve.Browser)

	runCases(t, r, []resolveCase{
		{name: "exact file", specifier: "./js.js", importer: "relative/index.js", want: "relative/js.js"},
		{name: "appended js", specifier: "./js", importer: "relative/index.js", want: "relative/js.js"},
		{name: "appended ts", specifier: "./ts", importer: "relative/index.js", want: "relative/ts.ts"},
		{name: "appended tsx", specifier: "./tsx", importer: "relative/index.js", want: "relative/tsx.tsx"},
		{name: "appended jsx", specifier: "./jsx", importer: "relative/index.js", want: "relative/jsx.jsx"},
		{name: "appended css", specifier: "./css", importer: "relative/index.js", want: "relative/css.css"},
		{name: "rewritten js to ts", specifier: "./ts.js", importer: "relative/index.js", want: "relative/ts.ts"},
		{name: "rewritten js to tsx", specifier: "./tsx.js", importer: "relative/index.js", want: "relative/tsx.tsx"},
		{name: "rewritten mjs to mts", specifier: "./mod.mjs", importer: "relative/index.js", want: "relative/mod.mts"},
		{name: "exact path beats rewrite", specifier: "./both.js", importer: "relative/index.js", want: "relative/both.js"},
		{name: "extension order", specifier: "./both", importer: "relative/index.js", want: "relative/both.ts"},
		{name: "tsx first", specifier: "./priority/target", importer: "relative/index.js", want: "relative/priority/target.tsx"},
		{name: "parent directory", specifier: "../ts", importer: "relative/parent/index.js", want: "relative/ts.ts"},
		{name: "dot is the directory index", specifier: ".", importer: "relative/parent/other.js", want: "relative/parent/index.js"},
		{name: "trailing slash skips the sibling file", specifier: "./dironly/", importer: "relative/index.js", want: "relative/dironly/index.js"},
		{name: "without slash the file wins", specifier: "./dironly", importer: "relative/index.js", want: "relative/dironly.js"},
		{name: "dot-dot is the parent index", specifier: "..", importer: "relative/dironly/index.js", want: "relative/index.js"},
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := r.Resolve("./nope", root+"/relative/index.js")
		rerr := requireKind(t, err, resolve.ErrModuleNotFound)
		assert.Equal(t, "./nope", rerr.Specifier)
		assert.Equal(t, root+"/relative/index.js", rerr.Importer)
		assert.Equal(t, root+"/relative/nope", rerr.Candidate)
	})

	t.Run("relative importer", func(t *testing.T) {
		_, err := r.Resolve("./js", "relative/index.js")
		rerr := requireKind(t, err, resolve.ErrUnsupportedSpecifier)
		assert.Equal(t, "relative/index.js", rerr.Importer)
		assert.ErrorContains(t, err, "not an absolute path")
	})

	t.Run("trailing slash without a directory", func(t *testing.T) {
		_, err := r.Resolve("./js/", root+"/relative/index.js")
		requireKind(t, err, resolve.ErrModuleNotFound)
	})

	t.Run("absolute", func(t *testing.T) {
		got, err := r.Resolve(root+"/relative/ts", root+"/directory/index.js")
		require.NoError(t, err)
		assert.Equal(t, root+"/relative/ts.ts", got)
	})
}

func TestResolveDirectory(t *testing.T) {
	r := resolve.New(newFixture(t), resolve.Browser)

	runCases(t, r, []resolveCase{
		{name: "index", specifier: "./pkg", importer: "directory/index.js", want: "directory/pkg/index.js"},
		{name: "main for node", specifier: "./package_json_main", importer: "directory/index.js", env: resolve.Node, want: "directory/package_json_main/main.js"},
		{name: "browser for browser", specifier: "./package_json_browser", importer: "directory/index.js", want: "directory/package_json_browser/browser.js"},
		{name: "main when node ignores browser", specifier: "./package_json_browser", importer: "directory/index.js", env: resolve.Node, want: "directory/package_json_browser/main.js"},
		{name: "missing main falls back to index", specifier: "./package_json_missing_main", importer: "directory/index.js", want: "directory/package_json_missing_main/index.js"},
		{name: "invalid package.json is ignored", specifier: "./package_json_invalid", importer: "directory/index.js", want: "directory/package_json_invalid/index.js"},
		{name: "main naming a directory", specifier: "./main_dir", importer: "directory/index.js", want: "directory/main_dir/lib/index.js"},
	})
}

func TestResolvePackages(t *testing.T) {
	r := resolve.New(newFixture(t), resolve.Browser)

	runCases(t, r, []resolveCase{
		{name: "main", specifier: "react", importer: "packages/index.js", want: "packages/node_modules/react/index.js"},
		{name: "subfile", specifier: "react/jsx-runtime", importer: "packages/index.js", want: "packages/node_modules/react/jsx-runtime.js"},
		{name: "from a deep directory", specifier: "react", importer: "packages/deep/dir1/dir2/dir3/index.js", want: "packages/node_modules/react/index.js"},
		{name: "exports import condition", specifier: "exports", importer: "packages/import_exports.mjs", want: "packages/node_modules/exports/index.mjs"},
		{name: "exports default condition", specifier: "exports", importer: "packages/import_exports.mjs", env: resolve.Node, want: "packages/node_modules/exports/index.cjs"},
		{name: "exports pattern", specifier: "exports/features/a", importer: "packages/index.js", want: "packages/node_modules/exports/features/a.js"},
		{name: "esm under browser", specifier: "default-only", importer: "packages/index.js", want: "packages/node_modules/default-only/esm.js"},
		{name: "only default matches", specifier: "default-only", importer: "packages/index.js", env: resolve.Node, want: "packages/node_modules/default-only/cjs.js"},
		{name: "conditional sugar", specifier: "@emotion/styled", importer: "packages/index.js", want: "packages/node_modules/@emotion/styled/dist/emotion-styled.browser.esm.js"},
		{name: "conditional sugar for node", specifier: "@emotion/styled", importer: "packages/index.js", env: resolve.Node, want: "packages/node_modules/@emotion/styled/dist/emotion-styled.cjs.js"},
		{name: "closest package shadows", specifier: "shadowed", importer: "packages/nested/src/index.js", want: "packages/nested/node_modules/shadowed/inner.js"},
		{name: "outer package", specifier: "shadowed", importer: "packages/index.js", want: "packages/node_modules/shadowed/outer.js"},
		{name: "browser map", specifier: "browser-map", importer: "packages/index.js", want: "packages/node_modules/browser-map/lib/browser.js"},
		{name: "browser map ignored for node", specifier: "browser-map", importer: "packages/index.js", env: resolve.Node, want: "packages/node_modules/browser-map/lib/index.js"},
		{name: "browser map key without extension", specifier: "browser-stem", importer: "packages/index.js", want: "packages/node_modules/browser-stem/lib/browser.js"},
		{name: "package without manifest", specifier: "no-manifest", importer: "packages/index.js", want: "packages/node_modules/no-manifest/index.js"},
		{name: "subpath without exports", specifier: "legacy/lib/util", importer: "packages/index.js", want: "packages/node_modules/legacy/lib/util.js"},
	})

	errorCases := []struct {
		name      string
		specifier string
		kind      error
	}{
		{"exports are exhaustive", "exports/secret.js", resolve.ErrExportsPathNotExported},
		{"null export target", "exports/features/internal/b", resolve.ErrExportsPathNotExported},
		{"missing package", "@angular/core", resolve.ErrPackageNotFound},
		{"malformed package.json", "broken", resolve.ErrInvalidPackageJSON},
		{"mixed exports keys", "mixed", resolve.ErrInvalidPackageJSON},
		{"missing entry", "missing-main", resolve.ErrModuleNotFound},
		{"malformed scoped name", "@scope", resolve.ErrUnsupportedSpecifier},
		{"node scheme in browser", "node:fs", resolve.ErrUnsupportedSpecifier},
	}
	for _, tt := range errorCases {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Resolve(tt.specifier, root+"/packages/index.js")
			requireKind(t, err, tt.kind)
		})
	}

	t.Run("missing package records the last directory examined", func(t *testing.T) {
		_, err := r.Resolve("@angular/core", root+"/packages/index.js")
		rerr := requireKind(t, err, resolve.ErrPackageNotFound)
		assert.Equal(t, "/node_modules/@angular/core", rerr.Candidate)
	})

	t.Run("not exported wraps the package.json cause", func(t *testing.T) {
		_, err := r.Resolve("exports/secret.js", root+"/packages/index.js")
		assert.ErrorIs(t, err, packagejson.ErrNotExported)
	})
}

func TestResolveSelfAndInternalImports(t *testing.T) {
	r := resolve.New(newFixture(t), resolve.Browser)

	runCases(t, r, []resolveCase{
		{name: "self reference", specifier: "@acme/self", importer: "selfref/src/index.js", want: "selfref/src/index.js"},
		{name: "self reference subpath", specifier: "@acme/self/utils", importer: "selfref/src/index.js", want: "selfref/src/utils.js"},
		{name: "internal import", specifier: "#config", importer: "selfref/src/index.js", want: "selfref/src/config.js"},
		{name: "internal pattern", specifier: "#internal/log", importer: "selfref/src/index.js", want: "selfref/src/internal/log.js"},
		{name: "internal default condition", specifier: "#fetch", importer: "selfref/src/index.js", want: "selfref/src/fetch-shim.js"},
		{name: "internal import of a package", specifier: "#fetch", importer: "selfref/src/index.js", env: resolve.Node, want: "selfref/node_modules/node-fetch/index.js"},
	})

	t.Run("internal import of a builtin", func(t *testing.T) {
		got, err := r.ForEnvironment(resolve.Node).Resolve("#fs", root+"/selfref/src/index.js")
		require.NoError(t, err)
		assert.Equal(t, "node:fs", got)
	})

	t.Run("builtin target in browser", func(t *testing.T) {
		_, err := r.Resolve("#fs", root+"/selfref/src/index.js")
		requireKind(t, err, resolve.ErrPackageNotFound)
	})

	t.Run("self reference outside exports", func(t *testing.T) {
		_, err := r.Resolve("@acme/self/src/config.js", root+"/selfref/src/index.js")
		requireKind(t, err, resolve.ErrExportsPathNotExported)
	})

	t.Run("undeclared internal import", func(t *testing.T) {
		_, err := r.Resolve("#nope", root+"/selfref/src/index.js")
		requireKind(t, err, resolve.ErrExportsPathNotExported)
	})

	t.Run("internal import without a package", func(t *testing.T) {
		_, err := r.Resolve("#config", root+"/relative/index.js")
		requireKind(t, err, resolve.ErrPackageNotFound)
	})
}

func TestResolveTsConfigPaths(t *testing.T) {
	r := resolve.New(newFixture(t), resolve.Browser)

	runCases(t, r, []resolveCase{
		{name: "exact key beats wildcard", specifier: "@/utils", importer: "tsproj/src/app.ts", want: "tsproj/special/utils.ts"},
		{name: "wildcard key", specifier: "@/components/button", importer: "tsproj/src/app.ts", want: "tsproj/src/components/button.tsx"},
		{name: "paths shadow packages", specifier: "react", importer: "tsproj/src/app.ts", want: "tsproj/shims/react.ts"},
		{name: "baseUrl fallback", specifier: "lib/direct", importer: "tsproj/src/app.ts", want: "tsproj/lib/direct.ts"},
		{name: "falls through to node_modules", specifier: "lodash", importer: "tsproj/src/app.ts", want: "tsproj/node_modules/lodash/index.js"},
		{name: "relative specifiers ignore paths", specifier: "./utils", importer: "tsproj/src/app.ts", want: "tsproj/src/utils.ts"},
		{name: "paths without baseUrl", specifier: "$lib/math", importer: "tsproj-nobase/src/index.ts", want: "tsproj-nobase/lib/math.ts"},
	})

	t.Run("exhausted mapping commits to the best key", func(t *testing.T) {
		_, err := r.Resolve("~missing/x", root+"/tsproj/src/app.ts")
		rerr := requireKind(t, err, resolve.ErrPathMappingExhausted)
		assert.Equal(t, root+"/tsproj/also-nowhere/x", rerr.Candidate)
	})

	t.Run("no package after no mapping", func(t *testing.T) {
		_, err := r.Resolve("@angular/core", root+"/tsproj/src/app.ts")
		requireKind(t, err, resolve.ErrPackageNotFound)
	})

	t.Run("circular extends", func(t *testing.T) {
		_, err := r.Resolve("anything", root+"/tsproj-cycle/src/index.ts")
		requireKind(t, err, resolve.ErrCircularExtends)
	})

	t.Run("invalid tsconfig", func(t *testing.T) {
		_, err := r.Resolve("anything", root+"/tsproj-invalid/src/index.ts")
		requireKind(t, err, resolve.ErrInvalidTsConfig)
	})

	t.Run("disabled", func(t *testing.T) {
		_, err := r.WithoutTsConfig().Resolve("react", root+"/tsproj/src/app.ts")
		requireKind(t, err, resolve.ErrPackageNotFound)
	})
}

func TestResolveBuiltins(t *testing.T) {
	r := resolve.New(newFixture(t), resolve.Node)
	importer := root + "/packages/index.js"

	for specifier, want := range map[string]string{
		"fs":          "node:fs",
		"node:path":   "node:path",
		"fs/promises": "node:fs/promises",
		"node:test":   "node:test",
	} {
		t.Run(specifier, func(t *testing.T) {
			got, err := r.Resolve(specifier, importer)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}

	t.Run("browser treats core names as packages", func(t *testing.T) {
		_, err := r.ForEnvironment(resolve.Browser).Resolve("fs", importer)
		requireKind(t, err, resolve.ErrPackageNotFound)
	})

	assert.True(t, resolve.IsBuiltin("node:anything"))
	assert.True(t, resolve.IsBuiltin("worker_threads"))
	assert.False(t, resolve.IsBuiltin("fs/extra"))
	assert.False(t, resolve.IsBuiltin("node:"))
}

func TestResolveSymlinks(t *testing.T) {
	mfs := newFixture(t)
	mfs.AddSymlink(root+"/packages/node_modules/linked", "../../linked-src")

	r := resolve.New(mfs, resolve.Browser)
	got, err := r.Resolve("linked", root+"/packages/index.js")
	require.NoError(t, err)
	assert.Equal(t, root+"/linked-src/index.js", got, "results are canonical")

	got, err = r.Resolve("./index.js", root+"/packages/node_modules/linked/other.js")
	require.NoError(t, err)
	assert.Equal(t, root+"/linked-src/index.js", got)
}

func TestResolveProperties(t *testing.T) {
	r := resolve.New(newFixture(t), resolve.Browser)

	requests := [][2]string{
		{"./ts", "relative/index.js"},
		{"react", "packages/deep/dir1/dir2/dir3/index.js"},
		{"@emotion/styled", "packages/index.js"},
		{"@/utils", "tsproj/src/app.ts"},
		{"#internal/log", "selfref/src/index.js"},
	}

	t.Run("idempotent", func(t *testing.T) {
		for _, req := range requests {
			first, err := r.Resolve(req[0], root+"/"+req[1])
			require.NoError(t, err)
			second, err := r.Resolve(req[0], root+"/"+req[1])
			require.NoError(t, err)
			assert.Equal(t, first, second)
		}
	})

	t.Run("round trip", func(t *testing.T) {
		for _, req := range requests {
			resolved, err := r.Resolve(req[0], root+"/"+req[1])
			require.NoError(t, err)
			again, err := r.Resolve(resolved, root+"/directory/index.js")
			require.NoError(t, err)
			assert.Equal(t, resolved, again)
		}
	})

	t.Run("concurrent resolutions share caches", func(t *testing.T) {
		var wg sync.WaitGroup
		errs := make(chan error, 10*len(requests))
		for i := range 10 {
			for _, req := range requests {
				wg.Go(func() {
					if _, err := r.Resolve(req[0], root+"/"+req[1]); err != nil {
						errs <- fmt.Errorf("round %d: %w", i, err)
					}
				})
			}
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			t.Error(err)
		}
	})
}

type recordingLogger struct {
	mu       sync.Mutex
	debug    []string
	warnings []string
}

func (l *recordingLogger) Debug(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.debug = append(l.debug, fmt.Sprintf(format, args...))
}

func (l *recordingLogger) Warning(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warnings = append(l.warnings, fmt.Sprintf(format, args...))
}

func TestResolverBuilders(t *testing.T) {
	mfs := newFixture(t)
	logger := &recordingLogger{}
	base := resolve.New(mfs, resolve.Browser)
	r := base.WithLogger(logger)

	_, err := r.Resolve("./package_json_invalid", root+"/directory/index.js")
	require.NoError(t, err)
	assert.NotEmpty(t, logger.debug)
	assert.NotEmpty(t, logger.warnings, "invalid directory package.json is reported")

	assert.Equal(t, "browser", base.Environment().Name)
	assert.Equal(t, "node", base.ForEnvironment(resolve.Node).Environment().Name)
	assert.Equal(t, "browser", base.Environment().Name, "builders do not mutate the receiver")

	shared := packagejson.NewMemoryCache()
	a := resolve.New(mfs, resolve.Browser).WithPackageCache(shared)
	b := resolve.New(mfs, resolve.Node).WithPackageCache(shared)
	_, err = a.Resolve("react", root+"/packages/index.js")
	require.NoError(t, err)
	_, err = b.Resolve("react", root+"/packages/index.js")
	require.NoError(t, err)
	_, ok := shared.Get(root + "/packages/node_modules/react/package.json")
	assert.True(t, ok)
}

func TestErrorMessage(t *testing.T) {
	err := &resolve.Error{
		Kind:      resolve.ErrModuleNotFound,
		Specifier: "./x",
		Importer:  "/p/a.js",
		Candidate: "/p/x",
	}
	assert.Equal(t, `cannot resolve "./x" from /p/a.js: module not found (last tried /p/x)`, err.Error())
	assert.ErrorIs(t, err, resolve.ErrModuleNotFound)
}

func TestErrorCode(t *testing.T) {
	r := resolve.New(newFixture(t), resolve.Browser)

	_, err := r.Resolve("./nope", root+"/relative/index.js")
	assert.Equal(t, "MODULE_NOT_FOUND", requireKind(t, err, resolve.ErrModuleNotFound).Code())

	_, err = r.Resolve("@angular/core", root+"/packages/index.js")
	assert.Equal(t, "PACKAGE_NOT_FOUND", requireKind(t, err, resolve.ErrPackageNotFound).Code())

	unknown := &resolve.Error{Kind: errors.New("other")}
	assert.Equal(t, "UNKNOWN", unknown.Code())
}

func TestEnvironments(t *testing.T) {
	env, ok := resolve.LookupEnvironment("Browser")
	require.True(t, ok)
	assert.Equal(t, []string{"browser", "import", "default"}, env.Conditions)

	_, ok = resolve.LookupEnvironment("deno")
	assert.False(t, ok)
	assert.Equal(t, []string{"browser", "node"}, resolve.EnvironmentNames())

	worker := resolve.Browser.Merge(resolve.Environment{
		Name:       "worker",
		Conditions: []string{"worker", "import", "default"},
	})
	assert.Equal(t, "worker", worker.Name)
	assert.Equal(t, resolve.Browser.MainFields, worker.MainFields)
	assert.Equal(t, []string{"browser", "import", "default"}, resolve.Browser.Conditions, "merge leaves the base untouched")
}

func TestToWebPath(t *testing.T) {
	tests := []struct {
		rootDir  string
		fullPath string
		expected string
	}{
		{"/app", "/app/node_modules/lit/index.js", "/node_modules/lit/index.js"},
		{"/app", "/app/src/main.js", "/src/main.js"},
		{"/app", "/other/file.js", ""}, // Outside root
		{"/app", "/app", ""},           // Same as root
	}

	for _, tt := range tests {
		result := resolve.ToWebPath(tt.rootDir, tt.fullPath)
		if result != tt.expected {
			t.Errorf("ToWebPath(%q, %q) = %q, want %q", tt.rootDir, tt.fullPath, result, tt.expected)
		}
	}
}
