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
package tsconfig_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bennypowers.dev/esresolve/internal/mapfs"
	"bennypowers.dev/esresolve/testutil"
	"bennypowers.dev/esresolve/tsconfig"
)

func TestParse(t *testing.T) {
	t.Run("comments and trailing commas", func(t *testing.T) {
		cfg, err := tsconfig.Parse([]byte(`{
			// project settings
			"extends": "./base",
			"compilerOptions": {
				/* aliases */
				"baseUrl": ".",
				"paths": { "@/*": ["./src/*"], },
			},
		}`), "/p/tsconfig.json")
		require.NoError(t, err)
		assert.Equal(t, "./base", cfg.Extends)
		require.NotNil(t, cfg.BaseURL)
		assert.Equal(t, ".", *cfg.BaseURL)
		assert.Equal(t, []string{"./src/*"}, cfg.Paths["@/*"])
	})

	t.Run("missing fields", func(t *testing.T) {
		cfg, err := tsconfig.Parse([]byte(`{}`), "/p/tsconfig.json")
		require.NoError(t, err)
		assert.Empty(t, cfg.Extends)
		assert.Nil(t, cfg.BaseURL)
		assert.Nil(t, cfg.Paths)
	})

	invalid := map[string]string{
		"malformed":        `{"compilerOptions": `,
		"extends array":    `{"extends": ["./a", "./b"]}`,
		"paths not arrays": `{"compilerOptions": {"paths": {"@/*": "./src/*"}}}`,
		"double wildcard":  `{"compilerOptions": {"paths": {"@/*/*": ["./src/*"]}}}`,
	}
	for name, data := range invalid {
		t.Run(name, func(t *testing.T) {
			_, err := tsconfig.Parse([]byte(data), "/p/tsconfig.json")
			assert.ErrorIs(t, err, tsconfig.ErrInvalid)
		})
	}
}

func TestFind(t *testing.T) {
	mfs := mapfs.New()
	mfs.AddFile("/project/tsconfig.json", `{}`, 0644)
	mfs.AddFile("/project/packages/app/jsconfig.json", `{}`, 0644)
	mfs.AddFile("/project/packages/lib/tsconfig.json", `{}`, 0644)
	mfs.AddFile("/project/packages/lib/jsconfig.json", `{}`, 0644)
	mfs.AddFile("/project/packages/lib/src/index.ts", ``, 0644)

	loader := tsconfig.NewLoader(mfs, nil)

	tests := []struct {
		dir  string
		want string
	}{
		{"/project/src", "/project/tsconfig.json"},
		{"/project/packages/app/src", "/project/packages/app/jsconfig.json"},
		{"/project/packages/lib/src", "/project/packages/lib/tsconfig.json"},
	}
	for _, tt := range tests {
		t.Run(tt.dir, func(t *testing.T) {
			got, ok := loader.Find(tt.dir)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	_, ok := tsconfig.NewLoader(mapfs.New(), nil).Find("/elsewhere")
	assert.False(t, ok)
}

func TestLoadInheritance(t *testing.T) {
	mfs := testutil.NewFixtureFS(t, "tsconfig/extends", "/project")
	loader := tsconfig.NewLoader(mfs, tsconfig.NewMemoryCache())

	t.Run("child paths with parent baseUrl", func(t *testing.T) {
		cfg, err := loader.Load("/project/app/tsconfig.json")
		require.NoError(t, err)
		assert.Equal(t, "/project", cfg.BaseURL, "baseUrl is relative to the parent that declares it")
		assert.Equal(t, "/project", cfg.PathsBase)
		assert.Contains(t, cfg.Paths, "~/*")
		assert.Equal(t, []string{
			"/project/app/tsconfig.json",
			"/project/tsconfig.base.json",
		}, cfg.Chain)
	})

	t.Run("child baseUrl wins", func(t *testing.T) {
		cfg, err := loader.Load("/project/override/tsconfig.json")
		require.NoError(t, err)
		assert.Equal(t, "/project/override/src", cfg.BaseURL)
		assert.Contains(t, cfg.Paths, "@shared/*", "paths are inherited whole")
	})

	t.Run("package extends", func(t *testing.T) {
		cfg, err := loader.Load("/project/pkgext/tsconfig.json")
		require.NoError(t, err)
		assert.Equal(t, "/project/node_modules/@company/tsconfig/base", cfg.BaseURL)
		assert.Len(t, cfg.Chain, 2)
	})

	t.Run("paths without baseUrl are relative to the declaring config", func(t *testing.T) {
		cfg, err := loader.Load("/project/nobase/tsconfig.json")
		require.NoError(t, err)
		assert.Empty(t, cfg.BaseURL)
		assert.Equal(t, "/project/nobase", cfg.PathsBase)
	})

	t.Run("circular extends", func(t *testing.T) {
		_, err := loader.Load("/project/cycle/a.json")
		assert.ErrorIs(t, err, tsconfig.ErrCircularExtends)
	})

	t.Run("missing extends target", func(t *testing.T) {
		_, err := loader.Load("/project/missing/tsconfig.json")
		assert.ErrorIs(t, err, tsconfig.ErrInvalid)
	})

	t.Run("cached", func(t *testing.T) {
		first, err := loader.Load("/project/app/tsconfig.json")
		require.NoError(t, err)
		second, err := loader.Load("/project/app/tsconfig.json")
		require.NoError(t, err)
		assert.Same(t, first, second)
	})
}

func TestMatch(t *testing.T) {
	cfg := &tsconfig.EffectiveConfig{
		BaseURL:   "/project",
		PathsBase: "/project",
		Paths: map[string][]string{
			"@/*":            {"./src/*"},
			"@/utils":        {"./special/utils.ts"},
			"@/components/*": {"./src/ui/*", "./legacy/components/*"},
			"*":              {"./types/*"},
			"/abs/*":         {"/vendor/*"},
		},
	}

	tests := []struct {
		name       string
		specifier  string
		pattern    string
		candidates []string
	}{
		{"exact beats wildcard", "@/utils", "@/utils", []string{"/project/special/utils.ts"}},
		{"wildcard capture", "@/lib/date", "@/*", []string{"/project/src/lib/date"}},
		{"longest prefix", "@/components/button", "@/components/*", []string{
			"/project/src/ui/button",
			"/project/legacy/components/button",
		}},
		{"catch-all", "lodash", "*", []string{"/project/types/lodash"}},
		{"absolute template", "/abs/x", "/abs/*", []string{"/vendor/x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, ok := cfg.Match(tt.specifier)
			require.True(t, ok)
			assert.Equal(t, tt.pattern, m.Pattern)
			assert.Equal(t, tt.candidates, m.Candidates)
		})
	}

	t.Run("no paths", func(t *testing.T) {
		_, ok := (&tsconfig.EffectiveConfig{BaseURL: "/project"}).Match("@/utils")
		assert.False(t, ok)
	})
}
