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
	"path/filepath"
	"strings"

	"bennypowers.dev/esresolve/tsconfig"
)

// resolveTsPaths applies the importer's tsconfig path mapping to a bare
// specifier. The second result is false when no mapping applies and the
// caller should continue with package resolution. Once a paths key matches,
// its templates are the only candidates: exhausting them is an error.
func (r *Resolver) resolveTsPaths(specifier, importer string) (string, bool, error) {
	if !r.useTsConfig || inNodeModules(importer) {
		return "", false, nil
	}

	loader := tsconfig.NewLoader(r.fs, r.tsconfigs)
	cfgPath, ok := loader.Find(filepath.Dir(importer))
	if !ok {
		r.debugf("no tsconfig found for %s", importer)
		return "", false, nil
	}

	cfg, err := loader.Load(cfgPath)
	if err != nil {
		if errors.Is(err, tsconfig.ErrCircularExtends) {
			return "", false, fail(ErrCircularExtends, cfgPath, err)
		}
		return "", false, fail(ErrInvalidTsConfig, cfgPath, err)
	}

	if mapping, ok := cfg.Match(specifier); ok {
		r.debugf("%s maps %q through paths key %q", cfgPath, specifier, mapping.Pattern)
		last := ""
		for _, candidate := range mapping.Candidates {
			last = candidate
			if found, err := r.probe(candidate); err == nil {
				return found, true, nil
			}
		}
		return "", false, fail(ErrPathMappingExhausted, last, nil)
	}

	if cfg.BaseURL != "" {
		candidate := filepath.Join(cfg.BaseURL, specifier)
		if found, err := r.probe(candidate); err == nil {
			r.debugf("%s resolves %q against baseUrl", cfgPath, specifier)
			return found, true, nil
		}
	}

	return "", false, nil
}

func inNodeModules(path string) bool {
	for segment := range strings.SplitSeq(filepath.ToSlash(path), "/") {
		if segment == "node_modules" {
			return true
		}
	}
	return false
}
