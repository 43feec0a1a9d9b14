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

	"bennypowers.dev/esresolve/fs"
	"bennypowers.dev/esresolve/packagejson"
)

// packageScope is the nearest package.json at or above a directory.
type packageScope struct {
	dir string
	pkg *packagejson.PackageJSON
}

// resolvePackageSpecifier resolves a bare specifier through the owning
// package's own exports, then the nearest node_modules directory holding the
// package.
func (r *Resolver) resolvePackageSpecifier(specifier, fromDir string) (string, error) {
	name, subpath, err := packagejson.ParsePackageSpecifier(specifier)
	if err != nil {
		return "", fail(ErrUnsupportedSpecifier, "", err)
	}

	if found, ok, err := r.resolveSelf(name, subpath, fromDir); ok || err != nil {
		return found, err
	}

	pkgDir, last := r.findPackageDir(name, fromDir)
	if pkgDir == "" {
		return "", fail(ErrPackageNotFound, last, nil)
	}
	return r.resolvePackage(pkgDir, subpath)
}

// findPackageDir walks from dir toward the root looking for
// node_modules/<name>. The closest match shadows the rest. On a miss it
// returns "" and the last candidate examined.
func (r *Resolver) findPackageDir(name, dir string) (found, last string) {
	for current := dir; ; {
		if filepath.Base(current) != "node_modules" {
			nodeModules := filepath.Join(current, "node_modules")
			r.debugf("visiting %s", nodeModules)
			last = filepath.Join(nodeModules, name)
			if fs.IsDir(r.fs, last) {
				return last, ""
			}
		}
		parent := filepath.Dir(current)
		if parent == current {
			return "", last
		}
		current = parent
	}
}

// resolvePackage resolves subpath ("." or "./rest") inside a package
// directory. A declared exports field is exhaustive; otherwise the entry
// fields or the subpath itself are probed.
func (r *Resolver) resolvePackage(pkgDir, subpath string) (string, error) {
	pkg, err := r.loadPackage(pkgDir)
	if err != nil {
		return "", err
	}

	var found string
	switch {
	case pkg != nil && pkg.HasExports():
		found, err = r.resolveExports(pkg, pkgDir, subpath)
	case subpath == ".":
		var ok bool
		if found, ok = r.loadAsDirectory(pkgDir); !ok {
			err = fail(ErrModuleNotFound, pkgDir, nil)
		}
	default:
		found, err = r.probePath(filepath.Join(pkgDir, subpath), subpath)
	}
	if err != nil {
		return "", err
	}

	return r.remapBrowser(pkg, pkgDir, found)
}

// loadPackage reads the package.json of a package directory. Packages
// without one resolve by directory probing alone.
func (r *Resolver) loadPackage(pkgDir string) (*packagejson.PackageJSON, error) {
	pkgPath := filepath.Join(pkgDir, "package.json")
	if !fs.IsFile(r.fs, pkgPath) {
		return nil, nil
	}
	pkg, err := packagejson.Load(r.fs, r.packages, fs.Canonicalize(r.fs, pkgPath))
	if err != nil {
		return nil, fail(ErrInvalidPackageJSON, pkgPath, err)
	}
	return pkg, nil
}

func (r *Resolver) resolveExports(pkg *packagejson.PackageJSON, pkgDir, subpath string) (string, error) {
	target, err := pkg.ResolveExport(subpath, r.env.resolveOptions())
	if err != nil {
		return "", r.classifyPackageError(err, filepath.Join(pkgDir, "package.json"))
	}
	r.debugf("exports of %s map %q to %s", pkgDir, subpath, target)
	return r.probe(filepath.Join(pkgDir, target))
}

// resolveSelf resolves a package importing itself by name. It applies only
// when the nearest package.json declares that name and an exports field.
func (r *Resolver) resolveSelf(name, subpath, fromDir string) (string, bool, error) {
	scope, err := r.findPackageScope(fromDir)
	if err != nil || scope == nil {
		return "", false, err
	}
	if scope.pkg.Name != name || !scope.pkg.HasExports() {
		return "", false, nil
	}
	r.debugf("%s refers to its own package at %s", name, scope.dir)
	found, err := r.resolveExports(scope.pkg, scope.dir, subpath)
	if err != nil {
		return "", true, err
	}
	found, err = r.remapBrowser(scope.pkg, scope.dir, found)
	return found, true, err
}

// resolveInternalImport resolves a "#" specifier through the imports field of
// the package owning fromDir. Targets may be package-relative paths or bare
// package specifiers.
func (r *Resolver) resolveInternalImport(specifier, fromDir string) (string, error) {
	scope, err := r.findPackageScope(fromDir)
	if err != nil {
		return "", err
	}
	if scope == nil {
		return "", fail(ErrPackageNotFound, fromDir, errors.New("no package.json owns the importer"))
	}

	target, err := scope.pkg.ResolveImport(specifier, r.env.resolveOptions())
	if err != nil {
		return "", r.classifyPackageError(err, filepath.Join(scope.dir, "package.json"))
	}
	r.debugf("imports of %s map %q to %s", scope.dir, specifier, target)

	if !strings.HasPrefix(target, "./") {
		if builtin, ok := r.env.builtin(target); ok {
			return builtin, nil
		}
		return r.resolvePackageSpecifier(target, scope.dir)
	}
	found, err := r.probe(filepath.Join(scope.dir, target))
	if err != nil {
		return "", err
	}
	return r.remapBrowser(scope.pkg, scope.dir, found)
}

// findPackageScope returns the nearest package.json at or above dir, or nil.
func (r *Resolver) findPackageScope(dir string) (*packageScope, error) {
	for current := dir; ; {
		if filepath.Base(current) == "node_modules" {
			return nil, nil
		}
		if fs.IsFile(r.fs, filepath.Join(current, "package.json")) {
			pkg, err := r.loadPackage(current)
			if err != nil {
				return nil, err
			}
			return &packageScope{dir: current, pkg: pkg}, nil
		}
		parent := filepath.Dir(current)
		if parent == current {
			return nil, nil
		}
		current = parent
	}
}

// remapBrowser applies an object-valued browser field to a file resolved
// inside pkgDir, in environments that read the browser field.
func (r *Resolver) remapBrowser(pkg *packagejson.PackageJSON, pkgDir, found string) (string, error) {
	if pkg == nil || !r.env.usesBrowserField() {
		return found, nil
	}
	rel, err := filepath.Rel(pkgDir, found)
	if err != nil || strings.HasPrefix(rel, "..") {
		return found, nil
	}
	to, ok := pkg.BrowserRemap("./" + filepath.ToSlash(rel))
	if !ok {
		return found, nil
	}
	r.debugf("browser field of %s remaps %s to %s", pkgDir, rel, to)
	return r.probe(filepath.Join(pkgDir, to))
}

func (r *Resolver) classifyPackageError(err error, pkgPath string) error {
	switch {
	case errors.Is(err, packagejson.ErrNotExported):
		return fail(ErrExportsPathNotExported, pkgPath, err)
	case errors.Is(err, packagejson.ErrInvalid):
		return fail(ErrInvalidPackageJSON, pkgPath, err)
	}
	return fail(ErrModuleNotFound, pkgPath, err)
}
