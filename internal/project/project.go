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

// Package project assembles the resolver a CLI command runs with.
package project

import (
	"fmt"
	"path/filepath"

	"bennypowers.dev/esresolve/config"
	"bennypowers.dev/esresolve/fs"
	"bennypowers.dev/esresolve/internal/logger"
	"bennypowers.dev/esresolve/resolve"
)

// Options selects the project and environment.
type Options struct {
	// Root is the project directory. When Explicit is false, the nearest
	// ancestor that looks like a project root is used instead.
	Root     string
	Explicit bool
	// Env names the environment; empty means the configured default.
	Env string
	// NoTsConfig disables tsconfig path mapping regardless of config.
	NoTsConfig bool
}

// Project is a loaded project with a ready resolver.
type Project struct {
	FS       fs.FileSystem
	Root     string
	Config   *config.Config
	Env      resolve.Environment
	Resolver *resolve.Resolver
}

// Load reads the project config and builds the resolver.
func Load(fsys fs.FileSystem, opts Options) (*Project, error) {
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, fmt.Errorf("invalid root directory: %w", err)
	}
	if !opts.Explicit {
		root = FindRoot(fsys, root)
	}

	cfg, err := config.Load(fsys, root)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if cfg == nil {
		cfg = config.Default()
	}

	env, err := cfg.Environment(opts.Env)
	if err != nil {
		return nil, err
	}

	resolver := resolve.New(fsys, env).WithLogger(logger.Resolver{})
	if opts.NoTsConfig || !cfg.UseTsConfig() {
		resolver = resolver.WithoutTsConfig()
	}
	logger.Debug("project root %s, environment %s", root, env.Name)

	return &Project{
		FS:       fsys,
		Root:     root,
		Config:   cfg,
		Env:      env,
		Resolver: resolver,
	}, nil
}

// FindRoot walks up from startDir to the first directory holding an
// esresolve config, a package.json, or a .git directory. Returns startDir
// when none is found.
func FindRoot(fsys fs.FileSystem, startDir string) string {
	dir := startDir
	for {
		for _, ext := range []string{".yaml", ".yml", ".json"} {
			if fs.IsFile(fsys, filepath.Join(dir, config.ConfigDir, config.ConfigFileName+ext)) {
				return dir
			}
		}
		if fs.IsFile(fsys, filepath.Join(dir, "package.json")) {
			return dir
		}
		if fs.IsDir(fsys, filepath.Join(dir, ".git")) {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return startDir
		}
		dir = parent
	}
}
