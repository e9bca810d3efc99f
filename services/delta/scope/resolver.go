// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package scope expands a set of changed files into the module-level
// context needed to analyze them: every file in the changed modules,
// the top files of modules that import them, and the files they
// directly import.
package scope

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/AleutianAI/Deltascope/services/delta/ast"
)

const (
	defaultModuleDepth  = 3
	defaultMaxSecondary = 5
	defaultScopeLimit   = 100

	// filesPerModule caps how many files one dependent module
	// contributes before the overall secondary cap applies.
	filesPerModule = 5
)

// Option configures a Resolver.
type Option func(*Resolver)

// WithModuleDepth sets how many leading directories of a changed file
// define its module. Values below one are ignored.
func WithModuleDepth(depth int) Option {
	return func(r *Resolver) {
		if depth >= 1 {
			r.moduleDepth = depth
		}
	}
}

// WithMaxSecondary caps both the dependent modules considered and the
// secondary files returned. Values below one are ignored.
func WithMaxSecondary(n int) Option {
	return func(r *Resolver) {
		if n >= 1 {
			r.maxSecondary = n
		}
	}
}

// WithScopeLimit caps the total scope size. Values below one are
// ignored.
func WithScopeLimit(n int) Option {
	return func(r *Resolver) {
		if n >= 1 {
			r.scopeLimit = n
		}
	}
}

// Resolver expands changed files into module scope against one
// repository working tree.
//
// Thread Safety:
//
//	Safe for concurrent use. The resolver holds no mutable state; all
//	state lives in the working tree it reads.
type Resolver struct {
	root         string
	moduleDepth  int
	maxSecondary int
	scopeLimit   int
	parser       *ast.PythonParser
}

// NewResolver creates a resolver rooted at a repository working tree.
func NewResolver(repoRoot string, opts ...Option) *Resolver {
	r := &Resolver{
		root:         repoRoot,
		moduleDepth:  defaultModuleDepth,
		maxSecondary: defaultMaxSecondary,
		scopeLimit:   defaultScopeLimit,
		parser:       ast.NewPythonParser(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Scope is the expanded file set for one change. All lists hold
// repo-relative slash-separated paths in sorted order.
type Scope struct {
	// Primary is every Python file in the modules the change touches.
	Primary []string

	// Secondary is the top files of modules that import the changed
	// modules.
	Secondary []string

	// DirectImports is the files the changed files import, minus
	// anything already in Primary or Secondary.
	DirectImports []string

	// All is the union of the changed files and the three lists above,
	// capped at the scope limit.
	All []string
}

// Size reports the total number of files in scope.
func (s *Scope) Size() int {
	return len(s.All)
}

// Expand resolves the module scope for a set of changed files.
//
// Description:
//
//	Four passes over the working tree. The changed files' leading
//	directories define the primary modules and every Python file under
//	them joins the scope. A repo-wide scan finds modules whose source
//	mentions importing a changed module; the top files of the first few
//	such modules join as secondary context. Finally the changed files
//	are parsed and their direct imports resolved to paths. When the
//	union exceeds the scope limit it is pruned in priority order:
//	changed, primary, secondary, imports.
//
// Inputs:
//   - ctx: checked between passes and during the repo scan.
//   - changed: repo-relative paths from the patch. Files that do not
//     exist in the working tree still join the scope so new files are
//     analyzed.
//
// Outputs:
//   - *Scope: the expanded file lists, each sorted.
//   - error: only context cancellation; unreadable files are skipped.
func (r *Resolver) Expand(ctx context.Context, changed []string) (*Scope, error) {
	primary := make(map[string]struct{})
	for _, file := range changed {
		for _, moduleFile := range r.moduleFiles(file) {
			primary[moduleFile] = struct{}{}
		}
	}

	dependentDirs, err := r.dependentDirs(ctx, sortedKeys(primary))
	if err != nil {
		return nil, err
	}
	secondary := r.secondaryFiles(dependentDirs, primary)

	secondarySet := make(map[string]struct{}, len(secondary))
	for _, f := range secondary {
		secondarySet[f] = struct{}{}
	}
	imports, err := r.directImports(ctx, changed, primary, secondarySet)
	if err != nil {
		return nil, err
	}

	all := make(map[string]struct{}, len(primary))
	for _, f := range changed {
		all[f] = struct{}{}
	}
	for f := range primary {
		all[f] = struct{}{}
	}
	for _, f := range secondary {
		all[f] = struct{}{}
	}
	for _, f := range imports {
		all[f] = struct{}{}
	}

	allFiles := sortedKeys(all)
	if len(allFiles) > r.scopeLimit {
		slog.Debug("pruning scope", "size", len(allFiles), "limit", r.scopeLimit)
		allFiles = r.prune(changed, sortedKeys(primary), secondary, imports)
		sort.Strings(allFiles)
	}

	sort.Strings(secondary)
	return &Scope{
		Primary:       sortedKeys(primary),
		Secondary:     secondary,
		DirectImports: imports,
		All:           allFiles,
	}, nil
}

// moduleFiles lists every Python file in the module containing one
// changed file. A root-level file, or a file whose module directory
// does not exist in the working tree, is its own module.
func (r *Resolver) moduleFiles(file string) []string {
	parts := strings.Split(path.Clean(file), "/")
	if len(parts) <= 1 {
		return []string{file}
	}

	depth := r.moduleDepth
	if depth > len(parts)-1 {
		depth = len(parts) - 1
	}
	moduleDir := filepath.Join(r.root, filepath.Join(parts[:depth]...))

	info, err := os.Stat(moduleDir)
	if err != nil || !info.IsDir() {
		return []string{file}
	}

	files, err := r.pythonFilesUnder(moduleDir)
	if err != nil {
		return []string{file}
	}
	return files
}

// dependentDirs scans every Python file in the repo for imports of the
// changed modules or any of their parent packages, and collects the
// directories of the importers.
func (r *Resolver) dependentDirs(ctx context.Context, primaryFiles []string) ([]string, error) {
	modules := make(map[string]struct{})
	for _, file := range primaryFiles {
		name := strings.ReplaceAll(strings.TrimSuffix(file, ".py"), "/", ".")
		modules[name] = struct{}{}
		parts := strings.Split(name, ".")
		for i := 1; i < len(parts); i++ {
			modules[strings.Join(parts[:i], ".")] = struct{}{}
		}
	}

	dirs := make(map[string]struct{})
	err := filepath.WalkDir(r.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(d.Name(), ".py") {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		raw, err := os.ReadFile(p)
		if err != nil {
			return nil
		}
		content := string(raw)
		for module := range modules {
			if !mentionsImport(content, module) {
				continue
			}
			rel, err := filepath.Rel(r.root, p)
			if err != nil {
				break
			}
			dir := path.Dir(filepath.ToSlash(rel))
			if dir != "." {
				dirs[dir] = struct{}{}
			}
			break
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sortedKeys(dirs), nil
}

// mentionsImport reports whether content textually imports the module.
// The character after the module name must end an identifier, so
// "import os" does not match "import ossify" but does match
// "from os.path import join".
func mentionsImport(content, module string) bool {
	for _, pattern := range []string{"import " + module, "from " + module} {
		for start := 0; ; {
			i := strings.Index(content[start:], pattern)
			if i < 0 {
				break
			}
			end := start + i + len(pattern)
			if end >= len(content) || !isIdentChar(content[end]) {
				return true
			}
			start = end
		}
	}
	return false
}

func isIdentChar(c byte) bool {
	return c == '_' ||
		('a' <= c && c <= 'z') ||
		('A' <= c && c <= 'Z') ||
		('0' <= c && c <= '9')
}

// secondaryFiles takes the top files of the first few dependent
// modules, minus anything already in primary, capped overall.
func (r *Resolver) secondaryFiles(dependentDirs []string, primary map[string]struct{}) []string {
	if len(dependentDirs) > r.maxSecondary {
		dependentDirs = dependentDirs[:r.maxSecondary]
	}

	var collected []string
	for _, dir := range dependentDirs {
		files, err := r.pythonFilesUnder(filepath.Join(r.root, dir))
		if err != nil {
			continue
		}
		if len(files) > filesPerModule {
			files = files[:filesPerModule]
		}
		collected = append(collected, files...)
	}

	seen := make(map[string]struct{}, len(collected))
	secondary := make([]string, 0, len(collected))
	for _, f := range collected {
		if _, ok := primary[f]; ok {
			continue
		}
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		secondary = append(secondary, f)
		if len(secondary) == r.maxSecondary {
			break
		}
	}
	return secondary
}

// directImports parses each changed file and resolves its imports to
// repo paths, minus anything already in primary or secondary.
func (r *Resolver) directImports(ctx context.Context, changed []string, primary, secondary map[string]struct{}) ([]string, error) {
	resolved := make(map[string]struct{})
	for _, file := range changed {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		source, err := os.ReadFile(filepath.Join(r.root, filepath.FromSlash(file)))
		if err != nil {
			continue
		}
		mod, err := r.parser.Parse(ctx, source, file)
		if err != nil {
			slog.Debug("skipping unparseable changed file", "path", file, "error", err)
			continue
		}
		imports := ExtractImports(mod)
		mod.Close()

		for _, imp := range imports {
			if imp.Module == "" {
				continue
			}
			var target string
			if imp.Level > 0 {
				target = r.resolveRelative(imp, file)
			} else {
				target = r.resolveModule(imp.Module)
			}
			if target == "" {
				continue
			}
			if _, ok := primary[target]; ok {
				continue
			}
			if _, ok := secondary[target]; ok {
				continue
			}
			resolved[target] = struct{}{}
		}
	}
	return sortedKeys(resolved), nil
}

// resolveModule maps a dotted module to a repo path, trying the module
// file first and the package __init__ second.
func (r *Resolver) resolveModule(module string) string {
	base := strings.ReplaceAll(module, ".", "/")
	for _, candidate := range []string{base + ".py", base + "/__init__.py"} {
		if fileExists(filepath.Join(r.root, filepath.FromSlash(candidate))) {
			return candidate
		}
	}
	return ""
}

// resolveRelative maps a relative import to a repo path. Level one is
// the importing file's own package; each further dot climbs one
// directory.
func (r *Resolver) resolveRelative(imp Import, fromFile string) string {
	dir := path.Dir(fromFile)
	for i := 1; i < imp.Level; i++ {
		dir = path.Dir(dir)
	}
	target := path.Join(dir, strings.ReplaceAll(imp.Module, ".", "/"))
	for _, candidate := range []string{target + ".py", target + "/__init__.py"} {
		if fileExists(filepath.Join(r.root, filepath.FromSlash(candidate))) {
			return candidate
		}
	}
	return ""
}

// prune keeps the scope under the limit in priority order: changed
// files always stay, then primary, secondary, and imports fill the
// remainder.
func (r *Resolver) prune(changed, primary, secondary, imports []string) []string {
	result := make([]string, 0, r.scopeLimit)
	seen := make(map[string]struct{}, r.scopeLimit)
	for _, f := range changed {
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		result = append(result, f)
	}

	remaining := r.scopeLimit - len(result)
	if remaining < 0 {
		remaining = 0
	}
	for _, tier := range [][]string{primary, secondary, imports} {
		for _, f := range tier {
			if remaining == 0 {
				return result
			}
			if _, ok := seen[f]; ok {
				continue
			}
			seen[f] = struct{}{}
			result = append(result, f)
			remaining--
		}
	}
	return result
}

// pythonFilesUnder lists every .py file under dir as repo-relative
// slash paths in lexical order.
func (r *Resolver) pythonFilesUnder(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(d.Name(), ".py") {
			return nil
		}
		rel, err := filepath.Rel(r.root, p)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

func fileExists(p string) bool {
	info, err := os.Stat(p)
	return err == nil && !info.IsDir()
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
