// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package scope

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/AleutianAI/Deltascope/services/delta/ast"
)

// Import is one imported module reference from a Python source file.
//
// "import a.b" and "import a.b as c" both yield {Module: "a.b"}. A from
// import records the source module, not the imported names: "from a.b
// import c" yields {Module: "a.b"}. Relative imports count their
// leading dots in Level, so "from ..util import x" yields
// {Module: "util", Level: 2} and "from . import x" yields
// {Module: "", Level: 1}.
type Import struct {
	Module string
	Level  int
}

// ExtractImports walks a parsed module and collects every import
// statement, including imports nested in functions and classes.
func ExtractImports(mod *ast.Module) []Import {
	if mod == nil {
		return nil
	}
	var imports []Import
	collectImports(mod, mod.Root(), &imports)
	return imports
}

func collectImports(mod *ast.Module, n *sitter.Node, out *[]Import) {
	switch n.Type() {
	case "import_statement":
		for _, child := range ast.NamedChildren(n) {
			switch child.Type() {
			case "dotted_name":
				*out = append(*out, Import{Module: mod.Text(child)})
			case "aliased_import":
				if name := ast.Field(child, "name"); name != nil {
					*out = append(*out, Import{Module: mod.Text(name)})
				}
			}
		}

	case "import_from_statement":
		if imp, ok := fromImport(mod, n); ok {
			*out = append(*out, imp)
		}

	default:
		for _, child := range ast.NamedChildren(n) {
			collectImports(mod, child, out)
		}
	}
}

// fromImport reads the module side of a from import. The module name is
// either a plain dotted name or a relative import whose prefix carries
// the dots.
func fromImport(mod *ast.Module, n *sitter.Node) (Import, bool) {
	moduleName := ast.Field(n, "module_name")
	if moduleName == nil {
		return Import{}, false
	}

	switch moduleName.Type() {
	case "dotted_name":
		return Import{Module: mod.Text(moduleName)}, true

	case "relative_import":
		var imp Import
		for _, child := range ast.NamedChildren(moduleName) {
			switch child.Type() {
			case "import_prefix":
				imp.Level = strings.Count(mod.Text(child), ".")
			case "dotted_name":
				imp.Module = mod.Text(child)
			}
		}
		return imp, true
	}
	return Import{}, false
}
