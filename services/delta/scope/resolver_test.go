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
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/Deltascope/services/delta/ast"
)

func writeRepo(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for p, content := range files {
		full := filepath.Join(root, filepath.FromSlash(p))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o750))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o600))
	}
	return root
}

func appRepo(t *testing.T) string {
	t.Helper()
	return writeRepo(t, map[string]string{
		"myapp/__init__.py":       "",
		"myapp/core/__init__.py":  "",
		"myapp/core/engine.py":    "from myapp.utils import strings\n\ndef run():\n    return strings.upper('x')\n",
		"myapp/core/helpers.py":   "def assist():\n    return 1\n",
		"myapp/utils/__init__.py": "",
		"myapp/utils/strings.py":  "def upper(s):\n    return s.upper()\n",
		"consumers/__init__.py":   "",
		"consumers/client.py":     "from myapp.core import engine\n",
		"tools/script.py":         "import myapp\n",
		"setup.py":                "import myapp\n",
	})
}

func TestExpandModuleScope(t *testing.T) {
	r := NewResolver(appRepo(t))

	s, err := r.Expand(context.Background(), []string{"myapp/core/engine.py"})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"myapp/core/__init__.py",
		"myapp/core/engine.py",
		"myapp/core/helpers.py",
	}, s.Primary)

	// consumers and tools import the changed module; myapp/core imports
	// itself but is already primary. setup.py sits at the root so its
	// directory never becomes a dependent module.
	assert.Equal(t, []string{
		"consumers/__init__.py",
		"consumers/client.py",
		"tools/script.py",
	}, s.Secondary)

	// "from myapp.utils import strings" resolves to the package
	// __init__, not the imported name.
	assert.Equal(t, []string{"myapp/utils/__init__.py"}, s.DirectImports)

	assert.Equal(t, []string{
		"consumers/__init__.py",
		"consumers/client.py",
		"myapp/core/__init__.py",
		"myapp/core/engine.py",
		"myapp/core/helpers.py",
		"myapp/utils/__init__.py",
		"tools/script.py",
	}, s.All)
	assert.Equal(t, 7, s.Size())
}

func TestExpandRootLevelFile(t *testing.T) {
	r := NewResolver(appRepo(t))

	s, err := r.Expand(context.Background(), []string{"setup.py"})
	require.NoError(t, err)

	assert.Equal(t, []string{"setup.py"}, s.Primary)
	assert.Empty(t, s.Secondary)
	assert.Equal(t, []string{"myapp/__init__.py"}, s.DirectImports)
	assert.Equal(t, []string{"myapp/__init__.py", "setup.py"}, s.All)
}

func TestExpandMissingChangedFile(t *testing.T) {
	r := NewResolver(appRepo(t))

	// A file added by the patch does not exist at the base commit but
	// must still be part of the scope.
	s, err := r.Expand(context.Background(), []string{"ghost/gone.py"})
	require.NoError(t, err)

	assert.Equal(t, []string{"ghost/gone.py"}, s.Primary)
	assert.Empty(t, s.Secondary)
	assert.Empty(t, s.DirectImports)
	assert.Equal(t, []string{"ghost/gone.py"}, s.All)
}

func TestExpandRelativeImport(t *testing.T) {
	root := writeRepo(t, map[string]string{
		"pkg/sub/other.py":         "def f():\n    return 2\n",
		"pkg/sub/deep/__init__.py": "",
		"pkg/sub/deep/mod.py":      "from ..other import f\n",
	})
	r := NewResolver(root)

	s, err := r.Expand(context.Background(), []string{"pkg/sub/deep/mod.py"})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"pkg/sub/deep/__init__.py",
		"pkg/sub/deep/mod.py",
	}, s.Primary)

	// Two dots climb one directory above the importing file's package.
	assert.Equal(t, []string{"pkg/sub/other.py"}, s.DirectImports)
}

func TestExpandScopeLimit(t *testing.T) {
	root := writeRepo(t, map[string]string{
		"big/a.py": "x = 1\n",
		"big/b.py": "x = 1\n",
		"big/c.py": "x = 1\n",
		"big/d.py": "x = 1\n",
		"big/e.py": "x = 1\n",
		"big/f.py": "x = 1\n",
	})
	r := NewResolver(root, WithScopeLimit(3))

	s, err := r.Expand(context.Background(), []string{"big/e.py"})
	require.NoError(t, err)

	// The changed file survives pruning; the remainder fills from the
	// primary list in order. Primary itself reports the full module.
	assert.Equal(t, []string{"big/a.py", "big/b.py", "big/e.py"}, s.All)
	assert.Len(t, s.Primary, 6)
}

func TestExpandCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := NewResolver(appRepo(t))
	_, err := r.Expand(ctx, []string{"myapp/core/engine.py"})
	require.ErrorIs(t, err, context.Canceled)
}

func TestExtractImports(t *testing.T) {
	source := "import os\n" +
		"import a.b as ab\n" +
		"from pkg.mod import thing\n" +
		"from . import sibling\n" +
		"from ..up import z\n" +
		"\n" +
		"def late():\n" +
		"    import json\n"

	mod, err := ast.NewPythonParser().Parse(context.Background(), []byte(source), "imports.py")
	require.NoError(t, err)
	defer mod.Close()

	assert.Equal(t, []Import{
		{Module: "os"},
		{Module: "a.b"},
		{Module: "pkg.mod"},
		{Module: "", Level: 1},
		{Module: "up", Level: 2},
		{Module: "json"},
	}, ExtractImports(mod))
}

func TestMentionsImport(t *testing.T) {
	tests := []struct {
		name    string
		content string
		module  string
		want    bool
	}{
		{"plain import", "import os\n", "os", true},
		{"longer identifier", "import ossify\n", "os", false},
		{"dotted continuation", "from os.path import join\n", "os", true},
		{"prefix module", "from osmod import x\n", "os", false},
		{"no import", "x = 1\n", "os", false},
		{"second occurrence", "import ossify\nimport os\n", "os", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, mentionsImport(tt.content, tt.module))
		})
	}
}
