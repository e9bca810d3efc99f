// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package builder

// moduleScope names the top-level scope of a module.
const moduleScope = "__module__"

// funcScope names the scope of a function. Scope identity on graph nodes
// is the plain name, so same-named functions share a scope string even
// though their stack frames are distinct.
func funcScope(name string) string {
	return "func_" + name
}

// scopeFrame is one level of the symbol table: the scope name and that
// scope's variable version counters.
type scopeFrame struct {
	name     string
	versions map[string]int
}

// scopeStack tracks the lexical scope during a tree walk. The bottom
// frame is always the module scope and is never popped.
type scopeStack struct {
	frames []*scopeFrame
}

func newScopeStack() *scopeStack {
	return &scopeStack{frames: []*scopeFrame{{
		name:     moduleScope,
		versions: make(map[string]int),
	}}}
}

func (s *scopeStack) push(name string) {
	s.frames = append(s.frames, &scopeFrame{
		name:     name,
		versions: make(map[string]int),
	})
}

func (s *scopeStack) pop() {
	if len(s.frames) > 1 {
		s.frames = s.frames[:len(s.frames)-1]
	}
}

func (s *scopeStack) top() *scopeFrame {
	return s.frames[len(s.frames)-1]
}

// name returns the active scope's name.
func (s *scopeStack) name() string {
	return s.top().name
}

// version returns the active scope's current version of a variable;
// zero before the first definition.
func (s *scopeStack) version(varName string) int {
	return s.top().versions[varName]
}

// bump increments the active scope's version of a variable and returns
// the new value.
func (s *scopeStack) bump(varName string) int {
	f := s.top()
	f.versions[varName]++
	return f.versions[varName]
}

// set forces the active scope's version of a variable.
func (s *scopeStack) set(varName string, version int) {
	s.top().versions[varName] = version
}

// snapshot copies the active scope's version counters.
func (s *scopeStack) snapshot() map[string]int {
	f := s.top()
	out := make(map[string]int, len(f.versions))
	for k, v := range f.versions {
		out[k] = v
	}
	return out
}

// restore installs the given counters as the active scope's. The map is
// owned by the stack afterwards; pass a snapshot, not a live map.
func (s *scopeStack) restore(versions map[string]int) {
	s.top().versions = versions
}

// cloneVersions copies a version counter map.
func cloneVersions(m map[string]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
