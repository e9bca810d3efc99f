// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package dataset loads SWE-bench style instances from local files or
// the Hugging Face datasets server.
package dataset

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Instance is one task: a repository, the commit it sits at, and the
// patch whose structural change is being measured.
type Instance struct {
	InstanceID       string `json:"instance_id"`
	Repo             string `json:"repo"`
	BaseCommit       string `json:"base_commit"`
	Patch            string `json:"patch"`
	ProblemStatement string `json:"problem_statement,omitempty"`
	CreatedAt        string `json:"created_at,omitempty"`
	Version          string `json:"version,omitempty"`
}

// CloneURL is the git clone URL for the instance's repository.
func (in Instance) CloneURL() string {
	cloneURL, _ := NormalizeRepo(in.Repo)
	return cloneURL
}

// CacheName is the directory-safe repository name used for clone
// caching.
func (in Instance) CacheName() string {
	_, cacheName := NormalizeRepo(in.Repo)
	return cacheName
}

// NormalizeRepo turns a dataset repo field into a clone URL and a cache
// name. The field arrives as "owner/repo" or as a full GitHub URL with
// or without a .git suffix or trailing slash; "sympy/sympy" and
// "https://github.com/sympy/sympy.git" both yield
// ("https://github.com/sympy/sympy.git", "sympy_sympy").
func NormalizeRepo(field string) (cloneURL, cacheName string) {
	field = strings.TrimSpace(field)

	if strings.HasPrefix(field, "http://") || strings.HasPrefix(field, "https://") {
		base := strings.TrimRight(field, "/")
		base = strings.TrimSuffix(base, ".git")

		ident := base
		if parts := strings.Split(base, "/"); len(parts) >= 2 {
			ident = parts[len(parts)-2] + "/" + parts[len(parts)-1]
		}
		return base + ".git", strings.ReplaceAll(ident, "/", "_")
	}

	return "https://github.com/" + field + ".git", strings.ReplaceAll(field, "/", "_")
}

// maxLineSize bounds one JSONL record. Large repository patches run to
// megabytes, well past bufio's default token size.
const maxLineSize = 64 * 1024 * 1024

// LoadFile reads instances from a JSON array or JSONL file, deciding by
// the first byte.
func LoadFile(path string) ([]Instance, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading dataset %q: %w", path, err)
	}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, nil
	}

	if trimmed[0] == '[' {
		var instances []Instance
		if err := json.Unmarshal(trimmed, &instances); err != nil {
			return nil, fmt.Errorf("parsing dataset %q: %w", path, err)
		}
		return instances, nil
	}

	var instances []Instance
	scanner := bufio.NewScanner(bytes.NewReader(trimmed))
	scanner.Buffer(make([]byte, 0, 1024*1024), maxLineSize)
	line := 0
	for scanner.Scan() {
		line++
		record := bytes.TrimSpace(scanner.Bytes())
		if len(record) == 0 {
			continue
		}
		var in Instance
		if err := json.Unmarshal(record, &in); err != nil {
			return nil, fmt.Errorf("parsing dataset %q line %d: %w", path, line, err)
		}
		instances = append(instances, in)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading dataset %q: %w", path, err)
	}
	return instances, nil
}

// Filter keeps the instances whose IDs are listed, in dataset order.
// An empty ID list keeps everything.
func Filter(instances []Instance, ids ...string) []Instance {
	if len(ids) == 0 {
		return instances
	}
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	kept := make([]Instance, 0, len(ids))
	for _, in := range instances {
		if _, ok := want[in.InstanceID]; ok {
			kept = append(kept, in)
		}
	}
	return kept
}
