// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package validation provides input validation utilities for security-critical operations.
//
// This package contains validators for dataset-provided inputs that are used in
// file paths, cache keys, or git subprocess calls. Dataset files are downloaded
// content; using these validators prevents path traversal through cache
// directory names and argument injection through commit hashes.
package validation

import (
	"fmt"
	"regexp"
)

// instanceIDPattern matches benchmark instance identifiers such as
// "astropy__astropy-12907". Instance IDs appear in cache keys, report
// rows, and log fields, so they must be a single clean token.
// Max length: 200 characters.
var instanceIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.\-]{0,199}$`)

// commitPattern matches git object names: 7 to 64 hex digits, covering
// abbreviated hashes through SHA-256 repositories. Commits are passed to
// git as positional arguments, and a hex string can never be mistaken
// for a flag.
var commitPattern = regexp.MustCompile(`^[0-9a-fA-F]{7,64}$`)

// cacheNamePattern matches clone cache directory names such as
// "django_django". The name is joined onto the cache root, so it must
// be exactly one path component with no separators or leading dot.
// Max length: 100 characters.
var cacheNamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.\-]{0,99}$`)

// ValidateInstanceID validates a benchmark instance identifier.
//
// Valid IDs:
//   - 1-200 characters
//   - Letters, digits, underscores, dots, hyphens
//   - First character a letter or digit
//
// Returns an error if the ID is invalid.
//
// Example:
//
//	if err := validation.ValidateInstanceID(id); err != nil {
//	    return fmt.Errorf("invalid instance filter: %w", err)
//	}
func ValidateInstanceID(id string) error {
	if id == "" {
		return fmt.Errorf("instance id cannot be empty")
	}

	if !instanceIDPattern.MatchString(id) {
		return fmt.Errorf("invalid instance id: %q (must be 1-200 alphanumeric chars, underscores, dots, or hyphens)", id)
	}

	return nil
}

// ValidateInstanceIDs validates multiple instance identifiers.
// Returns an error listing all invalid IDs if any fail validation.
func ValidateInstanceIDs(ids []string) error {
	var invalid []string
	for _, id := range ids {
		if err := ValidateInstanceID(id); err != nil {
			invalid = append(invalid, id)
		}
	}

	if len(invalid) > 0 {
		return fmt.Errorf("invalid instance ids: %v", invalid)
	}
	return nil
}

// ValidateCommitSHA validates a git commit hash before it reaches a git
// subprocess.
//
// Valid hashes:
//   - 7-64 characters
//   - Hex digits only, either case
//
// Returns an error if the hash is invalid.
//
// Example:
//
//	if err := validation.ValidateCommitSHA(inst.BaseCommit); err != nil {
//	    return fmt.Errorf("invalid base commit: %w", err)
//	}
//	// Safe to pass to git checkout
func ValidateCommitSHA(sha string) error {
	if sha == "" {
		return fmt.Errorf("commit hash cannot be empty")
	}

	if !commitPattern.MatchString(sha) {
		return fmt.Errorf("invalid commit hash: %q (must be 7-64 hex digits)", sha)
	}

	return nil
}

// ValidateCacheName validates a clone cache directory name before it is
// joined onto the cache root.
//
// Valid names:
//   - 1-100 characters
//   - Letters, digits, underscores, dots, hyphens
//   - First character a letter or digit, so "..", hidden directories,
//     and absolute or relative paths are all rejected
//
// Returns an error if the name is invalid.
func ValidateCacheName(name string) error {
	if name == "" {
		return fmt.Errorf("cache name cannot be empty")
	}

	if !cacheNamePattern.MatchString(name) {
		return fmt.Errorf("invalid cache name: %q (must be one path component of 1-100 alphanumeric chars, underscores, dots, or hyphens)", name)
	}

	return nil
}
