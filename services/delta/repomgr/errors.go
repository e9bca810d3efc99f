// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package repomgr caches git clones and reads file snapshots out of
// them for analysis.
package repomgr

import "errors"

var (
	// ErrFileNotFound is returned when a path does not exist at the
	// requested commit.
	ErrFileNotFound = errors.New("file not found")

	// ErrCloneFailed is returned when both the shallow and the full
	// clone attempt fail.
	ErrCloneFailed = errors.New("clone failed")
)
