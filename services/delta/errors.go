// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package delta

import "errors"

// Sentinel errors for the delta comparison service.
var (
	// ErrNoSources indicates both sides of a comparison were empty.
	ErrNoSources = errors.New("before and after are both empty")

	// ErrSourceTooLarge indicates one side exceeds the configured size limit.
	ErrSourceTooLarge = errors.New("source exceeds size limit")

	// ErrPatchTooLarge indicates the patch body exceeds the configured size limit.
	ErrPatchTooLarge = errors.New("patch exceeds size limit")

	// ErrTooManyFiles indicates the patch touches more files than the service accepts.
	ErrTooManyFiles = errors.New("patch touches too many files")

	// ErrPatchInvalid indicates the patch body is not a parseable unified diff.
	ErrPatchInvalid = errors.New("invalid unified diff")

	// ErrUnknownKind indicates a requested graph kind is not recognized.
	ErrUnknownKind = errors.New("unknown graph kind")

	// ErrCompareTimeout indicates the request exceeded the service time limit.
	ErrCompareTimeout = errors.New("comparison timed out")
)
