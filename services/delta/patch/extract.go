// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package patch

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/sourcegraph/go-diff/diff"
)

// FilePair holds both sides of one changed file.
//
// When the pair was reconstructed from hunks alone, Before and After
// cover only the lines the diff mentions. Content between hunks is
// missing from both sides equally, which is what the distance metrics
// care about.
type FilePair struct {
	// Path is the repo-relative path with the a/ b/ prefixes stripped.
	Path string

	// Before is the file content on the original side.
	Before string

	// After is the file content on the modified side.
	After string

	// LinesAdded counts "+" lines across all hunks.
	LinesAdded int

	// LinesDeleted counts "-" lines across all hunks.
	LinesDeleted int

	// Created reports that the patch introduces the file.
	Created bool

	// Removed reports that the patch deletes the file.
	Removed bool
}

// ExtractFilePairs parses a unified diff and reconstructs both sides of
// every changed Python file from the hunk bodies alone.
//
// Description:
//
//	Each file diff becomes one FilePair. The before side is rebuilt
//	from context and "-" lines, the after side from context and "+"
//	lines. Non-Python files are skipped with a debug log because the
//	parsers downstream only understand Python.
//
// Inputs:
//   - patchText: a unified diff, possibly spanning multiple files.
//
// Outputs:
//   - []FilePair: one entry per changed Python file, in patch order.
//   - error: non-nil when the diff cannot be parsed.
func ExtractFilePairs(patchText string) ([]FilePair, error) {
	fileDiffs, err := parse(patchText)
	if err != nil {
		return nil, err
	}

	pairs := make([]FilePair, 0, len(fileDiffs))
	for _, fd := range fileDiffs {
		path := diffPath(fd)
		if !isPython(path) {
			slog.Debug("skipping non-python file in patch", "path", path)
			continue
		}

		pair := FilePair{
			Path:    path,
			Created: fd.OrigName == devNull,
			Removed: fd.NewName == devNull,
		}
		pair.Before, pair.After = reconstruct(fd)
		pair.LinesAdded, pair.LinesDeleted = countChanges(fd)
		pairs = append(pairs, pair)
	}
	return pairs, nil
}

// ChangedFiles lists the repo-relative Python files a patch touches, in
// patch order. Non-Python files are skipped with a debug log.
func ChangedFiles(patchText string) ([]string, error) {
	fileDiffs, err := parse(patchText)
	if err != nil {
		return nil, err
	}

	files := make([]string, 0, len(fileDiffs))
	for _, fd := range fileDiffs {
		path := diffPath(fd)
		if !isPython(path) {
			slog.Debug("skipping non-python file in patch", "path", path)
			continue
		}
		files = append(files, path)
	}
	return files, nil
}

// ApplyToContent applies the hunks for one path in the patch to the
// given base content and returns the patched content.
//
// Description:
//
//	This is the exact counterpart of reconstructing the after side
//	from hunks, used when the true base content is available from a
//	repository snapshot. The working tree is never touched.
//
// Inputs:
//   - base: the file content the hunks were produced against.
//   - patchText: a unified diff, possibly spanning multiple files.
//   - path: the repo-relative path to apply, without a/ b/ prefixes.
//
// Outputs:
//   - string: the patched content. Empty when the patch deletes the file.
//   - error: ErrNotInPatch when the path has no file diff, or a parse
//     or application failure.
func ApplyToContent(base, patchText, path string) (string, error) {
	fileDiffs, err := parse(patchText)
	if err != nil {
		return "", err
	}

	for _, fd := range fileDiffs {
		if diffPath(fd) != path {
			continue
		}
		return applyHunks(base, fd)
	}
	return "", fmt.Errorf("applying patch to %q: %w", path, ErrNotInPatch)
}

const devNull = "/dev/null"

func parse(patchText string) ([]*diff.FileDiff, error) {
	reader := diff.NewMultiFileDiffReader(strings.NewReader(patchText))
	fileDiffs, err := reader.ReadAllFiles()
	if err != nil {
		return nil, fmt.Errorf("parsing patch: %w", err)
	}
	return fileDiffs, nil
}

// diffPath picks the post-image name unless the file was deleted, then
// strips the conventional a/ b/ prefixes.
func diffPath(fd *diff.FileDiff) string {
	path := fd.NewName
	if path == "" || path == devNull {
		path = fd.OrigName
	}
	path = strings.TrimPrefix(path, "a/")
	path = strings.TrimPrefix(path, "b/")
	return path
}

func isPython(path string) bool {
	return strings.HasSuffix(path, ".py") || strings.HasSuffix(path, ".pyi")
}

// reconstruct rebuilds both sides of a file from its hunk bodies.
// Context lines land on both sides, "-" lines only on the before side,
// "+" lines only on the after side.
func reconstruct(fd *diff.FileDiff) (before, after string) {
	var beforeLines, afterLines []string
	for _, hunk := range fd.Hunks {
		for _, line := range strings.Split(string(hunk.Body), "\n") {
			switch {
			case line == "":
				// Artifact of splitting a newline-terminated body.
			case strings.HasPrefix(line, "\\"):
				// "\ No newline at end of file" marker.
			case strings.HasPrefix(line, "+") && !strings.HasPrefix(line, "+++"):
				afterLines = append(afterLines, line[1:])
			case strings.HasPrefix(line, "-") && !strings.HasPrefix(line, "---"):
				beforeLines = append(beforeLines, line[1:])
			default:
				content := strings.TrimPrefix(line, " ")
				beforeLines = append(beforeLines, content)
				afterLines = append(afterLines, content)
			}
		}
	}
	return strings.Join(beforeLines, "\n"), strings.Join(afterLines, "\n")
}

// applyHunks applies a single file's hunks to its base content.
func applyHunks(base string, fd *diff.FileDiff) (string, error) {
	if fd.NewName == devNull {
		return "", nil
	}
	if fd.OrigName == devNull || base == "" {
		// New file: the content is the added lines.
		var lines []string
		for _, hunk := range fd.Hunks {
			for _, line := range strings.Split(string(hunk.Body), "\n") {
				if strings.HasPrefix(line, "+") && !strings.HasPrefix(line, "+++") {
					lines = append(lines, line[1:])
				}
			}
		}
		return strings.Join(lines, "\n"), nil
	}

	origLines := strings.Split(base, "\n")
	var newLines []string
	origIdx := 0

	for _, hunk := range fd.Hunks {
		hunkStart := int(hunk.OrigStartLine) - 1
		if hunkStart < origIdx {
			return "", fmt.Errorf("applying hunks to %q: overlapping hunk at line %d", diffPath(fd), hunk.OrigStartLine)
		}

		// Copy the untouched region before this hunk.
		for origIdx < hunkStart && origIdx < len(origLines) {
			newLines = append(newLines, origLines[origIdx])
			origIdx++
		}

		for _, line := range strings.Split(string(hunk.Body), "\n") {
			switch {
			case strings.HasPrefix(line, "\\"):
				// "\ No newline at end of file" marker.
			case strings.HasPrefix(line, "+") && !strings.HasPrefix(line, "+++"):
				newLines = append(newLines, line[1:])
			case strings.HasPrefix(line, "-") && !strings.HasPrefix(line, "---"):
				origIdx++
			default:
				// Context line, taken from the original to keep the
				// copy faithful.
				if origIdx < len(origLines) {
					newLines = append(newLines, origLines[origIdx])
					origIdx++
				}
			}
		}
	}

	// Copy the untouched region after the last hunk.
	for origIdx < len(origLines) {
		newLines = append(newLines, origLines[origIdx])
		origIdx++
	}
	return strings.Join(newLines, "\n"), nil
}

func countChanges(fd *diff.FileDiff) (added, deleted int) {
	for _, hunk := range fd.Hunks {
		for _, line := range strings.Split(string(hunk.Body), "\n") {
			switch {
			case strings.HasPrefix(line, "+") && !strings.HasPrefix(line, "+++"):
				added++
			case strings.HasPrefix(line, "-") && !strings.HasPrefix(line, "---"):
				deleted++
			}
		}
	}
	return added, deleted
}
