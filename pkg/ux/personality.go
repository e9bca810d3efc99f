// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ux

import (
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
)

// PersonalityLevel controls how much decoration CLI output carries.
type PersonalityLevel string

const (
	// PersonalityStandard enables colors, icons, and boxes.
	PersonalityStandard PersonalityLevel = "standard"

	// PersonalityMinimal uses icons and basic formatting only.
	PersonalityMinimal PersonalityLevel = "minimal"

	// PersonalityMachine outputs plain text suitable for scripting and parsing.
	PersonalityMachine PersonalityLevel = "machine"
)

var (
	currentLevel = PersonalityStandard
	levelMu      sync.RWMutex
)

// CurrentLevel returns the active personality level.
func CurrentLevel() PersonalityLevel {
	levelMu.RLock()
	defer levelMu.RUnlock()
	return currentLevel
}

// SetLevel updates the active personality level.
func SetLevel(level PersonalityLevel) {
	levelMu.Lock()
	defer levelMu.Unlock()
	currentLevel = level
}

// ParseLevel converts a string to a PersonalityLevel.
func ParseLevel(s string) PersonalityLevel {
	switch strings.ToLower(s) {
	case "standard", "std", "s":
		return PersonalityStandard
	case "minimal", "min", "m":
		return PersonalityMinimal
	case "machine", "quiet", "q":
		return PersonalityMachine
	default:
		return PersonalityStandard
	}
}

// InitFromEnv initializes the personality level from the environment.
//
// DELTA_PERSONALITY wins when set; otherwise piped or redirected output
// selects machine mode so scripts get parseable text.
func InitFromEnv() {
	if env := os.Getenv("DELTA_PERSONALITY"); env != "" {
		SetLevel(ParseLevel(env))
		return
	}

	if !isTerminal() {
		SetLevel(PersonalityMachine)
		return
	}

	SetLevel(PersonalityStandard)
}

// isTerminal reports whether stdout is attached to a terminal.
func isTerminal() bool {
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// IsInteractive reports whether interactive prompts should be shown.
func IsInteractive() bool {
	return CurrentLevel() != PersonalityMachine && isTerminal()
}

// ShouldShowProgress reports whether progress indicators should animate.
func ShouldShowProgress() bool {
	return CurrentLevel() != PersonalityMachine
}
