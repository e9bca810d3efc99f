// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ged

import "time"

// Option configures a strategy constructor. Each constructor reads the
// options that apply to it and ignores the rest.
type Option func(*options)

type options struct {
	costs         Costs
	maxIterations int
	beamWidth     int
	budget        time.Duration
}

func defaultOptions() options {
	return options{
		costs:         DefaultCosts(),
		maxIterations: defaultMaxIterations,
		beamWidth:     defaultBeamWidth,
		budget:        defaultBudget,
	}
}

func applyOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithCosts overrides the edit-operation constants.
func WithCosts(c Costs) Option {
	return func(o *options) {
		o.costs = c
	}
}

// WithMaxIterations caps AStar expansions. Values below 1 are ignored.
func WithMaxIterations(n int) Option {
	return func(o *options) {
		if n >= 1 {
			o.maxIterations = n
		}
	}
}

// WithBeamWidth sets the beam width. Values below 1 are ignored.
func WithBeamWidth(k int) Option {
	return func(o *options) {
		if k >= 1 {
			o.beamWidth = k
		}
	}
}

// WithBudget sets the hybrid per-comparison wall-clock budget. Values at
// or below zero are ignored.
func WithBudget(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.budget = d
		}
	}
}
