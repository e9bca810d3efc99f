// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package dataset

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/AleutianAI/Deltascope/services/delta/store"
)

const (
	// DefaultDataset is the benchmark the loader fetches when none is
	// configured.
	DefaultDataset = "princeton-nlp/SWE-bench_Verified"

	// DefaultSplit is the split holding the evaluation instances.
	DefaultSplit = "test"

	defaultBaseURL = "https://datasets-server.huggingface.co"

	// rowsPerPage is the page size the datasets server allows.
	rowsPerPage = 100

	// defaultRequestsPerSecond keeps the loader polite to the public
	// rows endpoint.
	defaultRequestsPerSecond = 4

	// fetchConcurrency bounds parallel page downloads.
	fetchConcurrency = 4
)

// HTTPClient allows injecting mock HTTP clients for testing.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Option configures a Loader.
type Option func(*Loader)

// WithHTTPClient replaces the default client.
func WithHTTPClient(client HTTPClient) Option {
	return func(l *Loader) {
		if client != nil {
			l.client = client
		}
	}
}

// WithStore caches full dataset downloads so later runs skip the
// network.
func WithStore(st *store.Store) Option {
	return func(l *Loader) {
		l.cache = st
	}
}

// WithDataset selects a dataset and split. Empty values keep the
// defaults.
func WithDataset(name, split string) Option {
	return func(l *Loader) {
		if name != "" {
			l.dataset = name
		}
		if split != "" {
			l.split = split
		}
	}
}

// WithBaseURL points the loader at a different rows endpoint.
func WithBaseURL(base string) Option {
	return func(l *Loader) {
		if base != "" {
			l.baseURL = base
		}
	}
}

// WithRateLimit sets the request rate in requests per second. Values at
// or below zero are ignored.
func WithRateLimit(rps float64) Option {
	return func(l *Loader) {
		if rps > 0 {
			l.limiter = rate.NewLimiter(rate.Limit(rps), int(rps)+1)
		}
	}
}

// Loader fetches instances from the Hugging Face datasets server's
// paginated rows API.
//
// Thread Safety: Safe for concurrent use.
type Loader struct {
	client  HTTPClient
	limiter *rate.Limiter
	cache   *store.Store
	dataset string
	split   string
	baseURL string
}

// NewLoader creates a loader for the default dataset.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{
		client:  &http.Client{Timeout: 30 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(defaultRequestsPerSecond), defaultRequestsPerSecond),
		dataset: DefaultDataset,
		split:   DefaultSplit,
		baseURL: defaultBaseURL,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// rowsResponse mirrors the datasets-server rows payload.
type rowsResponse struct {
	Rows []struct {
		Row Instance `json:"row"`
	} `json:"rows"`
	NumRowsTotal int `json:"num_rows_total"`
}

// Fetch downloads up to limit instances, or the whole split when limit
// is zero or negative.
//
// Description:
//
//	The first page reveals the split size; remaining pages download in
//	parallel under the rate limit and reassemble in dataset order.
//	Full downloads land in the store when one is configured, and later
//	calls serve from it, including limited ones.
//
// Inputs:
//   - ctx: cancels in-flight pages and rate-limit waits.
//   - limit: cap on returned instances; <= 0 means all.
//
// Outputs:
//   - []Instance: instances in dataset order.
//   - error: first page, decode, or HTTP failure; the whole fetch fails
//     rather than returning a dataset with holes.
func (l *Loader) Fetch(ctx context.Context, limit int) ([]Instance, error) {
	cacheKey := []byte("dataset/" + l.dataset + "/" + l.split)
	if l.cache != nil {
		if raw, ok, err := l.cache.Get(ctx, cacheKey); err == nil && ok {
			var instances []Instance
			if err := json.Unmarshal(raw, &instances); err == nil {
				slog.Debug("serving dataset from cache",
					"dataset", l.dataset, "instances", len(instances))
				return clampInstances(instances, limit), nil
			}
		}
	}

	slog.Info("downloading dataset", "dataset", l.dataset, "split", l.split)
	first, total, err := l.fetchPage(ctx, 0)
	if err != nil {
		return nil, err
	}

	want := total
	if limit > 0 && limit < want {
		want = limit
	}
	if want <= len(first) {
		instances := clampInstances(first, want)
		if want == total {
			l.cacheInstances(ctx, cacheKey, instances)
		}
		return instances, nil
	}

	pages := (want + rowsPerPage - 1) / rowsPerPage
	results := make([][]Instance, pages)
	results[0] = first

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(fetchConcurrency)
	for p := 1; p < pages; p++ {
		p := p
		g.Go(func() error {
			rows, _, err := l.fetchPage(gCtx, p*rowsPerPage)
			if err != nil {
				return err
			}
			results[p] = rows
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	instances := make([]Instance, 0, want)
	for _, page := range results {
		instances = append(instances, page...)
	}
	instances = clampInstances(instances, want)

	if want == total {
		l.cacheInstances(ctx, cacheKey, instances)
	}
	slog.Info("dataset downloaded", "dataset", l.dataset, "instances", len(instances))
	return instances, nil
}

func (l *Loader) fetchPage(ctx context.Context, offset int) ([]Instance, int, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return nil, 0, fmt.Errorf("waiting for rate limit: %w", err)
	}

	endpoint := fmt.Sprintf("%s/rows?dataset=%s&config=default&split=%s&offset=%d&length=%d",
		l.baseURL, url.QueryEscape(l.dataset), url.QueryEscape(l.split), offset, rowsPerPage)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("building rows request: %w", err)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("fetching dataset rows: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, 0, fmt.Errorf("dataset server returned %s at offset %d", resp.Status, offset)
	}

	var payload rowsResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, 0, fmt.Errorf("decoding dataset rows: %w", err)
	}

	instances := make([]Instance, 0, len(payload.Rows))
	for _, row := range payload.Rows {
		instances = append(instances, row.Row)
	}
	return instances, payload.NumRowsTotal, nil
}

func (l *Loader) cacheInstances(ctx context.Context, key []byte, instances []Instance) {
	if l.cache == nil {
		return
	}
	raw, err := json.Marshal(instances)
	if err != nil {
		return
	}
	if err := l.cache.Put(ctx, key, raw, 0); err != nil {
		slog.Debug("caching dataset failed", "dataset", l.dataset, "error", err)
	}
}

func clampInstances(instances []Instance, limit int) []Instance {
	if limit > 0 && len(instances) > limit {
		return instances[:limit]
	}
	return instances
}
