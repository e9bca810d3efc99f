// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package store is the embedded cache behind dataset loading and
// repository snapshots.
//
// Re-analyzing a dataset hits the same repositories, commits, and
// instances over and over; BadgerDB keeps file contents at a commit and
// fetched instances local so repeat runs skip the network and the git
// subprocess. Values are plain bytes; callers own the encoding.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// Config holds configuration for the cache database.
type Config struct {
	// Path is the directory for database files. Required unless InMemory
	// is set.
	Path string

	// InMemory keeps everything in RAM. Used by tests.
	InMemory bool

	// SyncWrites syncs every write to disk. The cache is rebuildable, so
	// this defaults off.
	SyncWrites bool

	// Logger receives Badger's internal logging. Nil disables it.
	Logger *slog.Logger

	// GCInterval is how often to run value log garbage collection. 0
	// disables GC.
	GCInterval time.Duration

	// GCDiscardRatio is the minimum ratio of discardable data before GC
	// rewrites a value log file.
	GCDiscardRatio float64
}

// DefaultConfig returns the production cache configuration: persistent,
// async writes, hourly GC.
func DefaultConfig(path string) Config {
	return Config{
		Path:           path,
		GCInterval:     time.Hour,
		GCDiscardRatio: 0.5,
	}
}

// InMemoryConfig returns a throwaway configuration for tests.
func InMemoryConfig() Config {
	return Config{InMemory: true}
}

// badgerLogger adapts slog.Logger to Badger's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// Store is a byte-valued cache on BadgerDB.
//
// Thread Safety: safe for concurrent use.
type Store struct {
	db     *badger.DB
	stopGC chan struct{}
	doneGC chan struct{}
}

// Open opens the cache at the configured path, creating the directory
// when needed, and starts the GC loop when an interval is configured.
// The caller must Close the returned store.
func Open(cfg Config) (*Store, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for a persistent cache")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create cache directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites)
	opts = opts.WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open cache database: %w", err)
	}

	s := &Store{db: db}
	if cfg.GCInterval > 0 && !cfg.InMemory {
		s.stopGC = make(chan struct{})
		s.doneGC = make(chan struct{})
		go s.runGC(cfg.GCInterval, cfg.GCDiscardRatio, cfg.Logger)
	}
	return s, nil
}

// Close stops garbage collection and closes the database.
func (s *Store) Close() error {
	if s.stopGC != nil {
		close(s.stopGC)
		<-s.doneGC
		s.stopGC = nil
	}
	return s.db.Close()
}

// Get returns the cached value for the key. The second return is false
// on a miss.
func (s *Store) Get(ctx context.Context, key []byte) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	var val []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache get %q: %w", key, err)
	}
	return val, true, nil
}

// Put stores the value under the key. A positive ttl expires the entry;
// zero keeps it until evicted.
func (s *Store) Put(ctx context.Context, key, val []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry(key, val)
		if ttl > 0 {
			entry = entry.WithTTL(ttl)
		}
		return txn.SetEntry(entry)
	})
	if err != nil {
		return fmt.Errorf("cache put %q: %w", key, err)
	}
	return nil
}

// Delete removes the key. Deleting a missing key is not an error.
func (s *Store) Delete(ctx context.Context, key []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key)
	})
	if err != nil {
		return fmt.Errorf("cache delete %q: %w", key, err)
	}
	return nil
}

func (s *Store) runGC(interval time.Duration, ratio float64, logger *slog.Logger) {
	defer close(s.doneGC)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopGC:
			return
		case <-ticker.C:
			err := s.db.RunValueLogGC(ratio)
			if err != nil && !errors.Is(err, badger.ErrNoRewrite) && logger != nil {
				logger.Warn("cache value log GC error", slog.String("error", err.Error()))
			}
		}
	}
}

// FileKey keys a file's content at a commit.
func FileKey(repo, commit, path string) []byte {
	return []byte(fmt.Sprintf("file/%s/%s/%s", repo, commit, path))
}

// InstanceKey keys a fetched dataset instance.
func InstanceKey(id string) []byte {
	return []byte("instance/" + id)
}
