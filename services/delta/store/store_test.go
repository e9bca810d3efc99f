// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(InMemoryConfig())
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, s.Close())
	})
	return s
}

func TestStorePutGet(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	key := FileKey("astropy/astropy", "abc123", "astropy/io/fits/core.py")
	require.NoError(t, s.Put(ctx, key, []byte("x = 1\n"), 0))

	val, ok, err := s.Get(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("x = 1\n"), val)
}

func TestStoreMiss(t *testing.T) {
	s := openTestStore(t)

	val, ok, err := s.Get(context.Background(), InstanceKey("missing"))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, val)
}

func TestStoreDelete(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	key := InstanceKey("django__django-12345")
	require.NoError(t, s.Put(ctx, key, []byte(`{"instance_id":"django__django-12345"}`), 0))
	require.NoError(t, s.Delete(ctx, key))

	_, ok, err := s.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	// Deleting again is a no-op.
	require.NoError(t, s.Delete(ctx, key))
}

func TestStoreRequiresPath(t *testing.T) {
	_, err := Open(Config{})
	assert.Error(t, err)
}

func TestStoreHonorsCancelledContext(t *testing.T) {
	s := openTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Error(t, s.Put(ctx, []byte("k"), []byte("v"), 0))
	_, _, err := s.Get(ctx, []byte("k"))
	assert.Error(t, err)
}

func TestKeyShapes(t *testing.T) {
	assert.Equal(t, "file/o/r/c/path.py", string(FileKey("o/r", "c", "path.py")))
	assert.Equal(t, "instance/id-1", string(InstanceKey("id-1")))
}
