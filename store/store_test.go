package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "state", "flags.db")
	s, err := Open(path, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, path
}

func TestGetMissingKey(t *testing.T) {
	s, _ := openTemp(t)
	v, ok := s.Get(context.Background(), "nope")
	assert.False(t, ok)
	assert.Empty(t, v)
}

func TestSetOverwrites(t *testing.T) {
	s, _ := openTemp(t)
	ctx := context.Background()
	s.Set(ctx, "k", "one")
	s.Set(ctx, "k", "two")
	v, ok := s.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, "two", v)
}

func TestConsentSurvivesReopen(t *testing.T) {
	s, path := openTemp(t)
	ctx := context.Background()
	assert.False(t, s.ConsentGranted(ctx))
	s.GrantConsent(ctx)
	require.NoError(t, s.Close())

	reopened, err := Open(path, nil)
	require.NoError(t, err)
	defer reopened.Close()
	assert.True(t, reopened.ConsentGranted(ctx))
}

func TestModelFlags(t *testing.T) {
	s, _ := openTemp(t)
	ctx := context.Background()
	id := "onnx-community/whisper-tiny.en"

	assert.False(t, s.ModelReady(ctx, id))
	s.MarkModelReady(ctx, id)
	assert.True(t, s.ModelReady(ctx, id))
	assert.False(t, s.ModelReady(ctx, "other"))

	_, ok := s.LastProgress(ctx, id)
	assert.False(t, ok)
	s.RecordProgress(ctx, id, 42.5)
	p, ok := s.LastProgress(ctx, id)
	require.True(t, ok)
	assert.InDelta(t, 42.5, p, 0.001)
}

func TestNilStoreIsInert(t *testing.T) {
	var s *Store
	ctx := context.Background()
	s.GrantConsent(ctx)
	assert.False(t, s.ConsentGranted(ctx))
	assert.NoError(t, s.Close())
}
