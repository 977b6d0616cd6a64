package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// createTestStore creates a new store in a temporary directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createFixtureStore creates a store loaded with testdata/dataset.yaml.
func createFixtureStore(t *testing.T) *Store {
	t.Helper()
	s := createTestStore(t)
	ds, err := LoadDataset(filepath.Join("testdata", "dataset.yaml"))
	require.NoError(t, err)
	_, err = s.Import(context.Background(), ds)
	require.NoError(t, err)
	return s
}
