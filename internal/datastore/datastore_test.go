package datastore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type entry struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func newStore(t *testing.T, path string, backups int) *DataStore {
	t.Helper()
	ds, err := NewWithConfig(&Config{FilePath: path, BackupCount: backups, Logger: zerolog.Nop()})
	require.NoError(t, err)
	return ds
}

func TestNew_CreatesEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "store.json")
	ds := newStore(t, path, 0)
	defer ds.Close()

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, "{}", string(raw))
}

func TestPutGet_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")

	ds := newStore(t, path, 0)
	require.NoError(t, ds.Put("a", entry{Name: "alpha", Count: 2}))
	require.NoError(t, ds.Close())

	reopened := newStore(t, path, 0)
	defer reopened.Close()

	var got entry
	ok, err := reopened.Get("a", &got)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, entry{Name: "alpha", Count: 2}, got)

	ok, err = reopened.Get("missing", &got)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestKeysAreSorted(t *testing.T) {
	ds := newStore(t, filepath.Join(t.TempDir(), "store.json"), 0)
	defer ds.Close()

	require.NoError(t, ds.Put("b", 1))
	require.NoError(t, ds.Put("a", 2))
	require.NoError(t, ds.Put("b", 3))
	assert.Equal(t, []string{"a", "b"}, ds.Keys())
}

func TestClose_WritesPendingState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	ds := newStore(t, path, 0)

	require.NoError(t, ds.Put("a", 1))
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, "{}", string(raw))

	require.NoError(t, ds.Close())
	raw, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a": 1}`, string(raw))
}

func TestClosedStoreRejectsWrites(t *testing.T) {
	ds := newStore(t, filepath.Join(t.TempDir(), "store.json"), 0)
	require.NoError(t, ds.Close())
	require.NoError(t, ds.Close())

	assert.ErrorIs(t, ds.Put("a", 1), ErrClosed)
	assert.ErrorIs(t, ds.SaveToFile(), ErrClosed)
}

func TestLoadRejectsInvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	require.NoError(t, os.WriteFile(path, []byte("{nope"), 0o644))

	_, err := New(path)
	assert.Error(t, err)
}

func TestBackupsAreCapped(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	ds := newStore(t, path, 2)
	defer ds.Close()

	for i := range 5 {
		require.NoError(t, ds.Put("n", i))
		require.NoError(t, ds.SaveToFile())
	}

	backups, err := filepath.Glob(path + ".backup.*")
	require.NoError(t, err)
	assert.Len(t, backups, 2)
}
