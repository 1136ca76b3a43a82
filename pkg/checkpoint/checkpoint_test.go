package checkpoint

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "photofetch/pkg/errors"
	"photofetch/pkg/logger"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	store := NewStore(
		filepath.Join(dir, "download_state.json"),
		filepath.Join(dir, "failed.json"),
		0,
		logger.NewNopLogger(),
	)
	return store, dir
}

func TestLoadMissingCheckpoint(t *testing.T) {
	store, _ := newTestStore(t)

	state, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, 0, state.LastProcessedIndex)
	assert.False(t, store.Exists())
}

func TestSaveAndLoad(t *testing.T) {
	store, dir := newTestStore(t)

	require.NoError(t, store.Save(State{LastProcessedIndex: 42}))
	assert.True(t, store.Exists())

	data, err := os.ReadFile(filepath.Join(dir, "download_state.json"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"lastProcessedIndex":42}`, string(data))

	state, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, 42, state.LastProcessedIndex)

	// no temp files left behind
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestFilePermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix permissions")
	}

	tests := []struct {
		name string
		perm os.FileMode
		want os.FileMode
	}{
		{"default", 0, 0644},
		{"configured", 0600, 0600},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			store := NewStore(filepath.Join(dir, "download_state.json"), filepath.Join(dir, "failed.json"), tt.perm, logger.NewNopLogger())

			require.NoError(t, store.Save(State{LastProcessedIndex: 1}))
			require.NoError(t, store.SaveFailures([]Failure{{Index: 1, Error: "HTTP 404"}}))

			for _, name := range []string{"download_state.json", "failed.json"} {
				fi, err := os.Stat(filepath.Join(dir, name))
				require.NoError(t, err)
				assert.Equal(t, tt.want, fi.Mode().Perm(), name)
			}
		})
	}
}

func TestLoadCorruptCheckpoint(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"not json", "lastProcessedIndex=3"},
		{"wrong type", `{"lastProcessedIndex":"three"}`},
		{"negative", `{"lastProcessedIndex":-1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, dir := newTestStore(t)
			require.NoError(t, os.WriteFile(filepath.Join(dir, "download_state.json"), []byte(tt.content), 0644))

			_, err := store.Load()
			require.Error(t, err)
			assert.Equal(t, errs.ErrorTypeCorruptCheckpoint, errs.TypeOf(err))
		})
	}
}

func TestFailuresRoundTrip(t *testing.T) {
	store, dir := newTestStore(t)

	failures, err := store.LoadFailures()
	require.NoError(t, err)
	assert.Empty(t, failures)

	want := []Failure{
		{Index: 0, ManufacturerProductNumber: "AB-12", PhotoUrl: "http://x/1", Error: "timeout"},
		{Index: 4, ManufacturerProductNumber: "CD-34", PhotoUrl: "http://x/5", Error: "no image element found on page"},
	}
	require.NoError(t, store.SaveFailures(want))

	got, err := store.LoadFailures()
	require.NoError(t, err)
	assert.Equal(t, want, got)

	data, err := os.ReadFile(filepath.Join(dir, "failed.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "[\n  {\n    \"index\": 0,\n    \"ManufacturerProductNumber\": \"AB-12\"")
}

func TestSaveFailuresEmptyKeepsExistingFile(t *testing.T) {
	store, dir := newTestStore(t)
	path := filepath.Join(dir, "failed.json")

	require.NoError(t, store.SaveFailures(nil))
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err), "empty list must not create the file")

	old := []Failure{{Index: 1, ManufacturerProductNumber: "A", PhotoUrl: "http://x/a", Error: "boom"}}
	require.NoError(t, store.SaveFailures(old))
	require.NoError(t, store.SaveFailures([]Failure{}))

	got, err := store.LoadFailures()
	require.NoError(t, err)
	assert.Equal(t, old, got)
}

func TestLoadCorruptFailures(t *testing.T) {
	store, dir := newTestStore(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "failed.json"), []byte("{not an array"), 0644))

	_, err := store.LoadFailures()
	assert.Equal(t, errs.ErrorTypeCorruptCheckpoint, errs.TypeOf(err))
}

func TestDelete(t *testing.T) {
	store, _ := newTestStore(t)

	require.NoError(t, store.Delete(), "deleting a missing checkpoint is not an error")

	require.NoError(t, store.Save(State{LastProcessedIndex: 7}))
	require.NoError(t, store.SaveFailures([]Failure{{Index: 7}}))

	require.NoError(t, store.Delete())
	assert.False(t, store.Exists())

	failures, err := store.LoadFailures()
	require.NoError(t, err)
	assert.Len(t, failures, 1, "resetting the checkpoint keeps the failure log")

	require.NoError(t, store.DeleteFailures())
	failures, err = store.LoadFailures()
	require.NoError(t, err)
	assert.Empty(t, failures)
}

func TestGetInfo(t *testing.T) {
	store, _ := newTestStore(t)

	info, err := store.GetInfo()
	require.NoError(t, err)
	assert.False(t, info.Exists)
	assert.Equal(t, 0, info.LastProcessedIndex)

	require.NoError(t, store.Save(State{LastProcessedIndex: 11}))
	require.NoError(t, store.SaveFailures([]Failure{{Index: 3}, {Index: 9}}))

	info, err = store.GetInfo()
	require.NoError(t, err)
	assert.True(t, info.Exists)
	assert.Equal(t, 11, info.LastProcessedIndex)
	assert.Equal(t, 2, info.Failures)
	assert.False(t, info.UpdatedAt.IsZero())
}
