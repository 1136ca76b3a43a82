package main

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"photofetch/pkg/checkpoint"
	"photofetch/pkg/config"
	"photofetch/pkg/logger"
	"photofetch/pkg/manifest"
)

func TestFailureEntries(t *testing.T) {
	failures := []checkpoint.Failure{
		{Index: 7, ManufacturerProductNumber: "B", PhotoUrl: "http://x/7", Error: "timeout"},
		{Index: 2, ManufacturerProductNumber: "A", PhotoUrl: "http://x/2", Error: "HTTP 404"},
		{Index: 7, ManufacturerProductNumber: "B", PhotoUrl: "http://x/7b", Error: "timeout"},
	}

	entries := failureEntries(failures)

	assert.Equal(t, []manifest.Entry{
		{ManufacturerProductNumber: "A", PhotoUrl: "http://x/2"},
		{ManufacturerProductNumber: "B", PhotoUrl: "http://x/7b"},
	}, entries)
}

func TestCheckEnvironment(t *testing.T) {
	dir := t.TempDir()

	cfg := config.DefaultConfig()
	cfg.Output.Directory = filepath.Join(dir, "out")
	cfg.Input.Manifest = filepath.Join(dir, "missing.json")
	cfg.Browser.ExecPath = filepath.Join(dir, "no-chrome")

	problems, warnings := checkEnvironment(cfg)
	assert.Len(t, problems, 2)
	assert.Empty(t, warnings)
	assert.DirExists(t, cfg.Output.Directory)

	require.NoError(t, manifest.Write(cfg.Input.Manifest, nil))
	cfg.Browser.ExecPath = ""
	problems, warnings = checkEnvironment(cfg)
	assert.Empty(t, problems)
	assert.Equal(t, []string{"manifest has no records"}, warnings)
}

func TestRunCommandHTTPBackend(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/p/1", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><img src="/i/1.jpg"></body></html>`))
	})
	mux.HandleFunc("/i/1.jpg", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("jpeg-bytes"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	dir := t.TempDir()
	out := filepath.Join(dir, "images")
	manifestPath := filepath.Join(dir, "products.json")
	require.NoError(t, manifest.Write(manifestPath, []manifest.Entry{
		{ManufacturerProductNumber: "AB/12", PhotoUrl: srv.URL + "/p/1"},
		{ManufacturerProductNumber: "CD", PhotoUrl: srv.URL + "/missing"},
	}))

	rootCmd.SetArgs([]string{"run", manifestPath, "--backend", "http", "--output", out, "--quiet", "--no-color", "--log-level", "error"})
	require.NoError(t, rootCmd.Execute())

	data, err := os.ReadFile(filepath.Join(out, "AB-12.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "jpeg-bytes", string(data))

	store := checkpoint.NewStore(filepath.Join(out, "download_state.json"), filepath.Join(out, "failed.json"), 0644, logger.NewNopLogger())
	state, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, 1, state.LastProcessedIndex)

	failures, err := store.LoadFailures()
	require.NoError(t, err)
	require.Len(t, failures, 1)
	assert.Equal(t, "HTTP 404", failures[0].Error)
}
