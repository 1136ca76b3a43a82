package fetch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "photofetch/pkg/errors"
	"photofetch/pkg/logger"
	"photofetch/pkg/render"
	"photofetch/pkg/storage"
)

// fakeRenderer serves canned responses keyed by URL
type fakeRenderer struct {
	responses map[string]*render.Response
	navErrs   map[string]error
	images    map[string]string
	srcErr    error
	current   string
	visited   []string
	waits     [][]render.WaitEvent
}

func (f *fakeRenderer) Navigate(ctx context.Context, rawURL string, opts render.NavigateOptions) (*render.Response, error) {
	f.visited = append(f.visited, rawURL)
	f.waits = append(f.waits, opts.WaitUntil)
	if err := f.navErrs[rawURL]; err != nil {
		return nil, err
	}
	resp, ok := f.responses[rawURL]
	if !ok {
		resp = &render.Response{URL: rawURL, Status: 404}
	}
	f.current = rawURL
	return resp, nil
}

func (f *fakeRenderer) FirstImageSource(ctx context.Context) (string, error) {
	if f.srcErr != nil {
		return "", f.srcErr
	}
	return f.images[f.current], nil
}

func (f *fakeRenderer) Close() error { return nil }

func newFixture(t *testing.T) (*fakeRenderer, *storage.Manager, *Pipeline) {
	t.Helper()
	r := &fakeRenderer{
		responses: map[string]*render.Response{
			"http://x/1":          {URL: "http://x/1", Status: 200, Body: []byte("<html>")},
			"http://cdn/ab12.png": {URL: "http://cdn/ab12.png", Status: 200, Body: []byte("image-bytes")},
		},
		navErrs: map[string]error{},
		images:  map[string]string{"http://x/1": "http://cdn/ab12.png"},
	}
	store, err := storage.NewManager(t.TempDir(), 0644, 0755)
	require.NoError(t, err)
	return r, store, NewPipeline(r, store, logger.NewNopLogger())
}

func TestFetchSuccess(t *testing.T) {
	r, store, p := newFixture(t)

	res, err := p.Fetch(context.Background(), "AB-12", "http://x/1")
	require.NoError(t, err)

	assert.Equal(t, "http://cdn/ab12.png", res.ImageURL)
	assert.Equal(t, filepath.Join(store.GetOutputDir(), "AB-12.jpg"), res.Path)
	assert.Equal(t, len("image-bytes"), res.Bytes)

	data, err := os.ReadFile(res.Path)
	require.NoError(t, err)
	assert.Equal(t, "image-bytes", string(data))

	assert.Equal(t, []string{"http://x/1", "http://cdn/ab12.png"}, r.visited)
	assert.Equal(t, render.PageLoad.WaitUntil, r.waits[0], "page load waits for DOM and network idle")
	assert.Equal(t, render.ResourceLoad.WaitUntil, r.waits[1])
}

func TestFetchFailures(t *testing.T) {
	tests := []struct {
		name       string
		setup      func(r *fakeRenderer)
		wantType   errs.ErrorType
		wantReason string
	}{
		{
			name:       "navigation error",
			setup:      func(r *fakeRenderer) { r.navErrs["http://x/1"] = errors.New("timeout") },
			wantType:   errs.ErrorTypeNavigation,
			wantReason: "timeout",
		},
		{
			name:       "page status",
			setup:      func(r *fakeRenderer) { r.responses["http://x/1"].Status = 503 },
			wantType:   errs.ErrorTypeNavigation,
			wantReason: "HTTP 503",
		},
		{
			name:       "no image",
			setup:      func(r *fakeRenderer) { delete(r.images, "http://x/1") },
			wantType:   errs.ErrorTypeImageNotFound,
			wantReason: "no image element found on page",
		},
		{
			name:       "script failure",
			setup:      func(r *fakeRenderer) { r.srcErr = errors.New("execution context was destroyed") },
			wantType:   errs.ErrorTypeImageNotFound,
			wantReason: "execution context was destroyed",
		},
		{
			name:       "image transport error",
			setup:      func(r *fakeRenderer) { r.navErrs["http://cdn/ab12.png"] = errors.New("connection reset") },
			wantType:   errs.ErrorTypeDownload,
			wantReason: "connection reset",
		},
		{
			name:       "image status",
			setup:      func(r *fakeRenderer) { delete(r.responses, "http://cdn/ab12.png") },
			wantType:   errs.ErrorTypeDownload,
			wantReason: "HTTP 404",
		},
		{
			name:       "empty image",
			setup:      func(r *fakeRenderer) { r.responses["http://cdn/ab12.png"].Body = nil },
			wantType:   errs.ErrorTypeDownload,
			wantReason: "empty response body",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, store, p := newFixture(t)
			tt.setup(r)

			_, err := p.Fetch(context.Background(), "AB-12", "http://x/1")
			require.Error(t, err)
			assert.Equal(t, tt.wantType, errs.TypeOf(err))
			assert.True(t, errs.IsRecordFailure(err))
			assert.Equal(t, tt.wantReason, errs.Reason(err))
			assert.False(t, store.Exists("AB-12"), "failed fetch must not write a file")
		})
	}
}

type failingWriter struct{}

func (failingWriter) SaveImage(id string, data []byte) (string, error) {
	return "", errors.New("no space left on device")
}

func TestFetchWriteError(t *testing.T) {
	r, _, _ := newFixture(t)
	p := NewPipeline(r, failingWriter{}, logger.NewNopLogger())

	_, err := p.Fetch(context.Background(), "AB-12", "http://x/1")
	require.Error(t, err)
	assert.Equal(t, errs.ErrorTypeWrite, errs.TypeOf(err))
	assert.Equal(t, "no space left on device", errs.Reason(err))
}

func TestFetchCancelledIsNotRecordFailure(t *testing.T) {
	r, _, p := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r.navErrs["http://x/1"] = context.Canceled

	_, err := p.Fetch(ctx, "AB-12", "http://x/1")
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, errs.IsRecordFailure(err))
}
