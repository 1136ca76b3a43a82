package render

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"photofetch/pkg/config"
	"photofetch/pkg/logger"
)

// Browser tests need a local Chrome; enable with PHOTOFETCH_CHROME_TESTS=1.
func newTestChrome(t *testing.T) *Chrome {
	t.Helper()
	if os.Getenv("PHOTOFETCH_CHROME_TESTS") == "" {
		t.Skip("set PHOTOFETCH_CHROME_TESTS=1 to run browser tests")
	}

	cfg := config.DefaultConfig().Browser
	cfg.ExecPath = os.Getenv("PHOTOFETCH_CHROME_PATH")
	cfg.NavigationTimeout = 20 * time.Second

	c, err := NewChrome(context.Background(), &cfg, logger.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestChromeLazyLoadedImage(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/product", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><body><script>
			const img = document.createElement("img");
			img.src = "/img/ab-12.png";
			document.body.appendChild(img);
		</script></body></html>`))
	})
	mux.HandleFunc("/img/ab-12.png", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte("\x89PNG fake"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := newTestChrome(t)
	ctx := context.Background()

	resp, err := c.Navigate(ctx, srv.URL+"/product", PageLoad)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Status)

	src, err := c.FirstImageSource(ctx)
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/img/ab-12.png", src)

	img, err := c.Navigate(ctx, src, ResourceLoad)
	require.NoError(t, err)
	assert.Equal(t, []byte("\x89PNG fake"), img.Body)
}

func TestChromeNoImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body>nothing here</body></html>`))
	}))
	defer srv.Close()

	c := newTestChrome(t)
	_, err := c.Navigate(context.Background(), srv.URL, PageLoad)
	require.NoError(t, err)

	src, err := c.FirstImageSource(context.Background())
	require.NoError(t, err)
	assert.Empty(t, src)
}

func TestPageTrackerWait(t *testing.T) {
	tr := newPageTracker()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		_, err := tr.wait(ctx, "L1", PageLoad.WaitUntil)
		done <- err
	}()

	tr.handle(lifecycle("L1", "init"))
	tr.handle(lifecycle("L1", "DOMContentLoaded"))
	tr.handle(documentReceived("L1", "R1"))
	tr.handle(lifecycle("L2", "networkIdle"))

	select {
	case <-done:
		t.Fatal("wait returned before networkIdle")
	case <-time.After(50 * time.Millisecond):
	}

	tr.handle(lifecycle("L1", "networkIdle"))
	require.NoError(t, <-done)
}

func TestPageTrackerWaitTimeout(t *testing.T) {
	tr := newPageTracker()
	tr.handle(lifecycle("L1", "DOMContentLoaded"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := tr.wait(ctx, "L1", PageLoad.WaitUntil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func lifecycle(loader cdp.LoaderID, name string) *page.EventLifecycleEvent {
	return &page.EventLifecycleEvent{LoaderID: loader, Name: name}
}

func documentReceived(loader cdp.LoaderID, req network.RequestID) *network.EventResponseReceived {
	return &network.EventResponseReceived{
		LoaderID:  loader,
		RequestID: req,
		Type:      network.ResourceTypeDocument,
		Response:  &network.Response{URL: "http://x/1", Status: 200},
	}
}
