package probe_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fwojciec/parley/probe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProber_IsImage(t *testing.T) {
	t.Parallel()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, http.MethodHead, r.Method)
		assert.Equal(t, "Mozilla/5.0", r.Header.Get("User-Agent"))
		switch r.URL.Path {
		case "/a.png":
			w.Header().Set("Content-Type", "image/png")
		default:
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
		}
	}))
	t.Cleanup(srv.Close)

	p := probe.New(probe.WithHTTPClient(srv.Client()))
	ok, err := p.IsImage(context.Background(), srv.URL+"/a.png")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = p.IsImage(context.Background(), srv.URL+"/page")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = p.IsImage(context.Background(), srv.URL+"/a.png")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int32(2), hits.Load(), "answers are cached")
}

func TestProber_Timeout(t *testing.T) {
	t.Parallel()
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})

	p := probe.New(probe.WithHTTPClient(srv.Client()), probe.WithTimeout(50*time.Millisecond))
	ok, err := p.IsImage(context.Background(), srv.URL+"/slow.png")
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestProber_Unreachable(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL + "/gone.png"
	srv.Close()

	ok, err := probe.New().IsImage(context.Background(), url)
	assert.Error(t, err)
	assert.False(t, ok)
}
