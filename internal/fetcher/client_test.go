package fetcher

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ecopia-map/cesium_fetcher/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rootJSON = `{"asset":{"version":"1.0"},"geometricError":1000,"root":{"boundingVolume":{"box":[0,0,0,1,0,0,0,1,0,0,0,1]},"geometricError":1000}}`

func newTestClient(t *testing.T, server *httptest.Server) *Client {
	client, err := NewClient(Options{
		BaseURL: server.URL,
		Retry:   &RetryStrategy{Intervals: []time.Duration{time.Millisecond}, MaxRetries: 3},
	})
	require.NoError(t, err)
	return client
}

func TestURL(t *testing.T) {
	client, err := NewClient(Options{})
	require.NoError(t, err)
	creds := Credentials{APIKey: "secret", Session: "sess1"}

	root, err := client.URL(DefaultRootPath, creds)
	require.NoError(t, err)
	assert.Equal(t, "https://tile.googleapis.com/v1/3dtiles/root.json?key=secret", root)

	child, err := client.URL("/v1/3dtiles/datasets/CgA/files/AAAA.glb", creds)
	require.NoError(t, err)
	u, err := url.Parse(child)
	require.NoError(t, err)
	assert.Equal(t, "/v1/3dtiles/datasets/CgA/files/AAAA.glb", u.Path)
	assert.Equal(t, "secret", u.Query().Get("key"))
	assert.Equal(t, "sess1", u.Query().Get("session"))

	// a session already in the uri wins
	own, err := client.URL("/v1/a.json?session=fromuri", creds)
	require.NoError(t, err)
	u, err = url.Parse(own)
	require.NoError(t, err)
	assert.Equal(t, []string{"fromuri"}, u.Query()["session"])

	noSession, err := client.URL("/v1/a.glb", Credentials{APIKey: "secret"})
	require.NoError(t, err)
	u, err = url.Parse(noSession)
	require.NoError(t, err)
	assert.False(t, u.Query().Has("session"))
}

func TestURLKeepsKeyOnBaseHost(t *testing.T) {
	client, err := NewClient(Options{BaseURL: "https://tile.googleapis.com"})
	require.NoError(t, err)
	creds := Credentials{APIKey: "secret", Session: "sess1"}

	foreign, err := client.URL("https://cdn.example.com/files/a.glb", creds)
	require.NoError(t, err)
	u, err := url.Parse(foreign)
	require.NoError(t, err)
	assert.Equal(t, "cdn.example.com", u.Host)
	assert.False(t, u.Query().Has("key"))
	assert.Equal(t, "sess1", u.Query().Get("session"))

	home, err := client.URL("https://TILE.googleapis.com/v1/3dtiles/files/b.glb", creds)
	require.NoError(t, err)
	u, err = url.Parse(home)
	require.NoError(t, err)
	assert.Equal(t, "secret", u.Query().Get("key"))
}

func TestNewClientRejectsRelativeBase(t *testing.T) {
	_, err := NewClient(Options{BaseURL: "tile.googleapis.com"})
	assert.True(t, errs.Is(err, errs.Configuration))
}

func TestSessionOnlyOnNonRootRequests(t *testing.T) {
	type seen struct{ path, key, session string }
	requests := make(chan seen, 10)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests <- seen{r.URL.Path, r.URL.Query().Get("key"), r.URL.Query().Get("session")}
		if r.URL.Path == DefaultRootPath {
			_, _ = w.Write([]byte(rootJSON))
			return
		}
		_, _ = w.Write([]byte("glb-bytes"))
	}))
	defer server.Close()

	client := newTestClient(t, server)
	creds := Credentials{APIKey: "k", Session: "s"}

	_, err := client.FetchTileset(context.Background(), DefaultRootPath, creds)
	require.NoError(t, err)
	var buf bytes.Buffer
	_, err = client.Download(context.Background(), "/v1/x.glb", creds, &buf)
	require.NoError(t, err)
	assert.Equal(t, "glb-bytes", buf.String())

	first, second := <-requests, <-requests
	assert.Equal(t, seen{DefaultRootPath, "k", ""}, first)
	assert.Equal(t, seen{"/v1/x.glb", "k", "s"}, second)
}

func TestErrorEnvelopeIsParseErrorAndNotRetried(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = w.Write([]byte(`{"error":{"code":400,"message":"session expired","status":"INVALID_ARGUMENT"}}`))
	}))
	defer server.Close()

	_, err := newTestClient(t, server).FetchTileset(context.Background(), "/v1/a.json", Credentials{APIKey: "k"})
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.Parse))
	assert.Contains(t, err.Error(), "session expired")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestMalformedJSONIsNotRetried(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = w.Write([]byte(`{"root": [`))
	}))
	defer server.Close()

	_, err := newTestClient(t, server).FetchTileset(context.Background(), "/v1/a.json", Credentials{APIKey: "k"})
	assert.True(t, errs.Is(err, errs.Parse))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestTransientStatusIsRetried(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch atomic.AddInt32(&calls, 1) {
		case 1:
			w.WriteHeader(http.StatusServiceUnavailable)
		case 2:
			w.WriteHeader(http.StatusTooManyRequests)
		default:
			_, _ = w.Write([]byte(rootJSON))
		}
	}))
	defer server.Close()

	ts, err := newTestClient(t, server).FetchTileset(context.Background(), DefaultRootPath, Credentials{APIKey: "k"})
	require.NoError(t, err)
	assert.NotNil(t, ts.Root)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestRetriesAreBounded(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := newTestClient(t, server).FetchTileset(context.Background(), DefaultRootPath, Credentials{APIKey: "k"})
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.Transport))
	assert.Equal(t, int32(4), atomic.LoadInt32(&calls), "one attempt plus three retries")
}

func TestPermanentStatusCarriesServiceMessage(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"code":403,"message":"API key not valid. Please pass a valid API key."}}`))
	}))
	defer server.Close()

	_, err := newTestClient(t, server).FetchTileset(context.Background(), DefaultRootPath, Credentials{APIKey: "bad"})
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.Transport))
	assert.False(t, errs.Retryable(err))
	assert.Contains(t, err.Error(), "API key not valid")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

type rewindBuffer struct {
	bytes.Buffer
	rewinds int
}

func (b *rewindBuffer) Rewind() error {
	b.rewinds++
	b.Reset()
	return nil
}

func TestDownloadRewindsAfterTruncatedBody(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.Header().Set("Content-Length", "100")
			_, _ = w.Write([]byte("partial"))
			return
		}
		_, _ = w.Write([]byte("complete payload"))
	}))
	defer server.Close()

	var buf rewindBuffer
	n, err := newTestClient(t, server).Download(context.Background(), "/v1/t.glb", Credentials{APIKey: "k"}, &buf)
	require.NoError(t, err)
	assert.Equal(t, "complete payload", buf.String())
	assert.Equal(t, int64(len("complete payload")), n)
	assert.Equal(t, 1, buf.rewinds)
}

func TestCancelledContextStopsRequests(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newTestClient(t, server).FetchTileset(ctx, DefaultRootPath, Credentials{APIKey: "k"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWithSessionFrom(t *testing.T) {
	base := Credentials{APIKey: "k"}
	derived := base.WithSessionFrom("/v1/3dtiles/datasets/CgA/files/UlRPVEYu.json?session=CJ2a")
	assert.Equal(t, "CJ2a", derived.Session)
	assert.Equal(t, "k", derived.APIKey)
	assert.Empty(t, base.Session, "the original credentials are untouched")

	assert.Equal(t, derived, derived.WithSessionFrom("/v1/other.glb"))
	assert.Equal(t, "key=<redacted> session=CJ2a", derived.String())
}

func TestResolveReference(t *testing.T) {
	assert.Equal(t, "/v1/a/b.json", ResolveReference("/v1/a/root.json?session=x", "b.json"))
	assert.Equal(t, "/v1/a/sub/c.glb?v=1", ResolveReference("/v1/a/root.json", "sub/c.glb?v=1"))
	assert.Equal(t, "/v1/x.glb", ResolveReference("/v1/a/root.json", "/v1/x.glb"))
	assert.Equal(t, "https://cdn.example.com/t.glb", ResolveReference("/v1/root.json", "https://cdn.example.com/t.glb"))
	assert.Equal(t, "t.glb", ResolveReference("", "t.glb"))
}
