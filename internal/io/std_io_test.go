package io

import (
	"context"
	"errors"
	goio "io"
	"os"
	"sort"
	"sync"
	"testing"

	"github.com/ecopia-map/cesium_fetcher/internal/cache"
	"github.com/ecopia-map/cesium_fetcher/internal/fetcher"
	"github.com/ecopia-map/cesium_fetcher/internal/resolver"
	"github.com/ecopia-map/cesium_fetcher/internal/tileset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDownloader struct {
	mu       sync.Mutex
	payloads map[string]string
	calls    map[string]int
}

func newFakeDownloader(payloads map[string]string) *fakeDownloader {
	return &fakeDownloader{payloads: payloads, calls: map[string]int{}}
}

func (d *fakeDownloader) Download(ctx context.Context, partialURI string, creds fetcher.Credentials, w goio.Writer) (int64, error) {
	path := tileset.URIPath(partialURI)
	d.mu.Lock()
	d.calls[path]++
	payload, ok := d.payloads[path]
	d.mu.Unlock()
	if !ok {
		return 0, errors.New("not found")
	}
	n, err := goio.WriteString(w, payload)
	return int64(n), err
}

func (d *fakeDownloader) count(path string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls[path]
}

func candidate(uri string) resolver.Candidate {
	return resolver.Candidate{
		Tile:        &tileset.Tile{},
		ContentURI:  uri,
		Credentials: fetcher.Credentials{APIKey: "k", Session: "S"},
	}
}

func TestProducerSubmitsInOrderAndCloses(t *testing.T) {
	candidates := []resolver.Candidate{candidate("/a.glb"), candidate("/b.glb"), candidate("/c.json")}
	work := make(chan *WorkUnit, len(candidates))

	var wg sync.WaitGroup
	wg.Add(1)
	NewStandardProducer(candidates).Produce(context.Background(), work, &wg)
	wg.Wait()

	var got []string
	for unit := range work {
		assert.Equal(t, len(got), unit.Index)
		got = append(got, unit.Candidate.ContentURI)
	}
	assert.Equal(t, []string{"/a.glb", "/b.glb", "/c.json"}, got)
}

func TestProducerStopsWhenCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	work := make(chan *WorkUnit)

	var wg sync.WaitGroup
	wg.Add(1)
	NewStandardProducer([]resolver.Candidate{candidate("/a.glb")}).Produce(ctx, work, &wg)
	wg.Wait()

	_, ok := <-work
	assert.False(t, ok)
}

func consumeAll(t *testing.T, ctx context.Context, consumer *StandardConsumer, candidates []resolver.Candidate) []*DownloadResult {
	work := make(chan *WorkUnit, len(candidates))
	for i, c := range candidates {
		work <- &WorkUnit{Index: i, Candidate: c}
	}
	close(work)

	results := make(chan *DownloadResult, len(candidates))
	var wg sync.WaitGroup
	wg.Add(1)
	consumer.Consume(ctx, work, results, &wg)
	wg.Wait()
	close(results)

	var out []*DownloadResult
	for r := range results {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	require.Len(t, out, len(candidates))
	return out
}

func TestConsumerOutcomes(t *testing.T) {
	store, err := cache.NewStore(t.TempDir())
	require.NoError(t, err)
	_, _, err = store.Put(context.Background(), "/files/cached.glb", func(ctx context.Context, w goio.Writer) error {
		_, err := goio.WriteString(w, "OLD")
		return err
	})
	require.NoError(t, err)

	downloader := newFakeDownloader(map[string]string{
		"/files/fresh.glb":  "FRESH",
		"/files/cached.glb": "NEW",
	})
	results := consumeAll(t, context.Background(), NewStandardConsumer(store, downloader), []resolver.Candidate{
		candidate("/files/fresh.glb?session=S"),
		candidate("/files/cached.glb?session=S"),
		candidate("/files/missing.glb?session=S"),
		candidate(""),
		candidate("/files/other.json?session=S"),
	})

	fresh := results[0]
	require.NoError(t, fresh.Err)
	assert.False(t, fresh.Cached)
	assert.Equal(t, int64(5), fresh.Bytes)
	data, err := os.ReadFile(fresh.Path)
	require.NoError(t, err)
	assert.Equal(t, "FRESH", string(data))

	cached := results[1]
	require.NoError(t, cached.Err)
	assert.True(t, cached.Cached)
	data, err = os.ReadFile(cached.Path)
	require.NoError(t, err)
	assert.Equal(t, "OLD", string(data))
	assert.Zero(t, downloader.count("/files/cached.glb"))

	missing := results[2]
	assert.Error(t, missing.Err)
	assert.Empty(t, missing.Path)
	assert.False(t, store.Exists("/files/missing.glb"))

	assert.True(t, results[3].Skipped)
	assert.True(t, results[4].Skipped)
	assert.Zero(t, downloader.count("/files/other.json"))
}

func TestConsumerCancelled(t *testing.T) {
	store, err := cache.NewStore(t.TempDir())
	require.NoError(t, err)
	downloader := newFakeDownloader(map[string]string{"/files/a.glb": "A"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	results := consumeAll(t, ctx, NewStandardConsumer(store, downloader), []resolver.Candidate{candidate("/files/a.glb")})

	assert.ErrorIs(t, results[0].Err, context.Canceled)
	assert.Zero(t, downloader.count("/files/a.glb"))
}
