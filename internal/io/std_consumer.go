package io

import (
	"context"
	goio "io"
	"sync"

	"github.com/ecopia-map/cesium_fetcher/internal/cache"
	"github.com/ecopia-map/cesium_fetcher/internal/fetcher"
	"github.com/ecopia-map/cesium_fetcher/internal/tileset"
	"github.com/golang/glog"
)

// Downloader streams a remote payload into w.
type Downloader interface {
	Download(ctx context.Context, partialURI string, creds fetcher.Credentials, w goio.Writer) (int64, error)
}

type StandardConsumer struct {
	store      *cache.Store
	downloader Downloader
}

func NewStandardConsumer(store *cache.Store, downloader Downloader) *StandardConsumer {
	return &StandardConsumer{
		store:      store,
		downloader: downloader,
	}
}

// Continually consumes WorkUnits submitted to the work channel, storing each payload in the cache and sending
// one DownloadResult per unit. A failed download does not stop the consumer; the failure travels in the result.
// Returns when the work channel is closed.
func (c *StandardConsumer) Consume(ctx context.Context, work chan *WorkUnit, results chan *DownloadResult, wg *sync.WaitGroup) {
	defer wg.Done()

	for {
		unit, ok := <-work
		if !ok {
			// channel was closed by producer
			break
		}
		results <- c.doWork(ctx, unit)
	}
}

func (c *StandardConsumer) doWork(ctx context.Context, unit *WorkUnit) *DownloadResult {
	candidate := unit.Candidate
	result := &DownloadResult{
		Index:      unit.Index,
		ContentURI: candidate.ContentURI,
	}

	if !candidate.Downloadable() {
		result.Skipped = true
		return result
	}
	if err := ctx.Err(); err != nil {
		result.Err = err
		return result
	}

	if c.store.Exists(candidate.ContentURI) {
		result.Path = c.store.Path(candidate.ContentURI)
		result.Cached = true
		return result
	}

	path, shared, err := c.store.Put(ctx, candidate.ContentURI, func(ctx context.Context, w goio.Writer) error {
		n, err := c.downloader.Download(ctx, candidate.ContentURI, candidate.Credentials, w)
		result.Bytes = n
		return err
	})
	if err != nil {
		glog.Warningf("download of %s failed: %v", tileset.URIPath(candidate.ContentURI), err)
		result.Err = err
		return result
	}

	result.Path = path
	result.Cached = shared
	glog.V(2).Infof("stored %s as %s (%d bytes)", tileset.URIPath(candidate.ContentURI), path, result.Bytes)
	return result
}
