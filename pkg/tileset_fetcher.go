package pkg

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/ecopia-map/cesium_fetcher/internal/cache"
	"github.com/ecopia-map/cesium_fetcher/internal/converters"
	"github.com/ecopia-map/cesium_fetcher/internal/fetcher"
	"github.com/ecopia-map/cesium_fetcher/internal/geometry"
	"github.com/ecopia-map/cesium_fetcher/internal/io"
	"github.com/ecopia-map/cesium_fetcher/internal/resolver"
	"github.com/ecopia-map/cesium_fetcher/internal/tiler"
	"github.com/ecopia-map/cesium_fetcher/internal/tileset"
	"github.com/ecopia-map/cesium_fetcher/pkg/algorithm_manager"
	"github.com/ecopia-map/cesium_fetcher/tools"
	"github.com/golang/glog"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

type ITilesetFetcher interface {
	RunFetcher(ctx context.Context, opts *tiler.FetcherOptions) (*Report, error)
}

type TilesetFetcher struct {
	algorithmManager algorithm_manager.AlgorithmManager
}

func NewTilesetFetcher(algorithmManager algorithm_manager.AlgorithmManager) ITilesetFetcher {
	return &TilesetFetcher{
		algorithmManager: algorithmManager,
	}
}

// Resolves the tileset down to the tiles around the region of interest and downloads them into the cache.
// Configuration problems fail before any request is made. Failed branches and downloads are reported, not
// returned as errors.
func (f *TilesetFetcher) RunFetcher(ctx context.Context, opts *tiler.FetcherOptions) (*Report, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	started := time.Now()
	report := &Report{RunID: runID, StartedAt: started, MaxDepth: opts.MaxDepth}
	glog.Infof("[%s] starting resolve, max depth %d, predicate %s", runID, opts.MaxDepth, opts.Algorithm)

	converter := f.algorithmManager.GetCoordinateConverterAlgorithm()
	defer converter.Cleanup()

	store, err := f.prepareCache(opts)
	if err != nil {
		return nil, err
	}

	region, err := opts.Anchor.RegionToECEF(converter, opts.Region, f.algorithmManager.GetElevationCorrectionAlgorithm())
	if err != nil {
		return nil, err
	}
	report.Region = region.Range(converter)
	glog.Infof("[%s] region spans lat [%.6f, %.6f] lon [%.6f, %.6f]", runID,
		report.Region.MinLat, report.Region.MaxLat, report.Region.MinLon, report.Region.MaxLon)

	client, err := fetcher.NewClient(fetcher.Options{
		BaseURL:  opts.BaseURL,
		RootPath: opts.RootPath,
		Timeout:  opts.Timeout,
		Retry:    retryStrategy(opts.Retries),
	})
	if err != nil {
		return nil, err
	}

	tools.LogOutput("> fetching root tileset...")
	root, err := client.FetchRoot(ctx, opts.APIKey)
	if err != nil {
		return nil, err
	}

	tools.LogOutput("> resolving tiles...")
	res, err := resolver.New(client, f.algorithmManager.GetViabilityAlgorithm(region), resolver.Options{
		MaxDepth:        opts.MaxDepth,
		Workers:         opts.Workers,
		MemoizeClusters: opts.MemoizeClusters,
		MemoSize:        opts.MemoSize,
	})
	if err != nil {
		return nil, err
	}
	result, err := res.Resolve(ctx, fetcher.Credentials{APIKey: opts.APIKey}, root.Root, client.RootPath())
	if err != nil {
		return nil, err
	}
	report.ClusterFetches = result.ClusterFetches
	report.Pruned = result.Pruned
	report.BranchErrors = lo.Map(result.BranchErrors, func(e error, _ int) string { return e.Error() })
	tools.LogOutput(fmt.Sprintf("> %d tiles selected, %d cluster fetches, %d pruned, %d abandoned branches",
		len(result.Candidates), result.ClusterFetches, result.Pruned, len(result.BranchErrors)))

	tools.LogOutput("> downloading tiles...")
	downloads, err := f.download(ctx, store, client, result.Candidates, opts.Workers)
	if err != nil {
		return nil, err
	}
	fillReport(report, result, downloads, converter)

	if opts.Query != nil {
		point, err := queryPointECEF(converter, opts.Query)
		if err != nil {
			return nil, err
		}
		report.Contains = QueryPoint(report.BoundingVolumes, point)
	}

	report.Duration = time.Since(started).String()
	glog.Infof("[%s] done in %s: %d downloaded, %d cached, %d skipped, %d failed", runID, report.Duration,
		len(report.Downloaded), report.Cached, report.Skipped, report.Failed)

	if opts.TilesetPath != "" {
		local := BuildLocalTileset(root.Root, result.Candidates, downloads, filepath.Dir(opts.TilesetPath))
		if err := WriteLocalTileset(opts.TilesetPath, local); err != nil {
			return report, err
		}
	}
	if opts.ReportPath != "" {
		if err := WriteReport(opts.ReportPath, report); err != nil {
			return report, err
		}
	}
	return report, nil
}

func (f *TilesetFetcher) prepareCache(opts *tiler.FetcherOptions) (*cache.Store, error) {
	store, err := cache.NewStore(opts.CacheDir)
	if err != nil {
		return nil, err
	}
	if opts.ClearCache {
		tools.LogOutput("> clearing cache", opts.CacheDir)
		if _, err := cache.ClearCache(opts.CacheDir); err != nil {
			return nil, err
		}
	}
	return store, nil
}

// Downloads the candidates with a producer and a pool of consumers, returning one result per candidate in
// candidate order. Only cancellation is returned as an error.
func (f *TilesetFetcher) download(ctx context.Context, store *cache.Store, downloader io.Downloader, candidates []resolver.Candidate, workers int) ([]*io.DownloadResult, error) {
	numConsumers := workers
	if numConsumers < 1 {
		numConsumers = 1
	}

	// init channel where to submit work with a buffer 5 times greater than the number of consumers
	workChannel := make(chan *io.WorkUnit, numConsumers*5)
	resultChannel := make(chan *io.DownloadResult, numConsumers*5)

	var waitGroup sync.WaitGroup

	waitGroup.Add(1)
	producer := io.NewStandardProducer(candidates)
	go producer.Produce(ctx, workChannel, &waitGroup)

	for i := 0; i < numConsumers; i++ {
		waitGroup.Add(1)
		consumer := io.NewStandardConsumer(store, downloader)
		go consumer.Consume(ctx, workChannel, resultChannel, &waitGroup)
	}

	go func() {
		waitGroup.Wait()
		close(resultChannel)
	}()

	results := make([]*io.DownloadResult, 0, len(candidates))
	for result := range resultChannel {
		results = append(results, result)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Index < results[j].Index })
	return results, nil
}

// fillReport records one TileReport per candidate. Downloaded lists the files fetched by this run and
// FromCache the ones that were already cached.
func fillReport(report *Report, result *resolver.Result, downloads []*io.DownloadResult, converter converters.CoordinateConverter) {
	report.BoundingVolumes = result.BoundingVolumes()
	report.Tiles = make([]TileReport, len(result.Candidates))
	for i, c := range result.Candidates {
		report.Tiles[i] = TileReport{
			Depth:          c.Depth,
			ContentPath:    tileset.URIPath(c.ContentURI),
			BoundingVolume: c.Tile.BoundingVolume.Array(),
			Center:         tileCenter(c.Tile, converter),
		}
	}

	report.Downloaded = []string{}
	report.FromCache = []string{}
	for _, d := range downloads {
		tile := &report.Tiles[d.Index]
		switch {
		case d.Skipped:
			tile.Skipped = true
			report.Skipped++
		case d.Err != nil:
			tile.Error = d.Err.Error()
			report.Failed++
		default:
			tile.File = d.Path
			tile.Cached = d.Cached
			if d.Cached {
				report.FromCache = append(report.FromCache, d.Path)
				report.Cached++
			} else {
				report.Downloaded = append(report.Downloaded, d.Path)
			}
		}
	}
}

// tileCenter is the box center as lon, lat, height. Tiles without a usable box have none.
func tileCenter(tile *tileset.Tile, converter converters.CoordinateConverter) []float64 {
	obb, err := tile.BoundingVolume.OBB()
	if err != nil {
		return nil
	}
	c, err := converter.ConvertFromWGS84Cartesian(geometry.CoordinateFromVec3(obb.Center))
	if err != nil {
		glog.V(1).Infof("no center for %s: %v", tile.ContentRef(), err)
		return nil
	}
	return []float64{c.X, c.Y, c.Z}
}

func retryStrategy(retries int) *fetcher.RetryStrategy {
	if retries <= 0 {
		return fetcher.NoRetry()
	}
	strategy := fetcher.DefaultRetryStrategy()
	strategy.MaxRetries = retries
	return strategy
}
