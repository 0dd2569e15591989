package pkg

import (
	"os"

	"github.com/ecopia-map/cesium_fetcher/internal/cache"
	"github.com/ecopia-map/cesium_fetcher/internal/errs"
	"github.com/ecopia-map/cesium_fetcher/internal/tiler"
)

// RunClearCache removes the cached tiles and returns their paths. A missing folder is an empty cache.
func RunClearCache(opts *tiler.CacheOptions) ([]string, error) {
	if err := validateCacheOptions(opts); err != nil {
		return nil, err
	}
	if _, err := os.Stat(opts.CacheDir); os.IsNotExist(err) {
		return []string{}, nil
	}
	return cache.ClearCache(opts.CacheDir)
}

// RunList returns the cached tiles, sorted. A missing folder is an empty cache.
func RunList(opts *tiler.CacheOptions) ([]string, error) {
	if err := validateCacheOptions(opts); err != nil {
		return nil, err
	}
	if _, err := os.Stat(opts.CacheDir); os.IsNotExist(err) {
		return []string{}, nil
	}
	return cache.ListCached(opts.CacheDir)
}

func validateCacheOptions(opts *tiler.CacheOptions) error {
	if opts == nil || opts.CacheDir == "" {
		return errs.New(errs.Configuration, "validate options", "a cache directory is required")
	}
	return nil
}
