package tiler

import (
	"math"
	"testing"
	"time"

	"github.com/ecopia-map/cesium_fetcher/internal/converters"
	"github.com/ecopia-map/cesium_fetcher/internal/errs"
	"github.com/ecopia-map/cesium_fetcher/internal/fetcher"
	"github.com/ecopia-map/cesium_fetcher/internal/geometry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validOptions() *FetcherOptions {
	return &FetcherOptions{
		APIKey:    "key",
		CacheDir:  "/tmp/tiles",
		MaxDepth:  4,
		Workers:   2,
		Timeout:   time.Second,
		Retries:   3,
		Algorithm: Range,
		Converter: WGS84,
		Anchor: &converters.EarthAnchor{
			Latitude:  40,
			Longitude: 116,
			UnitScale: 1,
		},
		Region: []geometry.Coordinate{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}, {X: 0, Y: 10}},
	}
}

func TestValidate(t *testing.T) {
	require.NoError(t, validOptions().Validate())

	cases := map[string]func(o *FetcherOptions){
		"missing key":         func(o *FetcherOptions) { o.APIKey = " " },
		"missing cache":       func(o *FetcherOptions) { o.CacheDir = "" },
		"negative depth":      func(o *FetcherOptions) { o.MaxDepth = -1 },
		"no workers":          func(o *FetcherOptions) { o.Workers = 0 },
		"negative retries":    func(o *FetcherOptions) { o.Retries = -2 },
		"unknown predicate":   func(o *FetcherOptions) { o.Algorithm = ParseAlgorithm("sphere") },
		"unknown converter":   func(o *FetcherOptions) { o.Converter = ParseConverterKind("utm") },
		"nan offset":          func(o *FetcherOptions) { o.ZOffset = math.NaN() },
		"inverted volume":     func(o *FetcherOptions) { o.Algorithm, o.VolumeBelow, o.VolumeAbove = Volume, 10, -10 },
		"missing anchor":      func(o *FetcherOptions) { o.Anchor = nil },
		"anchor on the pole":  func(o *FetcherOptions) { o.Anchor.Latitude = 90 },
		"anchor out of range": func(o *FetcherOptions) { o.Anchor.Longitude = -180 },
		"zero unit scale":     func(o *FetcherOptions) { o.Anchor.UnitScale = 0 },
		"two corners":         func(o *FetcherOptions) { o.Region = o.Region[:2] },
		"infinite corner":     func(o *FetcherOptions) { o.Region[1].X = math.Inf(1) },
		"query latitude":      func(o *FetcherOptions) { o.Query = &QueryOptions{Latitude: 91} },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			o := validOptions()
			mutate(o)
			err := o.Validate()
			require.Error(t, err)
			assert.True(t, errs.Is(err, errs.Configuration), "got %v", err)
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	o := &FetcherOptions{MaxDepth: -1, Retries: -1}
	o.ApplyDefaults()

	assert.Equal(t, fetcher.DefaultBaseURL, o.BaseURL)
	assert.Equal(t, fetcher.DefaultRootPath, o.RootPath)
	assert.NotEmpty(t, o.CacheDir)
	assert.GreaterOrEqual(t, o.Workers, 1)
	assert.Equal(t, fetcher.DefaultTimeout, o.Timeout)
	assert.Equal(t, DefaultRetries, o.Retries)
	assert.Equal(t, Range, o.Algorithm)
	assert.Equal(t, WGS84, o.Converter)
	assert.Equal(t, DefaultVolumeBelow, o.VolumeBelow)
	assert.Equal(t, DefaultVolumeAbove, o.VolumeAbove)
	assert.Equal(t, -1, o.MaxDepth)
}

func TestCopyIsDeep(t *testing.T) {
	o := validOptions()
	o.Query = &QueryOptions{Latitude: 1}
	c := o.Copy()

	c.Anchor.Latitude = 10
	c.Region[0].X = 99
	c.Query.Latitude = 2

	assert.Equal(t, 40.0, o.Anchor.Latitude)
	assert.Equal(t, 0.0, o.Region[0].X)
	assert.Equal(t, 1.0, o.Query.Latitude)
}

func TestParseAlgorithmAndConverter(t *testing.T) {
	assert.Equal(t, Range, ParseAlgorithm(" range "))
	assert.Equal(t, Volume, ParseAlgorithm("Volume"))
	assert.Equal(t, Algorithm(""), ParseAlgorithm("octree"))
	assert.Equal(t, Proj4, ParseConverterKind("proj4"))
	assert.Equal(t, ConverterKind(""), ParseConverterKind(""))
}
