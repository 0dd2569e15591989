package tiler

import (
	"math"
	"runtime"
	"strings"
	"time"

	"github.com/ecopia-map/cesium_fetcher/internal/converters"
	"github.com/ecopia-map/cesium_fetcher/internal/errs"
	"github.com/ecopia-map/cesium_fetcher/internal/fetcher"
	"github.com/ecopia-map/cesium_fetcher/internal/geometry"
	"github.com/ecopia-map/cesium_fetcher/tools"
)

type Algorithm string
type ConverterKind string

const (
	// Keeps tiles whose latitude/longitude extent overlaps the extent of the region. Cheap and conservative: a
	// tile is never dropped while its footprint touches the region, whatever its height.
	Range Algorithm = "RANGE"

	// Keeps tiles whose box intersects the region extruded between VolumeBelow and VolumeAbove metres of height.
	// Tighter than RANGE for tall tiles, at the price of a 15 axis separation test per tile.
	Volume Algorithm = "VOLUME"
)

const (
	WGS84 ConverterKind = "WGS84"
	Proj4 ConverterKind = "PROJ4"
)

const (
	DefaultVolumeBelow = -500.0
	DefaultVolumeAbove = 9000.0
	DefaultRetries     = 3
)

func ParseAlgorithm(value string) Algorithm {
	switch Algorithm(strings.ToUpper(strings.TrimSpace(value))) {
	case Range:
		return Range
	case Volume:
		return Volume
	}
	return ""
}

func ParseConverterKind(value string) ConverterKind {
	switch ConverterKind(strings.ToUpper(strings.TrimSpace(value))) {
	case WGS84:
		return WGS84
	case Proj4:
		return Proj4
	}
	return ""
}

// Contains the options needed to resolve a tileset and download the selected tiles
type FetcherOptions struct {
	APIKey          string        // Key sent with every request
	BaseURL         string        // Tile service base URL
	RootPath        string        // Path of the root tileset, requested without session
	CacheDir        string        // Folder holding the downloaded .glb files
	ClearCache      bool          // Empties the cache folder before resolving
	MaxDepth        int           // Recursion limit, nodes reached at this depth are downloaded as they are
	Workers         int           // Concurrent subtrees during resolve and concurrent downloads
	Timeout         time.Duration // Per request timeout
	Retries         int           // Retries of transient transport failures
	MemoizeClusters bool          // Reuse tileset documents already fetched during the run
	MemoSize        int
	Algorithm       Algorithm     // Viability predicate
	Converter       ConverterKind // Geodetic conversion backend
	ZOffset         float64       // Vertical offset applied to the region corners, in metres
	VolumeBelow     float64       // Bottom of the VOLUME extrusion, in metres
	VolumeAbove     float64       // Top of the VOLUME extrusion, in metres

	Anchor *converters.EarthAnchor
	Region []geometry.Coordinate // Region of interest corners in model units

	Query       *QueryOptions // Optional point whose containing tiles are reported
	ReportPath  string        // Where to write the JSON report, empty for none
	TilesetPath string        // Where to write a local tileset pointing at the downloaded files, empty for none
}

// QueryOptions is a geodetic point, in degrees and metres.
type QueryOptions struct {
	Latitude  float64
	Longitude float64
	Altitude  float64
	Report    string // Report file the query reads its bounding volumes from
	Tileset   string // Local tileset whose tile tree the query walks instead of a report
}

type CacheOptions struct {
	CacheDir string
}

func (opt *FetcherOptions) Copy() *FetcherOptions {
	newOpt := *opt

	if opt.Anchor != nil {
		anchor := *opt.Anchor
		newOpt.Anchor = &anchor
	}
	if opt.Region != nil {
		newOpt.Region = make([]geometry.Coordinate, len(opt.Region))
		copy(newOpt.Region, opt.Region)
	}
	if opt.Query != nil {
		query := *opt.Query
		newOpt.Query = &query
	}

	return &newOpt
}

// ApplyDefaults fills whatever neither flags nor the config file set. Negative MaxDepth and Retries mean unset;
// a missing max depth is left for Validate to reject.
func (opt *FetcherOptions) ApplyDefaults() {
	if opt.BaseURL == "" {
		opt.BaseURL = fetcher.DefaultBaseURL
	}
	if opt.RootPath == "" {
		opt.RootPath = fetcher.DefaultRootPath
	}
	if opt.CacheDir == "" {
		opt.CacheDir = tools.GetDefaultCacheFolder()
	}
	if opt.Workers == 0 {
		opt.Workers = runtime.NumCPU()
	}
	if opt.Timeout == 0 {
		opt.Timeout = fetcher.DefaultTimeout
	}
	if opt.Retries < 0 {
		opt.Retries = DefaultRetries
	}
	if opt.Algorithm == "" {
		opt.Algorithm = Range
	}
	if opt.Converter == "" {
		opt.Converter = WGS84
	}
	if opt.VolumeBelow == 0 && opt.VolumeAbove == 0 {
		opt.VolumeBelow = DefaultVolumeBelow
		opt.VolumeAbove = DefaultVolumeAbove
	}
}

// Validate checks everything that can be checked before the first request.
func (opt *FetcherOptions) Validate() error {
	const op = "validate options"

	if strings.TrimSpace(opt.APIKey) == "" {
		return errs.New(errs.Configuration, op, "an api key is required (-key or $%s)", APIKeyEnv)
	}
	if strings.TrimSpace(opt.CacheDir) == "" {
		return errs.New(errs.Configuration, op, "a cache directory is required")
	}
	if opt.MaxDepth < 0 {
		return errs.New(errs.Configuration, op, "max depth must be given and not negative, got %d", opt.MaxDepth)
	}
	if opt.Workers < 1 {
		return errs.New(errs.Configuration, op, "workers must be at least 1, got %d", opt.Workers)
	}
	if opt.Timeout < 0 {
		return errs.New(errs.Configuration, op, "timeout must not be negative, got %s", opt.Timeout)
	}
	if opt.Retries < 0 {
		return errs.New(errs.Configuration, op, "retries must not be negative, got %d", opt.Retries)
	}
	if opt.Algorithm == "" {
		return errs.New(errs.Configuration, op, "predicate should be either RANGE or VOLUME")
	}
	if opt.Converter == "" {
		return errs.New(errs.Configuration, op, "converter should be either WGS84 or PROJ4")
	}
	if math.IsNaN(opt.ZOffset) || math.IsInf(opt.ZOffset, 0) {
		return errs.New(errs.Configuration, op, "z offset %v is not finite", opt.ZOffset)
	}
	if opt.Algorithm == Volume && !(opt.VolumeBelow < opt.VolumeAbove) {
		return errs.New(errs.Configuration, op, "volume bottom %v must be below volume top %v", opt.VolumeBelow, opt.VolumeAbove)
	}
	if err := opt.Anchor.Validate(); err != nil {
		return err
	}
	if len(opt.Region) < 3 {
		return errs.New(errs.Configuration, op, "the region needs at least 3 corners, got %d", len(opt.Region))
	}
	for i, c := range opt.Region {
		if !c.IsFinite() {
			return errs.New(errs.Configuration, op, "region corner %d is not finite", i)
		}
	}
	if opt.Query != nil {
		if err := opt.Query.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (q *QueryOptions) Validate() error {
	const op = "validate query"

	if math.IsNaN(q.Latitude) || q.Latitude < -90 || q.Latitude > 90 {
		return errs.New(errs.Configuration, op, "latitude %v must be within [-90, 90]", q.Latitude)
	}
	if math.IsNaN(q.Longitude) || q.Longitude < -180 || q.Longitude > 180 {
		return errs.New(errs.Configuration, op, "longitude %v must be within [-180, 180]", q.Longitude)
	}
	if math.IsNaN(q.Altitude) || math.IsInf(q.Altitude, 0) {
		return errs.New(errs.Configuration, op, "altitude %v is not finite", q.Altitude)
	}
	return nil
}
