package tiler

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ecopia-map/cesium_fetcher/internal/converters"
	"github.com/ecopia-map/cesium_fetcher/internal/errs"
	"github.com/ecopia-map/cesium_fetcher/internal/geometry"
	"github.com/pelletier/go-toml/v2"
	"github.com/samber/lo"
	"gopkg.in/yaml.v3"
)

const APIKeyEnv = "TILES_API_KEY"

// FileConfig mirrors the resolve flags. Latitude and longitude are text so that DMS notation works in files
// too.
type FileConfig struct {
	APIKey          string        `yaml:"api_key" toml:"api_key"`
	BaseURL         string        `yaml:"base_url" toml:"base_url"`
	RootPath        string        `yaml:"root_path" toml:"root_path"`
	CacheDir        string        `yaml:"cache_dir" toml:"cache_dir"`
	ClearCache      bool          `yaml:"clear_cache" toml:"clear_cache"`
	MaxDepth        *int          `yaml:"max_depth" toml:"max_depth"`
	Workers         int           `yaml:"workers" toml:"workers"`
	Timeout         string        `yaml:"timeout" toml:"timeout"`
	Retries         *int          `yaml:"retries" toml:"retries"`
	MemoizeClusters bool          `yaml:"memo_clusters" toml:"memo_clusters"`
	Predicate       string        `yaml:"predicate" toml:"predicate"`
	Converter       string        `yaml:"converter" toml:"converter"`
	ZOffset         float64       `yaml:"zoffset" toml:"zoffset"`
	Anchor          *AnchorConfig `yaml:"anchor" toml:"anchor"`
	Region          [][]float64   `yaml:"region" toml:"region"`
	Report          string        `yaml:"report" toml:"report"`
	Tileset         string        `yaml:"tileset" toml:"tileset"`
}

type AnchorConfig struct {
	Latitude  string    `yaml:"lat" toml:"lat"`
	Longitude string    `yaml:"lon" toml:"lon"`
	Altitude  float64   `yaml:"alt" toml:"alt"`
	BasePoint []float64 `yaml:"base_point" toml:"base_point"`
	UnitScale float64   `yaml:"unit_scale" toml:"unit_scale"`
}

// LoadFileConfig reads a YAML (.yaml, .yml) or TOML (.toml) file.
func LoadFileConfig(path string) (*FileConfig, error) {
	const op = "load config"

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Wrapf(errs.Configuration, op, err, "reading %s", path)
	}

	cfg := &FileConfig{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	case ".toml":
		err = toml.Unmarshal(data, cfg)
	default:
		return nil, errs.New(errs.Configuration, op, "unsupported config format %q, use .yaml, .yml or .toml", filepath.Ext(path))
	}
	if err != nil {
		return nil, errs.Wrapf(errs.Configuration, op, err, "decoding %s", path)
	}
	return cfg, nil
}

// Apply fills the options left unset by flags. Options that were set are never overwritten.
func (cfg *FileConfig) Apply(opts *FetcherOptions) error {
	const op = "apply config"

	if opts.APIKey == "" {
		opts.APIKey = cfg.APIKey
	}
	if opts.BaseURL == "" {
		opts.BaseURL = cfg.BaseURL
	}
	if opts.RootPath == "" {
		opts.RootPath = cfg.RootPath
	}
	if opts.CacheDir == "" {
		opts.CacheDir = cfg.CacheDir
	}
	opts.ClearCache = opts.ClearCache || cfg.ClearCache
	opts.MemoizeClusters = opts.MemoizeClusters || cfg.MemoizeClusters
	if opts.MaxDepth < 0 && cfg.MaxDepth != nil {
		opts.MaxDepth = *cfg.MaxDepth
	}
	if opts.Workers == 0 {
		opts.Workers = cfg.Workers
	}
	if opts.Timeout == 0 && cfg.Timeout != "" {
		timeout, err := time.ParseDuration(cfg.Timeout)
		if err != nil {
			return errs.Wrapf(errs.Configuration, op, err, "timeout %q", cfg.Timeout)
		}
		opts.Timeout = timeout
	}
	if opts.Retries < 0 && cfg.Retries != nil {
		opts.Retries = *cfg.Retries
	}
	if opts.Algorithm == "" && cfg.Predicate != "" {
		opts.Algorithm = ParseAlgorithm(cfg.Predicate)
	}
	if opts.Converter == "" && cfg.Converter != "" {
		opts.Converter = ParseConverterKind(cfg.Converter)
	}
	if opts.ZOffset == 0 {
		opts.ZOffset = cfg.ZOffset
	}
	if opts.ReportPath == "" {
		opts.ReportPath = cfg.Report
	}
	if opts.TilesetPath == "" {
		opts.TilesetPath = cfg.Tileset
	}

	if opts.Anchor == nil && cfg.Anchor != nil {
		anchor, err := cfg.Anchor.EarthAnchor()
		if err != nil {
			return err
		}
		opts.Anchor = anchor
	}
	if len(opts.Region) == 0 && len(cfg.Region) > 0 {
		region, err := regionFromValues(cfg.Region)
		if err != nil {
			return err
		}
		opts.Region = region
	}
	return nil
}

// EarthAnchor parses the anchor. Latitude and longitude accept decimal degrees and DMS.
func (a *AnchorConfig) EarthAnchor() (*converters.EarthAnchor, error) {
	lat, err := converters.ParseLatitude(a.Latitude)
	if err != nil {
		return nil, err
	}
	lon, err := converters.ParseLongitude(a.Longitude)
	if err != nil {
		return nil, err
	}
	base, err := coordinateFromValues(a.BasePoint)
	if err != nil {
		return nil, err
	}
	scale := a.UnitScale
	if scale == 0 {
		scale = 1
	}
	return converters.NewEarthAnchor(lat, lon, a.Altitude, base, scale)
}

// ApplyEnvironment reads the api key from $TILES_API_KEY when no flag or file provided one.
func ApplyEnvironment(opts *FetcherOptions) {
	if opts.APIKey == "" {
		opts.APIKey = os.Getenv(APIKeyEnv)
	}
}

// ParseCoordinate reads "x,y" or "x,y,z". A missing z is 0.
func ParseCoordinate(text string) (geometry.Coordinate, error) {
	parts := strings.Split(text, ",")
	values := make([]float64, 0, len(parts))
	for _, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return geometry.Coordinate{}, errs.Wrapf(errs.Parse, "parse coordinate", err, "%q", text)
		}
		values = append(values, v)
	}
	return coordinateFromValues(values)
}

// ParseRegion reads corners separated by semicolons, e.g. "0,0;100,0;100,100;0,100".
func ParseRegion(text string) ([]geometry.Coordinate, error) {
	parts := lo.Filter(strings.Split(text, ";"), func(part string, _ int) bool {
		return strings.TrimSpace(part) != ""
	})
	corners := make([]geometry.Coordinate, 0, len(parts))
	for _, part := range parts {
		c, err := ParseCoordinate(part)
		if err != nil {
			return nil, err
		}
		corners = append(corners, c)
	}
	return corners, nil
}

func coordinateFromValues(values []float64) (geometry.Coordinate, error) {
	switch len(values) {
	case 0:
		return geometry.Coordinate{}, nil
	case 2:
		return geometry.NewCoordinate(values[0], values[1], 0), nil
	case 3:
		return geometry.NewCoordinate(values[0], values[1], values[2]), nil
	}
	return geometry.Coordinate{}, errs.New(errs.Parse, "parse coordinate", "expected 2 or 3 values, got %d", len(values))
}

func regionFromValues(values [][]float64) ([]geometry.Coordinate, error) {
	corners := make([]geometry.Coordinate, 0, len(values))
	for _, v := range values {
		if len(v) == 0 {
			return nil, errs.New(errs.Parse, "parse region", "empty corner")
		}
		c, err := coordinateFromValues(v)
		if err != nil {
			return nil, err
		}
		corners = append(corners, c)
	}
	return corners, nil
}
