package tools

import (
	"flag"
	"time"

	"github.com/golang/glog"
)

const (
	CommandResolve    = "resolve"
	CommandQuery      = "query"
	CommandClearCache = "clear-cache"
	CommandList       = "list"
	CommandParseCoord = "parse-coord"
)

// glog owns -v on the global flag set, so version has no shorthand there.
type FlagsGlobal struct {
	Help    *bool `json:"help"`
	Version *bool `json:"version"`
}

type OutputFlags struct {
	FlagSet      *flag.FlagSet `json:"-"`
	Silent       *bool
	LogTimestamp *bool
	Help         *bool
}

type FlagsForCommandResolve struct {
	OutputFlags
	APIKey          *string `json:"-"`
	BaseURL         *string `json:"base_url"`
	RootPath        *string `json:"root_path"`
	CacheDir        *string `json:"cache_dir"`
	ClearCache      *bool   `json:"clear_cache"`
	MaxDepth        *int    `json:"max_depth"`
	Latitude        *string `json:"lat"`
	Longitude       *string `json:"lon"`
	Altitude        *float64
	BasePoint       *string `json:"base_point"`
	UnitScale       *float64
	Region          *string
	ZOffset         *float64
	Workers         *int
	Timeout         *time.Duration
	Retries         *int
	MemoizeClusters *bool `json:"memo_clusters"`
	MemoSize        *int  `json:"memo_size"`
	Predicate       *string
	Converter       *string
	QueryLatitude   *string `json:"query_lat"`
	QueryLongitude  *string `json:"query_lon"`
	QueryAltitude   *float64
	Report          *string
	Tileset         *string
	Config          *string
}

type FlagsForCommandQuery struct {
	OutputFlags
	Report    *string
	Tileset   *string
	Latitude  *string `json:"lat"`
	Longitude *string `json:"lon"`
	Altitude  *float64
}

type FlagsForCommandCache struct {
	OutputFlags
	CacheDir *string `json:"cache_dir"`
}

type FlagsForCommandParseCoord struct {
	FlagSet   *flag.FlagSet `json:"-"`
	Help      *bool
	Latitude  *string `json:"lat"`
	Longitude *string `json:"lon"`
}

func ParseFlagsGlobal() FlagsGlobal {
	help := defineBoolFlag("help", "h", false, "Displays this help.")
	version := defineBoolFlag("version", "", false, "Displays the version of cesium_fetcher.")

	flag.Parse()

	return FlagsGlobal{
		Help:    help,
		Version: version,
	}
}

func defineOutputFlags(flagCommand *flag.FlagSet) OutputFlags {
	return OutputFlags{
		FlagSet:      flagCommand,
		Silent:       defineBoolFlagCommand(flagCommand, "silent", "s", false, "Use to suppress all the non-error messages."),
		LogTimestamp: defineBoolFlagCommand(flagCommand, "timestamp", "t", false, "Adds timestamp to log messages."),
		Help:         defineBoolFlagCommand(flagCommand, "help", "h", false, "Displays this help."),
	}
}

func ParseFlagsForCommandResolve(args []string) FlagsForCommandResolve {
	flagCommand := flag.NewFlagSet("command-resolve", flag.ExitOnError)

	apiKey := defineStringFlagCommand(flagCommand, "key", "k", "", "API key of the tile service. Defaults to $TILES_API_KEY.")
	baseURL := defineStringFlagCommand(flagCommand, "base-url", "", "", "Base URL of the tile service.")
	rootPath := defineStringFlagCommand(flagCommand, "root", "", "", "Path of the root tileset on the tile service.")
	cacheDir := defineStringFlagCommand(flagCommand, "cache", "c", "", "Folder where the downloaded .glb tiles are stored.")
	clearCache := defineBoolFlagCommand(flagCommand, "clear", "", false, "Empties the cache folder before resolving.")
	maxDepth := defineIntFlagCommand(flagCommand, "depth", "d", -1, "Maximum recursion depth. Nodes reached at this depth are downloaded as they are.")
	latitude := defineStringFlagCommand(flagCommand, "lat", "", "", "Latitude of the model origin, decimal degrees or DMS (e.g. 40°26'46\"N).")
	longitude := defineStringFlagCommand(flagCommand, "lon", "", "", "Longitude of the model origin, decimal degrees or DMS (e.g. 79°58'56\"W).")
	altitude := defineFloat64FlagCommand(flagCommand, "alt", "", 0, "Ellipsoidal height of the model origin, in meters.")
	basePoint := defineStringFlagCommand(flagCommand, "base-point", "", "", "Model coordinate placed at the origin, as x,y[,z].")
	unitScale := defineFloat64FlagCommand(flagCommand, "unit-scale", "", 0, "Meters per model unit. Defaults to 1.")
	region := defineStringFlagCommand(flagCommand, "region", "", "", "Region of interest corners in model units, as x,y[,z];x,y[,z];...")
	zOffset := defineFloat64FlagCommand(flagCommand, "zoffset", "z", 0, "Vertical offset to apply to the region corners, in meters.")
	workers := defineIntFlagCommand(flagCommand, "workers", "w", 0, "Number of concurrent subtrees and downloads. Defaults to the number of CPUs.")
	timeout := defineDurationFlagCommand(flagCommand, "timeout", "", 0, "Timeout of a single request.")
	retries := defineIntFlagCommand(flagCommand, "retries", "", -1, "Retries of transient request failures. Defaults to 3.")
	memoizeClusters := defineBoolFlagCommand(flagCommand, "memo-clusters", "", false, "Reuses tileset documents already fetched during the run.")
	memoSize := defineIntFlagCommand(flagCommand, "memo-size", "", 0, "Number of tileset documents kept when -memo-clusters is set.")
	predicate := defineStringFlagCommand(flagCommand, "predicate", "p", "", "Viability predicate, can be 'RANGE' or 'VOLUME'. Defaults to RANGE.")
	converter := defineStringFlagCommand(flagCommand, "converter", "", "", "Geodetic conversion backend, can be 'WGS84' or 'PROJ4'. Defaults to WGS84.")
	queryLatitude := defineStringFlagCommand(flagCommand, "query-lat", "", "", "Latitude of a point whose containing tiles are reported.")
	queryLongitude := defineStringFlagCommand(flagCommand, "query-lon", "", "", "Longitude of a point whose containing tiles are reported.")
	queryAltitude := defineFloat64FlagCommand(flagCommand, "query-alt", "", 0, "Ellipsoidal height of the query point, in meters.")
	report := defineStringFlagCommand(flagCommand, "report", "o", "", "Writes a JSON report of the run to this file.")
	tilesetPath := defineStringFlagCommand(flagCommand, "tileset", "", "", "Writes a local tileset.json whose contents are the downloaded files.")
	config := defineStringFlagCommand(flagCommand, "config", "", "", "YAML or TOML file providing defaults for the flags above.")
	output := defineOutputFlags(flagCommand)

	flagCommand.Parse(args)

	return FlagsForCommandResolve{
		OutputFlags:     output,
		APIKey:          apiKey,
		BaseURL:         baseURL,
		RootPath:        rootPath,
		CacheDir:        cacheDir,
		ClearCache:      clearCache,
		MaxDepth:        maxDepth,
		Latitude:        latitude,
		Longitude:       longitude,
		Altitude:        altitude,
		BasePoint:       basePoint,
		UnitScale:       unitScale,
		Region:          region,
		ZOffset:         zOffset,
		Workers:         workers,
		Timeout:         timeout,
		Retries:         retries,
		MemoizeClusters: memoizeClusters,
		MemoSize:        memoSize,
		Predicate:       predicate,
		Converter:       converter,
		QueryLatitude:   queryLatitude,
		QueryLongitude:  queryLongitude,
		QueryAltitude:   queryAltitude,
		Report:          report,
		Tileset:         tilesetPath,
		Config:          config,
	}
}

func ParseFlagsForCommandQuery(args []string) FlagsForCommandQuery {
	glog.V(1).Infoln(FmtJSONString(args))

	flagCommand := flag.NewFlagSet("command-query", flag.ExitOnError)

	report := defineStringFlagCommand(flagCommand, "report", "i", "", "JSON report written by a previous resolve.")
	tilesetPath := defineStringFlagCommand(flagCommand, "tileset", "", "", "Local tileset written by resolve -tileset. The query walks its tile tree instead of a report.")
	latitude := defineStringFlagCommand(flagCommand, "lat", "", "", "Latitude of the point, decimal degrees or DMS.")
	longitude := defineStringFlagCommand(flagCommand, "lon", "", "", "Longitude of the point, decimal degrees or DMS.")
	altitude := defineFloat64FlagCommand(flagCommand, "alt", "", 0, "Ellipsoidal height of the point, in meters.")
	output := defineOutputFlags(flagCommand)

	flagCommand.Parse(args)

	return FlagsForCommandQuery{
		OutputFlags: output,
		Report:      report,
		Tileset:     tilesetPath,
		Latitude:    latitude,
		Longitude:   longitude,
		Altitude:    altitude,
	}
}

func ParseFlagsForCommandCache(name string, args []string) FlagsForCommandCache {
	glog.V(1).Infoln(FmtJSONString(args))

	flagCommand := flag.NewFlagSet("command-"+name, flag.ExitOnError)

	cacheDir := defineStringFlagCommand(flagCommand, "cache", "c", GetDefaultCacheFolder(), "Folder where the downloaded .glb tiles are stored.")
	output := defineOutputFlags(flagCommand)

	flagCommand.Parse(args)

	return FlagsForCommandCache{
		OutputFlags: output,
		CacheDir:    cacheDir,
	}
}

func ParseFlagsForCommandParseCoord(args []string) FlagsForCommandParseCoord {
	flagCommand := flag.NewFlagSet("command-parse-coord", flag.ExitOnError)

	latitude := defineStringFlagCommand(flagCommand, "lat", "", "", "Latitude, decimal degrees or DMS.")
	longitude := defineStringFlagCommand(flagCommand, "lon", "", "", "Longitude, decimal degrees or DMS.")
	help := defineBoolFlagCommand(flagCommand, "help", "h", false, "Displays this help.")

	flagCommand.Parse(args)

	return FlagsForCommandParseCoord{
		FlagSet:   flagCommand,
		Help:      help,
		Latitude:  latitude,
		Longitude: longitude,
	}
}

func defineBoolFlag(name string, shortHand string, defaultValue bool, usage string) *bool {
	var output bool
	flag.BoolVar(&output, name, defaultValue, usage)
	if shortHand != name && shortHand != "" {
		flag.BoolVar(&output, shortHand, defaultValue, usage+" (shorthand for "+name+")")
	}
	return &output
}

func defineStringFlagCommand(flagCommand *flag.FlagSet, name string, shortHand string, defaultValue string, usage string) *string {
	var output string
	flagCommand.StringVar(&output, name, defaultValue, usage)
	if shortHand != name && shortHand != "" {
		flagCommand.StringVar(&output, shortHand, defaultValue, usage+" (shorthand for "+name+")")
	}

	return &output
}

func defineIntFlagCommand(flagCommand *flag.FlagSet, name string, shortHand string, defaultValue int, usage string) *int {
	var output int
	flagCommand.IntVar(&output, name, defaultValue, usage)
	if shortHand != name && shortHand != "" {
		flagCommand.IntVar(&output, shortHand, defaultValue, usage+" (shorthand for "+name+")")
	}

	return &output
}

func defineFloat64FlagCommand(flagCommand *flag.FlagSet, name string, shortHand string, defaultValue float64, usage string) *float64 {
	var output float64
	flagCommand.Float64Var(&output, name, defaultValue, usage)
	if shortHand != name && shortHand != "" {
		flagCommand.Float64Var(&output, shortHand, defaultValue, usage+" (shorthand for "+name+")")
	}
	return &output
}

func defineBoolFlagCommand(flagCommand *flag.FlagSet, name string, shortHand string, defaultValue bool, usage string) *bool {
	var output bool
	flagCommand.BoolVar(&output, name, defaultValue, usage)
	if shortHand != name && shortHand != "" {
		flagCommand.BoolVar(&output, shortHand, defaultValue, usage+" (shorthand for "+name+")")
	}
	return &output
}

func defineDurationFlagCommand(flagCommand *flag.FlagSet, name string, shortHand string, defaultValue time.Duration, usage string) *time.Duration {
	var output time.Duration
	flagCommand.DurationVar(&output, name, defaultValue, usage)
	if shortHand != name && shortHand != "" {
		flagCommand.DurationVar(&output, shortHand, defaultValue, usage+" (shorthand for "+name+")")
	}
	return &output
}
