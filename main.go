/*
 * This file is part of the Go Cesium Point Cloud Tiler distribution (https://github.com/mfbonfigli/gocesiumtiler).
 * Copyright (c) 2019 Massimo Federico Bonfigli - m.federico.bonfigli@gmail.com
 *
 * This program is free software; you can redistribute it and/or modify it
 * under the terms of the GNU Lesser General Public License Version 3 as
 * published by the Free Software Foundation;
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
 * Lesser General Public License for more details.
 *
 * You should have received a copy of the GNU Lesser General Public License
 * along with this program. If not, see <http://www.gnu.org/licenses/>.
 *
 * This software also uses third party components. You can find information
 * on their credits and licensing in the file LICENSE-3RD-PARTIES.md that
 * you should have received togheter with the source code.
 */

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/ecopia-map/cesium_fetcher/internal/converters"
	"github.com/ecopia-map/cesium_fetcher/internal/errs"
	"github.com/ecopia-map/cesium_fetcher/internal/geometry"
	"github.com/ecopia-map/cesium_fetcher/internal/tiler"
	"github.com/ecopia-map/cesium_fetcher/pkg"
	"github.com/ecopia-map/cesium_fetcher/pkg/algorithm_manager/std_algorithm_manager"
	"github.com/ecopia-map/cesium_fetcher/tools"
	"github.com/golang/glog"
)

const VERSION = "0.4.0"

const logo = `
               _                    __      _       _
  ___ ___  ___(_)_   _ _ __ ___    / _| ___| |_ ___| |__   ___ _ __
 / __/ _ \/ __| | | | | '_ ` + "`" + ` _ \  | |_ / _ \ __/ __| '_ \ / _ \ '__|
| (_|  __/\__ \ | |_| | | | | | | |  _|  __/ || (__| | | |  __/ |
 \___\___||___/_|\__,_|_| |_| |_| |_|  \___|\__\___|_| |_|\___|_|
  A Cesium 3D Tiles region fetcher written in golang
  Copyright YYYY
`

const commands = "[resolve|query|clear-cache|list|parse-coord]"

func main() {
	defer glog.Flush()

	flagsGlobal := tools.ParseFlagsGlobal()
	glog.V(1).Infoln(tools.FmtJSONString(flagsGlobal))

	if *flagsGlobal.Version {
		printVersion()
		return
	}

	args := flag.Args()
	if len(args) == 0 || *flagsGlobal.Help {
		showHelp(flag.CommandLine)
		if len(args) == 0 && !*flagsGlobal.Help {
			exitf("Please specify a subcommand %s.", commands)
		}
		return
	}
	cmd, args := args[0], args[1:]

	switch cmd {
	case tools.CommandResolve:
		mainCommandResolve(args)
	case tools.CommandQuery:
		mainCommandQuery(args)
	case tools.CommandClearCache:
		mainCommandClearCache(args)
	case tools.CommandList:
		mainCommandList(args)
	case tools.CommandParseCoord:
		mainCommandParseCoord(args)
	default:
		exitf("Unrecognized command [%q]. Command must be one of %s", cmd, commands)
	}
}

func mainCommandResolve(args []string) {
	flags := tools.ParseFlagsForCommandResolve(args)
	if *flags.Help {
		showHelp(flags.FlagSet)
		return
	}
	setupOutput(flags.OutputFlags)

	opts, err := fetcherOptionsFromFlags(&flags)
	if err != nil {
		exitf("Error parsing input parameters: %v", err)
	}

	algorithmManager, err := std_algorithm_manager.NewAlgorithmManager(opts)
	if err != nil {
		exitf("Error parsing input parameters: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	defer timeTrack(time.Now(), "resolve")
	report, err := pkg.NewTilesetFetcher(algorithmManager).RunFetcher(ctx, opts)
	if err != nil {
		if errs.IsCancelled(err) {
			exitf("Resolve interrupted: %v", err)
		}
		exitf("Error while resolving: %v", err)
	}

	tools.LogOutput(fmt.Sprintf("Resolve completed: %d tiles, %d downloaded, %d from cache, %d skipped, %d failed",
		len(report.Tiles), len(report.Downloaded), report.Cached, report.Skipped, report.Failed))
	for _, path := range report.Downloaded {
		fmt.Println(path)
	}
	for _, path := range report.FromCache {
		fmt.Println(path)
	}
	if opts.Query != nil {
		tools.LogOutput(fmt.Sprintf("%d tiles contain the query point", len(report.Contains)))
		for _, box := range report.Contains {
			fmt.Println(tools.FmtJSONString(box))
		}
	}
}

// Builds the options in order of precedence: flags, then config file, then environment, then defaults.
func fetcherOptionsFromFlags(flags *tools.FlagsForCommandResolve) (*tiler.FetcherOptions, error) {
	opts := &tiler.FetcherOptions{
		APIKey:          *flags.APIKey,
		BaseURL:         *flags.BaseURL,
		RootPath:        *flags.RootPath,
		CacheDir:        *flags.CacheDir,
		ClearCache:      *flags.ClearCache,
		MaxDepth:        *flags.MaxDepth,
		Workers:         *flags.Workers,
		Timeout:         *flags.Timeout,
		Retries:         *flags.Retries,
		MemoizeClusters: *flags.MemoizeClusters,
		MemoSize:        *flags.MemoSize,
		ZOffset:         *flags.ZOffset,
		ReportPath:      *flags.Report,
		TilesetPath:     *flags.Tileset,
	}

	if *flags.Predicate != "" {
		if opts.Algorithm = tiler.ParseAlgorithm(*flags.Predicate); opts.Algorithm == "" {
			return nil, errs.New(errs.Configuration, "parse flags", "predicate should be either RANGE or VOLUME, got %q", *flags.Predicate)
		}
	}
	if *flags.Converter != "" {
		if opts.Converter = tiler.ParseConverterKind(*flags.Converter); opts.Converter == "" {
			return nil, errs.New(errs.Configuration, "parse flags", "converter should be either WGS84 or PROJ4, got %q", *flags.Converter)
		}
	}

	if *flags.Latitude != "" || *flags.Longitude != "" {
		anchor, err := anchorFromFlags(flags)
		if err != nil {
			return nil, err
		}
		opts.Anchor = anchor
	}
	if *flags.Region != "" {
		region, err := tiler.ParseRegion(*flags.Region)
		if err != nil {
			return nil, err
		}
		opts.Region = region
	}
	if *flags.QueryLatitude != "" || *flags.QueryLongitude != "" {
		lat, lon, err := parseLatLon(*flags.QueryLatitude, *flags.QueryLongitude)
		if err != nil {
			return nil, err
		}
		opts.Query = &tiler.QueryOptions{Latitude: lat, Longitude: lon, Altitude: *flags.QueryAltitude}
	}

	if *flags.Config != "" {
		cfg, err := tiler.LoadFileConfig(*flags.Config)
		if err != nil {
			return nil, err
		}
		if err := cfg.Apply(opts); err != nil {
			return nil, err
		}
	}
	tiler.ApplyEnvironment(opts)
	opts.ApplyDefaults()
	return opts, nil
}

func anchorFromFlags(flags *tools.FlagsForCommandResolve) (*converters.EarthAnchor, error) {
	lat, lon, err := parseLatLon(*flags.Latitude, *flags.Longitude)
	if err != nil {
		return nil, err
	}
	var base geometry.Coordinate
	if *flags.BasePoint != "" {
		if base, err = tiler.ParseCoordinate(*flags.BasePoint); err != nil {
			return nil, err
		}
	}
	scale := *flags.UnitScale
	if scale == 0 {
		scale = 1
	}
	return converters.NewEarthAnchor(lat, lon, *flags.Altitude, base, scale)
}

func parseLatLon(latitude, longitude string) (float64, float64, error) {
	lat, err := converters.ParseLatitude(latitude)
	if err != nil {
		return 0, 0, err
	}
	lon, err := converters.ParseLongitude(longitude)
	if err != nil {
		return 0, 0, err
	}
	return lat, lon, nil
}

func mainCommandQuery(args []string) {
	flags := tools.ParseFlagsForCommandQuery(args)
	if *flags.Help {
		showHelp(flags.FlagSet)
		return
	}
	setupOutput(flags.OutputFlags)

	lat, lon, err := parseLatLon(*flags.Latitude, *flags.Longitude)
	if err != nil {
		exitf("Error parsing input parameters: %v", err)
	}
	opts := &tiler.QueryOptions{Latitude: lat, Longitude: lon, Altitude: *flags.Altitude, Report: *flags.Report, Tileset: *flags.Tileset}
	where := converters.FormatDMS(lat, true) + " " + converters.FormatDMS(lon, false)

	if opts.Tileset != "" {
		tiles, err := pkg.RunTreeQuery(opts)
		if err != nil {
			exitf("Error while querying: %v", err)
		}
		tools.LogOutput(fmt.Sprintf("%d tiles of %s contain %s", len(tiles), opts.Tileset, where))
		for _, tile := range tiles {
			fmt.Println(tile.ContentRef())
		}
		return
	}

	hits, err := pkg.RunQuery(opts)
	if err != nil {
		exitf("Error while querying: %v", err)
	}
	tools.LogOutput(fmt.Sprintf("%d tiles contain %s", len(hits), where))
	for _, box := range hits {
		fmt.Println(tools.FmtJSONString(box))
	}
}

func mainCommandClearCache(args []string) {
	flags := tools.ParseFlagsForCommandCache(tools.CommandClearCache, args)
	if *flags.Help {
		showHelp(flags.FlagSet)
		return
	}
	setupOutput(flags.OutputFlags)

	removed, err := pkg.RunClearCache(&tiler.CacheOptions{CacheDir: *flags.CacheDir})
	if err != nil {
		exitf("Error while clearing the cache: %v", err)
	}
	tools.LogOutput(fmt.Sprintf("Removed %d cached tiles from %s", len(removed), *flags.CacheDir))
}

func mainCommandList(args []string) {
	flags := tools.ParseFlagsForCommandCache(tools.CommandList, args)
	if *flags.Help {
		showHelp(flags.FlagSet)
		return
	}
	setupOutput(flags.OutputFlags)

	files, err := pkg.RunList(&tiler.CacheOptions{CacheDir: *flags.CacheDir})
	if err != nil {
		exitf("Error while listing the cache: %v", err)
	}
	for _, f := range files {
		fmt.Println(f)
	}
	tools.LogOutput(fmt.Sprintf("%d cached tiles in %s", len(files), *flags.CacheDir))
}

func mainCommandParseCoord(args []string) {
	flags := tools.ParseFlagsForCommandParseCoord(args)
	if *flags.Help {
		showHelp(flags.FlagSet)
		return
	}

	if *flags.Latitude == "" && *flags.Longitude == "" {
		exitf("Error parsing input parameters: -lat or -lon is required")
	}
	if *flags.Latitude != "" {
		lat, err := converters.ParseLatitude(*flags.Latitude)
		if err != nil {
			exitf("Error parsing latitude: %v", err)
		}
		fmt.Printf("lat %s %s\n", strconv.FormatFloat(lat, 'f', -1, 64), converters.FormatDMS(lat, true))
	}
	if *flags.Longitude != "" {
		lon, err := converters.ParseLongitude(*flags.Longitude)
		if err != nil {
			exitf("Error parsing longitude: %v", err)
		}
		fmt.Printf("lon %s %s\n", strconv.FormatFloat(lon, 'f', -1, 64), converters.FormatDMS(lon, false))
	}
}

func setupOutput(flags tools.OutputFlags) {
	if *flags.Silent {
		tools.DisableLogger()
	} else {
		printLogo()
	}
	if !*flags.LogTimestamp {
		tools.DisableLoggerTimestamp()
	}
}

// glog.Exitf flushes the logs before exiting, deferred calls do not run.
func exitf(format string, args ...interface{}) {
	glog.Exitf(format, args...)
}

func timeTrack(start time.Time, name string) {
	elapsed := time.Since(start)
	tools.LogOutput(fmt.Sprintf("%s took %s", name, elapsed))
}

func printLogo() {
	fmt.Println(strings.ReplaceAll(logo, "YYYY", strconv.Itoa(time.Now().Year())))
}

func showHelp(flagSet *flag.FlagSet) {
	printLogo()
	fmt.Println("***")
	fmt.Println("cesium_fetcher resolves a Cesium 3D Tiles tileset down to the tiles around a region and downloads them into a local cache")
	printVersion()
	fmt.Println("***")
	fmt.Println("")
	fmt.Println("Subcommands: " + commands)
	fmt.Println("Command line flags: ")
	flagSet.SetOutput(os.Stdout)
	flagSet.PrintDefaults()
}

func printVersion() {
	fmt.Println("v." + VERSION)
}
