package io

import "github.com/ecopia-map/cesium_fetcher/internal/resolver"

// WorkUnit is a single download: a resolved candidate and its position in the resolved list.
type WorkUnit struct {
	Index     int
	Candidate resolver.Candidate
}

// DownloadResult reports what happened to one WorkUnit.
type DownloadResult struct {
	Index      int
	ContentURI string
	Path       string
	Bytes      int64
	// Cached is set when the payload was already in the cache and no request was made.
	Cached bool
	// Skipped is set for candidates without a .glb payload.
	Skipped bool
	Err     error
}
