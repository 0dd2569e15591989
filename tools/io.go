package tools

import (
	"os"
	"path/filepath"
)

const cacheDirEnv = "CESIUM_FETCHER_CACHE"

// GetDefaultCacheFolder returns $CESIUM_FETCHER_CACHE if set, otherwise <user cache dir>/cesium_fetcher/tiles.
func GetDefaultCacheFolder() string {
	if fromEnv := os.Getenv(cacheDirEnv); fromEnv != "" {
		return fromEnv
	}
	base, err := os.UserCacheDir()
	if err != nil {
		base = os.TempDir()
	}
	return filepath.Join(base, "cesium_fetcher", "tiles")
}

func CreateDirectoryIfDoesNotExist(directory string) error {
	if _, err := os.Stat(directory); os.IsNotExist(err) {
		err := os.MkdirAll(directory, 0777)
		if err != nil {
			return err
		}
	}
	return nil
}
