package tools

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

type FileFinder interface {
	GetFilesWithExtension(dir string, extension string, recursive bool) ([]string, error)
}

type StandardFileFinder struct{}

func NewStandardFileFinder() FileFinder {
	return &StandardFileFinder{}
}

// GetFilesWithExtension lists the regular files in dir whose extension matches (case insensitive), sorted by path.
// Nested folders are skipped unless recursive is set.
func (f *StandardFileFinder) GetFilesWithExtension(dir string, extension string, recursive bool) ([]string, error) {
	var files = make([]string, 0)

	baseInfo, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	extension = strings.ToLower(extension)

	err = filepath.Walk(
		dir,
		func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.IsDir() {
				if !recursive && !os.SameFile(info, baseInfo) {
					return filepath.SkipDir
				}
				return nil
			}
			if info.Mode().IsRegular() && strings.ToLower(filepath.Ext(info.Name())) == extension {
				files = append(files, path)
			}
			return nil
		},
	)
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}
