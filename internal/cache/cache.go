package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ecopia-map/cesium_fetcher/internal/errs"
	"github.com/ecopia-map/cesium_fetcher/internal/tileset"
	"github.com/ecopia-map/cesium_fetcher/tools"
	"github.com/golang/glog"
	"golang.org/x/sync/singleflight"
)

const (
	Extension  = ".glb"
	hashLength = sha256.Size * 2
)

// DeriveCacheFilename names the cache entry of a content URI: the sha256 hex digest of the last path segment,
// query string excluded, plus ".glb". Equal segments share an entry.
func DeriveCacheFilename(contentURI string) string {
	sum := sha256.Sum256([]byte(lastSegment(contentURI)))
	return hex.EncodeToString(sum[:]) + Extension
}

func lastSegment(uri string) string {
	p := tileset.URIPath(uri)
	if i := strings.LastIndex(p, "/"); i >= 0 {
		return p[i+1:]
	}
	return p
}

// IsCacheFilename reports whether name looks like a cache entry: 64 hex characters and the .glb extension.
func IsCacheFilename(name string) bool {
	if !strings.EqualFold(filepath.Ext(name), Extension) {
		return false
	}
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	if len(stem) != hashLength {
		return false
	}
	_, err := hex.DecodeString(stem)
	return err == nil
}

// ListCached returns the cache entries found directly in dir, sorted.
func ListCached(dir string) ([]string, error) {
	files, err := tools.NewStandardFileFinder().GetFilesWithExtension(dir, Extension, false)
	if err != nil {
		return nil, errs.Wrapf(errs.Configuration, "list cache", err, "reading %s", dir)
	}

	entries := make([]string, 0, len(files))
	for _, f := range files {
		if IsCacheFilename(filepath.Base(f)) {
			entries = append(entries, f)
		}
	}
	return entries, nil
}

// ClearCache deletes the cache entries in dir and returns their paths. Other files are left alone.
func ClearCache(dir string) ([]string, error) {
	entries, err := ListCached(dir)
	if err != nil {
		return nil, err
	}

	removed := make([]string, 0, len(entries))
	for _, entry := range entries {
		if err := os.Remove(entry); err != nil && !os.IsNotExist(err) {
			return removed, errs.Wrapf(errs.Configuration, "clear cache", err, "removing %s", entry)
		}
		removed = append(removed, entry)
	}
	glog.Infof("cleared %d cached tiles from %s", len(removed), dir)
	return removed, nil
}

// FillFunc writes a payload. w may be rewound and rewritten between attempts.
type FillFunc func(ctx context.Context, w io.Writer) error

// Store is a directory of content addressed payloads. Entries are written once through a temporary file and
// a rename, so readers never see partial files.
type Store struct {
	dir   string
	group singleflight.Group
}

func NewStore(dir string) (*Store, error) {
	if dir == "" {
		return nil, errs.New(errs.Configuration, "open cache", "cache directory is empty")
	}
	if err := tools.CreateDirectoryIfDoesNotExist(dir); err != nil {
		return nil, errs.Wrapf(errs.Configuration, "open cache", err, "creating %s", dir)
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, errs.Wrap(errs.Configuration, "open cache", err)
	}
	if !info.IsDir() {
		return nil, errs.New(errs.Configuration, "open cache", "%s is not a directory", dir)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) Path(contentURI string) string {
	return filepath.Join(s.dir, DeriveCacheFilename(contentURI))
}

func (s *Store) Exists(contentURI string) bool {
	info, err := os.Stat(s.Path(contentURI))
	return err == nil && info.Mode().IsRegular()
}

// Put fills the entry for contentURI unless it already exists. Concurrent calls for the same entry share a
// single fill; shared reports whether this call received another caller's result.
func (s *Store) Put(ctx context.Context, contentURI string, fill FillFunc) (path string, shared bool, err error) {
	name := DeriveCacheFilename(contentURI)
	final := filepath.Join(s.dir, name)

	v, err, shared := s.group.Do(name, func() (interface{}, error) {
		if info, err := os.Stat(final); err == nil && info.Mode().IsRegular() {
			return final, nil
		}
		return final, s.write(ctx, name, final, fill)
	})
	if err != nil {
		return "", shared, err
	}
	return v.(string), shared, nil
}

func (s *Store) write(ctx context.Context, name, final string, fill FillFunc) error {
	tmp, err := os.CreateTemp(s.dir, ".tmp-"+name+"-*")
	if err != nil {
		return errs.Wrapf(errs.Configuration, "write cache", err, "creating temporary file for %s", name)
	}
	tmpName := tmp.Name()
	file := &rewindableFile{File: tmp}

	fillErr := fill(ctx, file)
	closeErr := tmp.Close()
	if fillErr == nil && closeErr != nil {
		fillErr = errs.Wrapf(errs.Configuration, "write cache", closeErr, "closing %s", tmpName)
	}
	if fillErr != nil {
		_ = os.Remove(tmpName)
		return fillErr
	}

	if err := os.Rename(tmpName, final); err != nil {
		_ = os.Remove(tmpName)
		return errs.Wrapf(errs.Configuration, "write cache", err, "moving %s into place", name)
	}
	return nil
}

type rewindableFile struct {
	*os.File
}

// Rewind empties the file so a retried download starts from scratch.
func (f *rewindableFile) Rewind() error {
	if err := f.Truncate(0); err != nil {
		return err
	}
	_, err := f.Seek(0, io.SeekStart)
	return err
}
