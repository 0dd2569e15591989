package tileset

import (
	"math"
	"net/url"
	"path"
	"strings"

	"github.com/ecopia-map/cesium_fetcher/internal/errs"
	"github.com/ecopia-map/cesium_fetcher/internal/geometry"
)

// Tileset is one JSON document of a 3D Tiles hierarchy. Documents reference each other through content URIs
// ending in .json.
type Tileset struct {
	Asset          Asset   `json:"asset"`
	GeometricError float64 `json:"geometricError"`
	Root           *Tile   `json:"root"`
}

type Asset struct {
	Version        string `json:"version"`
	TilesetVersion string `json:"tilesetVersion,omitempty"`
}

type Tile struct {
	BoundingVolume BoundingVolume `json:"boundingVolume"`
	GeometricError float64        `json:"geometricError"`
	Refine         string         `json:"refine,omitempty"`
	Content        *Content       `json:"content,omitempty"`
	Children       []*Tile        `json:"children,omitempty"`
	Extras         *Extras        `json:"extras,omitempty"`
}

// Content points at a payload (.glb) or a nested tileset (.json). Legacy tilesets use "url".
type Content struct {
	URI string `json:"uri,omitempty"`
	URL string `json:"url,omitempty"`
}

type Extras struct {
	Comment string `json:"comment,omitempty"`
}

// BoundingVolume holds either a box (12 numbers) or a region (west, south, east, north in radians, then
// minimum and maximum height).
type BoundingVolume struct {
	Box    []float64 `json:"box,omitempty"`
	Region []float64 `json:"region,omitempty"`
}

func (c *Content) Ref() string {
	if c == nil {
		return ""
	}
	if c.URI != "" {
		return c.URI
	}
	return c.URL
}

// OBB reads the box volume.
func (v BoundingVolume) OBB() (*geometry.OrientedBoundingBox, error) {
	if v.Box == nil {
		return nil, errs.New(errs.Geometry, "read bounding volume", "tile has no box volume")
	}
	return geometry.NewOrientedBoundingBox(v.Box)
}

// LatLonRange reads the region volume. ok is false when the tile carries no region.
func (v BoundingVolume) LatLonRange() (r geometry.LatLonRange, ok bool, err error) {
	if v.Region == nil {
		return geometry.LatLonRange{}, false, nil
	}
	if len(v.Region) != 6 {
		return geometry.LatLonRange{}, true, errs.New(errs.Geometry, "read bounding volume", "expected 6 region values, got %d", len(v.Region))
	}
	toDegrees := 180 / math.Pi
	return geometry.LatLonRange{
		MinLon: v.Region[0] * toDegrees,
		MinLat: v.Region[1] * toDegrees,
		MaxLon: v.Region[2] * toDegrees,
		MaxLat: v.Region[3] * toDegrees,
	}, true, nil
}

// Array returns the raw numbers of whichever volume the tile carries.
func (v BoundingVolume) Array() []float64 {
	if v.Box != nil {
		return v.Box
	}
	return v.Region
}

// URIPath returns the path of a content URI, without query string or fragment.
func URIPath(uri string) string {
	if u, err := url.Parse(uri); err == nil {
		return u.Path
	}
	if i := strings.IndexAny(uri, "?#"); i >= 0 {
		return uri[:i]
	}
	return uri
}

func hasExtension(uri string, ext string) bool {
	return strings.EqualFold(path.Ext(URIPath(uri)), ext)
}

func IsJSONRef(uri string) bool {
	return hasExtension(uri, ".json")
}

func IsGLBRef(uri string) bool {
	return hasExtension(uri, ".glb")
}

func (t *Tile) HasChildren() bool {
	return len(t.Children) > 0
}

func (t *Tile) ContentRef() string {
	return t.Content.Ref()
}

func (t *Tile) RefineMode() RefineMode {
	return ParseRefineMode(t.Refine)
}

// Walk visits the tile and its descendants depth first, pre-order. Returning false from fn skips the
// subtree below the visited tile.
func (t *Tile) Walk(fn func(tile *Tile, depth int) bool) {
	t.walk(fn, 0)
}

func (t *Tile) walk(fn func(tile *Tile, depth int) bool, depth int) {
	if !fn(t, depth) {
		return
	}
	for _, child := range t.Children {
		if child != nil {
			child.walk(fn, depth+1)
		}
	}
}
