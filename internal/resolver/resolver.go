package resolver

import (
	"context"
	stderrors "errors"
	"sync"
	"sync/atomic"

	"github.com/ecopia-map/cesium_fetcher/internal/errs"
	"github.com/ecopia-map/cesium_fetcher/internal/fetcher"
	"github.com/ecopia-map/cesium_fetcher/internal/tileset"
	"github.com/golang/glog"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
)

const DefaultMemoSize = 256

// TilesetSource fetches the tileset documents referenced by .json content.
type TilesetSource interface {
	FetchTileset(ctx context.Context, partialURI string, creds fetcher.Credentials) (*tileset.Tileset, error)
}

// Predicate reports whether a tile may intersect the region of interest. A tile whose predicate fails is
// dropped together with its subtree.
type Predicate func(tile *tileset.Tile) (bool, error)

type Options struct {
	// MaxDepth bounds the recursion. Nodes reached at MaxDepth are emitted without being expanded.
	MaxDepth int
	// Workers is the number of subtrees expanded concurrently. Values below 2 resolve serially.
	Workers int
	// MemoizeClusters keeps fetched tileset documents by URI for the duration of the resolver.
	MemoizeClusters bool
	MemoSize        int
}

// Candidate is a node selected for download.
type Candidate struct {
	Tile  *tileset.Tile
	Depth int
	// Path lists child indices from the root, counted after external documents were substituted.
	Path []int
	// ContentURI is the tile content resolved against the document the tile was found in.
	ContentURI string
	// Credentials carry the session of that document, or the session of the resolve when the document had none.
	Credentials fetcher.Credentials
}

// Downloadable reports whether the candidate carries a .glb payload.
func (c Candidate) Downloadable() bool {
	return c.ContentURI != "" && tileset.IsGLBRef(c.ContentURI)
}

type Result struct {
	Candidates     []Candidate
	ClusterFetches int
	Pruned         int
	// BranchErrors lists the failures that abandoned a branch. The rest of the tree is still resolved.
	BranchErrors []error
}

func (r *Result) Err() error {
	return stderrors.Join(r.BranchErrors...)
}

// BoundingVolumes returns the raw bounding volume of every candidate, in traversal order.
func (r *Result) BoundingVolumes() [][]float64 {
	return lo.Map(r.Candidates, func(c Candidate, _ int) []float64 {
		return c.Tile.BoundingVolume.Array()
	})
}

// Downloadable returns the candidates carrying a .glb payload.
func (r *Result) Downloadable() []Candidate {
	return lo.Filter(r.Candidates, func(c Candidate, _ int) bool {
		return c.Downloadable()
	})
}

type Resolver struct {
	source TilesetSource
	viable Predicate
	opts   Options
	memo   *lru.Cache[string, *tileset.Tileset]
}

func New(source TilesetSource, viable Predicate, opts Options) (*Resolver, error) {
	const op = "create resolver"

	if source == nil {
		return nil, errs.New(errs.Configuration, op, "a tileset source is required")
	}
	if viable == nil {
		return nil, errs.New(errs.Configuration, op, "a viability predicate is required")
	}
	if opts.MaxDepth < 0 {
		return nil, errs.New(errs.Configuration, op, "max depth must not be negative, got %d", opts.MaxDepth)
	}

	r := &Resolver{source: source, viable: viable, opts: opts}
	if opts.MemoizeClusters {
		size := opts.MemoSize
		if size <= 0 {
			size = DefaultMemoSize
		}
		memo, err := lru.New[string, *tileset.Tileset](size)
		if err != nil {
			return nil, errs.Wrap(errs.Configuration, op, err)
		}
		r.memo = memo
	}
	return r, nil
}

// frame is one pending call of the traversal.
type frame struct {
	tile   *tileset.Tile
	depth  int
	path   []int
	docURI string
	creds  fetcher.Credentials
}

func (f frame) child(tile *tileset.Tile, index int, docURI string, creds fetcher.Credentials) frame {
	path := make([]int, len(f.path), len(f.path)+1)
	copy(path, f.path)
	return frame{
		tile:   tile,
		depth:  f.depth + 1,
		path:   append(path, index),
		docURI: docURI,
		creds:  creds,
	}
}

func (f frame) candidate() Candidate {
	var uri string
	if ref := f.tile.ContentRef(); ref != "" {
		uri = fetcher.ResolveReference(f.docURI, ref)
	}
	return Candidate{
		Tile:        f.tile,
		Depth:       f.depth,
		Path:        f.path,
		ContentURI:  uri,
		Credentials: f.creds,
	}
}

// branch collects the output of one subtree. Children own their own branch so that concurrent subtrees never
// share a slice; flattening in child order restores the depth-first pre-order.
type branch struct {
	candidates []Candidate
	children   []*branch
}

func (b *branch) flatten(out []Candidate) []Candidate {
	out = append(out, b.candidates...)
	for _, c := range b.children {
		out = c.flatten(out)
	}
	return out
}

type run struct {
	*Resolver
	ctx      context.Context
	group    *errgroup.Group
	parallel bool

	fetches int64
	pruned  int64

	mu           sync.Mutex
	branchErrors []error
	// session is the first session seen during the run. Requests whose own credentials carry none adopt it.
	session string
}

// Resolve expands root, the root tile of the document found at rootURI, down to the download candidates.
// Only cancellation fails the whole call; branch failures are collected in the result.
func (r *Resolver) Resolve(ctx context.Context, creds fetcher.Credentials, root *tileset.Tile, rootURI string) (*Result, error) {
	if root == nil {
		return nil, errs.New(errs.Parse, "resolve "+tileset.URIPath(rootURI), "tileset has no root tile")
	}

	group, gctx := errgroup.WithContext(ctx)
	parallel := r.opts.Workers > 1
	if parallel {
		group.SetLimit(r.opts.Workers)
	}

	rn := &run{Resolver: r, ctx: gctx, group: group, parallel: parallel, session: creds.Session}
	top := &branch{}
	err := rn.resolve(frame{tile: root, docURI: rootURI, creds: creds}, top)
	if werr := group.Wait(); err == nil {
		err = werr
	}
	if err != nil {
		return nil, err
	}

	result := &Result{
		Candidates:     top.flatten(nil),
		ClusterFetches: int(atomic.LoadInt64(&rn.fetches)),
		Pruned:         int(atomic.LoadInt64(&rn.pruned)),
		BranchErrors:   rn.branchErrors,
	}
	glog.V(1).Infof("resolved %d candidates, %d cluster fetches, %d pruned, %d branch errors",
		len(result.Candidates), result.ClusterFetches, result.Pruned, len(result.BranchErrors))
	return result, nil
}

func (rn *run) resolve(f frame, out *branch) error {
	if err := rn.ctx.Err(); err != nil {
		return err
	}

	if f.depth >= rn.opts.MaxDepth {
		out.candidates = append(out.candidates, rn.candidate(f))
		return nil
	}

	var children []frame
	switch tileset.Classify(f.tile) {
	case tileset.StepLeaf:
		out.candidates = append(out.candidates, rn.candidate(f))
		return nil
	case tileset.StepNextIsJSON:
		expanded, err := rn.expand(f)
		if err != nil {
			return err
		}
		children = expanded
	case tileset.StepFollowExternal:
		followed, err := rn.substitute(f, f.tile, 0)
		if err != nil {
			return err
		}
		children = followed
	default:
		for i, c := range f.tile.Children {
			if c != nil {
				children = append(children, f.child(c, i, f.docURI, f.creds))
			}
		}
	}

	for _, c := range children {
		if !rn.isViable(c) {
			continue
		}
		sub := &branch{}
		out.children = append(out.children, sub)
		if err := rn.descend(c, sub); err != nil {
			return err
		}
	}
	return nil
}

// descend hands the subtree to a free worker, or expands it inline when every worker is busy.
func (rn *run) descend(f frame, out *branch) error {
	if rn.parallel && rn.group.TryGo(func() error { return rn.resolve(f, out) }) {
		return nil
	}
	return rn.resolve(f, out)
}

// expand replaces every child pointing at a tileset document with the children of that document's root.
func (rn *run) expand(f frame) ([]frame, error) {
	var children []frame
	for _, c := range f.tile.Children {
		if c == nil {
			continue
		}
		if c.Kind() != tileset.KindExternal {
			children = append(children, f.child(c, len(children), f.docURI, f.creds))
			continue
		}
		replaced, err := rn.substitute(f, c, len(children))
		if err != nil {
			return nil, err
		}
		children = append(children, replaced...)
	}
	return children, nil
}

// substitute fetches the document ref points at and returns its root's children as children of f, numbered
// from index. A document whose root has no children contributes the root itself. Fetch failures abandon the
// reference and return no frames.
func (rn *run) substitute(f frame, ref *tileset.Tile, index int) ([]frame, error) {
	uri := fetcher.ResolveReference(f.docURI, ref.ContentRef())
	creds := rn.withSession(f.creds.WithSessionFrom(uri))
	ts, err := rn.fetchCluster(uri, creds)
	if err != nil {
		if ctxErr := rn.ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		rn.branchError(uri, err)
		return nil, nil
	}

	if !ts.Root.HasChildren() {
		return []frame{f.child(ts.Root, index, uri, creds)}, nil
	}
	frames := make([]frame, 0, len(ts.Root.Children))
	for _, rc := range ts.Root.Children {
		if rc != nil {
			frames = append(frames, f.child(rc, index+len(frames), uri, creds))
		}
	}
	return frames, nil
}

func (rn *run) fetchCluster(uri string, creds fetcher.Credentials) (*tileset.Tileset, error) {
	if rn.memo != nil {
		if ts, ok := rn.memo.Get(uri); ok {
			return ts, nil
		}
	}
	if err := rn.ctx.Err(); err != nil {
		return nil, err
	}

	atomic.AddInt64(&rn.fetches, 1)
	glog.V(2).Infof("fetching cluster %s (%s)", tileset.URIPath(uri), creds)
	ts, err := rn.source.FetchTileset(rn.ctx, uri, creds)
	if err != nil {
		return nil, err
	}
	if ts.Root == nil {
		return nil, errs.New(errs.Parse, "resolve "+tileset.URIPath(uri), "tileset has no root tile")
	}
	if rn.memo != nil {
		rn.memo.Add(uri, ts)
	}
	return ts, nil
}

func (rn *run) candidate(f frame) Candidate {
	c := f.candidate()
	c.Credentials = rn.withSession(c.Credentials)
	return c
}

// withSession records the session of creds for the rest of the run, or fills in the run's session when creds
// have none. creds is a copy; the caller's value is never changed.
func (rn *run) withSession(creds fetcher.Credentials) fetcher.Credentials {
	rn.mu.Lock()
	defer rn.mu.Unlock()
	if creds.Session == "" {
		creds.Session = rn.session
	} else if rn.session == "" {
		rn.session = creds.Session
	}
	return creds
}

func (rn *run) isViable(f frame) bool {
	ok, err := rn.viable(f.tile)
	if err != nil {
		rn.branchError(f.docURI, err)
		return false
	}
	if !ok {
		atomic.AddInt64(&rn.pruned, 1)
	}
	return ok
}

func (rn *run) branchError(uri string, err error) {
	glog.Warningf("abandoning branch %s: %v", tileset.URIPath(uri), err)
	rn.mu.Lock()
	rn.branchErrors = append(rn.branchErrors, err)
	rn.mu.Unlock()
}
