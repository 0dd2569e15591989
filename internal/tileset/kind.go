package tileset

import "strings"

// Kind tells what a single tile's content is.
type Kind int

const (
	// KindGroup has no usable content and only groups children.
	KindGroup Kind = iota
	// KindLeaf carries a .glb payload.
	KindLeaf
	// KindExternal points at another tileset document.
	KindExternal
)

func (k Kind) String() string {
	switch k {
	case KindLeaf:
		return "leaf"
	case KindExternal:
		return "external"
	}
	return "group"
}

func (t *Tile) Kind() Kind {
	ref := t.ContentRef()
	switch {
	case ref == "":
		return KindGroup
	case IsJSONRef(ref):
		return KindExternal
	case IsGLBRef(ref):
		return KindLeaf
	}
	return KindGroup
}

// Step is the traversal decision for a node.
type Step int

const (
	// StepHasUnpackableChildren descends into the node's own children.
	StepHasUnpackableChildren Step = iota
	// StepNextIsJSON fetches the external tilesets referenced by the node's children.
	StepNextIsJSON
	// StepLeaf emits the node.
	StepLeaf
	// StepFollowExternal fetches the tileset the childless node itself points at.
	StepFollowExternal
)

func (s Step) String() string {
	switch s {
	case StepNextIsJSON:
		return "next-is-json"
	case StepLeaf:
		return "leaf"
	case StepFollowExternal:
		return "follow-external"
	}
	return "has-unpackable-children"
}

// Classify decides how the resolver handles a node. Childless nodes are leaves unless they point at another
// tileset document. Nodes with at least one child pointing at a .json document chain to remote tilesets.
// Nodes whose children carry neither a payload nor children of their own are leaves too.
func Classify(t *Tile) Step {
	if !t.HasChildren() {
		if t.Kind() == KindExternal {
			return StepFollowExternal
		}
		return StepLeaf
	}

	unpackable := false
	for _, child := range t.Children {
		if child == nil {
			continue
		}
		if child.Kind() == KindExternal {
			return StepNextIsJSON
		}
		if child.Kind() == KindLeaf || child.HasChildren() {
			unpackable = true
		}
	}
	if unpackable {
		return StepHasUnpackableChildren
	}
	return StepLeaf
}

type RefineMode string

const (
	RefineModeAdd     RefineMode = "ADD"
	RefineModeReplace RefineMode = "REPLACE"
)

func (e RefineMode) String() string {
	if e == RefineModeAdd {
		return "ADD"
	} else if e == RefineModeReplace {
		return "REPLACE"
	}
	return ""
}

func ParseRefineMode(value string) RefineMode {
	normalizedValue := strings.Trim(strings.ToUpper(value), " ")
	if normalizedValue == "ADD" {
		return RefineModeAdd
	} else if normalizedValue == "REPLACE" {
		return RefineModeReplace
	}
	return ""
}
