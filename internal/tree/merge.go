package tree

// Root addresses the top level of the tree as a merge target.
const Root = ""

// DefaultContainerLabel labels the wrapping folder when none is given.
const DefaultContainerLabel = "mRemoteNG Import"

// MergeOptions control how incoming nodes land in the destination.
type MergeOptions struct {
	// Overwrite removes destination siblings whose normalized label equals
	// an incoming label before appending. Incoming nodes always win.
	Overwrite bool

	// WrapInContainer puts all incoming nodes into one new folder.
	WrapInContainer bool
	ContainerLabel  string
}

// MergeStats describes what a merge did.
type MergeStats struct {
	// TargetKey is the folder the nodes were appended to (Root for top level).
	TargetKey string
	// TargetResolved is false when the requested folder did not exist and
	// the merge fell back to the top level.
	TargetResolved bool
	Replaced       int
	Added          int
}

// Merger folds incoming nodes into an existing tree.
type Merger struct {
	ids IDGenerator
}

// NewMerger returns a Merger that keys wrapping folders with ids.
func NewMerger(ids IDGenerator) *Merger {
	if ids == nil {
		ids = NewSequenceGenerator("")
	}
	return &Merger{ids: ids}
}

// Merge returns a new tree with incoming appended under target. Neither
// existing nor incoming is modified. An unknown target is not an error: the
// nodes go to the top level instead.
//
// Conflicts are label-based and shallow: a matching folder is replaced as a
// whole, its children are not merged.
func (m *Merger) Merge(existing, incoming []*Node, target string, opts MergeOptions) ([]*Node, MergeStats) {
	out := CloneAll(existing)
	if out == nil {
		out = []*Node{}
	}
	add := CloneAll(incoming)

	if opts.WrapInContainer {
		label := opts.ContainerLabel
		if label == "" {
			label = DefaultContainerLabel
		}
		add = []*Node{NewFolder(m.ids.NewKey(), label, add)}
	}

	stats := MergeStats{TargetKey: Root, TargetResolved: target == Root, Added: len(add)}

	dest := &out
	if target != Root {
		if folder := Find(out, target); folder != nil && folder.IsFolder() {
			dest = &folder.Children
			stats.TargetKey = target
			stats.TargetResolved = true
		}
	}

	if opts.Overwrite {
		var removed int
		*dest, removed = removeConflicts(*dest, add)
		stats.Replaced = removed
	}
	*dest = append(*dest, add...)
	return out, stats
}

func removeConflicts(siblings, incoming []*Node) ([]*Node, int) {
	labels := make(map[string]bool, len(incoming))
	for _, n := range incoming {
		if l := NormalizeLabel(n.Label); l != "" {
			labels[l] = true
		}
	}
	kept := make([]*Node, 0, len(siblings))
	removed := 0
	for _, n := range siblings {
		if labels[NormalizeLabel(n.Label)] {
			removed++
			continue
		}
		kept = append(kept, n)
	}
	return kept, removed
}

// Merge is Merger.Merge with a fresh key generator.
func Merge(existing, incoming []*Node, target string, opts MergeOptions) ([]*Node, MergeStats) {
	return NewMerger(nil).Merge(existing, incoming, target, opts)
}
