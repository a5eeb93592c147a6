package manifest

import (
	"sort"
	"strings"
)

// ConflictKind classifies why two patch ops cannot both apply cleanly.
type ConflictKind string

const (
	ConflictSamePath      ConflictKind = "same_path"
	ConflictPrefixOverlap ConflictKind = "prefix_overlap"
)

// PatchOpSummary is a flattened, joined-path view of one PatchOp, used
// for conflict detection and reporting.
type PatchOpSummary struct {
	PatchIndex int
	Op         PatchOpKind
	JoinedPath string
}

// PatchConflict records that two patches' ops touch overlapping paths.
type PatchConflict struct {
	Kind  ConflictKind
	A, B  PatchOpSummary
}

func joinPath(path []string) string { return strings.Join(path, ".") }

func pathIsPrefix(prefix, path []string) bool {
	if len(prefix) >= len(path) {
		return false
	}
	for i, seg := range prefix {
		if path[i] != seg {
			return false
		}
	}
	return true
}

// DetectConflicts pairwise-compares every patch's ops (patches is a
// slice of named op-sets, index order is the patch index) and returns a
// deduplicated, sorted list of conflicts: exact-path collisions
// (SamePath) and parent/child path overlaps (PrefixOverlap).
func DetectConflicts(patches [][]PatchOp) []PatchConflict {
	var summaries []PatchOpSummary
	for pi, ops := range patches {
		for _, op := range ops {
			summaries = append(summaries, PatchOpSummary{PatchIndex: pi, Op: op.Op, JoinedPath: joinPath(op.Path)})
		}
	}

	seen := make(map[string]PatchConflict)
	for i := 0; i < len(summaries); i++ {
		for j := i + 1; j < len(summaries); j++ {
			a, b := summaries[i], summaries[j]
			if a.PatchIndex == b.PatchIndex {
				continue
			}
			var kind ConflictKind
			switch {
			case a.JoinedPath == b.JoinedPath:
				kind = ConflictSamePath
			case pathIsPrefix(strings.Split(a.JoinedPath, "."), strings.Split(b.JoinedPath, ".")),
				pathIsPrefix(strings.Split(b.JoinedPath, "."), strings.Split(a.JoinedPath, ".")):
				kind = ConflictPrefixOverlap
			default:
				continue
			}
			key := string(kind) + "|" + a.JoinedPath + "|" + b.JoinedPath
			if _, ok := seen[key]; !ok {
				seen[key] = PatchConflict{Kind: kind, A: a, B: b}
			}
		}
	}

	out := make([]PatchConflict, 0, len(seen))
	for _, c := range seen {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].A.JoinedPath != out[j].A.JoinedPath {
			return out[i].A.JoinedPath < out[j].A.JoinedPath
		}
		return out[i].B.JoinedPath < out[j].B.JoinedPath
	})
	return out
}

// PatchMergeResult is the outcome of merging a set of patches: the
// combined op list and any conflicts found along the way.
type PatchMergeResult struct {
	Ops       []PatchOp
	Conflicts []PatchConflict
}

// MergePatches concatenates patches in order with no conflict
// checking; callers wanting conflict detection run DetectConflicts
// first.
func MergePatches(patches ...[]PatchOp) []PatchOp {
	var out []PatchOp
	for _, p := range patches {
		out = append(out, p...)
	}
	return out
}

// MergePatchesWithConflicts merges patches and reports any conflicts
// detected across them, matching merge_manifest_patches_with_conflicts.
func MergePatchesWithConflicts(patches ...[]PatchOp) PatchMergeResult {
	return PatchMergeResult{
		Ops:       MergePatches(patches...),
		Conflicts: DetectConflicts(patches),
	}
}
