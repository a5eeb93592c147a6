package manifest

import "sort"

// Diff computes the ordered set of PatchOps that transform from into
// to: a sorted, deduplicated union of keys at each level, recursing
// into objects present on both sides and wholesale-replacing on a type
// mismatch.
func Diff(from, to Value) []PatchOp {
	return diffAt(nil, from, to)
}

func diffAt(path []string, from, to Value) []PatchOp {
	if Equal(from, to) {
		return nil
	}
	if from.Kind != KindObject || to.Kind != KindObject {
		return []PatchOp{{Op: OpSet, Path: clonePath(path), Value: to}}
	}

	keys := unionSortedKeys(from, to)
	var ops []PatchOp
	for _, k := range keys {
		childPath := append(clonePath(path), k)
		fv, inFrom := from.Get(k)
		tv, inTo := to.Get(k)
		switch {
		case inFrom && !inTo:
			ops = append(ops, PatchOp{Op: OpRemove, Path: childPath})
		case !inFrom && inTo:
			ops = append(ops, PatchOp{Op: OpSet, Path: childPath, Value: tv})
		default:
			ops = append(ops, diffAt(childPath, fv, tv)...)
		}
	}
	return ops
}

func unionSortedKeys(a, b Value) []string {
	seen := make(map[string]bool)
	var out []string
	for _, k := range a.keys() {
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	for _, k := range b.keys() {
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

func clonePath(p []string) []string {
	out := make([]string, len(p))
	copy(out, p)
	return out
}
