package manifest

import (
	"strings"

	"github.com/eng-cc/agent-world-sub008/internal/werr"
	"github.com/eng-cc/agent-world-sub008/wire"
)

// PatchOpKind discriminates a PatchOp.
type PatchOpKind string

const (
	OpSet    PatchOpKind = "set"
	OpRemove PatchOpKind = "remove"
)

// PatchOp is one JSON-path edit within a ManifestPatch.
type PatchOp struct {
	Op    PatchOpKind
	Path  []string
	Value Value
}

// Manifest is a hash-anchored document: Hash is always the ContentHash
// of Content's canonical CBOR encoding.
type Manifest struct {
	Content Value
	Hash    string
}

// NewManifest builds a Manifest and computes its hash.
func NewManifest(content Value) (Manifest, error) {
	h, err := wire.HashCBOR(content)
	if err != nil {
		return Manifest{}, err
	}
	return Manifest{Content: content, Hash: h}, nil
}

// ApplyPatch applies ops to m, first checking that m.Hash equals
// baseHash (PatchBaseMismatch if not), and returns the resulting
// manifest with its hash recomputed.
func ApplyPatch(m Manifest, baseHash string, ops []PatchOp) (Manifest, error) {
	if m.Hash != baseHash {
		return Manifest{}, werr.New(werr.KindConflict, "PatchBaseMismatch: manifest hash %s does not match expected base %s", m.Hash, baseHash)
	}
	content, err := applyPatchOps(m.Content, ops)
	if err != nil {
		return Manifest{}, err
	}
	return NewManifest(content)
}

func applyPatchOps(content Value, ops []PatchOp) (Value, error) {
	cur := content
	for _, op := range ops {
		var err error
		switch op.Op {
		case OpSet:
			cur, err = applySet(cur, op.Path, op.Value)
		case OpRemove:
			cur, err = applyRemove(cur, op.Path)
		default:
			err = werr.New(werr.KindValidation, "PatchInvalidPath: unknown op %q", op.Op)
		}
		if err != nil {
			return Value{}, err
		}
	}
	return cur, nil
}

func applySet(doc Value, path []string, val Value) (Value, error) {
	if len(path) == 0 {
		return val, nil
	}
	return setAt(doc, path, val)
}

func setAt(doc Value, path []string, val Value) (Value, error) {
	head := path[0]
	rest := path[1:]
	if doc.Kind != KindObject {
		if doc.Kind == KindNull {
			doc = Object()
		} else {
			return Value{}, werr.New(werr.KindValidation, "PatchNonObject: cannot traverse into %s at %q", kindName(doc.Kind), strings.Join(path, "."))
		}
	}
	if len(rest) == 0 {
		return doc.WithField(head, val), nil
	}
	child, _ := doc.Get(head)
	newChild, err := setAt(child, rest, val)
	if err != nil {
		return Value{}, err
	}
	return doc.WithField(head, newChild), nil
}

func applyRemove(doc Value, path []string) (Value, error) {
	if len(path) == 0 {
		return Value{}, werr.New(werr.KindValidation, "PatchInvalidPath: remove requires a non-empty path")
	}
	return removeAt(doc, path)
}

func removeAt(doc Value, path []string) (Value, error) {
	head := path[0]
	rest := path[1:]
	if doc.Kind != KindObject {
		return Value{}, werr.New(werr.KindValidation, "PatchNonObject: cannot traverse into %s at %q", kindName(doc.Kind), strings.Join(path, "."))
	}
	child, ok := doc.Get(head)
	if !ok {
		return Value{}, werr.New(werr.KindValidation, "PatchInvalidPath: key %q not present", head)
	}
	if len(rest) == 0 {
		return doc.WithoutField(head), nil
	}
	newChild, err := removeAt(child, rest)
	if err != nil {
		return Value{}, err
	}
	return doc.WithField(head, newChild), nil
}

func kindName(k ValueKind) string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "unknown"
	}
}
