// Package segment chunks snapshots and journals into content-addressed
// blobs with a deterministic manifest.
package segment

import (
	"github.com/eng-cc/agent-world-sub008/cas"
	"github.com/eng-cc/agent-world-sub008/internal/werr"
	"github.com/eng-cc/agent-world-sub008/wire"
)

// DefaultChunkSize is the chunk size used when callers don't specify
// one, matching typical CAS blob sizing in the pack's storage layers.
const DefaultChunkSize = 256 * 1024

// Segment splits data into chunkSize-byte chunks, stores each chunk in
// store, and returns a SnapshotManifest whose StateRoot is the content
// hash of the manifest with StateRoot held empty, so the root can be
// recomputed from the manifest itself.
func Segment(store *cas.Store, worldID string, height uint64, data []byte, chunkSize int) (wire.SnapshotManifest, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	m := wire.SnapshotManifest{WorldID: worldID, Height: height}
	for i := 0; i < len(data); i += chunkSize {
		end := i + chunkSize
		if end > len(data) {
			end = len(data)
		}
		chunk := data[i:end]
		hash, err := store.Put(chunk)
		if err != nil {
			return wire.SnapshotManifest{}, err
		}
		m.Chunks = append(m.Chunks, wire.StateChunkRef{
			Index: uint32(len(m.Chunks)),
			Blob:  wire.BlobRef{ContentHash: hash, SizeBytes: uint64(len(chunk))},
		})
	}
	root, err := wire.HashCBOR(m)
	if err != nil {
		return wire.SnapshotManifest{}, err
	}
	m.StateRoot = root
	return m, nil
}

// Reassemble concatenates a SnapshotManifest's chunks back into the
// original bytes, verifying each chunk's content hash as it reads it.
func Reassemble(store *cas.Store, m wire.SnapshotManifest) ([]byte, error) {
	var out []byte
	for _, c := range m.Chunks {
		b, err := store.Get(c.Blob.ContentHash)
		if err != nil {
			return nil, err
		}
		if wire.ContentHash(b) != c.Blob.ContentHash {
			return nil, werr.New(werr.KindValidation, "BlobHashMismatch: chunk %d expected %s", c.Index, c.Blob.ContentHash)
		}
		out = append(out, b...)
	}
	return out, nil
}

// SegmentJournal is Segment specialized for journal bytes, kept as a
// distinct entry point even though the chunking logic is identical.
func SegmentJournal(store *cas.Store, worldID string, height uint64, data []byte, chunkSize int) (wire.SnapshotManifest, error) {
	return Segment(store, worldID, height, data, chunkSize)
}
