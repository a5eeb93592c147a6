package cas

import (
	"fmt"
	"regexp"

	"github.com/eng-cc/agent-world-sub008/internal/werr"
	"github.com/eng-cc/agent-world-sub008/wire"
	bolt "go.etcd.io/bbolt"
)

var worldSegmentRe = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// normalizeWorldSegment rejects a world id that would produce an
// unsafe or ambiguous path segment.
func normalizeWorldSegment(worldID string) (string, error) {
	if worldID == "" || !worldSegmentRe.MatchString(worldID) {
		return "", werr.New(werr.KindValidation, "invalid world id %q for path index", worldID)
	}
	return worldID, nil
}

func headPath(worldID string) string {
	return fmt.Sprintf("worlds/%s/heads/latest_head.cbor", worldID)
}

func blockPath(worldID string, height uint64, leaf string) string {
	return fmt.Sprintf("worlds/%s/blocks/%020d/%s.cbor", worldID, height, leaf)
}

// WriteExecutionPathIndex records the head, block, snapshot manifest,
// and journal-segment pointers for one committed height.
func (s *Store) WriteExecutionPathIndex(worldID string, height uint64, block, snapshotManifest, journalSegments []byte) error {
	worldID, err := normalizeWorldSegment(worldID)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketPathIndex)
		if err := b.Put([]byte(blockPath(worldID, height, "block")), block); err != nil {
			return err
		}
		if err := b.Put([]byte(blockPath(worldID, height, "snapshot_manifest")), snapshotManifest); err != nil {
			return err
		}
		if err := b.Put([]byte(blockPath(worldID, height, "journal_segments")), journalSegments); err != nil {
			return err
		}
		return b.Put([]byte(headPath(worldID)), block)
	})
}

// LoadBlockByHeight returns the raw, canonical-CBOR-encoded WorldBlock
// bytes recorded for worldID at height.
func (s *Store) LoadBlockByHeight(worldID string, height uint64) ([]byte, error) {
	worldID, err := normalizeWorldSegment(worldID)
	if err != nil {
		return nil, err
	}
	var out []byte
	err = s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketPathIndex).Get([]byte(blockPath(worldID, height, "block")))
		if v == nil {
			return werr.New(werr.KindNotFound, "no block at height %d for world %s", height, worldID)
		}
		out = append([]byte(nil), v...)
		return nil
	})
	return out, err
}

// LoadLatestHead returns the raw bytes of the most recently written
// head block for worldID.
func (s *Store) LoadLatestHead(worldID string) ([]byte, error) {
	worldID, err := normalizeWorldSegment(worldID)
	if err != nil {
		return nil, err
	}
	var out []byte
	err = s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketPathIndex).Get([]byte(headPath(worldID)))
		if v == nil {
			return werr.New(werr.KindNotFound, "no head recorded for world %s", worldID)
		}
		out = append([]byte(nil), v...)
		return nil
	})
	return out, err
}

// HashActions, HashEvents, HashReceipts each compute the canonical-CBOR
// blake3 root over a sequence.
func HashActions(actions any) (string, error)  { return wire.HashCBOR(actions) }
func HashEvents(events any) (string, error)    { return wire.HashCBOR(events) }
func HashReceipts(receipts any) (string, error) { return wire.HashCBOR(receipts) }
