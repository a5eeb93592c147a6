package replication

import (
	"github.com/eng-cc/agent-world-sub008/internal/werr"
	"github.com/eng-cc/agent-world-sub008/wire"
)

// FileStore is the minimal surface ApplyRecord needs to persist a
// replicated write. cas.Store satisfies a content-addressed version of
// it via the PathIndex helpers; a plain path-keyed file store also
// works.
type FileStore interface {
	WriteFile(path string, data []byte) (contentHash string, sizeBytes uint64, err error)
}

// BuildRecord constructs a Record for one write at writerEpoch 1.
func BuildRecord(worldID, writerID, path string, sequence uint64, data []byte, updatedAtMs int64) Record {
	return BuildRecordWithEpoch(worldID, writerID, 1, path, sequence, data, updatedAtMs)
}

// BuildRecordWithEpoch constructs a Record for one write at an explicit
// epoch.
func BuildRecordWithEpoch(worldID, writerID string, epoch uint64, path string, sequence uint64, data []byte, updatedAtMs int64) Record {
	return Record{
		WorldID:     worldID,
		WriterID:    writerID,
		WriterEpoch: epoch,
		Sequence:    sequence,
		Path:        path,
		ContentHash: wire.ContentHash(data),
		SizeBytes:   uint64(len(data)),
		UpdatedAtMs: updatedAtMs,
	}
}

// ApplyRecord writes data through store and verifies both that data's
// hash matches record.ContentHash and that the store's own report of
// what it wrote also matches — guarding against a store that silently
// truncates or corrupts the write.
func ApplyRecord(store FileStore, record Record, data []byte) error {
	if wire.ContentHash(data) != record.ContentHash {
		return werr.New(werr.KindValidation, "replication: data hash does not match record.ContentHash for path %s", record.Path)
	}
	writtenHash, writtenSize, err := store.WriteFile(record.Path, data)
	if err != nil {
		return err
	}
	if writtenHash != record.ContentHash || writtenSize != record.SizeBytes {
		return werr.New(werr.KindStateMismatch, "replication: store write for %s diverged from record (hash %s vs %s)", record.Path, writtenHash, record.ContentHash)
	}
	return nil
}

// Batch is one (record, payload) pair for ordered replay.
type Batch struct {
	Record Record
	Data   []byte
}

// ReplayRecords applies an ordered batch of records in sequence,
// stopping at the first failure.
func ReplayRecords(store FileStore, batch []Batch) error {
	for _, b := range batch {
		if err := ApplyRecord(store, b.Record, b.Data); err != nil {
			return err
		}
	}
	return nil
}
