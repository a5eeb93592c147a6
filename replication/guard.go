// Package replication implements the single-writer admission guard
// that serializes concurrent writers to the same replicated path.
package replication

import (
	"github.com/eng-cc/agent-world-sub008/internal/werr"
)

// Record describes one write admitted by a Guard.
type Record struct {
	WorldID     string `cbor:"world_id"`
	WriterID    string `cbor:"writer_id"`
	WriterEpoch uint64 `cbor:"writer_epoch"`
	Sequence    uint64 `cbor:"sequence"`
	Path        string `cbor:"path"`
	ContentHash string `cbor:"content_hash"`
	SizeBytes   uint64 `cbor:"size_bytes"`
	UpdatedAtMs int64  `cbor:"updated_at_ms"`
}

// Guard is a single-writer admission guard for one replicated path
// namespace (typically scoped per world).
type Guard struct {
	WorldID      string `cbor:"world_id"`
	WriterID     string `cbor:"writer_id"` // empty: no writer has ever been admitted
	WriterEpoch  uint64 `cbor:"writer_epoch"`
	LastSequence uint64 `cbor:"last_sequence"`
}

// NewGuard returns a fresh guard for worldID with no admitted writer.
func NewGuard(worldID string) *Guard {
	return &Guard{WorldID: worldID}
}

// ValidateAndAdvance applies the single-writer admission rules: the
// first writer for a guard is always
// admitted; a writer re-admitting at the same epoch must strictly
// increase its sequence; a writer advancing its own epoch must restart
// at sequence 1; a different writer may only take over by presenting a
// strictly greater epoch and sequence 1 (fencing off the old writer).
// On success it mutates g to reflect the new writer/epoch/sequence.
func (g *Guard) ValidateAndAdvance(worldID, writerID string, writerEpoch, sequence uint64) error {
	if worldID == "" || writerID == "" {
		return werr.New(werr.KindValidation, "replication guard: world_id and writer_id must be non-empty")
	}
	if sequence == 0 {
		return werr.New(werr.KindValidation, "replication guard: sequence must be non-zero")
	}
	if writerEpoch == 0 {
		return werr.New(werr.KindValidation, "replication guard: writer_epoch must be non-zero")
	}

	switch {
	case g.WriterID == "":
		// no prior writer: admit unconditionally.
	case g.WriterID == writerID && writerEpoch == g.WriterEpoch:
		if sequence <= g.LastSequence {
			return werr.New(werr.KindConflict, "replication guard: sequence %d does not advance past last sequence %d for writer %s epoch %d", sequence, g.LastSequence, writerID, writerEpoch)
		}
	case g.WriterID == writerID && writerEpoch > g.WriterEpoch:
		if sequence != 1 {
			return werr.New(werr.KindConflict, "replication guard: writer %s advancing to epoch %d must restart at sequence 1, got %d", writerID, writerEpoch, sequence)
		}
	case g.WriterID == writerID:
		return werr.New(werr.KindConflict, "replication guard: writer %s epoch %d does not advance past current epoch %d", writerID, writerEpoch, g.WriterEpoch)
	default:
		if writerEpoch <= g.WriterEpoch || sequence != 1 {
			return werr.New(werr.KindConflict, "replication guard: writer takeover from %s to %s requires a strictly greater epoch and sequence 1, got epoch %d sequence %d (current epoch %d)", g.WriterID, writerID, writerEpoch, sequence, g.WriterEpoch)
		}
	}

	g.WorldID = worldID
	g.WriterID = writerID
	g.WriterEpoch = writerEpoch
	g.LastSequence = sequence
	return nil
}
