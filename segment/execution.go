package segment

import (
	"math"

	"github.com/eng-cc/agent-world-sub008/cas"
	"github.com/eng-cc/agent-world-sub008/internal/werr"
	"github.com/eng-cc/agent-world-sub008/wire"
)

// ExecutionResult is the input to StoreExecutionResult: everything
// folded at one height, still in memory.
type ExecutionResult struct {
	WorldID       string
	Height        uint64
	PrevBlockHash string
	TimeTick      uint64 // must fit int64, validated below
	Actions       any
	Events        any
	Receipts      any
	SnapshotBytes []byte
	JournalBytes  []byte
}

// StoreExecutionResult segments the snapshot and journal, computes the
// action/event/receipts roots, and builds the WorldBlock/BlockAnnounce/
// WorldHeadAnnounce triple for one committed height. Signature is left
// empty: signing is the consensus layer's responsibility, not this
// package's.
func StoreExecutionResult(store *cas.Store, r ExecutionResult) (wire.WorldBlock, wire.BlockAnnounce, wire.WorldHeadAnnounce, error) {
	if r.TimeTick > uint64(math.MaxInt64) {
		return wire.WorldBlock{}, wire.BlockAnnounce{}, wire.WorldHeadAnnounce{}, werr.New(werr.KindValidation, "DistributedValidationFailed: time tick %d overflows int64", r.TimeTick)
	}

	snapManifest, err := Segment(store, r.WorldID, r.Height, r.SnapshotBytes, DefaultChunkSize)
	if err != nil {
		return wire.WorldBlock{}, wire.BlockAnnounce{}, wire.WorldHeadAnnounce{}, err
	}
	snapManifestBytes, err := wire.Marshal(snapManifest)
	if err != nil {
		return wire.WorldBlock{}, wire.BlockAnnounce{}, wire.WorldHeadAnnounce{}, err
	}
	snapManifestHash, err := store.Put(snapManifestBytes)
	if err != nil {
		return wire.WorldBlock{}, wire.BlockAnnounce{}, wire.WorldHeadAnnounce{}, err
	}

	journalManifest, err := SegmentJournal(store, r.WorldID, r.Height, r.JournalBytes, DefaultChunkSize)
	if err != nil {
		return wire.WorldBlock{}, wire.BlockAnnounce{}, wire.WorldHeadAnnounce{}, err
	}

	actionRoot, err := cas.HashActions(r.Actions)
	if err != nil {
		return wire.WorldBlock{}, wire.BlockAnnounce{}, wire.WorldHeadAnnounce{}, err
	}
	eventRoot, err := cas.HashEvents(r.Events)
	if err != nil {
		return wire.WorldBlock{}, wire.BlockAnnounce{}, wire.WorldHeadAnnounce{}, err
	}
	receiptsRoot, err := cas.HashReceipts(r.Receipts)
	if err != nil {
		return wire.WorldBlock{}, wire.BlockAnnounce{}, wire.WorldHeadAnnounce{}, err
	}

	var journalBlobs []wire.BlobRef
	for _, c := range journalManifest.Chunks {
		journalBlobs = append(journalBlobs, c.Blob)
	}

	block := wire.WorldBlock{
		WorldID:         r.WorldID,
		Height:          r.Height,
		PrevBlockHash:   r.PrevBlockHash,
		ActionRoot:      actionRoot,
		EventRoot:       eventRoot,
		ReceiptsRoot:    receiptsRoot,
		SnapshotManifest: wire.BlobRef{ContentHash: snapManifestHash, SizeBytes: uint64(len(snapManifestBytes))},
		JournalSegments: journalBlobs,
		TimeTick:        int64(r.TimeTick),
	}

	blockHash, err := wire.HashCBOR(block)
	if err != nil {
		return wire.WorldBlock{}, wire.BlockAnnounce{}, wire.WorldHeadAnnounce{}, err
	}

	announce := wire.BlockAnnounce{WorldID: r.WorldID, Height: r.Height, BlockHash: blockHash, Block: block}
	head := wire.WorldHeadAnnounce{WorldID: r.WorldID, Height: r.Height, BlockHash: blockHash}
	return block, announce, head, nil
}

// StoreExecutionResultWithPathIndex is StoreExecutionResult plus a
// write of the per-height path index.
func StoreExecutionResultWithPathIndex(store *cas.Store, r ExecutionResult) (wire.WorldBlock, wire.BlockAnnounce, wire.WorldHeadAnnounce, error) {
	block, announce, head, err := StoreExecutionResult(store, r)
	if err != nil {
		return block, announce, head, err
	}
	blockBytes, err := wire.Marshal(block)
	if err != nil {
		return block, announce, head, err
	}
	snapManifestBytes, err := wire.Marshal(wire.SnapshotManifest{WorldID: r.WorldID, Height: r.Height})
	if err != nil {
		return block, announce, head, err
	}
	journalBytes, err := wire.Marshal(block.JournalSegments)
	if err != nil {
		return block, announce, head, err
	}
	if err := store.WriteExecutionPathIndex(r.WorldID, r.Height, blockBytes, snapManifestBytes, journalBytes); err != nil {
		return block, announce, head, err
	}
	return block, announce, head, nil
}
