package wire

// BlobRef addresses one content-addressed blob.
type BlobRef struct {
	ContentHash string `cbor:"content_hash"`
	SizeBytes   uint64 `cbor:"size_bytes"`
}

// StateChunkRef addresses one chunk of a segmented snapshot.
type StateChunkRef struct {
	Index   uint32  `cbor:"index"`
	Blob    BlobRef `cbor:"blob"`
}

// SnapshotManifest describes a segmented snapshot. StateRoot is the
// hash of the manifest itself with StateRoot held empty, so the root
// can be recomputed from the manifest alone.
type SnapshotManifest struct {
	WorldID    string          `cbor:"world_id"`
	Height     uint64          `cbor:"height"`
	Chunks     []StateChunkRef `cbor:"chunks"`
	StateRoot  string          `cbor:"state_root"`
}

// WorldBlock is the canonical per-height commit record: roots over the
// action/event/receipt sequences folded at that height, plus pointers
// to the segmented snapshot and journal.
type WorldBlock struct {
	WorldID         string  `cbor:"world_id"`
	Height          uint64  `cbor:"height"`
	PrevBlockHash   string  `cbor:"prev_block_hash"`
	ActionRoot      string  `cbor:"action_root"`
	EventRoot       string  `cbor:"event_root"`
	ReceiptsRoot    string  `cbor:"receipts_root"`
	SnapshotManifest BlobRef `cbor:"snapshot_manifest"`
	JournalSegments []BlobRef `cbor:"journal_segments"`
	TimeTick        int64   `cbor:"time_tick"`
	Signature       string  `cbor:"signature"` // empty: signing belongs to the consensus layer
}

// ActionEnvelope wraps one action for gossip, with the submitting
// agent's claimed identity (verified by the consensus/membership layer,
// not by the envelope itself).
type ActionEnvelope struct {
	WorldID  string `cbor:"world_id"`
	AgentID  string `cbor:"agent_id"`
	ActionID uint64 `cbor:"action_id"`
	Payload  []byte `cbor:"payload"` // canonical-CBOR-encoded worldtypes.ActionPayload
}

// ActionBatch groups envelopes admitted together, e.g. for a single
// gossip broadcast.
type ActionBatch struct {
	WorldID  string           `cbor:"world_id"`
	Envelopes []ActionEnvelope `cbor:"envelopes"`
}

// BlockAnnounce is gossiped whenever a node commits a new WorldBlock.
type BlockAnnounce struct {
	WorldID   string `cbor:"world_id"`
	Height    uint64 `cbor:"height"`
	BlockHash string `cbor:"block_hash"`
	Block     WorldBlock `cbor:"block"`
}

// WorldHeadAnnounce is gossiped whenever a node's committed head moves.
type WorldHeadAnnounce struct {
	WorldID   string `cbor:"world_id"`
	Height    uint64 `cbor:"height"`
	BlockHash string `cbor:"block_hash"`
}

// Request/response pairs for the RR_* protocols.

type GetWorldHeadRequest struct{ WorldID string `cbor:"world_id"` }
type GetWorldHeadResponse struct {
	Found bool              `cbor:"found"`
	Head  WorldHeadAnnounce `cbor:"head"`
}

type GetBlockRequest struct {
	WorldID string `cbor:"world_id"`
	Height  uint64 `cbor:"height"`
}
type GetBlockResponse struct {
	Found bool       `cbor:"found"`
	Block WorldBlock `cbor:"block"`
}

type GetSnapshotChunkRequest struct {
	WorldID     string `cbor:"world_id"`
	ContentHash string `cbor:"content_hash"`
}
type GetSnapshotChunkResponse struct {
	Found bool   `cbor:"found"`
	Bytes []byte `cbor:"bytes"`
}

type FetchBlobRequest struct{ ContentHash string `cbor:"content_hash"` }
type FetchBlobResponse struct {
	Found bool   `cbor:"found"`
	Bytes []byte `cbor:"bytes"`
}

type GetSnapshotManifestRequest struct {
	WorldID string `cbor:"world_id"`
	Epoch   uint64 `cbor:"epoch"`
}
type GetSnapshotManifestResponse struct {
	Found    bool             `cbor:"found"`
	Manifest SnapshotManifest `cbor:"manifest"`
}

type GetJournalSegmentRequest struct {
	WorldID     string `cbor:"world_id"`
	FromEventID uint64 `cbor:"from_event_id"`
}
type GetJournalSegmentResponse struct {
	Found   bool    `cbor:"found"`
	Segment BlobRef `cbor:"segment"`
}

type GetReceiptSegmentRequest struct {
	WorldID     string `cbor:"world_id"`
	FromEventID uint64 `cbor:"from_event_id"`
}
type GetReceiptSegmentResponse struct {
	Found   bool    `cbor:"found"`
	Segment BlobRef `cbor:"segment"`
}

type GetModuleManifestRequest struct {
	ModuleID     string `cbor:"module_id"`
	ManifestHash string `cbor:"manifest_hash"`
}
type GetModuleManifestResponse struct {
	Found       bool    `cbor:"found"`
	ManifestRef BlobRef `cbor:"manifest_ref"`
}

type GetModuleArtifactRequest struct{ WasmHash string `cbor:"wasm_hash"` }
type GetModuleArtifactResponse struct {
	Found      bool    `cbor:"found"`
	ArtifactRef BlobRef `cbor:"artifact_ref"`
}

// RawRPCEnvelope is the single message shape distnet/grpcnet's one
// generic gRPC method carries: Protocol selects which registered
// handler answers it, mirroring the RR_* protocol strings used by the
// in-memory and libp2p bindings.
type RawRPCEnvelope struct {
	Protocol  string   `cbor:"protocol"`
	Providers []string `cbor:"providers,omitempty"`
	Payload   []byte   `cbor:"payload"`
}

// DistributedErrorCode enumerates the RR protocol's error vocabulary.
type DistributedErrorCode string

const (
	ErrCodeNotFound     DistributedErrorCode = "not_found"
	ErrCodeBadRequest   DistributedErrorCode = "bad_request"
	ErrCodeInvalidHash  DistributedErrorCode = "invalid_hash"
	ErrCodeStateMismatch DistributedErrorCode = "state_mismatch"
	ErrCodeUnsupported  DistributedErrorCode = "unsupported"
	ErrCodeUnauthorized DistributedErrorCode = "unauthorized"
	ErrCodeBusy         DistributedErrorCode = "busy"
	ErrCodeRateLimited  DistributedErrorCode = "rate_limited"
	ErrCodeTimeout      DistributedErrorCode = "timeout"
	ErrCodeNotAvailable DistributedErrorCode = "not_available"
)

// Retryable reports whether a client should retry a request that
// failed with this code.
func (c DistributedErrorCode) Retryable() bool {
	switch c {
	case ErrCodeBusy, ErrCodeRateLimited, ErrCodeTimeout, ErrCodeNotAvailable:
		return true
	default:
		return false
	}
}

// ErrorResponse is the RR protocol's uniform error envelope.
type ErrorResponse struct {
	Code      DistributedErrorCode `cbor:"code"`
	Message   string               `cbor:"message"`
	Retryable bool                 `cbor:"retryable"`
}

// NewErrorResponse builds an ErrorResponse from a code, setting
// Retryable from the code's own classification.
func NewErrorResponse(code DistributedErrorCode, message string) ErrorResponse {
	return ErrorResponse{Code: code, Message: message, Retryable: code.Retryable()}
}

// StorageChallengeSampleSource names where a storage-proof challenge's
// sampled bytes were drawn from.
type StorageChallengeSampleSource string

const (
	SampleSourceSnapshotChunk StorageChallengeSampleSource = "snapshot_chunk"
	SampleSourceJournalSegment StorageChallengeSampleSource = "journal_segment"
)

// StorageChallengeFailureReason names why a provider failed a storage
// challenge, feeding ProviderRecord's failure accounting.
type StorageChallengeFailureReason string

const (
	FailureReasonTimeout        StorageChallengeFailureReason = "timeout"
	FailureReasonHashMismatch   StorageChallengeFailureReason = "hash_mismatch"
	FailureReasonNotFound       StorageChallengeFailureReason = "not_found"
)

// StorageChallengeProofSemantics is the claim a provider makes in
// response to a storage challenge: it holds the bytes at ContentHash
// and can produce SampledBytes drawn from SampleSource at Offset.
type StorageChallengeProofSemantics struct {
	ContentHash  string                       `cbor:"content_hash"`
	SampleSource StorageChallengeSampleSource `cbor:"sample_source"`
	Offset       uint64                       `cbor:"offset"`
	SampledBytes []byte                       `cbor:"sampled_bytes"`
}

// ProviderRecord is the DHT's bookkeeping for one content provider,
// feeding the provider-freshness sort in the distributed client.
type ProviderRecord struct {
	NodeID       string                        `cbor:"node_id"`
	ContentHash  string                        `cbor:"content_hash"`
	StorageRatio float64                       `cbor:"storage_ratio"`
	UptimeRatio  float64                       `cbor:"uptime_ratio"`
	LoadRatio    float64                       `cbor:"load_ratio"`
	LastSeenMs   int64                         `cbor:"last_seen_ms"`
	LastFailure  StorageChallengeFailureReason `cbor:"last_failure,omitempty"`
}
