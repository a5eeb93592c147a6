package membership

import "github.com/eng-cc/agent-world-sub008/wire"

// DirectoryEntry is one member node's identity within a world's
// membership directory.
type DirectoryEntry struct {
	NodeID       string `cbor:"node_id"`
	KeyID        string `cbor:"key_id"`
	PublicKeyHex string `cbor:"public_key_hex"`
}

// DirectorySnapshot is a proposed membership directory state, signed by
// its proposer.
type DirectorySnapshot struct {
	WorldID            string           `cbor:"world_id"`
	RequesterID        string           `cbor:"requester_id"`
	Entries            []DirectoryEntry `cbor:"entries"`
	SignerPublicKeyHex string           `cbor:"signer_public_key_hex"`
	Signature          string           `cbor:"signature"`
}

// RevocationRequest proposes revoking one key id from a world's
// membership directory.
type RevocationRequest struct {
	WorldID            string `cbor:"world_id"`
	RequesterID        string `cbor:"requester_id"`
	KeyID              string `cbor:"key_id"`
	SignerPublicKeyHex string `cbor:"signer_public_key_hex"`
	Signature          string `cbor:"signature"`
}

// directorySigningPayload is the exact field order signed over a
// DirectorySnapshot.
type directorySigningPayload struct {
	WorldID string           `cbor:"world_id"`
	Entries []DirectoryEntry `cbor:"entries"`
}

// revocationSigningPayload is the exact field order signed over a
// RevocationRequest.
type revocationSigningPayload struct {
	WorldID string `cbor:"world_id"`
	KeyID   string `cbor:"key_id"`
}

// SnapshotSigningBytes returns the canonical-CBOR bytes a proposer must
// sign to produce DirectorySnapshot.Signature.
func SnapshotSigningBytes(worldID string, entries []DirectoryEntry) ([]byte, error) {
	return wire.Marshal(directorySigningPayload{WorldID: worldID, Entries: entries})
}

// RevocationSigningBytes returns the canonical-CBOR bytes a proposer
// must sign to produce RevocationRequest.Signature.
func RevocationSigningBytes(worldID, keyID string) ([]byte, error) {
	return wire.Marshal(revocationSigningPayload{WorldID: worldID, KeyID: keyID})
}
