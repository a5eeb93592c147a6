package membership

import (
	"sort"
)

// Checkpoint is the revocation view a peer exports for reconciliation:
// the key ids it knows and the subset it has revoked.
type Checkpoint struct {
	WorldID       string   `cbor:"world_id" json:"world_id"`
	KnownKeyIDs   []string `cbor:"known_key_ids" json:"known_key_ids"`
	RevokedKeyIDs []string `cbor:"revoked_key_ids" json:"revoked_key_ids"`
}

// ExportCheckpoint captures the keyring's current revocation view.
func ExportCheckpoint(worldID string, keyring *Keyring) Checkpoint {
	return Checkpoint{
		WorldID:       worldID,
		KnownKeyIDs:   keyring.KeyIDs(),
		RevokedKeyIDs: keyring.RevokedKeyIDs(),
	}
}

// ReconcileResult reports what a reconciliation pass changed.
type ReconcileResult struct {
	MergedRevocations []string // remote revocations applied locally
	AutoRevoked       []string // local keys revoked because the remote checkpoint lacks them
	Diverged          bool     // any difference was found at all
}

// ReconcileOptions tunes Reconcile.
type ReconcileOptions struct {
	// AutoRevokeMissingKeys revokes local keys the remote checkpoint
	// does not know at all, treating absence as an implicit
	// revocation by the rest of the fleet.
	AutoRevokeMissingKeys bool
}

// Reconcile merges a remote peer's revocation checkpoint into the
// local keyring. Revocations only ever spread, never retract.
func Reconcile(keyring *Keyring, remote Checkpoint, opts ReconcileOptions) ReconcileResult {
	var res ReconcileResult

	localRevoked := make(map[string]bool)
	for _, id := range keyring.RevokedKeyIDs() {
		localRevoked[id] = true
	}
	for _, id := range remote.RevokedKeyIDs {
		if !localRevoked[id] {
			keyring.Revoke(id)
			res.MergedRevocations = append(res.MergedRevocations, id)
		}
	}

	if opts.AutoRevokeMissingKeys {
		remoteKnown := make(map[string]bool, len(remote.KnownKeyIDs))
		for _, id := range remote.KnownKeyIDs {
			remoteKnown[id] = true
		}
		for _, id := range keyring.KeyIDs() {
			if !remoteKnown[id] && !keyring.IsRevoked(id) {
				keyring.Revoke(id)
				res.AutoRevoked = append(res.AutoRevoked, id)
			}
		}
	}

	sort.Strings(res.MergedRevocations)
	sort.Strings(res.AutoRevoked)
	res.Diverged = len(res.MergedRevocations) > 0 || len(res.AutoRevoked) > 0
	return res
}
