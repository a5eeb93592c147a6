package membership

import (
	"crypto/ed25519"
	"encoding/hex"

	"github.com/eng-cc/agent-world-sub008/internal/werr"
)

// Policy controls the optional stages of the validation pipeline.
type Policy struct {
	RequireSignature   bool
	AcceptedKeyIDs     map[string]bool // empty: no allowlist restriction
	DeniedKeyIDs       map[string]bool
	AcceptedSignerKeys map[string]bool // hex-encoded Ed25519 public keys
}

// validatorSet is the set of node ids allowed to propose membership
// changes for a world.
type validatorSet map[string]bool

// ValidateMembershipSnapshot runs the ordered validation pipeline:
// world-id validation, requester authorization, signature presence/policy,
// accept/deny key-id lists, signer-public-key allowlist, then
// keyring-or-raw-signer verification. The first failing stage wins.
func ValidateMembershipSnapshot(policy Policy, keyring *Keyring, validators map[string]bool, snap DirectorySnapshot) error {
	worldID, err := normalizedWorldID(snap.WorldID)
	if err != nil {
		return err
	}
	if !validators[snap.RequesterID] {
		return werr.New(werr.KindUnauthorized, "membership: requester %s is not a validator for world %s", snap.RequesterID, worldID)
	}

	if policy.RequireSignature && snap.Signature == "" {
		return werr.New(werr.KindValidation, "membership: signature required but absent")
	}

	for _, e := range snap.Entries {
		keyID, err := normalizedKeyID(e.KeyID)
		if err != nil {
			return err
		}
		if policy.DeniedKeyIDs[keyID] {
			return werr.New(werr.KindUnauthorized, "membership: key id %s is denied", keyID)
		}
		if len(policy.AcceptedKeyIDs) > 0 && !policy.AcceptedKeyIDs[keyID] {
			return werr.New(werr.KindUnauthorized, "membership: key id %s is not in the accepted list", keyID)
		}
	}

	if len(policy.AcceptedSignerKeys) > 0 && !policy.AcceptedSignerKeys[snap.SignerPublicKeyHex] {
		return werr.New(werr.KindUnauthorized, "membership: signer public key is not in the accepted list")
	}

	if snap.Signature == "" {
		return nil
	}

	return verifySnapshotSignature(keyring, policy, snap)
}

func verifySnapshotSignature(keyring *Keyring, policy Policy, snap DirectorySnapshot) error {
	pub, sig, err := ExtractEd25519SignerPublicKey(snap.Signature)
	if err != nil {
		return err
	}
	if keyring != nil && keyring.IsRevoked(hex.EncodeToString(pub)) {
		return werr.New(werr.KindUnauthorized, "membership: signer key is revoked")
	}

	resolved, ok := resolveSignerKey(keyring, snap.SignerPublicKeyHex, pub, policy.RequireSignature)
	if !ok {
		return werr.New(werr.KindValidation, "membership: no keyring entry or raw signer key available to verify signature")
	}

	payload, err := SnapshotSigningBytes(snap.WorldID, snap.Entries)
	if err != nil {
		return err
	}
	if !ed25519.Verify(resolved, payload, sig) {
		return werr.New(werr.KindValidation, "membership: signature verification failed")
	}
	return nil
}

// resolveSignerKey prefers a keyring-trusted key (looked up by the hex
// key embedded in the signature) over the raw signer key embedded in
// the snapshot itself, falling back to the raw key only when the
// keyring has no entry and the policy does not otherwise require one.
func resolveSignerKey(keyring *Keyring, signerHex string, sigPub ed25519.PublicKey, requireTrusted bool) (ed25519.PublicKey, bool) {
	if keyring != nil {
		if pub, ok := keyring.Lookup(hex.EncodeToString(sigPub)); ok {
			return pub, true
		}
	}
	if requireTrusted {
		return nil, false
	}
	if signerHex != "" {
		if raw, err := hex.DecodeString(signerHex); err == nil && len(raw) == ed25519.PublicKeySize {
			return ed25519.PublicKey(raw), true
		}
	}
	return sigPub, true
}

// ValidateKeyRevocation runs the same ordered pipeline as
// ValidateMembershipSnapshot, specialized for a single key-id
// revocation request.
func ValidateKeyRevocation(policy Policy, keyring *Keyring, validators map[string]bool, req RevocationRequest) error {
	worldID, err := normalizedWorldID(req.WorldID)
	if err != nil {
		return err
	}
	if !validators[req.RequesterID] {
		return werr.New(werr.KindUnauthorized, "membership: requester %s is not a validator for world %s", req.RequesterID, worldID)
	}
	keyID, err := normalizedKeyID(req.KeyID)
	if err != nil {
		return err
	}
	if policy.RequireSignature && req.Signature == "" {
		return werr.New(werr.KindValidation, "membership: signature required but absent")
	}
	if policy.DeniedKeyIDs[keyID] {
		return werr.New(werr.KindUnauthorized, "membership: key id %s is already denied", keyID)
	}
	if len(policy.AcceptedKeyIDs) > 0 && !policy.AcceptedKeyIDs[keyID] {
		return werr.New(werr.KindUnauthorized, "membership: key id %s is not in the accepted list", keyID)
	}
	if len(policy.AcceptedSignerKeys) > 0 && !policy.AcceptedSignerKeys[req.SignerPublicKeyHex] {
		return werr.New(werr.KindUnauthorized, "membership: signer public key is not in the accepted list")
	}
	if req.Signature == "" {
		return nil
	}

	pub, sig, err := ExtractEd25519SignerPublicKey(req.Signature)
	if err != nil {
		return err
	}
	if keyring != nil && keyring.IsRevoked(hex.EncodeToString(pub)) {
		return werr.New(werr.KindUnauthorized, "membership: signer key is revoked")
	}
	resolved, ok := resolveSignerKey(keyring, req.SignerPublicKeyHex, pub, policy.RequireSignature)
	if !ok {
		return werr.New(werr.KindValidation, "membership: no keyring entry or raw signer key available to verify signature")
	}
	payload, err := RevocationSigningBytes(req.WorldID, req.KeyID)
	if err != nil {
		return err
	}
	if !ed25519.Verify(resolved, payload, sig) {
		return werr.New(werr.KindValidation, "membership: signature verification failed")
	}
	return nil
}
