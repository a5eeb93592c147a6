// Package membership implements the Ed25519-signed membership directory
// and key-revocation validation pipeline, alert dedup, and the
// checkpoint/dead-letter-replay schedules.
package membership

import (
	"crypto/ed25519"
	"encoding/hex"
	"sort"
	"strings"
	"sync"

	"github.com/eng-cc/agent-world-sub008/internal/werr"
)

// Ed25519SignatureV1Prefix prefixes every signature string this package
// accepts, versioning the encoding so a future scheme can coexist.
const Ed25519SignatureV1Prefix = "ed25519v1:"

// ExtractEd25519SignerPublicKey parses "ed25519v1:<hex pubkey>:<hex sig>"
// into its public key and raw signature bytes.
func ExtractEd25519SignerPublicKey(signature string) (ed25519.PublicKey, []byte, error) {
	if !strings.HasPrefix(signature, Ed25519SignatureV1Prefix) {
		return nil, nil, werr.New(werr.KindValidation, "membership: signature missing %s prefix", Ed25519SignatureV1Prefix)
	}
	rest := strings.TrimPrefix(signature, Ed25519SignatureV1Prefix)
	parts := strings.SplitN(rest, ":", 2)
	if len(parts) != 2 {
		return nil, nil, werr.New(werr.KindValidation, "membership: signature must be <pubkey-hex>:<sig-hex>")
	}
	pub, err := hex.DecodeString(parts[0])
	if err != nil {
		return nil, nil, werr.Wrap(werr.KindValidation, err, "membership: invalid public key hex")
	}
	if len(pub) != ed25519.PublicKeySize {
		return nil, nil, werr.New(werr.KindValidation, "membership: public key must be %d bytes, got %d", ed25519.PublicKeySize, len(pub))
	}
	sig, err := hex.DecodeString(parts[1])
	if err != nil {
		return nil, nil, werr.Wrap(werr.KindValidation, err, "membership: invalid signature hex")
	}
	return ed25519.PublicKey(pub), sig, nil
}

// FormatSignature assembles a signature string from a signing key and
// the bytes it signs.
func FormatSignature(priv ed25519.PrivateKey, message []byte) string {
	sig := ed25519.Sign(priv, message)
	pub := priv.Public().(ed25519.PublicKey)
	return Ed25519SignatureV1Prefix + hex.EncodeToString(pub) + ":" + hex.EncodeToString(sig)
}

// normalizedWorldID rejects empty ids and path-traversal-shaped ids.
func normalizedWorldID(id string) (string, error) {
	return normalizedSegment("world_id", id)
}

// normalizedKeyID rejects empty ids and path-traversal-shaped ids.
func normalizedKeyID(id string) (string, error) {
	return normalizedSegment("key_id", id)
}

func normalizedSegment(field, id string) (string, error) {
	if id == "" {
		return "", werr.New(werr.KindValidation, "membership: %s must not be empty", field)
	}
	if strings.Contains(id, "/") || strings.Contains(id, "\\") || strings.Contains(id, "..") {
		return "", werr.New(werr.KindValidation, "membership: %s %q contains path-traversal characters", field, id)
	}
	return id, nil
}

// keyEntry is one keyring slot. The revoked flag is monotone: once a
// key is revoked it never becomes trusted again.
type keyEntry struct {
	pub     ed25519.PublicKey
	revoked bool
}

// Keyring holds Ed25519 public keys this node trusts, keyed by key id,
// with a monotone per-key revoked flag.
type Keyring struct {
	mu   sync.Mutex
	keys map[string]*keyEntry
}

func NewKeyring() *Keyring {
	return &Keyring{keys: make(map[string]*keyEntry)}
}

// Trust registers pub under keyID. Trusting an already-revoked key id
// keeps it revoked.
func (k *Keyring) Trust(keyID string, pub ed25519.PublicKey) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if e, ok := k.keys[keyID]; ok {
		e.pub = pub
		return
	}
	k.keys[keyID] = &keyEntry{pub: pub}
}

// Revoke marks keyID revoked. Unknown ids are recorded so a later
// Trust of the same id stays revoked.
func (k *Keyring) Revoke(keyID string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if e, ok := k.keys[keyID]; ok {
		e.revoked = true
		return
	}
	k.keys[keyID] = &keyEntry{revoked: true}
}

// IsRevoked reports whether keyID has been revoked.
func (k *Keyring) IsRevoked(keyID string) bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	e, ok := k.keys[keyID]
	return ok && e.revoked
}

// Lookup returns the trusted, unrevoked key for keyID.
func (k *Keyring) Lookup(keyID string) (ed25519.PublicKey, bool) {
	k.mu.Lock()
	defer k.mu.Unlock()
	e, ok := k.keys[keyID]
	if !ok || e.revoked || e.pub == nil {
		return nil, false
	}
	return e.pub, true
}

// KeyIDs returns every known (trusted or revoked) key id, sorted.
func (k *Keyring) KeyIDs() []string {
	k.mu.Lock()
	defer k.mu.Unlock()
	out := make([]string, 0, len(k.keys))
	for id := range k.keys {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// RevokedKeyIDs returns every revoked key id, sorted.
func (k *Keyring) RevokedKeyIDs() []string {
	k.mu.Lock()
	defer k.mu.Unlock()
	var out []string
	for id, e := range k.keys {
		if e.revoked {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}
