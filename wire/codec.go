// Package wire holds the canonical, cross-node wire format: CBOR
// encoding rules, the gossip/DHT naming scheme, and the distributed
// envelope types.
package wire

import (
	"encoding/hex"
	"sync"

	"github.com/fxamacker/cbor/v2"
	"github.com/zeebo/blake3"
)

var (
	encMode  cbor.EncMode
	decMode  cbor.DecMode
	initOnce sync.Once
)

func ensureInit() {
	initOnce.Do(func() {
		opts := cbor.CanonicalEncOptions()
		m, err := opts.EncMode()
		if err != nil {
			panic(err)
		}
		encMode = m

		dopts := cbor.DecOptions{}
		dm, err := dopts.DecMode()
		if err != nil {
			panic(err)
		}
		decMode = dm
	})
}

// Marshal encodes v using canonical CBOR (sorted map keys, shortest-form
// integers) so that identical logical values always produce identical
// bytes across nodes.
func Marshal(v any) ([]byte, error) {
	ensureInit()
	return encMode.Marshal(v)
}

// Unmarshal decodes CBOR bytes produced by Marshal.
func Unmarshal(data []byte, v any) error {
	ensureInit()
	return decMode.Unmarshal(data, v)
}

// ContentHash returns the lowercase hex blake3 digest of b, the content
// address used throughout cas, segment, and the block header hashes.
func ContentHash(b []byte) string {
	sum := blake3.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// HashCBOR canonically encodes v and returns its ContentHash.
func HashCBOR(v any) (string, error) {
	b, err := Marshal(v)
	if err != nil {
		return "", err
	}
	return ContentHash(b), nil
}
