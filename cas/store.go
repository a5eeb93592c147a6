// Package cas is the content-addressed blob store: blake3-hex of
// canonical CBOR bytes as key, backed by bbolt with one bucket per
// record kind.
package cas

import (
	"github.com/eng-cc/agent-world-sub008/internal/obsmetrics"
	"github.com/eng-cc/agent-world-sub008/internal/werr"
	"github.com/eng-cc/agent-world-sub008/wire"
	bolt "go.etcd.io/bbolt"
)

var (
	bucketBlobs     = []byte("blobs")
	bucketPathIndex = []byte("path_index")
)

// Store is a content-addressed blob store with an auxiliary path index
// for block/head lookups by logical path rather than content hash.
type Store struct {
	db *bolt.DB
}

// Open opens (creating if absent) a bbolt-backed CAS at dataPath.
func Open(dataPath string) (*Store, error) {
	db, err := bolt.Open(dataPath, 0600, nil)
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketBlobs); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(bucketPathIndex)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Put stores b under its content hash, overwriting is a no-op since the
// key is derived from the content itself; returns the hash.
func (s *Store) Put(b []byte) (string, error) {
	hash := wire.ContentHash(b)
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketBlobs).Put([]byte(hash), b)
	})
	if err != nil {
		obsmetrics.CASOperationsTotal.WithLabelValues("put", "error").Inc()
		return "", err
	}
	obsmetrics.CASOperationsTotal.WithLabelValues("put", "ok").Inc()
	return hash, nil
}

// Get returns the blob stored at hash, or a NotFound WorldError.
func (s *Store) Get(hash string) ([]byte, error) {
	var out []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketBlobs).Get([]byte(hash))
		if v == nil {
			return werr.New(werr.KindNotFound, "blob %s not found", hash)
		}
		out = make([]byte, len(v))
		copy(out, v)
		return nil
	})
	if err != nil {
		obsmetrics.CASOperationsTotal.WithLabelValues("get", "not_found").Inc()
		return nil, err
	}
	obsmetrics.CASOperationsTotal.WithLabelValues("get", "ok").Inc()
	return out, nil
}

// PutVerified stores b only if its content hash equals expectedHash,
// otherwise returns a BlobHashMismatch error. Used when ingesting a
// blob fetched from a remote peer.
func (s *Store) PutVerified(expectedHash string, b []byte) error {
	actual := wire.ContentHash(b)
	if actual != expectedHash {
		obsmetrics.CASOperationsTotal.WithLabelValues("put_verified", "hash_mismatch").Inc()
		return werr.New(werr.KindValidation, "BlobHashMismatch: expected %s, computed %s", expectedHash, actual)
	}
	_, err := s.Put(b)
	return err
}

// ListBlobHashes returns every stored content hash in ascending
// order (bbolt keys iterate sorted, so the order is stable across
// nodes holding the same blob set).
func (s *Store) ListBlobHashes() ([]string, error) {
	var out []string
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketBlobs).ForEach(func(k, _ []byte) error {
			out = append(out, string(k))
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Has reports whether hash is present without copying the blob out.
func (s *Store) Has(hash string) bool {
	found := false
	_ = s.db.View(func(tx *bolt.Tx) error {
		found = tx.Bucket(bucketBlobs).Get([]byte(hash)) != nil
		return nil
	})
	return found
}
