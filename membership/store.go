package membership

import (
	"github.com/eng-cc/agent-world-sub008/wire"
	bolt "go.etcd.io/bbolt"
)

var (
	bucketDirectory  = []byte("membership_directory")
	bucketRevocation = []byte("membership_revocation")
)

// Store persists the latest accepted DirectorySnapshot and the set of
// revoked key ids per world, one bucket each.
type Store struct {
	db *bolt.DB
}

func OpenStore(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, err
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketDirectory); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(bucketRevocation)
		return err
	}); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) SaveSnapshot(snap DirectorySnapshot) error {
	b, err := wire.Marshal(snap)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketDirectory).Put([]byte(snap.WorldID), b)
	})
}

func (s *Store) LoadSnapshot(worldID string) (DirectorySnapshot, bool, error) {
	var snap DirectorySnapshot
	found := false
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketDirectory).Get([]byte(worldID))
		if v == nil {
			return nil
		}
		found = true
		return wire.Unmarshal(v, &snap)
	})
	return snap, found, err
}

func revokedKey(worldID, keyID string) []byte { return []byte(worldID + ":" + keyID) }

func (s *Store) MarkRevoked(worldID, keyID string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketRevocation).Put(revokedKey(worldID, keyID), []byte{1})
	})
}

func (s *Store) IsRevoked(worldID, keyID string) bool {
	revoked := false
	_ = s.db.View(func(tx *bolt.Tx) error {
		revoked = tx.Bucket(bucketRevocation).Get(revokedKey(worldID, keyID)) != nil
		return nil
	})
	return revoked
}
