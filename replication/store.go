package replication

import (
	"github.com/eng-cc/agent-world-sub008/internal/werr"
	"github.com/eng-cc/agent-world-sub008/wire"
	bolt "go.etcd.io/bbolt"
)

var bucketGuards = []byte("replication_guards")

// GuardStore persists one Guard per world in a dedicated bucket.
type GuardStore struct {
	db *bolt.DB
}

func OpenGuardStore(path string) (*GuardStore, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, err
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketGuards)
		return err
	}); err != nil {
		db.Close()
		return nil, err
	}
	return &GuardStore{db: db}, nil
}

func (s *GuardStore) Close() error { return s.db.Close() }

// Load returns the persisted guard for worldID, or a fresh one if none
// has been saved yet.
func (s *GuardStore) Load(worldID string) (*Guard, error) {
	g := NewGuard(worldID)
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketGuards).Get([]byte(worldID))
		if v == nil {
			return nil
		}
		return wire.Unmarshal(v, g)
	})
	if err != nil {
		return nil, werr.Wrap(werr.KindStateMismatch, err, "loading replication guard for %s", worldID)
	}
	return g, nil
}

// Save persists g.
func (s *GuardStore) Save(g *Guard) error {
	b, err := wire.Marshal(g)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketGuards).Put([]byte(g.WorldID), b)
	})
}

// ValidateAndAdvance loads the guard for worldID, validates the write,
// and persists the advanced guard on success.
func (s *GuardStore) ValidateAndAdvance(worldID, writerID string, writerEpoch, sequence uint64) error {
	g, err := s.Load(worldID)
	if err != nil {
		return err
	}
	if err := g.ValidateAndAdvance(worldID, writerID, writerEpoch, sequence); err != nil {
		return err
	}
	return s.Save(g)
}
