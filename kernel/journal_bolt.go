package kernel

import (
	raftboltdb "github.com/hashicorp/raft-boltdb"
)

// OpenBoltJournal opens (or creates) a bbolt-backed journal at path.
// The returned close function must be called once the journal is no
// longer in use.
func OpenBoltJournal(path string) (*Journal, func() error, error) {
	store, err := raftboltdb.NewBoltStore(path)
	if err != nil {
		return nil, nil, err
	}
	j, err := NewJournal(store)
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	return j, store.Close, nil
}
