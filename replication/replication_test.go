package replication

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGuardAdmitsFirstWriter(t *testing.T) {
	g := NewGuard("w1")
	require.NoError(t, g.ValidateAndAdvance("w1", "writer-a", 1, 1))
	require.Equal(t, "writer-a", g.WriterID)
}

func TestGuardSameWriterMustAdvanceSequence(t *testing.T) {
	g := NewGuard("w1")
	require.NoError(t, g.ValidateAndAdvance("w1", "writer-a", 1, 1))
	require.NoError(t, g.ValidateAndAdvance("w1", "writer-a", 1, 2))
	require.Error(t, g.ValidateAndAdvance("w1", "writer-a", 1, 2))
	require.Error(t, g.ValidateAndAdvance("w1", "writer-a", 1, 1))
}

func TestGuardSameWriterAdvancingEpochMustRestartAtOne(t *testing.T) {
	g := NewGuard("w1")
	require.NoError(t, g.ValidateAndAdvance("w1", "writer-a", 1, 5))
	require.Error(t, g.ValidateAndAdvance("w1", "writer-a", 2, 2))
	require.NoError(t, g.ValidateAndAdvance("w1", "writer-a", 2, 1))
}

func TestGuardDifferentWriterRequiresEpochBumpAndSequenceOne(t *testing.T) {
	g := NewGuard("w1")
	require.NoError(t, g.ValidateAndAdvance("w1", "writer-a", 1, 3))

	require.Error(t, g.ValidateAndAdvance("w1", "writer-b", 1, 1)) // same epoch, no takeover
	require.Error(t, g.ValidateAndAdvance("w1", "writer-b", 2, 2)) // wrong sequence
	require.NoError(t, g.ValidateAndAdvance("w1", "writer-b", 2, 1))
	require.Equal(t, "writer-b", g.WriterID)
}

func TestGuardRejectsZeroSequenceOrEpoch(t *testing.T) {
	g := NewGuard("w1")
	require.Error(t, g.ValidateAndAdvance("w1", "writer-a", 1, 0))
	require.Error(t, g.ValidateAndAdvance("w1", "writer-a", 0, 1))
	require.Error(t, g.ValidateAndAdvance("", "writer-a", 1, 1))
	require.Error(t, g.ValidateAndAdvance("w1", "", 1, 1))
}

type fakeFileStore struct{ files map[string][]byte }

func (f *fakeFileStore) WriteFile(path string, data []byte) (string, uint64, error) {
	if f.files == nil {
		f.files = make(map[string][]byte)
	}
	f.files[path] = append([]byte(nil), data...)
	h := BuildRecord("w1", "writer-a", path, 1, data, 0).ContentHash
	return h, uint64(len(data)), nil
}

func TestApplyRecordVerifiesHashes(t *testing.T) {
	store := &fakeFileStore{}
	data := []byte("payload")
	rec := BuildRecord("w1", "writer-a", "/some/path", 1, data, 1000)
	require.NoError(t, ApplyRecord(store, rec, data))
	require.Equal(t, data, store.files["/some/path"])

	badRec := rec
	badRec.ContentHash = "deadbeef"
	require.Error(t, ApplyRecord(store, badRec, data))
}

func TestGuardStorePersistence(t *testing.T) {
	s, err := OpenGuardStore(filepath.Join(t.TempDir(), "guards.db"))
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.ValidateAndAdvance("w1", "writer-a", 1, 1))
	require.NoError(t, s.ValidateAndAdvance("w1", "writer-a", 1, 2))
	require.Error(t, s.ValidateAndAdvance("w1", "writer-a", 1, 1))

	g, err := s.Load("w1")
	require.NoError(t, err)
	require.Equal(t, uint64(2), g.LastSequence)
}
