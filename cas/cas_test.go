package cas

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "cas.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPutGetRoundTrip(t *testing.T) {
	s := openTestStore(t)
	hash, err := s.Put([]byte("hello world"))
	require.NoError(t, err)
	require.True(t, s.Has(hash))

	got, err := s.Get(hash)
	require.NoError(t, err)
	require.Equal(t, "hello world", string(got))
}

func TestGetMissingReturnsNotFound(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Get("0000")
	require.Error(t, err)
}

func TestPutVerifiedRejectsMismatch(t *testing.T) {
	s := openTestStore(t)
	err := s.PutVerified("not-the-real-hash", []byte("payload"))
	require.Error(t, err)
}

func TestExecutionPathIndex(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.WriteExecutionPathIndex("w1", 5, []byte("block"), []byte("manifest"), []byte("segments")))

	block, err := s.LoadBlockByHeight("w1", 5)
	require.NoError(t, err)
	require.Equal(t, "block", string(block))

	head, err := s.LoadLatestHead("w1")
	require.NoError(t, err)
	require.Equal(t, "block", string(head))

	_, err = normalizeWorldSegment("bad/segment")
	require.Error(t, err)
}
