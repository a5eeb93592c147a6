package segment

import (
	"path/filepath"
	"testing"

	"github.com/eng-cc/agent-world-sub008/cas"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) *cas.Store {
	t.Helper()
	s, err := cas.Open(filepath.Join(t.TempDir(), "cas.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSegmentAndReassemble(t *testing.T) {
	store := openStore(t)
	data := make([]byte, 10)
	for i := range data {
		data[i] = byte(i)
	}

	m, err := Segment(store, "w1", 1, data, 3)
	require.NoError(t, err)
	require.Len(t, m.Chunks, 4)
	require.NotEmpty(t, m.StateRoot)

	back, err := Reassemble(store, m)
	require.NoError(t, err)
	require.Equal(t, data, back)
}

func TestStoreExecutionResult(t *testing.T) {
	store := openStore(t)
	block, announce, head, err := StoreExecutionResultWithPathIndex(store, ExecutionResult{
		WorldID:       "w1",
		Height:        1,
		PrevBlockHash: "",
		TimeTick:      42,
		Actions:       []string{"a1"},
		Events:        []string{"e1"},
		Receipts:      []string{"r1"},
		SnapshotBytes: []byte("snapshot-bytes"),
		JournalBytes:  []byte("journal-bytes"),
	})
	require.NoError(t, err)
	require.Equal(t, uint64(1), block.Height)
	require.Empty(t, block.Signature)
	require.Equal(t, announce.BlockHash, head.BlockHash)

	loaded, err := store.LoadLatestHead("w1")
	require.NoError(t, err)
	require.NotEmpty(t, loaded)
}

func TestStoreExecutionResultRejectsTimeOverflow(t *testing.T) {
	store := openStore(t)
	_, _, _, err := StoreExecutionResult(store, ExecutionResult{
		WorldID:  "w1",
		Height:   1,
		TimeTick: 1 << 63,
	})
	require.Error(t, err)
}
