package kernel

import (
	"bytes"
	"io"
	"testing"

	"github.com/eng-cc/agent-world-sub008/manifest"
	"github.com/eng-cc/agent-world-sub008/wire"
)

func marshalOpsForTest(t *testing.T, ops []manifest.PatchOp) []byte {
	t.Helper()
	data, err := wire.Marshal(ops)
	if err != nil {
		t.Fatalf("marshal ops: %v", err)
	}
	return data
}

// testSnapshotSink is a raft.SnapshotSink backed by an in-memory
// buffer, enough to exercise World.Snapshot/Restore without a real
// raft.SnapshotStore.
type testSnapshotSink struct {
	buf bytes.Buffer
}

func newTestSnapshotSink() *testSnapshotSink { return &testSnapshotSink{} }

func (s *testSnapshotSink) Write(p []byte) (int, error) { return s.buf.Write(p) }
func (s *testSnapshotSink) Close() error                { return nil }
func (s *testSnapshotSink) ID() string                   { return "test-snapshot" }
func (s *testSnapshotSink) Cancel() error                { return nil }

func (s *testSnapshotSink) reader() io.ReadCloser {
	return io.NopCloser(bytes.NewReader(s.buf.Bytes()))
}
