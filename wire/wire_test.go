package wire

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTopicNaming(t *testing.T) {
	require.Equal(t, "aw.w1.action", TopicAction("w1"))
	require.Equal(t, "aw.w1.block", TopicBlock("w1"))
	require.Equal(t, "aw.w1.head", TopicHead("w1"))
	require.Equal(t, "aw.w1.membership", TopicMembership("w1"))
	require.Equal(t, "aw.w1.membership_revocation", TopicMembershipRevocation("w1"))
}

func TestDHTKeyNaming(t *testing.T) {
	require.Equal(t, "/aw/world/w1/head", DHTWorldHeadKey("w1"))
	require.Equal(t, "/aw/world/w1/membership", DHTMembershipKey("w1"))
	require.Equal(t, "/aw/world/providers/abc123", DHTProviderKey("abc123"))
}

func TestCanonicalRoundTrip(t *testing.T) {
	block := WorldBlock{
		WorldID:       "w1",
		Height:        3,
		PrevBlockHash: "deadbeef",
		ActionRoot:    "a",
		EventRoot:     "b",
		ReceiptsRoot:  "c",
	}
	b, err := Marshal(block)
	require.NoError(t, err)

	var out WorldBlock
	require.NoError(t, Unmarshal(b, &out))
	require.Equal(t, block, out)

	b2, err := Marshal(block)
	require.NoError(t, err)
	require.Equal(t, b, b2, "canonical encoding must be deterministic across calls")
}

func TestContentHashIsStable(t *testing.T) {
	h1, err := HashCBOR(map[string]int{"b": 2, "a": 1})
	require.NoError(t, err)
	h2, err := HashCBOR(map[string]int{"a": 1, "b": 2})
	require.NoError(t, err)
	require.Equal(t, h1, h2, "canonical CBOR sorts map keys so key order shouldn't matter")
	require.Len(t, h1, 64, "blake3-256 hex digest is 64 chars")
}

func TestErrorResponseRetryable(t *testing.T) {
	require.True(t, NewErrorResponse(ErrCodeBusy, "busy").Retryable)
	require.False(t, NewErrorResponse(ErrCodeBadRequest, "bad").Retryable)
}
