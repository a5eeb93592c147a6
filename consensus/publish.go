package consensus

import (
	"context"

	"github.com/eng-cc/agent-world-sub008/wire"
)

// HeadPublisher is the slice of the DHT the engine publishes committed
// heads through; distnet.DHT satisfies it.
type HeadPublisher interface {
	PutWorldHead(ctx context.Context, worldID string, head wire.WorldHeadAnnounce) error
}

// ProposeWorldHeadWithQuorum runs ProposeHead and, if the proposal
// commits immediately (single-validator quorum), publishes the head.
func (e *Engine) ProposeWorldHeadWithQuorum(ctx context.Context, pub HeadPublisher, head wire.WorldHeadAnnounce, proposerID string, nowMs int64) (*Record, error) {
	r, err := e.ProposeHead(head.WorldID, head.Height, head.BlockHash, proposerID, nowMs)
	if err != nil {
		return nil, err
	}
	if r.Status == StatusCommitted {
		if err := pub.PutWorldHead(ctx, head.WorldID, head); err != nil {
			return r, err
		}
	}
	return r, nil
}

// VoteWorldHeadWithQuorum runs VoteHead and publishes the head to the
// DHT only on the transition into Committed, so the DHT sees exactly
// one put per commit.
func (e *Engine) VoteWorldHeadWithQuorum(ctx context.Context, pub HeadPublisher, worldID string, height uint64, blockHash, validatorID string, approve bool, nowMs int64, reason string) (*Record, error) {
	r, err := e.VoteHead(worldID, height, blockHash, validatorID, approve, nowMs, reason)
	if err != nil {
		return nil, err
	}
	if r.Status == StatusCommitted {
		head := wire.WorldHeadAnnounce{WorldID: worldID, Height: height, BlockHash: blockHash}
		if err := pub.PutWorldHead(ctx, worldID, head); err != nil {
			return r, err
		}
	}
	return r, nil
}
