// Package gossip is a distnet.Network binding over libp2p-pubsub's
// gossipsub, carrying the action/block/head/membership broadcast
// topics wire/topics.go names. Only Publish/Subscribe are meaningful
// over pure gossip; Request/RequestWithProviders/RegisterHandler
// report NetworkProtocolUnavailable, the error reserved for
// capabilities a binding does not implement.
package gossip

import (
	"context"
	"sync"

	pubsub "github.com/libp2p/go-libp2p-pubsub"

	"github.com/eng-cc/agent-world-sub008/distnet"
	"github.com/eng-cc/agent-world-sub008/internal/werr"
)

// Network wraps an externally-constructed *pubsub.PubSub (built over a
// libp2p host the caller owns and dials/discovers peers for) and lazily
// joins one gossipsub topic per distnet topic name.
type Network struct {
	ps *pubsub.PubSub

	mu     sync.Mutex
	topics map[string]*pubsub.Topic
}

func NewNetwork(ps *pubsub.PubSub) *Network {
	return &Network{ps: ps, topics: make(map[string]*pubsub.Topic)}
}

func (n *Network) topicFor(name string) (*pubsub.Topic, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if t, ok := n.topics[name]; ok {
		return t, nil
	}
	t, err := n.ps.Join(name)
	if err != nil {
		return nil, werr.Wrap(werr.KindRetryable, err, "join gossipsub topic %s", name)
	}
	n.topics[name] = t
	return t, nil
}

func (n *Network) Publish(ctx context.Context, topic string, payload []byte) error {
	t, err := n.topicFor(topic)
	if err != nil {
		return err
	}
	if err := t.Publish(ctx, payload); err != nil {
		return werr.Wrap(werr.KindRetryable, err, "publish to %s", topic)
	}
	return nil
}

// Subscribe joins topic (if not already joined) and delivers every
// received message — including this node's own publishes, matching
// gossipsub's default self-notification behavior — to handler on a
// dedicated goroutine until the returned cancel func is called.
func (n *Network) Subscribe(ctx context.Context, topic string, handler distnet.SubscriptionHandler) (func() error, error) {
	t, err := n.topicFor(topic)
	if err != nil {
		return nil, err
	}
	sub, err := t.Subscribe()
	if err != nil {
		return nil, werr.Wrap(werr.KindRetryable, err, "subscribe to %s", topic)
	}

	subCtx, cancelCtx := context.WithCancel(ctx)
	go func() {
		for {
			msg, err := sub.Next(subCtx)
			if err != nil {
				return
			}
			handler(msg.Data)
		}
	}()

	cancel := func() error {
		cancelCtx()
		sub.Cancel()
		return nil
	}
	return cancel, nil
}

func (n *Network) Request(ctx context.Context, protocol string, payload []byte) ([]byte, error) {
	return nil, werr.New(werr.KindValidation, "NetworkProtocolUnavailable: gossip does not support request/response (protocol %s)", protocol)
}

func (n *Network) RequestWithProviders(ctx context.Context, protocol string, payload []byte, providers []string) ([]byte, error) {
	return n.Request(ctx, protocol, payload)
}

func (n *Network) RegisterHandler(protocol string, handler distnet.HandlerFunc) error {
	return werr.New(werr.KindValidation, "NetworkProtocolUnavailable: gossip does not support request handlers (protocol %s)", protocol)
}

var _ distnet.Network = (*Network)(nil)
