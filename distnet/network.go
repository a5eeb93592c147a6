// Package distnet is the distributed network client and DHT
// abstraction: typed CBOR request/response over an abstract Network
// capability, plus provider-aware blob/module fetches backed by a DHT.
package distnet

import "context"

// SubscriptionHandler receives one gossiped payload on a topic.
type SubscriptionHandler func(payload []byte)

// HandlerFunc answers one request/response protocol call.
type HandlerFunc func(ctx context.Context, payload []byte) ([]byte, error)

// Network is the abstract distributed-network capability the Client
// is built on: gossip publish/subscribe plus provider-aware
// request/response RPC. Bindings: distnet/memnet (in-memory, tests),
// distnet/grpcnet (grpc raw-bytes RPC), distnet/gossip (libp2p-pubsub
// broadcast only — Request/RequestWithProviders are not meaningful
// over pure gossip and gossip.Network returns a NetworkProtocolUnavailable
// validation error for them).
type Network interface {
	Publish(ctx context.Context, topic string, payload []byte) error
	// Subscribe registers handler for topic, returning a cancel func
	// that stops delivery. handler is invoked once per received
	// payload, including payloads this node itself published.
	Subscribe(ctx context.Context, topic string, handler SubscriptionHandler) (cancel func() error, err error)
	Request(ctx context.Context, protocol string, payload []byte) ([]byte, error)
	RequestWithProviders(ctx context.Context, protocol string, payload []byte, providers []string) ([]byte, error)
	RegisterHandler(protocol string, handler HandlerFunc) error
}
