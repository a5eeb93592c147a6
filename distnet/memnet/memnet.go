// Package memnet is an in-process distnet.Network + distnet.DHT
// binding used for tests and single-process deployments.
package memnet

import (
	"context"
	"sync"

	"github.com/eng-cc/agent-world-sub008/distnet"
	"github.com/eng-cc/agent-world-sub008/internal/werr"
	"github.com/eng-cc/agent-world-sub008/wire"
)

// Network is a goroutine-safe, single-process distnet.Network: topic
// subscriptions and protocol handlers are plain in-memory maps.
type Network struct {
	mu          sync.Mutex
	handlers    map[string]distnet.HandlerFunc
	subscribers map[string]map[int]distnet.SubscriptionHandler
	nextSubID   int
}

func NewNetwork() *Network {
	return &Network{
		handlers:    make(map[string]distnet.HandlerFunc),
		subscribers: make(map[string]map[int]distnet.SubscriptionHandler),
	}
}

func (n *Network) Publish(ctx context.Context, topic string, payload []byte) error {
	n.mu.Lock()
	subs := make([]distnet.SubscriptionHandler, 0, len(n.subscribers[topic]))
	for _, h := range n.subscribers[topic] {
		subs = append(subs, h)
	}
	n.mu.Unlock()
	for _, h := range subs {
		h(payload)
	}
	return nil
}

func (n *Network) Subscribe(ctx context.Context, topic string, handler distnet.SubscriptionHandler) (func() error, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.subscribers[topic] == nil {
		n.subscribers[topic] = make(map[int]distnet.SubscriptionHandler)
	}
	id := n.nextSubID
	n.nextSubID++
	n.subscribers[topic][id] = handler
	return func() error {
		n.mu.Lock()
		defer n.mu.Unlock()
		delete(n.subscribers[topic], id)
		return nil
	}, nil
}

func (n *Network) Request(ctx context.Context, protocol string, payload []byte) ([]byte, error) {
	return n.RequestWithProviders(ctx, protocol, payload, nil)
}

// RequestWithProviders ignores providers: a single-process network has
// no concept of distinct peers, so every request is answered by the
// one registered handler, matching the in-memory reference's
// behavior of routing by protocol alone.
func (n *Network) RequestWithProviders(ctx context.Context, protocol string, payload []byte, providers []string) ([]byte, error) {
	n.mu.Lock()
	handler, ok := n.handlers[protocol]
	n.mu.Unlock()
	if !ok {
		return nil, werr.New(werr.KindNotFound, "NetworkProtocolUnavailable: %s", protocol)
	}
	return handler(ctx, payload)
}

func (n *Network) RegisterHandler(protocol string, handler distnet.HandlerFunc) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.handlers[protocol] = handler
	return nil
}

// DHT is an in-memory distnet.DHT keyed by world id.
type DHT struct {
	mu          sync.Mutex
	providers   map[string][]wire.ProviderRecord // "<world>/<hash>" -> records
	heads       map[string]wire.WorldHeadAnnounce
	memberships map[string][]byte
}

func NewDHT() *DHT {
	return &DHT{
		providers:   make(map[string][]wire.ProviderRecord),
		heads:       make(map[string]wire.WorldHeadAnnounce),
		memberships: make(map[string][]byte),
	}
}

func providerKey(worldID, contentHash string) string { return worldID + "/" + contentHash }

func (d *DHT) PublishProvider(ctx context.Context, worldID, contentHash string, record wire.ProviderRecord) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	key := providerKey(worldID, contentHash)
	d.providers[key] = append(d.providers[key], record)
	return nil
}

func (d *DHT) GetProviders(ctx context.Context, worldID, contentHash string) ([]wire.ProviderRecord, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return distnet.DedupByFreshness(d.providers[providerKey(worldID, contentHash)]), nil
}

func (d *DHT) PutWorldHead(ctx context.Context, worldID string, head wire.WorldHeadAnnounce) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.heads[worldID] = head
	return nil
}

func (d *DHT) GetWorldHead(ctx context.Context, worldID string) (wire.WorldHeadAnnounce, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	h, ok := d.heads[worldID]
	return h, ok, nil
}

func (d *DHT) PutMembershipDirectory(ctx context.Context, worldID string, directory []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.memberships[worldID] = directory
	return nil
}

func (d *DHT) GetMembershipDirectory(ctx context.Context, worldID string) ([]byte, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	b, ok := d.memberships[worldID]
	return b, ok, nil
}
