package gossip

import (
	"context"
	"testing"
	"time"

	"github.com/libp2p/go-libp2p"
	pubsub "github.com/libp2p/go-libp2p-pubsub"
	"github.com/libp2p/go-libp2p/core/peer"
)

// newLoopbackPair builds two libp2p hosts on localhost, connects them,
// and wraps a gossipsub instance per host in a gossip.Network.
func newLoopbackPair(t *testing.T) (ctx context.Context, a, b *Network, closeFn func()) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())

	h1, err := libp2p.New(libp2p.ListenAddrStrings("/ip4/127.0.0.1/tcp/0"))
	if err != nil {
		t.Fatalf("new host 1: %v", err)
	}
	h2, err := libp2p.New(libp2p.ListenAddrStrings("/ip4/127.0.0.1/tcp/0"))
	if err != nil {
		t.Fatalf("new host 2: %v", err)
	}

	if err := h2.Connect(ctx, peer.AddrInfo{ID: h1.ID(), Addrs: h1.Addrs()}); err != nil {
		t.Fatalf("connect hosts: %v", err)
	}

	ps1, err := pubsub.NewGossipSub(ctx, h1)
	if err != nil {
		t.Fatalf("new gossipsub 1: %v", err)
	}
	ps2, err := pubsub.NewGossipSub(ctx, h2)
	if err != nil {
		t.Fatalf("new gossipsub 2: %v", err)
	}

	return ctx, NewNetwork(ps1), NewNetwork(ps2), func() {
		cancel()
		_ = h1.Close()
		_ = h2.Close()
	}
}

func TestPublishDeliversAcrossLoopbackHosts(t *testing.T) {
	ctx, a, b, closeFn := newLoopbackPair(t)
	defer closeFn()

	received := make(chan []byte, 1)
	cancel, err := b.Subscribe(ctx, "aw.w1.action", func(payload []byte) {
		select {
		case received <- payload:
		default:
		}
	})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()

	if _, err := a.topicFor("aw.w1.action"); err != nil {
		t.Fatalf("join topic on publisher: %v", err)
	}
	time.Sleep(300 * time.Millisecond) // let the gossipsub mesh form

	deadline := time.After(5 * time.Second)
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	for {
		if err := a.Publish(ctx, "aw.w1.action", []byte("hello")); err != nil {
			t.Fatalf("publish: %v", err)
		}
		select {
		case payload := <-received:
			if string(payload) != "hello" {
				t.Fatalf("want payload hello, got %q", payload)
			}
			return
		case <-ticker.C:
			continue
		case <-deadline:
			t.Fatalf("timed out waiting for gossiped message")
		}
	}
}

func TestRequestIsUnsupportedOverGossip(t *testing.T) {
	ctx, a, _, closeFn := newLoopbackPair(t)
	defer closeFn()

	if _, err := a.Request(ctx, "some.protocol", nil); err == nil {
		t.Fatalf("want gossip.Network.Request to report unsupported")
	}
}
