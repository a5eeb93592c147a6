package distnet_test

import (
	"context"
	"testing"

	"github.com/eng-cc/agent-world-sub008/distnet"
	"github.com/eng-cc/agent-world-sub008/distnet/memnet"
	"github.com/eng-cc/agent-world-sub008/wire"
)

func registerHandler(t *testing.T, net *memnet.Network, protocol string, req, resp any) {
	t.Helper()
	if err := net.RegisterHandler(protocol, func(ctx context.Context, payload []byte) ([]byte, error) {
		return wire.Marshal(resp)
	}); err != nil {
		t.Fatalf("register handler %s: %v", protocol, err)
	}
}

func TestClientGetWorldHeadRoundTrips(t *testing.T) {
	net := memnet.NewNetwork()
	registerHandler(t, net, wire.RRGetWorldHead, wire.GetWorldHeadRequest{}, wire.GetWorldHeadResponse{
		Found: true,
		Head:  wire.WorldHeadAnnounce{WorldID: "w1", Height: 42, BlockHash: "abc"},
	})
	client := distnet.NewClient(net)

	head, err := client.GetWorldHead(context.Background(), "w1")
	if err != nil {
		t.Fatalf("get world head: %v", err)
	}
	if head.Height != 42 || head.BlockHash != "abc" {
		t.Fatalf("unexpected head: %+v", head)
	}
}

func TestClientFetchBlobFromDHTPrefersProvidersThenFallsBack(t *testing.T) {
	net := memnet.NewNetwork()
	dht := memnet.NewDHT()

	if err := dht.PublishProvider(context.Background(), "w1", "hash1", wire.ProviderRecord{
		NodeID: "node-a", ContentHash: "hash1", LastSeenMs: 100,
	}); err != nil {
		t.Fatalf("publish provider: %v", err)
	}

	if err := net.RegisterHandler(wire.RRFetchBlob, func(ctx context.Context, payload []byte) ([]byte, error) {
		return wire.Marshal(wire.FetchBlobResponse{Found: true, Bytes: []byte("payload")})
	}); err != nil {
		t.Fatalf("register handler: %v", err)
	}

	client := distnet.NewClient(net)
	data, err := client.FetchBlobFromDHT(context.Background(), "w1", "hash1", dht)
	if err != nil {
		t.Fatalf("fetch blob from dht: %v", err)
	}
	if string(data) != "payload" {
		t.Fatalf("want payload, got %q", data)
	}
}

func TestClientFetchBlobFromDHTWithNoProvidersFallsBackDirectly(t *testing.T) {
	net := memnet.NewNetwork()
	dht := memnet.NewDHT()

	if err := net.RegisterHandler(wire.RRFetchBlob, func(ctx context.Context, payload []byte) ([]byte, error) {
		return wire.Marshal(wire.FetchBlobResponse{Found: true, Bytes: []byte("direct")})
	}); err != nil {
		t.Fatalf("register handler: %v", err)
	}

	client := distnet.NewClient(net)
	data, err := client.FetchBlobFromDHT(context.Background(), "w1", "unknown-hash", dht)
	if err != nil {
		t.Fatalf("fetch blob from dht: %v", err)
	}
	if string(data) != "direct" {
		t.Fatalf("want direct, got %q", data)
	}
}

func TestClientRequestMapsErrorResponseToWorldError(t *testing.T) {
	net := memnet.NewNetwork()
	if err := net.RegisterHandler(wire.RRGetBlock, func(ctx context.Context, payload []byte) ([]byte, error) {
		return wire.Marshal(wire.NewErrorResponse(wire.ErrCodeNotFound, "no such block"))
	}); err != nil {
		t.Fatalf("register handler: %v", err)
	}

	client := distnet.NewClient(net)
	if _, err := client.GetBlock(context.Background(), "w1", 7); err == nil {
		t.Fatalf("want error for not-found block response")
	}
}

func TestClientGetModuleManifestAndArtifactFromDHTChainLookups(t *testing.T) {
	net := memnet.NewNetwork()
	dht := memnet.NewDHT()

	registerHandler(t, net, wire.RRGetModuleManifest, wire.GetModuleManifestRequest{}, wire.GetModuleManifestResponse{
		Found:       true,
		ManifestRef: wire.BlobRef{ContentHash: "manifest-hash", SizeBytes: 10},
	})
	if err := net.RegisterHandler(wire.RRFetchBlob, func(ctx context.Context, payload []byte) ([]byte, error) {
		return wire.Marshal(wire.FetchBlobResponse{Found: true, Bytes: []byte("manifest-bytes")})
	}); err != nil {
		t.Fatalf("register fetch handler: %v", err)
	}

	client := distnet.NewClient(net)
	data, err := client.FetchModuleManifestFromDHT(context.Background(), "w1", "mod-1", "hash-abc", dht)
	if err != nil {
		t.Fatalf("fetch module manifest from dht: %v", err)
	}
	if string(data) != "manifest-bytes" {
		t.Fatalf("want manifest-bytes, got %q", data)
	}
}
