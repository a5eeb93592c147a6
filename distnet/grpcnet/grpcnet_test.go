package grpcnet

import (
	"context"
	"net"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"

	"github.com/eng-cc/agent-world-sub008/distnet"
)

func newLoopback(t *testing.T) (client *Network, stop func()) {
	t.Helper()
	lis := bufconn.Listen(1024 * 1024)

	serverSideNetwork := NewNetwork(nil)
	server := NewServer()
	RegisterService(server, serverSideNetwork)
	go func() {
		_ = server.Serve(lis)
	}()

	dialer := func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }
	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(dialer),
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	if err := serverSideNetwork.RegisterHandler("echo", func(ctx context.Context, payload []byte) ([]byte, error) {
		out := append([]byte("echo:"), payload...)
		return out, nil
	}); err != nil {
		t.Fatalf("register handler: %v", err)
	}

	return NewNetwork(conn), func() {
		_ = conn.Close()
		server.Stop()
		_ = lis.Close()
	}
}

func TestRequestRoundTripsOverBufconn(t *testing.T) {
	client, stop := newLoopback(t)
	defer stop()

	resp, err := client.Request(context.Background(), "echo", []byte("hello"))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if string(resp) != "echo:hello" {
		t.Fatalf("want echo:hello, got %q", resp)
	}
}

func TestRequestUnknownProtocolReturnsError(t *testing.T) {
	client, stop := newLoopback(t)
	defer stop()

	if _, err := client.Request(context.Background(), "nope", nil); err == nil {
		t.Fatalf("want error for unregistered protocol")
	}
}

func TestPublishIsUnsupported(t *testing.T) {
	client, stop := newLoopback(t)
	defer stop()

	if err := client.Publish(context.Background(), "topic", []byte("x")); err == nil {
		t.Fatalf("want grpcnet.Publish to report unsupported")
	}
}

var _ distnet.Network = (*Network)(nil)
