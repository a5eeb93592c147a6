// Package grpcnet is a distnet.Network binding over grpc, carrying
// CBOR-encoded request/response envelopes as opaque bytes through a
// single generic method rather than generated protobuf stubs.
package grpcnet

import (
	"context"
	"sync"

	"google.golang.org/grpc"

	"github.com/eng-cc/agent-world-sub008/distnet"
	"github.com/eng-cc/agent-world-sub008/internal/werr"
	"github.com/eng-cc/agent-world-sub008/wire"
)

// Network is both the client side (issuing Request/RequestWithProviders
// over conn) and, once registered via RegisterService, the server side
// (answering them) of the generic RawRPC method. Publish/Subscribe are
// not meaningful over a point-to-point grpc channel; pair this binding
// with distnet/gossip for broadcast topics.
type Network struct {
	conn *grpc.ClientConn

	mu       sync.Mutex
	handlers map[string]distnet.HandlerFunc
}

// NewNetwork wraps an already-dialed *grpc.ClientConn for the client
// side of this binding.
func NewNetwork(conn *grpc.ClientConn) *Network {
	return &Network{conn: conn, handlers: make(map[string]distnet.HandlerFunc)}
}

func (n *Network) Publish(ctx context.Context, topic string, payload []byte) error {
	return werr.New(werr.KindValidation, "NetworkProtocolUnavailable: grpcnet does not support gossip publish (topic %s)", topic)
}

func (n *Network) Subscribe(ctx context.Context, topic string, handler distnet.SubscriptionHandler) (func() error, error) {
	return nil, werr.New(werr.KindValidation, "NetworkProtocolUnavailable: grpcnet does not support gossip subscribe (topic %s)", topic)
}

func (n *Network) Request(ctx context.Context, protocol string, payload []byte) ([]byte, error) {
	return n.RequestWithProviders(ctx, protocol, payload, nil)
}

func (n *Network) RequestWithProviders(ctx context.Context, protocol string, payload []byte, providers []string) ([]byte, error) {
	if n.conn == nil {
		return nil, werr.New(werr.KindValidation, "grpcnet: no client connection configured")
	}
	envBytes, err := wire.Marshal(wire.RawRPCEnvelope{Protocol: protocol, Providers: providers, Payload: payload})
	if err != nil {
		return nil, werr.Wrap(werr.KindValidation, err, "encode rpc envelope")
	}
	req := &rawMessage{data: envBytes}
	reply := new(rawMessage)
	if err := n.conn.Invoke(ctx, rawFullMethod, req, reply, grpc.ForceCodec(rawCodec{})); err != nil {
		return nil, werr.Wrap(werr.KindRetryable, err, "grpc invoke %s", protocol)
	}
	var respEnv wire.RawRPCEnvelope
	if err := wire.Unmarshal(reply.data, &respEnv); err != nil {
		return nil, werr.Wrap(werr.KindValidation, err, "decode rpc envelope")
	}
	return respEnv.Payload, nil
}

func (n *Network) RegisterHandler(protocol string, handler distnet.HandlerFunc) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.handlers[protocol] = handler
	return nil
}

// call implements rawRPCServer: it decodes the envelope, dispatches by
// Protocol to the matching registered handler, and re-wraps the
// handler's response bytes in a reply envelope.
func (n *Network) call(ctx context.Context, req *rawMessage) (*rawMessage, error) {
	var env wire.RawRPCEnvelope
	if err := wire.Unmarshal(req.data, &env); err != nil {
		return nil, werr.Wrap(werr.KindValidation, err, "decode rpc envelope")
	}
	n.mu.Lock()
	handler, ok := n.handlers[env.Protocol]
	n.mu.Unlock()
	if !ok {
		return nil, werr.New(werr.KindNotFound, "NetworkProtocolUnavailable: %s", env.Protocol)
	}
	respPayload, err := handler(ctx, env.Payload)
	if err != nil {
		return nil, err
	}
	respBytes, err := wire.Marshal(wire.RawRPCEnvelope{Protocol: env.Protocol, Payload: respPayload})
	if err != nil {
		return nil, werr.Wrap(werr.KindValidation, err, "encode rpc envelope")
	}
	return &rawMessage{data: respBytes}, nil
}

// RegisterService registers n as the server side of the generic RPC
// method on srv.
func RegisterService(srv *grpc.Server, n *Network) {
	srv.RegisterService(&rawServiceDesc, n)
}

// NewServer returns a *grpc.Server configured with the aw-raw codec
// as its server codec, ready for RegisterService.
func NewServer(opts ...grpc.ServerOption) *grpc.Server {
	opts = append(opts, grpc.ForceServerCodec(rawCodec{}))
	return grpc.NewServer(opts...)
}
