package grpcnet

import (
	"context"

	"google.golang.org/grpc"
)

const (
	rawServiceName = "aw.distnet.RawRPC"
	rawMethodName  = "Call"
	rawFullMethod  = "/" + rawServiceName + "/" + rawMethodName
)

// rawRPCServer is implemented by the type registered to answer the
// single generic RPC method every distnet protocol multiplexes
// through, keyed by the RawRPCEnvelope's Protocol field rather than
// by distinct grpc methods.
type rawRPCServer interface {
	call(ctx context.Context, req *rawMessage) (*rawMessage, error)
}

func callHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(rawMessage)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(rawRPCServer).call(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: rawFullMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(rawRPCServer).call(ctx, req.(*rawMessage))
	}
	return interceptor(ctx, in, info, handler)
}

var rawServiceDesc = grpc.ServiceDesc{
	ServiceName: rawServiceName,
	HandlerType: (*rawRPCServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: rawMethodName, Handler: callHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "distnet/grpcnet/service.go",
}
