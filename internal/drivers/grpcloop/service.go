// Package grpcloop is an example driver built entirely on protobuf
// well-known types (structpb, wrapperspb, emptypb) and a hand-assembled
// grpc.ServiceDesc — no .proto compilation step is involved. It runs a
// tiny in-process broker: producers call a unary Send RPC carrying a
// structpb.Struct envelope, and the broker fans each message out to every
// consumer's open server-streaming Subscribe call for that topic.
package grpcloop

import (
	"context"

	"google.golang.org/grpc"
	emptypb "google.golang.org/protobuf/types/known/emptypb"
	structpb "google.golang.org/protobuf/types/known/structpb"
	wrapperspb "google.golang.org/protobuf/types/known/wrapperspb"
)

const serviceName = "benchworker.grpcloop.Broker"

// brokerServer is the server-side contract the hand-rolled ServiceDesc
// dispatches into.
type brokerServer interface {
	Send(context.Context, *structpb.Struct) (*emptypb.Empty, error)
	Subscribe(*wrapperspb.StringValue, brokerSubscribeServer) error
}

// brokerSubscribeServer is the server-streaming handle Subscribe pushes
// messages through.
type brokerSubscribeServer interface {
	Send(*structpb.Struct) error
	grpc.ServerStream
}

type subscribeServerStream struct {
	grpc.ServerStream
}

func (s *subscribeServerStream) Send(msg *structpb.Struct) error {
	return s.ServerStream.SendMsg(msg)
}

func sendHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(brokerServer).Send(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/Send"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(brokerServer).Send(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func subscribeHandler(srv interface{}, stream grpc.ServerStream) error {
	req := new(wrapperspb.StringValue)
	if err := stream.RecvMsg(req); err != nil {
		return err
	}
	return srv.(brokerServer).Subscribe(req, &subscribeServerStream{stream})
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*brokerServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Send", Handler: sendHandler},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "Subscribe", Handler: subscribeHandler, ServerStreams: true},
	},
	Metadata: "benchworker/grpcloop/broker",
}

// brokerClient is the hand-written client stub for serviceDesc.
type brokerClient struct {
	cc *grpc.ClientConn
}

func (c *brokerClient) Send(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	out := new(emptypb.Empty)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/Send", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// brokerSubscribeClient is the client-side handle returned by Subscribe.
type brokerSubscribeClient interface {
	Recv() (*structpb.Struct, error)
	grpc.ClientStream
}

type subscribeClientStream struct {
	grpc.ClientStream
}

func (s *subscribeClientStream) Recv() (*structpb.Struct, error) {
	m := new(structpb.Struct)
	if err := s.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (c *brokerClient) Subscribe(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (brokerSubscribeClient, error) {
	stream, err := c.cc.NewStream(ctx, &serviceDesc.Streams[0], "/"+serviceName+"/Subscribe", opts...)
	if err != nil {
		return nil, err
	}
	cs := &subscribeClientStream{stream}
	if err := cs.SendMsg(in); err != nil {
		return nil, err
	}
	if err := cs.CloseSend(); err != nil {
		return nil, err
	}
	return cs, nil
}
