package gameserver

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "skirmish.v1.EncounterService"

const (
	methodBootstrap = "/" + ServiceName + "/Bootstrap"
	methodSubmit    = "/" + ServiceName + "/Submit"
	methodSnapshot  = "/" + ServiceName + "/Snapshot"
	methodWatch     = "/" + ServiceName + "/Watch"
)

// EncounterServiceServer is the server API. Requests and unary responses are
// JSON objects carried as google.protobuf.Struct; Watch frames are the exact
// JSON bytes of each update so log hashes can be verified client-side.
type EncounterServiceServer interface {
	Bootstrap(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Submit(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Snapshot(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Watch(*structpb.Struct, EncounterService_WatchServer) error
}

// EncounterService_WatchServer is the server side of a Watch stream.
type EncounterService_WatchServer interface {
	Send(*wrapperspb.BytesValue) error
	grpc.ServerStream
}

type watchServer struct{ grpc.ServerStream }

func (w *watchServer) Send(m *wrapperspb.BytesValue) error { return w.ServerStream.SendMsg(m) }

func unaryHandler(method string, call func(EncounterServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(EncounterServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(EncounterServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

func watchHandler(srv any, stream grpc.ServerStream) error {
	in := new(structpb.Struct)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(EncounterServiceServer).Watch(in, &watchServer{stream})
}

// EncounterService_ServiceDesc describes the service for grpc.Server.RegisterService.
var EncounterService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*EncounterServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Bootstrap", Handler: unaryHandler(methodBootstrap, EncounterServiceServer.Bootstrap)},
		{MethodName: "Submit", Handler: unaryHandler(methodSubmit, EncounterServiceServer.Submit)},
		{MethodName: "Snapshot", Handler: unaryHandler(methodSnapshot, EncounterServiceServer.Snapshot)},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "Watch", Handler: watchHandler, ServerStreams: true},
	},
	Metadata: "skirmish/v1/encounter.proto",
}

// RegisterEncounterServiceServer registers srv with s.
func RegisterEncounterServiceServer(s grpc.ServiceRegistrar, srv EncounterServiceServer) {
	s.RegisterService(&EncounterService_ServiceDesc, srv)
}

// EncounterServiceClient is the client API for EncounterService.
type EncounterServiceClient interface {
	Bootstrap(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	Submit(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	Snapshot(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	Watch(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (EncounterService_WatchClient, error)
}

// EncounterService_WatchClient is the client side of a Watch stream.
type EncounterService_WatchClient interface {
	Recv() (*wrapperspb.BytesValue, error)
	grpc.ClientStream
}

type encounterServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewEncounterServiceClient returns a client using cc.
func NewEncounterServiceClient(cc grpc.ClientConnInterface) EncounterServiceClient {
	return &encounterServiceClient{cc: cc}
}

func (c *encounterServiceClient) unary(ctx context.Context, method string, in *structpb.Struct, opts []grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *encounterServiceClient) Bootstrap(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.unary(ctx, methodBootstrap, in, opts)
}

func (c *encounterServiceClient) Submit(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.unary(ctx, methodSubmit, in, opts)
}

func (c *encounterServiceClient) Snapshot(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.unary(ctx, methodSnapshot, in, opts)
}

func (c *encounterServiceClient) Watch(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (EncounterService_WatchClient, error) {
	stream, err := c.cc.NewStream(ctx, &EncounterService_ServiceDesc.Streams[0], methodWatch, opts...)
	if err != nil {
		return nil, err
	}
	x := &watchClient{stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}

type watchClient struct{ grpc.ClientStream }

func (x *watchClient) Recv() (*wrapperspb.BytesValue, error) {
	m := new(wrapperspb.BytesValue)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}
