package pb

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// Full method names of ConditionService.
const (
	ConditionService_Acknowledge_FullMethodName  = "/alarm.v1.ConditionService/Acknowledge"
	ConditionService_Confirm_FullMethodName      = "/alarm.v1.ConditionService/Confirm"
	ConditionService_Shelve_FullMethodName       = "/alarm.v1.ConditionService/Shelve"
	ConditionService_Unshelve_FullMethodName     = "/alarm.v1.ConditionService/Unshelve"
	ConditionService_Reset_FullMethodName        = "/alarm.v1.ConditionService/Reset"
	ConditionService_WriteTrigger_FullMethodName = "/alarm.v1.ConditionService/WriteTrigger"
	ConditionService_Refresh_FullMethodName      = "/alarm.v1.ConditionService/Refresh"
	ConditionService_Subscribe_FullMethodName    = "/alarm.v1.ConditionService/Subscribe"
)

// ConditionServiceClient is the client API for ConditionService.
type ConditionServiceClient interface {
	// Acknowledge acknowledges the occurrence that reported an event id.
	Acknowledge(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	// Confirm confirms the occurrence that reported an event id.
	Confirm(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	// Shelve shelves the alarm that reported an event id.
	Shelve(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	// Unshelve ends shelving of the alarm that reported an event id.
	Unshelve(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	// Reset releases a latched alarm.
	Reset(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	// WriteTrigger writes a trigger value by alarm identity.
	WriteTrigger(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	// Refresh returns every retained record.
	Refresh(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	// Subscribe streams a refresh followed by every published record.
	Subscribe(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (grpc.ServerStreamingClient[structpb.Struct], error)
}

type conditionServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewConditionServiceClient creates a client bound to cc.
//
//nolint:ireturn // Mirrors generated gRPC constructors.
func NewConditionServiceClient(cc grpc.ClientConnInterface) ConditionServiceClient {
	return &conditionServiceClient{cc}
}

func (c *conditionServiceClient) invoke(
	ctx context.Context,
	method string,
	in *structpb.Struct,
	opts []grpc.CallOption,
) (*structpb.Struct, error) {
	cOpts := append([]grpc.CallOption{grpc.StaticMethod()}, opts...)
	out := new(structpb.Struct)

	if err := c.cc.Invoke(ctx, method, in, out, cOpts...); err != nil {
		return nil, err
	}

	return out, nil
}

func (c *conditionServiceClient) Acknowledge(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, ConditionService_Acknowledge_FullMethodName, in, opts)
}

func (c *conditionServiceClient) Confirm(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, ConditionService_Confirm_FullMethodName, in, opts)
}

func (c *conditionServiceClient) Shelve(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, ConditionService_Shelve_FullMethodName, in, opts)
}

func (c *conditionServiceClient) Unshelve(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, ConditionService_Unshelve_FullMethodName, in, opts)
}

func (c *conditionServiceClient) Reset(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, ConditionService_Reset_FullMethodName, in, opts)
}

func (c *conditionServiceClient) WriteTrigger(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, ConditionService_WriteTrigger_FullMethodName, in, opts)
}

func (c *conditionServiceClient) Refresh(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, ConditionService_Refresh_FullMethodName, in, opts)
}

//nolint:ireturn // Stream interfaces come from grpc.
func (c *conditionServiceClient) Subscribe(
	ctx context.Context,
	in *structpb.Struct,
	opts ...grpc.CallOption,
) (grpc.ServerStreamingClient[structpb.Struct], error) {
	cOpts := append([]grpc.CallOption{grpc.StaticMethod()}, opts...)

	stream, err := c.cc.NewStream(ctx, &ConditionService_ServiceDesc.Streams[0], ConditionService_Subscribe_FullMethodName, cOpts...)
	if err != nil {
		return nil, err
	}

	x := &grpc.GenericClientStream[structpb.Struct, structpb.Struct]{ClientStream: stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}

	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}

	return x, nil
}

// ConditionServiceServer is the server API for ConditionService.
// Implementations must embed UnimplementedConditionServiceServer.
type ConditionServiceServer interface {
	Acknowledge(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	Confirm(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	Shelve(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	Unshelve(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	Reset(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	WriteTrigger(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	Refresh(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	Subscribe(in *structpb.Struct, stream grpc.ServerStreamingServer[structpb.Struct]) error
	mustEmbedUnimplementedConditionServiceServer()
}

// UnimplementedConditionServiceServer answers every method with codes.Unimplemented.
// It must be embedded by value.
type UnimplementedConditionServiceServer struct{}

func (UnimplementedConditionServiceServer) Acknowledge(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method Acknowledge not implemented")
}

func (UnimplementedConditionServiceServer) Confirm(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method Confirm not implemented")
}

func (UnimplementedConditionServiceServer) Shelve(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method Shelve not implemented")
}

func (UnimplementedConditionServiceServer) Unshelve(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method Unshelve not implemented")
}

func (UnimplementedConditionServiceServer) Reset(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method Reset not implemented")
}

func (UnimplementedConditionServiceServer) WriteTrigger(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method WriteTrigger not implemented")
}

func (UnimplementedConditionServiceServer) Refresh(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method Refresh not implemented")
}

func (UnimplementedConditionServiceServer) Subscribe(*structpb.Struct, grpc.ServerStreamingServer[structpb.Struct]) error {
	return status.Error(codes.Unimplemented, "method Subscribe not implemented")
}

func (UnimplementedConditionServiceServer) mustEmbedUnimplementedConditionServiceServer() {}

// RegisterConditionServiceServer registers srv on s.
func RegisterConditionServiceServer(s grpc.ServiceRegistrar, srv ConditionServiceServer) {
	s.RegisterService(&ConditionService_ServiceDesc, srv)
}

// unaryHandler adapts one unary method of ConditionServiceServer to grpc.MethodHandler.
func unaryHandler(
	fullMethod string,
	call func(srv ConditionServiceServer, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error),
) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}

		if interceptor == nil {
			return call(srv.(ConditionServiceServer), ctx, in) //nolint:forcetypeassert // Guaranteed by HandlerType.
		}

		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod,
		}

		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(ConditionServiceServer), ctx, req.(*structpb.Struct)) //nolint:forcetypeassert // Guaranteed by HandlerType.
		}

		return interceptor(ctx, in, info, handler)
	}
}

func subscribeHandler(srv any, stream grpc.ServerStream) error {
	in := new(structpb.Struct)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}

	//nolint:forcetypeassert // Guaranteed by HandlerType.
	return srv.(ConditionServiceServer).Subscribe(in, &grpc.GenericServerStream[structpb.Struct, structpb.Struct]{ServerStream: stream})
}

// ConditionService_ServiceDesc is the grpc.ServiceDesc for ConditionService.
//
//nolint:gochecknoglobals // Service descriptors are package-level by convention.
var ConditionService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "alarm.v1.ConditionService",
	HandlerType: (*ConditionServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Acknowledge",
			Handler:    unaryHandler(ConditionService_Acknowledge_FullMethodName, ConditionServiceServer.Acknowledge),
		},
		{
			MethodName: "Confirm",
			Handler:    unaryHandler(ConditionService_Confirm_FullMethodName, ConditionServiceServer.Confirm),
		},
		{
			MethodName: "Shelve",
			Handler:    unaryHandler(ConditionService_Shelve_FullMethodName, ConditionServiceServer.Shelve),
		},
		{
			MethodName: "Unshelve",
			Handler:    unaryHandler(ConditionService_Unshelve_FullMethodName, ConditionServiceServer.Unshelve),
		},
		{
			MethodName: "Reset",
			Handler:    unaryHandler(ConditionService_Reset_FullMethodName, ConditionServiceServer.Reset),
		},
		{
			MethodName: "WriteTrigger",
			Handler:    unaryHandler(ConditionService_WriteTrigger_FullMethodName, ConditionServiceServer.WriteTrigger),
		},
		{
			MethodName: "Refresh",
			Handler:    unaryHandler(ConditionService_Refresh_FullMethodName, ConditionServiceServer.Refresh),
		},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Subscribe",
			Handler:       subscribeHandler,
			ServerStreams: true,
		},
	},
	Metadata: "alarm/v1/condition.proto",
}
