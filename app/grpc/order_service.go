package grpc

import (
	"context"

	"github.com/vibast-solutions/ms-go-shop/app/types"

	gogrpc "google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const (
	OrderServiceName            = "shop.internal.v1.OrderService"
	getOrderFullMethod          = "/" + OrderServiceName + "/GetOrder"
	updateOrderStatusFullMethod = "/" + OrderServiceName + "/UpdateOrderStatus"
)

// OrderServiceServer is served with the default protobuf codec. Requests and
// responses are well-known types: GetOrder takes a UInt64Value order id,
// UpdateOrderStatus a Struct, and both return the order as a Struct.
type OrderServiceServer interface {
	GetOrder(ctx context.Context, req *wrapperspb.UInt64Value) (*structpb.Struct, error)
	UpdateOrderStatus(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

func RegisterOrderServiceServer(s gogrpc.ServiceRegistrar, srv OrderServiceServer) {
	s.RegisterService(&OrderServiceDesc, srv)
}

var OrderServiceDesc = gogrpc.ServiceDesc{
	ServiceName: OrderServiceName,
	HandlerType: (*OrderServiceServer)(nil),
	Methods: []gogrpc.MethodDesc{
		{MethodName: "GetOrder", Handler: getOrderHandler},
		{MethodName: "UpdateOrderStatus", Handler: updateOrderStatusHandler},
	},
	Streams:  []gogrpc.StreamDesc{},
	Metadata: "shop/internal/v1/order",
}

func getOrderHandler(srv any, ctx context.Context, dec func(any) error, interceptor gogrpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.UInt64Value)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(OrderServiceServer).GetOrder(ctx, in)
	}
	info := &gogrpc.UnaryServerInfo{Server: srv, FullMethod: getOrderFullMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(OrderServiceServer).GetOrder(ctx, req.(*wrapperspb.UInt64Value))
	}
	return interceptor(ctx, in, info, handler)
}

func updateOrderStatusHandler(srv any, ctx context.Context, dec func(any) error, interceptor gogrpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(OrderServiceServer).UpdateOrderStatus(ctx, in)
	}
	info := &gogrpc.UnaryServerInfo{Server: srv, FullMethod: updateOrderStatusFullMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(OrderServiceServer).UpdateOrderStatus(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// OrderServiceClient calls the internal order service and decodes the order
// payload into the HTTP response type.
type OrderServiceClient struct {
	cc gogrpc.ClientConnInterface
}

func NewOrderServiceClient(cc gogrpc.ClientConnInterface) *OrderServiceClient {
	return &OrderServiceClient{cc: cc}
}

func (c *OrderServiceClient) GetOrder(ctx context.Context, req *GetOrderRequest, opts ...gogrpc.CallOption) (*types.OrderResponse, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, getOrderFullMethod, req.message(), out, opts...); err != nil {
		return nil, err
	}
	return orderFromMessage(out)
}

func (c *OrderServiceClient) UpdateOrderStatus(ctx context.Context, req *UpdateOrderStatusRequest, opts ...gogrpc.CallOption) (*types.OrderResponse, error) {
	in, err := req.message()
	if err != nil {
		return nil, err
	}

	out := new(structpb.Struct)
	if err = c.cc.Invoke(ctx, updateOrderStatusFullMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return orderFromMessage(out)
}
