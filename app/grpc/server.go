package grpc

import (
	"context"
	"errors"
	"strings"

	"github.com/vibast-solutions/ms-go-shop/app/service"
	"github.com/vibast-solutions/ms-go-shop/app/types"

	"github.com/sirupsen/logrus"
	gogrpc "google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

type OrderServer struct {
	orderService service.OrderService
}

func NewOrderServer(orderService service.OrderService) *OrderServer {
	return &OrderServer{orderService: orderService}
}

// NewServer builds a gRPC server exposing the internal order service behind
// the API key interceptor.
func NewServer(orderService service.OrderService, internalAuthService service.InternalAuthService) *gogrpc.Server {
	srv := gogrpc.NewServer(
		gogrpc.UnaryInterceptor(APIKeyUnaryInterceptor(internalAuthService, orderMethodAccess)),
	)
	RegisterOrderServiceServer(srv, NewOrderServer(orderService))
	return srv
}

func (s *OrderServer) GetOrder(ctx context.Context, req *wrapperspb.UInt64Value) (*structpb.Struct, error) {
	orderID := req.GetValue()
	if orderID == 0 {
		return nil, status.Error(codes.InvalidArgument, "order_id is required")
	}

	order, err := s.orderService.GetAny(ctx, orderID)
	if err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			logrus.WithField("order_id", orderID).Debug("Order not found (grpc)")
			return nil, status.Error(codes.NotFound, "order not found")
		}
		logrus.WithError(err).WithField("order_id", orderID).Error("Get order failed (grpc)")
		return nil, status.Error(codes.Internal, "internal server error")
	}

	return encodeOrder(types.NewOrderResponse(order))
}

func (s *OrderServer) UpdateOrderStatus(ctx context.Context, msg *structpb.Struct) (*structpb.Struct, error) {
	req, err := updateOrderStatusFromMessage(msg)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	in := &types.UpdateOrderStatusRequest{OrderID: req.OrderID, Status: strings.ToLower(strings.TrimSpace(req.Status))}
	if in.OrderID == 0 {
		return nil, status.Error(codes.InvalidArgument, "order_id is required")
	}
	if err = in.Validate(); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	fields := logrus.Fields{
		"order_id": in.OrderID,
		"status":   in.Status,
		"caller":   CallerService(ctx),
	}
	order, err := s.orderService.UpdateStatus(ctx, in)
	if err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			logrus.WithFields(fields).Warn("Order status update failed: not found (grpc)")
			return nil, status.Error(codes.NotFound, "order not found")
		}
		if errors.Is(err, service.ErrInvalidOrderStatus) {
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}
		logrus.WithError(err).WithFields(fields).Error("Order status update failed (grpc)")
		return nil, status.Error(codes.Internal, "internal server error")
	}

	logrus.WithFields(fields).Info("Order status updated (grpc)")
	return encodeOrder(types.NewOrderResponse(order))
}

func encodeOrder(order *types.OrderResponse) (*structpb.Struct, error) {
	out, err := orderMessage(order)
	if err != nil {
		logrus.WithError(err).WithField("order_id", order.ID).Error("Encode order failed (grpc)")
		return nil, status.Error(codes.Internal, "internal server error")
	}
	return out, nil
}
