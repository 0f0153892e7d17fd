package grpc

import (
	"context"
	"errors"
	"strings"

	"github.com/vibast-solutions/ms-go-shop/app/dto"
	"github.com/vibast-solutions/ms-go-shop/app/entity"
	"github.com/vibast-solutions/ms-go-shop/app/service"

	"github.com/sirupsen/logrus"
	gogrpc "google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const apiKeyMetadata = "x-api-key"

type callerKey struct{}

// orderMethodAccess lists the scope each order RPC requires.
var orderMethodAccess = map[string]string{
	getOrderFullMethod:          entity.AccessOrders,
	updateOrderStatusFullMethod: entity.AccessOrders,
}

// APIKeyUnaryInterceptor authenticates the x-api-key metadata and, when the
// method is listed in methodAccess, checks the caller holds that scope.
// Unlisted methods only need a valid key.
func APIKeyUnaryInterceptor(authService service.InternalAuthService, methodAccess map[string]string) gogrpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *gogrpc.UnaryServerInfo, handler gogrpc.UnaryHandler) (any, error) {
		entry := logrus.WithField("method", info.FullMethod)

		apiKey := incomingAPIKey(ctx)
		if apiKey == "" {
			entry.Debug("Missing x-api-key metadata (grpc)")
			return nil, status.Error(codes.Unauthenticated, "unauthorized")
		}

		caller, err := authService.ValidateInternalAPIKey(ctx, apiKey)
		if err != nil {
			if errors.Is(err, service.ErrInvalidInternalAPIKey) {
				entry.Warn("Rejected internal call: invalid api key (grpc)")
				return nil, status.Error(codes.Unauthenticated, "unauthorized")
			}
			entry.WithError(err).Error("Internal API key validation failed (grpc)")
			return nil, status.Error(codes.Internal, "internal server error")
		}

		if scope, ok := methodAccess[info.FullMethod]; ok && !entity.HasAccess(caller.AllowedAccess, scope) {
			entry.WithFields(logrus.Fields{"caller": caller.ServiceName, "scope": scope}).Warn("Internal caller lacks access (grpc)")
			return nil, status.Error(codes.PermissionDenied, "forbidden")
		}

		return handler(context.WithValue(ctx, callerKey{}, caller), req)
	}
}

// CallerService returns the service name resolved by APIKeyUnaryInterceptor.
func CallerService(ctx context.Context) string {
	if caller, ok := ctx.Value(callerKey{}).(*dto.InternalAccessResult); ok {
		return caller.ServiceName
	}
	return ""
}

func incomingAPIKey(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	if values := md.Get(apiKeyMetadata); len(values) > 0 {
		return strings.TrimSpace(values[0])
	}
	return ""
}
