package rpc

import (
	"context"
	"strings"

	"storefront-svc/middleware"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type externalIDKey struct{}

// AuthInterceptor verifies the bearer token in the "authorization" metadata.
// Health checks are let through unauthenticated.
func AuthInterceptor(secret []byte) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if strings.HasPrefix(info.FullMethod, "/grpc.health.v1.Health/") {
			return handler(ctx, req)
		}

		md, _ := metadata.FromIncomingContext(ctx)
		values := md.Get("authorization")
		if len(values) == 0 {
			return nil, status.Error(codes.Unauthenticated, "authorization metadata required")
		}
		token, ok := middleware.BearerToken(values[0])
		if !ok {
			return nil, status.Error(codes.Unauthenticated, "bearer token required")
		}
		externalID, err := middleware.ParseToken(secret, token)
		if err != nil {
			return nil, status.Error(codes.Unauthenticated, "invalid or expired token")
		}

		return handler(context.WithValue(ctx, externalIDKey{}, externalID), req)
	}
}

// ExternalUserID returns the subject stored by AuthInterceptor.
func ExternalUserID(ctx context.Context) string {
	id, _ := ctx.Value(externalIDKey{}).(string)
	return id
}
