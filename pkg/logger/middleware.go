package logger

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/grpc"
)

// UnaryServerInterceptor tags each gRPC call with a request ID and logs failures.
func UnaryServerInterceptor(log *zap.Logger) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		ctx = WithRequestID(ctx, uuid.NewString())

		resp, err := handler(ctx, req)
		if err != nil {
			WithContext(ctx, log).Warn("grpc call failed",
				zap.String("method", info.FullMethod),
				zap.Error(err),
			)
		}
		return resp, err
	}
}
