package server

import (
	"context"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	ginrouter "user-account-service/internal/adapter/gin/router"
	"user-account-service/pkg/logger"
)

// ServiceName is the name reported by the gRPC health service.
const ServiceName = "user-account-service"

// SetupGRPC creates a gRPC server exposing the standard health service
func SetupGRPC(l *zap.Logger) (*grpc.Server, *health.Server) {
	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			logger.UnaryServerInterceptor(l),
		),
	)

	hs := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, hs)

	return grpcServer, hs
}

// watchHealth mirrors store readiness into the health service until ctx is done.
func watchHealth(ctx context.Context, store ginrouter.Pinger, hs *health.Server, interval time.Duration, l *zap.Logger) {
	check := func() {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()

		status := healthpb.HealthCheckResponse_SERVING
		if err := store.Ping(pingCtx); err != nil {
			l.Warn("store health check failed", zap.Error(err))
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
		hs.SetServingStatus("", status)
		hs.SetServingStatus(ServiceName, status)
	}

	check()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			check()
		}
	}
}
