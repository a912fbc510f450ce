package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"

	"user-account-service/cmd/api/di"
	"user-account-service/internal/config"
)

const healthInterval = 10 * time.Second

// Server struct holds all server dependencies
type Server struct {
	Config *config.Config
	Logger *zap.Logger
	Store  di.Store
	GRPC   *grpc.Server
	Health *health.Server
	Gin    *http.Server
}

// New creates a new server instance
func New(cfg *config.Config, l *zap.Logger, c *di.Container) *Server {
	grpcServer, hs := SetupGRPC(l)

	s := &Server{
		Config: cfg,
		Logger: l,
		Store:  c.Store,
		GRPC:   grpcServer,
		Health: hs,
	}
	s.Gin = SetupGinServer(c.GinHandler, c.Auth, c.Store, cfg.App.SwaggerPath, s.httpAddress(), l)
	return s
}

// Start runs the gRPC and HTTP servers until one fails or ctx is canceled.
// Listening errors surface immediately; a clean shutdown returns nil.
func (s *Server) Start(ctx context.Context) error {
	lc := net.ListenConfig{}

	grpcLis, err := lc.Listen(ctx, "tcp", s.grpcAddress())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.grpcAddress(), err)
	}
	httpLis, err := lc.Listen(ctx, "tcp", s.httpAddress())
	if err != nil {
		_ = grpcLis.Close()
		return fmt.Errorf("failed to listen on %s: %w", s.httpAddress(), err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.Logger.Info("gRPC server running", zap.String("address", s.grpcAddress()))
		if err := s.GRPC.Serve(grpcLis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("gRPC server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		s.Logger.Info("Gin REST API running", zap.String("address", s.httpAddress()))
		if err := s.Gin.Serve(httpLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		watchHealth(gctx, s.Store, s.Health, healthInterval, s.Logger)
		// A sibling failed; stop the other server so Wait can return.
		if ctx.Err() == nil {
			s.GRPC.Stop()
			_ = s.Gin.Close()
		}
		return nil
	})

	return g.Wait()
}

// Shutdown drains the HTTP server and stops the gRPC server.
func (s *Server) Shutdown(ctx context.Context) error {
	var errs []error

	if s.Health != nil {
		s.Health.Shutdown()
	}

	if s.Gin != nil {
		s.Logger.Info("shutting down Gin server...")
		if err := s.Gin.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("gin shutdown: %w", err))
		}
	}

	if s.GRPC != nil {
		s.Logger.Info("shutting down gRPC server...")
		stopped := make(chan struct{})
		go func() {
			s.GRPC.GracefulStop()
			close(stopped)
		}()
		select {
		case <-stopped:
		case <-ctx.Done():
			s.GRPC.Stop()
		}
	}

	return errors.Join(errs...)
}

// grpcAddress returns the gRPC server address
func (s *Server) grpcAddress() string {
	return ":" + s.Config.App.GRPCPort
}

// httpAddress returns the HTTP server address
func (s *Server) httpAddress() string {
	return ":" + s.Config.App.HTTPPort
}
