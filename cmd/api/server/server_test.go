package server

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"user-account-service/cmd/api/di"
	"user-account-service/internal/config"
)

type flakyStore struct {
	down atomic.Bool
}

func (s *flakyStore) Ping(context.Context) error {
	if s.down.Load() {
		return errors.New("connection refused")
	}
	return nil
}

func servingStatus(hs *health.Server, service string) healthpb.HealthCheckResponse_ServingStatus {
	resp, err := hs.Check(context.Background(), &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN
	}
	return resp.GetStatus()
}

func TestWatchHealth(t *testing.T) {
	_, hs := SetupGRPC(zaptest.NewLogger(t))
	store := &flakyStore{}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		watchHealth(ctx, store, hs, 10*time.Millisecond, zaptest.NewLogger(t))
		close(done)
	}()

	assert.Eventually(t, func() bool {
		return servingStatus(hs, ServiceName) == healthpb.HealthCheckResponse_SERVING
	}, time.Second, 5*time.Millisecond)

	store.down.Store(true)
	assert.Eventually(t, func() bool {
		return servingStatus(hs, ServiceName) == healthpb.HealthCheckResponse_NOT_SERVING &&
			servingStatus(hs, "") == healthpb.HealthCheckResponse_NOT_SERVING
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watchHealth did not return after cancel")
	}
}

func TestServer_StartAndShutdown(t *testing.T) {
	cfg := &config.Config{
		App: config.AppConfig{
			HTTPPort:               "0",
			GRPCPort:               "0",
			ShutdownTimeoutSeconds: 5,
		},
		Store:  config.StoreConfig{Driver: config.DriverSQLite},
		SQLite: config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "users.db")},
		Auth: config.AuthConfig{
			JWTSecret:   "server-test-secret",
			JWTTTLHours: 1,
			BcryptCost:  bcrypt.MinCost,
		},
	}
	l := zaptest.NewLogger(t)

	c, err := di.NewContainer(context.Background(), cfg, l)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	s := New(cfg, l, c)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- s.Start(ctx) }()

	assert.Eventually(t, func() bool {
		return servingStatus(s.Health, ServiceName) == healthpb.HealthCheckResponse_SERVING
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	require.NoError(t, s.Shutdown(shutdownCtx))

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Start did not return after shutdown")
	}
}
