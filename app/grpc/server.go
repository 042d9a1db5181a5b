package grpc

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	gogrpc "google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the health service name reported for the account store.
const ServiceName = "account"

type pinger interface {
	Ping(ctx context.Context) error
}

// HealthServer reports SERVING while the user store answers pings.
type HealthServer struct {
	health *health.Server
	store  pinger
}

func NewHealthServer(store pinger) *HealthServer {
	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	return &HealthServer{health: hs, store: store}
}

// Check pings the store once and publishes the result.
func (s *HealthServer) Check(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	status := healthpb.HealthCheckResponse_SERVING
	if err := s.store.Ping(ctx); err != nil {
		logrus.WithError(err).Warn("User store health check failed")
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.health.SetServingStatus(ServiceName, status)
	return status
}

// Watch runs Check every interval until ctx is done.
func (s *HealthServer) Watch(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		checkCtx, cancel := context.WithTimeout(ctx, interval)
		s.Check(checkCtx)
		cancel()

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Shutdown marks every service NOT_SERVING.
func (s *HealthServer) Shutdown() {
	s.health.Shutdown()
}

// NewServer returns a gRPC server exposing the standard health service.
func NewServer(hs *HealthServer) *gogrpc.Server {
	server := gogrpc.NewServer(
		gogrpc.ChainUnaryInterceptor(LoggingUnaryInterceptor()),
		gogrpc.ChainStreamInterceptor(LoggingStreamInterceptor()),
	)
	healthpb.RegisterHealthServer(server, hs.health)
	return server
}
