package grpc

import (
	"context"
	"log/slog"
	"net"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
)

// AuthServiceName is the health service name reported for the auth core
const AuthServiceName = "academichub.auth.v1.AuthService"

// Probe checks one dependency. A non-nil error marks the service NOT_SERVING.
type Probe struct {
	Name  string
	Check func(ctx context.Context) error
}

// HealthServer exposes the standard gRPC health protocol backed by dependency probes
type HealthServer struct {
	server  *grpc.Server
	health  *health.Server
	probes  []Probe
	logger  *slog.Logger
	mu      sync.Mutex
	serving bool
}

// NewHealthServer creates a gRPC server with only the health service registered
func NewHealthServer(logger *slog.Logger, probes ...Probe) *HealthServer {
	server := grpc.NewServer(
		grpc.KeepaliveParams(keepalive.ServerParameters{
			Time:    30 * time.Second,
			Timeout: 10 * time.Second,
		}),
	)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(server, hs)

	h := &HealthServer{
		server: server,
		health: hs,
		probes: probes,
		logger: logger,
	}
	h.setStatus(healthpb.HealthCheckResponse_NOT_SERVING)
	return h
}

// Serve blocks until the listener fails or Stop is called
func (h *HealthServer) Serve(lis net.Listener) error {
	h.logger.Info("🩺 [gRPC] Health server listening", "addr", lis.Addr().String())
	return h.server.Serve(lis)
}

// Check runs every probe once and publishes the result
func (h *HealthServer) Check(ctx context.Context) bool {
	for _, probe := range h.probes {
		if err := probe.Check(ctx); err != nil {
			h.logger.Warn("⚠️ [gRPC] Health probe failed", "probe", probe.Name, "error", err)
			h.setStatus(healthpb.HealthCheckResponse_NOT_SERVING)
			return false
		}
	}
	h.setStatus(healthpb.HealthCheckResponse_SERVING)
	return true
}

// Watch re-runs the probes every interval until ctx is cancelled
func (h *HealthServer) Watch(ctx context.Context, interval time.Duration) {
	h.Check(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.Check(ctx)
		}
	}
}

// Stop marks every service NOT_SERVING and drains in-flight RPCs
func (h *HealthServer) Stop() {
	h.logger.Info("🛑 [gRPC] Stopping health server")
	h.health.Shutdown()
	h.server.GracefulStop()
}

func (h *HealthServer) setStatus(status healthpb.HealthCheckResponse_ServingStatus) {
	h.mu.Lock()
	defer h.mu.Unlock()

	serving := status == healthpb.HealthCheckResponse_SERVING
	if serving != h.serving {
		h.logger.Info("🩺 [gRPC] Health status changed", "status", status.String())
	}
	h.serving = serving

	h.health.SetServingStatus("", status)
	h.health.SetServingStatus(AuthServiceName, status)
}
