// Package grpc provides the gRPC health service of the catalog.
package grpc

import (
	"context"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the health service name reported for the product catalog.
const ServiceName = "catalog.v1.ProductCatalog"

// ReadinessChecker reports whether the product store can serve requests.
type ReadinessChecker interface {
	Ready(ctx context.Context) error
}

// HealthServer is a grpc_health_v1 server whose status follows the store readiness.
// Check probes the store on every call; Watch subscribers are updated by Run.
type HealthServer struct {
	*health.Server
	checker ReadinessChecker
	logger  *slog.Logger
}

func NewHealthServer(checker ReadinessChecker, logger *slog.Logger) *HealthServer {
	return &HealthServer{
		Server:  health.NewServer(),
		checker: checker,
		logger:  logger.With("component", "grpc_health"),
	}
}

// Register adds the health service to srv.
func (h *HealthServer) Register(srv *grpc.Server) {
	healthpb.RegisterHealthServer(srv, h)
}

// Check refreshes the status from the store and answers the request.
func (h *HealthServer) Check(ctx context.Context, req *healthpb.HealthCheckRequest) (*healthpb.HealthCheckResponse, error) {
	h.refresh(ctx)
	return h.Server.Check(ctx, req)
}

// Run refreshes the status every interval until ctx is done, then marks every service NOT_SERVING.
func (h *HealthServer) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	h.refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			h.Shutdown()
			return
		case <-ticker.C:
			h.refresh(ctx)
		}
	}
}

func (h *HealthServer) refresh(ctx context.Context) {
	status := healthpb.HealthCheckResponse_SERVING
	if err := h.checker.Ready(ctx); err != nil {
		h.logger.WarnContext(ctx, "Store is not ready", "error", err)
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	h.SetServingStatus("", status)
	h.SetServingStatus(ServiceName, status)
}
