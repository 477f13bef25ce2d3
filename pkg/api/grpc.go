package api

import (
	"context"
	"errors"
	"fmt"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"github.com/otherjamesbrown/penf-outreach/pkg/logging"
)

// ServiceName is the gRPC health service name reported for the selector.
const ServiceName = "outreach.ChannelSelector"

// HealthServer answers grpc.health.v1 probes from the same checks as /health.
type HealthServer struct {
	grpc_health_v1.UnimplementedHealthServer
	checks map[string]HealthCheck
}

// NewHealthServer creates a health server over checks.
func NewHealthServer(checks map[string]HealthCheck) *HealthServer {
	return &HealthServer{checks: checks}
}

// Check reports SERVING when every check passes. The empty service name
// and ServiceName are known; anything else is NOT_FOUND.
func (h *HealthServer) Check(ctx context.Context, req *grpc_health_v1.HealthCheckRequest) (*grpc_health_v1.HealthCheckResponse, error) {
	if svc := req.GetService(); svc != "" && svc != ServiceName {
		return nil, status.Errorf(codes.NotFound, "unknown service %q", svc)
	}
	return &grpc_health_v1.HealthCheckResponse{Status: h.status(ctx)}, nil
}

// Watch sends the current status once and holds the stream open.
func (h *HealthServer) Watch(req *grpc_health_v1.HealthCheckRequest, stream grpc_health_v1.Health_WatchServer) error {
	resp := &grpc_health_v1.HealthCheckResponse{Status: grpc_health_v1.HealthCheckResponse_SERVICE_UNKNOWN}
	if svc := req.GetService(); svc == "" || svc == ServiceName {
		resp.Status = h.status(stream.Context())
	}
	if err := stream.Send(resp); err != nil {
		return err
	}
	<-stream.Context().Done()
	return nil
}

func (h *HealthServer) status(ctx context.Context) grpc_health_v1.HealthCheckResponse_ServingStatus {
	if _, ok := RunChecks(ctx, h.checks); ok {
		return grpc_health_v1.HealthCheckResponse_SERVING
	}
	return grpc_health_v1.HealthCheckResponse_NOT_SERVING
}

// NewGRPCServer returns a grpc.Server with the health service registered.
func NewGRPCServer(checks map[string]HealthCheck) *grpc.Server {
	srv := grpc.NewServer()
	grpc_health_v1.RegisterHealthServer(srv, NewHealthServer(checks))
	return srv
}

// ServeGRPC listens on address until ctx is cancelled.
func ServeGRPC(ctx context.Context, address string, checks map[string]HealthCheck, logger logging.Logger) error {
	lis, err := net.Listen("tcp", address)
	if err != nil {
		return fmt.Errorf("grpc listen %s: %w", address, err)
	}

	srv := NewGRPCServer(checks)
	go func() {
		<-ctx.Done()
		srv.GracefulStop()
	}()

	logger.Info("gRPC health server listening", logging.F("address", address))
	if err := srv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("grpc serve: %w", err)
	}
	return nil
}
