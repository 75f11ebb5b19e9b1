// Package health exposes a gRPC liveness probe for the vertex process. The
// cluster scheduler polls it to tell a vertex that is still computing apart
// from one that is wedged; it carries no vertex state.
package health

import (
	"context"
	"fmt"
	"net"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
)

// Server serves the standard gRPC health service on a local port.
type Server struct {
	grpcServer   *grpc.Server
	healthServer *health.Server
	listener     net.Listener
	logger       *zap.Logger
}

// Start listens on the given port and serves health checks in the
// background. Port 0 picks a free port; the chosen address is available via
// Addr.
func Start(port int, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, fmt.Errorf("failed to listen on port %d: %w", port, err)
	}

	s := &Server{
		grpcServer:   grpc.NewServer(),
		healthServer: health.NewServer(),
		listener:     listener,
		logger:       logger,
	}
	grpc_health_v1.RegisterHealthServer(s.grpcServer, s.healthServer)
	s.healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)

	go func() {
		if err := s.grpcServer.Serve(listener); err != nil {
			logger.Warn("health server stopped", zap.Error(err))
		}
	}()

	logger.Info("health server listening", zap.String("addr", listener.Addr().String()))
	return s, nil
}

// Addr returns the address the server is listening on.
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// SetNotServing flips the probe before shutdown so the scheduler stops
// routing checks at a process that is exiting.
func (s *Server) SetNotServing() {
	s.healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)
}

// Stop gracefully stops the server.
func (s *Server) Stop(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		s.grpcServer.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		s.grpcServer.Stop()
	}
}
