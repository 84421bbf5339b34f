// Package grpc exposes the standard gRPC health service and server
// reflection. Health mirrors the HTTP /health report.
package grpc

import (
	"context"
	"net"
	"time"

	"github.com/dmitrijs2005/snippetvault/internal/logging"
	"github.com/dmitrijs2005/snippetvault/internal/server/services"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceName is the health-checked service name next to the overall "" entry.
const ServiceName = "snippetvault"

const defaultPollInterval = 10 * time.Second

type HealthChecker interface {
	Check(ctx context.Context) services.HealthReport
}

type GRPCServer struct {
	address      string
	logger       logging.Logger
	checker      HealthChecker
	health       *health.Server
	pollInterval time.Duration
}

func NewGRPCServer(a string, l logging.Logger, checker HealthChecker) *GRPCServer {
	return &GRPCServer{
		address:      a,
		logger:       l.With("module", "grpc_server"),
		checker:      checker,
		health:       health.NewServer(),
		pollInterval: defaultPollInterval,
	}
}

func (s *GRPCServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve accepts connections on lis until ctx is done.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.loggingInterceptor))

	healthpb.RegisterHealthServer(srv, s.health)
	reflection.Register(srv)

	s.refreshHealth(ctx)
	go s.watchHealth(ctx)

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		s.health.Shutdown()
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	if err := srv.Serve(lis); err != nil {
		return err
	}

	return nil
}

func (s *GRPCServer) watchHealth(ctx context.Context) {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.refreshHealth(ctx)
		}
	}
}

func (s *GRPCServer) refreshHealth(ctx context.Context) {
	report := s.checker.Check(ctx)

	status := healthpb.HealthCheckResponse_SERVING
	if !report.Healthy() {
		status = healthpb.HealthCheckResponse_NOT_SERVING
		s.logger.Warn(ctx, "service degraded", "database", report.Database, "encryption", report.Encryption)
	}

	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
}
