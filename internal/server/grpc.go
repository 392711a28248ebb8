package server

import (
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// HealthService is the service name reported by the gRPC health server.
const HealthService = "eventdesk.Panel"

// NewGRPCServer creates a gRPC server with standard interceptors, registers
// the health service and reflection, and returns the server ready to serve.
func NewGRPCServer(hs *health.Server) *grpc.Server {
	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			RecoveryInterceptor,
			LoggingInterceptor,
		),
	)

	healthpb.RegisterHealthServer(srv, hs)
	reflection.Register(srv)

	return srv
}

// NewHealthServer returns a health server reporting SERVING for the overall
// server and for HealthService.
func NewHealthServer() *health.Server {
	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(HealthService, healthpb.HealthCheckResponse_SERVING)
	return hs
}
