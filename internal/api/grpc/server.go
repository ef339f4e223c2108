// Package grpc exposes the standard gRPC health service and reflection so
// orchestrators can probe the backend alongside its REST API.
package grpc

import (
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"bookbridge-backend/internal/api/grpc/interceptor"
)

const ServiceName = "bookbridge.v1.BookBridge"

// NewServer builds the gRPC server with health and reflection registered. The
// returned health server starts out SERVING; flip it with Shutdown on exit.
func NewServer() (*grpc.Server, *health.Server) {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(interceptor.Unary()))

	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)
	reflection.Register(srv)

	return srv, hs
}
