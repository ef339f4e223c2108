package interceptor

import (
	"context"
	"runtime/debug"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"bookbridge-backend/internal/logger"
)

// Unary returns a server interceptor that logs each RPC and converts panics
// into Internal errors.
func Unary() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp interface{}, err error) {
		start := time.Now()
		defer func() {
			if rec := recover(); rec != nil {
				logger.Error("gRPC handler panic", "method", info.FullMethod, "panic", rec, "stack", string(debug.Stack()))
				err = status.Error(codes.Internal, "internal server error")
			}
			code := status.Code(err)
			args := []any{"grpc_method", info.FullMethod, "code", code.String(), "latency_ms", time.Since(start).Milliseconds()}
			if code == codes.OK {
				logger.Debug("gRPC request", args...)
			} else {
				logger.Warn("gRPC request", args...)
			}
		}()
		return handler(ctx, req)
	}
}
