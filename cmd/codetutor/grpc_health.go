package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
)

const (
	healthInterval    = 10 * time.Second
	healthPingTimeout = 5 * time.Second
)

type pinger interface {
	Ping(ctx context.Context) error
}

// serveGRPCHealth serves the standard gRPC health service on lis. The
// overall status ("") follows store pings. The returned func stops serving.
func serveGRPCHealth(ctx context.Context, lis net.Listener, store pinger, interval time.Duration) func() {
	srv := grpc.NewServer()
	hs := health.NewServer()
	grpc_health_v1.RegisterHealthServer(srv, hs)

	ctx, cancel := context.WithCancel(ctx)
	check := func() {
		pingCtx, pingCancel := context.WithTimeout(ctx, healthPingTimeout)
		defer pingCancel()

		status := grpc_health_v1.HealthCheckResponse_SERVING
		if err := store.Ping(pingCtx); err != nil {
			slog.Warn("gRPC health: store unreachable", "error", err)
			status = grpc_health_v1.HealthCheckResponse_NOT_SERVING
		}
		hs.SetServingStatus("", status)
	}
	check()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				check()
			}
		}
	}()

	go func() {
		if err := srv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			slog.Error("gRPC health server failed", "error", err)
		}
	}()

	return func() {
		cancel()
		hs.Shutdown()
		srv.GracefulStop()
	}
}
