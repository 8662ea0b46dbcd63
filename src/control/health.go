package control

import (
	"context"
	"fmt"
	"net"
	"time"

	"crypto-analytics/src/logger"
	"crypto-analytics/src/models"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// -----------------------------------------------------------------------------
// HealthServer
//
// Standard grpc.health.v1 endpoint so orchestrators can probe the process
// without parsing the REST surface. The "feed" service flips to NOT_SERVING
// when the upstream connection is degraded.
// -----------------------------------------------------------------------------

const feedServiceName = "feed"

const probeInterval = 5 * time.Second

type HealthServer struct {
	Config *models.MConfig
	Logger *logger.Logger

	grpcSrv   *grpc.Server
	healthSrv *health.Server
}

// -----------------------------------------------------------------------------

func NewHealthServer(cfg *models.MConfig, log *logger.Logger) *HealthServer {
	return &HealthServer{
		Config:    cfg,
		Logger:    log,
		grpcSrv:   grpc.NewServer(),
		healthSrv: health.NewServer(),
	}
}

// -----------------------------------------------------------------------------

func (s *HealthServer) Start() error {
	addr := fmt.Sprintf("%s:%d", s.Config.Host, s.Config.ControlPort)
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("control listener failed: %w", err)
	}

	healthpb.RegisterHealthServer(s.grpcSrv, s.healthSrv)
	s.healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	s.healthSrv.SetServingStatus(feedServiceName, healthpb.HealthCheckResponse_SERVING)

	s.Logger.Info("Control endpoint listening on %s", addr)
	return s.grpcSrv.Serve(lis)
}

// -----------------------------------------------------------------------------

// Watch polls the feed state and mirrors it onto the health service.
func (s *HealthServer) Watch(ctx context.Context, feedHealthy func() bool) {
	ticker := time.NewTicker(probeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			status := healthpb.HealthCheckResponse_SERVING
			if !feedHealthy() {
				status = healthpb.HealthCheckResponse_NOT_SERVING
			}
			s.healthSrv.SetServingStatus(feedServiceName, status)
		}
	}
}

// -----------------------------------------------------------------------------

func (s *HealthServer) Stop() {
	s.healthSrv.Shutdown()
	s.grpcSrv.GracefulStop()
}
