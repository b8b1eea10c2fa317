package grpc

import (
	"context"
	"net"
	"time"

	"git.solsynth.dev/hypernet/chat/pkg/internal/cache"
	"git.solsynth.dev/hypernet/chat/pkg/internal/database"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
	"google.golang.org/grpc"
	health "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

type Server struct {
	health.UnimplementedHealthServer

	srv *grpc.Server
}

func NewGrpc() *Server {
	server := &Server{
		srv: grpc.NewServer(),
	}

	health.RegisterHealthServer(server.srv, server)

	reflection.Register(server.srv)

	return server
}

func (v *Server) Listen() error {
	listener, err := net.Listen("tcp", viper.GetString("grpc_bind"))
	if err != nil {
		return err
	}

	return v.srv.Serve(listener)
}

func (v *Server) Stop() {
	v.srv.GracefulStop()
}

// Check reports serving only while the database and, when configured, the
// cache are reachable.
func (v *Server) Check(ctx context.Context, in *health.HealthCheckRequest) (*health.HealthCheckResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if err := ping(ctx); err != nil {
		log.Warn().Err(err).Msg("Health check failed...")
		return &health.HealthCheckResponse{Status: health.HealthCheckResponse_NOT_SERVING}, nil
	}
	return &health.HealthCheckResponse{Status: health.HealthCheckResponse_SERVING}, nil
}

func ping(ctx context.Context) error {
	if database.C == nil {
		return errDatabaseUnavailable
	}
	db, err := database.C.DB()
	if err != nil {
		return err
	} else if err := db.PingContext(ctx); err != nil {
		return err
	}

	if cache.R != nil {
		return cache.R.Ping(ctx).Err()
	}
	return nil
}
