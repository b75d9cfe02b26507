// Package grpc serves the fileshare API over gRPC. Messages are encoded in
// protobuf wire format as described by api/fileshare.proto.
package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/fileshare/internal/logging"
	"github.com/dmitrijs2005/fileshare/internal/server/auth"
	"github.com/dmitrijs2005/fileshare/internal/server/services"
	"google.golang.org/grpc"
)

type GRPCServer struct {
	address  string
	auth     *services.AuthService
	download *services.DownloadService
	files    *services.FileService
	guard    *auth.Guard
	logger   logging.Logger
}

func NewGRPCServer(a string, l logging.Logger, as *services.AuthService, ds *services.DownloadService, fs *services.FileService) *GRPCServer {
	return &GRPCServer{
		address:  a,
		logger:   l.With("module", "grpc_server"),
		auth:     as,
		download: ds,
		files:    fs,
		guard:    auth.NewGuard(as),
	}
}

// NewServer returns a grpc.Server with the service and its auth
// interceptor registered.
func (s *GRPCServer) NewServer(opts ...grpc.ServerOption) *grpc.Server {
	opts = append(opts, grpc.ForceServerCodec(protoCodec{}), grpc.ChainUnaryInterceptor(s.authInterceptor))
	srv := grpc.NewServer(opts...)
	srv.RegisterService(&ServiceDesc, s)
	return srv
}

// Run serves on the configured address until ctx is cancelled.
func (s *GRPCServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := s.NewServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", s.address)

	if err := srv.Serve(listen); err != nil {
		return err
	}

	return nil
}
