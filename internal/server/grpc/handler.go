package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/fileshare/internal/common"
	"github.com/dmitrijs2005/fileshare/internal/server/auth"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var _ FileShareServer = (*GRPCServer)(nil)

func toStatus(err error) error {
	switch {
	case errors.Is(err, common.ErrMissingCredentials), errors.Is(err, common.ErrValidation):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, common.ErrInvalidCredentials), errors.Is(err, common.ErrorUnauthorized):
		return status.Error(codes.Unauthenticated, err.Error())
	case errors.Is(err, common.ErrEmailNotVerified):
		return status.Error(codes.PermissionDenied, err.Error())
	case errors.Is(err, common.ErrFileNotFound):
		return status.Error(codes.NotFound, err.Error())
	default:
		return status.Error(codes.Internal, "internal error")
	}
}

func (s *GRPCServer) Login(ctx context.Context, req *LoginRequest) (*LoginResponse, error) {
	token, err := s.auth.Login(ctx, req.Variant, req.Identifier, req.Password)
	if err != nil {
		return nil, toStatus(err)
	}
	return &LoginResponse{Token: token}, nil
}

func (s *GRPCServer) Logout(ctx context.Context, req *LogoutRequest) (*LogoutResponse, error) {
	if err := s.auth.Logout(ctx, tokenFromContext(ctx), req.Variant); err != nil {
		return nil, toStatus(err)
	}
	return &LogoutResponse{}, nil
}

func (s *GRPCServer) ListFiles(ctx context.Context, _ *ListFilesRequest) (*ListFilesResponse, error) {
	files, err := s.files.List(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	return &ListFilesResponse{Files: files}, nil
}

func (s *GRPCServer) RequestDownloadLink(ctx context.Context, req *DownloadLinkRequest) (*DownloadLinkResponse, error) {
	p, ok := auth.PrincipalFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "unauthorized")
	}
	link, err := s.download.RequestDownloadLink(ctx, p.ID, req.FileID)
	if err != nil {
		return nil, toStatus(err)
	}
	return &DownloadLinkResponse{Link: link}, nil
}
