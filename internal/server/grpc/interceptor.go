package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/fileshare/internal/common"
	"github.com/dmitrijs2005/fileshare/internal/server/auth"
	"github.com/dmitrijs2005/fileshare/internal/server/models"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// guardedMethods lists the session variant each protected method requires.
// Logout takes its variant from the request.
var guardedMethods = map[string]models.Variant{
	MethodListFiles:           models.VariantClient,
	MethodRequestDownloadLink: models.VariantClient,
}

type variantRequest interface {
	variant() models.Variant
}

func (r *LogoutRequest) variant() models.Variant { return r.Variant }

// tokenFromContext reads the bearer token from the authorization metadata.
func tokenFromContext(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	values := md.Get(common.AuthorizationHeaderName)
	if len(values) == 0 {
		return ""
	}
	return auth.BearerToken(values[0])
}

func (s *GRPCServer) authInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	variant, guarded := guardedMethods[info.FullMethod]
	if vr, ok := req.(variantRequest); ok {
		variant, guarded = vr.variant(), true
		if !variant.Valid() {
			return nil, status.Error(codes.InvalidArgument, "unknown variant")
		}
	}
	if !guarded {
		return handler(ctx, req)
	}

	token := tokenFromContext(ctx)
	if token == "" {
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}

	ctx, err := s.guard.Require(ctx, token, variant)
	if err != nil {
		if errors.Is(err, common.ErrorUnauthorized) {
			return nil, status.Error(codes.Unauthenticated, "unauthorized")
		}
		s.logger.Error(ctx, "session check failed", "method", info.FullMethod, "error", err)
		return nil, status.Error(codes.Internal, "internal error")
	}

	return handler(ctx, req)
}
