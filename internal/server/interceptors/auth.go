package interceptors

import (
	"context"
	"log"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"social-tippster/backend/internal/autherr"
	identityservice "social-tippster/backend/internal/identity/service"
)

// AccessValidator resolves an access token to the caller.
type AccessValidator interface {
	ValidateAccessToken(ctx context.Context, accessToken string) (*identityservice.AccessIdentity, error)
}

// AuthUnary authenticates every unary call with the Bearer access token from the
// "authorization" metadata and stores the caller in ctx. Methods in publicMethods run
// without a caller when the token is absent or does not validate.
func AuthUnary(validator AccessValidator, publicMethods map[string]bool) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		caller, err := authenticate(ctx, validator, info.FullMethod)
		switch {
		case err == nil:
			return handler(WithIdentity(ctx, caller.UserID, caller.Role, caller.SessionID), req)
		case publicMethods[info.FullMethod]:
			return handler(ctx, req)
		default:
			return nil, err
		}
	}
}

func authenticate(ctx context.Context, validator AccessValidator, method string) (Caller, error) {
	token, ok := bearerToken(ctx)
	if !ok {
		return Caller{}, status.Error(codes.Unauthenticated, "missing or invalid authorization")
	}
	id, err := validator.ValidateAccessToken(ctx, token)
	switch {
	case err == nil:
		return Caller{UserID: id.User.ID, Role: string(id.User.Role), SessionID: id.SessionID}, nil
	case !autherr.IsAuth(err):
		log.Printf("auth: access token check failed for %s: %v", method, err)
		return Caller{}, status.Error(codes.Internal, "could not verify authorization")
	case autherr.KindOf(err) == autherr.KindExpired:
		return Caller{}, status.Error(codes.Unauthenticated, "access token expired")
	default:
		return Caller{}, status.Error(codes.Unauthenticated, "missing or invalid authorization")
	}
}

// bearerToken extracts the token from "authorization: Bearer <token>". The scheme is
// case-insensitive.
func bearerToken(ctx context.Context) (string, bool) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", false
	}
	for _, v := range md.Get("authorization") {
		scheme, token, found := strings.Cut(strings.TrimSpace(v), " ")
		if !found || !strings.EqualFold(scheme, "bearer") {
			continue
		}
		if token = strings.TrimSpace(token); token != "" {
			return token, true
		}
	}
	return "", false
}
