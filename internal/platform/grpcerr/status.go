// Package grpcerr converts auth errors into gRPC status errors.
package grpcerr

import (
	"context"
	"errors"
	"log"
	"strconv"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"social-tippster/backend/internal/autherr"
)

// Code returns the gRPC code for err's auth kind; codes.Internal for anything else.
func Code(err error) codes.Code {
	switch autherr.KindOf(err) {
	case autherr.KindInvalidCredentials, autherr.KindInvalidToken, autherr.KindExpired, autherr.KindWrongTokenType:
		return codes.Unauthenticated
	case autherr.KindLockedOut:
		return codes.ResourceExhausted
	case autherr.KindBanned, autherr.KindInactive:
		return codes.PermissionDenied
	case autherr.KindNotFound:
		return codes.NotFound
	}
	return codes.Internal
}

// Status converts err into a gRPC status error. Auth errors keep their message; anything else
// is logged under op and replaced by a generic message. A LockedOut error also sets the
// retry-after trailer (seconds) when ctx is a server context.
func Status(ctx context.Context, op string, err error) error {
	if err == nil {
		return nil
	}
	code := Code(err)
	if code == codes.Internal {
		log.Printf("%s: %v", op, err)
		return status.Error(codes.Internal, "internal error")
	}
	var ae *autherr.Error
	if !errors.As(err, &ae) {
		return status.Error(code, err.Error())
	}
	if ae.Kind == autherr.KindLockedOut && ae.RetryAfter > 0 {
		secs := int64((ae.RetryAfter + time.Second - 1) / time.Second)
		_ = grpc.SetTrailer(ctx, metadata.Pairs("retry-after", strconv.FormatInt(secs, 10)))
	}
	return status.Error(code, ae.Error())
}
