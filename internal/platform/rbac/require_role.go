// Package rbac guards RPCs by the caller's role as set by the auth interceptor.
package rbac

import (
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"social-tippster/backend/internal/server/interceptors"
	userdomain "social-tippster/backend/internal/user/domain"
)

// RequireUser ensures the caller is authenticated. Returns the caller's user ID or an Unauthenticated error.
func RequireUser(ctx context.Context) (userID string, err error) {
	userID, ok := interceptors.GetUserID(ctx)
	if !ok || userID == "" {
		return "", status.Error(codes.Unauthenticated, "user context required")
	}
	return userID, nil
}

// RequireRole ensures the caller is authenticated and holds one of roles.
// Returns (userID, nil) on success; a gRPC error (Unauthenticated or PermissionDenied) on failure.
func RequireRole(ctx context.Context, roles ...userdomain.Role) (userID string, err error) {
	userID, err = RequireUser(ctx)
	if err != nil {
		return "", err
	}
	role, _ := interceptors.GetRole(ctx)
	for _, r := range roles {
		if userdomain.Role(role) == r {
			return userID, nil
		}
	}
	return "", status.Error(codes.PermissionDenied, "insufficient role")
}

// RequireAdmin is RequireRole for the admin role.
func RequireAdmin(ctx context.Context) (userID string, err error) {
	return RequireRole(ctx, userdomain.RoleAdmin)
}
