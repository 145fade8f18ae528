package server

import (
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	authv1 "social-tippster/backend/api/auth/v1"
	sessionv1 "social-tippster/backend/api/session/v1"
	identityhandler "social-tippster/backend/internal/identity/handler"
	identityservice "social-tippster/backend/internal/identity/service"
	"social-tippster/backend/internal/server/interceptors"
	sessionhandler "social-tippster/backend/internal/session/handler"
)

// Deps holds optional service dependencies for gRPC handlers.
type Deps struct {
	// Auth is the auth service for AuthService and the SessionService logout RPCs. If nil, those RPCs return Unimplemented.
	Auth *identityservice.AuthService
	// Sessions is the session tracker for SessionService. If nil, SessionService RPCs return Unimplemented.
	Sessions sessionhandler.Tracker
	// Health is the grpc.health.v1 server. If nil, the health service is not registered.
	Health *health.Server
}

// ServiceNames are the application services reported on the health server.
var ServiceNames = []string{authv1.ServiceName, sessionv1.ServiceName}

// PublicMethods are the full method names callable without a Bearer token.
func PublicMethods() map[string]bool {
	return map[string]bool{
		authv1.AuthService_Login_FullMethodName:         true,
		authv1.AuthService_Refresh_FullMethodName:       true,
		authv1.AuthService_ValidateToken_FullMethodName: true,
		healthpb.Health_Check_FullMethodName:            true,
	}
}

// NewGRPCServer returns a gRPC server with OTel instrumentation and the access-token gate.
// Extra options are appended.
func NewGRPCServer(validator interceptors.AccessValidator, opts ...grpc.ServerOption) *grpc.Server {
	base := []grpc.ServerOption{
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(interceptors.AuthUnary(validator, PublicMethods())),
	}
	return grpc.NewServer(append(base, opts...)...)
}

// RegisterServices registers all gRPC services with the given server.
//
// Service → handler mapping:
//   - tippster.auth.v1.AuthService       → internal/identity/handler
//   - tippster.session.v1.SessionService → internal/session/handler
//   - grpc.health.v1.Health              → google.golang.org/grpc/health (status set by internal/health/handler)
func RegisterServices(s grpc.ServiceRegistrar, deps Deps) {
	var auth identityhandler.AuthService
	var logouter sessionhandler.Logouter
	if deps.Auth != nil {
		auth, logouter = deps.Auth, deps.Auth
	}
	authv1.RegisterAuthServiceServer(s, identityhandler.NewAuthServer(auth))
	sessionv1.RegisterSessionServiceServer(s, sessionhandler.NewServer(deps.Sessions, logouter))
	if deps.Health != nil {
		healthpb.RegisterHealthServer(s, deps.Health)
	}
}
