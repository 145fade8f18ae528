// Package sessionv1 defines the tippster.session.v1.SessionService messages and gRPC bindings.
// Every method acts on the caller identified by the access token; RevokeUserSessions is admin only.
package sessionv1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	_ "social-tippster/backend/internal/platform/jsoncodec"
)

const (
	ServiceName                                      = "tippster.session.v1.SessionService"
	SessionService_Heartbeat_FullMethodName          = "/" + ServiceName + "/Heartbeat"
	SessionService_Extend_FullMethodName             = "/" + ServiceName + "/Extend"
	SessionService_Logout_FullMethodName             = "/" + ServiceName + "/Logout"
	SessionService_LogoutAll_FullMethodName          = "/" + ServiceName + "/LogoutAll"
	SessionService_ListSessions_FullMethodName       = "/" + ServiceName + "/ListSessions"
	SessionService_RevokeUserSessions_FullMethodName = "/" + ServiceName + "/RevokeUserSessions"
)

// Session is the public view of a login session. Times are unix seconds; zero means unset.
type Session struct {
	Id             string `json:"id"`
	UserId         string `json:"user_id"`
	IsActive       bool   `json:"is_active"`
	SessionStart   int64  `json:"session_start"`
	SessionEnd     int64  `json:"session_end,omitempty"`
	LastActivity   int64  `json:"last_activity"`
	ActivityCount  int64  `json:"activity_count"`
	ExtendedAt     int64  `json:"extended_at,omitempty"`
	ExtensionCount int32  `json:"extension_count"`
	ExpiryReason   string `json:"expiry_reason,omitempty"`
	RememberMe     bool   `json:"remember_me,omitempty"`
	IpAddress      string `json:"ip_address,omitempty"`
	UserAgent      string `json:"user_agent,omitempty"`
}

// HeartbeatRequest records activity on the caller's session; SessionId defaults to the token's sid.
type HeartbeatRequest struct {
	SessionId string `json:"session_id,omitempty"`
}

type HeartbeatResponse struct {
	SessionId                string `json:"session_id"`
	IsActive                 bool   `json:"is_active"`
	IsIdle                   bool   `json:"is_idle"`
	IdleRemainingSeconds     int64  `json:"idle_remaining_seconds"`
	AbsoluteRemainingSeconds int64  `json:"absolute_remaining_seconds"`
	ExpiryReason             string `json:"expiry_reason,omitempty"`
	LastActivity             int64  `json:"last_activity"`
	ActivityCount            int64  `json:"activity_count"`
}

type ExtendRequest struct {
	SessionId      string `json:"session_id,omitempty"`
	ExtensionHours int32  `json:"extension_hours"`
}

type ExtendResponse struct {
	Session *Session `json:"session"`
}

type LogoutRequest struct {
	SessionId string `json:"session_id,omitempty"`
}

type LogoutResponse struct{}

type LogoutAllRequest struct{}

type LogoutAllResponse struct {
	DevicesLoggedOut int32 `json:"devices_logged_out"`
}

type ListSessionsRequest struct{}

type ListSessionsResponse struct {
	Sessions []*Session `json:"sessions"`
}

type RevokeUserSessionsRequest struct {
	UserId string `json:"user_id"`
}

type RevokeUserSessionsResponse struct {
	SessionsRevoked int32 `json:"sessions_revoked"`
}

func (x *HeartbeatRequest) GetSessionId() string {
	if x != nil {
		return x.SessionId
	}
	return ""
}

func (x *ExtendRequest) GetSessionId() string {
	if x != nil {
		return x.SessionId
	}
	return ""
}

func (x *ExtendRequest) GetExtensionHours() int32 {
	if x != nil {
		return x.ExtensionHours
	}
	return 0
}

func (x *LogoutRequest) GetSessionId() string {
	if x != nil {
		return x.SessionId
	}
	return ""
}

func (x *RevokeUserSessionsRequest) GetUserId() string {
	if x != nil {
		return x.UserId
	}
	return ""
}

// SessionServiceServer is the server API for SessionService.
type SessionServiceServer interface {
	Heartbeat(context.Context, *HeartbeatRequest) (*HeartbeatResponse, error)
	Extend(context.Context, *ExtendRequest) (*ExtendResponse, error)
	Logout(context.Context, *LogoutRequest) (*LogoutResponse, error)
	LogoutAll(context.Context, *LogoutAllRequest) (*LogoutAllResponse, error)
	ListSessions(context.Context, *ListSessionsRequest) (*ListSessionsResponse, error)
	RevokeUserSessions(context.Context, *RevokeUserSessionsRequest) (*RevokeUserSessionsResponse, error)
}

// UnimplementedSessionServiceServer returns Unimplemented for every method.
type UnimplementedSessionServiceServer struct{}

func (UnimplementedSessionServiceServer) Heartbeat(context.Context, *HeartbeatRequest) (*HeartbeatResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Heartbeat not implemented")
}
func (UnimplementedSessionServiceServer) Extend(context.Context, *ExtendRequest) (*ExtendResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Extend not implemented")
}
func (UnimplementedSessionServiceServer) Logout(context.Context, *LogoutRequest) (*LogoutResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Logout not implemented")
}
func (UnimplementedSessionServiceServer) LogoutAll(context.Context, *LogoutAllRequest) (*LogoutAllResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method LogoutAll not implemented")
}
func (UnimplementedSessionServiceServer) ListSessions(context.Context, *ListSessionsRequest) (*ListSessionsResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ListSessions not implemented")
}
func (UnimplementedSessionServiceServer) RevokeUserSessions(context.Context, *RevokeUserSessionsRequest) (*RevokeUserSessionsResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method RevokeUserSessions not implemented")
}

// RegisterSessionServiceServer registers srv on s.
func RegisterSessionServiceServer(s grpc.ServiceRegistrar, srv SessionServiceServer) {
	s.RegisterService(&SessionService_ServiceDesc, srv)
}

// unaryHandler builds a MethodDesc handler for one method. call adapts the typed method.
func unaryHandler[Req any](fullMethod string, call func(SessionServiceServer, context.Context, *Req) (interface{}, error)) func(interface{}, context.Context, func(interface{}) error, grpc.UnaryServerInterceptor) (interface{}, error) {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(SessionServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(SessionServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// SessionService_ServiceDesc is the grpc.ServiceDesc for SessionService.
var SessionService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SessionServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Heartbeat", Handler: unaryHandler(SessionService_Heartbeat_FullMethodName,
			func(s SessionServiceServer, ctx context.Context, in *HeartbeatRequest) (interface{}, error) {
				return s.Heartbeat(ctx, in)
			})},
		{MethodName: "Extend", Handler: unaryHandler(SessionService_Extend_FullMethodName,
			func(s SessionServiceServer, ctx context.Context, in *ExtendRequest) (interface{}, error) {
				return s.Extend(ctx, in)
			})},
		{MethodName: "Logout", Handler: unaryHandler(SessionService_Logout_FullMethodName,
			func(s SessionServiceServer, ctx context.Context, in *LogoutRequest) (interface{}, error) {
				return s.Logout(ctx, in)
			})},
		{MethodName: "LogoutAll", Handler: unaryHandler(SessionService_LogoutAll_FullMethodName,
			func(s SessionServiceServer, ctx context.Context, in *LogoutAllRequest) (interface{}, error) {
				return s.LogoutAll(ctx, in)
			})},
		{MethodName: "ListSessions", Handler: unaryHandler(SessionService_ListSessions_FullMethodName,
			func(s SessionServiceServer, ctx context.Context, in *ListSessionsRequest) (interface{}, error) {
				return s.ListSessions(ctx, in)
			})},
		{MethodName: "RevokeUserSessions", Handler: unaryHandler(SessionService_RevokeUserSessions_FullMethodName,
			func(s SessionServiceServer, ctx context.Context, in *RevokeUserSessionsRequest) (interface{}, error) {
				return s.RevokeUserSessions(ctx, in)
			})},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "session/v1/session.json",
}

// SessionServiceClient is the client API for SessionService.
type SessionServiceClient interface {
	Heartbeat(ctx context.Context, in *HeartbeatRequest, opts ...grpc.CallOption) (*HeartbeatResponse, error)
	Extend(ctx context.Context, in *ExtendRequest, opts ...grpc.CallOption) (*ExtendResponse, error)
	Logout(ctx context.Context, in *LogoutRequest, opts ...grpc.CallOption) (*LogoutResponse, error)
	LogoutAll(ctx context.Context, in *LogoutAllRequest, opts ...grpc.CallOption) (*LogoutAllResponse, error)
	ListSessions(ctx context.Context, in *ListSessionsRequest, opts ...grpc.CallOption) (*ListSessionsResponse, error)
	RevokeUserSessions(ctx context.Context, in *RevokeUserSessionsRequest, opts ...grpc.CallOption) (*RevokeUserSessionsResponse, error)
}

type sessionServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewSessionServiceClient returns a client that sends every call with the json content subtype.
func NewSessionServiceClient(cc grpc.ClientConnInterface) SessionServiceClient {
	return &sessionServiceClient{cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in interface{}, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype("json")}, opts...)
	if err := cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *sessionServiceClient) Heartbeat(ctx context.Context, in *HeartbeatRequest, opts ...grpc.CallOption) (*HeartbeatResponse, error) {
	return invoke[HeartbeatResponse](ctx, c.cc, SessionService_Heartbeat_FullMethodName, in, opts)
}

func (c *sessionServiceClient) Extend(ctx context.Context, in *ExtendRequest, opts ...grpc.CallOption) (*ExtendResponse, error) {
	return invoke[ExtendResponse](ctx, c.cc, SessionService_Extend_FullMethodName, in, opts)
}

func (c *sessionServiceClient) Logout(ctx context.Context, in *LogoutRequest, opts ...grpc.CallOption) (*LogoutResponse, error) {
	return invoke[LogoutResponse](ctx, c.cc, SessionService_Logout_FullMethodName, in, opts)
}

func (c *sessionServiceClient) LogoutAll(ctx context.Context, in *LogoutAllRequest, opts ...grpc.CallOption) (*LogoutAllResponse, error) {
	return invoke[LogoutAllResponse](ctx, c.cc, SessionService_LogoutAll_FullMethodName, in, opts)
}

func (c *sessionServiceClient) ListSessions(ctx context.Context, in *ListSessionsRequest, opts ...grpc.CallOption) (*ListSessionsResponse, error) {
	return invoke[ListSessionsResponse](ctx, c.cc, SessionService_ListSessions_FullMethodName, in, opts)
}

func (c *sessionServiceClient) RevokeUserSessions(ctx context.Context, in *RevokeUserSessionsRequest, opts ...grpc.CallOption) (*RevokeUserSessionsResponse, error) {
	return invoke[RevokeUserSessionsResponse](ctx, c.cc, SessionService_RevokeUserSessions_FullMethodName, in, opts)
}
