package identityrpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const ServiceName = "intellihome.identity.IdentityService"

const (
	RegisterMethod            = "/" + ServiceName + "/Register"
	LoginMethod               = "/" + ServiceName + "/Login"
	LookupByTokenMethod       = "/" + ServiceName + "/LookupByToken"
	BindTokenMethod           = "/" + ServiceName + "/BindToken"
	GetRecoveryQuestionMethod = "/" + ServiceName + "/GetRecoveryQuestion"
	ResetPasswordMethod       = "/" + ServiceName + "/ResetPassword"
	PingMethod                = "/" + ServiceName + "/Ping"
)

// IdentityServiceServer is implemented by the identity server.
type IdentityServiceServer interface {
	Register(context.Context, *RegisterRequest) (*RegisterResponse, error)
	Login(context.Context, *LoginRequest) (*LoginResponse, error)
	LookupByToken(context.Context, *LookupByTokenRequest) (*LookupByTokenResponse, error)
	BindToken(context.Context, *BindTokenRequest) (*BindTokenResponse, error)
	GetRecoveryQuestion(context.Context, *GetRecoveryQuestionRequest) (*GetRecoveryQuestionResponse, error)
	ResetPassword(context.Context, *ResetPasswordRequest) (*ResetPasswordResponse, error)
	Ping(context.Context, *PingRequest) (*PingResponse, error)
}

// UnimplementedIdentityServiceServer answers every method with
// codes.Unimplemented. Embed it to stay forward compatible.
type UnimplementedIdentityServiceServer struct{}

func (UnimplementedIdentityServiceServer) Register(context.Context, *RegisterRequest) (*RegisterResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Register not implemented")
}
func (UnimplementedIdentityServiceServer) Login(context.Context, *LoginRequest) (*LoginResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Login not implemented")
}
func (UnimplementedIdentityServiceServer) LookupByToken(context.Context, *LookupByTokenRequest) (*LookupByTokenResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method LookupByToken not implemented")
}
func (UnimplementedIdentityServiceServer) BindToken(context.Context, *BindTokenRequest) (*BindTokenResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method BindToken not implemented")
}
func (UnimplementedIdentityServiceServer) GetRecoveryQuestion(context.Context, *GetRecoveryQuestionRequest) (*GetRecoveryQuestionResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetRecoveryQuestion not implemented")
}
func (UnimplementedIdentityServiceServer) ResetPassword(context.Context, *ResetPasswordRequest) (*ResetPasswordResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ResetPassword not implemented")
}
func (UnimplementedIdentityServiceServer) Ping(context.Context, *PingRequest) (*PingResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Ping not implemented")
}

func RegisterIdentityServiceServer(s grpc.ServiceRegistrar, srv IdentityServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// unaryHandler adapts a typed method to grpc.MethodDesc.Handler.
func unaryHandler[Req any, Resp any](fullMethod string, call func(IdentityServiceServer, context.Context, *Req) (*Resp, error)) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(IdentityServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(IdentityServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*IdentityServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Register", Handler: unaryHandler(RegisterMethod, IdentityServiceServer.Register)},
		{MethodName: "Login", Handler: unaryHandler(LoginMethod, IdentityServiceServer.Login)},
		{MethodName: "LookupByToken", Handler: unaryHandler(LookupByTokenMethod, IdentityServiceServer.LookupByToken)},
		{MethodName: "BindToken", Handler: unaryHandler(BindTokenMethod, IdentityServiceServer.BindToken)},
		{MethodName: "GetRecoveryQuestion", Handler: unaryHandler(GetRecoveryQuestionMethod, IdentityServiceServer.GetRecoveryQuestion)},
		{MethodName: "ResetPassword", Handler: unaryHandler(ResetPasswordMethod, IdentityServiceServer.ResetPassword)},
		{MethodName: "Ping", Handler: unaryHandler(PingMethod, IdentityServiceServer.Ping)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "intellihome/identity.json",
}

// IdentityServiceClient is the client stub of the identity service.
type IdentityServiceClient interface {
	Register(ctx context.Context, in *RegisterRequest, opts ...grpc.CallOption) (*RegisterResponse, error)
	Login(ctx context.Context, in *LoginRequest, opts ...grpc.CallOption) (*LoginResponse, error)
	LookupByToken(ctx context.Context, in *LookupByTokenRequest, opts ...grpc.CallOption) (*LookupByTokenResponse, error)
	BindToken(ctx context.Context, in *BindTokenRequest, opts ...grpc.CallOption) (*BindTokenResponse, error)
	GetRecoveryQuestion(ctx context.Context, in *GetRecoveryQuestionRequest, opts ...grpc.CallOption) (*GetRecoveryQuestionResponse, error)
	ResetPassword(ctx context.Context, in *ResetPasswordRequest, opts ...grpc.CallOption) (*ResetPasswordResponse, error)
	Ping(ctx context.Context, in *PingRequest, opts ...grpc.CallOption) (*PingResponse, error)
}

type identityServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewIdentityServiceClient(cc grpc.ClientConnInterface) IdentityServiceClient {
	return &identityServiceClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *identityServiceClient) Register(ctx context.Context, in *RegisterRequest, opts ...grpc.CallOption) (*RegisterResponse, error) {
	return invoke[RegisterResponse](ctx, c.cc, RegisterMethod, in, opts)
}

func (c *identityServiceClient) Login(ctx context.Context, in *LoginRequest, opts ...grpc.CallOption) (*LoginResponse, error) {
	return invoke[LoginResponse](ctx, c.cc, LoginMethod, in, opts)
}

func (c *identityServiceClient) LookupByToken(ctx context.Context, in *LookupByTokenRequest, opts ...grpc.CallOption) (*LookupByTokenResponse, error) {
	return invoke[LookupByTokenResponse](ctx, c.cc, LookupByTokenMethod, in, opts)
}

func (c *identityServiceClient) BindToken(ctx context.Context, in *BindTokenRequest, opts ...grpc.CallOption) (*BindTokenResponse, error) {
	return invoke[BindTokenResponse](ctx, c.cc, BindTokenMethod, in, opts)
}

func (c *identityServiceClient) GetRecoveryQuestion(ctx context.Context, in *GetRecoveryQuestionRequest, opts ...grpc.CallOption) (*GetRecoveryQuestionResponse, error) {
	return invoke[GetRecoveryQuestionResponse](ctx, c.cc, GetRecoveryQuestionMethod, in, opts)
}

func (c *identityServiceClient) ResetPassword(ctx context.Context, in *ResetPasswordRequest, opts ...grpc.CallOption) (*ResetPasswordResponse, error) {
	return invoke[ResetPasswordResponse](ctx, c.cc, ResetPasswordMethod, in, opts)
}

func (c *identityServiceClient) Ping(ctx context.Context, in *PingRequest, opts ...grpc.CallOption) (*PingResponse, error) {
	return invoke[PingResponse](ctx, c.cc, PingMethod, in, opts)
}
