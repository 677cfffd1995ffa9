// Package grpc serves the identity service over gRPC.
package grpc

import (
	"context"
	"errors"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"

	rpc "github.com/intelliworks/intellihome/internal/identityrpc"
	"github.com/intelliworks/intellihome/internal/logging"
	"github.com/intelliworks/intellihome/internal/server/metrics"
	"github.com/intelliworks/intellihome/internal/server/models"
	"github.com/intelliworks/intellihome/internal/server/services"
)

// userService is the part of services.UserService the handlers call.
type userService interface {
	Register(ctx context.Context, reg services.Registration) (*models.User, error)
	Login(ctx context.Context, identifier, password string) (*services.LoginResult, error)
	LookupByToken(ctx context.Context, token string) (*models.User, error)
	BindToken(ctx context.Context, userID, token string) error
	RecoveryQuestion(ctx context.Context, identifier string) (*services.RecoveryQuestion, error)
	ResetPassword(ctx context.Context, identifier, newPassword, answer string) error
}

// ErrTLSNotConfigured is returned by ServerCredentials when neither a
// certificate nor the plaintext opt-out is configured.
var ErrTLSNotConfigured = errors.New("TLS certificate and key are required unless insecure mode is set")

type GRPCServer struct {
	rpc.UnimplementedIdentityServiceServer
	address    string
	users      userService
	logger     logging.Logger
	metrics    *metrics.Metrics
	jwtSecret  []byte
	serverOpts []grpc.ServerOption
}

// NewGRPCServer builds the server. m may be nil to run without metrics.
// opts are passed to grpc.NewServer, typically grpc.Creds.
func NewGRPCServer(a string, l logging.Logger, us userService, m *metrics.Metrics, secretKey string, opts ...grpc.ServerOption) *GRPCServer {
	return &GRPCServer{
		address:    a,
		logger:     l.With("module", "grpc_server"),
		users:      us,
		metrics:    m,
		jwtSecret:  []byte(secretKey),
		serverOpts: opts,
	}
}

// ServerCredentials loads the TLS key pair of the endpoint. Plaintext is
// returned only when insecureTransport is set.
func ServerCredentials(certFile, keyFile string, insecureTransport bool) (credentials.TransportCredentials, error) {
	if insecureTransport {
		return insecure.NewCredentials(), nil
	}
	if certFile == "" || keyFile == "" {
		return nil, ErrTLSNotConfigured
	}
	return credentials.NewServerTLSFromFile(certFile, keyFile)
}

// newServer creates the grpc.Server with the interceptor chain and the
// identity service registered.
func (s *GRPCServer) newServer() *grpc.Server {
	interceptors := []grpc.UnaryServerInterceptor{s.recoveryInterceptor}
	if s.metrics != nil {
		interceptors = append(interceptors, s.metrics.UnaryServerInterceptor())
	}
	interceptors = append(interceptors, s.loggingInterceptor, s.accessTokenInterceptor)

	opts := append([]grpc.ServerOption{grpc.ChainUnaryInterceptor(interceptors...)}, s.serverOpts...)
	srv := grpc.NewServer(opts...)
	rpc.RegisterIdentityServiceServer(srv, s)
	return srv
}

// Serve accepts connections on lis until ctx is done.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := s.newServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	return srv.Serve(lis)
}

func (s *GRPCServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}
