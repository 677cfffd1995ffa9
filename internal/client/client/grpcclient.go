package client

import (
	"context"
	"fmt"
	"time"

	"github.com/intelliworks/intellihome/internal/client/models"
	"github.com/intelliworks/intellihome/internal/common"
	rpc "github.com/intelliworks/intellihome/internal/identityrpc"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const birthDateLayout = "2006-01-02"

type GRPCClient struct {
	endpointURL string
	timeout     time.Duration
	conn        *grpc.ClientConn
	client      rpc.IdentityServiceClient
}

// NewGRPCClient connects lazily to the identity service at endpointURL
// using creds (see TransportCredentials). A positive timeout bounds every
// call that has no deadline of its own. Extra dial options are appended
// after the defaults.
func NewGRPCClient(endpointURL string, timeout time.Duration, creds credentials.TransportCredentials, opts ...grpc.DialOption) (*GRPCClient, error) {
	c := &GRPCClient{endpointURL: endpointURL, timeout: timeout}

	dialOpts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(creds),
		grpc.WithUnaryInterceptor(c.timeoutInterceptor),
	}, opts...)

	conn, err := grpc.NewClient(endpointURL, dialOpts...)
	if err != nil {
		return nil, err
	}
	c.conn = conn
	c.client = rpc.NewIdentityServiceClient(conn)
	return c, nil
}

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Set(common.AccessTokenHeaderName, token)

	return metadata.NewOutgoingContext(ctx, md)
}

func (s *GRPCClient) timeoutInterceptor(
	ctx context.Context,
	method string,
	req, reply any,
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	if _, ok := ctx.Deadline(); !ok && s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	return invoker(ctx, method, req, reply, cc, opts...)
}

func (s *GRPCClient) Register(ctx context.Context, reg models.Registration) (*models.Identity, error) {
	req := &rpc.RegisterRequest{
		Username:           reg.Username,
		Email:              reg.Email,
		Phone:              reg.Phone,
		FirstName:          reg.FirstName,
		LastName:           reg.LastName,
		Address:            reg.Address,
		Password:           reg.Password,
		RecoveryQuestionID: reg.RecoveryQuestionID,
		RecoveryAnswer:     reg.RecoveryAnswer,
		AllowBiometric:     reg.AllowBiometric,
	}
	if !reg.BirthDate.IsZero() {
		req.BirthDate = reg.BirthDate.Format(birthDateLayout)
	}
	if reg.AllowBiometric {
		req.Token = reg.Token
	}

	resp, err := s.client.Register(ctx, req)
	if err != nil {
		return nil, s.mapError(err)
	}
	id := toIdentity(resp.User)
	return &id, nil
}

func (s *GRPCClient) Login(ctx context.Context, identifier, password string) (*models.Session, error) {
	resp, err := s.client.Login(ctx, &rpc.LoginRequest{Identifier: identifier, Password: password})
	if err != nil {
		return nil, s.mapError(err)
	}
	return &models.Session{Identity: toIdentity(resp.User), AccessToken: resp.AccessToken}, nil
}

func (s *GRPCClient) LookupByToken(ctx context.Context, token string) (*models.Identity, error) {
	resp, err := s.client.LookupByToken(ctx, &rpc.LookupByTokenRequest{Token: token})
	if err != nil {
		return nil, s.mapError(err)
	}
	id := toIdentity(resp.User)
	return &id, nil
}

func (s *GRPCClient) BindToken(ctx context.Context, accessToken, token string) error {
	_, err := s.client.BindToken(withAccessToken(ctx, accessToken), &rpc.BindTokenRequest{Token: token})
	if err != nil {
		return s.mapError(err)
	}
	return nil
}

func (s *GRPCClient) RecoveryQuestion(ctx context.Context, identifier string) (*models.RecoveryQuestion, error) {
	resp, err := s.client.GetRecoveryQuestion(ctx, &rpc.GetRecoveryQuestionRequest{Identifier: identifier})
	if err != nil {
		return nil, s.mapError(err)
	}
	return &models.RecoveryQuestion{Identifier: identifier, QuestionID: resp.QuestionID, Text: resp.Text}, nil
}

func (s *GRPCClient) ResetPassword(ctx context.Context, identifier, newPassword, answer string) error {
	req := &rpc.ResetPasswordRequest{Identifier: identifier, NewPassword: newPassword, Answer: answer}
	if _, err := s.client.ResetPassword(ctx, req); err != nil {
		return s.mapError(err)
	}
	return nil
}

func (s *GRPCClient) Ping(ctx context.Context) error {
	resp, err := s.client.Ping(ctx, &rpc.PingRequest{})
	if err != nil {
		return s.mapError(err)
	}

	if resp.Status != "OK" {
		return ErrUnavailable
	}

	return nil
}

func (s *GRPCClient) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

func toIdentity(u rpc.User) models.Identity {
	return models.Identity{
		ID:            u.ID,
		Username:      u.Username,
		Email:         u.Email,
		Phone:         u.Phone,
		FirstName:     u.FirstName,
		LastName:      u.LastName,
		RoleID:        u.RoleID,
		AccountStatus: u.AccountStatus,
	}
}

func (s *GRPCClient) mapError(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return fmt.Errorf("rpc error: %w", err)
	}
	switch st.Code() {
	case codes.Unauthenticated:
		return ErrUnauthorized
	case codes.PermissionDenied:
		return ErrAccountLocked
	case codes.NotFound:
		return ErrNotFound
	case codes.Unavailable, codes.DeadlineExceeded:
		return ErrUnavailable
	case codes.InvalidArgument:
		if verr := validationFromStatus(st); verr != nil {
			return verr
		}
		return &common.ValidationError{Fields: map[string]string{"": st.Message()}}
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}

func validationFromStatus(st *status.Status) error {
	fields := map[string]string{}
	for _, d := range st.Details() {
		br, ok := d.(*errdetails.BadRequest)
		if !ok {
			continue
		}
		for _, v := range br.GetFieldViolations() {
			fields[v.GetField()] = v.GetDescription()
		}
	}
	return common.NewValidationError(fields)
}
