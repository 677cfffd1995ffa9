package grpc

import (
	"context"
	"errors"
	"sort"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/intelliworks/intellihome/internal/common"
	rpc "github.com/intelliworks/intellihome/internal/identityrpc"
	"github.com/intelliworks/intellihome/internal/server/metrics"
	"github.com/intelliworks/intellihome/internal/server/models"
	"github.com/intelliworks/intellihome/internal/server/services"
)

func toUser(u *models.User) rpc.User {
	return rpc.User{
		ID:            u.ID,
		Username:      u.Username,
		Email:         u.Email,
		Phone:         u.Phone,
		FirstName:     u.FirstName,
		LastName:      u.LastName,
		RoleID:        u.RoleID,
		AccountStatus: string(u.Status),
	}
}

// toStatus maps service errors to gRPC statuses. Validation errors carry
// their fields as errdetails.BadRequest violations.
func (s *GRPCServer) toStatus(ctx context.Context, err error) error {
	var verr *common.ValidationError
	switch {
	case errors.As(err, &verr):
		return validationStatus(verr)
	case errors.Is(err, common.ErrorUnauthorized):
		return status.Error(codes.Unauthenticated, "unauthorized")
	case errors.Is(err, common.ErrAccountLocked):
		return status.Error(codes.PermissionDenied, "account locked")
	case errors.Is(err, common.ErrorNotFound):
		return status.Error(codes.NotFound, "not found")
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, "canceled")
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, "deadline exceeded")
	default:
		s.logger.Error(ctx, "internal error", "error", err)
		return status.Error(codes.Internal, "internal error")
	}
}

func validationStatus(verr *common.ValidationError) error {
	names := make([]string, 0, len(verr.Fields))
	for name := range verr.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	br := &errdetails.BadRequest{}
	for _, name := range names {
		br.FieldViolations = append(br.FieldViolations, &errdetails.BadRequest_FieldViolation{
			Field:       name,
			Description: verr.Fields[name],
		})
	}

	st, err := status.New(codes.InvalidArgument, "validation failed").WithDetails(br)
	if err != nil {
		return status.Error(codes.InvalidArgument, verr.Error())
	}
	return st.Err()
}

func (s *GRPCServer) loginAttempt(err error) {
	if s.metrics == nil {
		return
	}
	switch {
	case err == nil:
		s.metrics.LoginAttempt(metrics.LoginSucceeded)
	case errors.Is(err, common.ErrAccountLocked):
		s.metrics.LoginAttempt(metrics.LoginLocked)
	default:
		s.metrics.LoginAttempt(metrics.LoginRejected)
	}
}

func (s *GRPCServer) Register(ctx context.Context, req *rpc.RegisterRequest) (*rpc.RegisterResponse, error) {
	user, err := s.users.Register(ctx, services.Registration{
		Username:           req.Username,
		Email:              req.Email,
		Phone:              req.Phone,
		FirstName:          req.FirstName,
		LastName:           req.LastName,
		BirthDate:          req.BirthDate,
		Address:            req.Address,
		Password:           req.Password,
		RecoveryQuestionID: req.RecoveryQuestionID,
		RecoveryAnswer:     req.RecoveryAnswer,
		AllowBiometric:     req.AllowBiometric,
		Token:              req.Token,
	})
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	s.logger.Info(ctx, "Registered", "user_id", user.ID, "biometric", user.AllowBiometric)
	return &rpc.RegisterResponse{User: toUser(user)}, nil
}

func (s *GRPCServer) Login(ctx context.Context, req *rpc.LoginRequest) (*rpc.LoginResponse, error) {
	res, err := s.users.Login(ctx, req.Identifier, req.Password)
	s.loginAttempt(err)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	return &rpc.LoginResponse{User: toUser(res.User), AccessToken: res.AccessToken}, nil
}

func (s *GRPCServer) LookupByToken(ctx context.Context, req *rpc.LookupByTokenRequest) (*rpc.LookupByTokenResponse, error) {
	user, err := s.users.LookupByToken(ctx, req.Token)
	s.loginAttempt(err)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	return &rpc.LookupByTokenResponse{User: toUser(user)}, nil
}

func (s *GRPCServer) BindToken(ctx context.Context, req *rpc.BindTokenRequest) (*rpc.BindTokenResponse, error) {
	userID, ok := userIDFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}

	if err := s.users.BindToken(ctx, userID, req.Token); err != nil {
		return nil, s.toStatus(ctx, err)
	}

	s.logger.Info(ctx, "Biometric token bound", "user_id", userID)
	return &rpc.BindTokenResponse{}, nil
}

func (s *GRPCServer) GetRecoveryQuestion(ctx context.Context, req *rpc.GetRecoveryQuestionRequest) (*rpc.GetRecoveryQuestionResponse, error) {
	q, err := s.users.RecoveryQuestion(ctx, req.Identifier)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	return &rpc.GetRecoveryQuestionResponse{QuestionID: q.QuestionID, Text: q.Text}, nil
}

func (s *GRPCServer) ResetPassword(ctx context.Context, req *rpc.ResetPasswordRequest) (*rpc.ResetPasswordResponse, error) {
	if err := s.users.ResetPassword(ctx, req.Identifier, req.NewPassword, req.Answer); err != nil {
		return nil, s.toStatus(ctx, err)
	}

	s.logger.Info(ctx, "Password reset")
	return &rpc.ResetPasswordResponse{}, nil
}

func (s *GRPCServer) Ping(ctx context.Context, req *rpc.PingRequest) (*rpc.PingResponse, error) {
	return &rpc.PingResponse{Status: "OK"}, nil
}
