package grpc

import (
	"context"
	"time"

	"github.com/dmitrijs2005/idkeeper/internal/server/auth"
	"github.com/dmitrijs2005/idkeeper/internal/server/models"
	"github.com/dmitrijs2005/idkeeper/internal/server/services"
	"google.golang.org/protobuf/types/known/structpb"
)

// UserService is the account logic the handlers delegate to.
type UserService interface {
	Login(ctx context.Context, username, password string) (*services.LoginResult, error)
	RegisterUser(ctx context.Context, callerToken string, in services.UserInput) (*models.User, error)
	UpdateUser(ctx context.Context, token string, in services.UpdateInput) (*models.User, error)
	GetAllITStaff(ctx context.Context, token string) ([]*models.User, error)
	GetAllUsers(ctx context.Context, token string) ([]*models.User, error)
	Profile(ctx context.Context, token string) (*models.User, error)
	DelUser(ctx context.Context, token, username string) ([]*models.User, error)
	GetUserByEmail(ctx context.Context, token, email string) (*models.User, error)
	CheckUsername(ctx context.Context, username string) (bool, error)
	ForgotUsername(ctx context.Context, email string) error
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, resetToken, newPassword string) error
	VerifyToken(ctx context.Context, token string) (auth.Principal, error)
}

var _ UserService = (*services.UserService)(nil)
var _ IdentityServer = (*GRPCServer)(nil)

func (s *GRPCServer) Login(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req := newRequest(in)
	username, password := req.str("username"), req.str("password")
	if req.err != nil {
		return nil, req.err
	}

	result, err := s.users.Login(ctx, username, password)
	if err != nil {
		return nil, s.toStatus(ctx, "Login", err)
	}

	resp := userResponse(result.User)
	resp.Fields["access_token"] = structpb.NewStringValue(result.Token)
	resp.Fields["expires_at"] = structpb.NewStringValue(result.ExpiresAt.UTC().Format(time.RFC3339))
	return resp, nil
}

func (s *GRPCServer) RegisterUser(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req := newRequest(in)
	input := req.userInput()
	if req.err != nil {
		return nil, req.err
	}

	user, err := s.users.RegisterUser(ctx, tokenFromContext(ctx), input)
	if err != nil {
		return nil, s.toStatus(ctx, "RegisterUser", err)
	}
	s.logger.Info(ctx, "Registered", "username", user.UserName)
	return userResponse(user), nil
}

func (s *GRPCServer) UpdateUser(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req := newRequest(in)
	input := req.updateInput()
	if req.err != nil {
		return nil, req.err
	}

	user, err := s.users.UpdateUser(ctx, tokenFromContext(ctx), input)
	if err != nil {
		return nil, s.toStatus(ctx, "UpdateUser", err)
	}
	return userResponse(user), nil
}

func (s *GRPCServer) GetAllITStaff(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	users, err := s.users.GetAllITStaff(ctx, tokenFromContext(ctx))
	if err != nil {
		return nil, s.toStatus(ctx, "GetAllITStaff", err)
	}
	return usersResponse(users), nil
}

func (s *GRPCServer) GetAllUsers(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	users, err := s.users.GetAllUsers(ctx, tokenFromContext(ctx))
	if err != nil {
		return nil, s.toStatus(ctx, "GetAllUsers", err)
	}
	return usersResponse(users), nil
}

func (s *GRPCServer) Profile(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	user, err := s.users.Profile(ctx, tokenFromContext(ctx))
	if err != nil {
		return nil, s.toStatus(ctx, "Profile", err)
	}
	return userResponse(user), nil
}

func (s *GRPCServer) DelUser(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req := newRequest(in)
	username := req.str("username")
	if req.err != nil {
		return nil, req.err
	}

	users, err := s.users.DelUser(ctx, tokenFromContext(ctx), username)
	if err != nil {
		return nil, s.toStatus(ctx, "DelUser", err)
	}
	s.logger.Info(ctx, "Deleted", "username", username)
	return usersResponse(users), nil
}

func (s *GRPCServer) GetUserByEmail(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req := newRequest(in)
	email := req.str("email")
	if req.err != nil {
		return nil, req.err
	}

	user, err := s.users.GetUserByEmail(ctx, tokenFromContext(ctx), email)
	if err != nil {
		return nil, s.toStatus(ctx, "GetUserByEmail", err)
	}
	return userResponse(user), nil
}

func (s *GRPCServer) CheckUsername(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req := newRequest(in)
	username := req.str("username")
	if req.err != nil {
		return nil, req.err
	}

	taken, err := s.users.CheckUsername(ctx, username)
	if err != nil {
		return nil, s.toStatus(ctx, "CheckUsername", err)
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"exists": structpb.NewBoolValue(taken),
	}}, nil
}

func (s *GRPCServer) ForgotUsername(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req := newRequest(in)
	email := req.str("email")
	if req.err != nil {
		return nil, req.err
	}

	if err := s.users.ForgotUsername(ctx, email); err != nil {
		return nil, s.toStatus(ctx, "ForgotUsername", err)
	}
	return okResponse("if the address is registered, the username has been sent"), nil
}

func (s *GRPCServer) ForgotPassword(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req := newRequest(in)
	email := req.str("email")
	if req.err != nil {
		return nil, req.err
	}

	if err := s.users.ForgotPassword(ctx, email); err != nil {
		return nil, s.toStatus(ctx, "ForgotPassword", err)
	}
	return okResponse("password reset link sent"), nil
}

// ResetPassword takes the reset token from the "token" field, as it arrives
// in the mailed link, falling back to the request credential.
func (s *GRPCServer) ResetPassword(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req := newRequest(in)
	token, password := req.str("token"), req.str("password")
	if req.err != nil {
		return nil, req.err
	}
	if token == "" {
		token = tokenFromContext(ctx)
	}

	if err := s.users.ResetPassword(ctx, token, password); err != nil {
		return nil, s.toStatus(ctx, "ResetPassword", err)
	}
	return okResponse("password has been reset"), nil
}

func (s *GRPCServer) VerifyToken(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req := newRequest(in)
	token := req.str("token")
	if req.err != nil {
		return nil, req.err
	}
	if token == "" {
		token = tokenFromContext(ctx)
	}

	p, err := s.users.VerifyToken(ctx, token)
	if err != nil {
		return nil, s.toStatus(ctx, "VerifyToken", err)
	}
	return principalResponse(p), nil
}
