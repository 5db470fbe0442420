package grpc

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/dmitrijs2005/idkeeper/internal/logging"
	"github.com/dmitrijs2005/idkeeper/internal/server/auth"
	"github.com/dmitrijs2005/idkeeper/internal/server/models"
	"github.com/dmitrijs2005/idkeeper/internal/server/services"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"
)

func nopLogger() logging.Logger {
	return logging.Nop()
}

// fakeUsers answers with whatever the test wires into its fields and keeps
// the last token and inputs it saw.
type fakeUsers struct {
	lastToken  string
	lastInput  services.UserInput
	lastUpdate services.UpdateInput

	login   func(username, password string) (*services.LoginResult, error)
	user    *models.User
	users   []*models.User
	taken   bool
	princ   auth.Principal
	err     error
	blockOn chan struct{}
}

func (f *fakeUsers) Login(_ context.Context, username, password string) (*services.LoginResult, error) {
	if f.login != nil {
		return f.login(username, password)
	}
	if f.err != nil {
		return nil, f.err
	}
	return &services.LoginResult{User: f.user, Token: "a.b.c", ExpiresAt: time.Date(2026, 3, 1, 19, 0, 0, 0, time.UTC)}, nil
}

func (f *fakeUsers) RegisterUser(_ context.Context, token string, in services.UserInput) (*models.User, error) {
	f.lastToken, f.lastInput = token, in
	return f.user, f.err
}

func (f *fakeUsers) UpdateUser(_ context.Context, token string, in services.UpdateInput) (*models.User, error) {
	f.lastToken, f.lastUpdate = token, in
	return f.user, f.err
}

func (f *fakeUsers) GetAllITStaff(_ context.Context, token string) ([]*models.User, error) {
	f.lastToken = token
	return f.users, f.err
}

func (f *fakeUsers) GetAllUsers(ctx context.Context, token string) ([]*models.User, error) {
	f.lastToken = token
	if f.blockOn != nil {
		select {
		case <-f.blockOn:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.users, f.err
}

func (f *fakeUsers) Profile(_ context.Context, token string) (*models.User, error) {
	f.lastToken = token
	return f.user, f.err
}

func (f *fakeUsers) DelUser(_ context.Context, token, _ string) ([]*models.User, error) {
	f.lastToken = token
	return f.users, f.err
}

func (f *fakeUsers) GetUserByEmail(_ context.Context, token, _ string) (*models.User, error) {
	f.lastToken = token
	return f.user, f.err
}

func (f *fakeUsers) CheckUsername(context.Context, string) (bool, error) {
	return f.taken, f.err
}

func (f *fakeUsers) ForgotUsername(context.Context, string) error { return f.err }
func (f *fakeUsers) ForgotPassword(context.Context, string) error { return f.err }

func (f *fakeUsers) ResetPassword(_ context.Context, token, _ string) error {
	f.lastToken = token
	return f.err
}

func (f *fakeUsers) VerifyToken(_ context.Context, token string) (auth.Principal, error) {
	f.lastToken = token
	return f.princ, f.err
}

// startBufconn serves s over an in-memory listener and returns a client.
func startBufconn(t *testing.T, s *GRPCServer) *Client {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, lis) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = conn.Close()
		cancel()
		<-done
	})
	return NewClient(conn)
}

func alice() *models.User {
	return &models.User{
		ID:           "u-1",
		UserName:     "alice",
		Email:        "alice@example.com",
		FirstName:    "Alice",
		Roles:        []models.Role{models.RoleAdmin},
		Certificates: []string{"CKA"},
		PasswordHash: []byte("hash"),
		PasswordSalt: []byte("salt"),
		ResetToken:   "pending.reset.token",
	}
}
