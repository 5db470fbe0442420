package grpc

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/dmitrijs2005/idkeeper/internal/common"
	"github.com/dmitrijs2005/idkeeper/internal/server/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

func info(method string) *grpc.UnaryServerInfo {
	return &grpc.UnaryServerInfo{FullMethod: FullMethod(method)}
}

func TestAccessTokenInterceptor(t *testing.T) {
	s := NewGRPCServer("", nopLogger(), &fakeUsers{})

	cases := []struct {
		name string
		md   metadata.MD
		want string
	}{
		{"none", nil, ""},
		{"access_token", metadata.Pairs(common.AccessTokenHeaderName, "a.b.c"), "a.b.c"},
		{"bearer", metadata.Pairs(common.AuthorizationHeaderName, "Bearer a.b.c"), "a.b.c"},
		{"access_token wins", metadata.Pairs(common.AccessTokenHeaderName, "one", common.AuthorizationHeaderName, "Bearer two"), "one"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			if tc.md != nil {
				ctx = metadata.NewIncomingContext(ctx, tc.md)
			}
			var got string
			_, err := s.accessTokenInterceptor(ctx, nil, info("Profile"), func(ctx context.Context, _ any) (any, error) {
				got = tokenFromContext(ctx)
				return nil, nil
			})
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestRateLimitInterceptor(t *testing.T) {
	m := metrics.New()
	s := NewGRPCServer("", nopLogger(), &fakeUsers{}, WithRateLimit(0.001, 1), WithMetrics(m))

	ctx := peer.NewContext(context.Background(), &peer.Peer{Addr: &net.TCPAddr{IP: net.ParseIP("10.1.2.3"), Port: 4000}})
	ok := func(context.Context, any) (any, error) { return "ok", nil }

	_, err := s.rateLimitInterceptor(ctx, nil, info("ForgotPassword"), ok)
	require.NoError(t, err)

	_, err = s.rateLimitInterceptor(ctx, nil, info("ForgotPassword"), ok)
	assert.Equal(t, codes.ResourceExhausted, status.Code(err))
	n, err := testutil.GatherAndCount(m.Registry(), "idkeeper_grpc_rate_limited_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// gated calls are not throttled
	for i := 0; i < 3; i++ {
		_, err = s.rateLimitInterceptor(ctx, nil, info("Profile"), ok)
		require.NoError(t, err)
	}
}

func TestTimeoutInterceptor(t *testing.T) {
	s := NewGRPCServer("", nopLogger(), &fakeUsers{}, WithRequestTimeout(20*time.Millisecond))

	_, err := s.timeoutInterceptor(context.Background(), nil, info("GetAllUsers"), func(ctx context.Context, _ any) (any, error) {
		deadline, ok := ctx.Deadline()
		require.True(t, ok)
		assert.WithinDuration(t, time.Now().Add(20*time.Millisecond), deadline, 20*time.Millisecond)
		<-ctx.Done()
		return nil, ctx.Err()
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestTimeoutEndToEnd(t *testing.T) {
	users := &fakeUsers{blockOn: make(chan struct{})}
	c := startBufconn(t, NewGRPCServer("", nopLogger(), users, WithRequestTimeout(30*time.Millisecond)))

	_, err := c.Call(withToken("t"), "GetAllUsers", nil)
	assert.Equal(t, codes.DeadlineExceeded, status.Code(err))
}

func TestPeerKey(t *testing.T) {
	assert.Equal(t, "unknown", peerKey(context.Background()))

	ctx := peer.NewContext(context.Background(), &peer.Peer{Addr: &net.TCPAddr{IP: net.ParseIP("192.0.2.7"), Port: 51000}})
	assert.Equal(t, "192.0.2.7", peerKey(ctx))
}

func TestMethodName(t *testing.T) {
	assert.Equal(t, "Login", methodName(FullMethod("Login")))
	assert.Equal(t, "bare", methodName("bare"))
}
