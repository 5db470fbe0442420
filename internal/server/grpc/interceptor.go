package grpc

import (
	"context"
	"net"
	"strings"
	"time"

	"github.com/dmitrijs2005/idkeeper/internal/common"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

type ctxKey string

const accessTokenKey ctxKey = "accessToken"

// rateLimited lists the unauthenticated methods that are throttled per peer.
var rateLimited = map[string]bool{
	FullMethod("Login"):          true,
	FullMethod("ForgotUsername"): true,
	FullMethod("ForgotPassword"): true,
	FullMethod("ResetPassword"):  true,
}

// tokenFromContext returns the raw credential placed by accessTokenInterceptor.
func tokenFromContext(ctx context.Context) string {
	tok, _ := ctx.Value(accessTokenKey).(string)
	return tok
}

// accessTokenInterceptor copies the raw credential from the "access_token"
// metadata key, or from "authorization: Bearer ...", into the context.
// Verification is left to the service.
func (s *GRPCServer) accessTokenInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	var accessToken string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get(common.AccessTokenHeaderName); len(values) > 0 {
			accessToken = values[0]
		} else if values := md.Get(common.AuthorizationHeaderName); len(values) > 0 {
			accessToken = strings.TrimPrefix(values[0], common.BearerPrefix)
		}
	}
	if accessToken != "" {
		ctx = context.WithValue(ctx, accessTokenKey, strings.TrimSpace(accessToken))
	}
	return handler(ctx, req)
}

func (s *GRPCServer) rateLimitInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	if s.limiter == nil || !rateLimited[info.FullMethod] {
		return handler(ctx, req)
	}
	if !s.limiter.allow(peerKey(ctx)) {
		s.metrics.RateLimited(methodName(info.FullMethod))
		s.logger.Warn(ctx, "Rate limit exceeded", "method", info.FullMethod, "peer", peerKey(ctx))
		return nil, status.Error(codes.ResourceExhausted, "too many requests")
	}
	return handler(ctx, req)
}

func (s *GRPCServer) timeoutInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	if s.requestTimeout <= 0 {
		return handler(ctx, req)
	}
	ctx, cancel := context.WithTimeout(ctx, s.requestTimeout)
	defer cancel()
	return handler(ctx, req)
}

// observeInterceptor records metrics and writes one log line per call.
func (s *GRPCServer) observeInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	method := methodName(info.FullMethod)
	done := s.metrics.Start(method)
	start := time.Now()

	resp, err := handler(ctx, req)

	code := status.Code(err)
	done(code.String())
	if err != nil {
		s.logger.Warn(ctx, "Request failed", "method", method, "code", code.String(), "duration", time.Since(start))
	} else {
		s.logger.Info(ctx, "Request served", "method", method, "duration", time.Since(start))
	}
	return resp, err
}

func peerKey(ctx context.Context) string {
	p, ok := peer.FromContext(ctx)
	if !ok || p.Addr == nil {
		return "unknown"
	}
	addr := p.Addr.String()
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}

func methodName(fullMethod string) string {
	if i := strings.LastIndex(fullMethod, "/"); i >= 0 {
		return fullMethod[i+1:]
	}
	return fullMethod
}
