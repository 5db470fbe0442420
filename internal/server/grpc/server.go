// Package grpc exposes the user service as idkeeper.v1.IdentityService.
// Messages are google.protobuf.Struct values, so no generated code is needed
// on either side.
package grpc

import (
	"context"
	"net"
	"time"

	"github.com/dmitrijs2005/idkeeper/internal/logging"
	"github.com/dmitrijs2005/idkeeper/internal/server/metrics"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
)

type GRPCServer struct {
	address        string
	users          UserService
	logger         logging.Logger
	metrics        *metrics.Metrics
	limiter        *peerLimiter
	requestTimeout time.Duration
}

type Option func(*GRPCServer)

// WithRateLimit throttles the unauthenticated recovery and login methods
// to perSecond requests per peer with the given burst.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(s *GRPCServer) {
		if perSecond > 0 && burst > 0 {
			s.limiter = newPeerLimiter(perSecond, burst)
		}
	}
}

// WithRequestTimeout bounds every call.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *GRPCServer) { s.requestTimeout = d }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *GRPCServer) { s.metrics = m }
}

func NewGRPCServer(address string, l logging.Logger, us UserService, opts ...Option) *GRPCServer {
	s := &GRPCServer{
		address: address,
		users:   us,
		logger:  l.With("module", "grpc_server"),
	}
	for _, o := range opts {
		o(s)
	}
	if s.metrics == nil {
		s.metrics = metrics.New()
	}
	return s
}

func (s *GRPCServer) newServer() (*grpc.Server, *health.Server) {
	srv := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			s.observeInterceptor,
			s.rateLimitInterceptor,
			s.timeoutInterceptor,
			s.accessTokenInterceptor,
		),
	)

	RegisterIdentityServer(srv, s)

	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(srv, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(ServiceName, grpc_health_v1.HealthCheckResponse_SERVING)

	return srv, healthServer
}

func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	return s.Serve(ctx, listen)
}

// Serve accepts connections on listen until ctx is cancelled.
func (s *GRPCServer) Serve(ctx context.Context, listen net.Listener) error {
	srv, healthServer := s.newServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		healthServer.Shutdown()
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", listen.Addr().String())

	// starts accepting incoming connections
	if err := srv.Serve(listen); err != nil {
		return err
	}

	return nil
}
