// Package server assembles the identity server from its configuration:
// database and migrations, token codec, password hasher, reset locks, mail,
// the gRPC service and the metrics endpoint.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/dmitrijs2005/idkeeper/internal/cryptox"
	"github.com/dmitrijs2005/idkeeper/internal/logging"
	"github.com/dmitrijs2005/idkeeper/internal/server/auth"
	"github.com/dmitrijs2005/idkeeper/internal/server/config"
	"github.com/dmitrijs2005/idkeeper/internal/server/locks"
	"github.com/dmitrijs2005/idkeeper/internal/server/mail"
	"github.com/dmitrijs2005/idkeeper/internal/server/metrics"
	"github.com/dmitrijs2005/idkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/idkeeper/internal/server/services"
	"github.com/dmitrijs2005/idkeeper/internal/server/telemetry"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	gs "github.com/dmitrijs2005/idkeeper/internal/server/grpc"
)

const (
	dbPingTimeout   = 5 * time.Second
	resetLockPrefix = "idkeeper:reset:"
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	redis   *redis.Client
	metrics *metrics.Metrics
	users   *services.UserService
	tracing telemetry.ShutdownFunc
	closers []func() error
}

// NewApp connects to the store, applies migrations and builds the services.
// The caller must Close the App.
func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (_ *App, err error) {
	app := &App{config: c, logger: logger, metrics: metrics.New()}
	defer func() {
		if err != nil {
			_ = app.Close(context.Background())
		}
	}()

	if app.tracing, err = telemetry.Setup(ctx, c.OTelEndpoint, c.ServiceName); err != nil {
		return nil, fmt.Errorf("telemetry init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if app.db, err = repomanager.Open(ctx, c.DatabaseDSN, dbPingTimeout); err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	app.closers = append(app.closers, app.db.Close)

	if err = rm.RunMigrations(ctx, app.db); err != nil {
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	codec, err := auth.NewCodec([]byte(c.SecretKey), auth.WithPreviousSecrets(c.PreviousSecrets()...))
	if err != nil {
		return nil, fmt.Errorf("token codec: %w", err)
	}

	hasher, err := newHasher(c)
	if err != nil {
		return nil, err
	}

	locker, err := app.newLocker(ctx)
	if err != nil {
		return nil, err
	}

	mailer, err := app.newMailer(ctx)
	if err != nil {
		return nil, err
	}

	ledger := services.NewResetLedger(app.db, rm, codec, hasher, locker, c.ResetTokenTTL, logger)
	if app.users, err = services.NewUserService(app.db, rm, codec, hasher, ledger, mailer, logger, c); err != nil {
		return nil, err
	}

	return app, nil
}

// Users is the account service, for operator tooling.
func (app *App) Users() *services.UserService {
	return app.users
}

func newHasher(c *config.Config) (*cryptox.Hasher, error) {
	p := cryptox.DefaultParams()
	p.Time = c.ArgonTime
	p.MemoryKiB = c.ArgonMemoryKiB
	p.Threads = c.ArgonThreads
	h, err := cryptox.NewHasher(p)
	if err != nil {
		return nil, fmt.Errorf("password hasher: %w", err)
	}
	return h, nil
}

// newLocker serializes reset token issue and consume per identity: in
// process by default, through Redis when several replicas share a store.
func (app *App) newLocker(ctx context.Context) (locks.Locker, error) {
	if app.config.RedisAddr == "" {
		return locks.NewLocal(), nil
	}

	app.redis = redis.NewClient(&redis.Options{
		Addr:     app.config.RedisAddr,
		Password: app.config.RedisPassword,
	})
	app.closers = append(app.closers, app.redis.Close)

	if err := app.redis.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	locker, err := locks.NewRedis(app.redis, resetLockPrefix, app.config.LockTTL, app.logger)
	if err != nil {
		return nil, err
	}
	app.logger.Info(ctx, "Reset locks shared through Redis", "address", app.config.RedisAddr)
	return locker, nil
}

func (app *App) newMailer(ctx context.Context) (*mail.Mailer, error) {
	c := app.config

	var src mail.Source = mail.EmbeddedSource()
	if c.S3Bucket != "" {
		s3src, err := mail.NewS3Source(ctx, mail.S3Options{
			Bucket:       c.S3Bucket,
			Prefix:       c.TemplatesPrefix,
			Region:       c.S3Region,
			AccessKey:    c.S3RootUser,
			SecretKey:    c.S3RootPassword,
			BaseEndpoint: c.S3BaseEndpoint,
		})
		if err != nil {
			return nil, fmt.Errorf("template store: %w", err)
		}
		src = s3src
	}

	templates, err := mail.LoadTemplates(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("mail templates: %w", err)
	}

	sender, err := newSender(c, app.logger)
	if err != nil {
		return nil, err
	}
	return mail.NewMailer(sender, templates, c.ResetLinkBaseURL), nil
}

func newSender(c *config.Config, logger logging.Logger) (mail.Sender, error) {
	if c.SMTPHost == "" {
		return mail.NewLogSender(logger), nil
	}
	s, err := mail.NewSMTPSender(mail.SMTPConfig{
		Host:     c.SMTPHost,
		Port:     c.SMTPPort,
		Username: c.SMTPUsername,
		Password: c.SMTPPassword,
		From:     c.SMTPFrom,
		TLS:      c.SMTPTLS,
		Timeout:  c.SMTPTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("smtp sender: %w", err)
	}
	return s, nil
}

func (app *App) grpcServer() *gs.GRPCServer {
	return gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.users,
		gs.WithMetrics(app.metrics),
		gs.WithRequestTimeout(app.config.RequestTimeout),
		gs.WithRateLimit(app.config.RateLimitRPS, app.config.RateLimitBurst),
	)
}

// Run serves gRPC and metrics until ctx is cancelled or a signal arrives.
func (app *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	app.logger.Info(ctx, "Starting app...")

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return app.grpcServer().Run(gctx)
	})

	if app.config.MetricsAddr != "" {
		g.Go(func() error {
			return metrics.NewServer(app.config.MetricsAddr, app.metrics, app.logger).Run(gctx)
		})
	}

	err := g.Wait()
	app.logger.Info(ctx, "App stopped")
	return err
}

// Close releases the database, Redis and tracing resources.
func (app *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(app.closers) - 1; i >= 0; i-- {
		errs = append(errs, app.closers[i]())
	}
	app.closers = nil
	if app.tracing != nil {
		errs = append(errs, app.tracing(ctx))
		app.tracing = nil
	}
	return errors.Join(errs...)
}
