package config

import (
	"flag"
	"os"

	"github.com/dmitrijs2005/idkeeper/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string     gRPC bind address (e.g., ":50051")
//	-m string     metrics bind address
//	-d string     PostgreSQL DSN
//	-s string     token HMAC secret key
//	-t duration   session token lifetime
//	-r duration   reset token lifetime
//	-l string     reset link base URL
//	-smtp string  SMTP relay host
//	-redis string Redis address for reset locks
//	-b string     S3 templates bucket
//	-g string     S3 region
//	-e string     S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//	-dev          development mode
//
// Arguments are first filtered with flagx.FilterArgs so flags owned by other
// components do not collide.
func parseFlags(config *Config) error {
	args := flagx.FilterArgs(os.Args[1:], []string{
		"-a", "-m", "-d", "-s", "-t", "-r", "-l", "-smtp", "-redis", "-b", "-g", "-e",
	}, "-dev")

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrGRPC, "a", config.EndpointAddrGRPC, "address and port to run server")
	fs.StringVar(&config.MetricsAddr, "m", config.MetricsAddr, "address and port to serve metrics")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	fs.DurationVar(&config.SessionTokenTTL, "t", config.SessionTokenTTL, "session token lifetime")
	fs.DurationVar(&config.ResetTokenTTL, "r", config.ResetTokenTTL, "reset token lifetime")
	fs.StringVar(&config.ResetLinkBaseURL, "l", config.ResetLinkBaseURL, "reset link base URL")
	fs.StringVar(&config.SMTPHost, "smtp", config.SMTPHost, "SMTP relay host")
	fs.StringVar(&config.RedisAddr, "redis", config.RedisAddr, "Redis address")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 templates bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")
	fs.BoolVar(&config.DevMode, "dev", config.DevMode, "development mode")

	return fs.Parse(args)
}
