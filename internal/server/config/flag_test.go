package config

import (
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	tests := []struct {
		expected *Config
		name     string
		args     []string
		wantErr  bool
	}{
		{name: "Test1 OK", args: []string{"cmd",
			"-a", "127.0.0.1:9090", "-m", ":9100", "-d", "db", "-s", "secret",
			"-t", "8h", "-r", "15m", "-l", "https://id.example.com/reset",
			"-smtp", "smtp.example.com", "-redis", "redis:6379",
			"-b", "bucket", "-g", "us-west-1", "-e", "http://endpoint", "-dev",
		},
			expected: &Config{
				EndpointAddrGRPC: "127.0.0.1:9090",
				MetricsAddr:      ":9100",
				DatabaseDSN:      "db",
				SecretKey:        "secret",
				SessionTokenTTL:  8 * time.Hour,
				ResetTokenTTL:    15 * time.Minute,
				ResetLinkBaseURL: "https://id.example.com/reset",
				SMTPHost:         "smtp.example.com",
				RedisAddr:        "redis:6379",
				S3Bucket:         "bucket",
				S3Region:         "us-west-1",
				S3BaseEndpoint:   "http://endpoint",
				DevMode:          true,
			}},
		{name: "unrelated flags ignored", args: []string{"cmd", "-test.v", "-x", "1"},
			expected: &Config{}},
		{name: "bad duration", args: []string{"cmd", "-t", "forever"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Args = tt.args

			config := &Config{}
			err := parseFlags(config)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Empty(t, cmp.Diff(config, tt.expected))
		})
	}
}
