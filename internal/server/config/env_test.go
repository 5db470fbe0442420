package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEnv(t *testing.T) {
	t.Setenv("IDKEEPER_GRPC_ADDR", ":6000")
	t.Setenv("IDKEEPER_RESET_TOKEN_TTL", "45m")
	t.Setenv("IDKEEPER_PREVIOUS_SECRET_KEYS", "old1,old2")
	t.Setenv("IDKEEPER_IT_STAFF_ROLES", "Admin,HR")
	t.Setenv("IDKEEPER_ARGON_THREADS", "2")
	t.Setenv("IDKEEPER_DEV_MODE", "true")

	c := &Config{}
	c.LoadDefaults()
	require.NoError(t, parseEnv(c))

	assert.Equal(t, ":6000", c.EndpointAddrGRPC)
	assert.Equal(t, 45*time.Minute, c.ResetTokenTTL)
	assert.Equal(t, []string{"old1", "old2"}, c.PreviousSecretKeys)
	assert.Equal(t, []string{"Admin", "HR"}, c.ITStaffRoles)
	assert.Equal(t, uint8(2), c.ArgonThreads)
	assert.True(t, c.DevMode)

	// untouched
	assert.Equal(t, 10*time.Hour, c.SessionTokenTTL)
}

func TestParseEnv_BadValue(t *testing.T) {
	t.Setenv("IDKEEPER_SESSION_TOKEN_TTL", "soon")

	c := &Config{}
	require.Error(t, parseEnv(c))
}
