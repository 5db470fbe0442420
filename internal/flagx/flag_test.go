package flagx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterArgs(t *testing.T) {
	valued := []string{"-a", "-d", "-smtp"}
	boolean := []string{"-dev"}

	tests := []struct {
		name string
		args []string
		want []string
	}{
		{
			name: "separate value",
			args: []string{"-a", ":50051", "-x", "1"},
			want: []string{"-a", ":50051"},
		},
		{
			name: "joined value",
			args: []string{"-d=postgres://u@h/db?sslmode=disable"},
			want: []string{"-d=postgres://u@h/db?sslmode=disable"},
		},
		{
			name: "double dash is the same flag",
			args: []string{"--smtp", "mail.example.com", "--a=:1"},
			want: []string{"--smtp", "mail.example.com", "--a=:1"},
		},
		{
			name: "boolean does not swallow a subcommand",
			args: []string{"-dev", "create-user", "-a", ":1"},
			want: []string{"-dev", "-a", ":1"},
		},
		{
			name: "boolean with explicit value",
			args: []string{"-dev=false"},
			want: []string{"-dev=false"},
		},
		{
			name: "valued flag followed by another flag",
			args: []string{"-a", "-dev"},
			want: []string{"-a", "-dev"},
		},
		{
			name: "subcommand flags are dropped",
			args: []string{"create-user", "-username", "root", "-email", "root@example.com"},
			want: []string{},
		},
		{
			name: "terminators and bare dash ignored",
			args: []string{"--", "-", "-a", ":2"},
			want: []string{"-a", ":2"},
		},
		{
			name: "empty",
			args: nil,
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FilterArgs(tt.args, valued, boolean...))
		})
	}
}

func TestConfigPath(t *testing.T) {
	t.Run("short -c with value", func(t *testing.T) {
		assert.Equal(t, "/path/short.json", ConfigPath([]string{"-c", "/path/short.json"}))
	})

	t.Run("long -config joined", func(t *testing.T) {
		assert.Equal(t, "/path/long.json", ConfigPath([]string{"-config=/path/long.json"}))
	})

	t.Run("unknown flags are ignored", func(t *testing.T) {
		assert.Empty(t, ConfigPath([]string{"-x", "1", "-y", "2"}))
	})

	t.Run("multiple flags, last wins", func(t *testing.T) {
		assert.Equal(t, "/path/2.json", ConfigPath([]string{"-c", "/path/1.json", "-config", "/path/2.json"}))
	})

	t.Run("after a subcommand", func(t *testing.T) {
		assert.Equal(t, "/etc/idkeeper.json", ConfigPath([]string{"migrate", "-c", "/etc/idkeeper.json"}))
	})
}
