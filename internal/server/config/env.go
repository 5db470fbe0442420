package config

import "github.com/caarlos0/env/v11"

// EnvPrefix prefixes every environment variable read by parseEnv.
const EnvPrefix = "IDKEEPER_"

// parseEnv overlays IDKEEPER_* variables onto config. Unset variables leave
// the current values alone.
func parseEnv(config *Config) error {
	return env.ParseWithOptions(config, env.Options{Prefix: EnvPrefix})
}
