package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix is prepended to every variable name, e.g. FILESHARE_HTTP_ADDR.
const EnvPrefix = "FILESHARE"

// parseEnv overlays variables that are set; unset ones keep their value.
func parseEnv(cfg *Config) error {
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return fmt.Errorf("env config: %w", err)
	}
	return nil
}
