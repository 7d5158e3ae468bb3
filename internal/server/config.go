package server

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// Config holds the server settings. Values come from an optional
// voicesync.yaml, VOICESYNC_* environment variables, and defaults, in that
// order of precedence. CLI flags override on top (see cmd/server.go).
type Config struct {
	Mode string `mapstructure:"mode"`
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// Addr returns the listen address in host:port form.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func LoadConfig() (*Config, error) {
	v := viper.New()
	v.SetConfigName("voicesync")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvPrefix("VOICESYNC")
	v.AutomaticEnv()

	v.SetDefault("mode", "release")
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("port", 3000)

	if err := v.ReadInConfig(); err != nil {
		log.Debug().Str("module", "server.config").Msg("no config file found, using defaults")
	} else {
		log.Info().Str("module", "server.config").Str("file", v.ConfigFileUsed()).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
