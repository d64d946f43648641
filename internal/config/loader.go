package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Load builds the configuration in priority order: defaults, then the
// TOML file at path (optional when path is empty), then TICKETD_
// environment variables.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	v.SetEnvPrefix("TICKETD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	config.configPath = path

	if err := Validate(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.listen_addr", "127.0.0.1:5005")
	v.SetDefault("server.ws_path", "/ws")
	v.SetDefault("server.request_timeout_seconds", 30)

	v.SetDefault("store.backend", "pebble")
	v.SetDefault("store.path", "./ticketstore")
	v.SetDefault("store.cache_size", 4096)
	v.SetDefault("store.compressor", "lz4")

	v.SetDefault("oracle.url", "")
	v.SetDefault("oracle.timeout_seconds", 5)

	v.SetDefault("dex.url", "")
	v.SetDefault("dex.reconnect_seconds", 5)

	v.SetDefault("index.path", "")
}
