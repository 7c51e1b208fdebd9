// Package config loads the proxy shell's configuration. The library core
// takes everything through constructors; this file-and-env layer exists only
// for the executables.
package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Keys   KeysConfig   `mapstructure:"keys"`
	Log    LogConfig    `mapstructure:"log"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Env  string `mapstructure:"env"`
}

type KeysConfig struct {
	// DotenvPath points at a .env style secrets file; empty skips it.
	DotenvPath string `mapstructure:"dotenv_path"`
	// SQLitePath points at a credentials database; empty skips it.
	SQLitePath string `mapstructure:"sqlite_path"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from config.yaml and the environment, env taking
// precedence (SERVER_PORT, KEYS_DOTENV_PATH, ...).
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetDefault("server.port", "8080")
	v.SetDefault("server.env", "development")
	v.SetDefault("keys.dotenv_path", ".env")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}
