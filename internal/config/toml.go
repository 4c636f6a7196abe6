// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	GitHub  GitHubConfig  `toml:"github"`
	Stats   StatsConfig   `toml:"stats"`
	Refresh RefreshConfig `toml:"refresh"`
}

// GitHubConfig maps upstream access settings.
type GitHubConfig struct {
	User     *string `toml:"user"`
	Token    *string `toml:"token"`
	Endpoint *string `toml:"endpoint"`
}

// StatsConfig maps statistics settings.
type StatsConfig struct {
	Window *string `toml:"window"`
}

// RefreshConfig maps watch-mode settings.
type RefreshConfig struct {
	Interval *string `toml:"interval"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return FileConfig{}, fmt.Errorf("unknown config key %q", undecoded[0].String())
	}
	return cfg, nil
}

// TokenFromEnv returns the first non-empty token among the supported variables.
func TokenFromEnv() string {
	for _, key := range []string{"GHSTREAK_TOKEN", "GITHUB_TOKEN"} {
		if v := os.Getenv(key); v != "" {
			return v
		}
	}
	return ""
}

// UserFromEnv returns the login configured through the environment.
func UserFromEnv() string {
	return os.Getenv("GHSTREAK_USER")
}
