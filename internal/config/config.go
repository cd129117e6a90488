// Package config loads the user settings the engine consumes as plain
// inputs: default workspace name, display order, monitor aliases,
// keyboard-shortcut placeholders, log level, and the control-plane listen
// address. The settings dialog that writes these lives elsewhere; this
// package only turns settings.json into typed values.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	DefaultWorkspace   string            `mapstructure:"default_workspace"`
	DisplayOrder       []string          `mapstructure:"display_order"`
	MonitorAliases     map[string]string `mapstructure:"monitor_aliases"`
	KeyboardShortcuts  map[string]string `mapstructure:"keyboard_shortcuts"`
	LogLevel           string            `mapstructure:"log_level"`
	HTTPListenAddr     string            `mapstructure:"http_listen_addr"`
	SwitchPollInterval time.Duration     `mapstructure:"switch_poll_interval"`
}

// Default returns the configuration used when settings.json does not
// exist yet or omits a key.
func Default() *Config {
	return &Config{
		DefaultWorkspace:   "",
		DisplayOrder:       nil,
		MonitorAliases:     map[string]string{},
		KeyboardShortcuts:  map[string]string{},
		LogLevel:           "info",
		HTTPListenAddr:     "localhost:8787",
		SwitchPollInterval: 500 * time.Millisecond,
	}
}

// Load reads settingsPath with viper's JSON support, falling back to
// defaults for any key the file omits or when the file is absent
// entirely, then applies WINDOWANCHOR_-prefixed environment overrides.
func Load(settingsPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(settingsPath)
	v.SetConfigType("json")

	cfg := Default()
	v.SetDefault("default_workspace", cfg.DefaultWorkspace)
	v.SetDefault("log_level", cfg.LogLevel)
	v.SetDefault("http_listen_addr", cfg.HTTPListenAddr)
	v.SetDefault("switch_poll_interval", cfg.SwitchPollInterval)

	v.SetEnvPrefix("WINDOWANCHOR")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("reading %s: %w", settingsPath, err)
		}
		// An absent settings.json is not an error: the engine runs on
		// defaults until a settings surface writes one.
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	return cfg, nil
}

// Save writes the configuration back to settingsPath as indented JSON.
func (c *Config) Save(settingsPath string) error {
	v := viper.New()
	v.SetConfigFile(settingsPath)
	v.SetConfigType("json")
	v.Set("default_workspace", c.DefaultWorkspace)
	v.Set("display_order", c.DisplayOrder)
	v.Set("monitor_aliases", c.MonitorAliases)
	v.Set("keyboard_shortcuts", c.KeyboardShortcuts)
	v.Set("log_level", c.LogLevel)
	v.Set("http_listen_addr", c.HTTPListenAddr)
	v.Set("switch_poll_interval", c.SwitchPollInterval)
	return v.WriteConfigAs(settingsPath)
}
