// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Frontdesk Contributors

package config

import (
	"errors"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	fderr "github.com/frontdesk-dev/frontdesk/pkg/errors"
)

// Config is the top-level Frontdesk configuration.
type Config struct {
	Live    LiveConfig    `mapstructure:"live"`
	Agent   AgentConfig   `mapstructure:"agent"`
	Storage StorageConfig `mapstructure:"storage"`
	Server  ServerConfig  `mapstructure:"server"`
	Lockout LockoutConfig `mapstructure:"lockout"`
}

// LiveConfig points at the streaming inference backend.
type LiveConfig struct {
	Endpoint        string        `mapstructure:"endpoint"`
	APIKey          string        `mapstructure:"api_key"`
	Model           string        `mapstructure:"model"`
	MaxOutputTokens int           `mapstructure:"max_output_tokens"`
	ReceiveTimeout  time.Duration `mapstructure:"receive_timeout"`
}

// AgentConfig bounds the turn loop.
type AgentConfig struct {
	MaxSteps      int `mapstructure:"max_steps"`
	HistoryWindow int `mapstructure:"history_window"`
}

// StorageConfig locates the SQLite database.
type StorageConfig struct {
	Path string `mapstructure:"path"`
}

// ServerConfig controls the HTTP gateway.
type ServerConfig struct {
	Listen         string   `mapstructure:"listen"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// LockoutConfig tunes the verification brute-force lockout.
type LockoutConfig struct {
	Threshold int           `mapstructure:"threshold"`
	Window    time.Duration `mapstructure:"window"`
}

// Load reads configuration from the given path (or defaults) with
// environment variable overrides (prefix FRONTDESK_).
func Load(path string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("live.model", "models/reception-live")
	v.SetDefault("live.max_output_tokens", 256)
	v.SetDefault("live.receive_timeout", 120*time.Second)
	v.SetDefault("agent.max_steps", 10)
	v.SetDefault("agent.history_window", 12)
	v.SetDefault("storage.path", "frontdesk.db")
	v.SetDefault("server.listen", "127.0.0.1:8790")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("lockout.threshold", 5)
	v.SetDefault("lockout.window", 15*time.Minute)

	// Environment
	v.SetEnvPrefix("FRONTDESK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// File
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fderr.Errorf(fderr.CodeConfigLoadReadFailure, "reading config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fderr.Errorf(fderr.CodeConfigLoadReadFailure, "unmarshalling config: %w", err)
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, fderr.Errorf(fderr.CodeConfigValidateInvalidValue, "validating config: %w", errors.Join(errs...))
	}

	return &cfg, nil
}

// Validate checks the configuration for logical errors. It returns all
// validation errors found rather than stopping at the first one.
func (c *Config) Validate() []error {
	var errs []error

	errs = append(errs, c.validateLive()...)
	errs = append(errs, c.validateAgent()...)
	errs = append(errs, c.validateStorage()...)
	errs = append(errs, c.validateServer()...)
	errs = append(errs, c.validateLockout()...)

	return errs
}

func (c *Config) validateLive() []error {
	var errs []error

	// An empty endpoint is valid at load time; commands that need the
	// backend fail at dial time instead, so initdb works unconfigured.
	if c.Live.Endpoint != "" &&
		!strings.HasPrefix(c.Live.Endpoint, "ws://") &&
		!strings.HasPrefix(c.Live.Endpoint, "wss://") {
		errs = append(errs, fderr.Errorf(fderr.CodeConfigValidateInvalidValue,
			"config: live.endpoint must use a ws:// or wss:// scheme, got %q",
			c.Live.Endpoint,
		))
	}

	if c.Live.Model == "" {
		errs = append(errs, fderr.Errorf(fderr.CodeConfigValidateInvalidValue,
			"config: live.model must not be empty"))
	}

	if c.Live.MaxOutputTokens <= 0 {
		errs = append(errs, fderr.Errorf(fderr.CodeConfigValidateInvalidValue,
			"config: live.max_output_tokens must be greater than 0, got %d",
			c.Live.MaxOutputTokens,
		))
	}

	if c.Live.ReceiveTimeout <= 0 {
		errs = append(errs, fderr.Errorf(fderr.CodeConfigValidateInvalidValue,
			"config: live.receive_timeout must be greater than 0, got %s",
			c.Live.ReceiveTimeout,
		))
	}

	return errs
}

func (c *Config) validateAgent() []error {
	var errs []error

	if c.Agent.MaxSteps <= 0 {
		errs = append(errs, fderr.Errorf(fderr.CodeConfigValidateInvalidValue,
			"config: agent.max_steps must be greater than 0, got %d",
			c.Agent.MaxSteps,
		))
	}

	if c.Agent.HistoryWindow <= 0 {
		errs = append(errs, fderr.Errorf(fderr.CodeConfigValidateInvalidValue,
			"config: agent.history_window must be greater than 0, got %d",
			c.Agent.HistoryWindow,
		))
	}

	return errs
}

func (c *Config) validateStorage() []error {
	var errs []error

	if c.Storage.Path == "" {
		errs = append(errs, fderr.Errorf(fderr.CodeConfigValidateInvalidValue,
			"config: storage.path must not be empty"))
	}

	return errs
}

func (c *Config) validateServer() []error {
	var errs []error

	if c.Server.Listen == "" {
		errs = append(errs, fderr.Errorf(fderr.CodeConfigValidateInvalidValue,
			"config: server.listen must not be empty"))
		return errs
	}

	_, portStr, err := net.SplitHostPort(c.Server.Listen)
	if err != nil {
		errs = append(errs, fderr.Errorf(fderr.CodeConfigValidateInvalidValue,
			"config: server.listen must be a valid host:port address, got %q: %w",
			c.Server.Listen, err,
		))
		return errs
	}

	port, err := strconv.Atoi(portStr)
	if err != nil {
		errs = append(errs, fderr.Errorf(fderr.CodeConfigValidateInvalidValue,
			"config: server.listen port must be a number, got %q",
			portStr,
		))
	} else if port < 1 || port > 65535 {
		errs = append(errs, fderr.Errorf(fderr.CodeConfigValidateInvalidValue,
			"config: server.listen port must be between 1 and 65535, got %d",
			port,
		))
	}

	return errs
}

func (c *Config) validateLockout() []error {
	var errs []error

	if c.Lockout.Threshold <= 0 {
		errs = append(errs, fderr.Errorf(fderr.CodeConfigValidateInvalidValue,
			"config: lockout.threshold must be greater than 0, got %d",
			c.Lockout.Threshold,
		))
	}

	if c.Lockout.Window <= 0 {
		errs = append(errs, fderr.Errorf(fderr.CodeConfigValidateInvalidValue,
			"config: lockout.window must be greater than 0, got %s",
			c.Lockout.Window,
		))
	}

	return errs
}
