// Copyright 2025 Magnus Pierre
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads the service configuration from an optional YAML
// file and INTERPRETER_* environment variables.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/magpierre/dsb-interpreter/internal/platform/env"
)

// Environment variables read by Load.
const (
	EnvConfig          = "INTERPRETER_CONFIG"
	EnvHTTPAddr        = "INTERPRETER_HTTP_ADDR"
	EnvShutdownTimeout = "INTERPRETER_SHUTDOWN_TIMEOUT"
	EnvBackendURL      = "INTERPRETER_BACKEND_URL"
	EnvBackendTimeout  = "INTERPRETER_BACKEND_TIMEOUT"
	EnvExecTimeout     = "INTERPRETER_EXEC_TIMEOUT"
	EnvSharingTimeout  = "INTERPRETER_SHARING_TIMEOUT"
	EnvUploadMaxMiB    = "INTERPRETER_UPLOAD_MAX_MIB"
	EnvDatasetAlias    = "INTERPRETER_DATASET_ALIAS"
	EnvLogLevel        = "INTERPRETER_LOG_LEVEL"
)

// Config is the service configuration.
type Config struct {
	HTTPAddr        string        `yaml:"http_addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// BackendURL is the code generation and transcription service. Empty
	// disables both operations.
	BackendURL     string        `yaml:"backend_url"`
	BackendTimeout time.Duration `yaml:"backend_timeout"`

	// ExecTimeout bounds one snippet run; zero disables the limit.
	ExecTimeout    time.Duration `yaml:"exec_timeout"`
	SharingTimeout time.Duration `yaml:"sharing_timeout"`
	UploadMaxMiB   int           `yaml:"upload_max_mib"`
	DatasetAlias   string        `yaml:"dataset_alias"`
	LogLevel       slog.Level    `yaml:"-"`
	LogLevelName   string        `yaml:"log_level"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		HTTPAddr:        ":8000",
		ShutdownTimeout: 10 * time.Second,
		BackendURL:      "http://localhost:6000",
		BackendTimeout:  60 * time.Second,
		ExecTimeout:     60 * time.Second,
		SharingTimeout:  60 * time.Second,
		UploadMaxMiB:    100,
		DatasetAlias:    "df",
		LogLevel:        slog.LevelInfo,
		LogLevelName:    "info",
	}
}

// Load reads the file at path, when path is not empty, over the defaults
// and then applies environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := decode(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("decode %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decode(raw []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (c *Config) applyEnv() error {
	var err error
	c.HTTPAddr = env.String(EnvHTTPAddr, c.HTTPAddr)
	c.BackendURL = env.String(EnvBackendURL, c.BackendURL)
	c.DatasetAlias = env.String(EnvDatasetAlias, c.DatasetAlias)
	c.LogLevelName = env.String(EnvLogLevel, c.LogLevelName)

	if c.ShutdownTimeout, err = env.Duration(EnvShutdownTimeout, c.ShutdownTimeout); err != nil {
		return err
	}
	if c.BackendTimeout, err = env.Duration(EnvBackendTimeout, c.BackendTimeout); err != nil {
		return err
	}
	if c.ExecTimeout, err = env.Duration(EnvExecTimeout, c.ExecTimeout); err != nil {
		return err
	}
	if c.SharingTimeout, err = env.Duration(EnvSharingTimeout, c.SharingTimeout); err != nil {
		return err
	}
	if c.UploadMaxMiB, err = env.Int(EnvUploadMaxMiB, c.UploadMaxMiB); err != nil {
		return err
	}
	return nil
}

// Validate checks the configuration and resolves the log level.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.HTTPAddr) == "" {
		return errors.New("http_addr is required")
	}
	if c.ShutdownTimeout <= 0 {
		return errors.New("shutdown_timeout must be positive")
	}
	if c.BackendURL != "" {
		u, err := url.Parse(c.BackendURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("backend_url must be an http(s) URL: %q", c.BackendURL)
		}
	}
	if c.BackendTimeout <= 0 {
		return errors.New("backend_timeout must be positive")
	}
	if c.ExecTimeout < 0 {
		return errors.New("exec_timeout must not be negative")
	}
	if c.SharingTimeout <= 0 {
		return errors.New("sharing_timeout must be positive")
	}
	if c.UploadMaxMiB <= 0 {
		return errors.New("upload_max_mib must be positive")
	}
	if err := c.LogLevel.UnmarshalText([]byte(c.LogLevelName)); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	return nil
}

// EngineTimeout converts ExecTimeout to the engine convention, where a
// negative value disables the limit.
func (c Config) EngineTimeout() time.Duration {
	if c.ExecTimeout == 0 {
		return -1
	}
	return c.ExecTimeout
}

// UploadMaxBytes returns the upload limit in bytes.
func (c Config) UploadMaxBytes() int64 {
	return int64(c.UploadMaxMiB) << 20
}
