// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads the service configuration from YAML with
// environment overrides and optional hot reload.
package config

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// MaxYAMLFileSize bounds config files to guard against accidental large
// reads.
const MaxYAMLFileSize = 1 << 20

// DefaultPath is where Load looks when no path is given.
const DefaultPath = "comply.config.yaml"

// Config is the full service configuration.
//
// Thread Safety: Immutable after loading; safe for concurrent use. Hot
// reload delivers a fresh Config rather than mutating an existing one.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Uploads UploadsConfig `yaml:"uploads"`
	Reports ReportsConfig `yaml:"reports"`
	Monitor MonitorConfig `yaml:"monitor"`
	LLM     LLMConfig     `yaml:"llm"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// ListenAddr is the address complyd binds to.
	ListenAddr string `yaml:"listen_addr" validate:"required"`

	// RequestTimeoutSeconds bounds a single request's processing time.
	RequestTimeoutSeconds int `yaml:"request_timeout_seconds" validate:"gte=1,lte=600"`
}

// StorageConfig holds database settings.
type StorageConfig struct {
	// Path is the BadgerDB directory.
	Path string `yaml:"path" validate:"required"`
}

// UploadsConfig holds upload spool settings.
type UploadsConfig struct {
	// Dir is the temporary spool directory for uploaded documents.
	Dir string `yaml:"dir" validate:"required"`

	// MaxBytes caps a single uploaded document.
	MaxBytes int64 `yaml:"max_bytes" validate:"gte=1024"`
}

// ReportsConfig holds generated-report settings.
type ReportsConfig struct {
	// Dir is where report files are written.
	Dir string `yaml:"dir" validate:"required"`
}

// MonitorConfig holds source-monitoring settings.
type MonitorConfig struct {
	// Enabled turns the background scheduler on.
	Enabled bool `yaml:"enabled"`

	// IntervalMinutes is the scheduler period.
	IntervalMinutes int `yaml:"interval_minutes" validate:"gte=1"`

	// MaxParallel bounds concurrent source fetches.
	MaxParallel int `yaml:"max_parallel" validate:"gte=1,lte=64"`

	// RequestsPerSecond rate-limits outbound fetches.
	RequestsPerSecond float64 `yaml:"requests_per_second" validate:"gt=0"`
}

// LLMConfig selects the model provider.
type LLMConfig struct {
	// Provider is "gemini" or "anthropic". Overridden by
	// COMPLY_LLM_PROVIDER when set.
	Provider string `yaml:"provider" validate:"omitempty,oneof=gemini anthropic"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddr:            ":8000",
			RequestTimeoutSeconds: 120,
		},
		Storage: StorageConfig{Path: "data/comply"},
		Uploads: UploadsConfig{
			Dir:      "data/uploads",
			MaxBytes: 20 << 20,
		},
		Reports: ReportsConfig{Dir: "reports"},
		Monitor: MonitorConfig{
			Enabled:           true,
			IntervalMinutes:   30,
			MaxParallel:       4,
			RequestsPerSecond: 2,
		},
		LLM: LLMConfig{Provider: "gemini"},
	}
}

// Load reads the configuration from path.
//
// Description:
//
//	A missing file is not an error: the defaults apply, so a fresh
//	checkout runs without any config file. A present but unreadable or
//	invalid file is an error. YAML values overlay the defaults, then the
//	result is validated.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}

	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Info("config file not found, using defaults",
				slog.String("path", path),
			)
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	if len(data) > MaxYAMLFileSize {
		return nil, fmt.Errorf("config %s exceeds maximum size (%d > %d)", path, len(data), MaxYAMLFileSize)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("validating config %s: %w", path, err)
	}

	slog.Info("config loaded",
		slog.String("path", path),
		slog.String("listen_addr", cfg.Server.ListenAddr),
		slog.Bool("monitor_enabled", cfg.Monitor.Enabled),
	)
	return cfg, nil
}

var configValidator = validator.New()

func validate(cfg *Config) error {
	if err := configValidator.Struct(cfg); err != nil {
		return err
	}
	return nil
}
