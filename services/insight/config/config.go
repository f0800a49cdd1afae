// Copyright (C) 2025 RavenStack (engineering@ravenstack.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package config loads the insight service configuration from environment
// variables and validates it at startup. Configuration errors are fatal;
// per-request code never re-checks config shape.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"

	"github.com/go-playground/validator/v10"
)

// Config is the validated runtime configuration of the insight service.
type Config struct {
	// ListenAddr is the HTTP bind address.
	ListenAddr string `validate:"required"`

	// WarehousePath is the SQLite database file, or ":memory:".
	WarehousePath string `validate:"required"`

	// WarehouseTable is the subscriptions table name. Restricted to
	// identifier characters because it is interpolated into SQL text.
	WarehouseTable string `validate:"required"`

	// SeedRows is how many sample rows to seed into an empty warehouse.
	// Zero disables seeding.
	SeedRows int `validate:"gte=0"`

	// CacheDir is the BadgerDB directory for vector-space persistence.
	// Empty disables persistence; spaces rebuild on every start.
	CacheDir string

	// IntentCorpusPath overrides the embedded analytics-intent corpus.
	IntentCorpusPath string

	// TemplateCorpusPath overrides the embedded query-template corpus.
	TemplateCorpusPath string

	// MaxFeatures caps the TF-IDF vocabulary per corpus.
	MaxFeatures int `validate:"gt=0"`

	// RateLimit is the per-second request budget for the HTTP surface.
	RateLimit float64 `validate:"gt=0"`

	// RateBurst is the rate limiter's burst allowance.
	RateBurst int `validate:"gt=0"`

	// TraceStdout enables the stdout span exporter for local debugging.
	TraceStdout bool

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `validate:"oneof=debug info warn error"`
}

// Defaults mirrored by the insightd flag set.
const (
	DefaultListenAddr  = ":8086"
	DefaultWarehouse   = "insight.db"
	DefaultTable       = "subscriptions"
	DefaultSeedRows    = 200
	DefaultMaxFeatures = 500
	DefaultRateLimit   = 50.0
	DefaultRateBurst   = 100
	DefaultLogLevel    = "info"
)

// FromEnv builds a Config from environment variables, falling back to
// defaults for anything unset.
//
// # Description
//
// Variables: INSIGHT_LISTEN_ADDR, INSIGHT_WAREHOUSE_PATH,
// INSIGHT_WAREHOUSE_TABLE, INSIGHT_SEED_ROWS, INSIGHT_CACHE_DIR,
// INSIGHT_INTENT_CORPUS, INSIGHT_TEMPLATE_CORPUS, INSIGHT_MAX_FEATURES,
// INSIGHT_RATE_LIMIT, INSIGHT_RATE_BURST, INSIGHT_TRACE_STDOUT,
// INSIGHT_LOG_LEVEL. Malformed numeric values are validation errors, not
// silently defaulted.
//
// # Outputs
//
//   - Config: The validated configuration.
//   - error: Non-nil on parse or validation failure.
func FromEnv() (Config, error) {
	cfg := Config{
		ListenAddr:         envOr("INSIGHT_LISTEN_ADDR", DefaultListenAddr),
		WarehousePath:      envOr("INSIGHT_WAREHOUSE_PATH", DefaultWarehouse),
		WarehouseTable:     envOr("INSIGHT_WAREHOUSE_TABLE", DefaultTable),
		SeedRows:           DefaultSeedRows,
		CacheDir:           os.Getenv("INSIGHT_CACHE_DIR"),
		IntentCorpusPath:   os.Getenv("INSIGHT_INTENT_CORPUS"),
		TemplateCorpusPath: os.Getenv("INSIGHT_TEMPLATE_CORPUS"),
		MaxFeatures:        DefaultMaxFeatures,
		RateLimit:          DefaultRateLimit,
		RateBurst:          DefaultRateBurst,
		TraceStdout:        os.Getenv("INSIGHT_TRACE_STDOUT") == "true",
		LogLevel:           envOr("INSIGHT_LOG_LEVEL", DefaultLogLevel),
	}

	var err error
	if cfg.SeedRows, err = envInt("INSIGHT_SEED_ROWS", DefaultSeedRows); err != nil {
		return Config{}, err
	}
	if cfg.MaxFeatures, err = envInt("INSIGHT_MAX_FEATURES", DefaultMaxFeatures); err != nil {
		return Config{}, err
	}
	if cfg.RateBurst, err = envInt("INSIGHT_RATE_BURST", DefaultRateBurst); err != nil {
		return Config{}, err
	}
	if raw := os.Getenv("INSIGHT_RATE_LIMIT"); raw != "" {
		cfg.RateLimit, err = strconv.ParseFloat(raw, 64)
		if err != nil {
			return Config{}, fmt.Errorf("config: INSIGHT_RATE_LIMIT=%q is not a number: %w", raw, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// tablePattern restricts the warehouse table name to SQL identifier
// characters.
var tablePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Validate checks the config against its struct tags plus the table-name
// identifier rule.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if !tablePattern.MatchString(c.WarehouseTable) {
		return fmt.Errorf("config: warehouse table %q is not a valid identifier", c.WarehouseTable)
	}
	return nil
}

// envOr returns the variable's value, or fallback when unset or empty.
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// envInt parses an integer variable, or returns fallback when unset.
func envInt(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("config: %s=%q is not an integer: %w", key, raw, err)
	}
	return n, nil
}
