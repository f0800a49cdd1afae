// Copyright (C) 2025 RavenStack (engineering@ravenstack.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package config

import "testing"

func TestFromEnvDefaults(t *testing.T) {
	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}

	if cfg.ListenAddr != DefaultListenAddr {
		t.Errorf("ListenAddr = %q, want %q", cfg.ListenAddr, DefaultListenAddr)
	}
	if cfg.WarehouseTable != DefaultTable {
		t.Errorf("WarehouseTable = %q, want %q", cfg.WarehouseTable, DefaultTable)
	}
	if cfg.SeedRows != DefaultSeedRows {
		t.Errorf("SeedRows = %d, want %d", cfg.SeedRows, DefaultSeedRows)
	}
	if cfg.MaxFeatures != DefaultMaxFeatures {
		t.Errorf("MaxFeatures = %d, want %d", cfg.MaxFeatures, DefaultMaxFeatures)
	}
	if cfg.RateLimit != DefaultRateLimit {
		t.Errorf("RateLimit = %f, want %f", cfg.RateLimit, DefaultRateLimit)
	}
	if cfg.LogLevel != DefaultLogLevel {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, DefaultLogLevel)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("INSIGHT_LISTEN_ADDR", ":9999")
	t.Setenv("INSIGHT_WAREHOUSE_TABLE", "saas_subscriptions")
	t.Setenv("INSIGHT_SEED_ROWS", "0")
	t.Setenv("INSIGHT_RATE_LIMIT", "12.5")
	t.Setenv("INSIGHT_TRACE_STDOUT", "true")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.ListenAddr != ":9999" {
		t.Errorf("ListenAddr = %q", cfg.ListenAddr)
	}
	if cfg.WarehouseTable != "saas_subscriptions" {
		t.Errorf("WarehouseTable = %q", cfg.WarehouseTable)
	}
	if cfg.SeedRows != 0 {
		t.Errorf("SeedRows = %d, want 0", cfg.SeedRows)
	}
	if cfg.RateLimit != 12.5 {
		t.Errorf("RateLimit = %f, want 12.5", cfg.RateLimit)
	}
	if !cfg.TraceStdout {
		t.Error("TraceStdout = false, want true")
	}
}

func TestFromEnvRejectsMalformedNumbers(t *testing.T) {
	t.Setenv("INSIGHT_SEED_ROWS", "many")
	if _, err := FromEnv(); err == nil {
		t.Fatal("expected parse error for INSIGHT_SEED_ROWS=many")
	}
}

func TestValidateRejectsBadTableNames(t *testing.T) {
	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}

	for _, table := range []string{"subs; DROP TABLE x", "1table", "a b", ""} {
		cfg.WarehouseTable = table
		if err := cfg.Validate(); err == nil {
			t.Errorf("Validate accepted table name %q", table)
		}
	}

	cfg.WarehouseTable = "valid_table_2"
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate rejected a valid identifier: %v", err)
	}
}

func TestValidateRejectsBadLogLevel(t *testing.T) {
	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	cfg.LogLevel = "verbose"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for LogLevel=verbose")
	}
}
