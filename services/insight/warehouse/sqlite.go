// Copyright (C) 2025 RavenStack (engineering@ravenstack.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	_ "modernc.org/sqlite"
)

// =============================================================================
// SQLite Executor
// =============================================================================

// seedRandSource fixes the sample-data generator so repeated seeds of a fresh
// warehouse produce identical rows. Demo data only; production deployments
// load real subscription exports instead.
const seedRandSource = 42

// planTierChoices are the plan tiers used for generated sample rows.
var planTierChoices = []string{"Basic", "Pro", "Enterprise"}

// SQLite is an embedded-database Executor used for local deployments, demos,
// and end-to-end tests.
//
// # Description
//
// Wraps database/sql over the pure-Go sqlite driver. The executor owns the
// connection pool; Close releases it. Bootstrap creates the subscriptions
// table when absent, and Seed populates deterministic sample rows so the NL
// query surface works out of the box.
//
// # Thread Safety
//
// Safe for concurrent use; database/sql serializes access to the pool.
type SQLite struct {
	db     *sql.DB
	table  string
	logger *slog.Logger
}

// OpenSQLite opens (or creates) a SQLite-backed warehouse.
//
// # Inputs
//
//   - path: Database file path, or ":memory:" for an ephemeral store.
//   - table: Subscriptions table name used by Bootstrap/Seed.
//   - logger: Logger for bootstrap diagnostics. May be nil.
//
// # Outputs
//
//   - *SQLite: Ready-to-use executor. Nil on error.
//   - error: Non-nil if the database cannot be opened.
func OpenSQLite(path, table string, logger *slog.Logger) (*SQLite, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if table == "" {
		table = "subscriptions"
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("warehouse: opening sqlite at %s: %w", path, err)
	}
	// The pure-Go driver allows one writer; a single connection sidesteps
	// SQLITE_BUSY under concurrent requests.
	db.SetMaxOpenConns(1)

	return &SQLite{db: db, table: table, logger: logger}, nil
}

// Close releases the connection pool.
func (w *SQLite) Close() error {
	return w.db.Close()
}

// Table returns the subscriptions table name this warehouse was opened with.
func (w *SQLite) Table() string {
	return w.table
}

// Execute runs a parameterized statement and materializes the result set.
//
// # Description
//
// Args are bound positionally to ? placeholders. Driver []byte values are
// converted to strings so results JSON-encode cleanly. Any execution failure
// is returned verbatim — the caller decides how to surface it.
//
// # Thread Safety
//
// Safe for concurrent use.
func (w *SQLite) Execute(ctx context.Context, statement string, args ...any) (*Rows, error) {
	rows, err := w.db.QueryContext(ctx, statement, args...)
	if err != nil {
		return nil, fmt.Errorf("warehouse: executing query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("warehouse: reading columns: %w", err)
	}

	result := &Rows{Columns: columns, Records: [][]any{}}
	for rows.Next() {
		values := make([]any, len(columns))
		scanTargets := make([]any, len(columns))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return nil, fmt.Errorf("warehouse: scanning row: %w", err)
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		result.Records = append(result.Records, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("warehouse: iterating rows: %w", err)
	}

	return result, nil
}

// Bootstrap creates the subscriptions table if it does not exist.
//
// The schema mirrors the production subscription export: identifiers, plan
// and billing attributes, revenue amounts, and churn flags.
func (w *SQLite) Bootstrap(ctx context.Context) error {
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		subscription_id   TEXT PRIMARY KEY,
		account_id        TEXT NOT NULL,
		start_date        TEXT NOT NULL,
		end_date          TEXT,
		plan_tier         TEXT NOT NULL,
		seats             INTEGER NOT NULL,
		mrr_amount        REAL NOT NULL,
		arr_amount        REAL NOT NULL,
		is_trial          INTEGER NOT NULL DEFAULT 0,
		upgrade_flag      INTEGER NOT NULL DEFAULT 0,
		downgrade_flag    INTEGER NOT NULL DEFAULT 0,
		churn_flag        INTEGER NOT NULL DEFAULT 0,
		billing_frequency TEXT NOT NULL,
		auto_renew_flag   INTEGER NOT NULL DEFAULT 1
	)`, w.table)

	if _, err := w.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("warehouse: creating %s: %w", w.table, err)
	}
	w.logger.Debug("warehouse: bootstrap complete", slog.String("table", w.table))
	return nil
}

// Count returns the number of rows in the subscriptions table.
func (w *SQLite) Count(ctx context.Context) (int, error) {
	var n int
	row := w.db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", w.table))
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("warehouse: counting rows: %w", err)
	}
	return n, nil
}

// Seed inserts n deterministic sample subscription rows.
//
// # Description
//
// Rows are generated from a fixed random source, so two fresh warehouses
// seeded with the same n contain identical data. Existing rows are left in
// place; callers typically seed only when Count reports an empty table.
func (w *SQLite) Seed(ctx context.Context, n int) error {
	if n <= 0 {
		return nil
	}

	rng := rand.New(rand.NewSource(seedRandSource))
	stmt := fmt.Sprintf(`INSERT INTO %s (
		subscription_id, account_id, start_date, end_date, plan_tier, seats,
		mrr_amount, arr_amount, is_trial, upgrade_flag, downgrade_flag,
		churn_flag, billing_frequency, auto_renew_flag
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, w.table)

	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("warehouse: beginning seed transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	base := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		plan := planTierChoices[rng.Intn(len(planTierChoices))]
		mrr := 20.0 + rng.Float64()*2000.0
		churned := rng.Float64() < 0.18
		isTrial := rng.Float64() < 0.12
		start := base.AddDate(0, 0, rng.Intn(540))

		var endDate any
		if churned {
			endDate = start.AddDate(0, 1+rng.Intn(11), 0).Format("2006-01-02")
		}

		billing := "monthly"
		if rng.Float64() < 0.3 {
			billing = "annual"
		}

		_, err := tx.ExecContext(ctx, stmt,
			fmt.Sprintf("sub_%05d", i+1),
			fmt.Sprintf("acct_%04d", rng.Intn(n/2+1)+1),
			start.Format("2006-01-02"),
			endDate,
			plan,
			1+rng.Intn(50),
			mrr,
			mrr*12,
			boolToInt(isTrial),
			boolToInt(rng.Float64() < 0.15),
			boolToInt(rng.Float64() < 0.10),
			boolToInt(churned),
			billing,
			boolToInt(rng.Float64() < 0.8),
		)
		if err != nil {
			return fmt.Errorf("warehouse: seeding row %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("warehouse: committing seed: %w", err)
	}
	w.logger.Info("warehouse: seeded sample data",
		slog.String("table", w.table),
		slog.Int("rows", n),
	)
	return nil
}

// boolToInt converts a bool to sqlite's 0/1 integer encoding.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
