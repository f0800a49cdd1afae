// Copyright (C) 2025 RavenStack (engineering@ravenstack.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package warehouse

import (
	"context"
	"reflect"
	"testing"
)

func newTestWarehouse(t *testing.T, seed int) *SQLite {
	t.Helper()
	wh, err := OpenSQLite(":memory:", "subscriptions", nil)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { _ = wh.Close() })

	ctx := context.Background()
	if err := wh.Bootstrap(ctx); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	if seed > 0 {
		if err := wh.Seed(ctx, seed); err != nil {
			t.Fatalf("Seed: %v", err)
		}
	}
	return wh
}

func TestBootstrapIsIdempotent(t *testing.T) {
	wh := newTestWarehouse(t, 0)
	if err := wh.Bootstrap(context.Background()); err != nil {
		t.Fatalf("second Bootstrap: %v", err)
	}
}

func TestSeedAndCount(t *testing.T) {
	wh := newTestWarehouse(t, 25)

	n, err := wh.Count(context.Background())
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 25 {
		t.Errorf("count = %d, want 25", n)
	}
}

func TestSeedIsDeterministic(t *testing.T) {
	ctx := context.Background()
	query := "SELECT subscription_id, plan_tier, mrr_amount FROM subscriptions ORDER BY subscription_id"

	first, err := newTestWarehouse(t, 10).Execute(ctx, query)
	if err != nil {
		t.Fatalf("Execute first: %v", err)
	}
	second, err := newTestWarehouse(t, 10).Execute(ctx, query)
	if err != nil {
		t.Fatalf("Execute second: %v", err)
	}

	if !reflect.DeepEqual(first.Records, second.Records) {
		t.Error("two fresh seeds produced different rows")
	}
}

func TestSeedZeroIsNoop(t *testing.T) {
	wh := newTestWarehouse(t, 0)
	if err := wh.Seed(context.Background(), 0); err != nil {
		t.Fatalf("Seed(0): %v", err)
	}
	n, err := wh.Count(context.Background())
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 0 {
		t.Errorf("count = %d, want 0", n)
	}
}

func TestExecuteBindsArgs(t *testing.T) {
	wh := newTestWarehouse(t, 50)
	ctx := context.Background()

	rows, err := wh.Execute(ctx,
		"SELECT COUNT(*) as count FROM subscriptions WHERE mrr_amount > ?", 500.0)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if rows.Len() != 1 || len(rows.Columns) != 1 {
		t.Fatalf("unexpected shape: %d rows, columns %v", rows.Len(), rows.Columns)
	}
	if rows.Columns[0] != "count" {
		t.Errorf("column = %q, want count", rows.Columns[0])
	}

	matched, ok := rows.Records[0][0].(int64)
	if !ok {
		t.Fatalf("count value %T, want int64", rows.Records[0][0])
	}

	// Cross-check the bound threshold against a full scan.
	all, err := wh.Execute(ctx, "SELECT mrr_amount FROM subscriptions")
	if err != nil {
		t.Fatalf("Execute scan: %v", err)
	}
	var want int64
	for _, rec := range all.Records {
		if rec[0].(float64) > 500.0 {
			want++
		}
	}
	if matched != want {
		t.Errorf("bound count = %d, scan says %d", matched, want)
	}
}

func TestExecuteConvertsBytesToStrings(t *testing.T) {
	wh := newTestWarehouse(t, 5)

	rows, err := wh.Execute(context.Background(),
		"SELECT plan_tier FROM subscriptions LIMIT 1")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if rows.Len() != 1 {
		t.Fatalf("rows = %d, want 1", rows.Len())
	}
	if _, ok := rows.Records[0][0].(string); !ok {
		t.Errorf("plan_tier is %T, want string", rows.Records[0][0])
	}
}

func TestExecuteSurfacesSQLErrors(t *testing.T) {
	wh := newTestWarehouse(t, 0)

	if _, err := wh.Execute(context.Background(), "SELECT * FROM missing_table"); err == nil {
		t.Fatal("expected error for missing table")
	}
}

func TestOpenSQLiteDefaultsTableName(t *testing.T) {
	wh, err := OpenSQLite(":memory:", "", nil)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer func() { _ = wh.Close() }()

	if wh.Table() != "subscriptions" {
		t.Errorf("table = %q, want subscriptions", wh.Table())
	}
}
