// Copyright (C) 2025 RavenStack (engineering@ravenstack.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package badger wraps the embedded BadgerDB key-value store behind a small
// transactional API. The service opens one DB at startup and shares it with
// every store that needs local persistence.
package badger

import (
	"context"
	"fmt"
	"log/slog"

	dgbadger "github.com/dgraph-io/badger/v4"
)

// DB is a shared handle to an open BadgerDB instance.
//
// # Thread Safety
//
// Safe for concurrent use. BadgerDB transactions are per-goroutine.
type DB struct {
	db     *dgbadger.DB
	logger *slog.Logger
}

// Open opens (or creates) a BadgerDB at the given directory.
//
// # Inputs
//
//   - dir: Database directory. Created if absent. Empty opens an in-memory
//     instance, used by tests.
//   - logger: Logger for lifecycle diagnostics. May be nil.
//
// # Outputs
//
//   - *DB: Open handle. Nil on error.
//   - error: Non-nil if the directory cannot be opened or locked.
func Open(dir string, logger *slog.Logger) (*DB, error) {
	if logger == nil {
		logger = slog.Default()
	}

	opts := dgbadger.DefaultOptions(dir).
		WithLogger(nil) // suppress BadgerDB internal logs
	if dir == "" {
		opts = opts.WithInMemory(true)
	}

	db, err := dgbadger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badger: opening %s: %w", dir, err)
	}

	logger.Debug("badger: opened", slog.String("dir", dir))
	return &DB{db: db, logger: logger}, nil
}

// Close releases the database and its directory lock.
func (d *DB) Close() error {
	if d == nil || d.db == nil {
		return nil
	}
	return d.db.Close()
}

// WithReadTxn runs fn inside a read-only transaction.
//
// The context is checked before the transaction starts; BadgerDB reads are
// local and fast, so no mid-transaction cancellation is attempted.
func (d *DB) WithReadTxn(ctx context.Context, fn func(txn *dgbadger.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return d.db.View(fn)
}

// WithTxn runs fn inside a read-write transaction, committing on nil return.
func (d *DB) WithTxn(ctx context.Context, fn func(txn *dgbadger.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return d.db.Update(fn)
}
