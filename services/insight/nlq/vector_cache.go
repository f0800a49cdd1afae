// Copyright (C) 2025 RavenStack (engineering@ravenstack.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package nlq

// =============================================================================
// VectorSpace Persistence
// =============================================================================
//
// Vector spaces rebuild from the corpus in well under a millisecond, so this
// cache exists for deployment corpora loaded from override files: the
// persisted space records exactly what was served before a restart, and the
// corpus hash key makes any corpus or cap change invalidate it automatically.
//
// Storage layout:
//
//	nlq/space/v1/{corpusHash}  →  gob-encoded spaceSnapshot
//	                              TTL: 7 days

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"log/slog"
	"time"

	dgbadger "github.com/dgraph-io/badger/v4"

	badgerstore "github.com/ravenstack/insight/services/insight/storage/badger"
)

// spaceCacheDefaultTTL is the lifetime of a persisted vector space. Expiry is
// enforced by BadgerDB's GC; expired keys read back as a cache miss.
const spaceCacheDefaultTTL = 7 * 24 * time.Hour

// spaceCacheKeyPrefix is prepended to the corpus hash to form the BadgerDB
// key. Versioned so a future snapshot format cannot collide with this one.
const spaceCacheKeyPrefix = "nlq/space/v1/"

// errSpaceCacheMiss distinguishes an absent key from a storage failure.
var errSpaceCacheMiss = errors.New("cache miss")

// SpaceStore persists built vector spaces across service restarts.
//
// # Description
//
// Keyed by Corpus.Hash, so any change to corpus content or the vocabulary
// cap makes the previous entry unreachable; it then ages out via TTL with no
// explicit invalidation. Implementations return (nil, nil) on miss — a miss
// is a normal startup condition, not an error.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use.
type SpaceStore interface {
	// LoadSpace retrieves the persisted vector space for the corpus hash.
	// Returns (nil, nil) on cache miss.
	LoadSpace(ctx context.Context, corpusHash string) (*VectorSpace, error)

	// SaveSpace persists a built vector space under the corpus hash.
	// Persistence failure is non-fatal; callers log and continue, and the
	// space is rebuilt on the next restart.
	SaveSpace(ctx context.Context, corpusHash string, space *VectorSpace) error
}

// spaceSnapshot is the gob wire form of a VectorSpace.
type spaceSnapshot struct {
	Vocab      map[string]int
	IDF        []float64
	DocVectors [][]float64
}

// BadgerSpaceStore implements SpaceStore over a shared BadgerDB instance.
//
// # Description
//
// The DB is opened by the caller at startup and outlives the store; the
// store does not own its lifecycle. Snapshots are gob-encoded, compact at
// this scale (tens of documents over a few hundred columns), and carry a
// TTL applied at write time.
//
// # Thread Safety
//
// Safe for concurrent use.
type BadgerSpaceStore struct {
	db     *badgerstore.DB
	ttl    time.Duration
	logger *slog.Logger
}

// NewBadgerSpaceStore creates a BadgerSpaceStore backed by the given DB.
//
// # Inputs
//
//   - db: Opened BadgerDB wrapper. Must not be nil.
//   - ttl: Lifetime per entry. Zero or negative uses the 7-day default.
//   - logger: Logger for hit/miss diagnostics. May be nil.
func NewBadgerSpaceStore(db *badgerstore.DB, ttl time.Duration, logger *slog.Logger) *BadgerSpaceStore {
	if db == nil {
		panic("NewBadgerSpaceStore: db must not be nil")
	}
	if ttl <= 0 {
		ttl = spaceCacheDefaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &BadgerSpaceStore{db: db, ttl: ttl, logger: logger}
}

// LoadSpace retrieves the persisted vector space for the corpus hash.
//
// # Outputs
//
//   - *VectorSpace: The restored space. Nil on miss or error.
//   - error: Non-nil on storage or decode failure. Nil on miss and success.
func (s *BadgerSpaceStore) LoadSpace(ctx context.Context, corpusHash string) (*VectorSpace, error) {
	key := spaceCacheKey(corpusHash)

	var raw []byte
	err := s.db.WithReadTxn(ctx, func(txn *dgbadger.Txn) error {
		item, err := txn.Get(key)
		if errors.Is(err, dgbadger.ErrKeyNotFound) {
			return errSpaceCacheMiss
		}
		if err != nil {
			return fmt.Errorf("get cache key: %w", err)
		}
		raw, err = item.ValueCopy(nil)
		if err != nil {
			return fmt.Errorf("copy value: %w", err)
		}
		return nil
	})

	if errors.Is(err, errSpaceCacheMiss) {
		s.logger.Debug("space cache: miss", slog.String("hash", shortHash(corpusHash)))
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("space cache load: %w", err)
	}

	var snap spaceSnapshot
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&snap); err != nil {
		return nil, fmt.Errorf("space cache decode: %w", err)
	}
	if len(snap.Vocab) == 0 || len(snap.DocVectors) == 0 {
		return nil, fmt.Errorf("space cache: snapshot for %s is empty", shortHash(corpusHash))
	}

	s.logger.Debug("space cache: hit",
		slog.String("hash", shortHash(corpusHash)),
		slog.Int("documents", len(snap.DocVectors)),
		slog.Int("dimensions", len(snap.IDF)),
	)
	return &VectorSpace{
		vocab:      snap.Vocab,
		idf:        snap.IDF,
		docVectors: snap.DocVectors,
	}, nil
}

// SaveSpace persists a built vector space with the configured TTL.
func (s *BadgerSpaceStore) SaveSpace(ctx context.Context, corpusHash string, space *VectorSpace) error {
	if space == nil || space.Dimensions() == 0 {
		return nil
	}

	snap := spaceSnapshot{
		Vocab:      space.vocab,
		IDF:        space.idf,
		DocVectors: space.docVectors,
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(snap); err != nil {
		return fmt.Errorf("space cache encode: %w", err)
	}

	key := spaceCacheKey(corpusHash)
	err := s.db.WithTxn(ctx, func(txn *dgbadger.Txn) error {
		entry := dgbadger.NewEntry(key, buf.Bytes()).WithTTL(s.ttl)
		return txn.SetEntry(entry)
	})
	if err != nil {
		return fmt.Errorf("space cache save: %w", err)
	}

	s.logger.Debug("space cache: saved",
		slog.String("hash", shortHash(corpusHash)),
		slog.Int("documents", len(snap.DocVectors)),
		slog.Duration("ttl", s.ttl),
	)
	return nil
}

// spaceCacheKey builds the BadgerDB key for the given corpus hash.
func spaceCacheKey(corpusHash string) []byte {
	return []byte(spaceCacheKeyPrefix + corpusHash)
}

// shortHash returns the first 8 characters of a hash for log display.
func shortHash(h string) string {
	if len(h) > 8 {
		return h[:8] + "..."
	}
	return h
}
