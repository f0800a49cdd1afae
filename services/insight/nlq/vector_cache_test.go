// Copyright (C) 2025 RavenStack (engineering@ravenstack.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package nlq

import (
	"context"
	"testing"
	"time"

	badgerstore "github.com/ravenstack/insight/services/insight/storage/badger"
)

func newTestStore(t *testing.T) *BadgerSpaceStore {
	t.Helper()
	db, err := badgerstore.Open("", nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewBadgerSpaceStore(db, time.Hour, nil)
}

func TestSpaceStoreRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	corpus, err := LoadAnalyticsCorpus()
	if err != nil {
		t.Fatalf("LoadAnalyticsCorpus: %v", err)
	}
	space, err := NewVectorizer(0).Build(corpus.Documents())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	hash := corpus.Hash(0)

	if err := store.SaveSpace(ctx, hash, space); err != nil {
		t.Fatalf("SaveSpace: %v", err)
	}

	restored, err := store.LoadSpace(ctx, hash)
	if err != nil {
		t.Fatalf("LoadSpace: %v", err)
	}
	if restored == nil {
		t.Fatal("LoadSpace returned miss after save")
	}
	if restored.Dimensions() != space.Dimensions() {
		t.Errorf("dimensions = %d, want %d", restored.Dimensions(), space.Dimensions())
	}
	if len(restored.DocumentVectors()) != len(space.DocumentVectors()) {
		t.Fatalf("document count = %d, want %d",
			len(restored.DocumentVectors()), len(space.DocumentVectors()))
	}

	// The restored space must embed queries identically to the original.
	query := "show me high risk customers"
	want, err := space.Embed(query)
	if err != nil {
		t.Fatalf("Embed original: %v", err)
	}
	got, err := restored.Embed(query)
	if err != nil {
		t.Fatalf("Embed restored: %v", err)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("embedding differs at dimension %d: %f vs %f", i, got[i], want[i])
		}
	}
}

func TestSpaceStoreMissReturnsNilNil(t *testing.T) {
	store := newTestStore(t)

	space, err := store.LoadSpace(context.Background(), "deadbeef")
	if err != nil {
		t.Fatalf("LoadSpace: %v", err)
	}
	if space != nil {
		t.Fatal("expected nil space on miss")
	}
}

func TestSpaceStoreKeysIsolateCorpora(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	intents, err := LoadAnalyticsCorpus()
	if err != nil {
		t.Fatalf("LoadAnalyticsCorpus: %v", err)
	}
	templates, err := LoadTemplateCorpus()
	if err != nil {
		t.Fatalf("LoadTemplateCorpus: %v", err)
	}

	intentSpace, err := NewVectorizer(0).Build(intents.Documents())
	if err != nil {
		t.Fatalf("Build intents: %v", err)
	}
	if err := store.SaveSpace(ctx, intents.Hash(0), intentSpace); err != nil {
		t.Fatalf("SaveSpace: %v", err)
	}

	// The template corpus hash must not see the intent snapshot.
	space, err := store.LoadSpace(ctx, templates.Hash(0))
	if err != nil {
		t.Fatalf("LoadSpace: %v", err)
	}
	if space != nil {
		t.Fatal("template hash returned the intent snapshot")
	}
}

func TestSpaceStoreSkipsEmptySpace(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.SaveSpace(ctx, "abc", nil); err != nil {
		t.Fatalf("SaveSpace(nil): %v", err)
	}
	space, err := store.LoadSpace(ctx, "abc")
	if err != nil {
		t.Fatalf("LoadSpace: %v", err)
	}
	if space != nil {
		t.Fatal("nil space should not have been persisted")
	}
}
