// Copyright (C) 2025 RavenStack (engineering@ravenstack.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package nlq

import "sort"

// =============================================================================
// Similarity Ranker
// =============================================================================

// RelevanceFloor is the minimum cosine similarity for a candidate to be
// considered at all. Candidates at or below the floor are discarded — a hard
// cutoff, not a soft down-weight. An empty survivor set signals an
// unrecognized query, which callers handle as a distinct terminal case.
const RelevanceFloor = 0.1

// Candidate pairs a corpus entry index with its similarity score.
type Candidate struct {
	// Index is the entry's position in corpus insertion order.
	Index int

	// Score is the cosine similarity in [-1, 1]. With non-negative TF-IDF
	// weights it is practically in [0, 1].
	Score float64
}

// Rank scores the query vector against every document vector and returns all
// candidates ordered by descending score.
//
// # Description
//
// Both the query and document vectors are unit-normalized, so cosine
// similarity is a plain dot product. The sort is stable: ties keep corpus
// insertion order, making ranking fully deterministic.
//
// Rank applies no cutoff — callers apply the relevance floor via
// TopAboveFloor so the floor policy lives in one place.
//
// # Inputs
//
//   - query: Unit-normalized query vector from VectorSpace.Embed.
//   - space: The built vector space. Must not be nil.
//
// # Outputs
//
//   - []Candidate: One candidate per corpus entry, descending by score.
//
// # Thread Safety
//
// Safe for concurrent use. Read-only access to the space.
func Rank(query []float64, space *VectorSpace) []Candidate {
	docs := space.DocumentVectors()
	candidates := make([]Candidate, len(docs))
	for i, doc := range docs {
		candidates[i] = Candidate{Index: i, Score: dot(query, doc)}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	return candidates
}

// TopAboveFloor keeps at most k candidates whose score exceeds the floor.
//
// # Description
//
// The floor is strict: a candidate scoring exactly at the floor is discarded.
// Returns an empty (non-nil) slice when nothing clears the floor; callers
// treat that as NoMatch, never as an error.
//
// # Inputs
//
//   - candidates: Ranked candidates from Rank (descending order assumed).
//   - floor: The relevance floor, typically RelevanceFloor.
//   - k: Maximum survivors to keep. Non-positive means no limit.
//
// # Outputs
//
//   - []Candidate: Survivors in ranked order. Never nil.
func TopAboveFloor(candidates []Candidate, floor float64, k int) []Candidate {
	kept := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.Score <= floor {
			// Candidates are sorted descending; everything after is lower.
			break
		}
		kept = append(kept, c)
		if k > 0 && len(kept) == k {
			break
		}
	}
	return kept
}

// dot computes the dot product of two vectors. Mismatched lengths use the
// shorter vector.
func dot(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}
