// Copyright (C) 2025 RavenStack (engineering@ravenstack.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package nlq

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
)

// =============================================================================
// TF-IDF Vectorizer
// =============================================================================

// DefaultMaxFeatures is the default vocabulary cap for a VectorSpace.
// 500 tokens is ample for corpora of a few dozen pattern entries while
// keeping query embedding well under a microsecond.
const DefaultMaxFeatures = 500

// N-gram bounds. Unigrams capture individual keywords ("churn", "revenue"),
// bigrams and trigrams capture the short phrases that distinguish templates
// from each other ("how many customers" vs "how many subscriptions").
const (
	minNGram = 1
	maxNGram = 3
)

// wordPattern matches word tokens of two or more characters, mirroring the
// tokenization the corpus phrases were authored against. Single-character
// tokens ("a", "$") carry no ranking signal and are dropped.
var wordPattern = regexp.MustCompile(`\b\w\w+\b`)

// VectorSpace is a fixed-vocabulary TF-IDF space built once from a corpus.
//
// # Description
//
// The space holds the n-gram vocabulary, per-token inverse document
// frequencies, and one unit-normalized document vector per corpus entry.
// Because every stored vector is unit length, cosine similarity between a
// query and a document reduces to a dot product at ranking time.
//
// # Thread Safety
//
// Immutable after construction via Vectorizer.Build. Safe for concurrent
// use without additional synchronization.
type VectorSpace struct {
	// vocab maps each retained n-gram token to its column index.
	vocab map[string]int

	// idf holds the inverse document frequency per column, computed with
	// add-one smoothing: ln((N+1)/(df+1)) + 1. Always >= 1.
	idf []float64

	// docVectors holds one unit-normalized TF-IDF vector per corpus
	// document, in corpus insertion order.
	docVectors [][]float64
}

// Vectorizer builds VectorSpaces from corpus documents.
//
// # Description
//
// A Vectorizer is a stateless builder: Build may be called once per corpus
// and returns an immutable VectorSpace. Construction is fully deterministic —
// the same documents always produce the same vocabulary, the same column
// order, and the same vectors. There is no randomness anywhere in the
// pipeline.
type Vectorizer struct {
	maxFeatures int
}

// NewVectorizer creates a Vectorizer with the given vocabulary cap.
//
// # Inputs
//
//   - maxFeatures: Vocabulary size limit. Zero or negative uses
//     DefaultMaxFeatures.
//
// # Outputs
//
//   - *Vectorizer: Ready-to-use builder. Never nil.
func NewVectorizer(maxFeatures int) *Vectorizer {
	if maxFeatures <= 0 {
		maxFeatures = DefaultMaxFeatures
	}
	return &Vectorizer{maxFeatures: maxFeatures}
}

// Build constructs a VectorSpace from the corpus documents.
//
// # Description
//
// Tokenizes each document into 1-3-gram tokens over lowercased text, computes
// document frequencies, selects the top maxFeatures tokens by corpus-wide
// TF-IDF mass (ties broken lexicographically for determinism), and produces
// one unit-normalized TF-IDF vector per document.
//
// # Inputs
//
//   - documents: One text per corpus entry, in corpus order. Must be
//     non-empty; an empty corpus is a configuration error, not a valid space.
//
// # Outputs
//
//   - *VectorSpace: The built space. Nil on error.
//   - error: Non-nil if documents is empty or no document yields any token.
//
// # Thread Safety
//
// Safe for concurrent use; Build touches no shared state.
func (v *Vectorizer) Build(documents []string) (*VectorSpace, error) {
	if len(documents) == 0 {
		return nil, fmt.Errorf("vectorizer: cannot build a space from an empty corpus")
	}

	// Tokenize every document once; docTF[i] maps token → frequency in doc i.
	docTF := make([]map[string]int, len(documents))
	df := make(map[string]int)
	for i, doc := range documents {
		tf := termFrequencies(doc)
		docTF[i] = tf
		for token := range tf {
			df[token]++
		}
	}
	if len(df) == 0 {
		return nil, fmt.Errorf("vectorizer: corpus produced no tokens")
	}

	n := len(documents)
	idfFor := func(token string) float64 {
		return math.Log(float64(n+1)/float64(df[token]+1)) + 1.0
	}

	// Rank tokens by corpus-wide TF-IDF mass and keep the top maxFeatures.
	// Lexicographic tie-break keeps vocabulary selection deterministic.
	type tokenMass struct {
		token string
		mass  float64
	}
	masses := make([]tokenMass, 0, len(df))
	for token := range df {
		var total float64
		for _, tf := range docTF {
			if count, ok := tf[token]; ok {
				total += float64(count) * idfFor(token)
			}
		}
		masses = append(masses, tokenMass{token: token, mass: total})
	}
	sort.Slice(masses, func(i, j int) bool {
		if masses[i].mass != masses[j].mass {
			return masses[i].mass > masses[j].mass
		}
		return masses[i].token < masses[j].token
	})
	if len(masses) > v.maxFeatures {
		masses = masses[:v.maxFeatures]
	}

	// Assign column indices in sorted-token order so the layout does not
	// depend on map iteration order.
	retained := make([]string, len(masses))
	for i, m := range masses {
		retained[i] = m.token
	}
	sort.Strings(retained)

	vocab := make(map[string]int, len(retained))
	idf := make([]float64, len(retained))
	for col, token := range retained {
		vocab[token] = col
		idf[col] = idfFor(token)
	}

	space := &VectorSpace{
		vocab: vocab,
		idf:   idf,
	}
	space.docVectors = make([][]float64, len(documents))
	for i := range documents {
		space.docVectors[i] = space.vectorize(docTF[i])
	}

	return space, nil
}

// Embed maps a query into the space's vector layout.
//
// # Description
//
// Tokenizes the query the same way corpus documents were tokenized, drops
// tokens outside the fixed vocabulary, and returns a unit-normalized TF-IDF
// vector. A query with no in-vocabulary tokens yields the zero vector, which
// scores 0 against every document and therefore ranks below the relevance
// floor — the NoMatch path, not an error.
//
// # Inputs
//
//   - text: The raw query text.
//
// # Outputs
//
//   - []float64: Unit-normalized vector (or the zero vector), one column per
//     vocabulary token.
//   - error: Non-nil only if the space was never built (nil receiver or
//     empty vocabulary).
//
// # Thread Safety
//
// Safe for concurrent use. Read-only access to the space.
func (s *VectorSpace) Embed(text string) ([]float64, error) {
	if s == nil || len(s.vocab) == 0 {
		return nil, fmt.Errorf("vectorizer: embed called on an unbuilt vector space")
	}
	return s.vectorize(termFrequencies(text)), nil
}

// DocumentVectors returns the per-entry document vectors in corpus order.
//
// The returned slice is the space's internal storage; callers must treat it
// as read-only.
func (s *VectorSpace) DocumentVectors() [][]float64 {
	return s.docVectors
}

// Dimensions returns the vocabulary size of the space.
func (s *VectorSpace) Dimensions() int {
	return len(s.vocab)
}

// vectorize converts a term-frequency map to a unit-normalized TF-IDF vector.
func (s *VectorSpace) vectorize(tf map[string]int) []float64 {
	vec := make([]float64, len(s.idf))
	for token, count := range tf {
		col, ok := s.vocab[token]
		if !ok {
			continue
		}
		vec[col] = float64(count) * s.idf[col]
	}

	var norm float64
	for _, x := range vec {
		norm += x * x
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for i := range vec {
			vec[i] /= norm
		}
	}
	return vec
}

// termFrequencies tokenizes text into 1-3-gram tokens and counts occurrences.
//
// Words are lowercased and matched by wordPattern; n-grams are contiguous
// word runs joined with single spaces.
func termFrequencies(text string) map[string]int {
	words := wordPattern.FindAllString(strings.ToLower(text), -1)
	tf := make(map[string]int)
	for n := minNGram; n <= maxNGram; n++ {
		for i := 0; i+n <= len(words); i++ {
			tf[strings.Join(words[i:i+n], " ")]++
		}
	}
	return tf
}
