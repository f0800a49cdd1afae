// Copyright (C) 2025 RavenStack (engineering@ravenstack.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package nlq

import (
	"crypto/sha256"
	"encoding/hex"
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// =============================================================================
// Embedded Default Corpora
// =============================================================================

//go:embed analytics_intents.yaml
var defaultAnalyticsCorpusYAML []byte

//go:embed query_templates.yaml
var defaultTemplateCorpusYAML []byte

// =============================================================================
// Pattern Corpus
// =============================================================================

// PatternEntry is one recognizable question pattern: an analytics intent or
// a query template.
//
// # Description
//
// Entries are loaded once from YAML and never mutated. The vector document
// for an entry is the concatenation of its phrases, description, and
// keywords; the SQL field is present only for template corpora.
type PatternEntry struct {
	// Tag uniquely identifies the intent or template within its corpus.
	Tag string `yaml:"tag"`

	// Phrases are the canonical question formulations for this entry.
	Phrases []string `yaml:"phrases"`

	// Keywords are additional signal words folded into the vector document.
	Keywords []string `yaml:"keywords"`

	// Description is a one-line human-readable summary, surfaced in results.
	Description string `yaml:"description"`

	// Requires names the parameters that must be extracted from the query
	// before this entry's template may be rendered. Empty for most entries.
	Requires []ParamName `yaml:"requires"`

	// SQL is the parameterized query template with {name} placeholders.
	// Empty for analytics-intent corpora.
	SQL string `yaml:"sql"`
}

// Corpus is an immutable, validated bank of pattern entries.
//
// # Thread Safety
//
// Immutable after construction. Safe for concurrent use.
type Corpus struct {
	entries []PatternEntry
	byTag   map[string]int
}

// NewCorpus validates entries and builds a Corpus.
//
// # Description
//
// Validation is construction-time and fatal: an empty corpus, an entry
// without a tag or phrases, or a duplicate tag all reject the whole corpus.
// Per-query code never needs to re-check corpus shape.
//
// # Inputs
//
//   - entries: Pattern entries in ranking order.
//
// # Outputs
//
//   - *Corpus: The validated corpus. Nil on error.
//   - error: Non-nil on any validation failure.
func NewCorpus(entries []PatternEntry) (*Corpus, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("corpus: no entries")
	}
	byTag := make(map[string]int, len(entries))
	for i, e := range entries {
		if e.Tag == "" {
			return nil, fmt.Errorf("corpus: entry %d has no tag", i)
		}
		if len(e.Phrases) == 0 {
			return nil, fmt.Errorf("corpus: entry %q has no phrases", e.Tag)
		}
		if _, dup := byTag[e.Tag]; dup {
			return nil, fmt.Errorf("corpus: duplicate tag %q", e.Tag)
		}
		byTag[e.Tag] = i
	}
	return &Corpus{entries: entries, byTag: byTag}, nil
}

// LoadAnalyticsCorpus loads the built-in analytics-intent corpus.
func LoadAnalyticsCorpus() (*Corpus, error) {
	return parseCorpus(defaultAnalyticsCorpusYAML, "analytics_intents.yaml")
}

// LoadTemplateCorpus loads the built-in query-template corpus.
func LoadTemplateCorpus() (*Corpus, error) {
	return parseCorpus(defaultTemplateCorpusYAML, "query_templates.yaml")
}

// LoadCorpusFile loads a corpus from a YAML override file on disk.
//
// Used by deployments that extend or replace the built-in pattern banks.
func LoadCorpusFile(path string) (*Corpus, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("corpus: reading %s: %w", path, err)
	}
	return parseCorpus(raw, path)
}

// parseCorpus unmarshals and validates a YAML corpus document.
func parseCorpus(raw []byte, source string) (*Corpus, error) {
	var doc struct {
		Entries []PatternEntry `yaml:"entries"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("corpus: parsing %s: %w", source, err)
	}
	c, err := NewCorpus(doc.Entries)
	if err != nil {
		return nil, fmt.Errorf("corpus: validating %s: %w", source, err)
	}
	return c, nil
}

// Len returns the number of entries.
func (c *Corpus) Len() int {
	return len(c.entries)
}

// Entry returns the entry at the given insertion index.
func (c *Corpus) Entry(i int) PatternEntry {
	return c.entries[i]
}

// ByTag looks up an entry by its tag.
func (c *Corpus) ByTag(tag string) (PatternEntry, bool) {
	i, ok := c.byTag[tag]
	if !ok {
		return PatternEntry{}, false
	}
	return c.entries[i], true
}

// Documents builds the vector document for every entry, in insertion order.
//
// The document is the entry's phrases, description, and keywords joined with
// spaces — the text the vector space is built from and that queries are
// matched against.
func (c *Corpus) Documents() []string {
	docs := make([]string, len(c.entries))
	for i, e := range c.entries {
		parts := make([]string, 0, len(e.Phrases)+len(e.Keywords)+1)
		parts = append(parts, e.Phrases...)
		if e.Description != "" {
			parts = append(parts, e.Description)
		}
		parts = append(parts, e.Keywords...)
		docs[i] = strings.Join(parts, " ")
	}
	return docs
}

// Hash computes a deterministic SHA256 digest of the corpus content plus the
// vectorizer's vocabulary cap.
//
// # Description
//
// Covers everything that determines vector shape: entry order, tags, phrases,
// keywords, descriptions, and maxFeatures. Any change yields a new digest, so
// a persisted vector space keyed by it invalidates itself automatically.
//
// # Outputs
//
//   - string: Lowercase hex SHA256 digest (64 characters).
func (c *Corpus) Hash(maxFeatures int) string {
	h := sha256.New()
	for i, e := range c.entries {
		fmt.Fprintf(h, "%d\t%s\t%s\t%s\t%s\n",
			i, e.Tag,
			strings.Join(e.Phrases, "|"),
			strings.Join(e.Keywords, "|"),
			e.Description,
		)
	}
	fmt.Fprintf(h, "max_features=%d\n", maxFeatures)
	return hex.EncodeToString(h.Sum(nil))
}
