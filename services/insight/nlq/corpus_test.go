// Copyright (C) 2025 RavenStack (engineering@ravenstack.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package nlq

import (
	"strings"
	"testing"
)

func TestLoadAnalyticsCorpus(t *testing.T) {
	c, err := LoadAnalyticsCorpus()
	if err != nil {
		t.Fatalf("LoadAnalyticsCorpus: %v", err)
	}
	if c.Len() != 14 {
		t.Errorf("intent count = %d, want 14", c.Len())
	}
	for _, tag := range []string{"high_risk_customers", "retrain_model", "predict_customer", "auto_renew"} {
		if _, ok := c.ByTag(tag); !ok {
			t.Errorf("missing intent %q", tag)
		}
	}
}

func TestLoadTemplateCorpus(t *testing.T) {
	c, err := LoadTemplateCorpus()
	if err != nil {
		t.Fatalf("LoadTemplateCorpus: %v", err)
	}
	if c.Len() != 16 {
		t.Errorf("template count = %d, want 16", c.Len())
	}

	spending, ok := c.ByTag("spending_above")
	if !ok {
		t.Fatal("missing template spending_above")
	}
	if len(spending.Requires) != 1 || spending.Requires[0] != ParamAmount {
		t.Errorf("spending_above requires = %v, want [amount]", spending.Requires)
	}
	if !strings.Contains(spending.SQL, "{amount}") || !strings.Contains(spending.SQL, "{table}") {
		t.Errorf("spending_above SQL missing placeholders: %s", spending.SQL)
	}

	inPlan, ok := c.ByTag("customers_in_plan")
	if !ok {
		t.Fatal("missing template customers_in_plan")
	}
	if len(inPlan.Requires) != 1 || inPlan.Requires[0] != ParamPlan {
		t.Errorf("customers_in_plan requires = %v, want [plan]", inPlan.Requires)
	}

	// Every template must carry SQL; parameterless templates must not
	// declare requirements.
	for i := 0; i < c.Len(); i++ {
		e := c.Entry(i)
		if e.SQL == "" {
			t.Errorf("template %q has no SQL", e.Tag)
		}
	}
}

func TestNewCorpusValidation(t *testing.T) {
	tests := []struct {
		name    string
		entries []PatternEntry
	}{
		{"empty", nil},
		{"missing tag", []PatternEntry{{Phrases: []string{"x"}}}},
		{"missing phrases", []PatternEntry{{Tag: "a"}}},
		{"duplicate tag", []PatternEntry{
			{Tag: "a", Phrases: []string{"x"}},
			{Tag: "a", Phrases: []string{"y"}},
		}},
	}
	for _, tt := range tests {
		if _, err := NewCorpus(tt.entries); err == nil {
			t.Errorf("%s: expected validation error", tt.name)
		}
	}
}

func TestDocumentsJoinPhrasesDescriptionKeywords(t *testing.T) {
	c, err := NewCorpus([]PatternEntry{{
		Tag:         "sample",
		Phrases:     []string{"one", "two"},
		Keywords:    []string{"kw"},
		Description: "desc",
	}})
	if err != nil {
		t.Fatalf("NewCorpus: %v", err)
	}

	docs := c.Documents()
	if len(docs) != 1 {
		t.Fatalf("document count = %d, want 1", len(docs))
	}
	if docs[0] != "one two desc kw" {
		t.Errorf("document = %q, want %q", docs[0], "one two desc kw")
	}
}

func TestHashChangesWithContentAndCap(t *testing.T) {
	base := []PatternEntry{{Tag: "a", Phrases: []string{"hello"}}}
	c1, _ := NewCorpus(base)
	c2, _ := NewCorpus([]PatternEntry{{Tag: "a", Phrases: []string{"goodbye"}}})

	h1 := c1.Hash(500)
	if len(h1) != 64 {
		t.Fatalf("hash length = %d, want 64", len(h1))
	}
	if h1 != c1.Hash(500) {
		t.Error("hash is not deterministic")
	}
	if h1 == c2.Hash(500) {
		t.Error("hash did not change with corpus content")
	}
	if h1 == c1.Hash(100) {
		t.Error("hash did not change with max features")
	}
}
