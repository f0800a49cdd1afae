// Copyright (C) 2025 RavenStack (engineering@ravenstack.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package nlq

import (
	"reflect"
	"testing"
)

func TestExtractAmountStripsThousandsSeparators(t *testing.T) {
	ents := Extract("customers spending more than $1,000")
	if ents.Amount == nil {
		t.Fatal("amount not extracted")
	}
	if *ents.Amount != 1000.0 {
		t.Errorf("amount = %f, want 1000.0", *ents.Amount)
	}
}

func TestExtractAmountTakesFirstMatch(t *testing.T) {
	ents := Extract("between $500 and $900")
	if ents.Amount == nil || *ents.Amount != 500 {
		t.Fatalf("amount = %v, want 500", ents.Amount)
	}
}

func TestExtractAmountWithCents(t *testing.T) {
	ents := Extract("exactly $42.50")
	if ents.Amount == nil || *ents.Amount != 42.50 {
		t.Fatalf("amount = %v, want 42.50", ents.Amount)
	}
}

func TestExtractNumbersCollectsAll(t *testing.T) {
	ents := Extract("customers with more than 80% churn probability in top 10")
	want := []float64{80, 10}
	if !reflect.DeepEqual(ents.Numbers, want) {
		t.Errorf("numbers = %v, want %v", ents.Numbers, want)
	}
}

func TestExtractNoNumbersLeavesFieldsEmpty(t *testing.T) {
	ents := Extract("show me everything")
	if ents.Amount != nil {
		t.Errorf("amount = %v, want nil", ents.Amount)
	}
	if len(ents.Numbers) != 0 {
		t.Errorf("numbers = %v, want empty", ents.Numbers)
	}
}

func TestExtractPlanTier(t *testing.T) {
	tests := []struct {
		query string
		want  string
	}{
		{"customers in premium plan", "premium"},
		{"show me Enterprise accounts", "enterprise"},
		{"BASIC tier subscriptions", "basic"},
		{"no plan mentioned", ""},
	}
	for _, tt := range tests {
		if got := Extract(tt.query).Plan; got != tt.want {
			t.Errorf("Extract(%q).Plan = %q, want %q", tt.query, got, tt.want)
		}
	}
}

func TestExtractPlanFirstMatchWins(t *testing.T) {
	// "basic" precedes "premium" in the tier list regardless of text order.
	ents := Extract("compare premium vs basic")
	if ents.Plan != "basic" {
		t.Errorf("plan = %q, want basic", ents.Plan)
	}
}

func TestExtractTimeReference(t *testing.T) {
	tests := []struct {
		query string
		want  string
	}{
		{"churn last month", "last month"},
		{"predictions from yesterday", "yesterday"},
		{"signups this month", "this month"},
		{"no time here", ""},
	}
	for _, tt := range tests {
		if got := Extract(tt.query).TimeRef; got != tt.want {
			t.Errorf("Extract(%q).TimeRef = %q, want %q", tt.query, got, tt.want)
		}
	}
}

func TestExtractComparisonGreaterTakesPrecedence(t *testing.T) {
	tests := []struct {
		query string
		want  Comparison
	}{
		{"mrr above 500", CompareGreater},
		{"fewer than 10 seats", CompareLess},
		{"more than 100 but less than 500", CompareGreater},
		{"just customers", ""},
	}
	for _, tt := range tests {
		if got := Extract(tt.query).Compare; got != tt.want {
			t.Errorf("Extract(%q).Compare = %q, want %q", tt.query, got, tt.want)
		}
	}
}

func TestExtractBooleanFlags(t *testing.T) {
	ents := Extract("trial customers with auto renew enabled")
	if !ents.IsTrial {
		t.Error("IsTrial = false, want true")
	}
	if !ents.AutoRenew {
		t.Error("AutoRenew = false, want true")
	}

	ents = Extract("paying customers")
	if ents.IsTrial || ents.AutoRenew {
		t.Error("flags set without mention")
	}
}

func TestExtractAutoRenewVariants(t *testing.T) {
	for _, q := range []string{"auto renew off", "autorenew disabled", "auto-renew status"} {
		if !Extract(q).AutoRenew {
			t.Errorf("Extract(%q).AutoRenew = false, want true", q)
		}
	}
}

func TestExtractIsIdempotent(t *testing.T) {
	query := "premium trial customers above $1,000 last week with auto renew"
	first := Extract(query)
	second := Extract(query)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("repeated extraction differs: %+v vs %+v", first, second)
	}
}

func TestEntitiesHas(t *testing.T) {
	amount := 500.0
	ents := Entities{Amount: &amount, Plan: "premium"}

	if !ents.Has(ParamAmount) || !ents.Has(ParamPlan) {
		t.Error("Has should report extracted parameters")
	}
	if (Entities{}).Has(ParamAmount) || (Entities{}).Has(ParamPlan) {
		t.Error("Has should be false for absent parameters")
	}
	if ents.Has(ParamName("unknown")) {
		t.Error("Has should be false for unknown parameter names")
	}
}
