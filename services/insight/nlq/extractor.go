// Copyright (C) 2025 RavenStack (engineering@ravenstack.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package nlq

import (
	"regexp"
	"strconv"
	"strings"
)

// =============================================================================
// Entity Extractor
// =============================================================================

// ParamName identifies a structured parameter a template may require.
type ParamName string

// Parameter names used by the built-in template corpus.
const (
	ParamAmount ParamName = "amount"
	ParamPlan   ParamName = "plan"
)

// Comparison is the direction of a threshold phrase in the query.
type Comparison string

// Comparison directions.
const (
	CompareGreater Comparison = "greater"
	CompareLess    Comparison = "less"
)

// amountPattern matches the first currency or plain-number token: optional
// leading $, optional thousands separators, optional two-decimal cents.
var amountPattern = regexp.MustCompile(`\$?(\d+(?:,\d{3})*(?:\.\d{2})?)`)

// numberPattern matches standalone integers and decimals.
var numberPattern = regexp.MustCompile(`\b\d+(?:\.\d+)?\b`)

// planTiers is the closed enumeration of recognizable plan names, checked in
// this order. The first substring hit wins — a query naming two plans keeps
// only the earlier entry of this list, a compatibility behavior carried from
// the production extraction rules rather than a resolution policy.
var planTiers = []string{
	"basic", "standard", "premium", "enterprise",
	"pro", "starter", "business", "free",
}

// timeReferences is the closed set of recognizable time phrases, checked in
// this order with first match winning.
var timeReferences = []string{
	"today", "yesterday", "last week", "last month", "this month",
}

// Directional threshold phrases. The greater-direction set is checked before
// the less-direction set; a query containing both keeps "greater".
var (
	greaterPhrases = []string{"above", "greater than", "more than"}
	lessPhrases    = []string{"below", "less than", "fewer than"}
)

// Entities holds the structured parameters extracted from a query.
//
// # Description
//
// Every field is optional. Absent values are the zero value and are omitted
// from JSON output — boolean flags in particular are only ever emitted as
// true; an unmentioned flag is omitted, never reported false.
type Entities struct {
	// Amount is the first currency/plain-number match, as a float.
	// Nil when the query contains no number.
	Amount *float64 `json:"amount,omitempty"`

	// Numbers collects every standalone number in the query, in order of
	// appearance. Used for thresholds like "more than 10 customers".
	Numbers []float64 `json:"numbers,omitempty"`

	// Plan is the matched plan tier, lowercased. Empty when absent.
	Plan string `json:"plan,omitempty"`

	// TimeRef is the matched time reference phrase. Empty when absent.
	TimeRef string `json:"time_reference,omitempty"`

	// Compare is the threshold direction. Empty when no directional phrase
	// appears.
	Compare Comparison `json:"comparison,omitempty"`

	// IsTrial is true when the query mentions trial customers.
	IsTrial bool `json:"is_trial,omitempty"`

	// AutoRenew is true when the query mentions auto-renewal.
	AutoRenew bool `json:"auto_renew,omitempty"`
}

// Has reports whether the named parameter was extracted.
//
// Used by the synthesizer's required-parameter gate.
func (e Entities) Has(name ParamName) bool {
	switch name {
	case ParamAmount:
		return e.Amount != nil
	case ParamPlan:
		return e.Plan != ""
	default:
		return false
	}
}

// Extract pulls structured parameters out of raw query text.
//
// # Description
//
// Each entity category is extracted by an independent pass over the text, so
// a single query may yield several entity types at once. Extraction is
// deliberately decoupled from intent classification: the same text always
// produces the same entities no matter which corpus it is later ranked
// against, and extracting twice is idempotent.
//
// Conflicting extractions within one category (two plan names, two time
// phrases) are resolved first-match-wins and are not disambiguated further.
//
// # Inputs
//
//   - text: The raw query text. Case-insensitive.
//
// # Outputs
//
//   - Entities: The extracted parameters. Zero value when nothing matched.
//
// # Thread Safety
//
// Stateless. Safe for concurrent use.
func Extract(text string) Entities {
	lower := strings.ToLower(text)
	var ents Entities

	// Numeric amount: first match only. Thousands separators are stripped
	// before parsing, so "$1,000" yields 1000.0.
	if m := amountPattern.FindStringSubmatch(text); m != nil {
		raw := strings.ReplaceAll(m[1], ",", "")
		if amount, err := strconv.ParseFloat(raw, 64); err == nil {
			ents.Amount = &amount
		}
	}

	// Plural numbers: every standalone integer/decimal, in order.
	for _, raw := range numberPattern.FindAllString(text, -1) {
		if n, err := strconv.ParseFloat(raw, 64); err == nil {
			ents.Numbers = append(ents.Numbers, n)
		}
	}

	// Plan tier: first match against the closed enumeration wins.
	for _, plan := range planTiers {
		if strings.Contains(lower, plan) {
			ents.Plan = plan
			break
		}
	}

	// Time reference: first match against the closed phrase set wins.
	for _, ref := range timeReferences {
		if strings.Contains(lower, ref) {
			ents.TimeRef = ref
			break
		}
	}

	// Comparison direction: greater-direction phrases take precedence.
	if containsAny(lower, greaterPhrases) {
		ents.Compare = CompareGreater
	} else if containsAny(lower, lessPhrases) {
		ents.Compare = CompareLess
	}

	// Boolean flags: presence sets true; absence leaves the flag unset.
	if strings.Contains(lower, "trial") {
		ents.IsTrial = true
	}
	if strings.Contains(lower, "auto renew") || strings.Contains(lower, "autorenew") || strings.Contains(lower, "auto-renew") {
		ents.AutoRenew = true
	}

	return ents
}

// containsAny reports whether any phrase appears as a substring of s.
func containsAny(s string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}
