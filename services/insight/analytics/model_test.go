// Copyright (C) 2025 RavenStack (engineering@ravenstack.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package analytics

import (
	"math"
	"testing"
)

func TestSummaryFormat(t *testing.T) {
	rows := []Row{
		{ChurnProbability: 0.90},
		{ChurnProbability: 0.50},
		{ChurnProbability: 0.10},
	}

	got := Summary(rows)
	want := "Total customers analyzed: 3 | Average churn probability: 50.00% | High-risk customers: 1 | Low-risk customers: 1"
	if got != want {
		t.Errorf("Summary = %q\nwant      %q", got, want)
	}
}

func TestSummaryEmpty(t *testing.T) {
	if got := Summary(nil); got != "No prediction data available." {
		t.Errorf("Summary(nil) = %q", got)
	}
}

func TestMedianEvenAndOdd(t *testing.T) {
	odd := []Row{{ChurnProbability: 0.1}, {ChurnProbability: 0.9}, {ChurnProbability: 0.5}}
	if got := median(odd); got != 0.5 {
		t.Errorf("median(odd) = %f, want 0.5", got)
	}

	even := []Row{{ChurnProbability: 0.2}, {ChurnProbability: 0.4}}
	if got := median(even); math.Abs(got-0.3) > 1e-12 {
		t.Errorf("median(even) = %f, want 0.3", got)
	}

	if got := median(nil); got != 0 {
		t.Errorf("median(nil) = %f, want 0", got)
	}
}

func TestStddev(t *testing.T) {
	rows := []Row{{ChurnProbability: 0.2}, {ChurnProbability: 0.4}}
	if got := stddev(rows); math.Abs(got-0.1) > 1e-12 {
		t.Errorf("stddev = %f, want 0.1", got)
	}
}

func TestSortByProbabilityDoesNotMutate(t *testing.T) {
	rows := []Row{{CustomerID: "a", ChurnProbability: 0.2}, {CustomerID: "b", ChurnProbability: 0.8}}

	sorted := sortByProbability(rows, true)
	if sorted[0].CustomerID != "b" {
		t.Errorf("descending sort starts with %s, want b", sorted[0].CustomerID)
	}
	if rows[0].CustomerID != "a" {
		t.Error("input slice was mutated")
	}
}
