// Copyright (C) 2025 RavenStack (engineering@ravenstack.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package analytics renders churn-prediction views for resolved intents.
// Handlers take a prediction snapshot plus extracted entities and return a
// structured View; presentation (API JSON, CLI tables) is the caller's job.
package analytics

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// =============================================================================
// Prediction Snapshot
// =============================================================================

// Row is one customer's churn prediction.
type Row struct {
	CustomerID       string  `json:"customer_id"`
	ChurnProbability float64 `json:"churn_probability"`
	PlanTier         string  `json:"plan_tier"`
	MRR              float64 `json:"mrr_amount"`
	IsTrial          bool    `json:"is_trial"`
	AutoRenew        bool    `json:"auto_renew"`
	PredictedAt      string  `json:"predicted_at,omitempty"`
}

// Risk band boundaries. A probability strictly above HighRiskThreshold is
// high risk; strictly below LowRiskThreshold is low risk; everything between
// is medium.
const (
	HighRiskThreshold = 0.75
	LowRiskThreshold  = 0.25
)

// =============================================================================
// View Model
// =============================================================================

// Metric is a single labeled value in a view.
type Metric struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Table is a tabular block in a view.
type Table struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// View is the structured answer to an analytics question.
//
// # Description
//
// Every field is optional; a view typically carries a title plus some
// combination of text lines, metrics, and a table. Warning is set when the
// handler could not answer (no data, missing column) and explains why.
type View struct {
	Title   string   `json:"title,omitempty"`
	Text    []string `json:"text,omitempty"`
	Metrics []Metric `json:"metrics,omitempty"`
	Table   *Table   `json:"table,omitempty"`
	Warning string   `json:"warning,omitempty"`
}

// =============================================================================
// Context Summary
// =============================================================================

// Summary produces the one-line data context attached to resolved intents.
//
// # Description
//
// Joins the headline statistics with " | " so the summary reads as a single
// compact line: total analyzed, average probability, and the high/low risk
// counts. An empty snapshot yields a fixed no-data sentence.
func Summary(rows []Row) string {
	if len(rows) == 0 {
		return "No prediction data available."
	}

	var sum float64
	var highRisk, lowRisk int
	for _, r := range rows {
		sum += r.ChurnProbability
		if r.ChurnProbability > HighRiskThreshold {
			highRisk++
		}
		if r.ChurnProbability < LowRiskThreshold {
			lowRisk++
		}
	}

	parts := []string{
		fmt.Sprintf("Total customers analyzed: %d", len(rows)),
		fmt.Sprintf("Average churn probability: %.2f%%", sum/float64(len(rows))*100),
		fmt.Sprintf("High-risk customers: %d", highRisk),
		fmt.Sprintf("Low-risk customers: %d", lowRisk),
	}
	return strings.Join(parts, " | ")
}

// =============================================================================
// Snapshot Helpers
// =============================================================================

// rowTable renders prediction rows as a display table.
func rowTable(rows []Row) *Table {
	t := &Table{
		Columns: []string{"customer_id", "churn_probability", "plan_tier", "mrr_amount", "is_trial", "auto_renew"},
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []string{
			r.CustomerID,
			fmt.Sprintf("%.4f", r.ChurnProbability),
			r.PlanTier,
			fmt.Sprintf("%.2f", r.MRR),
			fmt.Sprintf("%t", r.IsTrial),
			fmt.Sprintf("%t", r.AutoRenew),
		})
	}
	return t
}

// sortByProbability returns a copy of rows sorted by churn probability,
// descending when desc is true.
func sortByProbability(rows []Row, desc bool) []Row {
	sorted := make([]Row, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool {
		if desc {
			return sorted[i].ChurnProbability > sorted[j].ChurnProbability
		}
		return sorted[i].ChurnProbability < sorted[j].ChurnProbability
	})
	return sorted
}

// mean returns the average churn probability, 0 for an empty slice.
func mean(rows []Row) float64 {
	if len(rows) == 0 {
		return 0
	}
	var sum float64
	for _, r := range rows {
		sum += r.ChurnProbability
	}
	return sum / float64(len(rows))
}

// median returns the median churn probability, 0 for an empty slice.
func median(rows []Row) float64 {
	if len(rows) == 0 {
		return 0
	}
	sorted := sortByProbability(rows, false)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1].ChurnProbability + sorted[mid].ChurnProbability) / 2
	}
	return sorted[mid].ChurnProbability
}

// stddev returns the population standard deviation of churn probability.
func stddev(rows []Row) float64 {
	if len(rows) == 0 {
		return 0
	}
	m := mean(rows)
	var sum float64
	for _, r := range rows {
		d := r.ChurnProbability - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(rows)))
}
