// Copyright (C) 2025 RavenStack (engineering@ravenstack.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package analytics

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ravenstack/insight/services/insight/nlq"
)

// =============================================================================
// Intent View Handlers
// =============================================================================

// noDataWarning is the shared warning for handlers that need a prediction
// snapshot but got none.
const noDataWarning = "No prediction data available. Please make predictions first."

// latestDefaultLimit is how many predictions the latest-predictions view
// shows when the question names no count.
const latestDefaultLimit = 20

// thresholdFromEntities resolves a risk threshold from the question.
//
// The first extracted number overrides the default; values above 1 are read
// as percentages ("80% churn probability" means 0.80).
func thresholdFromEntities(entities nlq.Entities, fallback float64) float64 {
	if len(entities.Numbers) == 0 {
		return fallback
	}
	n := entities.Numbers[0]
	if n > 1 {
		return n / 100
	}
	return n
}

// highRiskView lists customers whose churn probability exceeds the threshold.
func highRiskView(rows []Row, entities nlq.Entities) View {
	if len(rows) == 0 {
		return View{Warning: noDataWarning}
	}

	threshold := thresholdFromEntities(entities, HighRiskThreshold)
	var matched []Row
	for _, r := range rows {
		if r.ChurnProbability > threshold {
			matched = append(matched, r)
		}
	}

	view := View{
		Title: fmt.Sprintf("High-Risk Customers (>%.0f%% churn probability)", threshold*100),
		Text: []string{
			fmt.Sprintf("Found %d high-risk customers out of %d total", len(matched), len(rows)),
		},
	}
	if len(matched) == 0 {
		view.Text = append(view.Text, "No high-risk customers found!")
		return view
	}
	view.Table = rowTable(sortByProbability(matched, true))
	return view
}

// lowRiskView lists customers whose churn probability is below the threshold.
func lowRiskView(rows []Row, entities nlq.Entities) View {
	if len(rows) == 0 {
		return View{Warning: noDataWarning}
	}

	threshold := thresholdFromEntities(entities, LowRiskThreshold)
	var matched []Row
	for _, r := range rows {
		if r.ChurnProbability < threshold {
			matched = append(matched, r)
		}
	}

	view := View{
		Title: fmt.Sprintf("Low-Risk Customers (<%.0f%% churn probability)", threshold*100),
		Text:  []string{fmt.Sprintf("Found %d low-risk customers", len(matched))},
	}
	if len(matched) > 50 {
		matched = matched[:50]
	}
	if len(matched) > 0 {
		view.Table = rowTable(matched)
	}
	return view
}

// latestView shows the tail of the prediction snapshot.
func latestView(rows []Row, entities nlq.Entities) View {
	if len(rows) == 0 {
		return View{Warning: noDataWarning}
	}

	limit := latestDefaultLimit
	if len(entities.Numbers) > 0 && entities.Numbers[0] >= 1 {
		limit = int(entities.Numbers[0])
	}
	if limit > len(rows) {
		limit = len(rows)
	}

	return View{
		Title: fmt.Sprintf("Latest %d Predictions", limit),
		Table: rowTable(rows[len(rows)-limit:]),
	}
}

// statisticsView summarizes the snapshot by risk band.
func statisticsView(rows []Row, _ nlq.Entities) View {
	if len(rows) == 0 {
		return View{Warning: noDataWarning}
	}

	total := len(rows)
	var high, low int
	for _, r := range rows {
		switch {
		case r.ChurnProbability > HighRiskThreshold:
			high++
		case r.ChurnProbability < LowRiskThreshold:
			low++
		}
	}
	medium := total - high - low

	pct := func(n int) string { return fmt.Sprintf("%d (%.1f%%)", n, float64(n)/float64(total)*100) }
	return View{
		Title: "Churn Statistics",
		Metrics: []Metric{
			{Label: "Total Customers", Value: fmt.Sprintf("%d", total)},
			{Label: "High Risk", Value: pct(high)},
			{Label: "Medium Risk", Value: pct(medium)},
			{Label: "Low Risk", Value: pct(low)},
		},
	}
}

// averageView reports the central tendency of churn probability.
func averageView(rows []Row, _ nlq.Entities) View {
	if len(rows) == 0 {
		return View{Warning: noDataWarning}
	}
	return View{
		Title: "Average Churn Metrics",
		Metrics: []Metric{
			{Label: "Average Churn Probability", Value: fmt.Sprintf("%.2f%%", mean(rows)*100)},
			{Label: "Median Churn Probability", Value: fmt.Sprintf("%.2f%%", median(rows)*100)},
			{Label: "Standard Deviation", Value: fmt.Sprintf("%.2f%%", stddev(rows)*100)},
		},
	}
}

// featureImportance is the static ranked table of churn drivers, shown until
// a trained model supplies per-deployment importances.
var featureImportance = []struct {
	Feature    string
	Importance int
	Impact     string
}{
	{"Subscription Duration", 95, "Higher churn for newer customers"},
	{"Auto Renew Status", 92, "Disabled auto-renew = strong churn signal"},
	{"Plan Tier", 88, "Basic plan customers churn more"},
	{"MRR/ARR Amount", 85, "Lower value = higher churn risk"},
	{"Recent Downgrades", 82, "Downgrade activity signals dissatisfaction"},
	{"Trial Status", 78, "Trial customers more likely to churn"},
	{"Number of Seats", 65, "Single-seat customers churn easily"},
	{"Billing Frequency", 58, "Monthly billing shows less commitment"},
	{"Upgrade Activity", 52, "Lack of upgrades indicates low engagement"},
	{"Customer Age", 48, "Newer accounts have higher risk"},
}

// topFeaturesView shows the ranked feature-importance table.
func topFeaturesView(rows []Row, _ nlq.Entities) View {
	view := View{Title: "Top Features Driving Churn"}
	if len(rows) > 0 {
		view.Text = []string{"Feature importance analysis based on the churn prediction model"}
	} else {
		view.Text = []string{"General feature importance for churn prediction (train a model for specific insights)"}
	}

	t := &Table{Columns: []string{"feature", "importance", "impact"}}
	for _, f := range featureImportance {
		t.Rows = append(t.Rows, []string{f.Feature, fmt.Sprintf("%d", f.Importance), f.Impact})
	}
	view.Table = t
	return view
}

// planSegmentView groups the snapshot by plan tier.
func planSegmentView(rows []Row, _ nlq.Entities) View {
	if len(rows) == 0 {
		return View{Warning: noDataWarning}
	}

	type stats struct {
		count    int
		sum      float64
		min, max float64
	}
	byPlan := map[string]*stats{}
	for _, r := range rows {
		s, ok := byPlan[r.PlanTier]
		if !ok {
			s = &stats{min: r.ChurnProbability, max: r.ChurnProbability}
			byPlan[r.PlanTier] = s
		}
		s.count++
		s.sum += r.ChurnProbability
		if r.ChurnProbability < s.min {
			s.min = r.ChurnProbability
		}
		if r.ChurnProbability > s.max {
			s.max = r.ChurnProbability
		}
	}

	plans := make([]string, 0, len(byPlan))
	for plan := range byPlan {
		plans = append(plans, plan)
	}
	sort.Strings(plans)

	t := &Table{Columns: []string{"plan_tier", "customers", "avg_churn", "min_churn", "max_churn"}}
	for _, plan := range plans {
		s := byPlan[plan]
		t.Rows = append(t.Rows, []string{
			plan,
			fmt.Sprintf("%d", s.count),
			fmt.Sprintf("%.4f", s.sum/float64(s.count)),
			fmt.Sprintf("%.4f", s.min),
			fmt.Sprintf("%.4f", s.max),
		})
	}
	return View{Title: "Customers by Plan Tier", Table: t}
}

// trialView lists trial customers and their average risk.
func trialView(rows []Row, _ nlq.Entities) View {
	if len(rows) == 0 {
		return View{Warning: noDataWarning}
	}

	var trial []Row
	for _, r := range rows {
		if r.IsTrial {
			trial = append(trial, r)
		}
	}

	view := View{
		Title: "Trial Customers",
		Text:  []string{fmt.Sprintf("Found %d customers on trial", len(trial))},
	}
	if len(trial) > 0 {
		view.Metrics = []Metric{{
			Label: "Average Churn Probability for Trial Customers",
			Value: fmt.Sprintf("%.2f%%", mean(trial)*100),
		}}
		view.Table = rowTable(trial)
	}
	return view
}

// autoRenewView splits the snapshot by auto-renew status and highlights the
// non-renewing cohort, the stronger churn signal.
func autoRenewView(rows []Row, _ nlq.Entities) View {
	if len(rows) == 0 {
		return View{Warning: noDataWarning}
	}

	var enabled, disabled []Row
	for _, r := range rows {
		if r.AutoRenew {
			enabled = append(enabled, r)
		} else {
			disabled = append(disabled, r)
		}
	}

	view := View{
		Title: "Auto-Renew Status",
		Metrics: []Metric{
			{Label: "Auto-Renew Enabled", Value: fmt.Sprintf("%d", len(enabled))},
			{Label: "Auto-Renew Disabled", Value: fmt.Sprintf("%d", len(disabled))},
		},
	}
	if len(disabled) > 0 {
		view.Text = []string{
			fmt.Sprintf("Customers without auto-renew (avg churn %.2f%%):", mean(disabled)*100),
		}
		view.Table = rowTable(sortByProbability(disabled, true))
	}
	return view
}

// featureAnalysisView explains the drivers behind high-risk predictions by
// pairing the importance table with the current high-risk cohort.
func featureAnalysisView(rows []Row, entities nlq.Entities) View {
	view := topFeaturesView(rows, entities)
	view.Title = "Feature Contributions for High-Risk Customers"
	if len(rows) == 0 {
		return view
	}

	var high int
	for _, r := range rows {
		if r.ChurnProbability > HighRiskThreshold {
			high++
		}
	}
	view.Text = append(view.Text,
		fmt.Sprintf("%d high-risk customers; the factors above rank the strongest churn drivers for this cohort", high))
	return view
}

// segmentComparisonView compares churn across the plan-tier and trial
// segments side by side.
func segmentComparisonView(rows []Row, _ nlq.Entities) View {
	if len(rows) == 0 {
		return View{Warning: noDataWarning}
	}

	segment := func(name string, members []Row) []string {
		if len(members) == 0 {
			return []string{name, "0", "-"}
		}
		return []string{name, fmt.Sprintf("%d", len(members)), fmt.Sprintf("%.4f", mean(members))}
	}

	byPlan := map[string][]Row{}
	var trial, paying []Row
	for _, r := range rows {
		byPlan[r.PlanTier] = append(byPlan[r.PlanTier], r)
		if r.IsTrial {
			trial = append(trial, r)
		} else {
			paying = append(paying, r)
		}
	}

	plans := make([]string, 0, len(byPlan))
	for plan := range byPlan {
		plans = append(plans, plan)
	}
	sort.Strings(plans)

	t := &Table{Columns: []string{"segment", "customers", "avg_churn"}}
	for _, plan := range plans {
		t.Rows = append(t.Rows, segment("plan:"+strings.ToLower(plan), byPlan[plan]))
	}
	t.Rows = append(t.Rows, segment("trial", trial), segment("paying", paying))

	return View{Title: "Churn by Segment", Table: t}
}

// trendsView buckets predictions by month of PredictedAt.
func trendsView(rows []Row, _ nlq.Entities) View {
	if len(rows) == 0 {
		return View{Warning: noDataWarning}
	}

	type bucket struct {
		count int
		sum   float64
	}
	byMonth := map[string]*bucket{}
	for _, r := range rows {
		if len(r.PredictedAt) < 7 {
			continue
		}
		month := r.PredictedAt[:7]
		b, ok := byMonth[month]
		if !ok {
			b = &bucket{}
			byMonth[month] = b
		}
		b.count++
		b.sum += r.ChurnProbability
	}
	if len(byMonth) == 0 {
		return View{
			Title:   "Churn Trends",
			Warning: "Predictions carry no timestamps, so no trend can be computed.",
		}
	}

	months := make([]string, 0, len(byMonth))
	for m := range byMonth {
		months = append(months, m)
	}
	sort.Strings(months)

	t := &Table{Columns: []string{"month", "predictions", "avg_churn"}}
	for _, m := range months {
		b := byMonth[m]
		t.Rows = append(t.Rows, []string{m, fmt.Sprintf("%d", b.count), fmt.Sprintf("%.4f", b.sum/float64(b.count))})
	}
	return View{Title: "Churn Trends", Table: t}
}

// predictView points the user at the prediction surface; this view layer
// does not run the model itself.
func predictView(_ []Row, _ nlq.Entities) View {
	return View{
		Title: "Predict Customer Churn",
		Text: []string{
			"Provide the customer's subscription attributes (plan tier, MRR, trial and auto-renew status) to score them.",
			"Predictions run through the prediction pipeline; this view reports existing scores only.",
		},
	}
}

// retrainView acknowledges a retrain request without triggering one.
func retrainView(rows []Row, _ nlq.Entities) View {
	view := View{
		Title: "Retrain Model",
		Text: []string{
			"Model retraining is managed by the training pipeline, not the analytics surface.",
		},
	}
	if len(rows) > 0 {
		view.Text = append(view.Text,
			fmt.Sprintf("Current snapshot covers %d scored customers.", len(rows)))
	}
	return view
}

// unknownView is the fallback for unresolved questions.
func unknownView(_ []Row, _ nlq.Entities) View {
	return View{
		Warning: "I couldn't understand your question.",
		Title:   "Try asking:",
		Text: []string{
			"Show me high-risk customers",
			"What are the top features driving churn?",
			"Display the latest predictions",
			"How many customers are at risk?",
			"What's the average churn probability?",
			"Show me customers by plan tier",
			"Which customers are on trial?",
		},
	}
}
