// Copyright (C) 2025 RavenStack (engineering@ravenstack.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package assistant provides the rule-based conversational surface of the
// insight service. Responses are generated from keyword branches over the
// message plus the current prediction snapshot; there is no session state
// and no external model dependency.
package assistant

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ravenstack/insight/services/insight/analytics"
)

// Risk band boundaries used by the assistant's summaries. The assistant
// reports a coarser banding than the analytics views.
const (
	assistantHighRisk = 0.7
	assistantLowRisk  = 0.4
)

// Responder answers free-form messages about the churn system.
//
// # Thread Safety
//
// Stateless. Safe for concurrent use.
type Responder struct{}

// NewResponder creates a Responder.
func NewResponder() *Responder {
	return &Responder{}
}

// DataContext summarizes the current prediction snapshot, one fact per line.
//
// Used both as the assistant's own grounding and as a standalone endpoint
// payload.
func (r *Responder) DataContext(rows []analytics.Row) string {
	if len(rows) == 0 {
		return "No prediction data currently available."
	}

	var high, medium, low int
	var totalMRR, atRiskMRR float64
	byPlan := map[string]int{}
	for _, row := range rows {
		switch {
		case row.ChurnProbability > assistantHighRisk:
			high++
			atRiskMRR += row.MRR
		case row.ChurnProbability < assistantLowRisk:
			low++
		default:
			medium++
		}
		totalMRR += row.MRR
		byPlan[row.PlanTier]++
	}

	plans := make([]string, 0, len(byPlan))
	for plan := range byPlan {
		plans = append(plans, plan)
	}
	sort.Strings(plans)
	planParts := make([]string, len(plans))
	for i, plan := range plans {
		planParts[i] = fmt.Sprintf("%s: %d", plan, byPlan[plan])
	}

	lines := []string{
		fmt.Sprintf("Total customers analyzed: %d", len(rows)),
		fmt.Sprintf("Risk levels - High: %d, Medium: %d, Low: %d", high, medium, low),
		fmt.Sprintf("Plan distribution - %s", strings.Join(planParts, ", ")),
		fmt.Sprintf("At-risk MRR: $%.2f", atRiskMRR),
	}
	return strings.Join(lines, "\n")
}

// Respond generates an answer to one message.
//
// # Description
//
// Branches are checked in order and the first hit wins: greeting, churn,
// model/features, high risk, revenue, query help, general help, then a
// default prompt. Data-aware branches fold the snapshot's numbers into the
// answer when one is available.
//
// # Thread Safety
//
// Safe for concurrent use.
func (r *Responder) Respond(message string, rows []analytics.Row) string {
	lower := strings.ToLower(message)

	if containsAnyWord(lower, "hello", "hi ", "hey", "greetings") || lower == "hi" {
		return greetingResponse
	}
	if strings.Contains(lower, "churn") {
		return r.churnResponse(lower, rows)
	}
	if containsAnyWord(lower, "model", "shap", "explain", "how does", "feature") {
		return modelResponse
	}
	if strings.Contains(lower, "high risk") || strings.Contains(lower, "at risk") {
		return r.highRiskResponse(rows)
	}
	if containsAnyWord(lower, "revenue", "mrr", "arr", "money") {
		return r.revenueResponse(rows)
	}
	if containsAnyWord(lower, "query", "sql", "search", "find", "show me") {
		return queryHelpResponse
	}
	if containsAnyWord(lower, "help", "what can you", "capabilities", "features") {
		return helpResponse
	}

	return fmt.Sprintf(defaultResponseFormat, message)
}

// churnResponse answers churn questions, with snapshot numbers when present.
func (r *Responder) churnResponse(lower string, rows []analytics.Row) string {
	if len(rows) == 0 {
		return noDataChurnResponse
	}

	if strings.Contains(lower, "most likely") || strings.Contains(lower, "highest") {
		top := rows[0]
		for _, row := range rows[1:] {
			if row.ChurnProbability > top.ChurnProbability {
				top = row
			}
		}
		return fmt.Sprintf(
			"Customer %s has the highest churn risk:\n"+
				"- Churn Probability: %.1f%%\n"+
				"- Plan Tier: %s\n"+
				"- MRR: $%.2f\n\n"+
				"Recommended actions: schedule customer success outreach, review recent engagement, "+
				"and consider a personalized retention offer.",
			top.CustomerID, top.ChurnProbability*100, top.PlanTier, top.MRR)
	}

	var high int
	var sum float64
	for _, row := range rows {
		if row.ChurnProbability > assistantHighRisk {
			high++
		}
		sum += row.ChurnProbability
	}
	return fmt.Sprintf(
		"Current churn analysis shows:\n"+
			"- High-risk customers (>70%% probability): %d\n"+
			"- Average churn probability: %.1f%%\n"+
			"- Total customers analyzed: %d\n\n"+
			"Try asking \"Show me high-risk customers\" or \"Compare churn rates by plan tier\".",
		high, sum/float64(len(rows))*100, len(rows))
}

// highRiskResponse summarizes the high-risk cohort and its revenue exposure.
func (r *Responder) highRiskResponse(rows []analytics.Row) string {
	if len(rows) == 0 {
		return "Please run predictions first to identify high-risk customers."
	}

	var count int
	var mrrAtRisk float64
	for _, row := range rows {
		if row.ChurnProbability > assistantHighRisk {
			count++
			mrrAtRisk += row.MRR
		}
	}
	if count == 0 {
		return "Good news! No customers currently have high churn risk (>70% probability). " +
			"Continue monitoring with regular predictions."
	}
	return fmt.Sprintf(
		"High-Risk Customer Alert\n\n"+
			"Found %d customers with >70%% churn probability:\n"+
			"- At-risk MRR: $%.2f/month\n"+
			"- At-risk ARR: $%.2f/year\n\n"+
			"Ask \"Show me high-risk customers\" for the full list, then target them with "+
			"retention incentives.",
		count, mrrAtRisk, mrrAtRisk*12)
}

// revenueResponse reports total and at-risk MRR/ARR.
func (r *Responder) revenueResponse(rows []analytics.Row) string {
	if len(rows) == 0 {
		return noDataChurnResponse
	}

	var totalMRR, atRiskMRR float64
	for _, row := range rows {
		totalMRR += row.MRR
		if row.ChurnProbability > assistantHighRisk {
			atRiskMRR += row.MRR
		}
	}
	var atRiskShare float64
	if totalMRR > 0 {
		atRiskShare = atRiskMRR / totalMRR * 100
	}
	return fmt.Sprintf(
		"Revenue Analysis:\n\n"+
			"Current revenue:\n"+
			"- Total MRR: $%.2f\n"+
			"- Total ARR: $%.2f\n\n"+
			"At-risk revenue (high churn probability):\n"+
			"- At-risk MRR: $%.2f (%.1f%% of total)\n"+
			"- At-risk ARR: $%.2f\n\n"+
			"Focus retention efforts on high-value at-risk customers. Try the query "+
			"\"Show customers spending more than $1000\".",
		totalMRR, totalMRR*12, atRiskMRR, atRiskShare, atRiskMRR*12)
}

// containsAnyWord reports whether any phrase appears in s.
func containsAnyWord(s string, phrases ...string) bool {
	for _, p := range phrases {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}

// Canned responses for branches that need no snapshot data.
const (
	greetingResponse = "Hello! I'm the assistant for the churn prediction system. I can help you with:\n\n" +
		"- Understanding churn predictions and risk levels\n" +
		"- Explaining model insights and feature importance\n" +
		"- Analyzing customer segments and trends\n" +
		"- Formulating data queries\n" +
		"- Suggesting retention strategies\n\n" +
		"What would you like to know?"

	modelResponse = "The churn prediction system uses an ensemble classifier.\n\n" +
		"Model details:\n" +
		"- Trained on subscription records from the warehouse\n" +
		"- Features include MRR, seats, tenure, and plan changes\n\n" +
		"Top churn drivers:\n" +
		"1. Low MRR/ARR amounts\n" +
		"2. Trial accounts without conversion\n" +
		"3. Recent downgrades\n" +
		"4. Short tenure\n" +
		"5. No auto-renewal enabled\n\n" +
		"Ask \"What are the top features driving churn?\" for the ranked importance table."

	queryHelpResponse = "You can query the data in two ways:\n\n" +
		"1. Analytics questions:\n" +
		"- \"Show me high-risk customers\"\n" +
		"- \"How many customers are predicted to churn?\"\n" +
		"- \"Compare churn rates by plan tier\"\n\n" +
		"2. Natural language to SQL:\n" +
		"- \"How many customers do we have?\"\n" +
		"- \"Show customers spending more than $500\"\n" +
		"- \"List all Enterprise plan customers\"\n\n" +
		"Questions are converted to SQL and executed against the warehouse automatically."

	helpResponse = "I can assist you with:\n\n" +
		"- Churn predictions: probabilities, risk levels, and who is most likely to churn\n" +
		"- Model insights: how predictions work and which features drive them\n" +
		"- Customer analytics: revenue analysis, segmentation, and trends\n" +
		"- Data queries: formulating natural language questions over your data\n" +
		"- Retention strategies: actions for high-risk customers\n\n" +
		"Just ask me anything about your customers, predictions, or the system!"

	noDataChurnResponse = "No prediction data is currently available. Run predictions first, " +
		"then return here for churn analysis and recommendations."

	defaultResponseFormat = "I received your message: %q\n\n" +
		"I can help with churn predictions, model insights, customer analytics, and data queries. " +
		"Some examples:\n" +
		"- \"Which customers are most likely to churn?\"\n" +
		"- \"Explain how the model makes predictions\"\n" +
		"- \"Show me revenue at risk\"\n\n" +
		"What would you like to know?"
)
