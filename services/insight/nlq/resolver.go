// Copyright (C) 2025 RavenStack (engineering@ravenstack.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package nlq

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// =============================================================================
// Analytics Intent Resolver
// =============================================================================

// DefaultTopK is how many ranked intents a resolution surfaces. The first of
// them is the primary match.
const DefaultTopK = 3

// UnknownIntent is the intent tag reported when no corpus entry clears the
// relevance floor.
const UnknownIntent = "unknown"

// HandlerKey names the analytics view handler an intent dispatches to.
type HandlerKey string

// Handler keys for the built-in intent corpus.
const (
	HandlerHighRisk      HandlerKey = "show_high_risk_customers"
	HandlerTopFeatures   HandlerKey = "show_top_features"
	HandlerLatest        HandlerKey = "show_latest_predictions"
	HandlerStatistics    HandlerKey = "show_churn_statistics"
	HandlerLowRisk       HandlerKey = "show_low_risk_customers"
	HandlerAverageChurn  HandlerKey = "show_average_churn"
	HandlerSegmentByPlan HandlerKey = "segment_by_plan"
	HandlerTrial         HandlerKey = "show_trial_customers"
	HandlerAutoRenew     HandlerKey = "filter_auto_renew"
	HandlerFeatures      HandlerKey = "analyze_features"
	HandlerCompare       HandlerKey = "compare_segments"
	HandlerTrends        HandlerKey = "show_trends"
	HandlerPredict       HandlerKey = "make_prediction"
	HandlerRetrain       HandlerKey = "retrain_model"
	HandlerUnknown       HandlerKey = "handle_unknown"
)

// intentHandlers maps intent tags to their view handler keys.
var intentHandlers = map[string]HandlerKey{
	"high_risk_customers": HandlerHighRisk,
	"top_features":        HandlerTopFeatures,
	"latest_predictions":  HandlerLatest,
	"churn_statistics":    HandlerStatistics,
	"low_risk_customers":  HandlerLowRisk,
	"average_churn":       HandlerAverageChurn,
	"segment_by_plan":     HandlerSegmentByPlan,
	"trial_customers":     HandlerTrial,
	"auto_renew":          HandlerAutoRenew,
	"feature_analysis":    HandlerFeatures,
	"segment_comparison":  HandlerCompare,
	"churn_trends":        HandlerTrends,
	"predict_customer":    HandlerPredict,
	"retrain_model":       HandlerRetrain,
}

// HandlerKeyFor returns the view handler key for an intent tag. Unmapped tags
// fall back to HandlerUnknown.
func HandlerKeyFor(tag string) HandlerKey {
	if key, ok := intentHandlers[tag]; ok {
		return key
	}
	return HandlerUnknown
}

// unknownMessage and unknownSuggestions are the canned fallback surfaced when
// no intent clears the relevance floor.
var (
	unknownMessage = "I couldn't understand your question. Try asking about " +
		"high-risk customers, churn features, or latest predictions."
	unknownSuggestions = []string{
		"Show me high-risk customers",
		"What are the top features driving churn?",
		"Display the latest predictions",
	}
)

// Alternative is one ranked intent candidate. The primary match is always
// element 0 of a result's Alternatives.
type Alternative struct {
	Tag         string  `json:"intent"`
	Confidence  float64 `json:"confidence"`
	Description string  `json:"description"`
}

// Result is the outcome of resolving one analytics question.
//
// # Description
//
// Exactly one of two shapes: a match (Intent, Confidence, Description,
// HandlerKey, Alternatives populated) or the unknown fallback (Unknown true,
// Intent "unknown", Confidence 0, Message and Suggestions populated).
// Entities are extracted in both shapes.
type Result struct {
	Intent      string     `json:"intent"`
	Confidence  float64    `json:"confidence"`
	Description string     `json:"description,omitempty"`
	HandlerKey  HandlerKey `json:"handler,omitempty"`
	Entities    Entities   `json:"entities"`

	// Alternatives are the full ranked top-k candidates in non-increasing
	// confidence order, primary first: Alternatives[0] always restates
	// Intent/Confidence/Description. Empty only in the unknown fallback.
	Alternatives []Alternative `json:"alternatives,omitempty"`

	// Unknown is true when no intent cleared the relevance floor.
	Unknown     bool     `json:"unknown,omitempty"`
	Message     string   `json:"message,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`

	// Context is an optional data summary attached by the service layer.
	// The resolver itself never populates it.
	Context string `json:"context,omitempty"`
}

// Resolver maps free-form analytics questions onto the intent corpus.
//
// # Description
//
// A question is embedded into the corpus vector space, ranked against every
// intent by cosine similarity, and cut at the relevance floor. The surviving
// top-k are reported as the ranked Alternatives; the top survivor is restated
// as the primary intent with its raw similarity as confidence. No survivors
// means the unknown fallback with canned suggestions.
//
// # Thread Safety
//
// Immutable after construction. Safe for concurrent use.
type Resolver struct {
	corpus *Corpus
	space  *VectorSpace
	topK   int
	floor  float64
	logger *slog.Logger
}

// NewResolver builds a Resolver over a validated corpus and its vector space.
//
// # Inputs
//
//   - corpus: The intent corpus. Must not be nil.
//   - space: Vector space built from corpus.Documents(). Must not be nil.
//   - logger: Logger for per-query diagnostics. May be nil.
//
// # Outputs
//
//   - *Resolver: Ready-to-use resolver with default top-k and floor.
func NewResolver(corpus *Corpus, space *VectorSpace, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		corpus: corpus,
		space:  space,
		topK:   DefaultTopK,
		floor:  RelevanceFloor,
		logger: logger,
	}
}

// Resolve classifies one analytics question.
//
// # Description
//
// Entity extraction always runs, even for unrecognized questions, so callers
// can salvage structured parameters from the unknown fallback. Embedding
// failures are treated as no-match rather than surfaced as errors: an
// all-out-of-vocabulary question is semantically the same as an unrecognized
// one.
//
// # Inputs
//
//   - ctx: Carries the trace span. Resolution itself does not block.
//   - query: Raw question text.
//   - topK: Optional per-call candidate budget. Omitted or non-positive uses
//     the resolver default of 3.
//
// # Outputs
//
//   - Result: Match or unknown fallback. Never an error.
//
// # Thread Safety
//
// Safe for concurrent use.
func (r *Resolver) Resolve(ctx context.Context, query string, topK ...int) Result {
	_, span := tracer.Start(ctx, "nlq.Resolve",
		trace.WithAttributes(attribute.Int("query.length", len(query))))
	defer span.End()

	k := r.topK
	if len(topK) > 0 && topK[0] > 0 {
		k = topK[0]
	}

	start := time.Now()
	entities := Extract(query)

	vec, err := r.space.Embed(query)
	if err != nil {
		r.logger.Warn("resolver: embedding failed", slog.String("error", err.Error()))
		return r.unknown(span, entities, start)
	}

	survivors := TopAboveFloor(Rank(vec, r.space), r.floor, k)
	if len(survivors) == 0 {
		return r.unknown(span, entities, start)
	}

	primary := r.corpus.Entry(survivors[0].Index)
	result := Result{
		Intent:      primary.Tag,
		Confidence:  survivors[0].Score,
		Description: primary.Description,
		HandlerKey:  HandlerKeyFor(primary.Tag),
		Entities:    entities,
	}
	for _, c := range survivors {
		entry := r.corpus.Entry(c.Index)
		result.Alternatives = append(result.Alternatives, Alternative{
			Tag:         entry.Tag,
			Confidence:  c.Score,
			Description: entry.Description,
		})
	}

	span.SetAttributes(
		attribute.String("intent", result.Intent),
		attribute.Float64("confidence", result.Confidence),
	)
	resolveTotal.WithLabelValues("matched").Inc()
	resolveConfidence.Observe(result.Confidence)
	resolveLatency.Observe(time.Since(start).Seconds())

	r.logger.Debug("resolver: matched intent",
		slog.String("intent", result.Intent),
		slog.Float64("confidence", result.Confidence),
		slog.Int("alternatives", len(result.Alternatives)),
	)
	return result
}

// unknown builds the no-match fallback result.
func (r *Resolver) unknown(span trace.Span, entities Entities, start time.Time) Result {
	span.SetAttributes(attribute.String("intent", UnknownIntent))
	resolveTotal.WithLabelValues("no_match").Inc()
	resolveLatency.Observe(time.Since(start).Seconds())

	return Result{
		Intent:      UnknownIntent,
		Confidence:  0,
		HandlerKey:  HandlerUnknown,
		Entities:    entities,
		Unknown:     true,
		Message:     unknownMessage,
		Suggestions: unknownSuggestions,
	}
}
