// Copyright (C) 2025 RavenStack (engineering@ravenstack.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package nlq

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ravenstack/insight/services/insight/warehouse"
)

// =============================================================================
// NL-to-Query Synthesizer
// =============================================================================

// DefaultTable is the warehouse table templates render against when no
// override is configured.
const DefaultTable = "subscriptions"

// Canned messages for the two failure shapes of synthesis.
const (
	msgNoTemplate    = "I couldn't understand your query. Please try rephrasing."
	msgMissingAmount = "Please specify an amount (e.g., 'more than $1000')"
	msgMissingPlan   = "Please specify a plan type (e.g., 'basic', 'premium', 'enterprise')"
)

// placeholderPattern matches {name} slots in a SQL template.
var placeholderPattern = regexp.MustCompile(`\{(\w+)\}`)

// Rendered is a synthesized query in both of its forms.
//
// # Description
//
// SQL is the display form with validated literals inlined, shown to users
// and logged. Statement is the executable form with ? placeholders and Args
// bound positionally; only this form ever reaches the warehouse. The two are
// rendered from the same template in one pass and always agree.
type Rendered struct {
	SQL       string `json:"sql"`
	Statement string `json:"-"`
	Args      []any  `json:"-"`
}

// SynthesisResult is the outcome of synthesizing one natural-language query.
//
// # Description
//
// Three shapes: rendered (Query non-nil), missing parameter (Query nil,
// Missing and Message populated, template fields still reported), or no
// match (Query nil, NoMatch true, Message populated).
type SynthesisResult struct {
	// Query is the rendered query. Nil when synthesis did not complete.
	Query *Rendered `json:"query,omitempty"`

	// Template is the tag of the matched template. Empty on no match.
	Template string `json:"template,omitempty"`

	// Description is the matched template's summary. Empty on no match.
	Description string `json:"description,omitempty"`

	// Confidence is the raw cosine similarity of the match. Zero on no match.
	Confidence float64 `json:"confidence"`

	// Entities are the parameters extracted from the query text.
	Entities Entities `json:"entities"`

	// Missing lists required parameters absent from the query. The gate
	// fails closed: a template is never rendered with defaulted parameters.
	Missing []ParamName `json:"missing_params,omitempty"`

	// NoMatch is true when no template cleared the relevance floor.
	NoMatch bool `json:"no_match,omitempty"`

	// Message is the user-facing explanation for an incomplete synthesis.
	Message string `json:"message,omitempty"`
}

// Metadata describes how an envelope's query came to be.
type Metadata struct {
	Confidence float64  `json:"confidence"`
	Entities   Entities `json:"entities"`
	Template   string   `json:"template,omitempty"`
}

// Envelope is the end-to-end result of processing one query: synthesis plus
// warehouse execution.
type Envelope struct {
	RequestID string          `json:"request_id"`
	Success   bool            `json:"success"`
	Message   string          `json:"message"`
	SQL       string          `json:"sql,omitempty"`
	Rows      *warehouse.Rows `json:"results,omitempty"`
	Metadata  Metadata        `json:"metadata"`
}

// Synthesizer converts natural-language questions into warehouse queries.
//
// # Description
//
// Questions are ranked against the template corpus the same way the resolver
// ranks intents; the single best survivor above the relevance floor is
// selected. Required parameters are checked against extracted entities
// before any rendering happens, and rendering produces both a display SQL
// and a parameter-bound statement.
//
// # Thread Safety
//
// Immutable after construction. Safe for concurrent use.
type Synthesizer struct {
	corpus *Corpus
	space  *VectorSpace
	table  string
	floor  float64
	logger *slog.Logger
}

// NewSynthesizer builds a Synthesizer over a validated template corpus.
//
// # Inputs
//
//   - corpus: The query-template corpus. Must not be nil.
//   - space: Vector space built from corpus.Documents(). Must not be nil.
//   - table: Warehouse table substituted for {table}. Empty means DefaultTable.
//   - logger: Logger for per-query diagnostics. May be nil.
func NewSynthesizer(corpus *Corpus, space *VectorSpace, table string, logger *slog.Logger) *Synthesizer {
	if table == "" {
		table = DefaultTable
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Synthesizer{
		corpus: corpus,
		space:  space,
		table:  table,
		floor:  RelevanceFloor,
		logger: logger,
	}
}

// Synthesize matches a question to a template and renders it.
//
// # Description
//
// Entity extraction always runs before the required-parameter gate, so a
// missing-parameter result still reports what was extracted. Embedding
// failures fold into the no-match shape. Synthesize never executes anything;
// Process layers execution on top.
//
// # Outputs
//
//   - SynthesisResult: Rendered, missing-parameter, or no-match shape.
//     Never an error.
//
// # Thread Safety
//
// Safe for concurrent use.
func (s *Synthesizer) Synthesize(ctx context.Context, query string) SynthesisResult {
	_, span := tracer.Start(ctx, "nlq.Synthesize",
		trace.WithAttributes(attribute.Int("query.length", len(query))))
	defer span.End()

	start := time.Now()
	entities := Extract(query)

	vec, err := s.space.Embed(strings.ToLower(query))
	if err != nil {
		s.logger.Warn("synthesizer: embedding failed", slog.String("error", err.Error()))
		return s.noMatch(span, entities, start)
	}

	survivors := TopAboveFloor(Rank(vec, s.space), s.floor, 1)
	if len(survivors) == 0 {
		return s.noMatch(span, entities, start)
	}

	entry := s.corpus.Entry(survivors[0].Index)
	result := SynthesisResult{
		Template:    entry.Tag,
		Description: entry.Description,
		Confidence:  survivors[0].Score,
		Entities:    entities,
	}
	span.SetAttributes(
		attribute.String("template", entry.Tag),
		attribute.Float64("confidence", result.Confidence),
	)

	for _, param := range entry.Requires {
		if !entities.Has(param) {
			result.Missing = append(result.Missing, param)
		}
	}
	if len(result.Missing) > 0 {
		result.Message = missingMessage(result.Missing[0])
		synthTotal.WithLabelValues("missing_param").Inc()
		synthLatency.Observe(time.Since(start).Seconds())
		s.logger.Debug("synthesizer: missing required parameters",
			slog.String("template", entry.Tag),
			slog.Any("missing", result.Missing),
		)
		return result
	}

	rendered, err := s.render(entry, entities)
	if err != nil {
		// A template referencing a slot the extractor cannot fill is a
		// corpus defect, surfaced as no-match rather than a server error.
		s.logger.Error("synthesizer: template render failed",
			slog.String("template", entry.Tag),
			slog.String("error", err.Error()),
		)
		return s.noMatch(span, entities, start)
	}

	result.Query = rendered
	result.Message = entry.Description
	synthTotal.WithLabelValues("rendered").Inc()
	synthLatency.Observe(time.Since(start).Seconds())

	s.logger.Debug("synthesizer: rendered query",
		slog.String("template", entry.Tag),
		slog.Float64("confidence", result.Confidence),
	)
	return result
}

// Process runs a question end to end: synthesize, then execute against the
// warehouse.
//
// # Description
//
// The bound statement form is what executes; the display SQL travels in the
// envelope for transparency. Execution failures produce a failed envelope
// that still carries the SQL and synthesis metadata, so callers can show
// what was attempted.
//
// # Inputs
//
//   - ctx: Carries the trace span and execution deadline.
//   - query: Raw question text.
//   - exec: Warehouse executor. Must not be nil.
//
// # Outputs
//
//   - Envelope: Always populated with a fresh request ID. Never an error.
func (s *Synthesizer) Process(ctx context.Context, query string, exec warehouse.Executor) Envelope {
	ctx, span := tracer.Start(ctx, "nlq.Process")
	defer span.End()

	requestID := uuid.NewString()
	synthesis := s.Synthesize(ctx, query)
	envelope := Envelope{
		RequestID: requestID,
		Message:   synthesis.Message,
		Metadata: Metadata{
			Confidence: synthesis.Confidence,
			Entities:   synthesis.Entities,
			Template:   synthesis.Template,
		},
	}
	if synthesis.Query == nil {
		return envelope
	}
	envelope.SQL = synthesis.Query.SQL

	execStart := time.Now()
	rows, err := exec.Execute(ctx, synthesis.Query.Statement, synthesis.Query.Args...)
	executeLatency.Observe(time.Since(execStart).Seconds())
	if err != nil {
		executeTotal.WithLabelValues("error").Inc()
		span.SetAttributes(attribute.Bool("execution.error", true))
		s.logger.Error("synthesizer: execution failed",
			slog.String("request_id", requestID),
			slog.String("template", synthesis.Template),
			slog.String("error", err.Error()),
		)
		envelope.Message = fmt.Sprintf("Error executing query: %s", err)
		return envelope
	}

	executeTotal.WithLabelValues("success").Inc()
	envelope.Success = true
	envelope.Rows = rows

	s.logger.Info("synthesizer: query processed",
		slog.String("request_id", requestID),
		slog.String("template", synthesis.Template),
		slog.Int("rows", rows.Len()),
	)
	return envelope
}

// render substitutes template placeholders with validated values.
//
// The display form inlines literals; the bound form replaces each value slot
// with ? and appends the value to Args. The table name is an identifier, not
// a value, so it is inlined in both forms.
func (s *Synthesizer) render(entry PatternEntry, entities Entities) (*Rendered, error) {
	var renderErr error
	var args []any

	display := placeholderPattern.ReplaceAllStringFunc(entry.SQL, func(slot string) string {
		switch slot {
		case "{table}":
			return s.table
		case "{amount}":
			if entities.Amount == nil {
				renderErr = fmt.Errorf("template %q: no amount extracted", entry.Tag)
				return slot
			}
			return strconv.FormatFloat(*entities.Amount, 'g', -1, 64)
		case "{plan}":
			if entities.Plan == "" {
				renderErr = fmt.Errorf("template %q: no plan extracted", entry.Tag)
				return slot
			}
			// Plan values come from the closed tier enumeration, so the
			// quoted literal cannot carry injected SQL.
			return "'" + entities.Plan + "'"
		default:
			renderErr = fmt.Errorf("template %q: unknown placeholder %s", entry.Tag, slot)
			return slot
		}
	})

	statement := placeholderPattern.ReplaceAllStringFunc(entry.SQL, func(slot string) string {
		switch slot {
		case "{table}":
			return s.table
		case "{amount}":
			if entities.Amount != nil {
				args = append(args, *entities.Amount)
			}
			return "?"
		case "{plan}":
			if entities.Plan != "" {
				args = append(args, entities.Plan)
			}
			return "?"
		default:
			return slot
		}
	})

	if renderErr != nil {
		return nil, renderErr
	}
	return &Rendered{SQL: display, Statement: statement, Args: args}, nil
}

// noMatch builds the no-template fallback result.
func (s *Synthesizer) noMatch(span trace.Span, entities Entities, start time.Time) SynthesisResult {
	span.SetAttributes(attribute.Bool("no_match", true))
	synthTotal.WithLabelValues("no_match").Inc()
	synthLatency.Observe(time.Since(start).Seconds())

	return SynthesisResult{
		Entities: entities,
		NoMatch:  true,
		Message:  msgNoTemplate,
	}
}

// missingMessage maps a missing parameter to its user guidance.
func missingMessage(param ParamName) string {
	switch param {
	case ParamAmount:
		return msgMissingAmount
	case ParamPlan:
		return msgMissingPlan
	default:
		return fmt.Sprintf("Please specify a value for %q", string(param))
	}
}

// SchemaDescription returns a human-readable listing of the queryable
// columns, shown by the schema endpoint and the CLI.
func (s *Synthesizer) SchemaDescription() string {
	columns := []struct{ name, typ string }{
		{"subscription_id", "STRING"},
		{"account_id", "STRING"},
		{"start_date", "DATE"},
		{"end_date", "DATE"},
		{"plan_tier", "STRING"},
		{"seats", "INTEGER"},
		{"mrr_amount", "FLOAT"},
		{"arr_amount", "FLOAT"},
		{"is_trial", "BOOLEAN"},
		{"upgrade_flag", "BOOLEAN"},
		{"downgrade_flag", "BOOLEAN"},
		{"churn_flag", "BOOLEAN"},
		{"billing_frequency", "STRING"},
		{"auto_renew_flag", "BOOLEAN"},
	}

	var b strings.Builder
	b.WriteString("**Available Data Columns:**\n\n")
	for _, col := range columns {
		fmt.Fprintf(&b, "- `%s` (%s)\n", col.name, col.typ)
	}
	return b.String()
}

// ExampleQueries returns representative questions the template corpus can
// answer, for onboarding surfaces.
func (s *Synthesizer) ExampleQueries() []string {
	return []string{
		"How many customers do we have?",
		"What is the total revenue?",
		"Show me high-risk customers",
		"List customers by plan type",
		"Who are our top 10 customers?",
		"What is the churn rate?",
		"Show me customers spending more than $500",
		"Get customers in premium plan",
		"Show new customers this month",
		"What is the monthly revenue trend?",
	}
}
