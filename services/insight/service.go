// Copyright (C) 2025 RavenStack (engineering@ravenstack.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package insight wires the NL core (intent resolution and query synthesis)
// to the warehouse, the analytics views, and the assistant, and exposes the
// result as a service object the HTTP handlers and CLI sit on top of.
package insight

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ravenstack/insight/services/insight/analytics"
	"github.com/ravenstack/insight/services/insight/assistant"
	"github.com/ravenstack/insight/services/insight/config"
	"github.com/ravenstack/insight/services/insight/nlq"
	"github.com/ravenstack/insight/services/insight/warehouse"
)

// snapshotTTL is how long a prediction snapshot is served before being
// rebuilt from the warehouse.
const snapshotTTL = 5 * time.Minute

// Service is the assembled insight service.
//
// # Thread Safety
//
// Safe for concurrent use. The snapshot cache is guarded by a mutex; all
// other fields are immutable after New.
type Service struct {
	cfg       config.Config
	resolver  *nlq.Resolver
	synth     *nlq.Synthesizer
	registry  *analytics.Registry
	responder *assistant.Responder
	wh        *warehouse.SQLite
	logger    *slog.Logger

	mu         sync.Mutex
	snapshot   []analytics.Row
	snapshotAt time.Time
}

// New assembles the service: loads both corpora, builds (or restores) their
// vector spaces, and wires the analytics and assistant layers.
//
// # Description
//
// The two vector spaces are independent, so they are built in parallel.
// When a SpaceStore is provided, each space is first looked up by its corpus
// hash; a miss rebuilds and persists. Persistence failures are logged and
// ignored — the rebuilt space is authoritative either way.
//
// # Inputs
//
//   - ctx: Bounds corpus loading and cache access.
//   - cfg: Validated configuration.
//   - wh: Opened warehouse. Must not be nil.
//   - store: Vector-space persistence. May be nil to disable.
//   - logger: Base logger. May be nil.
//
// # Outputs
//
//   - *Service: Ready-to-serve instance. Nil on error.
//   - error: Non-nil if a corpus fails to load or a space fails to build.
func New(ctx context.Context, cfg config.Config, wh *warehouse.SQLite, store nlq.SpaceStore, logger *slog.Logger) (*Service, error) {
	if logger == nil {
		logger = slog.Default()
	}

	intentCorpus, err := loadCorpus(cfg.IntentCorpusPath, nlq.LoadAnalyticsCorpus)
	if err != nil {
		return nil, fmt.Errorf("insight: loading intent corpus: %w", err)
	}
	templateCorpus, err := loadCorpus(cfg.TemplateCorpusPath, nlq.LoadTemplateCorpus)
	if err != nil {
		return nil, fmt.Errorf("insight: loading template corpus: %w", err)
	}

	var intentSpace, templateSpace *nlq.VectorSpace
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		intentSpace, err = buildSpace(gctx, intentCorpus, cfg.MaxFeatures, store, logger.With("corpus", "intents"))
		return err
	})
	g.Go(func() error {
		var err error
		templateSpace, err = buildSpace(gctx, templateCorpus, cfg.MaxFeatures, store, logger.With("corpus", "templates"))
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &Service{
		cfg:       cfg,
		resolver:  nlq.NewResolver(intentCorpus, intentSpace, logger),
		synth:     nlq.NewSynthesizer(templateCorpus, templateSpace, cfg.WarehouseTable, logger),
		registry:  analytics.NewRegistry(),
		responder: assistant.NewResponder(),
		wh:        wh,
		logger:    logger,
	}, nil
}

// loadCorpus loads a corpus override file, or the embedded default when the
// path is empty.
func loadCorpus(path string, embedded func() (*nlq.Corpus, error)) (*nlq.Corpus, error) {
	if path != "" {
		return nlq.LoadCorpusFile(path)
	}
	return embedded()
}

// buildSpace restores a vector space from the store or builds it from the
// corpus, persisting the rebuilt space on a miss.
func buildSpace(ctx context.Context, corpus *nlq.Corpus, maxFeatures int, store nlq.SpaceStore, logger *slog.Logger) (*nlq.VectorSpace, error) {
	hash := corpus.Hash(maxFeatures)

	if store != nil {
		space, err := store.LoadSpace(ctx, hash)
		if err != nil {
			logger.Warn("insight: space cache load failed, rebuilding", slog.String("error", err.Error()))
		} else if space != nil {
			return space, nil
		}
	}

	space, err := nlq.NewVectorizer(maxFeatures).Build(corpus.Documents())
	if err != nil {
		return nil, fmt.Errorf("insight: building vector space: %w", err)
	}

	if store != nil {
		if err := store.SaveSpace(ctx, hash, space); err != nil {
			logger.Warn("insight: space cache save failed", slog.String("error", err.Error()))
		}
	}
	return space, nil
}

// Ask resolves an analytics question and renders its view.
//
// # Description
//
// The resolver's result is enriched with the data context summary, then
// dispatched to the matching view handler over the current prediction
// snapshot. Unknown questions dispatch to the fallback view.
func (s *Service) Ask(ctx context.Context, question string) (nlq.Result, analytics.View, error) {
	rows, err := s.predictionSnapshot(ctx)
	if err != nil {
		return nlq.Result{}, analytics.View{}, err
	}

	result := s.resolver.Resolve(ctx, question)
	result.Context = analytics.Summary(rows)
	view := s.registry.Dispatch(result.HandlerKey, rows, result.Entities)
	return result, view, nil
}

// Query synthesizes a warehouse query from the question and executes it.
func (s *Service) Query(ctx context.Context, question string) nlq.Envelope {
	return s.synth.Process(ctx, question, s.wh)
}

// Chat answers a free-form message with the rule-based assistant.
func (s *Service) Chat(ctx context.Context, message string) (string, error) {
	rows, err := s.predictionSnapshot(ctx)
	if err != nil {
		return "", err
	}
	return s.responder.Respond(message, rows), nil
}

// Examples returns the onboarding example questions.
func (s *Service) Examples() []string {
	return s.synth.ExampleQueries()
}

// Schema returns the human-readable column listing.
func (s *Service) Schema() string {
	return s.synth.SchemaDescription()
}

// Ready reports whether the warehouse answers a trivial query.
func (s *Service) Ready(ctx context.Context) error {
	_, err := s.wh.Count(ctx)
	return err
}

// predictionSnapshot returns the cached prediction rows, refreshing from the
// warehouse when the cache is older than snapshotTTL.
func (s *Service) predictionSnapshot(ctx context.Context) ([]analytics.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.snapshot != nil && time.Since(s.snapshotAt) < snapshotTTL {
		return s.snapshot, nil
	}

	rows, err := s.scoreWarehouse(ctx)
	if err != nil {
		if s.snapshot != nil {
			// Serve the stale snapshot rather than failing the question.
			s.logger.Warn("insight: snapshot refresh failed, serving stale",
				slog.String("error", err.Error()))
			return s.snapshot, nil
		}
		return nil, err
	}

	s.snapshot = rows
	s.snapshotAt = time.Now()
	return rows, nil
}

// scoreWarehouse loads subscriptions and derives a churn score per customer.
//
// # Description
//
// The score is a transparent heuristic over known churn drivers (trial
// status, disabled auto-renew, low MRR, recent downgrades) standing in for
// the trained model's output. It is deterministic for a given warehouse
// state, so analytics views are stable between refreshes.
func (s *Service) scoreWarehouse(ctx context.Context) ([]analytics.Row, error) {
	res, err := s.wh.Execute(ctx, fmt.Sprintf(
		`SELECT account_id, plan_tier, mrr_amount, is_trial, auto_renew_flag,
		        downgrade_flag, churn_flag, start_date
		 FROM %s ORDER BY start_date, account_id`, s.wh.Table()))
	if err != nil {
		return nil, fmt.Errorf("insight: loading subscriptions: %w", err)
	}

	rows := make([]analytics.Row, 0, res.Len())
	for _, rec := range res.Records {
		if len(rec) < 8 {
			continue
		}
		row := analytics.Row{
			CustomerID:  asString(rec[0]),
			PlanTier:    asString(rec[1]),
			MRR:         asFloat(rec[2]),
			IsTrial:     asFloat(rec[3]) != 0,
			AutoRenew:   asFloat(rec[4]) != 0,
			PredictedAt: asString(rec[7]),
		}
		row.ChurnProbability = churnScore(row, asFloat(rec[5]) != 0, asFloat(rec[6]) != 0)
		rows = append(rows, row)
	}
	return rows, nil
}

// churnScore combines the known churn drivers into a probability in [0, 1].
func churnScore(row analytics.Row, downgraded, churned bool) float64 {
	if churned {
		return 0.97
	}
	score := 0.15
	if row.IsTrial {
		score += 0.25
	}
	if !row.AutoRenew {
		score += 0.30
	}
	if downgraded {
		score += 0.20
	}
	if row.MRR < 100 {
		score += 0.10
	}
	if score > 0.95 {
		score = 0.95
	}
	return score
}

// asString converts a driver value to a string, empty for nil.
func asString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%v", v)
}

// asFloat converts a driver value to a float64, 0 for anything non-numeric.
func asFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	case int:
		return float64(n)
	case bool:
		if n {
			return 1
		}
		return 0
	default:
		return 0
	}
}
