// Copyright (C) 2025 RavenStack (engineering@ravenstack.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package analytics

import (
	"github.com/ravenstack/insight/services/insight/nlq"
)

// =============================================================================
// Handler Registry
// =============================================================================

// Handler renders the view for one resolved intent.
type Handler func(rows []Row, entities nlq.Entities) View

// Registry maps resolved handler keys to view handlers.
//
// # Thread Safety
//
// Immutable after construction. Safe for concurrent use.
type Registry struct {
	handlers map[nlq.HandlerKey]Handler
}

// NewRegistry builds the registry with the built-in handlers.
func NewRegistry() *Registry {
	return &Registry{handlers: map[nlq.HandlerKey]Handler{
		nlq.HandlerHighRisk:      highRiskView,
		nlq.HandlerTopFeatures:   topFeaturesView,
		nlq.HandlerLatest:        latestView,
		nlq.HandlerStatistics:    statisticsView,
		nlq.HandlerLowRisk:       lowRiskView,
		nlq.HandlerAverageChurn:  averageView,
		nlq.HandlerSegmentByPlan: planSegmentView,
		nlq.HandlerTrial:         trialView,
		nlq.HandlerAutoRenew:     autoRenewView,
		nlq.HandlerFeatures:      featureAnalysisView,
		nlq.HandlerCompare:       segmentComparisonView,
		nlq.HandlerTrends:        trendsView,
		nlq.HandlerPredict:       predictView,
		nlq.HandlerRetrain:       retrainView,
		nlq.HandlerUnknown:       unknownView,
	}}
}

// Dispatch renders the view for a handler key. Unregistered keys fall back
// to the unknown view, so Dispatch always produces something presentable.
func (r *Registry) Dispatch(key nlq.HandlerKey, rows []Row, entities nlq.Entities) View {
	if h, ok := r.handlers[key]; ok {
		return h(rows, entities)
	}
	return unknownView(rows, entities)
}
