// Copyright (C) 2025 RavenStack (engineering@ravenstack.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package insight

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ravenstack/insight/services/insight/analytics"
)

func TestChurnScore(t *testing.T) {
	tests := []struct {
		name       string
		row        analytics.Row
		downgraded bool
		churned    bool
		want       float64
	}{
		{"churned dominates", analytics.Row{}, false, true, 0.97},
		{"baseline auto-renewing", analytics.Row{AutoRenew: true, MRR: 500}, false, false, 0.15},
		{"trial without auto-renew", analytics.Row{IsTrial: true, MRR: 500}, false, false, 0.70},
		{"low mrr adds risk", analytics.Row{AutoRenew: true, MRR: 50}, false, false, 0.25},
		{"all signals cap below one", analytics.Row{IsTrial: true, MRR: 50}, true, false, 0.95},
	}
	for _, tt := range tests {
		got := churnScore(tt.row, tt.downgraded, tt.churned)
		assert.InDelta(t, tt.want, got, 1e-9, tt.name)
	}
}

func TestScoreWarehouseShape(t *testing.T) {
	svc := newTestService(t)

	rows, err := svc.scoreWarehouse(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, rows)

	for _, row := range rows {
		assert.NotEmpty(t, row.CustomerID)
		assert.NotEmpty(t, row.PlanTier)
		assert.GreaterOrEqual(t, row.ChurnProbability, 0.0)
		assert.LessOrEqual(t, row.ChurnProbability, 1.0)
		assert.NotEmpty(t, row.PredictedAt)
	}
}

func TestPredictionSnapshotIsCached(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	first, err := svc.predictionSnapshot(ctx)
	require.NoError(t, err)

	second, err := svc.predictionSnapshot(ctx)
	require.NoError(t, err)

	// Within the TTL the same slice is served, not a rebuilt one.
	assert.Equal(t, &first[0], &second[0])
}

func TestAskAttachesDataContext(t *testing.T) {
	svc := newTestService(t)

	result, view, err := svc.Ask(context.Background(), "What's the average churn probability?")
	require.NoError(t, err)

	assert.Equal(t, "average_churn", result.Intent)
	assert.Contains(t, result.Context, "Average churn probability:")
	assert.Equal(t, "Average Churn Metrics", view.Title)
}

func TestChatUsesSnapshotNumbers(t *testing.T) {
	svc := newTestService(t)

	reply, err := svc.Chat(context.Background(), "how is churn looking?")
	require.NoError(t, err)
	assert.Contains(t, reply, "Total customers analyzed: 50")
}
