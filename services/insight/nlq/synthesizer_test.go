// Copyright (C) 2025 RavenStack (engineering@ravenstack.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package nlq

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ravenstack/insight/services/insight/warehouse"
)

func newTestSynthesizer(t *testing.T) *Synthesizer {
	t.Helper()
	corpus, err := LoadTemplateCorpus()
	if err != nil {
		t.Fatalf("LoadTemplateCorpus: %v", err)
	}
	space, err := NewVectorizer(0).Build(corpus.Documents())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return NewSynthesizer(corpus, space, "", nil)
}

// fakeExecutor records the bound statement it received.
type fakeExecutor struct {
	statement string
	args      []any
	rows      *warehouse.Rows
	err       error
}

func (f *fakeExecutor) Execute(_ context.Context, statement string, args ...any) (*warehouse.Rows, error) {
	f.statement = statement
	f.args = args
	if f.err != nil {
		return nil, f.err
	}
	if f.rows != nil {
		return f.rows, nil
	}
	return &warehouse.Rows{Columns: []string{"n"}, Records: [][]any{{int64(1)}}}, nil
}

func TestSynthesizeCountCustomers(t *testing.T) {
	s := newTestSynthesizer(t)

	res := s.Synthesize(context.Background(), "How many customers do we have?")

	if res.Query == nil {
		t.Fatalf("no query rendered: %+v", res)
	}
	if res.Template != "count_customers" {
		t.Errorf("template = %q, want count_customers", res.Template)
	}
	if !strings.Contains(res.Query.SQL, "FROM subscriptions") {
		t.Errorf("SQL missing default table: %s", res.Query.SQL)
	}
	if len(res.Query.Args) != 0 {
		t.Errorf("args = %v, want none", res.Query.Args)
	}
	if res.Confidence <= RelevanceFloor {
		t.Errorf("confidence = %f, must exceed the floor", res.Confidence)
	}
}

func TestSynthesizeSpendingAboveRendersAmount(t *testing.T) {
	s := newTestSynthesizer(t)

	res := s.Synthesize(context.Background(), "Show me customers spending more than $500")

	if res.Query == nil {
		t.Fatalf("no query rendered: %+v", res)
	}
	if res.Template != "spending_above" {
		t.Errorf("template = %q, want spending_above", res.Template)
	}
	// Display SQL carries the literal; bound form carries a placeholder.
	if !strings.Contains(res.Query.SQL, "500") {
		t.Errorf("display SQL missing threshold: %s", res.Query.SQL)
	}
	if !strings.Contains(res.Query.Statement, "?") {
		t.Errorf("bound statement missing placeholder: %s", res.Query.Statement)
	}
	if len(res.Query.Args) != 1 || res.Query.Args[0] != 500.0 {
		t.Errorf("args = %v, want [500]", res.Query.Args)
	}
}

func TestSynthesizeMissingAmountFailsClosed(t *testing.T) {
	s := newTestSynthesizer(t)

	res := s.Synthesize(context.Background(), "customers spending more than")

	if res.Query != nil {
		t.Fatalf("query rendered despite missing amount: %s", res.Query.SQL)
	}
	if len(res.Missing) != 1 || res.Missing[0] != ParamAmount {
		t.Errorf("missing = %v, want [amount]", res.Missing)
	}
	if res.Message != msgMissingAmount {
		t.Errorf("message = %q, want %q", res.Message, msgMissingAmount)
	}
	// The template match is still reported so callers can explain the gate.
	if res.Template != "spending_above" {
		t.Errorf("template = %q, want spending_above", res.Template)
	}
}

func TestSynthesizePlanTemplate(t *testing.T) {
	s := newTestSynthesizer(t)

	res := s.Synthesize(context.Background(), "Get customers in premium plan")

	if res.Query == nil {
		t.Fatalf("no query rendered: %+v", res)
	}
	if res.Template != "customers_in_plan" {
		t.Errorf("template = %q, want customers_in_plan", res.Template)
	}
	if !strings.Contains(res.Query.SQL, "'premium'") {
		t.Errorf("display SQL missing quoted plan: %s", res.Query.SQL)
	}
	if len(res.Query.Args) != 1 || res.Query.Args[0] != "premium" {
		t.Errorf("args = %v, want [premium]", res.Query.Args)
	}
}

func TestSynthesizeMissingPlanFailsClosed(t *testing.T) {
	s := newTestSynthesizer(t)

	res := s.Synthesize(context.Background(), "who has plan")

	if res.Query != nil {
		t.Fatalf("query rendered despite missing plan: %s", res.Query.SQL)
	}
	if res.Message != msgMissingPlan {
		t.Errorf("message = %q, want %q", res.Message, msgMissingPlan)
	}
}

func TestSynthesizeNoMatch(t *testing.T) {
	s := newTestSynthesizer(t)

	res := s.Synthesize(context.Background(), "asdkj qweoiu random text")

	if !res.NoMatch {
		t.Fatalf("expected no match, got template %q (%.3f)", res.Template, res.Confidence)
	}
	if res.Message != msgNoTemplate {
		t.Errorf("message = %q, want %q", res.Message, msgNoTemplate)
	}
	if res.Confidence != 0 {
		t.Errorf("confidence = %f, want 0", res.Confidence)
	}
}

func TestSynthesizeCustomTableName(t *testing.T) {
	corpus, err := LoadTemplateCorpus()
	if err != nil {
		t.Fatalf("LoadTemplateCorpus: %v", err)
	}
	space, err := NewVectorizer(0).Build(corpus.Documents())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	s := NewSynthesizer(corpus, space, "saas_subscriptions", nil)

	res := s.Synthesize(context.Background(), "How many customers do we have?")
	if res.Query == nil {
		t.Fatal("no query rendered")
	}
	if !strings.Contains(res.Query.SQL, "FROM saas_subscriptions") {
		t.Errorf("SQL missing custom table: %s", res.Query.SQL)
	}
}

func TestProcessExecutesBoundStatement(t *testing.T) {
	s := newTestSynthesizer(t)
	exec := &fakeExecutor{}

	env := s.Process(context.Background(), "Show me customers spending more than $500", exec)

	if !env.Success {
		t.Fatalf("envelope not successful: %+v", env)
	}
	if env.RequestID == "" {
		t.Error("request ID missing")
	}
	if !strings.Contains(exec.statement, "?") {
		t.Errorf("executed statement should be parameter-bound: %s", exec.statement)
	}
	if len(exec.args) != 1 || exec.args[0] != 500.0 {
		t.Errorf("executed args = %v, want [500]", exec.args)
	}
	if env.Rows.Len() != 1 {
		t.Errorf("rows = %d, want 1", env.Rows.Len())
	}
	if env.Metadata.Template != "spending_above" {
		t.Errorf("metadata template = %q, want spending_above", env.Metadata.Template)
	}
}

func TestProcessSurfacesExecutionError(t *testing.T) {
	s := newTestSynthesizer(t)
	exec := &fakeExecutor{err: errors.New("table vanished")}

	env := s.Process(context.Background(), "How many customers do we have?", exec)

	if env.Success {
		t.Fatal("envelope should not report success on execution error")
	}
	if !strings.Contains(env.Message, "Error executing query") {
		t.Errorf("message = %q, want execution error", env.Message)
	}
	// The attempted SQL travels in the failed envelope.
	if env.SQL == "" {
		t.Error("failed envelope missing SQL")
	}
}

func TestProcessNoMatchSkipsExecution(t *testing.T) {
	s := newTestSynthesizer(t)
	exec := &fakeExecutor{}

	env := s.Process(context.Background(), "asdkj qweoiu random text", exec)

	if env.Success {
		t.Fatal("no-match envelope should not be successful")
	}
	if exec.statement != "" {
		t.Errorf("executor called with %q for unmatched question", exec.statement)
	}
	if env.SQL != "" {
		t.Errorf("SQL = %q, want empty", env.SQL)
	}
}

func TestExampleQueriesSynthesizeOrFailCleanly(t *testing.T) {
	// Every published example should at least match a template; those with
	// parameters embedded should render.
	s := newTestSynthesizer(t)
	for _, q := range s.ExampleQueries() {
		res := s.Synthesize(context.Background(), q)
		if res.NoMatch {
			t.Errorf("example %q matched no template", q)
		}
	}
}
