// Copyright (C) 2025 RavenStack (engineering@ravenstack.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package warehouse provides the narrow query-execution boundary the NL
// core hands rendered queries to. The core never constructs SQL connections
// itself; it sees only the Executor interface and the tabular Rows result.
package warehouse

import "context"

// Rows is a dialect-agnostic tabular result set.
//
// # Description
//
// Column order is the statement's projection order; Records holds one value
// slice per result row with driver values converted to plain Go types
// (strings, int64, float64, bool, nil).
type Rows struct {
	// Columns are the result column names, in projection order.
	Columns []string `json:"columns"`

	// Records are the result rows, one value per column.
	Records [][]any `json:"records"`
}

// Len returns the number of result rows.
func (r *Rows) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Records)
}

// Executor runs a parameterized statement against the warehouse.
//
// # Description
//
// The statement uses ? placeholders with args bound positionally — rendered
// values never travel inside the SQL text. Implementations surface execution
// failures verbatim; callers package them into result envelopes rather than
// retrying or reinterpreting.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use.
type Executor interface {
	Execute(ctx context.Context, statement string, args ...any) (*Rows, error)
}
