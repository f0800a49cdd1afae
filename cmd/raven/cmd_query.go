// Copyright (C) 2025 RavenStack (engineering@ravenstack.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// queryEnvelope mirrors the server's query envelope.
type queryEnvelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	SQL     string `json:"sql"`
	Results *struct {
		Columns []string `json:"columns"`
		Records [][]any  `json:"records"`
	} `json:"results"`
	Metadata struct {
		Confidence float64 `json:"confidence"`
		Template   string  `json:"template"`
	} `json:"metadata"`
}

func newQueryCmd() *cobra.Command {
	var showSQL bool
	cmd := &cobra.Command{
		Use:   "query <question>",
		Short: "Run a natural-language data query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			var env queryEnvelope
			if err := postJSON("/v1/insight/query", map[string]string{"question": strings.Join(args, " ")}, &env); err != nil {
				return err
			}

			if !env.Success {
				fmt.Println(env.Message)
				if env.SQL != "" && showSQL {
					fmt.Println(dim("SQL: " + env.SQL))
				}
				return nil
			}

			fmt.Println(bold(env.Message))
			if showSQL {
				fmt.Println(dim("SQL: " + env.SQL))
			}
			if env.Results == nil || len(env.Results.Records) == 0 {
				fmt.Println("No results found.")
				return nil
			}

			rows := make([][]string, len(env.Results.Records))
			for i, rec := range env.Results.Records {
				cells := make([]string, len(rec))
				for j, v := range rec {
					cells[j] = formatCell(v)
				}
				rows[i] = cells
			}
			fmt.Println()
			printTable(env.Results.Columns, rows)
			fmt.Println(dim(fmt.Sprintf("\n%d row(s)  template=%s  confidence=%.1f%%",
				len(rows), env.Metadata.Template, env.Metadata.Confidence*100)))
			return nil
		},
	}
	cmd.Flags().BoolVar(&showSQL, "sql", false, "Print the generated SQL")
	return cmd
}

func newExamplesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "examples",
		Short: "Show example questions",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			var res struct {
				Examples []string `json:"examples"`
			}
			if err := getJSON("/v1/insight/examples", &res); err != nil {
				return err
			}
			fmt.Println(bold("Example questions:"))
			for _, ex := range res.Examples {
				fmt.Printf("  - %s\n", ex)
			}
			return nil
		},
	}
}

func newSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Show the queryable columns",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			var res struct {
				Schema string `json:"schema"`
			}
			if err := getJSON("/v1/insight/schema", &res); err != nil {
				return err
			}
			fmt.Println(res.Schema)
			return nil
		},
	}
}

// formatCell renders one result value for display.
func formatCell(v any) string {
	switch n := v.(type) {
	case nil:
		return ""
	case float64:
		if n == float64(int64(n)) {
			return fmt.Sprintf("%d", int64(n))
		}
		return fmt.Sprintf("%.2f", n)
	case string:
		return n
	default:
		return fmt.Sprintf("%v", n)
	}
}
