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

// viewPayload mirrors the server's analytics view.
type viewPayload struct {
	Title   string   `json:"title"`
	Text    []string `json:"text"`
	Warning string   `json:"warning"`
	Metrics []struct {
		Label string `json:"label"`
		Value string `json:"value"`
	} `json:"metrics"`
	Table *tablePayload `json:"table"`
}

// tablePayload mirrors the server's tabular view block.
type tablePayload struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// askResult mirrors the server's AskResponse, decoded loosely so the CLI
// stays compatible across server versions.
type askResult struct {
	Result struct {
		Intent       string   `json:"intent"`
		Confidence   float64  `json:"confidence"`
		Description  string   `json:"description"`
		Unknown      bool     `json:"unknown"`
		Message      string   `json:"message"`
		Suggestions  []string `json:"suggestions"`
		Context      string   `json:"context"`
		Alternatives []struct {
			Intent     string  `json:"intent"`
			Confidence float64 `json:"confidence"`
		} `json:"alternatives"`
	} `json:"result"`
	View viewPayload `json:"view"`
}

func newAskCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask an analytics question",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			question := strings.Join(args, " ")

			var res askResult
			if err := postJSON("/v1/insight/ask", map[string]string{"question": question}, &res); err != nil {
				return err
			}

			if res.Result.Unknown {
				fmt.Println(res.Result.Message)
				if len(res.Result.Suggestions) > 0 {
					fmt.Println("\nTry asking:")
					for _, s := range res.Result.Suggestions {
						fmt.Printf("  - %s\n", s)
					}
				}
				return nil
			}

			fmt.Printf("%s %s\n", bold("Intent:"), res.Result.Intent)
			fmt.Printf("%s %.1f%%  %s\n", bold("Confidence:"), res.Result.Confidence*100, dim(res.Result.Description))
			if res.Result.Context != "" {
				fmt.Println(dim(res.Result.Context))
			}
			fmt.Println()
			printView(res.View)

			// Alternatives restate the primary as element 0; only the
			// lower-ranked candidates are worth listing.
			if len(res.Result.Alternatives) > 1 {
				fmt.Println(dim("\nOther interpretations:"))
				for _, alt := range res.Result.Alternatives[1:] {
					fmt.Println(dim(fmt.Sprintf("  %s (%.1f%%)", alt.Intent, alt.Confidence*100)))
				}
			}
			return nil
		},
	}
}

func newChatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat <message>",
		Short: "Talk to the assistant",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			var res struct {
				Reply string `json:"reply"`
			}
			if err := postJSON("/v1/insight/chat", map[string]string{"message": strings.Join(args, " ")}, &res); err != nil {
				return err
			}
			fmt.Println(res.Reply)
			return nil
		},
	}
}

// printView renders a view's blocks in order: warning, title, text, metrics,
// table.
func printView(view viewPayload) {
	if view.Warning != "" {
		fmt.Println(view.Warning)
	}
	if view.Title != "" {
		fmt.Println(bold(view.Title))
	}
	for _, line := range view.Text {
		fmt.Println(line)
	}
	for _, m := range view.Metrics {
		fmt.Printf("  %s: %s\n", m.Label, bold(m.Value))
	}
	if view.Table != nil {
		fmt.Println()
		printTable(view.Table.Columns, view.Table.Rows)
	}
}

// printTable renders a simple fixed-width table.
func printTable(columns []string, rows [][]string) {
	widths := make([]int, len(columns))
	for i, col := range columns {
		widths[i] = len(col)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	header := make([]string, len(columns))
	for i, col := range columns {
		header[i] = fmt.Sprintf("%-*s", widths[i], col)
	}
	fmt.Println(bold(strings.Join(header, "  ")))

	for _, row := range rows {
		cells := make([]string, 0, len(row))
		for i, cell := range row {
			if i < len(widths) {
				cells = append(cells, fmt.Sprintf("%-*s", widths[i], cell))
			}
		}
		fmt.Println(strings.Join(cells, "  "))
	}
}
