// Copyright (C) 2025 RavenStack (engineering@ravenstack.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Command raven is the CLI client for the Insight API server.
//
// Usage:
//
//	raven ask "Show me high-risk customers"
//	raven query "How many customers do we have?"
//	raven chat "What drives churn the most?"
//	raven examples
//	raven schema
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

// baseURL is the server address, settable via flag or INSIGHT_BASE_URL.
var baseURL string

// useColor is resolved once at startup: ANSI color only on a terminal.
var useColor = isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())

// httpClient is shared by all commands.
var httpClient = &http.Client{Timeout: 30 * time.Second}

func main() {
	root := &cobra.Command{
		Use:   "raven",
		Short: "Natural-language analytics over subscription data",
		Long: "raven talks to the Insight API server: analytics questions, " +
			"NL-to-SQL queries, and the assistant.",
		SilenceUsage: true,
	}

	defaultURL := os.Getenv("INSIGHT_BASE_URL")
	if defaultURL == "" {
		defaultURL = "http://localhost:8086"
	}
	root.PersistentFlags().StringVar(&baseURL, "base-url", defaultURL, "Insight server base URL")

	root.AddCommand(newAskCmd(), newQueryCmd(), newChatCmd(), newExamplesCmd(), newSchemaCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// postJSON sends a JSON body to an endpoint and decodes the response into out.
func postJSON(path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}

	resp, err := httpClient.Post(baseURL+path, "application/json", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("calling %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	return decodeResponse(resp, path, out)
}

// getJSON fetches an endpoint and decodes the response into out.
func getJSON(path string, out any) error {
	resp, err := httpClient.Get(baseURL + path)
	if err != nil {
		return fmt.Errorf("calling %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	return decodeResponse(resp, path, out)
}

// decodeResponse reads the body and surfaces the server's error message on
// non-2xx statuses.
func decodeResponse(resp *http.Response, path string, out any) error {
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading %s response: %w", path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s: %s (status %d)", path, apiErr.Error, resp.StatusCode)
		}
		return fmt.Errorf("%s: status %d", path, resp.StatusCode)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decoding %s response: %w", path, err)
	}
	return nil
}

// bold wraps s in ANSI bold when stdout is a terminal.
func bold(s string) string {
	if useColor {
		return "\033[1m" + s + "\033[0m"
	}
	return s
}

// dim wraps s in ANSI dim when stdout is a terminal.
func dim(s string) string {
	if useColor {
		return "\033[2m" + s + "\033[0m"
	}
	return s
}
