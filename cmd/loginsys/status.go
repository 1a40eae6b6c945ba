// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Loginsys Contributors

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/loginsys/loginsys/internal/api"
)

// ServerStatus is the result of probing a running server.
type ServerStatus struct {
	URL       string `json:"url"`
	Healthy   bool   `json:"healthy"`
	Status    string `json:"status,omitempty"`
	Message   string `json:"message,omitempty"`
	LatencyMS int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

// statusConfig holds configuration for the status command.
type statusConfig struct {
	url        string
	timeout    time.Duration
	jsonOutput bool
}

// NewStatusCmd creates the status subcommand.
func NewStatusCmd() *cobra.Command {
	cfg := &statusConfig{}

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Check the health of a running loginsys server",
		Long:  `Query the /api/health endpoint of a running server and report the result.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatus(cmd, cfg)
		},
	}

	cmd.Flags().StringVar(&cfg.url, "url", "http://localhost:8000", "base URL of the server")
	cmd.Flags().DurationVar(&cfg.timeout, "timeout", 5*time.Second, "request timeout")
	cmd.Flags().BoolVar(&cfg.jsonOutput, "json", false, "output status as JSON")

	return cmd
}

// runStatus prints the probe result. An unhealthy server is reported as an
// error so the exit code reflects it.
func runStatus(cmd *cobra.Command, cfg *statusConfig) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	st := queryHealth(ctx, &http.Client{Timeout: cfg.timeout}, cfg.url)

	if cfg.jsonOutput {
		out, err := json.MarshalIndent(st, "", "  ")
		if err != nil {
			return oops.Wrap(err)
		}
		cmd.Println(string(out))
	} else {
		cmd.Println(formatStatus(st))
	}

	if !st.Healthy {
		return oops.Code("SERVER_UNHEALTHY").With("url", st.URL).Errorf("server is not healthy")
	}
	return nil
}

func queryHealth(ctx context.Context, client *http.Client, baseURL string) ServerStatus {
	url := strings.TrimSuffix(baseURL, "/") + api.RouteHealth
	st := ServerStatus{URL: url}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		st.Error = err.Error()
		return st
	}

	start := time.Now()
	resp, err := client.Do(req)
	st.LatencyMS = time.Since(start).Milliseconds()
	if err != nil {
		st.Error = err.Error()
		return st
	}
	defer func() {
		_ = resp.Body.Close() //nolint:errcheck // read-only probe
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		st.Error = err.Error()
		return st
	}
	var health api.HealthResponse
	if err := json.Unmarshal(body, &health); err != nil {
		st.Error = fmt.Sprintf("unexpected response (HTTP %d)", resp.StatusCode)
		return st
	}
	st.Status = health.Status
	st.Message = health.Message
	st.Healthy = resp.StatusCode == http.StatusOK && health.Status == "ok"
	if !st.Healthy && st.Error == "" {
		st.Error = fmt.Sprintf("HTTP %d", resp.StatusCode)
	}
	return st
}

func formatStatus(st ServerStatus) string {
	state := "healthy"
	if !st.Healthy {
		state = "unhealthy"
	}
	line := fmt.Sprintf("%s: %s (%dms)", st.URL, state, st.LatencyMS)
	if st.Message != "" {
		line += " - " + st.Message
	}
	if st.Error != "" {
		line += " [" + st.Error + "]"
	}
	return line
}
