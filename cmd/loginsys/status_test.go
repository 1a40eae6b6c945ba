// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Loginsys Contributors

package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/h2non/gock.v1"

	"github.com/loginsys/loginsys/pkg/errutil"
)

func runStatusCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewStatusCmd()
	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestStatus_Healthy(t *testing.T) {
	defer gock.Off()
	gock.New("http://loginsys.test").
		Get("/api/health").
		Reply(200).
		JSON(map[string]string{"status": "ok", "message": "Login system is running"})

	out, err := runStatusCmd(t, "--url", "http://loginsys.test/")
	require.NoError(t, err)
	assert.Contains(t, out, "http://loginsys.test/api/health: healthy")
	assert.Contains(t, out, "Login system is running")
	assert.True(t, gock.IsDone())
}

func TestStatus_Unhealthy(t *testing.T) {
	defer gock.Off()
	gock.New("http://loginsys.test").
		Get("/api/health").
		Reply(503).
		JSON(map[string]string{"status": "unavailable", "message": "Account store is unreachable"})

	out, err := runStatusCmd(t, "--url", "http://loginsys.test", "--json")
	errutil.AssertErrorCode(t, err, "SERVER_UNHEALTHY")
	assert.Contains(t, out, `"healthy": false`)
	assert.Contains(t, out, `"error": "HTTP 503"`)
}

func TestStatus_NonJSONResponse(t *testing.T) {
	defer gock.Off()
	gock.New("http://loginsys.test").
		Get("/api/health").
		Reply(502).
		BodyString("<html>bad gateway</html>")

	out, err := runStatusCmd(t, "--url", "http://loginsys.test")
	require.Error(t, err)
	assert.Contains(t, out, "unexpected response (HTTP 502)")
}

func TestFormatStatus(t *testing.T) {
	assert.Equal(t, "http://x/api/health: healthy (3ms) - up",
		formatStatus(ServerStatus{URL: "http://x/api/health", Healthy: true, LatencyMS: 3, Message: "up"}))
	assert.Equal(t, "http://x/api/health: unhealthy (0ms) [dial tcp: refused]",
		formatStatus(ServerStatus{URL: "http://x/api/health", Error: "dial tcp: refused"}))
}
