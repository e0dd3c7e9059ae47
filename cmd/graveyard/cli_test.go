// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Query-farm/graveyard-go/eventstore"
	"github.com/Query-farm/graveyard-go/reference"
	"github.com/Query-farm/graveyard-go/schema"
)

const declarations = `
entities:
  - entity: user_test
    fields:
      username: {shape: string, minLength: 3}
      age: {shape: number, min: 18}
`

// run executes the CLI in-process against srv and returns stdout.
func run(t *testing.T, srv *httptest.Server, args ...string) (string, error) {
	t.Helper()
	if srv != nil {
		u, err := url.Parse(srv.URL)
		require.NoError(t, err)
		host, port, err := net.SplitHostPort(u.Host)
		require.NoError(t, err)
		args = append([]string{"--host", host, "--port", port}, args...)
	}
	args = append([]string{"--no-color"}, args...)

	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func startStore(t *testing.T, opts ...reference.Option) (*reference.Server, *httptest.Server) {
	t.Helper()
	store := reference.NewServer(opts...)
	ts := httptest.NewServer(store)
	t.Cleanup(ts.Close)
	return store, ts
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestSchemaDerive(t *testing.T) {
	path := writeFile(t, "schemas.yaml", declarations)

	out, err := run(t, nil, "schema", "derive", path)
	require.NoError(t, err)

	var got []schema.Schema
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "user_test", got[0].Name)
	assert.Equal(t, schema.PrimitiveType(schema.Number), got[0].Fields["age"].FieldType)
}

func TestSchemaDeriveMissingEntity(t *testing.T) {
	path := writeFile(t, "schemas.yaml", "entities:\n  - fields: {a: {}}\n")
	_, err := run(t, nil, "schema", "derive", path)
	assert.ErrorIs(t, err, schema.ErrMissingEntityDescriptor)
}

func TestSchemaPushAndGet(t *testing.T) {
	store, ts := startStore(t)
	path := writeFile(t, "schemas.yaml", declarations)

	out, err := run(t, ts, "schema", "push", path)
	require.NoError(t, err)
	assert.Contains(t, out, "user_test: Schema upserted")

	_, ok := store.Store().Schema("user_test")
	assert.True(t, ok)

	out, err = run(t, ts, "schema", "get", "user_test")
	require.NoError(t, err)
	var got schema.Schema
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Len(t, got.Fields, 2)

	_, err = run(t, ts, "schema", "get", "missing")
	assert.ErrorContains(t, err, "not found")
}

func TestAppendAndEvents(t *testing.T) {
	_, ts := startStore(t)
	payloadFile := writeFile(t, "payload.json", `{"username":"bob"}`)

	out, err := run(t, ts, "append", "user-1", "--type", "UserCreated", "--data", `{"username":"alice"}`)
	require.NoError(t, err)
	assert.Contains(t, out, "appended")

	_, err = run(t, ts, "append", "user-1", "-t", "UserRenamed", "-d", "@"+payloadFile, "--expected-version", "0")
	require.NoError(t, err)

	_, err = run(t, ts, "append", "user-1", "-t", "Stale", "--expected-version", "0")
	assert.ErrorContains(t, err, "version conflict")

	out, err = run(t, ts, "events", "user-1")
	require.NoError(t, err)
	assert.Contains(t, out, "VERSION")
	assert.Contains(t, out, "UserCreated")
	assert.Contains(t, out, `{"username":"bob"}`)

	out, err = run(t, ts, "events", "user-1", "--json")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	var ev jsonEvent
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &ev))
	assert.Equal(t, "UserRenamed", ev.EventType)
	assert.Equal(t, "user-1", ev.StreamID)
	assert.JSONEq(t, `{"username":"bob"}`, string(ev.Payload))

	out, err = run(t, ts, "events", "nobody")
	require.NoError(t, err)
	assert.Contains(t, out, "empty")
}

func TestAppendRejectsInvalidJSON(t *testing.T) {
	_, err := run(t, nil, "append", "s", "-t", "E", "-d", "{nope")
	assert.ErrorContains(t, err, "not valid JSON")
}

func TestAppendRequiresType(t *testing.T) {
	_, err := run(t, nil, "append", "s")
	assert.ErrorContains(t, err, "type")
}

func TestConfigPrecedence(t *testing.T) {
	path := writeFile(t, "graveyard.yaml", "host: example.internal\nport: 7000\ntimeout: 2s\ncompression: zstd\n")
	t.Setenv("GRAVEYARD_PORT", "7001")

	a := newApp()
	cmd := a.rootCmd()
	var out bytes.Buffer
	cmd.SetArgs([]string{"--config", path, "--timeout", "3s", "config"})
	cmd.SetOut(&out)
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "host: example.internal")
	assert.Contains(t, out.String(), "timeout: 3s")

	cfg, err := a.config()
	require.NoError(t, err)
	assert.Equal(t, "example.internal", cfg.Host)
	assert.Equal(t, 7001, cfg.Port)
	assert.Equal(t, 3*time.Second, cfg.Timeout)
	assert.Equal(t, eventstore.CompressionZstd, cfg.Compression)
	assert.Equal(t, "graveyard-go", cfg.UserAgent)
}

func TestConfigRejectsUnitlessTimeout(t *testing.T) {
	path := writeFile(t, "graveyard.yaml", "timeout: 5000\n")
	_, err := run(t, nil, "--config", path, "config")
	assert.ErrorContains(t, err, "below 1ms")
}

func TestConfigFileMissing(t *testing.T) {
	_, err := run(t, nil, "--config", filepath.Join(t.TempDir(), "nope.yaml"), "config")
	assert.ErrorContains(t, err, "config file")
}

func TestInvalidLogLevel(t *testing.T) {
	_, err := run(t, nil, "--log-level", "loud", "config")
	assert.ErrorContains(t, err, "log level")
}

func TestServe(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())

	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)
	done := make(chan error, 1)
	go func() {
		done <- serve(ctx, listener, reference.NewServer(), slog.New(slog.DiscardHandler), cmd)
	}()

	addr := listener.Addr().(*net.TCPAddr)
	cfg := eventstore.DefaultConfig()
	cfg.Host = "127.0.0.1"
	cfg.Port = addr.Port
	client, err := eventstore.NewClient(cfg)
	require.NoError(t, err)
	defer client.Close()

	ok, err := client.AppendEventAny(context.Background(), "s", []eventstore.Event{{EventType: "E"}})
	require.NoError(t, err)
	assert.True(t, ok)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not shut down")
	}
	assert.Contains(t, out.String(), fmt.Sprintf("serving on %s", addr))
}

func TestConformanceCommand(t *testing.T) {
	_, ts := startStore(t)
	out, err := run(t, ts, "conformance", "--run", "append/,read/order")
	require.NoError(t, err)
	assert.Contains(t, out, "PASS append/any_version")
	assert.Contains(t, out, "5 checks passed")

	broken, bts := startStore(t)
	broken.SetFaults(reference.Faults{EmptyResponses: true})
	out, err = run(t, bts, "conformance", "--run", "schema/missing")
	assert.ErrorContains(t, err, "1 of 1 checks failed")
	assert.Contains(t, out, "FAIL schema/missing")
}

func TestSetupTelemetry(t *testing.T) {
	var buf bytes.Buffer
	shutdown, err := setupTelemetry(&buf)
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}
