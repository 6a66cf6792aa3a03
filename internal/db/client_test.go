// Package db_test contains integration tests for the SurrealDB client.
// They expect a local SurrealDB instance (or one pointed to via env vars)
// and are skipped in -short mode.
package db_test

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskbot/internal/db"
)

// getTestConfig returns config from environment or defaults for local testing.
func getTestConfig() db.Config {
	return db.Config{
		URL:       getEnv("SURREALDB_URL", "ws://localhost:8000/rpc"),
		Namespace: getEnv("SURREALDB_NAMESPACE", "test_taskbot"),
		Database:  getEnv("SURREALDB_DATABASE", "test_chat"),
		Username:  getEnv("SURREALDB_USER", "root"),
		Password:  getEnv("SURREALDB_PASS", "root"),
		AuthLevel: getEnv("SURREALDB_AUTH_LEVEL", "root"),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// newTestClient connects, initializes the schema and wipes any leftover data.
func newTestClient(t *testing.T) *db.Client {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))

	client, err := db.NewClient(ctx, getTestConfig(), logger, nil)
	require.NoError(t, err, "should connect to SurrealDB")
	t.Cleanup(func() { _ = client.Close(context.Background()) })

	require.NoError(t, client.InitSchema(ctx), "should initialize schema")
	require.NoError(t, client.WipeData(ctx), "should wipe leftover data")

	return client
}

func TestClientConnect(t *testing.T) {
	client := newTestClient(t)
	assert.NotNil(t, client.DB(), "should have valid DB reference")
}

func TestClientInitSchema(t *testing.T) {
	client := newTestClient(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Verify tables exist by querying INFO FOR DB
	result, err := client.Query(ctx, "INFO FOR DB", nil)
	require.NoError(t, err, "should query database info")
	assert.NotNil(t, result, "should return database info")
}

func TestClientQuery(t *testing.T) {
	client := newTestClient(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	result, err := client.Query(ctx, "SELECT count() FROM task GROUP ALL", nil)
	require.NoError(t, err, "should execute count query")
	assert.NotNil(t, result, "should return result")
}
