package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/billsplitter/internal/apitest"
)

func TestRunStopsWhenContextIsDone(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "bills.db")
	t.Setenv("DB_PATH", dbPath)
	t.Setenv("PORT", "0")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- run(ctx) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return after cancel")
	}

	// The database was closed cleanly and can be opened again.
	store, err := apitest.NewStore(dbPath)
	require.NoError(t, err)
	assert.NoError(t, store.Close())
}

func TestRunReportsStorageErrors(t *testing.T) {
	// A regular file where the database directory should be.
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))
	t.Setenv("DB_PATH", filepath.Join(blocker, "bills.db"))
	t.Setenv("PORT", "0")

	err := run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to initialize storage")
}
