package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/DeafMist/metasearch-overlay/internal/config"
	"github.com/DeafMist/metasearch-overlay/internal/logger"
)

type stubStore struct {
	pingFailures int
	pings        int
	maxAge       time.Duration
	batch        int
	deleteErr    error
}

func (s *stubStore) Ping(context.Context) error {
	s.pings++
	if s.pings <= s.pingFailures {
		return errors.New("not ready")
	}
	return nil
}

func (s *stubStore) DeleteOlderThan(_ context.Context, maxAge time.Duration, batchSize int) (int64, error) {
	s.maxAge, s.batch = maxAge, batchSize
	return 7, s.deleteErr
}

func TestWaitForElasticsearchRetries(t *testing.T) {
	store := &stubStore{pingFailures: 2}
	err := waitForElasticsearch(context.Background(), logger.Discard(), store, time.Millisecond)
	require.NoError(t, err)
	require.Equal(t, 3, store.pings)
}

func TestWaitForElasticsearchCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	store := &stubStore{pingFailures: 100}
	err := waitForElasticsearch(ctx, logger.Discard(), store, time.Hour)
	require.ErrorIs(t, err, context.Canceled)
}

func TestRunOncePassesConfig(t *testing.T) {
	store := &stubStore{}
	cfg := &config.Retention{MaxAge: 36 * time.Hour, BatchSize: 123}
	runOnce(context.Background(), logger.Discard(), store, cfg)
	require.Equal(t, 36*time.Hour, store.maxAge)
	require.Equal(t, 123, store.batch)

	store.deleteErr = errors.New("boom")
	runOnce(context.Background(), logger.Discard(), store, cfg)
}
