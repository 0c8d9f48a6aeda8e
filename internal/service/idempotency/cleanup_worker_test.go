package idempotency

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/vladislavdragonenkov/eventhub/internal/clock"
	"github.com/vladislavdragonenkov/eventhub/internal/domain"
	"github.com/vladislavdragonenkov/eventhub/internal/storage/memory"
)

func TestCleanupWorker_DeleteExpired_Batches(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	repo := memory.NewIdempotencyRepositoryWithClock(func() time.Time { return now })
	for _, key := range []string{"a", "b", "c", "d", "e"} {
		_, err := repo.CreateProcessing(key, "hash-"+key, now.Add(-time.Minute))
		require.NoError(t, err)
	}
	_, err := repo.CreateProcessing("fresh", "hash-fresh", now.Add(time.Hour))
	require.NoError(t, err)

	worker := NewCleanupWorker(repo, WithBatchSize(2), WithClock(clock.NewManual(now)))
	deleted, err := worker.DeleteExpired(context.Background(), time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 5, deleted)

	_, err = repo.Get("fresh")
	assert.NoError(t, err)
	_, err = repo.Get("a")
	assert.ErrorIs(t, err, domain.ErrIdempotencyKeyNotFound)
}

func TestCleanupWorker_DeleteExpired_Error(t *testing.T) {
	t.Parallel()

	repo := &failingRepo{err: errors.New("boom")}
	worker := NewCleanupWorker(repo, WithBatchSize(10))

	deleted, err := worker.DeleteExpired(context.Background(), time.Now())
	require.Error(t, err)
	assert.Zero(t, deleted)
}

func TestCleanupWorker_Run_StopsOnContextCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	repo := &failingRepo{}
	worker := NewCleanupWorker(repo, WithInterval(5*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		worker.Run(ctx)
	}()

	require.Eventually(t, func() bool { return repo.calls() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop on context cancel")
	}
}

// failingRepo считает вызовы DeleteExpired и возвращает заданную ошибку.
type failingRepo struct {
	domain.IdempotencyRepository

	mu    sync.Mutex
	err   error
	count int
}

func (r *failingRepo) DeleteExpired(time.Time, int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.count++
	return 0, r.err
}

func (r *failingRepo) calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}
