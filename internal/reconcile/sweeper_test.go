package reconcile_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/serroba/shorturl/internal/reconcile"
	"github.com/serroba/shorturl/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type failingPurger struct{}

func (failingPurger) PurgeProvisional(context.Context, time.Time) (int64, error) {
	return 0, errors.New("timeout")
}

func TestSweeper_Sweep(t *testing.T) {
	t.Run("purges only provisional records past grace", func(t *testing.T) {
		s := store.NewMemoryStore()
		insertProvisional(t, s, "https://example.com/stale", time.Now().Add(-time.Hour))
		insertProvisional(t, s, "https://example.com/fresh", time.Now())

		assigned := insertProvisional(t, s, "https://example.com/done", time.Now().Add(-time.Hour))
		require.NoError(t, s.AssignCode(context.Background(), assigned.ID, "done", time.Now()))

		recorder := &fakeRecorder{}
		sweeper := reconcile.NewSweeper(s, time.Minute, 10*time.Minute, recorder, zap.NewNop())

		n, err := sweeper.Sweep(context.Background())

		require.NoError(t, err)
		assert.EqualValues(t, 1, n)
		assert.Equal(t, 2, s.Len())

		_, purged := recorder.snapshot()
		assert.EqualValues(t, 1, purged)
	})

	t.Run("returns purger error", func(t *testing.T) {
		sweeper := reconcile.NewSweeper(failingPurger{}, time.Minute, time.Minute, &fakeRecorder{}, zap.NewNop())

		_, err := sweeper.Sweep(context.Background())

		assert.Error(t, err)
	})
}

func TestSweeper_Lifecycle(t *testing.T) {
	t.Run("sweeps on start", func(t *testing.T) {
		s := store.NewMemoryStore()
		insertProvisional(t, s, "https://example.com/stale", time.Now().Add(-time.Hour))

		sweeper := reconcile.NewSweeper(s, time.Hour, time.Minute, &fakeRecorder{}, zap.NewNop())

		require.NoError(t, sweeper.Start(context.Background()))
		assert.Eventually(t, func() bool { return s.Len() == 0 }, time.Second, 10*time.Millisecond)
		require.NoError(t, sweeper.Shutdown())
	})

	t.Run("shutdown without start is a no-op", func(t *testing.T) {
		sweeper := reconcile.NewSweeper(store.NewMemoryStore(), time.Hour, time.Minute, &fakeRecorder{}, zap.NewNop())

		assert.NoError(t, sweeper.Shutdown())
	})
}
