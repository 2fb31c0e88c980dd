package builder

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kij-exe/hypr-ledger/internal/domain"
)

type fakeFetcher struct {
	mu    sync.Mutex
	days  map[string][]domain.BuilderFill
	errs  map[string]error
	calls map[string]int
	total atomic.Int64
	gate  chan struct{}
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		days:  make(map[string][]domain.BuilderFill),
		errs:  make(map[string]error),
		calls: make(map[string]int),
	}
}

func (f *fakeFetcher) Day(ctx context.Context, builder string, date string) ([]domain.BuilderFill, error) {
	f.total.Add(1)
	if f.gate != nil {
		<-f.gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[date]++
	if err, ok := f.errs[date]; ok {
		return nil, err
	}
	rows, ok := f.days[date]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return rows, nil
}

func (f *fakeFetcher) callsFor(date string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[date]
}

type memStore struct {
	mu    sync.Mutex
	days  map[string][]domain.BuilderFill
	saves int
}

func (s *memStore) Load(builder, date string) ([]domain.BuilderFill, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, ok := s.days[dayKey(builder, date)]
	return rows, ok, nil
}

func (s *memStore) Save(builder, date string, rows []domain.BuilderFill) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.days == nil {
		s.days = make(map[string][]domain.BuilderFill)
	}
	s.days[dayKey(builder, date)] = rows
	s.saves++
	return nil
}

var day1 = time.Date(2025, 3, 1, 13, 45, 0, 0, time.UTC)

func TestDayCache_Day(t *testing.T) {
	t.Run("fetches once and serves from memory", func(t *testing.T) {
		f := newFakeFetcher()
		f.days["20250301"] = []domain.BuilderFill{reportRow(t0, "BTC", "1", "1", domain.BuilderSideBid)}
		c := NewDayCache(f, nil, zap.NewNop())

		for i := 0; i < 3; i++ {
			rows, err := c.Day(context.Background(), "0xB", day1)
			require.NoError(t, err)
			assert.Len(t, rows, 1)
		}
		assert.Equal(t, 1, f.callsFor("20250301"))
		assert.Equal(t, 1, c.Len())
	})

	t.Run("unpublished day is cached as empty", func(t *testing.T) {
		f := newFakeFetcher()
		c := NewDayCache(f, nil, zap.NewNop())

		rows, err := c.Day(context.Background(), "0xB", day1)
		require.NoError(t, err)
		assert.NotNil(t, rows)
		assert.Empty(t, rows)

		_, err = c.Day(context.Background(), "0xB", day1)
		require.NoError(t, err)
		assert.Equal(t, 1, f.callsFor("20250301"))
	})

	t.Run("transient errors surface and are not cached", func(t *testing.T) {
		f := newFakeFetcher()
		f.errs["20250301"] = errors.New("connection reset")
		c := NewDayCache(f, nil, zap.NewNop())

		_, err := c.Day(context.Background(), "0xB", day1)
		require.Error(t, err)

		delete(f.errs, "20250301")
		f.days["20250301"] = []domain.BuilderFill{}
		_, err = c.Day(context.Background(), "0xB", day1)
		require.NoError(t, err)
		assert.Equal(t, 2, f.callsFor("20250301"))
	})

	t.Run("keys include the builder", func(t *testing.T) {
		f := newFakeFetcher()
		f.days["20250301"] = []domain.BuilderFill{}
		c := NewDayCache(f, nil, zap.NewNop())

		_, err := c.Day(context.Background(), "0xA", day1)
		require.NoError(t, err)
		_, err = c.Day(context.Background(), "0xB", day1)
		require.NoError(t, err)
		assert.Equal(t, 2, f.callsFor("20250301"))
	})

	t.Run("concurrent lookups share one download", func(t *testing.T) {
		f := newFakeFetcher()
		f.gate = make(chan struct{})
		f.days["20250301"] = []domain.BuilderFill{reportRow(t0, "BTC", "1", "1", domain.BuilderSideBid)}
		c := NewDayCache(f, nil, zap.NewNop())

		const n = 16
		var wg sync.WaitGroup
		errs := make(chan error, n)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := c.Day(context.Background(), "0xB", day1)
				errs <- err
			}()
		}

		require.Eventually(t, func() bool { return f.total.Load() >= 1 }, time.Second, time.Millisecond)
		// give the remaining goroutines time to join the flight
		time.Sleep(20 * time.Millisecond)
		close(f.gate)
		wg.Wait()
		close(errs)

		for err := range errs {
			assert.NoError(t, err)
		}
		assert.Equal(t, int64(1), f.total.Load())
	})

	t.Run("abandoned lookup still fills the cache", func(t *testing.T) {
		f := newFakeFetcher()
		f.gate = make(chan struct{})
		f.days["20250301"] = []domain.BuilderFill{}
		c := NewDayCache(f, nil, zap.NewNop())

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() {
			_, err := c.Day(ctx, "0xB", day1)
			done <- err
		}()

		require.Eventually(t, func() bool { return f.total.Load() == 1 }, time.Second, time.Millisecond)
		cancel()
		assert.ErrorIs(t, <-done, context.Canceled)

		close(f.gate)
		require.Eventually(t, func() bool { return c.Len() == 1 }, time.Second, time.Millisecond)
	})

	t.Run("persistent tier is consulted and filled", func(t *testing.T) {
		f := newFakeFetcher()
		f.days["20250301"] = []domain.BuilderFill{reportRow(t0, "BTC", "1", "1", domain.BuilderSideBid)}
		store := &memStore{}

		_, err := NewDayCache(f, store, zap.NewNop()).Day(context.Background(), "0xB", day1)
		require.NoError(t, err)
		assert.Equal(t, 1, store.saves)

		rows, err := NewDayCache(f, store, zap.NewNop()).Day(context.Background(), "0xB", day1)
		require.NoError(t, err)
		assert.Len(t, rows, 1)
		assert.Equal(t, 1, f.callsFor("20250301"))
	})

	t.Run("unpublished day is not persisted", func(t *testing.T) {
		store := &memStore{}
		_, err := NewDayCache(newFakeFetcher(), store, zap.NewNop()).Day(context.Background(), "0xB", day1)
		require.NoError(t, err)
		assert.Equal(t, 0, store.saves)
	})
}
