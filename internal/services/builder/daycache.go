package builder

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/kij-exe/hypr-ledger/internal/domain"
	"github.com/kij-exe/hypr-ledger/internal/metrics"
)

// DateLayout is the day format used in report paths and cache keys.
const DateLayout = "20060102"

// DayFetcher downloads one UTC day of a builder's fill report.
// It returns domain.ErrNotFound when the day is not published.
type DayFetcher interface {
	Day(ctx context.Context, builder string, date string) ([]domain.BuilderFill, error)
}

// DayStore is a persistent tier for fetched days.
type DayStore interface {
	Load(builder, date string) ([]domain.BuilderFill, bool, error)
	Save(builder, date string, rows []domain.BuilderFill) error
}

// DayCache memoizes builder report days for the lifetime of the process.
// Concurrent lookups of the same missing day share a single download.
type DayCache struct {
	fetcher DayFetcher
	store   DayStore
	l       *zap.Logger

	mu     sync.RWMutex
	days   map[string][]domain.BuilderFill
	flight singleflight.Group
}

// NewDayCache creates a cache in front of fetcher. store may be nil.
func NewDayCache(fetcher DayFetcher, store DayStore, l *zap.Logger) *DayCache {
	if l == nil {
		l = zap.NewNop()
	}
	return &DayCache{
		fetcher: fetcher,
		store:   store,
		l:       l,
		days:    make(map[string][]domain.BuilderFill),
	}
}

func dayKey(builder, date string) string {
	return strings.ToLower(builder) + "/" + date
}

// Day returns the rows published by builder for the UTC day containing day.
// An unpublished day yields an empty slice and no error. The returned slice
// is shared and must not be modified.
//
// A download started on behalf of ctx is not cancelled with it, so an
// abandoned lookup still populates the cache.
func (c *DayCache) Day(ctx context.Context, builder string, day time.Time) ([]domain.BuilderFill, error) {
	date := day.UTC().Format(DateLayout)
	key := dayKey(builder, date)

	if rows, ok := c.cached(key); ok {
		metrics.BuilderDayCacheHits.Inc()
		return rows, nil
	}

	ch := c.flight.DoChan(key, func() (interface{}, error) {
		return c.load(context.WithoutCancel(ctx), builder, date, key)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]domain.BuilderFill), nil
	}
}

// Len returns the number of cached days.
func (c *DayCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.days)
}

func (c *DayCache) cached(key string) ([]domain.BuilderFill, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rows, ok := c.days[key]
	return rows, ok
}

func (c *DayCache) put(key string, rows []domain.BuilderFill) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.days[key] = rows
}

func (c *DayCache) load(ctx context.Context, builder, date, key string) ([]domain.BuilderFill, error) {
	// a flight that finished just before this one started already filled the map
	if rows, ok := c.cached(key); ok {
		metrics.BuilderDayCacheHits.Inc()
		return rows, nil
	}

	if c.store != nil {
		rows, ok, err := c.store.Load(builder, date)
		if err != nil {
			c.l.Warn("failed to load builder day from store", zap.String("date", date), zap.Error(err))
		} else if ok {
			metrics.BuilderDayCacheHits.Inc()
			c.put(key, rows)
			return rows, nil
		}
	}

	rows, err := c.fetcher.Day(ctx, builder, date)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		metrics.BuilderDayFetches.WithLabelValues(metrics.ResultNotFound).Inc()
		c.l.Warn("builder report not available", zap.String("builder", builder), zap.String("date", date))
		rows = []domain.BuilderFill{}
		c.put(key, rows)
		return rows, nil
	case err != nil:
		metrics.BuilderDayFetches.WithLabelValues(metrics.ResultError).Inc()
		return nil, errors.Wrapf(err, "fetch builder report %s", date)
	}

	metrics.BuilderDayFetches.WithLabelValues(metrics.ResultOK).Inc()
	if rows == nil {
		rows = []domain.BuilderFill{}
	}
	if c.store != nil {
		if err := c.store.Save(builder, date, rows); err != nil {
			c.l.Warn("failed to persist builder day", zap.String("date", date), zap.Error(err))
		}
	}
	c.put(key, rows)
	c.l.Info("loaded builder report", zap.String("date", date), zap.Int("rows", len(rows)))

	return rows, nil
}
