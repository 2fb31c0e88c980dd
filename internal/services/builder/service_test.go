package builder

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kij-exe/hypr-ledger/internal/domain"
)

func ms(t time.Time) int64 { return t.UnixMilli() }

func TestService_FillsForRange(t *testing.T) {
	d1 := time.Date(2025, 3, 1, 23, 0, 0, 0, time.UTC)
	d3 := time.Date(2025, 3, 3, 1, 0, 0, 0, time.UTC)

	f := newFakeFetcher()
	f.days["20250301"] = []domain.BuilderFill{
		{TimeMs: ms(d1.Add(-time.Hour)), User: "0xabc", Coin: "BTC"},
		{TimeMs: ms(d1.Add(time.Minute)), User: "0xabc", Coin: "BTC"},
		{TimeMs: ms(d1.Add(time.Minute)), User: "0xother", Coin: "BTC"},
	}
	// 20250302 is not published
	f.days["20250303"] = []domain.BuilderFill{
		{TimeMs: ms(d3.Add(-time.Minute)), User: "0xabc", Coin: "ETH"},
		{TimeMs: ms(d3.Add(time.Minute)), User: "0xabc", Coin: "ETH"},
	}

	svc := NewService("0xBUILDER", NewDayCache(f, nil, zap.NewNop()), NewMatcher(zap.NewNop()), zap.NewNop())
	assert.Equal(t, "0xbuilder", svc.Builder())

	t.Run("spans every day touched and skips missing ones", func(t *testing.T) {
		rows, err := svc.FillsForRange(context.Background(), "0xABC", ms(d1), ms(d3))
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, "BTC", rows[0].Coin)
		assert.Equal(t, "ETH", rows[1].Coin)

		assert.Equal(t, 1, f.callsFor("20250301"))
		assert.Equal(t, 1, f.callsFor("20250302"))
		assert.Equal(t, 1, f.callsFor("20250303"))
	})

	t.Run("single day window", func(t *testing.T) {
		rows, err := svc.FillsForRange(context.Background(), "0xabc", ms(d1.Add(-2*time.Hour)), ms(d1))
		require.NoError(t, err)
		assert.Len(t, rows, 1)
	})

	t.Run("inverted window", func(t *testing.T) {
		_, err := svc.FillsForRange(context.Background(), "0xabc", ms(d3), ms(d1))
		assert.ErrorIs(t, err, domain.ErrInvalidTimeRange)
	})

	t.Run("window too long", func(t *testing.T) {
		_, err := svc.FillsForRange(context.Background(), "0xabc", 0, ms(d3))
		assert.ErrorIs(t, err, domain.ErrInvalidTimeRange)
	})

	t.Run("unbounded window is rejected before any day is touched", func(t *testing.T) {
		before := f.total.Load()
		done := make(chan error, 1)
		go func() {
			_, err := svc.FillsForRange(context.Background(), "0xabc", 0, math.MaxInt64)
			done <- err
		}()

		select {
		case err := <-done:
			assert.ErrorIs(t, err, domain.ErrInvalidTimeRange)
		case <-time.After(time.Second):
			t.Fatal("window size was not checked up front")
		}
		assert.Equal(t, before, f.total.Load())
	})
}

func TestService_MatchRange(t *testing.T) {
	day := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	f := newFakeFetcher()
	f.days["20250301"] = []domain.BuilderFill{
		{TimeMs: ms(day), User: "0xabc", Coin: "BTC", Side: domain.BuilderSideBid, Price: dec("100"), Size: dec("1")},
	}
	svc := NewService("0xb", NewDayCache(f, nil, nil), NewMatcher(nil), nil)

	fills := []domain.Fill{
		exchangeFill(ms(day)+200, "BTC", "100", "1", domain.DirectionOpenLong),
		exchangeFill(ms(day)+300, "BTC", "100", "1", domain.DirectionCloseLong),
	}
	got, err := svc.MatchRange(context.Background(), "0xabc", fills, ms(day.Add(-time.Hour)), ms(day.Add(time.Hour)))
	require.NoError(t, err)
	assert.Equal(t, []int{0}, got.Indices())
}

func TestDaySpan(t *testing.T) {
	day := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		from, to int64
		want     int64
	}{
		{"same instant", ms(day), ms(day), 1},
		{"same day", ms(day), ms(day.Add(23 * time.Hour)), 1},
		{"crosses midnight", ms(day.Add(-time.Minute)), ms(day.Add(time.Minute)), 2},
		{"limit", ms(day), ms(day.AddDate(0, 0, maxRangeDays-1)), maxRangeDays},
		{"past the limit", ms(day), ms(day.AddDate(0, 0, maxRangeDays)), maxRangeDays + 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, daySpan(tt.from, tt.to))
		})
	}

	assert.Greater(t, daySpan(0, math.MaxInt64), int64(maxRangeDays))
	assert.Greater(t, daySpan(math.MinInt64/2, 0), int64(maxRangeDays))
}

func TestDaysBetween(t *testing.T) {
	from := time.Date(2024, 12, 31, 23, 59, 0, 0, time.UTC)
	to := time.Date(2025, 1, 1, 0, 1, 0, 0, time.UTC)

	got := daysBetween(ms(from), ms(to))
	require.Len(t, got, 2)
	assert.Equal(t, "20241231", got[0].Format(DateLayout))
	assert.Equal(t, "20250101", got[1].Format(DateLayout))
}
