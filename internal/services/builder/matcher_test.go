package builder

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/kij-exe/hypr-ledger/internal/domain"
)

const t0 = int64(1_700_000_000_000)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func exchangeFill(timeMs int64, coin, px, sz string, dir domain.Direction) domain.Fill {
	side := domain.SideBuy
	if dir == domain.DirectionOpenShort || dir == domain.DirectionCloseLong {
		side = domain.SideSell
	}
	return domain.Fill{TimeMs: timeMs, Coin: coin, Price: dec(px), Size: dec(sz), Side: side, Direction: dir}
}

func reportRow(timeMs int64, coin, px, sz string, side domain.BuilderSide) domain.BuilderFill {
	return domain.BuilderFill{TimeMs: timeMs, User: "0xabc", Coin: coin, Price: dec(px), Size: dec(sz), Side: side}
}

func TestMatcher_Match(t *testing.T) {
	tests := []struct {
		name  string
		fills []domain.Fill
		rows  []domain.BuilderFill
		want  []int
	}{
		{
			name:  "bid row matches open long within tolerance",
			fills: []domain.Fill{exchangeFill(t0, "BTC", "50000", "0.1", domain.DirectionOpenLong)},
			rows:  []domain.BuilderFill{reportRow(t0+500, "BTC", "50000.01", "0.099995", domain.BuilderSideBid)},
			want:  []int{0},
		},
		{
			name:  "ask row does not match open long",
			fills: []domain.Fill{exchangeFill(t0, "BTC", "50000", "0.1", domain.DirectionOpenLong)},
			rows:  []domain.BuilderFill{reportRow(t0+500, "BTC", "50000.01", "0.099995", domain.BuilderSideAsk)},
			want:  []int{},
		},
		{
			name: "sides follow direction",
			fills: []domain.Fill{
				exchangeFill(t0, "ETH", "3000", "1", domain.DirectionCloseShort),
				exchangeFill(t0+10, "ETH", "3000", "1", domain.DirectionOpenShort),
				exchangeFill(t0+20, "ETH", "3000", "1", domain.DirectionCloseLong),
			},
			rows: []domain.BuilderFill{
				reportRow(t0, "ETH", "3000", "1", domain.BuilderSideBid),
				reportRow(t0+10, "ETH", "3000", "1", domain.BuilderSideAsk),
				reportRow(t0+20, "ETH", "3000", "1", domain.BuilderSideAsk),
			},
			want: []int{0, 1, 2},
		},
		{
			name:  "other direction skips side check",
			fills: []domain.Fill{exchangeFill(t0, "BTC", "100", "1", domain.DirectionOther)},
			rows:  []domain.BuilderFill{reportRow(t0, "BTC", "100", "1", domain.BuilderSideAsk)},
			want:  []int{0},
		},
		{
			name:  "time difference above one second",
			fills: []domain.Fill{exchangeFill(t0, "BTC", "100", "1", domain.DirectionOpenLong)},
			rows:  []domain.BuilderFill{reportRow(t0-1001, "BTC", "100", "1", domain.BuilderSideBid)},
			want:  []int{},
		},
		{
			name:  "time difference of exactly one second",
			fills: []domain.Fill{exchangeFill(t0, "BTC", "100", "1", domain.DirectionOpenLong)},
			rows:  []domain.BuilderFill{reportRow(t0-1000, "BTC", "100", "1", domain.BuilderSideBid)},
			want:  []int{0},
		},
		{
			name:  "coin mismatch",
			fills: []domain.Fill{exchangeFill(t0, "BTC", "100", "1", domain.DirectionOpenLong)},
			rows:  []domain.BuilderFill{reportRow(t0, "ETH", "100", "1", domain.BuilderSideBid)},
			want:  []int{},
		},
		{
			name:  "price outside tolerance",
			fills: []domain.Fill{exchangeFill(t0, "BTC", "100", "1", domain.DirectionOpenLong)},
			rows:  []domain.BuilderFill{reportRow(t0, "BTC", "100.01", "1", domain.BuilderSideBid)},
			want:  []int{},
		},
		{
			name:  "size outside tolerance",
			fills: []domain.Fill{exchangeFill(t0, "BTC", "50000", "0.1", domain.DirectionOpenLong)},
			rows:  []domain.BuilderFill{reportRow(t0, "BTC", "50000", "0.0999", domain.BuilderSideBid)},
			want:  []int{},
		},
		{
			name:  "zero exchange price and size skip relative checks",
			fills: []domain.Fill{exchangeFill(t0, "BTC", "0", "0", domain.DirectionOpenLong)},
			rows:  []domain.BuilderFill{reportRow(t0, "BTC", "5", "2", domain.BuilderSideBid)},
			want:  []int{0},
		},
		{
			name: "row is consumed once",
			fills: []domain.Fill{
				exchangeFill(t0, "BTC", "100", "1", domain.DirectionOpenLong),
				exchangeFill(t0+1, "BTC", "100", "1", domain.DirectionOpenLong),
			},
			rows: []domain.BuilderFill{reportRow(t0, "BTC", "100", "1", domain.BuilderSideBid)},
			want: []int{0},
		},
		{
			name: "greedy takes the first fitting row",
			fills: []domain.Fill{
				exchangeFill(t0+900, "BTC", "100", "1", domain.DirectionOpenLong),
				exchangeFill(t0+1900, "BTC", "100", "1", domain.DirectionOpenLong),
			},
			rows: []domain.BuilderFill{
				reportRow(t0, "BTC", "100", "1", domain.BuilderSideBid),
				reportRow(t0+1000, "BTC", "100", "1", domain.BuilderSideBid),
			},
			want: []int{0, 1},
		},
		{
			name: "greedy choice can starve a later fill",
			fills: []domain.Fill{
				exchangeFill(t0+1000, "BTC", "100", "1", domain.DirectionOpenLong),
				exchangeFill(t0+2000, "BTC", "100", "1", domain.DirectionOpenLong),
			},
			rows: []domain.BuilderFill{
				reportRow(t0+1500, "BTC", "100", "1", domain.BuilderSideBid),
				reportRow(t0, "BTC", "100", "1", domain.BuilderSideBid),
			},
			want: []int{0},
		},
		{
			name: "no rows",
			fills: []domain.Fill{
				exchangeFill(t0, "BTC", "100", "1", domain.DirectionOpenLong),
			},
			want: []int{},
		},
	}

	m := NewMatcher(zap.NewNop())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := m.Match(tt.fills, tt.rows)
			assert.Equal(t, tt.want, got.Indices())
		})
	}
}

func TestMatcher_EmptyFills(t *testing.T) {
	got := NewMatcher(nil).Match(nil, []domain.BuilderFill{reportRow(t0, "BTC", "1", "1", domain.BuilderSideBid)})
	assert.Equal(t, 0, got.Len())
	assert.Equal(t, float64(0), got.Rate(0))
}
