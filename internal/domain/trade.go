package domain

import (
	"github.com/shopspring/decimal"
)

// Trade is a normalized fill as exposed to ledger consumers.
type Trade struct {
	TimeMs    int64
	Coin      string
	Side      Side
	Price     decimal.Decimal
	Size      decimal.Decimal
	Fee       decimal.Decimal
	ClosedPnl decimal.Decimal
	// Builder is set when the fill was attributed to the target builder.
	Builder string
	// Tainted is set in builder-only mode for fills without attribution.
	Tainted bool
}

// NewTrade normalizes an exchange fill.
func NewTrade(f Fill) Trade {
	return Trade{
		TimeMs:    f.TimeMs,
		Coin:      f.Coin,
		Side:      f.Side,
		Price:     f.Price,
		Size:      f.Size,
		Fee:       f.Fee,
		ClosedPnl: f.ClosedPnl,
	}
}

// TradeAggregates are sums over a list of trades.
type TradeAggregates struct {
	RealizedPnl decimal.Decimal
	FeesPaid    decimal.Decimal
	Volume      decimal.Decimal
	TradeCount  int
}

// AggregateTrades sums realized pnl, fees and notional volume.
func AggregateTrades(trades []Trade) TradeAggregates {
	agg := TradeAggregates{TradeCount: len(trades)}
	for _, t := range trades {
		agg.RealizedPnl = agg.RealizedPnl.Add(t.ClosedPnl)
		agg.FeesPaid = agg.FeesPaid.Add(t.Fee)
		agg.Volume = agg.Volume.Add(t.Price.Mul(t.Size))
	}
	return agg
}
