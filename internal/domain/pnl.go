package domain

import (
	"github.com/shopspring/decimal"
)

const percentageMultiplier = 100

// PnLResult aggregates trading results for one account and window.
type PnLResult struct {
	User        string
	Coin        string
	FromMs      *int64
	ToMs        *int64
	RealizedPnl decimal.Decimal
	// ReturnPct is invalid when no positive capital base is known.
	ReturnPct  decimal.NullDecimal
	FeesPaid   decimal.Decimal
	TradeCount int
	Volume     decimal.Decimal
	Taint      Taint
}

// ReturnPct computes pnl / min(equity, capital cap) * 100.
// A zero cap means uncapped. The result is invalid when equity is not positive.
func ReturnPct(pnl, equity, capitalCap decimal.Decimal) decimal.NullDecimal {
	if !equity.IsPositive() {
		return decimal.NullDecimal{}
	}
	base := equity
	if capitalCap.IsPositive() && capitalCap.LessThan(base) {
		base = capitalCap
	}
	return decimal.NewNullDecimal(pnl.Div(base).Mul(decimal.NewFromInt(percentageMultiplier)))
}
