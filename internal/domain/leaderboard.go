package domain

import (
	"github.com/shopspring/decimal"
)

// Metric is a leaderboard ranking metric.
type Metric string

const (
	MetricVolume    Metric = "volume"
	MetricPnL       Metric = "pnl"
	MetricReturnPct Metric = "returnPct"
)

// ParseMetric returns the metric named by s, falling back to MetricPnL.
func ParseMetric(s string) Metric {
	switch Metric(s) {
	case MetricVolume, MetricReturnPct:
		return Metric(s)
	}
	return MetricPnL
}

// Value extracts the metric from a pnl result. ok is false when the
// result carries no value for it.
func (m Metric) Value(r PnLResult) (v decimal.Decimal, ok bool) {
	switch m {
	case MetricVolume:
		return r.Volume, true
	case MetricReturnPct:
		if !r.ReturnPct.Valid {
			return decimal.Zero, false
		}
		return r.ReturnPct.Decimal, true
	default:
		return r.RealizedPnl, true
	}
}

// LeaderboardEntry is one ranked account.
type LeaderboardEntry struct {
	Rank        int
	User        string
	MetricValue decimal.Decimal
	TradeCount  int
	Taint       Taint
}

// CombinedLeaderboardEntry carries every metric for one account, unranked.
type CombinedLeaderboardEntry struct {
	User       string
	Volume     decimal.Decimal
	PnL        decimal.Decimal
	ReturnPct  decimal.Decimal
	TradeCount int
	Taint      Taint
}
