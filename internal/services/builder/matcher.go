// Package builder attributes exchange fills to a builder by linking them
// with the builder's daily fill reports.
package builder

import (
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/kij-exe/hypr-ledger/internal/domain"
	"github.com/kij-exe/hypr-ledger/internal/metrics"
)

const maxTimeDiffMs = 1000

// relative price and size tolerance
var relTolerance = decimal.New(1, -4)

// Matcher links exchange fills with builder report rows.
type Matcher struct {
	l *zap.Logger
}

// NewMatcher creates a Matcher.
func NewMatcher(l *zap.Logger) *Matcher {
	if l == nil {
		l = zap.NewNop()
	}
	return &Matcher{l: l}
}

// Match walks fills in order and, for each, consumes the first unconsumed
// report row within tolerance. Rows must already be restricted to the
// account and ordered by time. The result holds the indices of matched fills.
func (m *Matcher) Match(fills []domain.Fill, rows []domain.BuilderFill) *domain.MatchResult {
	result := domain.NewMatchResult()
	consumed := make([]bool, len(rows))

	for i, f := range fills {
		expected, hasSide := f.Direction.ExpectedBuilderSide()
		for j, row := range rows {
			if consumed[j] {
				continue
			}
			if hasSide && row.Side != expected {
				continue
			}
			if !withinTolerance(f, row) {
				continue
			}
			consumed[j] = true
			result.Add(i)
			break
		}
	}

	rate := result.Rate(len(fills))
	metrics.BuilderMatchRate.Observe(rate)
	m.l.Info("builder fills matched",
		zap.Int("matched", result.Len()),
		zap.Int("total", len(fills)),
		zap.Float64("match_rate_pct", rate),
	)

	return result
}

func withinTolerance(f domain.Fill, row domain.BuilderFill) bool {
	dt := f.TimeMs - row.TimeMs
	if dt < 0 {
		dt = -dt
	}
	if dt > maxTimeDiffMs {
		return false
	}
	if f.Coin != row.Coin {
		return false
	}
	return relDiffOK(f.Price, row.Price) && relDiffOK(f.Size, row.Size)
}

// relDiffOK reports |a-b|/a < tolerance; a zero reference always passes.
func relDiffOK(ref, v decimal.Decimal) bool {
	if ref.IsZero() {
		return true
	}
	return ref.Sub(v).Abs().Div(ref.Abs()).LessThan(relTolerance)
}
