package position

import (
	"github.com/shopspring/decimal"

	"github.com/kij-exe/hypr-ledger/internal/domain"
)

// book is the running average-cost state of one asset.
type book struct {
	net decimal.Decimal
	avg decimal.Decimal

	// fill indices of the current lifecycle; empty while no lifecycle was seen
	lifecycle []int
	startMs   int64
	// disqualified is set once a fill of the current lifecycle is not attributed
	disqualified bool
	// active is false once the lifecycle returned to flat
	active bool
	// generation counts lifecycles started by this book
	generation int
}

// apply folds one fill into the book and reports whether it closed the lifecycle.
func (b *book) apply(idx int, f domain.Fill, matches *domain.MatchResult) (closed bool) {
	signed := f.SignedSize()
	flat := domain.IsFlat(b.net)

	switch {
	case flat && !signed.IsZero():
		b.reset(f.TimeMs)
		b.track(idx, matches)
		b.net = signed
		b.avg = f.Price

	case !flat && signed.Sign() == b.net.Sign():
		total := b.net.Add(signed)
		cost := b.net.Abs().Mul(b.avg).Add(signed.Abs().Mul(f.Price))
		b.avg = cost.Div(total.Abs())
		b.net = total
		b.track(idx, matches)

	default:
		if flat {
			// zero-size fill while flat forms a lifecycle of its own
			b.reset(f.TimeMs)
		}
		b.track(idx, matches)

		next := b.net.Add(signed)
		switch {
		case domain.IsFlat(next):
			b.net = decimal.Zero
			b.avg = decimal.Zero
			closed = true
		case next.Sign() != b.net.Sign():
			b.net = next
			b.avg = f.Price
		default:
			b.net = next
		}
	}

	return closed
}

func (b *book) reset(startMs int64) {
	b.lifecycle = b.lifecycle[:0:0]
	b.startMs = startMs
	b.disqualified = false
	b.active = true
	b.generation++
}

func (b *book) track(idx int, matches *domain.MatchResult) {
	b.lifecycle = append(b.lifecycle, idx)
	if matches != nil && !matches.Contains(idx) {
		b.disqualified = true
	}
}

// verdict is the taint of the current lifecycle as of the last applied fill.
func (b *book) verdict(matches *domain.MatchResult) domain.Taint {
	switch {
	case matches == nil:
		return domain.TaintUnknown
	case b.disqualified:
		return domain.TaintTainted
	default:
		return domain.TaintClean
	}
}
