// Package position reconstructs position history from exchange fills using
// the average-cost method and tags every snapshot with the builder
// attribution verdict of its lifecycle.
package position

import (
	"github.com/shopspring/decimal"

	"github.com/kij-exe/hypr-ledger/internal/domain"
)

// Reconstruct returns one snapshot per fill, in input order.
//
// When asset is empty or domain.AllAssets, state is kept per coin and every
// snapshot is merged: net size and entry price are zero, realized pnl is
// summed across coins and the verdict is tainted if any coin's active
// lifecycle holds an unattributed fill. Otherwise all fills are treated as
// one asset labelled with asset.
//
// A nil matches yields TaintUnknown for every snapshot.
func Reconstruct(fills []domain.Fill, asset string, matches *domain.MatchResult) []domain.PositionState {
	if len(fills) == 0 {
		return []domain.PositionState{}
	}
	if asset == "" || asset == domain.AllAssets {
		return reconstructAll(fills, matches)
	}
	return reconstructSingle(fills, asset, matches)
}

func reconstructSingle(fills []domain.Fill, asset string, matches *domain.MatchResult) []domain.PositionState {
	states := make([]domain.PositionState, 0, len(fills))
	var (
		b        book
		realized decimal.Decimal
	)

	for i, f := range fills {
		b.apply(i, f, matches)
		realized = realized.Add(f.ClosedPnl)

		states = append(states, domain.PositionState{
			TimeMs:      f.TimeMs,
			Asset:       asset,
			NetSize:     b.net,
			AvgEntryPx:  b.avg,
			RealizedPnl: realized,
			Taint:       b.verdict(matches),
		})
	}

	return states
}

func reconstructAll(fills []domain.Fill, matches *domain.MatchResult) []domain.PositionState {
	states := make([]domain.PositionState, 0, len(fills))
	books := make(map[string]*book)
	var realized decimal.Decimal

	for i, f := range fills {
		b, ok := books[f.Coin]
		if !ok {
			b = &book{}
			books[f.Coin] = b
		}
		closed := b.apply(i, f, matches)
		realized = realized.Add(f.ClosedPnl)

		states = append(states, domain.PositionState{
			TimeMs:      f.TimeMs,
			Asset:       domain.AllAssets,
			NetSize:     decimal.Zero,
			AvgEntryPx:  decimal.Zero,
			RealizedPnl: realized,
			Taint:       combinedVerdict(books, matches),
		})

		// a lifecycle closing on this fill still counts for the snapshot above
		if closed {
			b.active = false
		}
	}

	return states
}

func combinedVerdict(books map[string]*book, matches *domain.MatchResult) domain.Taint {
	if matches == nil {
		return domain.TaintUnknown
	}
	for _, b := range books {
		if b.active && len(b.lifecycle) > 0 && b.disqualified {
			return domain.TaintTainted
		}
	}
	return domain.TaintClean
}

// Lifecycles splits the fills into holding periods, ordered by start.
// Semantics of asset match Reconstruct; in merged mode each period carries
// its own coin. A period still open after the last fill ends at the last
// fill time.
func Lifecycles(fills []domain.Fill, asset string) []domain.Lifecycle {
	merged := asset == "" || asset == domain.AllAssets
	books := make(map[string]*book)
	var out []domain.Lifecycle
	// index in out of each key's current period and the book generation it belongs to
	open := make(map[string]int)
	gens := make([]int, 0)

	for i, f := range fills {
		key := asset
		if merged {
			key = f.Coin
		}
		b, ok := books[key]
		if !ok {
			b = &book{}
			books[key] = b
		}

		closed := b.apply(i, f, nil)

		pos, tracked := open[key]
		if !tracked || gens[pos] != b.generation {
			out = append(out, domain.Lifecycle{Asset: key, StartMs: b.startMs, Open: true})
			gens = append(gens, b.generation)
			pos = len(out) - 1
			open[key] = pos
		}
		out[pos].Fills = append(out[pos].Fills, i)
		out[pos].EndMs = f.TimeMs

		if closed {
			out[pos].Open = false
			delete(open, key)
		}
	}

	return out
}
