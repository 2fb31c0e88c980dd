// Package domain defines core data structures used throughout the ledger.
package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Side is the taker/maker side of an exchange fill.
type Side int

const (
	SideBuy Side = iota
	SideSell
)

// wire values used by the exchange fill feed
const (
	sideWireBuy  = "B"
	sideWireSell = "A"
)

// ParseSide converts the exchange wire value ("B" or "A") into a Side.
func ParseSide(s string) (Side, error) {
	switch s {
	case sideWireBuy:
		return SideBuy, nil
	case sideWireSell:
		return SideSell, nil
	}
	return 0, fmt.Errorf("unknown fill side %q", s)
}

// String returns the human readable side.
func (s Side) String() string {
	if s == SideSell {
		return "Sell"
	}
	return "Buy"
}

// Direction is the position effect label attached to an exchange fill.
type Direction int

const (
	// DirectionOther covers labels outside the four canonical ones (flips, spot, liquidations).
	DirectionOther Direction = iota
	DirectionOpenLong
	DirectionCloseLong
	DirectionOpenShort
	DirectionCloseShort
)

const (
	directionStringOpenLong   = "Open Long"
	directionStringCloseLong  = "Close Long"
	directionStringOpenShort  = "Open Short"
	directionStringCloseShort = "Close Short"
)

// ParseDirection maps a feed label onto a Direction. Unknown labels map to DirectionOther.
func ParseDirection(s string) Direction {
	switch s {
	case directionStringOpenLong:
		return DirectionOpenLong
	case directionStringCloseLong:
		return DirectionCloseLong
	case directionStringOpenShort:
		return DirectionOpenShort
	case directionStringCloseShort:
		return DirectionCloseShort
	}
	return DirectionOther
}

// String returns the feed label of the direction.
func (d Direction) String() string {
	switch d {
	case DirectionOpenLong:
		return directionStringOpenLong
	case DirectionCloseLong:
		return directionStringCloseLong
	case DirectionOpenShort:
		return directionStringOpenShort
	case DirectionCloseShort:
		return directionStringCloseShort
	default:
		return "Other"
	}
}

// ExpectedBuilderSide returns the builder report side a fill with this
// direction must carry. ok is false when no expectation can be derived.
func (d Direction) ExpectedBuilderSide() (side BuilderSide, ok bool) {
	switch d {
	case DirectionOpenLong, DirectionCloseShort:
		return BuilderSideBid, true
	case DirectionCloseLong, DirectionOpenShort:
		return BuilderSideAsk, true
	}
	return 0, false
}

// Fill is one executed trade reported by the exchange.
type Fill struct {
	TimeMs    int64
	Coin      string
	Price     decimal.Decimal
	Size      decimal.Decimal
	Side      Side
	Direction Direction
	// ClosedPnl is the realized profit the exchange attributes to this fill alone.
	ClosedPnl decimal.Decimal
	Fee       decimal.Decimal
	Hash      string
}

// SignedSize returns +size for buys and -size for sells.
func (f Fill) SignedSize() decimal.Decimal {
	if f.Side == SideSell {
		return f.Size.Neg()
	}
	return f.Size
}

// Notional returns price times size.
func (f Fill) Notional() decimal.Decimal {
	return f.Price.Mul(f.Size)
}

// String returns a human-readable string representation.
func (f Fill) String() string {
	return fmt.Sprintf("%s %s %s@%s (%s) t=%d", f.Coin, f.Side, f.Size, f.Price, f.Direction, f.TimeMs)
}
