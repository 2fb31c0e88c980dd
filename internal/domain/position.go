package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// AllAssets is the asset label of snapshots merged across every coin.
const AllAssets = "ALL"

// FlatEpsilon is the absolute net size below which a position is flat.
var FlatEpsilon = decimal.New(1, -10)

// IsFlat reports whether the signed size counts as no exposure.
func IsFlat(size decimal.Decimal) bool {
	return size.Abs().LessThan(FlatEpsilon)
}

// Taint is the builder attribution verdict of a lifecycle.
type Taint int

const (
	// TaintUnknown means no attribution run backs the verdict.
	TaintUnknown Taint = iota
	TaintClean
	TaintTainted
)

// String returns the string representation of the verdict.
func (t Taint) String() string {
	switch t {
	case TaintClean:
		return "clean"
	case TaintTainted:
		return "tainted"
	default:
		return "unknown"
	}
}

// Bool returns the verdict as a nullable boolean.
func (t Taint) Bool() *bool {
	if t == TaintUnknown {
		return nil
	}
	v := t == TaintTainted
	return &v
}

// MarshalJSON encodes the verdict as true, false or null.
func (t Taint) MarshalJSON() ([]byte, error) {
	switch t {
	case TaintClean:
		return []byte("false"), nil
	case TaintTainted:
		return []byte("true"), nil
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON decodes true, false or null.
func (t *Taint) UnmarshalJSON(b []byte) error {
	switch string(b) {
	case "true":
		*t = TaintTainted
	case "false":
		*t = TaintClean
	case "null":
		*t = TaintUnknown
	default:
		return fmt.Errorf("invalid taint value %s", b)
	}
	return nil
}

// PositionState is the position right after one fill was applied.
type PositionState struct {
	TimeMs int64  `json:"time_ms"`
	Asset  string `json:"asset"`
	// NetSize is signed: positive long, negative short.
	NetSize decimal.Decimal `json:"net_size"`
	// AvgEntryPx is zero while flat.
	AvgEntryPx  decimal.Decimal `json:"avg_entry_px"`
	RealizedPnl decimal.Decimal `json:"realized_pnl"`
	Taint       Taint           `json:"tainted"`
}

// IsFlat reports whether the snapshot carries no exposure.
func (p PositionState) IsFlat() bool {
	return IsFlat(p.NetSize)
}

// Lifecycle is one holding period from flat to flat.
type Lifecycle struct {
	Asset   string
	StartMs int64
	EndMs   int64
	// Open is set when the period had not returned to flat by the last fill.
	Open bool
	// Fills are indices into the fill sequence the period was built from.
	Fills []int
}

// OpenPosition is a position currently held on the exchange.
type OpenPosition struct {
	Coin    string
	Size    decimal.Decimal
	EntryPx decimal.Decimal
	// LiquidationPx is invalid when the exchange reports no liquidation price.
	LiquidationPx decimal.NullDecimal
	MarginUsed    decimal.Decimal
	UnrealizedPnl decimal.Decimal
	Leverage      Leverage
}

// Leverage of an open position, e.g. cross 20x.
type Leverage struct {
	Type  string
	Value int
}

// AccountState is the clearinghouse view of an account.
type AccountState struct {
	Positions []OpenPosition
	// AccountValue is the margin account value, the capital base of returns.
	AccountValue    decimal.Decimal
	TotalMarginUsed decimal.Decimal
	Withdrawable    decimal.Decimal
}
