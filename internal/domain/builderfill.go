package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// BuilderSide is the book side recorded in a builder fill report.
type BuilderSide int

const (
	BuilderSideBid BuilderSide = iota
	BuilderSideAsk
)

// ParseBuilderSide accepts "Bid" or "Ask" in any letter case.
func ParseBuilderSide(s string) (BuilderSide, error) {
	switch {
	case strings.EqualFold(s, "bid"):
		return BuilderSideBid, nil
	case strings.EqualFold(s, "ask"):
		return BuilderSideAsk, nil
	}
	return 0, fmt.Errorf("unknown builder side %q", s)
}

// String returns the report label of the side.
func (s BuilderSide) String() string {
	if s == BuilderSideAsk {
		return "Ask"
	}
	return "Bid"
}

// MarshalText implements encoding.TextMarshaler.
func (s BuilderSide) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *BuilderSide) UnmarshalText(b []byte) error {
	v, err := ParseBuilderSide(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// BuilderFill is one row of a builder's daily fill report.
// User is stored lowercased.
type BuilderFill struct {
	TimeMs     int64           `json:"time_ms"`
	User       string          `json:"user"`
	Coin       string          `json:"coin"`
	Side       BuilderSide     `json:"side"`
	Price      decimal.Decimal `json:"px"`
	Size       decimal.Decimal `json:"sz"`
	ClosedPnl  decimal.Decimal `json:"closed_pnl"`
	BuilderFee decimal.Decimal `json:"builder_fee"`
}

// BuilderFillColumns are the columns of a builder report, in publication order.
var BuilderFillColumns = []string{"time", "user", "coin", "side", "px", "sz", "closed_pnl", "builder_fee"}

// NewBuilderFill validates raw report values and builds a BuilderFill.
func NewBuilderFill(ts, user, coin, side, px, sz, closedPnl, builderFee string) (BuilderFill, error) {
	timeMs, err := ParseReportTime(ts)
	if err != nil {
		return BuilderFill{}, err
	}
	s, err := ParseBuilderSide(side)
	if err != nil {
		return BuilderFill{}, err
	}

	var f BuilderFill
	f.TimeMs = timeMs
	f.User = strings.ToLower(strings.TrimSpace(user))
	f.Coin = coin
	f.Side = s

	fields := []struct {
		name string
		raw  string
		dst  *decimal.Decimal
	}{
		{"px", px, &f.Price},
		{"sz", sz, &f.Size},
		{"closed_pnl", closedPnl, &f.ClosedPnl},
		{"builder_fee", builderFee, &f.BuilderFee},
	}
	for _, fld := range fields {
		d, err := decimal.NewFromString(strings.TrimSpace(fld.raw))
		if err != nil {
			return BuilderFill{}, fmt.Errorf("incorrect '%s' value %q: %w", fld.name, fld.raw, err)
		}
		*fld.dst = d
	}

	return f, nil
}

// report timestamps are ISO-8601; a missing zone means UTC
var reportTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
}

// ParseReportTime converts an ISO-8601 timestamp into unix milliseconds.
func ParseReportTime(s string) (int64, error) {
	s = strings.TrimSpace(s)
	for _, layout := range reportTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UnixMilli(), nil
		}
	}
	return 0, fmt.Errorf("incorrect report time %q", s)
}
