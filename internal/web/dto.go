package web

import (
	"github.com/shopspring/decimal"

	"github.com/kij-exe/hypr-ledger/internal/domain"
)

type tradeResponse struct {
	TimeMs    int64   `json:"timeMs"`
	Coin      string  `json:"coin"`
	Side      string  `json:"side"`
	Px        float64 `json:"px"`
	Sz        float64 `json:"sz"`
	Fee       float64 `json:"fee"`
	ClosedPnl float64 `json:"closedPnl"`
	Builder   *string `json:"builder"`
	Tainted   bool    `json:"tainted"`
}

type positionStateResponse struct {
	TimeMs      int64        `json:"timeMs"`
	Coin        string       `json:"coin"`
	NetSize     float64      `json:"netSize"`
	AvgEntryPx  float64      `json:"avgEntryPx"`
	RealizedPnl float64      `json:"realizedPnl"`
	Tainted     domain.Taint `json:"tainted"`
}

type lifecycleResponse struct {
	Coin      string `json:"coin"`
	StartMs   int64  `json:"startMs"`
	EndMs     int64  `json:"endMs"`
	Open      bool   `json:"open"`
	FillCount int    `json:"fillCount"`
}

type pnlResponse struct {
	User        string       `json:"user"`
	Coin        *string      `json:"coin"`
	FromMs      *int64       `json:"fromMs"`
	ToMs        *int64       `json:"toMs"`
	RealizedPnl float64      `json:"realizedPnl"`
	ReturnPct   *float64     `json:"returnPct"`
	FeesPaid    float64      `json:"feesPaid"`
	TradeCount  int          `json:"tradeCount"`
	Volume      float64      `json:"volume"`
	Tainted     domain.Taint `json:"tainted"`
}

type leaderboardResponse struct {
	Rank        int          `json:"rank"`
	User        string       `json:"user"`
	MetricValue float64      `json:"metricValue"`
	TradeCount  int          `json:"tradeCount"`
	Tainted     domain.Taint `json:"tainted"`
}

type combinedLeaderboardResponse struct {
	User       string       `json:"user"`
	Volume     float64      `json:"volume"`
	PnL        float64      `json:"pnl"`
	ReturnPct  float64      `json:"returnPct"`
	TradeCount int          `json:"tradeCount"`
	Tainted    domain.Taint `json:"tainted"`
}

type depositResponse struct {
	TimeMs int64   `json:"timeMs"`
	Amount float64 `json:"amount"`
	Hash   string  `json:"hash"`
	TxType string  `json:"txType"`
}

type depositsResponse struct {
	TotalDeposits float64           `json:"totalDeposits"`
	DepositCount  int               `json:"depositCount"`
	Deposits      []depositResponse `json:"deposits"`
}

type openPositionResponse struct {
	Coin          string  `json:"coin"`
	Szi           string  `json:"szi"`
	EntryPx       string  `json:"entryPx"`
	LiqPx         *string `json:"liqPx"`
	MarginUsed    string  `json:"marginUsed"`
	UnrealizedPnl string  `json:"unrealizedPnl"`
	Leverage      int     `json:"leverage"`
	LeverageType  string  `json:"leverageType,omitempty"`
}

type marginSummaryResponse struct {
	AccountValue    string `json:"accountValue"`
	TotalMarginUsed string `json:"totalMarginUsed"`
	Withdrawable    string `json:"withdrawable"`
}

type currentPositionsResponse struct {
	Positions     []openPositionResponse `json:"positions"`
	MarginSummary marginSummaryResponse  `json:"marginSummary"`
	Time          int64                  `json:"time"`
}

type errorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

func toFloat(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}

func newTradeResponses(trades []domain.Trade) []tradeResponse {
	out := make([]tradeResponse, len(trades))
	for i, t := range trades {
		out[i] = tradeResponse{
			TimeMs:    t.TimeMs,
			Coin:      t.Coin,
			Side:      t.Side.String(),
			Px:        toFloat(t.Price),
			Sz:        toFloat(t.Size),
			Fee:       toFloat(t.Fee),
			ClosedPnl: toFloat(t.ClosedPnl),
			Tainted:   t.Tainted,
		}
		if t.Builder != "" {
			builder := t.Builder
			out[i].Builder = &builder
		}
	}
	return out
}

func newPositionStateResponses(states []domain.PositionState) []positionStateResponse {
	out := make([]positionStateResponse, len(states))
	for i, s := range states {
		out[i] = positionStateResponse{
			TimeMs:      s.TimeMs,
			Coin:        s.Asset,
			NetSize:     toFloat(s.NetSize),
			AvgEntryPx:  toFloat(s.AvgEntryPx),
			RealizedPnl: toFloat(s.RealizedPnl),
			Tainted:     s.Taint,
		}
	}
	return out
}

func newLifecycleResponses(cycles []domain.Lifecycle) []lifecycleResponse {
	out := make([]lifecycleResponse, len(cycles))
	for i, c := range cycles {
		out[i] = lifecycleResponse{
			Coin:      c.Asset,
			StartMs:   c.StartMs,
			EndMs:     c.EndMs,
			Open:      c.Open,
			FillCount: len(c.Fills),
		}
	}
	return out
}

func newPnLResponse(r domain.PnLResult) pnlResponse {
	resp := pnlResponse{
		User:        r.User,
		FromMs:      r.FromMs,
		ToMs:        r.ToMs,
		RealizedPnl: toFloat(r.RealizedPnl),
		FeesPaid:    toFloat(r.FeesPaid),
		TradeCount:  r.TradeCount,
		Volume:      toFloat(r.Volume),
		Tainted:     r.Taint,
	}
	if r.Coin != "" {
		coin := r.Coin
		resp.Coin = &coin
	}
	if r.ReturnPct.Valid {
		v := toFloat(r.ReturnPct.Decimal)
		resp.ReturnPct = &v
	}
	return resp
}

func newLeaderboardResponses(entries []domain.LeaderboardEntry) []leaderboardResponse {
	out := make([]leaderboardResponse, len(entries))
	for i, e := range entries {
		out[i] = leaderboardResponse{
			Rank:        e.Rank,
			User:        e.User,
			MetricValue: toFloat(e.MetricValue),
			TradeCount:  e.TradeCount,
			Tainted:     e.Taint,
		}
	}
	return out
}

func newCombinedLeaderboardResponses(entries []domain.CombinedLeaderboardEntry) []combinedLeaderboardResponse {
	out := make([]combinedLeaderboardResponse, len(entries))
	for i, e := range entries {
		out[i] = combinedLeaderboardResponse{
			User:       e.User,
			Volume:     toFloat(e.Volume),
			PnL:        toFloat(e.PnL),
			ReturnPct:  toFloat(e.ReturnPct),
			TradeCount: e.TradeCount,
			Tainted:    e.Taint,
		}
	}
	return out
}

func newDepositsResponse(s domain.DepositSummary) depositsResponse {
	resp := depositsResponse{
		TotalDeposits: toFloat(s.Total),
		DepositCount:  s.Count,
		Deposits:      make([]depositResponse, len(s.Deposits)),
	}
	for i, d := range s.Deposits {
		resp.Deposits[i] = depositResponse{
			TimeMs: d.TimeMs,
			Amount: toFloat(d.Amount),
			Hash:   d.Hash,
			TxType: d.TxType,
		}
	}
	return resp
}

func newCurrentPositionsResponse(st domain.AccountState, nowMs int64) currentPositionsResponse {
	resp := currentPositionsResponse{
		Positions: make([]openPositionResponse, len(st.Positions)),
		MarginSummary: marginSummaryResponse{
			AccountValue:    st.AccountValue.String(),
			TotalMarginUsed: st.TotalMarginUsed.String(),
			Withdrawable:    st.Withdrawable.String(),
		},
		Time: nowMs,
	}
	for i, p := range st.Positions {
		resp.Positions[i] = openPositionResponse{
			Coin:          p.Coin,
			Szi:           p.Size.String(),
			EntryPx:       p.EntryPx.String(),
			MarginUsed:    p.MarginUsed.String(),
			UnrealizedPnl: p.UnrealizedPnl.String(),
			Leverage:      p.Leverage.Value,
			LeverageType:  p.Leverage.Type,
		}
		if p.LiquidationPx.Valid {
			liq := p.LiquidationPx.Decimal.String()
			resp.Positions[i].LiqPx = &liq
		}
	}
	return resp
}
