// Package ledger combines the exchange feeds, builder attribution and the
// position engine into per-account ledger views.
package ledger

import (
	"context"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kij-exe/hypr-ledger/internal/clients"
	"github.com/kij-exe/hypr-ledger/internal/domain"
	"github.com/kij-exe/hypr-ledger/internal/metrics"
	"github.com/kij-exe/hypr-ledger/internal/services/position"
)

const (
	leaderboardConcurrency = 4
	depositType            = "deposit"
)

// FillSource returns the exchange fills of an account.
type FillSource interface {
	UserFills(ctx context.Context, q clients.FillQuery) ([]domain.Fill, error)
}

// LedgerSource returns non-funding ledger updates of an account.
type LedgerSource interface {
	LedgerUpdates(ctx context.Context, user string, fromMs, toMs *int64) ([]clients.LedgerUpdate, error)
}

// AccountSource returns the clearinghouse state of an account.
type AccountSource interface {
	AccountState(ctx context.Context, user string) (domain.AccountState, error)
}

// Attributor matches exchange fills against the target builder's reports.
type Attributor interface {
	Builder() string
	MatchRange(ctx context.Context, user string, fills []domain.Fill, fromMs, toMs int64) (*domain.MatchResult, error)
}

// Query selects the fills a ledger view is computed from.
type Query struct {
	User string
	// Coin restricts the view to one asset; empty means every asset.
	Coin   string
	FromMs *int64
	ToMs   *int64
	// BuilderOnly requests builder attribution and taint verdicts.
	BuilderOnly bool
}

func (q Query) asset() string {
	if q.Coin == "" {
		return domain.AllAssets
	}
	return q.Coin
}

// Service answers ledger queries for arbitrary accounts.
type Service struct {
	fills    FillSource
	ledger   LedgerSource
	accounts AccountSource
	// builder is nil when no target builder is configured.
	builder Attributor
	l       *zap.Logger
}

// NewService wires the ledger views. builder may be nil.
func NewService(fills FillSource, ledger LedgerSource, accounts AccountSource, builder Attributor, l *zap.Logger) *Service {
	if l == nil {
		l = zap.NewNop()
	}
	return &Service{
		fills:    fills,
		ledger:   ledger,
		accounts: accounts,
		builder:  builder,
		l:        l,
	}
}

// attributed is a fill list plus the builder matches, when a match run happened.
type attributed struct {
	fills   []domain.Fill
	matches *domain.MatchResult
}

func (s *Service) load(ctx context.Context, q Query) (attributed, error) {
	if q.User == "" {
		return attributed{}, errors.Wrap(domain.ErrInvalidAddress, "user is required")
	}
	if q.FromMs != nil && q.ToMs != nil && *q.ToMs < *q.FromMs {
		return attributed{}, errors.Wrapf(domain.ErrInvalidTimeRange, "from %d is after to %d", *q.FromMs, *q.ToMs)
	}

	fills, err := s.fills.UserFills(ctx, clients.FillQuery{
		User:   q.User,
		Coin:   q.Coin,
		FromMs: q.FromMs,
		ToMs:   q.ToMs,
	})
	if err != nil {
		return attributed{}, errors.Wrap(err, "fetch fills")
	}

	out := attributed{fills: fills}
	if !q.BuilderOnly {
		return out, nil
	}
	if s.builder == nil || q.FromMs == nil || q.ToMs == nil {
		s.l.Debug("builder attribution skipped",
			zap.String("user", q.User),
			zap.Bool("builder_configured", s.builder != nil),
		)
		return out, nil
	}

	matches, err := s.builder.MatchRange(ctx, q.User, fills, *q.FromMs, *q.ToMs)
	if err != nil {
		return attributed{}, errors.Wrap(err, "attribute fills")
	}
	out.matches = matches
	return out, nil
}

// PositionHistory reconstructs one snapshot per fill.
func (s *Service) PositionHistory(ctx context.Context, q Query) ([]domain.PositionState, error) {
	a, err := s.load(ctx, q)
	if err != nil {
		return nil, err
	}
	return s.reconstruct(a, q), nil
}

func (s *Service) reconstruct(a attributed, q Query) []domain.PositionState {
	history := position.Reconstruct(a.fills, q.asset(), a.matches)

	mode := "single"
	if q.asset() == domain.AllAssets {
		mode = "all"
	}
	metrics.PositionSnapshots.WithLabelValues(mode).Add(float64(len(history)))

	return history
}

// Lifecycles returns the open-to-flat periods of the selected fills.
func (s *Service) Lifecycles(ctx context.Context, q Query) ([]domain.Lifecycle, error) {
	a, err := s.load(ctx, q)
	if err != nil {
		return nil, err
	}
	return position.Lifecycles(a.fills, q.asset()), nil
}

// Trades returns the selected fills as trades. After a match run every trade
// carries its attribution.
func (s *Service) Trades(ctx context.Context, q Query) ([]domain.Trade, error) {
	a, err := s.load(ctx, q)
	if err != nil {
		return nil, err
	}
	return s.trades(a), nil
}

func (s *Service) trades(a attributed) []domain.Trade {
	trades := make([]domain.Trade, len(a.fills))
	for i, f := range a.fills {
		trades[i] = domain.NewTrade(f)
		if a.matches == nil {
			continue
		}
		if a.matches.Contains(i) {
			trades[i].Builder = s.builder.Builder()
		} else {
			trades[i].Tainted = true
		}
	}
	return trades
}

// PnL aggregates realized results over the selected fills. maxStartCapital
// caps the capital base of the return; zero leaves it uncapped.
func (s *Service) PnL(ctx context.Context, q Query, maxStartCapital decimal.Decimal) (domain.PnLResult, error) {
	a, err := s.load(ctx, q)
	if err != nil {
		return domain.PnLResult{}, err
	}

	agg := domain.AggregateTrades(s.trades(a))
	res := domain.PnLResult{
		User:        strings.ToLower(q.User),
		Coin:        q.Coin,
		FromMs:      q.FromMs,
		ToMs:        q.ToMs,
		RealizedPnl: agg.RealizedPnl,
		FeesPaid:    agg.FeesPaid,
		TradeCount:  agg.TradeCount,
		Volume:      agg.Volume,
	}

	if a.matches != nil {
		if history := s.reconstruct(a, q); len(history) > 0 {
			res.Taint = history[len(history)-1].Taint
		}
	}

	state, err := s.accounts.AccountState(ctx, q.User)
	if err != nil {
		s.l.Warn("account state unavailable, return left empty", zap.String("user", q.User), zap.Error(err))
		return res, nil
	}
	res.ReturnPct = domain.ReturnPct(res.RealizedPnl, state.AccountValue, maxStartCapital)

	return res, nil
}

func (s *Service) pnlForUsers(ctx context.Context, users []string, q Query, maxStartCapital decimal.Decimal) ([]domain.PnLResult, error) {
	results := make([]domain.PnLResult, len(users))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(leaderboardConcurrency)
	for i, user := range users {
		g.Go(func() error {
			uq := q
			uq.User = user
			res, err := s.PnL(gctx, uq, maxStartCapital)
			if err != nil {
				return errors.Wrapf(err, "pnl for %s", user)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Leaderboard ranks users by metric, highest first. Users without a value
// for the metric are left out.
func (s *Service) Leaderboard(ctx context.Context, users []string, q Query, metric domain.Metric, maxStartCapital decimal.Decimal) ([]domain.LeaderboardEntry, error) {
	results, err := s.pnlForUsers(ctx, users, q, maxStartCapital)
	if err != nil {
		return nil, err
	}

	entries := make([]domain.LeaderboardEntry, 0, len(results))
	for _, r := range results {
		v, ok := metric.Value(r)
		if !ok {
			continue
		}
		entries = append(entries, domain.LeaderboardEntry{
			User:        r.User,
			MetricValue: v,
			TradeCount:  r.TradeCount,
			Taint:       r.Taint,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].MetricValue.GreaterThan(entries[j].MetricValue)
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}

	return entries, nil
}

// CombinedLeaderboard returns every metric per user in input order.
func (s *Service) CombinedLeaderboard(ctx context.Context, users []string, q Query, maxStartCapital decimal.Decimal) ([]domain.CombinedLeaderboardEntry, error) {
	results, err := s.pnlForUsers(ctx, users, q, maxStartCapital)
	if err != nil {
		return nil, err
	}

	entries := make([]domain.CombinedLeaderboardEntry, len(results))
	for i, r := range results {
		entries[i] = domain.CombinedLeaderboardEntry{
			User:       r.User,
			Volume:     r.Volume,
			PnL:        r.RealizedPnl,
			ReturnPct:  r.ReturnPct.Decimal,
			TradeCount: r.TradeCount,
			Taint:      r.Taint,
		}
	}
	return entries, nil
}

// Deposits lists positive USDC deposits of user, newest first.
func (s *Service) Deposits(ctx context.Context, user string, fromMs, toMs *int64) (domain.DepositSummary, error) {
	if user == "" {
		return domain.DepositSummary{}, errors.Wrap(domain.ErrInvalidAddress, "user is required")
	}

	updates, err := s.ledger.LedgerUpdates(ctx, user, fromMs, toMs)
	if err != nil {
		return domain.DepositSummary{}, errors.Wrap(err, "fetch ledger updates")
	}

	summary := domain.DepositSummary{Deposits: []domain.Deposit{}}
	for _, u := range updates {
		if u.Delta.Type != depositType {
			continue
		}
		amount, err := u.Delta.Amount()
		if err != nil {
			s.l.Warn("skipping ledger update with bad amount", zap.String("hash", u.Hash), zap.Error(err))
			continue
		}
		if !amount.IsPositive() {
			continue
		}
		summary.Deposits = append(summary.Deposits, domain.Deposit{
			TimeMs: u.Time,
			Amount: amount,
			Hash:   u.Hash,
			TxType: u.Delta.Type,
		})
		summary.Total = summary.Total.Add(amount)
	}

	sort.SliceStable(summary.Deposits, func(i, j int) bool {
		return summary.Deposits[i].TimeMs > summary.Deposits[j].TimeMs
	})
	summary.Count = len(summary.Deposits)

	return summary, nil
}

// CurrentPositions returns the open positions and balances of user.
func (s *Service) CurrentPositions(ctx context.Context, user string) (domain.AccountState, error) {
	if user == "" {
		return domain.AccountState{}, errors.Wrap(domain.ErrInvalidAddress, "user is required")
	}
	state, err := s.accounts.AccountState(ctx, user)
	if err != nil {
		return domain.AccountState{}, errors.Wrap(err, "fetch account state")
	}
	if state.Positions == nil {
		state.Positions = []domain.OpenPosition{}
	}
	return state, nil
}
