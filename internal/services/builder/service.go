package builder

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kij-exe/hypr-ledger/internal/domain"
)

const (
	// maxRangeDays bounds how many report days one lookup may touch.
	maxRangeDays = 400
	// dayFetchConcurrency bounds parallel day downloads per lookup.
	dayFetchConcurrency = 4
)

// Service resolves builder attribution for one target builder.
type Service struct {
	builder string
	days    *DayCache
	matcher *Matcher
	l       *zap.Logger
}

// NewService creates a Service for the builder address.
func NewService(builder string, days *DayCache, matcher *Matcher, l *zap.Logger) *Service {
	if l == nil {
		l = zap.NewNop()
	}
	return &Service{
		builder: strings.ToLower(builder),
		days:    days,
		matcher: matcher,
		l:       l,
	}
}

// Builder returns the lowercased target builder address.
func (s *Service) Builder() string {
	return s.builder
}

// FillsForRange returns the report rows of user with fromMs <= time <= toMs,
// ordered by day and then by report order. Every UTC day touched by the
// window is consulted; unpublished days contribute nothing.
func (s *Service) FillsForRange(ctx context.Context, user string, fromMs, toMs int64) ([]domain.BuilderFill, error) {
	if toMs < fromMs {
		return nil, errors.Wrapf(domain.ErrInvalidTimeRange, "from %d is after to %d", fromMs, toMs)
	}

	if span := daySpan(fromMs, toMs); span > maxRangeDays {
		return nil, errors.Wrapf(domain.ErrInvalidTimeRange, "window spans %d days, limit is %d", span, maxRangeDays)
	}
	days := daysBetween(fromMs, toMs)

	perDay := make([][]domain.BuilderFill, len(days))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(dayFetchConcurrency)
	for i, day := range days {
		g.Go(func() error {
			rows, err := s.days.Day(gctx, s.builder, day)
			if err != nil {
				return err
			}
			perDay[i] = rows
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	user = strings.ToLower(user)
	var out []domain.BuilderFill
	for _, rows := range perDay {
		for _, row := range rows {
			if row.User == user && row.TimeMs >= fromMs && row.TimeMs <= toMs {
				out = append(out, row)
			}
		}
	}

	s.l.Info("builder fills loaded for range",
		zap.String("user", user),
		zap.Int("days", len(days)),
		zap.Int("rows", len(out)),
	)

	return out, nil
}

// MatchRange loads the report rows for the window and attributes fills.
func (s *Service) MatchRange(ctx context.Context, user string, fills []domain.Fill, fromMs, toMs int64) (*domain.MatchResult, error) {
	rows, err := s.FillsForRange(ctx, user, fromMs, toMs)
	if err != nil {
		return nil, errors.Wrap(err, "load builder fills")
	}
	return s.matcher.Match(fills, rows), nil
}

// daySpan counts the UTC days from fromMs to toMs inclusive. Spans beyond
// the range of time.Duration saturate, which is still far above any limit.
func daySpan(fromMs, toMs int64) int64 {
	start := truncateDay(time.UnixMilli(fromMs))
	end := truncateDay(time.UnixMilli(toMs))
	return int64(end.Sub(start)/(24*time.Hour)) + 1
}

// daysBetween returns the UTC midnights of every day from fromMs to toMs inclusive.
func daysBetween(fromMs, toMs int64) []time.Time {
	start := truncateDay(time.UnixMilli(fromMs))
	end := truncateDay(time.UnixMilli(toMs))

	var days []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
