package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/kij-exe/hypr-ledger/internal/domain"
	"github.com/kij-exe/hypr-ledger/pkg/retrier"
)

const (
	// DefaultAPIURL is the Hyperliquid mainnet API.
	DefaultAPIURL = "https://api.hyperliquid.xyz"

	maxFillsPerPage = 2000
	// the info endpoint only serves the most recent fills of an account
	maxRecentFills = 10000
)

// InfoClient queries the public Hyperliquid info endpoint.
type InfoClient struct {
	apiURL     string
	httpClient *http.Client
	retrier    *retrier.Retrier
	l          *zap.Logger
}

// NewInfoClient creates an InfoClient for apiURL.
func NewInfoClient(apiURL string, opts HTTPOptions, l *zap.Logger) *InfoClient {
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	if l == nil {
		l = zap.NewNop()
	}
	opts = opts.withDefaults()
	return &InfoClient{
		apiURL:     strings.TrimRight(apiURL, "/"),
		httpClient: &http.Client{Timeout: opts.Timeout},
		retrier:    newRetrier(opts, l, "hyperliquid_info"),
		l:          l,
	}
}

// FillQuery selects fills of one account.
type FillQuery struct {
	User   string
	Coin   string
	FromMs *int64
	ToMs   *int64
}

type fillsRequest struct {
	Type            string `json:"type"`
	User            string `json:"user"`
	StartTime       int64  `json:"startTime"`
	EndTime         *int64 `json:"endTime,omitempty"`
	AggregateByTime bool   `json:"aggregateByTime"`
}

type rawFill struct {
	Coin          string `json:"coin"`
	Px            string `json:"px"`
	Sz            string `json:"sz"`
	Side          string `json:"side"`
	Time          int64  `json:"time"`
	StartPosition string `json:"startPosition"`
	Dir           string `json:"dir"`
	ClosedPnl     string `json:"closedPnl"`
	Hash          string `json:"hash"`
	Oid           int64  `json:"oid"`
	Crossed       bool   `json:"crossed"`
	Fee           string `json:"fee"`
	Tid           int64  `json:"tid"`
	FeeToken      string `json:"feeToken"`
}

func (r rawFill) toDomain() (domain.Fill, error) {
	side, err := domain.ParseSide(r.Side)
	if err != nil {
		return domain.Fill{}, errors.Wrap(domain.ErrMalformedRecord, err.Error())
	}

	f := domain.Fill{
		TimeMs:    r.Time,
		Coin:      r.Coin,
		Side:      side,
		Direction: domain.ParseDirection(r.Dir),
		Hash:      r.Hash,
	}
	fields := []struct {
		name string
		raw  string
		dst  *decimal.Decimal
	}{
		{"px", r.Px, &f.Price},
		{"sz", r.Sz, &f.Size},
		{"closedPnl", r.ClosedPnl, &f.ClosedPnl},
		{"fee", r.Fee, &f.Fee},
	}
	for _, fld := range fields {
		if fld.raw == "" && fld.name == "fee" {
			continue
		}
		d, err := decimal.NewFromString(fld.raw)
		if err != nil {
			return domain.Fill{}, errors.Wrapf(domain.ErrMalformedRecord, "fill %d field %s=%q", r.Tid, fld.name, fld.raw)
		}
		*fld.dst = d
	}
	if f.Size.IsNegative() {
		return domain.Fill{}, errors.Wrapf(domain.ErrMalformedRecord, "fill %d has negative size", r.Tid)
	}

	return f, nil
}

// fillKey identifies a fill across overlapping pages.
type fillKey struct {
	tid  int64
	hash string
}

// UserFills returns the account's fills ordered by time. Pages are fetched
// until a short page arrives, no progress is made or the recent fill limit
// of the endpoint is reached. Each page after the first restarts at the last
// millisecond of the previous one, so fills sharing that millisecond are not
// lost; the ones already seen are skipped.
func (c *InfoClient) UserFills(ctx context.Context, q FillQuery) ([]domain.Fill, error) {
	var (
		start   int64
		fetched int
		fills   []domain.Fill
		seen    map[fillKey]struct{}
	)
	if q.FromMs != nil {
		start = *q.FromMs
	}

	for {
		req := fillsRequest{
			Type:            "userFillsByTime",
			User:            q.User,
			StartTime:       start,
			EndTime:         q.ToMs,
			AggregateByTime: true,
		}
		var page []rawFill
		if err := c.post(ctx, req, &page); err != nil {
			return nil, errors.Wrap(err, "get user fills")
		}
		if len(page) == 0 {
			break
		}

		last := start
		for _, raw := range page {
			if raw.Time > last {
				last = raw.Time
			}
		}

		boundary := make(map[fillKey]struct{})
		for _, raw := range page {
			key := fillKey{tid: raw.Tid, hash: raw.Hash}
			if raw.Time == last {
				boundary[key] = struct{}{}
			}
			if _, dup := seen[key]; dup {
				continue
			}
			fetched++
			if q.Coin != "" && raw.Coin != q.Coin {
				continue
			}
			f, err := raw.toDomain()
			if err != nil {
				return nil, err
			}
			fills = append(fills, f)
		}

		if len(page) < maxFillsPerPage {
			break
		}
		if last <= start {
			c.l.Warn("fill pagination made no progress", zap.String("user", q.User), zap.Int64("start", start))
			break
		}
		seen = boundary
		start = last

		if fetched >= maxRecentFills {
			c.l.Warn("reached recent fill limit", zap.String("user", q.User), zap.Int("limit", maxRecentFills))
			break
		}
	}

	sort.SliceStable(fills, func(i, j int) bool { return fills[i].TimeMs < fills[j].TimeMs })

	c.l.Debug("fetched user fills", zap.String("user", q.User), zap.Int("fills", len(fills)))

	return fills, nil
}

// LedgerUpdate is one non-funding ledger entry.
type LedgerUpdate struct {
	Time  int64       `json:"time"`
	Hash  string      `json:"hash"`
	Delta LedgerDelta `json:"delta"`
}

// LedgerDelta is the typed payload of a ledger entry.
type LedgerDelta struct {
	Type string          `json:"type"`
	Usdc json.RawMessage `json:"usdc"`
}

// Amount parses the USDC amount, which the API sends as a string or a number.
func (d LedgerDelta) Amount() (decimal.Decimal, error) {
	raw := strings.Trim(string(d.Usdc), `"`)
	if raw == "" || raw == "null" {
		return decimal.Zero, nil
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, errors.Wrapf(domain.ErrMalformedRecord, "ledger usdc %q", raw)
	}
	return v, nil
}

type ledgerRequest struct {
	Type      string `json:"type"`
	User      string `json:"user"`
	StartTime int64  `json:"startTime"`
	EndTime   *int64 `json:"endTime,omitempty"`
}

// LedgerUpdates returns deposits, withdrawals and transfers of the account.
func (c *InfoClient) LedgerUpdates(ctx context.Context, user string, fromMs, toMs *int64) ([]LedgerUpdate, error) {
	req := ledgerRequest{Type: "userNonFundingLedgerUpdates", User: user, EndTime: toMs}
	if fromMs != nil {
		req.StartTime = *fromMs
	}

	var updates []LedgerUpdate
	if err := c.post(ctx, req, &updates); err != nil {
		return nil, errors.Wrap(err, "get ledger updates")
	}
	return updates, nil
}

func (c *InfoClient) post(ctx context.Context, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, "failed to marshal request")
	}

	return c.retrier.Do(ctx, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"/info", bytes.NewReader(body))
		if err != nil {
			return errors.Wrap(err, "failed to create HTTP request")
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return newStatusError(resp)
		}

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(data, out); err != nil {
			return errors.Wrap(err, "failed to unmarshal response")
		}
		return nil
	})
}
