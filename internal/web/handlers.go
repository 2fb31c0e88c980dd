package web

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/kij-exe/hypr-ledger/internal/domain"
	"github.com/kij-exe/hypr-ledger/internal/services/ledger"
)

// errBadRequest marks query parameters that failed to parse.
var errBadRequest = errors.New("bad request")

func parseAddress(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errors.Wrap(domain.ErrInvalidAddress, "user is required")
	}
	if !strings.HasPrefix(raw, "0x") || !common.IsHexAddress(raw) {
		return "", errors.Wrapf(domain.ErrInvalidAddress, "%q", raw)
	}
	return strings.ToLower(raw), nil
}

func parseOptionalMs(r *http.Request, name string) (*int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, errors.Wrapf(errBadRequest, "%s must be an integer", name)
	}
	return &v, nil
}

func parseQuery(r *http.Request, requireUser bool) (ledger.Query, error) {
	var (
		q   ledger.Query
		err error
	)
	values := r.URL.Query()

	if requireUser {
		if q.User, err = parseAddress(values.Get("user")); err != nil {
			return ledger.Query{}, err
		}
	}
	q.Coin = strings.TrimSpace(values.Get("coin"))

	if q.FromMs, err = parseOptionalMs(r, "fromMs"); err != nil {
		return ledger.Query{}, err
	}
	if q.ToMs, err = parseOptionalMs(r, "toMs"); err != nil {
		return ledger.Query{}, err
	}
	if q.FromMs != nil && q.ToMs != nil && *q.ToMs < *q.FromMs {
		return ledger.Query{}, errors.Wrap(domain.ErrInvalidTimeRange, "fromMs is after toMs")
	}

	if raw := values.Get("builderOnly"); raw != "" {
		if q.BuilderOnly, err = strconv.ParseBool(raw); err != nil {
			return ledger.Query{}, errors.Wrap(errBadRequest, "builderOnly must be a boolean")
		}
	}

	return q, nil
}

func (s *Server) parseCapital(r *http.Request) (decimal.Decimal, error) {
	raw := r.URL.Query().Get("maxStartCapital")
	if raw == "" {
		return s.opts.MaxStartCapital, nil
	}
	v, err := decimal.NewFromString(raw)
	if err != nil || v.IsNegative() {
		return decimal.Zero, errors.Wrap(errBadRequest, "maxStartCapital must be a non-negative number")
	}
	return v, nil
}

func parseUsers(raw string) ([]string, error) {
	var users []string
	for _, u := range strings.Split(raw, ",") {
		if strings.TrimSpace(u) == "" {
			continue
		}
		addr, err := parseAddress(u)
		if err != nil {
			return nil, err
		}
		users = append(users, addr)
	}
	if len(users) == 0 {
		return nil, errors.Wrap(domain.ErrInvalidAddress, "users is required")
	}
	return users, nil
}

func (s *Server) handleTrades(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r, true)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	trades, err := s.ledger.Trades(r.Context(), q)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, newTradeResponses(trades))
}

func (s *Server) handlePositionHistory(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r, true)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	history, err := s.ledger.PositionHistory(r.Context(), q)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, newPositionStateResponses(history))
}

func (s *Server) handleLifecycles(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r, true)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	cycles, err := s.ledger.Lifecycles(r.Context(), q)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, newLifecycleResponses(cycles))
}

func (s *Server) handlePnL(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r, true)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	capital, err := s.parseCapital(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	res, err := s.ledger.PnL(r.Context(), q, capital)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, newPnLResponse(res))
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	users, q, capital, err := s.parseBoardRequest(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	metric := domain.ParseMetric(r.URL.Query().Get("metric"))

	entries, err := s.ledger.Leaderboard(r.Context(), users, q, metric, capital)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, newLeaderboardResponses(entries))
}

func (s *Server) handleCombinedLeaderboard(w http.ResponseWriter, r *http.Request) {
	users, q, capital, err := s.parseBoardRequest(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	entries, err := s.ledger.CombinedLeaderboard(r.Context(), users, q, capital)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, newCombinedLeaderboardResponses(entries))
}

func (s *Server) parseBoardRequest(r *http.Request) ([]string, ledger.Query, decimal.Decimal, error) {
	users, err := parseUsers(r.URL.Query().Get("users"))
	if err != nil {
		return nil, ledger.Query{}, decimal.Zero, err
	}
	q, err := parseQuery(r, false)
	if err != nil {
		return nil, ledger.Query{}, decimal.Zero, err
	}
	capital, err := s.parseCapital(r)
	if err != nil {
		return nil, ledger.Query{}, decimal.Zero, err
	}
	return users, q, capital, nil
}

func (s *Server) handleDeposits(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r, true)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	summary, err := s.ledger.Deposits(r.Context(), q.User, q.FromMs, q.ToMs)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, newDepositsResponse(summary))
}

func (s *Server) handleCurrentPositions(w http.ResponseWriter, r *http.Request) {
	user, err := parseAddress(r.URL.Query().Get("user"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	state, err := s.ledger.CurrentPositions(r.Context(), user)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, newCurrentPositionsResponse(state, time.Now().UnixMilli()))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{"status": "ok"})
}

func respondJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(data)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, domain.ErrInvalidAddress),
		errors.Is(err, domain.ErrInvalidTimeRange):
		return http.StatusBadRequest
	default:
		return http.StatusBadGateway
	}
}

func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.l.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.String("request_id", requestIDFrom(r.Context())),
			zap.Error(err),
		)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorResponse{
		Error:     http.StatusText(status),
		Message:   err.Error(),
		RequestID: requestIDFrom(r.Context()),
	})
}
