// Package metrics holds the Prometheus collectors of the ledger.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// builder day fetch outcomes
const (
	ResultOK       = "ok"
	ResultNotFound = "not_found"
	ResultError    = "error"
)

var (
	// BuilderDayFetches counts builder report downloads by outcome.
	BuilderDayFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hypr_ledger_builder_day_fetch_total",
		Help: "Builder report day fetches by result",
	}, []string{"result"})

	// BuilderDayCacheHits counts day lookups served without a download.
	BuilderDayCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hypr_ledger_builder_day_cache_hits_total",
		Help: "Builder report day lookups served from cache",
	})

	// BuilderMatchRate tracks the percentage of fills attributed per match run.
	BuilderMatchRate = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "hypr_ledger_builder_match_rate",
		Help:    "Percentage of exchange fills attributed to the builder per run",
		Buckets: []float64{0, 10, 25, 50, 75, 90, 99, 100},
	})

	// PositionSnapshots counts reconstructed snapshots by mode.
	PositionSnapshots = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hypr_ledger_position_snapshots_total",
		Help: "Position snapshots produced by reconstruction mode",
	}, []string{"mode"})

	// HTTPRequests counts API requests by route and status code.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hypr_ledger_http_requests_total",
		Help: "API requests by route and status code",
	}, []string{"route", "code"})
)

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
