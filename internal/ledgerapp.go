package internal

import (
	"context"
	"io"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/kij-exe/hypr-ledger/config"
	"github.com/kij-exe/hypr-ledger/internal/clients"
	"github.com/kij-exe/hypr-ledger/internal/services/builder"
	"github.com/kij-exe/hypr-ledger/internal/services/ledger"
	"github.com/kij-exe/hypr-ledger/internal/storage/builderdays"
	"github.com/kij-exe/hypr-ledger/internal/web"
)

// LedgerApp holds the wired ledger of one process.
type LedgerApp struct {
	Config  config.Config
	Ledger  *ledger.Service
	Builder *builder.Service
	Info    *clients.InfoClient

	closers []io.Closer
	l       *zap.Logger
}

// NewLedgerApp wires clients, builder attribution and the ledger service.
func NewLedgerApp(conf config.Config, l *zap.Logger) (*LedgerApp, error) {
	if l == nil {
		l = zap.NewNop()
	}
	app := &LedgerApp{Config: conf, l: l}

	opts := clients.HTTPOptions{
		Timeout:    conf.RequestTimeout,
		MaxRetries: conf.MaxRetries,
		RetryDelay: conf.RetryDelay,
	}
	app.Info = clients.NewInfoClient(conf.HyperliquidAPIURL, opts, l.Named("info"))

	accounts, err := clients.NewHyperliquidClient("", conf.HyperliquidAPIURL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create hyperliquid client")
	}

	svc, err := app.newBuilderService(opts)
	if err != nil {
		_ = app.Close()
		return nil, err
	}
	app.Builder = svc

	// a nil *builder.Service must not reach the interface
	var attributor ledger.Attributor
	if svc != nil {
		attributor = svc
	}
	app.Ledger = ledger.NewService(app.Info, app.Info, accounts, attributor, l.Named("ledger"))

	return app, nil
}

// newBuilderService returns nil when no target builder is configured.
func (a *LedgerApp) newBuilderService(opts clients.HTTPOptions) (*builder.Service, error) {
	if a.Config.TargetBuilder == "" {
		a.l.Info("no target builder configured, builder attribution disabled")
		return nil, nil
	}

	var store builder.DayStore
	if a.Config.BuilderCacheDir != "" {
		walStore, err := builderdays.NewWALStore(a.Config.BuilderCacheDir, a.l.Named("builderdays"))
		if err != nil {
			return nil, errors.Wrap(err, "failed to open builder day store")
		}
		a.closers = append(a.closers, walStore)
		store = walStore
	}

	fetcher := clients.NewBuilderFillsClient(a.Config.BuilderFillsURL, opts, a.l.Named("builder_fills"))
	days := builder.NewDayCache(fetcher, store, a.l.Named("daycache"))
	matcher := builder.NewMatcher(a.l.Named("matcher"))

	return builder.NewService(a.Config.TargetBuilder, days, matcher, a.l.Named("builder")), nil
}

// Serve runs the REST API until ctx is cancelled.
func (a *LedgerApp) Serve(ctx context.Context) error {
	srv := web.NewServer(a.Config.ListenAddr, a.Ledger, web.Options{
		MaxStartCapital: a.Config.MaxStartCapital,
		CORSOrigins:     a.Config.CORSOrigins,
	}, a.l.Named("api"))

	return srv.Start(ctx)
}

// Close releases persistent stores.
func (a *LedgerApp) Close() error {
	var first error
	for _, c := range a.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	return first
}
