package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/kij-exe/hypr-ledger/config"
	"github.com/kij-exe/hypr-ledger/internal"
	"github.com/kij-exe/hypr-ledger/internal/clients"
	"github.com/kij-exe/hypr-ledger/internal/services/ledger"
)

func newLogger(level zapcore.Level) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}

// setup loads configuration and wires the application.
func setup() (*internal.LedgerApp, *zap.Logger, error) {
	conf, err := config.Get(configPath, envPath)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to get configuration")
	}

	logger, err := newLogger(conf.LogLevel)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to build logger")
	}

	app, err := internal.NewLedgerApp(conf, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, nil, err
	}
	return app, logger, nil
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the REST API",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, logger, err := setup()
			if err != nil {
				return err
			}
			defer logger.Sync()
			defer app.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return app.Serve(ctx)
		},
	}
}

type windowFlags struct {
	user string
	from int64
	to   int64
}

func (w *windowFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&w.user, "user", "", "account address")
	cmd.Flags().Int64Var(&w.from, "from", 0, "window start in unix milliseconds")
	cmd.Flags().Int64Var(&w.to, "to", 0, "window end in unix milliseconds")
	_ = cmd.MarkFlagRequired("user")
}

// bounds returns the window, leaving unset flags nil.
func (w *windowFlags) bounds(cmd *cobra.Command) (from, to *int64) {
	if cmd.Flags().Changed("from") {
		from = &w.from
	}
	if cmd.Flags().Changed("to") {
		to = &w.to
	}
	return from, to
}

func newHistoryCmd() *cobra.Command {
	var (
		window      windowFlags
		coin        string
		builderOnly bool
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print position history as JSON lines",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, logger, err := setup()
			if err != nil {
				return err
			}
			defer logger.Sync()
			defer app.Close()

			from, to := window.bounds(cmd)
			history, err := app.Ledger.PositionHistory(cmd.Context(), ledger.Query{
				User:        window.user,
				Coin:        coin,
				FromMs:      from,
				ToMs:        to,
				BuilderOnly: builderOnly,
			})
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			for _, s := range history {
				if err := enc.Encode(s); err != nil {
					return err
				}
			}
			return nil
		},
	}
	window.register(cmd)
	cmd.Flags().StringVar(&coin, "coin", "", "asset to reconstruct (all assets when empty)")
	cmd.Flags().BoolVar(&builderOnly, "builder-only", false, "attribute fills to the target builder")
	return cmd
}

func newMatchCmd() *cobra.Command {
	var window windowFlags
	cmd := &cobra.Command{
		Use:   "match",
		Short: "Attribute fills of a window to the target builder",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("from") || !cmd.Flags().Changed("to") {
				return errors.New("--from and --to are required")
			}

			app, logger, err := setup()
			if err != nil {
				return err
			}
			defer logger.Sync()
			defer app.Close()

			if app.Builder == nil {
				return errors.New("target_builder is not configured")
			}

			fills, err := app.Info.UserFills(cmd.Context(), clients.FillQuery{
				User:   window.user,
				FromMs: &window.from,
				ToMs:   &window.to,
			})
			if err != nil {
				return err
			}
			matches, err := app.Builder.MatchRange(cmd.Context(), window.user, fills, window.from, window.to)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "builder: %s\n", app.Builder.Builder())
			fmt.Fprintf(out, "matched: %d/%d (%.2f%%)\n", matches.Len(), len(fills), matches.Rate(len(fills)))
			for _, i := range matches.Indices() {
				f := fills[i]
				fmt.Fprintf(out, "%d\t%s\n", i, f.String())
			}
			return nil
		},
	}
	window.register(cmd)
	return cmd
}
