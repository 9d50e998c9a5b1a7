package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lxalgo/riskcore/config"
	"github.com/lxalgo/riskcore/engine"
	"github.com/lxalgo/riskcore/gateway/sim"
	"github.com/lxalgo/riskcore/journal"
	"github.com/lxalgo/riskcore/market"
	"github.com/lxalgo/riskcore/metrics"
	"github.com/lxalgo/riskcore/notify"
)

func newRunCmd(opts *rootOptions) *cobra.Command {
	var equity float64

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the risk core against the in-memory exchange",
		Long: `Starts the monitor suite, the journal and the metrics endpoint with the
simulated exchange as the order layer. Wiring a live exchange client in
place of the simulator is an integration concern left to the deployment.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Default()
			if opts.ConfigPath != "" {
				loaded, err := config.LoadFromFile(opts.ConfigPath)
				if err != nil {
					return err
				}
				cfg = loaded
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			log, err := newLogger(opts.LogLevel)
			if err != nil {
				return err
			}
			defer log.Sync()

			return runCore(cmd.Context(), cfg, equity, log)
		},
	}

	cmd.Flags().Float64Var(&equity, "equity", 10000, "Starting equity for the simulated account")
	return cmd
}

func runCore(parent context.Context, cfg *config.Config, equity float64, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	jr, err := journal.NewSQLite(cfg.Journal.DBPath)
	if err != nil {
		return err
	}
	defer jr.Close()

	sink := notify.NewAsync(notify.NewLogger(log), cfg.Notify.Buffer, log)
	defer sink.Close()

	gw := sim.New(equity)
	core := engine.New(cfg, equity, engine.Deps{
		Gateway: gw,
		Equity:  gw,
		Marks:   market.NewBook(cfg.Trading.MarkPriceMaxAge),
		Journal: jr,
		Notify:  sink,
		Logger:  log,
	})
	if err := core.Recover(); err != nil {
		return err
	}

	srv := &http.Server{Addr: cfg.Metrics.ListenAddr, Handler: metricsMux()}
	go func() {
		log.Info("metrics listening", zap.String("addr", cfg.Metrics.ListenAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server failed", zap.Error(err))
		}
	}()

	log.Info("risk core started",
		zap.Int("recovered_trades", core.Ledger().Count()),
		zap.Float64("equity", equity))
	core.Run(ctx)

	shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		return fmt.Errorf("metrics shutdown: %w", err)
	}
	log.Info("risk core stopped")
	return nil
}

func metricsMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}
