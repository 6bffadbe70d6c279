package cli

import (
	"time"

	"github.com/spf13/cobra"

	"costledger/internal/cache"
	apphttp "costledger/internal/http"
	applog "costledger/internal/log"
)

// cacheSweepInterval is how often expired rate tables are evicted.
const cacheSweepInterval = 5 * time.Minute

// NewServeCommand creates the serve command, the JSON API over the ledger.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		addr         string
		writesPerMin int
	)

	cmd := &cobra.Command{
		Use:         "serve",
		Short:       "Serve the ledger as a JSON API",
		Annotations: map[string]string{annotationLongRunning: "true"},
		Args:        cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := rootOpts.Config
			logger := rootOpts.Logger.WithComponent(applog.ComponentApp)
			if !cmd.Flags().Changed("addr") {
				addr = ":" + cfg.Port
			}

			ctx, stop := ShutdownContext(cmd.Context(), logger)
			defer stop()

			res, err := OpenLedger(ctx, cfg, logger, LedgerOptions{Publish: true, Location: rootOpts.Location})
			if err != nil {
				return WrapExitError(ExitCommandError, "open ledger", err)
			}
			defer func() {
				if err := res.Cleanup(); err != nil {
					logger.Warn("Failed to close ledger", applog.FieldError, err)
				}
			}()

			janitor := cache.NewJanitor()
			janitor.Register(res.Service.Rates().Cache())
			janitor.Start(cacheSweepInterval)
			defer janitor.Stop()

			srv := apphttp.NewServer(addr, res.Service, apphttp.Options{
				Logger:                 logger,
				WriteRequestsPerMinute: writesPerMin,
				Now:                    rootOpts.Now,
			})

			logger.Info("Starting HTTP server",
				"addr", addr,
				"backend", cfg.DataBackend,
				"rates_url", res.Service.RatesURL(),
				"events", cfg.EventsEnabled())

			if err := RunUntilDone(ctx, ShutdownTimeout, srv.ListenAndServe, srv.Shutdown); err != nil {
				return err
			}
			m := srv.RequestMetrics()
			logger.Info("Server stopped", "requests", m.TotalRequests, "server_errors", m.ServerErrors)
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default :$PORT)")
	cmd.Flags().IntVar(&writesPerMin, "write-rate", 60, "write requests per minute per client")

	return cmd
}
