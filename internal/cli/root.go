package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"costledger/internal/config"
	applog "costledger/internal/log"
	"costledger/internal/services"
)

// RootOptions holds global flags and the state PersistentPreRunE prepares
// for every subcommand.
type RootOptions struct {
	Format  string // "json" | "text"
	DBName  string
	DataDir string
	Backend string

	Config *config.Config
	Logger *applog.Logger

	// Now is the clock used for defaults such as the current month.
	Now func() time.Time

	// Location is the calendar used for stored dates; time.Local when nil.
	Location *time.Location
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// annotationLongRunning marks commands that keep the configured log level;
// one-shot commands only log warnings unless LOG_LEVEL is set.
const annotationLongRunning = "long-running"

// NewRootCommand creates the root command for the costledger CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{Now: time.Now})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "costledger",
		Short: "Personal expense ledger with currency conversion",
		Long: `costledger records personal expenses in any currency and reports
monthly and yearly totals converted through a configurable rate table.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.prepare(cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.DBName, "db", "", "database name (overrides DB_NAME)")
	cmd.PersistentFlags().StringVar(&opts.DataDir, "data-dir", "", "directory holding the database (overrides DATA_DIR)")
	cmd.PersistentFlags().StringVar(&opts.Backend, "backend", "", "data backend: sqlite or memory (overrides DATA_BACKEND)")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewAddCommand(opts))
	cmd.AddCommand(NewCostsCommand(opts))
	cmd.AddCommand(NewReportCommand(opts))
	cmd.AddCommand(NewYearlyCommand(opts))
	cmd.AddCommand(NewSettingCommand(opts))
	cmd.AddCommand(NewRatesURLCommand(opts))

	return cmd
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	cmd := NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return GetExitCode(err)
	}
	return ExitSuccess
}

func (o *RootOptions) prepare(cmd *cobra.Command) error {
	if !isValidFormat(o.Format) {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", o.Format, ValidFormats))
	}

	cfg, err := config.Load()
	if err != nil {
		return WrapExitError(ExitCommandError, "load configuration", err)
	}
	flags := cmd.Flags()
	if flags.Changed("db") {
		cfg.DBName = o.DBName
	}
	if flags.Changed("data-dir") {
		cfg.DataDir = o.DataDir
	}
	if flags.Changed("backend") {
		cfg.DataBackend = o.Backend
	}
	if cmd.Annotations[annotationLongRunning] == "" && os.Getenv("LOG_LEVEL") == "" {
		cfg.LogLevel = "warn"
	}
	if err := cfg.Validate(); err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}

	o.Config = cfg
	o.Logger = SetupLogger(cfg, cmd.ErrOrStderr()).WithComponent(applog.ComponentCLI)
	if o.Now == nil {
		o.Now = time.Now
	}
	return nil
}

// withLedger opens the configured backend for the duration of fn.
func (o *RootOptions) withLedger(ctx context.Context, fn func(*services.CostService) error) error {
	res, err := OpenLedger(ctx, o.Config, o.Logger, LedgerOptions{Publish: true, Location: o.Location})
	if err != nil {
		return WrapExitError(ExitCommandError, "open ledger", err)
	}
	defer func() {
		if err := res.Cleanup(); err != nil {
			o.Logger.Warn("Failed to close ledger", applog.FieldError, err)
		}
	}()
	return fn(res.Service)
}

func (o *RootOptions) location() *time.Location {
	if o.Location == nil {
		return time.Local
	}
	return o.Location
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
	}
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
