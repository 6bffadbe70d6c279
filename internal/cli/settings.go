package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"costledger/internal/services"
)

// NewSettingCommand creates the setting command group.
func NewSettingCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "setting",
		Short: "Read or write a stored setting",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get <key>",
		Short: "Print a setting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			return rootOpts.withLedger(cmd.Context(), func(svc *services.CostService) error {
				value, found, err := svc.GetSetting(cmd.Context(), key)
				if err != nil {
					return err
				}
				if !found {
					return NewExitError(ExitFailure, fmt.Sprintf("setting %q not found", key))
				}
				return rootOpts.formatter(cmd).Success(map[string]any{"key": key, "value": value}, func(w io.Writer) error {
					_, err := fmt.Fprintln(w, value)
					return err
				})
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Store a setting",
		Long: `Store a setting. Values that parse as JSON (numbers, true, false, quoted
strings) are stored as such; anything else is stored as a plain string.
Setting ratesUrl here does not validate it; use "rates-url set" for that.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, value := args[0], parseSettingArg(args[1])
			return rootOpts.withLedger(cmd.Context(), func(svc *services.CostService) error {
				if err := svc.SetSetting(cmd.Context(), key, value); err != nil {
					return err
				}
				return rootOpts.formatter(cmd).Success(map[string]any{"key": key, "value": value}, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "Saved %s\n", key)
					return err
				})
			})
		},
	})

	return cmd
}

// parseSettingArg reads a JSON scalar, falling back to the raw string.
func parseSettingArg(raw string) any {
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil || dec.More() {
		return raw
	}
	switch v.(type) {
	case map[string]any, []any, nil:
		return raw
	}
	return v
}

// NewRatesURLCommand creates the rates-url command group.
func NewRatesURLCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rates-url",
		Short: "Show or change where conversion rates are fetched from",
	}

	printURL := func(cmd *cobra.Command, svc *services.CostService) error {
		url := svc.RatesURL()
		return rootOpts.formatter(cmd).Success(map[string]string{"url": url}, func(w io.Writer) error {
			_, err := fmt.Fprintln(w, url)
			return err
		})
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get",
		Short: "Print the active rates URL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withLedger(cmd.Context(), func(svc *services.CostService) error {
				return printURL(cmd, svc)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set <url>",
		Short: "Validate and save a new rates URL",
		Long: `Fetch <url> and save it only if it serves every required currency.
On failure the current URL stays in place.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withLedger(cmd.Context(), func(svc *services.CostService) error {
				if err := svc.UpdateRatesURL(cmd.Context(), args[0]); err != nil {
					return err
				}
				return printURL(cmd, svc)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "reset",
		Short: "Go back to the built-in rates URL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withLedger(cmd.Context(), func(svc *services.CostService) error {
				if err := svc.ResetRatesURL(cmd.Context()); err != nil {
					return err
				}
				return printURL(cmd, svc)
			})
		},
	})

	return cmd
}
