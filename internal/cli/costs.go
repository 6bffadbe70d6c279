package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"costledger/internal/core"
	"costledger/internal/services"
)

// NewAddCommand creates the add command.
func NewAddCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		sum         string
		currency    string
		category    string
		description string
		date        string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a cost",
		Long: `Record a cost. Currency defaults to USD, category to GENERAL and the
date to now. Dates are parsed permissively (2025-03-04, 03/04/2025, ...).`,
		Example: `  costledger add --sum 12.50 --currency ILS --category food --description lunch
  costledger add --sum 40 --date 2025-03-01`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in := core.CostInput{Sum: sum}
			flags := cmd.Flags()
			if flags.Changed("currency") {
				in.Currency = &currency
			}
			if flags.Changed("category") {
				in.Category = &category
			}
			if flags.Changed("description") {
				in.Description = &description
			}
			if flags.Changed("date") {
				in.Date = &date
			}

			return rootOpts.withLedger(cmd.Context(), func(svc *services.CostService) error {
				stored, err := svc.AddCost(cmd.Context(), in)
				if err != nil {
					return err
				}
				return rootOpts.formatter(cmd).Success(stored, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "Added cost #%d: %s %s %s on %s\n",
						stored.ID, stored.Sum.StringFixed(2), stored.Currency, stored.Category,
						stored.DateISO.In(rootOpts.location()).Format("2006-01-02"))
					return err
				})
			})
		},
	}

	cmd.Flags().StringVar(&sum, "sum", "", "amount, positive (required)")
	cmd.Flags().StringVar(&currency, "currency", "", "currency code")
	cmd.Flags().StringVar(&category, "category", "", "category label")
	cmd.Flags().StringVar(&description, "description", "", "free-text description")
	cmd.Flags().StringVar(&date, "date", "", "date of the expense")
	_ = cmd.MarkFlagRequired("sum")

	return cmd
}

// NewCostsCommand creates the costs command, a raw dump of every record.
func NewCostsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "costs",
		Short: "List every stored cost",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withLedger(cmd.Context(), func(svc *services.CostService) error {
				records, err := svc.GetAllRaw(cmd.Context())
				if err != nil {
					return err
				}
				if records == nil {
					records = []core.StoredRecord{}
				}
				return rootOpts.formatter(cmd).Success(records, func(w io.Writer) error {
					if len(records) == 0 {
						_, err := fmt.Fprintln(w, "No costs recorded")
						return err
					}
					rows := make([][]string, 0, len(records))
					for _, r := range records {
						rows = append(rows, []string{
							strconv.FormatInt(r.ID, 10),
							fmt.Sprintf("%04d-%02d-%02d", r.Year, r.Month, r.Day),
							r.Category,
							r.Sum.StringFixed(2),
							r.Currency,
							r.Description,
						})
					}
					return Table(w, []string{"ID", "DATE", "CATEGORY", "SUM", "CURRENCY", "DESCRIPTION"}, rows)
				})
			})
		},
	}
}
