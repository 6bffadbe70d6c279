package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"costledger/internal/core"
	"costledger/internal/services"
)

// NewReportCommand creates the monthly report command.
func NewReportCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		year       int
		month      int
		currency   string
		byCategory bool
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Show one month's costs converted to a currency",
		Long: `Show one month's costs converted to a currency. Year and month default to
the current month; currency defaults to the "currency" setting.`,
		Example: `  costledger report --year 2025 --month 3 --currency ILS
  costledger report --by-category`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			now := rootOpts.Now()
			if !cmd.Flags().Changed("year") {
				year = now.Year()
			}
			if !cmd.Flags().Changed("month") {
				month = int(now.Month())
			}

			return rootOpts.withLedger(cmd.Context(), func(svc *services.CostService) error {
				cur := reportCurrency(cmd, svc, currency)
				report, err := svc.GetReport(cmd.Context(), year, month, cur)
				if err != nil {
					return err
				}

				out := rootOpts.formatter(cmd)
				if byCategory {
					grouped := report.ByCategory()
					return out.Success(map[string]any{
						"year":       report.Year,
						"month":      report.Month,
						"total":      report.Total,
						"byCategory": grouped,
					}, func(w io.Writer) error {
						return printByCategory(w, report, grouped)
					})
				}
				return out.Success(report, func(w io.Writer) error {
					return printMonthly(w, report)
				})
			})
		},
	}

	cmd.Flags().IntVar(&year, "year", 0, "report year (default current year)")
	cmd.Flags().IntVar(&month, "month", 0, "report month 1-12 (default current month)")
	cmd.Flags().StringVar(&currency, "currency", "", "report currency (default the currency setting)")
	cmd.Flags().BoolVar(&byCategory, "by-category", false, "group converted amounts by category")

	return cmd
}

// NewYearlyCommand creates the yearly report command.
func NewYearlyCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		year     int
		currency string
	)

	cmd := &cobra.Command{
		Use:   "yearly",
		Short: "Show monthly totals for a year",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("year") {
				year = rootOpts.Now().Year()
			}

			return rootOpts.withLedger(cmd.Context(), func(svc *services.CostService) error {
				report, err := svc.GetYearlyReport(cmd.Context(), year, reportCurrency(cmd, svc, currency))
				if err != nil {
					return err
				}
				return rootOpts.formatter(cmd).Success(report, func(w io.Writer) error {
					return printYearly(w, report)
				})
			})
		},
	}

	cmd.Flags().IntVar(&year, "year", 0, "report year (default current year)")
	cmd.Flags().StringVar(&currency, "currency", "", "report currency (default the currency setting)")

	return cmd
}

func reportCurrency(cmd *cobra.Command, svc *services.CostService, flag string) string {
	if cur := strings.TrimSpace(flag); cur != "" {
		return strings.ToUpper(cur)
	}
	return svc.DefaultCurrency(cmd.Context())
}

func printMonthly(w io.Writer, r core.MonthlyReport) error {
	fmt.Fprintf(w, "%s %d (%s)\n", time.Month(r.Month), r.Year, r.Total.Currency)
	if len(r.Costs) == 0 {
		_, err := fmt.Fprintln(w, "No costs recorded")
		return err
	}

	rows := make([][]string, 0, len(r.Costs)+1)
	for _, c := range r.Costs {
		rows = append(rows, []string{
			strconv.Itoa(c.Day),
			c.Category,
			c.Sum.StringFixed(2) + " " + c.Currency,
			c.Converted.StringFixed(2),
			c.Description,
		})
	}
	rows = append(rows, []string{"", "TOTAL", "", r.Total.Total.StringFixed(2), ""})
	return Table(w, []string{"DAY", "CATEGORY", "SUM", r.Total.Currency, "DESCRIPTION"}, rows)
}

func printByCategory(w io.Writer, r core.MonthlyReport, grouped []core.CategoryAmount) error {
	fmt.Fprintf(w, "%s %d (%s)\n", time.Month(r.Month), r.Year, r.Total.Currency)
	rows := make([][]string, 0, len(grouped)+1)
	for _, g := range grouped {
		rows = append(rows, []string{g.Name, g.Amount.StringFixed(2)})
	}
	rows = append(rows, []string{"TOTAL", r.Total.Total.StringFixed(2)})
	return Table(w, []string{"CATEGORY", r.Total.Currency}, rows)
}

func printYearly(w io.Writer, y core.YearlyReport) error {
	if y.IsEmpty() {
		_, err := fmt.Fprintf(w, "No costs recorded in %d\n", y.Year)
		return err
	}
	rows := make([][]string, 0, 12)
	for i, total := range y.MonthlyTotals {
		rows = append(rows, []string{time.Month(i + 1).String(), total.StringFixed(2)})
	}
	return Table(w, []string{"MONTH", y.Currency}, rows)
}
