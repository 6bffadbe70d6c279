package http

import (
	"net/http"
	"strings"

	"costledger/internal/core"
	applog "costledger/internal/log"
)

// groupedReport is the ?group=category view of a monthly report.
type groupedReport struct {
	Year       int                   `json:"year"`
	Month      int                   `json:"month"`
	Total      core.Total            `json:"total"`
	ByCategory []core.CategoryAmount `json:"byCategory"`
}

func (s *Server) handleMonthlyReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	params, err := ParseMonthParams(query, s.now())
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	group := strings.ToLower(strings.TrimSpace(query.Get("group")))
	if group != "" && group != "category" {
		BadRequestError(`group must be "category"`).Write(w)
		return
	}
	cur := s.currency(r)

	report, err := s.ledger.GetReport(ctx, params.Year, params.Month, cur)
	if err != nil {
		s.logReportError(r, applog.OpReport, params.Year, params.Month, err)
		ErrorResponse(err).Write(w)
		return
	}

	if group == "category" {
		OK(groupedReport{
			Year:       report.Year,
			Month:      report.Month,
			Total:      report.Total,
			ByCategory: report.ByCategory(),
		}).Write(w)
		return
	}
	OK(report).Write(w)
}

func (s *Server) handleYearlyReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	year, err := ParseYearParam(r.URL.Query(), s.now())
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	report, err := s.ledger.GetYearlyReport(ctx, year, s.currency(r))
	if err != nil {
		s.logReportError(r, applog.OpYearly, year, 0, err)
		ErrorResponse(err).Write(w)
		return
	}
	OK(report).Write(w)
}

// currency returns the requested report currency, falling back to the
// ledger's default.
func (s *Server) currency(r *http.Request) string {
	if cur := ParseCurrencyParam(r.URL.Query()); cur != "" {
		return cur
	}
	return s.ledger.DefaultCurrency(r.Context())
}

func (s *Server) logReportError(r *http.Request, op string, year, month int, err error) {
	ctx := r.Context()
	fields := applog.NewFields().WithOperation(op).WithPeriod(year, month).WithError(err)
	if core.IsValidation(err) {
		applog.FromContext(ctx).DebugContext(ctx, "Rejected report request", fields.ToSlice()...)
		return
	}
	applog.FromContext(ctx).ErrorContext(ctx, "Failed to build report", fields.ToSlice()...)
}
