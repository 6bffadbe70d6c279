package http

import (
	"net/http"

	"costledger/internal/core"
	applog "costledger/internal/log"
)

func (s *Server) handleAddCost(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := applog.FromContext(ctx)

	in, err := DecodeCostInput(w, r)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	stored, err := s.ledger.AddCost(ctx, in)
	if err != nil {
		if core.IsValidation(err) {
			logger.DebugContext(ctx, "Rejected cost", applog.FieldError, err)
		} else {
			logger.ErrorContext(ctx, "Failed to add cost",
				applog.FieldOperation, applog.OpAddCost,
				applog.FieldError, err)
		}
		ErrorResponse(err).Write(w)
		return
	}

	logger.InfoContext(ctx, "Cost added",
		applog.NewFields().
			WithOperation(applog.OpAddCost).
			WithCost(stored.ID, stored.Sum.String(), stored.Currency, stored.Category).
			ToSlice()...)
	Created(stored).Write(w)
}

func (s *Server) handleListCosts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	records, err := s.ledger.GetAllRaw(ctx)
	if err != nil {
		applog.FromContext(ctx).ErrorContext(ctx, "Failed to list costs",
			applog.FieldOperation, applog.OpGetAll,
			applog.FieldError, err)
		ErrorResponse(err).Write(w)
		return
	}
	if records == nil {
		records = []core.StoredRecord{}
	}
	OK(records).Write(w)
}
