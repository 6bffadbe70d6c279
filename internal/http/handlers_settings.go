package http

import (
	"net/http"

	applog "costledger/internal/log"
)

type settingResponse struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

type ratesURLResponse struct {
	URL string `json:"url"`
}

func (s *Server) handleGetSetting(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	key := r.PathValue("key")

	value, found, err := s.ledger.GetSetting(ctx, key)
	if err != nil {
		applog.FromContext(ctx).ErrorContext(ctx, "Failed to read setting",
			applog.FieldOperation, applog.OpGetSetting,
			applog.FieldKey, key,
			applog.FieldError, err)
		ErrorResponse(err).Write(w)
		return
	}
	if !found {
		NotFoundError("setting not found").Write(w)
		return
	}
	OK(settingResponse{Key: key, Value: value}).Write(w)
}

func (s *Server) handleSetSetting(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	key := sanitizeInput(r.PathValue("key"))
	if key == "" {
		BadRequestError("setting key is required").Write(w)
		return
	}

	value, err := DecodeSettingValue(w, r)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	if err := s.ledger.SetSetting(ctx, key, value); err != nil {
		applog.FromContext(ctx).ErrorContext(ctx, "Failed to save setting",
			applog.FieldOperation, applog.OpSetSetting,
			applog.FieldKey, key,
			applog.FieldError, err)
		ErrorResponse(err).Write(w)
		return
	}
	applog.FromContext(ctx).InfoContext(ctx, "Setting saved", applog.FieldKey, key)
	NoContent().Write(w)
}

func (s *Server) handleGetRatesURL(w http.ResponseWriter, r *http.Request) {
	OK(ratesURLResponse{URL: s.ledger.RatesURL()}).Write(w)
}

// handleUpdateRatesURL switches the rates source only after the candidate
// serves a complete table.
func (s *Server) handleUpdateRatesURL(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	url, err := DecodeRatesURL(w, r)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	if err := s.ledger.UpdateRatesURL(ctx, url); err != nil {
		applog.FromContext(ctx).WarnContext(ctx, "Rates URL not updated",
			applog.FieldOperation, applog.OpValidateURL,
			applog.FieldRatesURL, url,
			applog.FieldError, err)
		ErrorResponse(err).Write(w)
		return
	}
	applog.FromContext(ctx).InfoContext(ctx, "Rates URL updated", applog.FieldRatesURL, url)
	OK(ratesURLResponse{URL: s.ledger.RatesURL()}).Write(w)
}

func (s *Server) handleResetRatesURL(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := s.ledger.ResetRatesURL(ctx); err != nil {
		applog.FromContext(ctx).ErrorContext(ctx, "Failed to reset rates URL", applog.FieldError, err)
		ErrorResponse(err).Write(w)
		return
	}
	OK(ratesURLResponse{URL: s.ledger.RatesURL()}).Write(w)
}
