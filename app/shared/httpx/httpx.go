// Package httpx holds the JSON helpers shared by the chi handlers.
package httpx

import (
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/Black-And-White-Club/ctf-engine/app/shared/apperrors"
	"github.com/Black-And-White-Club/ctf-engine/app/shared/attr"
	"github.com/Black-And-White-Club/ctf-engine/app/shared/correlation"
	"github.com/go-chi/chi/v5"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// WriteJSON encodes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// StatusFor maps the error taxonomy onto HTTP status codes.
func StatusFor(err error) (int, string) {
	switch {
	case errors.Is(err, apperrors.ErrValidation):
		return http.StatusBadRequest, "validation"
	case errors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, apperrors.ErrPrecondition):
		return http.StatusConflict, "precondition"
	case errors.Is(err, apperrors.ErrInvariantViolation):
		return http.StatusInternalServerError, "invariant_violation"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

// WriteError writes err as an ErrorBody. Internal errors are logged and their
// text is not echoed back.
func WriteError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status, kind := StatusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "Request failed",
			attr.ExtractCorrelationID(r.Context()),
			attr.String("path", r.URL.Path),
			attr.Error(err),
		)
		if kind == "internal" {
			msg = http.StatusText(status)
		}
	}
	WriteJSON(w, status, ErrorBody{Error: kind, Message: msg})
}

// DecodeJSON decodes the request body into v, rejecting unknown fields.
func DecodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return apperrors.Validationf("invalid request body: %v", err)
	}
	return nil
}

// PathInt64 parses a numeric chi URL parameter.
func PathInt64(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, apperrors.Validationf("%s must be an integer, got %q", name, raw)
	}
	return v, nil
}

// CorrelationMiddleware propagates or creates the X-Correlation-ID header and
// stores it in the request context.
func CorrelationMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if id := r.Header.Get(correlation.HeaderName); id != "" {
			ctx = correlation.WithID(ctx, id)
		} else {
			ctx = correlation.Ensure(ctx)
		}
		w.Header().Set(correlation.HeaderName, correlation.ID(ctx))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ParseTimestamp reads unix seconds (with optional fraction) or RFC 3339.
func ParseTimestamp(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, apperrors.Validationf("timestamp is required")
	}
	if secs, err := strconv.ParseFloat(raw, 64); err == nil {
		if math.IsNaN(secs) || math.IsInf(secs, 0) {
			return time.Time{}, apperrors.Validationf("timestamp %q is not finite", raw)
		}
		whole, frac := math.Modf(secs)
		return time.Unix(int64(whole), int64(frac*1e9)).UTC(), nil
	}
	ts, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, apperrors.Validationf("timestamp %q is neither unix seconds nor RFC 3339", raw)
	}
	return ts, nil
}
