package httpapi

import (
	"errors"
	"net/http"

	"github.com/goliatone/go-portal-metrics/components/dashboard"
	"github.com/goliatone/go-portal-metrics/pkg/auth"
	"github.com/goliatone/go-portal-metrics/pkg/csvimport"
	"github.com/goliatone/go-portal-metrics/pkg/metrics"
)

// ErrUnauthenticated is returned when a protected route has no valid session.
var ErrUnauthenticated = errors.New("httpapi: authentication required")

// ErrBadRequest marks malformed request payloads.
var ErrBadRequest = errors.New("httpapi: bad request")

// StatusFor maps domain errors onto HTTP status codes.
func StatusFor(err error) int {
	var configErr *dashboard.ConfigError
	var importErr *csvimport.ImportError
	var rowErrs *csvimport.ImportErrors
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, auth.ErrInvalidInput),
		errors.Is(err, metrics.ErrUnknownProduct),
		errors.Is(err, metrics.ErrInvalidQuarter),
		errors.Is(err, metrics.ErrInvalidActionItem),
		errors.As(err, &configErr):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthenticated),
		errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrSessionNotFound),
		errors.Is(err, auth.ErrSessionRevoked):
		return http.StatusUnauthorized
	case errors.Is(err, auth.ErrDomainNotAllowed):
		return http.StatusForbidden
	case errors.Is(err, auth.ErrEmailTaken):
		return http.StatusConflict
	case errors.Is(err, dashboard.ErrWidgetNotFound),
		errors.Is(err, dashboard.ErrDetailUnsupported),
		errors.Is(err, metrics.ErrNotFound),
		errors.Is(err, auth.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrCommandUnavailable):
		return http.StatusNotImplemented
	case errors.As(err, &rowErrs), errors.As(err, &importErr):
		if csvimport.KindOf(err) == csvimport.ApplicationError {
			return http.StatusInternalServerError
		}
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// ErrorPayload renders err as the JSON error body. Import failures carry
// their kind and row errors.
func ErrorPayload(err error) map[string]any {
	payload := map[string]any{"error": err.Error()}
	var rowErrs *csvimport.ImportErrors
	var importErr *csvimport.ImportError
	switch {
	case errors.As(err, &rowErrs):
		payload["kind"] = string(csvimport.DataError)
		payload["rows"] = rowErrs.Errors
		if rowErrs.Dropped > 0 {
			payload["dropped"] = rowErrs.Dropped
		}
	case errors.As(err, &importErr):
		payload["kind"] = string(importErr.Kind)
	}
	return payload
}
