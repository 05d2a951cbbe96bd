package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/your-username/click-lite-reports/internal/client"
	"github.com/your-username/click-lite-reports/internal/drilldown"
	"github.com/your-username/click-lite-reports/internal/filters"
	"github.com/your-username/click-lite-reports/internal/options"
	"github.com/your-username/click-lite-reports/internal/preview"
	"github.com/your-username/click-lite-reports/internal/report"
	"github.com/your-username/click-lite-reports/internal/table"
	"github.com/your-username/click-lite-reports/internal/visualization"
)

// ErrorResponse is the JSON body of every failed request
type ErrorResponse struct {
	Error       string   `json:"error"`
	Problems    []string `json:"problems,omitempty"`
	RedirectURL string   `json:"redirect_url,omitempty"`
}

// writeJSON encodes before writing the status so an unencodable value
// becomes a 500 instead of a truncated 200
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"failed to encode response"}` + "\n"))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		log.Warn().Err(err).Msg("Failed to write response")
	}
}

func decode(r *http.Request, v interface{}) error {
	return json.NewDecoder(r.Body).Decode(v)
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: msg})
}

// handleError maps service errors to status codes. Auth redirects carry
// the login URL so the UI can navigate there.
func handleError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	var (
		authErr    *client.AuthRedirectError
		httpErr    *client.HTTPError
		filterErr  *filters.ValidationError
		reportErr  *report.ValidationError
		statusCode = http.StatusInternalServerError
		body       = ErrorResponse{Error: err.Error()}
	)

	switch {
	case errors.As(err, &authErr):
		statusCode = http.StatusUnauthorized
		body = ErrorResponse{Error: "unauthorized", RedirectURL: authErr.LoginURL}
	case errors.As(err, &httpErr):
		statusCode = httpErr.Status
		body.Error = httpErr.Body
	case errors.As(err, &reportErr):
		statusCode = http.StatusBadRequest
		body.Problems = reportErr.Problems
	case errors.As(err, &filterErr):
		statusCode = http.StatusBadRequest
		body.Problems = filterErr.Problems
	case errors.Is(err, report.ErrNotFound), errors.Is(err, drilldown.ErrNotFound):
		statusCode = http.StatusNotFound
	case errors.Is(err, preview.ErrStale), errors.Is(err, options.ErrSuperseded):
		statusCode = http.StatusConflict
	case errors.Is(err, report.ErrNoFields):
		statusCode = http.StatusBadRequest
		body.Error = "Run or write a valid SELECT before adding filters"
	case errors.Is(err, report.ErrUnknownField),
		errors.Is(err, report.ErrNotExpandable),
		errors.Is(err, options.ErrNoQuery),
		errors.Is(err, visualization.ErrUnknownType),
		errors.Is(err, table.ErrInvalidState):
		statusCode = http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		statusCode = http.StatusGatewayTimeout
	}

	if statusCode >= 500 {
		log.Error().Err(err).Str("path", r.URL.Path).Msg(msg)
	} else {
		log.Debug().Err(err).Str("path", r.URL.Path).Int("status", statusCode).Msg(msg)
	}
	writeJSON(w, statusCode, body)
}
