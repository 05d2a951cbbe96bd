package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/your-username/click-lite-reports/internal/client"
	"github.com/your-username/click-lite-reports/internal/filters"
	"github.com/your-username/click-lite-reports/internal/models"
	"github.com/your-username/click-lite-reports/internal/sqlfields"
	"github.com/your-username/click-lite-reports/internal/table"
	"github.com/your-username/click-lite-reports/internal/visualization"
)

// Session forwards the caller's cookies to backend calls made while
// serving the request
func Session(publicURL string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := client.FromRequest(r.Context(), r, publicURL)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

type sqlRequest struct {
	SQL     string                `json:"sql"`
	Filters []models.FilterConfig `json:"filters,omitempty"`
	Values  filters.Values        `json:"values,omitempty"`
}

// ExtractFields returns the fields projected by a SELECT
func ExtractFields() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req sqlRequest
		if err := decode(r, &req); err != nil {
			badRequest(w, "Invalid request body")
			return
		}

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"fields": sqlfields.Extract(req.SQL),
		})
	}
}

// ApplyFilters renders the final SQL for a template and filter values
func ApplyFilters(renderer filters.Renderer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req sqlRequest
		if err := decode(r, &req); err != nil {
			badRequest(w, "Invalid request body")
			return
		}

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"sql":              renderer.Apply(req.SQL, req.Filters, req.Values),
			"missing_required": filters.MissingRequired(req.Filters, req.Values),
			"has_placeholder":  strings.Contains(req.SQL, filters.Placeholder),
		})
	}
}

// ValidateFilters checks one filter scope
func ValidateFilters() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req sqlRequest
		if err := decode(r, &req); err != nil {
			badRequest(w, "Invalid request body")
			return
		}
		if err := filters.Validate(req.Filters); err != nil {
			handleError(w, r, err, "Invalid filters")
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"valid": true})
	}
}

type renderRequest struct {
	Visualization models.VisualizationConfig `json:"visualization"`
	Result        *models.QueryResult        `json:"result"`
}

// RenderVisualization turns a result into chart data
func RenderVisualization() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req renderRequest
		if err := decode(r, &req); err != nil {
			badRequest(w, "Invalid request body")
			return
		}

		chart, err := visualization.Render(req.Visualization, req.Result)
		if err != nil {
			handleError(w, r, err, "Failed to render visualization")
			return
		}
		writeJSON(w, http.StatusOK, chart)
	}
}

type tableRequest struct {
	Result *models.QueryResult `json:"result"`
	State  table.State         `json:"state"`
}

// TableView filters, sorts and pages a result
func TableView() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req tableRequest
		if err := decode(r, &req); err != nil {
			badRequest(w, "Invalid request body")
			return
		}

		view, err := table.Render(req.Result, req.State)
		if err != nil {
			handleError(w, r, err, "Failed to build table view")
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

func parseID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}
