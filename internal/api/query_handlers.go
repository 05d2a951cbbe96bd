package api

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/your-username/click-lite-reports/internal/drilldown"
	"github.com/your-username/click-lite-reports/internal/filters"
	"github.com/your-username/click-lite-reports/internal/models"
	"github.com/your-username/click-lite-reports/internal/options"
	"github.com/your-username/click-lite-reports/internal/preview"
)

// RunPreview executes report SQL with filters applied. A query the backend
// rejected is still a 200 with success=false in the body.
func RunPreview(svc *preview.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req preview.Request
		if err := decode(r, &req); err != nil {
			badRequest(w, "Invalid request body")
			return
		}
		if req.SQL == "" {
			badRequest(w, "sql is required")
			return
		}

		res, err := svc.Run(r.Context(), req)
		if err != nil {
			handleError(w, r, err, "Preview failed")
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func scopeParam(r *http.Request) (string, bool) {
	scope, err := url.PathUnescape(chi.URLParam(r, "id"))
	return scope, err == nil && scope != ""
}

// PreviewStatus reports the loading state of one preview scope
func PreviewStatus(svc *preview.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scope, ok := scopeParam(r)
		if !ok {
			badRequest(w, "Preview scope required")
			return
		}
		writeJSON(w, http.StatusOK, svc.Status(scope))
	}
}

// CancelPreview discards whatever is in flight for a scope
func CancelPreview(svc *preview.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scope, ok := scopeParam(r)
		if !ok {
			badRequest(w, "Preview scope required")
			return
		}
		svc.Cancel(scope)
		log.Debug().Str("scope", scope).Msg("Preview cancelled")
		writeJSON(w, http.StatusOK, svc.Status(scope))
	}
}

type drilldownRequest struct {
	Nested models.NestedQueryConfig `json:"nested"`
	Path   string                   `json:"path"`
	Row    map[string]interface{}   `json:"row"`
	Values filters.Values           `json:"values,omitempty"`
}

// Drilldown expands one row of an expandable table into its nested level
func Drilldown(expander *drilldown.Expander) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req drilldownRequest
		if err := decode(r, &req); err != nil {
			badRequest(w, "Invalid request body")
			return
		}
		if req.Nested.ID == "" || req.Nested.SQL == "" {
			badRequest(w, "nested query id and sql are required")
			return
		}

		node, err := expander.Expand(r.Context(), req.Nested, req.Path, req.Row, req.Values)
		if err != nil {
			handleError(w, r, err, "Drilldown failed")
			return
		}
		writeJSON(w, http.StatusOK, node)
	}
}

type optionsRequest struct {
	Filter      models.FilterConfig  `json:"filter"`
	Parent      *models.FilterConfig `json:"parent,omitempty"`
	ParentValue filters.Value        `json:"parent_value"`
	Search      string               `json:"search,omitempty"`
	Key         string               `json:"key,omitempty"`
}

// FilterOptions loads dropdown choices. Requests carrying a key are
// debounced searches; a newer search for the same key answers the older
// one with 409.
func FilterOptions(loader *options.Loader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req optionsRequest
		if err := decode(r, &req); err != nil {
			badRequest(w, "Invalid request body")
			return
		}

		var (
			opts []options.Option
			err  error
		)
		if req.Key != "" {
			opts, err = loader.Search(r.Context(), req.Key, req.Filter, req.Parent, req.ParentValue, req.Search)
		} else {
			opts, err = loader.Load(r.Context(), req.Filter, req.Parent, req.ParentValue)
			if err == nil && req.Search != "" {
				opts = options.Match(opts, req.Search)
			}
		}
		if err != nil {
			handleError(w, r, err, "Failed to load filter options")
			return
		}
		if opts == nil {
			opts = []options.Option{}
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"options": opts})
	}
}
