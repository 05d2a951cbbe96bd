package api

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/your-username/click-lite-reports/internal/dashboard"
	"github.com/your-username/click-lite-reports/internal/filters"
	"github.com/your-username/click-lite-reports/internal/models"
)

// ListDashboards lists dashboards, favorites first
func ListDashboards(service *dashboard.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dashboards, err := service.ListDashboards(r.Context())
		if err != nil {
			handleError(w, r, err, "Failed to list dashboards")
			return
		}
		if dashboards == nil {
			dashboards = []models.Dashboard{}
		}
		writeJSON(w, http.StatusOK, dashboards)
	}
}

// CreateDashboard creates a new dashboard
func CreateDashboard(service *dashboard.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var dashboardReq models.Dashboard
		if err := decode(r, &dashboardReq); err != nil {
			badRequest(w, "Invalid request body")
			return
		}

		created, err := service.CreateDashboard(r.Context(), &dashboardReq)
		if err != nil {
			handleError(w, r, err, "Failed to create dashboard")
			return
		}
		writeJSON(w, http.StatusCreated, created)
	}
}

// GetDashboard retrieves a dashboard by ID
func GetDashboard(service *dashboard.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dashboardID, ok := parseID(r)
		if !ok {
			badRequest(w, "Invalid dashboard ID")
			return
		}

		d, err := service.GetDashboard(r.Context(), dashboardID)
		if err != nil {
			handleError(w, r, err, "Failed to get dashboard")
			return
		}
		writeJSON(w, http.StatusOK, d)
	}
}

// UpdateDashboard updates an existing dashboard
func UpdateDashboard(service *dashboard.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dashboardID, ok := parseID(r)
		if !ok {
			badRequest(w, "Invalid dashboard ID")
			return
		}

		var dashboardReq models.Dashboard
		if err := decode(r, &dashboardReq); err != nil {
			badRequest(w, "Invalid request body")
			return
		}
		dashboardReq.ID = dashboardID

		updated, err := service.UpdateDashboard(r.Context(), &dashboardReq)
		if err != nil {
			handleError(w, r, err, "Failed to update dashboard")
			return
		}
		writeJSON(w, http.StatusOK, updated)
	}
}

// DeleteDashboard deletes a dashboard
func DeleteDashboard(service *dashboard.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dashboardID, ok := parseID(r)
		if !ok {
			badRequest(w, "Invalid dashboard ID")
			return
		}

		if err := service.DeleteDashboard(r.Context(), dashboardID); err != nil {
			handleError(w, r, err, "Failed to delete dashboard")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// SetFavorite marks (POST) or unmarks (DELETE) a dashboard as favorite
func SetFavorite(service *dashboard.Service, favorite bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dashboardID, ok := parseID(r)
		if !ok {
			badRequest(w, "Invalid dashboard ID")
			return
		}

		if err := service.SetFavorite(r.Context(), dashboardID, favorite); err != nil {
			handleError(w, r, err, "Failed to update favorite")
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"id":          dashboardID,
			"is_favorite": favorite,
		})
	}
}

type renderDashboardRequest struct {
	Values filters.Values `json:"values,omitempty"`
}

// RenderDashboard previews and renders every tile of a dashboard
func RenderDashboard(service *dashboard.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dashboardID, ok := parseID(r)
		if !ok {
			badRequest(w, "Invalid dashboard ID")
			return
		}

		var req renderDashboardRequest
		if r.ContentLength != 0 {
			if err := decode(r, &req); err != nil {
				badRequest(w, "Invalid request body")
				return
			}
		}

		rendering, err := service.Render(r.Context(), dashboardID, req.Values)
		if err != nil {
			handleError(w, r, err, "Failed to render dashboard")
			return
		}
		log.Debug().Int64("dashboard_id", dashboardID).Int("tiles", len(rendering.Tiles)).Msg("Dashboard rendered")
		writeJSON(w, http.StatusOK, rendering)
	}
}
