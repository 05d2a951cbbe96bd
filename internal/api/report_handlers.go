package api

import (
	"net/http"

	"github.com/your-username/click-lite-reports/internal/models"
	"github.com/your-username/click-lite-reports/internal/report"
)

// ListReports returns the saved reports
func ListReports(svc *report.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reports, err := svc.List(r.Context())
		if err != nil {
			handleError(w, r, err, "Failed to list reports")
			return
		}
		if reports == nil {
			reports = []models.ReportSummary{}
		}
		writeJSON(w, http.StatusOK, reports)
	}
}

// GetReport loads one report
func GetReport(svc *report.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseID(r)
		if !ok {
			badRequest(w, "Invalid report ID")
			return
		}

		rep, err := svc.Get(r.Context(), id)
		if err != nil {
			handleError(w, r, err, "Failed to get report")
			return
		}
		writeJSON(w, http.StatusOK, rep)
	}
}

// CreateReport saves a new report and returns it with its backend id
func CreateReport(svc *report.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var rep models.ReportConfig
		if err := decode(r, &rep); err != nil {
			badRequest(w, "Invalid request body")
			return
		}
		rep.RemoteID = 0

		if err := svc.Save(r.Context(), &rep); err != nil {
			handleError(w, r, err, "Failed to create report")
			return
		}
		writeJSON(w, http.StatusCreated, rep)
	}
}

// UpdateReport saves an existing report
func UpdateReport(svc *report.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseID(r)
		if !ok {
			badRequest(w, "Invalid report ID")
			return
		}

		var rep models.ReportConfig
		if err := decode(r, &rep); err != nil {
			badRequest(w, "Invalid request body")
			return
		}
		rep.RemoteID = id

		if err := svc.Save(r.Context(), &rep); err != nil {
			handleError(w, r, err, "Failed to update report")
			return
		}
		writeJSON(w, http.StatusOK, rep)
	}
}

// ValidateReport checks a report without saving it
func ValidateReport() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var rep models.ReportConfig
		if err := decode(r, &rep); err != nil {
			badRequest(w, "Invalid request body")
			return
		}
		if err := report.Validate(&rep); err != nil {
			handleError(w, r, err, "Invalid report")
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"valid": true})
	}
}

type scopeRequest struct {
	Report  models.ReportConfig  `json:"report"`
	QueryID string               `json:"query_id,omitempty"`
	Filter  *models.FilterConfig `json:"filter,omitempty"`
}

// ReportFields lists the fields filters may target in a query scope, or
// in the global scope when query_id is empty
func ReportFields() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req scopeRequest
		if err := decode(r, &req); err != nil {
			badRequest(w, "Invalid request body")
			return
		}

		fields, err := report.AvailableFields(&req.Report, req.QueryID)
		if err != nil {
			handleError(w, r, err, "Failed to list fields")
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"fields": fields})
	}
}

// AddReportFilter adds a filter to a draft report and returns the report
func AddReportFilter() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req scopeRequest
		if err := decode(r, &req); err != nil || req.Filter == nil {
			badRequest(w, "Invalid request body")
			return
		}

		if _, err := report.AddFilter(&req.Report, req.QueryID, *req.Filter); err != nil {
			handleError(w, r, err, "Failed to add filter")
			return
		}
		writeJSON(w, http.StatusOK, req.Report)
	}
}
