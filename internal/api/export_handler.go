package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/your-username/click-lite-reports/internal/export"
	"github.com/your-username/click-lite-reports/internal/models"
	"github.com/your-username/click-lite-reports/internal/preview"
)

// ExportHandler handles data export API endpoints
type ExportHandler struct {
	exporter *export.Exporter
	previews *preview.Service
}

// NewExportHandler creates a new export handler
func NewExportHandler(exporter *export.Exporter, previews *preview.Service) *ExportHandler {
	return &ExportHandler{
		exporter: exporter,
		previews: previews,
	}
}

type exportRequest struct {
	Name           string              `json:"name,omitempty"`
	Columns        []string            `json:"columns,omitempty"`
	IncludeHeaders *bool               `json:"include_headers,omitempty"`
	Result         *models.QueryResult `json:"result,omitempty"`
	Preview        *preview.Request    `json:"preview,omitempty"`
}

// Export writes a preview result as a file download. The body carries
// either a result already on the client or a preview request to run.
func (h *ExportHandler) Export(w http.ResponseWriter, r *http.Request) {
	format := export.ExportFormat(strings.ToLower(r.URL.Query().Get("format")))
	if format == "" {
		format = export.FormatCSV
	}
	if format.ContentType() == "" {
		badRequest(w, "Unsupported export format")
		return
	}

	var req exportRequest
	if err := decode(r, &req); err != nil {
		badRequest(w, "Invalid request body")
		return
	}

	res := req.Result
	if res == nil {
		if req.Preview == nil || h.previews == nil {
			badRequest(w, "result or preview is required")
			return
		}
		var err error
		if res, err = h.previews.Run(r.Context(), *req.Preview); err != nil {
			handleError(w, r, err, "Export preview failed")
			return
		}
	}
	if !res.Success {
		badRequest(w, res.Message)
		return
	}

	options := export.ExportOptions{
		Format:         format,
		Name:           req.Name,
		Columns:        req.Columns,
		IncludeHeaders: req.IncludeHeaders == nil || *req.IncludeHeaders,
	}

	var buf bytes.Buffer
	result, err := h.exporter.Export(&buf, res, options)
	if err != nil {
		log.Debug().Err(err).Str("format", string(format)).Msg("Export failed")
		badRequest(w, err.Error())
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.FileName))
	w.Header().Set("X-Export-Rows", fmt.Sprintf("%d", result.RowCount))
	w.Header().Set("X-Export-Duration", result.Duration.String())
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		log.Warn().Err(err).Msg("Failed to write export")
	}
}

// GetExportFormats returns supported export formats
func (h *ExportHandler) GetExportFormats(w http.ResponseWriter, r *http.Request) {
	formats := []map[string]string{
		{
			"format":      string(export.FormatCSV),
			"name":        "CSV",
			"description": "Comma-separated values, compatible with Excel and other tools",
			"mime_type":   export.FormatCSV.ContentType(),
			"extension":   ".csv",
		},
		{
			"format":      string(export.FormatJSON),
			"name":        "JSON",
			"description": "Columns plus one object per row",
			"mime_type":   export.FormatJSON.ContentType(),
			"extension":   ".json",
		},
		{
			"format":      string(export.FormatExcel),
			"name":        "Excel",
			"description": "Microsoft Excel workbook with header styling and filters",
			"mime_type":   export.FormatExcel.ContentType(),
			"extension":   ".xlsx",
		},
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"formats": formats,
	})
}
