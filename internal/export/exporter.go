package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/your-username/click-lite-reports/internal/models"
)

// ExportFormat represents supported export formats
type ExportFormat string

const (
	FormatCSV   ExportFormat = "csv"
	FormatJSON  ExportFormat = "json"
	FormatExcel ExportFormat = "xlsx"
)

// ContentType returns the MIME type of the format
func (f ExportFormat) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv"
	case FormatJSON:
		return "application/json"
	case FormatExcel:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return ""
}

// ExportOptions defines export parameters
type ExportOptions struct {
	Format         ExportFormat `json:"format"`
	Name           string       `json:"name,omitempty"`
	Columns        []string     `json:"columns,omitempty"`
	IncludeHeaders bool         `json:"include_headers"`
}

// ExportResult contains export operation results
type ExportResult struct {
	Format   ExportFormat  `json:"format"`
	RowCount int           `json:"row_count"`
	Duration time.Duration `json:"duration"`
	FileName string        `json:"file_name"`
}

// Exporter writes preview results as files
type Exporter struct {
	now func() time.Time
}

// NewExporter creates a new exporter
func NewExporter() *Exporter {
	return &Exporter{now: time.Now}
}

// FileName builds "<name>_<timestamp>.<ext>" from a sanitized name
func (e *Exporter) FileName(options ExportOptions) string {
	name := safeName.ReplaceAllString(strings.TrimSpace(options.Name), "_")
	if name == "" {
		name = "report"
	}
	return fmt.Sprintf("%s_%s.%s", name, e.now().Format("20060102_150405"), options.Format)
}

var safeName = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// Export writes res in the requested format
func (e *Exporter) Export(writer io.Writer, res *models.QueryResult, options ExportOptions) (*ExportResult, error) {
	start := e.now()

	columns, idx, err := selectColumns(res, options.Columns)
	if err != nil {
		return nil, err
	}

	switch options.Format {
	case FormatCSV:
		err = exportCSV(writer, res, columns, idx, options.IncludeHeaders)
	case FormatJSON:
		err = exportJSON(writer, res, columns, idx, e.now())
	case FormatExcel:
		err = exportExcel(writer, res, columns, idx, options.Name)
	default:
		return nil, fmt.Errorf("unsupported export format: %s", options.Format)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to export %s: %w", options.Format, err)
	}

	return &ExportResult{
		Format:   options.Format,
		RowCount: len(res.Data),
		Duration: e.now().Sub(start),
		FileName: e.FileName(options),
	}, nil
}

// selectColumns resolves the requested column subset, defaulting to all
func selectColumns(res *models.QueryResult, want []string) ([]string, []int, error) {
	if len(want) == 0 {
		idx := make([]int, len(res.Columns))
		for i := range idx {
			idx[i] = i
		}
		return res.Columns, idx, nil
	}

	idx := make([]int, len(want))
	for i, name := range want {
		pos := res.ColumnIndex(name)
		if pos < 0 {
			return nil, nil, fmt.Errorf("unknown column: %s", name)
		}
		idx[i] = pos
	}
	return want, idx, nil
}

func at(row []interface{}, i int) interface{} {
	if i < len(row) {
		return row[i]
	}
	return nil
}

func exportCSV(writer io.Writer, res *models.QueryResult, columns []string, idx []int, headers bool) error {
	w := csv.NewWriter(writer)

	if headers {
		if err := w.Write(columns); err != nil {
			return err
		}
	}

	record := make([]string, len(idx))
	for _, row := range res.Data {
		for i, pos := range idx {
			record[i] = models.CellString(at(row, pos))
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

// exportJSON writes rows as column-keyed objects
func exportJSON(writer io.Writer, res *models.QueryResult, columns []string, idx []int, exported time.Time) error {
	rows := make([]map[string]interface{}, len(res.Data))
	for r, row := range res.Data {
		obj := make(map[string]interface{}, len(idx))
		for i, pos := range idx {
			obj[columns[i]] = at(row, pos)
		}
		rows[r] = obj
	}

	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")

	return encoder.Encode(map[string]interface{}{
		"columns":  columns,
		"rows":     rows,
		"count":    len(rows),
		"exported": exported,
	})
}

func exportExcel(writer io.Writer, res *models.QueryResult, columns []string, idx []int, title string) error {
	file := excelize.NewFile()
	defer file.Close()

	sheet := sheetName(title)
	if err := file.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}

	headerStyle, err := file.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold: true,
			Size: 12,
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E0E0E0"},
			Pattern: 1,
		},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 2},
		},
	})
	if err != nil {
		return err
	}

	for col, header := range columns {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := file.SetCellValue(sheet, cell, header); err != nil {
			return err
		}
		if err := file.SetCellStyle(sheet, cell, cell, headerStyle); err != nil {
			return err
		}
		colName, _ := excelize.ColumnNumberToName(col + 1)
		if err := file.SetColWidth(sheet, colName, colName, 20); err != nil {
			return err
		}
	}

	for r, row := range res.Data {
		for col, pos := range idx {
			cell, err := excelize.CoordinatesToCellName(col+1, r+2)
			if err != nil {
				return err
			}
			if err := file.SetCellValue(sheet, cell, excelValue(at(row, pos))); err != nil {
				return err
			}
		}
	}

	if len(res.Data) > 0 && len(columns) > 0 {
		last, _ := excelize.CoordinatesToCellName(len(columns), len(res.Data)+1)
		if err := file.AutoFilter(sheet, "A1:"+last, nil); err != nil {
			return err
		}
	}

	return file.Write(writer)
}

// excelValue keeps numbers numeric and renders everything else as text
func excelValue(v interface{}) interface{} {
	switch v.(type) {
	case nil:
		return ""
	case string:
		return v
	}
	if f, ok := models.CellFloat(v); ok {
		return f
	}
	return models.CellString(v)
}

// sheetName trims a title to a valid sheet name
func sheetName(title string) string {
	title = strings.Map(func(r rune) rune {
		if strings.ContainsRune(`[]:*?/\`, r) {
			return -1
		}
		return r
	}, strings.TrimSpace(title))
	if title == "" {
		return "Results"
	}
	if len([]rune(title)) > 31 {
		title = string([]rune(title)[:31])
	}
	return title
}
