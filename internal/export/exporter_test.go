package export

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/your-username/click-lite-reports/internal/models"
)

func sample() *models.QueryResult {
	return &models.QueryResult{
		Columns: []string{"region", "total", "note"},
		Data: [][]interface{}{
			{"EU", 12.5, "a,b"},
			{"US", int64(3), nil},
		},
		TotalRows: 2,
		Success:   true,
	}
}

func fixedExporter() *Exporter {
	return &Exporter{now: func() time.Time { return time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC) }}
}

func TestExport_CSV(t *testing.T) {
	var buf bytes.Buffer
	res, err := fixedExporter().Export(&buf, sample(), ExportOptions{Format: FormatCSV, Name: "Sales by region", IncludeHeaders: true})
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	want := "region,total,note\nEU,12.5,\"a,b\"\nUS,3,\n"
	if buf.String() != want {
		t.Errorf("csv = %q, want %q", buf.String(), want)
	}
	if res.RowCount != 2 || res.FileName != "Sales_by_region_20240301_093000.csv" {
		t.Errorf("result = %+v", res)
	}
}

func TestExport_JSONColumnSubset(t *testing.T) {
	var buf bytes.Buffer
	if _, err := fixedExporter().Export(&buf, sample(), ExportOptions{Format: FormatJSON, Columns: []string{"total"}}); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	var out struct {
		Columns []string                 `json:"columns"`
		Rows    []map[string]interface{} `json:"rows"`
		Count   int                      `json:"count"`
	}
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatal(err)
	}
	if out.Count != 2 || len(out.Rows[0]) != 1 || out.Rows[0]["total"] != 12.5 {
		t.Errorf("json = %+v", out)
	}

	if _, err := fixedExporter().Export(&buf, sample(), ExportOptions{Format: FormatJSON, Columns: []string{"nope"}}); err == nil {
		t.Error("expected unknown column error")
	}
}

func TestExport_Excel(t *testing.T) {
	var buf bytes.Buffer
	if _, err := fixedExporter().Export(&buf, sample(), ExportOptions{Format: FormatExcel, Name: "Q1/Sales"}); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader() error = %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("Q1Sales")
	if err != nil {
		t.Fatalf("GetRows() error = %v", err)
	}
	if len(rows) != 3 || rows[0][0] != "region" || rows[1][1] != "12.5" || rows[2][1] != "3" {
		t.Errorf("rows = %v", rows)
	}
}

func TestExport_UnsupportedFormat(t *testing.T) {
	_, err := NewExporter().Export(&bytes.Buffer{}, sample(), ExportOptions{Format: "pdf"})
	if err == nil || !strings.Contains(err.Error(), "unsupported") {
		t.Errorf("err = %v", err)
	}
	if FormatExcel.ContentType() == "" || ExportFormat("pdf").ContentType() != "" {
		t.Error("content types")
	}
}
