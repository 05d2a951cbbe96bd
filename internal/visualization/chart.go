// Package visualization maps a query result and a visualization config to a
// chart description the UI hands to its charting library. Every renderer is
// a pure function of its inputs.
package visualization

import (
	"errors"
	"fmt"

	"github.com/your-username/click-lite-reports/internal/models"
)

// NoDataMessage is shown in place of a chart when a result has no rows
const NoDataMessage = "No data available"

// ErrUnknownType is returned for a visualization type without a renderer
var ErrUnknownType = errors.New("unknown visualization type")

// DefaultPalette is used when a visualization configures no colors
var DefaultPalette = []string{
	"#3b82f6", "#ef4444", "#10b981", "#f59e0b", "#8b5cf6",
	"#ec4899", "#14b8a6", "#f97316", "#6366f1", "#84cc16",
}

// Chart is the renderer output. Only the section matching Type is set.
type Chart struct {
	Type       models.VisualizationType `json:"type"`
	Title      string                   `json:"title,omitempty"`
	ShowLegend bool                     `json:"show_legend"`
	Empty      bool                     `json:"empty,omitempty"`
	Message    string                   `json:"message,omitempty"`
	Error      string                   `json:"error,omitempty"`

	XLabel string `json:"x_label,omitempty"`
	YLabel string `json:"y_label,omitempty"`

	Labels   []string     `json:"labels,omitempty"`
	Datasets []Dataset    `json:"datasets,omitempty"`
	Groups   []BarGroup   `json:"groups,omitempty"`
	Stacked  bool         `json:"stacked,omitempty"`
	Slices   []Slice      `json:"slices,omitempty"`
	Points   []Point      `json:"points,omitempty"`
	Bins     []Bin        `json:"bins,omitempty"`
	Boxes    []Box        `json:"boxes,omitempty"`
	Card     *Card        `json:"card,omitempty"`
	Table    *Table       `json:"table,omitempty"`
	Pareto   []ParetoItem `json:"pareto,omitempty"`
}

// Dataset is one series of a line or pareto chart
type Dataset struct {
	Label string    `json:"label"`
	Kind  string    `json:"kind"` // bar, line
	Axis  string    `json:"axis,omitempty"`
	Data  []float64 `json:"data"`
	Color string    `json:"color"`
}

type renderer func(vis models.VisualizationConfig, res *models.QueryResult, palette []string) (*Chart, error)

var renderers = map[models.VisualizationType]renderer{
	models.VisBar:             renderBar,
	models.VisLine:            renderLine,
	models.VisPie:             renderPie,
	models.VisScatter:         renderScatter,
	models.VisPareto:          renderPareto,
	models.VisHistogram:       renderHistogram,
	models.VisBoxplot:         renderBoxplot,
	models.VisCard:            renderCard,
	models.VisExpandableTable: renderTable,
}

// Supported reports whether t has a renderer
func Supported(t models.VisualizationType) bool {
	_, ok := renderers[t]
	return ok
}

// Render builds the chart for one query result. A failed preview renders as
// an error panel and an empty result as the no-data placeholder.
func Render(vis models.VisualizationConfig, res *models.QueryResult) (*Chart, error) {
	render, ok := renderers[vis.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, vis.Type)
	}

	if res != nil && !res.Success && res.Message != "" {
		return &Chart{Type: vis.Type, Title: vis.Title, Error: res.Message}, nil
	}
	if res.Empty() {
		return &Chart{Type: vis.Type, Title: vis.Title, Empty: true, Message: NoDataMessage}, nil
	}

	chart, err := render(vis, res, palette(vis))
	if err != nil {
		return nil, fmt.Errorf("failed to render %s chart: %w", vis.Type, err)
	}
	chart.Type = vis.Type
	chart.Title = vis.Title
	chart.ShowLegend = vis.ShowLegend
	return chart, nil
}

func palette(vis models.VisualizationConfig) []string {
	if len(vis.Colors) > 0 {
		return vis.Colors
	}
	return DefaultPalette
}

func colorAt(palette []string, i int) string {
	return palette[i%len(palette)]
}

func requireColumn(res *models.QueryResult, name string, pos int, role string) (int, error) {
	idx := res.Column(name, pos)
	if idx < 0 {
		if name != "" {
			return -1, fmt.Errorf("%s column %q not found", role, name)
		}
		return -1, fmt.Errorf("result has no %s column", role)
	}
	return idx, nil
}

func cell(row []interface{}, idx int) interface{} {
	if idx < 0 || idx >= len(row) {
		return nil
	}
	return row[idx]
}

func number(row []interface{}, idx int) float64 {
	f, _ := models.CellFloat(cell(row, idx))
	return f
}

func label(row []interface{}, idx int) string {
	return models.CellString(cell(row, idx))
}
