package visualization

import (
	"github.com/your-username/click-lite-reports/internal/models"
)

// Point is one scatter point
type Point struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Label string  `json:"label,omitempty"`
	Color string  `json:"color"`
}

// renderScatter skips rows whose coordinates are not numeric
func renderScatter(vis models.VisualizationConfig, res *models.QueryResult, pal []string) (*Chart, error) {
	xIdx, err := requireColumn(res, vis.XAxis, 0, "x-axis")
	if err != nil {
		return nil, err
	}
	yIdx, err := requireColumn(res, vis.YAxis, 1, "y-axis")
	if err != nil {
		return nil, err
	}
	labelIdx := res.ColumnIndex(vis.LabelField)

	points := make([]Point, 0, len(res.Data))
	for _, row := range res.Data {
		x, okX := models.CellFloat(cell(row, xIdx))
		y, okY := models.CellFloat(cell(row, yIdx))
		if !okX || !okY {
			continue
		}
		p := Point{X: x, Y: y, Color: colorAt(pal, 0)}
		if labelIdx >= 0 {
			p.Label = label(row, labelIdx)
		}
		points = append(points, p)
	}

	return &Chart{
		XLabel: res.Columns[xIdx],
		YLabel: res.Columns[yIdx],
		Points: points,
	}, nil
}
