package visualization

import (
	"github.com/your-username/click-lite-reports/internal/models"
)

// Slice is one pie segment
type Slice struct {
	Label   string  `json:"label"`
	Value   float64 `json:"value"`
	Percent float64 `json:"percent"`
	Color   string  `json:"color"`
}

func renderPie(vis models.VisualizationConfig, res *models.QueryResult, pal []string) (*Chart, error) {
	labelIdx, err := requireColumn(res, vis.LabelField, 0, "label")
	if err != nil {
		return nil, err
	}
	valueIdx, err := requireColumn(res, vis.ValueField, 1, "value")
	if err != nil {
		return nil, err
	}

	slices := make([]Slice, len(res.Data))
	var total float64
	for i, row := range res.Data {
		v := number(row, valueIdx)
		total += v
		slices[i] = Slice{Label: label(row, labelIdx), Value: v, Color: colorAt(pal, i)}
	}
	if total != 0 {
		for i := range slices {
			slices[i].Percent = slices[i].Value / total * 100
		}
	}

	return &Chart{Slices: slices}, nil
}
