package visualization

import (
	"strconv"

	"github.com/your-username/click-lite-reports/internal/models"
)

// Card is a single headline value
type Card struct {
	Label   string      `json:"label"`
	Value   interface{} `json:"value"`
	Display string      `json:"display"`
	Color   string      `json:"color"`
}

// renderCard shows the first row's value column. chart_options.decimals,
// prefix and suffix shape the display string of numeric values.
func renderCard(vis models.VisualizationConfig, res *models.QueryResult, pal []string) (*Chart, error) {
	idx, err := requireColumn(res, firstNonEmpty(vis.ValueField, vis.YAxis), 0, "value")
	if err != nil {
		return nil, err
	}
	value := cell(res.Data[0], idx)

	display := models.CellString(value)
	if f, ok := models.CellFloat(value); ok {
		decimals := vis.ChartOptions.Int("decimals", -1)
		display = strconv.FormatFloat(f, 'f', decimals, 64)
	}
	display = vis.ChartOptions.String("prefix", "") + display + vis.ChartOptions.String("suffix", "")

	return &Chart{Card: &Card{
		Label:   firstNonEmpty(vis.LabelField, res.Columns[idx]),
		Value:   value,
		Display: display,
		Color:   colorAt(pal, 0),
	}}, nil
}
