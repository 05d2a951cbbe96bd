package visualization

import (
	"sort"

	"github.com/your-username/click-lite-reports/internal/models"
)

// ParetoItem is one bar of a pareto chart with its cumulative share
type ParetoItem struct {
	Label             string  `json:"label"`
	Value             float64 `json:"value"`
	Cumulative        float64 `json:"cumulative"`
	CumulativePercent float64 `json:"cumulative_percent"`
}

// renderPareto sorts by value descending and accumulates the running share
// of the total. The last item's cumulative percent is 100.
func renderPareto(vis models.VisualizationConfig, res *models.QueryResult, pal []string) (*Chart, error) {
	xIdx, err := requireColumn(res, vis.XAxis, 0, "category")
	if err != nil {
		return nil, err
	}
	yIdx, err := requireColumn(res, vis.YAxis, 1, "value")
	if err != nil {
		return nil, err
	}

	items := make([]ParetoItem, len(res.Data))
	var total float64
	for i, row := range res.Data {
		items[i] = ParetoItem{Label: label(row, xIdx), Value: number(row, yIdx)}
		total += items[i].Value
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Value > items[j].Value
	})

	labels := make([]string, len(items))
	values := make([]float64, len(items))
	percents := make([]float64, len(items))
	var running float64
	for i := range items {
		running += items[i].Value
		items[i].Cumulative = running
		if total != 0 {
			items[i].CumulativePercent = running / total * 100
		}
		labels[i] = items[i].Label
		values[i] = items[i].Value
		percents[i] = items[i].CumulativePercent
	}

	return &Chart{
		XLabel: res.Columns[xIdx],
		YLabel: res.Columns[yIdx],
		Labels: labels,
		Pareto: items,
		Datasets: []Dataset{
			{Label: res.Columns[yIdx], Kind: "bar", Axis: "y", Data: values, Color: colorAt(pal, 0)},
			{Label: "Cumulative %", Kind: "line", Axis: "y2", Data: percents, Color: colorAt(pal, 1)},
		},
	}, nil
}
