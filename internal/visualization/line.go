package visualization

import (
	"github.com/your-username/click-lite-reports/internal/models"
)

// renderLine draws one series per y column. chart_options.series adds
// columns beyond the configured y axis.
func renderLine(vis models.VisualizationConfig, res *models.QueryResult, pal []string) (*Chart, error) {
	xIdx, err := requireColumn(res, vis.XAxis, 0, "x-axis")
	if err != nil {
		return nil, err
	}
	yIdx, err := requireColumn(res, vis.YAxis, 1, "y-axis")
	if err != nil {
		return nil, err
	}

	series := []int{yIdx}
	for _, name := range vis.ChartOptions.Strings("series") {
		if idx := res.ColumnIndex(name); idx >= 0 && idx != yIdx && idx != xIdx {
			series = append(series, idx)
		}
	}

	labels := make([]string, len(res.Data))
	for i, row := range res.Data {
		labels[i] = label(row, xIdx)
	}

	datasets := make([]Dataset, len(series))
	for s, idx := range series {
		data := make([]float64, len(res.Data))
		for i, row := range res.Data {
			data[i] = number(row, idx)
		}
		datasets[s] = Dataset{
			Label: res.Columns[idx],
			Kind:  "line",
			Data:  data,
			Color: colorAt(pal, s),
		}
	}

	return &Chart{
		XLabel:   res.Columns[xIdx],
		YLabel:   res.Columns[yIdx],
		Labels:   labels,
		Datasets: datasets,
	}, nil
}
