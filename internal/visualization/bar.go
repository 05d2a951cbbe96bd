package visualization

import (
	"sort"

	"github.com/your-username/click-lite-reports/internal/models"
)

// BarGroup is one x-axis position holding every row that shares its value
type BarGroup struct {
	Label string `json:"label"`
	Bars  []Bar  `json:"bars"`
}

// Bar is a single bar inside a group
type Bar struct {
	Label      string  `json:"label"`
	Value      float64 `json:"value"`
	ColorIndex int     `json:"color_index"`
	Color      string  `json:"color"`
}

// renderBar groups rows by the x value. With use_legend_field_values the
// color of a bar comes from the sorted distinct values of legend_field, so a
// category keeps its color in every group; otherwise bars are colored by
// their position in the group.
func renderBar(vis models.VisualizationConfig, res *models.QueryResult, pal []string) (*Chart, error) {
	xIdx, err := requireColumn(res, vis.XAxis, 0, "x-axis")
	if err != nil {
		return nil, err
	}
	yIdx, err := requireColumn(res, vis.YAxis, 1, "y-axis")
	if err != nil {
		return nil, err
	}

	legendIdx := res.ColumnIndex(vis.ChartOptions.String("legend_field", ""))
	useLegend := vis.ChartOptions.Bool("use_legend_field_values") && legendIdx >= 0

	var legendColors map[string]int
	if useLegend {
		legendColors = legendColorIndex(res.Data, legendIdx)
	}

	var groups []BarGroup
	position := make(map[string]int)
	for _, row := range res.Data {
		x := label(row, xIdx)
		gi, ok := position[x]
		if !ok {
			gi = len(groups)
			position[x] = gi
			groups = append(groups, BarGroup{Label: x})
		}

		bar := Bar{Label: res.Columns[yIdx], Value: number(row, yIdx)}
		if legendIdx >= 0 {
			bar.Label = label(row, legendIdx)
		}
		if useLegend {
			bar.ColorIndex = legendColors[bar.Label]
		} else {
			bar.ColorIndex = len(groups[gi].Bars)
		}
		bar.Color = colorAt(pal, bar.ColorIndex)
		groups[gi].Bars = append(groups[gi].Bars, bar)
	}

	labels := make([]string, len(groups))
	for i, g := range groups {
		labels[i] = g.Label
	}

	return &Chart{
		XLabel:  res.Columns[xIdx],
		YLabel:  res.Columns[yIdx],
		Labels:  labels,
		Groups:  groups,
		Stacked: vis.ChartOptions.Bool("stacked"),
	}, nil
}

func legendColorIndex(rows [][]interface{}, idx int) map[string]int {
	seen := make(map[string]bool)
	var values []string
	for _, row := range rows {
		v := label(row, idx)
		if !seen[v] {
			seen[v] = true
			values = append(values, v)
		}
	}
	sort.Strings(values)

	out := make(map[string]int, len(values))
	for i, v := range values {
		out[v] = i
	}
	return out
}
