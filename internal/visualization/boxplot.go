package visualization

import (
	"sort"

	"github.com/your-username/click-lite-reports/internal/models"
)

// Box holds the five-number summary of one category
type Box struct {
	Category string  `json:"category"`
	Min      float64 `json:"min"`
	Q1       float64 `json:"q1"`
	Median   float64 `json:"median"`
	Q3       float64 `json:"q3"`
	Max      float64 `json:"max"`
	Count    int     `json:"count"`
	Color    string  `json:"color"`
}

func renderBoxplot(vis models.VisualizationConfig, res *models.QueryResult, pal []string) (*Chart, error) {
	catIdx, err := requireColumn(res, firstNonEmpty(vis.ChartOptions.String("category_field", ""), vis.XAxis), 0, "category")
	if err != nil {
		return nil, err
	}
	valIdx, err := requireColumn(res, vis.YAxis, 1, "value")
	if err != nil {
		return nil, err
	}

	var order []string
	groups := make(map[string][]float64)
	for _, row := range res.Data {
		v, ok := models.CellFloat(cell(row, valIdx))
		if !ok {
			continue
		}
		c := label(row, catIdx)
		if _, seen := groups[c]; !seen {
			order = append(order, c)
		}
		groups[c] = append(groups[c], v)
	}

	boxes := make([]Box, 0, len(order))
	for i, c := range order {
		b := Summarize(groups[c])
		b.Category = c
		b.Color = colorAt(pal, i)
		boxes = append(boxes, b)
	}

	return &Chart{
		XLabel: res.Columns[catIdx],
		YLabel: res.Columns[valIdx],
		Boxes:  boxes,
	}, nil
}

// Summarize computes nearest-rank quartiles at floor(n*0.25), floor(n*0.5)
// and floor(n*0.75) of the sorted values, without interpolation.
func Summarize(values []float64) Box {
	n := len(values)
	if n == 0 {
		return Box{}
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	return Box{
		Min:    sorted[0],
		Q1:     sorted[n/4],
		Median: sorted[n/2],
		Q3:     sorted[n*3/4],
		Max:    sorted[n-1],
		Count:  n,
	}
}
