package visualization

import (
	"math"

	"github.com/your-username/click-lite-reports/internal/models"
)

const (
	// DefaultBinCount is used when chart_options.bin_count is unset
	DefaultBinCount = 10
	// MaxBinCount bounds chart_options.bin_count
	MaxBinCount = 1000
)

// Bin is a histogram bucket. Buckets cover [Start, End) except the last,
// which also includes End.
type Bin struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Count int     `json:"count"`
	Color string  `json:"color"`
}

func renderHistogram(vis models.VisualizationConfig, res *models.QueryResult, pal []string) (*Chart, error) {
	idx, err := requireColumn(res, firstNonEmpty(vis.ValueField, vis.YAxis, vis.XAxis), 0, "value")
	if err != nil {
		return nil, err
	}

	values := make([]float64, 0, len(res.Data))
	for _, row := range res.Data {
		if v, ok := models.CellFloat(cell(row, idx)); ok {
			values = append(values, v)
		}
	}

	binCount := vis.ChartOptions.Int("bin_count", DefaultBinCount)
	if binCount <= 0 {
		binCount = DefaultBinCount
	}
	if binCount > MaxBinCount {
		binCount = MaxBinCount
	}

	return &Chart{
		XLabel: res.Columns[idx],
		YLabel: "Count",
		Bins:   Histogram(values, binCount, pal),
	}, nil
}

// Histogram buckets values into binCount bins of equal width between the
// minimum and the maximum. When every value is equal a single bin holds them.
// NaN and infinite values are skipped.
func Histogram(values []float64, binCount int, pal []string) []Bin {
	values = finite(values)
	if len(values) == 0 {
		return nil
	}
	if len(pal) == 0 {
		pal = DefaultPalette
	}
	if binCount <= 0 {
		binCount = DefaultBinCount
	}
	if binCount > MaxBinCount {
		binCount = MaxBinCount
	}

	min, max := values[0], values[0]
	for _, v := range values[1:] {
		min = math.Min(min, v)
		max = math.Max(max, v)
	}
	if min == max {
		return []Bin{{Start: min, End: max, Count: len(values), Color: colorAt(pal, 0)}}
	}

	width := (max - min) / float64(binCount)
	bins := make([]Bin, binCount)
	for i := range bins {
		bins[i] = Bin{
			Start: min + float64(i)*width,
			End:   min + float64(i+1)*width,
			Color: colorAt(pal, 0),
		}
	}
	bins[binCount-1].End = max

	for _, v := range values {
		i := int(math.Floor((v - min) / width))
		if i < 0 {
			i = 0
		}
		if i >= binCount {
			i = binCount - 1
		}
		// guard against rounding at a bin edge
		for i > 0 && v < bins[i].Start {
			i--
		}
		for i < binCount-1 && v >= bins[i].End {
			i++
		}
		bins[i].Count++
	}
	return bins
}

func finite(values []float64) []float64 {
	out := values[:0:0]
	for _, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			out = append(out, v)
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
