package visualization

import (
	"strings"

	"github.com/your-username/click-lite-reports/internal/models"
)

// Table is an expandable table: rows plus the drill-down queries a row can open
type Table struct {
	Columns          []string                   `json:"columns"`
	Rows             [][]interface{}            `json:"rows"`
	RowColors        []string                   `json:"row_colors,omitempty"`
	ExpandableFields []string                   `json:"expandable_fields,omitempty"`
	NestedQueries    []models.NestedQueryConfig `json:"nested_queries,omitempty"`
}

func renderTable(vis models.VisualizationConfig, res *models.QueryResult, _ []string) (*Chart, error) {
	nested, err := vis.ChartOptions.NestedQueries()
	if err != nil {
		return nil, err
	}
	rules, err := vis.ChartOptions.RowColorRules()
	if err != nil {
		return nil, err
	}

	t := &Table{
		Columns:          res.Columns,
		Rows:             res.Data,
		ExpandableFields: vis.ChartOptions.Strings("expandable_fields"),
		NestedQueries:    nested,
	}
	if len(rules) > 0 {
		t.RowColors = make([]string, len(res.Data))
		for i := range res.Data {
			t.RowColors[i] = RowColor(rules, res.RowMap(i))
		}
	}
	return &Chart{Table: t}, nil
}

// RowColor returns the color of the first rule matching row, or ""
func RowColor(rules []models.RowColorRule, row map[string]interface{}) string {
	for _, r := range rules {
		v, ok := row[r.Column]
		if !ok {
			continue
		}
		if matchRule(r, v) {
			return r.Color
		}
	}
	return ""
}

func matchRule(r models.RowColorRule, v interface{}) bool {
	s := models.CellString(v)
	switch r.Operator {
	case "equals", "=", "":
		return s == r.Value
	case "not_equals", "!=":
		return s != r.Value
	case "contains":
		return strings.Contains(strings.ToLower(s), strings.ToLower(r.Value))
	}

	left, okL := models.CellFloat(v)
	right, okR := models.CellFloat(r.Value)
	if !okL || !okR {
		return false
	}
	switch r.Operator {
	case ">", "greater_than":
		return left > right
	case "<", "less_than":
		return left < right
	case ">=":
		return left >= right
	case "<=":
		return left <= right
	}
	return false
}
