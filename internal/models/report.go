package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// FilterType enumerates the supported filter widgets
type FilterType string

const (
	FilterText        FilterType = "text"
	FilterNumber      FilterType = "number"
	FilterDate        FilterType = "date"
	FilterDropdown    FilterType = "dropdown"
	FilterMultiselect FilterType = "multiselect"
)

// IsOptionList reports whether the filter draws its options from a dropdown query
func (t FilterType) IsOptionList() bool {
	return t == FilterDropdown || t == FilterMultiselect
}

// Valid reports whether t is a known filter type
func (t FilterType) Valid() bool {
	switch t {
	case FilterText, FilterNumber, FilterDate, FilterDropdown, FilterMultiselect:
		return true
	}
	return false
}

// ReportConfig is the full configuration of a report as edited and saved
type ReportConfig struct {
	ID            string         `json:"id,omitempty"`
	RemoteID      int64          `json:"remote_id,omitempty"`
	Name          string         `json:"name"`
	Description   string         `json:"description,omitempty"`
	Tags          []string       `json:"tags"`
	Queries       []QueryConfig  `json:"queries"`
	GlobalFilters []FilterConfig `json:"global_filters"`
	CreatedAt     time.Time      `json:"created_at,omitempty"`
	UpdatedAt     time.Time      `json:"updated_at,omitempty"`
}

// Persisted reports whether the backend has assigned an id
func (r *ReportConfig) Persisted() bool {
	return r.RemoteID > 0
}

// Query returns the query with the given id
func (r *ReportConfig) Query(id string) (*QueryConfig, bool) {
	for i := range r.Queries {
		if r.Queries[i].ID == id {
			return &r.Queries[i], true
		}
	}
	return nil, false
}

// QueryConfig is one SQL statement plus one chart
type QueryConfig struct {
	ID            string              `json:"id"`
	Name          string              `json:"name"`
	SQL           string              `json:"sql"`
	Visualization VisualizationConfig `json:"visualization"`
	Filters       []FilterConfig      `json:"filters"`
}

// FilterConfig describes a single user-facing filter
type FilterConfig struct {
	ID            string     `json:"id"`
	FieldName     string     `json:"field_name"`
	DisplayName   string     `json:"display_name"`
	Type          FilterType `json:"type"`
	Required      bool       `json:"required"`
	SQLExpression string     `json:"sql_expression,omitempty"`
	DependsOn     string     `json:"depends_on,omitempty"`
	DropdownQuery string     `json:"dropdown_query,omitempty"`
}

// Column returns the SQL expression used as the left-hand side of the condition
func (f FilterConfig) Column() string {
	if f.SQLExpression != "" {
		return f.SQLExpression
	}
	return f.FieldName
}

// VisualizationType enumerates the chart renderers
type VisualizationType string

const (
	VisBar             VisualizationType = "bar"
	VisLine            VisualizationType = "line"
	VisPie             VisualizationType = "pie"
	VisScatter         VisualizationType = "scatter"
	VisPareto          VisualizationType = "pareto"
	VisBoxplot         VisualizationType = "boxplot"
	VisHistogram       VisualizationType = "histogram"
	VisExpandableTable VisualizationType = "expandable_table"
	VisCard            VisualizationType = "card"
)

// VisualizationConfig holds the per-query chart settings
type VisualizationConfig struct {
	Type         VisualizationType `json:"type"`
	XAxis        string            `json:"x_axis,omitempty"`
	YAxis        string            `json:"y_axis,omitempty"`
	LabelField   string            `json:"label_field,omitempty"`
	ValueField   string            `json:"value_field,omitempty"`
	Title        string            `json:"title,omitempty"`
	ShowLegend   bool              `json:"show_legend,omitempty"`
	Colors       []string          `json:"colors,omitempty"`
	ChartOptions ChartOptions      `json:"chart_options,omitempty"`
}

// NestedQueryConfig is a drill-down query that may reference parent row
// values through {{field}} placeholders and may nest further levels.
type NestedQueryConfig struct {
	ID               string               `json:"id"`
	SQL              string               `json:"sql"`
	ExpandableFields []string             `json:"expandable_fields"`
	Filters          []FilterConfig       `json:"filters,omitempty"`
	NestedQueries    []NestedQueryConfig  `json:"nested_queries,omitempty"`
	Visualization    *VisualizationConfig `json:"visualization,omitempty"`
}

// RowColorRule colors table rows whose column matches a value
type RowColorRule struct {
	Column   string `json:"column"`
	Operator string `json:"operator"`
	Value    string `json:"value"`
	Color    string `json:"color"`
}

// ChartOptions is the loosely typed per-visualization knob bag
type ChartOptions map[string]interface{}

// Int returns an integer option or def when absent or not numeric
func (o ChartOptions) Int(key string, def int) int {
	switch v := o[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case int64:
		return int(v)
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return int(n)
		}
	case string:
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil {
			return n
		}
	}
	return def
}

// Bool returns a boolean option
func (o ChartOptions) Bool(key string) bool {
	switch v := o[key].(type) {
	case bool:
		return v
	case string:
		return v == "true"
	}
	return false
}

// String returns a string option or def
func (o ChartOptions) String(key, def string) string {
	if v, ok := o[key].(string); ok && v != "" {
		return v
	}
	return def
}

// Strings returns a list-of-strings option
func (o ChartOptions) Strings(key string) []string {
	switch v := o[key].(type) {
	case []string:
		return v
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// NestedQueries decodes the drill-down queries stored under "nested_queries"
func (o ChartOptions) NestedQueries() ([]NestedQueryConfig, error) {
	return decodeOption[[]NestedQueryConfig](o, "nested_queries")
}

// RowColorRules decodes the table row coloring rules stored under "row_color_rules"
func (o ChartOptions) RowColorRules() ([]RowColorRule, error) {
	return decodeOption[[]RowColorRule](o, "row_color_rules")
}

func decodeOption[T any](o ChartOptions, key string) (T, error) {
	var out T
	raw, ok := o[key]
	if !ok || raw == nil {
		return out, nil
	}
	if typed, ok := raw.(T); ok {
		return typed, nil
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return out, fmt.Errorf("failed to encode chart option %s: %w", key, err)
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("invalid chart option %s: %w", key, err)
	}
	return out, nil
}
