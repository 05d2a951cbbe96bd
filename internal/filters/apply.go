// Package filters turns user filter selections into SQL fragments and
// splices them into report query templates.
//
// Values are interpolated as raw string literals unless the Renderer is
// configured to escape them; the templates are plain string tokens, not a
// grammar.
package filters

import (
	"fmt"
	"strings"
	"time"

	"github.com/your-username/click-lite-reports/internal/models"
)

// Placeholder is the token replaced by the rendered filter conditions
const Placeholder = "{{dynamic_filters}}"

// Renderer builds filter conditions
type Renderer struct {
	// EscapeLiterals doubles single quotes inside interpolated values
	EscapeLiterals bool
}

var defaultRenderer = Renderer{}

// Apply renders filters against values and substitutes them for the
// {{dynamic_filters}} placeholder using the default (non-escaping) renderer.
func Apply(template string, filters []models.FilterConfig, values Values) string {
	return defaultRenderer.Apply(template, filters, values)
}

// Apply renders every filter with a non-empty value as "AND <cond> " and
// replaces the placeholder with the concatenation. A template without the
// placeholder is returned unchanged.
func (r Renderer) Apply(template string, filters []models.FilterConfig, values Values) string {
	if !strings.Contains(template, Placeholder) {
		return template
	}
	return strings.ReplaceAll(template, Placeholder, r.Clause(filters, values))
}

// Clause renders the "AND c1 AND c2 " fragment without touching a template
func (r Renderer) Clause(filters []models.FilterConfig, values Values) string {
	var b strings.Builder
	for _, f := range filters {
		v, ok := lookup(values, f)
		if !ok || v.IsEmpty() {
			continue
		}
		cond := r.Condition(f, v)
		if cond == "" {
			continue
		}
		b.WriteString("AND ")
		b.WriteString(cond)
		b.WriteString(" ")
	}
	return b.String()
}

// Condition renders a single filter condition, or "" when the value does
// not fit the filter type.
func (r Renderer) Condition(f models.FilterConfig, v Value) string {
	field := f.Column()

	switch f.Type {
	case models.FilterText:
		return fmt.Sprintf("%s LIKE '%%%s%%'", field, r.literal(first(v)))
	case models.FilterNumber:
		return fmt.Sprintf("%s = %s", field, r.literal(first(v)))
	case models.FilterDate:
		return r.dateCondition(field, v)
	case models.FilterDropdown, models.FilterMultiselect:
		items := v.Items()
		switch len(items) {
		case 0:
			return ""
		case 1:
			return fmt.Sprintf("%s = '%s'", field, r.literal(items[0]))
		default:
			return fmt.Sprintf("%s IN (%s)", field, r.QuotedList(items))
		}
	default:
		return ""
	}
}

// QuotedList renders 'a','b','c'
func (r Renderer) QuotedList(items []string) string {
	quoted := make([]string, len(items))
	for i, item := range items {
		quoted[i] = "'" + r.literal(item) + "'"
	}
	return strings.Join(quoted, ",")
}

func (r Renderer) dateCondition(field string, v Value) string {
	start, end := v.dateBounds()
	switch {
	case start != nil && end != nil:
		return fmt.Sprintf("%s BETWEEN '%s' AND '%s'", field, FormatDateTime(*start, false), FormatDateTime(*end, true))
	case start != nil:
		return fmt.Sprintf("%s >= '%s'", field, FormatDateTime(*start, false))
	case end != nil:
		return fmt.Sprintf("%s <= '%s'", field, FormatDateTime(*end, true))
	default:
		return ""
	}
}

// dateBounds resolves a range, or a single day given as text
func (v Value) dateBounds() (*time.Time, *time.Time) {
	if v.Range != nil {
		return v.Range.Start, v.Range.End
	}
	if v.Text == "" {
		return nil, nil
	}
	day, err := ParseDate(v.Text)
	if err != nil {
		return nil, nil
	}
	return &day, &day
}

func (r Renderer) literal(s string) string {
	if r.EscapeLiterals {
		return strings.ReplaceAll(s, "'", "''")
	}
	return s
}

// FormatDateTime renders YYYY-MM-DD HH:MM:SS.mmm using t's own calendar
// fields. The time of day is pinned to the start or end of the day.
func FormatDateTime(t time.Time, endOfDay bool) string {
	h, m, s, ms := 0, 0, 0, 0
	if endOfDay {
		h, m, s, ms = 23, 59, 59, 999
	}
	return fmt.Sprintf("%04d-%02d-%02d %02d:%02d:%02d.%03d", t.Year(), int(t.Month()), t.Day(), h, m, s, ms)
}

// MissingRequired returns the display names of required filters without a value
func MissingRequired(filters []models.FilterConfig, values Values) []string {
	var missing []string
	for _, f := range filters {
		if !f.Required {
			continue
		}
		if v, ok := lookup(values, f); !ok || v.IsEmpty() {
			name := f.DisplayName
			if name == "" {
				name = f.FieldName
			}
			missing = append(missing, name)
		}
	}
	return missing
}

func lookup(values Values, f models.FilterConfig) (Value, bool) {
	if v, ok := values[f.FieldName]; ok {
		return v, true
	}
	if f.ID != "" {
		v, ok := values[f.ID]
		return v, ok
	}
	return Value{}, false
}

func first(v Value) string {
	if v.Text != "" {
		return v.Text
	}
	if len(v.List) > 0 {
		return v.List[0]
	}
	return ""
}
