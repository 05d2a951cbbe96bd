package filters

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/your-username/click-lite-reports/internal/models"
)

// DateRange is an inclusive day range; either side may be open
type DateRange struct {
	Start *time.Time `json:"start,omitempty"`
	End   *time.Time `json:"end,omitempty"`
}

// Value is a filter selection: a scalar, a list, or a date range
type Value struct {
	Text  string
	List  []string
	Range *DateRange
}

// Values maps a filter field name (or id) to its current selection
type Values map[string]Value

// Text builds a scalar value
func Text(s string) Value { return Value{Text: s} }

// List builds a multi-value selection
func List(items ...string) Value { return Value{List: items} }

// Between builds a date range; zero times leave that side open
func Between(start, end time.Time) Value {
	r := &DateRange{}
	if !start.IsZero() {
		r.Start = &start
	}
	if !end.IsZero() {
		r.End = &end
	}
	return Value{Range: r}
}

// IsEmpty reports whether the selection should be ignored
func (v Value) IsEmpty() bool {
	if v.Text != "" || len(v.List) > 0 {
		return false
	}
	return v.Range == nil || (v.Range.Start == nil && v.Range.End == nil)
}

// Items returns the selection as a list
func (v Value) Items() []string {
	if len(v.List) > 0 {
		return v.List
	}
	if v.Text != "" {
		return []string{v.Text}
	}
	return nil
}

// MarshalJSON mirrors the accepted input shapes
func (v Value) MarshalJSON() ([]byte, error) {
	switch {
	case v.Range != nil:
		out := map[string]string{}
		if v.Range.Start != nil {
			out["start"] = v.Range.Start.Format(dateLayout)
		}
		if v.Range.End != nil {
			out["end"] = v.Range.End.Format(dateLayout)
		}
		return json.Marshal(out)
	case len(v.List) > 0:
		return json.Marshal(v.List)
	default:
		return json.Marshal(v.Text)
	}
}

// UnmarshalJSON accepts "x", 42, ["a","b"] and {"start":"...","end":"..."}
func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*v = Value{}
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = Value{Text: s}
	case '[':
		var raw []interface{}
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		items := make([]string, 0, len(raw))
		for _, item := range raw {
			items = append(items, Stringify(item))
		}
		*v = Value{List: items}
	case '{':
		var raw struct {
			Start string `json:"start"`
			End   string `json:"end"`
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		r := &DateRange{}
		if raw.Start != "" {
			t, err := ParseDate(raw.Start)
			if err != nil {
				return err
			}
			r.Start = &t
		}
		if raw.End != "" {
			t, err := ParseDate(raw.End)
			if err != nil {
				return err
			}
			r.End = &t
		}
		*v = Value{Range: r}
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("unsupported filter value: %s", string(data))
		}
		*v = Value{Text: n.String()}
	}
	return nil
}

const dateLayout = "2006-01-02"

// ParseDate parses a day or a timestamp in the local zone
func ParseDate(s string) (time.Time, error) {
	layouts := []string{dateLayout, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05"}
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date: %s", s)
}

// Stringify renders a cell or option value the way it is spliced into SQL
func Stringify(v interface{}) string {
	return models.CellString(v)
}
