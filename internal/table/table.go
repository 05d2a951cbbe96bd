// Package table filters, sorts and pages an already fetched result in
// memory, the way table visualizations do without another query.
package table

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/your-username/click-lite-reports/internal/filters"
	"github.com/your-username/click-lite-reports/internal/models"
	"github.com/your-username/click-lite-reports/internal/pagination"
)

// Text operators
const (
	OpContains    = "contains"
	OpNotContains = "not_contains"
	OpStartsWith  = "starts_with"
	OpEndsWith    = "ends_with"
	OpEquals      = "equals"
	OpNotEquals   = "not_equals"
)

// ColumnFilter narrows rows by one column. Type selects how Operator and
// the values are interpreted.
type ColumnFilter struct {
	Column   string            `json:"column"`
	Type     models.FilterType `json:"type"`
	Operator string            `json:"operator,omitempty"`
	Value    string            `json:"value,omitempty"`
	Values   []string          `json:"values,omitempty"`
	Start    string            `json:"start,omitempty"`
	End      string            `json:"end,omitempty"`
}

// Direction of a column sort
type Direction string

const (
	Unsorted   Direction = ""
	Ascending  Direction = "asc"
	Descending Direction = "desc"
)

// SortState is the current sort column and direction
type SortState struct {
	Column    string    `json:"column,omitempty"`
	Direction Direction `json:"direction,omitempty"`
}

// Toggle advances the tri-state sort for column: unsorted, asc, desc,
// unsorted. Selecting a different column starts again at asc.
func (s SortState) Toggle(column string) SortState {
	if s.Column != column {
		return SortState{Column: column, Direction: Ascending}
	}
	switch s.Direction {
	case Unsorted:
		return SortState{Column: column, Direction: Ascending}
	case Ascending:
		return SortState{Column: column, Direction: Descending}
	default:
		return SortState{}
	}
}

// State is everything a table view applies to a result
type State struct {
	Filters []ColumnFilter         `json:"filters,omitempty"`
	Sort    SortState              `json:"sort"`
	Page    pagination.PageRequest `json:"page"`
}

// View is one rendered page of a table
type View struct {
	Columns       []string        `json:"columns"`
	Rows          [][]interface{} `json:"rows"`
	FilteredRows  int             `json:"filtered_rows"`
	TotalRows     int             `json:"total_rows"`
	Page          int             `json:"page"`
	TotalPages    int             `json:"total_pages"`
	PageSize      int             `json:"page_size"`
	HasMore       bool            `json:"has_more"`
	NextPageToken string          `json:"next_page_token,omitempty"`
	PrevPageToken string          `json:"prev_page_token,omitempty"`
}

var paginator = pagination.NewPaginator(pagination.DefaultPageSize, pagination.MaxPageSize)

// ErrInvalidState wraps every filter and paging error Render returns
var ErrInvalidState = errors.New("invalid table state")

// Render applies filters, then the sort, then pagination
func Render(res *models.QueryResult, state State) (*View, error) {
	if res == nil {
		res = &models.QueryResult{}
	}
	rows, err := Filter(res, state.Filters)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidState, err)
	}
	rows = Sort(res.Columns, rows, state.Sort)

	page, err := pagination.Paginate(paginator, rows, state.Page)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidState, err)
	}

	return &View{
		Columns:       res.Columns,
		Rows:          page.Data,
		FilteredRows:  len(rows),
		TotalRows:     len(res.Data),
		Page:          page.Page,
		TotalPages:    page.TotalPages,
		PageSize:      page.PageSize,
		HasMore:       page.HasMore,
		NextPageToken: page.NextPageToken,
		PrevPageToken: page.PrevPageToken,
	}, nil
}

// Filter returns the rows matching every column filter
func Filter(res *models.QueryResult, fs []ColumnFilter) ([][]interface{}, error) {
	matchers := make([]func([]interface{}) bool, 0, len(fs))
	for _, f := range fs {
		idx := res.ColumnIndex(f.Column)
		if idx < 0 {
			return nil, fmt.Errorf("unknown column %q", f.Column)
		}
		m, err := matcher(f, idx)
		if err != nil {
			return nil, err
		}
		if m != nil {
			matchers = append(matchers, m)
		}
	}

	out := make([][]interface{}, 0, len(res.Data))
rows:
	for _, row := range res.Data {
		for _, m := range matchers {
			if !m(row) {
				continue rows
			}
		}
		out = append(out, row)
	}
	return out, nil
}

// matcher returns nil for a filter without a value
func matcher(f ColumnFilter, idx int) (func([]interface{}) bool, error) {
	value := func(row []interface{}) interface{} {
		if idx < len(row) {
			return row[idx]
		}
		return nil
	}

	switch f.Type {
	case models.FilterText, "":
		if f.Value == "" {
			return nil, nil
		}
		want := strings.ToLower(f.Value)
		op := f.Operator
		if op == "" {
			op = OpContains
		}
		if !validTextOp(op) {
			return nil, fmt.Errorf("unknown text operator %q", op)
		}
		return func(row []interface{}) bool {
			return matchText(op, strings.ToLower(models.CellString(value(row))), want)
		}, nil

	case models.FilterNumber:
		if f.Value == "" {
			return nil, nil
		}
		want, ok := models.CellFloat(f.Value)
		if !ok {
			return nil, fmt.Errorf("invalid number %q for column %s", f.Value, f.Column)
		}
		op := f.Operator
		if op == "" {
			op = "="
		}
		if _, ok := compareNumber(op, 0, 0); !ok {
			return nil, fmt.Errorf("unknown number operator %q", op)
		}
		return func(row []interface{}) bool {
			got, ok := models.CellFloat(value(row))
			if !ok {
				return false
			}
			match, _ := compareNumber(op, got, want)
			return match
		}, nil

	case models.FilterDate:
		if f.Start == "" && f.End == "" {
			return nil, nil
		}
		start, end, err := dayBounds(f.Start, f.End)
		if err != nil {
			return nil, err
		}
		return func(row []interface{}) bool {
			t, ok := cellTime(value(row))
			if !ok {
				return false
			}
			if start != nil && t.Before(*start) {
				return false
			}
			if end != nil && !t.Before(*end) {
				return false
			}
			return true
		}, nil

	case models.FilterDropdown:
		if f.Value == "" {
			return nil, nil
		}
		return func(row []interface{}) bool {
			return models.CellString(value(row)) == f.Value
		}, nil

	case models.FilterMultiselect:
		if len(f.Values) == 0 {
			return nil, nil
		}
		set := make(map[string]bool, len(f.Values))
		for _, v := range f.Values {
			set[v] = true
		}
		return func(row []interface{}) bool {
			return set[models.CellString(value(row))]
		}, nil
	}
	return nil, fmt.Errorf("unknown filter type %q", f.Type)
}

func validTextOp(op string) bool {
	switch op {
	case OpContains, OpNotContains, OpStartsWith, OpEndsWith, OpEquals, OpNotEquals:
		return true
	}
	return false
}

func matchText(op, got, want string) bool {
	switch op {
	case OpContains:
		return strings.Contains(got, want)
	case OpNotContains:
		return !strings.Contains(got, want)
	case OpStartsWith:
		return strings.HasPrefix(got, want)
	case OpEndsWith:
		return strings.HasSuffix(got, want)
	case OpEquals:
		return got == want
	case OpNotEquals:
		return got != want
	}
	return false
}

func compareNumber(op string, got, want float64) (bool, bool) {
	switch op {
	case "=", "==":
		return got == want, true
	case "!=", "≠":
		return got != want, true
	case ">":
		return got > want, true
	case "<":
		return got < want, true
	case ">=", "≥":
		return got >= want, true
	case "<=", "≤":
		return got <= want, true
	}
	return false, false
}

// dayBounds returns [start of first day, start of the day after last day)
func dayBounds(start, end string) (*time.Time, *time.Time, error) {
	var from, to *time.Time
	if start != "" {
		t, err := filters.ParseDate(start)
		if err != nil {
			return nil, nil, err
		}
		day := truncateDay(t)
		from = &day
	}
	if end != "" {
		t, err := filters.ParseDate(end)
		if err != nil {
			return nil, nil, err
		}
		next := truncateDay(t).AddDate(0, 0, 1)
		to = &next
	}
	return from, to, nil
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func cellTime(v interface{}) (time.Time, bool) {
	switch val := v.(type) {
	case time.Time:
		return val, true
	case string:
		for _, layout := range []string{"2006-01-02 15:04:05.000", "2006-01-02 15:04:05"} {
			if t, err := time.ParseInLocation(layout, val, time.Local); err == nil {
				return t, true
			}
		}
		t, err := filters.ParseDate(val)
		return t, err == nil
	}
	return time.Time{}, false
}

// Sort orders a copy of rows by the sort state. Unsorted keeps the input order.
func Sort(columns []string, rows [][]interface{}, s SortState) [][]interface{} {
	if s.Direction == Unsorted || s.Column == "" {
		return rows
	}
	idx := -1
	for i, c := range columns {
		if c == s.Column {
			idx = i
			break
		}
	}
	if idx < 0 {
		return rows
	}

	sorted := append([][]interface{}(nil), rows...)
	sort.SliceStable(sorted, func(i, j int) bool {
		c := Compare(at(sorted[i], idx), at(sorted[j], idx))
		if s.Direction == Descending {
			return c > 0
		}
		return c < 0
	})
	return sorted
}

func at(row []interface{}, idx int) interface{} {
	if idx < len(row) {
		return row[idx]
	}
	return nil
}

// Compare orders two cells numerically when both are numbers and by
// case-insensitive text otherwise.
func Compare(a, b interface{}) int {
	fa, okA := models.CellFloat(a)
	fb, okB := models.CellFloat(b)
	if okA && okB {
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		default:
			return 0
		}
	}
	return strings.Compare(strings.ToLower(models.CellString(a)), strings.ToLower(models.CellString(b)))
}
