// Package report edits report configurations: queries, filter scopes and
// drill-down levels, and persists them through the backend API.
package report

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/your-username/click-lite-reports/internal/drilldown"
	"github.com/your-username/click-lite-reports/internal/filters"
	"github.com/your-username/click-lite-reports/internal/models"
	"github.com/your-username/click-lite-reports/internal/sqlfields"
	"github.com/your-username/click-lite-reports/internal/visualization"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrNoFields gates filter creation until the SQL projects something
	ErrNoFields      = errors.New("query has no selectable fields")
	ErrUnknownField  = errors.New("field is not selected by the query")
	ErrNotExpandable = errors.New("nested queries require an expandable_table visualization")
)

// ValidationError lists every problem found in a report
type ValidationError struct {
	Problems []string `json:"problems"`
}

func (e *ValidationError) Error() string {
	return "invalid report: " + strings.Join(e.Problems, "; ")
}

// New returns an empty unsaved report with a client id
func New(name string) *models.ReportConfig {
	now := time.Now()
	return &models.ReportConfig{
		ID:            uuid.New().String(),
		Name:          name,
		Tags:          []string{},
		Queries:       []models.QueryConfig{},
		GlobalFilters: []models.FilterConfig{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// AddQuery appends a query with a bar chart by default
func AddQuery(r *models.ReportConfig, name, sql string) *models.QueryConfig {
	if name == "" {
		name = fmt.Sprintf("Query %d", len(r.Queries)+1)
	}
	r.Queries = append(r.Queries, models.QueryConfig{
		ID:            uuid.New().String(),
		Name:          name,
		SQL:           sql,
		Visualization: models.VisualizationConfig{Type: models.VisBar, ShowLegend: true},
		Filters:       []models.FilterConfig{},
	})
	r.UpdatedAt = time.Now()
	return &r.Queries[len(r.Queries)-1]
}

// UpdateQuery replaces the query with the same id
func UpdateQuery(r *models.ReportConfig, q models.QueryConfig) error {
	existing, ok := r.Query(q.ID)
	if !ok {
		return fmt.Errorf("query %s: %w", q.ID, ErrNotFound)
	}
	*existing = q
	r.UpdatedAt = time.Now()
	return nil
}

// RemoveQuery deletes a query and its filters
func RemoveQuery(r *models.ReportConfig, id string) error {
	for i := range r.Queries {
		if r.Queries[i].ID == id {
			r.Queries = append(r.Queries[:i], r.Queries[i+1:]...)
			r.UpdatedAt = time.Now()
			return nil
		}
	}
	return fmt.Errorf("query %s: %w", id, ErrNotFound)
}

// AvailableFields lists the fields a filter may target. An empty queryID
// means the global scope: the union over every query.
func AvailableFields(r *models.ReportConfig, queryID string) ([]string, error) {
	if queryID == "" {
		sqls := make([]string, len(r.Queries))
		for i, q := range r.Queries {
			sqls[i] = q.SQL
		}
		return sqlfields.ExtractAll(sqls...), nil
	}
	q, ok := r.Query(queryID)
	if !ok {
		return nil, fmt.Errorf("query %s: %w", queryID, ErrNotFound)
	}
	return sqlfields.Extract(q.SQL), nil
}

// AddFilter adds f to a query's scope, or to the global scope when queryID
// is empty. The field must be projected by the scope's SQL and the scope
// must stay valid.
func AddFilter(r *models.ReportConfig, queryID string, f models.FilterConfig) (*models.FilterConfig, error) {
	fields, err := AvailableFields(r, queryID)
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, ErrNoFields
	}
	if !contains(fields, f.FieldName) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownField, f.FieldName)
	}

	if f.ID == "" {
		f.ID = uuid.New().String()
	}
	if f.DisplayName == "" {
		f.DisplayName = f.FieldName
	}
	if f.Type == "" {
		f.Type = models.FilterText
	}

	scope := scopeOf(r, queryID)
	candidate := append(append([]models.FilterConfig(nil), *scope...), f)
	if err := filters.Validate(candidate); err != nil {
		return nil, err
	}
	*scope = candidate
	r.UpdatedAt = time.Now()
	return &(*scope)[len(*scope)-1], nil
}

// RemoveFilter deletes a filter and clears dependsOn of filters that
// referenced it
func RemoveFilter(r *models.ReportConfig, queryID, filterID string) error {
	if queryID != "" {
		if _, ok := r.Query(queryID); !ok {
			return fmt.Errorf("query %s: %w", queryID, ErrNotFound)
		}
	}
	scope := scopeOf(r, queryID)

	idx := -1
	for i, f := range *scope {
		if f.ID == filterID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("filter %s: %w", filterID, ErrNotFound)
	}

	removed := (*scope)[idx]
	*scope = append((*scope)[:idx], (*scope)[idx+1:]...)
	for i := range *scope {
		dep := (*scope)[i].DependsOn
		if dep != "" && (dep == removed.ID || dep == removed.FieldName) {
			(*scope)[i].DependsOn = ""
		}
	}
	r.UpdatedAt = time.Now()
	return nil
}

// AddNestedQuery appends nq under the drill-down level named by parentIDs
// (empty for the first level) of an expandable table query.
func AddNestedQuery(r *models.ReportConfig, queryID string, parentIDs []string, nq models.NestedQueryConfig) (*models.NestedQueryConfig, error) {
	q, ok := r.Query(queryID)
	if !ok {
		return nil, fmt.Errorf("query %s: %w", queryID, ErrNotFound)
	}
	if q.Visualization.Type != models.VisExpandableTable {
		return nil, ErrNotExpandable
	}

	roots, err := q.Visualization.ChartOptions.NestedQueries()
	if err != nil {
		return nil, err
	}
	if nq.ID == "" {
		nq.ID = uuid.New().String()
	}
	if nq.ExpandableFields == nil {
		nq.ExpandableFields = []string{}
	}

	if len(parentIDs) == 0 {
		roots = append(roots, nq)
	} else {
		parent, err := drilldown.Find(roots, parentIDs)
		if err != nil {
			return nil, err
		}
		parent.NestedQueries = append(parent.NestedQueries, nq)
	}

	if q.Visualization.ChartOptions == nil {
		q.Visualization.ChartOptions = models.ChartOptions{}
	}
	q.Visualization.ChartOptions["nested_queries"] = roots
	r.UpdatedAt = time.Now()

	return drilldown.Find(roots, append(append([]string(nil), parentIDs...), nq.ID))
}

// Validate checks a report before save
func Validate(r *models.ReportConfig) error {
	verr := &ValidationError{}
	add := func(format string, args ...interface{}) {
		verr.Problems = append(verr.Problems, fmt.Sprintf(format, args...))
	}

	if strings.TrimSpace(r.Name) == "" {
		add("name is required")
	}
	if len(r.Queries) == 0 {
		add("at least one query is required")
	}
	addScope("global filters", r.GlobalFilters, verr)

	for _, q := range r.Queries {
		label := q.Name
		if label == "" {
			label = q.ID
		}
		if strings.TrimSpace(q.SQL) == "" {
			add("query %s: SQL is required", label)
		}
		if !visualization.Supported(q.Visualization.Type) {
			add("query %s: unknown visualization type %q", label, q.Visualization.Type)
		}
		addScope("query "+label, q.Filters, verr)

		nested, err := q.Visualization.ChartOptions.NestedQueries()
		if err != nil {
			add("query %s: %v", label, err)
			continue
		}
		if err := drilldown.Validate(nested); err != nil {
			var fe *filters.ValidationError
			if errors.As(err, &fe) {
				for _, p := range fe.Problems {
					add("query %s: %s", label, p)
				}
			}
		}
	}

	if len(verr.Problems) > 0 {
		return verr
	}
	return nil
}

func addScope(label string, scope []models.FilterConfig, verr *ValidationError) {
	err := filters.Validate(scope)
	var fe *filters.ValidationError
	if errors.As(err, &fe) {
		for _, p := range fe.Problems {
			verr.Problems = append(verr.Problems, label+": "+p)
		}
	}
}

func scopeOf(r *models.ReportConfig, queryID string) *[]models.FilterConfig {
	if queryID == "" {
		return &r.GlobalFilters
	}
	q, _ := r.Query(queryID)
	return &q.Filters
}

func contains(items []string, s string) bool {
	for _, item := range items {
		if item == s {
			return true
		}
	}
	return false
}
