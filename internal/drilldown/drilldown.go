// Package drilldown evaluates nested (drill-down) queries of expandable
// tables. A nested query is run for one parent row with the row's values
// injected into its {{field}} placeholders; its own rows can in turn be
// expanded by the next level, to any depth.
package drilldown

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/your-username/click-lite-reports/internal/filters"
	"github.com/your-username/click-lite-reports/internal/models"
	"github.com/your-username/click-lite-reports/internal/preview"
	"github.com/your-username/click-lite-reports/internal/visualization"
)

// ErrNotFound is returned when a path does not name a nested query
var ErrNotFound = errors.New("nested query not found")

// Runner executes preview requests
type Runner interface {
	Run(ctx context.Context, req preview.Request) (*models.QueryResult, error)
}

// Node is one expanded nested query under a parent row
type Node struct {
	Key              string                     `json:"key"`
	SQL              string                     `json:"sql"`
	Result           *models.QueryResult        `json:"result,omitempty"`
	Chart            *visualization.Chart       `json:"chart,omitempty"`
	ExpandableFields []string                   `json:"expandable_fields,omitempty"`
	Children         []models.NestedQueryConfig `json:"children,omitempty"`
}

// RowKey returns the key of row i of the node, the parent path for the
// next level
func (n *Node) RowKey(i int) string {
	return RowKey(n.Key, i)
}

type Expander struct {
	runner   Runner
	renderer filters.Renderer
}

func NewExpander(runner Runner, renderer filters.Renderer) *Expander {
	return &Expander{runner: runner, renderer: renderer}
}

// Expand runs nested for one parent row. parentPath is the key of the
// parent row ("q1/3"); the node key appends the nested query id.
func (e *Expander) Expand(ctx context.Context, nested models.NestedQueryConfig, parentPath string, row map[string]interface{}, values filters.Values) (*Node, error) {
	key := NodeKey(parentPath, nested.ID)
	sql := e.renderer.InjectRow(nested.SQL, row)

	res, err := e.runner.Run(ctx, preview.Request{
		ScopeID: key,
		SQL:     sql,
		Filters: nested.Filters,
		Values:  values,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to expand %s: %w", key, err)
	}

	chart, err := visualization.Render(levelVisualization(nested), res)
	if err != nil {
		return nil, fmt.Errorf("failed to render %s: %w", key, err)
	}

	return &Node{
		Key:              key,
		SQL:              sql,
		Result:           res,
		Chart:            chart,
		ExpandableFields: nested.ExpandableFields,
		Children:         nested.NestedQueries,
	}, nil
}

// levelVisualization defaults a level to an expandable table that carries
// its own children so the next level can be opened from it
func levelVisualization(nested models.NestedQueryConfig) models.VisualizationConfig {
	if nested.Visualization != nil {
		return *nested.Visualization
	}
	return models.VisualizationConfig{
		Type: models.VisExpandableTable,
		ChartOptions: models.ChartOptions{
			"expandable_fields": nested.ExpandableFields,
			"nested_queries":    nested.NestedQueries,
		},
	}
}

// NodeKey joins a parent row key and a nested query id
func NodeKey(parentPath, nestedID string) string {
	if parentPath == "" {
		return nestedID
	}
	return parentPath + "/" + nestedID
}

// RowKey joins a node key and a row index
func RowKey(nodeKey string, i int) string {
	return nodeKey + "/" + strconv.Itoa(i)
}

// Find resolves the nested query ids of a node key below the top-level
// query, e.g. ["n2", "n5"] for "q1/3/n2/0/n5".
func Find(roots []models.NestedQueryConfig, ids []string) (*models.NestedQueryConfig, error) {
	level := roots
	var found *models.NestedQueryConfig
	for _, id := range ids {
		found = nil
		for i := range level {
			if level[i].ID == id {
				found = &level[i]
				break
			}
		}
		if found == nil {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, strings.Join(ids, "/"))
		}
		level = found.NestedQueries
	}
	if found == nil {
		return nil, ErrNotFound
	}
	return found, nil
}

// NestedIDs extracts the nested query ids from a node key: the odd
// segments after the top-level query id.
func NestedIDs(key string) []string {
	parts := strings.Split(key, "/")
	var ids []string
	for i := 2; i < len(parts); i += 2 {
		ids = append(ids, parts[i])
	}
	return ids
}

// Walk visits every nested query depth first. path holds the ids from the
// first level down to the visited query.
func Walk(nested []models.NestedQueryConfig, fn func(path []string, nq models.NestedQueryConfig) error) error {
	return walk(nil, nested, fn)
}

func walk(prefix []string, nested []models.NestedQueryConfig, fn func([]string, models.NestedQueryConfig) error) error {
	for _, nq := range nested {
		path := append(append([]string(nil), prefix...), nq.ID)
		if err := fn(path, nq); err != nil {
			return err
		}
		if err := walk(path, nq.NestedQueries, fn); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks every level: ids present and unique among siblings, SQL
// present, filters consistent, visualization known.
func Validate(nested []models.NestedQueryConfig) error {
	verr := &filters.ValidationError{}
	check(nil, nested, verr)
	if len(verr.Problems) > 0 {
		return verr
	}
	return nil
}

func check(prefix []string, nested []models.NestedQueryConfig, verr *filters.ValidationError) {
	seen := make(map[string]bool)
	for _, nq := range nested {
		path := append(append([]string(nil), prefix...), nq.ID)
		where := "nested query " + strings.Join(path, "/")
		switch {
		case nq.ID == "":
			verr.Problems = append(verr.Problems, where+": missing id")
		case seen[nq.ID]:
			verr.Problems = append(verr.Problems, where+": duplicate id")
		}
		seen[nq.ID] = true

		if strings.TrimSpace(nq.SQL) == "" {
			verr.Problems = append(verr.Problems, where+": SQL is required")
		}
		if nq.Visualization != nil && !visualization.Supported(nq.Visualization.Type) {
			verr.Problems = append(verr.Problems, fmt.Sprintf("%s: unknown visualization type %q", where, nq.Visualization.Type))
		}
		if err := filters.Validate(nq.Filters); err != nil {
			var fe *filters.ValidationError
			if errors.As(err, &fe) {
				for _, p := range fe.Problems {
					verr.Problems = append(verr.Problems, where+": "+p)
				}
			}
		}
		check(path, nq.NestedQueries, verr)
	}
}
