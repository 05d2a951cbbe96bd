package filters

import (
	"fmt"
	"strings"

	"github.com/your-username/click-lite-reports/internal/models"
)

// ValidationError collects every problem found in a filter scope
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid filters: " + strings.Join(e.Problems, "; ")
}

func (e *ValidationError) add(format string, args ...interface{}) {
	e.Problems = append(e.Problems, fmt.Sprintf(format, args...))
}

// Validate checks the invariants of one filter scope (a query's filters,
// the report's global filters, or a nested level's filters).
func Validate(scope []models.FilterConfig) error {
	verr := &ValidationError{}
	ids := make(map[string]bool, len(scope))

	for _, f := range scope {
		label := f.ID
		if label == "" {
			label = f.FieldName
		}
		if f.FieldName == "" {
			verr.add("filter %s: field name is required", label)
		}
		if !f.Type.Valid() {
			verr.add("filter %s: unknown type %q", label, f.Type)
		}
		if f.ID != "" {
			if ids[f.ID] {
				verr.add("filter %s: duplicate id", f.ID)
			}
			ids[f.ID] = true
		}
		if f.Type.IsOptionList() && strings.TrimSpace(f.DropdownQuery) == "" {
			verr.add("filter %s: %s filter needs a dropdown query", label, f.Type)
		}
		if f.DependsOn != "" {
			parent, ok := Resolve(scope, f.DependsOn)
			switch {
			case !ok:
				verr.add("filter %s: depends on unknown filter %s", label, f.DependsOn)
			case parent.ID == f.ID && parent.FieldName == f.FieldName:
				verr.add("filter %s: cannot depend on itself", label)
			case !parent.Type.IsOptionList():
				verr.add("filter %s: parent %s must be dropdown or multiselect", label, f.DependsOn)
			}
		}
	}

	if cycle := findCycle(scope); cycle != "" {
		verr.add("dependency cycle through %s", cycle)
	}

	if len(verr.Problems) > 0 {
		return verr
	}
	return nil
}

// Resolve finds a filter in scope by id, then by field name
func Resolve(scope []models.FilterConfig, ref string) (*models.FilterConfig, bool) {
	for i := range scope {
		if scope[i].ID == ref {
			return &scope[i], true
		}
	}
	for i := range scope {
		if scope[i].FieldName == ref {
			return &scope[i], true
		}
	}
	return nil, false
}

// Dependents returns the ids of every filter that transitively depends on
// ref, in breadth-first order. Changing ref's selection invalidates theirs.
func Dependents(scope []models.FilterConfig, ref string) []string {
	root, ok := Resolve(scope, ref)
	if !ok {
		return nil
	}

	var out []string
	visited := map[string]bool{key(*root): true}
	queue := []models.FilterConfig{*root}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, f := range scope {
			if f.DependsOn == "" || visited[key(f)] {
				continue
			}
			if f.DependsOn == current.ID || f.DependsOn == current.FieldName {
				visited[key(f)] = true
				out = append(out, key(f))
				queue = append(queue, f)
			}
		}
	}
	return out
}

// ClearDependents removes the selections of every dependent of ref
func ClearDependents(scope []models.FilterConfig, ref string, values Values) {
	for _, dep := range Dependents(scope, ref) {
		f, ok := Resolve(scope, dep)
		if !ok {
			continue
		}
		delete(values, f.FieldName)
		delete(values, f.ID)
	}
}

func key(f models.FilterConfig) string {
	if f.ID != "" {
		return f.ID
	}
	return f.FieldName
}

func findCycle(scope []models.FilterConfig) string {
	for _, f := range scope {
		seen := map[string]bool{key(f): true}
		current := f
		for current.DependsOn != "" {
			parent, ok := Resolve(scope, current.DependsOn)
			if !ok {
				break
			}
			if seen[key(*parent)] {
				return key(f)
			}
			seen[key(*parent)] = true
			current = *parent
		}
	}
	return ""
}
