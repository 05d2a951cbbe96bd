package report

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/your-username/click-lite-reports/internal/filters"
	"github.com/your-username/click-lite-reports/internal/models"
)

func salesReport(t *testing.T) (*models.ReportConfig, string) {
	t.Helper()
	r := New("Sales")
	q := AddQuery(r, "", "SELECT region, country, sum(amount) AS total FROM sales WHERE 1=1 {{dynamic_filters}} GROUP BY region, country")
	return r, q.ID
}

func TestNewAndAddQuery(t *testing.T) {
	r, qid := salesReport(t)
	if r.ID == "" || qid == "" || r.Persisted() {
		t.Errorf("report = %+v", r)
	}
	if r.Queries[0].Name != "Query 1" || r.Queries[0].Visualization.Type != models.VisBar {
		t.Errorf("query = %+v", r.Queries[0])
	}

	fields, err := AvailableFields(r, qid)
	if err != nil || !reflect.DeepEqual(fields, []string{"region", "country", "total"}) {
		t.Errorf("AvailableFields() = %v, %v", fields, err)
	}
}

func TestAddFilter_Gating(t *testing.T) {
	r := New("Empty")
	q := AddQuery(r, "Draft", "")
	if _, err := AddFilter(r, q.ID, models.FilterConfig{FieldName: "x"}); !errors.Is(err, ErrNoFields) {
		t.Errorf("err = %v, want ErrNoFields", err)
	}

	r, qid := salesReport(t)
	if _, err := AddFilter(r, qid, models.FilterConfig{FieldName: "city"}); !errors.Is(err, ErrUnknownField) {
		t.Errorf("err = %v, want ErrUnknownField", err)
	}

	f, err := AddFilter(r, qid, models.FilterConfig{FieldName: "region", Type: models.FilterDropdown, DropdownQuery: "SELECT DISTINCT region FROM sales"})
	if err != nil {
		t.Fatalf("AddFilter() error = %v", err)
	}
	if f.ID == "" || f.DisplayName != "region" {
		t.Errorf("filter = %+v", f)
	}
	if _, err := AddFilter(r, "", models.FilterConfig{FieldName: "country"}); err != nil {
		t.Errorf("global filter over union of fields: %v", err)
	}
	if _, err := AddFilter(r, "missing", models.FilterConfig{FieldName: "region"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestAddFilter_RejectsInvalidDependency(t *testing.T) {
	r, qid := salesReport(t)
	_, err := AddFilter(r, qid, models.FilterConfig{FieldName: "country", Type: models.FilterDropdown, DependsOn: "nope"})
	var verr *filters.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
	if len(r.Queries[0].Filters) != 0 {
		t.Error("invalid filter must not be added")
	}
}

func TestRemoveFilter_ClearsDependsOn(t *testing.T) {
	r, qid := salesReport(t)
	parent, _ := AddFilter(r, qid, models.FilterConfig{FieldName: "region", Type: models.FilterDropdown, DropdownQuery: "SELECT DISTINCT region FROM sales"})
	parentID := parent.ID
	if _, err := AddFilter(r, qid, models.FilterConfig{
		FieldName:     "country",
		Type:          models.FilterMultiselect,
		DependsOn:     parentID,
		DropdownQuery: "SELECT DISTINCT country FROM sales WHERE region IN ({{region}})",
	}); err != nil {
		t.Fatalf("AddFilter() error = %v", err)
	}

	if err := RemoveFilter(r, qid, parentID); err != nil {
		t.Fatalf("RemoveFilter() error = %v", err)
	}
	fs := r.Queries[0].Filters
	if len(fs) != 1 || fs[0].DependsOn != "" {
		t.Errorf("filters = %+v", fs)
	}
	if err := RemoveFilter(r, qid, parentID); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v", err)
	}
}

func TestUpdateAndRemoveQuery(t *testing.T) {
	r, qid := salesReport(t)
	q := r.Queries[0]
	q.Name = "Totals"
	if err := UpdateQuery(r, q); err != nil || r.Queries[0].Name != "Totals" {
		t.Errorf("UpdateQuery() = %v", err)
	}
	if err := RemoveQuery(r, qid); err != nil || len(r.Queries) != 0 {
		t.Errorf("RemoveQuery() = %v", err)
	}
	if err := RemoveQuery(r, qid); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v", err)
	}
}

func TestAddNestedQuery(t *testing.T) {
	r, qid := salesReport(t)
	if _, err := AddNestedQuery(r, qid, nil, models.NestedQueryConfig{SQL: "SELECT 1"}); !errors.Is(err, ErrNotExpandable) {
		t.Errorf("err = %v", err)
	}

	r.Queries[0].Visualization.Type = models.VisExpandableTable
	first, err := AddNestedQuery(r, qid, nil, models.NestedQueryConfig{ID: "n1", SQL: "SELECT city FROM sales WHERE region = {{region}}"})
	if err != nil || first.ID != "n1" {
		t.Fatalf("AddNestedQuery() = %+v, %v", first, err)
	}
	second, err := AddNestedQuery(r, qid, []string{"n1"}, models.NestedQueryConfig{SQL: "SELECT * FROM orders WHERE city = {{city}}"})
	if err != nil || second.ID == "" {
		t.Fatalf("AddNestedQuery() level 2 = %+v, %v", second, err)
	}

	roots, _ := r.Queries[0].Visualization.ChartOptions.NestedQueries()
	if len(roots) != 1 || len(roots[0].NestedQueries) != 1 {
		t.Errorf("tree = %+v", roots)
	}
	if _, err := AddNestedQuery(r, qid, []string{"missing"}, models.NestedQueryConfig{SQL: "SELECT 1"}); err == nil {
		t.Error("expected error for unknown parent")
	}
}

func TestValidate(t *testing.T) {
	r := New("")
	err := Validate(r)
	var verr *ValidationError
	if !errors.As(err, &verr) || len(verr.Problems) != 2 {
		t.Fatalf("Validate() = %v", err)
	}

	r, _ = salesReport(t)
	if err := Validate(r); err != nil {
		t.Errorf("valid report: %v", err)
	}

	r.Queries[0].SQL = " "
	r.Queries[0].Visualization.Type = "radar"
	r.GlobalFilters = []models.FilterConfig{{ID: "g1", FieldName: "x", Type: models.FilterText, DependsOn: "g1"}}
	if err := Validate(r); !errors.As(err, &verr) || len(verr.Problems) < 3 {
		t.Errorf("Validate() = %v", err)
	}
}

type fakeStore struct {
	created []*models.ReportConfig
	updated []*models.ReportConfig
	nextID  int64
}

func (f *fakeStore) ListReports(context.Context) ([]models.ReportSummary, error) {
	return []models.ReportSummary{{ID: 1, Name: "Sales"}}, nil
}

func (f *fakeStore) GetReport(_ context.Context, id int64) (*models.ReportConfig, error) {
	return &models.ReportConfig{RemoteID: id, Name: "Sales"}, nil
}

func (f *fakeStore) CreateReport(_ context.Context, r *models.ReportConfig) (int64, error) {
	f.created = append(f.created, r)
	f.nextID++
	return f.nextID, nil
}

func (f *fakeStore) UpdateReport(_ context.Context, r *models.ReportConfig) error {
	f.updated = append(f.updated, r)
	return nil
}

func TestService_SaveCreatesThenUpdates(t *testing.T) {
	store := &fakeStore{nextID: 41}
	svc := NewService(store)
	r, _ := salesReport(t)

	if err := svc.Save(context.Background(), r); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if r.RemoteID != 42 || len(store.created) != 1 {
		t.Errorf("after create: id=%d created=%d", r.RemoteID, len(store.created))
	}

	if err := svc.Save(context.Background(), r); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if len(store.created) != 1 || len(store.updated) != 1 {
		t.Errorf("second save should update: created=%d updated=%d", len(store.created), len(store.updated))
	}

	if err := svc.Save(context.Background(), New("")); err == nil {
		t.Error("invalid report must not be saved")
	}
}
