package options

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/your-username/click-lite-reports/internal/filters"
	"github.com/your-username/click-lite-reports/internal/models"
	"github.com/your-username/click-lite-reports/internal/preview"
)

type fakeRunner struct {
	mu     sync.Mutex
	sqls   []string
	result *models.QueryResult
}

func (f *fakeRunner) Run(_ context.Context, req preview.Request) (*models.QueryResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sqls = append(f.sqls, req.SQL)
	return f.result, nil
}

func cities() *models.QueryResult {
	return &models.QueryResult{
		Columns: []string{"code", "name"},
		Data: [][]interface{}{
			{"BER", "Berlin"},
			{"BRU", "Brussels"},
			{"PAR", "Paris"},
			{nil, "Nowhere"},
		},
		Success: true,
	}
}

func TestLoad_DependentFilter(t *testing.T) {
	runner := &fakeRunner{result: cities()}
	l := NewLoader(runner, filters.Renderer{}, nil)

	country := models.FilterConfig{ID: "f1", FieldName: "country", Type: models.FilterDropdown}
	city := models.FilterConfig{
		ID:            "f2",
		FieldName:     "city",
		Type:          models.FilterMultiselect,
		DependsOn:     "f1",
		DropdownQuery: "SELECT code, name FROM cities WHERE country IN ({{country}})",
	}

	opts, err := l.Load(context.Background(), city, &country, filters.List("DE", "BE"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if runner.sqls[0] != "SELECT code, name FROM cities WHERE country IN ('DE','BE')" {
		t.Errorf("sql = %s", runner.sqls[0])
	}
	if len(opts) != 3 || opts[0] != (Option{Value: "BER", Label: "Berlin"}) {
		t.Errorf("options = %+v", opts)
	}
}

func TestLoad_Errors(t *testing.T) {
	runner := &fakeRunner{result: &models.QueryResult{Success: false, Message: "Unknown table"}}
	l := NewLoader(runner, filters.Renderer{}, nil)

	if _, err := l.Load(context.Background(), models.FilterConfig{FieldName: "x"}, nil, filters.Value{}); !errors.Is(err, ErrNoQuery) {
		t.Errorf("err = %v, want ErrNoQuery", err)
	}
	f := models.FilterConfig{FieldName: "x", DropdownQuery: "SELECT x FROM t"}
	if _, err := l.Load(context.Background(), f, nil, filters.Value{}); err == nil {
		t.Error("failed result should be an error")
	}
}

func TestFromResult_SingleColumn(t *testing.T) {
	res := &models.QueryResult{Columns: []string{"status"}, Data: [][]interface{}{{"open"}, {int64(2)}}, Success: true}
	want := []Option{{Value: "open", Label: "open"}, {Value: "2", Label: "2"}}
	if got := FromResult(res); !reflect.DeepEqual(got, want) {
		t.Errorf("FromResult() = %+v", got)
	}
}

func TestMatch(t *testing.T) {
	opts := FromResult(cities())
	got := Match(opts, " BR")
	if len(got) != 1 || got[0].Value != "BRU" {
		t.Errorf("Match() = %+v", got)
	}
	if len(Match(opts, "")) != 3 {
		t.Error("empty term keeps everything")
	}
}

func TestSearch_NewerCallSupersedes(t *testing.T) {
	runner := &fakeRunner{result: cities()}
	l := NewLoader(runner, filters.Renderer{}, nil)
	l.debounce = 50 * time.Millisecond
	f := models.FilterConfig{ID: "f2", FieldName: "city", DropdownQuery: "SELECT code, name FROM cities"}

	firstErr := make(chan error, 1)
	go func() {
		_, err := l.Search(context.Background(), "city", f, nil, filters.Value{}, "b")
		firstErr <- err
	}()
	time.Sleep(10 * time.Millisecond)

	opts, err := l.Search(context.Background(), "city", f, nil, filters.Value{}, "par")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(opts) != 1 || opts[0].Value != "PAR" {
		t.Errorf("options = %+v", opts)
	}
	if err := <-firstErr; !errors.Is(err, ErrSuperseded) {
		t.Errorf("first search err = %v, want ErrSuperseded", err)
	}

	runner.mu.Lock()
	defer runner.mu.Unlock()
	if len(runner.sqls) != 1 {
		t.Errorf("queries run = %d, want 1", len(runner.sqls))
	}
}

func TestSearch_ContextCancelled(t *testing.T) {
	l := NewLoader(&fakeRunner{result: cities()}, filters.Renderer{}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := l.Search(ctx, "k", models.FilterConfig{DropdownQuery: "SELECT 1"}, nil, filters.Value{}, "")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v", err)
	}
}
