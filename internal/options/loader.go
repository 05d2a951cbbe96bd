// Package options loads dropdown and multiselect choices by running a
// filter's dropdown query.
package options

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/your-username/click-lite-reports/internal/filters"
	"github.com/your-username/click-lite-reports/internal/models"
	"github.com/your-username/click-lite-reports/internal/monitoring"
	"github.com/your-username/click-lite-reports/internal/preview"
)

// DefaultDebounce is the quiet period before a search runs
const DefaultDebounce = 300 * time.Millisecond

var (
	// ErrSuperseded is returned to a search replaced by a newer one for the same key
	ErrSuperseded = errors.New("options: superseded by a newer search")
	// ErrNoQuery is returned for filters without a dropdown query
	ErrNoQuery = errors.New("options: filter has no dropdown query")
)

// Option is one choice; Value goes into SQL, Label is shown
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Runner executes preview requests
type Runner interface {
	Run(ctx context.Context, req preview.Request) (*models.QueryResult, error)
}

type Loader struct {
	runner   Runner
	renderer filters.Renderer
	metrics  *monitoring.Metrics
	debounce time.Duration

	mu      sync.Mutex
	pending map[string]*pendingSearch
}

type pendingSearch struct {
	cancel chan struct{}
}

func NewLoader(runner Runner, renderer filters.Renderer, metrics *monitoring.Metrics) *Loader {
	return &Loader{
		runner:   runner,
		renderer: renderer,
		metrics:  metrics,
		debounce: DefaultDebounce,
		pending:  make(map[string]*pendingSearch),
	}
}

// Load runs the dropdown query of f. parent is the filter f depends on, if
// any, and parentValue its current selection.
func (l *Loader) Load(ctx context.Context, f models.FilterConfig, parent *models.FilterConfig, parentValue filters.Value) ([]Option, error) {
	if strings.TrimSpace(f.DropdownQuery) == "" {
		return nil, fmt.Errorf("%w: %s", ErrNoQuery, f.FieldName)
	}

	sql := l.renderer.OptionsSQL(f, parent, parentValue)
	res, err := l.runner.Run(ctx, preview.Request{
		ScopeID: "options/" + scopeKey(f),
		SQL:     sql,
	})
	if err != nil {
		l.metrics.RecordOptions("error")
		return nil, fmt.Errorf("failed to load options for %s: %w", f.FieldName, err)
	}
	if !res.Success {
		l.metrics.RecordOptions("failed")
		return nil, fmt.Errorf("failed to load options for %s: %s", f.FieldName, res.Message)
	}

	l.metrics.RecordOptions("success")
	return FromResult(res), nil
}

// Search debounces per key: the call waits out the debounce period and
// returns ErrSuperseded if another Search for key arrives meanwhile.
// Options are then loaded and filtered by term, case-insensitively.
func (l *Loader) Search(ctx context.Context, key string, f models.FilterConfig, parent *models.FilterConfig, parentValue filters.Value, term string) ([]Option, error) {
	p := l.supersede(key)
	defer l.done(key, p)

	timer := time.NewTimer(l.debounce)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-p.cancel:
		return nil, ErrSuperseded
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	opts, err := l.Load(ctx, f, parent, parentValue)
	if err != nil {
		return nil, err
	}

	select {
	case <-p.cancel:
		return nil, ErrSuperseded
	default:
	}
	return Match(opts, term), nil
}

func (l *Loader) supersede(key string) *pendingSearch {
	l.mu.Lock()
	defer l.mu.Unlock()

	if prev, ok := l.pending[key]; ok {
		close(prev.cancel)
	}
	p := &pendingSearch{cancel: make(chan struct{})}
	l.pending[key] = p
	return p
}

func (l *Loader) done(key string, p *pendingSearch) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if cur, ok := l.pending[key]; ok && cur == p {
		delete(l.pending, key)
	}
}

// FromResult maps a two-column result to value/label pairs. A single
// column serves as both. Empty values are skipped.
func FromResult(res *models.QueryResult) []Option {
	opts := make([]Option, 0, len(res.Data))
	if len(res.Columns) == 0 {
		return opts
	}
	for _, row := range res.Data {
		if len(row) == 0 || row[0] == nil {
			continue
		}
		value := models.CellString(row[0])
		label := value
		if len(res.Columns) > 1 && len(row) > 1 && row[1] != nil {
			label = models.CellString(row[1])
		}
		opts = append(opts, Option{Value: value, Label: label})
	}
	return opts
}

// Match keeps options whose label contains term, ignoring case
func Match(opts []Option, term string) []Option {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return opts
	}
	out := make([]Option, 0, len(opts))
	for _, o := range opts {
		if strings.Contains(strings.ToLower(o.Label), term) {
			out = append(out, o)
		}
	}
	return out
}

func scopeKey(f models.FilterConfig) string {
	if f.ID != "" {
		return f.ID
	}
	return f.FieldName
}
