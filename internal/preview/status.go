package preview

import (
	"errors"
	"sync"
	"time"
)

// ErrStale is returned when a run that asked for an explicit generation
// finishes after a newer one for the same scope has started. Its result is
// discarded.
var ErrStale = errors.New("preview: superseded by a newer run")

type State string

const (
	StateIdle    State = "idle"
	StateLoading State = "loading"
	StateSuccess State = "success"
	StateError   State = "error"
)

// Status is the loading state of one preview scope (a query, a drill-down
// row, a dashboard tile)
type Status struct {
	ScopeID    string    `json:"scope_id"`
	State      State     `json:"state"`
	Generation uint64    `json:"generation"`
	Rows       int       `json:"rows,omitempty"`
	Error      string    `json:"error,omitempty"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Tracker records the latest generation and state per scope
type Tracker struct {
	mu       sync.RWMutex
	statuses map[string]*Status
}

func NewTracker() *Tracker {
	return &Tracker{statuses: make(map[string]*Status)}
}

// Begin marks scope as loading. A zero requested generation joins the
// current one without superseding it, so concurrent viewers of a shared
// scope never discard each other. An explicit generation that is not newer
// than the current one is stale.
func (t *Tracker) Begin(scope string, requested uint64) (Status, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	st, ok := t.statuses[scope]
	if !ok {
		st = &Status{ScopeID: scope}
		t.statuses[scope] = st
	}

	if requested != 0 {
		if requested <= st.Generation {
			return *st, ErrStale
		}
		st.Generation = requested
	}

	st.State = StateLoading
	st.Error = ""
	st.Rows = 0
	st.UpdatedAt = time.Now()
	return *st, nil
}

// Finish records the outcome of generation gen. It returns ErrStale, and
// leaves the status untouched, when gen is no longer the latest.
func (t *Tracker) Finish(scope string, gen uint64, rows int, runErr string) (Status, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	st, ok := t.statuses[scope]
	if !ok || st.Generation != gen {
		if ok {
			return *st, ErrStale
		}
		return Status{ScopeID: scope, State: StateIdle}, ErrStale
	}

	st.State = StateSuccess
	st.Rows = rows
	st.Error = runErr
	if runErr != "" {
		st.State = StateError
	}
	st.UpdatedAt = time.Now()
	return *st, nil
}

// Get returns the status of scope; unknown scopes are idle
func (t *Tracker) Get(scope string) Status {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if st, ok := t.statuses[scope]; ok {
		return *st
	}
	return Status{ScopeID: scope, State: StateIdle}
}

// Loading reports whether any scope is still running
func (t *Tracker) Loading() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for _, st := range t.statuses {
		if st.State == StateLoading {
			return true
		}
	}
	return false
}

// Cancel returns scope to idle and invalidates any run in flight for it
func (t *Tracker) Cancel(scope string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if st, ok := t.statuses[scope]; ok {
		st.Generation++
		st.State = StateIdle
		st.Error = ""
		st.UpdatedAt = time.Now()
	}
}
