package preview

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/your-username/click-lite-reports/internal/cache"
	"github.com/your-username/click-lite-reports/internal/filters"
	"github.com/your-username/click-lite-reports/internal/models"
)

type fakeExecutor struct {
	mu      sync.Mutex
	calls   []string
	limits  []int
	result  *models.QueryResult
	err     error
	block   chan struct{}
	started chan struct{}
}

func (f *fakeExecutor) Preview(ctx context.Context, sql string, limit int) (*models.QueryResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, sql)
	f.limits = append(f.limits, limit)
	block, started := f.block, f.started
	f.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	if f.result != nil {
		return f.result, nil
	}
	return &models.QueryResult{
		Columns:   []string{"region", "total"},
		Data:      [][]interface{}{{"EU", 1}},
		TotalRows: 1,
		Success:   true,
	}, nil
}

func (f *fakeExecutor) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type recordingPublisher struct {
	mu   sync.Mutex
	msgs []models.WebSocketMessage
}

func (p *recordingPublisher) Publish(msg models.WebSocketMessage) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, msg)
}

func TestRun_AppliesFiltersAndTracksStatus(t *testing.T) {
	exec := &fakeExecutor{}
	pub := &recordingPublisher{}
	svc := NewService(exec, Options{Publisher: pub, Limit: 500})

	res, err := svc.Run(context.Background(), Request{
		ScopeID: "q1",
		SQL:     "SELECT region, total FROM sales WHERE 1=1 {{dynamic_filters}}",
		Filters: []models.FilterConfig{{ID: "f1", FieldName: "region", Type: models.FilterDropdown}},
		Values:  filters.Values{"region": filters.Text("EU")},
		Limit:   5000,
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !res.Success || res.TotalRows != 1 {
		t.Errorf("result = %+v", res)
	}

	want := "SELECT region, total FROM sales WHERE 1=1 AND region = 'EU' "
	if exec.calls[0] != want {
		t.Errorf("sql = %q, want %q", exec.calls[0], want)
	}
	if exec.limits[0] != 500 {
		t.Errorf("limit = %d, want capped 500", exec.limits[0])
	}

	st := svc.Status("q1")
	if st.State != StateSuccess || st.Generation != 0 || st.Rows != 1 {
		t.Errorf("status = %+v", st)
	}
	if len(pub.msgs) != 2 || pub.msgs[0].Action != "loading" || pub.msgs[1].Action != "success" {
		t.Errorf("published = %+v", pub.msgs)
	}
}

func TestRun_RejectedSQLIsFailedResult(t *testing.T) {
	exec := &fakeExecutor{}
	svc := NewService(exec, Options{})

	res, err := svc.Run(context.Background(), Request{ScopeID: "q1", SQL: "DROP TABLE sales"})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Success || res.Message == "" {
		t.Errorf("result = %+v", res)
	}
	if exec.callCount() != 0 {
		t.Error("rejected SQL must not reach the executor")
	}
	if st := svc.Status("q1"); st.State != StateError {
		t.Errorf("status = %+v", st)
	}
}

func TestRun_RequiredFilterMissing(t *testing.T) {
	exec := &fakeExecutor{}
	svc := NewService(exec, Options{})

	res, err := svc.Run(context.Background(), Request{
		SQL:     "SELECT * FROM t WHERE 1=1 {{dynamic_filters}}",
		Filters: []models.FilterConfig{{FieldName: "day", DisplayName: "Day", Type: models.FilterDate, Required: true}},
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Success || res.Message != "Required filters missing: Day" {
		t.Errorf("result = %+v", res)
	}
}

func TestRun_BackendFailureIsNotAnError(t *testing.T) {
	exec := &fakeExecutor{result: &models.QueryResult{Success: false, Message: "Unknown column"}}
	svc := NewService(exec, Options{})

	res, err := svc.Run(context.Background(), Request{ScopeID: "q1", SQL: "SELECT nope FROM t"})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Success {
		t.Error("expected failed result")
	}
	if st := svc.Status("q1"); st.State != StateError || st.Error != "Unknown column" {
		t.Errorf("status = %+v", st)
	}
}

func TestRun_TransportErrorWrapped(t *testing.T) {
	boom := errors.New("connection refused")
	svc := NewService(&fakeExecutor{err: boom}, Options{})

	_, err := svc.Run(context.Background(), Request{ScopeID: "q1", SQL: "SELECT 1"})
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want wrapped %v", err, boom)
	}
}

func TestRun_CachesSuccessfulResults(t *testing.T) {
	mem := cache.NewMemoryCache(10)
	defer mem.Close()
	exec := &fakeExecutor{}
	svc := NewService(exec, Options{Cache: cache.NewQueryCache(cache.MemoryResults{Cache: mem}, time.Minute)})

	for i := 0; i < 3; i++ {
		if _, err := svc.Run(context.Background(), Request{ScopeID: "q1", SQL: "SELECT 1"}); err != nil {
			t.Fatalf("Run() error = %v", err)
		}
	}
	if exec.callCount() != 1 {
		t.Errorf("executor calls = %d, want 1", exec.callCount())
	}
}

func TestRun_OlderGenerationIsDiscarded(t *testing.T) {
	exec := &fakeExecutor{block: make(chan struct{}), started: make(chan struct{}, 2)}
	svc := NewService(exec, Options{})

	type outcome struct {
		res *models.QueryResult
		err error
	}
	first := make(chan outcome, 1)
	go func() {
		res, err := svc.Run(context.Background(), Request{ScopeID: "q1", SQL: "SELECT 1", Generation: 1})
		first <- outcome{res, err}
	}()
	<-exec.started

	second := make(chan outcome, 1)
	go func() {
		res, err := svc.Run(context.Background(), Request{ScopeID: "q1", SQL: "SELECT 2", Generation: 2})
		second <- outcome{res, err}
	}()
	<-exec.started
	close(exec.block)

	if got := <-first; !errors.Is(got.err, ErrStale) {
		t.Errorf("first run err = %v, want ErrStale", got.err)
	}
	if got := <-second; got.err != nil || !got.res.Success {
		t.Errorf("second run = %+v", got)
	}
	if st := svc.Status("q1"); st.Generation != 2 || st.State != StateSuccess {
		t.Errorf("status = %+v", st)
	}
}

func TestRun_ConcurrentUntrackedRunsBothSucceed(t *testing.T) {
	exec := &fakeExecutor{block: make(chan struct{}), started: make(chan struct{}, 2)}
	svc := NewService(exec, Options{})

	type outcome struct {
		res *models.QueryResult
		err error
	}
	done := make(chan outcome, 2)
	for i := 0; i < 2; i++ {
		go func() {
			res, err := svc.Run(context.Background(), Request{ScopeID: "dashboard/1/2/q1", SQL: "SELECT 1"})
			done <- outcome{res, err}
		}()
	}
	<-exec.started
	<-exec.started
	close(exec.block)

	for i := 0; i < 2; i++ {
		if got := <-done; got.err != nil || !got.res.Success {
			t.Errorf("run %d = %+v", i, got)
		}
	}
	if st := svc.Status("dashboard/1/2/q1"); st.State != StateSuccess {
		t.Errorf("status = %+v", st)
	}
}

func TestRun_UntrackedRunSurvivesCancel(t *testing.T) {
	exec := &fakeExecutor{block: make(chan struct{}), started: make(chan struct{}, 1)}
	svc := NewService(exec, Options{})

	done := make(chan error, 1)
	go func() {
		_, err := svc.Run(context.Background(), Request{ScopeID: "q1", SQL: "SELECT 1"})
		done <- err
	}()
	<-exec.started
	svc.Cancel("q1")
	close(exec.block)

	if err := <-done; err != nil {
		t.Errorf("Run() error = %v", err)
	}
	if st := svc.Status("q1"); st.State != StateIdle || st.Generation != 1 {
		t.Errorf("status = %+v, want cancel to keep idle", st)
	}
}

func TestTracker_ExplicitGenerations(t *testing.T) {
	tr := NewTracker()

	st, err := tr.Begin("q1", 5)
	if err != nil || st.Generation != 5 {
		t.Fatalf("Begin() = %+v, %v", st, err)
	}
	if _, err := tr.Begin("q1", 3); !errors.Is(err, ErrStale) {
		t.Errorf("older generation err = %v", err)
	}
	if _, err := tr.Finish("q1", 4, 0, ""); !errors.Is(err, ErrStale) {
		t.Errorf("finish of unknown generation err = %v", err)
	}
	if _, err := tr.Finish("q1", 5, 10, ""); err != nil {
		t.Errorf("Finish() error = %v", err)
	}
	if tr.Loading() {
		t.Error("nothing should be loading")
	}

	if st, err := tr.Begin("q1", 0); err != nil || st.Generation != 5 {
		t.Errorf("untracked Begin() = %+v, %v", st, err)
	}
	tr.Cancel("q1")
	if st := tr.Get("q1"); st.State != StateIdle || st.Generation != 6 {
		t.Errorf("after cancel = %+v", st)
	}
	if st := tr.Get("unknown"); st.State != StateIdle {
		t.Errorf("unknown scope = %+v", st)
	}
}
