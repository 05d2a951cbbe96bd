package preview

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/your-username/click-lite-reports/internal/cache"
	"github.com/your-username/click-lite-reports/internal/filters"
	"github.com/your-username/click-lite-reports/internal/models"
	"github.com/your-username/click-lite-reports/internal/monitoring"
	"github.com/your-username/click-lite-reports/internal/query"
)

// Executor runs final SQL. Implemented by the backend API client and the
// direct ClickHouse connection.
type Executor interface {
	Preview(ctx context.Context, sql string, limit int) (*models.QueryResult, error)
}

// Publisher receives status changes, normally the websocket hub
type Publisher interface {
	Publish(msg models.WebSocketMessage)
}

// Request is one preview run
type Request struct {
	ScopeID    string                `json:"scope_id"`
	SQL        string                `json:"sql"`
	Filters    []models.FilterConfig `json:"filters,omitempty"`
	Values     filters.Values        `json:"values,omitempty"`
	Limit      int                   `json:"limit,omitempty"`
	Generation uint64                `json:"generation,omitempty"`
}

type Options struct {
	ExecutorName string
	Renderer     filters.Renderer
	Cache        *cache.QueryCache
	Metrics      *monitoring.Metrics
	Publisher    Publisher
	Limit        int
	Timeout      time.Duration
	Concurrency  int
}

// Service applies filters to report SQL, guards it, and runs it through
// the configured executor while tracking per-scope loading state.
type Service struct {
	exec      Executor
	name      string
	renderer  filters.Renderer
	validator *query.Validator
	cache     *cache.QueryCache
	metrics   *monitoring.Metrics
	publisher Publisher
	tracker   *Tracker
	limit     int
	timeout   time.Duration
	slots     chan struct{}
}

func NewService(exec Executor, opts Options) *Service {
	if opts.Limit <= 0 {
		opts.Limit = 1000
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	if opts.ExecutorName == "" {
		opts.ExecutorName = "api"
	}
	return &Service{
		exec:      exec,
		name:      opts.ExecutorName,
		renderer:  opts.Renderer,
		validator: query.NewValidator(),
		cache:     opts.Cache,
		metrics:   opts.Metrics,
		publisher: opts.Publisher,
		tracker:   NewTracker(),
		limit:     opts.Limit,
		timeout:   opts.Timeout,
		slots:     make(chan struct{}, opts.Concurrency),
	}
}

// Renderer returns the filter renderer used for every run
func (s *Service) Renderer() filters.Renderer {
	return s.renderer
}

// SQL returns the final SQL a request would run
func (s *Service) SQL(req Request) string {
	return s.renderer.Apply(req.SQL, req.Filters, req.Values)
}

// Status returns the loading state of a scope
func (s *Service) Status(scope string) Status {
	return s.tracker.Get(scope)
}

// Cancel invalidates any run in flight for scope
func (s *Service) Cancel(scope string) {
	s.tracker.Cancel(scope)
	s.publish(s.tracker.Get(scope))
}

// Run executes a preview. Rejected SQL, missing required filters and
// backend failures come back as a result with Success false; err is
// reserved for transport failures, auth redirects and ErrStale. Only
// requests carrying an explicit Generation can be stale.
func (s *Service) Run(ctx context.Context, req Request) (*models.QueryResult, error) {
	if strings.TrimSpace(req.SQL) == "" {
		return nil, fmt.Errorf("preview: empty SQL")
	}
	if req.ScopeID == "" {
		req.ScopeID = "default"
	}
	limit := req.Limit
	if limit <= 0 || limit > s.limit {
		limit = s.limit
	}

	st, err := s.tracker.Begin(req.ScopeID, req.Generation)
	if err != nil {
		s.metrics.RecordStale()
		return nil, err
	}
	s.publish(st)

	start := time.Now()
	res, err := s.execute(ctx, req, limit)
	status := outcome(res, err)
	s.metrics.RecordPreview(s.name, status, time.Since(start))

	runErr := ""
	switch {
	case err != nil:
		runErr = err.Error()
	case !res.Success:
		runErr = res.Message
	}
	rows := 0
	if res != nil {
		rows = res.TotalRows
	}

	st, staleErr := s.tracker.Finish(req.ScopeID, st.Generation, rows, runErr)
	switch {
	case staleErr == nil:
		s.publish(st)
	case req.Generation != 0:
		s.metrics.RecordStale()
		log.Debug().Str("scope", req.ScopeID).Uint64("generation", st.Generation).Msg("Discarding stale preview result")
		return nil, ErrStale
	default:
		// untracked run outlived a cancel or an explicit run; the status
		// belongs to them but the caller still gets its result
		log.Debug().Str("scope", req.ScopeID).Msg("Preview status superseded")
	}

	if err != nil {
		return nil, err
	}
	return res, nil
}

func (s *Service) execute(ctx context.Context, req Request, limit int) (*models.QueryResult, error) {
	if missing := filters.MissingRequired(req.Filters, req.Values); len(missing) > 0 {
		return failed("Required filters missing: " + strings.Join(missing, ", ")), nil
	}

	sql := s.SQL(req)
	if err := s.validator.Validate(sql); err != nil {
		return failed(err.Error()), nil
	}

	if s.cache != nil {
		res, ok, err := s.cache.Get(ctx, sql, limit)
		if err != nil {
			log.Warn().Err(err).Msg("Preview cache lookup failed")
		}
		s.metrics.RecordCache(ok)
		if ok {
			return res, nil
		}
	}

	select {
	case s.slots <- struct{}{}:
		defer func() { <-s.slots }()
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	runCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	res, err := s.exec.Preview(runCtx, sql, limit)
	if err != nil {
		return nil, fmt.Errorf("preview: %w", err)
	}
	if res == nil {
		return nil, errors.New("preview: executor returned no result")
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, sql, limit, res); err != nil {
			log.Warn().Err(err).Msg("Preview cache store failed")
		}
	}
	return res, nil
}

func (s *Service) publish(st Status) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(models.WebSocketMessage{
		Type:   "preview_status",
		Action: string(st.State),
		Data:   st,
		Scopes: []string{st.ScopeID},
	})
}

func failed(message string) *models.QueryResult {
	return &models.QueryResult{
		Columns: []string{},
		Data:    [][]interface{}{},
		Success: false,
		Message: message,
	}
}

func outcome(res *models.QueryResult, err error) string {
	switch {
	case err != nil:
		return "error"
	case !res.Success:
		return "failed"
	default:
		return "success"
	}
}
