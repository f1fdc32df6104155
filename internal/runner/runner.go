package runner

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/samvad-hq/dispatchkit/internal/domain"
	"github.com/samvad-hq/dispatchkit/internal/logger"
	"github.com/samvad-hq/dispatchkit/internal/routetable"
	"github.com/samvad-hq/dispatchkit/internal/storage"
	"github.com/samvad-hq/dispatchkit/pkg/converter"
	"github.com/samvad-hq/dispatchkit/pkg/httpclient"
	"github.com/samvad-hq/dispatchkit/pkg/probes"
	"github.com/samvad-hq/dispatchkit/pkg/publishers"
)

// Service runs probes, classifies their responses and publishes outcomes
// that changed since they were last published.
type Service struct {
	client     httpclient.Client
	converters *converter.Registry
	publisher  EventPublisher
	store      storage.Store
	log        logger.Logger

	mu     sync.Mutex
	tables map[string]*routetable.Table

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewService wires a runner. A nil converters uses converter.Defaults; nil
// publisher and store disable publishing and deduplication.
func NewService(client httpclient.Client, converters *converter.Registry, publisher EventPublisher, store storage.Store, log logger.Logger) *Service {
	if converters == nil {
		converters = converter.Defaults()
	}
	if store == nil {
		store, _ = storage.NewStore("none", "", storage.Options{})
	}
	return &Service{
		client:     client,
		converters: converters,
		publisher:  publisher,
		store:      store,
		log:        logger.Ensure(log),
		tables:     make(map[string]*routetable.Table),
		now:        time.Now,
		sleep:      sleepCtx,
	}
}

// Run probes every entry in order, pausing for each probe's request delay
// between requests. Unhealthy outcomes are not errors; failures to compile
// routes, dedupe or publish are joined into the returned error.
func (s *Service) Run(ctx context.Context, list []probes.Probe) ([]domain.Outcome, error) {
	if s == nil || s.client == nil {
		return nil, fmt.Errorf("runner service is not initialized")
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("no probes configured")
	}

	outcomes := make([]domain.Outcome, 0, len(list))
	var errs []error
	for i, p := range list {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		outcome, err := s.Probe(ctx, p)
		if err != nil {
			errs = append(errs, err)
			s.log.ErrorObj("probe run failed", "probe_error", map[string]any{
				"probe_id": p.ID,
				"error":    err.Error(),
			})
			continue
		}
		outcomes = append(outcomes, outcome)

		if err := s.report(ctx, outcome); err != nil {
			errs = append(errs, err)
		}

		if i < len(list)-1 {
			if err := s.sleep(ctx, p.RequestDelay()); err != nil {
				errs = append(errs, err)
				break
			}
		}
	}
	return outcomes, errors.Join(errs...)
}

// Probe requests one probe and classifies the response with its route
// table. Transport and dispatch failures are recorded in the outcome.
func (s *Service) Probe(ctx context.Context, p probes.Probe) (domain.Outcome, error) {
	table, err := s.table(p)
	if err != nil {
		return domain.Outcome{}, fmt.Errorf("compile routes for probe %s: %w", p.ID, err)
	}

	outcome := domain.Outcome{
		ProbeID:   p.ID,
		ProbeName: p.Name,
		Method:    p.Method,
		URL:       p.URL,
		CheckedAt: s.now().UTC(),
	}

	header := make(http.Header)
	for k, v := range probes.RequestHeaders(p) {
		header.Set(k, v)
	}

	start := s.now()
	resp, err := s.client.Execute(ctx, httpclient.Request{Method: p.Method, URL: p.URL, Header: header})
	if err != nil {
		outcome.LatencyMS = s.now().Sub(start).Milliseconds()
		outcome.Error = err.Error()
		return outcome, nil
	}

	outcome.StatusCode = resp.StatusCode
	outcome.Series = resp.Series().String()
	outcome.ContentType = resp.ContentType().String()

	result, err := table.Dispatch(resp, s.converters)
	outcome.LatencyMS = s.now().Sub(start).Milliseconds()
	outcome.Path = result.Path()
	if capture, ok := result.Value().(routetable.Capture); ok {
		outcome.Captured = capture.Summary
	}
	if err != nil {
		outcome.Error = err.Error()
		return outcome, nil
	}
	outcome.Healthy = true
	return outcome, nil
}

// report publishes outcomes that were not published before and records them.
func (s *Service) report(ctx context.Context, outcome domain.Outcome) error {
	logOutcome := s.log.InfoObj
	if !outcome.Healthy {
		logOutcome = s.log.WarnObj
	}
	logOutcome("probe completed", "probe_outcome", map[string]any{
		"probe_id":   outcome.ProbeID,
		"status":     outcome.StatusCode,
		"path":       outcome.Path,
		"healthy":    outcome.Healthy,
		"error":      outcome.Error,
		"latency_ms": outcome.LatencyMS,
	})

	seen, err := s.store.SeenOutcome(outcome)
	if err != nil {
		return fmt.Errorf("dedupe outcome for probe %s: %w", outcome.ProbeID, err)
	}
	if seen {
		s.log.DebugObj("outcome unchanged; skipping publish", "probe_id", outcome.ProbeID)
		return nil
	}

	var previous *domain.Outcome
	if last, found, err := s.store.LastOutcome(outcome.ProbeID); err != nil {
		s.log.WarnObj("previous outcome unavailable", "probe_error", map[string]any{
			"probe_id": outcome.ProbeID,
			"error":    err.Error(),
		})
	} else if found {
		previous = &last
	}

	if s.publisher != nil {
		if _, err := s.publisher.Publish(ctx, publishers.NewEvent(outcome, previous)); err != nil {
			return fmt.Errorf("publish outcome for probe %s: %w", outcome.ProbeID, err)
		}
	}

	if err := s.store.MarkOutcome(outcome); err != nil {
		return fmt.Errorf("record outcome for probe %s: %w", outcome.ProbeID, err)
	}
	return nil
}

// Compile compiles and caches the route table of every probe, returning all
// compile errors joined.
func (s *Service) Compile(list []probes.Probe) error {
	var errs []error
	for _, p := range list {
		if _, err := s.table(p); err != nil {
			errs = append(errs, fmt.Errorf("compile routes for probe %s: %w", p.ID, err))
		}
	}
	return errors.Join(errs...)
}

func (s *Service) table(p probes.Probe) (*routetable.Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.tables[p.ID]; ok {
		return t, nil
	}
	routes := p.Routes
	if routes.Selector == "" && len(routes.Bindings) == 0 {
		routes = probes.DefaultRoutes()
	}
	t, err := routetable.Compile(routes)
	if err != nil {
		return nil, err
	}
	s.tables[p.ID] = t
	return t, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
