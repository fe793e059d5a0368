package core

import (
	"context"
	"sort"
	"time"

	"plancore/internal/blob"
	"plancore/internal/infra/persistence/memory"
	"plancore/internal/recommend"
	"plancore/pkg/domain"
	"plancore/pkg/inspection"
)

// Recommender is the synchronous surface of the recommendation service.
// Failures propagate to the caller as ExternalServiceError.
type Recommender interface {
	Recommend(ctx context.Context, req recommend.Request) (recommend.Response, error)
}

// FeedbackQueue receives fire-and-forget feedback records after a qualifying
// task transition has been durably persisted.
type FeedbackQueue interface {
	Enqueue(payload recommend.FeedbackPayload)
}

// Service exposes the transactional entrypoints of the action-plan engine.
type Service struct {
	store       PersistentStore
	instances   inspection.InstanceRepository
	templates   inspection.TemplateRepository
	recommender Recommender
	feedback    FeedbackQueue
	blobs       blob.Store
	clock       Clock
	logger      Logger
	metrics     MetricsRecorder
	tracer      Tracer
	audit       AuditRecorder
}

// ServiceOption customizes service construction.
type ServiceOption func(*Service)

// WithClock overrides the wall clock.
func WithClock(clock Clock) ServiceOption {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithLogger attaches a structured logger.
func WithLogger(logger Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetricsRecorder attaches a metrics sink.
func WithMetricsRecorder(metrics MetricsRecorder) ServiceOption {
	return func(s *Service) {
		if metrics != nil {
			s.metrics = metrics
		}
	}
}

// WithTracer attaches a tracer.
func WithTracer(tracer Tracer) ServiceOption {
	return func(s *Service) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// WithAuditRecorder attaches an audit sink.
func WithAuditRecorder(audit AuditRecorder) ServiceOption {
	return func(s *Service) {
		if audit != nil {
			s.audit = audit
		}
	}
}

// WithInstanceRepository wires the inspection instance collaborator required
// by plan generation.
func WithInstanceRepository(repo inspection.InstanceRepository) ServiceOption {
	return func(s *Service) { s.instances = repo }
}

// WithTemplateRepository wires the inspection template collaborator required
// by plan generation.
func WithTemplateRepository(repo inspection.TemplateRepository) ServiceOption {
	return func(s *Service) { s.templates = repo }
}

// WithRecommender wires the synchronous recommendation client.
func WithRecommender(r Recommender) ServiceOption {
	return func(s *Service) { s.recommender = r }
}

// WithFeedbackQueue wires the outbound feedback dispatcher.
func WithFeedbackQueue(q FeedbackQueue) ServiceOption {
	return func(s *Service) { s.feedback = q }
}

// WithBlobStore wires the evidence blob backend.
func WithBlobStore(store blob.Store) ServiceOption {
	return func(s *Service) { s.blobs = store }
}

// NewService constructs a service backed by the supplied store.
func NewService(store PersistentStore, opts ...ServiceOption) *Service {
	s := &Service{
		store:   store,
		clock:   systemClock{},
		logger:  noopLogger{},
		metrics: noopMetrics{},
		tracer:  noopTracer{},
		audit:   noopAudit{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewInMemoryService creates a service over a fresh in-memory store. A nil
// engine gets the default plan rules.
func NewInMemoryService(engine *RulesEngine, opts ...ServiceOption) *Service {
	if engine == nil {
		engine = NewDefaultRulesEngine()
	}
	store := memory.NewStore(engine)
	s := NewService(store, opts...)
	if _, ok := s.clock.(systemClock); !ok {
		store.SetNowFunc(s.clock.Now)
	}
	return s
}

// Store returns the underlying persistent store.
func (s *Service) Store() PersistentStore {
	return s.store
}

// run wraps one service operation with tracing, metrics, logging, and audit.
// fn returns the id of the entity the operation acted on, when known.
func (s *Service) run(ctx context.Context, op string, fn func(ctx context.Context) (string, error)) error {
	ctx, span := s.tracer.Start(ctx, op)
	start := time.Now()
	entityID, err := fn(ctx)
	duration := time.Since(start)
	span.End(err)
	s.metrics.Observe(ctx, op, err == nil, duration)

	entry := AuditEntry{Operation: op, Status: AuditStatusSuccess, EntityID: entityID, At: s.clock.Now().UTC()}
	if err != nil {
		entry.Status = AuditStatusError
		entry.Error = err.Error()
		s.logger.Warn(op+" failed", "entity_id", entityID, "error", err)
	} else {
		s.logger.Debug(op+" completed", "entity_id", entityID, "duration", duration)
	}
	s.audit.Record(ctx, entry)
	return err
}

// GetPlan fetches one plan by id.
func (s *Service) GetPlan(ctx context.Context, id string) (Plan, error) {
	var plan Plan
	err := s.run(ctx, "get_plan", func(context.Context) (string, error) {
		p, ok := s.store.GetPlan(id)
		if !ok {
			return id, domain.NotFoundError{Entity: domain.EntityPlan, ID: id}
		}
		plan = p
		return id, nil
	})
	return plan, err
}

// PlanFilter narrows ListPlans output. Zero-valued fields match everything.
type PlanFilter struct {
	State            PlanState
	Vicepresidencia  string
	Superintendencia string
	AreaFisica       string
}

func (f PlanFilter) matches(p Plan) bool {
	if f.State != "" && p.OverallState != f.State {
		return false
	}
	if f.Vicepresidencia != "" && p.Vicepresidencia != f.Vicepresidencia {
		return false
	}
	if f.Superintendencia != "" && p.Superintendencia != f.Superintendencia {
		return false
	}
	if f.AreaFisica != "" && p.AreaFisica != f.AreaFisica {
		return false
	}
	return true
}

// ListPlans returns plans matching the filter, newest first.
func (s *Service) ListPlans(ctx context.Context, filter PlanFilter) ([]Plan, error) {
	var plans []Plan
	err := s.run(ctx, "list_plans", func(context.Context) (string, error) {
		for _, p := range s.store.ListPlans() {
			if filter.matches(p) {
				plans = append(plans, p)
			}
		}
		sort.Slice(plans, func(i, j int) bool {
			if !plans[i].CreatedAt.Equal(plans[j].CreatedAt) {
				return plans[i].CreatedAt.After(plans[j].CreatedAt)
			}
			return plans[i].ID < plans[j].ID
		})
		return "", nil
	})
	return plans, err
}

// Statistics aggregates plan counters across the whole store.
type Statistics struct {
	Plans                int               `json:"plans"`
	ByState              map[PlanState]int `json:"by_state"`
	AveragePercentClosed float64           `json:"average_percent_closed"`
}

// PlanStatistics computes counts by overall state and the average
// percent-closed across all plans.
func (s *Service) PlanStatistics(ctx context.Context) (Statistics, error) {
	stats := Statistics{ByState: map[PlanState]int{}}
	err := s.run(ctx, "plan_statistics", func(context.Context) (string, error) {
		var percentSum int
		for _, p := range s.store.ListPlans() {
			stats.Plans++
			stats.ByState[p.OverallState]++
			percentSum += p.Totals.PercentClosed
		}
		if stats.Plans > 0 {
			stats.AveragePercentClosed = float64(percentSum) / float64(stats.Plans)
		}
		return "", nil
	})
	return stats, err
}

// DeletePlan removes a plan aggregate; owned tasks go with it.
func (s *Service) DeletePlan(ctx context.Context, id string) error {
	return s.run(ctx, "delete_plan", func(ctx context.Context) (string, error) {
		_, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
			return tx.DeletePlan(id)
		})
		return id, err
	})
}
