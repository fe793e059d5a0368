// Package memory provides an in-memory implementation of the plan persistence
// store used for tests and ephemeral environments.
package memory

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"plancore/pkg/domain"
)

// Compile-time contract assertion ensuring memory.Store adheres to the domain persistence interfaces.
var _ domain.PersistentStore = (*Store)(nil)

type (
	// Plan aliases domain.Plan for in-memory persistence operations.
	Plan = domain.Plan
	// Task aliases domain.Task.
	Task = domain.Task
	// Change aliases domain.Change captured in transactions.
	Change = domain.Change
	// Result aliases domain.Result summarizing rule evaluation.
	Result = domain.Result
	// RulesEngine aliases domain.RulesEngine used to evaluate rules.
	RulesEngine = domain.RulesEngine
	// Transaction aliases domain.Transaction representing a mutable unit of work.
	Transaction = domain.Transaction
	// TransactionView aliases domain.TransactionView providing read-only state.
	TransactionView = domain.TransactionView
	// PersistentStore aliases domain.PersistentStore abstraction.
	PersistentStore = domain.PersistentStore
)

type memoryState struct {
	plans map[string]Plan
}

// Snapshot captures a point-in-time clone of the store state.
type Snapshot struct {
	Plans map[string]Plan `json:"plans"`
}

func newMemoryState() memoryState {
	return memoryState{plans: make(map[string]Plan)}
}

func snapshotFromMemoryState(state memoryState) Snapshot {
	s := Snapshot{Plans: make(map[string]Plan, len(state.plans))}
	for k, v := range state.plans {
		s.Plans[k] = clonePlan(v)
	}
	return s
}

func memoryStateFromSnapshot(s Snapshot) memoryState {
	state := newMemoryState()
	for k, v := range s.Plans {
		state.plans[k] = clonePlan(v)
	}
	return state
}

// migrateSnapshot heals snapshots written by older builds: nil maps become
// empty, item numbers are re-densified, and derived totals are recomputed so
// hydrated state always satisfies the consistency rules.
func migrateSnapshot(snapshot Snapshot) Snapshot {
	if snapshot.Plans == nil {
		snapshot.Plans = map[string]Plan{}
	}
	for id, plan := range snapshot.Plans {
		if plan.ID == "" {
			plan.ID = id
		}
		if plan.Tasks == nil {
			plan.Tasks = []Task{}
		}
		domain.RenumberTasks(plan.Tasks)
		plan.Reaggregate()
		snapshot.Plans[id] = plan
	}
	return snapshot
}

func (s memoryState) clone() memoryState {
	cloned := newMemoryState()
	for k, v := range s.plans {
		cloned.plans[k] = clonePlan(v)
	}
	return cloned
}

func clonePlan(p Plan) Plan {
	cp := p
	if p.Tasks != nil {
		cp.Tasks = make([]Task, len(p.Tasks))
		for i, t := range p.Tasks {
			cp.Tasks[i] = cloneTask(t)
		}
	}
	return cp
}

func cloneTask(t Task) Task {
	cp := t
	if t.AgreedDate != nil {
		d := *t.AgreedDate
		cp.AgreedDate = &d
	}
	if t.ActualDate != nil {
		d := *t.ActualDate
		cp.ActualDate = &d
	}
	if t.Evidence != nil {
		cp.Evidence = append([]domain.Evidence(nil), t.Evidence...)
	}
	if t.Recommendation != nil {
		rec := *t.Recommendation
		rec.Suggestions = append([]string(nil), t.Recommendation.Suggestions...)
		cp.Recommendation = &rec
	}
	if t.Trace != nil {
		tr := *t.Trace
		cp.Trace = &tr
	}
	return cp
}

// Store provides an in-memory transactional store for plan aggregates.
type Store struct {
	mu     sync.RWMutex
	state  memoryState
	engine *RulesEngine
	nowFn  func() time.Time
}

// NewStore constructs an in-memory store backed by the provided rules engine.
func NewStore(engine *RulesEngine) *Store {
	if engine == nil {
		engine = domain.NewRulesEngine()
	}
	return &Store{
		state:  newMemoryState(),
		engine: engine,
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) newID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b[:])
}

// ExportState clones the current store state for external persistence.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshotFromMemoryState(s.state)
}

// ImportState replaces the store state with the provided snapshot.
func (s *Store) ImportState(snapshot Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = memoryStateFromSnapshot(migrateSnapshot(snapshot))
}

// RulesEngine exposes the currently configured engine.
func (s *Store) RulesEngine() *RulesEngine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

// NowFunc returns the time provider used by the in-memory store.
func (s *Store) NowFunc() func() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nowFn
}

// SetNowFunc overrides the time provider. Intended for deterministic tests.
func (s *Store) SetNowFunc(fn func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if fn != nil {
		s.nowFn = fn
	}
}

// transaction represents a mutation set applied to the store state.
type transaction struct {
	store   *Store
	state   memoryState
	changes []Change
	now     time.Time
}

// transactionView exposes a read-only snapshot of the transactional state to rules.
type transactionView struct {
	state *memoryState
}

func newTransactionView(state *memoryState) TransactionView {
	return transactionView{state: state}
}

// ListPlans returns all plans within the transaction snapshot.
func (v transactionView) ListPlans() []Plan {
	out := make([]Plan, 0, len(v.state.plans))
	for _, p := range v.state.plans {
		out = append(out, clonePlan(p))
	}
	return out
}

// FindPlan retrieves a plan by ID from the snapshot.
func (v transactionView) FindPlan(id string) (Plan, bool) {
	p, ok := v.state.plans[id]
	if !ok {
		return Plan{}, false
	}
	return clonePlan(p), true
}

// RunInTransaction executes fn within a transactional copy of the store state.
// Registered rules evaluate against the proposed state; blocking violations
// abort the commit.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx Transaction) error) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{
		store: s,
		state: s.state.clone(),
		now:   s.nowFn(),
	}

	if err := fn(tx); err != nil {
		return Result{}, err
	}

	var result Result
	if s.engine != nil {
		view := newTransactionView(&tx.state)
		res, err := s.engine.Evaluate(ctx, view, tx.changes)
		if err != nil {
			return Result{}, err
		}
		result = res
		if res.HasBlocking() {
			return res, domain.RuleViolationError{Result: res}
		}
	}

	s.state = tx.state
	return result, nil
}

// View executes fn against a read-only snapshot of the store state.
func (s *Store) View(_ context.Context, fn func(TransactionView) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := s.state.clone()
	view := newTransactionView(&snapshot)
	return fn(view)
}

func (tx *transaction) recordChange(change Change) {
	tx.changes = append(tx.changes, change)
}

// Snapshot returns a read-only view over the transactional state.
func (tx *transaction) Snapshot() TransactionView {
	return newTransactionView(&tx.state)
}

// FindPlan exposes plan lookup within the transaction scope.
func (tx *transaction) FindPlan(id string) (Plan, bool) {
	p, ok := tx.state.plans[id]
	if !ok {
		return Plan{}, false
	}
	return clonePlan(p), true
}

// CreatePlan stores a new plan aggregate within the transaction.
func (tx *transaction) CreatePlan(p Plan) (Plan, error) {
	if p.ID == "" {
		p.ID = tx.store.newID()
	}
	if _, exists := tx.state.plans[p.ID]; exists {
		return Plan{}, fmt.Errorf("plan %q already exists", p.ID)
	}
	p.CreatedAt = tx.now
	p.UpdatedAt = tx.now
	if p.Tasks == nil {
		p.Tasks = []Task{}
	}
	after, err := domain.NewChangePayloadFromValue(p)
	if err != nil {
		return Plan{}, fmt.Errorf("encode plan: %w", err)
	}
	tx.state.plans[p.ID] = clonePlan(p)
	tx.recordChange(Change{Entity: domain.EntityPlan, Action: domain.ActionCreate, Before: domain.UndefinedChangePayload(), After: after})
	return clonePlan(p), nil
}

// UpdatePlan mutates a plan using the provided mutator function.
func (tx *transaction) UpdatePlan(id string, mutator func(*Plan) error) (Plan, error) {
	current, ok := tx.state.plans[id]
	if !ok {
		return Plan{}, domain.NotFoundError{Entity: domain.EntityPlan, ID: id}
	}
	beforePlan := clonePlan(current)
	working := clonePlan(current)
	if err := mutator(&working); err != nil {
		return Plan{}, err
	}
	working.ID = id
	working.CreatedAt = beforePlan.CreatedAt
	working.UpdatedAt = tx.now
	before, err := domain.NewChangePayloadFromValue(beforePlan)
	if err != nil {
		return Plan{}, fmt.Errorf("encode plan: %w", err)
	}
	after, err := domain.NewChangePayloadFromValue(working)
	if err != nil {
		return Plan{}, fmt.Errorf("encode plan: %w", err)
	}
	tx.state.plans[id] = clonePlan(working)
	tx.recordChange(Change{Entity: domain.EntityPlan, Action: domain.ActionUpdate, Before: before, After: after})
	return clonePlan(working), nil
}

// DeletePlan removes a plan aggregate from the transaction state.
func (tx *transaction) DeletePlan(id string) error {
	current, ok := tx.state.plans[id]
	if !ok {
		return domain.NotFoundError{Entity: domain.EntityPlan, ID: id}
	}
	before, err := domain.NewChangePayloadFromValue(clonePlan(current))
	if err != nil {
		return fmt.Errorf("encode plan: %w", err)
	}
	delete(tx.state.plans, id)
	tx.recordChange(Change{Entity: domain.EntityPlan, Action: domain.ActionDelete, Before: before, After: domain.UndefinedChangePayload()})
	return nil
}

// Read helpers ---------------------------------------------------------------

// GetPlan retrieves a plan by ID from committed state.
func (s *Store) GetPlan(id string) (Plan, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.state.plans[id]
	if !ok {
		return Plan{}, false
	}
	return clonePlan(p), true
}

// ListPlans returns all plans from committed state.
func (s *Store) ListPlans() []Plan {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Plan, 0, len(s.state.plans))
	for _, p := range s.state.plans {
		out = append(out, clonePlan(p))
	}
	return out
}
