package domain

import "context"

// Transaction exposes the domain operations that a persistence implementation
// must support within an atomic scope. The plan aggregate is the unit of
// atomicity: tasks are only reachable through their owning plan.
type Transaction interface {
	Snapshot() TransactionView
	CreatePlan(Plan) (Plan, error)
	UpdatePlan(id string, mutator func(*Plan) error) (Plan, error)
	DeletePlan(id string) error
	FindPlan(id string) (Plan, bool)
}

// TransactionView provides read-only access to snapshot data for rules.
type TransactionView interface {
	ListPlans() []Plan
	FindPlan(id string) (Plan, bool)
}

// PersistentStore is a minimal abstraction over durable backends. It mirrors
// the subset of store capabilities used directly by higher layers.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error)
	View(ctx context.Context, fn func(TransactionView) error) error
	GetPlan(id string) (Plan, bool)
	ListPlans() []Plan
}
