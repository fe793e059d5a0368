// Package core exposes the transactional service layer of the action-plan
// engine: plan generation from completed inspections, task lifecycle
// operations, recommendation calls, and storage driver selection.
package core

import "plancore/pkg/domain"

type (
	Plan            = domain.Plan
	Task            = domain.Task
	TaskPatch       = domain.TaskPatch
	Evidence        = domain.Evidence
	TaskState       = domain.TaskState
	PlanState       = domain.PlanState
	Result          = domain.Result
	RulesEngine     = domain.RulesEngine
	Transaction     = domain.Transaction
	TransactionView = domain.TransactionView
	PersistentStore = domain.PersistentStore
)

// NewRulesEngine constructs an empty rules engine.
func NewRulesEngine() *RulesEngine {
	return domain.NewRulesEngine()
}
