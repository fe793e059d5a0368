package core

import (
	"context"
	"fmt"
	"strings"

	"plancore/pkg/domain"
)

// PlanConsistencyRule blocks commits of plans whose structure drifted from
// the aggregate invariants: sparse item numbering, stored counters or overall
// state that disagree with the aggregator, or missing organizational fields.
func PlanConsistencyRule() domain.Rule {
	return planConsistencyRule{}
}

type planConsistencyRule struct{}

func (planConsistencyRule) Name() string { return "plan_consistency" }

func (planConsistencyRule) Evaluate(_ context.Context, _ domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, change := range changes {
		if change.Entity != domain.EntityPlan || change.Action == domain.ActionDelete {
			continue
		}
		plan, ok := decodeChangePayload[domain.Plan](change.After)
		if !ok {
			continue
		}
		block := func(msg string) {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "plan_consistency",
				Severity: domain.SeverityBlock,
				Message:  msg,
				Entity:   domain.EntityPlan,
				EntityID: plan.ID,
			})
		}

		if strings.TrimSpace(plan.InstanceID) == "" {
			block(fmt.Sprintf("plan %s has no source instance", plan.ID))
		}
		if strings.TrimSpace(plan.Vicepresidencia) == "" {
			block(fmt.Sprintf("plan %s is missing vicepresidencia", plan.ID))
		}
		if strings.TrimSpace(plan.AreaFisica) == "" {
			block(fmt.Sprintf("plan %s is missing area fisica", plan.ID))
		}
		for i, task := range plan.Tasks {
			if task.ItemNumber != i+1 {
				block(fmt.Sprintf("plan %s item numbering is not dense: position %d holds item %d", plan.ID, i+1, task.ItemNumber))
				break
			}
		}
		totals, overall := domain.AggregateTasks(plan.Tasks)
		if plan.Totals != totals {
			block(fmt.Sprintf("plan %s stored totals diverge from the task list", plan.ID))
		}
		if plan.OverallState != overall {
			block(fmt.Sprintf("plan %s overall state %s does not derive from its tasks (want %s)", plan.ID, plan.OverallState, overall))
		}
	}
	return res, nil
}
