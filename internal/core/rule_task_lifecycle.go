package core

import (
	"context"
	"fmt"

	"plancore/pkg/domain"
)

// TaskLifecycleRule blocks commits that would persist a task in an invalid
// lifecycle position: an unknown state, or an approved task that is not
// closed with an actual completion date.
func TaskLifecycleRule() domain.Rule {
	return taskLifecycleRule{}
}

type taskLifecycleRule struct{}

func (taskLifecycleRule) Name() string { return "task_lifecycle" }

func (taskLifecycleRule) Evaluate(_ context.Context, _ domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, change := range changes {
		if change.Entity != domain.EntityPlan {
			continue
		}
		plan, ok := decodeChangePayload[domain.Plan](change.After)
		if !ok {
			continue
		}
		for _, task := range plan.Tasks {
			if !domain.ValidTaskState(task.State) {
				res.Violations = append(res.Violations, domain.Violation{
					Rule:     "task_lifecycle",
					Severity: domain.SeverityBlock,
					Message:  fmt.Sprintf("task %d of plan %s has invalid state %q", task.ItemNumber, plan.ID, task.State),
					Entity:   domain.EntityTask,
					EntityID: plan.ID,
				})
				continue
			}
			if !task.Approved {
				continue
			}
			if task.State != domain.TaskStateClosed {
				res.Violations = append(res.Violations, domain.Violation{
					Rule:     "task_lifecycle",
					Severity: domain.SeverityBlock,
					Message:  fmt.Sprintf("task %d of plan %s is approved but not closed", task.ItemNumber, plan.ID),
					Entity:   domain.EntityTask,
					EntityID: plan.ID,
				})
			}
			if task.ActualDate == nil {
				res.Violations = append(res.Violations, domain.Violation{
					Rule:     "task_lifecycle",
					Severity: domain.SeverityBlock,
					Message:  fmt.Sprintf("task %d of plan %s is approved without an actual completion date", task.ItemNumber, plan.ID),
					Entity:   domain.EntityTask,
					EntityID: plan.ID,
				})
			}
		}
	}
	return res, nil
}
