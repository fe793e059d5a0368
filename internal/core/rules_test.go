package core

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"plancore/pkg/domain"
)

func planChange(t *testing.T, plan domain.Plan) domain.Change {
	t.Helper()
	after, err := domain.NewChangePayloadFromValue(plan)
	if err != nil {
		t.Fatalf("encode plan: %v", err)
	}
	return domain.Change{
		Entity: domain.EntityPlan,
		Action: domain.ActionUpdate,
		Before: domain.UndefinedChangePayload(),
		After:  after,
	}
}

func consistentPlan() domain.Plan {
	plan := domain.Plan{
		InstanceID:      "inst-1",
		Vicepresidencia: "VP Operaciones",
		AreaFisica:      "Chancado Primario",
		Tasks: []domain.Task{
			{ItemNumber: 1, State: domain.TaskStateOpen},
			{ItemNumber: 2, State: domain.TaskStateClosed},
		},
	}
	plan.Reaggregate()
	return plan
}

func TestTaskLifecycleRuleBlocksInvalidState(t *testing.T) {
	plan := consistentPlan()
	plan.Tasks[0].State = "pending"
	res, err := TaskLifecycleRule().Evaluate(context.Background(), nil, []domain.Change{planChange(t, plan)})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !res.HasBlocking() {
		t.Fatalf("invalid state must block")
	}
	if !strings.Contains(res.Violations[0].Message, "pending") {
		t.Fatalf("message must name the state: %+v", res.Violations[0])
	}
}

func TestTaskLifecycleRuleBlocksApprovedNotClosed(t *testing.T) {
	plan := consistentPlan()
	plan.Tasks[0].Approved = true
	res, err := TaskLifecycleRule().Evaluate(context.Background(), nil, []domain.Change{planChange(t, plan)})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	// Open and missing the actual date: two violations.
	if len(res.Violations) != 2 || !res.HasBlocking() {
		t.Fatalf("expected two blocking violations, got %+v", res.Violations)
	}
}

func TestTaskLifecycleRuleAcceptsApprovedClosedTask(t *testing.T) {
	plan := consistentPlan()
	actual := time.Date(2025, 4, 20, 0, 0, 0, 0, time.UTC)
	plan.Tasks[1].Approved = true
	plan.Tasks[1].ActualDate = &actual
	res, err := TaskLifecycleRule().Evaluate(context.Background(), nil, []domain.Change{planChange(t, plan)})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(res.Violations) != 0 {
		t.Fatalf("approved closed task with actual date is valid: %+v", res.Violations)
	}
}

func TestPlanConsistencyRuleBlocksSparseNumbering(t *testing.T) {
	plan := consistentPlan()
	plan.Tasks[1].ItemNumber = 5
	res, err := PlanConsistencyRule().Evaluate(context.Background(), nil, []domain.Change{planChange(t, plan)})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !res.HasBlocking() {
		t.Fatalf("sparse numbering must block")
	}
}

func TestPlanConsistencyRuleBlocksStaleTotals(t *testing.T) {
	plan := consistentPlan()
	plan.Totals.Closed = 0
	plan.Totals.PercentClosed = 0
	res, err := PlanConsistencyRule().Evaluate(context.Background(), nil, []domain.Change{planChange(t, plan)})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !res.HasBlocking() {
		t.Fatalf("totals diverging from the task list must block")
	}
}

func TestPlanConsistencyRuleBlocksMissingOrganizationalFields(t *testing.T) {
	plan := consistentPlan()
	plan.Vicepresidencia = " "
	plan.AreaFisica = ""
	res, err := PlanConsistencyRule().Evaluate(context.Background(), nil, []domain.Change{planChange(t, plan)})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(res.Violations) != 2 {
		t.Fatalf("expected violations for both fields, got %+v", res.Violations)
	}
}

func TestPlanConsistencyRuleIgnoresDeletes(t *testing.T) {
	plan := consistentPlan()
	plan.Tasks[0].ItemNumber = 9
	before, err := domain.NewChangePayloadFromValue(plan)
	if err != nil {
		t.Fatalf("encode plan: %v", err)
	}
	change := domain.Change{
		Entity: domain.EntityPlan,
		Action: domain.ActionDelete,
		Before: before,
		After:  domain.UndefinedChangePayload(),
	}
	res, err := PlanConsistencyRule().Evaluate(context.Background(), nil, []domain.Change{change})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(res.Violations) != 0 {
		t.Fatalf("delete changes are out of scope: %+v", res.Violations)
	}
}

func TestDefaultRulesEngineBlocksCorruptCommit(t *testing.T) {
	svc := newFixtureService()
	plan := generateFixturePlan(t, svc)

	// Bypass the service helpers and try to commit a corrupted aggregate.
	_, err := svc.Store().RunInTransaction(context.Background(), func(tx Transaction) error {
		_, err := tx.UpdatePlan(plan.ID, func(p *Plan) error {
			p.Tasks[0].State = "weird"
			return nil
		})
		return err
	})
	var violation domain.RuleViolationError
	if !errors.As(err, &violation) {
		t.Fatalf("expected RuleViolationError, got %v", err)
	}

	stored, getErr := svc.GetPlan(context.Background(), plan.ID)
	if getErr != nil {
		t.Fatalf("get plan: %v", getErr)
	}
	if stored.Tasks[0].State != domain.TaskStateOpen {
		t.Fatalf("blocked commit must not change stored state")
	}
}
