package memory

import (
	"context"
	"testing"
	"time"

	"plancore/pkg/domain"
)

func seedPlan() Plan {
	agreed := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	return Plan{
		InstanceID:      "inst-1",
		Vicepresidencia: "Operaciones Mina",
		AreaFisica:      "Chancado Primario",
		Tasks: []Task{
			{
				ItemNumber:       1,
				FindingDate:      time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
				ObservationOwner: "J. Mamani",
				Company:          "Contratista Andina",
				Location:         "Nivel 3800",
				Activity:         "Inspección mensual",
				HazardFamily:     "Orden y limpieza",
				Description:      "Acumulación de material en vía de tránsito",
				State:            domain.TaskStateOpen,
				AgreedDate:       &agreed,
			},
		},
	}
}

func TestCreateAndGetPlan(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()

	var created Plan
	if _, err := store.RunInTransaction(ctx, func(tx Transaction) error {
		var err error
		created, err = tx.CreatePlan(seedPlan())
		return err
	}); err != nil {
		t.Fatalf("create plan: %v", err)
	}
	if created.ID == "" {
		t.Fatalf("expected generated plan id")
	}
	if created.CreatedAt.IsZero() || created.UpdatedAt.IsZero() {
		t.Fatalf("expected timestamps to be stamped")
	}

	got, ok := store.GetPlan(created.ID)
	if !ok {
		t.Fatalf("plan %s not found after commit", created.ID)
	}
	if len(got.Tasks) != 1 || got.Tasks[0].ObservationOwner != "J. Mamani" {
		t.Fatalf("unexpected committed plan: %+v", got)
	}
}

func TestUpdatePlanStampsUpdatedAtAndRecordsChange(t *testing.T) {
	store := NewStore(nil)
	now := time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)
	store.SetNowFunc(func() time.Time { return now })
	ctx := context.Background()

	var created Plan
	if _, err := store.RunInTransaction(ctx, func(tx Transaction) error {
		var err error
		created, err = tx.CreatePlan(seedPlan())
		return err
	}); err != nil {
		t.Fatalf("create: %v", err)
	}

	now = now.Add(48 * time.Hour)
	var updated Plan
	if _, err := store.RunInTransaction(ctx, func(tx Transaction) error {
		var err error
		updated, err = tx.UpdatePlan(created.ID, func(p *Plan) error {
			p.AreaFisica = "Planta Concentradora"
			return nil
		})
		return err
	}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.AreaFisica != "Planta Concentradora" {
		t.Fatalf("mutation not applied: %+v", updated)
	}
	if !updated.UpdatedAt.After(updated.CreatedAt) {
		t.Fatalf("UpdatedAt %v not after CreatedAt %v", updated.UpdatedAt, updated.CreatedAt)
	}
	if !updated.CreatedAt.Equal(created.CreatedAt) {
		t.Fatalf("CreatedAt must be preserved on update")
	}
}

func TestUpdateMissingPlanReturnsNotFound(t *testing.T) {
	store := NewStore(nil)
	_, err := store.RunInTransaction(context.Background(), func(tx Transaction) error {
		_, err := tx.UpdatePlan("missing", func(p *Plan) error { return nil })
		return err
	})
	if !domain.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDeletePlan(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()

	var created Plan
	if _, err := store.RunInTransaction(ctx, func(tx Transaction) error {
		var err error
		created, err = tx.CreatePlan(seedPlan())
		return err
	}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := store.RunInTransaction(ctx, func(tx Transaction) error {
		return tx.DeletePlan(created.ID)
	}); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok := store.GetPlan(created.ID); ok {
		t.Fatalf("plan should be gone after delete")
	}
	if _, err := store.RunInTransaction(ctx, func(tx Transaction) error {
		return tx.DeletePlan(created.ID)
	}); !domain.IsNotFound(err) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}

func TestFailedTransactionLeavesStateUntouched(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()

	var created Plan
	if _, err := store.RunInTransaction(ctx, func(tx Transaction) error {
		var err error
		created, err = tx.CreatePlan(seedPlan())
		return err
	}); err != nil {
		t.Fatalf("create: %v", err)
	}

	wantErr := domain.ValidationError{Field: "x", Reason: "boom"}
	_, err := store.RunInTransaction(ctx, func(tx Transaction) error {
		if _, err := tx.UpdatePlan(created.ID, func(p *Plan) error {
			p.AreaFisica = "should not persist"
			return nil
		}); err != nil {
			return err
		}
		return wantErr
	})
	if !domain.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	got, _ := store.GetPlan(created.ID)
	if got.AreaFisica != "Chancado Primario" {
		t.Fatalf("aborted transaction leaked state: %q", got.AreaFisica)
	}
}

type blockAllRule struct{}

func (blockAllRule) Name() string { return "block_all" }
func (blockAllRule) Evaluate(_ context.Context, _ domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for range changes {
		res.Violations = append(res.Violations, domain.Violation{
			Rule:     "block_all",
			Severity: domain.SeverityBlock,
			Message:  "blocked",
			Entity:   domain.EntityPlan,
		})
	}
	return res, nil
}

func TestBlockingRuleAbortsCommit(t *testing.T) {
	engine := domain.NewRulesEngine()
	engine.Register(blockAllRule{})
	store := NewStore(engine)

	_, err := store.RunInTransaction(context.Background(), func(tx Transaction) error {
		_, err := tx.CreatePlan(seedPlan())
		return err
	})
	if err == nil {
		t.Fatalf("expected rule violation error")
	}
	violation, ok := err.(domain.RuleViolationError)
	if !ok {
		t.Fatalf("expected RuleViolationError, got %T", err)
	}
	if !violation.Result.HasBlocking() {
		t.Fatalf("violation result should be blocking")
	}
	if len(store.ListPlans()) != 0 {
		t.Fatalf("blocked transaction must not commit")
	}
}

func TestCommittedStateIsIsolatedFromCallers(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()

	var created Plan
	if _, err := store.RunInTransaction(ctx, func(tx Transaction) error {
		var err error
		created, err = tx.CreatePlan(seedPlan())
		return err
	}); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, _ := store.GetPlan(created.ID)
	got.Tasks[0].Description = "mutated copy"
	again, _ := store.GetPlan(created.ID)
	if again.Tasks[0].Description == "mutated copy" {
		t.Fatalf("GetPlan must return isolated clones")
	}
}

func TestImportStateMigratesSnapshot(t *testing.T) {
	store := NewStore(nil)

	actual := time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC)
	snapshot := Snapshot{Plans: map[string]Plan{
		"p-1": {
			InstanceID:      "inst-1",
			Vicepresidencia: "Operaciones Mina",
			AreaFisica:      "Chancado Primario",
			Tasks: []Task{
				{ItemNumber: 7, State: domain.TaskStateClosed, ActualDate: &actual},
				{ItemNumber: 9, State: domain.TaskStateOpen},
			},
		},
	}}
	store.ImportState(snapshot)

	got, ok := store.GetPlan("p-1")
	if !ok {
		t.Fatalf("plan id should be healed from map key")
	}
	if got.Tasks[0].ItemNumber != 1 || got.Tasks[1].ItemNumber != 2 {
		t.Fatalf("item numbers must be re-densified, got %d,%d", got.Tasks[0].ItemNumber, got.Tasks[1].ItemNumber)
	}
	if got.Totals.Total != 2 || got.Totals.Closed != 1 || got.Totals.PercentClosed != 50 {
		t.Fatalf("totals must be recomputed on import: %+v", got.Totals)
	}
	if got.OverallState != domain.PlanStateInProgress {
		t.Fatalf("overall state must be derived, got %s", got.OverallState)
	}

	empty := Snapshot{}
	store.ImportState(empty)
	if len(store.ListPlans()) != 0 {
		t.Fatalf("nil plans map should import as empty state")
	}
}

func TestExportStateRoundTrip(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()
	if _, err := store.RunInTransaction(ctx, func(tx Transaction) error {
		_, err := tx.CreatePlan(seedPlan())
		return err
	}); err != nil {
		t.Fatalf("create: %v", err)
	}

	snapshot := store.ExportState()
	other := NewStore(nil)
	other.ImportState(snapshot)
	if len(other.ListPlans()) != 1 {
		t.Fatalf("round-tripped store should hold one plan")
	}
}

func TestViewSeesCommittedState(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()
	if _, err := store.RunInTransaction(ctx, func(tx Transaction) error {
		_, err := tx.CreatePlan(seedPlan())
		return err
	}); err != nil {
		t.Fatalf("create: %v", err)
	}
	var seen int
	if err := store.View(ctx, func(view TransactionView) error {
		seen = len(view.ListPlans())
		return nil
	}); err != nil {
		t.Fatalf("view: %v", err)
	}
	if seen != 1 {
		t.Fatalf("view should see 1 plan, saw %d", seen)
	}
}
