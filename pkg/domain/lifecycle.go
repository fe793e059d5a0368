package domain

import (
	"fmt"
	"strings"
	"time"
)

// TaskPatch describes a partial update to a task. Nil fields are left
// untouched. Delay is derived and therefore absent: it is recomputed from the
// agreed and actual dates on every applied patch.
type TaskPatch struct {
	FindingDate        *time.Time
	ObservationOwner   *string
	Company            *string
	Location           *string
	Activity           *string
	HazardFamily       *string
	Description        *string
	ProposedAction     *string
	ClosingResponsible *string
	AgreedDate         *time.Time
	ActualDate         *time.Time
	State              *TaskState
	Evidence           *[]Evidence
	Recommendation     *TaskRecommendation
}

// lockedFields are the descriptive fields frozen on system-generated tasks.
// Hazard family stays mutable so the classification can be corrected by hand.
var lockedFields = []struct {
	name    string
	touched func(TaskPatch) bool
}{
	{"finding_date", func(p TaskPatch) bool { return p.FindingDate != nil }},
	{"observation_owner", func(p TaskPatch) bool { return p.ObservationOwner != nil }},
	{"company", func(p TaskPatch) bool { return p.Company != nil }},
	{"location", func(p TaskPatch) bool { return p.Location != nil }},
	{"activity", func(p TaskPatch) bool { return p.Activity != nil }},
	{"description", func(p TaskPatch) bool { return p.Description != nil }},
}

var validTransitions = map[TaskState]map[TaskState]struct{}{
	TaskStateOpen:       {TaskStateInProgress: {}},
	TaskStateInProgress: {TaskStateOpen: {}, TaskStateClosed: {}},
	TaskStateClosed:     {TaskStateInProgress: {}},
}

// ValidTaskState reports whether s is a recognised task state.
func ValidTaskState(s TaskState) bool {
	switch s {
	case TaskStateOpen, TaskStateInProgress, TaskStateClosed:
		return true
	}
	return false
}

// ValidTransition reports whether the state machine permits from -> to.
// Approval is checked separately: an approved task permits no transition at all.
func ValidTransition(from, to TaskState) bool {
	if from == to {
		return true
	}
	next, ok := validTransitions[from]
	if !ok {
		return false
	}
	_, ok = next[to]
	return ok
}

// ValidateNewTask checks the descriptive fields required at creation.
func ValidateNewTask(t Task) error {
	var missing []string
	if t.FindingDate.IsZero() {
		missing = append(missing, "finding_date")
	}
	if strings.TrimSpace(t.ObservationOwner) == "" {
		missing = append(missing, "observation_owner")
	}
	if strings.TrimSpace(t.Company) == "" {
		missing = append(missing, "company")
	}
	if strings.TrimSpace(t.Location) == "" {
		missing = append(missing, "location")
	}
	if strings.TrimSpace(t.Activity) == "" {
		missing = append(missing, "activity")
	}
	if strings.TrimSpace(t.HazardFamily) == "" {
		missing = append(missing, "hazard_family")
	}
	if strings.TrimSpace(t.Description) == "" {
		missing = append(missing, "description")
	}
	if len(missing) > 0 {
		return ValidationError{Field: strings.Join(missing, ", "), Reason: "required at task creation"}
	}
	if t.State != "" && !ValidTaskState(t.State) {
		return ValidationError{Field: "state", Reason: fmt.Sprintf("unknown state %q", t.State)}
	}
	return nil
}

// FilterEvidence validates and normalizes an evidence list. Entries that are
// entirely blank are dropped; entries with exactly one blank field are
// malformed and rejected. The returned slice is always a fresh copy.
func FilterEvidence(list []Evidence) ([]Evidence, error) {
	out := make([]Evidence, 0, len(list))
	for i, ev := range list {
		name := strings.TrimSpace(ev.Name)
		url := strings.TrimSpace(ev.URL)
		if name == "" && url == "" {
			continue
		}
		if name == "" || url == "" {
			return nil, ValidationError{Field: fmt.Sprintf("evidence[%d]", i), Reason: "name and url are both required"}
		}
		out = append(out, Evidence{Name: name, URL: url})
	}
	return out, nil
}

// ApplyTaskPatch merges patch into current and validates the result against
// the lifecycle guard. The update is rejected wholesale when the task is
// approved or when a locked descriptive field of a system-generated task is
// touched; state transition preconditions are validated against the proposed
// merged state before anything is persisted. Delay is recomputed from the
// merged dates.
func ApplyTaskPatch(current Task, patch TaskPatch) (Task, error) {
	if current.Approved {
		return Task{}, PreconditionError{Op: "update task", Reason: "task is approved and immutable"}
	}
	if current.SystemGenerated() {
		var offending []string
		for _, f := range lockedFields {
			if f.touched(patch) {
				offending = append(offending, f.name)
			}
		}
		if len(offending) > 0 {
			return Task{}, PreconditionError{Op: "update task", Reason: "field is locked on a system-generated task", Fields: offending}
		}
	}

	merged := current
	if patch.FindingDate != nil {
		merged.FindingDate = *patch.FindingDate
	}
	if patch.ObservationOwner != nil {
		merged.ObservationOwner = *patch.ObservationOwner
	}
	if patch.Company != nil {
		merged.Company = *patch.Company
	}
	if patch.Location != nil {
		merged.Location = *patch.Location
	}
	if patch.Activity != nil {
		merged.Activity = *patch.Activity
	}
	if patch.HazardFamily != nil {
		merged.HazardFamily = *patch.HazardFamily
	}
	if patch.Description != nil {
		merged.Description = *patch.Description
	}
	if patch.ProposedAction != nil {
		merged.ProposedAction = *patch.ProposedAction
	}
	if patch.ClosingResponsible != nil {
		merged.ClosingResponsible = *patch.ClosingResponsible
	}
	if patch.AgreedDate != nil {
		d := *patch.AgreedDate
		merged.AgreedDate = &d
	}
	if patch.ActualDate != nil {
		d := *patch.ActualDate
		merged.ActualDate = &d
	}
	if patch.Recommendation != nil {
		rec := *patch.Recommendation
		rec.Suggestions = append([]string(nil), rec.Suggestions...)
		merged.Recommendation = &rec
	}
	if patch.Evidence != nil {
		filtered, err := FilterEvidence(*patch.Evidence)
		if err != nil {
			return Task{}, err
		}
		merged.Evidence = filtered
	}

	if patch.State != nil {
		if err := validateTransition(current, merged, *patch.State); err != nil {
			return Task{}, err
		}
		merged.State = *patch.State
	}

	merged.DelayDays = DelayDays(merged.AgreedDate, merged.ActualDate)
	return merged, nil
}

// validateTransition checks the preconditions for moving merged (the proposed
// post-patch task) into the target state.
func validateTransition(current, merged Task, to TaskState) error {
	if !ValidTaskState(to) {
		return ValidationError{Field: "state", Reason: fmt.Sprintf("unknown state %q", to)}
	}
	if !ValidTransition(current.State, to) {
		return PreconditionError{Op: "transition task", Reason: fmt.Sprintf("cannot move from %s to %s", current.State, to)}
	}
	switch to {
	case TaskStateInProgress:
		var missing []string
		if strings.TrimSpace(merged.HazardFamily) == "" {
			missing = append(missing, "hazard_family")
		}
		if strings.TrimSpace(merged.ProposedAction) == "" {
			missing = append(missing, "proposed_action")
		}
		if strings.TrimSpace(merged.ClosingResponsible) == "" {
			missing = append(missing, "closing_responsible")
		}
		if merged.AgreedDate == nil {
			missing = append(missing, "agreed_date")
		}
		if len(missing) > 0 {
			return PreconditionError{Op: "transition task", Reason: "fields required before in_progress", Fields: missing}
		}
	case TaskStateClosed:
		if merged.ActualDate == nil {
			return PreconditionError{Op: "transition task", Reason: "actual completion date required before closing", Fields: []string{"actual_date"}}
		}
	}
	return nil
}

// Approve marks the task approved. Approval requires the task to be closed
// with an actual completion date and is irreversible.
func Approve(current Task) (Task, error) {
	if current.Approved {
		return Task{}, PreconditionError{Op: "approve task", Reason: "task is already approved"}
	}
	if current.State != TaskStateClosed {
		return Task{}, PreconditionError{Op: "approve task", Reason: fmt.Sprintf("only closed tasks can be approved, state is %s", current.State)}
	}
	if current.ActualDate == nil {
		return Task{}, PreconditionError{Op: "approve task", Reason: "actual completion date required before approval", Fields: []string{"actual_date"}}
	}
	current.Approved = true
	return current, nil
}
