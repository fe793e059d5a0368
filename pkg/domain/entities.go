// Package domain defines the core persistent entities, value types, and
// rule evaluation primitives used by plancore.
package domain

import "time"

// EntityType identifies the type of record stored in the core domain.
type EntityType string

// Supported entity type identifiers used in Change records and persistence buckets.
const (
	// EntityPlan identifies an action-plan aggregate record.
	EntityPlan EntityType = "plan"
	// EntityTask identifies a remediation task owned by a plan.
	EntityTask EntityType = "task"
)

// TaskState represents the canonical remediation task lifecycle states.
type TaskState string

// Canonical task states used for transition and aggregation rule evaluation.
const (
	// TaskStateOpen indicates a task that has been raised but not started.
	TaskStateOpen TaskState = "open"
	// TaskStateInProgress indicates remediation work is underway.
	TaskStateInProgress TaskState = "in_progress"
	// TaskStateClosed indicates the remediation has been completed.
	TaskStateClosed TaskState = "closed"
)

// PlanState is the overall plan state derived from the owned task states.
// It is never stored independently of the aggregator output.
type PlanState string

// Derived plan states.
const (
	PlanStateOpen       PlanState = "open"
	PlanStateInProgress PlanState = "in_progress"
	PlanStateClosed     PlanState = "closed"
)

// Severity captures rule outcomes.
type Severity string

// Rule evaluation severities determine commit behavior and logging.
const (
	// SeverityBlock blocks transaction commit.
	SeverityBlock Severity = "block"
	// SeverityWarn logs a warning but allows commit.
	SeverityWarn Severity = "warn"
	SeverityLog  Severity = "log"
)

// Base contains common fields for all domain records.
type Base struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PlanTotals aggregates task counters for a plan. The stored values must
// always equal the output of AggregateTasks over the current task list.
type PlanTotals struct {
	Total         int `json:"total"`
	Open          int `json:"open"`
	InProgress    int `json:"in_progress"`
	Closed        int `json:"closed"`
	PercentClosed int `json:"percent_closed"`
}

// Plan is the remediation container for one inspection instance. It owns an
// ordered list of tasks whose item numbers form a dense 1..N sequence.
type Plan struct {
	Base
	InstanceID             string     `json:"instance_id"`
	Vicepresidencia        string     `json:"vicepresidencia"`
	SuperintendenciaSenior string     `json:"superintendencia_senior,omitempty"`
	Superintendencia       string     `json:"superintendencia,omitempty"`
	AreaFisica             string     `json:"area_fisica"`
	Tasks                  []Task     `json:"tasks"`
	Totals                 PlanTotals `json:"totals"`
	OverallState           PlanState  `json:"overall_state"`
}

// Task is one corrective action bound to a specific observation. Tasks are
// owned exclusively by their plan and addressed by item number.
type Task struct {
	ItemNumber         int                 `json:"item_number"`
	FindingDate        time.Time           `json:"finding_date"`
	ObservationOwner   string              `json:"observation_owner"`
	Company            string              `json:"company"`
	Location           string              `json:"location"`
	Activity           string              `json:"activity"`
	HazardFamily       string              `json:"hazard_family"`
	Description        string              `json:"description"`
	ProposedAction     string              `json:"proposed_action,omitempty"`
	ClosingResponsible string              `json:"closing_responsible,omitempty"`
	AgreedDate         *time.Time          `json:"agreed_date,omitempty"`
	ActualDate         *time.Time          `json:"actual_date,omitempty"`
	DelayDays          int                 `json:"delay_days"`
	State              TaskState           `json:"state"`
	Approved           bool                `json:"approved"`
	Evidence           []Evidence          `json:"evidence,omitempty"`
	Recommendation     *TaskRecommendation `json:"recommendation,omitempty"`
	Trace              *TaskTrace          `json:"trace,omitempty"`
}

// SystemGenerated reports whether the task carries a traceability block,
// which marks it as created by plan generation and locks its descriptive fields.
func (t Task) SystemGenerated() bool {
	return t.Trace != nil
}

// Evidence is a name + URL pair attached to a task. Both fields must be
// non-blank to be accepted; updates replace the prior list wholesale.
type Evidence struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// TaskRecommendation records how the recommendation service participated in
// the task's proposed action.
type TaskRecommendation struct {
	FromRecommendation bool     `json:"from_recommendation"`
	ChosenIndex        int      `json:"chosen_index"`
	Suggestions        []string `json:"suggestions,omitempty"`
}

// TaskTrace links a system-generated task back to its source observation.
type TaskTrace struct {
	InstanceID   string `json:"instance_id"`
	SectionID    string `json:"section_id"`
	SectionTitle string `json:"section_title"`
	QuestionText string `json:"question_text"`
}

// Change describes a mutation applied to an entity during a transaction.
type Change struct {
	Entity EntityType
	Action Action
	Before ChangePayload
	After  ChangePayload
}

// Action indicates the type of modification performed.
type Action string

// Change actions enumerate supported CRUD operations captured in the change set.
const (
	// ActionCreate indicates an entity was created.
	ActionCreate Action = "create"
	// ActionUpdate indicates an entity was updated.
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Violation reports a failed rule evaluation.
type Violation struct {
	Rule     string
	Severity Severity
	Message  string
	Entity   EntityType
	EntityID string
}

// Result aggregates violations from the rules engine.
type Result struct {
	Violations []Violation
}

// Merge appends violations from another result.
func (r *Result) Merge(other Result) {
	if len(other.Violations) == 0 {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// HasBlocking returns true if the result contains blocking violations.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// RuleViolationError is returned when blocking violations are present.
type RuleViolationError struct {
	Result Result
}

func (e RuleViolationError) Error() string {
	return "transaction blocked by rules"
}
