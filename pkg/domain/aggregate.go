package domain

import "math"

// AggregateTasks recomputes the plan counters and derived overall state from
// the current task list. It is a pure function and the only legitimate source
// for Plan.Totals and Plan.OverallState: callers must re-invoke it after every
// structural or state mutation before persisting.
func AggregateTasks(tasks []Task) (PlanTotals, PlanState) {
	totals := PlanTotals{Total: len(tasks)}
	for _, t := range tasks {
		switch t.State {
		case TaskStateOpen:
			totals.Open++
		case TaskStateInProgress:
			totals.InProgress++
		case TaskStateClosed:
			totals.Closed++
		}
	}
	if totals.Total > 0 {
		totals.PercentClosed = int(math.Round(float64(totals.Closed) * 100 / float64(totals.Total)))
	}

	state := PlanStateOpen
	switch {
	case totals.Total > 0 && totals.Closed == totals.Total:
		state = PlanStateClosed
	case totals.InProgress > 0 || totals.Closed > 0:
		state = PlanStateInProgress
	}
	return totals, state
}

// RenumberTasks rewrites item numbers into a dense 1..N sequence in slice
// order. Item numbers are meaningful to users, so callers must preserve the
// stored ordering before renumbering.
func RenumberTasks(tasks []Task) {
	for i := range tasks {
		tasks[i].ItemNumber = i + 1
	}
}

// Reaggregate applies AggregateTasks to the plan in place.
func (p *Plan) Reaggregate() {
	p.Totals, p.OverallState = AggregateTasks(p.Tasks)
}
