package core

import (
	"strconv"
	"strings"

	"plancore/pkg/inspection"
)

// EligibilityPolicy decides which answered questions become remediation
// tasks. Zero value is NOT the default policy; use DefaultEligibilityPolicy.
type EligibilityPolicy struct {
	// IncludeScore3 extends eligibility to compliant answers (score 3) that
	// carry a comment.
	IncludeScore3 bool
	// RequireComment demands a non-blank comment on sub-compliant answers.
	RequireComment bool
}

// DefaultEligibilityPolicy returns the production defaults: score-3 answers
// excluded, comments required.
func DefaultEligibilityPolicy() EligibilityPolicy {
	return EligibilityPolicy{RequireComment: true}
}

// Eligible reports whether the answered question must generate a task.
// Not-applicable answers and unparseable responses are never eligible.
func (p EligibilityPolicy) Eligible(q inspection.InstanceQuestion) bool {
	response := strings.TrimSpace(q.Response)
	if response == "" || isNotApplicable(response) {
		return false
	}
	score, err := strconv.ParseFloat(response, 64)
	if err != nil {
		return false
	}
	comment := strings.TrimSpace(q.Comment)
	switch {
	case score < 3:
		return !p.RequireComment || comment != ""
	case score == 3:
		return p.IncludeScore3 && comment != ""
	default:
		return false
	}
}

func isNotApplicable(response string) bool {
	switch strings.ToLower(response) {
	case "n/a", "na", "no aplica":
		return true
	}
	return false
}
