package core

import (
	"testing"

	"plancore/pkg/inspection"
)

func TestEligibilityDefaults(t *testing.T) {
	policy := DefaultEligibilityPolicy()
	cases := []struct {
		name     string
		question inspection.InstanceQuestion
		want     bool
	}{
		{"low score with comment", inspection.InstanceQuestion{Response: "1", Comment: "baranda suelta"}, true},
		{"zero score with comment", inspection.InstanceQuestion{Response: "0", Comment: "sin señalización"}, true},
		{"low score without comment", inspection.InstanceQuestion{Response: "1"}, false},
		{"low score with blank comment", inspection.InstanceQuestion{Response: "2", Comment: "   "}, false},
		{"score three with comment", inspection.InstanceQuestion{Response: "3", Comment: "desgaste menor"}, false},
		{"not applicable", inspection.InstanceQuestion{Response: "N/A", Comment: "whatever"}, false},
		{"not applicable lowercase", inspection.InstanceQuestion{Response: "n/a"}, false},
		{"no aplica literal", inspection.InstanceQuestion{Response: "No Aplica"}, false},
		{"unparseable", inspection.InstanceQuestion{Response: "pendiente", Comment: "x"}, false},
		{"empty response", inspection.InstanceQuestion{Response: "", Comment: "x"}, false},
		{"score above range", inspection.InstanceQuestion{Response: "4", Comment: "x"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := policy.Eligible(tc.question); got != tc.want {
				t.Fatalf("Eligible(%+v) = %v, want %v", tc.question, got, tc.want)
			}
		})
	}
}

func TestEligibilityIncludeScore3(t *testing.T) {
	policy := EligibilityPolicy{IncludeScore3: true, RequireComment: true}
	if !policy.Eligible(inspection.InstanceQuestion{Response: "3", Comment: "desgaste menor"}) {
		t.Fatalf("score 3 with comment must be eligible when IncludeScore3 is set")
	}
	if policy.Eligible(inspection.InstanceQuestion{Response: "3"}) {
		t.Fatalf("score 3 without comment stays ineligible even with IncludeScore3")
	}
}

func TestEligibilityWithoutCommentRequirement(t *testing.T) {
	policy := EligibilityPolicy{RequireComment: false}
	if !policy.Eligible(inspection.InstanceQuestion{Response: "2"}) {
		t.Fatalf("sub-compliant score without comment must be eligible when comments are optional")
	}
	if policy.Eligible(inspection.InstanceQuestion{Response: "N/A"}) {
		t.Fatalf("not applicable is never eligible")
	}
}

func TestEligibilityDecimalScores(t *testing.T) {
	policy := DefaultEligibilityPolicy()
	if !policy.Eligible(inspection.InstanceQuestion{Response: "2.5", Comment: "parcial"}) {
		t.Fatalf("decimal sub-compliant score with comment must be eligible")
	}
	if policy.Eligible(inspection.InstanceQuestion{Response: "3.5", Comment: "x"}) {
		t.Fatalf("score above 3 is never eligible")
	}
}
