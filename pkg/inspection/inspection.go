// Package inspection defines the read contracts for the inspection
// collaborators (completed instances and their templates) consumed by the
// action-plan engine. The engine only ever reads these records; their CRUD
// lives in other services.
package inspection

import (
	"context"
	"time"
)

// Instance is a completed inspection record with section/question answers.
type Instance struct {
	ID                          string            `json:"id"`
	TemplateID                  string            `json:"template_id"`
	CreatedAt                   time.Time         `json:"created_at"`
	Sections                    []InstanceSection `json:"sections"`
	VerificationList            any               `json:"verification_list"`
	OverallCompliancePercentage float64           `json:"overall_compliance_percentage"`
}

// InstanceSection groups the answered questions of one template section.
type InstanceSection struct {
	SectionID string             `json:"section_id"`
	Questions []InstanceQuestion `json:"questions"`
}

// InstanceQuestion is one answered question. Response is the raw value as
// captured: a numeric score 0-3 or a not-applicable literal.
type InstanceQuestion struct {
	QuestionText string `json:"question_text"`
	Response     string `json:"response"`
	Comment      string `json:"comment,omitempty"`
}

// Template is the section/question definition an instance was answered
// against. Sections nest recursively; grouping nodes carry no questions of
// their own.
type Template struct {
	ID       string            `json:"id"`
	Sections []TemplateSection `json:"sections"`
}

// TemplateSection is one node of the recursive section tree.
type TemplateSection struct {
	ID          string            `json:"id"`
	Title       string            `json:"title"`
	IsParent    bool              `json:"is_parent"`
	Subsections []TemplateSection `json:"subsections,omitempty"`
}

// InstanceRepository looks up completed inspection instances.
type InstanceRepository interface {
	FindInstance(ctx context.Context, id string) (Instance, error)
}

// TemplateRepository looks up inspection templates.
type TemplateRepository interface {
	FindTemplate(ctx context.Context, id string) (Template, error)
}
