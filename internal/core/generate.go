package core

import (
	"context"
	"strings"

	"plancore/pkg/domain"
	"plancore/pkg/inspection"
)

// GenerateOptions tunes observation eligibility for one generation run. Nil
// fields keep the policy defaults.
type GenerateOptions struct {
	IncludeScore3  *bool
	RequireComment *bool
}

func (o GenerateOptions) policy() EligibilityPolicy {
	p := DefaultEligibilityPolicy()
	if o.IncludeScore3 != nil {
		p.IncludeScore3 = *o.IncludeScore3
	}
	if o.RequireComment != nil {
		p.RequireComment = *o.RequireComment
	}
	return p
}

// GeneratePlan builds and persists one action plan from a completed
// inspection instance. Observations are scanned strictly in stored traversal
// order so item numbers reproduce the section-then-question sequence. Zero
// eligible observations is a ValidationError and nothing is persisted.
func (s *Service) GeneratePlan(ctx context.Context, instanceID string, opts GenerateOptions) (Plan, error) {
	var plan Plan
	err := s.run(ctx, "generate_plan", func(ctx context.Context) (string, error) {
		if s.instances == nil || s.templates == nil {
			return "", domain.ValidationError{Field: "repositories", Reason: "instance and template repositories are not configured"}
		}
		inst, err := s.instances.FindInstance(ctx, instanceID)
		if err != nil {
			return instanceID, err
		}
		tmpl, err := s.templates.FindTemplate(ctx, inst.TemplateID)
		if err != nil {
			return instanceID, err
		}
		verification := inspection.ResolveVerification(inst.VerificationList)
		index := inspection.BuildSectionIndex(tmpl.Sections)
		policy := opts.policy()

		var tasks []Task
		for _, section := range inst.Sections {
			node, known := index[section.SectionID]
			if !known {
				s.logger.Warn("instance section missing from template index",
					"instance_id", inst.ID, "template_id", tmpl.ID, "section_id", section.SectionID)
			}
			title := node.Title
			for _, q := range section.Questions {
				if !policy.Eligible(q) {
					continue
				}
				tasks = append(tasks, buildGeneratedTask(len(tasks)+1, inst, section.SectionID, title, q, verification))
			}
		}
		if len(tasks) == 0 {
			return instanceID, domain.ValidationError{Field: "instance_id", Reason: "no eligible observations"}
		}

		p := Plan{
			InstanceID:             inst.ID,
			Vicepresidencia:        verification.Vicepresidencia,
			SuperintendenciaSenior: verification.SuperintendenciaSenior,
			Superintendencia:       verification.Superintendencia,
			AreaFisica:             verification.AreaFisica,
			Tasks:                  tasks,
		}
		p.Reaggregate()

		_, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			created, err := tx.CreatePlan(p)
			if err != nil {
				return err
			}
			plan = created
			return nil
		})
		if err != nil {
			return instanceID, err
		}
		s.logger.Info("plan generated", "plan_id", plan.ID, "instance_id", inst.ID, "tasks", len(plan.Tasks))
		return plan.ID, nil
	})
	return plan, err
}

// buildGeneratedTask assembles one system-generated task from an eligible
// observation. Proposed action starts blank on purpose; it is completed later,
// optionally assisted by the recommendation service.
func buildGeneratedTask(itemNumber int, inst inspection.Instance, sectionID, sectionTitle string, q inspection.InstanceQuestion, v inspection.Verification) Task {
	description := strings.TrimSpace(q.Comment)
	if description == "" {
		description = q.QuestionText
	}
	return Task{
		ItemNumber:         itemNumber,
		FindingDate:        inst.CreatedAt,
		ObservationOwner:   v.Supervisor,
		Company:            v.Empresa,
		Location:           v.Lugar,
		Activity:           v.AreaFisica,
		HazardFamily:       ClassifyHazard(sectionTitle),
		Description:        description,
		ClosingResponsible: v.Supervisor,
		State:              domain.TaskStateOpen,
		Trace: &domain.TaskTrace{
			InstanceID:   inst.ID,
			SectionID:    sectionID,
			SectionTitle: sectionTitle,
			QuestionText: q.QuestionText,
		},
	}
}
