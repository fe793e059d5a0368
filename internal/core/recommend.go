package core

import (
	"context"

	"plancore/internal/recommend"
	"plancore/pkg/domain"
	"plancore/pkg/inspection"
)

// Recommend requests action suggestions for one task. Unlike feedback
// emission this call is synchronous and its failure propagates to the caller.
func (s *Service) Recommend(ctx context.Context, planID string, itemNumber int) (recommend.Response, error) {
	var resp recommend.Response
	err := s.run(ctx, "recommend", func(ctx context.Context) (string, error) {
		if s.recommender == nil {
			return planID, domain.ValidationError{Field: "recommender", Reason: "recommendation service is not configured"}
		}
		plan, ok := s.store.GetPlan(planID)
		if !ok {
			return planID, domain.NotFoundError{Entity: domain.EntityPlan, ID: planID}
		}
		var task Task
		found := false
		for _, t := range plan.Tasks {
			if t.ItemNumber == itemNumber {
				task = t
				found = true
				break
			}
		}
		if !found {
			return planID, taskNotFound(planID, itemNumber)
		}

		req := recommend.Request{
			QuestionText:    task.Description,
			CurrentResponse: "0",
			Comment:         task.Description,
			Context: recommend.Context{
				HazardFamily:    task.HazardFamily,
				Area:            plan.AreaFisica,
				Company:         task.Company,
				Vicepresidencia: plan.Vicepresidencia,
			},
		}
		if task.Trace != nil {
			req.QuestionText = task.Trace.QuestionText
			req.Context.SectionTitle = task.Trace.SectionTitle
		}
		var err error
		resp, err = s.recommender.Recommend(ctx, req)
		return planID, err
	})
	return resp, err
}

// InstanceRecommendation pairs one flagged observation with the suggestions
// returned for it.
type InstanceRecommendation struct {
	SectionID    string             `json:"section_id"`
	SectionTitle string             `json:"section_title"`
	QuestionText string             `json:"question_text"`
	Response     recommend.Response `json:"response"`
}

// RecommendInstance batches synchronous recommendation calls for every
// observation of an instance that is eligible under the default policy. The
// first collaborator failure aborts the batch and propagates.
func (s *Service) RecommendInstance(ctx context.Context, instanceID string) ([]InstanceRecommendation, error) {
	var out []InstanceRecommendation
	err := s.run(ctx, "recommend_instance", func(ctx context.Context) (string, error) {
		if s.recommender == nil {
			return instanceID, domain.ValidationError{Field: "recommender", Reason: "recommendation service is not configured"}
		}
		if s.instances == nil || s.templates == nil {
			return instanceID, domain.ValidationError{Field: "repositories", Reason: "instance and template repositories are not configured"}
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
		policy := DefaultEligibilityPolicy()

		for _, section := range inst.Sections {
			title := index[section.SectionID].Title
			for _, q := range section.Questions {
				if !policy.Eligible(q) {
					continue
				}
				resp, err := s.recommender.Recommend(ctx, recommend.Request{
					QuestionText:    q.QuestionText,
					CurrentResponse: q.Response,
					Comment:         q.Comment,
					Context: recommend.Context{
						HazardFamily:    ClassifyHazard(title),
						SectionTitle:    title,
						Area:            verification.AreaFisica,
						Company:         verification.Empresa,
						Vicepresidencia: verification.Vicepresidencia,
					},
				})
				if err != nil {
					return instanceID, err
				}
				out = append(out, InstanceRecommendation{
					SectionID:    section.SectionID,
					SectionTitle: title,
					QuestionText: q.QuestionText,
					Response:     resp,
				})
			}
		}
		return instanceID, nil
	})
	return out, err
}
