package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"plancore/internal/blob"
	"plancore/internal/recommend"
	"plancore/pkg/domain"
)

// TaskInput carries the fields accepted when adding a manual task. Manual
// tasks start open, unapproved, and without a trace block.
type TaskInput struct {
	FindingDate        time.Time
	ObservationOwner   string
	Company            string
	Location           string
	Activity           string
	HazardFamily       string
	Description        string
	ProposedAction     string
	ClosingResponsible string
	AgreedDate         *time.Time
	Recommendation     *domain.TaskRecommendation
}

func (in TaskInput) task() Task {
	t := Task{
		FindingDate:        in.FindingDate,
		ObservationOwner:   in.ObservationOwner,
		Company:            in.Company,
		Location:           in.Location,
		Activity:           in.Activity,
		HazardFamily:       in.HazardFamily,
		Description:        in.Description,
		ProposedAction:     in.ProposedAction,
		ClosingResponsible: in.ClosingResponsible,
		State:              domain.TaskStateOpen,
	}
	if in.AgreedDate != nil {
		d := *in.AgreedDate
		t.AgreedDate = &d
	}
	if in.Recommendation != nil {
		rec := *in.Recommendation
		rec.Suggestions = append([]string(nil), rec.Suggestions...)
		t.Recommendation = &rec
	}
	return t
}

func taskNotFound(planID string, itemNumber int) error {
	return domain.NotFoundError{Entity: domain.EntityTask, ID: fmt.Sprintf("%s/%d", planID, itemNumber)}
}

// AddTask appends a manual task to the plan and renumbers the list.
func (s *Service) AddTask(ctx context.Context, planID string, input TaskInput) (Plan, error) {
	var plan Plan
	err := s.run(ctx, "add_task", func(ctx context.Context) (string, error) {
		task := input.task()
		if err := domain.ValidateNewTask(task); err != nil {
			return planID, err
		}
		_, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
			updated, err := tx.UpdatePlan(planID, func(p *Plan) error {
				p.Tasks = append(p.Tasks, task)
				domain.RenumberTasks(p.Tasks)
				p.Reaggregate()
				return nil
			})
			if err != nil {
				return err
			}
			plan = updated
			return nil
		})
		return planID, err
	})
	return plan, err
}

// UpdateTask applies a partial update to one task, addressed by item number.
// The lifecycle guard validates the merged state before anything persists. A
// committed open to in_progress transition carrying recommendation metadata
// enqueues a feedback record afterwards.
func (s *Service) UpdateTask(ctx context.Context, planID string, itemNumber int, patch TaskPatch) (Plan, error) {
	var plan Plan
	var before, after Task
	err := s.run(ctx, "update_task", func(ctx context.Context) (string, error) {
		_, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
			updated, err := tx.UpdatePlan(planID, func(p *Plan) error {
				idx := -1
				for i := range p.Tasks {
					if p.Tasks[i].ItemNumber == itemNumber {
						idx = i
						break
					}
				}
				if idx < 0 {
					return taskNotFound(planID, itemNumber)
				}
				before = p.Tasks[idx]
				merged, err := domain.ApplyTaskPatch(before, patch)
				if err != nil {
					return err
				}
				p.Tasks[idx] = merged
				after = merged
				p.Reaggregate()
				return nil
			})
			if err != nil {
				return err
			}
			plan = updated
			return nil
		})
		return planID, err
	})
	if err != nil {
		return Plan{}, err
	}
	s.emitTransitionFeedback(plan, before, after)
	return plan, nil
}

// DeleteTask removes one task and renumbers the remainder into a dense 1..N
// sequence.
func (s *Service) DeleteTask(ctx context.Context, planID string, itemNumber int) (Plan, error) {
	var plan Plan
	err := s.run(ctx, "delete_task", func(ctx context.Context) (string, error) {
		_, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
			updated, err := tx.UpdatePlan(planID, func(p *Plan) error {
				idx := -1
				for i := range p.Tasks {
					if p.Tasks[i].ItemNumber == itemNumber {
						idx = i
						break
					}
				}
				if idx < 0 {
					return taskNotFound(planID, itemNumber)
				}
				p.Tasks = append(p.Tasks[:idx], p.Tasks[idx+1:]...)
				domain.RenumberTasks(p.Tasks)
				p.Reaggregate()
				return nil
			})
			if err != nil {
				return err
			}
			plan = updated
			return nil
		})
		return planID, err
	})
	return plan, err
}

// ApproveTask sets the irreversible approval flag on a closed task.
func (s *Service) ApproveTask(ctx context.Context, planID string, itemNumber int) (Plan, error) {
	var plan Plan
	err := s.run(ctx, "approve_task", func(ctx context.Context) (string, error) {
		_, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
			updated, err := tx.UpdatePlan(planID, func(p *Plan) error {
				idx := -1
				for i := range p.Tasks {
					if p.Tasks[i].ItemNumber == itemNumber {
						idx = i
						break
					}
				}
				if idx < 0 {
					return taskNotFound(planID, itemNumber)
				}
				approved, err := domain.Approve(p.Tasks[idx])
				if err != nil {
					return err
				}
				p.Tasks[idx] = approved
				p.Reaggregate()
				return nil
			})
			if err != nil {
				return err
			}
			plan = updated
			return nil
		})
		return planID, err
	})
	return plan, err
}

// AttachEvidence stores an evidence file in the blob backend and appends a
// validated Evidence entry to the task. The URL is presigned when the backend
// supports it. The blob is removed again if the plan update does not commit.
func (s *Service) AttachEvidence(ctx context.Context, planID string, itemNumber int, filename, contentType string, r io.Reader) (Plan, error) {
	var plan Plan
	err := s.run(ctx, "attach_evidence", func(ctx context.Context) (string, error) {
		if s.blobs == nil {
			return planID, domain.ValidationError{Field: "blob store", Reason: "evidence storage is not configured"}
		}
		key := blob.EvidenceKey(planID, itemNumber, filename)
		info, err := s.blobs.Put(ctx, key, r, blob.PutOptions{ContentType: contentType})
		if err != nil {
			return planID, fmt.Errorf("store evidence: %w", err)
		}
		url, err := s.blobs.PresignURL(ctx, key, blob.SignedURLOptions{Method: "GET"})
		if errors.Is(err, blob.ErrUnsupported) {
			url = info.URL
			err = nil
		}
		if err != nil {
			return planID, fmt.Errorf("presign evidence url: %w", err)
		}

		_, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			updated, err := tx.UpdatePlan(planID, func(p *Plan) error {
				idx := -1
				for i := range p.Tasks {
					if p.Tasks[i].ItemNumber == itemNumber {
						idx = i
						break
					}
				}
				if idx < 0 {
					return taskNotFound(planID, itemNumber)
				}
				if p.Tasks[idx].Approved {
					return domain.PreconditionError{Op: "attach evidence", Reason: "task is approved and immutable"}
				}
				entry := Evidence{Name: filename, URL: url}
				filtered, err := domain.FilterEvidence(append(p.Tasks[idx].Evidence, entry))
				if err != nil {
					return err
				}
				p.Tasks[idx].Evidence = filtered
				return nil
			})
			if err != nil {
				return err
			}
			plan = updated
			return nil
		})
		if err != nil {
			if _, cleanupErr := s.blobs.Delete(ctx, key); cleanupErr != nil {
				s.logger.Warn("orphan evidence blob not cleaned up", "key", key, "error", cleanupErr)
			}
			return planID, err
		}
		return planID, nil
	})
	return plan, err
}

// emitTransitionFeedback enqueues a feedback record when a committed update
// moved a task from open to in_progress with recommendation metadata present.
func (s *Service) emitTransitionFeedback(plan Plan, before, after Task) {
	if s.feedback == nil {
		return
	}
	if before.State != domain.TaskStateOpen || after.State != domain.TaskStateInProgress {
		return
	}
	if after.Recommendation == nil {
		return
	}
	payload := recommend.FeedbackPayload{
		Question:        after.Description,
		AssumedResponse: "0",
		Description:     after.Description,
		ChosenAction:    after.ProposedAction,
		HazardFamily:    after.HazardFamily,
		Area:            plan.AreaFisica,
		Company:         after.Company,
		Vicepresidencia: plan.Vicepresidencia,
		FromModel:       after.Recommendation.FromRecommendation,
		ChosenIndex:     after.Recommendation.ChosenIndex,
		Suggestions:     append([]string(nil), after.Recommendation.Suggestions...),
		Score:           0.5,
		Type:            "saved",
	}
	if after.Trace != nil {
		payload.Question = after.Trace.QuestionText
	}
	if after.Recommendation.FromRecommendation {
		payload.Score = 1.0
	}
	s.feedback.Enqueue(payload)
}
