package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"visita/internal/audit"
	"visita/internal/church/models"
	"visita/internal/notify"
	dErrors "visita/pkg/domain-errors"
	"visita/pkg/platform/sentinel"
)

// ApplyUpdate is the single write path for profile fields. Before approval the
// submitted fields land directly on the record. Once a profile is approved,
// changed fields are partitioned: direct-publish fields update the live record
// immediately while requires-review fields are staged into the church's open
// pending change set, leaving the public record untouched until a reviewer
// resolves them.
func (s *Service) ApplyUpdate(ctx context.Context, actor models.Actor, churchID uuid.UUID, req *models.UpdateProfileRequest) (*models.StagingResult, error) {
	start := s.now()
	defer func() {
		if s.metrics != nil {
			s.metrics.ObserveApplyUpdate(start)
		}
	}()

	if err := req.Validate(); err != nil {
		return nil, err
	}

	profile, err := s.profiles.FindByID(ctx, churchID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "church profile not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load profile")
	}
	if !actor.CanEdit(profile) {
		return nil, dErrors.New(dErrors.CodeForbidden, "actor may not edit this profile")
	}

	submitted, err := req.Fields.Normalize()
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, "invalid field values")
	}
	if err := models.ValidateFields(submitted); err != nil {
		return nil, err
	}

	// Diff against the record the submitter's last update produced: the live
	// fields overlaid with any values already staged for review. A resubmission
	// of an already-staged value diffs empty, so it neither reopens the pending
	// set nor re-notifies reviewers.
	baseline := profile.Fields
	if profile.IsApproved() && profile.HasPendingChanges {
		open, err := s.pending.FindOpenByChurch(ctx, profile.ID)
		switch {
		case err == nil:
			baseline = profile.Fields.Overlay(open.Fields)
		case !errors.Is(err, sentinel.ErrNotFound):
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load pending changes")
		}
	}

	changed := models.Diff(baseline, submitted)
	if len(changed) == 0 {
		return &models.StagingResult{HasPendingChanges: profile.HasPendingChanges}, nil
	}

	if !profile.IsApproved() {
		return s.applyDirect(ctx, actor, profile, submitted, changed)
	}
	return s.applyStaged(ctx, actor, profile, submitted, changed)
}

// applyDirect writes every changed field onto the record. Draft and in-review
// profiles have no public audience, so there is nothing to protect.
func (s *Service) applyDirect(ctx context.Context, actor models.Actor, profile *models.ChurchProfile, submitted models.FieldMap, changed []string) (*models.StagingResult, error) {
	profile.ApplyFields(submitted.Pick(changed), s.now())
	if err := s.profiles.Update(ctx, profile); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update profile")
	}

	s.logAudit(ctx, audit.Event{
		ActorID:  actor.ID,
		ChurchID: profile.ID.String(),
		Action:   audit.EventFieldsPublished,
		Fields:   changed,
	})
	if s.metrics != nil {
		s.metrics.FieldsPublished.Add(float64(len(changed)))
	}
	return &models.StagingResult{
		DirectlyPublished: changed,
		HasPendingChanges: profile.HasPendingChanges,
	}, nil
}

// applyStaged handles the approved-profile path: publish the operational
// fields, stage the review-sensitive ones, and notify reviewers.
func (s *Service) applyStaged(ctx context.Context, actor models.Actor, profile *models.ChurchProfile, submitted models.FieldMap, changed []string) (*models.StagingResult, error) {
	toPublish, toStage := models.Partition(changed)
	now := s.now()

	if len(toPublish) > 0 {
		profile.ApplyFields(submitted.Pick(toPublish), now)
	}
	if len(toStage) > 0 {
		profile.HasPendingChanges = true
		profile.UpdatedAt = now
	}

	staged := submitted.Pick(toStage)
	if s.tx != nil {
		err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
			if err := s.profiles.Update(txCtx, profile); err != nil {
				return err
			}
			if len(toStage) == 0 {
				return nil
			}
			return mergeOrCreatePendingSet(txCtx, s.pending, profile.ID, staged, actor.ID, now)
		})
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to apply update")
		}
	} else {
		if err := s.profiles.Update(ctx, profile); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update profile")
		}
		if len(toStage) > 0 {
			if err := mergeOrCreatePendingSet(ctx, s.pending, profile.ID, staged, actor.ID, now); err != nil {
				// The published half is already live. Report the split so the
				// caller can retry; a retry is safe because the published
				// fields now diff empty.
				if len(toPublish) > 0 {
					return nil, dErrors.Wrapf(err, dErrors.CodePartialFailure,
						"published %d field(s) but staging failed; retry the update", len(toPublish))
				}
				return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to stage fields for review")
			}
		}
	}

	result := &models.StagingResult{
		DirectlyPublished: toPublish,
		StagedForReview:   toStage,
		HasPendingChanges: profile.HasPendingChanges,
	}

	if len(toPublish) > 0 {
		s.invalidateCache(ctx, profile.ID)
		s.logAudit(ctx, audit.Event{
			ActorID:  actor.ID,
			ChurchID: profile.ID.String(),
			Action:   audit.EventFieldsPublished,
			Fields:   toPublish,
		})
		if s.metrics != nil {
			s.metrics.FieldsPublished.Add(float64(len(toPublish)))
		}
	}
	if len(toStage) > 0 {
		s.logAudit(ctx, audit.Event{
			ActorID:  actor.ID,
			ChurchID: profile.ID.String(),
			Action:   audit.EventFieldsStaged,
			Fields:   toStage,
		})
		if s.metrics != nil {
			s.metrics.FieldsStaged.Add(float64(len(toStage)))
		}
		n := notify.ReviewRequested(profile.ID.String(), profile.Name(), models.FieldLabels(toStage), actor.ID)
		if warning := s.dispatch(ctx, n); warning != "" {
			result.Warnings = append(result.Warnings, warning)
		}
	}
	return result, nil
}

// mergeOrCreatePendingSet folds staged fields into the church's open change
// set, creating one when none exists. A concurrent create losing the
// one-open-set race falls back to merging into the winner.
func mergeOrCreatePendingSet(ctx context.Context, store PendingStore, churchID uuid.UUID, staged models.FieldMap, actorID string, now time.Time) error {
	open, err := store.FindOpenByChurch(ctx, churchID)
	if err == nil {
		open.Merge(staged, actorID, now)
		return store.Update(ctx, open)
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return err
	}

	created := models.NewPendingChangeSet(churchID, staged, actorID, now)
	err = store.Create(ctx, created)
	if errors.Is(err, sentinel.ErrConflict) {
		open, findErr := store.FindOpenByChurch(ctx, churchID)
		if findErr != nil {
			return err
		}
		open.Merge(staged, actorID, now)
		return store.Update(ctx, open)
	}
	return err
}
