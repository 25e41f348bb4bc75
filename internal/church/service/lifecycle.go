package service

import (
	"context"
	"errors"
	"sort"

	"github.com/google/uuid"

	"visita/internal/audit"
	"visita/internal/church/models"
	"visita/internal/notify"
	dErrors "visita/pkg/domain-errors"
	"visita/pkg/platform/sentinel"
)

// CreateProfile opens a draft profile for the actor's parish.
func (s *Service) CreateProfile(ctx context.Context, actor models.Actor, req *models.CreateProfileRequest) (*models.ChurchProfile, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if actor.Role == models.RoleParishSecretary && actor.ParishID != req.ParishID {
		return nil, dErrors.New(dErrors.CodeForbidden, "secretaries may only create a profile for their own parish")
	}

	profile, err := models.NewChurchProfile(uuid.New(), req.ParishID, req.Fields, s.now())
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, dErrors.New(dErrors.CodeValidation, dErrors.MessageOf(err))
		}
		return nil, err
	}

	if err := s.profiles.Create(ctx, profile); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "parish already has a profile")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create profile")
	}

	s.logAudit(ctx, audit.Event{
		ActorID:  actor.ID,
		ChurchID: profile.ID.String(),
		Action:   audit.EventProfileCreated,
	})
	if s.metrics != nil {
		s.metrics.ProfilesCreated.Inc()
	}
	return profile, nil
}

// Submit moves a draft into the chancery review queue.
func (s *Service) Submit(ctx context.Context, actor models.Actor, churchID uuid.UUID) (*models.ChurchProfile, error) {
	profile, err := s.loadProfile(ctx, churchID)
	if err != nil {
		return nil, err
	}
	if !actor.CanEdit(profile) {
		return nil, dErrors.New(dErrors.CodeForbidden, "actor may not submit this profile")
	}
	if err := profile.CanSubmit(); err != nil {
		return nil, err
	}
	profile.ApplySubmit(s.now())
	if err := s.profiles.Update(ctx, profile); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to submit profile")
	}

	s.logAudit(ctx, audit.Event{
		ActorID:  actor.ID,
		ChurchID: profile.ID.String(),
		Action:   audit.EventProfileSubmitted,
	})
	if s.metrics != nil {
		s.metrics.ProfilesSubmitted.Inc()
	}
	s.dispatch(ctx, notify.ReviewRequested(profile.ID.String(), profile.Name(), nil, actor.ID))
	return profile, nil
}

// RouteToHeritageReview escalates a submitted profile to heritage review.
// A reviewer decides; a heritage classification on the profile is only an
// indicator.
func (s *Service) RouteToHeritageReview(ctx context.Context, actor models.Actor, churchID uuid.UUID) (*models.ChurchProfile, error) {
	if !actor.IsReviewer() {
		return nil, dErrors.New(dErrors.CodeForbidden, "only reviewers may route profiles to heritage review")
	}
	profile, err := s.loadProfile(ctx, churchID)
	if err != nil {
		return nil, err
	}
	if err := profile.CanRouteToHeritageReview(); err != nil {
		return nil, err
	}
	profile.ApplyHeritageReview(s.now())
	if err := s.profiles.Update(ctx, profile); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to route profile")
	}

	s.logAudit(ctx, audit.Event{
		ActorID:  actor.ID,
		ChurchID: profile.ID.String(),
		Action:   audit.EventHeritageReview,
	})
	return profile, nil
}

// Approve publishes a profile. From here on, review-sensitive edits go through
// the staging engine and the status never moves backward.
func (s *Service) Approve(ctx context.Context, actor models.Actor, churchID uuid.UUID) (*models.ChurchProfile, error) {
	if !actor.IsReviewer() {
		return nil, dErrors.New(dErrors.CodeForbidden, "only reviewers may approve profiles")
	}
	profile, err := s.loadProfile(ctx, churchID)
	if err != nil {
		return nil, err
	}
	if err := profile.CanApprove(); err != nil {
		return nil, err
	}
	profile.ApplyApproval(s.now())
	if err := s.profiles.Update(ctx, profile); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to approve profile")
	}

	s.invalidateCache(ctx, profile.ID)
	s.logAudit(ctx, audit.Event{
		ActorID:  actor.ID,
		ChurchID: profile.ID.String(),
		Action:   audit.EventProfileApproved,
	})
	if s.metrics != nil {
		s.metrics.ProfilesApproved.Inc()
	}
	return profile, nil
}

// SendBackToDraft returns a submitted or heritage-review profile to the parish
// with the reviewer's reason. Approved profiles never come back.
func (s *Service) SendBackToDraft(ctx context.Context, actor models.Actor, churchID uuid.UUID, req *models.SendBackRequest) (*models.ChurchProfile, error) {
	if !actor.IsReviewer() {
		return nil, dErrors.New(dErrors.CodeForbidden, "only reviewers may send profiles back")
	}
	req.Normalize()
	profile, err := s.loadProfile(ctx, churchID)
	if err != nil {
		return nil, err
	}
	if err := profile.CanSendBack(); err != nil {
		return nil, err
	}
	profile.ApplySendBack(s.now())
	if err := s.profiles.Update(ctx, profile); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to send profile back")
	}

	s.logAudit(ctx, audit.Event{
		ActorID:  actor.ID,
		ChurchID: profile.ID.String(),
		Action:   audit.EventProfileSentBack,
		Reason:   req.Reason,
	})
	s.dispatch(ctx, notify.ChangesResolved(profile.ID.String(), profile.Name(), nil, actor.ID, req.Reason))
	return profile, nil
}

// ApprovePending folds an open change set into the live profile. Resolution
// and the field fold-in happen in one transaction so the public record never
// shows a half-applied set.
func (s *Service) ApprovePending(ctx context.Context, actor models.Actor, setID uuid.UUID) (*models.PendingChangeSet, error) {
	if !actor.IsReviewer() {
		return nil, dErrors.New(dErrors.CodeForbidden, "only reviewers may resolve pending changes")
	}
	set, err := s.loadPendingSet(ctx, setID)
	if err != nil {
		return nil, err
	}
	if err := set.CanResolve(); err != nil {
		return nil, err
	}
	profile, err := s.loadProfile(ctx, set.ChurchID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	set.ApplyApproval(actor.ID, now)
	profile.ApplyFields(set.Fields, now)
	profile.HasPendingChanges = false

	if err := s.writeResolution(ctx, profile, set); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to approve pending changes")
	}

	s.invalidateCache(ctx, profile.ID)
	changed := fieldNames(set.Fields)
	s.logAudit(ctx, audit.Event{
		ActorID:  actor.ID,
		ChurchID: profile.ID.String(),
		Action:   audit.EventPendingApproved,
		Fields:   changed,
	})
	if s.metrics != nil {
		s.metrics.IncrementPendingResolved("approved")
		s.metrics.FieldsPublished.Add(float64(len(changed)))
	}
	s.dispatch(ctx, notify.ChangesResolved(profile.ID.String(), profile.Name(), models.FieldLabels(changed), actor.ID, ""))
	return set, nil
}

// RejectPending discards an open change set with a reason. The live profile
// keeps its current values; only the pending flag is cleared.
func (s *Service) RejectPending(ctx context.Context, actor models.Actor, setID uuid.UUID, req *models.RejectPendingRequest) (*models.PendingChangeSet, error) {
	if !actor.IsReviewer() {
		return nil, dErrors.New(dErrors.CodeForbidden, "only reviewers may resolve pending changes")
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	set, err := s.loadPendingSet(ctx, setID)
	if err != nil {
		return nil, err
	}
	if err := set.CanResolve(); err != nil {
		return nil, err
	}
	profile, err := s.loadProfile(ctx, set.ChurchID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	set.ApplyRejection(actor.ID, req.Reason, now)
	profile.HasPendingChanges = false
	profile.UpdatedAt = now

	if err := s.writeResolution(ctx, profile, set); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to reject pending changes")
	}

	s.logAudit(ctx, audit.Event{
		ActorID:  actor.ID,
		ChurchID: profile.ID.String(),
		Action:   audit.EventPendingRejected,
		Fields:   fieldNames(set.Fields),
		Reason:   req.Reason,
	})
	if s.metrics != nil {
		s.metrics.IncrementPendingResolved("rejected")
	}
	s.dispatch(ctx, notify.ChangesResolved(profile.ID.String(), profile.Name(), models.FieldLabels(fieldNames(set.Fields)), actor.ID, req.Reason))
	return set, nil
}

// ApprovePendingForChurch resolves the church's open change set by applying it.
func (s *Service) ApprovePendingForChurch(ctx context.Context, actor models.Actor, churchID uuid.UUID) (*models.PendingChangeSet, error) {
	set, err := s.openSetForChurch(ctx, churchID)
	if err != nil {
		return nil, err
	}
	return s.ApprovePending(ctx, actor, set.ID)
}

// RejectPendingForChurch resolves the church's open change set by discarding it.
func (s *Service) RejectPendingForChurch(ctx context.Context, actor models.Actor, churchID uuid.UUID, req *models.RejectPendingRequest) (*models.PendingChangeSet, error) {
	set, err := s.openSetForChurch(ctx, churchID)
	if err != nil {
		return nil, err
	}
	return s.RejectPending(ctx, actor, set.ID, req)
}

func (s *Service) openSetForChurch(ctx context.Context, churchID uuid.UUID) (*models.PendingChangeSet, error) {
	set, err := s.pending.FindOpenByChurch(ctx, churchID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "no pending changes for this church")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load pending changes")
	}
	return set, nil
}

// GetProfile returns the parish-facing view of a profile, overlaying the open
// change set when one exists.
func (s *Service) GetProfile(ctx context.Context, actor models.Actor, churchID uuid.UUID) (*models.ProfileDetails, error) {
	profile, err := s.loadProfile(ctx, churchID)
	if err != nil {
		return nil, err
	}
	if !actor.CanEdit(profile) {
		return nil, dErrors.New(dErrors.CodeForbidden, "actor may not view this profile")
	}

	details := &models.ProfileDetails{Profile: profile}
	if profile.HasPendingChanges {
		set, err := s.pending.FindOpenByChurch(ctx, profile.ID)
		if err == nil {
			details.Pending = set
		} else if !errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load pending changes")
		}
	}
	return details, nil
}

// GetProfileByParish resolves a parish's profile for the parish dashboard.
func (s *Service) GetProfileByParish(ctx context.Context, actor models.Actor, parishID string) (*models.ProfileDetails, error) {
	profile, err := s.profiles.FindByParish(ctx, parishID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "church profile not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load profile")
	}
	return s.GetProfile(ctx, actor, profile.ID)
}

// PublicProfile returns the approved public view. Staged values never appear
// here. Reads go through the published cache when one is configured.
func (s *Service) PublicProfile(ctx context.Context, churchID uuid.UUID) (models.FieldMap, error) {
	if s.cache != nil {
		view, err := s.cache.Get(ctx, churchID)
		if err == nil {
			return view, nil
		}
		if !errors.Is(err, sentinel.ErrNotFound) && s.logger != nil {
			s.logger.WarnContext(ctx, "published view cache read failed", "church_id", churchID, "error", err)
		}
	}

	profile, err := s.loadProfile(ctx, churchID)
	if err != nil {
		return nil, err
	}
	if !profile.IsApproved() {
		return nil, dErrors.New(dErrors.CodeNotFound, "church profile not found")
	}

	view := profile.PublicView()
	if s.cache != nil {
		if err := s.cache.Set(ctx, churchID, view); err != nil && s.logger != nil {
			s.logger.WarnContext(ctx, "published view cache write failed", "church_id", churchID, "error", err)
		}
	}
	return view, nil
}

// ListPublished lists approved profiles for the public directory.
func (s *Service) ListPublished(ctx context.Context) ([]*models.ChurchProfile, error) {
	profiles, err := s.profiles.ListByStatus(ctx, models.StatusApproved)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list published profiles")
	}
	return profiles, nil
}

// ReviewQueue returns the chancery work list: submitted profiles, profiles in
// heritage review, and open change sets on approved profiles.
func (s *Service) ReviewQueue(ctx context.Context, actor models.Actor) (*models.ReviewQueue, error) {
	if !actor.IsReviewer() {
		return nil, dErrors.New(dErrors.CodeForbidden, "only reviewers may read the review queue")
	}

	submitted, err := s.profiles.ListByStatus(ctx, models.StatusPending)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list submitted profiles")
	}
	heritage, err := s.profiles.ListByStatus(ctx, models.StatusHeritageReview)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list heritage-review profiles")
	}
	open, err := s.pending.ListOpen(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list pending changes")
	}
	return &models.ReviewQueue{Submitted: submitted, HeritageReview: heritage, PendingChanges: open}, nil
}

// writeResolution persists a profile and its resolved change set, inside one
// transaction when a runner is configured.
func (s *Service) writeResolution(ctx context.Context, profile *models.ChurchProfile, set *models.PendingChangeSet) error {
	if s.tx != nil {
		return s.tx.RunInTx(ctx, func(txCtx context.Context) error {
			if err := s.profiles.Update(txCtx, profile); err != nil {
				return err
			}
			return s.pending.Update(txCtx, set)
		})
	}
	if err := s.profiles.Update(ctx, profile); err != nil {
		return err
	}
	return s.pending.Update(ctx, set)
}

func (s *Service) loadProfile(ctx context.Context, churchID uuid.UUID) (*models.ChurchProfile, error) {
	profile, err := s.profiles.FindByID(ctx, churchID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "church profile not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load profile")
	}
	return profile, nil
}

func (s *Service) loadPendingSet(ctx context.Context, setID uuid.UUID) (*models.PendingChangeSet, error) {
	set, err := s.pending.FindByID(ctx, setID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "pending change set not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load pending changes")
	}
	return set, nil
}

func fieldNames(m models.FieldMap) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
