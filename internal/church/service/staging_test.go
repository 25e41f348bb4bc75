package service

import (
	"context"
	"errors"

	"visita/internal/church/models"
	"visita/internal/notify"
	dErrors "visita/pkg/domain-errors"
)

// =============================================================================
// Staging Engine Tests
// =============================================================================

func (s *ServiceSuite) TestUpdateDraftWritesDirectly() {
	profile := s.createDraft()

	result, err := s.service.ApplyUpdate(s.ctx, s.secretary, profile.ID, &models.UpdateProfileRequest{
		Fields: models.FieldMap{
			"name":    "San Agustin Parish Church",
			"website": "https://sanagustin.ph",
		},
	})
	s.Require().NoError(err)
	s.ElementsMatch([]string{"name", "website"}, result.DirectlyPublished)
	s.Empty(result.StagedForReview)
	s.False(result.HasPendingChanges)

	stored, err := s.profiles.FindByID(s.ctx, profile.ID)
	s.Require().NoError(err)
	s.Equal("San Agustin Parish Church", stored.Fields["name"])
}

func (s *ServiceSuite) TestUpdateApprovedPartitionsFields() {
	profile := s.createApproved()

	result, err := s.service.ApplyUpdate(s.ctx, s.secretary, profile.ID, &models.UpdateProfileRequest{
		Fields: models.FieldMap{
			"contactPhone":         "+63 2 8527 2631",
			"massSchedules":        []any{map[string]any{"day": "Sunday", "time": "08:00"}},
			"name":                 "San Agustin Parish Church",
			"historicalBackground": "Completed in 1607, the oldest stone church in the country.",
		},
	})
	s.Require().NoError(err)
	s.ElementsMatch([]string{"contactPhone", "massSchedules"}, result.DirectlyPublished)
	s.ElementsMatch([]string{"historicalBackground", "name"}, result.StagedForReview)
	s.True(result.HasPendingChanges)

	s.Run("operational fields are live", func() {
		view, err := s.service.PublicProfile(s.ctx, profile.ID)
		s.Require().NoError(err)
		s.Equal("+63 2 8527 2631", view["contactPhone"])
	})

	s.Run("review fields stay off the public record", func() {
		view, err := s.service.PublicProfile(s.ctx, profile.ID)
		s.Require().NoError(err)
		s.Equal("San Agustin Church", view["name"])
		s.NotContains(view, "historicalBackground")
	})

	s.Run("staged values wait in the open change set", func() {
		set, err := s.pending.FindOpenByChurch(s.ctx, profile.ID)
		s.Require().NoError(err)
		s.Equal("San Agustin Parish Church", set.Fields["name"])
	})

	s.Run("reviewers are notified with display labels", func() {
		toReviewers := s.notifier.byAudience(notify.AudienceReviewers)
		s.Require().NotEmpty(toReviewers)
		last := toReviewers[len(toReviewers)-1]
		s.ElementsMatch([]string{"Church Name", "Historical Background"}, last.FieldLabels)
	})
}

func (s *ServiceSuite) TestRepeatedSubmissionIsNoOp() {
	profile := s.createApproved()
	update := &models.UpdateProfileRequest{
		Fields: models.FieldMap{"contactPhone": "+63 2 8527 2631", "name": "Renamed"},
	}
	first, err := s.service.ApplyUpdate(s.ctx, s.secretary, profile.ID, update)
	s.Require().NoError(err)
	s.False(first.NoChanges())
	notified := len(s.notifier.byAudience(notify.AudienceReviewers))

	// The staged name is not live yet, but it is already recorded in the open
	// set, so an identical resubmission diffs empty.
	second, err := s.service.ApplyUpdate(s.ctx, s.secretary, profile.ID, update)
	s.Require().NoError(err)
	s.True(second.NoChanges())
	s.True(second.HasPendingChanges)

	s.Run("reviewers are not notified twice", func() {
		s.Len(s.notifier.byAudience(notify.AudienceReviewers), notified)
	})

	s.Run("the open set is untouched", func() {
		open, err := s.pending.ListOpen(s.ctx)
		s.Require().NoError(err)
		s.Require().Len(open, 1)
		s.Equal("Renamed", open[0].Fields["name"])
	})

	s.Run("identical operational resubmission changes nothing", func() {
		result, err := s.service.ApplyUpdate(s.ctx, s.secretary, profile.ID, &models.UpdateProfileRequest{
			Fields: models.FieldMap{"contactPhone": "+63 2 8527 2631"},
		})
		s.Require().NoError(err)
		s.True(result.NoChanges())
		s.True(result.HasPendingChanges)
	})
}

func (s *ServiceSuite) TestLaterSubmissionsMergeIntoOpenSet() {
	profile := s.createApproved()

	_, err := s.service.ApplyUpdate(s.ctx, s.secretary, profile.ID, &models.UpdateProfileRequest{
		Fields: models.FieldMap{"patronSaint": "St. Augustine"},
	})
	s.Require().NoError(err)
	_, err = s.service.ApplyUpdate(s.ctx, s.secretary, profile.ID, &models.UpdateProfileRequest{
		Fields: models.FieldMap{"patronSaint": "St. Augustine of Hippo", "foundingYear": 1571},
	})
	s.Require().NoError(err)

	open, err := s.pending.ListOpen(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(open, 1, "second submission must merge, not open a second set")
	s.Equal("St. Augustine of Hippo", open[0].Fields["patronSaint"], "last submission wins")
	s.Equal(float64(1571), open[0].Fields["foundingYear"])
}

func (s *ServiceSuite) TestApprovePendingFoldsFieldsIn() {
	profile := s.createApproved()
	_, err := s.service.ApplyUpdate(s.ctx, s.secretary, profile.ID, &models.UpdateProfileRequest{
		Fields: models.FieldMap{"name": "San Agustin Parish Church"},
	})
	s.Require().NoError(err)
	set, err := s.pending.FindOpenByChurch(s.ctx, profile.ID)
	s.Require().NoError(err)

	resolved, err := s.service.ApprovePending(s.ctx, s.chancery, set.ID)
	s.Require().NoError(err)
	s.Equal(models.PendingApproved, resolved.Status)

	view, err := s.service.PublicProfile(s.ctx, profile.ID)
	s.Require().NoError(err)
	s.Equal("San Agustin Parish Church", view["name"])

	stored, err := s.profiles.FindByID(s.ctx, profile.ID)
	s.Require().NoError(err)
	s.False(stored.HasPendingChanges)

	s.Run("submitter is notified", func() {
		toSubmitter := s.notifier.byAudience(notify.AudienceSubmitter)
		s.Require().NotEmpty(toSubmitter)
		s.ElementsMatch([]string{"Church Name"}, toSubmitter[len(toSubmitter)-1].FieldLabels)
	})

	s.Run("resolution is terminal", func() {
		_, err := s.service.ApprovePending(s.ctx, s.chancery, set.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})
}

func (s *ServiceSuite) TestRejectPendingLeavesProfileUntouched() {
	profile := s.createApproved()
	_, err := s.service.ApplyUpdate(s.ctx, s.secretary, profile.ID, &models.UpdateProfileRequest{
		Fields: models.FieldMap{"name": "Totally Different Name"},
	})
	s.Require().NoError(err)
	set, err := s.pending.FindOpenByChurch(s.ctx, profile.ID)
	s.Require().NoError(err)

	s.Run("reason is required", func() {
		_, err := s.service.RejectPending(s.ctx, s.chancery, set.ID, &models.RejectPendingRequest{})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	resolved, err := s.service.RejectPending(s.ctx, s.chancery, set.ID, &models.RejectPendingRequest{Reason: "no supporting documents"})
	s.Require().NoError(err)
	s.Equal(models.PendingRejected, resolved.Status)
	s.Equal("no supporting documents", resolved.Reason)

	view, err := s.service.PublicProfile(s.ctx, profile.ID)
	s.Require().NoError(err)
	s.Equal("San Agustin Church", view["name"], "rejected values never reach the live record")

	stored, err := s.profiles.FindByID(s.ctx, profile.ID)
	s.Require().NoError(err)
	s.False(stored.HasPendingChanges)

	toSubmitter := s.notifier.byAudience(notify.AudienceSubmitter)
	s.Require().NotEmpty(toSubmitter)
	s.Equal("no supporting documents", toSubmitter[len(toSubmitter)-1].Reason)
}

func (s *ServiceSuite) TestUnknownFieldsAreRejected() {
	profile := s.createApproved()
	_, err := s.service.ApplyUpdate(s.ctx, s.secretary, profile.ID, &models.UpdateProfileRequest{
		Fields: models.FieldMap{"secretAnnex": "yes"},
	})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *ServiceSuite) TestUpdateAuthorization() {
	profile := s.createApproved()

	s.Run("other parish secretary refused", func() {
		outsider := models.Actor{ID: "sec-2", Role: models.RoleParishSecretary, ParishID: "parish-2"}
		_, err := s.service.ApplyUpdate(s.ctx, outsider, profile.ID, &models.UpdateProfileRequest{
			Fields: models.FieldMap{"website": "https://example.com"},
		})
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("empty update rejected", func() {
		_, err := s.service.ApplyUpdate(s.ctx, s.secretary, profile.ID, &models.UpdateProfileRequest{})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *ServiceSuite) TestNotificationFailureIsAWarning() {
	profile := s.createApproved()
	s.notifier.err = errors.New("broker unavailable")

	result, err := s.service.ApplyUpdate(s.ctx, s.secretary, profile.ID, &models.UpdateProfileRequest{
		Fields: models.FieldMap{"name": "Renamed"},
	})
	s.Require().NoError(err, "a failed notification must not fail the update")
	s.ElementsMatch([]string{"name"}, result.StagedForReview)
	s.NotEmpty(result.Warnings)

	set, err := s.pending.FindOpenByChurch(s.ctx, profile.ID)
	s.Require().NoError(err)
	s.Equal("Renamed", set.Fields["name"])
}

// failingPendingStore makes change-set creation fail so the sequential write
// path's split outcome can be observed.
type failingPendingStore struct {
	PendingStore
	createErr error
}

func (f *failingPendingStore) Create(ctx context.Context, cs *models.PendingChangeSet) error {
	if f.createErr != nil {
		return f.createErr
	}
	return f.PendingStore.Create(ctx, cs)
}

func (s *ServiceSuite) TestPartialFailureReportsSplitOutcome() {
	profile := s.createApproved()

	broken := &failingPendingStore{PendingStore: s.pending, createErr: errors.New("connection reset")}
	svc := New(s.profiles, broken, WithNotifier(s.notifier))

	_, err := svc.ApplyUpdate(s.ctx, s.secretary, profile.ID, &models.UpdateProfileRequest{
		Fields: models.FieldMap{
			"contactPhone": "+63 2 8000 0000",
			"name":         "Renamed",
		},
	})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodePartialFailure))

	s.Run("published half is live", func() {
		stored, err := s.profiles.FindByID(s.ctx, profile.ID)
		s.Require().NoError(err)
		s.Equal("+63 2 8000 0000", stored.Fields["contactPhone"])
	})

	s.Run("retry succeeds and the published half diffs empty", func() {
		broken.createErr = nil
		result, err := svc.ApplyUpdate(s.ctx, s.secretary, profile.ID, &models.UpdateProfileRequest{
			Fields: models.FieldMap{
				"contactPhone": "+63 2 8000 0000",
				"name":         "Renamed",
			},
		})
		s.Require().NoError(err)
		s.Empty(result.DirectlyPublished)
		s.ElementsMatch([]string{"name"}, result.StagedForReview)
	})
}
