package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "visita/pkg/domain-errors"
)

func TestStatusTransitions(t *testing.T) {
	tests := []struct {
		from    ProfileStatus
		to      ProfileStatus
		allowed bool
	}{
		{StatusDraft, StatusPending, true},
		{StatusDraft, StatusApproved, false},
		{StatusDraft, StatusHeritageReview, false},
		{StatusPending, StatusHeritageReview, true},
		{StatusPending, StatusApproved, true}, // heritage review is skippable
		{StatusPending, StatusDraft, true},    // reviewer send-back
		{StatusHeritageReview, StatusApproved, true},
		{StatusHeritageReview, StatusDraft, true},
		{StatusHeritageReview, StatusPending, false},
		{StatusApproved, StatusDraft, false}, // approved never moves backward
		{StatusApproved, StatusPending, false},
		{StatusApproved, StatusHeritageReview, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func newDraft(t *testing.T) *ChurchProfile {
	t.Helper()
	p, err := NewChurchProfile(uuid.New(), "parish-001", FieldMap{"name": "San Agustin Church"}, time.Now())
	require.NoError(t, err)
	return p
}

func TestNewChurchProfile(t *testing.T) {
	t.Run("starts in draft", func(t *testing.T) {
		p := newDraft(t)
		assert.Equal(t, StatusDraft, p.Status)
		assert.False(t, p.HasPendingChanges)
	})

	t.Run("requires a parish id", func(t *testing.T) {
		_, err := NewChurchProfile(uuid.New(), "", nil, time.Now())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})

	t.Run("rejects unknown fields", func(t *testing.T) {
		_, err := NewChurchProfile(uuid.New(), "parish-001", FieldMap{"bogus": 1}, time.Now())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func TestLifecycleTriads(t *testing.T) {
	now := time.Now()

	t.Run("submit draft", func(t *testing.T) {
		p := newDraft(t)
		require.NoError(t, p.CanSubmit())
		p.ApplySubmit(now)
		assert.Equal(t, StatusPending, p.Status)
	})

	t.Run("cannot submit twice", func(t *testing.T) {
		p := newDraft(t)
		p.ApplySubmit(now)
		require.Error(t, p.CanSubmit())
	})

	t.Run("approve from pending skips heritage review", func(t *testing.T) {
		p := newDraft(t)
		p.ApplySubmit(now)
		require.NoError(t, p.CanApprove())
		p.ApplyApproval(now)
		assert.True(t, p.IsApproved())
	})

	t.Run("heritage review then approve", func(t *testing.T) {
		p := newDraft(t)
		p.ApplySubmit(now)
		require.NoError(t, p.CanRouteToHeritageReview())
		p.ApplyHeritageReview(now)
		require.NoError(t, p.CanApprove())
		p.ApplyApproval(now)
		assert.True(t, p.IsApproved())
	})

	t.Run("send back to draft from review states only", func(t *testing.T) {
		p := newDraft(t)
		require.Error(t, p.CanSendBack())

		p.ApplySubmit(now)
		require.NoError(t, p.CanSendBack())
		p.ApplySendBack(now)
		assert.Equal(t, StatusDraft, p.Status)
	})

	t.Run("approved profile cannot be sent back", func(t *testing.T) {
		p := newDraft(t)
		p.ApplySubmit(now)
		p.ApplyApproval(now)
		require.Error(t, p.CanSendBack())
		require.Error(t, p.CanApprove())
	})
}

func TestHeritageFlagged(t *testing.T) {
	p := newDraft(t)
	assert.False(t, p.HeritageFlagged())

	p.Fields["heritageClassification"] = "none"
	assert.False(t, p.HeritageFlagged())

	p.Fields["heritageClassification"] = "national_cultural_treasure"
	assert.True(t, p.HeritageFlagged())
}

func TestPublicViewIsACopy(t *testing.T) {
	p := newDraft(t)
	view := p.PublicView()
	view["name"] = "Tampered"
	assert.Equal(t, "San Agustin Church", p.Fields["name"])
}

func TestActorScoping(t *testing.T) {
	p := newDraft(t)

	secretary := Actor{ID: "u1", Role: RoleParishSecretary, ParishID: "parish-001"}
	otherParish := Actor{ID: "u2", Role: RoleParishSecretary, ParishID: "parish-002"}
	reviewer := Actor{ID: "u3", Role: RoleChanceryReviewer}

	assert.True(t, secretary.CanEdit(p))
	assert.False(t, otherParish.CanEdit(p))
	assert.True(t, reviewer.CanEdit(p))
	assert.True(t, reviewer.IsReviewer())
	assert.False(t, secretary.IsReviewer())
}
