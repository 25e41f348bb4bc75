package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPendingChangeSetMerge(t *testing.T) {
	now := time.Now()
	churchID := uuid.New()

	set := NewPendingChangeSet(churchID, FieldMap{"name": "New Name"}, "secretary-1", now)
	require.True(t, set.IsOpen())

	// Last submission wins per field; untouched staged fields survive.
	later := now.Add(time.Minute)
	set.Merge(FieldMap{"name": "Newer Name", "foundingYear": 1607.0}, "secretary-2", later)

	assert.Equal(t, "Newer Name", set.Fields["name"])
	assert.Equal(t, 1607.0, set.Fields["foundingYear"])
	assert.Equal(t, "secretary-2", set.SubmittedBy)
	assert.Equal(t, later, set.UpdatedAt)
}

func TestPendingChangeSetResolution(t *testing.T) {
	now := time.Now()

	t.Run("approval is terminal", func(t *testing.T) {
		set := NewPendingChangeSet(uuid.New(), FieldMap{"name": "X"}, "s1", now)
		require.NoError(t, set.CanResolve())

		set.ApplyApproval("reviewer-1", now)
		assert.Equal(t, PendingApproved, set.Status)
		assert.Equal(t, "reviewer-1", set.ResolvedBy)
		require.NotNil(t, set.ResolvedAt)

		require.Error(t, set.CanResolve())
	})

	t.Run("rejection keeps the reason", func(t *testing.T) {
		set := NewPendingChangeSet(uuid.New(), FieldMap{"name": "X"}, "s1", now)
		set.ApplyRejection("reviewer-1", "insufficient evidence for founding year", now)

		assert.Equal(t, PendingRejected, set.Status)
		assert.Equal(t, "insufficient evidence for founding year", set.Reason)
		require.Error(t, set.CanResolve())
	})
}

func TestNewPendingChangeSetClonesFields(t *testing.T) {
	fields := FieldMap{"name": "Original"}
	set := NewPendingChangeSet(uuid.New(), fields, "s1", time.Now())

	fields["name"] = "Mutated"
	assert.Equal(t, "Original", set.Fields["name"])
}
