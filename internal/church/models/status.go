package models

// ProfileStatus is the review lifecycle state of a church profile.
//
// Normal flow: draft -> pending -> (heritage_review ->) approved.
// heritage_review is skippable when no heritage significance is flagged.
// A reviewer may send a pre-approval profile back to draft. Approved profiles
// never move backward; edits to them route through the staging engine instead.
type ProfileStatus string

const (
	StatusDraft          ProfileStatus = "draft"
	StatusPending        ProfileStatus = "pending"
	StatusHeritageReview ProfileStatus = "heritage_review"
	StatusApproved       ProfileStatus = "approved"
)

// Valid reports whether the status is a known lifecycle state.
func (s ProfileStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusPending, StatusHeritageReview, StatusApproved:
		return true
	}
	return false
}

// CanTransitionTo reports whether the lifecycle permits moving to target.
// Approved-to-approved edits are not a transition; they are handled by staging.
func (s ProfileStatus) CanTransitionTo(target ProfileStatus) bool {
	switch s {
	case StatusDraft:
		return target == StatusPending
	case StatusPending:
		return target == StatusHeritageReview || target == StatusApproved || target == StatusDraft
	case StatusHeritageReview:
		return target == StatusApproved || target == StatusDraft
	case StatusApproved:
		return false
	}
	return false
}

// PendingStatus is the resolution state of a pending change set.
// Only open sets are actionable.
type PendingStatus string

const (
	PendingOpen     PendingStatus = "open"
	PendingApproved PendingStatus = "approved"
	PendingRejected PendingStatus = "rejected"
)
