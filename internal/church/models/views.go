package models

// ProfileDetails is the parish-facing view: the live record plus the open
// change set, if any, so submitters can see what is still awaiting review.
type ProfileDetails struct {
	Profile *ChurchProfile    `json:"profile"`
	Pending *PendingChangeSet `json:"pending_changes,omitempty"`
}

// ReviewQueue is the chancery-facing work list.
type ReviewQueue struct {
	Submitted      []*ChurchProfile    `json:"submitted"`
	HeritageReview []*ChurchProfile    `json:"heritage_review"`
	PendingChanges []*PendingChangeSet `json:"pending_changes"`
}
