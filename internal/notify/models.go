package notify

import "time"

// Audience selects who a notification is for.
type Audience string

const (
	AudienceReviewers Audience = "reviewers"
	AudienceSubmitter Audience = "submitter"
)

// Notification is a review-workflow message. FieldLabels carries human-readable
// labels, never raw field keys, so the message is usable as-is.
type Notification struct {
	Audience    Audience
	ChurchID    string
	ChurchName  string
	FieldLabels []string
	ActorID     string
	Reason      string
	SentAt      time.Time
}

// ReviewRequested builds the reviewer notification emitted after fields are
// staged.
func ReviewRequested(churchID, churchName string, fieldLabels []string, actorID string) Notification {
	return Notification{
		Audience:    AudienceReviewers,
		ChurchID:    churchID,
		ChurchName:  churchName,
		FieldLabels: fieldLabels,
		ActorID:     actorID,
	}
}

// ChangesResolved builds the submitter notification emitted when a pending
// change set is approved or rejected.
func ChangesResolved(churchID, churchName string, fieldLabels []string, reviewerID, reason string) Notification {
	return Notification{
		Audience:    AudienceSubmitter,
		ChurchID:    churchID,
		ChurchName:  churchName,
		FieldLabels: fieldLabels,
		ActorID:     reviewerID,
		Reason:      reason,
	}
}
