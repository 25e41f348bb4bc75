package audit

import "time"

// Event is emitted from domain logic to capture key workflow actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Timestamp time.Time
	ActorID   string
	ChurchID  string
	Action    string
	Fields    []string
	Reason    string
	RequestID string
}

// Actions recorded by the church review workflow.
const (
	EventProfileCreated   = "church.profile.created"
	EventProfileSubmitted = "church.profile.submitted"
	EventProfileApproved  = "church.profile.approved"
	EventProfileSentBack  = "church.profile.sent_back"
	EventHeritageReview   = "church.profile.heritage_review"
	EventFieldsPublished  = "church.fields.published"
	EventFieldsStaged     = "church.fields.staged"
	EventPendingApproved  = "church.pending.approved"
	EventPendingRejected  = "church.pending.rejected"
)
