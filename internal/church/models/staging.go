package models

// StagingResult describes the outcome of an update: which fields landed on the
// live profile immediately and which wait in the pending change set.
type StagingResult struct {
	DirectlyPublished []string `json:"directly_published"`
	StagedForReview   []string `json:"staged_for_review"`
	HasPendingChanges bool     `json:"has_pending_changes"`
	// Warnings carries non-fatal problems (e.g. reviewer notification failed).
	// The update itself succeeded.
	Warnings []string `json:"warnings,omitempty"`
}

// NoChanges reports whether the submission was a no-op.
func (r *StagingResult) NoChanges() bool {
	return len(r.DirectlyPublished) == 0 && len(r.StagedForReview) == 0
}
