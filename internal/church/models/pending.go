package models

import (
	"time"

	"github.com/google/uuid"

	dErrors "visita/pkg/domain-errors"
)

// PendingChangeSet holds requires-review field edits awaiting chancery
// resolution.
//
// Invariants:
//   - At most one open set exists per church at any time; later submissions
//     merge into the open set instead of creating a second one
//   - Fields contains only requires-review field names
//   - Only open sets may be resolved, and resolution is terminal
type PendingChangeSet struct {
	ID          uuid.UUID     `json:"id"`
	ChurchID    uuid.UUID     `json:"church_id"`
	Fields      FieldMap      `json:"fields"`
	Status      PendingStatus `json:"status"`
	SubmittedBy string        `json:"submitted_by"`
	SubmittedAt time.Time     `json:"submitted_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
	ResolvedBy  string        `json:"resolved_by,omitempty"`
	ResolvedAt  *time.Time    `json:"resolved_at,omitempty"`
	Reason      string        `json:"reason,omitempty"`
}

// NewPendingChangeSet opens a change set for a church.
func NewPendingChangeSet(churchID uuid.UUID, fields FieldMap, submittedBy string, now time.Time) *PendingChangeSet {
	return &PendingChangeSet{
		ID:          uuid.New(),
		ChurchID:    churchID,
		Fields:      fields.Clone(),
		Status:      PendingOpen,
		SubmittedBy: submittedBy,
		SubmittedAt: now,
		UpdatedAt:   now,
	}
}

func (p *PendingChangeSet) IsOpen() bool {
	return p.Status == PendingOpen
}

// Merge folds a later submission into the open set. For a field already
// staged, the last submission wins.
func (p *PendingChangeSet) Merge(fields FieldMap, submittedBy string, now time.Time) {
	if p.Fields == nil {
		p.Fields = FieldMap{}
	}
	p.Fields.Merge(fields)
	p.SubmittedBy = submittedBy
	p.UpdatedAt = now
}

// CanResolve checks whether the set is still actionable.
func (p *PendingChangeSet) CanResolve() error {
	if !p.IsOpen() {
		return dErrors.Newf(dErrors.CodeInvariantViolation, "change set already %s", p.Status)
	}
	return nil
}

// ApplyApproval marks the set approved. The caller is responsible for folding
// the fields into the live profile in the same transaction.
func (p *PendingChangeSet) ApplyApproval(resolvedBy string, now time.Time) {
	p.Status = PendingApproved
	p.ResolvedBy = resolvedBy
	p.ResolvedAt = &now
	p.UpdatedAt = now
}

// ApplyRejection marks the set rejected with the reviewer's reason. The live
// profile is untouched.
func (p *PendingChangeSet) ApplyRejection(resolvedBy, reason string, now time.Time) {
	p.Status = PendingRejected
	p.ResolvedBy = resolvedBy
	p.ResolvedAt = &now
	p.Reason = reason
	p.UpdatedAt = now
}
