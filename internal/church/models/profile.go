package models

import (
	"time"

	"github.com/google/uuid"

	dErrors "visita/pkg/domain-errors"
)

// ChurchProfile is the aggregate root for a church's public record.
//
// Invariants:
//   - ParishID is non-empty and immutable after construction
//   - Status is always a valid ProfileStatus
//   - Only approved profiles have a public audience; edits to them go through
//     the staging engine, never directly through Update
//   - HasPendingChanges is true iff an unresolved PendingChangeSet exists
//   - CreatedAt is immutable after construction
//
// # Staging Invariant
//
// A requires-review field on an approved profile MUST NOT change on the live
// record without a chancery action. This is enforced at the service layer
// (ApplyUpdate partitions changed fields) rather than by the store, so every
// write path for approved profiles has to route through the staging engine.
type ChurchProfile struct {
	ID                uuid.UUID     `json:"id"`
	ParishID          string        `json:"parish_id"`
	Status            ProfileStatus `json:"status"`
	Fields            FieldMap      `json:"fields"`
	HasPendingChanges bool          `json:"has_pending_changes"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`
}

// NewChurchProfile constructs a draft profile for a parish.
func NewChurchProfile(id uuid.UUID, parishID string, fields FieldMap, now time.Time) (*ChurchProfile, error) {
	if parishID == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "parish id cannot be empty")
	}
	normalized, err := fields.Normalize()
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, "invalid profile fields")
	}
	if err := ValidateFields(normalized); err != nil {
		return nil, err
	}
	return &ChurchProfile{
		ID:        id,
		ParishID:  parishID,
		Status:    StatusDraft,
		Fields:    normalized,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (p *ChurchProfile) IsApproved() bool {
	return p.Status == StatusApproved
}

// HeritageFlagged reports whether the profile carries a heritage classification
// that typically routes it through heritage review. The reviewer decides; this
// is only an indicator.
func (p *ChurchProfile) HeritageFlagged() bool {
	classification, _ := p.Fields["heritageClassification"].(string)
	return classification != "" && classification != "none"
}

// Name returns the profile's display name, or the parish id when unset.
func (p *ChurchProfile) Name() string {
	if name, ok := p.Fields["name"].(string); ok && name != "" {
		return name
	}
	return p.ParishID
}

// ApplyFields merges submitted fields into the live record. Callers decide
// which fields may land here; the aggregate does not re-partition.
func (p *ChurchProfile) ApplyFields(fields FieldMap, now time.Time) {
	if p.Fields == nil {
		p.Fields = FieldMap{}
	}
	p.Fields.Merge(fields)
	p.UpdatedAt = now
}

// CanSubmit checks if the profile can be submitted for chancery review.
// Use with ApplySubmit in Execute callbacks for proper separation of concerns.
func (p *ChurchProfile) CanSubmit() error {
	if !p.Status.CanTransitionTo(StatusPending) {
		return dErrors.Newf(dErrors.CodeInvariantViolation, "cannot submit a %s profile", p.Status)
	}
	return nil
}

// ApplySubmit transitions the profile to pending review.
func (p *ChurchProfile) ApplySubmit(now time.Time) {
	p.Status = StatusPending
	p.UpdatedAt = now
}

// CanRouteToHeritageReview checks if the profile can enter heritage review.
func (p *ChurchProfile) CanRouteToHeritageReview() error {
	if !p.Status.CanTransitionTo(StatusHeritageReview) {
		return dErrors.Newf(dErrors.CodeInvariantViolation, "cannot route a %s profile to heritage review", p.Status)
	}
	return nil
}

// ApplyHeritageReview transitions the profile to heritage review.
func (p *ChurchProfile) ApplyHeritageReview(now time.Time) {
	p.Status = StatusHeritageReview
	p.UpdatedAt = now
}

// CanApprove checks if the profile can be approved for publication.
func (p *ChurchProfile) CanApprove() error {
	if !p.Status.CanTransitionTo(StatusApproved) {
		return dErrors.Newf(dErrors.CodeInvariantViolation, "cannot approve a %s profile", p.Status)
	}
	return nil
}

// ApplyApproval transitions the profile to approved. From here on edits route
// through the staging engine.
func (p *ChurchProfile) ApplyApproval(now time.Time) {
	p.Status = StatusApproved
	p.UpdatedAt = now
}

// CanSendBack checks if a reviewer may return the profile to draft.
// Only pre-approval profiles can be sent back; approved profiles never move
// backward.
func (p *ChurchProfile) CanSendBack() error {
	if !p.Status.CanTransitionTo(StatusDraft) {
		return dErrors.Newf(dErrors.CodeInvariantViolation, "cannot send a %s profile back to draft", p.Status)
	}
	return nil
}

// ApplySendBack returns the profile to draft.
func (p *ChurchProfile) ApplySendBack(now time.Time) {
	p.Status = StatusDraft
	p.UpdatedAt = now
}

// PublicView returns the approved, publicly visible projection of the profile.
// Staged (unreviewed) values never appear here because they only live in the
// pending change set until resolution.
func (p *ChurchProfile) PublicView() FieldMap {
	return p.Fields.Clone()
}
