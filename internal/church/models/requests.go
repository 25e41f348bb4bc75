package models

import (
	"strings"

	dErrors "visita/pkg/domain-errors"
)

// CreateProfileRequest opens a new draft profile for a parish.
type CreateProfileRequest struct {
	ParishID string   `json:"parish_id"`
	Fields   FieldMap `json:"fields"`
}

func (r *CreateProfileRequest) Normalize() {
	r.ParishID = strings.TrimSpace(r.ParishID)
}

func (r *CreateProfileRequest) Validate() error {
	if r.ParishID == "" {
		return dErrors.New(dErrors.CodeValidation, "parish_id is required")
	}
	return nil
}

// UpdateProfileRequest is a partial update: only the fields present are
// touched. Whether they publish or stage is the staging engine's decision,
// not the caller's.
type UpdateProfileRequest struct {
	Fields FieldMap `json:"fields"`
}

func (r *UpdateProfileRequest) Validate() error {
	if len(r.Fields) == 0 {
		return dErrors.New(dErrors.CodeValidation, "no fields submitted")
	}
	return nil
}

// RejectPendingRequest carries the reviewer's reason for discarding an open
// change set.
type RejectPendingRequest struct {
	Reason string `json:"reason"`
}

func (r *RejectPendingRequest) Normalize() {
	r.Reason = strings.TrimSpace(r.Reason)
}

func (r *RejectPendingRequest) Validate() error {
	if r.Reason == "" {
		return dErrors.New(dErrors.CodeValidation, "reason is required when rejecting changes")
	}
	return nil
}

// SendBackRequest carries the reviewer's reason for returning a submitted
// profile to draft.
type SendBackRequest struct {
	Reason string `json:"reason"`
}

func (r *SendBackRequest) Normalize() {
	r.Reason = strings.TrimSpace(r.Reason)
}
