package models

// Role identifies what an actor may do in the review workflow.
type Role string

const (
	RoleParishSecretary  Role = "parish_secretary"
	RoleChanceryReviewer Role = "chancery_reviewer"
	RoleHeritageReviewer Role = "heritage_reviewer"
)

// Actor is the authenticated caller, passed explicitly into every service
// operation. There is no ambient actor state inside the staging engine.
type Actor struct {
	ID       string
	Role     Role
	ParishID string
}

// IsReviewer reports whether the actor holds a review role.
func (a Actor) IsReviewer() bool {
	return a.Role == RoleChanceryReviewer || a.Role == RoleHeritageReviewer
}

// CanEdit reports whether the actor may edit the given profile. Parish
// secretaries are scoped to their own parish; reviewers may edit any profile.
func (a Actor) CanEdit(p *ChurchProfile) bool {
	if a.IsReviewer() {
		return true
	}
	return a.Role == RoleParishSecretary && a.ParishID == p.ParishID
}
