package services

// Policy decides whether an authenticated actor may modify a target user's
// account. Injected into the handlers so the rule stays in one place.
type Policy interface {
	CanModify(actorID, targetID string) bool
}

// OwnerPolicy allows a user to modify only their own account.
type OwnerPolicy struct{}

// CanModify implements Policy.
func (OwnerPolicy) CanModify(actorID, targetID string) bool {
	return actorID != "" && actorID == targetID
}
