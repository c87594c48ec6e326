package domain

// Actor is the authenticated caller of an admin operation.
type Actor struct {
	ID   string
	Role Role
}

func CanDelete(actor Actor, target *User) error {
	if actor.ID == target.ID {
		return ErrSelfDelete
	}
	if target.Role.IsAdmin() {
		return ErrDeleteAdmin
	}
	return nil
}

func CanSuspend(actor Actor, target *User) error {
	if actor.ID == target.ID {
		return ErrSelfSuspend
	}
	if target.Role.IsAdmin() {
		return ErrSuspendAdmin
	}
	return nil
}

// CanUpdate checks an admin patch against the target's current state.
func CanUpdate(actor Actor, target *User, patch UserPatch) error {
	if patch.Role == nil {
		return nil
	}
	role := *patch.Role
	if !role.Valid() {
		return ErrInvalidRole
	}
	if actor.ID == target.ID && role != target.Role {
		return ErrSelfDemote
	}
	if role.IsAdmin() && target.Suspended {
		return ErrPromoteBanned
	}
	return nil
}
