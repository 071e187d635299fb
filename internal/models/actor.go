package models

// Role is a member's role within a savings group.
type Role string

const (
	RoleMember      Role = "MEMBER"
	RoleOfficer     Role = "OFFICER"
	RoleAdmin       Role = "ADMIN"
	RoleChairperson Role = "CHAIRPERSON"
	RoleSecretary   Role = "SECRETARY"
	RoleTreasurer   Role = "TREASURER"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleMember, RoleOfficer, RoleAdmin, RoleChairperson, RoleSecretary, RoleTreasurer:
		return true
	}
	return false
}

// Actor identifies who is performing an operation.
// It is passed explicitly to every mutating call instead of being read from
// ambient request state.
type Actor struct {
	// UserID is the authenticated user's ID from the auth layer.
	UserID string `json:"user_id"`

	// MemberID is the group membership of the user, if any.
	MemberID string `json:"member_id,omitempty"`

	// GroupID scopes the actor to a single group.
	// An ADMIN with an empty GroupID is a platform administrator.
	GroupID string `json:"group_id,omitempty"`

	Role Role `json:"role"`
}

// IsOfficer reports whether the actor may run meetings and record transactions.
func (a Actor) IsOfficer() bool {
	switch a.Role {
	case RoleOfficer, RoleAdmin, RoleChairperson, RoleSecretary, RoleTreasurer:
		return true
	}
	return false
}

// IsAdmin reports whether the actor may perform irreversible administrative operations.
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin || a.Role == RoleChairperson
}

// IsPlatformAdmin reports whether the actor administers every group.
func (a Actor) IsPlatformAdmin() bool {
	return a.Role == RoleAdmin && a.GroupID == ""
}

// CanAccess reports whether the actor may act on data belonging to groupID.
func (a Actor) CanAccess(groupID string) bool {
	if a.IsPlatformAdmin() {
		return true
	}
	return a.GroupID != "" && a.GroupID == groupID
}
