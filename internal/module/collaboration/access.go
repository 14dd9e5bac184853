package collaboration

import "github.com/google/uuid"

// The predicates below are the only authorization gate for team, project
// and task mutations. They take freshly loaded Team state and must not be
// cached across requests.

// IsMember reports whether identityID holds a membership in team.
func IsMember(identityID string, team *Team) bool {
	if team == nil || identityID == "" {
		return false
	}
	return team.MemberByIdentity(identityID) != nil
}

// IsAdmin reports whether identityID holds the admin role in team. The
// creator counts as admin when absent from the member list.
func IsAdmin(identityID string, team *Team) bool {
	if team == nil || identityID == "" {
		return false
	}
	if m := team.MemberByIdentity(identityID); m != nil {
		return m.Role == RoleAdmin
	}
	return team.CreatedBy == identityID
}

// CanAccessProject reports whether identityID may read or mutate a
// project owned by projectTeamID.
func CanAccessProject(identityID string, projectTeamID uuid.UUID, team *Team) bool {
	if team == nil || identityID == "" || team.ID != projectTeamID {
		return false
	}
	return IsMember(identityID, team) || team.CreatedBy == identityID
}
