package collaboration

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestAccessPredicates(t *testing.T) {
	teamID := uuid.New()
	team := &Team{
		ID:        teamID,
		CreatedBy: "creator",
		Members: []Member{
			{IdentityID: ptr("admin"), Email: "admin@x.com", Role: RoleAdmin},
			{IdentityID: ptr("member"), Email: "member@x.com", Role: RoleMember},
			{Email: "pending@x.com", Role: RoleAdmin},
		},
	}

	tests := []struct {
		name      string
		identity  string
		isMember  bool
		isAdmin   bool
		canAccess bool
	}{
		{"admin", "admin", true, true, true},
		{"member", "member", true, false, true},
		{"creator absent from members", "creator", false, true, true},
		{"outsider", "outsider", false, false, false},
		{"empty identity", "", false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.isMember, IsMember(tt.identity, team))
			assert.Equal(t, tt.isAdmin, IsAdmin(tt.identity, team))
			assert.Equal(t, tt.canAccess, CanAccessProject(tt.identity, teamID, team))
		})
	}
}

func TestIsAdmin_CreatorDemoted(t *testing.T) {
	team := &Team{
		ID:        uuid.New(),
		CreatedBy: "creator",
		Members:   []Member{{IdentityID: ptr("creator"), Email: "c@x.com", Role: RoleMember}},
	}
	assert.False(t, IsAdmin("creator", team))
	assert.True(t, IsMember("creator", team))
}

func TestCanAccessProject_TeamMismatch(t *testing.T) {
	team := &Team{
		ID:      uuid.New(),
		Members: []Member{{IdentityID: ptr("member"), Email: "m@x.com", Role: RoleMember}},
	}
	assert.False(t, CanAccessProject("member", uuid.New(), team))
	assert.False(t, CanAccessProject("member", team.ID, nil))
}

func TestTeam_FindMember(t *testing.T) {
	team := &Team{Members: []Member{
		{IdentityID: ptr("u1"), Email: "ann@x.com"},
		{Email: "bob@x.com"},
	}}

	assert.Equal(t, "ann@x.com", team.FindMember("u1").Email)
	assert.Equal(t, "bob@x.com", team.FindMember("BOB@x.com").Email)
	assert.Nil(t, team.FindMember("u2"))
}
