package collaboration

import (
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Role represents a team member's role.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// IsValid checks if the role is valid.
func (r Role) IsValid() bool {
	return r == RoleAdmin || r == RoleMember
}

// DefaultColor is the accent color given to teams created without one.
const DefaultColor = "#3B82F6"

var hexColorPattern = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// IsHexColor reports whether s is a #RGB or #RRGGBB color.
func IsHexColor(s string) bool {
	return hexColorPattern.MatchString(s)
}

// Team represents a collaboration team.
type Team struct {
	ID          uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	Name        string         `json:"name" gorm:"size:50;not null"`
	Description string         `json:"description" gorm:"size:200"`
	Color       string         `json:"color" gorm:"size:7;not null"`
	CreatedBy   string         `json:"created_by" gorm:"not null;index"`
	ProjectIDs  pq.StringArray `json:"projects" gorm:"type:text[];default:'{}'"`
	IsActive    bool           `json:"is_active" gorm:"not null;default:true;index"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`

	// Members are ordered by join time.
	Members []Member `json:"members" gorm:"foreignKey:TeamID"`
}

// TableName returns the database table name.
func (Team) TableName() string {
	return "teams"
}

// MemberByIdentity returns the member with the given identity id, or nil.
func (t *Team) MemberByIdentity(identityID string) *Member {
	if identityID == "" {
		return nil
	}
	for i := range t.Members {
		if id := t.Members[i].IdentityID; id != nil && *id == identityID {
			return &t.Members[i]
		}
	}
	return nil
}

// MemberByEmail returns the member with the given email, or nil.
func (t *Team) MemberByEmail(email string) *Member {
	email = NormalizeEmail(email)
	for i := range t.Members {
		if t.Members[i].Email == email {
			return &t.Members[i]
		}
	}
	return nil
}

// FindMember resolves a member by identity id or email.
func (t *Team) FindMember(target string) *Member {
	if m := t.MemberByIdentity(target); m != nil {
		return m
	}
	if strings.Contains(target, "@") {
		return t.MemberByEmail(target)
	}
	return nil
}

// AdminCount returns the number of members holding the admin role.
func (t *Team) AdminCount() int {
	n := 0
	for _, m := range t.Members {
		if m.Role == RoleAdmin {
			n++
		}
	}
	return n
}

// HasProject reports whether the project index references id.
func (t *Team) HasProject(id uuid.UUID) bool {
	return slices.Contains(t.ProjectIDs, id.String())
}

// Member is a (possibly pending) membership row. A nil IdentityID means
// the member was added by email and has not registered yet.
type Member struct {
	ID         uuid.UUID `json:"-" gorm:"type:uuid;primaryKey"`
	TeamID     uuid.UUID `json:"-" gorm:"type:uuid;not null;uniqueIndex:idx_team_members_email,priority:1;uniqueIndex:idx_team_members_identity,priority:1,where:identity_id IS NOT NULL"`
	IdentityID *string   `json:"identity_id" gorm:"uniqueIndex:idx_team_members_identity,priority:2,where:identity_id IS NOT NULL;index"`
	Name       string    `json:"name" gorm:"not null"`
	Email      string    `json:"email" gorm:"not null;uniqueIndex:idx_team_members_email,priority:2"`
	Role       Role      `json:"role" gorm:"size:16;not null;default:member"`
	JoinedAt   time.Time `json:"joined_at" gorm:"not null"`
}

// TableName returns the database table name.
func (Member) TableName() string {
	return "team_members"
}

// HasIdentity reports whether the member maps to a registered identity.
func (m *Member) HasIdentity() bool {
	return m.IdentityID != nil && *m.IdentityID != ""
}

// MemberInput describes a member to add to a team.
type MemberInput struct {
	IdentityID string
	Name       string
	Email      string
	Role       Role
}

// NormalizeEmail lowercases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
