package collaboration

import (
	"time"

	"github.com/google/uuid"
)

// CreateTeamRequest represents a request to create a team.
type CreateTeamRequest struct {
	Name        string `json:"name" binding:"required,min=2,max=50"`
	Description string `json:"description" binding:"max=200"`
	Color       string `json:"color" binding:"omitempty,hexcolor"`
}

// UpdateTeamRequest represents a request to update a team.
type UpdateTeamRequest struct {
	Name        *string `json:"name" binding:"omitempty,min=2,max=50"`
	Description *string `json:"description" binding:"omitempty,max=200"`
	Color       *string `json:"color" binding:"omitempty,hexcolor"`
}

// InviteMemberRequest represents a request to add or invite a member.
type InviteMemberRequest struct {
	Email string `json:"email" binding:"required,email"`
	Role  Role   `json:"role" binding:"omitempty,oneof=admin member"`
}

// UpdateMemberRoleRequest represents a request to update a member's role.
type UpdateMemberRoleRequest struct {
	Role Role `json:"role" binding:"required,oneof=admin member"`
}

// MemberResponse represents a team member in API responses.
type MemberResponse struct {
	IdentityID *string   `json:"identity_id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Role       Role      `json:"role"`
	Pending    bool      `json:"pending"`
	JoinedAt   time.Time `json:"joined_at"`
}

// TeamResponse represents a team in API responses.
type TeamResponse struct {
	ID          uuid.UUID        `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Color       string           `json:"color"`
	CreatedBy   string           `json:"created_by"`
	Members     []MemberResponse `json:"members"`
	Projects    []string         `json:"projects"`
	MemberCount int              `json:"memberCount"`
	IsAdmin     bool             `json:"isAdmin"`
	IsActive    bool             `json:"is_active"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// ToResponse converts a Team to TeamResponse from the viewpoint of callerID.
func (t *Team) ToResponse(callerID string) *TeamResponse {
	members := make([]MemberResponse, len(t.Members))
	for i, m := range t.Members {
		members[i] = MemberResponse{
			IdentityID: m.IdentityID,
			Name:       m.Name,
			Email:      m.Email,
			Role:       m.Role,
			Pending:    !m.HasIdentity(),
			JoinedAt:   m.JoinedAt,
		}
	}
	projects := []string(t.ProjectIDs)
	if projects == nil {
		projects = []string{}
	}

	return &TeamResponse{
		ID:          t.ID,
		Name:        t.Name,
		Description: t.Description,
		Color:       t.Color,
		CreatedBy:   t.CreatedBy,
		Members:     members,
		Projects:    projects,
		MemberCount: len(t.Members),
		IsAdmin:     IsAdmin(callerID, t),
		IsActive:    t.IsActive,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

// InviteType is the outcome of an add-by-email request.
type InviteType string

const (
	InviteDirectAdd InviteType = "direct_add"
	InviteSent      InviteType = "invite_sent"
)

// InviteResult is returned by Reconciler.InviteOrAdd.
type InviteResult struct {
	Type  InviteType    `json:"type"`
	Email string        `json:"email"`
	Team  *TeamResponse `json:"team,omitempty"`
}

// CompletionOutcome is the result of reconciling a registered identity.
type CompletionOutcome string

const (
	OutcomeMemberAdded     CompletionOutcome = "member_added"
	OutcomeAlreadyMember   CompletionOutcome = "already_member"
	OutcomeNoInvitation    CompletionOutcome = "no_invitation"
	OutcomeTeamUnavailable CompletionOutcome = "team_unavailable"
)

// CompletionResult is returned by Reconciler.CompleteInvitation.
type CompletionResult struct {
	Outcome CompletionOutcome `json:"outcome"`
	TeamID  *uuid.UUID        `json:"team_id,omitempty"`
}

// WebhookAck is the body returned to the identity provider.
type WebhookAck struct {
	Received bool              `json:"received"`
	Outcome  CompletionOutcome `json:"outcome,omitempty"`
}
