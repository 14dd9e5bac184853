package collaboration

import (
	apperrors "github.com/crewboard/server/internal/shared/errors"
)

var (
	ErrTeamNotFound        = apperrors.NotFound("team not found")
	ErrMemberNotFound      = apperrors.NotFound("member not found")
	ErrNotTeamMember       = apperrors.Forbidden("not a member of this team")
	ErrAdminRequired       = apperrors.Forbidden("admin role required")
	ErrCannotRemoveCreator = apperrors.Forbidden("the team creator cannot be removed")
	ErrDuplicateMember     = apperrors.Duplicate("member already exists")
	ErrAlreadyMember       = apperrors.Duplicate("email is already a team member")
	ErrInvalidRole         = apperrors.Validation("role must be admin or member")
	ErrInvalidEmail        = apperrors.Validation("invalid email")
	ErrInvalidName         = apperrors.Validation("name must be 2-50 characters")
	ErrInvalidDescription  = apperrors.Validation("description must be at most 200 characters")
	ErrInvalidColor        = apperrors.Validation("color must be a hex value")
	ErrCreatorCannotLeave  = apperrors.Validation("the team creator cannot leave; delete the team instead")
	ErrInvalidSignature    = apperrors.Validation("invalid webhook signature")
	ErrInviteFailed        = apperrors.Upstream("invitation could not be sent", nil)
	ErrIdentityLookup      = apperrors.Upstream("identity lookup failed", nil)
)
