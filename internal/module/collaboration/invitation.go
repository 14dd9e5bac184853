package collaboration

import (
	"context"
	"errors"

	"github.com/crewboard/server/internal/module/identity"
	"github.com/crewboard/server/internal/shared/metrics"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Reconciler resolves add-by-email requests into either an immediate
// membership or a pending invitation held by the identity provider, and
// completes pending invitations once the invited identity registers.
//
// Per (team, email) the states are: unknown -> member (direct add) or
// unknown -> pending invite -> member (webhook). The final transition is
// idempotent because the membership store rejects duplicates.
type Reconciler struct {
	teams       *Service
	identities  identity.Gateway
	redirectURL string
	metrics     *metrics.Metrics
	logger      *zap.Logger
}

// NewReconciler creates a new invitation reconciler.
func NewReconciler(teams *Service, identities identity.Gateway, redirectURL string, m *metrics.Metrics, logger *zap.Logger) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{
		teams:       teams,
		identities:  identities,
		redirectURL: redirectURL,
		metrics:     m,
		logger:      logger.Named("invitations"),
	}
}

// InviteOrAdd adds email to the team directly when an identity already owns
// it, and otherwise issues an invitation carrying the pending team and role.
// No local member is written for a pending invitation.
func (r *Reconciler) InviteOrAdd(ctx context.Context, teamID uuid.UUID, actingID, rawEmail string, role Role) (*InviteResult, error) {
	email, err := validateEmail(rawEmail)
	if err != nil {
		return nil, err
	}
	if role == "" {
		role = RoleMember
	}
	if !role.IsValid() {
		return nil, ErrInvalidRole
	}

	team, err := r.teams.requireAdmin(ctx, teamID, actingID)
	if err != nil {
		return nil, err
	}
	if team.MemberByEmail(email) != nil {
		r.metrics.RecordInvitation("already_member")
		return nil, ErrAlreadyMember
	}

	existing, err := r.identities.FindByEmail(ctx, email)
	if err != nil {
		r.metrics.RecordInvitation("failed")
		return nil, ErrIdentityLookup.WithCause(err)
	}

	if existing != nil {
		updated, err := r.teams.AddMember(ctx, teamID, MemberInput{
			IdentityID: existing.ID,
			Name:       existing.Name(),
			Email:      email,
			Role:       role,
		})
		if err != nil {
			if isDuplicate(err) {
				r.metrics.RecordInvitation("already_member")
				return nil, ErrAlreadyMember
			}
			return nil, err
		}

		r.metrics.RecordInvitation(string(InviteDirectAdd))
		r.logger.Info("member added directly",
			zap.String("team_id", teamID.String()),
			zap.String("identity_id", existing.ID),
			zap.String("invited_by", actingID),
		)
		return &InviteResult{Type: InviteDirectAdd, Email: email, Team: updated.ToResponse(actingID)}, nil
	}

	err = r.identities.CreateInvitation(ctx, identity.InvitationRequest{
		Email: email,
		PublicMetadata: map[string]any{
			identity.MetaPendingTeamID: teamID.String(),
			identity.MetaPendingRole:   string(role),
			identity.MetaSource:        identity.SourceTeamInvite,
		},
		RedirectURL: r.redirectURL,
	})
	if err != nil {
		r.metrics.RecordInvitation("failed")
		r.logger.Error("invitation failed",
			zap.String("team_id", teamID.String()),
			zap.String("email", email),
			zap.Error(err),
		)
		return nil, ErrInviteFailed.WithCause(err)
	}

	r.metrics.RecordInvitation(string(InviteSent))
	r.logger.Info("invitation sent",
		zap.String("team_id", teamID.String()),
		zap.String("email", email),
		zap.String("role", string(role)),
		zap.String("invited_by", actingID),
	)
	return &InviteResult{Type: InviteSent, Email: email}, nil
}

// CompleteInvitation turns the pending invitation recorded in a newly
// created identity's metadata into a membership. Replays are benign: a
// duplicate membership yields OutcomeAlreadyMember.
func (r *Reconciler) CompleteInvitation(ctx context.Context, id *identity.Identity) (*CompletionResult, error) {
	rawTeamID := id.MetadataString(identity.MetaPendingTeamID)
	if rawTeamID == "" {
		return &CompletionResult{Outcome: OutcomeNoInvitation}, nil
	}

	teamID, err := uuid.Parse(rawTeamID)
	if err != nil {
		r.logger.Warn("pending invitation has malformed team id",
			zap.String("identity_id", id.ID),
			zap.String("pending_team_id", rawTeamID),
		)
		return &CompletionResult{Outcome: OutcomeTeamUnavailable}, nil
	}

	role := Role(id.MetadataString(identity.MetaPendingRole))
	if !role.IsValid() {
		role = RoleMember
	}

	result := &CompletionResult{TeamID: &teamID}
	_, err = r.teams.AddMember(ctx, teamID, MemberInput{
		IdentityID: id.ID,
		Name:       id.Name(),
		Email:      id.Email,
		Role:       role,
	})
	switch {
	case err == nil:
		result.Outcome = OutcomeMemberAdded
		r.logger.Info("invitation completed",
			zap.String("team_id", teamID.String()),
			zap.String("identity_id", id.ID),
			zap.String("role", string(role)),
		)
	case isDuplicate(err):
		result.Outcome = OutcomeAlreadyMember
		r.logger.Info("invitation already completed",
			zap.String("team_id", teamID.String()),
			zap.String("identity_id", id.ID),
		)
	case errors.Is(err, ErrTeamNotFound):
		r.logger.Warn("invitation target team unavailable",
			zap.String("team_id", teamID.String()),
			zap.String("identity_id", id.ID),
		)
		result.Outcome = OutcomeTeamUnavailable
	default:
		return nil, err
	}

	r.clearPendingMetadata(ctx, id.ID)
	return result, nil
}

// clearPendingMetadata removes the consumed invitation keys. Failures are
// logged; a leftover key only causes a benign replay.
func (r *Reconciler) clearPendingMetadata(ctx context.Context, identityID string) {
	err := r.identities.UpdatePublicMetadata(ctx, identityID, map[string]any{
		identity.MetaPendingTeamID: nil,
		identity.MetaPendingRole:   nil,
		identity.MetaSource:        nil,
	})
	if err != nil {
		r.logger.Warn("failed to clear pending invitation metadata",
			zap.String("identity_id", identityID),
			zap.Error(err),
		)
	}
}
