package collaboration

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/crewboard/server/internal/module/identity"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service provides team and membership business logic.
type Service struct {
	repo       Repository
	identities identity.Gateway
	logger     *zap.Logger
}

// NewService creates a new collaboration service.
func NewService(repo Repository, identities identity.Gateway, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:       repo,
		identities: identities,
		logger:     logger.Named("collaboration"),
	}
}

// ========== Team Operations ==========

// CreateTeam creates a team and inserts the creator as its first admin.
func (s *Service) CreateTeam(ctx context.Context, creatorID string, req *CreateTeamRequest) (*Team, error) {
	name := strings.TrimSpace(req.Name)
	color := req.Color
	if color == "" {
		color = DefaultColor
	}
	if err := validateTeamFields(name, req.Description, color); err != nil {
		return nil, err
	}

	profile, err := s.identities.GetIdentity(ctx, creatorID)
	if err != nil {
		return nil, ErrIdentityLookup.WithCause(err)
	}
	email := NormalizeEmail(profile.Email)
	if email == "" {
		return nil, ErrInvalidEmail
	}

	now := time.Now()
	teamID := uuid.New()
	creator := creatorID
	team := &Team{
		ID:          teamID,
		Name:        name,
		Description: req.Description,
		Color:       color,
		CreatedBy:   creatorID,
		ProjectIDs:  []string{},
		IsActive:    true,
		Members: []Member{{
			ID:         uuid.New(),
			TeamID:     teamID,
			IdentityID: &creator,
			Name:       profile.Name(),
			Email:      email,
			Role:       RoleAdmin,
			JoinedAt:   now,
		}},
	}

	if err := s.repo.CreateTeam(ctx, team); err != nil {
		return nil, err
	}

	s.logger.Info("team created",
		zap.String("team_id", team.ID.String()),
		zap.String("creator_id", creatorID),
		zap.String("name", team.Name),
	)

	return team, nil
}

// GetTeamByID loads an active team without an access check.
func (s *Service) GetTeamByID(ctx context.Context, teamID uuid.UUID) (*Team, error) {
	return s.repo.GetTeam(ctx, teamID)
}

// GetTeam loads a team the caller belongs to.
func (s *Service) GetTeam(ctx context.Context, teamID uuid.UUID, callerID string) (*Team, error) {
	team, err := s.repo.GetTeam(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if !IsMember(callerID, team) && team.CreatedBy != callerID {
		return nil, ErrNotTeamMember
	}
	return team, nil
}

// ListMyTeams lists active teams the caller belongs to.
func (s *Service) ListMyTeams(ctx context.Context, callerID string) ([]*Team, error) {
	return s.repo.ListTeamsByIdentity(ctx, callerID)
}

// UpdateTeam updates a team's descriptive fields. Admin only.
func (s *Service) UpdateTeam(ctx context.Context, teamID uuid.UUID, actingID string, req *UpdateTeamRequest) (*Team, error) {
	team, err := s.requireAdmin(ctx, teamID, actingID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		team.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		team.Description = *req.Description
	}
	if req.Color != nil {
		team.Color = *req.Color
	}
	if err := validateTeamFields(team.Name, team.Description, team.Color); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateTeam(ctx, team); err != nil {
		return nil, err
	}
	return s.repo.GetTeam(ctx, teamID)
}

// SoftDeleteTeam marks a team inactive. Admin only. Projects and tasks
// are left in place.
func (s *Service) SoftDeleteTeam(ctx context.Context, teamID uuid.UUID, actingID string) error {
	if _, err := s.requireAdmin(ctx, teamID, actingID); err != nil {
		return err
	}
	if err := s.repo.SoftDeleteTeam(ctx, teamID); err != nil {
		return err
	}

	s.logger.Info("team deleted",
		zap.String("team_id", teamID.String()),
		zap.String("deleted_by", actingID),
	)
	return nil
}

// ========== Member Operations ==========

// AddMember adds a member to an active team. A member sharing the email or
// identity id fails with ErrDuplicateMember.
func (s *Service) AddMember(ctx context.Context, teamID uuid.UUID, in MemberInput) (*Team, error) {
	email, err := validateEmail(in.Email)
	if err != nil {
		return nil, err
	}
	role := in.Role
	if role == "" {
		role = RoleMember
	}
	if !role.IsValid() {
		return nil, ErrInvalidRole
	}

	if _, err := s.repo.GetTeam(ctx, teamID); err != nil {
		return nil, err
	}

	member := &Member{
		ID:       uuid.New(),
		TeamID:   teamID,
		Name:     strings.TrimSpace(in.Name),
		Email:    email,
		Role:     role,
		JoinedAt: time.Now(),
	}
	if in.IdentityID != "" {
		id := in.IdentityID
		member.IdentityID = &id
	}
	if member.Name == "" {
		member.Name = email
	}

	if err := s.repo.AddMember(ctx, member); err != nil {
		return nil, err
	}

	s.logger.Info("member added",
		zap.String("team_id", teamID.String()),
		zap.String("email", email),
		zap.String("role", string(role)),
		zap.Bool("registered", member.HasIdentity()),
	)

	return s.repo.GetTeam(ctx, teamID)
}

// RemoveMember removes the member matching target (identity id or email).
// The acting identity must be an admin of the team.
func (s *Service) RemoveMember(ctx context.Context, teamID uuid.UUID, target, actingID string) (*Team, error) {
	team, err := s.requireAdmin(ctx, teamID, actingID)
	if err != nil {
		return nil, err
	}

	member := team.FindMember(target)
	if member == nil {
		return nil, ErrMemberNotFound
	}
	if member.HasIdentity() && *member.IdentityID == team.CreatedBy {
		return nil, ErrCannotRemoveCreator
	}

	if err := s.repo.RemoveMember(ctx, teamID, member.ID); err != nil {
		return nil, err
	}

	s.logger.Info("member removed",
		zap.String("team_id", teamID.String()),
		zap.String("email", member.Email),
		zap.String("removed_by", actingID),
	)
	if member.Role == RoleAdmin && team.AdminCount() == 1 {
		s.logger.Warn("team left without admin members",
			zap.String("team_id", teamID.String()),
		)
	}

	return s.repo.GetTeam(ctx, teamID)
}

// UpdateMemberRole changes a member's role. Admin only.
func (s *Service) UpdateMemberRole(ctx context.Context, teamID uuid.UUID, target, actingID string, role Role) (*Team, error) {
	if !role.IsValid() {
		return nil, ErrInvalidRole
	}
	team, err := s.requireAdmin(ctx, teamID, actingID)
	if err != nil {
		return nil, err
	}

	member := team.FindMember(target)
	if member == nil {
		return nil, ErrMemberNotFound
	}
	if member.Role == role {
		return team, nil
	}

	if err := s.repo.UpdateMemberRole(ctx, teamID, member.ID, role); err != nil {
		return nil, err
	}

	if member.Role == RoleAdmin && team.AdminCount() == 1 {
		s.logger.Warn("team left without admin members",
			zap.String("team_id", teamID.String()),
		)
	}

	return s.repo.GetTeam(ctx, teamID)
}

// LeaveTeam removes the caller's own membership.
func (s *Service) LeaveTeam(ctx context.Context, teamID uuid.UUID, callerID string) error {
	team, err := s.repo.GetTeam(ctx, teamID)
	if err != nil {
		return err
	}
	if team.CreatedBy == callerID {
		return ErrCreatorCannotLeave
	}
	member := team.MemberByIdentity(callerID)
	if member == nil {
		return ErrNotTeamMember
	}

	if err := s.repo.RemoveMember(ctx, teamID, member.ID); err != nil {
		return err
	}

	s.logger.Info("member left team",
		zap.String("team_id", teamID.String()),
		zap.String("identity_id", callerID),
	)
	if member.Role == RoleAdmin && team.AdminCount() == 1 {
		s.logger.Warn("team left without admin members",
			zap.String("team_id", teamID.String()),
		)
	}
	return nil
}

// ========== Project Index ==========

// AppendProject records a project id in the team's project index.
func (s *Service) AppendProject(ctx context.Context, teamID, projectID uuid.UUID) error {
	return s.repo.AppendProject(ctx, teamID, projectID)
}

// RemoveProject drops a project id from the team's project index.
func (s *Service) RemoveProject(ctx context.Context, teamID, projectID uuid.UUID) error {
	return s.repo.RemoveProject(ctx, teamID, projectID)
}

// SetProjects replaces the team's project index.
func (s *Service) SetProjects(ctx context.Context, teamID uuid.UUID, projectIDs []uuid.UUID) error {
	return s.repo.SetProjects(ctx, teamID, projectIDs)
}

// ========== Helpers ==========

func (s *Service) requireAdmin(ctx context.Context, teamID uuid.UUID, actingID string) (*Team, error) {
	team, err := s.repo.GetTeam(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if !IsAdmin(actingID, team) {
		if IsMember(actingID, team) {
			return nil, ErrAdminRequired
		}
		return nil, ErrNotTeamMember
	}
	return team, nil
}

func validateTeamFields(name, description, color string) error {
	if n := utf8.RuneCountInString(name); n < 2 || n > 50 {
		return ErrInvalidName
	}
	if utf8.RuneCountInString(description) > 200 {
		return ErrInvalidDescription
	}
	if !IsHexColor(color) {
		return ErrInvalidColor
	}
	return nil
}

func validateEmail(raw string) (string, error) {
	email := NormalizeEmail(raw)
	if email == "" {
		return "", ErrInvalidEmail
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrInvalidEmail
	}
	return email, nil
}

// isDuplicate reports whether err is a membership conflict.
func isDuplicate(err error) bool {
	return errors.Is(err, ErrDuplicateMember) || errors.Is(err, ErrAlreadyMember)
}
