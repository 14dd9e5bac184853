package collaboration

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Repository defines the interface for team and membership data access.
// Member uniqueness per team (by email and by non-null identity id) is
// enforced here at write time.
type Repository interface {
	// Team operations
	CreateTeam(ctx context.Context, team *Team) error
	GetTeam(ctx context.Context, id uuid.UUID) (*Team, error)
	ListTeamsByIdentity(ctx context.Context, identityID string) ([]*Team, error)
	UpdateTeam(ctx context.Context, team *Team) error
	SoftDeleteTeam(ctx context.Context, id uuid.UUID) error

	// Member operations
	AddMember(ctx context.Context, member *Member) error
	RemoveMember(ctx context.Context, teamID, memberID uuid.UUID) error
	UpdateMemberRole(ctx context.Context, teamID, memberID uuid.UUID, role Role) error

	// Project index operations. The index is advisory; Project.TeamID is
	// the source of truth.
	AppendProject(ctx context.Context, teamID, projectID uuid.UUID) error
	RemoveProject(ctx context.Context, teamID, projectID uuid.UUID) error
	SetProjects(ctx context.Context, teamID uuid.UUID, projectIDs []uuid.UUID) error
}

// repository implements Repository using GORM.
type repository struct {
	db *gorm.DB
}

// NewRepository creates a new collaboration repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// Models returns the models to migrate.
func Models() []any {
	return []any{&Team{}, &Member{}}
}

func orderedMembers(db *gorm.DB) *gorm.DB {
	return db.Order("joined_at ASC")
}

// CreateTeam inserts the team together with its initial members.
func (r *repository) CreateTeam(ctx context.Context, team *Team) error {
	err := r.db.WithContext(ctx).Create(team).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateMember
	}
	return err
}

// GetTeam retrieves an active team with its members.
func (r *repository) GetTeam(ctx context.Context, id uuid.UUID) (*Team, error) {
	var team Team
	err := r.db.WithContext(ctx).
		Preload("Members", orderedMembers).
		Where("id = ? AND is_active = ?", id, true).
		First(&team).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, err
	}
	return &team, nil
}

// ListTeamsByIdentity lists active teams the identity belongs to or created.
func (r *repository) ListTeamsByIdentity(ctx context.Context, identityID string) ([]*Team, error) {
	var teams []*Team
	err := r.db.WithContext(ctx).
		Preload("Members", orderedMembers).
		Where("is_active = ?", true).
		Where(
			r.db.Where("created_by = ?", identityID).
				Or("id IN (?)", r.db.Model(&Member{}).Select("team_id").Where("identity_id = ?", identityID)),
		).
		Order("created_at DESC").
		Find(&teams).Error
	if err != nil {
		return nil, err
	}
	return teams, nil
}

// UpdateTeam updates a team's descriptive fields.
func (r *repository) UpdateTeam(ctx context.Context, team *Team) error {
	result := r.db.WithContext(ctx).
		Model(&Team{}).
		Where("id = ? AND is_active = ?", team.ID, true).
		Updates(map[string]any{
			"name":        team.Name,
			"description": team.Description,
			"color":       team.Color,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrTeamNotFound
	}
	return nil
}

// SoftDeleteTeam marks a team inactive.
func (r *repository) SoftDeleteTeam(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Model(&Team{}).
		Where("id = ? AND is_active = ?", id, true).
		Update("is_active", false)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrTeamNotFound
	}
	return nil
}

// AddMember inserts a member row. Unique index violations become
// ErrDuplicateMember.
func (r *repository) AddMember(ctx context.Context, member *Member) error {
	err := r.db.WithContext(ctx).Create(member).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateMember
	}
	return err
}

// RemoveMember deletes a member row.
func (r *repository) RemoveMember(ctx context.Context, teamID, memberID uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Where("team_id = ? AND id = ?", teamID, memberID).
		Delete(&Member{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrMemberNotFound
	}
	return nil
}

// UpdateMemberRole updates a member's role.
func (r *repository) UpdateMemberRole(ctx context.Context, teamID, memberID uuid.UUID, role Role) error {
	result := r.db.WithContext(ctx).
		Model(&Member{}).
		Where("team_id = ? AND id = ?", teamID, memberID).
		Update("role", role)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrMemberNotFound
	}
	return nil
}

// AppendProject adds a project id to the team index if absent.
func (r *repository) AppendProject(ctx context.Context, teamID, projectID uuid.UUID) error {
	id := projectID.String()
	return r.db.WithContext(ctx).
		Model(&Team{}).
		Where("id = ?", teamID).
		Where("NOT (COALESCE(project_ids, '{}') @> ARRAY[?]::text[])", id).
		Update("project_ids", gorm.Expr("array_append(COALESCE(project_ids, '{}'), ?)", id)).
		Error
}

// RemoveProject pulls a project id from the team index.
func (r *repository) RemoveProject(ctx context.Context, teamID, projectID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&Team{}).
		Where("id = ?", teamID).
		Update("project_ids", gorm.Expr("array_remove(project_ids, ?)", projectID.String())).
		Error
}

// SetProjects replaces the team index.
func (r *repository) SetProjects(ctx context.Context, teamID uuid.UUID, projectIDs []uuid.UUID) error {
	ids := make([]string, len(projectIDs))
	for i, id := range projectIDs {
		ids[i] = id.String()
	}
	result := r.db.WithContext(ctx).
		Model(&Team{}).
		Where("id = ?", teamID).
		Update("project_ids", pq.StringArray(ids))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrTeamNotFound
	}
	return nil
}
