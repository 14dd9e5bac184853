package collaboration

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-memdb"
)

const (
	teamTable   = "teams"
	memberTable = "team_members"
)

// teamRecord and memberRecord carry string keys for the memdb indexers.
type teamRecord struct {
	ID        string
	CreatedBy string
	Team      Team
}

type memberRecord struct {
	ID         string
	TeamID     string
	Email      string
	IdentityID string
	Member     Member
}

func memorySchema() *memdb.DBSchema {
	return &memdb.DBSchema{
		Tables: map[string]*memdb.TableSchema{
			teamTable: {
				Name: teamTable,
				Indexes: map[string]*memdb.IndexSchema{
					"id": {
						Name:    "id",
						Unique:  true,
						Indexer: &memdb.StringFieldIndex{Field: "ID"},
					},
					"created_by": {
						Name:    "created_by",
						Indexer: &memdb.StringFieldIndex{Field: "CreatedBy"},
					},
				},
			},
			memberTable: {
				Name: memberTable,
				Indexes: map[string]*memdb.IndexSchema{
					"id": {
						Name:    "id",
						Unique:  true,
						Indexer: &memdb.StringFieldIndex{Field: "ID"},
					},
					"team": {
						Name:    "team",
						Indexer: &memdb.StringFieldIndex{Field: "TeamID"},
					},
					"team_email": {
						Name:   "team_email",
						Unique: true,
						Indexer: &memdb.CompoundIndex{Indexes: []memdb.Indexer{
							&memdb.StringFieldIndex{Field: "TeamID"},
							&memdb.StringFieldIndex{Field: "Email"},
						}},
					},
					// Pending members have no identity and are left out.
					"team_identity": {
						Name:         "team_identity",
						Unique:       true,
						AllowMissing: true,
						Indexer: &memdb.CompoundIndex{Indexes: []memdb.Indexer{
							&memdb.StringFieldIndex{Field: "TeamID"},
							&memdb.StringFieldIndex{Field: "IdentityID"},
						}},
					},
					"identity": {
						Name:         "identity",
						AllowMissing: true,
						Indexer:      &memdb.StringFieldIndex{Field: "IdentityID"},
					},
				},
			},
		},
	}
}

// memoryRepository implements Repository on go-memdb. Write transactions
// are serialized, so the uniqueness checks in AddMember cannot race.
type memoryRepository struct {
	db *memdb.MemDB
}

// NewMemoryRepository creates an in-memory repository.
func NewMemoryRepository() (Repository, error) {
	db, err := memdb.NewMemDB(memorySchema())
	if err != nil {
		return nil, fmt.Errorf("create memdb: %w", err)
	}
	return &memoryRepository{db: db}, nil
}

func newMemberRecord(m *Member) *memberRecord {
	rec := &memberRecord{
		ID:     m.ID.String(),
		TeamID: m.TeamID.String(),
		Email:  m.Email,
		Member: *m,
	}
	if m.HasIdentity() {
		id := *m.IdentityID
		rec.IdentityID = id
		rec.Member.IdentityID = &id
	}
	return rec
}

func (r *memoryRepository) CreateTeam(_ context.Context, team *Team) error {
	txn := r.db.Txn(true)
	defer txn.Abort()

	now := time.Now()
	if team.CreatedAt.IsZero() {
		team.CreatedAt = now
	}
	team.UpdatedAt = now

	rec := &teamRecord{ID: team.ID.String(), CreatedBy: team.CreatedBy, Team: *team}
	rec.Team.Members = nil
	rec.Team.ProjectIDs = slices.Clone(team.ProjectIDs)
	if err := txn.Insert(teamTable, rec); err != nil {
		return err
	}
	for i := range team.Members {
		team.Members[i].TeamID = team.ID
		if err := insertMember(txn, &team.Members[i]); err != nil {
			return err
		}
	}

	txn.Commit()
	return nil
}

func (r *memoryRepository) GetTeam(_ context.Context, id uuid.UUID) (*Team, error) {
	txn := r.db.Txn(false)
	defer txn.Abort()

	team, err := loadTeam(txn, id.String())
	if err != nil {
		return nil, err
	}
	if !team.IsActive {
		return nil, ErrTeamNotFound
	}
	return team, nil
}

func (r *memoryRepository) ListTeamsByIdentity(_ context.Context, identityID string) ([]*Team, error) {
	txn := r.db.Txn(false)
	defer txn.Abort()

	ids := make(map[string]struct{})
	it, err := txn.Get(teamTable, "created_by", identityID)
	if err != nil {
		return nil, err
	}
	for obj := it.Next(); obj != nil; obj = it.Next() {
		ids[obj.(*teamRecord).ID] = struct{}{}
	}
	it, err = txn.Get(memberTable, "identity", identityID)
	if err != nil {
		return nil, err
	}
	for obj := it.Next(); obj != nil; obj = it.Next() {
		ids[obj.(*memberRecord).TeamID] = struct{}{}
	}

	teams := make([]*Team, 0, len(ids))
	for id := range ids {
		team, err := loadTeam(txn, id)
		if err != nil {
			return nil, err
		}
		if team.IsActive {
			teams = append(teams, team)
		}
	}
	sort.Slice(teams, func(i, j int) bool {
		return teams[i].CreatedAt.After(teams[j].CreatedAt)
	})
	return teams, nil
}

func (r *memoryRepository) UpdateTeam(_ context.Context, team *Team) error {
	return r.updateTeam(team.ID, true, func(t *Team) {
		t.Name = team.Name
		t.Description = team.Description
		t.Color = team.Color
	})
}

func (r *memoryRepository) SoftDeleteTeam(_ context.Context, id uuid.UUID) error {
	return r.updateTeam(id, true, func(t *Team) {
		t.IsActive = false
	})
}

func (r *memoryRepository) AddMember(_ context.Context, member *Member) error {
	txn := r.db.Txn(true)
	defer txn.Abort()

	if err := insertMember(txn, member); err != nil {
		return err
	}
	txn.Commit()
	return nil
}

func (r *memoryRepository) RemoveMember(_ context.Context, teamID, memberID uuid.UUID) error {
	txn := r.db.Txn(true)
	defer txn.Abort()

	rec, err := findMember(txn, teamID, memberID)
	if err != nil {
		return err
	}
	if err := txn.Delete(memberTable, rec); err != nil {
		return err
	}
	txn.Commit()
	return nil
}

func (r *memoryRepository) UpdateMemberRole(_ context.Context, teamID, memberID uuid.UUID, role Role) error {
	txn := r.db.Txn(true)
	defer txn.Abort()

	rec, err := findMember(txn, teamID, memberID)
	if err != nil {
		return err
	}
	updated := *rec
	updated.Member.Role = role
	if err := txn.Insert(memberTable, &updated); err != nil {
		return err
	}
	txn.Commit()
	return nil
}

func (r *memoryRepository) AppendProject(_ context.Context, teamID, projectID uuid.UUID) error {
	return r.updateTeam(teamID, false, func(t *Team) {
		if !t.HasProject(projectID) {
			t.ProjectIDs = append(t.ProjectIDs, projectID.String())
		}
	})
}

func (r *memoryRepository) RemoveProject(_ context.Context, teamID, projectID uuid.UUID) error {
	id := projectID.String()
	return r.updateTeam(teamID, false, func(t *Team) {
		t.ProjectIDs = slices.DeleteFunc(t.ProjectIDs, func(s string) bool { return s == id })
	})
}

func (r *memoryRepository) SetProjects(_ context.Context, teamID uuid.UUID, projectIDs []uuid.UUID) error {
	return r.updateTeam(teamID, false, func(t *Team) {
		t.ProjectIDs = make([]string, len(projectIDs))
		for i, id := range projectIDs {
			t.ProjectIDs[i] = id.String()
		}
	})
}

// updateTeam applies fn to a copy of the stored team and writes it back.
func (r *memoryRepository) updateTeam(id uuid.UUID, activeOnly bool, fn func(*Team)) error {
	txn := r.db.Txn(true)
	defer txn.Abort()

	raw, err := txn.First(teamTable, "id", id.String())
	if err != nil {
		return err
	}
	if raw == nil {
		return ErrTeamNotFound
	}
	rec := *raw.(*teamRecord)
	if activeOnly && !rec.Team.IsActive {
		return ErrTeamNotFound
	}
	rec.Team.ProjectIDs = slices.Clone(rec.Team.ProjectIDs)
	fn(&rec.Team)
	rec.Team.UpdatedAt = time.Now()

	if err := txn.Insert(teamTable, &rec); err != nil {
		return err
	}
	txn.Commit()
	return nil
}

// insertMember enforces per-team uniqueness by email and identity id
// before inserting. memdb unique indexes do not reject duplicates.
func insertMember(txn *memdb.Txn, member *Member) error {
	rec := newMemberRecord(member)

	team, err := txn.First(teamTable, "id", rec.TeamID)
	if err != nil {
		return err
	}
	if team == nil {
		return ErrTeamNotFound
	}

	existing, err := txn.First(memberTable, "team_email", rec.TeamID, rec.Email)
	if err != nil {
		return err
	}
	if existing != nil {
		return ErrDuplicateMember
	}
	if rec.IdentityID != "" {
		existing, err = txn.First(memberTable, "team_identity", rec.TeamID, rec.IdentityID)
		if err != nil {
			return err
		}
		if existing != nil {
			return ErrDuplicateMember
		}
	}
	return txn.Insert(memberTable, rec)
}

func findMember(txn *memdb.Txn, teamID, memberID uuid.UUID) (*memberRecord, error) {
	raw, err := txn.First(memberTable, "id", memberID.String())
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, ErrMemberNotFound
	}
	rec := raw.(*memberRecord)
	if rec.TeamID != teamID.String() {
		return nil, ErrMemberNotFound
	}
	return rec, nil
}

// loadTeam returns a detached copy of the team with members ordered by
// join time.
func loadTeam(txn *memdb.Txn, id string) (*Team, error) {
	raw, err := txn.First(teamTable, "id", id)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, ErrTeamNotFound
	}
	team := raw.(*teamRecord).Team
	team.ProjectIDs = slices.Clone(team.ProjectIDs)
	team.Members = []Member{}

	it, err := txn.Get(memberTable, "team", id)
	if err != nil {
		return nil, err
	}
	for obj := it.Next(); obj != nil; obj = it.Next() {
		m := obj.(*memberRecord).Member
		if m.IdentityID != nil {
			v := *m.IdentityID
			m.IdentityID = &v
		}
		team.Members = append(team.Members, m)
	}
	sort.SliceStable(team.Members, func(i, j int) bool {
		return team.Members[i].JoinedAt.Before(team.Members[j].JoinedAt)
	})
	return &team, nil
}
