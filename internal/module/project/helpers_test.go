package project

import (
	"context"
	"testing"
	"time"

	"github.com/crewboard/server/internal/module/collaboration"
	"github.com/crewboard/server/internal/module/identity"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testEnv struct {
	ctx     context.Context
	repo    Repository
	gateway *identity.MemoryGateway
	teams   *collaboration.Service
	inviter *collaboration.Reconciler
	service *Service
	logs    *observer.ObservedLogs
	team    *collaboration.Team
}

// newTestEnv builds a team "Alpha" created by U1 with U2 as a member.
// U3 is a registered identity outside the team.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	teamRepo, err := collaboration.NewMemoryRepository()
	require.NoError(t, err)
	repo, err := NewMemoryRepository()
	require.NoError(t, err)

	core, logs := observer.New(zap.DebugLevel)
	logger := zap.New(core)

	gateway := identity.NewMemoryGateway()
	gateway.Put(&identity.Identity{ID: "U1", FirstName: "Uma", Email: "uma@x.com"})
	gateway.Put(&identity.Identity{ID: "U2", FirstName: "Bob", Email: "bob@x.com"})
	gateway.Put(&identity.Identity{ID: "U3", FirstName: "Eve", Email: "eve@x.com"})

	teams := collaboration.NewService(teamRepo, gateway, logger)
	reconciler := collaboration.NewReconciler(teams, gateway, "", nil, logger)

	team, err := teams.CreateTeam(ctx, "U1", &collaboration.CreateTeamRequest{Name: "Alpha"})
	require.NoError(t, err)
	_, err = reconciler.InviteOrAdd(ctx, team.ID, "U1", "bob@x.com", collaboration.RoleMember)
	require.NoError(t, err)

	return &testEnv{
		ctx:     ctx,
		repo:    repo,
		gateway: gateway,
		teams:   teams,
		inviter: reconciler,
		service: NewService(repo, teams, reconciler, logger),
		logs:    logs,
		team:    team,
	}
}

func (e *testEnv) createProject(t *testing.T, name string) *Project {
	t.Helper()
	p, err := e.service.CreateProject(e.ctx, e.team.ID, "U1", &CreateProjectRequest{Name: name})
	require.NoError(t, err)
	return p
}

func (e *testEnv) createTask(t *testing.T, projectID uuid.UUID, title string, due *time.Time, assignees ...string) *Task {
	t.Helper()
	task, err := e.service.CreateTask(e.ctx, projectID, "U1", &CreateTaskRequest{
		Title:     title,
		DueDate:   due,
		Assignees: assignees,
	})
	require.NoError(t, err)
	return task
}

// flakyTeams fails project index writes.
type flakyTeams struct {
	*collaboration.Service
}

func (flakyTeams) AppendProject(context.Context, uuid.UUID, uuid.UUID) error {
	return context.DeadlineExceeded
}

func ptr[T any](v T) *T {
	return &v
}
