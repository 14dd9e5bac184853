package project

import (
	"testing"
	"time"

	"github.com/crewboard/server/internal/module/collaboration"
	apperrors "github.com/crewboard/server/internal/shared/errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestService_CreateProjectIndexesTeam(t *testing.T) {
	env := newTestEnv(t)

	p := env.createProject(t, "Launch")
	assert.Equal(t, env.team.ID, p.TeamID)
	assert.Equal(t, StatusActive, p.Status)
	assert.Equal(t, DefaultColor, p.Color)

	team, err := env.teams.GetTeamByID(env.ctx, env.team.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{p.ID.String()}, []string(team.ProjectIDs))
}

func TestService_CreateProjectAccess(t *testing.T) {
	env := newTestEnv(t)

	// Plain members can create projects.
	_, err := env.service.CreateProject(env.ctx, env.team.ID, "U2", &CreateProjectRequest{Name: "By Bob"})
	require.NoError(t, err)

	_, err = env.service.CreateProject(env.ctx, env.team.ID, "U3", &CreateProjectRequest{Name: "By Eve"})
	assert.ErrorIs(t, err, ErrAccessDenied)

	// Outsiders are refused before their payload is looked at.
	_, err = env.service.CreateProject(env.ctx, env.team.ID, "U3", &CreateProjectRequest{Name: "x", Color: "green"})
	assert.ErrorIs(t, err, ErrAccessDenied)

	_, err = env.service.CreateProject(env.ctx, uuid.New(), "U1", &CreateProjectRequest{Name: "Nowhere"})
	assert.ErrorIs(t, err, collaboration.ErrTeamNotFound)

	require.NoError(t, env.teams.SoftDeleteTeam(env.ctx, env.team.ID, "U1"))
	_, err = env.service.CreateProject(env.ctx, env.team.ID, "U1", &CreateProjectRequest{Name: "Too late"})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	projects, err := env.repo.ListProjectsByTeam(env.ctx, env.team.ID)
	require.NoError(t, err)
	assert.Len(t, projects, 1)
}

func TestService_CreateProjectValidation(t *testing.T) {
	env := newTestEnv(t)
	start := time.Now().Add(48 * time.Hour)
	due := time.Now()

	cases := []struct {
		name string
		req  CreateProjectRequest
		want error
	}{
		{"short name", CreateProjectRequest{Name: "x"}, ErrInvalidName},
		{"bad status", CreateProjectRequest{Name: "Launch", Status: "paused"}, ErrInvalidStatus},
		{"bad color", CreateProjectRequest{Name: "Launch", Color: "green"}, ErrInvalidColor},
		{"dates reversed", CreateProjectRequest{Name: "Launch", StartDate: &start, DueDate: &due}, ErrInvalidDateRange},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.service.CreateProject(env.ctx, env.team.ID, "U1", &tc.req)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestService_IndexFailureStillResolvesByTeamID(t *testing.T) {
	env := newTestEnv(t)
	svc := NewService(env.repo, flakyTeams{env.teams}, env.inviter, nil)

	p, err := svc.CreateProject(env.ctx, env.team.ID, "U1", &CreateProjectRequest{Name: "Orphan"})
	require.NoError(t, err)

	team, err := env.teams.GetTeamByID(env.ctx, env.team.ID)
	require.NoError(t, err)
	assert.False(t, team.HasProject(p.ID))

	got, err := svc.GetProject(env.ctx, p.ID, "U2")
	require.NoError(t, err)
	assert.Equal(t, env.team.ID, got.TeamID)

	listed, err := svc.ListTeamProjects(env.ctx, env.team.ID, "U1")
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, p.ID, listed[0].ID)

	result, err := env.service.ReconcileTeamProjects(env.ctx, env.team.ID, "U1")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Added)
	assert.Equal(t, 0, result.Removed)

	team, err = env.teams.GetTeamByID(env.ctx, env.team.ID)
	require.NoError(t, err)
	assert.True(t, team.HasProject(p.ID))
}

func TestService_ReconcileDropsStaleIDs(t *testing.T) {
	env := newTestEnv(t)
	p := env.createProject(t, "Keep")
	stale := uuid.New()
	require.NoError(t, env.teams.AppendProject(env.ctx, env.team.ID, stale))

	result, err := env.service.ReconcileTeamProjects(env.ctx, env.team.ID, "U1")
	require.NoError(t, err)
	assert.Equal(t, 0, result.Added)
	assert.Equal(t, 1, result.Removed)
	assert.Equal(t, []string{p.ID.String()}, result.Projects)

	_, err = env.service.ReconcileTeamProjects(env.ctx, env.team.ID, "U2")
	assert.ErrorIs(t, err, collaboration.ErrAdminRequired)
}

func TestService_UpdateProjectByOutsiderIsForbidden(t *testing.T) {
	env := newTestEnv(t)
	p := env.createProject(t, "Launch")

	_, err := env.service.UpdateProject(env.ctx, p.ID, "U3", &UpdateProjectRequest{Name: ptr("Hijacked")})
	assert.ErrorIs(t, err, ErrAccessDenied)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	got, err := env.service.GetProject(env.ctx, p.ID, "U1")
	require.NoError(t, err)
	assert.Equal(t, "Launch", got.Name)

	updated, err := env.service.UpdateProject(env.ctx, p.ID, "U2", &UpdateProjectRequest{
		Name:   ptr("Launch v2"),
		Status: ptr(StatusCompleted),
	})
	require.NoError(t, err)
	assert.Equal(t, "Launch v2", updated.Name)
	assert.Equal(t, StatusCompleted, updated.Status)
	assert.Equal(t, env.team.ID, updated.TeamID)
}

func TestService_DeleteProjectCascades(t *testing.T) {
	env := newTestEnv(t)
	p := env.createProject(t, "Launch")
	due := time.Now().Add(24 * time.Hour)
	task := env.createTask(t, p.ID, "Write copy", &due, "bob@x.com")

	// Bob is neither admin nor the creator.
	err := env.service.DeleteProject(env.ctx, p.ID, "U2")
	assert.ErrorIs(t, err, ErrDeleteNotAllowed)

	require.NoError(t, env.service.DeleteProject(env.ctx, p.ID, "U1"))

	_, err = env.service.GetProject(env.ctx, p.ID, "U1")
	assert.ErrorIs(t, err, ErrProjectNotFound)
	_, err = env.repo.GetTask(env.ctx, task.ID)
	assert.ErrorIs(t, err, ErrTaskNotFound)

	team, err := env.teams.GetTeamByID(env.ctx, env.team.ID)
	require.NoError(t, err)
	assert.Empty(t, team.ProjectIDs)

	due2, err := env.repo.ListDueBetween(env.ctx, time.Now(), time.Now().Add(72*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, due2)
}

func TestService_ProjectCreatorCanDelete(t *testing.T) {
	env := newTestEnv(t)
	p, err := env.service.CreateProject(env.ctx, env.team.ID, "U2", &CreateProjectRequest{Name: "Bob's"})
	require.NoError(t, err)

	assert.NoError(t, env.service.DeleteProject(env.ctx, p.ID, "U2"))
}

func TestService_ProjectMembers(t *testing.T) {
	env := newTestEnv(t)
	p := env.createProject(t, "Launch")

	result, err := env.service.AddProjectMember(env.ctx, p.ID, "U1", &ProjectMemberRequest{Email: "eve@x.com"})
	require.NoError(t, err)
	assert.Equal(t, collaboration.InviteDirectAdd, result.Type)

	result, err = env.service.AddProjectMember(env.ctx, p.ID, "U1", &ProjectMemberRequest{Email: "new@x.com"})
	require.NoError(t, err)
	assert.Equal(t, collaboration.InviteSent, result.Type)

	_, err = env.service.AddProjectMember(env.ctx, p.ID, "U2", &ProjectMemberRequest{Email: "other@x.com"})
	assert.ErrorIs(t, err, collaboration.ErrAdminRequired)

	team, err := env.service.RemoveProjectMember(env.ctx, p.ID, "U1", "U3")
	require.NoError(t, err)
	assert.Nil(t, team.MemberByIdentity("U3"))

	// Access goes with the membership.
	_, err = env.service.GetProject(env.ctx, p.ID, "U3")
	assert.ErrorIs(t, err, ErrAccessDenied)
}

func TestService_CreateTaskValidatesAssignees(t *testing.T) {
	env := newTestEnv(t)
	p := env.createProject(t, "Launch")

	task := env.createTask(t, p.ID, "Design", nil, "BOB@x.com", "uma@x.com", "bob@x.com")
	assert.Equal(t, TaskTodo, task.Status)
	assert.Equal(t, PriorityMedium, task.Priority)
	require.Len(t, task.Assignees, 2)
	assert.Equal(t, Assignee{IdentityID: "U2", Name: "Bob", Email: "bob@x.com", Role: AssigneeRole}, task.Assignees[0])

	_, err := env.service.CreateTask(env.ctx, p.ID, "U1", &CreateTaskRequest{
		Title:     "Audit",
		Assignees: []string{"eve@x.com"},
	})
	assert.ErrorIs(t, err, ErrInvalidAssignee)
	assert.Equal(t, 400, apperrors.GetStatusCode(err))

	tasks, err := env.service.ListTasks(env.ctx, p.ID, "U2")
	require.NoError(t, err)
	assert.Len(t, tasks, 1)

	got, err := env.service.GetProject(env.ctx, p.ID, "U1")
	require.NoError(t, err)
	assert.True(t, got.HasTask(task.ID))
}

func TestService_CreateTaskValidation(t *testing.T) {
	env := newTestEnv(t)
	p := env.createProject(t, "Launch")

	_, err := env.service.CreateTask(env.ctx, p.ID, "U1", &CreateTaskRequest{Title: "x"})
	assert.ErrorIs(t, err, ErrInvalidTitle)

	_, err = env.service.CreateTask(env.ctx, p.ID, "U1", &CreateTaskRequest{Title: "Plan", Status: "done"})
	assert.ErrorIs(t, err, ErrInvalidStatus)

	_, err = env.service.CreateTask(env.ctx, p.ID, "U1", &CreateTaskRequest{Title: "Plan", Priority: "urgent"})
	assert.ErrorIs(t, err, ErrInvalidPriority)

	_, err = env.service.CreateTask(env.ctx, p.ID, "U3", &CreateTaskRequest{Title: "Plan"})
	assert.ErrorIs(t, err, ErrAccessDenied)
}

func TestService_AssigneeSnapshotSurvivesMemberRemoval(t *testing.T) {
	env := newTestEnv(t)
	p := env.createProject(t, "Launch")
	task := env.createTask(t, p.ID, "Design", nil, "bob@x.com")

	_, err := env.teams.RemoveMember(env.ctx, env.team.ID, "U2", "U1")
	require.NoError(t, err)

	// Existing snapshots are not re-validated on update.
	updated, err := env.service.UpdateTask(env.ctx, p.ID, task.ID, "U1", &UpdateTaskRequest{
		Assignees: &[]string{"bob@x.com", "uma@x.com"},
		Status:    ptr(TaskInProgress),
	})
	require.NoError(t, err)
	require.Len(t, updated.Assignees, 2)
	assert.Equal(t, "bob@x.com", updated.Assignees[0].Email)
	assert.Equal(t, TaskInProgress, updated.Status)

	// Newly added assignees are.
	_, err = env.service.UpdateTask(env.ctx, p.ID, task.ID, "U1", &UpdateTaskRequest{
		Assignees: &[]string{"eve@x.com"},
	})
	assert.ErrorIs(t, err, ErrInvalidAssignee)
}

func TestService_UpdateTaskDueDate(t *testing.T) {
	env := newTestEnv(t)
	p := env.createProject(t, "Launch")
	due := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	task := env.createTask(t, p.ID, "Design", &due)

	later := due.Add(24 * time.Hour)
	updated, err := env.service.UpdateTask(env.ctx, p.ID, task.ID, "U2", &UpdateTaskRequest{DueDate: &later})
	require.NoError(t, err)
	require.NotNil(t, updated.DueDate)
	assert.True(t, later.Equal(*updated.DueDate))

	updated, err = env.service.UpdateTask(env.ctx, p.ID, task.ID, "U2", &UpdateTaskRequest{ClearDueDate: true})
	require.NoError(t, err)
	assert.Nil(t, updated.DueDate)
}

func TestService_TaskMustBelongToProject(t *testing.T) {
	env := newTestEnv(t)
	p1 := env.createProject(t, "One")
	p2 := env.createProject(t, "Two")
	task := env.createTask(t, p1.ID, "Design", nil)

	_, err := env.service.GetTask(env.ctx, p2.ID, task.ID, "U1")
	assert.ErrorIs(t, err, ErrTaskNotFound)

	err = env.service.DeleteTask(env.ctx, p2.ID, task.ID, "U1")
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestService_DeleteTaskIsHard(t *testing.T) {
	env := newTestEnv(t)
	p := env.createProject(t, "Launch")
	task := env.createTask(t, p.ID, "Design", nil)

	_, err := env.service.GetTask(env.ctx, p.ID, task.ID, "U3")
	assert.ErrorIs(t, err, ErrAccessDenied)

	require.NoError(t, env.service.DeleteTask(env.ctx, p.ID, task.ID, "U2"))

	_, err = env.repo.GetTask(env.ctx, task.ID)
	assert.ErrorIs(t, err, ErrTaskNotFound)
	got, err := env.service.GetProject(env.ctx, p.ID, "U1")
	require.NoError(t, err)
	assert.False(t, got.HasTask(task.ID))
	assert.ErrorIs(t, env.service.DeleteTask(env.ctx, p.ID, task.ID, "U1"), ErrTaskNotFound)
}

func TestService_Assignees(t *testing.T) {
	env := newTestEnv(t)
	p := env.createProject(t, "Launch")
	task := env.createTask(t, p.ID, "Design", nil)

	updated, err := env.service.AddAssignee(env.ctx, p.ID, task.ID, "U2", "Bob@x.com")
	require.NoError(t, err)
	require.Len(t, updated.Assignees, 1)

	updated, err = env.service.AddAssignee(env.ctx, p.ID, task.ID, "U2", "bob@x.com")
	require.NoError(t, err)
	assert.Len(t, updated.Assignees, 1)

	_, err = env.service.AddAssignee(env.ctx, p.ID, task.ID, "U2", "eve@x.com")
	assert.ErrorIs(t, err, ErrInvalidAssignee)

	updated, err = env.service.AddAssignee(env.ctx, p.ID, task.ID, "U1", "uma@x.com")
	require.NoError(t, err)
	require.Len(t, updated.Assignees, 2)

	updated, err = env.service.RemoveAssignee(env.ctx, p.ID, task.ID, "U1", "U2")
	require.NoError(t, err)
	require.Len(t, updated.Assignees, 1)
	assert.Equal(t, "uma@x.com", updated.Assignees[0].Email)

	updated, err = env.service.RemoveAssignee(env.ctx, p.ID, task.ID, "U1", "UMA@x.com")
	require.NoError(t, err)
	assert.Empty(t, updated.Assignees)

	_, err = env.service.RemoveAssignee(env.ctx, p.ID, task.ID, "U1", "U2")
	assert.ErrorIs(t, err, ErrAssigneeNotFound)
}
