package project

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRepository_ListDueBetween(t *testing.T) {
	repo, err := NewMemoryRepository()
	require.NoError(t, err)
	ctx := context.Background()

	from := time.Date(2026, 6, 2, 0, 0, 0, 0, time.UTC)
	to := from.Add(24 * time.Hour)
	at := func(d time.Duration) *time.Time {
		v := from.Add(d)
		return &v
	}

	projectID := uuid.New()
	insert := func(title string, due *time.Time, status TaskStatus, active bool) uuid.UUID {
		task := &Task{
			ID:        uuid.New(),
			ProjectID: projectID,
			Title:     title,
			Status:    status,
			Priority:  PriorityMedium,
			DueDate:   due,
			IsActive:  active,
		}
		require.NoError(t, repo.CreateTask(ctx, task))
		return task.ID
	}

	morning := insert("morning", at(10*time.Hour), TaskTodo, true)
	start := insert("window start", at(0), TaskBlocked, true)
	insert("window end", at(24*time.Hour), TaskTodo, true)
	insert("day before", at(-time.Minute), TaskTodo, true)
	completed := insert("completed", at(time.Hour), TaskCompleted, true)
	archived := insert("archived", at(2*time.Hour), TaskArchived, true)
	insert("inactive", at(time.Hour), TaskTodo, false)
	insert("no due date", nil, TaskTodo, true)

	tasks, err := repo.ListDueBetween(ctx, from, to)
	require.NoError(t, err)
	require.Len(t, tasks, 4)
	assert.Equal(t, start, tasks[0].ID)
	assert.Equal(t, completed, tasks[1].ID)
	assert.Equal(t, archived, tasks[2].ID)
	assert.Equal(t, morning, tasks[3].ID)
}

func TestMemoryRepository_ReturnsDetachedCopies(t *testing.T) {
	repo, err := NewMemoryRepository()
	require.NoError(t, err)
	ctx := context.Background()

	task := &Task{
		ID:        uuid.New(),
		ProjectID: uuid.New(),
		Title:     "Design",
		Status:    TaskTodo,
		Priority:  PriorityLow,
		Assignees: Assignees{{Email: "bob@x.com", Role: AssigneeRole}},
		IsActive:  true,
	}
	require.NoError(t, repo.CreateTask(ctx, task))

	got, err := repo.GetTask(ctx, task.ID)
	require.NoError(t, err)
	got.Assignees[0].Email = "mallory@x.com"
	got.Title = "Changed"

	again, err := repo.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "Design", again.Title)
	assert.Equal(t, "bob@x.com", again.Assignees[0].Email)
}

func TestMemoryRepository_TaskIndex(t *testing.T) {
	repo, err := NewMemoryRepository()
	require.NoError(t, err)
	ctx := context.Background()

	p := &Project{ID: uuid.New(), TeamID: uuid.New(), Name: "Launch", Status: StatusActive, IsActive: true}
	require.NoError(t, repo.CreateProject(ctx, p))

	taskID := uuid.New()
	require.NoError(t, repo.AppendTask(ctx, p.ID, taskID))
	require.NoError(t, repo.AppendTask(ctx, p.ID, taskID))

	got, err := repo.GetProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{taskID.String()}, []string(got.TaskIDs))

	require.NoError(t, repo.RemoveTask(ctx, p.ID, taskID))
	got, err = repo.GetProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, got.TaskIDs)

	assert.ErrorIs(t, repo.AppendTask(ctx, uuid.New(), taskID), ErrProjectNotFound)
}
