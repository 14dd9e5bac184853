package project

import (
	"time"

	"github.com/crewboard/server/internal/module/collaboration"
)

// CreateProjectRequest represents a request to create a project. Field
// rules are enforced by the service after the access check.
type CreateProjectRequest struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Status      Status     `json:"status" enums:"active,archived,completed"`
	Color       string     `json:"color"`
	StartDate   *time.Time `json:"start_date"`
	DueDate     *time.Time `json:"due_date"`
}

// UpdateProjectRequest represents a request to update a project.
type UpdateProjectRequest struct {
	Name        *string    `json:"name"`
	Description *string    `json:"description"`
	Status      *Status    `json:"status" enums:"active,archived,completed"`
	Color       *string    `json:"color"`
	StartDate   *time.Time `json:"start_date"`
	DueDate     *time.Time `json:"due_date"`
}

// ProjectMemberRequest adds or invites a member to the project's team.
type ProjectMemberRequest struct {
	Email string             `json:"email" binding:"required,email"`
	Role  collaboration.Role `json:"role" binding:"omitempty,oneof=admin member"`
}

// CreateTaskRequest represents a request to create a task. Assignees are
// emails of members of the project's team.
type CreateTaskRequest struct {
	Title       string     `json:"title" binding:"required,min=2,max=200"`
	Description string     `json:"description" binding:"max=1000"`
	Status      TaskStatus `json:"status" binding:"omitempty"`
	Priority    Priority   `json:"priority" binding:"omitempty,oneof=low medium high critical"`
	DueDate     *time.Time `json:"due_date"`
	Assignees   []string   `json:"assignees" binding:"omitempty,dive,email"`
}

// UpdateTaskRequest represents a request to update a task. A non-nil
// Assignees replaces the assignee list.
type UpdateTaskRequest struct {
	Title        *string     `json:"title" binding:"omitempty,min=2,max=200"`
	Description  *string     `json:"description" binding:"omitempty,max=1000"`
	Status       *TaskStatus `json:"status"`
	Priority     *Priority   `json:"priority" binding:"omitempty,oneof=low medium high critical"`
	DueDate      *time.Time  `json:"due_date"`
	ClearDueDate bool        `json:"clear_due_date"`
	Assignees    *[]string   `json:"assignees"`
}

// AddAssigneeRequest represents a request to assign a team member.
type AddAssigneeRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// ReconcileResult reports a rebuilt project index.
type ReconcileResult struct {
	TeamID   string   `json:"team_id"`
	Projects []string `json:"projects"`
	Added    int      `json:"added"`
	Removed  int      `json:"removed"`
}
