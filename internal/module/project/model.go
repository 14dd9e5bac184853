package project

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Status represents a project's lifecycle status.
type Status string

const (
	StatusActive    Status = "active"
	StatusArchived  Status = "archived"
	StatusCompleted Status = "completed"
)

// IsValid checks if the status is valid.
func (s Status) IsValid() bool {
	switch s {
	case StatusActive, StatusArchived, StatusCompleted:
		return true
	}
	return false
}

// TaskStatus represents a task's workflow status.
type TaskStatus string

const (
	TaskTodo       TaskStatus = "todo"
	TaskInProgress TaskStatus = "in-progress"
	TaskReview     TaskStatus = "review"
	TaskBlocked    TaskStatus = "blocked"
	TaskCompleted  TaskStatus = "completed"
	TaskArchived   TaskStatus = "archived"
	TaskOnHold     TaskStatus = "on-hold"
)

// IsValid checks if the task status is valid.
func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskTodo, TaskInProgress, TaskReview, TaskBlocked, TaskCompleted, TaskArchived, TaskOnHold:
		return true
	}
	return false
}

// Priority represents a task's priority.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// IsValid checks if the priority is valid.
func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// AssigneeRole is the role label stored on every assignee snapshot.
const AssigneeRole = "assignee"

// DefaultColor is the color given to projects created without one.
const DefaultColor = "#10B981"

// Project belongs to exactly one team. TeamID never changes after
// creation and is the source of truth for the team's project index.
type Project struct {
	ID          uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	TeamID      uuid.UUID      `json:"team_id" gorm:"type:uuid;not null;index"`
	Name        string         `json:"name" gorm:"size:100;not null"`
	Description string         `json:"description" gorm:"size:500"`
	CreatedBy   string         `json:"created_by" gorm:"not null"`
	Status      Status         `json:"status" gorm:"size:16;not null;default:active"`
	Color       string         `json:"color" gorm:"size:7;not null"`
	StartDate   *time.Time     `json:"start_date,omitempty"`
	DueDate     *time.Time     `json:"due_date,omitempty"`
	TaskIDs     pq.StringArray `json:"tasks" gorm:"type:text[];default:'{}'"`
	IsActive    bool           `json:"is_active" gorm:"not null;default:true;index"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// TableName returns the database table name.
func (Project) TableName() string {
	return "projects"
}

// HasTask reports whether the task index references id.
func (p *Project) HasTask(id uuid.UUID) bool {
	return slices.Contains(p.TaskIDs, id.String())
}

// Assignee is a snapshot of a team member taken when the task was
// assigned. It is not updated when the member later changes or leaves.
type Assignee struct {
	IdentityID string `json:"identity_id,omitempty"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Role       string `json:"role"`
}

// Assignees is stored as a JSON column.
type Assignees []Assignee

// Value implements driver.Valuer.
func (a Assignees) Value() (driver.Value, error) {
	if a == nil {
		return "[]", nil
	}
	b, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (a *Assignees) Scan(value any) error {
	var raw []byte
	switch v := value.(type) {
	case nil:
		*a = Assignees{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("scan assignees: unsupported type %T", value)
	}
	return json.Unmarshal(raw, a)
}

// ByEmail returns the index of the assignee with email, or -1.
func (a Assignees) ByEmail(email string) int {
	return slices.IndexFunc(a, func(x Assignee) bool { return x.Email == email })
}

// Find returns the index of the assignee matching an identity id or
// email, or -1.
func (a Assignees) Find(target string) int {
	return slices.IndexFunc(a, func(x Assignee) bool {
		return (x.IdentityID != "" && x.IdentityID == target) || x.Email == target
	})
}

// Task belongs to exactly one project. ProjectID never changes after
// creation.
type Task struct {
	ID          uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	ProjectID   uuid.UUID  `json:"project_id" gorm:"type:uuid;not null;index"`
	Title       string     `json:"title" gorm:"size:200;not null"`
	Description string     `json:"description" gorm:"size:1000"`
	CreatedBy   string     `json:"created_by" gorm:"not null"`
	Status      TaskStatus `json:"status" gorm:"size:16;not null;default:todo"`
	Priority    Priority   `json:"priority" gorm:"size:16;not null;default:medium"`
	DueDate     *time.Time `json:"due_date,omitempty" gorm:"index"`
	Assignees   Assignees  `json:"assignees" gorm:"type:jsonb;not null;default:'[]'"`
	IsActive    bool       `json:"is_active" gorm:"not null;default:true;index"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// TableName returns the database table name.
func (Task) TableName() string {
	return "tasks"
}
