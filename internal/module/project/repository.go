package project

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository defines the interface for project and task data access.
type Repository interface {
	// Project operations
	CreateProject(ctx context.Context, project *Project) error
	GetProject(ctx context.Context, id uuid.UUID) (*Project, error)
	ListProjectsByTeam(ctx context.Context, teamID uuid.UUID) ([]*Project, error)
	UpdateProject(ctx context.Context, project *Project) error
	// SoftDeleteProject marks the project and its tasks inactive.
	SoftDeleteProject(ctx context.Context, id uuid.UUID) error

	// Task index operations. The index is advisory; Task.ProjectID is the
	// source of truth.
	AppendTask(ctx context.Context, projectID, taskID uuid.UUID) error
	RemoveTask(ctx context.Context, projectID, taskID uuid.UUID) error

	// Task operations
	CreateTask(ctx context.Context, task *Task) error
	GetTask(ctx context.Context, id uuid.UUID) (*Task, error)
	ListTasksByProject(ctx context.Context, projectID uuid.UUID) ([]*Task, error)
	UpdateTask(ctx context.Context, task *Task) error
	DeleteTask(ctx context.Context, id uuid.UUID) error

	// ListDueBetween returns active, open tasks due in [from, to).
	ListDueBetween(ctx context.Context, from, to time.Time) ([]*Task, error)
}

// repository implements Repository using GORM.
type repository struct {
	db *gorm.DB
}

// NewRepository creates a new project repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// Models returns the models to migrate.
func Models() []any {
	return []any{&Project{}, &Task{}}
}

// ========== Projects ==========

func (r *repository) CreateProject(ctx context.Context, project *Project) error {
	return r.db.WithContext(ctx).Create(project).Error
}

func (r *repository) GetProject(ctx context.Context, id uuid.UUID) (*Project, error) {
	var project Project
	err := r.db.WithContext(ctx).
		Where("id = ? AND is_active = ?", id, true).
		First(&project).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, err
	}
	return &project, nil
}

func (r *repository) ListProjectsByTeam(ctx context.Context, teamID uuid.UUID) ([]*Project, error) {
	var projects []*Project
	err := r.db.WithContext(ctx).
		Where("team_id = ? AND is_active = ?", teamID, true).
		Order("created_at ASC").
		Find(&projects).Error
	if err != nil {
		return nil, err
	}
	return projects, nil
}

func (r *repository) UpdateProject(ctx context.Context, project *Project) error {
	result := r.db.WithContext(ctx).
		Model(&Project{}).
		Where("id = ? AND is_active = ?", project.ID, true).
		Updates(map[string]any{
			"name":        project.Name,
			"description": project.Description,
			"status":      project.Status,
			"color":       project.Color,
			"start_date":  project.StartDate,
			"due_date":    project.DueDate,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrProjectNotFound
	}
	return nil
}

func (r *repository) SoftDeleteProject(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&Project{}).
			Where("id = ? AND is_active = ?", id, true).
			Update("is_active", false)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrProjectNotFound
		}
		return tx.Model(&Task{}).
			Where("project_id = ?", id).
			Update("is_active", false).Error
	})
}

func (r *repository) AppendTask(ctx context.Context, projectID, taskID uuid.UUID) error {
	id := taskID.String()
	return r.db.WithContext(ctx).
		Model(&Project{}).
		Where("id = ?", projectID).
		Where("NOT (COALESCE(task_ids, '{}') @> ARRAY[?]::text[])", id).
		Update("task_ids", gorm.Expr("array_append(COALESCE(task_ids, '{}'), ?)", id)).
		Error
}

func (r *repository) RemoveTask(ctx context.Context, projectID, taskID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&Project{}).
		Where("id = ?", projectID).
		Update("task_ids", gorm.Expr("array_remove(task_ids, ?)", taskID.String())).
		Error
}

// ========== Tasks ==========

func (r *repository) CreateTask(ctx context.Context, task *Task) error {
	return r.db.WithContext(ctx).Create(task).Error
}

func (r *repository) GetTask(ctx context.Context, id uuid.UUID) (*Task, error) {
	var task Task
	err := r.db.WithContext(ctx).
		Where("id = ? AND is_active = ?", id, true).
		First(&task).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}
	return &task, nil
}

func (r *repository) ListTasksByProject(ctx context.Context, projectID uuid.UUID) ([]*Task, error) {
	var tasks []*Task
	err := r.db.WithContext(ctx).
		Where("project_id = ? AND is_active = ?", projectID, true).
		Order("created_at ASC").
		Find(&tasks).Error
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *repository) UpdateTask(ctx context.Context, task *Task) error {
	result := r.db.WithContext(ctx).
		Model(&Task{}).
		Where("id = ? AND is_active = ?", task.ID, true).
		Updates(map[string]any{
			"title":       task.Title,
			"description": task.Description,
			"status":      task.Status,
			"priority":    task.Priority,
			"due_date":    task.DueDate,
			"assignees":   task.Assignees,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrTaskNotFound
	}
	return nil
}

func (r *repository) DeleteTask(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&Task{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrTaskNotFound
	}
	return nil
}

func (r *repository) ListDueBetween(ctx context.Context, from, to time.Time) ([]*Task, error) {
	var tasks []*Task
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Where("due_date >= ? AND due_date < ?", from, to).
		Order("due_date ASC").
		Find(&tasks).Error
	if err != nil {
		return nil, err
	}
	return tasks, nil
}
