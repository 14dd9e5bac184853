package project

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
	projectTable = "projects"
	taskTable    = "tasks"
)

type projectRecord struct {
	ID      string
	TeamID  string
	Project Project
}

type taskRecord struct {
	ID        string
	ProjectID string
	Task      Task
}

func memorySchema() *memdb.DBSchema {
	return &memdb.DBSchema{
		Tables: map[string]*memdb.TableSchema{
			projectTable: {
				Name: projectTable,
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
				},
			},
			taskTable: {
				Name: taskTable,
				Indexes: map[string]*memdb.IndexSchema{
					"id": {
						Name:    "id",
						Unique:  true,
						Indexer: &memdb.StringFieldIndex{Field: "ID"},
					},
					"project": {
						Name:    "project",
						Indexer: &memdb.StringFieldIndex{Field: "ProjectID"},
					},
				},
			},
		},
	}
}

// memoryRepository implements Repository on go-memdb.
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

func cloneProject(p Project) *Project {
	p.TaskIDs = slices.Clone(p.TaskIDs)
	return &p
}

func cloneTask(t Task) *Task {
	t.Assignees = slices.Clone(t.Assignees)
	if t.Assignees == nil {
		t.Assignees = Assignees{}
	}
	return &t
}

func stamp(created, updated *time.Time) {
	now := time.Now()
	if created.IsZero() {
		*created = now
	}
	*updated = now
}

// ========== Projects ==========

func (r *memoryRepository) CreateProject(_ context.Context, project *Project) error {
	txn := r.db.Txn(true)
	defer txn.Abort()

	stamp(&project.CreatedAt, &project.UpdatedAt)
	rec := &projectRecord{ID: project.ID.String(), TeamID: project.TeamID.String(), Project: *cloneProject(*project)}
	if err := txn.Insert(projectTable, rec); err != nil {
		return err
	}
	txn.Commit()
	return nil
}

func (r *memoryRepository) GetProject(_ context.Context, id uuid.UUID) (*Project, error) {
	txn := r.db.Txn(false)
	defer txn.Abort()

	rec, err := firstProject(txn, id, true)
	if err != nil {
		return nil, err
	}
	return cloneProject(rec.Project), nil
}

func (r *memoryRepository) ListProjectsByTeam(_ context.Context, teamID uuid.UUID) ([]*Project, error) {
	txn := r.db.Txn(false)
	defer txn.Abort()

	it, err := txn.Get(projectTable, "team", teamID.String())
	if err != nil {
		return nil, err
	}
	projects := []*Project{}
	for obj := it.Next(); obj != nil; obj = it.Next() {
		if p := obj.(*projectRecord).Project; p.IsActive {
			projects = append(projects, cloneProject(p))
		}
	}
	sort.SliceStable(projects, func(i, j int) bool {
		return projects[i].CreatedAt.Before(projects[j].CreatedAt)
	})
	return projects, nil
}

func (r *memoryRepository) UpdateProject(_ context.Context, project *Project) error {
	return r.updateProject(project.ID, true, func(p *Project) {
		p.Name = project.Name
		p.Description = project.Description
		p.Status = project.Status
		p.Color = project.Color
		p.StartDate = project.StartDate
		p.DueDate = project.DueDate
	})
}

func (r *memoryRepository) SoftDeleteProject(_ context.Context, id uuid.UUID) error {
	txn := r.db.Txn(true)
	defer txn.Abort()

	rec, err := firstProject(txn, id, true)
	if err != nil {
		return err
	}
	updated := *rec
	updated.Project = *cloneProject(rec.Project)
	updated.Project.IsActive = false
	updated.Project.UpdatedAt = time.Now()
	if err := txn.Insert(projectTable, &updated); err != nil {
		return err
	}

	it, err := txn.Get(taskTable, "project", id.String())
	if err != nil {
		return err
	}
	var tasks []*taskRecord
	for obj := it.Next(); obj != nil; obj = it.Next() {
		tasks = append(tasks, obj.(*taskRecord))
	}
	for _, t := range tasks {
		cp := *t
		cp.Task = *cloneTask(t.Task)
		cp.Task.IsActive = false
		if err := txn.Insert(taskTable, &cp); err != nil {
			return err
		}
	}

	txn.Commit()
	return nil
}

func (r *memoryRepository) AppendTask(_ context.Context, projectID, taskID uuid.UUID) error {
	return r.updateProject(projectID, false, func(p *Project) {
		if !p.HasTask(taskID) {
			p.TaskIDs = append(p.TaskIDs, taskID.String())
		}
	})
}

func (r *memoryRepository) RemoveTask(_ context.Context, projectID, taskID uuid.UUID) error {
	id := taskID.String()
	return r.updateProject(projectID, false, func(p *Project) {
		p.TaskIDs = slices.DeleteFunc(p.TaskIDs, func(s string) bool { return s == id })
	})
}

func (r *memoryRepository) updateProject(id uuid.UUID, activeOnly bool, fn func(*Project)) error {
	txn := r.db.Txn(true)
	defer txn.Abort()

	rec, err := firstProject(txn, id, activeOnly)
	if err != nil {
		return err
	}
	updated := *rec
	updated.Project = *cloneProject(rec.Project)
	fn(&updated.Project)
	updated.Project.UpdatedAt = time.Now()

	if err := txn.Insert(projectTable, &updated); err != nil {
		return err
	}
	txn.Commit()
	return nil
}

func firstProject(txn *memdb.Txn, id uuid.UUID, activeOnly bool) (*projectRecord, error) {
	raw, err := txn.First(projectTable, "id", id.String())
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, ErrProjectNotFound
	}
	rec := raw.(*projectRecord)
	if activeOnly && !rec.Project.IsActive {
		return nil, ErrProjectNotFound
	}
	return rec, nil
}

// ========== Tasks ==========

func (r *memoryRepository) CreateTask(_ context.Context, task *Task) error {
	txn := r.db.Txn(true)
	defer txn.Abort()

	stamp(&task.CreatedAt, &task.UpdatedAt)
	rec := &taskRecord{ID: task.ID.String(), ProjectID: task.ProjectID.String(), Task: *cloneTask(*task)}
	if err := txn.Insert(taskTable, rec); err != nil {
		return err
	}
	txn.Commit()
	return nil
}

func (r *memoryRepository) GetTask(_ context.Context, id uuid.UUID) (*Task, error) {
	txn := r.db.Txn(false)
	defer txn.Abort()

	rec, err := firstTask(txn, id)
	if err != nil {
		return nil, err
	}
	return cloneTask(rec.Task), nil
}

func (r *memoryRepository) ListTasksByProject(_ context.Context, projectID uuid.UUID) ([]*Task, error) {
	txn := r.db.Txn(false)
	defer txn.Abort()

	it, err := txn.Get(taskTable, "project", projectID.String())
	if err != nil {
		return nil, err
	}
	tasks := []*Task{}
	for obj := it.Next(); obj != nil; obj = it.Next() {
		if t := obj.(*taskRecord).Task; t.IsActive {
			tasks = append(tasks, cloneTask(t))
		}
	}
	sort.SliceStable(tasks, func(i, j int) bool {
		return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
	})
	return tasks, nil
}

func (r *memoryRepository) UpdateTask(_ context.Context, task *Task) error {
	txn := r.db.Txn(true)
	defer txn.Abort()

	rec, err := firstTask(txn, task.ID)
	if err != nil {
		return err
	}
	updated := *rec
	updated.Task = *cloneTask(rec.Task)
	updated.Task.Title = task.Title
	updated.Task.Description = task.Description
	updated.Task.Status = task.Status
	updated.Task.Priority = task.Priority
	updated.Task.DueDate = task.DueDate
	updated.Task.Assignees = slices.Clone(task.Assignees)
	updated.Task.UpdatedAt = time.Now()

	if err := txn.Insert(taskTable, &updated); err != nil {
		return err
	}
	txn.Commit()
	return nil
}

func (r *memoryRepository) DeleteTask(_ context.Context, id uuid.UUID) error {
	txn := r.db.Txn(true)
	defer txn.Abort()

	n, err := txn.DeleteAll(taskTable, "id", id.String())
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrTaskNotFound
	}
	txn.Commit()
	return nil
}

func (r *memoryRepository) ListDueBetween(_ context.Context, from, to time.Time) ([]*Task, error) {
	txn := r.db.Txn(false)
	defer txn.Abort()

	it, err := txn.Get(taskTable, "id")
	if err != nil {
		return nil, err
	}
	tasks := []*Task{}
	for obj := it.Next(); obj != nil; obj = it.Next() {
		t := obj.(*taskRecord).Task
		if !t.IsActive || t.DueDate == nil {
			continue
		}
		if t.DueDate.Before(from) || !t.DueDate.Before(to) {
			continue
		}
		tasks = append(tasks, cloneTask(t))
	}
	sort.SliceStable(tasks, func(i, j int) bool {
		return tasks[i].DueDate.Before(*tasks[j].DueDate)
	})
	return tasks, nil
}

func firstTask(txn *memdb.Txn, id uuid.UUID) (*taskRecord, error) {
	raw, err := txn.First(taskTable, "id", id.String())
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, ErrTaskNotFound
	}
	rec := raw.(*taskRecord)
	if !rec.Task.IsActive {
		return nil, ErrTaskNotFound
	}
	return rec, nil
}
