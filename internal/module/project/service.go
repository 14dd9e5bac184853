package project

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/crewboard/server/internal/module/collaboration"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TeamDirectory is the slice of the membership store the hierarchy
// manager depends on.
type TeamDirectory interface {
	GetTeamByID(ctx context.Context, teamID uuid.UUID) (*collaboration.Team, error)
	RemoveMember(ctx context.Context, teamID uuid.UUID, target, actingID string) (*collaboration.Team, error)
	AppendProject(ctx context.Context, teamID, projectID uuid.UUID) error
	RemoveProject(ctx context.Context, teamID, projectID uuid.UUID) error
	SetProjects(ctx context.Context, teamID uuid.UUID, projectIDs []uuid.UUID) error
}

// MemberInviter adds or invites team members by email.
type MemberInviter interface {
	InviteOrAdd(ctx context.Context, teamID uuid.UUID, actingID, email string, role collaboration.Role) (*collaboration.InviteResult, error)
}

// Service manages the team -> project -> task hierarchy. Every operation
// evaluates access against freshly loaded team state before writing.
type Service struct {
	repo    Repository
	teams   TeamDirectory
	inviter MemberInviter
	logger  *zap.Logger
}

// NewService creates a new project service.
func NewService(repo Repository, teams TeamDirectory, inviter MemberInviter, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:    repo,
		teams:   teams,
		inviter: inviter,
		logger:  logger.Named("project"),
	}
}

// ========== Project Operations ==========

// CreateProject creates a project in an active team and records it in the
// team's project index. A failed index write is logged and not rolled
// back; ReconcileTeamProjects repairs it.
func (s *Service) CreateProject(ctx context.Context, teamID uuid.UUID, callerID string, req *CreateProjectRequest) (*Project, error) {
	if _, err := s.authorize(ctx, teamID, callerID); err != nil {
		return nil, err
	}

	project := &Project{
		ID:          uuid.New(),
		TeamID:      teamID,
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		CreatedBy:   callerID,
		Status:      req.Status,
		Color:       req.Color,
		StartDate:   req.StartDate,
		DueDate:     req.DueDate,
		TaskIDs:     []string{},
		IsActive:    true,
	}
	if project.Status == "" {
		project.Status = StatusActive
	}
	if project.Color == "" {
		project.Color = DefaultColor
	}
	if err := validateProject(project); err != nil {
		return nil, err
	}

	if err := s.repo.CreateProject(ctx, project); err != nil {
		return nil, err
	}

	if err := s.teams.AppendProject(ctx, teamID, project.ID); err != nil {
		s.logger.Warn("failed to index project on team",
			zap.String("team_id", teamID.String()),
			zap.String("project_id", project.ID.String()),
			zap.Error(err),
		)
	}

	s.logger.Info("project created",
		zap.String("project_id", project.ID.String()),
		zap.String("team_id", teamID.String()),
		zap.String("created_by", callerID),
	)
	return project, nil
}

// GetProject returns a project the caller can access.
func (s *Service) GetProject(ctx context.Context, projectID uuid.UUID, callerID string) (*Project, error) {
	project, _, err := s.loadProject(ctx, projectID, callerID)
	return project, err
}

// ListTeamProjects lists a team's active projects by their owning team
// reference rather than the team's index.
func (s *Service) ListTeamProjects(ctx context.Context, teamID uuid.UUID, callerID string) ([]*Project, error) {
	if _, err := s.authorize(ctx, teamID, callerID); err != nil {
		return nil, err
	}
	return s.repo.ListProjectsByTeam(ctx, teamID)
}

// UpdateProject updates a project's fields. The owning team cannot change.
func (s *Service) UpdateProject(ctx context.Context, projectID uuid.UUID, callerID string, req *UpdateProjectRequest) (*Project, error) {
	project, _, err := s.loadProject(ctx, projectID, callerID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		project.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		project.Description = *req.Description
	}
	if req.Status != nil {
		project.Status = *req.Status
	}
	if req.Color != nil {
		project.Color = *req.Color
	}
	if req.StartDate != nil {
		project.StartDate = req.StartDate
	}
	if req.DueDate != nil {
		project.DueDate = req.DueDate
	}
	if err := validateProject(project); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateProject(ctx, project); err != nil {
		return nil, err
	}
	return s.repo.GetProject(ctx, projectID)
}

// DeleteProject soft-deletes a project and its tasks, then pulls it from
// the team's project index. Team admins and the project creator may
// delete.
func (s *Service) DeleteProject(ctx context.Context, projectID uuid.UUID, callerID string) error {
	project, team, err := s.loadProject(ctx, projectID, callerID)
	if err != nil {
		return err
	}
	if !collaboration.IsAdmin(callerID, team) && project.CreatedBy != callerID {
		return ErrDeleteNotAllowed
	}

	if err := s.repo.SoftDeleteProject(ctx, projectID); err != nil {
		return err
	}
	if err := s.teams.RemoveProject(ctx, project.TeamID, projectID); err != nil {
		s.logger.Warn("failed to remove project from team index",
			zap.String("team_id", project.TeamID.String()),
			zap.String("project_id", projectID.String()),
			zap.Error(err),
		)
	}

	s.logger.Info("project deleted",
		zap.String("project_id", projectID.String()),
		zap.String("deleted_by", callerID),
	)
	return nil
}

// AddProjectMember adds or invites a member to the project's team.
func (s *Service) AddProjectMember(ctx context.Context, projectID uuid.UUID, callerID string, req *ProjectMemberRequest) (*collaboration.InviteResult, error) {
	project, _, err := s.loadProject(ctx, projectID, callerID)
	if err != nil {
		return nil, err
	}
	return s.inviter.InviteOrAdd(ctx, project.TeamID, callerID, req.Email, req.Role)
}

// RemoveProjectMember removes a member from the project's team.
func (s *Service) RemoveProjectMember(ctx context.Context, projectID uuid.UUID, callerID, target string) (*collaboration.Team, error) {
	project, _, err := s.loadProject(ctx, projectID, callerID)
	if err != nil {
		return nil, err
	}
	return s.teams.RemoveMember(ctx, project.TeamID, target, callerID)
}

// ReconcileTeamProjects rebuilds the team's project index from the
// projects that reference the team. Admin only.
func (s *Service) ReconcileTeamProjects(ctx context.Context, teamID uuid.UUID, callerID string) (*ReconcileResult, error) {
	team, err := s.teams.GetTeamByID(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if !collaboration.IsAdmin(callerID, team) {
		return nil, collaboration.ErrAdminRequired
	}

	projects, err := s.repo.ListProjectsByTeam(ctx, teamID)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, len(projects))
	result := &ReconcileResult{TeamID: teamID.String(), Projects: make([]string, len(projects))}
	truth := make(map[string]struct{}, len(projects))
	for i, p := range projects {
		ids[i] = p.ID
		result.Projects[i] = p.ID.String()
		truth[p.ID.String()] = struct{}{}
		if !team.HasProject(p.ID) {
			result.Added++
		}
	}
	for _, id := range team.ProjectIDs {
		if _, ok := truth[id]; !ok {
			result.Removed++
		}
	}

	if err := s.teams.SetProjects(ctx, teamID, ids); err != nil {
		return nil, err
	}

	if result.Added > 0 || result.Removed > 0 {
		s.logger.Info("team project index repaired",
			zap.String("team_id", teamID.String()),
			zap.Int("added", result.Added),
			zap.Int("removed", result.Removed),
		)
	}
	return result, nil
}

// ========== Task Operations ==========

// CreateTask creates a task. Every assignee email must belong to a
// current member of the project's team.
func (s *Service) CreateTask(ctx context.Context, projectID uuid.UUID, callerID string, req *CreateTaskRequest) (*Task, error) {
	project, team, err := s.loadProject(ctx, projectID, callerID)
	if err != nil {
		return nil, err
	}

	task := &Task{
		ID:          uuid.New(),
		ProjectID:   project.ID,
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		CreatedBy:   callerID,
		Status:      req.Status,
		Priority:    req.Priority,
		DueDate:     req.DueDate,
		IsActive:    true,
	}
	if task.Status == "" {
		task.Status = TaskTodo
	}
	if task.Priority == "" {
		task.Priority = PriorityMedium
	}
	if err := validateTask(task); err != nil {
		return nil, err
	}

	task.Assignees, err = resolveAssignees(team, req.Assignees, nil)
	if err != nil {
		return nil, err
	}

	if err := s.repo.CreateTask(ctx, task); err != nil {
		return nil, err
	}
	if err := s.repo.AppendTask(ctx, project.ID, task.ID); err != nil {
		s.logger.Warn("failed to index task on project",
			zap.String("project_id", project.ID.String()),
			zap.String("task_id", task.ID.String()),
			zap.Error(err),
		)
	}

	s.logger.Info("task created",
		zap.String("task_id", task.ID.String()),
		zap.String("project_id", project.ID.String()),
		zap.Int("assignees", len(task.Assignees)),
	)
	return task, nil
}

// GetTask returns a task of the given project.
func (s *Service) GetTask(ctx context.Context, projectID, taskID uuid.UUID, callerID string) (*Task, error) {
	task, _, err := s.loadTask(ctx, projectID, taskID, callerID)
	return task, err
}

// ListTasks lists a project's active tasks.
func (s *Service) ListTasks(ctx context.Context, projectID uuid.UUID, callerID string) ([]*Task, error) {
	if _, _, err := s.loadProject(ctx, projectID, callerID); err != nil {
		return nil, err
	}
	return s.repo.ListTasksByProject(ctx, projectID)
}

// UpdateTask updates a task. When the assignee list is replaced only the
// newly added emails are validated against the team; existing snapshots
// are kept as they are.
func (s *Service) UpdateTask(ctx context.Context, projectID, taskID uuid.UUID, callerID string, req *UpdateTaskRequest) (*Task, error) {
	task, team, err := s.loadTask(ctx, projectID, taskID, callerID)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		task.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		task.Description = *req.Description
	}
	if req.Status != nil {
		task.Status = *req.Status
	}
	if req.Priority != nil {
		task.Priority = *req.Priority
	}
	if req.ClearDueDate {
		task.DueDate = nil
	} else if req.DueDate != nil {
		task.DueDate = req.DueDate
	}
	if err := validateTask(task); err != nil {
		return nil, err
	}
	if req.Assignees != nil {
		task.Assignees, err = resolveAssignees(team, *req.Assignees, task.Assignees)
		if err != nil {
			return nil, err
		}
	}

	if err := s.repo.UpdateTask(ctx, task); err != nil {
		return nil, err
	}
	return s.repo.GetTask(ctx, taskID)
}

// DeleteTask permanently deletes a task and pulls it from the project's
// task index.
func (s *Service) DeleteTask(ctx context.Context, projectID, taskID uuid.UUID, callerID string) error {
	if _, _, err := s.loadTask(ctx, projectID, taskID, callerID); err != nil {
		return err
	}
	if err := s.repo.DeleteTask(ctx, taskID); err != nil {
		return err
	}
	if err := s.repo.RemoveTask(ctx, projectID, taskID); err != nil {
		s.logger.Warn("failed to remove task from project index",
			zap.String("project_id", projectID.String()),
			zap.String("task_id", taskID.String()),
			zap.Error(err),
		)
	}

	s.logger.Info("task deleted",
		zap.String("task_id", taskID.String()),
		zap.String("deleted_by", callerID),
	)
	return nil
}

// AddAssignee assigns a team member to a task. Assigning an existing
// assignee is a no-op.
func (s *Service) AddAssignee(ctx context.Context, projectID, taskID uuid.UUID, callerID, email string) (*Task, error) {
	task, team, err := s.loadTask(ctx, projectID, taskID, callerID)
	if err != nil {
		return nil, err
	}

	email = collaboration.NormalizeEmail(email)
	if task.Assignees.ByEmail(email) >= 0 {
		return task, nil
	}
	member := team.MemberByEmail(email)
	if member == nil {
		return nil, ErrInvalidAssignee
	}
	task.Assignees = append(task.Assignees, snapshot(member))

	if err := s.repo.UpdateTask(ctx, task); err != nil {
		return nil, err
	}
	return s.repo.GetTask(ctx, taskID)
}

// RemoveAssignee unassigns the assignee matching target (identity id or
// email).
func (s *Service) RemoveAssignee(ctx context.Context, projectID, taskID uuid.UUID, callerID, target string) (*Task, error) {
	task, _, err := s.loadTask(ctx, projectID, taskID, callerID)
	if err != nil {
		return nil, err
	}

	idx := task.Assignees.Find(target)
	if idx < 0 {
		idx = task.Assignees.ByEmail(collaboration.NormalizeEmail(target))
	}
	if idx < 0 {
		return nil, ErrAssigneeNotFound
	}
	task.Assignees = append(task.Assignees[:idx], task.Assignees[idx+1:]...)

	if err := s.repo.UpdateTask(ctx, task); err != nil {
		return nil, err
	}
	return s.repo.GetTask(ctx, taskID)
}

// ListDueBetween returns active, open tasks due in [from, to).
func (s *Service) ListDueBetween(ctx context.Context, from, to time.Time) ([]*Task, error) {
	return s.repo.ListDueBetween(ctx, from, to)
}

// ========== Helpers ==========

// authorize loads the team and checks the caller may access its projects.
func (s *Service) authorize(ctx context.Context, teamID uuid.UUID, callerID string) (*collaboration.Team, error) {
	team, err := s.teams.GetTeamByID(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if !collaboration.CanAccessProject(callerID, teamID, team) {
		return nil, ErrAccessDenied
	}
	return team, nil
}

func (s *Service) loadProject(ctx context.Context, projectID uuid.UUID, callerID string) (*Project, *collaboration.Team, error) {
	project, err := s.repo.GetProject(ctx, projectID)
	if err != nil {
		return nil, nil, err
	}
	team, err := s.authorize(ctx, project.TeamID, callerID)
	if err != nil {
		return nil, nil, err
	}
	return project, team, nil
}

func (s *Service) loadTask(ctx context.Context, projectID, taskID uuid.UUID, callerID string) (*Task, *collaboration.Team, error) {
	_, team, err := s.loadProject(ctx, projectID, callerID)
	if err != nil {
		return nil, nil, err
	}
	task, err := s.repo.GetTask(ctx, taskID)
	if err != nil {
		return nil, nil, err
	}
	if task.ProjectID != projectID {
		return nil, nil, ErrTaskNotFound
	}
	return task, team, nil
}

// resolveAssignees maps emails onto assignee snapshots. Emails already
// present in current keep their snapshot; others must belong to a
// member of team.
func resolveAssignees(team *collaboration.Team, emails []string, current Assignees) (Assignees, error) {
	out := make(Assignees, 0, len(emails))
	seen := make(map[string]struct{}, len(emails))
	for _, raw := range emails {
		email := collaboration.NormalizeEmail(raw)
		if _, dup := seen[email]; dup {
			continue
		}
		seen[email] = struct{}{}

		if idx := current.ByEmail(email); idx >= 0 {
			out = append(out, current[idx])
			continue
		}
		member := team.MemberByEmail(email)
		if member == nil {
			return nil, ErrInvalidAssignee
		}
		out = append(out, snapshot(member))
	}
	return out, nil
}

func snapshot(m *collaboration.Member) Assignee {
	a := Assignee{Name: m.Name, Email: m.Email, Role: AssigneeRole}
	if m.HasIdentity() {
		a.IdentityID = *m.IdentityID
	}
	return a
}

func validateProject(p *Project) error {
	if n := utf8.RuneCountInString(p.Name); n < 2 || n > 100 {
		return ErrInvalidName
	}
	if utf8.RuneCountInString(p.Description) > 500 {
		return ErrInvalidDescription
	}
	if !p.Status.IsValid() {
		return ErrInvalidStatus
	}
	if !collaboration.IsHexColor(p.Color) {
		return ErrInvalidColor
	}
	if p.StartDate != nil && p.DueDate != nil && p.StartDate.After(*p.DueDate) {
		return ErrInvalidDateRange
	}
	return nil
}

func validateTask(t *Task) error {
	if n := utf8.RuneCountInString(t.Title); n < 2 || n > 200 {
		return ErrInvalidTitle
	}
	if utf8.RuneCountInString(t.Description) > 1000 {
		return ErrInvalidTaskDetails
	}
	if !t.Status.IsValid() {
		return ErrInvalidStatus
	}
	if !t.Priority.IsValid() {
		return ErrInvalidPriority
	}
	return nil
}
