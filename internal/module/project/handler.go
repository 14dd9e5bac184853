package project

import (
	"github.com/crewboard/server/internal/shared/middleware"
	"github.com/crewboard/server/internal/shared/response"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Handler handles HTTP requests for projects and tasks.
type Handler struct {
	service *Service
}

// NewHandler creates a new project handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers authenticated project and task routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	projects := r.Group("/projects")
	{
		projects.POST("/team/:teamId", h.CreateProject)
		projects.GET("/team/:teamId", h.ListTeamProjects)
		projects.POST("/team/:teamId/reconcile", h.ReconcileTeamProjects)
		projects.GET("/:projectId", h.GetProject)
		projects.PUT("/:projectId", h.UpdateProject)
		projects.DELETE("/:projectId", h.DeleteProject)
		projects.POST("/:projectId/members", h.AddProjectMember)
		projects.DELETE("/:projectId/members/:identityId", h.RemoveProjectMember)
	}

	tasks := r.Group("/tasks/:projectId/tasks")
	{
		tasks.POST("", h.CreateTask)
		tasks.GET("", h.ListTasks)
		tasks.GET("/:taskId", h.GetTask)
		tasks.PUT("/:taskId", h.UpdateTask)
		tasks.DELETE("/:taskId", h.DeleteTask)
		tasks.POST("/:taskId/assignees", h.AddAssignee)
		tasks.DELETE("/:taskId/assignees/:identityId", h.RemoveAssignee)
	}
}

// ========== Project Handlers ==========

// CreateProject handles project creation.
//
//	@Summary		Create project
//	@Description	Create a project in an active team the caller belongs to
//	@Tags			Projects
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			teamId	path		string					true	"Team ID"
//	@Param			request	body		CreateProjectRequest	true	"Create project request"
//	@Success		201		{object}	response.Envelope{data=Project}
//	@Failure		400		{object}	response.Envelope
//	@Failure		403		{object}	response.Envelope
//	@Failure		404		{object}	response.Envelope
//	@Router			/projects/team/{teamId} [post]
func (h *Handler) CreateProject(c *gin.Context) {
	teamID, ok := parseID(c, "teamId")
	if !ok {
		return
	}

	var req CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	project, err := h.service.CreateProject(c.Request.Context(), teamID, middleware.IdentityID(c), &req)
	if err != nil {
		response.Fail(c, err)
		return
	}

	response.Created(c, project)
}

// ListTeamProjects handles listing a team's projects.
//
//	@Summary	List team projects
//	@Tags		Projects
//	@Produce	json
//	@Security	BearerAuth
//	@Param		teamId	path		string	true	"Team ID"
//	@Success	200		{object}	response.Envelope{data=[]Project}
//	@Failure	403		{object}	response.Envelope
//	@Router		/projects/team/{teamId} [get]
func (h *Handler) ListTeamProjects(c *gin.Context) {
	teamID, ok := parseID(c, "teamId")
	if !ok {
		return
	}

	projects, err := h.service.ListTeamProjects(c.Request.Context(), teamID, middleware.IdentityID(c))
	if err != nil {
		response.Fail(c, err)
		return
	}

	response.OK(c, projects)
}

// ReconcileTeamProjects handles rebuilding a team's project index.
//
//	@Summary	Rebuild team project index
//	@Tags		Projects
//	@Produce	json
//	@Security	BearerAuth
//	@Param		teamId	path		string	true	"Team ID"
//	@Success	200		{object}	response.Envelope{data=ReconcileResult}
//	@Failure	403		{object}	response.Envelope
//	@Router		/projects/team/{teamId}/reconcile [post]
func (h *Handler) ReconcileTeamProjects(c *gin.Context) {
	teamID, ok := parseID(c, "teamId")
	if !ok {
		return
	}

	result, err := h.service.ReconcileTeamProjects(c.Request.Context(), teamID, middleware.IdentityID(c))
	if err != nil {
		response.Fail(c, err)
		return
	}

	response.OK(c, result)
}

// GetProject handles getting a project.
//
//	@Summary	Get project
//	@Tags		Projects
//	@Produce	json
//	@Security	BearerAuth
//	@Param		projectId	path		string	true	"Project ID"
//	@Success	200			{object}	response.Envelope{data=Project}
//	@Failure	400			{object}	response.Envelope
//	@Failure	403			{object}	response.Envelope
//	@Failure	404			{object}	response.Envelope
//	@Router		/projects/{projectId} [get]
func (h *Handler) GetProject(c *gin.Context) {
	projectID, ok := parseID(c, "projectId")
	if !ok {
		return
	}

	project, err := h.service.GetProject(c.Request.Context(), projectID, middleware.IdentityID(c))
	if err != nil {
		response.Fail(c, err)
		return
	}

	response.OK(c, project)
}

// UpdateProject handles updating a project.
//
//	@Summary	Update project
//	@Tags		Projects
//	@Accept		json
//	@Produce	json
//	@Security	BearerAuth
//	@Param		projectId	path		string					true	"Project ID"
//	@Param		request		body		UpdateProjectRequest	true	"Update project request"
//	@Success	200			{object}	response.Envelope{data=Project}
//	@Failure	400			{object}	response.Envelope
//	@Failure	403			{object}	response.Envelope
//	@Failure	404			{object}	response.Envelope
//	@Router		/projects/{projectId} [put]
func (h *Handler) UpdateProject(c *gin.Context) {
	projectID, ok := parseID(c, "projectId")
	if !ok {
		return
	}

	var req UpdateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	project, err := h.service.UpdateProject(c.Request.Context(), projectID, middleware.IdentityID(c), &req)
	if err != nil {
		response.Fail(c, err)
		return
	}

	response.OK(c, project)
}

// DeleteProject handles soft-deleting a project.
//
//	@Summary	Delete project
//	@Tags		Projects
//	@Produce	json
//	@Security	BearerAuth
//	@Param		projectId	path		string	true	"Project ID"
//	@Success	200			{object}	response.Envelope
//	@Failure	403			{object}	response.Envelope
//	@Failure	404			{object}	response.Envelope
//	@Router		/projects/{projectId} [delete]
func (h *Handler) DeleteProject(c *gin.Context) {
	projectID, ok := parseID(c, "projectId")
	if !ok {
		return
	}

	if err := h.service.DeleteProject(c.Request.Context(), projectID, middleware.IdentityID(c)); err != nil {
		response.Fail(c, err)
		return
	}

	response.OK(c, gin.H{"id": projectID})
}

// AddProjectMember handles adding a member to the project's team.
//
//	@Summary	Add project member
//	@Tags		Projects
//	@Accept		json
//	@Produce	json
//	@Security	BearerAuth
//	@Param		projectId	path		string					true	"Project ID"
//	@Param		request		body		ProjectMemberRequest	true	"Member request"
//	@Success	200			{object}	response.Envelope{data=collaboration.InviteResult}
//	@Failure	400			{object}	response.Envelope
//	@Failure	403			{object}	response.Envelope
//	@Router		/projects/{projectId}/members [post]
func (h *Handler) AddProjectMember(c *gin.Context) {
	projectID, ok := parseID(c, "projectId")
	if !ok {
		return
	}

	var req ProjectMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.AddProjectMember(c.Request.Context(), projectID, middleware.IdentityID(c), &req)
	if err != nil {
		response.Fail(c, err)
		return
	}

	response.OK(c, result)
}

// RemoveProjectMember handles removing a member from the project's team.
//
//	@Summary	Remove project member
//	@Tags		Projects
//	@Produce	json
//	@Security	BearerAuth
//	@Param		projectId	path		string	true	"Project ID"
//	@Param		identityId	path		string	true	"Member identity ID or email"
//	@Success	200			{object}	response.Envelope
//	@Failure	403			{object}	response.Envelope
//	@Failure	404			{object}	response.Envelope
//	@Router		/projects/{projectId}/members/{identityId} [delete]
func (h *Handler) RemoveProjectMember(c *gin.Context) {
	projectID, ok := parseID(c, "projectId")
	if !ok {
		return
	}
	callerID := middleware.IdentityID(c)

	team, err := h.service.RemoveProjectMember(c.Request.Context(), projectID, callerID, c.Param("identityId"))
	if err != nil {
		response.Fail(c, err)
		return
	}

	response.OK(c, team.ToResponse(callerID))
}

// ========== Task Handlers ==========

// CreateTask handles task creation.
//
//	@Summary		Create task
//	@Description	Assignees are emails of members of the project's team
//	@Tags			Tasks
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			projectId	path		string				true	"Project ID"
//	@Param			request		body		CreateTaskRequest	true	"Create task request"
//	@Success		201			{object}	response.Envelope{data=Task}
//	@Failure		400			{object}	response.Envelope
//	@Failure		403			{object}	response.Envelope
//	@Failure		404			{object}	response.Envelope
//	@Router			/tasks/{projectId}/tasks [post]
func (h *Handler) CreateTask(c *gin.Context) {
	projectID, ok := parseID(c, "projectId")
	if !ok {
		return
	}

	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	task, err := h.service.CreateTask(c.Request.Context(), projectID, middleware.IdentityID(c), &req)
	if err != nil {
		response.Fail(c, err)
		return
	}

	response.Created(c, task)
}

// ListTasks handles listing a project's tasks.
//
//	@Summary	List tasks
//	@Tags		Tasks
//	@Produce	json
//	@Security	BearerAuth
//	@Param		projectId	path		string	true	"Project ID"
//	@Success	200			{object}	response.Envelope{data=[]Task}
//	@Failure	403			{object}	response.Envelope
//	@Router		/tasks/{projectId}/tasks [get]
func (h *Handler) ListTasks(c *gin.Context) {
	projectID, ok := parseID(c, "projectId")
	if !ok {
		return
	}

	tasks, err := h.service.ListTasks(c.Request.Context(), projectID, middleware.IdentityID(c))
	if err != nil {
		response.Fail(c, err)
		return
	}

	response.OK(c, tasks)
}

// GetTask handles getting a task.
//
//	@Summary	Get task
//	@Tags		Tasks
//	@Produce	json
//	@Security	BearerAuth
//	@Param		projectId	path		string	true	"Project ID"
//	@Param		taskId		path		string	true	"Task ID"
//	@Success	200			{object}	response.Envelope{data=Task}
//	@Failure	403			{object}	response.Envelope
//	@Failure	404			{object}	response.Envelope
//	@Router		/tasks/{projectId}/tasks/{taskId} [get]
func (h *Handler) GetTask(c *gin.Context) {
	projectID, taskID, ok := parseTaskPath(c)
	if !ok {
		return
	}

	task, err := h.service.GetTask(c.Request.Context(), projectID, taskID, middleware.IdentityID(c))
	if err != nil {
		response.Fail(c, err)
		return
	}

	response.OK(c, task)
}

// UpdateTask handles updating a task.
//
//	@Summary	Update task
//	@Tags		Tasks
//	@Accept		json
//	@Produce	json
//	@Security	BearerAuth
//	@Param		projectId	path		string				true	"Project ID"
//	@Param		taskId		path		string				true	"Task ID"
//	@Param		request		body		UpdateTaskRequest	true	"Update task request"
//	@Success	200			{object}	response.Envelope{data=Task}
//	@Failure	400			{object}	response.Envelope
//	@Failure	403			{object}	response.Envelope
//	@Failure	404			{object}	response.Envelope
//	@Router		/tasks/{projectId}/tasks/{taskId} [put]
func (h *Handler) UpdateTask(c *gin.Context) {
	projectID, taskID, ok := parseTaskPath(c)
	if !ok {
		return
	}

	var req UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	task, err := h.service.UpdateTask(c.Request.Context(), projectID, taskID, middleware.IdentityID(c), &req)
	if err != nil {
		response.Fail(c, err)
		return
	}

	response.OK(c, task)
}

// DeleteTask handles deleting a task.
//
//	@Summary	Delete task
//	@Tags		Tasks
//	@Produce	json
//	@Security	BearerAuth
//	@Param		projectId	path		string	true	"Project ID"
//	@Param		taskId		path		string	true	"Task ID"
//	@Success	200			{object}	response.Envelope
//	@Failure	403			{object}	response.Envelope
//	@Failure	404			{object}	response.Envelope
//	@Router		/tasks/{projectId}/tasks/{taskId} [delete]
func (h *Handler) DeleteTask(c *gin.Context) {
	projectID, taskID, ok := parseTaskPath(c)
	if !ok {
		return
	}

	if err := h.service.DeleteTask(c.Request.Context(), projectID, taskID, middleware.IdentityID(c)); err != nil {
		response.Fail(c, err)
		return
	}

	response.OK(c, gin.H{"id": taskID})
}

// AddAssignee handles assigning a team member to a task.
//
//	@Summary	Add assignee
//	@Tags		Tasks
//	@Accept		json
//	@Produce	json
//	@Security	BearerAuth
//	@Param		projectId	path		string				true	"Project ID"
//	@Param		taskId		path		string				true	"Task ID"
//	@Param		request		body		AddAssigneeRequest	true	"Assignee request"
//	@Success	200			{object}	response.Envelope{data=Task}
//	@Failure	400			{object}	response.Envelope
//	@Failure	403			{object}	response.Envelope
//	@Router		/tasks/{projectId}/tasks/{taskId}/assignees [post]
func (h *Handler) AddAssignee(c *gin.Context) {
	projectID, taskID, ok := parseTaskPath(c)
	if !ok {
		return
	}

	var req AddAssigneeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	task, err := h.service.AddAssignee(c.Request.Context(), projectID, taskID, middleware.IdentityID(c), req.Email)
	if err != nil {
		response.Fail(c, err)
		return
	}

	response.OK(c, task)
}

// RemoveAssignee handles unassigning a task.
//
//	@Summary	Remove assignee
//	@Tags		Tasks
//	@Produce	json
//	@Security	BearerAuth
//	@Param		projectId	path		string	true	"Project ID"
//	@Param		taskId		path		string	true	"Task ID"
//	@Param		identityId	path		string	true	"Assignee identity ID or email"
//	@Success	200			{object}	response.Envelope{data=Task}
//	@Failure	403			{object}	response.Envelope
//	@Failure	404			{object}	response.Envelope
//	@Router		/tasks/{projectId}/tasks/{taskId}/assignees/{identityId} [delete]
func (h *Handler) RemoveAssignee(c *gin.Context) {
	projectID, taskID, ok := parseTaskPath(c)
	if !ok {
		return
	}

	task, err := h.service.RemoveAssignee(c.Request.Context(), projectID, taskID, middleware.IdentityID(c), c.Param("identityId"))
	if err != nil {
		response.Fail(c, err)
		return
	}

	response.OK(c, task)
}

// parseID rejects a malformed id path parameter before the store is touched.
func parseID(c *gin.Context, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		response.BadRequest(c, "invalid "+param)
		return uuid.Nil, false
	}
	return id, true
}

func parseTaskPath(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	projectID, ok := parseID(c, "projectId")
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	taskID, ok := parseID(c, "taskId")
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	return projectID, taskID, true
}
