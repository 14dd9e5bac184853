package collaboration

import (
	"github.com/crewboard/server/internal/shared/middleware"
	"github.com/crewboard/server/internal/shared/response"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Handler handles HTTP requests for teams and memberships.
type Handler struct {
	service    *Service
	reconciler *Reconciler
}

// NewHandler creates a new collaboration handler.
func NewHandler(service *Service, reconciler *Reconciler) *Handler {
	return &Handler{
		service:    service,
		reconciler: reconciler,
	}
}

// RegisterRoutes registers authenticated team routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	teams := r.Group("/teams")
	{
		teams.POST("", h.CreateTeam)
		teams.GET("", h.ListMyTeams)
		teams.GET("/:id", h.GetTeam)
		teams.PUT("/:id", h.UpdateTeam)
		teams.DELETE("/:id", h.DeleteTeam)

		// Members
		teams.PUT("/:id/members", h.InviteMember)
		teams.PATCH("/:id/members/:identityId", h.UpdateMemberRole)
		teams.DELETE("/:id/members/:identityId", h.RemoveMember)
		teams.POST("/:id/leave", h.LeaveTeam)
	}
}

// ========== Team Handlers ==========

// CreateTeam handles team creation.
//
//	@Summary		Create team
//	@Description	Create a new team; the caller becomes its first admin
//	@Tags			Teams
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		CreateTeamRequest	true	"Create team request"
//	@Success		201		{object}	response.Envelope{data=TeamResponse}
//	@Failure		400		{object}	response.Envelope
//	@Failure		401		{object}	response.Envelope
//	@Router			/teams [post]
func (h *Handler) CreateTeam(c *gin.Context) {
	callerID := middleware.IdentityID(c)

	var req CreateTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	team, err := h.service.CreateTeam(c.Request.Context(), callerID, &req)
	if err != nil {
		response.Fail(c, err)
		return
	}

	response.Created(c, team.ToResponse(callerID))
}

// ListMyTeams handles listing teams the caller belongs to.
//
//	@Summary		List my teams
//	@Tags			Teams
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	response.Envelope{data=[]TeamResponse}
//	@Failure		401	{object}	response.Envelope
//	@Router			/teams [get]
func (h *Handler) ListMyTeams(c *gin.Context) {
	callerID := middleware.IdentityID(c)

	teams, err := h.service.ListMyTeams(c.Request.Context(), callerID)
	if err != nil {
		response.Fail(c, err)
		return
	}

	out := make([]*TeamResponse, len(teams))
	for i, t := range teams {
		out[i] = t.ToResponse(callerID)
	}
	response.OK(c, out)
}

// GetTeam handles getting a team.
//
//	@Summary		Get team
//	@Description	Get a team with its members, member count and the caller's admin flag
//	@Tags			Teams
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		string	true	"Team ID"
//	@Success		200	{object}	response.Envelope{data=TeamResponse}
//	@Failure		400	{object}	response.Envelope
//	@Failure		403	{object}	response.Envelope
//	@Failure		404	{object}	response.Envelope
//	@Router			/teams/{id} [get]
func (h *Handler) GetTeam(c *gin.Context) {
	teamID, ok := parseTeamID(c)
	if !ok {
		return
	}
	callerID := middleware.IdentityID(c)

	team, err := h.service.GetTeam(c.Request.Context(), teamID, callerID)
	if err != nil {
		response.Fail(c, err)
		return
	}

	response.OK(c, team.ToResponse(callerID))
}

// UpdateTeam handles updating a team.
//
//	@Summary		Update team
//	@Tags			Teams
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id		path		string				true	"Team ID"
//	@Param			request	body		UpdateTeamRequest	true	"Update team request"
//	@Success		200		{object}	response.Envelope{data=TeamResponse}
//	@Failure		400		{object}	response.Envelope
//	@Failure		403		{object}	response.Envelope
//	@Failure		404		{object}	response.Envelope
//	@Router			/teams/{id} [put]
func (h *Handler) UpdateTeam(c *gin.Context) {
	teamID, ok := parseTeamID(c)
	if !ok {
		return
	}
	callerID := middleware.IdentityID(c)

	var req UpdateTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	team, err := h.service.UpdateTeam(c.Request.Context(), teamID, callerID, &req)
	if err != nil {
		response.Fail(c, err)
		return
	}

	response.OK(c, team.ToResponse(callerID))
}

// DeleteTeam handles soft-deleting a team.
//
//	@Summary		Delete team
//	@Tags			Teams
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		string	true	"Team ID"
//	@Success		200	{object}	response.Envelope
//	@Failure		403	{object}	response.Envelope
//	@Failure		404	{object}	response.Envelope
//	@Router			/teams/{id} [delete]
func (h *Handler) DeleteTeam(c *gin.Context) {
	teamID, ok := parseTeamID(c)
	if !ok {
		return
	}

	if err := h.service.SoftDeleteTeam(c.Request.Context(), teamID, middleware.IdentityID(c)); err != nil {
		response.Fail(c, err)
		return
	}

	response.OK(c, gin.H{"id": teamID})
}

// ========== Member Handlers ==========

// InviteMember handles adding a member by email.
//
//	@Summary		Invite member
//	@Description	Adds the email directly when it belongs to a registered identity, otherwise sends an invitation
//	@Tags			Teams
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id		path		string				true	"Team ID"
//	@Param			request	body		InviteMemberRequest	true	"Invite request"
//	@Success		200		{object}	response.Envelope{data=InviteResult}
//	@Failure		400		{object}	response.Envelope
//	@Failure		403		{object}	response.Envelope
//	@Failure		404		{object}	response.Envelope
//	@Router			/teams/{id}/members [put]
func (h *Handler) InviteMember(c *gin.Context) {
	teamID, ok := parseTeamID(c)
	if !ok {
		return
	}

	var req InviteMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.reconciler.InviteOrAdd(c.Request.Context(), teamID, middleware.IdentityID(c), req.Email, req.Role)
	if err != nil {
		response.Fail(c, err)
		return
	}

	response.OK(c, result)
}

// UpdateMemberRole handles changing a member's role.
//
//	@Summary		Update member role
//	@Tags			Teams
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id			path		string					true	"Team ID"
//	@Param			identityId	path		string					true	"Member identity ID or email"
//	@Param			request		body		UpdateMemberRoleRequest	true	"Role request"
//	@Success		200			{object}	response.Envelope{data=TeamResponse}
//	@Failure		400			{object}	response.Envelope
//	@Failure		403			{object}	response.Envelope
//	@Failure		404			{object}	response.Envelope
//	@Router			/teams/{id}/members/{identityId} [patch]
func (h *Handler) UpdateMemberRole(c *gin.Context) {
	teamID, ok := parseTeamID(c)
	if !ok {
		return
	}
	callerID := middleware.IdentityID(c)

	var req UpdateMemberRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	team, err := h.service.UpdateMemberRole(c.Request.Context(), teamID, c.Param("identityId"), callerID, req.Role)
	if err != nil {
		response.Fail(c, err)
		return
	}

	response.OK(c, team.ToResponse(callerID))
}

// RemoveMember handles removing a member.
//
//	@Summary		Remove member
//	@Tags			Teams
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id			path		string	true	"Team ID"
//	@Param			identityId	path		string	true	"Member identity ID or email"
//	@Success		200			{object}	response.Envelope{data=TeamResponse}
//	@Failure		403			{object}	response.Envelope
//	@Failure		404			{object}	response.Envelope
//	@Router			/teams/{id}/members/{identityId} [delete]
func (h *Handler) RemoveMember(c *gin.Context) {
	teamID, ok := parseTeamID(c)
	if !ok {
		return
	}
	callerID := middleware.IdentityID(c)

	team, err := h.service.RemoveMember(c.Request.Context(), teamID, c.Param("identityId"), callerID)
	if err != nil {
		response.Fail(c, err)
		return
	}

	response.OK(c, team.ToResponse(callerID))
}

// LeaveTeam handles leaving a team.
//
//	@Summary		Leave team
//	@Tags			Teams
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		string	true	"Team ID"
//	@Success		200	{object}	response.Envelope
//	@Failure		400	{object}	response.Envelope
//	@Failure		403	{object}	response.Envelope
//	@Router			/teams/{id}/leave [post]
func (h *Handler) LeaveTeam(c *gin.Context) {
	teamID, ok := parseTeamID(c)
	if !ok {
		return
	}

	if err := h.service.LeaveTeam(c.Request.Context(), teamID, middleware.IdentityID(c)); err != nil {
		response.Fail(c, err)
		return
	}

	response.OK(c, gin.H{"id": teamID})
}

// parseTeamID rejects malformed ids before the store is touched.
func parseTeamID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid team id")
		return uuid.Nil, false
	}
	return id, true
}
