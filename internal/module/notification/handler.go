package notification

import (
	"time"

	"github.com/crewboard/server/internal/shared/response"
	"github.com/gin-gonic/gin"
)

// Handler exposes operational reminder endpoints.
type Handler struct {
	dispatcher *Dispatcher
}

// NewHandler creates a new notification handler.
func NewHandler(dispatcher *Dispatcher) *Handler {
	return &Handler{dispatcher: dispatcher}
}

// RegisterRoutes registers routes on an operator-only group.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/reminders/run", h.Run)
}

// Run triggers a reminder run outside the schedule.
//
//	@Summary		Run reminders
//	@Description	Dispatches reminders for tasks due the day after `at` (default now). Reruns for the same day skip reminders already sent.
//	@Tags			Operations
//	@Produce		json
//	@Security		AdminToken
//	@Param			at	query		string	false	"Reference time (RFC3339)"
//	@Success		200	{object}	response.Envelope{data=RunSummary}
//	@Failure		400	{object}	response.Envelope
//	@Failure		500	{object}	response.Envelope
//	@Router			/internal/reminders/run [post]
func (h *Handler) Run(c *gin.Context) {
	now := time.Now()
	if raw := c.Query("at"); raw != "" {
		at, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			response.BadRequest(c, "at must be an RFC3339 timestamp")
			return
		}
		now = at
	}

	summary, err := h.dispatcher.RunOnce(c.Request.Context(), now)
	if err != nil {
		response.Fail(c, err)
		return
	}

	response.OK(c, summary)
}
