package response

import (
	"net/http"

	apperrors "github.com/crewboard/server/internal/shared/errors"
	"github.com/gin-gonic/gin"
)

// Envelope is the body shape of every API response.
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// OK sends a 200 success envelope.
func OK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Envelope{Success: true, Data: data})
}

// Created sends a 201 success envelope.
func Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, Envelope{Success: true, Data: data})
}

// Error sends an error envelope with the given status code.
func Error(c *gin.Context, status int, message string) {
	c.JSON(status, Envelope{Success: false, Error: message})
}

// Abort sends an error envelope and stops the handler chain.
func Abort(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, Envelope{Success: false, Error: message})
}

// BadRequest sends a 400 Bad Request response.
func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, message)
}

// Unauthorized sends a 401 Unauthorized response.
func Unauthorized(c *gin.Context, message string) {
	if message == "" {
		message = "unauthorized"
	}
	Error(c, http.StatusUnauthorized, message)
}

// Fail maps err onto a status code and a caller-safe message.
func Fail(c *gin.Context, err error) {
	status := apperrors.GetStatusCode(err)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	Error(c, status, apperrors.PublicMessage(err))
}
