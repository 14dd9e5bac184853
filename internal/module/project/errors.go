package project

import (
	apperrors "github.com/crewboard/server/internal/shared/errors"
)

var (
	ErrProjectNotFound    = apperrors.NotFound("project not found")
	ErrTaskNotFound       = apperrors.NotFound("task not found")
	ErrAssigneeNotFound   = apperrors.NotFound("assignee not found")
	ErrAccessDenied       = apperrors.Forbidden("no access to this project")
	ErrDeleteNotAllowed   = apperrors.Forbidden("only team admins or the project creator can delete a project")
	ErrInvalidAssignee    = apperrors.Validation("assignee is not a member of the project's team")
	ErrInvalidName        = apperrors.Validation("name must be 2-100 characters")
	ErrInvalidDescription = apperrors.Validation("description must be at most 500 characters")
	ErrInvalidTitle       = apperrors.Validation("title must be 2-200 characters")
	ErrInvalidTaskDetails = apperrors.Validation("description must be at most 1000 characters")
	ErrInvalidStatus      = apperrors.Validation("invalid status")
	ErrInvalidPriority    = apperrors.Validation("invalid priority")
	ErrInvalidColor       = apperrors.Validation("color must be a hex value")
	ErrInvalidDateRange   = apperrors.Validation("start date must not be after due date")
)
