package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/open-courseware/question-engine/internal/engine"
	"github.com/open-courseware/question-engine/internal/olx"
	"github.com/open-courseware/question-engine/internal/services"
)

// parseIDParam extracts a numeric path parameter. It writes the error
// response itself; a zero return means the request is already answered.
func parseIDParam(c *gin.Context, param string) uint {
	idStr := strings.TrimSpace(c.Param(param))
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid " + param,
			Details: "must be a positive integer",
		})
		return 0
	}
	return uint(id)
}

// studentIDHeader extracts the calling student's identity. The host platform
// authenticates students and forwards the identity in this header.
func studentIDHeader(c *gin.Context) string {
	studentID := strings.TrimSpace(c.GetHeader("X-Student-ID"))
	if studentID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "X-Student-ID header required",
		})
		return ""
	}
	return studentID
}

// handleServiceError maps service and engine errors onto HTTP responses.
func handleServiceError(c *gin.Context, base *BaseHandler, err error) {
	var fieldErr *engine.FieldError
	if errors.As(err, &fieldErr) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: fieldErr.Error()})
		return
	}

	var malformedErr *olx.MalformedDocumentError
	if errors.As(err, &malformedErr) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: malformedErr.Error()})
		return
	}

	var validationErrors services.ValidationErrors
	if errors.As(err, &validationErrors) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Validation failed",
			Details: validationErrors,
		})
		return
	}

	switch {
	case errors.Is(err, engine.ErrAttemptsExhausted),
		errors.Is(err, engine.ErrAlreadyCorrect):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	case errors.Is(err, engine.ErrCorruptQuestion):
		base.LogError(c, err, "Question document is corrupt")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
	case services.IsNotFound(err):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "Question not found"})
	case services.IsValidation(err):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	case errors.Is(err, services.ErrBadRequest):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Bad request"})
	default:
		base.LogError(c, err, "Unexpected service error")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Internal server error"})
	}
}
