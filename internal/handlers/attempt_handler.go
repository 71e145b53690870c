package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/open-courseware/question-engine/internal/services"
	"github.com/open-courseware/question-engine/internal/utils"
)

// AttemptHandler serves the student API: reading the current view state and
// submitting answers.
type AttemptHandler struct {
	BaseHandler
	attemptService services.AttemptService
}

func NewAttemptHandler(attemptService services.AttemptService, logger utils.Logger) *AttemptHandler {
	return &AttemptHandler{
		BaseHandler:    NewBaseHandler(logger),
		attemptService: attemptService,
	}
}

// GetState returns the student-safe view of a question for the calling
// student.
func (h *AttemptHandler) GetState(c *gin.Context) {
	id := parseIDParam(c, "id")
	if id == 0 {
		return
	}
	studentID := studentIDHeader(c)
	if studentID == "" {
		return
	}

	view, err := h.attemptService.GetStudentView(c.Request.Context(), id, studentID)
	if err != nil {
		handleServiceError(c, &h.BaseHandler, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// Submit accepts one answer submission and returns the updated view.
func (h *AttemptHandler) Submit(c *gin.Context) {
	id := parseIDParam(c, "id")
	if id == 0 {
		return
	}
	studentID := studentIDHeader(c)
	if studentID == "" {
		return
	}

	var payload map[string]any
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	h.LogRequest(c, "Submitting answer", "question_id", id, "student_id", studentID)

	view, err := h.attemptService.SubmitAnswer(c.Request.Context(), id, studentID, payload)
	if err != nil {
		handleServiceError(c, &h.BaseHandler, err)
		return
	}

	c.JSON(http.StatusOK, view)
}
