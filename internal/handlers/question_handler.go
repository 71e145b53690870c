package handlers

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/open-courseware/question-engine/internal/models"
	"github.com/open-courseware/question-engine/internal/repositories"
	"github.com/open-courseware/question-engine/internal/services"
	"github.com/open-courseware/question-engine/internal/utils"
)

// QuestionHandler serves the authoring API: OLX import, listing, deletion
// and spreadsheet export.
type QuestionHandler struct {
	BaseHandler
	questionService services.QuestionService
}

func NewQuestionHandler(questionService services.QuestionService, logger utils.Logger) *QuestionHandler {
	return &QuestionHandler{
		BaseHandler:     NewBaseHandler(logger),
		questionService: questionService,
	}
}

// ImportQuestion imports an OLX question definition. The request body is the
// raw OLX XML.
func (h *QuestionHandler) ImportQuestion(c *gin.Context) {
	h.LogRequest(c, "Importing question")

	rawOLX, err := io.ReadAll(c.Request.Body)
	if err != nil || len(rawOLX) == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Request body must contain an OLX question definition",
		})
		return
	}

	createdBy := strings.TrimSpace(c.GetHeader("X-User-ID"))

	question, err := h.questionService.Import(c.Request.Context(), rawOLX, createdBy)
	if err != nil {
		handleServiceError(c, &h.BaseHandler, err)
		return
	}

	c.JSON(http.StatusCreated, question)
}

// GetQuestion retrieves a stored question row, including its full document.
// This is the authoring view; students read /questions/:id/state instead.
func (h *QuestionHandler) GetQuestion(c *gin.Context) {
	id := parseIDParam(c, "id")
	if id == 0 {
		return
	}

	question, err := h.questionService.GetByID(c.Request.Context(), id)
	if err != nil {
		handleServiceError(c, &h.BaseHandler, err)
		return
	}

	c.JSON(http.StatusOK, question)
}

// ListQuestions lists stored questions with optional filters.
func (h *QuestionHandler) ListQuestions(c *gin.Context) {
	filters := parseQuestionFilters(c)

	questions, total, err := h.questionService.List(c.Request.Context(), filters)
	if err != nil {
		handleServiceError(c, &h.BaseHandler, err)
		return
	}

	c.JSON(http.StatusOK, ListResponse{Items: questions, Total: total})
}

// DeleteQuestion removes a question.
func (h *QuestionHandler) DeleteQuestion(c *gin.Context) {
	id := parseIDParam(c, "id")
	if id == 0 {
		return
	}

	h.LogRequest(c, "Deleting question", "question_id", id)

	deletedBy := strings.TrimSpace(c.GetHeader("X-User-ID"))

	if err := h.questionService.Delete(c.Request.Context(), id, deletedBy); err != nil {
		handleServiceError(c, &h.BaseHandler, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// ExportQuestions streams the question catalog as an xlsx workbook.
func (h *QuestionHandler) ExportQuestions(c *gin.Context) {
	h.LogRequest(c, "Exporting questions")

	data, err := h.questionService.ExportQuestions(c.Request.Context(), parseQuestionFilters(c))
	if err != nil {
		handleServiceError(c, &h.BaseHandler, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="questions.xlsx"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

func parseQuestionFilters(c *gin.Context) repositories.QuestionFilters {
	filters := repositories.QuestionFilters{
		Search:    c.Query("search"),
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
	}

	if t := c.Query("type"); t != "" {
		questionType := models.QuestionType(t)
		filters.Type = &questionType
	}
	if creator := c.Query("created_by"); creator != "" {
		filters.CreatedBy = &creator
	}
	if limit, err := strconv.Atoi(c.Query("limit")); err == nil {
		filters.Limit = limit
	}
	if offset, err := strconv.Atoi(c.Query("offset")); err == nil {
		filters.Offset = offset
	}
	return filters
}
