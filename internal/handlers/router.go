package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/open-courseware/question-engine/internal/services"
	"github.com/open-courseware/question-engine/internal/utils"
)

type HandlerManager struct {
	questionHandler *QuestionHandler
	attemptHandler  *AttemptHandler
}

func NewHandlerManager(
	questionService services.QuestionService,
	attemptService services.AttemptService,
	logger utils.Logger,
) *HandlerManager {
	return &HandlerManager{
		questionHandler: NewQuestionHandler(questionService, logger),
		attemptHandler:  NewAttemptHandler(attemptService, logger),
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	// Health check endpoint
	router.GET("/health", HealthCheck)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		questions := v1.Group("/questions")
		{
			// Authoring
			questions.POST("", hm.questionHandler.ImportQuestion)
			questions.GET("", hm.questionHandler.ListQuestions)
			questions.GET("/export", hm.questionHandler.ExportQuestions)
			questions.GET("/:id", hm.questionHandler.GetQuestion)
			questions.DELETE("/:id", hm.questionHandler.DeleteQuestion)

			// Student state machine
			questions.GET("/:id/state", hm.attemptHandler.GetState)
			questions.POST("/:id/submit", hm.attemptHandler.Submit)
		}
	}
}

// HealthCheck reports service liveness
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
