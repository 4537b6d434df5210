package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/prepstack/examprep-service/internal/config"
	"github.com/prepstack/examprep-service/internal/models"
	"github.com/prepstack/examprep-service/internal/repositories"
	"github.com/prepstack/examprep-service/internal/services"
	"github.com/prepstack/examprep-service/internal/utils"
)

type HandlerManager struct {
	attemptHandler      *AttemptHandler
	practiceHandler     *PracticeHandler
	progressHandler     *ProgressHandler
	questionBankHandler *QuestionBankHandler
	authMiddleware      *CasdoorAuthMiddleware
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	logger utils.Logger,
	casdoorConfig config.CasdoorConfig,
	userRepo repositories.UserRepository,
) *HandlerManager {
	return &HandlerManager{
		attemptHandler:      NewAttemptHandler(serviceManager.Attempt(), logger),
		practiceHandler:     NewPracticeHandler(serviceManager.Practice(), logger),
		progressHandler:     NewProgressHandler(serviceManager.Progress(), logger),
		questionBankHandler: NewQuestionBankHandler(serviceManager.QuestionBank(), logger),
		authMiddleware:      NewCasdoorAuthMiddleware(casdoorConfig, userRepo),
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	v1 := router.Group("/api/v1")
	v1.Use(hm.authMiddleware.AuthMiddleware())
	{
		// Exam attempt routes
		attempts := v1.Group("/attempts")
		{
			attempts.POST("/start", hm.attemptHandler.StartAttempt)
			attempts.GET("", hm.attemptHandler.GetHistory)
			attempts.GET("/:id", hm.attemptHandler.GetAttempt)
			attempts.POST("/:id/answers", hm.attemptHandler.SubmitAnswer)
			attempts.POST("/:id/flag", hm.attemptHandler.FlagQuestion)
			attempts.POST("/:id/complete", hm.attemptHandler.CompleteAttempt)
		}

		// Practice routes
		practice := v1.Group("/practice")
		{
			practice.GET("/:exam_type/topics", hm.practiceHandler.GetTopics)
			practice.GET("/:exam_type/questions", hm.practiceHandler.GetQuestions)
			practice.POST("/answers", hm.practiceHandler.SubmitAnswer)
		}

		// Progress routes
		progress := v1.Group("/progress")
		{
			progress.GET("/:exam_type", hm.progressHandler.GetOverview)
			progress.GET("/:exam_type/topics/:topic", hm.progressHandler.GetTopicProgress)
			progress.GET("/:exam_type/readiness", hm.progressHandler.GetReadiness)
		}

		v1.GET("/subscription", hm.progressHandler.GetSubscription)

		// Exam catalog, visible to all authenticated users
		v1.GET("/exams", hm.questionBankHandler.ListExams)

		// Question bank administration - Admins only
		admin := v1.Group("/admin")
		admin.Use(hm.authMiddleware.RequireRoleMiddleware(models.RoleAdmin))
		{
			admin.POST("/exams", hm.questionBankHandler.CreateExam)
			admin.PUT("/exams/:type", hm.questionBankHandler.UpdateExam)
			admin.GET("/exams/:type/questions/export", hm.questionBankHandler.ExportQuestions)
			admin.POST("/exams/:type/questions/import", hm.questionBankHandler.ImportQuestions)

			admin.POST("/topics", hm.questionBankHandler.CreateTopic)
			admin.PUT("/topics/:id", hm.questionBankHandler.UpdateTopic)

			admin.POST("/questions", hm.questionBankHandler.CreateQuestion)
			admin.GET("/questions/:id", hm.questionBankHandler.GetQuestion)
			admin.PUT("/questions/:id", hm.questionBankHandler.UpdateQuestion)
			admin.DELETE("/questions/:id", hm.questionBankHandler.DeleteQuestion)
		}
	}

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"service": "examprep-service",
		})
	})
}
