package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/prepstack/examprep-service/internal/services"
	"github.com/prepstack/examprep-service/internal/utils"
)

const defaultPracticeCount = 10

type PracticeHandler struct {
	BaseHandler
	practiceService services.PracticeService
}

func NewPracticeHandler(practiceService services.PracticeService, logger utils.Logger) *PracticeHandler {
	return &PracticeHandler{
		BaseHandler:     NewBaseHandler(logger),
		practiceService: practiceService,
	}
}

// GetTopics lists the exam's topics with the user's per-topic progress
// @Summary List practice topics
// @Tags practice
// @Produce json
// @Param exam_type path string true "Exam type code"
// @Success 200 {array} services.TopicWithProgress
// @Failure 404 {object} ErrorResponse
// @Router /practice/{exam_type}/topics [get]
func (h *PracticeHandler) GetTopics(c *gin.Context) {
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	topics, err := h.practiceService.GetTopics(c.Request.Context(), c.Param("exam_type"), userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, topics)
}

// GetQuestions draws a randomized practice set
// @Summary Get practice questions
// @Description Draws questions filtered by topic, difficulty and answer history
// @Tags practice
// @Produce json
// @Param exam_type path string true "Exam type code"
// @Param topic query string false "Topic slug or id"
// @Param count query int false "Number of questions (default 10, max 50)"
// @Param difficulty query int false "Difficulty 1-5"
// @Param exclude_answered query bool false "Skip previously answered questions"
// @Success 200 {array} services.QuestionView
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /practice/{exam_type}/questions [get]
func (h *PracticeHandler) GetQuestions(c *gin.Context) {
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	req := services.PracticeQuestionsRequest{
		ExamType: c.Param("exam_type"),
		Topic:    c.Query("topic"),
		Count:    defaultPracticeCount,
	}

	if raw := c.Query("count"); raw != "" {
		count, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Message: "Invalid count parameter",
				Details: raw,
			})
			return
		}
		req.Count = count
	}
	if raw := c.Query("difficulty"); raw != "" {
		difficulty, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Message: "Invalid difficulty parameter",
				Details: raw,
			})
			return
		}
		req.Difficulty = &difficulty
	}
	req.ExcludeAnswered = c.Query("exclude_answered") == "true"

	questions, err := h.practiceService.GetQuestions(c.Request.Context(), &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, questions)
}

// SubmitAnswer scores a practice answer and returns immediate feedback
// @Summary Submit practice answer
// @Tags practice
// @Accept json
// @Produce json
// @Param answer body services.PracticeSubmitRequest true "Answer data"
// @Success 200 {object} services.SubmissionResult
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /practice/answers [post]
func (h *PracticeHandler) SubmitAnswer(c *gin.Context) {
	h.LogRequest(c, "Submitting practice answer")

	var req services.PracticeSubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	result, err := h.practiceService.SubmitAnswer(c.Request.Context(), &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
