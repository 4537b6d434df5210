package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/prepstack/examprep-service/internal/services"
	"github.com/prepstack/examprep-service/internal/utils"
)

// QuestionBankHandler is the admin surface over exams, topics and questions.
type QuestionBankHandler struct {
	BaseHandler
	service services.QuestionBankService
}

func NewQuestionBankHandler(service services.QuestionBankService, logger utils.Logger) *QuestionBankHandler {
	return &QuestionBankHandler{
		BaseHandler: NewBaseHandler(logger),
		service:     service,
	}
}

// ===== EXAM ENDPOINTS =====

// ListExams lists all exams, active and inactive
// @Summary List exams
// @Tags question-bank
// @Produce json
// @Success 200 {array} models.Exam
// @Router /admin/exams [get]
func (h *QuestionBankHandler) ListExams(c *gin.Context) {
	exams, err := h.service.ListExams(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, exams)
}

// CreateExam creates an exam blueprint
// @Summary Create exam
// @Tags question-bank
// @Accept json
// @Produce json
// @Param exam body services.CreateExamRequest true "Exam data"
// @Success 201 {object} models.Exam
// @Failure 400 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /admin/exams [post]
func (h *QuestionBankHandler) CreateExam(c *gin.Context) {
	h.LogRequest(c, "Creating exam")

	var req services.CreateExamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	exam, err := h.service.CreateExam(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, exam)
}

// UpdateExam updates an exam blueprint
// @Summary Update exam
// @Tags question-bank
// @Accept json
// @Produce json
// @Param type path string true "Exam type code"
// @Param exam body services.UpdateExamRequest true "Exam data"
// @Success 200 {object} models.Exam
// @Failure 404 {object} ErrorResponse
// @Router /admin/exams/{type} [put]
func (h *QuestionBankHandler) UpdateExam(c *gin.Context) {
	examType := c.Param("type")
	h.LogRequest(c, "Updating exam", "exam_type", examType)

	var req services.UpdateExamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	exam, err := h.service.UpdateExam(c.Request.Context(), examType, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, exam)
}

// ===== TOPIC ENDPOINTS =====

// CreateTopic creates a topic under an exam
// @Summary Create topic
// @Tags question-bank
// @Accept json
// @Produce json
// @Param topic body services.CreateTopicRequest true "Topic data"
// @Success 201 {object} models.Topic
// @Failure 400 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /admin/topics [post]
func (h *QuestionBankHandler) CreateTopic(c *gin.Context) {
	h.LogRequest(c, "Creating topic")

	var req services.CreateTopicRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	topic, err := h.service.CreateTopic(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, topic)
}

// UpdateTopic updates a topic
// @Summary Update topic
// @Tags question-bank
// @Accept json
// @Produce json
// @Param id path uint true "Topic ID"
// @Param topic body services.UpdateTopicRequest true "Topic data"
// @Success 200 {object} models.Topic
// @Failure 404 {object} ErrorResponse
// @Router /admin/topics/{id} [put]
func (h *QuestionBankHandler) UpdateTopic(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	var req services.UpdateTopicRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	topic, err := h.service.UpdateTopic(c.Request.Context(), id, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, topic)
}

// ===== QUESTION ENDPOINTS =====

// CreateQuestion creates a question with its answers
// @Summary Create question
// @Tags question-bank
// @Accept json
// @Produce json
// @Param question body services.CreateQuestionRequest true "Question data"
// @Success 201 {object} models.Question
// @Failure 400 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /admin/questions [post]
func (h *QuestionBankHandler) CreateQuestion(c *gin.Context) {
	h.LogRequest(c, "Creating question")

	var req services.CreateQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	question, err := h.service.CreateQuestion(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, question)
}

// GetQuestion returns a question with its answers, correctness included
// @Summary Get question
// @Tags question-bank
// @Produce json
// @Param id path uint true "Question ID"
// @Success 200 {object} models.Question
// @Failure 404 {object} ErrorResponse
// @Router /admin/questions/{id} [get]
func (h *QuestionBankHandler) GetQuestion(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	question, err := h.service.GetQuestion(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, question)
}

// UpdateQuestion updates a question, optionally replacing its answer set
// @Summary Update question
// @Tags question-bank
// @Accept json
// @Produce json
// @Param id path uint true "Question ID"
// @Param question body services.UpdateQuestionRequest true "Question data"
// @Success 200 {object} models.Question
// @Failure 404 {object} ErrorResponse
// @Router /admin/questions/{id} [put]
func (h *QuestionBankHandler) UpdateQuestion(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	h.LogRequest(c, "Updating question", "question_id", id)

	var req services.UpdateQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	question, err := h.service.UpdateQuestion(c.Request.Context(), id, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, question)
}

// DeleteQuestion removes a question and its answers
// @Summary Delete question
// @Tags question-bank
// @Produce json
// @Param id path uint true "Question ID"
// @Success 200 {object} SuccessResponse
// @Failure 404 {object} ErrorResponse
// @Router /admin/questions/{id} [delete]
func (h *QuestionBankHandler) DeleteQuestion(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	h.LogRequest(c, "Deleting question", "question_id", id)

	if err := h.service.DeleteQuestion(c.Request.Context(), id); err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Question deleted",
	})
}

// ===== IMPORT / EXPORT =====

// ExportQuestions streams an xlsx workbook of the exam's questions
// @Summary Export questions
// @Tags question-bank
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param type path string true "Exam type code"
// @Success 200 {file} binary
// @Failure 404 {object} ErrorResponse
// @Router /admin/exams/{type}/questions/export [get]
func (h *QuestionBankHandler) ExportQuestions(c *gin.Context) {
	examType := c.Param("type")
	h.LogRequest(c, "Exporting questions", "exam_type", examType)

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s-questions.xlsx", examType))

	if err := h.service.ExportQuestions(c.Request.Context(), examType, c.Writer); err != nil {
		h.handleServiceError(c, err)
		return
	}
}

// ImportQuestions loads questions from an uploaded xlsx workbook
// @Summary Import questions
// @Tags question-bank
// @Accept multipart/form-data
// @Produce json
// @Param type path string true "Exam type code"
// @Param file formData file true "Workbook in the export layout"
// @Success 200 {object} services.ImportResult
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /admin/exams/{type}/questions/import [post]
func (h *QuestionBankHandler) ImportQuestions(c *gin.Context) {
	examType := c.Param("type")
	h.LogRequest(c, "Importing questions", "exam_type", examType)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Missing workbook upload",
			Details: err.Error(),
		})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Failed to open upload",
			Details: err.Error(),
		})
		return
	}
	defer file.Close()

	result, err := h.service.ImportQuestions(c.Request.Context(), examType, file)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
