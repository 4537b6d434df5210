package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/prepstack/examprep-service/internal/services"
	"github.com/prepstack/examprep-service/internal/utils"
)

type ProgressHandler struct {
	BaseHandler
	progressService services.ProgressService
}

func NewProgressHandler(progressService services.ProgressService, logger utils.Logger) *ProgressHandler {
	return &ProgressHandler{
		BaseHandler:     NewBaseHandler(logger),
		progressService: progressService,
	}
}

// GetOverview returns accuracy totals and the per-topic breakdown
// @Summary Get progress overview
// @Tags progress
// @Produce json
// @Param exam_type path string true "Exam type code"
// @Success 200 {object} services.ProgressOverviewResponse
// @Failure 404 {object} ErrorResponse
// @Router /progress/{exam_type} [get]
func (h *ProgressHandler) GetOverview(c *gin.Context) {
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	overview, err := h.progressService.GetOverview(c.Request.Context(), c.Param("exam_type"), userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, overview)
}

// GetTopicProgress returns one topic's counters
// @Summary Get topic progress
// @Tags progress
// @Produce json
// @Param exam_type path string true "Exam type code"
// @Param topic path string true "Topic slug or id"
// @Success 200 {object} services.TopicProgressDetail
// @Failure 404 {object} ErrorResponse
// @Router /progress/{exam_type}/topics/{topic} [get]
func (h *ProgressHandler) GetTopicProgress(c *gin.Context) {
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	detail, err := h.progressService.GetTopicProgress(c.Request.Context(), c.Param("exam_type"), c.Param("topic"), userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, detail)
}

// GetReadiness returns the pass-probability proxy score
// @Summary Get readiness score
// @Tags progress
// @Produce json
// @Param exam_type path string true "Exam type code"
// @Success 200 {object} services.ReadinessResponse
// @Failure 404 {object} ErrorResponse
// @Router /progress/{exam_type}/readiness [get]
func (h *ProgressHandler) GetReadiness(c *gin.Context) {
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	readiness, err := h.progressService.GetReadinessScore(c.Request.Context(), c.Param("exam_type"), userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, readiness)
}

// GetSubscription returns the caller's subscription state
// @Summary Get subscription status
// @Tags subscription
// @Produce json
// @Success 200 {object} services.SubscriptionStatusResponse
// @Failure 401 {object} ErrorResponse
// @Router /subscription [get]
func (h *ProgressHandler) GetSubscription(c *gin.Context) {
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	status, err := h.progressService.GetSubscriptionStatus(c.Request.Context(), userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, status)
}
