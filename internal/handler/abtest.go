package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/reachforge/campaign-edge-service/internal/domain"
	"github.com/reachforge/campaign-edge-service/internal/dto"
)

// initializeTest handles POST /initialize/:campaignSlug/:testId
func (h *Handler) initializeTest(c *gin.Context) {
	var req dto.InitializeTestRequest
	// The body is optional; only malformed JSON is rejected.
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, dto.ErrorResponse{
				Success: false,
				Error:   err.Error(),
			})
			return
		}
	}

	slug := c.Param("campaignSlug")
	testID := c.Param("testId")

	err := h.abtests.Initialize(c.Request.Context(), hostname(c), slug, testID, time.Duration(req.DurationHours)*time.Hour)
	if h.respondTestError(c, slug, testID, err) {
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{Success: true})
}

// testStats handles GET /stats/:campaignSlug/:testId
func (h *Handler) testStats(c *gin.Context) {
	slug := c.Param("campaignSlug")
	testID := c.Param("testId")

	stats, err := h.abtests.Stats(slug, testID)
	if errors.Is(err, domain.ErrTestNotFound) {
		c.JSON(http.StatusNotFound, dto.ErrorResponse{
			Success: false,
			Error:   "Test not found",
		})
		return
	}
	if err != nil {
		h.log.Error("Failed to read test stats",
			zap.String("campaign_slug", slug),
			zap.String("test_id", testID),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Success: false,
			Error:   "Failed to read test stats",
		})
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{Success: true, Data: stats})
}

// recordConversion handles POST /conversion/:campaignSlug/:testId
func (h *Handler) recordConversion(c *gin.Context) {
	var req dto.ConversionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Success: false,
			Error:   err.Error(),
		})
		return
	}

	slug := c.Param("campaignSlug")
	testID := c.Param("testId")

	err := h.abtests.RecordConversion(slug, testID, req.VisitorID)
	if h.respondTestError(c, slug, testID, err) {
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{Success: true})
}

// pauseTest handles POST /pause/:campaignSlug/:testId
func (h *Handler) pauseTest(c *gin.Context) {
	slug := c.Param("campaignSlug")
	testID := c.Param("testId")

	if h.respondTestError(c, slug, testID, h.abtests.Pause(slug, testID)) {
		return
	}
	c.JSON(http.StatusOK, dto.SuccessResponse{Success: true})
}

// resumeTest handles POST /resume/:campaignSlug/:testId
func (h *Handler) resumeTest(c *gin.Context) {
	slug := c.Param("campaignSlug")
	testID := c.Param("testId")

	if h.respondTestError(c, slug, testID, h.abtests.Resume(slug, testID)) {
		return
	}
	c.JSON(http.StatusOK, dto.SuccessResponse{Success: true})
}

// completeTest handles POST /complete/:campaignSlug/:testId
func (h *Handler) completeTest(c *gin.Context) {
	var req dto.CompleteTestRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, dto.ErrorResponse{
				Success: false,
				Error:   err.Error(),
			})
			return
		}
	}

	slug := c.Param("campaignSlug")
	testID := c.Param("testId")

	if h.respondTestError(c, slug, testID, h.abtests.Complete(slug, testID, req.Reason, req.WinnerID)) {
		return
	}
	c.JSON(http.StatusOK, dto.SuccessResponse{Success: true})
}

// respondTestError maps lifecycle errors onto the control-plane status
// codes. Returns true when a response was written.
func (h *Handler) respondTestError(c *gin.Context, slug, testID string, err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, domain.ErrTestNotFound), errors.Is(err, domain.ErrCampaignNotFound):
		c.JSON(http.StatusNotFound, dto.ErrorResponse{
			Success: false,
			Error:   "Test not found",
		})
	case errors.Is(err, domain.ErrTestCompleted):
		c.JSON(http.StatusConflict, dto.ErrorResponse{
			Success: false,
			Error:   "Test already completed",
		})
	case errors.Is(err, domain.ErrInvalidTransition), errors.Is(err, domain.ErrConflict):
		c.JSON(http.StatusConflict, dto.ErrorResponse{
			Success: false,
			Error:   err.Error(),
		})
	default:
		h.log.Error("A/B test operation failed",
			zap.String("campaign_slug", slug),
			zap.String("test_id", testID),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Success: false,
			Error:   "Operation failed",
		})
	}
	return true
}
