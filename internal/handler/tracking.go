package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/reachforge/campaign-edge-service/internal/domain"
	"github.com/reachforge/campaign-edge-service/internal/dto"
	"github.com/reachforge/campaign-edge-service/internal/token"
)

// initSession handles POST /session/init
func (h *Handler) initSession(c *gin.Context) {
	var req dto.InitSessionRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Success: false,
			Error:   err.Error(),
		})
		return
	}

	data, renewalID, err := h.tracking.InitSession(c.Request.Context(), &req)
	if errors.Is(err, domain.ErrSessionExpired) {
		c.JSON(http.StatusOK, dto.ErrorResponse{
			Success:      false,
			Error:        "Session expired",
			NewSessionID: renewalID,
		})
		return
	}
	if errors.Is(err, domain.ErrConflict) {
		c.JSON(http.StatusConflict, dto.ErrorResponse{
			Success: false,
			Error:   "Session already initialized with different identity",
		})
		return
	}
	if err != nil {
		h.log.Error("Failed to initialize session",
			zap.String("session_id", req.SessionID),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Success: false,
			Error:   "Failed to initialize session",
		})
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{Success: true, Data: data})
}

// validateSession handles POST /session/validate
func (h *Handler) validateSession(c *gin.Context) {
	var req dto.ValidateSessionRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Success: false,
			Error:   err.Error(),
		})
		return
	}

	res := h.tracking.ValidateSession(req.SessionID)
	resp := dto.ValidateSessionResponse{
		Valid:        res.Valid,
		Reason:       res.Reason,
		NewSessionID: res.NewSessionID,
	}
	if res.Session != nil {
		resp.Session = res.Session
	}
	c.JSON(http.StatusOK, resp)
}

// flushSession handles POST /session/flush
func (h *Handler) flushSession(c *gin.Context) {
	var req dto.FlushSessionRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Success: false,
			Error:   err.Error(),
		})
		return
	}

	flushed, err := h.tracking.FlushSession(c.Request.Context(), req.SessionID)
	if errors.Is(err, domain.ErrSessionNotFound) {
		c.JSON(http.StatusNotFound, dto.ErrorResponse{
			Success: false,
			Error:   "Session not found",
		})
		return
	}
	if err != nil {
		h.log.Error("Failed to flush session",
			zap.String("session_id", req.SessionID),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Success: false,
			Error:   "Failed to flush session",
		})
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{
		Success: true,
		Data:    dto.FlushSessionData{FlushedEvents: flushed},
	})
}

// trackEvent handles POST /track
func (h *Handler) trackEvent(c *gin.Context) {
	var req dto.TrackEventRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Success: false,
			Error:   err.Error(),
		})
		return
	}

	data, renewalID, err := h.tracking.TrackEvent(c.Request.Context(), &req, buildRequestContext(c))
	if errors.Is(err, domain.ErrSessionExpired) {
		// Expiry is part of the protocol: the client re-inits under the
		// replacement id, so the response stays 200.
		c.JSON(http.StatusOK, dto.ErrorResponse{
			Success:      false,
			Error:        "Session expired",
			NewSessionID: renewalID,
		})
		return
	}
	if errors.Is(err, domain.ErrSessionNotFound) {
		c.JSON(http.StatusNotFound, dto.ErrorResponse{
			Success: false,
			Error:   "Session not found",
		})
		return
	}
	if err != nil {
		h.log.Error("Failed to track event",
			zap.String("session_id", req.SessionID),
			zap.String("event_type", req.EventType),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Success: false,
			Error:   "Failed to track event",
		})
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{Success: true, Data: data})
}

// externalTrack handles POST /external-track
func (h *Handler) externalTrack(c *gin.Context) {
	var req dto.ExternalTrackRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Success: false,
			Error:   err.Error(),
		})
		return
	}

	err := h.tracking.ExternalTrack(c.Request.Context(), &req)
	if errors.Is(err, token.ErrInvalidToken) {
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{
			Success: false,
			Error:   "Invalid tracking token",
		})
		return
	}
	if errors.Is(err, domain.ErrTokenNotFound) {
		c.JSON(http.StatusNotFound, dto.ErrorResponse{
			Success: false,
			Error:   "Unknown tracking identity",
		})
		return
	}
	if err != nil {
		h.log.Error("Failed to record external event",
			zap.String("event_type", req.EventType),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Success: false,
			Error:   "Failed to record event",
		})
		return
	}

	c.JSON(http.StatusAccepted, dto.SuccessResponse{Success: true})
}
