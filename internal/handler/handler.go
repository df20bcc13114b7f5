package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/reachforge/campaign-edge-service/internal/observability"
	"github.com/reachforge/campaign-edge-service/internal/service"
)

type Handler struct {
	tracking  service.Tracker
	campaigns service.CampaignServer
	abtests   service.TestController
	router    *gin.Engine
	log       *zap.Logger
}

func NewHandler(tracking service.Tracker, campaigns service.CampaignServer, abtests service.TestController, log *zap.Logger) *Handler {
	h := &Handler{
		tracking:  tracking,
		campaigns: campaigns,
		abtests:   abtests,
		router:    gin.Default(),
		log:       log,
	}

	h.registerRoutes()

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *Handler) registerRoutes() {
	h.router.GET("/health", h.healthCheck)
	h.router.GET("/metrics", gin.WrapH(observability.Handler()))

	h.router.GET("/serve/:slug", h.serveCampaign)

	h.router.POST("/session/init", h.initSession)
	h.router.POST("/session/validate", h.validateSession)
	h.router.POST("/session/flush", h.flushSession)
	h.router.POST("/track", h.trackEvent)
	h.router.POST("/external-track", h.externalTrack)

	h.router.POST("/initialize/:campaignSlug/:testId", h.initializeTest)
	h.router.GET("/stats/:campaignSlug/:testId", h.testStats)
	h.router.POST("/conversion/:campaignSlug/:testId", h.recordConversion)
	h.router.POST("/pause/:campaignSlug/:testId", h.pauseTest)
	h.router.POST("/resume/:campaignSlug/:testId", h.resumeTest)
	h.router.POST("/complete/:campaignSlug/:testId", h.completeTest)
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}
