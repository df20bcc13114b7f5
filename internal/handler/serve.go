package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/reachforge/campaign-edge-service/internal/domain"
	"github.com/reachforge/campaign-edge-service/internal/service"
)

const notFoundPage = `<!DOCTYPE html>
<html>
<head><title>Page not found</title></head>
<body><h1>404</h1><p>This page is not available.</p></body>
</html>`

// serveCampaign handles GET /serve/:slug
//
// Configuration problems (unknown campaign, broken rules, missing landing
// page) all render the generic 404 page rather than leaking internals to
// visitors.
func (h *Handler) serveCampaign(c *gin.Context) {
	params := service.ServeParams{
		Hostname:  hostname(c),
		Slug:      c.Param("slug"),
		PreviewID: c.Query("preview_campaign_id"),
		VisitorID: visitorID(c),
		Context:   buildRequestContext(c),
	}
	// Returning visitors send their session id so a variant assignment
	// recorded on the session is reused instead of re-drawn.
	if sid := c.Query("session_id"); sid != "" {
		params.Existing = h.tracking.Session(sid)
	}

	res, err := h.campaigns.Serve(c.Request.Context(), params)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrCampaignNotFound),
			errors.Is(err, domain.ErrNoLandingPage),
			errors.Is(err, domain.ErrMalformedRule):
			h.log.Warn("Serve fell back to not-found page",
				zap.String("hostname", params.Hostname),
				zap.String("campaign_slug", params.Slug),
				zap.Error(err))
			c.Data(http.StatusNotFound, "text/html; charset=utf-8", []byte(notFoundPage))
		default:
			h.log.Error("Serve failed",
				zap.String("hostname", params.Hostname),
				zap.String("campaign_slug", params.Slug),
				zap.Error(err))
			c.Data(http.StatusInternalServerError, "text/html; charset=utf-8", []byte(notFoundPage))
		}
		return
	}

	c.Header("X-Decision-Type", res.Decision.DecisionType)
	if res.Decision.ABTestVariantID != "" {
		c.Header("X-Variant-Id", res.Decision.ABTestVariantID)
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(res.HTML))
}

func hostname(c *gin.Context) string {
	host := c.Request.Host
	if i := strings.IndexByte(host, ':'); i >= 0 {
		host = host[:i]
	}
	return host
}
