package handler

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/reachforge/campaign-edge-service/internal/domain"
)

const visitorCookie = "rf_visitor_id"

// buildRequestContext normalizes one inbound request into the snapshot
// segment rules evaluate against. Geo comes from the edge proxy's
// CF-IPCountry header; device, browser, and OS are sniffed from the
// user agent.
func buildRequestContext(c *gin.Context) *domain.RequestContext {
	now := time.Now()
	ua := c.Request.UserAgent()

	ctx := &domain.RequestContext{
		VisitorType:     "new",
		Country:         strings.ToUpper(c.GetHeader("CF-IPCountry")),
		Language:        primaryLanguage(c.GetHeader("Accept-Language")),
		DeviceType:      deviceType(ua),
		Browser:         browserName(ua),
		OperatingSystem: operatingSystem(ua),
		UTMSource:       c.Query("utm_source"),
		UTMMedium:       c.Query("utm_medium"),
		UTMCampaign:     c.Query("utm_campaign"),
		UTMTerm:         c.Query("utm_term"),
		UTMContent:      c.Query("utm_content"),
		Referrer:        c.GetHeader("Referer"),
		TimeZone:        c.GetHeader("CF-Timezone"),
		HourOfDay:       now.Hour(),
		DayOfWeek:       int(now.Weekday()),
		IP:              c.ClientIP(),
		UserAgent:       ua,
	}
	if ctx.Country == "XX" {
		ctx.Country = ""
	}
	if _, err := c.Cookie(visitorCookie); err == nil {
		ctx.VisitorType = "returning"
	}

	for key, values := range c.Request.URL.Query() {
		if strings.HasPrefix(key, "utm_") || len(values) == 0 {
			continue
		}
		if ctx.CustomParams == nil {
			ctx.CustomParams = make(map[string]string)
		}
		ctx.CustomParams[key] = values[0]
	}

	return ctx
}

// visitorID returns the stable visitor identity, minting the cookie on
// first contact. The cookie scopes A/B assignment stickiness across
// sessions.
func visitorID(c *gin.Context) string {
	if id, err := c.Cookie(visitorCookie); err == nil && id != "" {
		return id
	}
	id := uuid.NewString()
	c.SetCookie(visitorCookie, id, int((365 * 24 * time.Hour).Seconds()), "/", "", false, true)
	return id
}

func primaryLanguage(acceptLanguage string) string {
	if acceptLanguage == "" {
		return ""
	}
	first := strings.Split(acceptLanguage, ",")[0]
	first = strings.Split(first, ";")[0]
	lang := strings.Split(strings.TrimSpace(first), "-")[0]
	return strings.ToLower(lang)
}

func deviceType(ua string) string {
	ua = strings.ToLower(ua)
	switch {
	case strings.Contains(ua, "ipad") || strings.Contains(ua, "tablet"):
		return "tablet"
	case strings.Contains(ua, "mobi") || strings.Contains(ua, "android") || strings.Contains(ua, "iphone"):
		return "mobile"
	case ua == "":
		return ""
	default:
		return "desktop"
	}
}

func browserName(ua string) string {
	ua = strings.ToLower(ua)
	switch {
	case strings.Contains(ua, "edg/"):
		return "edge"
	case strings.Contains(ua, "opr/") || strings.Contains(ua, "opera"):
		return "opera"
	case strings.Contains(ua, "chrome"):
		return "chrome"
	case strings.Contains(ua, "safari"):
		return "safari"
	case strings.Contains(ua, "firefox"):
		return "firefox"
	default:
		return ""
	}
}

func operatingSystem(ua string) string {
	ua = strings.ToLower(ua)
	switch {
	case strings.Contains(ua, "windows"):
		return "windows"
	case strings.Contains(ua, "android"):
		return "android"
	case strings.Contains(ua, "iphone") || strings.Contains(ua, "ipad"):
		return "ios"
	case strings.Contains(ua, "mac os"):
		return "macos"
	case strings.Contains(ua, "linux"):
		return "linux"
	default:
		return ""
	}
}
