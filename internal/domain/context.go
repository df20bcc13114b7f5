package domain

import "strings"

// RequestContext is the normalized snapshot of an inbound request that
// segment rules evaluate against. Empty string fields count as absent.
type RequestContext struct {
	VisitorType     string            `json:"visitor_type"` // "new" or "returning"
	Country         string            `json:"country"`
	Language        string            `json:"language"`
	DeviceType      string            `json:"device_type"` // desktop, mobile, tablet
	Browser         string            `json:"browser"`
	OperatingSystem string            `json:"operating_system"`
	UTMSource       string            `json:"utm_source"`
	UTMMedium       string            `json:"utm_medium"`
	UTMCampaign     string            `json:"utm_campaign"`
	UTMTerm         string            `json:"utm_term"`
	UTMContent      string            `json:"utm_content"`
	Referrer        string            `json:"referrer"`
	TimeZone        string            `json:"time_zone"`
	HourOfDay       int               `json:"hour_of_day"`
	DayOfWeek       int               `json:"day_of_week"` // 0 = Sunday
	CustomParams    map[string]string `json:"custom_params,omitempty"`
	IP              string            `json:"-"`
	UserAgent       string            `json:"user_agent"`
}

// euCountries is the ISO 3166-1 alpha-2 set used by the isEUCountry rule.
var euCountries = map[string]struct{}{
	"AT": {}, "BE": {}, "BG": {}, "HR": {}, "CY": {}, "CZ": {}, "DK": {},
	"EE": {}, "FI": {}, "FR": {}, "DE": {}, "GR": {}, "HU": {}, "IE": {},
	"IT": {}, "LV": {}, "LT": {}, "LU": {}, "MT": {}, "NL": {}, "PL": {},
	"PT": {}, "RO": {}, "SK": {}, "SI": {}, "ES": {}, "SE": {},
}

// IsEUCountry reports whether the context country is in the EU.
func (c *RequestContext) IsEUCountry() bool {
	_, ok := euCountries[strings.ToUpper(c.Country)]
	return ok
}
