package domain

// CampaignConfig is the immutable per-version campaign document loaded from
// the config store. It is read-only to this service; the authoring system
// owns its lifecycle.
type CampaignConfig struct {
	CampaignID               string    `json:"campaignId"`
	Slug                     string    `json:"slug"`
	DefaultLandingPageID     string    `json:"defaultLandingPageId"`
	PrimaryLanguage          string    `json:"primaryLanguage"`
	SessionDurationInMinutes int       `json:"sessionDurationInMinutes"`
	AttributionPeriodInDays  int       `json:"attributionPeriodInDays"`
	Segments                 []Segment `json:"segments"`
	PrimaryGoal              string    `json:"primaryGoal"`
	CustomEvents             []string  `json:"customEvents"`
}

// Segment is an audience bucket. Lower priority evaluates first; all rules
// must pass (AND semantics).
type Segment struct {
	ID                   string        `json:"id"`
	Priority             int           `json:"priority"`
	PrimaryLandingPageID string        `json:"primaryLandingPageId"`
	TranslationMode      string        `json:"translationMode"`
	Rules                []SegmentRule `json:"rules"`
	ABTests              []ABTest      `json:"abTests,omitempty"`
}

// RuleType identifies which request-context field a rule inspects.
type RuleType string

const (
	RuleVisitorType     RuleType = "visitorType"
	RuleCountry         RuleType = "country"
	RuleIsEUCountry     RuleType = "isEUCountry"
	RuleLanguage        RuleType = "language"
	RuleDeviceType      RuleType = "deviceType"
	RuleBrowser         RuleType = "browser"
	RuleOperatingSystem RuleType = "operatingSystem"
	RuleUTMSource       RuleType = "utmSource"
	RuleUTMMedium       RuleType = "utmMedium"
	RuleUTMCampaign     RuleType = "utmCampaign"
	RuleUTMTerm         RuleType = "utmTerm"
	RuleUTMContent      RuleType = "utmContent"
	RuleReferrer        RuleType = "referrer"
	RuleCustomParameter RuleType = "customParameter"
	RuleTimeZone        RuleType = "timeZone"
	RuleHourOfDay       RuleType = "hourOfDay"
	RuleDayOfWeek       RuleType = "dayOfWeek"
)

// Operator is the comparison applied between the context field and the
// configured rule value.
type Operator string

const (
	OpEquals      Operator = "equals"
	OpNotEquals   Operator = "not_equals"
	OpGreaterThan Operator = "greater_than"
	OpLessThan    Operator = "less_than"
	OpBetween     Operator = "between"
	OpIn          Operator = "in"
	OpNotIn       Operator = "not_in"
	OpContains    Operator = "contains"
	OpNotContains Operator = "not_contains"
	OpStartsWith  Operator = "starts_with"
	OpEndsWith    Operator = "ends_with"
)

// SegmentRule evaluates to a boolean against a normalized request-context
// snapshot. Value is scalar or array depending on the operator.
type SegmentRule struct {
	RuleType   RuleType    `json:"ruleType"`
	Operator   Operator    `json:"operator"`
	Value      interface{} `json:"value"`
	IsRequired bool        `json:"isRequired"`
	// CustomKey names the custom parameter inspected when RuleType is
	// customParameter.
	CustomKey string `json:"customKey,omitempty"`
}

// TestStatus is the A/B test lifecycle state.
type TestStatus string

const (
	TestDraft     TestStatus = "draft"
	TestRunning   TestStatus = "running"
	TestPaused    TestStatus = "paused"
	TestCompleted TestStatus = "completed"
)

// ABTest is an experiment embedded in a segment. PoolingPercent is the
// fraction (0-100) of matched traffic entering the test; the remainder
// falls through to the segment's primary landing page.
type ABTest struct {
	ID                 string          `json:"id"`
	Status             TestStatus      `json:"status"`
	PoolingPercent     float64         `json:"poolingPercent"`
	Variants           []ABTestVariant `json:"variants"`
	Winner             string          `json:"winner,omitempty"`
	ConfidenceLevel    float64         `json:"confidenceLevel,omitempty"`
	CompletionCriteria string          `json:"completionCriteria,omitempty"`
}

// ABTestVariant carries a non-negative traffic weight. Weights need not sum
// to 100; the selector normalizes.
type ABTestVariant struct {
	ID                string  `json:"id"`
	LandingPageID     string  `json:"landingPageId,omitempty"`
	TrafficAllocation float64 `json:"trafficAllocation"`
	IsControl         bool    `json:"isControl"`
}

// Variant returns the variant with the given id, or nil.
func (t *ABTest) Variant(id string) *ABTestVariant {
	for i := range t.Variants {
		if t.Variants[i].ID == id {
			return &t.Variants[i]
		}
	}
	return nil
}
