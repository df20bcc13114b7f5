package evaluator

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/reachforge/campaign-edge-service/internal/domain"
)

func TestEvaluateRule_EqualsCaseInsensitive(t *testing.T) {
	ctx := &domain.RequestContext{Country: "us"}

	rule := domain.SegmentRule{
		RuleType: domain.RuleCountry,
		Operator: domain.OpEquals,
		Value:    "US",
	}

	ok, err := EvaluateRule(rule, ctx)

	assert.NoError(t, err)
	assert.True(t, ok)
}

func TestEvaluateRule_NotEquals(t *testing.T) {
	ctx := &domain.RequestContext{DeviceType: "mobile"}

	rule := domain.SegmentRule{
		RuleType: domain.RuleDeviceType,
		Operator: domain.OpNotEquals,
		Value:    "desktop",
	}

	ok, err := EvaluateRule(rule, ctx)

	assert.NoError(t, err)
	assert.True(t, ok)
}

func TestEvaluateRule_MissingFieldOptionalPasses(t *testing.T) {
	ctx := &domain.RequestContext{}

	rule := domain.SegmentRule{
		RuleType:   domain.RuleUTMSource,
		Operator:   domain.OpEquals,
		Value:      "google",
		IsRequired: false,
	}

	ok, err := EvaluateRule(rule, ctx)

	assert.NoError(t, err)
	assert.True(t, ok, "absent optional field should pass vacuously")
}

func TestEvaluateRule_MissingFieldRequiredFails(t *testing.T) {
	ctx := &domain.RequestContext{}

	rule := domain.SegmentRule{
		RuleType:   domain.RuleUTMSource,
		Operator:   domain.OpEquals,
		Value:      "google",
		IsRequired: true,
	}

	ok, err := EvaluateRule(rule, ctx)

	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestEvaluateRule_BetweenHourOfDay(t *testing.T) {
	ctx := &domain.RequestContext{HourOfDay: 14}

	rule := domain.SegmentRule{
		RuleType: domain.RuleHourOfDay,
		Operator: domain.OpBetween,
		Value:    []interface{}{float64(9), float64(17)},
	}

	ok, err := EvaluateRule(rule, ctx)

	assert.NoError(t, err)
	assert.True(t, ok)
}

func TestEvaluateRule_BetweenMalformedValue(t *testing.T) {
	ctx := &domain.RequestContext{HourOfDay: 14}

	rule := domain.SegmentRule{
		RuleType: domain.RuleHourOfDay,
		Operator: domain.OpBetween,
		Value:    []interface{}{float64(9)},
	}

	_, err := EvaluateRule(rule, ctx)

	assert.ErrorIs(t, err, domain.ErrMalformedRule)
}

func TestEvaluateRule_InOperator(t *testing.T) {
	ctx := &domain.RequestContext{Country: "DE"}

	rule := domain.SegmentRule{
		RuleType: domain.RuleCountry,
		Operator: domain.OpIn,
		Value:    []interface{}{"de", "FR", "IT"},
	}

	ok, err := EvaluateRule(rule, ctx)

	assert.NoError(t, err)
	assert.True(t, ok)
}

func TestEvaluateRule_InOperatorScalarValueIsMalformed(t *testing.T) {
	ctx := &domain.RequestContext{Country: "DE"}

	rule := domain.SegmentRule{
		RuleType: domain.RuleCountry,
		Operator: domain.OpIn,
		Value:    "DE",
	}

	_, err := EvaluateRule(rule, ctx)

	assert.ErrorIs(t, err, domain.ErrMalformedRule)
}

func TestEvaluateRule_NotIn(t *testing.T) {
	ctx := &domain.RequestContext{Browser: "firefox"}

	rule := domain.SegmentRule{
		RuleType: domain.RuleBrowser,
		Operator: domain.OpNotIn,
		Value:    []interface{}{"chrome", "safari"},
	}

	ok, err := EvaluateRule(rule, ctx)

	assert.NoError(t, err)
	assert.True(t, ok)
}

func TestEvaluateRule_StringOperators(t *testing.T) {
	ctx := &domain.RequestContext{Referrer: "https://News.Example.COM/article"}

	cases := []struct {
		name     string
		operator domain.Operator
		value    string
		want     bool
	}{
		{"contains", domain.OpContains, "news.example", true},
		{"not_contains", domain.OpNotContains, "shop.example", true},
		{"starts_with", domain.OpStartsWith, "HTTPS://news", true},
		{"ends_with", domain.OpEndsWith, "/ARTICLE", true},
		{"contains miss", domain.OpContains, "blog", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rule := domain.SegmentRule{
				RuleType: domain.RuleReferrer,
				Operator: tc.operator,
				Value:    tc.value,
			}

			ok, err := EvaluateRule(rule, ctx)

			assert.NoError(t, err)
			assert.Equal(t, tc.want, ok)
		})
	}
}

func TestEvaluateRule_IsEUCountry(t *testing.T) {
	rule := domain.SegmentRule{
		RuleType: domain.RuleIsEUCountry,
		Operator: domain.OpEquals,
		Value:    true,
	}

	ok, err := EvaluateRule(rule, &domain.RequestContext{Country: "FR"})
	assert.NoError(t, err)
	assert.True(t, ok)

	ok, err = EvaluateRule(rule, &domain.RequestContext{Country: "US"})
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestEvaluateRule_CustomParameter(t *testing.T) {
	ctx := &domain.RequestContext{
		CustomParams: map[string]string{"plan": "enterprise"},
	}

	rule := domain.SegmentRule{
		RuleType:  domain.RuleCustomParameter,
		CustomKey: "plan",
		Operator:  domain.OpEquals,
		Value:     "enterprise",
	}

	ok, err := EvaluateRule(rule, ctx)

	assert.NoError(t, err)
	assert.True(t, ok)
}

func TestEvaluateRule_GreaterLessThan(t *testing.T) {
	ctx := &domain.RequestContext{HourOfDay: 20}

	gt := domain.SegmentRule{RuleType: domain.RuleHourOfDay, Operator: domain.OpGreaterThan, Value: float64(17)}
	lt := domain.SegmentRule{RuleType: domain.RuleHourOfDay, Operator: domain.OpLessThan, Value: float64(17)}

	ok, err := EvaluateRule(gt, ctx)
	assert.NoError(t, err)
	assert.True(t, ok)

	ok, err = EvaluateRule(lt, ctx)
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestEvaluateRule_UnknownRuleTypeBehavesLikeAbsent(t *testing.T) {
	rule := domain.SegmentRule{
		RuleType: domain.RuleType("somethingNew"),
		Operator: domain.OpEquals,
		Value:    "x",
	}

	ok, err := EvaluateRule(rule, &domain.RequestContext{})
	assert.NoError(t, err)
	assert.True(t, ok)

	rule.IsRequired = true
	ok, err = EvaluateRule(rule, &domain.RequestContext{})
	assert.NoError(t, err)
	assert.False(t, ok)
}
