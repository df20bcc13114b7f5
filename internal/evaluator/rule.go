package evaluator

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/reachforge/campaign-edge-service/internal/domain"
)

// EvaluateRule checks a single segment rule against the request context.
// It is total: every (ruleType, operator) combination has a defined result.
// A missing context field passes when the rule is optional and fails when it
// is required. Malformed rule values (e.g. "between" without a 2-element
// array) return domain.ErrMalformedRule.
func EvaluateRule(rule domain.SegmentRule, ctx *domain.RequestContext) (bool, error) {
	value, present := contextField(rule, ctx)
	if !present {
		return !rule.IsRequired, nil
	}
	return applyOperator(rule, value)
}

// contextField resolves the context value a rule inspects. The second return
// reports presence; empty strings count as absent.
func contextField(rule domain.SegmentRule, ctx *domain.RequestContext) (string, bool) {
	switch rule.RuleType {
	case domain.RuleVisitorType:
		return ctx.VisitorType, ctx.VisitorType != ""
	case domain.RuleCountry:
		return ctx.Country, ctx.Country != ""
	case domain.RuleIsEUCountry:
		if ctx.Country == "" {
			return "", false
		}
		return strconv.FormatBool(ctx.IsEUCountry()), true
	case domain.RuleLanguage:
		return ctx.Language, ctx.Language != ""
	case domain.RuleDeviceType:
		return ctx.DeviceType, ctx.DeviceType != ""
	case domain.RuleBrowser:
		return ctx.Browser, ctx.Browser != ""
	case domain.RuleOperatingSystem:
		return ctx.OperatingSystem, ctx.OperatingSystem != ""
	case domain.RuleUTMSource:
		return ctx.UTMSource, ctx.UTMSource != ""
	case domain.RuleUTMMedium:
		return ctx.UTMMedium, ctx.UTMMedium != ""
	case domain.RuleUTMCampaign:
		return ctx.UTMCampaign, ctx.UTMCampaign != ""
	case domain.RuleUTMTerm:
		return ctx.UTMTerm, ctx.UTMTerm != ""
	case domain.RuleUTMContent:
		return ctx.UTMContent, ctx.UTMContent != ""
	case domain.RuleReferrer:
		return ctx.Referrer, ctx.Referrer != ""
	case domain.RuleCustomParameter:
		v, ok := ctx.CustomParams[rule.CustomKey]
		return v, ok && v != ""
	case domain.RuleTimeZone:
		return ctx.TimeZone, ctx.TimeZone != ""
	case domain.RuleHourOfDay:
		return strconv.Itoa(ctx.HourOfDay), true
	case domain.RuleDayOfWeek:
		return strconv.Itoa(ctx.DayOfWeek), true
	default:
		// Unknown rule types behave like an absent field.
		return "", false
	}
}

func applyOperator(rule domain.SegmentRule, value string) (bool, error) {
	switch rule.Operator {
	case domain.OpEquals:
		return strings.EqualFold(value, scalarString(rule.Value)), nil
	case domain.OpNotEquals:
		return !strings.EqualFold(value, scalarString(rule.Value)), nil

	case domain.OpGreaterThan, domain.OpLessThan:
		left, err := parseNumber(value)
		if err != nil {
			return false, nil
		}
		right, ok := scalarNumber(rule.Value)
		if !ok {
			return false, fmt.Errorf("%w: %s needs a numeric value", domain.ErrMalformedRule, rule.Operator)
		}
		if rule.Operator == domain.OpGreaterThan {
			return left > right, nil
		}
		return left < right, nil

	case domain.OpBetween:
		bounds, ok := arrayValues(rule.Value)
		if !ok || len(bounds) != 2 {
			return false, fmt.Errorf("%w: between needs a 2-element array", domain.ErrMalformedRule)
		}
		left, err := parseNumber(value)
		if err != nil {
			return false, nil
		}
		lo, okLo := toNumber(bounds[0])
		hi, okHi := toNumber(bounds[1])
		if !okLo || !okHi {
			return false, fmt.Errorf("%w: between needs numeric bounds", domain.ErrMalformedRule)
		}
		return left >= lo && left <= hi, nil

	case domain.OpIn, domain.OpNotIn:
		items, ok := arrayValues(rule.Value)
		if !ok {
			return false, fmt.Errorf("%w: %s needs an array value", domain.ErrMalformedRule, rule.Operator)
		}
		found := false
		for _, item := range items {
			if strings.EqualFold(value, toString(item)) {
				found = true
				break
			}
		}
		if rule.Operator == domain.OpIn {
			return found, nil
		}
		return !found, nil

	case domain.OpContains:
		return containsFold(value, scalarString(rule.Value)), nil
	case domain.OpNotContains:
		return !containsFold(value, scalarString(rule.Value)), nil
	case domain.OpStartsWith:
		return strings.HasPrefix(strings.ToLower(value), strings.ToLower(scalarString(rule.Value))), nil
	case domain.OpEndsWith:
		return strings.HasSuffix(strings.ToLower(value), strings.ToLower(scalarString(rule.Value))), nil

	default:
		return false, fmt.Errorf("%w: unknown operator %q", domain.ErrMalformedRule, rule.Operator)
	}
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

// toString renders a decoded JSON scalar for comparison.
func toString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", t)
	}
}

func scalarString(v interface{}) string {
	return toString(v)
}

func toNumber(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(t, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func scalarNumber(v interface{}) (float64, bool) {
	return toNumber(v)
}

func parseNumber(s string) (float64, error) {
	return strconv.ParseFloat(s, 64)
}

func arrayValues(v interface{}) ([]interface{}, bool) {
	switch t := v.(type) {
	case []interface{}:
		return t, true
	case []string:
		out := make([]interface{}, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out, true
	default:
		return nil, false
	}
}
