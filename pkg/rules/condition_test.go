package rules

import "testing"

func TestMatchesConditionsList(t *testing.T) {
	fields := newEventFields("payment_failed", "billing", "push", "high", "u1", nil)
	conditions := map[string]interface{}{
		"event_type": []interface{}{"payment_failed", "security_alert"},
	}
	if !matchesConditions(fields, conditions) {
		t.Fatal("expected list matcher to pass")
	}
}

func TestMatchesConditionsScalarMissingField(t *testing.T) {
	fields := newEventFields("promo_offer", "marketing", "sms", "low", "u1", nil)
	conditions := map[string]interface{}{
		"meta.campaign": "summer",
	}
	if matchesConditions(fields, conditions) {
		t.Fatal("missing field should never match a scalar condition")
	}
}

func TestMatchesConditionsNotInAllowsMissing(t *testing.T) {
	fields := newEventFields("promo_offer", "marketing", "sms", "low", "u1", nil)
	conditions := map[string]interface{}{
		"meta.segment": map[string]interface{}{"not_in": []interface{}{"vip"}},
	}
	if !matchesConditions(fields, conditions) {
		t.Fatal("not_in should pass when the field is missing")
	}
}

func TestMatchesConditionsContainsCaseInsensitive(t *testing.T) {
	fields := newEventFields("payment_failed", "billing", "push", "high", "u1", nil)
	conditions := map[string]interface{}{
		"event_type": map[string]interface{}{"contains": "FAIL"},
	}
	if !matchesConditions(fields, conditions) {
		t.Fatal("expected case-insensitive contains to match")
	}
}

func TestMatchesConditionsGTE(t *testing.T) {
	fields := eventFields{values: map[string]interface{}{"meta.amount": float64(50)}}
	conditions := map[string]interface{}{
		"meta.amount": map[string]interface{}{"gte": float64(10)},
	}
	if !matchesConditions(fields, conditions) {
		t.Fatal("expected gte to pass")
	}
}
