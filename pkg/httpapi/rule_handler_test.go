package httpapi

import "testing"

func TestRuleRequestToModelRejectsUnknownType(t *testing.T) {
	req := ruleRequest{RuleName: "x", RuleType: "not_a_real_type"}
	if _, err := req.toModel(); err == nil {
		t.Fatal("expected an error for an unknown rule_type")
	}
}

func TestRuleRequestToModelAppliesDefaults(t *testing.T) {
	req := ruleRequest{RuleName: "force-critical", RuleType: "force_now"}
	rule, err := req.toModel()
	if err != nil {
		t.Fatalf("toModel failed: %v", err)
	}
	if rule.PriorityOrder != 100 {
		t.Fatalf("expected default priority_order 100, got %d", rule.PriorityOrder)
	}
	if !rule.IsActive {
		t.Fatal("expected is_active to default to true")
	}
	if string(rule.Conditions) != "{}" {
		t.Fatalf("expected empty conditions object, got %s", rule.Conditions)
	}
}

func TestRuleRequestToModelHonorsExplicitOverrides(t *testing.T) {
	priority := 5
	active := false
	req := ruleRequest{
		RuleName:      "quiet-hours",
		RuleType:      "quiet_hours",
		PriorityOrder: &priority,
		IsActive:      &active,
	}
	rule, err := req.toModel()
	if err != nil {
		t.Fatalf("toModel failed: %v", err)
	}
	if rule.PriorityOrder != 5 {
		t.Fatalf("expected priority_order 5, got %d", rule.PriorityOrder)
	}
	if rule.IsActive {
		t.Fatal("expected is_active to stay false")
	}
}
