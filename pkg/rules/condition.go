// Package rules implements the hot-reloadable rules matcher: a small
// tagged-variant condition DSL evaluated against event fields, cached
// in-process with an atomically-swapped snapshot (spec.md §4.2, §9
// DESIGN NOTES). Grounded on original_source/app/services/rules_engine.py.
package rules

import (
	"fmt"
	"strings"
)

// eventFields is the typed lookup table condition evaluation reads from —
// a dotted "meta.<key>" address reaches into event metadata.
type eventFields struct {
	values map[string]interface{}
}

func newEventFields(eventType, source, channel, priorityHint, userID string, metadata map[string]interface{}) eventFields {
	values := map[string]interface{}{
		"event_type":    eventType,
		"source":        source,
		"channel":       channel,
		"priority_hint": priorityHint,
		"user_id":       userID,
	}
	for k, v := range metadata {
		values["meta."+k] = v
	}
	return eventFields{values: values}
}

func (f eventFields) get(field string) (interface{}, bool) {
	v, ok := f.values[field]
	return v, ok
}

// matchesConditions evaluates a Rule's condition map against the event.
// All entries are AND-combined; a missing field never matches except for
// not_in, where a missing field passes (spec.md §4.2).
func matchesConditions(fields eventFields, conditions map[string]interface{}) bool {
	for field, matcher := range conditions {
		val, present := fields.get(field)

		switch m := matcher.(type) {
		case []interface{}:
			if !present || !containsAny(m, val) {
				return false
			}
		case map[string]interface{}:
			if !matchesOperators(val, present, m) {
				return false
			}
		default:
			if !present || val != matcher {
				return false
			}
		}
	}
	return true
}

func containsAny(list []interface{}, val interface{}) bool {
	for _, item := range list {
		if item == val {
			return true
		}
	}
	return false
}

func matchesOperators(val interface{}, present bool, ops map[string]interface{}) bool {
	for op, operand := range ops {
		switch op {
		case "gte":
			if !present || !numericCompare(val, operand, func(a, b float64) bool { return a >= b }) {
				return false
			}
		case "lte":
			if !present || !numericCompare(val, operand, func(a, b float64) bool { return a <= b }) {
				return false
			}
		case "contains":
			needle, _ := operand.(string)
			if !present || val == nil || !strings.Contains(strings.ToLower(fmt.Sprint(val)), strings.ToLower(needle)) {
				return false
			}
		case "not_in":
			list, _ := operand.([]interface{})
			if present && containsAny(list, val) {
				return false
			}
		}
	}
	return true
}

func numericCompare(a, b interface{}, cmp func(x, y float64) bool) bool {
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if !aok || !bok {
		return false
	}
	return cmp(af, bf)
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
