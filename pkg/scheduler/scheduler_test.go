package scheduler

import "testing"

func TestSortByPriorityAscendingStable(t *testing.T) {
	items := []digestItem{
		{EventID: "a", PriorityOrder: 5},
		{EventID: "b", PriorityOrder: 1},
		{EventID: "c", PriorityOrder: 5},
		{EventID: "d", PriorityOrder: 2},
	}
	sortByPriority(items)

	want := []string{"b", "d", "a", "c"}
	for i, id := range want {
		if items[i].EventID != id {
			t.Fatalf("position %d: expected %q, got %q", i, id, items[i].EventID)
		}
	}
}
