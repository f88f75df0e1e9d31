package loyalty

import (
	"testing"
	"time"
)

func TestBadge_Satisfied_Threshold(t *testing.T) {
	b := Badge{Code: "regular", Metric: MetricOrder, Threshold: 10}
	if b.Satisfied(9, Facts{}) {
		t.Fatalf("9 < 10 should not satisfy")
	}
	if !b.Satisfied(10, Facts{}) {
		t.Fatalf("threshold is inclusive")
	}
	if !b.Satisfied(11, Facts{}) {
		t.Fatalf("above threshold should satisfy")
	}
}

func TestBadge_Satisfied_PredicateWins(t *testing.T) {
	launch := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	b := Badge{
		Code:      "founding-member",
		Metric:    MetricMember,
		Threshold: 999, // ignored when a predicate is set
		Predicate: func(f Facts) bool { return !f.CreatedAt.IsZero() && f.CreatedAt.Before(launch) },
	}
	early := Facts{CreatedAt: launch.Add(-time.Hour)}
	late := Facts{CreatedAt: launch.Add(time.Hour)}
	if !b.Satisfied(0, early) {
		t.Fatalf("pre-launch account should satisfy")
	}
	if b.Satisfied(1<<30, late) {
		t.Fatalf("post-launch account should not satisfy regardless of metric value")
	}
	if b.Satisfied(0, Facts{}) {
		t.Fatalf("zero CreatedAt must not count as pre-launch")
	}
}

func TestBadgeSet_Indexing(t *testing.T) {
	launch := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewBadgeSet(DefaultBadges(launch))

	if got := len(s.All()); got != 6 {
		t.Fatalf("All() = %d badges, want 6", got)
	}
	orders := s.ForMetric(MetricOrder)
	if len(orders) != 2 {
		t.Fatalf("order metric should trigger 2 badges, got %d", len(orders))
	}
	if len(s.ForMetric("no-such-metric")) != 0 {
		t.Fatalf("unknown metric should trigger nothing")
	}

	// Definition order is preserved.
	if s.All()[0].Code != "first-order" {
		t.Fatalf("All()[0] = %q", s.All()[0].Code)
	}
}
