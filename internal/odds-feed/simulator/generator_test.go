package simulator

import (
	"testing"
	"time"
)

func TestGenerator_Next(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	g := NewGenerator(DefaultCatalog(now), "sim", 42)

	first := g.Next(now)
	second := g.Next(now.Add(3 * time.Second))

	if len(first) != 4 || len(second) != 4 {
		t.Fatalf("rounds = %d/%d", len(first), len(second))
	}
	for _, u := range first {
		if u.Version != 1 || u.Source != "sim" {
			t.Errorf("update = %+v", u)
		}
		if u.Odds.Home < 1.40 || u.Odds.Home > 3.50 || u.Odds.Draw < 2.50 || u.Odds.Away < 2.00 {
			t.Errorf("odds out of range: %+v", u.Odds)
		}
		if !u.KickoffAt.After(now) {
			t.Errorf("kickoff %s should be in the future", u.KickoffAt)
		}
	}
	if second[0].Version != 2 {
		t.Errorf("version = %d, want 2", second[0].Version)
	}
}
