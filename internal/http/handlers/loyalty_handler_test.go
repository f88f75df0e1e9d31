package handlers

import (
	"encoding/json"
	"net/http"
	"testing"
)

func TestListLevels(t *testing.T) {
	r := newTestRouter(&fakePoints{}, &fakeBadges{}, &fakePhone{})

	w := doJSON(t, r, http.MethodGet, "/levels", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp ListLevelsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Levels) != 4 {
		t.Fatalf("levels = %d, want 4", len(resp.Levels))
	}
	if resp.Levels[0].Name != "Bronze" || resp.Levels[3].Name != "Platinum" {
		t.Fatalf("level order wrong: %+v", resp.Levels)
	}
}

func TestLevelFor(t *testing.T) {
	r := newTestRouter(&fakePoints{}, &fakeBadges{}, &fakePhone{})

	w := doJSON(t, r, http.MethodGet, "/levels/for?total_points=2500", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp LevelForResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.TotalPoints != 2500 || resp.Level.Name != "Silver" {
		t.Fatalf("resp = %+v", resp)
	}

	for _, q := range []string{"", "?total_points=abc", "?total_points=1.5"} {
		w := doJSON(t, r, http.MethodGet, "/levels/for"+q, nil)
		if w.Code != http.StatusBadRequest {
			t.Errorf("query %q: status = %d, want 400", q, w.Code)
		}
	}
}

func TestListRewards(t *testing.T) {
	r := newTestRouter(&fakePoints{}, &fakeBadges{}, &fakePhone{})

	w := doJSON(t, r, http.MethodGet, "/rewards", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp ListRewardsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Rewards) != 5 {
		t.Fatalf("rewards = %d, want 5", len(resp.Rewards))
	}
	if len(resp.ByTier[1]) != 2 {
		t.Fatalf("tier 1 = %+v", resp.ByTier[1])
	}
}
