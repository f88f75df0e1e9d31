// Package loyalty holds the pure domain rules of the rewards program: the
// membership level table, the golden-hour window, the redeemable reward
// catalog, badge definitions, and phone-number normalization. Nothing in this
// package touches storage or transport; it is deterministic configuration and
// arithmetic, which keeps it trivially unit-testable.
package loyalty

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Level is one membership tier. Levels are totally ordered by MinPoints and
// the lowest level always has MinPoints 0, so every lifetime total maps to
// exactly one level.
type Level struct {
	Level       int     `json:"level"`
	Name        string  `json:"name"`
	MinPoints   int64   `json:"min_points"`
	Multiplier  float64 `json:"multiplier"`
	Description string  `json:"description"`
}

// LevelTable is the static, ordered set of membership levels. It is built
// once at startup and never mutated afterwards, so it is safe for concurrent
// reads without locking.
type LevelTable struct {
	levels []Level // ascending by MinPoints
}

// NewLevelTable validates and orders the given levels.
//
// Rules enforced:
//   - at least one level
//   - exactly one level with MinPoints == 0 (the guaranteed floor)
//   - strictly increasing thresholds after sorting
//   - every multiplier >= 1.0
func NewLevelTable(levels []Level) (LevelTable, error) {
	if len(levels) == 0 {
		return LevelTable{}, errors.New("level table must not be empty")
	}
	ls := make([]Level, len(levels))
	copy(ls, levels)
	sort.Slice(ls, func(i, j int) bool { return ls[i].MinPoints < ls[j].MinPoints })

	if ls[0].MinPoints != 0 {
		return LevelTable{}, errors.New("lowest level must have min_points 0")
	}
	for i, l := range ls {
		if l.Multiplier < 1.0 {
			return LevelTable{}, fmt.Errorf("level %q multiplier must be >= 1.0", l.Name)
		}
		if i > 0 && ls[i-1].MinPoints == l.MinPoints {
			return LevelTable{}, fmt.Errorf("duplicate min_points %d", l.MinPoints)
		}
		ls[i].Level = i + 1
	}
	return LevelTable{levels: ls}, nil
}

// MustLevelTable builds a LevelTable and panics on invalid input. Intended
// for wiring with compile-time-known defaults.
func MustLevelTable(levels []Level) LevelTable {
	t, err := NewLevelTable(levels)
	if err != nil {
		panic(err)
	}
	return t
}

// LevelFor returns the highest level whose MinPoints <= totalPoints. Because
// the floor level has threshold 0 this is a total function: any non-negative
// total (and, defensively, any negative one) resolves to a level.
func (t LevelTable) LevelFor(totalPoints int64) Level {
	for i := len(t.levels) - 1; i >= 0; i-- {
		if t.levels[i].MinPoints <= totalPoints {
			return t.levels[i]
		}
	}
	return t.levels[0]
}

// Levels returns the ordered levels (ascending by MinPoints). The returned
// slice is a copy; callers may not mutate the table through it.
func (t LevelTable) Levels() []Level {
	out := make([]Level, len(t.levels))
	copy(out, t.levels)
	return out
}

// DefaultLevels is the stock four-tier program shipped with the storefront.
func DefaultLevels() []Level {
	return []Level{
		{Name: "Bronze", MinPoints: 0, Multiplier: 1.0, Description: "Welcome tier for every member"},
		{Name: "Silver", MinPoints: 1000, Multiplier: 1.1, Description: "10% bonus points on everything you earn"},
		{Name: "Gold", MinPoints: 5000, Multiplier: 1.25, Description: "25% bonus points plus early access to seasonal menus"},
		{Name: "Platinum", MinPoints: 15000, Multiplier: 1.5, Description: "50% bonus points and a dedicated concierge"},
	}
}

// ParseLevels parses a compact "Name:minPoints:multiplier" CSV used to
// override the level table from configuration, e.g.
//
//	Bronze:0:1.0,Silver:1000:1.1,Gold:5000:1.25
//
// An empty input yields nil (caller falls back to defaults).
func ParseLevels(s string) ([]Level, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	var out []Level
	for _, part := range strings.Split(s, ",") {
		fields := strings.Split(strings.TrimSpace(part), ":")
		if len(fields) != 3 {
			return nil, fmt.Errorf("level %q: want name:min:multiplier", part)
		}
		min, err := strconv.ParseInt(strings.TrimSpace(fields[1]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("level %q: bad min_points: %w", part, err)
		}
		mult, err := strconv.ParseFloat(strings.TrimSpace(fields[2]), 64)
		if err != nil {
			return nil, fmt.Errorf("level %q: bad multiplier: %w", part, err)
		}
		out = append(out, Level{
			Name:       strings.TrimSpace(fields[0]),
			MinPoints:  min,
			Multiplier: mult,
		})
	}
	return out, nil
}
