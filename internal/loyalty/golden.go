package loyalty

import "time"

// GoldenHour describes the daily bonus window. Points awarded while the local
// hour lies in [StartHour, EndHour) earn Multiplier times the usual amount,
// stacked on top of the level multiplier (level first, golden hour second).
type GoldenHour struct {
	StartHour  int     // inclusive, 0..23
	EndHour    int     // exclusive, 0..24
	Multiplier float64 // >= 1.0
}

// DefaultGoldenHour is the stock 2am–4am double-points window.
func DefaultGoldenHour() GoldenHour {
	return GoldenHour{StartHour: 2, EndHour: 4, Multiplier: 2.0}
}

// Active reports whether t falls inside the window. The comparison uses t's
// own location: "2am" means 2am on the clock of the awarding instant.
// A window wrapping midnight (Start > End) is supported.
func (g GoldenHour) Active(t time.Time) bool {
	h := t.Hour()
	if g.StartHour == g.EndHour {
		return false
	}
	if g.StartHour < g.EndHour {
		return h >= g.StartHour && h < g.EndHour
	}
	return h >= g.StartHour || h < g.EndHour
}
