// Package level maps a count of confirmed plants to a player level.
package level

const (
	Min = 1
	Max = 4
)

type rule struct {
	Level     int
	Threshold int
	Title     string
	Milestone string
}

// rules are ordered highest level first; For walks them in that order.
var rules = []rule{
	{
		Level:     4,
		Threshold: 60,
		Title:     "El Legado Verde",
		Milestone: "¡Nivel 4 desbloqueado! ¡Superaste El Corazón Silvestre! Reclama el tercer premio en la tienda.",
	},
	{
		Level:     3,
		Threshold: 30,
		Title:     "El Corazón Silvestre",
		Milestone: "¡Nivel 3 desbloqueado! ¡Superaste La Senda Espinosa! Reclama el segundo premio en la tienda.",
	},
	{
		Level:     2,
		Threshold: 10,
		Title:     "La Senda Espinosa",
		Milestone: "¡Nivel 2 desbloqueado! ¡Superaste El Primer Brote! Reclama el primer premio en la tienda.",
	},
	{
		Level:     1,
		Threshold: 0,
		Title:     "El Primer Brote",
	},
}

// For returns the level reached with count confirmed plants.
func For(count int) int {
	for _, r := range rules {
		if count >= r.Threshold {
			return r.Level
		}
	}
	return Min
}

// Threshold returns the confirmed count at which lvl is reached.
func Threshold(lvl int) int {
	if r, ok := lookup(lvl); ok {
		return r.Threshold
	}
	return 0
}

// Next returns the count needed for the level after the one count reaches,
// and false when count is already at the top level.
func Next(count int) (int, bool) {
	current := For(count)
	if current >= Max {
		return 0, false
	}
	return Threshold(current + 1), true
}

func Title(lvl int) string {
	if r, ok := lookup(lvl); ok {
		return r.Title
	}
	return ""
}

// Milestone returns the unlock message for lvl. Level 1 has none.
func Milestone(lvl int) (string, bool) {
	r, ok := lookup(lvl)
	if !ok || r.Milestone == "" {
		return "", false
	}
	return r.Milestone, true
}

// Crossed lists every level in (from, to] in ascending order.
func Crossed(from, to int) []int {
	if to <= from {
		return nil
	}
	if from < Min-1 {
		from = Min - 1
	}
	if to > Max {
		to = Max
	}
	out := make([]int, 0, to-from)
	for lvl := from + 1; lvl <= to; lvl++ {
		out = append(out, lvl)
	}
	return out
}

func lookup(lvl int) (rule, bool) {
	for _, r := range rules {
		if r.Level == lvl {
			return r, true
		}
	}
	return rule{}, false
}
