package evo

import (
	"sort"

	"lgp/internal/model"
)

// Individual pairs a program with its evaluated fitness. Seq records the
// order the individual entered the population and breaks ranking ties so a
// sorted population is always the same regardless of evaluation order.
type Individual struct {
	Program        model.Program
	Fitness        float64
	Evaluated      bool
	FailedEpisodes int
	Seq            int
}

// Better reports whether a ranks ahead of b: higher fitness first, then
// fewer instructions, then earlier insertion.
func Better(a, b Individual) bool {
	if a.Fitness != b.Fitness {
		return a.Fitness > b.Fitness
	}
	if len(a.Program.Instructions) != len(b.Program.Instructions) {
		return len(a.Program.Instructions) < len(b.Program.Instructions)
	}
	return a.Seq < b.Seq
}

// SortRanked orders a population canonically, best first.
func SortRanked(population []Individual) {
	sort.Slice(population, func(i, j int) bool {
		return Better(population[i], population[j])
	})
}
