package evo

import (
	"testing"

	"lgp/internal/model"
)

func ind(fitness float64, length, seq int) Individual {
	return Individual{
		Program: model.Program{
			ID:            "p",
			Instructions:  make([]model.Instruction, length),
			RegisterCount: 2,
			ActionCount:   1,
		},
		Fitness: fitness,
		Seq:     seq,
	}
}

func TestSortRankedOrdersByFitnessThenLengthThenSeq(t *testing.T) {
	population := []Individual{
		ind(1.0, 5, 0),
		ind(3.0, 9, 1),
		ind(3.0, 2, 2),
		ind(3.0, 2, 3),
		ind(2.0, 1, 4),
	}
	SortRanked(population)

	wantSeq := []int{2, 3, 1, 4, 0}
	for i, want := range wantSeq {
		if population[i].Seq != want {
			t.Fatalf("position %d: seq %d, want %d", i, population[i].Seq, want)
		}
	}
}

func TestSortRankedIsOrderIndependent(t *testing.T) {
	forward := []Individual{ind(1, 3, 0), ind(1, 3, 1), ind(2, 3, 2)}
	reversed := []Individual{ind(2, 3, 2), ind(1, 3, 1), ind(1, 3, 0)}
	SortRanked(forward)
	SortRanked(reversed)
	for i := range forward {
		if forward[i].Seq != reversed[i].Seq {
			t.Fatalf("position %d differs by input order: %d vs %d", i, forward[i].Seq, reversed[i].Seq)
		}
	}
}

func TestBetterPrefersSentinelLast(t *testing.T) {
	healthy := ind(-100, 3, 1)
	broken := ind(SentinelFitness, 1, 0)
	if !Better(healthy, broken) {
		t.Fatal("sentinel fitness ranked ahead of an evaluated program")
	}
}
