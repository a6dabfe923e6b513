package evo

import (
	"fmt"
	"math/rand"

	"lgp/internal/model"
	"lgp/internal/program"
)

// Mutator applies point mutation: every instruction is independently
// replaced with a fresh random instruction with probability Rate.
type Mutator struct {
	Rate   float64
	Params program.Params
}

func (Mutator) Name() string {
	return "point"
}

func (m Mutator) Apply(rng *rand.Rand, p model.Program, id string) (model.Program, error) {
	if rng == nil {
		return model.Program{}, fmt.Errorf("random source is required")
	}
	if m.Rate < 0 || m.Rate > 1 {
		return model.Program{}, fmt.Errorf("mutation rate must be in [0,1]: %v", m.Rate)
	}

	child := program.Clone(p, id)
	for i := range child.Instructions {
		if rng.Float64() < m.Rate {
			child.Instructions[i] = program.RandomInstruction(rng, m.Params)
		}
	}
	return child, nil
}

// Crossover recombines two parents with two-point crossover. Both cut points
// fall inside the shorter parent, so every exchanged segment is valid in both
// programs. Children keep their parent's shape metadata; a child that would
// exceed maxInstructions is truncated from the tail.
func Crossover(rng *rand.Rand, a, b model.Program, maxInstructions int, idA, idB string) (model.Program, model.Program, error) {
	if rng == nil {
		return model.Program{}, model.Program{}, fmt.Errorf("random source is required")
	}
	if len(a.Instructions) == 0 || len(b.Instructions) == 0 {
		return model.Program{}, model.Program{}, fmt.Errorf("crossover requires non-empty parents")
	}

	shorter := len(a.Instructions)
	if len(b.Instructions) < shorter {
		shorter = len(b.Instructions)
	}
	p1 := rng.Intn(shorter + 1)
	p2 := rng.Intn(shorter + 1)
	if p1 > p2 {
		p1, p2 = p2, p1
	}

	childA := program.Clone(a, idA)
	childA.Instructions = spliceInstructions(a.Instructions, b.Instructions, p1, p2, maxInstructions)
	childB := program.Clone(b, idB)
	childB.Instructions = spliceInstructions(b.Instructions, a.Instructions, p1, p2, maxInstructions)
	return childA, childB, nil
}

func spliceInstructions(base, donor []model.Instruction, p1, p2, max int) []model.Instruction {
	out := make([]model.Instruction, 0, len(base))
	out = append(out, base[:p1]...)
	out = append(out, donor[p1:p2]...)
	out = append(out, base[p2:]...)
	if max > 0 && len(out) > max {
		out = out[:max]
	}
	return out
}
