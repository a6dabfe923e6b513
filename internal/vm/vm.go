// Package vm executes linear programs against a register file. Execution is
// deterministic: the same program, inputs, and starting registers always
// produce the same final registers.
package vm

import (
	"fmt"
	"math"

	"lgp/internal/model"
)

// Default execution bounds applied when an Interpreter field is zero.
const (
	DefaultMaxSteps       = 512
	DefaultMaxBranchSkips = 8
)

// Interpreter bounds a single program execution. MaxSteps caps the number of
// instructions fetched per Run; exhausting it truncates the run and returns
// the registers as they stand. MaxBranchSkips caps how many instructions a
// failed conditional may jump over.
type Interpreter struct {
	MaxSteps       int
	MaxBranchSkips int
}

// Run executes p over the given inputs. regs seeds the register file; pass
// nil for a zeroed file. The returned slice is freshly allocated, so callers
// may feed it back into the next Run to carry register state across steps.
// The bool reports whether the step budget truncated execution.
func (it Interpreter) Run(p model.Program, inputs []float64, regs []float64) ([]float64, bool, error) {
	if len(inputs) != p.InputArity {
		return nil, false, fmt.Errorf("program %s: got %d inputs, want %d", p.ID, len(inputs), p.InputArity)
	}

	out := make([]float64, p.RegisterCount)
	if regs != nil {
		if len(regs) != p.RegisterCount {
			return nil, false, fmt.Errorf("program %s: got %d registers, want %d", p.ID, len(regs), p.RegisterCount)
		}
		copy(out, regs)
	}

	maxSteps := it.MaxSteps
	if maxSteps <= 0 {
		maxSteps = DefaultMaxSteps
	}
	maxSkips := it.MaxBranchSkips
	if maxSkips <= 0 {
		maxSkips = DefaultMaxBranchSkips
	}

	steps := 0
	for pc := 0; pc < len(p.Instructions); pc++ {
		if steps >= maxSteps {
			return out, true, nil
		}
		steps++

		inst := p.Instructions[pc]
		if inst.Dst < 0 || inst.Dst >= p.RegisterCount {
			return nil, false, fmt.Errorf("program %s: dst register %d out of range", p.ID, inst.Dst)
		}
		operand, err := operandValue(inst, inputs, out, p)
		if err != nil {
			return nil, false, err
		}

		switch inst.Op {
		case model.OpAdd:
			out[inst.Dst] = clamp(out[inst.Dst] + operand)
		case model.OpSub:
			out[inst.Dst] = clamp(out[inst.Dst] - operand)
		case model.OpMul:
			out[inst.Dst] = clamp(out[inst.Dst] * operand)
		case model.OpDiv:
			// Protected division: a zero divisor leaves the destination alone.
			if operand != 0 {
				out[inst.Dst] = clamp(out[inst.Dst] / operand)
			}
		case model.OpIfGT:
			if !(out[inst.Dst] > operand) {
				pc += skipDistance(p.Instructions, pc, maxSkips)
			}
		case model.OpIfLT:
			if !(out[inst.Dst] < operand) {
				pc += skipDistance(p.Instructions, pc, maxSkips)
			}
		case model.OpNop:
		default:
			return nil, false, fmt.Errorf("program %s instruction %d: unknown op %q", p.ID, pc, inst.Op)
		}
	}
	return out, false, nil
}

// skipDistance computes how far a failed conditional at pc advances the
// program counter. Consecutive conditionals chain: a failed branch skips
// every immediately following branch plus the first plain instruction, so a
// run of conditionals acts as a conjunction guarding one operation. The
// distance never exceeds maxSkips instructions.
func skipDistance(instructions []model.Instruction, pc, maxSkips int) int {
	dist := 0
	for next := pc + 1; next < len(instructions) && dist < maxSkips; next++ {
		dist++
		op := instructions[next].Op
		if op != model.OpIfGT && op != model.OpIfLT {
			break
		}
	}
	return dist
}

func operandValue(inst model.Instruction, inputs, regs []float64, p model.Program) (float64, error) {
	switch inst.Mode {
	case model.ModeRegister:
		if inst.Src < 0 || inst.Src >= len(regs) {
			return 0, fmt.Errorf("program %s: src register %d out of range", p.ID, inst.Src)
		}
		return regs[inst.Src], nil
	case model.ModeInput:
		if inst.Src < 0 || inst.Src >= len(inputs) {
			return 0, fmt.Errorf("program %s: input %d out of range", p.ID, inst.Src)
		}
		return inputs[inst.Src], nil
	case model.ModeConstant:
		return inst.Const, nil
	default:
		return 0, fmt.Errorf("program %s: unknown operand mode %q", p.ID, inst.Mode)
	}
}

// clamp keeps register values finite so one runaway multiply cannot poison
// downstream comparisons with NaN.
func clamp(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 0
	case math.IsInf(v, 1):
		return math.MaxFloat64
	case math.IsInf(v, -1):
		return -math.MaxFloat64
	default:
		return v
	}
}

// Argmax picks the index of the largest value among the first actionCount
// registers. Ties resolve to the lowest index, so an untouched register file
// always selects action zero.
func Argmax(regs []float64, actionCount int) int {
	if actionCount > len(regs) {
		actionCount = len(regs)
	}
	best := 0
	for i := 1; i < actionCount; i++ {
		if regs[i] > regs[best] {
			best = i
		}
	}
	return best
}
