package program

import (
	"errors"
	"fmt"
	"math/rand"

	"lgp/internal/model"
)

// ErrInvalidOperand marks a representation error: an instruction referencing
// a register or input slot outside the program's declared shape. Generators
// respect bounds by construction, so hitting this at runtime indicates a
// generator bug rather than bad user input.
var ErrInvalidOperand = errors.New("invalid operand index")

var opNames = []string{
	model.OpAdd,
	model.OpSub,
	model.OpMul,
	model.OpDiv,
	model.OpIfGT,
	model.OpIfLT,
	model.OpNop,
}

// Params bounds random program construction.
type Params struct {
	MaxInstructions int
	RegisterCount   int
	InputArity      int
	ActionCount     int
	ConstMin        float64
	ConstMax        float64
}

func (p Params) check() error {
	if p.MaxInstructions <= 0 {
		return fmt.Errorf("max instructions must be > 0")
	}
	if p.RegisterCount <= 0 {
		return fmt.Errorf("register count must be > 0")
	}
	if p.InputArity < 0 {
		return fmt.Errorf("input arity must be >= 0")
	}
	if p.ActionCount <= 0 || p.ActionCount > p.RegisterCount {
		return fmt.Errorf("action count must be in [1, register count]")
	}
	if p.ConstMax < p.ConstMin {
		return fmt.Errorf("const range is inverted: [%v, %v]", p.ConstMin, p.ConstMax)
	}
	return nil
}

// Generate builds a random valid program with between 1 and MaxInstructions
// instructions. The result always passes Validate.
func Generate(rng *rand.Rand, id string, params Params) (model.Program, error) {
	if rng == nil {
		return model.Program{}, errors.New("random source is required")
	}
	if err := params.check(); err != nil {
		return model.Program{}, err
	}

	length := 1 + rng.Intn(params.MaxInstructions)
	instructions := make([]model.Instruction, 0, length)
	for i := 0; i < length; i++ {
		instructions = append(instructions, RandomInstruction(rng, params))
	}

	return model.Program{
		ID:            id,
		Instructions:  instructions,
		RegisterCount: params.RegisterCount,
		InputArity:    params.InputArity,
		ActionCount:   params.ActionCount,
	}, nil
}

// RandomInstruction draws one instruction with operands inside the bounds
// declared by params.
func RandomInstruction(rng *rand.Rand, params Params) model.Instruction {
	inst := model.Instruction{
		Op:  opNames[rng.Intn(len(opNames))],
		Dst: rng.Intn(params.RegisterCount),
	}

	modes := 2
	if params.InputArity > 0 {
		modes = 3
	}
	switch rng.Intn(modes) {
	case 0:
		inst.Mode = model.ModeRegister
		inst.Src = rng.Intn(params.RegisterCount)
	case 1:
		inst.Mode = model.ModeConstant
		inst.Const = params.ConstMin + rng.Float64()*(params.ConstMax-params.ConstMin)
	default:
		inst.Mode = model.ModeInput
		inst.Src = rng.Intn(params.InputArity)
	}
	return inst
}

// Validate checks every operand reference against the program's declared
// register file and input arity. Violations wrap ErrInvalidOperand with the
// offending position.
func Validate(p model.Program) error {
	if p.RegisterCount <= 0 {
		return fmt.Errorf("program %s: register count must be > 0", p.ID)
	}
	if p.InputArity < 0 {
		return fmt.Errorf("program %s: input arity must be >= 0", p.ID)
	}
	if p.ActionCount <= 0 || p.ActionCount > p.RegisterCount {
		return fmt.Errorf("program %s: action count must be in [1, register count]", p.ID)
	}

	for i, inst := range p.Instructions {
		if !validOp(inst.Op) {
			return fmt.Errorf("program %s instruction %d: unknown op %q", p.ID, i, inst.Op)
		}
		if inst.Dst < 0 || inst.Dst >= p.RegisterCount {
			return fmt.Errorf("program %s instruction %d: dst register %d out of [0,%d): %w",
				p.ID, i, inst.Dst, p.RegisterCount, ErrInvalidOperand)
		}
		switch inst.Mode {
		case model.ModeRegister:
			if inst.Src < 0 || inst.Src >= p.RegisterCount {
				return fmt.Errorf("program %s instruction %d: src register %d out of [0,%d): %w",
					p.ID, i, inst.Src, p.RegisterCount, ErrInvalidOperand)
			}
		case model.ModeInput:
			if inst.Src < 0 || inst.Src >= p.InputArity {
				return fmt.Errorf("program %s instruction %d: input %d out of [0,%d): %w",
					p.ID, i, inst.Src, p.InputArity, ErrInvalidOperand)
			}
		case model.ModeConstant:
			// Constants carry their value inline.
		default:
			return fmt.Errorf("program %s instruction %d: unknown operand mode %q", p.ID, i, inst.Mode)
		}
	}
	return nil
}

// Clone deep-copies a program under a new ID. Variation operators build on
// clones so a program referenced elsewhere is never mutated.
func Clone(p model.Program, newID string) model.Program {
	copied := p
	copied.ID = newID
	copied.Instructions = append([]model.Instruction(nil), p.Instructions...)
	return copied
}

func validOp(name string) bool {
	for _, op := range opNames {
		if op == name {
			return true
		}
	}
	return false
}
