package model

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// Operand mode tags. The closed set is dispatched exhaustively by the
// interpreter; anything else is a representation error.
const (
	ModeRegister = "reg"
	ModeInput    = "inp"
	ModeConstant = "const"
)

// Operation names. Branch ops conditionally skip the next instruction.
const (
	OpAdd  = "add"
	OpSub  = "sub"
	OpMul  = "mul"
	OpDiv  = "div"
	OpIfGT = "ifgt"
	OpIfLT = "iflt"
	OpNop  = "nop"
)

// Instruction is one step of a linear program: dst = dst <op> operand, where
// the operand is a register, an environment input, or an inline constant
// depending on Mode. Instructions are immutable once part of a Program.
type Instruction struct {
	Op    string  `json:"op"`
	Dst   int     `json:"dst"`
	Src   int     `json:"src"`
	Mode  string  `json:"mode"`
	Const float64 `json:"const,omitempty"`
}

// Program is an ordered instruction sequence plus the shape of its register
// file. Registers [0, ActionCount) double as action registers: the evaluator
// argmaxes them to pick a discrete action.
type Program struct {
	VersionedRecord
	ID            string        `json:"id"`
	Instructions  []Instruction `json:"instructions"`
	RegisterCount int           `json:"register_count"`
	InputArity    int           `json:"input_arity"`
	ActionCount   int           `json:"action_count"`
}

type Population struct {
	VersionedRecord
	ID         string   `json:"id"`
	ProgramIDs []string `json:"program_ids"`
	Generation int      `json:"generation"`
}

type EnvSummary struct {
	VersionedRecord
	Name        string  `json:"name"`
	Description string  `json:"description"`
	BestFitness float64 `json:"best_fitness"`
}

type GenerationDiagnostics struct {
	Generation     int     `json:"generation"`
	BestFitness    float64 `json:"best_fitness"`
	MeanFitness    float64 `json:"mean_fitness"`
	MinFitness     float64 `json:"min_fitness"`
	MeanLength     float64 `json:"mean_length"`
	BestLength     int     `json:"best_length"`
	FailedEpisodes int     `json:"failed_episodes"`
}

type TopProgramRecord struct {
	VersionedRecord
	Rank    int     `json:"rank"`
	Fitness float64 `json:"fitness"`
	Program Program `json:"program"`
}
