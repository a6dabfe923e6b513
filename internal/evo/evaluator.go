package evo

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"lgp/internal/model"
	"lgp/internal/scape"
	"lgp/internal/vm"
)

// Reduction names for folding per-episode returns into one fitness value.
const (
	ReduceMean   = "mean"
	ReduceSum    = "sum"
	ReduceMedian = "median"
)

// Score is the outcome of evaluating one program.
type Score struct {
	Fitness        float64
	FailedEpisodes int
}

// Evaluator scores programs by running them as controllers over full
// episodes of an environment. A program that crashes its environment is
// contained: it receives SentinelFitness rather than failing the run.
//
// Evaluators hold no mutable state and are safe to share across workers;
// each Evaluate call constructs its own environment instance.
type Evaluator struct {
	EnvName         string
	Episodes        int
	MaxEpisodeSteps int
	Reduce          string
	Interp          vm.Interpreter

	// NewEnv overrides environment construction. When nil, EnvName is
	// resolved through the registry.
	NewEnv func() (scape.Environment, error)

	// PersistentRegisters carries the register file across steps within an
	// episode, giving programs a scratch memory. Registers always clear
	// between episodes.
	PersistentRegisters bool
}

func (e Evaluator) check() error {
	if e.EnvName == "" && e.NewEnv == nil {
		return fmt.Errorf("environment name is required")
	}
	if e.NewEnv == nil {
		if _, err := scape.FromName(e.EnvName); err != nil {
			return err
		}
	}
	if e.Episodes <= 0 {
		return fmt.Errorf("episodes must be > 0")
	}
	switch e.Reduce {
	case "", ReduceMean, ReduceSum, ReduceMedian:
	default:
		return fmt.Errorf("unsupported reduction: %s", e.Reduce)
	}
	return nil
}

// Evaluate runs every episode for p and reduces the returns. Episode start
// states derive from seed, so the same program and seed always score
// identically. The returned error covers only fatal conditions: a bad
// evaluator, a malformed program, or context cancellation.
func (e Evaluator) Evaluate(ctx context.Context, p model.Program, seed int64) (Score, error) {
	if err := e.check(); err != nil {
		return Score{}, err
	}

	newEnv := e.NewEnv
	if newEnv == nil {
		newEnv = func() (scape.Environment, error) { return scape.FromName(e.EnvName) }
	}
	env, err := newEnv()
	if err != nil {
		return Score{}, err
	}
	if p.InputArity != env.ObservationSize() {
		return Score{}, fmt.Errorf("program %s reads %d inputs, environment %s emits %d",
			p.ID, p.InputArity, env.Name(), env.ObservationSize())
	}

	maxSteps := e.MaxEpisodeSteps
	if maxSteps <= 0 {
		maxSteps = env.MaxEpisodeSteps()
	}

	returns := make([]float64, 0, e.Episodes)
	for ep := 0; ep < e.Episodes; ep++ {
		if err := ctx.Err(); err != nil {
			return Score{}, err
		}

		ret, err := e.runEpisode(env, p, seed+int64(ep), maxSteps)
		if err != nil {
			if errors.Is(err, errEnvFailure) {
				return Score{Fitness: SentinelFitness, FailedEpisodes: 1}, nil
			}
			return Score{}, err
		}
		returns = append(returns, ret)
	}

	return Score{Fitness: reduce(e.Reduce, returns)}, nil
}

// errEnvFailure marks episode errors raised by the environment rather than
// the program's own shape. Those are contained as SentinelFitness instead of
// aborting the whole run.
var errEnvFailure = errors.New("environment failure")

func (e Evaluator) runEpisode(env scape.Environment, p model.Program, seed int64, maxSteps int) (float64, error) {
	obs := env.Reset(seed)
	total := 0.0
	var regs []float64

	for step := 0; step < maxSteps; step++ {
		out, _, err := e.Interp.Run(p, obs, regs)
		if err != nil {
			return 0, err
		}
		if e.PersistentRegisters {
			regs = out
		}

		action := vm.Argmax(out, p.ActionCount)
		next, reward, done, err := env.Step(action)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", errEnvFailure, err)
		}
		total += reward
		if done {
			break
		}
		obs = next
	}
	return total, nil
}

func reduce(kind string, returns []float64) float64 {
	switch kind {
	case ReduceSum:
		total := 0.0
		for _, r := range returns {
			total += r
		}
		return total
	case ReduceMedian:
		sorted := append([]float64(nil), returns...)
		sort.Float64s(sorted)
		mid := len(sorted) / 2
		if len(sorted)%2 == 0 {
			return (sorted[mid-1] + sorted[mid]) / 2
		}
		return sorted[mid]
	default:
		total := 0.0
		for _, r := range returns {
			total += r
		}
		return total / float64(len(returns))
	}
}
