// Package evo drives linear program evolution: a generational loop of
// parallel evaluation, rank-based selection, and variation, with elites
// carried over unchanged.
package evo

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"lgp/internal/model"
	"lgp/internal/program"
)

// State names the phases of the evolutionary loop.
type State string

const (
	StateInitializing State = "initializing"
	StateEvaluating   State = "evaluating"
	StateSelecting    State = "selecting"
	StateVarying      State = "varying"
	StateTerminated   State = "terminated"
)

// Termination reasons reported in RunResult.Reason.
const (
	ReasonGenerations = "generations"
	ReasonFitnessGoal = "fitness_goal"
	ReasonStagnation  = "stagnation"
	ReasonBudget      = "budget"
)

// LoopConfig describes one evolution run end to end.
type LoopConfig struct {
	Evaluator Evaluator
	Selector  Selector
	Params    program.Params

	PopulationSize int
	EliteCount     int
	MaxGenerations int

	MutationRate  float64
	CrossoverRate float64

	// FitnessGoal terminates the run once the best fitness reaches it.
	// Zero is a valid goal, so FitnessGoalSet gates the check.
	FitnessGoal    float64
	FitnessGoalSet bool

	// StagnationLimit terminates after this many consecutive generations
	// without a new global best. Zero disables the check.
	StagnationLimit int

	// Budget bounds wall-clock time. Checked at generation boundaries, so
	// a generation in flight always finishes. Zero disables the check.
	Budget time.Duration

	Workers int
	Seed    int64
}

func (cfg *LoopConfig) check() error {
	if err := cfg.Evaluator.check(); err != nil {
		return fmt.Errorf("%w: evaluator: %v", ErrInvalidConfig, err)
	}
	if cfg.PopulationSize <= 0 {
		return fmt.Errorf("%w: population size must be > 0", ErrInvalidConfig)
	}
	if cfg.EliteCount < 0 || cfg.EliteCount > cfg.PopulationSize {
		return fmt.Errorf("%w: elite count must be in [0, population size]", ErrInvalidConfig)
	}
	if cfg.MaxGenerations <= 0 {
		return fmt.Errorf("%w: max generations must be > 0", ErrInvalidConfig)
	}
	if cfg.MutationRate < 0 || cfg.MutationRate > 1 {
		return fmt.Errorf("%w: mutation rate must be in [0,1]", ErrInvalidConfig)
	}
	if cfg.CrossoverRate < 0 || cfg.CrossoverRate > 1 {
		return fmt.Errorf("%w: crossover rate must be in [0,1]", ErrInvalidConfig)
	}
	if cfg.StagnationLimit < 0 {
		return fmt.Errorf("%w: stagnation limit must be >= 0", ErrInvalidConfig)
	}
	if cfg.Budget < 0 {
		return fmt.Errorf("%w: budget must be >= 0", ErrInvalidConfig)
	}
	if cfg.Selector == nil {
		cfg.Selector = TournamentSelector{}
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return nil
}

// RunResult is everything a finished run reports.
type RunResult struct {
	Best            Individual
	BestGeneration  int
	Generations     int
	Reason          string
	FitnessHistory  []float64
	Diagnostics     []model.GenerationDiagnostics
	FinalPopulation []Individual
}

// Loop runs the evolutionary state machine. A Loop is single-use: construct,
// Run once, read the result.
type Loop struct {
	cfg   LoopConfig
	rng   *rand.Rand
	state State
}

func NewLoop(cfg LoopConfig) (*Loop, error) {
	if err := cfg.check(); err != nil {
		return nil, err
	}
	return &Loop{
		cfg:   cfg,
		rng:   rand.New(rand.NewSource(cfg.Seed)),
		state: StateInitializing,
	}, nil
}

func (l *Loop) State() State {
	return l.state
}

// Run executes the loop to termination. With the same config and seed the
// run is fully reproducible, including under parallel evaluation: results
// are gathered by population slot and re-sorted canonically, so worker
// scheduling never leaks into selection.
func (l *Loop) Run(ctx context.Context) (RunResult, error) {
	start := time.Now()

	population, err := l.initialPopulation()
	if err != nil {
		return RunResult{}, err
	}

	result := RunResult{
		FitnessHistory: make([]float64, 0, l.cfg.MaxGenerations),
		Diagnostics:    make([]model.GenerationDiagnostics, 0, l.cfg.MaxGenerations),
		BestGeneration: -1,
	}
	var best Individual
	haveBest := false
	sinceImproved := 0

	for gen := 0; gen < l.cfg.MaxGenerations; gen++ {
		if err := ctx.Err(); err != nil {
			l.state = StateTerminated
			return RunResult{}, err
		}

		l.state = StateEvaluating
		ranked, err := l.evaluatePopulation(ctx, population, gen)
		if err != nil {
			l.state = StateTerminated
			return RunResult{}, err
		}
		SortRanked(ranked)

		if !haveBest || improves(ranked[0], best) {
			best = ranked[0]
			best.Program = program.Clone(ranked[0].Program, ranked[0].Program.ID)
			result.BestGeneration = gen
			haveBest = true
			sinceImproved = 0
		} else {
			sinceImproved++
		}

		result.FitnessHistory = append(result.FitnessHistory, ranked[0].Fitness)
		result.Diagnostics = append(result.Diagnostics, summarizeGeneration(ranked, gen))
		result.FinalPopulation = ranked
		result.Generations = gen + 1

		if reason := l.terminationReason(gen, best, sinceImproved, start); reason != "" {
			result.Reason = reason
			break
		}

		l.state = StateSelecting
		population, err = l.nextGeneration(ranked, gen)
		if err != nil {
			l.state = StateTerminated
			return RunResult{}, err
		}
	}

	l.state = StateTerminated
	if result.Reason == "" {
		result.Reason = ReasonGenerations
	}
	result.Best = best
	return result, nil
}

// improves reports whether candidate beats the incumbent global best. Ties
// on both fitness and length keep the incumbent, so the first program to
// reach a score stays the best.
func improves(candidate, incumbent Individual) bool {
	if candidate.Fitness != incumbent.Fitness {
		return candidate.Fitness > incumbent.Fitness
	}
	return len(candidate.Program.Instructions) < len(incumbent.Program.Instructions)
}

func (l *Loop) terminationReason(gen int, best Individual, sinceImproved int, start time.Time) string {
	if l.cfg.FitnessGoalSet && best.Fitness >= l.cfg.FitnessGoal {
		return ReasonFitnessGoal
	}
	if l.cfg.StagnationLimit > 0 && sinceImproved >= l.cfg.StagnationLimit {
		return ReasonStagnation
	}
	if l.cfg.Budget > 0 && time.Since(start) >= l.cfg.Budget {
		return ReasonBudget
	}
	if gen+1 >= l.cfg.MaxGenerations {
		return ReasonGenerations
	}
	return ""
}

func (l *Loop) initialPopulation() ([]model.Program, error) {
	population := make([]model.Program, 0, l.cfg.PopulationSize)
	for i := 0; i < l.cfg.PopulationSize; i++ {
		p, err := program.Generate(l.rng, fmt.Sprintf("g0-p%d", i), l.cfg.Params)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
		population = append(population, p)
	}
	return population, nil
}

func (l *Loop) evaluatePopulation(ctx context.Context, population []model.Program, generation int) ([]Individual, error) {
	type job struct {
		idx  int
		prog model.Program
	}
	type result struct {
		idx   int
		score Score
		err   error
	}

	jobs := make(chan job)
	results := make(chan result, len(population))

	workerCount := l.cfg.Workers
	if workerCount > len(population) {
		workerCount = len(population)
	}

	var wg sync.WaitGroup
	wg.Add(workerCount)
	for w := 0; w < workerCount; w++ {
		go func() {
			defer wg.Done()
			for j := range jobs {
				if err := ctx.Err(); err != nil {
					results <- result{idx: j.idx, err: err}
					continue
				}
				seed := episodeSeed(l.cfg.Seed, generation, j.idx)
				score, err := l.cfg.Evaluator.Evaluate(ctx, j.prog, seed)
				results <- result{idx: j.idx, score: score, err: err}
			}
		}()
	}

	for i := range population {
		jobs <- job{idx: i, prog: population[i]}
	}
	close(jobs)

	wg.Wait()
	close(results)

	ranked := make([]Individual, len(population))
	for res := range results {
		if res.err != nil {
			return nil, res.err
		}
		ranked[res.idx] = Individual{
			Program:        population[res.idx],
			Fitness:        res.score.Fitness,
			Evaluated:      true,
			FailedEpisodes: res.score.FailedEpisodes,
			Seq:            res.idx,
		}
	}
	return ranked, nil
}

// episodeSeed derives a per-slot seed so evaluation stays deterministic no
// matter which worker picks up the job.
func episodeSeed(base int64, generation, idx int) int64 {
	return base + int64(generation)*1_000_003 + int64(idx)*7919
}

// nextGeneration builds the replacement population: elites cloned verbatim,
// the rest bred by crossover and point mutation.
func (l *Loop) nextGeneration(ranked []Individual, generation int) ([]model.Program, error) {
	next := make([]model.Program, 0, l.cfg.PopulationSize)
	for i := 0; i < l.cfg.EliteCount; i++ {
		next = append(next, program.Clone(ranked[i].Program, ranked[i].Program.ID))
	}

	l.state = StateVarying
	mutator := Mutator{Rate: l.cfg.MutationRate, Params: l.cfg.Params}
	childGen := generation + 1

	for len(next) < l.cfg.PopulationSize {
		parentA, err := l.cfg.Selector.PickParent(l.rng, ranked, l.eliteOrMin())
		if err != nil {
			return nil, err
		}

		var offspring []model.Program
		if l.rng.Float64() < l.cfg.CrossoverRate {
			parentB, err := l.cfg.Selector.PickParent(l.rng, ranked, l.eliteOrMin())
			if err != nil {
				return nil, err
			}
			idA := fmt.Sprintf("g%d-p%d", childGen, len(next))
			idB := fmt.Sprintf("g%d-p%d", childGen, len(next)+1)
			childA, childB, err := Crossover(l.rng, parentA, parentB, l.cfg.Params.MaxInstructions, idA, idB)
			if err != nil {
				return nil, err
			}
			offspring = []model.Program{childA, childB}
		} else {
			offspring = []model.Program{program.Clone(parentA, fmt.Sprintf("g%d-p%d", childGen, len(next)))}
		}

		for _, child := range offspring {
			if len(next) >= l.cfg.PopulationSize {
				break
			}
			mutated, err := mutator.Apply(l.rng, child, child.ID)
			if err != nil {
				return nil, err
			}
			if err := program.Validate(mutated); err != nil {
				return nil, err
			}
			next = append(next, mutated)
		}
	}
	return next, nil
}

// eliteOrMin keeps selectors working when elitism is disabled.
func (l *Loop) eliteOrMin() int {
	if l.cfg.EliteCount > 0 {
		return l.cfg.EliteCount
	}
	return 1
}

func summarizeGeneration(ranked []Individual, generation int) model.GenerationDiagnostics {
	if len(ranked) == 0 {
		return model.GenerationDiagnostics{Generation: generation}
	}

	total := 0.0
	totalLength := 0
	minFitness := ranked[0].Fitness
	failed := 0
	for _, ind := range ranked {
		total += ind.Fitness
		totalLength += len(ind.Program.Instructions)
		if ind.Fitness < minFitness {
			minFitness = ind.Fitness
		}
		failed += ind.FailedEpisodes
	}

	return model.GenerationDiagnostics{
		Generation:     generation,
		BestFitness:    ranked[0].Fitness,
		MeanFitness:    total / float64(len(ranked)),
		MinFitness:     minFitness,
		MeanLength:     float64(totalLength) / float64(len(ranked)),
		BestLength:     len(ranked[0].Program.Instructions),
		FailedEpisodes: failed,
	}
}
