// Package lgp is the embedding API: everything the ctl binary does goes
// through a Client, so other programs can drive evolution runs directly.
package lgp

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"lgp/internal/evo"
	"lgp/internal/model"
	"lgp/internal/program"
	"lgp/internal/scape"
	"lgp/internal/stats"
	"lgp/internal/storage"
	"lgp/internal/vm"
)

const (
	defaultBenchmarksDir = "benchmarks"
	defaultExportsDir    = "exports"
	defaultDBPath        = "lgp.db"

	topProgramCount = 5
)

type Options struct {
	StoreKind     string
	DBPath        string
	BenchmarksDir string
	ExportsDir    string
}

type Client struct {
	store storage.Store

	benchmarksDir string
	exportsDir    string
}

// RunRequest configures one evolution run. Zero fields fall back to
// defaults; Environment decides the program shape.
type RunRequest struct {
	Environment     string
	Population      int
	Generations     int
	Seed            int64
	Workers         int
	Selection       string
	EliteCount      int
	MutationRate    float64
	CrossoverRate   float64
	MaxInstructions int
	RegisterCount   int
	Episodes        int
	MaxEpisodeSteps int
	Reduce          string
	FitnessGoal     float64
	FitnessGoalSet  bool
	StagnationLimit int
	Budget          time.Duration
}

type RunSummary struct {
	RunID             string
	ArtifactsDir      string
	BestByGeneration  []float64
	FinalBestFitness  float64
	BestProgramID     string
	Generations       int
	TerminationReason string
}

type RunsRequest struct {
	Limit int
}

type RunItem struct {
	RunID             string
	CreatedAtUTC      string
	Environment       string
	Seed              int64
	Population        int
	Generations       int
	FinalBestFitness  float64
	TerminationReason string
}

type FitnessHistoryRequest struct {
	RunID  string
	Latest bool
	Limit  int
}

type DiagnosticsRequest struct {
	RunID  string
	Latest bool
	Limit  int
}

type TopProgramsRequest struct {
	RunID  string
	Latest bool
	Limit  int
}

type BestProgramRequest struct {
	RunID  string
	Latest bool
}

type ExportRequest struct {
	RunID  string
	Latest bool
	OutDir string
}

type ExportSummary struct {
	RunID     string
	Directory string
}

type EnvItem struct {
	Name            string
	ObservationSize int
	ActionCount     int
	BestFitness     *float64
}

func New(opts Options) (*Client, error) {
	storeKind := opts.StoreKind
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	benchmarksDir := opts.BenchmarksDir
	if benchmarksDir == "" {
		benchmarksDir = defaultBenchmarksDir
	}
	exportsDir := opts.ExportsDir
	if exportsDir == "" {
		exportsDir = defaultExportsDir
	}

	store, err := storage.NewStore(storeKind, dbPath)
	if err != nil {
		return nil, err
	}

	return &Client{
		store:         store,
		benchmarksDir: benchmarksDir,
		exportsDir:    exportsDir,
	}, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

func (c *Client) Init(ctx context.Context) error {
	return c.store.Init(ctx)
}

func (c *Client) Run(ctx context.Context, req RunRequest) (RunSummary, error) {
	if req.Environment == "" {
		req.Environment = "cart-pole-lgp"
	}
	if req.Population <= 0 {
		req.Population = 50
	}
	if req.Generations <= 0 {
		req.Generations = 100
	}
	if req.Workers <= 0 {
		req.Workers = 4
	}
	if req.Selection == "" {
		req.Selection = "tournament"
	}
	if req.EliteCount <= 0 {
		req.EliteCount = req.Population / 5
		if req.EliteCount < 1 {
			req.EliteCount = 1
		}
	}
	if req.MutationRate <= 0 {
		req.MutationRate = 0.1
	}
	if req.CrossoverRate <= 0 {
		req.CrossoverRate = 0.5
	}
	if req.MaxInstructions <= 0 {
		req.MaxInstructions = 24
	}
	if req.RegisterCount <= 0 {
		req.RegisterCount = 8
	}
	if req.Episodes <= 0 {
		req.Episodes = 5
	}
	if req.Reduce == "" {
		req.Reduce = evo.ReduceMean
	}

	env, err := scape.FromName(req.Environment)
	if err != nil {
		return RunSummary{}, err
	}
	selector, err := evo.SelectorFromName(req.Selection)
	if err != nil {
		return RunSummary{}, err
	}

	loop, err := evo.NewLoop(evo.LoopConfig{
		Evaluator: evo.Evaluator{
			EnvName:         req.Environment,
			Episodes:        req.Episodes,
			MaxEpisodeSteps: req.MaxEpisodeSteps,
			Reduce:          req.Reduce,
			Interp:          vm.Interpreter{},
		},
		Selector: selector,
		Params: program.Params{
			MaxInstructions: req.MaxInstructions,
			RegisterCount:   req.RegisterCount,
			InputArity:      env.ObservationSize(),
			ActionCount:     env.ActionCount(),
			ConstMin:        -1,
			ConstMax:        1,
		},
		PopulationSize:  req.Population,
		EliteCount:      req.EliteCount,
		MaxGenerations:  req.Generations,
		MutationRate:    req.MutationRate,
		CrossoverRate:   req.CrossoverRate,
		FitnessGoal:     req.FitnessGoal,
		FitnessGoalSet:  req.FitnessGoalSet,
		StagnationLimit: req.StagnationLimit,
		Budget:          req.Budget,
		Workers:         req.Workers,
		Seed:            req.Seed,
	})
	if err != nil {
		return RunSummary{}, err
	}

	now := time.Now().UTC()
	runID := uuid.NewString()

	result, err := loop.Run(ctx)
	if err != nil {
		return RunSummary{}, err
	}

	if err := c.persistRun(ctx, runID, req, result); err != nil {
		return RunSummary{}, err
	}

	runDir, err := c.writeArtifacts(runID, req, result, now)
	if err != nil {
		return RunSummary{}, err
	}

	return RunSummary{
		RunID:             runID,
		ArtifactsDir:      filepath.Clean(runDir),
		BestByGeneration:  append([]float64(nil), result.FitnessHistory...),
		FinalBestFitness:  result.Best.Fitness,
		BestProgramID:     result.Best.Program.ID,
		Generations:       result.Generations,
		TerminationReason: result.Reason,
	}, nil
}

func (c *Client) persistRun(ctx context.Context, runID string, req RunRequest, result evo.RunResult) error {
	top := topRecords(result)

	programIDs := make([]string, 0, len(result.FinalPopulation))
	for _, ind := range result.FinalPopulation {
		p := ind.Program
		p.VersionedRecord = storage.Stamp()
		if err := c.store.SaveProgram(ctx, p); err != nil {
			return err
		}
		programIDs = append(programIDs, p.ID)
	}

	if err := c.store.SavePopulation(ctx, model.Population{
		VersionedRecord: storage.Stamp(),
		ID:              runID,
		ProgramIDs:      programIDs,
		Generation:      result.Generations,
	}); err != nil {
		return err
	}
	if err := c.store.SaveFitnessHistory(ctx, runID, result.FitnessHistory); err != nil {
		return err
	}
	if err := c.store.SaveGenerationDiagnostics(ctx, runID, result.Diagnostics); err != nil {
		return err
	}
	if err := c.store.SaveTopPrograms(ctx, runID, top); err != nil {
		return err
	}

	// Track the best fitness ever seen per environment.
	summary, ok, err := c.store.GetEnvSummary(ctx, req.Environment)
	if err != nil {
		return err
	}
	if !ok || result.Best.Fitness > summary.BestFitness {
		return c.store.SaveEnvSummary(ctx, model.EnvSummary{
			VersionedRecord: storage.Stamp(),
			Name:            req.Environment,
			BestFitness:     result.Best.Fitness,
		})
	}
	return nil
}

func (c *Client) writeArtifacts(runID string, req RunRequest, result evo.RunResult, now time.Time) (string, error) {
	best := result.Best.Program
	best.VersionedRecord = storage.Stamp()

	runDir, err := stats.WriteRunArtifacts(c.benchmarksDir, stats.RunArtifacts{
		Config: stats.RunConfig{
			RunID:           runID,
			Environment:     req.Environment,
			PopulationSize:  req.Population,
			Generations:     req.Generations,
			EliteCount:      req.EliteCount,
			Selection:       req.Selection,
			MutationRate:    req.MutationRate,
			CrossoverRate:   req.CrossoverRate,
			MaxInstructions: req.MaxInstructions,
			RegisterCount:   req.RegisterCount,
			Episodes:        req.Episodes,
			MaxEpisodeSteps: req.MaxEpisodeSteps,
			Reduce:          req.Reduce,
			FitnessGoal:     req.FitnessGoal,
			FitnessGoalSet:  req.FitnessGoalSet,
			StagnationLimit: req.StagnationLimit,
			BudgetMS:        req.Budget.Milliseconds(),
			Seed:            req.Seed,
			Workers:         req.Workers,
		},
		BestByGeneration:      result.FitnessHistory,
		GenerationDiagnostics: result.Diagnostics,
		FinalBestFitness:      result.Best.Fitness,
		TerminationReason:     result.Reason,
		TopPrograms:           topRecords(result),
		BestProgram:           best,
	})
	if err != nil {
		return "", err
	}

	if err := stats.AppendRunIndex(c.benchmarksDir, stats.RunIndexEntry{
		RunID:             runID,
		Environment:       req.Environment,
		PopulationSize:    req.Population,
		Generations:       result.Generations,
		Seed:              req.Seed,
		Workers:           req.Workers,
		EliteCount:        req.EliteCount,
		FinalBestFitness:  result.Best.Fitness,
		TerminationReason: result.Reason,
		CreatedAtUTC:      now.Format(time.RFC3339Nano),
	}); err != nil {
		return "", err
	}
	return runDir, nil
}

func topRecords(result evo.RunResult) []model.TopProgramRecord {
	count := topProgramCount
	if count > len(result.FinalPopulation) {
		count = len(result.FinalPopulation)
	}
	top := make([]model.TopProgramRecord, 0, count)
	for i := 0; i < count; i++ {
		p := result.FinalPopulation[i].Program
		p.VersionedRecord = storage.Stamp()
		top = append(top, model.TopProgramRecord{
			VersionedRecord: storage.Stamp(),
			Rank:            i + 1,
			Fitness:         result.FinalPopulation[i].Fitness,
			Program:         p,
		})
	}
	return top
}

func (c *Client) Runs(_ context.Context, req RunsRequest) ([]RunItem, error) {
	if req.Limit <= 0 {
		req.Limit = 20
	}

	entries, err := stats.ListRunIndex(c.benchmarksDir)
	if err != nil {
		return nil, err
	}
	if len(entries) > req.Limit {
		entries = entries[:req.Limit]
	}

	out := make([]RunItem, 0, len(entries))
	for _, e := range entries {
		out = append(out, RunItem{
			RunID:             e.RunID,
			CreatedAtUTC:      e.CreatedAtUTC,
			Environment:       e.Environment,
			Seed:              e.Seed,
			Population:        e.PopulationSize,
			Generations:       e.Generations,
			FinalBestFitness:  e.FinalBestFitness,
			TerminationReason: e.TerminationReason,
		})
	}
	return out, nil
}

func (c *Client) FitnessHistory(ctx context.Context, req FitnessHistoryRequest) ([]float64, error) {
	runID, err := c.resolveRunID(req.RunID, req.Latest)
	if err != nil {
		return nil, err
	}
	if req.Limit < 0 {
		return nil, errors.New("limit must be >= 0")
	}

	history, ok, err := c.store.GetFitnessHistory(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("fitness history not found for run id: %s", runID)
	}
	if req.Limit > 0 && len(history) > req.Limit {
		history = history[:req.Limit]
	}
	return append([]float64(nil), history...), nil
}

func (c *Client) Diagnostics(ctx context.Context, req DiagnosticsRequest) ([]model.GenerationDiagnostics, error) {
	runID, err := c.resolveRunID(req.RunID, req.Latest)
	if err != nil {
		return nil, err
	}
	if req.Limit < 0 {
		return nil, errors.New("limit must be >= 0")
	}

	diagnostics, ok, err := c.store.GetGenerationDiagnostics(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("diagnostics not found for run id: %s", runID)
	}
	if req.Limit > 0 && len(diagnostics) > req.Limit {
		diagnostics = diagnostics[:req.Limit]
	}
	out := make([]model.GenerationDiagnostics, len(diagnostics))
	copy(out, diagnostics)
	return out, nil
}

func (c *Client) TopPrograms(ctx context.Context, req TopProgramsRequest) ([]model.TopProgramRecord, error) {
	runID, err := c.resolveRunID(req.RunID, req.Latest)
	if err != nil {
		return nil, err
	}
	if req.Limit < 0 {
		return nil, errors.New("limit must be >= 0")
	}

	top, ok, err := c.store.GetTopPrograms(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("top programs not found for run id: %s", runID)
	}
	if req.Limit > 0 && len(top) > req.Limit {
		top = top[:req.Limit]
	}
	return top, nil
}

// BestProgram loads a run's champion from its canonical artifact blob.
func (c *Client) BestProgram(_ context.Context, req BestProgramRequest) (model.Program, error) {
	runID, err := c.resolveRunID(req.RunID, req.Latest)
	if err != nil {
		return model.Program{}, err
	}
	p, ok, err := stats.ReadBestProgram(c.benchmarksDir, runID)
	if err != nil {
		return model.Program{}, err
	}
	if !ok {
		return model.Program{}, fmt.Errorf("best program not found for run id: %s", runID)
	}
	return p, nil
}

func (c *Client) Export(_ context.Context, req ExportRequest) (ExportSummary, error) {
	runID, err := c.resolveRunID(req.RunID, req.Latest)
	if err != nil {
		return ExportSummary{}, err
	}
	if req.OutDir == "" {
		req.OutDir = c.exportsDir
	}

	exportedDir, err := stats.ExportRunArtifacts(c.benchmarksDir, runID, req.OutDir)
	if err != nil {
		return ExportSummary{}, err
	}
	return ExportSummary{RunID: runID, Directory: filepath.Clean(exportedDir)}, nil
}

// Envs lists registered environments with their stored best fitness, if any.
func (c *Client) Envs(ctx context.Context) ([]EnvItem, error) {
	names := scape.Names()
	out := make([]EnvItem, 0, len(names))
	for _, name := range names {
		env, err := scape.FromName(name)
		if err != nil {
			return nil, err
		}
		item := EnvItem{
			Name:            name,
			ObservationSize: env.ObservationSize(),
			ActionCount:     env.ActionCount(),
		}
		summary, ok, err := c.store.GetEnvSummary(ctx, name)
		if err != nil {
			return nil, err
		}
		if ok {
			best := summary.BestFitness
			item.BestFitness = &best
		}
		out = append(out, item)
	}
	return out, nil
}

func (c *Client) resolveRunID(runID string, latest bool) (string, error) {
	if runID != "" && latest {
		return "", errors.New("use either run id or latest")
	}
	if latest {
		entries, err := stats.ListRunIndex(c.benchmarksDir)
		if err != nil {
			return "", err
		}
		if len(entries) == 0 {
			return "", errors.New("no runs available")
		}
		return entries[0].RunID, nil
	}
	if runID == "" {
		return "", errors.New("run id or latest is required")
	}
	return runID, nil
}
