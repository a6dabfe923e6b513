package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"lgp/internal/model"
	"lgp/internal/storage"
	lgpapi "lgp/pkg/lgp"
)

const (
	benchmarksDir = "benchmarks"
	exportsDir    = "exports"
	defaultDBPath = "lgp.db"
)

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "init":
		return runInit(ctx, args[1:])
	case "reset":
		return runReset(ctx, args[1:])
	case "run":
		return runRun(ctx, args[1:])
	case "runs":
		return runRuns(ctx, args[1:])
	case "fitness":
		return runFitness(ctx, args[1:])
	case "diagnostics":
		return runDiagnostics(ctx, args[1:])
	case "top":
		return runTop(ctx, args[1:])
	case "best":
		return runBest(ctx, args[1:])
	case "export":
		return runExport(ctx, args[1:])
	case "envs":
		return runEnvs(ctx, args[1:])
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

func usageError(msg string) error {
	return fmt.Errorf("%s\nusage: lgpctl <init|reset|run|runs|fitness|diagnostics|top|best|export|envs> [flags]", msg)
}

func newClient(storeKind, dbPath string) (*lgpapi.Client, error) {
	return lgpapi.New(lgpapi.Options{
		StoreKind:     storeKind,
		DBPath:        dbPath,
		BenchmarksDir: benchmarksDir,
		ExportsDir:    exportsDir,
	})
}

func runInit(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	storeKind := fs.String("store", "", "store backend: memory|sqlite")
	dbPath := fs.String("db-path", defaultDBPath, "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	store, err := storage.NewStore(*storeKind, *dbPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = storage.CloseIfSupported(store)
	}()

	if err := store.Init(ctx); err != nil {
		return err
	}

	kind := *storeKind
	if kind == "" {
		kind = "memory"
	}
	fmt.Printf("initialized store=%s\n", kind)
	return nil
}

func runReset(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("reset", flag.ContinueOnError)
	storeKind := fs.String("store", "", "store backend: memory|sqlite")
	dbPath := fs.String("db-path", defaultDBPath, "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	store, err := storage.NewStore(*storeKind, *dbPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = storage.CloseIfSupported(store)
	}()

	if err := store.Init(ctx); err != nil {
		return err
	}
	if err := store.Reset(ctx); err != nil {
		return err
	}

	kind := *storeKind
	if kind == "" {
		kind = "memory"
	}
	fmt.Printf("reset store=%s\n", kind)
	return nil
}

func runRun(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	configPath := fs.String("config", "", "optional run config file, JSON or YAML")
	envName := fs.String("env", "cart-pole-lgp", "environment name")
	population := fs.Int("pop", 50, "population size")
	generations := fs.Int("gens", 100, "generation limit")
	seed := fs.Int64("seed", 1, "rng seed")
	workers := fs.Int("workers", 4, "evaluation worker count")
	selection := fs.String("selection", "tournament", "parent selection strategy: tournament|rank|elite")
	eliteCount := fs.Int("elites", 0, "elite count carried verbatim each generation (0 uses default)")
	mutationRate := fs.Float64("mutation-rate", 0.1, "per-instruction mutation probability")
	crossoverRate := fs.Float64("crossover-rate", 0.5, "per-pair crossover probability")
	maxInstructions := fs.Int("max-instructions", 24, "program length cap")
	registerCount := fs.Int("registers", 8, "register file size")
	episodes := fs.Int("episodes", 5, "episodes per evaluation")
	maxEpisodeSteps := fs.Int("max-episode-steps", 0, "episode step cap (0 uses environment default)")
	reduce := fs.String("reduce", "mean", "episode reduction: mean|sum|median")
	fitnessGoal := fs.Float64("fitness-goal", 0.0, "early-stop best fitness goal")
	stagnationLimit := fs.Int("stagnation-limit", 0, "stop after N generations without improvement (0 disables)")
	budgetMS := fs.Int("budget-ms", 0, "wall-clock budget in milliseconds (0 disables)")
	storeKind := fs.String("store", "", "store backend: memory|sqlite")
	dbPath := fs.String("db-path", defaultDBPath, "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	setFlags := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		setFlags[f.Name] = true
	})

	req, err := loadOrDefaultRunRequest(*configPath)
	if err != nil {
		return err
	}
	overrideFromFlags(&req, setFlags, *configPath == "", map[string]any{
		"env":               *envName,
		"pop":               *population,
		"gens":              *generations,
		"seed":              *seed,
		"workers":           *workers,
		"selection":         *selection,
		"elites":            *eliteCount,
		"mutation-rate":     *mutationRate,
		"crossover-rate":    *crossoverRate,
		"max-instructions":  *maxInstructions,
		"registers":         *registerCount,
		"episodes":          *episodes,
		"max-episode-steps": *maxEpisodeSteps,
		"reduce":            *reduce,
		"fitness-goal":      *fitnessGoal,
		"stagnation-limit":  *stagnationLimit,
		"budget-ms":         *budgetMS,
	})

	client, err := newClient(*storeKind, *dbPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()
	if err := client.Init(ctx); err != nil {
		return err
	}

	summary, err := client.Run(ctx, req)
	if err != nil {
		return err
	}

	fmt.Printf("run completed run_id=%s env=%s pop=%d gens=%d seed=%d reason=%s\n",
		summary.RunID, req.Environment, req.Population, req.Generations, req.Seed, summary.TerminationReason)
	for i, best := range summary.BestByGeneration {
		fmt.Printf("generation=%d best_fitness=%.6f\n", i+1, best)
	}
	fmt.Printf("final_best_fitness=%.6f best_program=%s\n", summary.FinalBestFitness, summary.BestProgramID)
	fmt.Printf("artifacts_dir=%s\n", summary.ArtifactsDir)
	return nil
}

func runRuns(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	limit := fs.Int("limit", 20, "max runs to list")
	jsonOut := fs.Bool("json", false, "emit runs list as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *limit <= 0 {
		return errors.New("limit must be > 0")
	}

	client, err := newClient("", defaultDBPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	runs, err := client.Runs(ctx, lgpapi.RunsRequest{Limit: *limit})
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}
	if *jsonOut {
		return writeJSON(runs)
	}

	for _, item := range runs {
		fmt.Printf("run_id=%s created_at=%s env=%s seed=%d pop=%d gens=%d final_best_fitness=%.6f reason=%s\n",
			item.RunID,
			item.CreatedAtUTC,
			item.Environment,
			item.Seed,
			item.Population,
			item.Generations,
			item.FinalBestFitness,
			item.TerminationReason,
		)
	}
	return nil
}

func runFitness(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("fitness", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "use the most recent run from the run index")
	limit := fs.Int("limit", 0, "max generations to print (<=0 for all)")
	jsonOut := fs.Bool("json", false, "emit fitness history as JSON")
	storeKind := fs.String("store", "", "store backend: memory|sqlite")
	dbPath := fs.String("db-path", defaultDBPath, "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := newClient(*storeKind, *dbPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()
	if err := client.Init(ctx); err != nil {
		return err
	}

	history, err := client.FitnessHistory(ctx, lgpapi.FitnessHistoryRequest{
		RunID:  *runID,
		Latest: *latest,
		Limit:  *limit,
	})
	if err != nil {
		return err
	}
	if len(history) == 0 {
		fmt.Println("no fitness history")
		return nil
	}
	if *jsonOut {
		return writeJSON(history)
	}

	for i, best := range history {
		fmt.Printf("generation=%d best_fitness=%.6f\n", i+1, best)
	}
	return nil
}

func runDiagnostics(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("diagnostics", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "use the most recent run from the run index")
	limit := fs.Int("limit", 0, "max generations to print (<=0 for all)")
	jsonOut := fs.Bool("json", false, "emit diagnostics as JSON")
	storeKind := fs.String("store", "", "store backend: memory|sqlite")
	dbPath := fs.String("db-path", defaultDBPath, "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := newClient(*storeKind, *dbPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()
	if err := client.Init(ctx); err != nil {
		return err
	}

	diagnostics, err := client.Diagnostics(ctx, lgpapi.DiagnosticsRequest{
		RunID:  *runID,
		Latest: *latest,
		Limit:  *limit,
	})
	if err != nil {
		return err
	}
	if len(diagnostics) == 0 {
		fmt.Println("no diagnostics")
		return nil
	}
	if *jsonOut {
		return writeJSON(diagnostics)
	}

	for _, d := range diagnostics {
		fmt.Printf("generation=%d best=%.6f mean=%.6f min=%.6f mean_length=%.2f best_length=%d failed_episodes=%d\n",
			d.Generation,
			d.BestFitness,
			d.MeanFitness,
			d.MinFitness,
			d.MeanLength,
			d.BestLength,
			d.FailedEpisodes,
		)
	}
	return nil
}

func runTop(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("top", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "use the most recent run from the run index")
	limit := fs.Int("limit", 5, "max programs to print (<=0 for all)")
	jsonOut := fs.Bool("json", false, "emit top programs as JSON")
	storeKind := fs.String("store", "", "store backend: memory|sqlite")
	dbPath := fs.String("db-path", defaultDBPath, "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := newClient(*storeKind, *dbPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()
	if err := client.Init(ctx); err != nil {
		return err
	}

	top, err := client.TopPrograms(ctx, lgpapi.TopProgramsRequest{
		RunID:  *runID,
		Latest: *latest,
		Limit:  *limit,
	})
	if err != nil {
		return err
	}
	if len(top) == 0 {
		fmt.Println("no top programs")
		return nil
	}
	if *jsonOut {
		return writeJSON(top)
	}

	for _, item := range top {
		fmt.Printf("rank=%d fitness=%.6f program_id=%s instructions=%d\n",
			item.Rank,
			item.Fitness,
			item.Program.ID,
			len(item.Program.Instructions),
		)
	}
	return nil
}

func runBest(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("best", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "use the most recent run from the run index")
	jsonOut := fs.Bool("json", false, "emit the champion program as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := newClient("", defaultDBPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	best, err := client.BestProgram(ctx, lgpapi.BestProgramRequest{
		RunID:  *runID,
		Latest: *latest,
	})
	if err != nil {
		return err
	}
	if *jsonOut {
		return writeJSON(best)
	}

	fmt.Printf("program_id=%s registers=%d inputs=%d actions=%d instructions=%d\n",
		best.ID, best.RegisterCount, best.InputArity, best.ActionCount, len(best.Instructions))
	for i, ins := range best.Instructions {
		fmt.Printf("%3d: %s\n", i, formatInstruction(ins))
	}
	return nil
}

func runExport(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "use the most recent run from the run index")
	outDir := fs.String("out", "", "destination directory (default: exports/)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := newClient("", defaultDBPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	exported, err := client.Export(ctx, lgpapi.ExportRequest{
		RunID:  *runID,
		Latest: *latest,
		OutDir: *outDir,
	})
	if err != nil {
		return err
	}

	fmt.Printf("exported run_id=%s dir=%s\n", exported.RunID, exported.Directory)
	return nil
}

func runEnvs(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("envs", flag.ContinueOnError)
	jsonOut := fs.Bool("json", false, "emit environments as JSON")
	storeKind := fs.String("store", "", "store backend: memory|sqlite")
	dbPath := fs.String("db-path", defaultDBPath, "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := newClient(*storeKind, *dbPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()
	if err := client.Init(ctx); err != nil {
		return err
	}

	envs, err := client.Envs(ctx)
	if err != nil {
		return err
	}
	if *jsonOut {
		return writeJSON(envs)
	}

	for _, item := range envs {
		bestDisplay := "n/a"
		if item.BestFitness != nil {
			bestDisplay = fmt.Sprintf("%.6f", *item.BestFitness)
		}
		fmt.Printf("env=%s observations=%d actions=%d best_fitness=%s\n",
			item.Name, item.ObservationSize, item.ActionCount, bestDisplay)
	}
	return nil
}

func writeJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatInstruction(ins model.Instruction) string {
	operand := ""
	switch ins.Mode {
	case "reg":
		operand = fmt.Sprintf("r%d", ins.Src)
	case "inp":
		operand = fmt.Sprintf("in%d", ins.Src)
	case "const":
		operand = fmt.Sprintf("%.4f", ins.Const)
	default:
		operand = "?"
	}
	return strings.TrimSpace(fmt.Sprintf("%s r%d %s", ins.Op, ins.Dst, operand))
}
