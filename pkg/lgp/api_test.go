package lgp

import (
	"context"
	"testing"
	"time"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	client, err := New(Options{
		StoreKind:     "memory",
		BenchmarksDir: t.TempDir(),
		ExportsDir:    t.TempDir(),
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if err := client.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func smallRun() RunRequest {
	return RunRequest{
		Environment:     "cart-pole-lgp",
		Population:      10,
		Generations:     3,
		Seed:            7,
		Workers:         2,
		Episodes:        2,
		MaxEpisodeSteps: 30,
	}
}

func TestRunProducesSummaryAndArtifacts(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)

	summary, err := client.Run(ctx, smallRun())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.RunID == "" {
		t.Fatal("empty run id")
	}
	if summary.Generations != 3 {
		t.Fatalf("generations = %d", summary.Generations)
	}
	if summary.TerminationReason != "generations" {
		t.Fatalf("reason = %s", summary.TerminationReason)
	}
	if len(summary.BestByGeneration) != 3 {
		t.Fatalf("history length = %d", len(summary.BestByGeneration))
	}
	if summary.ArtifactsDir == "" {
		t.Fatal("empty artifacts dir")
	}
}

func TestRunIsReproducibleForSeed(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)

	first, err := client.Run(ctx, smallRun())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	second, err := client.Run(ctx, smallRun())
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if first.FinalBestFitness != second.FinalBestFitness {
		t.Fatalf("best fitness differs: %v vs %v", first.FinalBestFitness, second.FinalBestFitness)
	}
	for i := range first.BestByGeneration {
		if first.BestByGeneration[i] != second.BestByGeneration[i] {
			t.Fatalf("generation %d differs: %v vs %v", i, first.BestByGeneration[i], second.BestByGeneration[i])
		}
	}
}

func TestRunsListsNewestFirst(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)

	a, err := client.Run(ctx, smallRun())
	if err != nil {
		t.Fatalf("run a: %v", err)
	}
	time.Sleep(time.Millisecond)
	b, err := client.Run(ctx, smallRun())
	if err != nil {
		t.Fatalf("run b: %v", err)
	}

	runs, err := client.Runs(ctx, RunsRequest{})
	if err != nil {
		t.Fatalf("runs: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("runs = %d", len(runs))
	}
	if runs[0].RunID != b.RunID || runs[1].RunID != a.RunID {
		t.Fatalf("unexpected order: %s, %s", runs[0].RunID, runs[1].RunID)
	}
	if runs[0].Environment != "cart-pole-lgp" {
		t.Fatalf("environment = %s", runs[0].Environment)
	}
}

func TestQueryOperations(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)

	summary, err := client.Run(ctx, smallRun())
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	history, err := client.FitnessHistory(ctx, FitnessHistoryRequest{RunID: summary.RunID})
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("history length = %d", len(history))
	}

	latest, err := client.FitnessHistory(ctx, FitnessHistoryRequest{Latest: true})
	if err != nil {
		t.Fatalf("latest history: %v", err)
	}
	if len(latest) != len(history) {
		t.Fatalf("latest history length = %d", len(latest))
	}

	diags, err := client.Diagnostics(ctx, DiagnosticsRequest{RunID: summary.RunID, Limit: 2})
	if err != nil {
		t.Fatalf("diagnostics: %v", err)
	}
	if len(diags) != 2 {
		t.Fatalf("diagnostics length = %d", len(diags))
	}

	top, err := client.TopPrograms(ctx, TopProgramsRequest{RunID: summary.RunID})
	if err != nil {
		t.Fatalf("top: %v", err)
	}
	if len(top) == 0 || top[0].Rank != 1 {
		t.Fatalf("top = %+v", top)
	}

	best, err := client.BestProgram(ctx, BestProgramRequest{RunID: summary.RunID})
	if err != nil {
		t.Fatalf("best: %v", err)
	}
	if best.ID != summary.BestProgramID {
		t.Fatalf("best id = %s, want %s", best.ID, summary.BestProgramID)
	}
}

func TestQueryValidation(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)

	if _, err := client.FitnessHistory(ctx, FitnessHistoryRequest{}); err == nil {
		t.Fatal("expected error without run id or latest")
	}
	if _, err := client.FitnessHistory(ctx, FitnessHistoryRequest{RunID: "x", Latest: true}); err == nil {
		t.Fatal("expected error with both run id and latest")
	}
	if _, err := client.FitnessHistory(ctx, FitnessHistoryRequest{Latest: true}); err == nil {
		t.Fatal("expected error with no runs recorded")
	}
	if _, err := client.FitnessHistory(ctx, FitnessHistoryRequest{RunID: "missing"}); err == nil {
		t.Fatal("expected error for unknown run id")
	}
}

func TestExportLatestRun(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)

	summary, err := client.Run(ctx, smallRun())
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	exported, err := client.Export(ctx, ExportRequest{Latest: true})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if exported.RunID != summary.RunID {
		t.Fatalf("exported run = %s, want %s", exported.RunID, summary.RunID)
	}
	if exported.Directory == "" {
		t.Fatal("empty export directory")
	}
}

func TestEnvsListsRegistryWithBestFitness(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)

	envs, err := client.Envs(ctx)
	if err != nil {
		t.Fatalf("envs: %v", err)
	}
	if len(envs) < 2 {
		t.Fatalf("envs = %d", len(envs))
	}
	for _, item := range envs {
		if item.BestFitness != nil {
			t.Fatalf("env %s has best fitness before any run", item.Name)
		}
	}

	if _, err := client.Run(ctx, smallRun()); err != nil {
		t.Fatalf("run: %v", err)
	}
	envs, err = client.Envs(ctx)
	if err != nil {
		t.Fatalf("envs after run: %v", err)
	}
	found := false
	for _, item := range envs {
		if item.Name == "cart-pole-lgp" && item.BestFitness != nil {
			found = true
		}
	}
	if !found {
		t.Fatal("cart-pole-lgp best fitness not recorded")
	}
}
