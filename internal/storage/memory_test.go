package storage

import (
	"context"
	"testing"

	"lgp/internal/model"
)

func TestMemoryStoreProgramIsolation(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	p := sampleProgram()
	if err := store.SaveProgram(ctx, p); err != nil {
		t.Fatalf("save: %v", err)
	}

	// Mutating the original after save must not leak into the store.
	p.Instructions[0].Dst = 3

	got, ok, err := store.GetProgram(ctx, "prog-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !ok {
		t.Fatal("program not found")
	}
	if got.Instructions[0].Dst == 3 {
		t.Fatal("store shares instruction slice with caller")
	}

	// And mutating the returned copy must not corrupt the store.
	got.Instructions[1].Op = model.OpNop
	again, _, _ := store.GetProgram(ctx, "prog-1")
	if again.Instructions[1].Op == model.OpNop {
		t.Fatal("get returned a live reference into the store")
	}
}

func TestMemoryStoreMissingKeys(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	if _, ok, err := store.GetProgram(ctx, "nope"); err != nil || ok {
		t.Fatalf("get program: ok=%v err=%v", ok, err)
	}
	if _, ok, err := store.GetPopulation(ctx, "nope"); err != nil || ok {
		t.Fatalf("get population: ok=%v err=%v", ok, err)
	}
	if _, ok, err := store.GetFitnessHistory(ctx, "nope"); err != nil || ok {
		t.Fatalf("get history: ok=%v err=%v", ok, err)
	}
	if _, ok, err := store.GetTopPrograms(ctx, "nope"); err != nil || ok {
		t.Fatalf("get top: ok=%v err=%v", ok, err)
	}
}

func TestMemoryStoreRunArtifacts(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	history := []float64{1, 2, 3}
	if err := store.SaveFitnessHistory(ctx, "run-1", history); err != nil {
		t.Fatalf("save history: %v", err)
	}
	history[0] = 99
	got, ok, err := store.GetFitnessHistory(ctx, "run-1")
	if err != nil || !ok {
		t.Fatalf("get history: ok=%v err=%v", ok, err)
	}
	if got[0] != 1 {
		t.Fatalf("history not copied on save: %v", got)
	}

	diags := []model.GenerationDiagnostics{{Generation: 0, BestFitness: 5}}
	if err := store.SaveGenerationDiagnostics(ctx, "run-1", diags); err != nil {
		t.Fatalf("save diagnostics: %v", err)
	}
	gotDiags, ok, err := store.GetGenerationDiagnostics(ctx, "run-1")
	if err != nil || !ok || len(gotDiags) != 1 || gotDiags[0].BestFitness != 5 {
		t.Fatalf("get diagnostics: %v %v %v", gotDiags, ok, err)
	}

	top := []model.TopProgramRecord{{VersionedRecord: Stamp(), Rank: 1, Fitness: 5, Program: sampleProgram()}}
	if err := store.SaveTopPrograms(ctx, "run-1", top); err != nil {
		t.Fatalf("save top: %v", err)
	}
	gotTop, ok, err := store.GetTopPrograms(ctx, "run-1")
	if err != nil || !ok || len(gotTop) != 1 || gotTop[0].Program.ID != "prog-1" {
		t.Fatalf("get top: %v %v %v", gotTop, ok, err)
	}
}

func TestMemoryStorePopulationAndEnvSummary(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	pop := model.Population{VersionedRecord: Stamp(), ID: "pop-1", ProgramIDs: []string{"a", "b"}, Generation: 3}
	if err := store.SavePopulation(ctx, pop); err != nil {
		t.Fatalf("save population: %v", err)
	}
	got, ok, err := store.GetPopulation(ctx, "pop-1")
	if err != nil || !ok || got.Generation != 3 || len(got.ProgramIDs) != 2 {
		t.Fatalf("get population: %+v %v %v", got, ok, err)
	}

	summary := model.EnvSummary{VersionedRecord: Stamp(), Name: "cart-pole-lgp", BestFitness: 0.9}
	if err := store.SaveEnvSummary(ctx, summary); err != nil {
		t.Fatalf("save summary: %v", err)
	}
	gotSummary, ok, err := store.GetEnvSummary(ctx, "cart-pole-lgp")
	if err != nil || !ok || gotSummary.BestFitness != 0.9 {
		t.Fatalf("get summary: %+v %v %v", gotSummary, ok, err)
	}
}

func TestMemoryStoreReset(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	if err := store.SaveProgram(ctx, sampleProgram()); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.SaveFitnessHistory(ctx, "run-1", []float64{1, 2}); err != nil {
		t.Fatalf("save history: %v", err)
	}

	if err := store.Reset(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}

	if _, ok, err := store.GetProgram(ctx, "prog-1"); err != nil || ok {
		t.Fatalf("program survived reset: ok=%t err=%v", ok, err)
	}
	if _, ok, err := store.GetFitnessHistory(ctx, "run-1"); err != nil || ok {
		t.Fatalf("history survived reset: ok=%t err=%v", ok, err)
	}

	// The store stays usable after a reset.
	if err := store.SaveProgram(ctx, sampleProgram()); err != nil {
		t.Fatalf("save after reset: %v", err)
	}
}
