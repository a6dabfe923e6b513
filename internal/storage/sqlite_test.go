//go:build sqlite

package storage

import (
	"context"
	"path/filepath"
	"testing"

	"lgp/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store := NewSQLiteStore(filepath.Join(t.TempDir(), "lgp.db"))
	if err := store.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStoreProgramRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestSQLiteStore(t)

	p := sampleProgram()
	if err := store.SaveProgram(ctx, p); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, ok, err := store.GetProgram(ctx, p.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !ok {
		t.Fatal("program not found")
	}
	if got.ID != p.ID || len(got.Instructions) != len(p.Instructions) {
		t.Fatalf("round trip lost fields: %+v", got)
	}

	// Upsert replaces the payload.
	p.Instructions = p.Instructions[:1]
	if err := store.SaveProgram(ctx, p); err != nil {
		t.Fatalf("resave: %v", err)
	}
	got, _, err = store.GetProgram(ctx, p.ID)
	if err != nil {
		t.Fatalf("get after resave: %v", err)
	}
	if len(got.Instructions) != 1 {
		t.Fatalf("upsert kept stale payload: %d instructions", len(got.Instructions))
	}
}

func TestSQLiteStoreRunArtifacts(t *testing.T) {
	ctx := context.Background()
	store := newTestSQLiteStore(t)

	if err := store.SaveFitnessHistory(ctx, "run-1", []float64{1, 2, 3}); err != nil {
		t.Fatalf("save history: %v", err)
	}
	history, ok, err := store.GetFitnessHistory(ctx, "run-1")
	if err != nil || !ok || len(history) != 3 {
		t.Fatalf("get history: %v %v %v", history, ok, err)
	}

	diags := []model.GenerationDiagnostics{{Generation: 0, BestFitness: 4.5, MeanLength: 2.5}}
	if err := store.SaveGenerationDiagnostics(ctx, "run-1", diags); err != nil {
		t.Fatalf("save diagnostics: %v", err)
	}
	gotDiags, ok, err := store.GetGenerationDiagnostics(ctx, "run-1")
	if err != nil || !ok || gotDiags[0].BestFitness != 4.5 {
		t.Fatalf("get diagnostics: %v %v %v", gotDiags, ok, err)
	}

	top := []model.TopProgramRecord{{VersionedRecord: Stamp(), Rank: 1, Fitness: 4.5, Program: sampleProgram()}}
	if err := store.SaveTopPrograms(ctx, "run-1", top); err != nil {
		t.Fatalf("save top: %v", err)
	}
	gotTop, ok, err := store.GetTopPrograms(ctx, "run-1")
	if err != nil || !ok || gotTop[0].Program.ID != "prog-1" {
		t.Fatalf("get top: %v %v %v", gotTop, ok, err)
	}

	if _, ok, err := store.GetFitnessHistory(ctx, "missing"); err != nil || ok {
		t.Fatalf("missing run: ok=%v err=%v", ok, err)
	}
}

func TestSQLiteStoreRequiresInit(t *testing.T) {
	store := NewSQLiteStore(filepath.Join(t.TempDir(), "lgp.db"))
	if err := store.SaveProgram(context.Background(), sampleProgram()); err == nil {
		t.Fatal("expected error before init")
	}
}

func TestSQLiteStoreReset(t *testing.T) {
	ctx := context.Background()
	store := newTestSQLiteStore(t)

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

	if err := store.SaveProgram(ctx, sampleProgram()); err != nil {
		t.Fatalf("save after reset: %v", err)
	}
}
