package storage

import (
	"context"

	"lgp/internal/model"
)

// Store defines persistence for evolved programs and per-run artifacts.
type Store interface {
	Init(ctx context.Context) error
	Reset(ctx context.Context) error
	SaveProgram(ctx context.Context, p model.Program) error
	GetProgram(ctx context.Context, id string) (model.Program, bool, error)
	SavePopulation(ctx context.Context, population model.Population) error
	GetPopulation(ctx context.Context, id string) (model.Population, bool, error)
	SaveEnvSummary(ctx context.Context, summary model.EnvSummary) error
	GetEnvSummary(ctx context.Context, name string) (model.EnvSummary, bool, error)
	SaveFitnessHistory(ctx context.Context, runID string, history []float64) error
	GetFitnessHistory(ctx context.Context, runID string) ([]float64, bool, error)
	SaveGenerationDiagnostics(ctx context.Context, runID string, diagnostics []model.GenerationDiagnostics) error
	GetGenerationDiagnostics(ctx context.Context, runID string) ([]model.GenerationDiagnostics, bool, error)
	SaveTopPrograms(ctx context.Context, runID string, top []model.TopProgramRecord) error
	GetTopPrograms(ctx context.Context, runID string) ([]model.TopProgramRecord, bool, error)
}
