package storage

import (
	"context"
	"sync"

	"lgp/internal/model"
)

type MemoryStore struct {
	mu          sync.RWMutex
	programs    map[string]model.Program
	populations map[string]model.Population
	envs        map[string]model.EnvSummary
	history     map[string][]float64
	diagnostics map[string][]model.GenerationDiagnostics
	topPrograms map[string][]model.TopProgramRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.programs = make(map[string]model.Program)
	s.populations = make(map[string]model.Population)
	s.envs = make(map[string]model.EnvSummary)
	s.history = make(map[string][]float64)
	s.diagnostics = make(map[string][]model.GenerationDiagnostics)
	s.topPrograms = make(map[string][]model.TopProgramRecord)
	return nil
}

// Reset drops all stored records. The store stays usable afterwards.
func (s *MemoryStore) Reset(ctx context.Context) error {
	return s.Init(ctx)
}

func (s *MemoryStore) SaveProgram(_ context.Context, p model.Program) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.programs[p.ID] = copyProgram(p)
	return nil
}

func (s *MemoryStore) GetProgram(_ context.Context, id string) (model.Program, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.programs[id]
	if !ok {
		return model.Program{}, false, nil
	}
	return copyProgram(p), true, nil
}

func (s *MemoryStore) SavePopulation(_ context.Context, population model.Population) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := population
	copied.ProgramIDs = append([]string(nil), population.ProgramIDs...)
	s.populations[population.ID] = copied
	return nil
}

func (s *MemoryStore) GetPopulation(_ context.Context, id string) (model.Population, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	population, ok := s.populations[id]
	if !ok {
		return model.Population{}, false, nil
	}
	copied := population
	copied.ProgramIDs = append([]string(nil), population.ProgramIDs...)
	return copied, true, nil
}

func (s *MemoryStore) SaveEnvSummary(_ context.Context, summary model.EnvSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.envs[summary.Name] = summary
	return nil
}

func (s *MemoryStore) GetEnvSummary(_ context.Context, name string) (model.EnvSummary, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summary, ok := s.envs[name]
	return summary, ok, nil
}

func (s *MemoryStore) SaveFitnessHistory(_ context.Context, runID string, history []float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.history[runID] = append([]float64(nil), history...)
	return nil
}

func (s *MemoryStore) GetFitnessHistory(_ context.Context, runID string) ([]float64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.history[runID]
	if !ok {
		return nil, false, nil
	}
	return append([]float64(nil), history...), true, nil
}

func (s *MemoryStore) SaveGenerationDiagnostics(_ context.Context, runID string, diagnostics []model.GenerationDiagnostics) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := make([]model.GenerationDiagnostics, len(diagnostics))
	copy(copied, diagnostics)
	s.diagnostics[runID] = copied
	return nil
}

func (s *MemoryStore) GetGenerationDiagnostics(_ context.Context, runID string) ([]model.GenerationDiagnostics, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	diagnostics, ok := s.diagnostics[runID]
	if !ok {
		return nil, false, nil
	}
	copied := make([]model.GenerationDiagnostics, len(diagnostics))
	copy(copied, diagnostics)
	return copied, true, nil
}

func (s *MemoryStore) SaveTopPrograms(_ context.Context, runID string, top []model.TopProgramRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := make([]model.TopProgramRecord, 0, len(top))
	for _, record := range top {
		record.Program = copyProgram(record.Program)
		copied = append(copied, record)
	}
	s.topPrograms[runID] = copied
	return nil
}

func (s *MemoryStore) GetTopPrograms(_ context.Context, runID string) ([]model.TopProgramRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	top, ok := s.topPrograms[runID]
	if !ok {
		return nil, false, nil
	}
	copied := make([]model.TopProgramRecord, 0, len(top))
	for _, record := range top {
		record.Program = copyProgram(record.Program)
		copied = append(copied, record)
	}
	return copied, true, nil
}

func copyProgram(p model.Program) model.Program {
	copied := p
	copied.Instructions = append([]model.Instruction(nil), p.Instructions...)
	return copied
}
