package evo

import (
	"fmt"
	"math/rand"

	"lgp/internal/model"
)

// Selector chooses parents from a canonically ranked population for
// replication. ranked must be sorted best first.
type Selector interface {
	Name() string
	PickParent(rng *rand.Rand, ranked []Individual, eliteCount int) (model.Program, error)
}

// EliteSelector picks uniformly from the top elite set.
type EliteSelector struct{}

func (EliteSelector) Name() string {
	return "elite"
}

func (EliteSelector) PickParent(rng *rand.Rand, ranked []Individual, eliteCount int) (model.Program, error) {
	if rng == nil {
		return model.Program{}, fmt.Errorf("random source is required")
	}
	if eliteCount <= 0 || eliteCount > len(ranked) {
		return model.Program{}, fmt.Errorf("invalid elite count: %d", eliteCount)
	}
	return ranked[rng.Intn(eliteCount)].Program, nil
}

// TournamentSelector samples candidates from a pool and picks the one
// ranked highest among them. Rank position already folds in the fitness,
// length, and insertion tie-breaks, so comparing indices is enough.
type TournamentSelector struct {
	PoolSize       int
	TournamentSize int
}

func (TournamentSelector) Name() string {
	return "tournament"
}

func (s TournamentSelector) PickParent(rng *rand.Rand, ranked []Individual, eliteCount int) (model.Program, error) {
	if rng == nil {
		return model.Program{}, fmt.Errorf("random source is required")
	}
	if eliteCount <= 0 || eliteCount > len(ranked) {
		return model.Program{}, fmt.Errorf("invalid elite count: %d", eliteCount)
	}

	poolSize := s.PoolSize
	if poolSize <= 0 {
		poolSize = len(ranked)
	}
	if poolSize < eliteCount {
		poolSize = eliteCount
	}
	if poolSize > len(ranked) {
		poolSize = len(ranked)
	}

	tournamentSize := s.TournamentSize
	if tournamentSize <= 0 {
		tournamentSize = 3
	}
	if tournamentSize > poolSize {
		tournamentSize = poolSize
	}

	best := rng.Intn(poolSize)
	for i := 1; i < tournamentSize; i++ {
		candidate := rng.Intn(poolSize)
		if candidate < best {
			best = candidate
		}
	}
	return ranked[best].Program, nil
}

// RankSelector draws parents with probability proportional to linear rank
// weight: the best individual carries weight n, the worst weight 1.
type RankSelector struct{}

func (RankSelector) Name() string {
	return "rank"
}

func (RankSelector) PickParent(rng *rand.Rand, ranked []Individual, eliteCount int) (model.Program, error) {
	if rng == nil {
		return model.Program{}, fmt.Errorf("random source is required")
	}
	if eliteCount <= 0 || eliteCount > len(ranked) {
		return model.Program{}, fmt.Errorf("invalid elite count: %d", eliteCount)
	}

	n := len(ranked)
	total := n * (n + 1) / 2
	draw := rng.Intn(total)
	for i := 0; i < n; i++ {
		draw -= n - i
		if draw < 0 {
			return ranked[i].Program, nil
		}
	}
	return ranked[n-1].Program, nil
}

// SelectorFromName maps a config string onto a selection strategy.
func SelectorFromName(name string) (Selector, error) {
	switch name {
	case "", "tournament":
		return TournamentSelector{}, nil
	case "elite":
		return EliteSelector{}, nil
	case "rank":
		return RankSelector{}, nil
	default:
		return nil, fmt.Errorf("unsupported selection strategy: %s", name)
	}
}
