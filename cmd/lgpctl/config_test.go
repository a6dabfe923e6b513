package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadRunRequestFromJSONConfig(t *testing.T) {
	path := writeConfig(t, "run_config.json", `{
		"environment": "mountain-car-lgp",
		"population": 30,
		"generations": 12,
		"seed": 99,
		"workers": 3,
		"selection": "rank",
		"elite_count": 4,
		"mutation_rate": 0.25,
		"crossover_rate": 0.75,
		"max_instructions": 16,
		"register_count": 6,
		"episodes": 3,
		"max_episode_steps": 150,
		"reduce": "median",
		"fitness_goal": -50,
		"stagnation_limit": 5,
		"budget_ms": 2500
	}`)

	req, err := loadRunRequestFromConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if req.Environment != "mountain-car-lgp" || req.Population != 30 || req.Generations != 12 {
		t.Fatalf("base fields: %+v", req)
	}
	if req.Seed != 99 || req.Workers != 3 || req.Selection != "rank" || req.EliteCount != 4 {
		t.Fatalf("run fields: %+v", req)
	}
	if req.MutationRate != 0.25 || req.CrossoverRate != 0.75 {
		t.Fatalf("variation fields: %+v", req)
	}
	if req.MaxInstructions != 16 || req.RegisterCount != 6 {
		t.Fatalf("program fields: %+v", req)
	}
	if req.Episodes != 3 || req.MaxEpisodeSteps != 150 || req.Reduce != "median" {
		t.Fatalf("evaluation fields: %+v", req)
	}
	if !req.FitnessGoalSet || req.FitnessGoal != -50 {
		t.Fatalf("fitness goal: %+v", req)
	}
	if req.StagnationLimit != 5 || req.Budget != 2500*time.Millisecond {
		t.Fatalf("termination fields: %+v", req)
	}
}

func TestLoadRunRequestFromYAMLConfig(t *testing.T) {
	path := writeConfig(t, "run_config.yaml", `
environment: cart-pole-lgp
population: 40
generations: 20
seed: 7
selection: elite
mutation_rate: 0.15
episodes: 4
`)

	req, err := loadRunRequestFromConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if req.Environment != "cart-pole-lgp" || req.Population != 40 || req.Generations != 20 {
		t.Fatalf("base fields: %+v", req)
	}
	if req.Seed != 7 || req.Selection != "elite" || req.MutationRate != 0.15 || req.Episodes != 4 {
		t.Fatalf("run fields: %+v", req)
	}
	if req.FitnessGoalSet {
		t.Fatal("fitness goal should stay unset")
	}
	if req.Workers != 0 {
		t.Fatalf("workers should keep zero value, got %d", req.Workers)
	}
}

func TestLoadRunRequestRejectsMalformedConfig(t *testing.T) {
	path := writeConfig(t, "bad.json", `{"population": `)
	if _, err := loadRunRequestFromConfig(path); err == nil {
		t.Fatal("expected parse error")
	}

	path = writeConfig(t, "bad.yaml", "population: [unclosed")
	if _, err := loadRunRequestFromConfig(path); err == nil {
		t.Fatal("expected yaml parse error")
	}
}

func TestOverrideFromFlagsOnlySetFlagsWithConfig(t *testing.T) {
	req, err := loadRunRequestFromConfig(writeConfig(t, "run.json", `{
		"environment": "mountain-car-lgp",
		"population": 30,
		"seed": 99
	}`))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	overrideFromFlags(&req, map[string]bool{"pop": true}, false, map[string]any{
		"env":  "cart-pole-lgp",
		"pop":  64,
		"seed": int64(1),
	})

	if req.Population != 64 {
		t.Fatalf("set flag should override, got pop=%d", req.Population)
	}
	if req.Environment != "mountain-car-lgp" {
		t.Fatalf("unset flag should not override, got env=%s", req.Environment)
	}
	if req.Seed != 99 {
		t.Fatalf("unset flag should not override, got seed=%d", req.Seed)
	}
}

func TestOverrideFromFlagsAppliesDefaultsWithoutConfig(t *testing.T) {
	req, err := loadOrDefaultRunRequest("")
	if err != nil {
		t.Fatalf("default request: %v", err)
	}

	overrideFromFlags(&req, map[string]bool{}, true, map[string]any{
		"env":          "cart-pole-lgp",
		"pop":          50,
		"seed":         int64(1),
		"fitness-goal": 0.0,
	})

	if req.Environment != "cart-pole-lgp" || req.Population != 50 || req.Seed != 1 {
		t.Fatalf("defaults not applied: %+v", req)
	}
	if req.FitnessGoalSet {
		t.Fatal("zero fitness goal default should not arm early stop")
	}
}

func TestOverrideFromFlagsExplicitZeroFitnessGoal(t *testing.T) {
	req, err := loadOrDefaultRunRequest("")
	if err != nil {
		t.Fatalf("default request: %v", err)
	}

	overrideFromFlags(&req, map[string]bool{"fitness-goal": true}, true, map[string]any{
		"fitness-goal": 0.0,
	})

	if !req.FitnessGoalSet || req.FitnessGoal != 0 {
		t.Fatalf("explicit zero goal should arm early stop: %+v", req)
	}
}
