package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	lgpapi "lgp/pkg/lgp"
)

// loadRunRequestFromConfig reads a run config file into a RunRequest. The
// format follows the file extension: .yaml/.yml parses as YAML, anything
// else as JSON. Missing keys keep their zero value so the client defaults
// still apply.
func loadRunRequestFromConfig(path string) (lgpapi.RunRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return lgpapi.RunRequest{}, err
	}

	var raw map[string]any
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return lgpapi.RunRequest{}, err
		}
	default:
		if err := json.Unmarshal(data, &raw); err != nil {
			return lgpapi.RunRequest{}, err
		}
	}

	var req lgpapi.RunRequest
	if v, ok := asString(raw["environment"]); ok {
		req.Environment = v
	}
	if v, ok := asInt(raw["population"]); ok {
		req.Population = v
	}
	if v, ok := asInt(raw["generations"]); ok {
		req.Generations = v
	}
	if v, ok := asInt64(raw["seed"]); ok {
		req.Seed = v
	}
	if v, ok := asInt(raw["workers"]); ok {
		req.Workers = v
	}
	if v, ok := asString(raw["selection"]); ok {
		req.Selection = v
	}
	if v, ok := asInt(raw["elite_count"]); ok {
		req.EliteCount = v
	}
	if v, ok := asFloat64(raw["mutation_rate"]); ok {
		req.MutationRate = v
	}
	if v, ok := asFloat64(raw["crossover_rate"]); ok {
		req.CrossoverRate = v
	}
	if v, ok := asInt(raw["max_instructions"]); ok {
		req.MaxInstructions = v
	}
	if v, ok := asInt(raw["register_count"]); ok {
		req.RegisterCount = v
	}
	if v, ok := asInt(raw["episodes"]); ok {
		req.Episodes = v
	}
	if v, ok := asInt(raw["max_episode_steps"]); ok {
		req.MaxEpisodeSteps = v
	}
	if v, ok := asString(raw["reduce"]); ok {
		req.Reduce = v
	}
	if v, ok := asFloat64(raw["fitness_goal"]); ok {
		req.FitnessGoal = v
		req.FitnessGoalSet = true
	}
	if v, ok := asInt(raw["stagnation_limit"]); ok {
		req.StagnationLimit = v
	}
	if v, ok := asInt(raw["budget_ms"]); ok {
		req.Budget = time.Duration(v) * time.Millisecond
	}

	return req, nil
}

func loadOrDefaultRunRequest(configPath string) (lgpapi.RunRequest, error) {
	if configPath == "" {
		return lgpapi.RunRequest{}, nil
	}
	req, err := loadRunRequestFromConfig(configPath)
	if err != nil {
		return lgpapi.RunRequest{}, fmt.Errorf("load config: %w", err)
	}
	return req, nil
}

// overrideFromFlags layers flag values onto a config-loaded request. With no
// config file every flag applies, defaults included; with a config file only
// flags the user actually set override the file.
func overrideFromFlags(req *lgpapi.RunRequest, set map[string]bool, applyAll bool, flagValue map[string]any) {
	for name, v := range flagValue {
		if !applyAll && !set[name] {
			continue
		}
		switch name {
		case "env":
			req.Environment = v.(string)
		case "pop":
			req.Population = v.(int)
		case "gens":
			req.Generations = v.(int)
		case "seed":
			req.Seed = v.(int64)
		case "workers":
			req.Workers = v.(int)
		case "selection":
			req.Selection = v.(string)
		case "elites":
			req.EliteCount = v.(int)
		case "mutation-rate":
			req.MutationRate = v.(float64)
		case "crossover-rate":
			req.CrossoverRate = v.(float64)
		case "max-instructions":
			req.MaxInstructions = v.(int)
		case "registers":
			req.RegisterCount = v.(int)
		case "episodes":
			req.Episodes = v.(int)
		case "max-episode-steps":
			req.MaxEpisodeSteps = v.(int)
		case "reduce":
			req.Reduce = v.(string)
		case "fitness-goal":
			if !set[name] && v.(float64) == 0 {
				continue
			}
			req.FitnessGoal = v.(float64)
			req.FitnessGoalSet = true
		case "stagnation-limit":
			req.StagnationLimit = v.(int)
		case "budget-ms":
			req.Budget = time.Duration(v.(int)) * time.Millisecond
		}
	}
}

func asString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

func asInt(v any) (int, bool) {
	switch x := v.(type) {
	case int:
		return x, true
	case int64:
		return int(x), true
	case float64:
		return int(x), true
	default:
		return 0, false
	}
}

func asInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case int:
		return int64(x), true
	case float64:
		return int64(x), true
	default:
		return 0, false
	}
}

func asFloat64(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	default:
		return 0, false
	}
}
