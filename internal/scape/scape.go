// Package scape hosts the control tasks programs are evaluated against. Each
// environment is a small stateful simulation driven through a reset/step
// episode contract.
package scape

import (
	"fmt"
	"sort"
)

// Environment is one control task instance. Instances carry episode state and
// are not safe for concurrent use; construct one per worker via FromName.
//
// Reset starts a new episode from a seed-derived initial state and returns
// the first observation. Step applies one action and returns the next
// observation, the step reward, and whether the episode has ended. Calling
// Step after done, or with an action outside [0, ActionCount), is an error.
type Environment interface {
	Name() string
	ObservationSize() int
	ActionCount() int
	MaxEpisodeSteps() int
	Reset(seed int64) []float64
	Step(action int) (obs []float64, reward float64, done bool, err error)
}

var registry = map[string]func() Environment{
	"cart-pole-lgp":    func() Environment { return NewCartPole() },
	"mountain-car-lgp": func() Environment { return NewMountainCar() },
}

// FromName constructs a fresh environment instance by registry name.
func FromName(name string) (Environment, error) {
	ctor, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown environment: %s", name)
	}
	return ctor(), nil
}

// Names lists the registered environments in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
