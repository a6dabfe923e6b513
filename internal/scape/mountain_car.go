package scape

import (
	"errors"
	"math"
	"math/rand"
)

// MountainCar is the classic underpowered-car control task. The car sits in a
// valley and must build momentum by rocking back and forth to reach the flag
// on the right hill. Every step costs -1 reward, so better controllers reach
// the goal in fewer steps.
type MountainCar struct {
	position, velocity float64
	done               bool
}

const (
	mcMinPosition  = -1.2
	mcMaxPosition  = 0.6
	mcMaxSpeed     = 0.07
	mcGoalPosition = 0.5
	mcForce        = 0.001
	mcGravity      = 0.0025
	mcMaxSteps     = 200
)

func NewMountainCar() *MountainCar {
	return &MountainCar{done: true}
}

func (m *MountainCar) Name() string         { return "mountain-car-lgp" }
func (m *MountainCar) ObservationSize() int { return 2 }
func (m *MountainCar) ActionCount() int     { return 3 }
func (m *MountainCar) MaxEpisodeSteps() int { return mcMaxSteps }

func (m *MountainCar) Reset(seed int64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	m.position = -0.6 + rng.Float64()*0.2
	m.velocity = 0
	m.done = false
	return []float64{m.position, m.velocity}
}

// Step applies one control action: 0 pushes left, 1 coasts, 2 pushes right.
func (m *MountainCar) Step(action int) ([]float64, float64, bool, error) {
	if m.done {
		return nil, 0, true, errors.New("mountain-car-lgp: step after episode end")
	}
	if action < 0 || action > 2 {
		return nil, 0, false, errors.New("mountain-car-lgp: action out of range")
	}

	m.velocity += float64(action-1)*mcForce - math.Cos(3*m.position)*mcGravity
	m.velocity = math.Max(-mcMaxSpeed, math.Min(mcMaxSpeed, m.velocity))
	m.position += m.velocity
	if m.position < mcMinPosition {
		m.position = mcMinPosition
		if m.velocity < 0 {
			m.velocity = 0
		}
	}
	if m.position > mcMaxPosition {
		m.position = mcMaxPosition
	}

	if m.position >= mcGoalPosition {
		m.done = true
	}
	return []float64{m.position, m.velocity}, -1, m.done, nil
}
