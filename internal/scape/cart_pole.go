package scape

import (
	"errors"
	"math"
	"math/rand"
)

// CartPole is a 1D cart centering task. The controller observes cart position
// and velocity and may push left, push right, or coast; reward tracks how
// close the cart stays to the origin. An episode fails when the cart drifts
// past the track bound.
type CartPole struct {
	x, v float64
	done bool
}

const (
	cartPoleDT       = 0.1
	cartPoleKPos     = 0.45
	cartPoleKVel     = 0.15
	cartPoleForceK   = 1.25
	cartPoleForce    = 1.0
	cartPoleBound    = 2.0
	cartPoleMaxSteps = 200
	cartPoleStartMax = 1.0
)

func NewCartPole() *CartPole {
	return &CartPole{done: true}
}

func (c *CartPole) Name() string         { return "cart-pole-lgp" }
func (c *CartPole) ObservationSize() int { return 2 }
func (c *CartPole) ActionCount() int     { return 3 }
func (c *CartPole) MaxEpisodeSteps() int { return cartPoleMaxSteps }

func (c *CartPole) Reset(seed int64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	c.x = (2*rng.Float64() - 1) * cartPoleStartMax
	c.v = 0
	c.done = false
	return []float64{c.x, c.v}
}

// Step applies one control action: 0 coasts, 1 pushes left, 2 pushes right.
func (c *CartPole) Step(action int) ([]float64, float64, bool, error) {
	if c.done {
		return nil, 0, true, errors.New("cart-pole-lgp: step after episode end")
	}
	var force float64
	switch action {
	case 0:
	case 1:
		force = -cartPoleForce
	case 2:
		force = cartPoleForce
	default:
		return nil, 0, false, errors.New("cart-pole-lgp: action out of range")
	}

	acc := cartPoleForceK*force - cartPoleKPos*c.x - cartPoleKVel*c.v
	c.v += acc * cartPoleDT
	c.x += c.v * cartPoleDT

	reward := 1.0 - math.Min(1.0, math.Abs(c.x)/cartPoleBound)
	if math.Abs(c.x) > cartPoleBound {
		c.done = true
	}
	return []float64{c.x, c.v}, reward, c.done, nil
}
