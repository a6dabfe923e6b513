package evo

import (
	"errors"
	"math"
)

// ErrInvalidConfig marks a configuration rejected before any evolution runs.
var ErrInvalidConfig = errors.New("invalid configuration")

// SentinelFitness is assigned to a program whose evaluation failed inside the
// environment. It sorts below every honestly earned fitness, so broken
// programs are never selected ahead of working ones.
var SentinelFitness = -math.MaxFloat64
