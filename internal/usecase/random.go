package usecase

import (
	"math"
	"math/rand"
)

// Confidence bounds reported for an inferred label.
const (
	MinConfidence = 0.87
	MaxConfidence = 0.99
)

// RandomSource yields values in [0, 1]. Implementations must be safe for concurrent use.
type RandomSource interface {
	Float64() float64
}

type globalSource struct{}

func (globalSource) Float64() float64 { return rand.Float64() }

// DefaultRandomSource draws from the process wide math/rand generator.
func DefaultRandomSource() RandomSource {
	return globalSource{}
}

// confidenceFrom maps a [0, 1] sample onto [MinConfidence, MaxConfidence] with two decimals.
func confidenceFrom(sample float64) float64 {
	sample = math.Max(0, math.Min(1, sample))
	value := MinConfidence + sample*(MaxConfidence-MinConfidence)
	return math.Round(value*100) / 100
}
