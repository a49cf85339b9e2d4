package scape

import (
	"math/rand"

	"emergence/internal/model"
)

// Source produces problems for solve attempts. Taxonomy is the default
// implementation.
type Source interface {
	Generate(rng *rand.Rand, crossChance float64) model.Problem
}

// Fixed always returns the same problem. It is mostly useful in tests.
type Fixed model.Problem

func (f Fixed) Generate(_ *rand.Rand, _ float64) model.Problem {
	return model.Problem(f)
}
