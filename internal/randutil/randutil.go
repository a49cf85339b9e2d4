package randutil

import (
	"fmt"
	"math/rand"
	"time"

	"golang.org/x/exp/constraints"
)

// Number covers the scalar types the growth model clamps.
type Number interface {
	constraints.Integer | constraints.Float
}

// UniformFloat returns a value in [min, max). Inverted bounds are swapped.
func UniformFloat(rng *rand.Rand, min, max float64) float64 {
	if min > max {
		min, max = max, min
	}
	return min + rng.Float64()*(max-min)
}

// UniformInt returns a value in [min, max], inclusive on both ends.
func UniformInt(rng *rand.Rand, min, max int) int {
	if min > max {
		min, max = max, min
	}
	return min + rng.Intn(max-min+1)
}

// Bernoulli reports true with probability p. p outside [0, 1] saturates.
func Bernoulli(rng *rand.Rand, p float64) bool {
	if p <= 0 {
		return false
	}
	if p >= 1 {
		return true
	}
	return rng.Float64() < p
}

// Clamp bounds value to [min, max]. A NaN value clamps to min.
func Clamp[T Number](value, min, max T) T {
	if value != value {
		return min
	}
	if value > max {
		return max
	}
	if value < min {
		return min
	}
	return value
}

// RandomElement picks one value uniformly. A nil rng falls back to a time-seeded source.
func RandomElement[T any](rng *rand.Rand, values []T) (T, error) {
	var zero T
	if len(values) == 0 {
		return zero, fmt.Errorf("values are required")
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return values[rng.Intn(len(values))], nil
}
