package randutil

import (
	"math"
	"math/rand"
	"testing"
)

func TestUniformFloatStaysInRange(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 1000; i++ {
		v := UniformFloat(rng, 0.1, 1.0)
		if v < 0.1 || v >= 1.0 {
			t.Fatalf("uniform float out of range: %f", v)
		}
	}
	if v := UniformFloat(rng, 2, 1); v < 1 || v >= 2 {
		t.Fatalf("expected swapped bounds to apply, got=%f", v)
	}
}

func TestUniformIntInclusive(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	seen := map[int]bool{}
	for i := 0; i < 500; i++ {
		v := UniformInt(rng, 1, 3)
		if v < 1 || v > 3 {
			t.Fatalf("uniform int out of range: %d", v)
		}
		seen[v] = true
	}
	if len(seen) != 3 {
		t.Fatalf("expected all of 1..3 to appear, got %v", seen)
	}
	if v := UniformInt(rng, 4, 4); v != 4 {
		t.Fatalf("expected degenerate range to return 4, got=%d", v)
	}
}

func TestClamp(t *testing.T) {
	if got := Clamp(2.5, 0.1, 2.0); got != 2.0 {
		t.Fatalf("expected upper clamp, got=%f", got)
	}
	if got := Clamp(-1.0, 0.1, 2.0); got != 0.1 {
		t.Fatalf("expected lower clamp, got=%f", got)
	}
	if got := Clamp(0.7, 0.1, 2.0); got != 0.7 {
		t.Fatalf("expected passthrough, got=%f", got)
	}
	if got := Clamp(math.NaN(), 0.1, 2.0); got != 0.1 {
		t.Fatalf("expected NaN to clamp to min, got=%f", got)
	}
	if got := Clamp(math.Inf(1), 0.1, 2.0); got != 2.0 {
		t.Fatalf("expected +Inf to clamp to max, got=%f", got)
	}
	if got := Clamp(9, 0, 5); got != 5 {
		t.Fatalf("expected int clamp, got=%d", got)
	}
}

func TestBernoulliSaturates(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for i := 0; i < 100; i++ {
		if Bernoulli(rng, 0) {
			t.Fatal("p=0 must never fire")
		}
		if !Bernoulli(rng, 1.5) {
			t.Fatal("p>=1 must always fire")
		}
	}
}

func TestRandomElementRequiresValues(t *testing.T) {
	if _, err := RandomElement[int](nil, nil); err == nil {
		t.Fatal("expected error for empty values")
	}
	v, err := RandomElement(rand.New(rand.NewSource(4)), []string{"only"})
	if err != nil {
		t.Fatalf("random element: %v", err)
	}
	if v != "only" {
		t.Fatalf("unexpected element: %s", v)
	}
}
