package dynamics

import (
	"math"
	"math/rand"
	"testing"
)

func newTestEngine(seed int64) *Engine {
	return NewEngine(rand.New(rand.NewSource(seed)), Config{})
}

func TestSynergyMultiplierDegenerateCases(t *testing.T) {
	if got := SynergyMultiplier(nil); got != 1.0 {
		t.Fatalf("expected 1.0 for empty input, got=%f", got)
	}
	if got := SynergyMultiplier([]float64{0.7}); got != 1.0 {
		t.Fatalf("expected 1.0 for single value, got=%f", got)
	}
	if got := SynergyMultiplier([]float64{1, 1}); got != 1.5 {
		t.Fatalf("expected 1.5 for unit pair, got=%f", got)
	}
}

func TestSynergyMultiplierAveragesPairs(t *testing.T) {
	values := []float64{1, 1, 0}
	want := 1 + 0.5*(1.0/3.0)
	if got := SynergyMultiplier(values); math.Abs(got-want) > 1e-12 {
		t.Fatalf("unexpected multiplier: got=%f want=%f", got, want)
	}
	if got := SynergyMultiplier([]float64{-1, 1}); got != 1.0 {
		t.Fatalf("expected negative product to contribute nothing, got=%f", got)
	}
}

func TestDetectTransitionNeverFiresAtLowComplexity(t *testing.T) {
	engine := newTestEngine(7)
	for _, threshold := range DefaultThresholds {
		for i := 0; i < 200; i++ {
			if got := engine.DetectTransition(threshold, 0.5); got != 0 {
				t.Fatalf("transition fired at complexity 0.5: value=%f jump=%f", threshold, got)
			}
			if got := engine.DetectTransition(threshold, 0.1); got != 0 {
				t.Fatalf("transition fired at complexity 0.1: value=%f jump=%f", threshold, got)
			}
		}
	}
	if engine.PhaseTransitions() != 0 || engine.EventCount() != 0 {
		t.Fatalf("expected no recorded transitions, phase=%d events=%d", engine.PhaseTransitions(), engine.EventCount())
	}
}

func TestDetectTransitionFiresNearThreshold(t *testing.T) {
	engine := newTestEngine(11)
	fired := 0
	for i := 0; i < 200; i++ {
		jump := engine.DetectTransition(0.505, 1.0)
		if jump != 0 {
			if jump < 0.05 || jump >= 0.15 {
				t.Fatalf("jump out of range: %f", jump)
			}
			fired++
		}
	}
	if fired == 0 {
		t.Fatal("expected at least one transition near 0.5")
	}
	if engine.PhaseTransitions() != fired {
		t.Fatalf("phase counter mismatch: got=%d want=%d", engine.PhaseTransitions(), fired)
	}
	if got := engine.DetectTransition(0.4, 1.0); got != 0 {
		t.Fatalf("expected no transition away from thresholds, got=%f", got)
	}
}

func TestAmplifyWindowAndMomentum(t *testing.T) {
	engine := newTestEngine(1)
	var got float64
	for i := 0; i < 25; i++ {
		got = engine.Amplify(1.0, 1.0, 10)
		if engine.WindowLen() > 10 {
			t.Fatalf("window exceeded size: %d", engine.WindowLen())
		}
	}
	if math.Abs(got-1.3) > 1e-12 {
		t.Fatalf("expected full momentum amplification 1.3, got=%f", got)
	}
	for i := 0; i < 10; i++ {
		got = engine.Amplify(2.0, 0.0, 10)
	}
	if got != 2.0 {
		t.Fatalf("expected zero momentum after failures, got=%f", got)
	}
}

func TestMaybeBreakthroughDischargesAccumulator(t *testing.T) {
	engine := newTestEngine(5)
	added := 0.0
	for i := 0; i < 5000; i++ {
		got := engine.MaybeBreakthrough(1.0, 1.0)
		added += 0.01
		if got < 1.0 {
			t.Fatalf("breakthrough returned less than base: %f", got)
		}
	}
	if engine.Breakthroughs() == 0 {
		t.Fatal("expected at least one breakthrough over 5000 calls")
	}
	if engine.Accumulator() >= added {
		t.Fatalf("expected discharges to reduce the accumulator: acc=%f added=%f", engine.Accumulator(), added)
	}
	if engine.EventCount() != engine.Breakthroughs() {
		t.Fatalf("event count mismatch: events=%d breakthroughs=%d", engine.EventCount(), engine.Breakthroughs())
	}
}

func TestEventLogIsBounded(t *testing.T) {
	engine := NewEngine(rand.New(rand.NewSource(9)), Config{EventCap: 8})
	for i := 0; i < 100; i++ {
		engine.record(EventBreakthrough, 0, 0)
		if len(engine.Events()) > 8 {
			t.Fatalf("event log exceeded cap: %d", len(engine.Events()))
		}
	}
	if engine.EventCount() != 100 {
		t.Fatalf("expected total count to survive eviction, got=%d", engine.EventCount())
	}
}

func TestComputeGrowthIsFinite(t *testing.T) {
	engine := newTestEngine(3)
	for i := 0; i < 500; i++ {
		current := float64(i%21) / 10
		got := engine.ComputeGrowth(current, 0.8, float64(i%11)/10)
		if math.IsNaN(got) || math.IsInf(got, 0) {
			t.Fatalf("non-finite growth for current=%f: %f", current, got)
		}
	}
}
