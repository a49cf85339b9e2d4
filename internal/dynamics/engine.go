package dynamics

import (
	"math"
	"math/rand"

	"emergence/internal/randutil"
)

const (
	chaosMinR = 3.57
	chaosMaxR = 4.0

	logisticScale = 0.05
	synergyScale  = 0.03

	transitionTolerance = 0.02
	transitionFloor     = 0.5

	DefaultWindowSize = 10
	defaultEventCap   = 100
)

// DefaultThresholds are the critical points DetectTransition watches.
var DefaultThresholds = []float64{0.25, 0.5, 0.618, 0.75, 0.9}

type EventKind string

const (
	EventPhaseTransition EventKind = "phase_transition"
	EventBreakthrough    EventKind = "breakthrough"
)

type Event struct {
	Kind      EventKind `json:"kind"`
	Sequence  int       `json:"sequence"`
	Value     float64   `json:"value"`
	Magnitude float64   `json:"magnitude"`
}

type Config struct {
	Thresholds []float64
	WindowSize int
	EventCap   int
}

// Engine owns the mutable state behind growth updates. It is not safe for
// concurrent use.
type Engine struct {
	rng         *rand.Rand
	thresholds  []float64
	windowSize  int
	eventCap    int
	window      []float64
	events      []Event
	eventCount  int
	phase       int
	breakouts   int
	accumulator float64
}

func NewEngine(rng *rand.Rand, cfg Config) *Engine {
	thresholds := cfg.Thresholds
	if len(thresholds) == 0 {
		thresholds = DefaultThresholds
	}
	windowSize := cfg.WindowSize
	if windowSize <= 0 {
		windowSize = DefaultWindowSize
	}
	eventCap := cfg.EventCap
	if eventCap <= 0 {
		eventCap = defaultEventCap
	}
	return &Engine{
		rng:        rng,
		thresholds: append([]float64(nil), thresholds...),
		windowSize: windowSize,
		eventCap:   eventCap,
	}
}

// ComputeGrowth returns an unbounded growth delta. Callers clamp after
// adding it to a base value.
func (e *Engine) ComputeGrowth(current, interaction, complexity float64) float64 {
	r := chaosMinR + (chaosMaxR-chaosMinR)*randutil.Clamp(complexity, 0, 1)
	x := randutil.Clamp(current/2, 0, 1)
	logistic := r * x * (1 - x)

	transition := e.DetectTransition(current, complexity)

	synergy := math.Pow(math.Max(interaction, 0), 1.5) * math.Sin(math.Pi*current)

	bonus := 0.0
	if randutil.Bernoulli(e.rng, 1-math.Exp(-2*complexity)) {
		bonus = randutil.UniformFloat(e.rng, 0.005, 0.02)
	}

	return logisticScale*logistic + transition + synergyScale*synergy + bonus
}

// DetectTransition fires at most once per call, on the first threshold
// within tolerance of value, and never when complexity <= 0.5.
func (e *Engine) DetectTransition(value, complexity float64) float64 {
	if complexity <= transitionFloor {
		return 0
	}
	for _, threshold := range e.thresholds {
		if math.Abs(value-threshold) >= transitionTolerance {
			continue
		}
		if !randutil.Bernoulli(e.rng, randutil.Clamp(complexity, 0, 1)*0.5) {
			return 0
		}
		e.phase++
		jump := randutil.UniformFloat(e.rng, 0.05, 0.15)
		e.record(EventPhaseTransition, value, jump)
		return jump
	}
	return 0
}

// SynergyMultiplier averages (a*b)^0.7 over unordered pairs. Fewer than two
// values yields exactly 1.
func SynergyMultiplier(values []float64) float64 {
	if len(values) < 2 {
		return 1.0
	}
	sum := 0.0
	pairs := 0
	for i := 0; i < len(values); i++ {
		for j := i + 1; j < len(values); j++ {
			sum += math.Pow(math.Max(values[i]*values[j], 0), 0.7)
			pairs++
		}
	}
	return 1 + 0.5*sum/float64(pairs)
}

// Amplify pushes outcome into the sliding window and scales value by the
// squared window mean.
func (e *Engine) Amplify(value, outcome float64, windowSize int) float64 {
	if windowSize <= 0 {
		windowSize = e.windowSize
	}
	e.window = append(e.window, outcome)
	if over := len(e.window) - windowSize; over > 0 {
		e.window = append(e.window[:0], e.window[over:]...)
	}
	momentum := e.Momentum()
	return value * (1 + 0.3*momentum)
}

// Momentum is the squared mean of the outcome window.
func (e *Engine) Momentum() float64 {
	if len(e.window) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range e.window {
		sum += v
	}
	avg := sum / float64(len(e.window))
	return avg * avg
}

func (e *Engine) MaybeBreakthrough(complexity, base float64) float64 {
	e.accumulator += 0.01 * complexity
	if e.accumulator < 0 {
		e.accumulator = 0
	}
	p := math.Min(0.05, math.Pow(e.accumulator, 1.5)*0.01)
	if !randutil.Bernoulli(e.rng, p) {
		return base
	}
	e.accumulator /= 2
	e.breakouts++
	magnitude := randutil.UniformFloat(e.rng, 0.02, 0.08) * (1 + 0.1*float64(e.phase))
	e.record(EventBreakthrough, base, magnitude)
	return base + magnitude
}

func (e *Engine) record(kind EventKind, value, magnitude float64) {
	e.eventCount++
	e.events = append(e.events, Event{
		Kind:      kind,
		Sequence:  e.eventCount,
		Value:     value,
		Magnitude: magnitude,
	})
	if len(e.events) > e.eventCap {
		e.events = append(e.events[:0], e.events[len(e.events)-e.eventCap/2:]...)
	}
}

func (e *Engine) EventCount() int {
	return e.eventCount
}

func (e *Engine) PhaseTransitions() int {
	return e.phase
}

func (e *Engine) Breakthroughs() int {
	return e.breakouts
}

func (e *Engine) Accumulator() float64 {
	return e.accumulator
}

func (e *Engine) WindowLen() int {
	return len(e.window)
}

// Events returns a copy of the retained event log, oldest first.
func (e *Engine) Events() []Event {
	return append([]Event(nil), e.events...)
}
