package population

import (
	"math"

	"emergence/internal/dynamics"
	"emergence/internal/model"
	"emergence/internal/randutil"
)

const (
	metaReflectionGate = 0.5
	cascadeGate        = 0.8
	cascadeChance      = 0.3
	failureDecay       = 0.02
)

// Evolve applies one outcome to e in place. Every scalar is clamped before
// it returns.
func (m *Model) Evolve(e *model.Entity, outcome model.Outcome) {
	if e.Domains == nil {
		e.Domains = make(map[string]float64)
	}
	bit := 0.0
	if outcome.Success {
		bit = 1.0
	}
	experience := experienceQuality(outcome)
	complexity := systemComplexity(e)

	e.SetAttr(model.AttrCapability, m.grow(e.Capability, experience, complexity, e.LearningRate, outcome.Success, bit))
	e.SetAttr(model.AttrReflection, m.grow(e.Reflection, experience*0.8, complexity, e.MetaLearningRate, outcome.Success, bit))
	if e.Reflection > metaReflectionGate {
		e.SetAttr(model.AttrMetaReflection, m.grow(e.MetaReflection, experience*0.6, complexity, e.MetaLearningRate, outcome.Success, bit))
	}

	if e.Capability > cascadeGate && randutil.Bernoulli(m.rng, cascadeChance) {
		boost := randutil.UniformFloat(m.rng, 0.005, 0.02) *
			dynamics.SynergyMultiplier([]float64{e.Capability, e.Reflection, e.MetaReflection})
		e.AddAttr(model.AttrProblemSolving, boost)
		e.AddAttr(model.AttrAbstraction, boost)
		e.AddAttr(model.AttrCrossDomainTransfer, boost)
	}

	if outcome.Success {
		e.AddAttr(model.AttrProblemSolving, 0.01*experience*outcome.Complexity)
		e.AddAttr(model.AttrLearningRate, 0.002*e.MetaLearningRate)
	} else {
		e.AddAttr(model.AttrLearningRate, -0.001*e.MetaLearningRate)
	}

	if outcome.Domain != "" {
		gain := e.LearningRate * experience * 0.1
		if !outcome.Success {
			gain *= 0.3
		}
		e.Domains[outcome.Domain] = model.ProficiencyBound.Clamp(e.Domains[outcome.Domain] + gain)
	}
	e.AddAttr(model.AttrCrossDomainTransfer, 0.002*math.Log1p(float64(len(e.Domains)))*experience)

	for i, s := range e.SubCapabilities {
		s.Depth += randutil.UniformFloat(m.rng, 0, 0.01) * experience
		s.Abstraction += randutil.UniformFloat(m.rng, 0, 0.01) * experience * e.Abstraction
		s.Transferability += randutil.UniformFloat(m.rng, 0, 0.01) * experience * e.CrossDomainTransfer
		s.Emergence += randutil.UniformFloat(m.rng, 0, 0.005) * complexity
		e.SubCapabilities[i] = model.ClampSubCapability(s)
	}

	e.EvolutionsApplied++
	e.History = appendBounded(e.History, model.HistoryEntry{
		Evolution:      e.EvolutionsApplied,
		Domain:         outcome.Domain,
		Success:        outcome.Success,
		Experience:     experience,
		Capability:     e.Capability,
		Reflection:     e.Reflection,
		MetaReflection: e.MetaReflection,
	}, m.cfg.HistoryCap)

	threshold := InsightThreshold(e.MetaReflection)
	if e.Capability > threshold && e.Reflection > threshold {
		e.Insights = appendBounded(e.Insights, model.Insight{
			Evolution: e.EvolutionsApplied,
			Domain:    outcome.Domain,
			Depth:     (e.Capability + e.Reflection) / 2 * experience,
			Threshold: threshold,
		}, m.cfg.InsightCap)
	}
}

// grow runs the growth chain: raw growth, feedback amplification, then the
// breakthrough check. The result is unclamped.
func (m *Model) grow(current, interaction, complexity, rate float64, success bool, bit float64) float64 {
	delta := m.engine.ComputeGrowth(current, interaction, complexity) * rate
	if !success {
		delta -= failureDecay * rate
	}
	delta = m.engine.Amplify(delta, bit, 0)
	return m.engine.MaybeBreakthrough(complexity, current+delta)
}

func experienceQuality(outcome model.Outcome) float64 {
	if outcome.Success {
		return 0.5 + 0.5*outcome.InsightQuality*outcome.Complexity
	}
	return 0.1 + 0.2*outcome.Complexity
}

// systemComplexity grows with how many attributes are developed and how far.
func systemComplexity(e *model.Entity) float64 {
	levels := 0.0
	active := 0
	for _, attr := range model.CapabilityAttributes {
		v := e.Attr(attr)
		levels += v
		if v > 0.5 {
			active++
		}
	}
	levels /= float64(len(model.CapabilityAttributes))
	active += len(e.Domains)
	return randutil.Clamp(0.3*levels+0.05*float64(active), 0.05, 1.5)
}

// InsightThreshold drops as second-order reflection grows, floored at 0.3.
func InsightThreshold(metaReflection float64) float64 {
	return math.Max(0.3, 0.9-0.3*metaReflection)
}

// appendBounded appends v and, once len exceeds limit, keeps the newest
// limit/2 entries.
func appendBounded[T any](s []T, v T, limit int) []T {
	s = append(s, v)
	if len(s) <= limit {
		return s
	}
	keep := limit / 2
	if keep < 1 {
		keep = 1
	}
	return append(s[:0], s[len(s)-keep:]...)
}
