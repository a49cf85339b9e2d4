package model

import "emergence/internal/randutil"

// Attribute names one scalar field of an Entity.
type Attribute string

const (
	AttrCapability          Attribute = "capability"
	AttrReflection          Attribute = "reflection"
	AttrMetaReflection      Attribute = "meta_reflection"
	AttrProblemSolving      Attribute = "problem_solving"
	AttrCrossDomainTransfer Attribute = "cross_domain_transfer"
	AttrAbstraction         Attribute = "abstraction"
	AttrLearningRate        Attribute = "learning_rate"
	AttrMetaLearningRate    Attribute = "meta_learning_rate"
)

// Attributes lists every scalar in a fixed order.
var Attributes = []Attribute{
	AttrCapability,
	AttrReflection,
	AttrMetaReflection,
	AttrProblemSolving,
	AttrCrossDomainTransfer,
	AttrAbstraction,
	AttrLearningRate,
	AttrMetaLearningRate,
}

// CapabilityAttributes are the six capability scalars, without learning rates.
var CapabilityAttributes = []Attribute{
	AttrCapability,
	AttrReflection,
	AttrMetaReflection,
	AttrProblemSolving,
	AttrCrossDomainTransfer,
	AttrAbstraction,
}

type Bound struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

func (b Bound) Clamp(v float64) float64 {
	return randutil.Clamp(v, b.Min, b.Max)
}

func (b Bound) Contains(v float64) bool {
	return v >= b.Min && v <= b.Max
}

var (
	CapabilityBound   = Bound{Min: 0.1, Max: 2.0}
	LearningRateBound = Bound{Min: 0.01, Max: 1.0}
	ProficiencyBound  = Bound{Min: 0, Max: 2.0}
	SubScalarBound    = Bound{Min: 0.1, Max: 2.0}
	EmergenceBound    = Bound{Min: 0, Max: 1.0}
)

func BoundFor(attr Attribute) Bound {
	switch attr {
	case AttrLearningRate, AttrMetaLearningRate:
		return LearningRateBound
	default:
		return CapabilityBound
	}
}

// SubCapabilityNames is the fixed set every entity carries.
var SubCapabilityNames = []string{
	"pattern_recognition",
	"causal_reasoning",
	"analogical_mapping",
	"strategic_planning",
}

func (e *Entity) field(attr Attribute) *float64 {
	switch attr {
	case AttrCapability:
		return &e.Capability
	case AttrReflection:
		return &e.Reflection
	case AttrMetaReflection:
		return &e.MetaReflection
	case AttrProblemSolving:
		return &e.ProblemSolving
	case AttrCrossDomainTransfer:
		return &e.CrossDomainTransfer
	case AttrAbstraction:
		return &e.Abstraction
	case AttrLearningRate:
		return &e.LearningRate
	case AttrMetaLearningRate:
		return &e.MetaLearningRate
	default:
		return nil
	}
}

// Attr returns the scalar for attr, or 0 for an unknown name.
func (e *Entity) Attr(attr Attribute) float64 {
	if f := e.field(attr); f != nil {
		return *f
	}
	return 0
}

// SetAttr stores v clamped to the attribute's bound. Unknown names are ignored.
func (e *Entity) SetAttr(attr Attribute, v float64) {
	if f := e.field(attr); f != nil {
		*f = BoundFor(attr).Clamp(v)
	}
}

// AddAttr adds delta and clamps.
func (e *Entity) AddAttr(attr Attribute, delta float64) {
	e.SetAttr(attr, e.Attr(attr)+delta)
}

// ClampSubCapability bounds every scalar of s.
func ClampSubCapability(s SubCapability) SubCapability {
	s.Depth = SubScalarBound.Clamp(s.Depth)
	s.Abstraction = SubScalarBound.Clamp(s.Abstraction)
	s.Transferability = SubScalarBound.Clamp(s.Transferability)
	s.Emergence = EmergenceBound.Clamp(s.Emergence)
	return s
}

// InBounds reports whether every scalar, sub-capability and proficiency is
// within its declared bound.
func (e *Entity) InBounds() bool {
	for _, attr := range Attributes {
		if !BoundFor(attr).Contains(e.Attr(attr)) {
			return false
		}
	}
	for _, s := range e.SubCapabilities {
		if !SubScalarBound.Contains(s.Depth) || !SubScalarBound.Contains(s.Abstraction) ||
			!SubScalarBound.Contains(s.Transferability) || !EmergenceBound.Contains(s.Emergence) {
			return false
		}
	}
	for _, v := range e.Domains {
		if !ProficiencyBound.Contains(v) {
			return false
		}
	}
	return true
}

// Clone returns a deep copy.
func (e Entity) Clone() Entity {
	out := e
	out.ParentIDs = append([]string(nil), e.ParentIDs...)
	out.SubCapabilities = append([]SubCapability(nil), e.SubCapabilities...)
	out.Domains = make(map[string]float64, len(e.Domains))
	for k, v := range e.Domains {
		out.Domains[k] = v
	}
	out.History = append([]HistoryEntry(nil), e.History...)
	out.Insights = append([]Insight(nil), e.Insights...)
	return out
}
