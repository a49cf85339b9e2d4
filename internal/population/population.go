package population

import (
	"math/rand"
	"time"

	"github.com/oklog/ulid/v2"

	"emergence/internal/dynamics"
	"emergence/internal/model"
	"emergence/internal/randutil"
)

const (
	DefaultHistoryCap = 200
	DefaultInsightCap = 50
)

// Config tunes entity construction and bookkeeping.
type Config struct {
	HistoryCap int
	InsightCap int
	// Now stamps entity ids; defaults to time.Now.
	Now func() time.Time
}

// Model creates and evolves entities. It owns no population; callers keep
// the map. It is not safe for concurrent use.
type Model struct {
	rng     *rand.Rand
	engine  *dynamics.Engine
	entropy *ulid.MonotonicEntropy
	cfg     Config
}

func NewModel(rng *rand.Rand, engine *dynamics.Engine, cfg Config) *Model {
	if cfg.HistoryCap <= 0 {
		cfg.HistoryCap = DefaultHistoryCap
	}
	if cfg.InsightCap <= 0 {
		cfg.InsightCap = DefaultInsightCap
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Model{
		rng:     rng,
		engine:  engine,
		entropy: ulid.Monotonic(rand.New(rand.NewSource(rng.Int63())), 0),
		cfg:     cfg,
	}
}

func (m *Model) Engine() *dynamics.Engine {
	return m.engine
}

func (m *Model) newID() string {
	return ulid.MustNew(ulid.Timestamp(m.cfg.Now()), m.entropy).String()
}

// CreateFresh seeds every scalar at random and then applies overrides,
// clamped to their bounds.
func (m *Model) CreateFresh(generation int, overrides map[model.Attribute]float64) *model.Entity {
	e := &model.Entity{
		ID:         m.newID(),
		Generation: generation,
		Domains:    make(map[string]float64),
	}
	for _, attr := range model.Attributes {
		switch attr {
		case model.AttrLearningRate, model.AttrMetaLearningRate:
			e.SetAttr(attr, randutil.UniformFloat(m.rng, 0.05, 0.3))
		default:
			e.SetAttr(attr, randutil.UniformFloat(m.rng, 0.1, 1.0))
		}
	}
	e.SubCapabilities = make([]model.SubCapability, 0, len(model.SubCapabilityNames))
	for _, name := range model.SubCapabilityNames {
		e.SubCapabilities = append(e.SubCapabilities, model.ClampSubCapability(model.SubCapability{
			Name:            name,
			Depth:           randutil.UniformFloat(m.rng, 0.1, 1.0),
			Abstraction:     randutil.UniformFloat(m.rng, 0.1, 1.0),
			Transferability: randutil.UniformFloat(m.rng, 0.1, 1.0),
			Emergence:       randutil.UniformFloat(m.rng, 0, 0.5),
		}))
	}
	for attr, v := range overrides {
		e.SetAttr(attr, v)
	}
	return e
}

// CreateFromParent derives a child near parent. The parent's
// ChildrenSpawned counter is incremented.
func (m *Model) CreateFromParent(generation int, parent *model.Entity, mutationStrength float64) *model.Entity {
	child := &model.Entity{
		ID:         m.newID(),
		Generation: generation,
		ParentIDs:  []string{parent.ID},
		Domains:    make(map[string]float64, len(parent.Domains)),
	}
	for _, attr := range model.Attributes {
		v := parent.Attr(attr) * randutil.UniformFloat(m.rng, 0.95, 1.1)
		noise := mutationStrength * m.rng.Float64()
		if m.rng.Intn(2) == 0 {
			noise = -noise
		}
		child.SetAttr(attr, v+noise)
	}
	for domain, v := range parent.Domains {
		child.Domains[domain] = model.ProficiencyBound.Clamp(v * 0.8)
	}
	child.SubCapabilities = make([]model.SubCapability, 0, len(parent.SubCapabilities))
	for _, s := range parent.SubCapabilities {
		s.Depth += randutil.UniformFloat(m.rng, -0.05, 0.05)
		s.Abstraction += randutil.UniformFloat(m.rng, -0.05, 0.05)
		s.Transferability += randutil.UniformFloat(m.rng, -0.05, 0.05)
		s.Emergence += randutil.UniformFloat(m.rng, -0.05, 0.05)
		child.SubCapabilities = append(child.SubCapabilities, model.ClampSubCapability(s))
	}
	parent.ChildrenSpawned++
	return child
}

// maxTraits inherit the better parent's value; the rest are blended.
var maxTraits = map[model.Attribute]bool{
	model.AttrCapability:     true,
	model.AttrReflection:     true,
	model.AttrProblemSolving: true,
}

// CreateFromCrossover blends two parents. The child's domain map is the
// union of both parents' maps, keeping the higher proficiency per key.
func (m *Model) CreateFromCrossover(generation int, a, b *model.Entity) *model.Entity {
	child := &model.Entity{
		ID:         m.newID(),
		Generation: generation,
		ParentIDs:  []string{a.ID, b.ID},
		Domains:    make(map[string]float64, len(a.Domains)+len(b.Domains)),
	}
	w := m.rng.Float64()
	for _, attr := range model.Attributes {
		va, vb := a.Attr(attr), b.Attr(attr)
		if maxTraits[attr] {
			v := va
			if vb > v {
				v = vb
			}
			child.SetAttr(attr, v*randutil.UniformFloat(m.rng, 0.98, 1.05))
			continue
		}
		child.SetAttr(attr, w*va+(1-w)*vb)
	}
	for domain, v := range a.Domains {
		child.Domains[domain] = model.ProficiencyBound.Clamp(v)
	}
	for domain, v := range b.Domains {
		if cur, ok := child.Domains[domain]; !ok || v > cur {
			child.Domains[domain] = model.ProficiencyBound.Clamp(v)
		}
	}
	n := len(a.SubCapabilities)
	if len(b.SubCapabilities) > n {
		n = len(b.SubCapabilities)
	}
	child.SubCapabilities = make([]model.SubCapability, 0, n)
	for i := 0; i < n; i++ {
		var pick model.SubCapability
		switch {
		case i >= len(a.SubCapabilities):
			pick = b.SubCapabilities[i]
		case i >= len(b.SubCapabilities):
			pick = a.SubCapabilities[i]
		case m.rng.Intn(2) == 0:
			pick = a.SubCapabilities[i]
		default:
			pick = b.SubCapabilities[i]
		}
		child.SubCapabilities = append(child.SubCapabilities, model.ClampSubCapability(pick))
	}
	a.ChildrenSpawned++
	b.ChildrenSpawned++
	return child
}

var scoreWeights = map[model.Attribute]float64{
	model.AttrCapability:          0.25,
	model.AttrReflection:          0.15,
	model.AttrMetaReflection:      0.10,
	model.AttrProblemSolving:      0.15,
	model.AttrCrossDomainTransfer: 0.10,
	model.AttrAbstraction:         0.10,
}

const subCapabilityWeight = 0.15

// TotalScore is a fixed-weight sum of the primary attributes plus the mean
// sub-capability power.
func TotalScore(e *model.Entity) float64 {
	score := 0.0
	for _, attr := range model.Attributes {
		score += scoreWeights[attr] * e.Attr(attr)
	}
	if len(e.SubCapabilities) > 0 {
		power := 0.0
		for _, s := range e.SubCapabilities {
			power += s.Power()
		}
		score += subCapabilityWeight * power / float64(len(e.SubCapabilities))
	}
	return score
}
