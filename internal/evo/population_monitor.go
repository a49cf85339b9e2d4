package evo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sort"
	"time"

	"emergence/internal/dynamics"
	"emergence/internal/model"
	"emergence/internal/population"
	"emergence/internal/provider"
	"emergence/internal/randutil"
	"emergence/internal/scape"
	"emergence/internal/stats"
)

const (
	OpSeed      = "seed"
	OpClone     = "clone"
	OpCrossover = "crossover"
	OpFresh     = "fresh"

	defaultArchiveCap = 10000
)

var ErrEmptyPopulation = errors.New("population is empty")

type MonitorConfig struct {
	Taxonomy scape.Taxonomy
	// Problems overrides Taxonomy as the problem source when set.
	Problems    scape.Source
	Selector    Selector
	Provider    provider.Provider
	ProviderIDs []string
	Logger      *slog.Logger
	// OnGeneration, when set, receives each generation's diagnostics and
	// population summary after pruning.
	OnGeneration func(diag model.GenerationDiagnostics, summary stats.Summary, counters model.Counters)
	Now          func() time.Time

	Seed               int64
	InitialPopulation  int
	MaxPopulation      int
	CycleDelay         time.Duration
	MaxCycles          int
	ProblemsMin        int
	ProblemsMax        int
	GenerationInterval int
	EliteCount         int
	MutationRate       float64
	MutationStrength   float64
	CrossoverRate      float64
	FreshInjectionRate float64
	PruneThreshold     float64
	CrossDomainChance  float64
	ConsultRate        float64
	HistoryCap         int
	InsightCap         int
	ArchiveCap         int
}

func DefaultMonitorConfig() MonitorConfig {
	return MonitorConfig{
		Taxonomy:           scape.DefaultTaxonomy(),
		Selector:           EliteSelector{},
		Seed:               1,
		InitialPopulation:  5,
		MaxPopulation:      50,
		CycleDelay:         500 * time.Millisecond,
		ProblemsMin:        1,
		ProblemsMax:        5,
		GenerationInterval: 10,
		EliteCount:         3,
		MutationRate:       0.3,
		MutationStrength:   0.05,
		CrossoverRate:      0.2,
		FreshInjectionRate: 0.1,
		PruneThreshold:     0.3,
		CrossDomainChance:  scape.DefaultCrossDomainChance,
		ConsultRate:        0.1,
		HistoryCap:         population.DefaultHistoryCap,
		InsightCap:         population.DefaultInsightCap,
		ArchiveCap:         defaultArchiveCap,
	}
}

func (cfg MonitorConfig) Validate() error {
	if cfg.InitialPopulation <= 0 {
		return fmt.Errorf("initial population must be > 0")
	}
	if cfg.MaxPopulation < cfg.InitialPopulation {
		return fmt.Errorf("max population must be >= initial population")
	}
	if cfg.CycleDelay < 0 {
		return fmt.Errorf("cycle delay must be >= 0")
	}
	if cfg.MaxCycles < 0 {
		return fmt.Errorf("max cycles must be >= 0")
	}
	if cfg.ProblemsMin <= 0 || cfg.ProblemsMax < cfg.ProblemsMin {
		return fmt.Errorf("problems per cycle must satisfy 0 < min <= max")
	}
	if cfg.GenerationInterval <= 0 {
		return fmt.Errorf("generation interval must be > 0")
	}
	if cfg.EliteCount <= 0 {
		return fmt.Errorf("elite count must be > 0")
	}
	if cfg.MutationStrength < 0 {
		return fmt.Errorf("mutation strength must be >= 0")
	}
	if cfg.HistoryCap < 0 || cfg.InsightCap < 0 || cfg.ArchiveCap < 0 {
		return fmt.Errorf("history, insight and archive caps must be >= 0")
	}
	rates := []struct {
		name  string
		value float64
	}{
		{"mutation rate", cfg.MutationRate},
		{"crossover rate", cfg.CrossoverRate},
		{"fresh injection rate", cfg.FreshInjectionRate},
		{"cross domain chance", cfg.CrossDomainChance},
		{"consult rate", cfg.ConsultRate},
	}
	for _, r := range rates {
		if r.value < 0 || r.value > 1 {
			return fmt.Errorf("%s must be in [0, 1]", r.name)
		}
	}
	if cfg.PruneThreshold < 0 {
		return fmt.Errorf("prune threshold must be >= 0")
	}
	if cfg.Problems == nil {
		if err := cfg.Taxonomy.Validate(); err != nil {
			return err
		}
	}
	if cfg.Provider != nil && len(cfg.ProviderIDs) == 0 {
		return fmt.Errorf("provider ids are required when a provider is set")
	}
	return nil
}

type RunResult struct {
	Cycles      int
	Generation  int
	Counters    model.Counters
	Summary     stats.Summary
	Diagnostics []model.GenerationDiagnostics
	Lineage     []model.LineageRecord
	// Events is the engine's retained log of breakthroughs and phase
	// transitions, oldest first.
	Events []dynamics.Event
	Final  []ScoredEntity
}

// PopulationMonitor drives the evaluate/select loop. It is single-threaded:
// only the goroutine calling Run or RunCycle may touch it.
type PopulationMonitor struct {
	cfg    MonitorConfig
	rng    *rand.Rand
	engine *dynamics.Engine
	model  *population.Model
	source scape.Source
	log    *slog.Logger

	entities   map[string]*model.Entity
	order      []string
	generation int
	counters   model.Counters

	// genStart snapshots the counters at the start of the open generation.
	genStart    model.Counters
	diagnostics []model.GenerationDiagnostics
	lineage     []model.LineageRecord
}

func NewPopulationMonitor(cfg MonitorConfig) (*PopulationMonitor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Selector == nil {
		cfg.Selector = EliteSelector{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	if cfg.ArchiveCap == 0 {
		cfg.ArchiveCap = defaultArchiveCap
	}

	var source scape.Source = cfg.Taxonomy
	if cfg.Problems != nil {
		source = cfg.Problems
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	engine := dynamics.NewEngine(rng, dynamics.Config{})
	return &PopulationMonitor{
		cfg:    cfg,
		rng:    rng,
		engine: engine,
		model: population.NewModel(rng, engine, population.Config{
			HistoryCap: cfg.HistoryCap,
			InsightCap: cfg.InsightCap,
			Now:        cfg.Now,
		}),
		source:   source,
		log:      cfg.Logger,
		entities: make(map[string]*model.Entity),
	}, nil
}

// Seed creates the initial population of fresh entities.
func (m *PopulationMonitor) Seed() {
	for i := 0; i < m.cfg.InitialPopulation; i++ {
		m.add(m.model.CreateFresh(m.generation, nil), OpSeed)
	}
}

func (m *PopulationMonitor) add(e *model.Entity, op string) {
	m.entities[e.ID] = e
	m.order = append(m.order, e.ID)
	m.counters.Created++
	m.lineage = appendArchive(m.lineage, model.LineageRecord{
		EntityID:   e.ID,
		ParentIDs:  append([]string(nil), e.ParentIDs...),
		Generation: e.Generation,
		Operation:  op,
	}, m.cfg.ArchiveCap)
}

func (m *PopulationMonitor) Len() int {
	return len(m.order)
}

func (m *PopulationMonitor) Generation() int {
	return m.generation
}

func (m *PopulationMonitor) Counters() model.Counters {
	c := m.counters
	c.Breakthroughs = m.engine.Breakthroughs()
	c.PhaseTransitions = m.engine.PhaseTransitions()
	return c
}

func (m *PopulationMonitor) Model() *population.Model {
	return m.model
}

func (m *PopulationMonitor) Get(id string) (*model.Entity, bool) {
	e, ok := m.entities[id]
	return e, ok
}

// Entities returns members in insertion order.
func (m *PopulationMonitor) Entities() []*model.Entity {
	out := make([]*model.Entity, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.entities[id])
	}
	return out
}

// RandomMember picks a member uniformly; ok is false for an empty population.
func (m *PopulationMonitor) RandomMember() (*model.Entity, bool) {
	if len(m.order) == 0 {
		return nil, false
	}
	return m.entities[m.order[m.rng.Intn(len(m.order))]], true
}

// Ranked returns members by descending TotalScore; ties keep insertion order.
func (m *PopulationMonitor) Ranked() []ScoredEntity {
	ranked := make([]ScoredEntity, 0, len(m.order))
	for _, id := range m.order {
		e := m.entities[id]
		ranked = append(ranked, ScoredEntity{Entity: e, Score: population.TotalScore(e)})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	return ranked
}

func (m *PopulationMonitor) GenerateProblem() model.Problem {
	return m.source.Generate(m.rng, m.cfg.CrossDomainChance)
}

// SolveProbability weighs proficiency and capabilities against problem
// complexity, clamped to [0.05, 0.95].
func SolveProbability(e *model.Entity, p model.Problem) float64 {
	prob := 0.2 +
		0.25*e.Domains[p.Domain] +
		0.2*e.Capability +
		0.15*e.Reflection +
		0.1*e.CrossDomainTransfer -
		0.4*p.Complexity
	if p.CrossDomain() {
		prob += 0.1*e.CrossDomainTransfer - 0.1
	}
	return randutil.Clamp(prob, 0.05, 0.95)
}

// AttemptSolve draws an outcome for e on p and always evolves e with it.
func (m *PopulationMonitor) AttemptSolve(ctx context.Context, e *model.Entity, p model.Problem) model.Outcome {
	prob := SolveProbability(e, p)
	success := randutil.Bernoulli(m.rng, prob)
	quality := randutil.UniformFloat(m.rng, 0, 0.5)
	if success {
		quality = randutil.UniformFloat(m.rng, 0.3, 1.0)
	}
	quality += m.consult(ctx, e)

	outcome := model.Outcome{
		EntityID:       e.ID,
		Success:        success,
		Probability:    prob,
		Complexity:     p.Complexity,
		InsightQuality: randutil.Clamp(quality, 0, 1),
		Domain:         p.Domain,
		CrossDomain:    p.CrossDomain(),
	}

	m.counters.Attempts++
	if success {
		e.ProblemsSolved++
		m.counters.Solved++
		if p.CrossDomain() {
			e.CrossDomainConnections++
			m.counters.CrossDomain++
		}
	}
	m.model.Evolve(e, outcome)
	return outcome
}

// consult optionally asks the provider for a flavor bonus and returns the
// insight gain. Provider errors never fail the attempt.
func (m *PopulationMonitor) consult(ctx context.Context, e *model.Entity) float64 {
	if m.cfg.Provider == nil || !randutil.Bernoulli(m.rng, m.cfg.ConsultRate) {
		return 0
	}
	id, err := randutil.RandomElement(m.rng, m.cfg.ProviderIDs)
	if err != nil {
		return 0
	}
	m.counters.Consultations++
	res, err := m.cfg.Provider.Call(ctx, id)
	if err != nil {
		m.log.Debug("provider call failed", "provider", id, "entity", e.ID, "error", err)
		return 0
	}
	if !res.Success {
		return 0
	}
	e.AddAttr(model.AttrCapability, res.CapabilityGain)
	return res.InsightGain
}

func (m *PopulationMonitor) AdvanceGeneration() {
	m.generation++
}

// PruneWeak removes members scoring below threshold that are at least two
// generations old, and returns how many were removed.
func (m *PopulationMonitor) PruneWeak(threshold float64) int {
	kept := m.order[:0]
	removed := 0
	for _, id := range m.order {
		e := m.entities[id]
		if e.Generation <= m.generation-2 && population.TotalScore(e) < threshold {
			delete(m.entities, id)
			removed++
			continue
		}
		kept = append(kept, id)
	}
	m.order = kept
	m.counters.Pruned += removed
	return removed
}

// Reproduce spawns children from the elite: clones by MutationRate per elite
// member, and one crossover by CrossoverRate.
func (m *PopulationMonitor) Reproduce() int {
	ranked := m.Ranked()
	if len(ranked) == 0 {
		return 0
	}
	elite := m.cfg.EliteCount
	if elite > len(ranked) {
		elite = len(ranked)
	}

	spawned := 0
	for i := 0; i < elite; i++ {
		if m.Len() >= m.cfg.MaxPopulation {
			break
		}
		if !randutil.Bernoulli(m.rng, m.cfg.MutationRate) {
			continue
		}
		m.add(m.model.CreateFromParent(m.generation, ranked[i].Entity, m.cfg.MutationStrength), OpClone)
		spawned++
	}

	if elite >= 2 && m.Len() < m.cfg.MaxPopulation && randutil.Bernoulli(m.rng, m.cfg.CrossoverRate) {
		a, b, err := m.pickPair(ranked, elite)
		if err != nil {
			m.log.Warn("crossover selection failed", "selector", m.cfg.Selector.Name(), "error", err)
		} else {
			m.add(m.model.CreateFromCrossover(m.generation, a, b), OpCrossover)
			spawned++
		}
	}
	m.counters.Spawned += spawned
	return spawned
}

func (m *PopulationMonitor) pickPair(ranked []ScoredEntity, elite int) (*model.Entity, *model.Entity, error) {
	a, err := m.cfg.Selector.PickParent(m.rng, ranked, elite)
	if err != nil {
		return nil, nil, err
	}
	for attempt := 0; attempt < 5; attempt++ {
		b, err := m.cfg.Selector.PickParent(m.rng, ranked, elite)
		if err != nil {
			return nil, nil, err
		}
		if b.ID != a.ID {
			return a, b, nil
		}
	}
	for _, item := range ranked[:elite] {
		if item.Entity.ID != a.ID {
			return a, item.Entity, nil
		}
	}
	return nil, nil, fmt.Errorf("no distinct second parent")
}

// RunCycle attempts a random number of problems, and closes a generation
// every GenerationInterval cycles. An empty population makes the attempt
// phase a no-op.
func (m *PopulationMonitor) RunCycle(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.counters.Cycles++

	problems := randutil.UniformInt(m.rng, m.cfg.ProblemsMin, m.cfg.ProblemsMax)
	for i := 0; i < problems; i++ {
		e, ok := m.RandomMember()
		if !ok {
			m.log.Debug("skipping attempts", "cycle", m.counters.Cycles, "reason", ErrEmptyPopulation)
			break
		}
		m.AttemptSolve(ctx, e, m.GenerateProblem())
	}

	if m.counters.Cycles%m.cfg.GenerationInterval == 0 {
		m.closeGeneration()
	}
	return nil
}

func (m *PopulationMonitor) closeGeneration() {
	m.AdvanceGeneration()

	spawned := m.Reproduce()
	if m.Len() == 0 || (m.Len() < m.cfg.MaxPopulation && randutil.Bernoulli(m.rng, m.cfg.FreshInjectionRate)) {
		m.add(m.model.CreateFresh(m.generation, nil), OpFresh)
		m.counters.Spawned++
		spawned++
	}
	pruned := m.PruneWeak(m.cfg.PruneThreshold)

	now := m.Counters()
	summary := stats.Summarize(m.Entities())
	diag := model.GenerationDiagnostics{
		Generation:       m.generation,
		PopulationSize:   summary.Population,
		BestScore:        summary.BestScore,
		MeanScore:        summary.MeanScore,
		MinScore:         summary.MinScore,
		MeanCapability:   summary.MeanCapability,
		MaxCapability:    summary.MaxCapability,
		Attempts:         now.Attempts - m.genStart.Attempts,
		Solved:           now.Solved - m.genStart.Solved,
		Spawned:          spawned,
		Pruned:           pruned,
		Breakthroughs:    now.Breakthroughs - m.genStart.Breakthroughs,
		PhaseTransitions: now.PhaseTransitions - m.genStart.PhaseTransitions,
	}
	m.genStart = now
	m.diagnostics = appendArchive(m.diagnostics, diag, m.cfg.ArchiveCap)

	m.log.Info("generation closed",
		"generation", diag.Generation,
		"population", diag.PopulationSize,
		"best_score", diag.BestScore,
		"mean_capability", diag.MeanCapability,
		"solved", diag.Solved,
		"spawned", spawned,
		"pruned", pruned,
	)
	if diag.Breakthroughs > 0 || diag.PhaseTransitions > 0 {
		m.log.Debug("dynamics events",
			"generation", diag.Generation,
			"breakthroughs", diag.Breakthroughs,
			"phase_transitions", diag.PhaseTransitions,
		)
	}
	if m.cfg.OnGeneration != nil {
		m.cfg.OnGeneration(diag, summary, now)
	}
}

// Run seeds an empty population and cycles until ctx is done or MaxCycles
// is reached. Cancellation is a clean stop and returns a nil error.
func (m *PopulationMonitor) Run(ctx context.Context) (RunResult, error) {
	if m.Len() == 0 && m.counters.Created == 0 {
		m.Seed()
	}
	m.log.Info("run started", "seed", m.cfg.Seed, "population", m.Len(), "max_cycles", m.cfg.MaxCycles)

	for m.cfg.MaxCycles == 0 || m.counters.Cycles < m.cfg.MaxCycles {
		if err := m.RunCycle(ctx); err != nil {
			break
		}
		if m.cfg.MaxCycles > 0 && m.counters.Cycles >= m.cfg.MaxCycles {
			break
		}
		if !sleep(ctx, m.cfg.CycleDelay) {
			break
		}
	}

	result := m.Result()
	if n := len(result.Events); n > 0 {
		last := result.Events[n-1]
		m.log.Debug("last dynamics event", "kind", last.Kind, "sequence", last.Sequence, "magnitude", last.Magnitude)
	}
	m.log.Info("run stopped",
		"cycles", result.Cycles,
		"generation", result.Generation,
		"attempts", result.Counters.Attempts,
		"solved", result.Counters.Solved,
		"population", result.Summary.Population,
	)
	return result, nil
}

// Result snapshots the current loop state.
func (m *PopulationMonitor) Result() RunResult {
	counters := m.Counters()
	return RunResult{
		Cycles:      counters.Cycles,
		Generation:  m.generation,
		Counters:    counters,
		Summary:     stats.Summarize(m.Entities()),
		Diagnostics: append([]model.GenerationDiagnostics(nil), m.diagnostics...),
		Lineage:     append([]model.LineageRecord(nil), m.lineage...),
		Events:      m.engine.Events(),
		Final:       m.Ranked(),
	}
}

func (m *PopulationMonitor) Diagnostics() []model.GenerationDiagnostics {
	return append([]model.GenerationDiagnostics(nil), m.diagnostics...)
}

func (m *PopulationMonitor) Lineage() []model.LineageRecord {
	return append([]model.LineageRecord(nil), m.lineage...)
}

// sleep waits d and reports whether ctx is still live.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// appendArchive keeps at most limit entries, dropping the oldest half on
// overflow. The newest entry always survives.
func appendArchive[T any](s []T, v T, limit int) []T {
	s = append(s, v)
	if limit > 0 && len(s) > limit {
		keep := limit / 2
		if keep < 1 {
			keep = 1
		}
		s = append(s[:0], s[len(s)-keep:]...)
	}
	return s
}
