package main

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spf13/pflag"

	"emergence/internal/scape"
	"emergence/pkg/emergence"
)

// fileConfig mirrors the run flags. Unset keys keep their defaults.
type fileConfig struct {
	Seed               *int64         `toml:"seed"`
	InitialPopulation  *int           `toml:"initial_population"`
	MaxPopulation      *int           `toml:"max_population"`
	MaxCycles          *int           `toml:"max_cycles"`
	CycleDelay         *time.Duration `toml:"cycle_delay"`
	ProblemsMin        *int           `toml:"problems_min"`
	ProblemsMax        *int           `toml:"problems_max"`
	GenerationInterval *int           `toml:"generation_interval"`
	EliteCount         *int           `toml:"elite_count"`
	MutationRate       *float64       `toml:"mutation_rate"`
	MutationStrength   *float64       `toml:"mutation_strength"`
	CrossoverRate      *float64       `toml:"crossover_rate"`
	FreshInjectionRate *float64       `toml:"fresh_injection_rate"`
	PruneThreshold     *float64       `toml:"prune_threshold"`
	CrossDomainChance  *float64       `toml:"cross_domain_chance"`
	ConsultRate        *float64       `toml:"consult_rate"`
	HistoryCap         *int           `toml:"history_cap"`
	InsightCap         *int           `toml:"insight_cap"`
	Selection          *string        `toml:"selection"`
	ConsultProvider    *bool          `toml:"consult_provider"`
	TopLimit           *int           `toml:"top_limit"`
	Domains            []scape.Domain `toml:"domains"`
}

func loadFileConfig(path string) (fileConfig, error) {
	var fc fileConfig
	md, err := toml.DecodeFile(path, &fc)
	if err != nil {
		return fileConfig{}, fmt.Errorf("decode config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return fileConfig{}, fmt.Errorf("unknown config key %q in %s", undecoded[0].String(), path)
	}
	return fc, nil
}

func (fc fileConfig) apply(req *emergence.RunRequest) {
	cfg := &req.Config
	setIf(&cfg.Seed, fc.Seed)
	setIf(&cfg.InitialPopulation, fc.InitialPopulation)
	setIf(&cfg.MaxPopulation, fc.MaxPopulation)
	setIf(&cfg.MaxCycles, fc.MaxCycles)
	setIf(&cfg.CycleDelay, fc.CycleDelay)
	setIf(&cfg.ProblemsMin, fc.ProblemsMin)
	setIf(&cfg.ProblemsMax, fc.ProblemsMax)
	setIf(&cfg.GenerationInterval, fc.GenerationInterval)
	setIf(&cfg.EliteCount, fc.EliteCount)
	setIf(&cfg.MutationRate, fc.MutationRate)
	setIf(&cfg.MutationStrength, fc.MutationStrength)
	setIf(&cfg.CrossoverRate, fc.CrossoverRate)
	setIf(&cfg.FreshInjectionRate, fc.FreshInjectionRate)
	setIf(&cfg.PruneThreshold, fc.PruneThreshold)
	setIf(&cfg.CrossDomainChance, fc.CrossDomainChance)
	setIf(&cfg.ConsultRate, fc.ConsultRate)
	setIf(&cfg.HistoryCap, fc.HistoryCap)
	setIf(&cfg.InsightCap, fc.InsightCap)
	setIf(&req.Selection, fc.Selection)
	setIf(&req.ConsultProvider, fc.ConsultProvider)
	setIf(&req.TopLimit, fc.TopLimit)
	if len(fc.Domains) > 0 {
		cfg.Taxonomy = scape.Taxonomy{Domains: fc.Domains}
	}
}

func setIf[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

type runOptions struct {
	configPath         string
	seed               int64
	population         int
	maxPopulation      int
	cycles             int
	delay              time.Duration
	problemsMin        int
	problemsMax        int
	generationInterval int
	elite              int
	mutationRate       float64
	mutationStrength   float64
	crossoverRate      float64
	freshRate          float64
	pruneThreshold     float64
	crossDomain        float64
	consultRate        float64
	selection          string
	consult            bool
	topLimit           int
	showTop            bool
}

func (o *runOptions) register(fs *pflag.FlagSet) {
	d := emergence.DefaultMonitorConfig()
	fs.StringVar(&o.configPath, "config", "", "TOML run config; explicit flags override its values")
	fs.Int64Var(&o.seed, "seed", d.Seed, "random seed")
	fs.IntVar(&o.population, "population", d.InitialPopulation, "initial population size")
	fs.IntVar(&o.maxPopulation, "max-population", d.MaxPopulation, "population cap")
	fs.IntVar(&o.cycles, "cycles", d.MaxCycles, "max cycles (0 runs until interrupted)")
	fs.DurationVar(&o.delay, "delay", d.CycleDelay, "delay between cycles")
	fs.IntVar(&o.problemsMin, "problems-min", d.ProblemsMin, "min problems per cycle")
	fs.IntVar(&o.problemsMax, "problems-max", d.ProblemsMax, "max problems per cycle")
	fs.IntVar(&o.generationInterval, "generation-interval", d.GenerationInterval, "cycles per generation")
	fs.IntVar(&o.elite, "elite", d.EliteCount, "elite count for reproduction")
	fs.Float64Var(&o.mutationRate, "mutation-rate", d.MutationRate, "per-elite clone probability")
	fs.Float64Var(&o.mutationStrength, "mutation-strength", d.MutationStrength, "clone noise amplitude")
	fs.Float64Var(&o.crossoverRate, "crossover-rate", d.CrossoverRate, "crossover probability per generation")
	fs.Float64Var(&o.freshRate, "fresh-rate", d.FreshInjectionRate, "fresh entity probability per generation")
	fs.Float64Var(&o.pruneThreshold, "prune-threshold", d.PruneThreshold, "score below which old entities are pruned")
	fs.Float64Var(&o.crossDomain, "cross-domain", d.CrossDomainChance, "secondary domain probability")
	fs.Float64Var(&o.consultRate, "consult-rate", d.ConsultRate, "provider consultation probability per attempt")
	fs.StringVar(&o.selection, "selection", "elite", "parent selection: elite|tournament")
	fs.BoolVar(&o.consult, "consult", false, "consult the stub provider during attempts")
	fs.IntVar(&o.topLimit, "top-limit", 10, "entities archived in the top snapshot")
	fs.BoolVar(&o.showTop, "show-top", false, "print the top snapshot after the run")
}

// request builds a run request from defaults, then the config file, then
// explicitly set flags.
func (o *runOptions) request(fs *pflag.FlagSet) (emergence.RunRequest, error) {
	req := emergence.RunRequest{
		Config:    emergence.DefaultMonitorConfig(),
		Selection: "elite",
		TopLimit:  10,
	}
	if o.configPath != "" {
		fc, err := loadFileConfig(o.configPath)
		if err != nil {
			return emergence.RunRequest{}, err
		}
		fc.apply(&req)
	}

	cfg := &req.Config
	overrides := []struct {
		flag  string
		apply func()
	}{
		{"seed", func() { cfg.Seed = o.seed }},
		{"population", func() { cfg.InitialPopulation = o.population }},
		{"max-population", func() { cfg.MaxPopulation = o.maxPopulation }},
		{"cycles", func() { cfg.MaxCycles = o.cycles }},
		{"delay", func() { cfg.CycleDelay = o.delay }},
		{"problems-min", func() { cfg.ProblemsMin = o.problemsMin }},
		{"problems-max", func() { cfg.ProblemsMax = o.problemsMax }},
		{"generation-interval", func() { cfg.GenerationInterval = o.generationInterval }},
		{"elite", func() { cfg.EliteCount = o.elite }},
		{"mutation-rate", func() { cfg.MutationRate = o.mutationRate }},
		{"mutation-strength", func() { cfg.MutationStrength = o.mutationStrength }},
		{"crossover-rate", func() { cfg.CrossoverRate = o.crossoverRate }},
		{"fresh-rate", func() { cfg.FreshInjectionRate = o.freshRate }},
		{"prune-threshold", func() { cfg.PruneThreshold = o.pruneThreshold }},
		{"cross-domain", func() { cfg.CrossDomainChance = o.crossDomain }},
		{"consult-rate", func() { cfg.ConsultRate = o.consultRate }},
		{"selection", func() { req.Selection = o.selection }},
		{"consult", func() { req.ConsultProvider = o.consult }},
		{"top-limit", func() { req.TopLimit = o.topLimit }},
	}
	for _, ov := range overrides {
		if fs.Changed(ov.flag) {
			ov.apply()
		}
	}
	if req.Config.InitialPopulation <= 0 {
		return emergence.RunRequest{}, fmt.Errorf("population must be > 0")
	}
	return req, nil
}
