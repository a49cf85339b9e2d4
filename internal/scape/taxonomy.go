package scape

import (
	"fmt"
	"math/rand"

	"emergence/internal/model"
	"emergence/internal/randutil"
)

const DefaultCrossDomainChance = 0.3

// Domain is one problem area with the base levels problems are scaled from.
type Domain struct {
	Name          string   `toml:"name"`
	SubTopics     []string `toml:"sub_topics"`
	Complexity    float64  `toml:"complexity"`
	Abstraction   float64  `toml:"abstraction"`
	CognitiveLoad float64  `toml:"cognitive_load"`
	Novelty       float64  `toml:"novelty"`
}

// Taxonomy is the fixed, ordered set of domains problems are drawn from.
type Taxonomy struct {
	Domains []Domain
}

func DefaultTaxonomy() Taxonomy {
	return Taxonomy{Domains: []Domain{
		{Name: "mathematics", SubTopics: []string{"number_theory", "topology", "combinatorics", "analysis"}, Complexity: 0.8, Abstraction: 0.9, CognitiveLoad: 0.7, Novelty: 0.5},
		{Name: "physics", SubTopics: []string{"mechanics", "thermodynamics", "quantum", "relativity"}, Complexity: 0.75, Abstraction: 0.7, CognitiveLoad: 0.7, Novelty: 0.5},
		{Name: "biology", SubTopics: []string{"genetics", "ecology", "neuroscience", "evolution"}, Complexity: 0.65, Abstraction: 0.5, CognitiveLoad: 0.6, Novelty: 0.6},
		{Name: "computer_science", SubTopics: []string{"algorithms", "distributed_systems", "complexity_theory", "compilers"}, Complexity: 0.7, Abstraction: 0.75, CognitiveLoad: 0.65, Novelty: 0.55},
		{Name: "philosophy", SubTopics: []string{"epistemology", "ethics", "logic", "metaphysics"}, Complexity: 0.6, Abstraction: 0.85, CognitiveLoad: 0.5, Novelty: 0.7},
		{Name: "linguistics", SubTopics: []string{"syntax", "semantics", "phonology", "pragmatics"}, Complexity: 0.55, Abstraction: 0.6, CognitiveLoad: 0.5, Novelty: 0.5},
		{Name: "economics", SubTopics: []string{"game_theory", "markets", "macro", "behavioral"}, Complexity: 0.6, Abstraction: 0.55, CognitiveLoad: 0.55, Novelty: 0.45},
		{Name: "art", SubTopics: []string{"composition", "color_theory", "narrative", "form"}, Complexity: 0.45, Abstraction: 0.65, CognitiveLoad: 0.4, Novelty: 0.85},
	}}
}

func (t Taxonomy) Validate() error {
	if len(t.Domains) == 0 {
		return fmt.Errorf("taxonomy requires at least one domain")
	}
	seen := make(map[string]struct{}, len(t.Domains))
	for i, d := range t.Domains {
		if d.Name == "" {
			return fmt.Errorf("domain name is required at index %d", i)
		}
		if _, ok := seen[d.Name]; ok {
			return fmt.Errorf("duplicate domain: %s", d.Name)
		}
		seen[d.Name] = struct{}{}
		if len(d.SubTopics) == 0 {
			return fmt.Errorf("domain %s requires at least one sub-topic", d.Name)
		}
	}
	return nil
}

func (t Taxonomy) Names() []string {
	names := make([]string, 0, len(t.Domains))
	for _, d := range t.Domains {
		names = append(names, d.Name)
	}
	return names
}

// Generate draws one problem. With probability crossChance, and when more
// than one domain exists, a distinct secondary domain is attached.
func (t Taxonomy) Generate(rng *rand.Rand, crossChance float64) model.Problem {
	domain := t.Domains[rng.Intn(len(t.Domains))]
	topic, _ := randutil.RandomElement(rng, domain.SubTopics)

	problem := model.Problem{
		Domain:        domain.Name,
		SubTopic:      topic,
		Complexity:    scaled(rng, domain.Complexity),
		Abstraction:   scaled(rng, domain.Abstraction),
		CognitiveLoad: scaled(rng, domain.CognitiveLoad),
		Novelty:       scaled(rng, domain.Novelty),
	}
	if len(t.Domains) > 1 && randutil.Bernoulli(rng, crossChance) {
		idx := rng.Intn(len(t.Domains) - 1)
		if t.Domains[idx].Name == domain.Name {
			idx = len(t.Domains) - 1
		}
		problem.SecondaryDomain = t.Domains[idx].Name
	}
	return problem
}

func scaled(rng *rand.Rand, base float64) float64 {
	return randutil.Clamp(base*randutil.UniformFloat(rng, 0.7, 1.3), 0.05, 1.0)
}
